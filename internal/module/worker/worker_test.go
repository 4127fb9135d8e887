package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/project-tktt/hn-crawler/internal/common/cleaner"
	"github.com/project-tktt/hn-crawler/internal/domain"
	"github.com/rs/zerolog"
)

// fakeSource hands out queued batches, then waits for cancellation like an idle BRPOP
type fakeSource struct {
	mu      sync.Mutex
	batches [][]*domain.CollectedPost
	errs    []error
}

func (s *fakeSource) ConsumeBatch(ctx context.Context, maxBatch int) ([]*domain.CollectedPost, error) {
	s.mu.Lock()
	if len(s.errs) > 0 {
		err := s.errs[0]
		s.errs = s.errs[1:]
		s.mu.Unlock()
		return nil, err
	}
	if len(s.batches) > 0 {
		batch := s.batches[0]
		s.batches = s.batches[1:]
		s.mu.Unlock()
		return batch, nil
	}
	s.mu.Unlock()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(10 * time.Millisecond):
		return nil, nil
	}
}

type fakeIndexer struct {
	mu      sync.Mutex
	indexed []*domain.CollectedPost
	fail    bool
	calls   int
	done    chan struct{}
	want    int
}

func (i *fakeIndexer) Name() string { return "fake" }

func (i *fakeIndexer) BulkIndex(ctx context.Context, posts []*domain.CollectedPost) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.calls++
	if i.fail {
		return errors.New("backend down")
	}
	i.indexed = append(i.indexed, posts...)
	if len(i.indexed) >= i.want && i.done != nil {
		close(i.done)
		i.done = nil
	}
	return nil
}

func collected(title string) *domain.CollectedPost {
	return domain.NewCollectedPost(domain.Post{Title: title, URI: "https://x.test/" + title, Author: "a"}, domain.SourceHackerNews, time.Now())
}

func TestWorkerIndexesCleanedPosts(t *testing.T) {
	source := &fakeSource{
		errs: []error{errors.New("redis: connection reset")},
		batches: [][]*domain.CollectedPost{
			{collected("  one \n"), collected("Why <div> soup is bad")},
			{collected("three")},
		},
	}
	done := make(chan struct{})
	idx := &fakeIndexer{done: done, want: 3}

	w := NewWorker(source, cleaner.NewCleaner(), idx, Config{Concurrency: 1, BatchSize: 10, RetryDelay: time.Millisecond}, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		w.Run(ctx)
		close(stopped)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for posts to be indexed")
	}
	cancel()

	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not stop after cancellation")
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()
	titles := make([]string, 0, len(idx.indexed))
	for _, p := range idx.indexed {
		titles = append(titles, p.Title)
	}
	want := []string{"one", "Why <div> soup is bad", "three"}
	if len(titles) != len(want) {
		t.Fatalf("indexed %v, want %v", titles, want)
	}
	for i := range want {
		if titles[i] != want[i] {
			t.Errorf("indexed %v, want %v", titles, want)
			break
		}
	}
}

func TestWorkerKeepsRunningAfterIndexError(t *testing.T) {
	source := &fakeSource{batches: [][]*domain.CollectedPost{{collected("a")}, {collected("b")}}}
	idx := &fakeIndexer{fail: true}

	w := NewWorker(source, cleaner.NewCleaner(), idx, Config{Concurrency: 2}, zerolog.Nop())

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	w.Run(ctx)

	idx.mu.Lock()
	defer idx.mu.Unlock()
	if idx.calls != 2 {
		t.Errorf("BulkIndex calls = %d, want 2", idx.calls)
	}
}

func TestNewWorkerDefaults(t *testing.T) {
	w := NewWorker(&fakeSource{}, cleaner.NewCleaner(), &fakeIndexer{}, Config{}, zerolog.Nop())
	if w.concurrency != 5 || w.batchSize != 100 || w.retryDelay != time.Second {
		t.Errorf("unexpected defaults: %d %d %v", w.concurrency, w.batchSize, w.retryDelay)
	}
}

func TestWorkerDropsPostsWithEmptyText(t *testing.T) {
	blankAuthor := collected("kept?")
	blankAuthor.Author = " \t"
	source := &fakeSource{batches: [][]*domain.CollectedPost{
		{collected("   "), blankAuthor},
		{collected("<blink>")},
	}}
	done := make(chan struct{})
	idx := &fakeIndexer{done: done, want: 1}

	w := NewWorker(source, cleaner.NewCleaner(), idx, Config{Concurrency: 1}, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for posts to be indexed")
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()
	if idx.calls != 1 {
		t.Errorf("BulkIndex calls = %d, want 1 since the first batch is empty after validation", idx.calls)
	}
	if len(idx.indexed) != 1 || idx.indexed[0].Title != "<blink>" {
		t.Errorf("indexed %+v, want only <blink>", idx.indexed)
	}
}
