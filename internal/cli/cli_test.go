package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/project-tktt/hn-crawler/internal/common/dedup"
	"github.com/project-tktt/hn-crawler/internal/config"
	"github.com/project-tktt/hn-crawler/internal/domain"
	"github.com/project-tktt/hn-crawler/internal/module"
	"github.com/rs/zerolog"
)

type fakeCrawler struct {
	posts   []domain.Post
	err     error
	targets []int
}

func (f *fakeCrawler) Collect(ctx context.Context, target domain.Target) (*module.Result, error) {
	f.targets = append(f.targets, target.Count())
	if f.err != nil {
		return nil, f.err
	}
	n := target.Count()
	if n > len(f.posts) {
		return nil, domain.InsufficientResults(len(f.posts), n)
	}
	return &module.Result{Posts: f.posts[:n], PageCapacity: len(f.posts), PagesWalked: 1}, nil
}

func (f *fakeCrawler) Source() domain.Source { return domain.SourceHackerNews }

func samplePosts() []domain.Post {
	return []domain.Post{
		{Title: "One", URI: "https://a.test", Author: "x", Rank: 1, Points: 10, Comments: 2},
		{Title: "Two", URI: "https://b.test", Author: "y", Rank: 2, Points: 7, Comments: 0},
		{Title: "Three", URI: "https://c.test", Author: "z", Rank: 3, Points: 3, Comments: 1},
	}
}

func runCmd(t *testing.T, crawler *fakeCrawler, args ...string) (string, string, error) {
	t.Helper()
	cfg := config.Load()
	factory := func(*config.Config, zerolog.Logger) (module.Crawler, error) { return crawler, nil }

	cmd := NewRootCmd(cfg, factory)
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func TestRootWithoutPostsFlag(t *testing.T) {
	crawler := &fakeCrawler{}
	out, _, err := runCmd(t, crawler)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if strings.TrimSpace(out) != "Should run with -p flag. Example: hncrawler -p 10" {
		t.Errorf("stdout = %q", out)
	}
	if len(crawler.targets) != 0 {
		t.Error("crawler should not run without -p")
	}
}

func TestRootPrintsPosts(t *testing.T) {
	crawler := &fakeCrawler{posts: samplePosts()}
	out, _, err := runCmd(t, crawler, "-p", " 2")
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}

	var got []domain.Post
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("stdout is not JSON: %v\n%s", err, out)
	}
	if len(got) != 2 || got[0] != samplePosts()[0] || got[1] != samplePosts()[1] {
		t.Errorf("posts = %+v", got)
	}
	if !strings.Contains(out, "\n  {") {
		t.Errorf("output should be indented: %q", out)
	}
}

func TestRootErrors(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		crawler *fakeCrawler
		kind    *domain.Error
		want    string
	}{
		{
			name:    "invalid count",
			args:    []string{"--posts", "101"},
			crawler: &fakeCrawler{},
			kind:    domain.ErrInvalidConfiguration,
			want:    "Number of posts should be a positive integer <= 100",
		},
		{
			name:    "non numeric count",
			args:    []string{"-p", "23b3"},
			crawler: &fakeCrawler{},
			kind:    domain.ErrInvalidConfiguration,
			want:    "Number of posts should be a positive integer <= 100",
		},
		{
			name:    "source unreachable",
			args:    []string{"-p", "3"},
			crawler: &fakeCrawler{err: domain.SourceUnreachable("https://news.ycombinator.com", errors.New("request failed with status code 500"))},
			kind:    domain.ErrSourceUnreachable,
			want:    "request failed with status code 500 while hitting URL: https://news.ycombinator.com",
		},
		{
			name:    "insufficient",
			args:    []string{"-p", "5"},
			crawler: &fakeCrawler{posts: samplePosts()},
			kind:    domain.ErrInsufficientResults,
			want:    "Not enough valid posts. Total valid posts found 3, required 5",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, _, err := runCmd(t, tt.crawler, tt.args...)
			if !errors.Is(err, tt.kind) {
				t.Fatalf("Execute error = %v, want kind %v", err, tt.kind.Kind)
			}
			if err.Error() != tt.want {
				t.Errorf("message = %q, want %q", err.Error(), tt.want)
			}
			if out != "" {
				t.Errorf("no records should be printed on failure, got %q", out)
			}
		})
	}
}

func TestRootVersion(t *testing.T) {
	out, _, err := runCmd(t, &fakeCrawler{}, "-v")
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if strings.TrimSpace(out) != "0.1.0" {
		t.Errorf("version output = %q", out)
	}
}

func TestMaxPagesFlag(t *testing.T) {
	cfg := config.Load()
	var seen int
	factory := func(c *config.Config, _ zerolog.Logger) (module.Crawler, error) {
		seen = c.Crawler.MaxPages
		return &fakeCrawler{posts: samplePosts()}, nil
	}

	cmd := NewRootCmd(cfg, factory)
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"-p", "1", "--max-pages", "3"})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if seen != 3 {
		t.Errorf("MaxPages = %d, want 3", seen)
	}
}

type fakeChecker struct {
	seen      map[string]string
	markCalls int
	err       error
}

func (f *fakeChecker) CheckPost(ctx context.Context, post *domain.CollectedPost) (dedup.CheckResult, error) {
	if f.err != nil {
		return dedup.ResultNew, f.err
	}
	sig, ok := f.seen[post.ID]
	switch {
	case !ok:
		return dedup.ResultNew, nil
	case sig != dedup.Signature(post.Post):
		return dedup.ResultUpdated, nil
	default:
		return dedup.ResultUnchanged, nil
	}
}

func (f *fakeChecker) MarkSeen(ctx context.Context, post *domain.CollectedPost) error {
	f.markCalls++
	f.seen[post.ID] = dedup.Signature(post.Post)
	return nil
}

type fakePublisher struct {
	batches [][]*domain.CollectedPost
	err     error
}

func (f *fakePublisher) PublishBatch(ctx context.Context, posts []*domain.CollectedPost) error {
	if f.err != nil {
		return f.err
	}
	f.batches = append(f.batches, posts)
	return nil
}

func (f *fakePublisher) QueueLength(ctx context.Context) (int64, error) {
	var n int64
	for _, b := range f.batches {
		n += int64(len(b))
	}
	return n, nil
}

func newTestWatcher(crawler *fakeCrawler, checker *fakeChecker, pub *fakePublisher, n float64) *watcher {
	target, _ := domain.NewTarget(n)
	return &watcher{
		crawler:   crawler,
		target:    target,
		checker:   checker,
		publisher: pub,
		logger:    zerolog.Nop(),
		now:       func() time.Time { return time.Date(2024, 7, 14, 12, 0, 0, 0, time.UTC) },
	}
}

func TestWatcherPublishesOnlyChanges(t *testing.T) {
	crawler := &fakeCrawler{posts: samplePosts()}
	checker := &fakeChecker{seen: map[string]string{}}
	pub := &fakePublisher{}
	w := newTestWatcher(crawler, checker, pub, 3)
	ctx := context.Background()

	if err := w.runOnce(ctx); err != nil {
		t.Fatalf("first run: %v", err)
	}
	if len(pub.batches) != 1 || len(pub.batches[0]) != 3 {
		t.Fatalf("first run should publish all posts, got %v", pub.batches)
	}
	if pub.batches[0][0].Source != "hackernews" || pub.batches[0][0].ID != domain.PostID("https://a.test") {
		t.Errorf("unexpected envelope %+v", pub.batches[0][0])
	}

	if err := w.runOnce(ctx); err != nil {
		t.Fatalf("second run: %v", err)
	}
	if len(pub.batches) != 1 {
		t.Errorf("unchanged posts should not be republished, got %d batches", len(pub.batches))
	}

	crawler.posts[1].Points = 50
	if err := w.runOnce(ctx); err != nil {
		t.Fatalf("third run: %v", err)
	}
	if len(pub.batches) != 2 || len(pub.batches[1]) != 1 || pub.batches[1][0].Title != "Two" {
		t.Errorf("only the updated post should be republished, got %v", pub.batches)
	}
}

func TestWatcherFailures(t *testing.T) {
	ctx := context.Background()

	crawler := &fakeCrawler{posts: samplePosts()[:1]}
	w := newTestWatcher(crawler, &fakeChecker{seen: map[string]string{}}, &fakePublisher{}, 2)
	if err := w.runOnce(ctx); !errors.Is(err, domain.ErrInsufficientResults) {
		t.Errorf("runOnce error = %v, want insufficient results", err)
	}

	checker := &fakeChecker{seen: map[string]string{}}
	w = newTestWatcher(&fakeCrawler{posts: samplePosts()}, checker, &fakePublisher{err: errors.New("lpush: connection refused")}, 1)
	if err := w.runOnce(ctx); err == nil || !strings.Contains(err.Error(), "publish") {
		t.Errorf("runOnce error = %v, want publish error", err)
	}
	if checker.markCalls != 0 {
		t.Error("posts must not be marked seen when publishing fails")
	}
}

func TestWatcherLoopStopsOnCancel(t *testing.T) {
	crawler := &fakeCrawler{posts: samplePosts()}
	w := newTestWatcher(crawler, &fakeChecker{seen: map[string]string{}}, &fakePublisher{}, 1)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	done := make(chan struct{})
	go func() {
		w.loop(ctx, 10*time.Millisecond)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("loop did not stop")
	}
	if len(crawler.targets) < 2 {
		t.Errorf("expected several runs, got %d", len(crawler.targets))
	}
}
