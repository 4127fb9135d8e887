package domain

// PostBuffer accumulates posts up to a fixed capacity.
// It only grows, keeps insertion order and refuses appends once full.
type PostBuffer struct {
	posts    []Post
	capacity int
}

// NewPostBuffer creates an empty buffer holding at most capacity posts
func NewPostBuffer(capacity int) *PostBuffer {
	if capacity < 0 {
		capacity = 0
	}
	return &PostBuffer{
		posts:    make([]Post, 0, capacity),
		capacity: capacity,
	}
}

// Append adds p unless the buffer is full. It reports whether p was kept.
func (b *PostBuffer) Append(p Post) bool {
	if b.Full() {
		return false
	}
	b.posts = append(b.posts, p)
	return true
}

// RemainingCapacity returns how many more posts fit
func (b *PostBuffer) RemainingCapacity() int {
	return b.capacity - len(b.posts)
}

func (b *PostBuffer) Full() bool {
	return len(b.posts) >= b.capacity
}

func (b *PostBuffer) Len() int {
	return len(b.posts)
}

// Posts returns a copy of the accumulated posts in insertion order
func (b *PostBuffer) Posts() []Post {
	out := make([]Post, len(b.posts))
	copy(out, b.posts)
	return out
}
