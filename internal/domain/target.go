package domain

const (
	// MinTarget and MaxTarget bound the number of posts a run may request
	MinTarget = 1
	MaxTarget = 100
)

// Target is the validated number of posts a collection run must return.
// The zero value is not a valid target; use ParseTarget or NewTarget.
type Target struct {
	count int
}

// ParseTarget coerces raw user input to a Target
func ParseTarget(raw string) (Target, error) {
	return NewTarget(ParseNumber(raw))
}

// NewTarget validates n as a whole number between MinTarget and MaxTarget
func NewTarget(n float64) (Target, error) {
	count, ok := NonNegativeInt(n)
	if !ok || count < MinTarget || count > MaxTarget {
		return Target{}, &Error{Kind: KindInvalidConfiguration}
	}
	return Target{count: count}, nil
}

// Count returns the number of posts requested
func (t Target) Count() int {
	return t.count
}
