// Package bus provides the last-value cells connecting the tracker, the
// commander and the vehicle bridge.
//
// Each cell is single-writer, multi-reader with atomic publish semantics:
// readers always see the most recent complete value and never block the
// writer. There is no queue: a consumer that falls behind sees only the
// newest value, and staleness accounting downstream notices gaps.
package bus

import (
	"sync/atomic"
	"time"
)

// Latest is a last-value cell for values of type T.
type Latest[T any] struct {
	cell atomic.Pointer[stamped[T]]
}

type stamped[T any] struct {
	value T
	at    time.Time
}

// NewLatest returns an empty cell.
func NewLatest[T any]() *Latest[T] {
	return &Latest[T]{}
}

// Publish atomically replaces the stored value. Only one goroutine may call
// Publish on a given cell.
func (l *Latest[T]) Publish(v T) {
	l.cell.Store(&stamped[T]{value: v, at: time.Now()})
}

// Load returns the most recent value and whether one has been published.
func (l *Latest[T]) Load() (T, bool) {
	s := l.cell.Load()
	if s == nil {
		var zero T
		return zero, false
	}
	return s.value, true
}

// PublishedAt returns when the current value was published, or the zero time
// when the cell is still empty.
func (l *Latest[T]) PublishedAt() time.Time {
	s := l.cell.Load()
	if s == nil {
		return time.Time{}
	}
	return s.at
}
