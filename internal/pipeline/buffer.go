// Package pipeline coordinates rolling sample buffers, the motion estimators,
// the reaction classifier and the recommendation generator.
package pipeline

import "sync"

// Timestamped is a sample carrying its own timestamp in milliseconds.
type Timestamped interface {
	SampleTime() int64
}

// Buffer is a rolling window of samples pruned relative to the newest
// timestamp it has seen. Snapshot returns a copy, so a concurrent Append never
// tears an analysis read.
type Buffer[T Timestamped] struct {
	mu       sync.Mutex
	windowMs int64
	limit    int
	samples  []T
	newest   int64
	hasAny   bool
}

// NewBuffer creates a buffer keeping windowMs of history and at most limit
// samples (0 means unbounded).
func NewBuffer[T Timestamped](windowMs int64, limit int) *Buffer[T] {
	return &Buffer[T]{windowMs: windowMs, limit: limit}
}

// Append adds s and prunes samples that fell out of the window.
func (b *Buffer[T]) Append(s T) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.samples = append(b.samples, s)
	if ts := s.SampleTime(); !b.hasAny || ts > b.newest {
		b.newest, b.hasAny = ts, true
	}
	b.pruneLocked()
}

// Prune advances the reference timestamp to newest, if later than any sample
// seen, and drops samples older than the window. It lets a buffer that stopped
// receiving samples age out against the clock of its siblings.
func (b *Buffer[T]) Prune(newest int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.hasAny || newest > b.newest {
		b.newest, b.hasAny = newest, true
	}
	b.pruneLocked()
}

func (b *Buffer[T]) pruneLocked() {
	cutoff := b.newest - b.windowMs
	kept := b.samples[:0]
	for _, s := range b.samples {
		if s.SampleTime() >= cutoff {
			kept = append(kept, s)
		}
	}
	clear(b.samples[len(kept):])
	b.samples = kept

	if b.limit > 0 && len(b.samples) > b.limit {
		drop := len(b.samples) - b.limit
		copy(b.samples, b.samples[drop:])
		clear(b.samples[b.limit:])
		b.samples = b.samples[:b.limit]
	}
}

// Snapshot returns a copy of the buffered samples in arrival order.
func (b *Buffer[T]) Snapshot() []T {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]T, len(b.samples))
	copy(out, b.samples)
	return out
}

// Len returns the number of buffered samples.
func (b *Buffer[T]) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.samples)
}

// Clear empties the buffer and forgets the newest timestamp.
func (b *Buffer[T]) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.samples = nil
	b.newest, b.hasAny = 0, false
}
