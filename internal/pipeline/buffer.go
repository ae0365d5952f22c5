package pipeline

import (
	"time"

	"github.com/crimson-sun/healthguard/internal/model"
)

// streamBuffer accumulates streamed events and releases them as a batch on a
// timer. Within a batch a repeated log id keeps only its first occurrence.
// It is owned by a single stream loop and needs no locking.
type streamBuffer struct {
	window  time.Duration
	maxSize int // 0 means unlimited

	pending []model.RawEvent
	seen    map[string]bool
	timer   *time.Timer
}

func newStreamBuffer(window time.Duration, maxSize int) *streamBuffer {
	return &streamBuffer{
		window:  window,
		maxSize: maxSize,
		seen:    make(map[string]bool),
	}
}

// add appends an event. If this is the first pending event, starts the flush timer.
// Returns true if the buffer is full and needs draining.
func (b *streamBuffer) add(ev model.RawEvent) bool {
	if ev.LogID != "" {
		if b.seen[ev.LogID] {
			return false
		}
		b.seen[ev.LogID] = true
	}
	b.pending = append(b.pending, ev)
	if len(b.pending) == 1 {
		b.timer = time.NewTimer(b.window)
	}
	return b.maxSize > 0 && len(b.pending) >= b.maxSize
}

// flushCh returns the timer's channel, or nil if no timer is active.
func (b *streamBuffer) flushCh() <-chan time.Time {
	if b.timer == nil {
		return nil
	}
	return b.timer.C
}

// drain returns the pending events and resets the buffer.
func (b *streamBuffer) drain() []model.RawEvent {
	evs := b.pending
	b.pending = nil
	clear(b.seen)
	if b.timer != nil {
		b.timer.Stop()
		b.timer = nil
	}
	return evs
}
