// Package multi fans audit records out to several sinks.
//
// The audit trail calls Write while holding its chain lock, so every sink
// sees records strictly in chain index order. Multi keeps that property:
// sinks are written one after another in the order given to New, and a
// record whose index does not advance the chain is refused before any sink
// sees it. A failing sink never stops the others, so a healthy sink holds a
// gap-free chain even while another one is down.
package multi

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/crimson-sun/healthguard/internal/model"
	"github.com/crimson-sun/healthguard/internal/output"
)

// ErrOutOfOrder is returned for a record whose chain index is not above the
// last one delivered.
var ErrOutOfOrder = errors.New("multi: audit record out of chain order")

// Multi writes each audit record to every wrapped sink in turn.
type Multi struct {
	outputs []output.Output

	mu   sync.Mutex
	last int64 // index of the last record handed to the sinks
}

// New creates a Multi writing to outputs in the given order.
func New(outputs ...output.Output) *Multi {
	return &Multi{outputs: outputs}
}

// Write delivers rec to every sink in order. The returned error joins the
// failure of each sink that refused the record, tagged with its position.
// The record counts as delivered even when some sinks fail, so the next
// record in the chain is still accepted.
func (m *Multi) Write(ctx context.Context, rec model.AuditRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if rec.Index <= m.last {
		return fmt.Errorf("%w: index %d after %d", ErrOutOfOrder, rec.Index, m.last)
	}
	m.last = rec.Index

	var errs []error
	for i, o := range m.outputs {
		if err := o.Write(ctx, rec); err != nil {
			errs = append(errs, fmt.Errorf("sink %d: %w", i, err))
		}
	}
	return errors.Join(errs...)
}

// Close closes every sink, joining their errors.
func (m *Multi) Close() error {
	var errs []error
	for i, o := range m.outputs {
		if err := o.Close(); err != nil {
			errs = append(errs, fmt.Errorf("sink %d: %w", i, err))
		}
	}
	return errors.Join(errs...)
}
