// Package memory is an in-process audit sink. It keeps every record for the
// life of the process and answers reconstruction queries by incident.
package memory

import (
	"context"
	"sync"

	"github.com/crimson-sun/healthguard/internal/model"
)

// Output stores audit records in append order.
type Output struct {
	mu      sync.RWMutex
	records []model.AuditRecord
}

// New creates an empty memory sink.
func New() *Output {
	return &Output{}
}

func (o *Output) Write(_ context.Context, rec model.AuditRecord) error {
	o.mu.Lock()
	o.records = append(o.records, rec)
	o.mu.Unlock()
	return nil
}

func (o *Output) Close() error { return nil }

// Records returns a copy of every record in append order.
func (o *Output) Records() []model.AuditRecord {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return append([]model.AuditRecord(nil), o.records...)
}

// ByIncident returns the records of one incident in append order.
func (o *Output) ByIncident(incidentID string) []model.AuditRecord {
	o.mu.RLock()
	defer o.mu.RUnlock()
	var out []model.AuditRecord
	for _, r := range o.records {
		if r.IncidentID == incidentID {
			out = append(out, r)
		}
	}
	return out
}

// Get returns the record with the given audit id.
func (o *Output) Get(auditID string) (model.AuditRecord, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	for _, r := range o.records {
		if r.ID == auditID {
			return r, true
		}
	}
	return model.AuditRecord{}, false
}
