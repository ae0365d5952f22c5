// Package store defines the incident and escalation repositories the triage
// service persists to. Records are never deleted; incidents change only
// their status and escalations only their acknowledgment fields.
package store

import (
	"context"
	"errors"
	"slices"
	"strings"

	"github.com/crimson-sun/healthguard/internal/model"
)

// DefaultLimit is used when ListOptions.Limit is not positive.
const DefaultLimit = 50

// ErrNotFound is returned when no record exists for the requested id.
var ErrNotFound = errors.New("store: not found")

// ListOptions filters an incident listing. Zero fields match everything.
type ListOptions struct {
	Limit    int
	Module   string
	Severity model.Severity
	Status   model.IncidentStatus
}

// Match reports whether inc passes the filters. Module and severity compare case-insensitively.
func (o ListOptions) Match(inc model.Incident) bool {
	if o.Module != "" && !strings.EqualFold(o.Module, inc.Module) {
		return false
	}
	if o.Severity != "" && !strings.EqualFold(string(o.Severity), string(inc.Severity)) {
		return false
	}
	if o.Status != "" && o.Status != inc.Status {
		return false
	}
	return true
}

// EscalationFilter filters an escalation listing. Zero fields match everything.
type EscalationFilter struct {
	IncidentID string
	Status     model.EscalationStatus
}

// Match reports whether rec passes the filter.
func (f EscalationFilter) Match(rec model.EscalationRecord) bool {
	if f.IncidentID != "" && f.IncidentID != rec.IncidentID {
		return false
	}
	if f.Status != "" && f.Status != rec.Status {
		return false
	}
	return true
}

// IncidentRepository persists incidents by id.
type IncidentRepository interface {
	Get(ctx context.Context, id string) (model.Incident, error)
	Put(ctx context.Context, inc model.Incident) error
	List(ctx context.Context, opts ListOptions) ([]model.Incident, error)
	UpdateStatus(ctx context.Context, id string, status model.IncidentStatus) error
}

// EscalationRepository persists escalation records by id.
type EscalationRepository interface {
	GetEscalation(ctx context.Context, id string) (model.EscalationRecord, error)
	PutEscalation(ctx context.Context, rec model.EscalationRecord) error
	ListEscalations(ctx context.Context, f EscalationFilter) ([]model.EscalationRecord, error)
}

// Repository is both repositories behind one backend.
type Repository interface {
	IncidentRepository
	EscalationRepository
}

// SelectIncidents filters incs (given in insertion order), orders them newest
// created first and applies the limit.
func SelectIncidents(incs []model.Incident, opts ListOptions) []model.Incident {
	out := make([]model.Incident, 0, len(incs))
	for _, inc := range incs {
		if opts.Match(inc) {
			out = append(out, inc)
		}
	}
	// Reverse first so that equal timestamps end up newest-inserted first.
	slices.Reverse(out)
	slices.SortStableFunc(out, func(a, b model.Incident) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	limit := opts.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

// SelectEscalations filters recs and orders them newest first.
func SelectEscalations(recs []model.EscalationRecord, f EscalationFilter) []model.EscalationRecord {
	out := make([]model.EscalationRecord, 0, len(recs))
	for _, rec := range recs {
		if f.Match(rec) {
			out = append(out, rec)
		}
	}
	slices.Reverse(out)
	slices.SortStableFunc(out, func(a, b model.EscalationRecord) int {
		return b.Timestamp.Compare(a.Timestamp)
	})
	return out
}
