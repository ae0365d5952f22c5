// Package memory is the in-process repository backend.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/crimson-sun/healthguard/internal/model"
	"github.com/crimson-sun/healthguard/internal/store"
)

// Store keeps incidents and escalations in maps, remembering insertion order.
// Values are cloned on the way in and out, so callers never share slices or
// snapshot maps with the stored copy.
type Store struct {
	mu          sync.RWMutex
	incidents   map[string]model.Incident
	incidentIDs []string
	escalations map[string]model.EscalationRecord
	escalIDs    []string
}

var _ store.Repository = (*Store)(nil)

// New creates an empty Store.
func New() *Store {
	return &Store{
		incidents:   make(map[string]model.Incident),
		escalations: make(map[string]model.EscalationRecord),
	}
}

func (s *Store) Get(_ context.Context, id string) (model.Incident, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	inc, ok := s.incidents[id]
	if !ok {
		return model.Incident{}, fmt.Errorf("incident %s: %w", id, store.ErrNotFound)
	}
	return inc.Clone(), nil
}

func (s *Store) Put(_ context.Context, inc model.Incident) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.incidents[inc.ID]; !ok {
		s.incidentIDs = append(s.incidentIDs, inc.ID)
	}
	s.incidents[inc.ID] = inc.Clone()
	return nil
}

func (s *Store) List(_ context.Context, opts store.ListOptions) ([]model.Incident, error) {
	s.mu.RLock()
	all := make([]model.Incident, 0, len(s.incidentIDs))
	for _, id := range s.incidentIDs {
		all = append(all, s.incidents[id].Clone())
	}
	s.mu.RUnlock()
	return store.SelectIncidents(all, opts), nil
}

func (s *Store) UpdateStatus(_ context.Context, id string, status model.IncidentStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	inc, ok := s.incidents[id]
	if !ok {
		return fmt.Errorf("incident %s: %w", id, store.ErrNotFound)
	}
	inc.Status = status
	s.incidents[id] = inc
	return nil
}

func (s *Store) GetEscalation(_ context.Context, id string) (model.EscalationRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.escalations[id]
	if !ok {
		return model.EscalationRecord{}, fmt.Errorf("escalation %s: %w", id, store.ErrNotFound)
	}
	return rec.Clone(), nil
}

func (s *Store) PutEscalation(_ context.Context, rec model.EscalationRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.escalations[rec.ID]; !ok {
		s.escalIDs = append(s.escalIDs, rec.ID)
	}
	s.escalations[rec.ID] = rec.Clone()
	return nil
}

func (s *Store) ListEscalations(_ context.Context, f store.EscalationFilter) ([]model.EscalationRecord, error) {
	s.mu.RLock()
	all := make([]model.EscalationRecord, 0, len(s.escalIDs))
	for _, id := range s.escalIDs {
		all = append(all, s.escalations[id].Clone())
	}
	s.mu.RUnlock()
	return store.SelectEscalations(all, f), nil
}
