// Package jsonfile stores each incident and escalation as its own JSON file:
// <dir>/incidents/<id>.json and <dir>/escalations/<id>.json.
package jsonfile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/crimson-sun/healthguard/internal/model"
	"github.com/crimson-sun/healthguard/internal/store"
)

const (
	incidentsDir   = "incidents"
	escalationsDir = "escalations"
)

// Store is a directory-backed repository. A single process owns the directory.
type Store struct {
	dir string
	mu  sync.Mutex
}

var _ store.Repository = (*Store)(nil)

// New uses dir as the storage root, creating it if needed.
func New(dir string) (*Store, error) {
	if dir == "" {
		return nil, errors.New("jsonfile: empty directory")
	}
	for _, sub := range []string{incidentsDir, escalationsDir} {
		if err := os.MkdirAll(filepath.Join(dir, sub), 0755); err != nil {
			return nil, fmt.Errorf("jsonfile: %w", err)
		}
	}
	return &Store{dir: dir}, nil
}

func (s *Store) path(kind, id string) (string, error) {
	if id == "" || strings.ContainsAny(id, `/\`) || id == "." || id == ".." {
		return "", fmt.Errorf("jsonfile: invalid id %q", id)
	}
	return filepath.Join(s.dir, kind, id+".json"), nil
}

func (s *Store) Get(_ context.Context, id string) (model.Incident, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var inc model.Incident
	err := s.read(incidentsDir, id, &inc)
	return inc, err
}

func (s *Store) Put(_ context.Context, inc model.Incident) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.write(incidentsDir, inc.ID, inc)
}

func (s *Store) List(_ context.Context, opts store.ListOptions) ([]model.Incident, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var all []model.Incident
	err := s.each(incidentsDir, func(data []byte) error {
		var inc model.Incident
		if err := json.Unmarshal(data, &inc); err != nil {
			return err
		}
		all = append(all, inc)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return store.SelectIncidents(all, opts), nil
}

func (s *Store) UpdateStatus(_ context.Context, id string, status model.IncidentStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var inc model.Incident
	if err := s.read(incidentsDir, id, &inc); err != nil {
		return err
	}
	inc.Status = status
	return s.write(incidentsDir, id, inc)
}

func (s *Store) GetEscalation(_ context.Context, id string) (model.EscalationRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var rec model.EscalationRecord
	err := s.read(escalationsDir, id, &rec)
	return rec, err
}

func (s *Store) PutEscalation(_ context.Context, rec model.EscalationRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.write(escalationsDir, rec.ID, rec)
}

func (s *Store) ListEscalations(_ context.Context, f store.EscalationFilter) ([]model.EscalationRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var all []model.EscalationRecord
	err := s.each(escalationsDir, func(data []byte) error {
		var rec model.EscalationRecord
		if err := json.Unmarshal(data, &rec); err != nil {
			return err
		}
		all = append(all, rec)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return store.SelectEscalations(all, f), nil
}

func (s *Store) read(kind, id string, v any) error {
	p, err := s.path(kind, id)
	if err != nil {
		return err
	}
	data, err := os.ReadFile(p)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%s %s: %w", strings.TrimSuffix(kind, "s"), id, store.ErrNotFound)
		}
		return fmt.Errorf("jsonfile: read %s: %w", id, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("jsonfile: decode %s: %w", id, err)
	}
	return nil
}

// write replaces the file atomically via a temp file and rename.
func (s *Store) write(kind, id string, v any) error {
	p, err := s.path(kind, id)
	if err != nil {
		return err
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("jsonfile: encode %s: %w", id, err)
	}
	tmp := p + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("jsonfile: write %s: %w", id, err)
	}
	if err := os.Rename(tmp, p); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("jsonfile: write %s: %w", id, err)
	}
	return nil
}

// each calls fn with the contents of every record file of kind in name order.
func (s *Store) each(kind string, fn func([]byte) error) error {
	entries, err := os.ReadDir(filepath.Join(s.dir, kind))
	if err != nil {
		return fmt.Errorf("jsonfile: list %s: %w", kind, err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".json") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	for _, name := range names {
		data, err := os.ReadFile(filepath.Join(s.dir, kind, name))
		if err != nil {
			return fmt.Errorf("jsonfile: read %s: %w", name, err)
		}
		if err := fn(data); err != nil {
			return fmt.Errorf("jsonfile: decode %s: %w", name, err)
		}
	}
	return nil
}
