// Package audit keeps the append-only, hash-chained evidence log of every
// triage stage. A record's input hash is a correlation key only; nothing is
// ever skipped or served from cache because a hash was seen before.
package audit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/crimson-sun/healthguard/internal/model"
	"github.com/crimson-sun/healthguard/internal/output"
)

// Tool names recorded in the audit log.
const (
	ToolAnalyzeIncident       = "analyze_incident"
	ToolFindSimilarIncidents  = "find_similar_incidents"
	ToolPredictRisk           = "predict_risk"
	ToolSuggestPlaybook       = "suggest_playbook"
	ToolEscalateToHuman       = "escalate_to_human"
	ToolAcknowledgeEscalation = "acknowledge_escalation"
)

// FallbackPrefix marks summaries of stages served by the deterministic fallback.
const FallbackPrefix = "FALLBACK: "

// ErrSink is wrapped by Append when the record could not be written to the sink.
var ErrSink = errors.New("audit: sink write failed")

// Entry is one stage invocation to be recorded.
type Entry struct {
	Tool       string
	IncidentID string
	Input      any
	Summary    string
	Output     any
}

// Option configures a Trail.
type Option func(*Trail)

// WithLogger sets the logger used for sink failures.
func WithLogger(l *zap.Logger) Option {
	return func(t *Trail) { t.logger = l }
}

// WithClock overrides the record timestamp source.
func WithClock(now func() time.Time) Option {
	return func(t *Trail) { t.now = now }
}

// WithIDFunc overrides audit id generation.
func WithIDFunc(f func() string) Option {
	return func(t *Trail) { t.newID = f }
}

// WithHead continues an existing chain whose last record has the given index and hash.
func WithHead(index int64, hash string) Option {
	return func(t *Trail) {
		t.lastIndex = index
		t.lastHash = hash
	}
}

// Trail appends chained records to a sink. Safe for concurrent use; the
// chain is advanced under a mutex so records get strictly increasing indices.
type Trail struct {
	out    output.Output
	logger *zap.Logger
	now    func() time.Time
	newID  func() string

	mu        sync.Mutex
	lastIndex int64
	lastHash  string
	failures  int64
}

// NewTrail creates a trail writing to out.
func NewTrail(out output.Output, opts ...Option) *Trail {
	t := &Trail{
		out:    out,
		logger: zap.NewNop(),
		now:    func() time.Time { return time.Now().UTC() },
		newID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Append records e. The returned record always carries the audit id and
// input hash. The chain advances even when the sink rejects the record, so a
// lost record shows up as a gap on verification. Sink errors wrap ErrSink;
// callers continue and flag the result degraded.
func (t *Trail) Append(ctx context.Context, e Entry) (model.AuditRecord, error) {
	rec := model.AuditRecord{
		ID:            t.newID(),
		ToolName:      e.Tool,
		IncidentID:    e.IncidentID,
		OutputSummary: e.Summary,
		Timestamp:     t.now(),
	}

	inputHash, err := InputHash(e.Input)
	if err != nil {
		return rec, fmt.Errorf("audit: %s: hash input: %w", e.Tool, err)
	}
	rec.InputHash = inputHash

	full, err := json.Marshal(e.Output)
	if err != nil {
		return rec, fmt.Errorf("audit: %s: marshal output: %w", e.Tool, err)
	}
	rec.FullOutput = string(full)

	t.mu.Lock()
	defer t.mu.Unlock()

	rec.Index = t.lastIndex + 1
	rec.PrevHash = t.lastHash
	rec.Hash, err = RecordHash(rec)
	if err != nil {
		return rec, fmt.Errorf("audit: %s: hash record: %w", e.Tool, err)
	}

	t.lastIndex = rec.Index
	t.lastHash = rec.Hash

	if err := t.out.Write(ctx, rec); err != nil {
		t.failures++
		t.logger.Error("audit record not persisted",
			zap.String("tool", e.Tool),
			zap.String("audit_id", rec.ID),
			zap.String("incident_id", e.IncidentID),
			zap.Error(err),
		)
		return rec, fmt.Errorf("%w: %s: %w", ErrSink, e.Tool, err)
	}
	return rec, nil
}

// Head returns the index and hash of the last appended record.
func (t *Trail) Head() (int64, string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.lastIndex, t.lastHash
}

// Failures returns how many records the sink rejected.
func (t *Trail) Failures() int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.failures
}

// Close closes the underlying sink.
func (t *Trail) Close() error {
	return t.out.Close()
}
