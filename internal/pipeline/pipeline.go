// Package pipeline runs the triage flow: ingest raw events as incidents,
// analyze them, and manage the resulting escalations.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/crimson-sun/healthguard/internal/audit"
	"github.com/crimson-sun/healthguard/internal/connector"
	"github.com/crimson-sun/healthguard/internal/engine/classifier"
	"github.com/crimson-sun/healthguard/internal/engine/normalize"
	"github.com/crimson-sun/healthguard/internal/engine/similarity"
	"github.com/crimson-sun/healthguard/internal/engine/taxonomy"
	"github.com/crimson-sun/healthguard/internal/metrics"
	"github.com/crimson-sun/healthguard/internal/model"
	"github.com/crimson-sun/healthguard/internal/store"
)

// AgentVersion is reported on every analysis output.
const AgentVersion = "1.0.0"

const (
	DefaultTopK       = 5
	DefaultIndexLimit = 1000
)

// Option configures a Service.
type Option func(*Service)

// WithClassifier sets the classification and playbook generator. The default
// has no generator and always uses the rule-based fallback.
func WithClassifier(c *classifier.Classifier) Option {
	return func(s *Service) { s.classifier = c }
}

// WithIndex sets the similarity index.
func WithIndex(ix *similarity.Index) Option {
	return func(s *Service) { s.index = ix }
}

// WithNormalizer sets the raw event normalizer.
func WithNormalizer(n *normalize.Normalizer) Option {
	return func(s *Service) { s.normalizer = n }
}

// WithMetricsSource sets where system load comes from when Analyze gets none.
func WithMetricsSource(m MetricsSource) Option {
	return func(s *Service) { s.source = m }
}

// WithMetrics sets the Prometheus collectors.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithLogger(l *zap.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// WithTopK sets how many similar incidents Analyze looks up.
func WithTopK(k int) Option {
	return func(s *Service) { s.topK = k }
}

// WithIndexLimit bounds how many incidents Rebuild loads into the index.
func WithIndexLimit(n int) Option {
	return func(s *Service) { s.indexLimit = n }
}

// WithClock overrides the timestamp source for escalations and acknowledgments.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithEscalationIDFunc overrides escalation id generation.
func WithEscalationIDFunc(f func() string) Option {
	return func(s *Service) { s.newEscalationID = f }
}

// WithStreamBuffer batches streamed events for window (or until maxSize
// events are pending) and drops repeated log ids within a batch.
// A zero window ingests every event as it arrives.
func WithStreamBuffer(window time.Duration, maxSize int) Option {
	return func(s *Service) {
		s.streamWindow = window
		s.streamMaxSize = maxSize
	}
}

// Service is the triage API. Safe for concurrent use.
type Service struct {
	repo       store.Repository
	trail      *audit.Trail
	index      *similarity.Index
	normalizer *normalize.Normalizer
	classifier *classifier.Classifier
	source     MetricsSource
	metrics    *metrics.Metrics
	logger     *zap.Logger

	topK            int
	indexLimit      int
	now             func() time.Time
	newEscalationID func() string

	streamWindow  time.Duration
	streamMaxSize int

	// escMu serializes escalation state changes so an acknowledgment is applied once.
	escMu sync.Mutex
}

// New creates a Service persisting to repo and auditing to trail.
func New(repo store.Repository, trail *audit.Trail, opts ...Option) *Service {
	s := &Service{
		repo:            repo,
		trail:           trail,
		source:          DefaultStaticMetrics,
		topK:            DefaultTopK,
		indexLimit:      DefaultIndexLimit,
		now:             func() time.Time { return time.Now().UTC() },
		newEscalationID: NewEscalationID,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.index == nil {
		s.index = similarity.New()
	}
	if s.normalizer == nil {
		s.normalizer = normalize.New(taxonomy.New(taxonomy.DefaultModules()))
	}
	if s.classifier == nil {
		s.classifier = classifier.New(nil, classifier.WithLogger(s.logger))
	}
	return s
}

// NewEscalationID returns an id of the form ESC-XXXXXXXX.
func NewEscalationID() string {
	return "ESC-" + strings.ToUpper(uuid.NewString()[:8])
}

// Ingest normalizes raw, stores the incident and indexes its searchable text.
// Malformed events return a *ValidationError.
func (s *Service) Ingest(ctx context.Context, raw model.RawEvent) (model.Incident, error) {
	inc, err := s.normalizer.Normalize(raw)
	if err != nil {
		var fe *normalize.FieldError
		if errors.As(err, &fe) {
			return model.Incident{}, &ValidationError{Fields: []string{fe.Field}, Message: fe.Reason}
		}
		return model.Incident{}, fmt.Errorf("pipeline: ingest: %w", err)
	}
	if err := s.repo.Put(ctx, inc); err != nil {
		return model.Incident{}, fmt.Errorf("pipeline: ingest %s: %w", inc.ID, err)
	}
	s.index.AddDocument(inc.ID, normalize.SearchableText(inc))
	s.metrics.IncidentIngested()
	s.metrics.IndexSize(s.index.Len())
	return inc, nil
}

// IngestBatch ingests raws in order and stops at the first failure, returning
// the incidents created so far.
func (s *Service) IngestBatch(ctx context.Context, raws []model.RawEvent) ([]model.Incident, error) {
	out := make([]model.Incident, 0, len(raws))
	for i, raw := range raws {
		inc, err := s.Ingest(ctx, raw)
		if err != nil {
			return out, fmt.Errorf("pipeline: batch event %d: %w", i, err)
		}
		out = append(out, inc)
	}
	return out, nil
}

// Pull runs conn in query mode and ingests the result.
func (s *Service) Pull(ctx context.Context, conn connector.Connector, cfg connector.ConnectorConfig, params connector.QueryParams) ([]model.Incident, error) {
	raws, err := conn.Query(ctx, cfg, params)
	if err != nil {
		return nil, fmt.Errorf("pipeline: pull: %w", err)
	}
	return s.IngestBatch(ctx, raws)
}

// Stream runs conn in streaming mode, ingesting events until ctx is done or
// the connector closes its channel. Malformed events are logged and skipped.
func (s *Service) Stream(ctx context.Context, conn connector.Connector, cfg connector.ConnectorConfig) error {
	ch, err := conn.Stream(ctx, cfg)
	if err != nil {
		return fmt.Errorf("pipeline: stream: %w", err)
	}
	if s.streamWindow <= 0 {
		return s.streamDirect(ctx, ch)
	}
	return s.streamBuffered(ctx, ch)
}

func (s *Service) streamDirect(ctx context.Context, ch <-chan model.RawEvent) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case raw, ok := <-ch:
			if !ok {
				return nil
			}
			if err := s.ingestStreamed(ctx, raw); err != nil {
				return err
			}
		}
	}
}

func (s *Service) streamBuffered(ctx context.Context, ch <-chan model.RawEvent) error {
	buf := newStreamBuffer(s.streamWindow, s.streamMaxSize)
	for {
		select {
		case <-ctx.Done():
			// Pending events are ingested with a fresh context so a shutdown
			// does not lose what was already received.
			if err := s.ingestAll(context.WithoutCancel(ctx), buf.drain()); err != nil {
				return err
			}
			return ctx.Err()
		case raw, ok := <-ch:
			if !ok {
				return s.ingestAll(ctx, buf.drain())
			}
			if buf.add(raw) {
				if err := s.ingestAll(ctx, buf.drain()); err != nil {
					return err
				}
			}
		case <-buf.flushCh():
			if err := s.ingestAll(ctx, buf.drain()); err != nil {
				return err
			}
		}
	}
}

func (s *Service) ingestAll(ctx context.Context, raws []model.RawEvent) error {
	for _, raw := range raws {
		if err := s.ingestStreamed(ctx, raw); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) ingestStreamed(ctx context.Context, raw model.RawEvent) error {
	_, err := s.Ingest(ctx, raw)
	var ve *ValidationError
	if errors.As(err, &ve) {
		s.logger.Warn("skipping malformed event", zap.String("log_id", raw.LogID), zap.Error(err))
		return nil
	}
	return err
}

// Rebuild reloads the similarity index from the repository.
func (s *Service) Rebuild(ctx context.Context) error {
	incs, err := s.repo.List(ctx, store.ListOptions{Limit: s.indexLimit})
	if err != nil {
		return fmt.Errorf("pipeline: rebuild: %w", err)
	}
	docs := make([]similarity.Document, len(incs))
	for i, inc := range incs {
		docs[i] = similarity.Document{ID: inc.ID, Text: normalize.SearchableText(inc)}
	}
	s.index.Rebuild(docs)
	s.metrics.IndexSize(s.index.Len())
	s.logger.Info("similarity index rebuilt", zap.Int("documents", len(docs)))
	return nil
}

// GetIncident returns the stored incident.
func (s *Service) GetIncident(ctx context.Context, id string) (model.Incident, error) {
	inc, err := s.repo.Get(ctx, id)
	if err != nil {
		return model.Incident{}, fmt.Errorf("pipeline: get incident: %w", err)
	}
	return inc, nil
}

// ListIncidents returns incidents newest first.
func (s *Service) ListIncidents(ctx context.Context, opts store.ListOptions) ([]model.Incident, error) {
	incs, err := s.repo.List(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("pipeline: list incidents: %w", err)
	}
	return incs, nil
}

// ListEscalations returns escalation records newest first.
func (s *Service) ListEscalations(ctx context.Context, f store.EscalationFilter) ([]model.EscalationRecord, error) {
	recs, err := s.repo.ListEscalations(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("pipeline: list escalations: %w", err)
	}
	return recs, nil
}

// Index exposes the similarity index, for diagnostics.
func (s *Service) Index() *similarity.Index { return s.index }

// Close closes the audit trail's sink.
func (s *Service) Close() error {
	return s.trail.Close()
}
