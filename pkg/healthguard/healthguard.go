package healthguard

import (
	"context"

	"github.com/crimson-sun/healthguard/internal/audit"
	"github.com/crimson-sun/healthguard/internal/engine/classifier"
	"github.com/crimson-sun/healthguard/internal/engine/taxonomy"
	"github.com/crimson-sun/healthguard/internal/llm"
	"github.com/crimson-sun/healthguard/internal/output"
	"github.com/crimson-sun/healthguard/internal/output/memory"
	"github.com/crimson-sun/healthguard/internal/output/multi"
	"github.com/crimson-sun/healthguard/internal/pipeline"
	"github.com/crimson-sun/healthguard/internal/store"
	memstore "github.com/crimson-sun/healthguard/internal/store/memory"
)

// Errors returned by HealthGuard methods. Test with errors.Is.
var (
	ErrNotFound            = pipeline.ErrNotFound
	ErrAlreadyAcknowledged = pipeline.ErrAlreadyAcknowledged
	ErrInternal            = pipeline.ErrInternal
)

// ValidationError reports the missing or malformed fields of a request.
type ValidationError = pipeline.ValidationError

// EscalateRequest asks for human intervention on an incident.
type EscalateRequest = pipeline.EscalateRequest

// EscalateResult identifies a created escalation and its audit record.
type EscalateResult = pipeline.EscalateResult

// AckResult confirms an acknowledgment.
type AckResult = pipeline.AckResult

// VerifyReport summarizes audit chain verification.
type VerifyReport = audit.VerifyReport

// HealthGuard is an in-memory incident triage service.
type HealthGuard struct {
	svc *pipeline.Service
	mem *memory.Output
}

// New creates a HealthGuard instance.
func New(opts ...Option) *HealthGuard {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	mem := memory.New()
	var out output.Output = mem
	if len(o.outputs) > 0 {
		outs := []output.Output{mem}
		for _, extra := range o.outputs {
			outs = append(outs, extra)
		}
		out = multi.New(outs...)
	}

	var (
		popts []pipeline.Option
		aopts []audit.Option
		copts []classifier.Option
	)
	if o.logger != nil {
		popts = append(popts, pipeline.WithLogger(o.logger))
		aopts = append(aopts, audit.WithLogger(o.logger))
		copts = append(copts, classifier.WithLogger(o.logger))
	}
	var gen llm.Generator = o.generator
	popts = append(popts, pipeline.WithClassifier(classifier.New(gen, copts...)))
	if o.topK > 0 {
		popts = append(popts, pipeline.WithTopK(o.topK))
	}
	if o.metrics != nil {
		popts = append(popts, pipeline.WithMetricsSource(pipeline.StaticMetrics(*o.metrics)))
	}

	return &HealthGuard{
		svc: pipeline.New(memstore.New(), audit.NewTrail(out, aopts...), popts...),
		mem: mem,
	}
}

// Ingest normalizes and stores one raw event. Malformed events return a *ValidationError.
func (h *HealthGuard) Ingest(ctx context.Context, ev RawEvent) (Incident, error) {
	return h.svc.Ingest(ctx, ev)
}

// IngestBatch ingests events in order and stops at the first malformed one.
func (h *HealthGuard) IngestBatch(ctx context.Context, evs []RawEvent) ([]Incident, error) {
	return h.svc.IngestBatch(ctx, evs)
}

// Analyze runs the full triage flow for a stored incident. A nil m uses the
// configured static metrics.
func (h *HealthGuard) Analyze(ctx context.Context, incidentID string, m *SystemMetrics) (AnalysisOutput, error) {
	return h.svc.Analyze(ctx, incidentID, m)
}

// Escalate opens a manual escalation for an incident.
func (h *HealthGuard) Escalate(ctx context.Context, req EscalateRequest) (EscalateResult, error) {
	return h.svc.Escalate(ctx, req)
}

// Acknowledge marks a pending escalation as handled. An empty by defaults to "admin".
func (h *HealthGuard) Acknowledge(ctx context.Context, escalationID, by string) (AckResult, error) {
	return h.svc.Acknowledge(ctx, escalationID, by)
}

// Incident returns a stored incident.
func (h *HealthGuard) Incident(ctx context.Context, id string) (Incident, error) {
	return h.svc.GetIncident(ctx, id)
}

// Incidents lists stored incidents, newest first. A limit of zero uses the store default of 50.
func (h *HealthGuard) Incidents(ctx context.Context, limit int) ([]Incident, error) {
	return h.svc.ListIncidents(ctx, store.ListOptions{Limit: limit})
}

// Escalations lists escalations for an incident, or all when incidentID is empty.
func (h *HealthGuard) Escalations(ctx context.Context, incidentID string) ([]EscalationRecord, error) {
	return h.svc.ListEscalations(ctx, store.EscalationFilter{IncidentID: incidentID})
}

// AuditRecords returns the audit records for an incident in append order,
// or the whole trail when incidentID is empty.
func (h *HealthGuard) AuditRecords(incidentID string) []AuditRecord {
	if incidentID == "" {
		return h.mem.Records()
	}
	return h.mem.ByIncident(incidentID)
}

// VerifyAudit recomputes the hash chain of every record written so far.
func (h *HealthGuard) VerifyAudit() VerifyReport {
	return audit.Verify(h.mem.Records())
}

// Modules returns the SAP module catalogue used for tagging.
func (h *HealthGuard) Modules() []Module {
	nodes := taxonomy.DefaultModules()
	mods := make([]Module, len(nodes))
	for i, n := range nodes {
		mods[i] = Module{Code: n.Code, Name: n.Name, Keywords: append([]string(nil), n.Keywords...)}
	}
	return mods
}

// Close flushes and closes the audit outputs.
func (h *HealthGuard) Close() error {
	return h.svc.Close()
}
