package healthguard

import (
	"context"

	"github.com/crimson-sun/healthguard/internal/model"
)

// Public aliases of the triage data model.
type (
	RawEvent         = model.RawEvent
	Incident         = model.Incident
	Severity         = model.Severity
	SystemMetrics    = model.SystemMetrics
	AnalysisOutput   = model.AnalysisOutput
	EscalationRecord = model.EscalationRecord
	AuditRecord      = model.AuditRecord
	Decision         = model.Decision
)

const (
	SeverityError   = model.SeverityError
	SeverityWarning = model.SeverityWarning
	SeverityInfo    = model.SeverityInfo

	DecisionProceed  = model.DecisionProceed
	DecisionEscalate = model.DecisionEscalate
)

// Generator produces a completion for a system prompt and user content.
type Generator interface {
	Generate(ctx context.Context, system, user string) (string, error)
}

// AuditOutput receives audit records in append order.
type AuditOutput interface {
	Write(ctx context.Context, rec AuditRecord) error
	Close() error
}

// Module describes one SAP module known to the tagger.
type Module struct {
	Code     string
	Name     string
	Keywords []string
}
