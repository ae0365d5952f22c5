package model

import "time"

// AuditRecord is the immutable evidence entry for one pipeline stage invocation.
// Index, PrevHash and Hash chain records together so tampering is detectable.
type AuditRecord struct {
	ID            string    `json:"audit_id"`
	ToolName      string    `json:"tool_name"`
	IncidentID    string    `json:"incident_id,omitempty"`
	InputHash     string    `json:"input_hash"`
	OutputSummary string    `json:"output_summary"`
	FullOutput    string    `json:"full_output"`
	Timestamp     time.Time `json:"timestamp"`
	Index         int64     `json:"index"`
	PrevHash      string    `json:"prev_hash"`
	Hash          string    `json:"hash"`
}

// Decision is the terminal branch chosen for an analyzed incident.
type Decision string

const (
	DecisionProceed  Decision = "PROCEED_WITH_PLAYBOOK"
	DecisionEscalate Decision = "ESCALATE_TO_HUMAN"
)

// ToolCall links an output section to the audit record that produced it.
type ToolCall struct {
	Tool      string `json:"tool"`
	AuditID   string `json:"audit_id"`
	InputHash string `json:"input_hash"`
}

// AuditTrail is the audit section of an analysis output.
type AuditTrail struct {
	ToolCalls    []ToolCall   `json:"tool_calls"`
	PromptHashes PromptHashes `json:"prompt_hashes"`
}

// PromptHashes identifies the prompts used for the generated sections.
type PromptHashes struct {
	Analysis string `json:"analysis"`
	Playbook string `json:"playbook"`
}

// EscalationRef is the escalation summary embedded in an analysis output.
type EscalationRef struct {
	ID           string `json:"escalation_id"`
	Reason       string `json:"reason"`
	RequiredRole string `json:"required_role"`
}

// AnalysisOutput is the complete, self-consistent result of one triage run.
type AnalysisOutput struct {
	IncidentID       string            `json:"incident_id"`
	AgentVersion     string            `json:"agent_version"`
	Analysis         AnalysisResult    `json:"analysis"`
	SimilarIncidents []SimilarIncident `json:"similar_incidents"`
	Risk             RiskAssessment    `json:"risk"`
	Playbook         Playbook          `json:"playbook"`
	Decision         Decision          `json:"decision"`
	Escalation       *EscalationRef    `json:"escalation,omitempty"`
	AuditTrail       AuditTrail        `json:"audit_trail"`
	AuditDegraded    bool              `json:"audit_degraded,omitempty"`
}
