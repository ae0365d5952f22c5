package model

// RiskLevel is the discrete bucket of a normalized risk score.
type RiskLevel string

const (
	RiskLow    RiskLevel = "LOW"
	RiskMedium RiskLevel = "MEDIUM"
	RiskHigh   RiskLevel = "HIGH"
)

// AnalysisResult is the classification of one incident.
type AnalysisResult struct {
	Classification      string   `json:"classification"`
	ProbableRootCauses  []string `json:"probable_root_causes"`
	RelevantLogsSnippet []string `json:"relevant_logs_snippet"`
	Tags                []string `json:"tags"`
	PromptHash          string   `json:"prompt_hash"`
}

// SimilarIncident is one nearest neighbour returned by the similarity search.
type SimilarIncident struct {
	IncidentID      string  `json:"incident_id"`
	SimilarityScore float64 `json:"similarity_score"`
	Title           string  `json:"title,omitempty"`
	Resolution      string  `json:"resolution,omitempty"`
	MonthEndFlag    bool    `json:"month_end_flag,omitempty"`
}

// RiskAssessment is the explainable output of the risk scorer.
type RiskAssessment struct {
	Score               float64   `json:"risk_score"`
	Level               RiskLevel `json:"risk_level"`
	ContributingFactors []string  `json:"contributing_factors"`
	PreventiveActions   []string  `json:"preventive_actions"`
	RequiresEscalation  bool      `json:"requires_escalation"`
}

// PlaybookStep is one remediation step.
type PlaybookStep struct {
	StepID           string `json:"step_id"`
	Action           string `json:"action"`
	CommandOrAPI     string `json:"command_or_API"`
	ExpectedResult   string `json:"expected_result"`
	Verification     string `json:"verification"`
	Rollback         string `json:"rollback"`
	EscalateRequired bool   `json:"escalate_required,omitempty"`
}

// Playbook is an ordered remediation plan.
type Playbook struct {
	Title                string         `json:"title"`
	Steps                []PlaybookStep `json:"steps"`
	RequiredPermissions  []string       `json:"required_permissions"`
	EstimatedTimeMinutes int            `json:"estimated_time_minutes"`
	Confidence           float64        `json:"confidence"`
	PromptHash           string         `json:"prompt_hash"`
}

// RequiresEscalation reports whether any step must be performed by a human.
func (p Playbook) RequiresEscalation() bool {
	for _, s := range p.Steps {
		if s.EscalateRequired {
			return true
		}
	}
	return false
}
