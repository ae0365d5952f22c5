package classifier

import (
	"strings"

	"github.com/crimson-sun/healthguard/internal/model"
)

// FallbackAnalysis is the rule-based classification used when the generator
// is unavailable or returns something unusable.
func FallbackAnalysis(inc model.Incident) model.AnalysisResult {
	load := "System resource contention or configuration issue"
	if inc.MonthEnd {
		load = "Month-end processing load may be contributing to the issue"
	}
	deploy := "No recent deployments detected"
	if d := inc.RawLog.RecentDeploys; len(d) > 0 {
		deploy = "Recent deployment may have introduced changes: " + d[0]
	}
	return model.AnalysisResult{
		Classification:      inc.Module + " " + string(inc.Severity),
		ProbableRootCauses:  []string{load, deploy},
		RelevantLogsSnippet: []string{inc.Description},
		Tags:                []string{inc.Module, strings.ToLower(string(inc.Severity))},
		PromptHash:          FallbackPromptHash,
	}
}

// FallbackPlaybook is the default three-step investigation plan. Its last
// step requires escalation, so a fallback playbook always reaches a human.
func FallbackPlaybook(inc model.Incident) model.Playbook {
	table := "relevant table"
	if inc.Module == "FI" {
		table = "BKPF"
	}
	return model.Playbook{
		Title: "Investigate " + inc.Module + " " + string(inc.Severity),
		Steps: []model.PlaybookStep{
			{
				StepID:         "1",
				Action:         "Review system logs",
				CommandOrAPI:   "Transaction SM21 or SE16 for table " + table,
				ExpectedResult: "Identify error patterns and timestamps",
				Verification:   "Log entries match incident timeline",
				Rollback:       "N/A - read only operation",
			},
			{
				StepID:         "2",
				Action:         "Check for locks and blocking processes",
				CommandOrAPI:   "Transaction SM12 or DB02",
				ExpectedResult: "No blocking locks found",
				Verification:   "System resources available",
				Rollback:       "Release locks if necessary",
			},
			{
				StepID:           "3",
				Action:           "Review recent transports",
				CommandOrAPI:     "Transaction STMS",
				ExpectedResult:   "No problematic transports identified",
				Verification:     "Transport logs clean",
				Rollback:         "Import rollback transport if needed",
				EscalateRequired: true,
			},
		},
		RequiredPermissions:  []string{"SAP_ALL", "S_ADMI_FCD"},
		EstimatedTimeMinutes: 30,
		Confidence:           0.5,
		PromptHash:           FallbackPromptHash,
	}
}
