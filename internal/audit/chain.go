package audit

import (
	"fmt"
	"time"

	"github.com/crimson-sun/healthguard/internal/model"
)

// body is the hashed content of a record. Chain fields are excluded.
type body struct {
	ID            string    `json:"audit_id"`
	ToolName      string    `json:"tool_name"`
	IncidentID    string    `json:"incident_id"`
	InputHash     string    `json:"input_hash"`
	OutputSummary string    `json:"output_summary"`
	FullOutput    string    `json:"full_output"`
	Timestamp     time.Time `json:"timestamp"`
}

// RecordHash computes the chain hash of rec from its PrevHash, Index and content.
func RecordHash(rec model.AuditRecord) (string, error) {
	payload, err := StableJSON(body{
		ID:            rec.ID,
		ToolName:      rec.ToolName,
		IncidentID:    rec.IncidentID,
		InputHash:     rec.InputHash,
		OutputSummary: rec.OutputSummary,
		FullOutput:    rec.FullOutput,
		Timestamp:     rec.Timestamp,
	})
	if err != nil {
		return "", err
	}
	return hashBytes([]byte(rec.PrevHash), []byte(fmt.Sprintf("|%d|", rec.Index)), payload), nil
}
