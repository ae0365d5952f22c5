package model

import (
	"slices"
	"time"
)

// IncidentStatus is the lifecycle status stored on an incident.
type IncidentStatus string

const (
	StatusOpen      IncidentStatus = "open"
	StatusAnalyzing IncidentStatus = "analyzing"
	StatusResolved  IncidentStatus = "resolved"
	StatusEscalated IncidentStatus = "escalated"
)

// Incident is the normalized internal representation of one raw event.
// Status is the only field changed after creation.
type Incident struct {
	ID          string         `json:"incident_id"`
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Module      string         `json:"module"`
	Severity    Severity       `json:"severity"`
	Timestamp   time.Time      `json:"timestamp"`
	MonthEnd    bool           `json:"month_end"`
	RawLog      RawEvent       `json:"raw_log"`
	Tags        []string       `json:"tags,omitempty"`
	Status      IncidentStatus `json:"status"`
	CreatedAt   time.Time      `json:"created_at"`
}

// Clone returns a copy of inc that shares no slices with it.
func (inc Incident) Clone() Incident {
	inc.RawLog = inc.RawLog.Clone()
	inc.Tags = slices.Clone(inc.Tags)
	return inc
}

// SystemMetrics is a point-in-time snapshot of the live system load.
type SystemMetrics struct {
	DBLatencyMS       float64 `json:"db_latency_ms"`
	CPUPercent        float64 `json:"cpu_percent"`
	MemoryPercent     float64 `json:"memory_percent"`
	ActiveUsers       int     `json:"active_users,omitempty"`
	ActiveConnections int     `json:"active_connections,omitempty"`
}
