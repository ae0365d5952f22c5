package model

import (
	"slices"
	"time"
)

// Severity is the normalized severity of a raw event or incident.
type Severity string

const (
	SeverityError   Severity = "ERROR"
	SeverityWarning Severity = "WARNING"
	SeverityInfo    Severity = "INFO"
)

// Valid reports whether s is one of the known severities.
func (s Severity) Valid() bool {
	switch s {
	case SeverityError, SeverityWarning, SeverityInfo:
		return true
	}
	return false
}

// RawEvent is the intermediate type produced by connectors and consumed by the normalizer.
// Its shape follows the SAP sandbox log schema.
type RawEvent struct {
	LogID          string    `json:"logId" yaml:"logId"`
	SourceSystem   string    `json:"sourceSystem" yaml:"sourceSystem"`
	Application    string    `json:"application" yaml:"application"`
	Module         string    `json:"module" yaml:"module"`
	Severity       Severity  `json:"severity" yaml:"severity"`
	Message        string    `json:"message" yaml:"message"`
	Timestamp      time.Time `json:"timestamp" yaml:"timestamp"`
	MonthEnd       bool      `json:"month_end" yaml:"month_end"`
	ChangedObjects []string  `json:"changed_objects" yaml:"changed_objects"`
	RecentDeploys  []string  `json:"recent_deploys" yaml:"recent_deploys"`
}

// Clone returns a copy of e that shares no slices with it.
func (e RawEvent) Clone() RawEvent {
	e.ChangedObjects = slices.Clone(e.ChangedObjects)
	e.RecentDeploys = slices.Clone(e.RecentDeploys)
	return e
}
