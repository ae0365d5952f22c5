package pipeline

import (
	"context"

	"github.com/crimson-sun/healthguard/internal/model"
)

// MetricsSource supplies the system load an analysis is scored against when
// the caller provides none.
type MetricsSource interface {
	Current(ctx context.Context) model.SystemMetrics
}

// StaticMetrics is a MetricsSource that always reports the same snapshot.
type StaticMetrics model.SystemMetrics

func (s StaticMetrics) Current(context.Context) model.SystemMetrics {
	return model.SystemMetrics(s)
}

// DefaultStaticMetrics is a nominal load that fires neither the latency nor the CPU rule.
var DefaultStaticMetrics = StaticMetrics{
	DBLatencyMS:   120,
	CPUPercent:    45,
	MemoryPercent: 60,
}
