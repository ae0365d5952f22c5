package healthguard

import "go.uber.org/zap"

type options struct {
	logger    *zap.Logger
	generator Generator
	topK      int
	metrics   *SystemMetrics
	outputs   []AuditOutput
}

// Option configures a HealthGuard instance.
type Option func(*options)

// WithLogger sets the logger. Default: no logging.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithGenerator sets the text generator used for classification and playbooks.
// Without one every analysis uses the deterministic fallbacks.
func WithGenerator(g Generator) Option {
	return func(o *options) { o.generator = g }
}

// WithTopK sets how many similar incidents an analysis considers. Default: 5.
func WithTopK(k int) Option {
	return func(o *options) { o.topK = k }
}

// WithStaticMetrics sets the system load used when Analyze is given none.
func WithStaticMetrics(m SystemMetrics) Option {
	return func(o *options) { o.metrics = &m }
}

// WithAuditOutput adds a destination that receives every audit record in
// addition to the in-memory copy read by AuditRecords.
func WithAuditOutput(out AuditOutput) Option {
	return func(o *options) { o.outputs = append(o.outputs, out) }
}
