package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/crimson-sun/healthguard/internal/audit"
	"github.com/crimson-sun/healthguard/internal/config"
	"github.com/crimson-sun/healthguard/internal/connector"
	"github.com/crimson-sun/healthguard/internal/connector/httpclient"
	"github.com/crimson-sun/healthguard/internal/engine/classifier"
	"github.com/crimson-sun/healthguard/internal/llm"
	"github.com/crimson-sun/healthguard/internal/logging"
	"github.com/crimson-sun/healthguard/internal/metrics"
	"github.com/crimson-sun/healthguard/internal/model"
	"github.com/crimson-sun/healthguard/internal/output"
	"github.com/crimson-sun/healthguard/internal/output/async"
	"github.com/crimson-sun/healthguard/internal/output/file"
	"github.com/crimson-sun/healthguard/internal/output/memory"
	"github.com/crimson-sun/healthguard/internal/output/multi"
	"github.com/crimson-sun/healthguard/internal/output/stdout"
	"github.com/crimson-sun/healthguard/internal/output/webhook"
	"github.com/crimson-sun/healthguard/internal/pipeline"
	"github.com/crimson-sun/healthguard/internal/store"
	"github.com/crimson-sun/healthguard/internal/store/jsonfile"
	memstore "github.com/crimson-sun/healthguard/internal/store/memory"

	// Register connector implementations.
	_ "github.com/crimson-sun/healthguard/internal/connector/file"
	_ "github.com/crimson-sun/healthguard/internal/connector/sandbox"
	_ "github.com/crimson-sun/healthguard/internal/connector/seed"
)

// streamMaxSize caps a buffered stream batch.
const streamMaxSize = 100

// app is the wired process state shared by the subcommands.
type app struct {
	cfg     config.Config
	logger  *zap.Logger
	metrics *metrics.Metrics
	svc     *pipeline.Service
}

// newApp loads configuration and builds the triage service. The similarity
// index is rebuilt from the store before it returns.
func newApp(ctx context.Context, configPath, logLevel string) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return nil, err
	}

	repo, err := openStore(cfg.Store)
	if err != nil {
		return nil, err
	}

	trail, err := openTrail(cfg.Audit, logger)
	if err != nil {
		return nil, err
	}

	m := metrics.New()
	svc := pipeline.New(repo, trail,
		pipeline.WithLogger(logger),
		pipeline.WithMetrics(m),
		pipeline.WithClassifier(newClassifier(cfg.LLM, logger)),
		pipeline.WithMetricsSource(pipeline.StaticMetrics(model.SystemMetrics{
			DBLatencyMS:   cfg.Engine.Metrics.DBLatencyMS,
			CPUPercent:    cfg.Engine.Metrics.CPUPercent,
			MemoryPercent: cfg.Engine.Metrics.MemoryPercent,
		})),
		pipeline.WithTopK(cfg.Engine.TopK),
		pipeline.WithIndexLimit(cfg.Engine.IndexLimit),
		pipeline.WithStreamBuffer(cfg.Engine.StreamWindow, streamMaxSize),
	)

	if err := svc.Rebuild(ctx); err != nil {
		_ = svc.Close()
		return nil, err
	}

	return &app{cfg: cfg, logger: logger, metrics: m, svc: svc}, nil
}

func openStore(cfg config.StoreConfig) (store.Repository, error) {
	switch cfg.Driver {
	case "jsonfile":
		s, err := jsonfile.New(cfg.Dir)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return memstore.New(), nil
	}
}

// openTrail builds the audit sinks. A file sink resumes the chain from the
// last record already on disk.
func openTrail(cfg config.AuditConfig, logger *zap.Logger) (*audit.Trail, error) {
	var (
		outs  []output.Output
		aopts = []audit.Option{audit.WithLogger(logger)}
	)

	if cfg.Path != "" {
		existing, err := audit.ReadFiles(file.Segments(cfg.Path)...)
		if err != nil {
			return nil, fmt.Errorf("audit: resume %s: %w", cfg.Path, err)
		}
		if n := len(existing); n > 0 {
			last := existing[n-1]
			aopts = append(aopts, audit.WithHead(last.Index, last.Hash))
		}
		var fopts []file.Option
		if cfg.MaxSize > 0 {
			fopts = append(fopts, file.WithMaxSize(cfg.MaxSize))
		}
		f, err := file.New(cfg.Path, fopts...)
		if err != nil {
			return nil, err
		}
		outs = append(outs, f)
	}

	if cfg.Stdout {
		v, err := output.ParseVerbosity(cfg.Verbosity)
		if err != nil {
			return nil, err
		}
		outs = append(outs, stdout.New(v, cfg.Pretty))
	}

	if cfg.WebhookURL != "" {
		hook := webhook.New(cfg.WebhookURL, webhook.WithLogger(logger))
		outs = append(outs, async.New(hook, async.WithLogger(logger)))
	}

	var out output.Output
	switch len(outs) {
	case 0:
		out = memory.New()
	case 1:
		out = outs[0]
	default:
		out = multi.New(outs...)
	}
	return audit.NewTrail(out, aopts...), nil
}

func newClassifier(cfg config.LLMConfig, logger *zap.Logger) *classifier.Classifier {
	opts := []classifier.Option{classifier.WithLogger(logger), classifier.WithTimeout(cfg.Timeout)}
	if cfg.APIKey == "" {
		logger.Info("no llm api key configured, using fallback analysis")
		return classifier.New(nil, opts...)
	}
	gen := llm.New(cfg.BaseURL, cfg.APIKey,
		llm.WithModel(cfg.Model),
		llm.WithRateLimit(cfg.RatePerSecond, 1),
		llm.WithHTTPOptions(httpclient.WithTimeout(cfg.Timeout)),
		llm.WithLogger(logger),
	)
	return classifier.New(gen, opts...)
}

// connector resolves the configured connector and its settings.
func (a *app) connector() (connector.Connector, connector.ConnectorConfig, error) {
	ctor, err := connector.Get(a.cfg.Connector.Provider)
	if err != nil {
		return nil, connector.ConnectorConfig{}, err
	}
	return ctor(), a.cfg.ConnectorSettings(), nil
}

func (a *app) close() error {
	err := a.svc.Close()
	_ = a.logger.Sync()
	return err
}
