package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/crimson-sun/healthguard/internal/audit"
	"github.com/crimson-sun/healthguard/internal/config"
	"github.com/crimson-sun/healthguard/internal/connector"
	"github.com/crimson-sun/healthguard/internal/model"
	"github.com/crimson-sun/healthguard/internal/output/file"
	"github.com/crimson-sun/healthguard/internal/pipeline"
	"github.com/crimson-sun/healthguard/internal/store"
)

func newIngestCmd(f *rootFlags) *cobra.Command {
	var params connector.QueryParams
	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Pull events from the configured connector and store them as incidents",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, f, func(a *app) error {
				conn, cfg, err := a.connector()
				if err != nil {
					return err
				}
				incs, err := a.svc.Pull(cmd.Context(), conn, cfg, params)
				for _, inc := range incs {
					fmt.Fprintln(cmd.OutOrStdout(), inc.ID)
				}
				return err
			})
		},
	}
	cmd.Flags().StringVar(&params.Module, "module", "", "only events of this SAP module")
	cmd.Flags().StringVar((*string)(&params.Severity), "severity", "", "only events of this severity")
	cmd.Flags().IntVar(&params.Limit, "limit", 0, "maximum number of events")
	return cmd
}

func newWatchCmd(f *rootFlags) *cobra.Command {
	var metricsAddr string
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Stream events from the configured connector until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, f, func(a *app) error {
				conn, cfg, err := a.connector()
				if err != nil {
					return err
				}
				ctx := cmd.Context()
				if metricsAddr != "" {
					stop := serveMetrics(ctx, a, metricsAddr)
					defer stop()
				}
				a.logger.Info("watching", zap.String("connector", cfg.Provider))
				err = a.svc.Stream(ctx, conn, cfg)
				if errors.Is(err, context.Canceled) {
					return nil
				}
				return err
			})
		},
	}
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address, e.g. :9090")
	return cmd
}

// serveMetrics exposes /metrics in the background and returns a shutdown func.
func serveMetrics(ctx context.Context, a *app, addr string) func() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", a.metrics.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("metrics server failed", zap.Error(err))
		}
	}()
	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}
}

func newIncidentsCmd(f *rootFlags) *cobra.Command {
	var opts store.ListOptions
	cmd := &cobra.Command{
		Use:   "incidents",
		Short: "List stored incidents, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, f, func(a *app) error {
				incs, err := a.svc.ListIncidents(cmd.Context(), opts)
				if err != nil {
					return err
				}
				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "ID\tMODULE\tSEVERITY\tSTATUS\tTITLE")
				for _, inc := range incs {
					fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", inc.ID, inc.Module, inc.Severity, inc.Status, inc.Title)
				}
				return tw.Flush()
			})
		},
	}
	cmd.Flags().StringVar(&opts.Module, "module", "", "filter by SAP module")
	cmd.Flags().StringVar((*string)(&opts.Severity), "severity", "", "filter by severity")
	cmd.Flags().IntVar(&opts.Limit, "limit", store.DefaultLimit, "maximum number of incidents")
	return cmd
}

func newAnalyzeCmd(f *rootFlags) *cobra.Command {
	var m model.SystemMetrics
	cmd := &cobra.Command{
		Use:   "analyze <incident-id>",
		Short: "Run the triage flow for an incident and print the analysis",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, f, func(a *app) error {
				var live *model.SystemMetrics
				flags := cmd.Flags()
				if flags.Changed("db-latency") || flags.Changed("cpu") || flags.Changed("memory") {
					live = &m
				}
				out, err := a.svc.Analyze(cmd.Context(), args[0], live)
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), out)
			})
		},
	}
	cmd.Flags().Float64Var(&m.DBLatencyMS, "db-latency", 0, "current database latency in ms")
	cmd.Flags().Float64Var(&m.CPUPercent, "cpu", 0, "current CPU utilization percent")
	cmd.Flags().Float64Var(&m.MemoryPercent, "memory", 0, "current memory utilization percent")
	return cmd
}

func newEscalateCmd(f *rootFlags) *cobra.Command {
	var req pipeline.EscalateRequest
	cmd := &cobra.Command{
		Use:   "escalate <incident-id>",
		Short: "Open a manual escalation for an incident",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req.IncidentID = args[0]
			return withApp(cmd, f, func(a *app) error {
				res, err := a.svc.Escalate(cmd.Context(), req)
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), res)
			})
		},
	}
	cmd.Flags().StringVar(&req.Reason, "reason", "", "why a human is needed")
	cmd.Flags().StringVar(&req.RequiredRole, "role", "", "role that must handle the escalation")
	cmd.Flags().StringVar(&req.Requester, "requester", "", "who is asking (default api_user)")
	return cmd
}

func newAckCmd(f *rootFlags) *cobra.Command {
	var by string
	cmd := &cobra.Command{
		Use:   "ack <escalation-id>",
		Short: "Acknowledge a pending escalation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, f, func(a *app) error {
				res, err := a.svc.Acknowledge(cmd.Context(), args[0], by)
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), res)
			})
		},
	}
	cmd.Flags().StringVar(&by, "by", "", "acknowledging user (default admin)")
	return cmd
}

func newEscalationsCmd(f *rootFlags) *cobra.Command {
	var filter store.EscalationFilter
	var status string
	cmd := &cobra.Command{
		Use:   "escalations",
		Short: "List escalation records",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			filter.Status = model.EscalationStatus(strings.ToLower(status))
			return withApp(cmd, f, func(a *app) error {
				recs, err := a.svc.ListEscalations(cmd.Context(), filter)
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), recs)
			})
		},
	}
	cmd.Flags().StringVar(&filter.IncidentID, "incident", "", "only escalations of this incident")
	cmd.Flags().StringVar(&status, "status", "", "only escalations in this status: pending, acknowledged")
	return cmd
}

func newAuditCmd(f *rootFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Inspect the audit trail",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "verify [path]",
		Short: "Recompute the hash chain of an audit file and its rotated segments",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := auditPath(f, args)
			if err != nil {
				return err
			}
			segs := file.Segments(path)
			if len(segs) == 0 {
				return fmt.Errorf("audit: no audit file at %s", path)
			}
			report := audit.VerifyFiles(segs...)
			if err := writeJSON(cmd.OutOrStdout(), report); err != nil {
				return err
			}
			if !report.OK {
				return fmt.Errorf("audit: chain verification failed with %d errors", len(report.Errors))
			}
			return nil
		},
	})
	return cmd
}

// auditPath returns the explicit path argument or the configured audit path.
// It does not build the service, so verifying never appends to the trail.
func auditPath(f *rootFlags, args []string) (string, error) {
	if len(args) == 1 {
		return args[0], nil
	}
	cfg, err := config.Load(f.configPath)
	if err != nil {
		return "", err
	}
	if cfg.Audit.Path == "" {
		return "", errors.New("audit: no path given and audit.path is not configured")
	}
	return cfg.Audit.Path, nil
}
