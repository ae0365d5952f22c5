package main

import (
	"encoding/json"
	"io"

	"github.com/spf13/cobra"
)

type rootFlags struct {
	configPath string
	logLevel   string
}

func newRootCmd() *cobra.Command {
	f := &rootFlags{}
	cmd := &cobra.Command{
		Use:          "healthguard",
		Short:        "SAP incident triage with similarity search, risk scoring and an audit trail",
		SilenceUsage: true,
	}
	cmd.PersistentFlags().StringVar(&f.configPath, "config", "", "path to a YAML config file (default ./healthguard.yaml)")
	cmd.PersistentFlags().StringVar(&f.logLevel, "log-level", "", "log level override: debug, info, warn, error")

	cmd.AddCommand(
		newIngestCmd(f),
		newWatchCmd(f),
		newIncidentsCmd(f),
		newAnalyzeCmd(f),
		newEscalateCmd(f),
		newAckCmd(f),
		newEscalationsCmd(f),
		newAuditCmd(f),
	)
	return cmd
}

// withApp builds the app for one command invocation and closes it afterwards.
func withApp(cmd *cobra.Command, f *rootFlags, fn func(*app) error) (err error) {
	a, err := newApp(cmd.Context(), f.configPath, f.logLevel)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := a.close(); err == nil {
			err = cerr
		}
	}()
	return fn(a)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
