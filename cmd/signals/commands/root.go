package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"social-signals/lib/chrono"
	"social-signals/lib/restyutil"
	"social-signals/lib/table"
	"social-signals/lib/telemetry"

	"github.com/spf13/cobra"
)

var (
	configPath string
	formatName string
	verbose    bool
	dumpHTTP   string
)

// set up by the root command before any subcommand runs
var (
	cfg       Config
	format    table.Format
	tel       telemetry.API
	clock     chrono.TimeAPI = chrono.NewStandardTime()
	providers telemetry.Telemetry
)

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&configPath, "config", "", "The config file to read (defaults to the nearest signals.json5).")
	flags.StringVarP(&formatName, "format", "f", string(table.FormatTable), "The output format: table, csv, markdown or json.")
	flags.BoolVarP(&verbose, "verbose", "v", false, "Log debug information.")
	flags.StringVar(&dumpHTTP, "dump-http", "", "A directory to write every HTTP request and response to.")
}

var rootCmd = &cobra.Command{
	Use:           "signals",
	Short:         "signals is a CLI for collecting social signals from news, weather, encyclopedia and social media sources.",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		telemetry.InitSlog(verbose)

		var err error
		format, err = table.ParseFormat(formatName)
		if err != nil {
			return err
		}
		cfg, err = loadConfig(configPath, os.Getenv)
		if err != nil {
			return fmt.Errorf("read config: %w", err)
		}

		providers, err = telemetry.Setup(cmd.Context(), "signals", cfg.Telemetry)
		if err != nil {
			return fmt.Errorf("setup telemetry: %w", err)
		}
		tel = telemetry.NewSlogAPI(nil)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		err := providers.Shutdown(context.Background())
		if err != nil {
			slog.Warn("failed to shutdown telemetry", "err", err)
		}
	},
}

// httpOutput returns where the transcripts of a source go, nil unless --dump-http is set.
func httpOutput(source string) restyutil.InstrumentOutput {
	if dumpHTTP == "" {
		return nil
	}
	out, err := restyutil.NewFilesystemOutput(filepath.Join(dumpHTTP, source))
	if err != nil {
		slog.Warn("failed to create http dump directory, transcripts are disabled", "err", err)
		return nil
	}
	return out
}

func render(cmd *cobra.Command, t *table.Table) error {
	return table.Render(cmd.OutOrStdout(), t, format)
}

func ExecuteContext(ctx context.Context) {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
