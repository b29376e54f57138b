// Package cli implements the sqlsafety command line.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/wemcdonald/sqlsafety/pkg/config"
	"github.com/wemcdonald/sqlsafety/pkg/dryrun"
	"github.com/wemcdonald/sqlsafety/pkg/report"
	"github.com/wemcdonald/sqlsafety/pkg/rollback"
)

var (
	cfgFile string
	verbose bool

	cfg    *config.Config
	logger = slog.Default()
)

var RootCmd = &cobra.Command{
	Use:   "sqlsafety",
	Short: "Analyze the impact and risk of SQL statements before running them",
	Long: `
sqlsafety inspects a SQL statement without touching your database: it reports
which tables and columns it affects, classifies its risk, simulates it against
an in-memory SQLite database and asks an LLM for a rollback script.
`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := config.LoadDotEnv(); err != nil {
			return err
		}
		loaded, err := config.Load(viper.GetViper(), cfgFile)
		if err != nil {
			return err
		}
		cfg = loaded
		logger = newLogger(cmd.ErrOrStderr(), logLevel(slog.LevelWarn), false)
		slog.SetDefault(logger)
		return nil
	},
}

func Execute() {
	if err := RootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	RootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./sqlsafety.yaml)")
	RootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	RootCmd.PersistentFlags().String("provider", "", "rollback provider: auto, openai, deepseek, anthropic or none")
	RootCmd.PersistentFlags().String("model", "", "model used for rollback generation")
	RootCmd.PersistentFlags().Duration("rollback-timeout", 0, "how long to wait for the rollback script")

	viper.BindPFlag("llm.provider", RootCmd.PersistentFlags().Lookup("provider"))
	viper.BindPFlag("llm.model", RootCmd.PersistentFlags().Lookup("model"))
	viper.BindPFlag("llm.timeout", RootCmd.PersistentFlags().Lookup("rollback-timeout"))

	RootCmd.AddCommand(analyzeCmd, dryRunCmd, serveCmd, mcpCmd)
}

// logLevel is Debug with --verbose and base otherwise
func logLevel(base slog.Level) slog.Level {
	if verbose {
		return slog.LevelDebug
	}
	return base
}

func newLogger(w io.Writer, level slog.Level, asJSON bool) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}
	if asJSON {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// newSimulator builds the simulator from the loaded config
func newSimulator() *dryrun.Simulator {
	return dryrun.New(
		dryrun.WithLogger(logger),
		dryrun.WithPreviewLimit(cfg.DryRun.PreviewLimit),
	)
}

// unavailable reports why no provider could be built each time a rollback
// is requested.
func unavailable(err error) rollback.Generator {
	return rollback.GeneratorFunc(func(context.Context, rollback.Request) (string, error) {
		return "", err
	})
}

// newComposer builds a composer with the configured rollback provider. A
// missing provider is not fatal: the report carries the reason instead.
func newComposer() (*report.Composer, error) {
	opts := []report.Option{
		report.WithLogger(logger),
		report.WithSimulator(newSimulator()),
		report.WithRollbackTimeout(cfg.LLM.Timeout),
	}

	gen, err := rollback.NewGenerator(cfg.ProviderConfig(), logger)
	switch {
	case err == nil:
		opts = append(opts, report.WithGenerator(gen))
	case errors.Is(err, rollback.ErrNotConfigured):
		logger.Debug("rollback generation disabled", "reason", err)
		opts = append(opts, report.WithGenerator(unavailable(err)))
	default:
		return nil, err
	}
	return report.NewComposer(opts...), nil
}
