// Command loadsheet validates and exports load sheets without the web UI.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/JonMunkholm/loadsheet/internal/application"
	"github.com/JonMunkholm/loadsheet/internal/config"
	"github.com/JonMunkholm/loadsheet/internal/logging"
)

const (
	exitOK       = 0
	exitFailed   = 1
	exitUsage    = 2
	exitInternal = 3
)

// exitError carries the process exit code of a command failure.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

func withCode(code int, err error) error {
	return &exitError{code: code, err: err}
}

func exitCode(err error) int {
	if err == nil {
		return exitOK
	}
	var ee *exitError
	if errors.As(err, &ee) {
		return ee.code
	}
	return exitInternal
}

// rootOptions are shared by every subcommand.
type rootOptions struct {
	ontologyPath string
	unitsPath    string
	enumsPath    string
	databaseURL  string
	pushgateway  string
	logLevel     string
}

func newRootCmd() *cobra.Command {
	var opts rootOptions

	cmd := &cobra.Command{
		Use:           "loadsheet",
		Short:         "Validate and export building-automation load sheets",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := cmd.PersistentFlags()
	pf.StringVar(&opts.ontologyPath, "ontology", "", "Ontology fields CSV (default: REFERENCE_ONTOLOGY_PATH)")
	pf.StringVar(&opts.unitsPath, "units", "", "Units CSV (default: REFERENCE_UNITS_PATH)")
	pf.StringVar(&opts.enumsPath, "enums", "", "Enums CSV (default: REFERENCE_ENUMS_PATH)")
	pf.StringVar(&opts.databaseURL, "database-url", "", "Reference database URL (default: DATABASE_URL)")
	pf.StringVar(&opts.pushgateway, "pushgateway", "", "Push run metrics to this Prometheus Pushgateway")
	pf.StringVar(&opts.logLevel, "log-level", "", "Log level: debug, info, warn, error")

	cmd.AddCommand(newValidateCmd(&opts))
	cmd.AddCommand(newExportCmd(&opts))
	return cmd
}

// loadConfig reads the environment configuration and applies flag
// overrides.
func (o *rootOptions) loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, withCode(exitUsage, err)
	}
	if o.ontologyPath != "" {
		cfg.Reference.OntologyPath = o.ontologyPath
	}
	if o.unitsPath != "" {
		cfg.Reference.UnitsPath = o.unitsPath
	}
	if o.enumsPath != "" {
		cfg.Reference.EnumsPath = o.enumsPath
	}
	if o.databaseURL != "" {
		cfg.Reference.DatabaseURL = o.databaseURL
	}
	if o.pushgateway != "" {
		cfg.Metrics.Backend = config.MetricsPrometheus
		cfg.Metrics.PushgatewayURL = o.pushgateway
	}
	if o.logLevel != "" {
		cfg.Logging.Level = o.logLevel
	}
	// Tables load on first use.
	cfg.Reference.Preload = false
	return cfg, nil
}

func (o *rootOptions) start(ctx context.Context) (*application.App, error) {
	cfg, err := o.loadConfig()
	if err != nil {
		return nil, err
	}
	slog.SetDefault(logging.New(os.Stderr, cfg.Logging.Level, cfg.Logging.Format))
	app, err := application.New(ctx, cfg)
	if err != nil {
		return nil, withCode(exitInternal, err)
	}
	return app, nil
}

func main() {
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()

	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
	}
	os.Exit(exitCode(err))
}
