// Command csvpipe parses, validates, transforms and exports delimited data,
// either as one-shot commands or as an HTTP API (serve).
package main

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"csvpipe/internal/config"
	"csvpipe/internal/datasource/httpds"
	"csvpipe/internal/logging"
	"csvpipe/internal/metrics"
	"csvpipe/internal/metrics/datadog"
	"csvpipe/internal/metrics/prompush"
	"csvpipe/internal/pipeline"

	// register every storage backend; --kind picks one at run time.
	_ "csvpipe/internal/storage/all"
)

func main() {
	if err := newRootCmd(os.Stdout, os.Stderr).Execute(); err != nil {
		os.Exit(1)
	}
}

// cli holds the state shared by every subcommand once the root command's
// pre-run has loaded configuration.
type cli struct {
	cfgPath        string
	logLevel       string
	logFormat      string
	metricsBackend string
	httpTimeout    time.Duration
	httpRetries    int
	insecure       bool

	app  config.App
	pipe *pipeline.Pipeline
	// fetcher downloads http(s) inputs under the pipeline's size ceiling.
	fetcher *httpds.Client
	// metricsHandler is set when the backend can serve a scrape endpoint.
	metricsHandler http.Handler
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	c := &cli{}
	root := &cobra.Command{
		Use:   "csvpipe",
		Short: "csvpipe - parse, validate, transform and export delimited data",
		Long: `csvpipe turns delimited text into a typed dataset and runs it through
validation, transformation rules and a query stage.

Examples:
  # Parse a file and print the rows as JSON
  csvpipe parse people.csv

  # Validate several files concurrently
  csvpipe validate a.csv b.csv c.csv

  # Apply a rule file, keep two columns and sort
  csvpipe transform people.csv --rules rules.yaml --select name,age --sort age --desc

  # Load into SQLite
  csvpipe export people.csv --kind sqlite --dsn file:out.db --table people

  # Serve the HTTP API
  csvpipe serve --addr :8080`,
		SilenceUsage:      true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error { return c.setup(cmd) },
		PersistentPostRun: func(_ *cobra.Command, _ []string) {
			if err := metrics.Flush(); err != nil {
				slog.Warn("metrics flush failed", "error", err)
			}
		},
	}
	root.SetOut(stdout)
	root.SetErr(stderr)

	pf := root.PersistentFlags()
	pf.StringVar(&c.cfgPath, "config", "", "application config file (JSON or YAML)")
	pf.StringVar(&c.logLevel, "log-level", "", "log level: debug, info, warn, error")
	pf.StringVar(&c.logFormat, "log-format", "", "log format: text or json")
	pf.StringVar(&c.metricsBackend, "metrics-backend", "", "metrics backend: none, pushgateway, datadog")
	pf.DurationVar(&c.httpTimeout, "http-timeout", 0, "per-attempt timeout for http(s) inputs (default from config, 30s)")
	pf.IntVar(&c.httpRetries, "http-retries", httpds.DefaultRetries, "retries for transient http(s) failures")
	pf.BoolVar(&c.insecure, "insecure", false, "skip TLS certificate verification for https inputs")

	root.AddCommand(
		c.newParseCmd(),
		c.newValidateCmd(),
		c.newTransformCmd(),
		c.newUnparseCmd(),
		c.newExportCmd(),
		c.newServeCmd(),
		c.newLintCmd(),
	)
	return root
}

// setup loads config (file, then env, then flags), installs the logger and
// the metrics backend, and builds the pipeline.
func (c *cli) setup(cmd *cobra.Command) error {
	app, err := config.LoadApp(c.cfgPath)
	if err != nil {
		return err
	}
	if c.logLevel != "" {
		app.Log.Level = c.logLevel
	}
	if c.logFormat != "" {
		app.Log.Format = c.logFormat
	}
	if c.metricsBackend != "" {
		app.Metrics.Backend = c.metricsBackend
	}
	if c.httpTimeout > 0 {
		app.HTTP.Timeout = c.httpTimeout.String()
	}
	if cmd.Flags().Changed("http-retries") {
		app.HTTP.Retries = c.httpRetries
	}
	if c.insecure {
		app.HTTP.Insecure = true
	}
	issues := config.ValidateApp(app)
	for _, iss := range issues {
		fmt.Fprintf(cmd.ErrOrStderr(), "%s: %s: %s\n", iss.Severity, iss.Path, iss.Message)
	}
	if config.HasErrors(issues) {
		return fmt.Errorf("configuration is invalid")
	}

	logging.Setup(app.Log.Level, app.Log.Format)
	c.app = app
	c.pipe = pipeline.New(app)
	timeout, _ := app.HTTP.TimeoutDuration() // checked by ValidateApp
	c.fetcher = httpds.NewClient(httpds.Config{
		Timeout:  timeout,
		Retries:  app.HTTP.Retries,
		Insecure: app.HTTP.Insecure,
		MaxBytes: c.pipe.Limit(),
	})
	c.metricsHandler = setupMetrics(app.Metrics)
	return nil
}

// setupMetrics installs the configured backend. A backend that fails to
// initialize leaves metrics disabled rather than failing the command.
func setupMetrics(m config.Metrics) http.Handler {
	job := m.Job
	if job == "" {
		job = prompush.DefaultJob
	}
	switch m.Backend {
	case "pushgateway":
		b, err := prompush.NewBackend(job, m.PushgatewayURL)
		if err != nil {
			slog.Warn("metrics: failed to init prom push backend; using nop", "error", err)
			return nil
		}
		slog.Debug("metrics enabled", "backend", m.Backend, "url", m.PushgatewayURL, "job", job)
		metrics.SetBackend(b)
		return b.Handler()

	case "datadog":
		b, err := datadog.NewBackend(datadog.Config{Addr: m.DatadogAddr, GlobalTags: []string{"service:" + job}})
		if err != nil {
			slog.Warn("metrics: failed to init datadog backend; using nop", "error", err)
			return nil
		}
		slog.Debug("metrics enabled", "backend", m.Backend, "addr", m.DatadogAddr, "job", job)
		metrics.SetBackend(b)
		return nil

	case "", "none":
		return nil

	default:
		slog.Warn("metrics: unknown backend; metrics disabled", "backend", m.Backend)
		return nil
	}
}
