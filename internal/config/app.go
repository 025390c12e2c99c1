package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultMaxBytes is the input size ceiling applied before parsing.
const DefaultMaxBytes int64 = 50 << 20

// App is the top-level application configuration.
type App struct {
	Limits   Limits         `json:"limits" yaml:"limits"`
	Parser   ParserDefaults `json:"parser" yaml:"parser"`
	Validate ValidateConfig `json:"validate" yaml:"validate"`
	Metrics  Metrics        `json:"metrics" yaml:"metrics"`
	Storage  Storage        `json:"storage" yaml:"storage"`
	Server   Server         `json:"server" yaml:"server"`
	HTTP     HTTP           `json:"http" yaml:"http"`
	Log      Log            `json:"log" yaml:"log"`
}

// Limits bounds the resources a single invocation may use.
type Limits struct {
	// MaxBytes caps the input size; larger inputs are refused before parsing.
	MaxBytes int64 `json:"max_bytes" yaml:"max_bytes"`
}

// ParserDefaults seeds parse options when a request does not set them.
// Pointer fields distinguish "unset" from false.
type ParserDefaults struct {
	Delimiter      string `json:"delimiter" yaml:"delimiter"`
	HasHeaders     *bool  `json:"has_headers" yaml:"has_headers"`
	QuoteChar      string `json:"quote_char" yaml:"quote_char"`
	EscapeChar     string `json:"escape_char" yaml:"escape_char"`
	SkipEmptyLines *bool  `json:"skip_empty_lines" yaml:"skip_empty_lines"`
	Mode           string `json:"mode" yaml:"mode"`
}

// ValidateConfig tunes the validator. Zero values keep the built-in rules.
type ValidateConfig struct {
	RequiredColumns []string `json:"required_columns" yaml:"required_columns"`
	MaxTextLen      int      `json:"max_text_len" yaml:"max_text_len"`
	EchoLen         int      `json:"echo_len" yaml:"echo_len"`
	FlagEmpty       bool     `json:"flag_empty" yaml:"flag_empty"`
}

// Metrics selects and configures the metrics backend.
type Metrics struct {
	// Backend is one of "none", "pushgateway", "datadog".
	Backend        string `json:"backend" yaml:"backend"`
	PushgatewayURL string `json:"pushgateway_url" yaml:"pushgateway_url"`
	DatadogAddr    string `json:"datadog_addr" yaml:"datadog_addr"`
	// Job labels every metric emitted by this process.
	Job string `json:"job" yaml:"job"`
}

// Storage configures the export sink.
type Storage struct {
	// Kind selects the sink implementation: sqlite, postgres, mssql, mysql.
	Kind string `json:"kind" yaml:"kind"`
	DSN  string `json:"dsn" yaml:"dsn"`
	// Table is the destination table, optionally schema-qualified.
	Table string `json:"table" yaml:"table"`
	// AutoCreateTable creates the table from the dataset profile when missing.
	AutoCreateTable bool `json:"auto_create_table" yaml:"auto_create_table"`
	// BatchSize bounds the rows sent per copy call; zero sends one batch.
	BatchSize int `json:"batch_size" yaml:"batch_size"`
}

// Server configures the HTTP API.
type Server struct {
	Addr string `json:"addr" yaml:"addr"`
}

// HTTP configures downloads of http(s) inputs.
type HTTP struct {
	// Timeout bounds one attempt, as a Go duration string ("30s").
	Timeout string `json:"timeout" yaml:"timeout"`
	// Retries is the number of attempts after the first for transient
	// failures.
	Retries int `json:"retries" yaml:"retries"`
	// Insecure skips TLS certificate verification.
	Insecure bool `json:"insecure" yaml:"insecure"`
}

// TimeoutDuration parses Timeout; empty is zero.
func (h HTTP) TimeoutDuration() (time.Duration, error) {
	if strings.TrimSpace(h.Timeout) == "" {
		return 0, nil
	}
	return time.ParseDuration(strings.TrimSpace(h.Timeout))
}

// Log configures the process logger.
type Log struct {
	Level  string `json:"level" yaml:"level"`
	Format string `json:"format" yaml:"format"`
}

// DefaultApp returns the configuration used when no file is given.
func DefaultApp() App {
	return App{
		Limits:  Limits{MaxBytes: DefaultMaxBytes},
		Parser:  ParserDefaults{Delimiter: ",", QuoteChar: `"`, EscapeChar: `"`, Mode: "lenient"},
		Metrics: Metrics{Backend: "none", PushgatewayURL: "http://localhost:9091", DatadogAddr: "127.0.0.1:8125", Job: "csvpipe"},
		Server:  Server{Addr: ":8080"},
		HTTP:    HTTP{Timeout: "30s", Retries: 3},
		Log:     Log{Level: "info", Format: "text"},
	}
}

// LoadApp reads path (JSON or YAML, by extension) over DefaultApp and then
// applies environment overrides. An empty path yields defaults plus env.
func LoadApp(path string) (App, error) {
	app := DefaultApp()
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return App{}, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := DecodeApp(b, formatOf(path), &app); err != nil {
			return App{}, fmt.Errorf("decode config %s: %w", path, err)
		}
	}
	if err := app.ApplyEnv(os.LookupEnv); err != nil {
		return App{}, err
	}
	return app, nil
}

// DecodeApp decodes b into app, leaving fields absent from b untouched.
// Unknown keys are rejected so typos surface early.
func DecodeApp(b []byte, format string, app *App) error {
	var err error
	switch format {
	case "json":
		dec := json.NewDecoder(bytes.NewReader(b))
		dec.DisallowUnknownFields()
		err = dec.Decode(app)
	default:
		dec := yaml.NewDecoder(bytes.NewReader(b))
		dec.KnownFields(true)
		err = dec.Decode(app)
	}
	// an empty file keeps the defaults
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

// ApplyEnv overrides fields from the environment:
//
//	CSVPIPE_MAX_BYTES   limits.max_bytes
//	METRICS_BACKEND     metrics.backend
//	PUSHGATEWAY_URL     metrics.pushgateway_url
//	DD_AGENT_ADDR       metrics.datadog_addr
func (a *App) ApplyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup("CSVPIPE_MAX_BYTES"); ok && strings.TrimSpace(v) != "" {
		n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil || n <= 0 {
			return fmt.Errorf("CSVPIPE_MAX_BYTES: want a positive integer, got %q", v)
		}
		a.Limits.MaxBytes = n
	}
	if v, ok := lookup("METRICS_BACKEND"); ok && v != "" {
		a.Metrics.Backend = v
	}
	if v, ok := lookup("PUSHGATEWAY_URL"); ok && v != "" {
		a.Metrics.PushgatewayURL = v
	}
	if v, ok := lookup("DD_AGENT_ADDR"); ok && v != "" {
		a.Metrics.DatadogAddr = v
	}
	return nil
}

// formatOf maps a file extension to "json" or "yaml".
func formatOf(path string) string {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return "json"
	}
	return "yaml"
}
