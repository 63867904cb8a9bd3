package main

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

type mode int

const (
	modeOnce mode = iota
	modeWatch
	modeInteractive
)

// config holds every setting. Environment variables provide the defaults and
// flags override them.
type config struct {
	Rules       string        `env:"FORMCHECK_RULES"`
	Form        string        `env:"FORMCHECK_FORM"`
	Values      string        `env:"FORMCHECK_VALUES"`
	OpenAPI     string        `env:"FORMCHECK_OPENAPI"`
	Operation   string        `env:"FORMCHECK_OPERATION"`
	Prefix      string        `env:"FORMCHECK_PREFIX" envDefault:"data-validation-"`
	Banner      bool          `env:"FORMCHECK_BANNER"`
	Strict      bool          `env:"FORMCHECK_STRICT"`
	MetricsAddr string        `env:"FORMCHECK_METRICS_ADDR"`
	LogFormat   string        `env:"FORMCHECK_LOG_FORMAT" envDefault:"text"`
	LogLevel    string        `env:"FORMCHECK_LOG_LEVEL" envDefault:"warn"`
	Debounce    time.Duration `env:"FORMCHECK_DEBOUNCE" envDefault:"100ms"`
	HTTPTimeout time.Duration `env:"FORMCHECK_HTTP_TIMEOUT" envDefault:"10s"`

	Watch       bool
	Interactive bool
}

func (c config) mode() mode {
	switch {
	case c.Interactive:
		return modeInteractive
	case c.Watch:
		return modeWatch
	default:
		return modeOnce
	}
}

func loadConfig(args []string, environ map[string]string, stderr io.Writer) (config, error) {
	var cfg config
	if err := env.ParseWithOptions(&cfg, env.Options{Environment: environ}); err != nil {
		return config{}, fmt.Errorf("formcheck: environment: %w", err)
	}

	fs := flag.NewFlagSet("formcheck", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&cfg.Rules, "rules", cfg.Rules, "rules file or directory (JSON/YAML)")
	fs.StringVar(&cfg.Form, "form", cfg.Form, "form id to check")
	fs.StringVar(&cfg.Values, "values", cfg.Values, "values file (JSON/YAML) keyed by field name")
	fs.StringVar(&cfg.OpenAPI, "openapi", cfg.OpenAPI, "OpenAPI document path or URL to derive rules from")
	fs.StringVar(&cfg.Operation, "operation", cfg.Operation, "OpenAPI operation id (with -openapi)")
	fs.StringVar(&cfg.Prefix, "prefix", cfg.Prefix, "attribute prefix for projected state")
	fs.BoolVar(&cfg.Banner, "banner", cfg.Banner, "include the rendered error banner")
	fs.BoolVar(&cfg.Strict, "strict", cfg.Strict, "reject unknown tokens and re-prompt invalid answers")
	fs.StringVar(&cfg.MetricsAddr, "metrics-addr", cfg.MetricsAddr, "serve Prometheus metrics on this address (watch mode)")
	fs.StringVar(&cfg.LogFormat, "log-format", cfg.LogFormat, "log format: text or json")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level: debug, info, warn, error")
	fs.DurationVar(&cfg.Debounce, "debounce", cfg.Debounce, "quiet interval before reloading the values file")
	fs.BoolVar(&cfg.Watch, "watch", false, "re-check whenever the values file changes")
	fs.BoolVar(&cfg.Interactive, "interactive", false, "prompt for each field")
	if err := fs.Parse(args); err != nil {
		return config{}, err
	}

	switch {
	case cfg.Rules == "" && cfg.OpenAPI == "":
		return config{}, fmt.Errorf("formcheck: one of -rules or -openapi is required")
	case cfg.Rules != "" && cfg.OpenAPI != "":
		return config{}, fmt.Errorf("formcheck: -rules and -openapi are mutually exclusive")
	case cfg.OpenAPI != "" && cfg.Operation == "":
		return config{}, fmt.Errorf("formcheck: -operation is required with -openapi")
	case cfg.Watch && cfg.Values == "":
		return config{}, fmt.Errorf("formcheck: -watch needs -values")
	case cfg.Watch && cfg.Interactive:
		return config{}, fmt.Errorf("formcheck: -watch and -interactive are mutually exclusive")
	}
	return cfg, nil
}

func newLogger(cfg config, w io.Writer) (*slog.Logger, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		return nil, fmt.Errorf("formcheck: log level %q: %w", cfg.LogLevel, err)
	}
	opts := &slog.HandlerOptions{Level: level}

	switch strings.ToLower(cfg.LogFormat) {
	case "", "text":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	case "json":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	default:
		return nil, fmt.Errorf("formcheck: unknown log format %q", cfg.LogFormat)
	}
}
