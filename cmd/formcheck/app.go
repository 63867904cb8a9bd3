package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/goliatone/go-formcheck"
	"github.com/goliatone/go-formcheck/pkg/binding"
	"github.com/goliatone/go-formcheck/pkg/metrics"
	"github.com/goliatone/go-formcheck/pkg/openapi"
	"github.com/goliatone/go-formcheck/pkg/prompt"
	"github.com/goliatone/go-formcheck/pkg/rules"
	"github.com/goliatone/go-formcheck/pkg/validation"
	"github.com/goliatone/go-formcheck/pkg/watch"
)

type fieldReport struct {
	Element    string            `json:"element"`
	Valid      bool              `json:"valid"`
	Reason     string            `json:"reason,omitempty"`
	Message    string            `json:"message,omitempty"`
	Attributes map[string]string `json:"attributes"`
}

type report struct {
	Form   string                 `json:"form"`
	Valid  bool                   `json:"valid"`
	Fields map[string]fieldReport `json:"fields"`
	Banner string                 `json:"banner,omitempty"`
}

type app struct {
	cfg    config
	logger *slog.Logger
	stdout io.Writer
	outMu  sync.Mutex

	form    rules.Form
	checker *formcheck.Checker
	metrics *metrics.Observer
	values  *watch.FileSource
}

func newApp(ctx context.Context, cfg config, logger *slog.Logger, stdout io.Writer) (*app, error) {
	a := &app{cfg: cfg, logger: logger, stdout: stdout}

	form, err := a.loadForm(ctx)
	if err != nil {
		return nil, err
	}
	a.form = form

	a.metrics = metrics.NewObserver(nil)
	a.checker, err = formcheck.New(
		formcheck.WithLogger(logger),
		formcheck.WithPrefix(cfg.Prefix),
		formcheck.WithObservers(validation.NewLogObserver(logger), a.metrics),
	)
	if err != nil {
		return nil, err
	}

	if cfg.Values != "" {
		a.values = watch.NewFileSource(cfg.Values, watch.WithDebounce(cfg.Debounce), watch.WithLogger(logger))
	}
	return a, nil
}

func (a *app) loadForm(ctx context.Context) (rules.Form, error) {
	if a.cfg.OpenAPI != "" {
		src, err := openapi.SourceFor(a.cfg.OpenAPI)
		if err != nil {
			return rules.Form{}, err
		}
		doc, err := openapi.Load(ctx, src, openapi.WithHTTPClient(&http.Client{Timeout: a.cfg.HTTPTimeout}))
		if err != nil {
			return rules.Form{}, err
		}
		return doc.Form(a.cfg.Operation)
	}

	var opts []rules.Option
	if a.cfg.Strict {
		opts = append(opts, rules.WithStrict())
	}

	var (
		store *rules.Store
		err   error
	)
	if info, statErr := os.Stat(a.cfg.Rules); statErr == nil && info.IsDir() {
		store, err = rules.LoadFS(os.DirFS(a.cfg.Rules), opts...)
	} else {
		store, err = rules.LoadFile(a.cfg.Rules, opts...)
	}
	if err != nil {
		return rules.Form{}, err
	}

	if a.cfg.Form != "" {
		return store.MustForm(a.cfg.Form)
	}
	ids := store.IDs()
	if len(ids) != 1 {
		return rules.Form{}, fmt.Errorf("formcheck: -form is required, available forms: %s", strings.Join(ids, ", "))
	}
	return store.MustForm(ids[0])
}

// bindValues subscribes every field to the values file and loads it once.
func (a *app) bindValues() error {
	sources := make(map[string]binding.Source, len(a.form.Fields))
	if a.values != nil {
		for name := range a.form.Fields {
			sources[name] = a.values.Field(name)
		}
	}
	if _, err := a.checker.Bind(a.form, sources); err != nil {
		return err
	}
	if a.values == nil {
		return nil
	}
	_, err := a.values.Reload()
	return err
}

func (a *app) check() (report, error) {
	a.checker.Validate(a.form)
	return a.report()
}

func (a *app) report() (report, error) {
	out := report{
		Form:   a.form.ID,
		Valid:  a.checker.Valid(a.form),
		Fields: make(map[string]fieldReport, len(a.form.Fields)),
	}
	for _, field := range a.form.OrderedFields() {
		entry := fieldReport{
			Element:    a.form.ElementID(field.Name),
			Attributes: a.checker.Attributes(a.form, field.Name),
		}
		if state, ok := a.checker.State(a.form, field.Name); ok {
			entry.Valid = state.Valid
			entry.Reason = state.Reason
			msg, err := a.checker.Message(a.form, field.Name)
			if err != nil {
				return report{}, err
			}
			entry.Message = msg
		}
		out.Fields[field.Name] = entry
	}

	if a.cfg.Banner {
		banner, err := a.checker.Banner(a.form)
		if err != nil {
			return report{}, err
		}
		out.Banner = banner
	}
	return out, nil
}

func (a *app) print(r report) error {
	a.outMu.Lock()
	defer a.outMu.Unlock()
	enc := json.NewEncoder(a.stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}

func (a *app) runOnce() (bool, error) {
	if err := a.bindValues(); err != nil {
		return false, err
	}
	r, err := a.check()
	if err != nil {
		return false, err
	}
	return r.Valid, a.print(r)
}

func (a *app) runWatch(ctx context.Context) (bool, error) {
	first, err := a.runOnce()
	if err != nil {
		return false, err
	}
	var valid atomic.Bool
	valid.Store(first)

	if a.cfg.MetricsAddr != "" {
		stop := a.serveMetrics()
		defer stop()
	}

	err = a.values.Watch(ctx, func(_ []string, reloadErr error) {
		if reloadErr != nil {
			return
		}
		r, err := a.report()
		if err != nil {
			a.logger.Error("report failed", "error", err)
			return
		}
		valid.Store(r.Valid)
		if err := a.print(r); err != nil {
			a.logger.Error("print report failed", "error", err)
		}
	})
	return valid.Load(), err
}

func (a *app) runInteractive(ctx context.Context, driver prompt.PromptDriver) (bool, error) {
	defaults := map[string]any{}
	if a.values != nil {
		if _, err := a.values.Reload(); err != nil {
			return false, err
		}
		for name := range a.form.Fields {
			if value, ok := a.values.Lookup(name); ok {
				defaults[name] = value
			}
		}
	}

	session := &prompt.Session{
		Form:     a.form,
		Driver:   driver,
		Binder:   a.checker.Binder(),
		Renderer: a.checker.Renderer(),
		Defaults: defaults,
		Strict:   a.cfg.Strict,
		Logger:   a.logger,
	}
	if _, err := session.Run(ctx); err != nil {
		return false, err
	}
	r, err := a.report()
	if err != nil {
		return false, err
	}
	return r.Valid, a.print(r)
}

func (a *app) serveMetrics() func() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", a.metrics.Handler())
	srv := &http.Server{
		Addr:              a.cfg.MetricsAddr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		a.logger.Info("metrics listening", "addr", a.cfg.MetricsAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("metrics server failed", "error", err)
		}
	}()
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}
}
