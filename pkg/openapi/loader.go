package openapi

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"time"

	"github.com/getkin/kin-openapi/openapi3"
)

// Option configures loading.
type Option func(*config)

type config struct {
	fs           fs.FS
	http         *http.Client
	timeout      time.Duration
	externalRefs bool
	validate     bool
}

// WithFileSystem resolves SourceKindFS sources against files.
func WithFileSystem(files fs.FS) Option {
	return func(cfg *config) {
		cfg.fs = files
	}
}

// WithHTTPClient enables URL sources using client.
func WithHTTPClient(client *http.Client) Option {
	return func(cfg *config) {
		cfg.http = client
	}
}

// WithTimeout caps remote fetches.
func WithTimeout(timeout time.Duration) Option {
	return func(cfg *config) {
		cfg.timeout = timeout
	}
}

// WithExternalRefs lets kin-openapi follow references outside the document.
func WithExternalRefs() Option {
	return func(cfg *config) {
		cfg.externalRefs = true
	}
}

// WithValidation validates the document before deriving declarations.
func WithValidation() Option {
	return func(cfg *config) {
		cfg.validate = true
	}
}

func newConfig(options []Option) config {
	var cfg config
	for _, opt := range options {
		if opt != nil {
			opt(&cfg)
		}
	}
	return cfg
}

// Load fetches the document named by src and parses it.
func Load(ctx context.Context, src Source, options ...Option) (*Document, error) {
	if src == nil {
		return nil, errors.New("openapi: source is nil")
	}
	cfg := newConfig(options)

	var (
		data []byte
		err  error
	)
	switch src.Kind() {
	case SourceKindFile:
		data, err = readFile(ctx, src.Location())
	case SourceKindFS:
		data, err = readFS(ctx, cfg.fs, src.Location())
	case SourceKindURL:
		data, err = fetch(ctx, cfg.http, src.Location(), cfg.timeout)
	default:
		err = fmt.Errorf("openapi: unsupported source kind %q", src.Kind())
	}
	if err != nil {
		return nil, err
	}
	return parse(ctx, data, src.Location(), cfg)
}

// Parse decodes an OpenAPI document held in memory. location names it in
// errors and in the Source of derived forms.
func Parse(ctx context.Context, data []byte, location string, options ...Option) (*Document, error) {
	return parse(ctx, data, location, newConfig(options))
}

func parse(ctx context.Context, data []byte, location string, cfg config) (*Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("openapi: document %s is empty", location)
	}

	loader := &openapi3.Loader{
		Context:               ctx,
		IsExternalRefsAllowed: cfg.externalRefs,
	}
	spec, err := loader.LoadFromData(data)
	if err != nil {
		return nil, fmt.Errorf("openapi: load %s: %w", location, err)
	}
	if cfg.validate {
		if err := spec.Validate(ctx, openapi3.DisableExamplesValidation()); err != nil {
			return nil, fmt.Errorf("openapi: validate %s: %w", location, err)
		}
	}
	return newDocument(spec, location), nil
}

func readFile(ctx context.Context, path string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("openapi: read %s: %w", path, err)
	}
	return data, nil
}

func readFS(ctx context.Context, files fs.FS, name string) ([]byte, error) {
	if files == nil {
		return nil, errors.New("openapi: filesystem is not configured")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := fs.ReadFile(files, name)
	if err != nil {
		return nil, fmt.Errorf("openapi: read %s: %w", name, err)
	}
	return data, nil
}

func fetch(ctx context.Context, client *http.Client, url string, timeout time.Duration) ([]byte, error) {
	if client == nil {
		return nil, errors.New("openapi: http client is not configured")
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("openapi: fetch %s: %w", url, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("openapi: fetch %s: unexpected status %s", url, resp.Status)
	}
	return io.ReadAll(resp.Body)
}
