package rules

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-formcheck/pkg/constraint"
)

var ErrFormNotFound = errors.New("rules: form not found")

// Option configures loading.
type Option func(*loadConfig)

type loadConfig struct {
	strict bool
}

// WithStrict rejects declarations carrying tokens that are neither
// constraint names nor numeric arguments. By default such tokens are kept
// and ignored at evaluation time.
func WithStrict() Option {
	return func(cfg *loadConfig) {
		cfg.strict = true
	}
}

// LoadFS walks fsys and parses every JSON/YAML rules file. A nil filesystem
// yields an empty store.
func LoadFS(fsys fs.FS, options ...Option) (*Store, error) {
	cfg := newLoadConfig(options)
	store := &Store{forms: make(map[string]Form)}
	if fsys == nil {
		return store, nil
	}

	err := fs.WalkDir(fsys, ".", func(path string, entry fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if entry.IsDir() || !isRulesFile(path) {
			return nil
		}
		data, err := fs.ReadFile(fsys, path)
		if err != nil {
			return fmt.Errorf("rules: read %s: %w", path, err)
		}
		return store.add(data, path, cfg)
	})
	if err != nil {
		return nil, err
	}
	return store, nil
}

// LoadFile parses a single rules file from disk.
func LoadFile(path string, options ...Option) (*Store, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("rules: read %s: %w", path, err)
	}
	return Parse(data, path, options...)
}

// Parse decodes rules from data. source names the document in errors and
// selects the decoder by extension (.json, otherwise YAML).
func Parse(data []byte, source string, options ...Option) (*Store, error) {
	store := &Store{forms: make(map[string]Form)}
	if err := store.add(data, source, newLoadConfig(options)); err != nil {
		return nil, err
	}
	return store, nil
}

// MustForm returns the form id or ErrFormNotFound.
func (s *Store) MustForm(id string) (Form, error) {
	form, ok := s.Form(id)
	if !ok {
		return Form{}, fmt.Errorf("%w: %q", ErrFormNotFound, id)
	}
	return form, nil
}

func newLoadConfig(options []Option) loadConfig {
	var cfg loadConfig
	for _, opt := range options {
		if opt != nil {
			opt(&cfg)
		}
	}
	return cfg
}

func (s *Store) add(data []byte, source string, cfg loadConfig) error {
	doc, err := parseDocument(data, source)
	if err != nil {
		return err
	}
	for rawID, raw := range doc.Forms {
		id := strings.TrimSpace(rawID)
		if id == "" {
			return fmt.Errorf("rules: file %s defines an empty form id", source)
		}
		if _, exists := s.forms[id]; exists {
			return fmt.Errorf("rules: duplicate form %q (file %s)", id, source)
		}
		form, err := normaliseForm(raw, id, source, cfg)
		if err != nil {
			return err
		}
		s.forms[id] = form
	}
	return nil
}

type documentFile struct {
	Forms map[string]formFile `json:"forms" yaml:"forms"`
}

type formFile struct {
	Scopes   []string             `json:"scopes" yaml:"scopes"`
	Order    []string             `json:"order" yaml:"order"`
	Messages map[string]string    `json:"messages" yaml:"messages"`
	Fields   map[string]fieldFile `json:"fields" yaml:"fields"`
}

// fieldFile accepts either a bare declaration (directive string or token
// list) or an object with rules, label and messages.
type fieldFile struct {
	Rules    ruleText          `json:"rules" yaml:"rules"`
	Label    string            `json:"label" yaml:"label"`
	Messages map[string]string `json:"messages" yaml:"messages"`
}

type fieldAlias fieldFile

func (f *fieldFile) UnmarshalJSON(data []byte) error {
	if trimmed := bytes.TrimSpace(data); len(trimmed) > 0 && trimmed[0] == '{' {
		var alias fieldAlias
		if err := json.Unmarshal(trimmed, &alias); err != nil {
			return err
		}
		*f = fieldFile(alias)
		return nil
	}
	var text ruleText
	if err := json.Unmarshal(data, &text); err != nil {
		return err
	}
	*f = fieldFile{Rules: text}
	return nil
}

func (f *fieldFile) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.MappingNode {
		var alias fieldAlias
		if err := node.Decode(&alias); err != nil {
			return err
		}
		*f = fieldFile(alias)
		return nil
	}
	var text ruleText
	if err := node.Decode(&text); err != nil {
		return err
	}
	*f = fieldFile{Rules: text}
	return nil
}

// ruleText is a declaration written as a directive string
// ("required.min.5") or a token list ([required, min, 5]).
type ruleText struct {
	decl constraint.Declaration
}

func (r *ruleText) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	decl, err := declarationFromAny(raw)
	if err != nil {
		return err
	}
	r.decl = decl
	return nil
}

func (r *ruleText) UnmarshalYAML(node *yaml.Node) error {
	var raw any
	if err := node.Decode(&raw); err != nil {
		return err
	}
	decl, err := declarationFromAny(raw)
	if err != nil {
		return err
	}
	r.decl = decl
	return nil
}

func declarationFromAny(raw any) (constraint.Declaration, error) {
	switch v := raw.(type) {
	case nil:
		return constraint.Declaration{}, nil
	case string:
		return constraint.ParseDirective(v), nil
	case []any:
		tokens := make([]string, 0, len(v))
		for idx, item := range v {
			token, ok := tokenFromAny(item)
			if !ok {
				return nil, fmt.Errorf("rules: token %d has unsupported type %T", idx, item)
			}
			tokens = append(tokens, token)
		}
		return constraint.NewDeclaration(tokens...), nil
	default:
		return nil, fmt.Errorf("rules: declaration must be a string or a list, got %T", raw)
	}
}

func tokenFromAny(item any) (string, bool) {
	switch v := item.(type) {
	case string:
		return v, true
	case int:
		return strconv.Itoa(v), true
	case int64:
		return strconv.FormatInt(v, 10), true
	case uint64:
		return strconv.FormatUint(v, 10), true
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), true
	default:
		return "", false
	}
}

func parseDocument(data []byte, source string) (documentFile, error) {
	var doc documentFile
	if len(bytes.TrimSpace(data)) == 0 {
		return documentFile{}, fmt.Errorf("rules: file %s is empty", source)
	}

	if strings.EqualFold(filepath.Ext(source), ".json") {
		if err := json.Unmarshal(data, &doc); err != nil {
			return documentFile{}, fmt.Errorf("rules: parse %s: %w", source, err)
		}
		return doc, nil
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return documentFile{}, fmt.Errorf("rules: parse %s: %w", source, err)
	}
	return doc, nil
}

func normaliseForm(raw formFile, id, source string, cfg loadConfig) (Form, error) {
	form := Form{
		ID:       id,
		Source:   source,
		Scopes:   trimAll(raw.Scopes),
		Order:    trimAll(raw.Order),
		Fields:   make(map[string]Field, len(raw.Fields)),
		Messages: cloneStrings(raw.Messages),
	}

	for key, field := range raw.Fields {
		name := strings.TrimSpace(key)
		if name == "" {
			return Form{}, fmt.Errorf("rules: form %q (file %s) defines an empty field name", id, source)
		}
		if _, exists := form.Fields[name]; exists {
			return Form{}, fmt.Errorf("rules: form %q (file %s) defines duplicate field %q", id, source, name)
		}
		decl := field.Rules.decl
		if decl == nil {
			decl = constraint.Declaration{}
		}
		if cfg.strict {
			if err := decl.Validate(); err != nil {
				return Form{}, fmt.Errorf("rules: form %q (file %s) field %q: %w", id, source, name, err)
			}
		}
		form.Fields[name] = Field{
			Name:        name,
			Label:       strings.TrimSpace(field.Label),
			Declaration: decl,
			Messages:    cloneStrings(field.Messages),
		}
	}

	for _, name := range form.Order {
		if _, ok := form.Fields[name]; !ok {
			return Form{}, fmt.Errorf("rules: form %q (file %s) orders unknown field %q", id, source, name)
		}
	}
	return form, nil
}

func isRulesFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".yaml", ".yml":
		return true
	default:
		return false
	}
}

func trimAll(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	out := make([]string, 0, len(values))
	for _, value := range values {
		if trimmed := strings.TrimSpace(value); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func cloneStrings(src map[string]string) map[string]string {
	if len(src) == 0 {
		return nil
	}
	out := make(map[string]string, len(src))
	for k, v := range src {
		out[k] = v
	}
	return out
}
