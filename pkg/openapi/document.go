package openapi

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/goliatone/go-formcheck/pkg/constraint"
	"github.com/goliatone/go-formcheck/pkg/rules"
)

var (
	ErrOperationNotFound = errors.New("openapi: operation not found")
	ErrNoRequestSchema   = errors.New("openapi: operation has no request body schema")
)

// requestMediaTypes are tried in order before falling back to any content
// entry.
var requestMediaTypes = []string{"application/json", "application/x-www-form-urlencoded", "multipart/form-data"}

// Operation is the subset of operation metadata needed to name a form.
type Operation struct {
	ID      string
	Method  string
	Path    string
	Summary string
}

type operationEntry struct {
	op     Operation
	schema *openapi3.SchemaRef
}

// Document exposes the operations of a loaded OpenAPI document and derives
// a rules.Form from each operation's request body.
type Document struct {
	location   string
	operations map[string]operationEntry
}

func newDocument(spec *openapi3.T, location string) *Document {
	doc := &Document{location: location, operations: make(map[string]operationEntry)}
	if spec == nil || spec.Paths == nil {
		return doc
	}
	for path, item := range spec.Paths.Map() {
		if item == nil {
			continue
		}
		doc.collect("GET", path, item.Get)
		doc.collect("PUT", path, item.Put)
		doc.collect("POST", path, item.Post)
		doc.collect("DELETE", path, item.Delete)
		doc.collect("PATCH", path, item.Patch)
	}
	return doc
}

func (d *Document) collect(method, path string, operation *openapi3.Operation) {
	if operation == nil {
		return
	}
	id := operation.OperationID
	if id == "" {
		id = strings.ToLower(method) + ":" + path
	}
	d.operations[id] = operationEntry{
		op: Operation{
			ID:      id,
			Method:  method,
			Path:    path,
			Summary: operation.Summary,
		},
		schema: requestSchema(operation.RequestBody),
	}
}

func requestSchema(body *openapi3.RequestBodyRef) *openapi3.SchemaRef {
	if body == nil || body.Value == nil {
		return nil
	}
	content := body.Value.Content
	for _, mediaType := range requestMediaTypes {
		if mt, ok := content[mediaType]; ok && mt != nil {
			return mt.Schema
		}
	}
	keys := make([]string, 0, len(content))
	for key := range content {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		if mt := content[key]; mt != nil && mt.Schema != nil {
			return mt.Schema
		}
	}
	return nil
}

// Location returns where the document was loaded from.
func (d *Document) Location() string {
	return d.location
}

// Operations lists the document operations sorted by id.
func (d *Document) Operations() []Operation {
	out := make([]Operation, 0, len(d.operations))
	for _, entry := range d.operations {
		out = append(out, entry.op)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Form derives the declarations for operationID's request body. Nested
// object properties become dotted field names ("address.city"); read-only
// properties are skipped.
func (d *Document) Form(operationID string) (rules.Form, error) {
	entry, ok := d.operations[operationID]
	if !ok {
		return rules.Form{}, fmt.Errorf("%w: %q", ErrOperationNotFound, operationID)
	}
	if entry.schema == nil || entry.schema.Value == nil {
		return rules.Form{}, fmt.Errorf("%w: %q", ErrNoRequestSchema, operationID)
	}

	form := rules.Form{
		ID:     operationID,
		Source: d.location,
		Fields: make(map[string]rules.Field),
	}
	visiting := map[*openapi3.Schema]bool{entry.schema.Value: true}
	collectFields(&form, "", entry.schema.Value, visiting)
	return form, nil
}

// Forms derives a form for every operation carrying a request body schema.
func (d *Document) Forms() *rules.Store {
	var forms []rules.Form
	for _, op := range d.Operations() {
		form, err := d.Form(op.ID)
		if err != nil {
			continue
		}
		forms = append(forms, form)
	}
	return rules.NewStore(forms...)
}

func collectFields(form *rules.Form, prefix string, schema *openapi3.Schema, visiting map[*openapi3.Schema]bool) {
	required := make(map[string]bool, len(schema.Required))
	for _, name := range schema.Required {
		required[name] = true
	}

	names := make([]string, 0, len(schema.Properties))
	for name := range schema.Properties {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		ref := schema.Properties[name]
		if ref == nil || ref.Value == nil || ref.Value.ReadOnly {
			continue
		}
		prop := ref.Value
		path := name
		if prefix != "" {
			path = prefix + "." + name
		}

		if len(prop.Properties) > 0 {
			if visiting[prop] {
				continue
			}
			visiting[prop] = true
			collectFields(form, path, prop, visiting)
			delete(visiting, prop)
			continue
		}

		form.Fields[path] = rules.Field{
			Name:        path,
			Label:       strings.TrimSpace(prop.Title),
			Declaration: Declaration(prop, required[name]),
		}
		form.Order = append(form.Order, path)
	}
}

// Declaration maps the schema keywords of one property onto constraint
// tokens: required (checked for booleans), minimum, maximum, minLength and
// maxLength, with minItems and maxItems standing in for the length bounds of
// arrays. Tokens from an x-validation extension are appended; when they
// repeat a kind the schema keyword wins.
func Declaration(schema *openapi3.Schema, required bool) constraint.Declaration {
	if schema == nil {
		if required {
			return constraint.NewDeclaration(constraint.TokenRequired)
		}
		return constraint.NewDeclaration()
	}

	var tokens []string
	if required {
		if hasType(schema, openapi3.TypeBoolean) {
			tokens = append(tokens, constraint.TokenChecked)
		} else {
			tokens = append(tokens, constraint.TokenRequired)
		}
	}
	if schema.Min != nil {
		tokens = append(tokens, constraint.TokenMin, formatFloat(*schema.Min))
	}
	if schema.Max != nil {
		tokens = append(tokens, constraint.TokenMax, formatFloat(*schema.Max))
	}

	minLength := schema.MinLength
	if minLength == 0 {
		minLength = schema.MinItems
	}
	if minLength > 0 {
		tokens = append(tokens, constraint.TokenMinLength, strconv.FormatUint(minLength, 10))
	}
	maxLength := schema.MaxLength
	if maxLength == nil {
		maxLength = schema.MaxItems
	}
	if maxLength != nil {
		tokens = append(tokens, constraint.TokenMaxLength, strconv.FormatUint(*maxLength, 10))
	}

	tokens = append(tokens, extensionTokens(schema.Extensions[constraint.DirectiveName])...)
	return constraint.NewDeclaration(tokens...)
}

func extensionTokens(raw any) []string {
	switch v := raw.(type) {
	case string:
		return constraint.ParseDirective(v).Tokens()
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			switch token := item.(type) {
			case string:
				out = append(out, token)
			case float64:
				out = append(out, formatFloat(token))
			}
		}
		return out
	default:
		return nil
	}
}

func hasType(schema *openapi3.Schema, want string) bool {
	if schema.Type == nil {
		return false
	}
	for _, typ := range schema.Type.Slice() {
		if typ == want {
			return true
		}
	}
	return false
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
