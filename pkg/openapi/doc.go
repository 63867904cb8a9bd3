// Package openapi derives constraint declarations from the request body
// schema of OpenAPI operations, so a form can be validated against the same
// rules the API enforces. Documents are parsed with kin-openapi.
package openapi
