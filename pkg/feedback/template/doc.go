// Package template renders feedback markup with a pongo2 template set loaded
// from a directory or an fs.FS.
package template
