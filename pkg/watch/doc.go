// Package watch feeds form values from a JSON or YAML file. A FileSource
// hands out one binding.Source per field and republishes changed values when
// the file is reloaded, either on demand or through an fsnotify watch.
package watch
