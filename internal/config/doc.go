// Package config loads and watches the stationpulse configuration file.
//
// Load(path) reads the YAML file, applies defaults, and validates the result
// with go-playground/validator struct tags plus a few cross-field checks.
// Durations use the Prometheus model notation ("1h", "90m", "15s").
//
// Watch(ctx, path, dataDir, onChange) uses fsnotify to re-run the pipeline
// when the config file changes or a new provider file lands in the data
// directory. It handles the rename→create pattern used by atomic-save
// editors by re-adding the watch after a create event.
package config
