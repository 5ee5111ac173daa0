// Package types defines shared Go types used across ingest, pipeline, and
// export. These are the canonical in-memory representations of turnstile
// readings and derived ridership metrics, separate from any serialized form.
package types
