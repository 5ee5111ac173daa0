// Package pipeline derives ridership metrics from cleaned turnstile readings.
//
// The stages run strictly in order:
//
//	Normalize  — per-device elapsed-time correction, counts → events/hour
//	Bucket     — snap irregular timestamps onto a uniform grid (round half up)
//	Aggregate  — sum rates per station or complex, derive per-device density
//	Score      — bounded [0,1] priority from traffic and density
//	Project    — caller-facing time-series and summary tables
//
// Every stage is a pure function from an input collection to a new derived
// collection; nothing is mutated in place, so each stage is independently
// testable and a run is deterministic over its input. Run wires the stages
// together and is the only entry point most callers need.
//
// Non-fatal data-quality findings (duplicate timestamps, unmapped stations,
// devices with no valid interval) are collected in a Report and logged once
// per run. The only fatal condition is a degenerate scoring batch — all raw
// priority values equal — which is surfaced as *DegenerateBatchError instead
// of silently emitting NaN.
package pipeline
