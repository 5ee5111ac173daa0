// Package ingest turns raw provider turnstile files into the cleaned
// readings and entity mapping the pipeline consumes.
//
// readings.go parses the weekly provider text files (one row per device per
// reporting window, cumulative ENTRIES/EXITS counters), normalizes the
// provider's column names, and factorizes devices and stations into compact
// surrogate IDs.
//
// cleanse.go converts the cumulative counters into per-interval net
// increments, dropping counter resets (negative deltas) and implausibly
// large jumps.
//
// stations.go loads the remote/booth complex lookup table and derives the
// station → complex mapping handed to the aggregator.
package ingest
