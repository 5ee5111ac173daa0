// Package export writes pipeline results to their output sinks: delimited
// text files for the downstream mapping collaborator, an optional InfluxDB
// bucket for dashboarding, and an optional Prometheus textfile with run
// statistics for node-exporter style collection.
package export
