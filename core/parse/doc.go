// Package parse turns raw model output into typed values. Models wrap JSON in
// prose or markdown fences, emit almost-JSON, or answer with schema-style
// {"type", "value"} envelopes; [As] recovers from each of these before giving
// up with an error.
package parse
