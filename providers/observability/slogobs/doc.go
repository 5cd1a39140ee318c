// Package slogobs provides an observability.Provider backed by log/slog.
// Output format (compact, text, json) and level are set with [WithFormat] and
// [WithLevel], or read from SAGENT_LOG_FORMAT and SAGENT_LOG_LEVEL.
package slogobs
