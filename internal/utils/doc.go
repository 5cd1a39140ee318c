// Package utils provides the low-level helpers shared by the provider clients:
// [DoPostSync] for JSON round-trips, [DoPostStream] with [SSEScanner] for
// Server-Sent Events, plus small string and pointer helpers.
package utils
