// Package inmemory provides process-local implementations of the memory
// interfaces: [ArrayMemory] for one conversation and [Sessions] for a
// session-keyed store. Nothing survives a restart.
package inmemory
