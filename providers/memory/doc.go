// Package memory defines the conversation history interfaces used to thread
// the history argument of agent Chat calls across requests.
//
// [Provider] is one conversation; [Store] maps session ids to Providers.
// Read methods return errors so database-backed implementations can surface
// failures. Implementations live in the inmemory and pgmemory subpackages.
package memory
