// Package settings loads the process configuration and turns it into an
// [SAgent] for the configured provider.
//
// The configuration names the provider and model only:
//
//	debug: true
//	provider:
//	  type: Anthropic
//	model: claude-3-7-sonnet-latest
//
// Credentials come from the environment of the selected provider package.
package settings
