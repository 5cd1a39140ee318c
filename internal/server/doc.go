// Package server exposes an agent over HTTP with gin.
//
//	GET    /healthz                 {status, provider, model}
//	POST   /v1/prompt               {prompt} -> {response}
//	POST   /v1/chat                 {prompt, history} -> {response}
//	POST   /v1/stream               {prompt, history?} -> SSE delta*, done | error
//	GET    /v1/sessions/:id         stored history
//	POST   /v1/sessions/:id/chat    {prompt} -> {response}, turn stored
//	DELETE /v1/sessions/:id         clear history
//
// Invalid requests get 400; agent failures get 502 with {error}.
package server
