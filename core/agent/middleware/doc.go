// Package middleware provides the built-in agent middlewares:
//
//   - [NewRetryMiddleware]: exponential backoff with jitter on transient
//     provider failures (429, 5xx).
//   - [NewTimeoutMiddleware]: a per-request deadline that spans the whole
//     stream for streamed calls.
//   - [NewLoggingMiddleware]: slog entries around every call, at three
//     verbosity levels.
//
// Register them with [agent.Builder.Use]. The first one registered is the
// outermost:
//
//	agent.NewBuilder(provider, "gpt-4o").Use(
//	    middleware.NewTimeoutMiddleware(30*time.Second),
//	    middleware.NewRetryMiddleware(middleware.RetryConfig{MaxRetries: 3}),
//	    middleware.NewLoggingMiddleware(slog.Default(), middleware.LogLevelStandard),
//	)
//
// Here a request passes Timeout, then Retry, then Logging, then reaches the
// provider; each retry is logged as its own call.
package middleware
