// Package registry looks up provider clients by name. Each [Factory] pairs an
// environment-driven constructor with a value-driven one, so the same
// provider can be configured from the process environment or from code.
//
//	reg, _ := registry.New(append(registry.Builtin(),
//	    registry.OpenAICompatible("custom", "MODEL_API_KEY", "MODEL_API_BASE"))...)
//	builder, err := reg.Agent("custom", "Qwen/Qwen3-235B-A22B-FP8")
package registry
