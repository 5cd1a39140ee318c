package server

import (
	"context"
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/leofalp/sagent/core/agent"
	"github.com/leofalp/sagent/providers/ai"
	"github.com/leofalp/sagent/providers/memory"
)

// Agent is what the server needs from an agent. Both *agent.Agent and
// settings.SAgent satisfy it.
type Agent interface {
	Chat(ctx context.Context, input string, history []ai.Message) (string, error)
	StreamChat(ctx context.Context, input string, history []ai.Message) (*agent.Stream, error)
}

type Config struct {
	// Provider and Model are reported by /healthz.
	Provider string
	Model    string

	// Sessions enables the /v1/sessions routes when set.
	Sessions memory.Store

	Logger *slog.Logger
}

type server struct {
	agent    Agent
	cfg      Config
	logger   *slog.Logger
	sessions memory.Store
}

// New returns a gin engine serving a.
func New(a Agent, cfg Config) *gin.Engine {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	s := &server{agent: a, cfg: cfg, logger: logger, sessions: cfg.Sessions}

	g := gin.New()
	g.Use(requestLogger(logger), gin.Recovery())

	g.GET("/healthz", s.health)
	v1 := g.Group("/v1")
	{
		v1.POST("/prompt", s.prompt)
		v1.POST("/chat", s.chat)
		v1.POST("/stream", s.stream)
	}
	if s.sessions != nil {
		sessions := v1.Group("/sessions/:id")
		sessions.GET("", s.sessionHistory)
		sessions.POST("/chat", s.sessionChat)
		sessions.DELETE("", s.sessionClear)
	}
	return g
}

func requestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		attrs := []any{
			slog.String("method", c.Request.Method),
			slog.String("path", c.FullPath()),
			slog.Int("status", c.Writer.Status()),
			slog.Duration("duration", time.Since(start)),
		}
		if len(c.Errors) > 0 {
			attrs = append(attrs, slog.String("error", c.Errors.String()))
		}
		logger.InfoContext(c.Request.Context(), "http request", attrs...)
	}
}
