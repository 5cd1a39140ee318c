package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/leofalp/sagent/providers/memory"
)

type sessionResponse struct {
	ID       string    `json:"id"`
	Messages []message `json:"messages"`
}

func (s *server) sessionHistory(c *gin.Context) {
	id := c.Param("id")
	history, err := s.sessions.Session(id).AllMessages(c.Request.Context())
	if err != nil {
		storeFailure(c, err)
		return
	}

	resp := sessionResponse{ID: id, Messages: make([]message, len(history))}
	for i, m := range history {
		resp.Messages[i] = message{Role: m.Role, Content: m.Content}
	}
	c.JSON(http.StatusOK, resp)
}

// sessionChat continues the stored conversation and records the new turn.
func (s *server) sessionChat(c *gin.Context) {
	var req promptRequest
	if !bind(c, &req) {
		return
	}

	ctx := c.Request.Context()
	session := s.sessions.Session(c.Param("id"))
	history, err := session.AllMessages(ctx)
	if err != nil {
		storeFailure(c, err)
		return
	}

	response, err := s.agent.Chat(ctx, req.Prompt, history)
	if err != nil {
		agentFailure(c, err)
		return
	}
	if err := memory.AppendTurn(ctx, session, req.Prompt, response); err != nil {
		storeFailure(c, err)
		return
	}
	c.JSON(http.StatusOK, completionResponse{Response: response})
}

func (s *server) sessionClear(c *gin.Context) {
	if err := s.sessions.Session(c.Param("id")).ClearMessages(c.Request.Context()); err != nil {
		storeFailure(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func storeFailure(c *gin.Context, err error) {
	_ = c.Error(err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
}
