package server

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/leofalp/sagent/providers/ai"
)

type message struct {
	Role    ai.MessageRole `json:"role" binding:"required,oneof=system user assistant"`
	Content string         `json:"content"`
}

type promptRequest struct {
	Prompt string `json:"prompt" binding:"required"`
}

type chatRequest struct {
	Prompt  string    `json:"prompt" binding:"required"`
	History []message `json:"history" binding:"dive"`
}

type completionResponse struct {
	Response string `json:"response"`
}

func (s *server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":   "ok",
		"provider": s.cfg.Provider,
		"model":    s.cfg.Model,
	})
}

func (s *server) prompt(c *gin.Context) {
	var req promptRequest
	if !bind(c, &req) {
		return
	}
	s.complete(c, req.Prompt, nil)
}

func (s *server) chat(c *gin.Context) {
	var req chatRequest
	if !bind(c, &req) {
		return
	}
	s.complete(c, req.Prompt, toHistory(req.History))
}

func (s *server) complete(c *gin.Context, prompt string, history []ai.Message) {
	response, err := s.agent.Chat(c.Request.Context(), prompt, history)
	if err != nil {
		agentFailure(c, err)
		return
	}
	c.JSON(http.StatusOK, completionResponse{Response: response})
}

// stream relays text fragments as SSE "delta" events and ends with "done".
// A failure after the first byte is reported as a single "error" event.
func (s *server) stream(c *gin.Context) {
	var req chatRequest
	if !bind(c, &req) {
		return
	}

	stream, err := s.agent.StreamChat(c.Request.Context(), req.Prompt, toHistory(req.History))
	if err != nil {
		agentFailure(c, err)
		return
	}

	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Status(http.StatusOK)
	for fragment, err := range stream.Text() {
		if err != nil {
			_ = c.Error(err)
			c.SSEvent("error", gin.H{"error": err.Error()})
			c.Writer.Flush()
			return
		}
		c.SSEvent("delta", gin.H{"text": fragment})
		c.Writer.Flush()
	}
	c.SSEvent("done", gin.H{})
	c.Writer.Flush()
}

func bind(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("invalid request: %v", err)})
		return false
	}
	return true
}

func agentFailure(c *gin.Context, err error) {
	_ = c.Error(err)
	c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
}

func toHistory(messages []message) []ai.Message {
	if len(messages) == 0 {
		return nil
	}
	history := make([]ai.Message, len(messages))
	for i, m := range messages {
		history[i] = ai.Message{Role: m.Role, Content: m.Content}
	}
	return history
}
