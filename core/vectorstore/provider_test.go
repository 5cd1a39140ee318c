package vectorstore

import (
	"context"
	"net/http"

	"github.com/leofalp/sagent/providers/ai"
)

type captureProvider struct {
	onSend func(ai.ChatRequest)
}

func (c *captureProvider) SendMessage(_ context.Context, req ai.ChatRequest) (*ai.ChatResponse, error) {
	c.onSend(req)
	return &ai.ChatResponse{Content: "It is an ancient tool.", FinishReason: "stop"}, nil
}

func (c *captureProvider) IsStopMessage(resp *ai.ChatResponse) bool {
	return resp.FinishReason == "stop"
}
func (c *captureProvider) WithAPIKey(string) ai.Provider           { return c }
func (c *captureProvider) WithBaseURL(string) ai.Provider          { return c }
func (c *captureProvider) WithHttpClient(*http.Client) ai.Provider { return c }
