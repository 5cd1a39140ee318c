package anthropic

import (
	"strings"
	"time"

	"github.com/leofalp/sagent/internal/utils"
	"github.com/leofalp/sagent/providers/ai"
)

func requestToAnthropic(request ai.ChatRequest) anthropicRequest {
	req := anthropicRequest{
		Model:     request.Model,
		Messages:  buildMessages(request.Messages),
		System:    request.SystemPrompt,
		MaxTokens: DefaultMaxTokens,
	}

	if config := request.GenerationConfig; config != nil {
		if config.MaxTokens > 0 {
			req.MaxTokens = config.MaxTokens
		}
		if config.Temperature != 0 {
			req.Temperature = utils.Ptr(float64(config.Temperature))
		}
		if config.TopP != 0 {
			req.TopP = utils.Ptr(float64(config.TopP))
		}
	}

	return req
}

// buildMessages converts the history to Anthropic turns. System messages in
// the history are skipped (the system prompt travels in its own field) and
// consecutive messages with the same role are merged, since the API requires
// user and assistant turns to alternate.
func buildMessages(messages []ai.Message) []anthropicMessage {
	result := make([]anthropicMessage, 0, len(messages))

	for _, msg := range messages {
		role := string(msg.Role)
		if msg.Role == ai.RoleSystem || msg.Content == "" {
			continue
		}
		if msg.Role != ai.RoleAssistant {
			role = string(ai.RoleUser)
		}

		block := anthropicContentBlock{Type: "text", Text: msg.Content}
		if n := len(result); n > 0 && result[n-1].Role == role {
			result[n-1].Content = append(result[n-1].Content, block)
			continue
		}
		result = append(result, anthropicMessage{Role: role, Content: []anthropicContentBlock{block}})
	}

	return result
}

func anthropicToGeneric(response anthropicResponse) *ai.ChatResponse {
	result := &ai.ChatResponse{
		Id:      response.ID,
		Model:   response.Model,
		Object:  "chat.completion",
		Created: time.Now().Unix(),
	}

	var textParts, reasoningParts []string
	for _, block := range response.Content {
		switch block.Type {
		case "text":
			textParts = append(textParts, block.Text)
		case "thinking":
			reasoningParts = append(reasoningParts, block.Thinking)
		}
	}

	result.Content = strings.Join(textParts, "\n")
	result.Reasoning = strings.Join(reasoningParts, "\n")
	result.FinishReason = mapStopReason(response.StopReason)
	result.Usage = usageToGeneric(response.Usage)

	return result
}

// usageToGeneric folds cache creation and cache reads into CachedTokens.
func usageToGeneric(usage anthropicUsage) *ai.Usage {
	return &ai.Usage{
		PromptTokens:     usage.InputTokens,
		CompletionTokens: usage.OutputTokens,
		TotalTokens:      usage.InputTokens + usage.OutputTokens,
		CachedTokens:     usage.CacheCreationInputTokens + usage.CacheReadInputTokens,
	}
}

// mapStopReason normalises Anthropic stop reasons to the OpenAI vocabulary.
func mapStopReason(stopReason string) string {
	switch stopReason {
	case "max_tokens":
		return "length"
	case "refusal":
		return "content_filter"
	default:
		return "stop"
	}
}
