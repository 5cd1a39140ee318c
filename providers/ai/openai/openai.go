package openai

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/leofalp/sagent/internal/utils"
	"github.com/leofalp/sagent/providers/ai"
	"github.com/leofalp/sagent/providers/observability"
)

const (
	defaultBaseURL = "https://api.openai.com/v1"

	chatCompletionsEndpoint = "/chat/completions"
	embeddingsEndpoint      = "/embeddings"

	// EnvAPIKey and EnvBaseURL are read by New and FromEnv.
	EnvAPIKey  = "OPENAI_API_KEY"
	EnvBaseURL = "OPENAI_API_BASE_URL"
)

// EndpointFunc builds the full request URL for a model and an API path such as
// "/chat/completions".
type EndpointFunc func(baseURL, model, path string) string

// AuthFunc returns the bearer token and any extra headers for one request.
// It runs per request so short-lived tokens can be refreshed.
type AuthFunc func(ctx context.Context) (bearer string, headers map[string]string, err error)

// OpenAIProvider implements ai.Provider, ai.StreamProvider and
// ai.EmbeddingProvider for OpenAI-compatible chat completions.
type OpenAIProvider struct {
	name     string
	apiKey   string
	baseURL  string
	client   *http.Client
	endpoint EndpointFunc
	auth     AuthFunc
}

var (
	_ ai.StreamProvider    = (*OpenAIProvider)(nil)
	_ ai.EmbeddingProvider = (*OpenAIProvider)(nil)
)

// New creates a provider from OPENAI_API_KEY and OPENAI_API_BASE_URL. A missing
// key is only reported when the first request is sent; use FromEnv to fail early.
func New() *OpenAIProvider {
	baseURL := os.Getenv(EnvBaseURL)
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	return &OpenAIProvider{
		name:    "openai",
		apiKey:  os.Getenv(EnvAPIKey),
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{},
	}
}

// FromEnv is New, but returns an error wrapping ai.ErrMissingEnv when
// OPENAI_API_KEY is not set.
func FromEnv() (*OpenAIProvider, error) {
	if os.Getenv(EnvAPIKey) == "" {
		return nil, ai.MissingEnvError(EnvAPIKey)
	}
	return New(), nil
}

// WithAPIKey sets the API key for the provider
func (p *OpenAIProvider) WithAPIKey(apiKey string) ai.Provider {
	p.apiKey = apiKey
	return p
}

// WithBaseURL sets the base URL for the API
func (p *OpenAIProvider) WithBaseURL(baseURL string) ai.Provider {
	p.baseURL = strings.TrimRight(baseURL, "/")
	return p
}

// WithHttpClient sets a custom HTTP client
func (p *OpenAIProvider) WithHttpClient(httpClient *http.Client) ai.Provider {
	p.client = httpClient
	return p
}

// WithEndpoint replaces the default baseURL+path URL scheme.
func (p *OpenAIProvider) WithEndpoint(endpoint EndpointFunc) *OpenAIProvider {
	p.endpoint = endpoint
	return p
}

// WithAuth replaces bearer-token authentication with auth.
func (p *OpenAIProvider) WithAuth(auth AuthFunc) *OpenAIProvider {
	p.auth = auth
	return p
}

// WithName sets the provider name reported to observability (default "openai").
func (p *OpenAIProvider) WithName(name string) *OpenAIProvider {
	p.name = name
	return p
}

// Name returns the provider name reported to observability.
func (p *OpenAIProvider) Name() string {
	return p.name
}

// BaseURL returns the configured base URL.
func (p *OpenAIProvider) BaseURL() string {
	return p.baseURL
}

func (p *OpenAIProvider) url(model, path string) string {
	if p.endpoint != nil {
		return p.endpoint(p.baseURL, model, path)
	}
	return p.baseURL + path
}

// credentials resolves the bearer token and header options for one request.
func (p *OpenAIProvider) credentials(ctx context.Context) (string, []utils.HeaderOption, error) {
	if p.auth == nil {
		if p.apiKey == "" {
			return "", nil, fmt.Errorf("%s: API key is not set: %w", p.name, ai.ErrMissingEnv)
		}
		return p.apiKey, nil, nil
	}

	bearer, headers, err := p.auth(ctx)
	if err != nil {
		return "", nil, fmt.Errorf("%s: resolving credentials: %w", p.name, err)
	}
	options := make([]utils.HeaderOption, 0, len(headers))
	for key, value := range headers {
		options = append(options, utils.HeaderOption{Key: key, Value: value})
	}
	return bearer, options, nil
}

// SendMessage sends a chat completions request and returns the first choice.
func (p *OpenAIProvider) SendMessage(ctx context.Context, request ai.ChatRequest) (*ai.ChatResponse, error) {
	span := observability.SpanFromContext(ctx)
	observer := observability.ObserverFromContext(ctx)
	url := p.url(request.Model, chatCompletionsEndpoint)

	if span != nil {
		span.AddEvent(observability.EventLLMRequestStart)
		span.SetAttributes(
			observability.String(observability.AttrLLMProvider, p.name),
			observability.String(observability.AttrLLMEndpoint, url),
			observability.String(observability.AttrLLMModel, request.Model),
		)
		defer span.AddEvent(observability.EventLLMRequestEnd)
	}

	if observer != nil {
		observer.Trace(ctx, "OpenAI provider preparing request",
			observability.String(observability.AttrLLMProvider, p.name),
			observability.String(observability.AttrLLMModel, request.Model),
			observability.Int(observability.AttrRequestMessagesCount, len(request.Messages)),
		)
	}

	bearer, headers, err := p.credentials(ctx)
	if err != nil {
		return nil, err
	}

	httpResponse, resp, err := utils.DoPostSync[chatCompletionResponse](ctx, p.client, url, bearer, requestToChatCompletion(request), headers...)
	if err != nil {
		if observer != nil {
			observer.Trace(ctx, "HTTP request failed", observability.Error(err))
		}
		return nil, err
	}

	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("%w: no choices in %s response (status %s)", ai.ErrInvalidResponse, p.name, httpResponse.Status)
	}

	result := responseFromChatCompletion(resp)
	if result.Model == "" {
		result.Model = request.Model
	}

	if span != nil {
		span.SetAttributes(
			observability.String(observability.AttrLLMResponseID, result.Id),
			observability.String(observability.AttrLLMFinishReason, result.FinishReason),
		)
		if result.Usage != nil {
			span.AddEvent(observability.EventTokensReceived,
				observability.Int(observability.AttrLLMTokensTotal, result.Usage.TotalTokens),
			)
		}
	}

	return result, nil
}

// IsStopMessage reports whether the given chat response ends the turn.
func (p *OpenAIProvider) IsStopMessage(message *ai.ChatResponse) bool {
	if message == nil {
		return true
	}
	switch message.FinishReason {
	case "stop", "length", "content_filter":
		return true
	}
	return message.Content == ""
}
