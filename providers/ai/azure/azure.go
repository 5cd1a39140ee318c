package azure

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strconv"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"

	"github.com/leofalp/sagent/providers/ai"
	"github.com/leofalp/sagent/providers/ai/openai"
)

const (
	DefaultAPIVersion = "2024-10-21"

	// tokenScope is the Azure AD scope for Cognitive Services.
	tokenScope = "https://cognitiveservices.azure.com/.default"

	EnvEndpoint   = "AZURE_ENDPOINT"
	EnvAPIVersion = "AZURE_API_VERSION"
	EnvAPIKey     = "AZURE_API_KEY"
	EnvToken      = "AZURE_TOKEN"

	// EnvDefaultCredential set to true allows DefaultAzureCredential when
	// neither AZURE_API_KEY nor AZURE_TOKEN is set.
	EnvDefaultCredential = "AZURE_USE_DEFAULT_CREDENTIAL"
)

// AzureProvider talks to Azure OpenAI. Requests are routed by deployment: the
// request model is used as the deployment name.
//
// Authentication is tried in order: api-key header, static bearer token,
// Azure AD credential.
type AzureProvider struct {
	inner      *openai.OpenAIProvider
	apiKey     string
	token      string
	apiVersion string
	credential azcore.TokenCredential
}

var (
	_ ai.StreamProvider    = (*AzureProvider)(nil)
	_ ai.EmbeddingProvider = (*AzureProvider)(nil)
)

// New creates a provider from the AZURE_* variables. Missing credentials
// surface on the first request.
func New() *AzureProvider {
	p := newFromValues(os.Getenv(EnvEndpoint), os.Getenv(EnvAPIVersion), os.Getenv(EnvAPIKey), os.Getenv(EnvToken))
	if p.apiKey == "" && p.token == "" && useDefaultCredential() {
		if credential, err := azidentity.NewDefaultAzureCredential(nil); err == nil {
			p.credential = credential
		}
	}
	return p
}

// FromEnv is the fail-fast variant of New. AZURE_ENDPOINT is required, and so
// is one of AZURE_API_KEY or AZURE_TOKEN unless
// AZURE_USE_DEFAULT_CREDENTIAL opts into DefaultAzureCredential.
func FromEnv() (*AzureProvider, error) {
	endpoint := os.Getenv(EnvEndpoint)
	if endpoint == "" {
		return nil, ai.MissingEnvError(EnvEndpoint)
	}

	p := newFromValues(endpoint, os.Getenv(EnvAPIVersion), os.Getenv(EnvAPIKey), os.Getenv(EnvToken))
	if p.apiKey != "" || p.token != "" {
		return p, nil
	}
	if !useDefaultCredential() {
		return nil, fmt.Errorf("%w: %s or %s", ai.ErrMissingEnv, EnvAPIKey, EnvToken)
	}
	credential, err := azidentity.NewDefaultAzureCredential(nil)
	if err != nil {
		return nil, fmt.Errorf("default Azure credential: %w", err)
	}
	p.credential = credential
	return p, nil
}

func useDefaultCredential() bool {
	enabled, _ := strconv.ParseBool(os.Getenv(EnvDefaultCredential))
	return enabled
}

// NewWithKey builds a provider from explicit values. An empty apiVersion
// means DefaultAPIVersion.
func NewWithKey(endpoint, apiVersion, apiKey string) *AzureProvider {
	return newFromValues(endpoint, apiVersion, apiKey, "")
}

func newFromValues(endpoint, apiVersion, apiKey, token string) *AzureProvider {
	if apiVersion == "" {
		apiVersion = DefaultAPIVersion
	}

	p := &AzureProvider{
		apiKey:     apiKey,
		token:      token,
		apiVersion: apiVersion,
	}
	p.inner = openai.New().
		WithName("azure").
		WithEndpoint(p.endpoint).
		WithAuth(p.auth)
	p.inner.WithBaseURL(endpoint)
	return p
}

// WithAPIKey sets the api-key credential.
func (p *AzureProvider) WithAPIKey(apiKey string) ai.Provider {
	p.apiKey = apiKey
	return p
}

// WithBaseURL sets the resource endpoint, e.g. https://my-resource.openai.azure.com.
func (p *AzureProvider) WithBaseURL(baseURL string) ai.Provider {
	p.inner.WithBaseURL(baseURL)
	return p
}

func (p *AzureProvider) WithHttpClient(httpClient *http.Client) ai.Provider {
	p.inner.WithHttpClient(httpClient)
	return p
}

// WithToken sets a static Azure AD bearer token.
func (p *AzureProvider) WithToken(token string) *AzureProvider {
	p.token = token
	return p
}

// WithCredential sets the Azure AD credential used when no key or token is set.
func (p *AzureProvider) WithCredential(credential azcore.TokenCredential) *AzureProvider {
	p.credential = credential
	return p
}

// WithAPIVersion overrides the api-version query parameter.
func (p *AzureProvider) WithAPIVersion(apiVersion string) *AzureProvider {
	p.apiVersion = apiVersion
	return p
}

func (p *AzureProvider) Endpoint() string   { return p.inner.BaseURL() }
func (p *AzureProvider) APIVersion() string { return p.apiVersion }

func (p *AzureProvider) endpoint(baseURL, model, path string) string {
	return fmt.Sprintf("%s/openai/deployments/%s%s?api-version=%s",
		baseURL, url.PathEscape(model), path, url.QueryEscape(p.apiVersion))
}

func (p *AzureProvider) auth(ctx context.Context) (string, map[string]string, error) {
	switch {
	case p.apiKey != "":
		return "", map[string]string{"api-key": p.apiKey}, nil
	case p.token != "":
		return p.token, nil, nil
	case p.credential != nil:
		token, err := p.credential.GetToken(ctx, policy.TokenRequestOptions{Scopes: []string{tokenScope}})
		if err != nil {
			return "", nil, fmt.Errorf("%w: azure token: %w", ai.ErrAuth, err)
		}
		return token.Token, nil, nil
	default:
		return "", nil, fmt.Errorf("%w: %s, %s or an Azure credential", ai.ErrMissingEnv, EnvAPIKey, EnvToken)
	}
}

func (p *AzureProvider) SendMessage(ctx context.Context, request ai.ChatRequest) (*ai.ChatResponse, error) {
	if p.inner.BaseURL() == "" {
		return nil, ai.MissingEnvError(EnvEndpoint)
	}
	return p.inner.SendMessage(ctx, request)
}

func (p *AzureProvider) StreamMessage(ctx context.Context, request ai.ChatRequest) (*ai.ChatStream, error) {
	if p.inner.BaseURL() == "" {
		return nil, ai.MissingEnvError(EnvEndpoint)
	}
	return p.inner.StreamMessage(ctx, request)
}

// Embed uses request.Model as the embedding deployment name.
func (p *AzureProvider) Embed(ctx context.Context, request ai.EmbeddingRequest) (*ai.EmbeddingResponse, error) {
	if p.inner.BaseURL() == "" {
		return nil, ai.MissingEnvError(EnvEndpoint)
	}
	return p.inner.Embed(ctx, request)
}

func (p *AzureProvider) IsStopMessage(message *ai.ChatResponse) bool {
	return p.inner.IsStopMessage(message)
}
