package registry

import (
	"fmt"

	"github.com/leofalp/sagent/providers/ai"
	"github.com/leofalp/sagent/providers/ai/anthropic"
	"github.com/leofalp/sagent/providers/ai/azure"
	"github.com/leofalp/sagent/providers/ai/openai"
)

const (
	OpenAI    = "openai"
	Anthropic = "anthropic"
	Azure     = "azure"
)

// Builtin returns the factories of the bundled providers.
func Builtin() []Factory {
	return []Factory{
		{
			Name:    OpenAI,
			FromEnv: func() (ai.Provider, error) { return fromEnv(openai.FromEnv) },
			FromValue: func(v ProviderValue) (ai.Provider, error) {
				return withValue(openai.New(), v, OpenAI)
			},
		},
		{
			Name:    Anthropic,
			FromEnv: func() (ai.Provider, error) { return fromEnv(anthropic.FromEnv) },
			FromValue: func(v ProviderValue) (ai.Provider, error) {
				return withValue(anthropic.New(), v, Anthropic)
			},
		},
		{
			Name:    Azure,
			FromEnv: func() (ai.Provider, error) { return fromEnv(azure.FromEnv) },
			FromValue: func(v ProviderValue) (ai.Provider, error) {
				if v.BaseURL == "" {
					return nil, fmt.Errorf("%w: azure needs an endpoint", ErrInvalidFactory)
				}
				if v.APIKey == "" {
					return nil, fmt.Errorf("%w: azure needs an API key", ErrInvalidFactory)
				}
				return azure.NewWithKey(v.BaseURL, v.APIVersion, v.APIKey), nil
			},
		},
	}
}

// OpenAICompatible returns a factory for a self-hosted or third-party
// endpoint speaking the OpenAI chat completions API. FromEnv reads the key
// and base URL from the two named variables.
func OpenAICompatible(name, apiKeyEnv, baseURLEnv string) Factory {
	return Factory{
		Name: name,
		FromEnv: func() (ai.Provider, error) {
			apiKey, err := requireEnv(apiKeyEnv)
			if err != nil {
				return nil, err
			}
			baseURL, err := requireEnv(baseURLEnv)
			if err != nil {
				return nil, err
			}
			return openai.New().WithName(name).WithAPIKey(apiKey).WithBaseURL(baseURL), nil
		},
		FromValue: func(v ProviderValue) (ai.Provider, error) {
			if v.BaseURL == "" {
				return nil, fmt.Errorf("%w: %s needs a base URL", ErrInvalidFactory, name)
			}
			return withValue(openai.New().WithName(name), v, name)
		},
	}
}

// withValue applies explicit credentials. An API key is required; an empty
// base URL keeps the provider default.
func withValue(provider ai.Provider, v ProviderValue, name string) (ai.Provider, error) {
	if v.APIKey == "" {
		return nil, fmt.Errorf("%w: %s needs an API key", ErrInvalidFactory, name)
	}
	provider = provider.WithAPIKey(v.APIKey)
	if v.BaseURL != "" {
		provider = provider.WithBaseURL(v.BaseURL)
	}
	return provider, nil
}

// fromEnv keeps a failed constructor from leaking a typed nil.
func fromEnv[P ai.Provider](construct func() (P, error)) (ai.Provider, error) {
	provider, err := construct()
	if err != nil {
		return nil, err
	}
	return provider, nil
}
