package openai

import (
	"net/http"
	"os"

	"github.com/effective-security/agenthub/pkg/llms"
)

const (
	// TokenEnvVarName is the environment variable with the API token.
	TokenEnvVarName = "OPENAI_API_KEY"

	// DefaultBaseURL is the OpenAI API endpoint.
	DefaultBaseURL = "https://api.openai.com/v1"

	// DefaultModel is used when no model is configured.
	DefaultModel = "gpt-5-mini"

	// DefaultMaxTokens bounds the completion size when the caller does not.
	DefaultMaxTokens = 2 * 16384
)

// Options are the configurable settings of the OpenAI-compatible client.
type Options struct {
	token        string
	baseURL      string
	organization string
	model        string
	provider     llms.ProviderType
	httpClient   *http.Client
}

// Option is a function that configures Options.
type Option func(*Options)

func defaultOptions() *Options {
	return &Options{
		token:      os.Getenv(TokenEnvVarName),
		baseURL:    DefaultBaseURL,
		model:      DefaultModel,
		provider:   llms.ProviderOpenAI,
		httpClient: http.DefaultClient,
	}
}

// WithToken sets the API token.
func WithToken(token string) Option {
	return func(o *Options) {
		o.token = token
	}
}

// WithBaseURL overrides the API endpoint, for OpenAI-compatible providers.
func WithBaseURL(baseURL string) Option {
	return func(o *Options) {
		o.baseURL = baseURL
	}
}

// WithOrganization sets the organization whose quota and billing are used.
func WithOrganization(org string) Option {
	return func(o *Options) {
		o.organization = org
	}
}

// WithModel sets the default model.
func WithModel(model string) Option {
	return func(o *Options) {
		o.model = model
	}
}

// WithProvider overrides the reported provider type,
// used by OpenAI-compatible providers such as Groq.
func WithProvider(pt llms.ProviderType) Option {
	return func(o *Options) {
		o.provider = pt
	}
}

// WithHTTPClient sets the HTTP client to use.
func WithHTTPClient(client *http.Client) Option {
	return func(o *Options) {
		o.httpClient = client
	}
}
