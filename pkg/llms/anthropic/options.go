package anthropic

import "net/http"

const (
	// TokenEnvVarName is the environment variable holding the API key.
	TokenEnvVarName = "ANTHROPIC_API_KEY"

	// DefaultBaseURL is the Anthropic API endpoint.
	DefaultBaseURL = "https://api.anthropic.com"

	// DefaultModel is used when the caller does not specify a model.
	DefaultModel = "claude-sonnet-4-5"

	// DefaultMaxTokens is the fallback output budget for a request.
	DefaultMaxTokens = 4096
)

// Options configures the Anthropic client.
type Options struct {
	Token      string
	BaseURL    string
	Model      string
	BetaHeader string
	HTTPClient *http.Client
}

// Option mutates client Options.
type Option func(*Options)

// WithToken sets the API key.
func WithToken(token string) Option {
	return func(o *Options) {
		o.Token = token
	}
}

// WithBaseURL overrides the API endpoint.
func WithBaseURL(baseURL string) Option {
	return func(o *Options) {
		o.BaseURL = baseURL
	}
}

// WithModel sets the default model for requests.
func WithModel(model string) Option {
	return func(o *Options) {
		o.Model = model
	}
}

// WithBetaHeader sets the anthropic-beta header value.
func WithBetaHeader(value string) Option {
	return func(o *Options) {
		o.BetaHeader = value
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(o *Options) {
		o.HTTPClient = client
	}
}
