package googleai

import (
	"net/http"
	"os"

	"github.com/effective-security/x/values"
	"google.golang.org/genai"
)

const (
	// TokenEnvVarName is the preferred environment variable for the API key.
	TokenEnvVarName = "GEMINI_API_KEY"

	// LegacyTokenEnvVarName is also honored when TokenEnvVarName is unset.
	LegacyTokenEnvVarName = "GOOGLE_API_KEY"

	// DefaultModel is used when the caller does not specify one.
	DefaultModel = "gemini-2.5-pro"
)

// Options is a set of options for the GoogleAI client.
type Options struct {
	APIKey             string
	DefaultModel       string
	DefaultMaxTokens   int
	DefaultTemperature float64
	DefaultTopP        float64
	HarmThreshold      genai.HarmBlockThreshold
	HTTPClient         *http.Client
}

// DefaultOptions returns Options populated from the environment.
func DefaultOptions() Options {
	return Options{
		APIKey:             values.StringsCoalesce(os.Getenv(TokenEnvVarName), os.Getenv(LegacyTokenEnvVarName)),
		DefaultModel:       DefaultModel,
		DefaultTemperature: 0.5,
		DefaultTopP:        0.95,
		HarmThreshold:      genai.HarmBlockThresholdBlockOnlyHigh,
	}
}

// Option mutates client Options.
type Option func(*Options)

// WithAPIKey passes the API key to the client.
func WithAPIKey(apiKey string) Option {
	return func(opts *Options) {
		opts.APIKey = apiKey
	}
}

// WithHTTPClient uses the provided HTTP client to make requests.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(opts *Options) {
		opts.HTTPClient = httpClient
	}
}

// WithDefaultModel passes a default content model name to the client. This
// model name is used if not explicitly provided in specific invocations.
func WithDefaultModel(defaultModel string) Option {
	return func(opts *Options) {
		opts.DefaultModel = defaultModel
	}
}

// WithDefaultMaxTokens sets the default output token budget for the model.
func WithDefaultMaxTokens(maxTokens int) Option {
	return func(opts *Options) {
		opts.DefaultMaxTokens = maxTokens
	}
}

// WithDefaultTemperature sets the default sampling temperature for the model.
func WithDefaultTemperature(defaultTemperature float64) Option {
	return func(opts *Options) {
		opts.DefaultTemperature = defaultTemperature
	}
}

// WithDefaultTopP sets the default TopP for the model.
func WithDefaultTopP(defaultTopP float64) Option {
	return func(opts *Options) {
		opts.DefaultTopP = defaultTopP
	}
}

// WithHarmThreshold sets the safety setting for the model, potentially
// limiting any harmful content it may generate.
func WithHarmThreshold(ht genai.HarmBlockThreshold) Option {
	return func(opts *Options) {
		opts.HarmThreshold = ht
	}
}
