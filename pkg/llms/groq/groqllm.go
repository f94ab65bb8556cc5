// Package groq provides a Groq chat model over the OpenAI-compatible API.
package groq

import (
	"os"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/agenthub/pkg/llms"
	"github.com/effective-security/agenthub/pkg/llms/openai"
)

const (
	// TokenEnvVarName is the environment variable with the API token.
	TokenEnvVarName = "GROQ_API_KEY"

	// DefaultBaseURL is the Groq OpenAI-compatible endpoint.
	DefaultBaseURL = "https://api.groq.com/openai/v1"

	// DefaultModel is used when no model is configured.
	DefaultModel = "llama-3.3-70b-versatile"
)

// ErrMissingToken is returned when the API token is not configured.
var ErrMissingToken = errors.New("groq: missing API key, set it in the GROQ_API_KEY environment variable")

// New returns a Groq model. Options may override the token, model and
// endpoint, the same way the OpenAI client is configured.
func New(opts ...openai.Option) (*openai.LLM, error) {
	all := []openai.Option{
		// the GROQ_API_KEY env var replaces the OpenAI default,
		// an explicit WithToken option still wins
		openai.WithToken(os.Getenv(TokenEnvVarName)),
		openai.WithBaseURL(DefaultBaseURL),
		openai.WithModel(DefaultModel),
		openai.WithProvider(llms.ProviderGroq),
	}
	all = append(all, opts...)

	m, err := openai.New(all...)
	if err != nil {
		if errors.Is(err, openai.ErrMissingToken) {
			return nil, errors.WithStack(ErrMissingToken)
		}
		return nil, err
	}
	return m, nil
}
