package llmfactory

import (
	"github.com/effective-security/x/configloader"
)

// Config describes the configured LLM providers. The first provider in the
// list is the default.
type Config struct {
	Providers []*ProviderConfig `json:"providers" yaml:"providers"`
}

// ProviderConfig describes a single LLM provider.
type ProviderConfig struct {
	// Name is a unique name for this provider entry.
	Name string `json:"name" yaml:"name"`
	// Provider is the provider type: OPENAI|ANTHROPIC|GOOGLEAI|GROQ.
	Provider string `json:"provider" yaml:"provider"`
	// Token is the API key. Values in the form ${ENV_VAR} are expanded
	// from the environment when the config is loaded.
	Token           string   `json:"token,omitempty" yaml:"token,omitempty"`
	BaseURL         string   `json:"base_url,omitempty" yaml:"base_url,omitempty"`
	OrgID           string   `json:"org_id,omitempty" yaml:"org_id,omitempty"`
	DefaultModel    string   `json:"default_model,omitempty" yaml:"default_model,omitempty"`
	AvailableModels []string `json:"available_models,omitempty" yaml:"available_models,omitempty"`
}

// LoadConfig loads the factory configuration from a JSON or YAML file,
// expanding environment variable references.
func LoadConfig(file string) (*Config, error) {
	cfg := new(Config)
	if file == "" {
		return cfg, nil
	}

	err := configloader.UnmarshalAndExpand(file, cfg)
	if err != nil {
		return nil, err
	}
	return cfg, nil
}
