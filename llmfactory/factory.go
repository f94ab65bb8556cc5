// Package llmfactory creates and caches LLM clients from configuration.
package llmfactory

import (
	"context"
	"strings"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/agenthub/pkg/llms"
	"github.com/effective-security/agenthub/pkg/llms/anthropic"
	"github.com/effective-security/agenthub/pkg/llms/googleai"
	"github.com/effective-security/agenthub/pkg/llms/groq"
	"github.com/effective-security/agenthub/pkg/llms/openai"
	"github.com/effective-security/xlog"
)

var logger = xlog.NewPackageLogger("github.com/effective-security/agenthub", "llmfactory")

// Factory provides cached LLM clients by name or provider type.
type Factory interface {
	DefaultModel(ctx context.Context) (llms.Model, error)
	ModelByProvider(ctx context.Context, provider llms.ProviderType) (llms.Model, error)
	ModelByName(ctx context.Context, name string) (llms.Model, error)
}

// Load creates a Factory from a configuration file.
func Load(location string) (Factory, error) {
	cfg, err := LoadConfig(location)
	if err != nil {
		return nil, err
	}
	return New(cfg), nil
}

type factory struct {
	cfg *Config

	byProvider map[llms.ProviderType]llms.Model
	byName     map[string]llms.Model
	lock       sync.Mutex
}

// New creates a new LLM factory.
func New(cfg *Config) Factory {
	return &factory{
		cfg:        cfg,
		byProvider: make(map[llms.ProviderType]llms.Model),
		byName:     make(map[string]llms.Model),
	}
}

// NewLLM creates an LLM client from a single provider configuration.
func NewLLM(ctx context.Context, cfg *ProviderConfig) (llms.Model, error) {
	switch provider := llms.ProviderType(strings.ToUpper(cfg.Provider)); provider {
	case llms.ProviderOpenAI, "":
		var opts []openai.Option
		if cfg.Token != "" {
			opts = append(opts, openai.WithToken(cfg.Token))
		}
		if cfg.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
		}
		if cfg.OrgID != "" {
			opts = append(opts, openai.WithOrganization(cfg.OrgID))
		}
		if cfg.DefaultModel != "" {
			opts = append(opts, openai.WithModel(cfg.DefaultModel))
		}
		return openai.New(opts...)

	case llms.ProviderGroq:
		var opts []openai.Option
		if cfg.Token != "" {
			opts = append(opts, openai.WithToken(cfg.Token))
		}
		if cfg.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
		}
		if cfg.DefaultModel != "" {
			opts = append(opts, openai.WithModel(cfg.DefaultModel))
		}
		return groq.New(opts...)

	case llms.ProviderAnthropic:
		var opts []anthropic.Option
		if cfg.Token != "" {
			opts = append(opts, anthropic.WithToken(cfg.Token))
		}
		if cfg.BaseURL != "" {
			opts = append(opts, anthropic.WithBaseURL(cfg.BaseURL))
		}
		if cfg.DefaultModel != "" {
			opts = append(opts, anthropic.WithModel(cfg.DefaultModel))
		}
		return anthropic.New(opts...)

	case llms.ProviderGoogleAI:
		var opts []googleai.Option
		if cfg.Token != "" {
			opts = append(opts, googleai.WithAPIKey(cfg.Token))
		}
		if cfg.DefaultModel != "" {
			opts = append(opts, googleai.WithDefaultModel(cfg.DefaultModel))
		}
		return googleai.New(ctx, opts...)

	default:
		return nil, errors.Newf("unsupported provider: %s", cfg.Provider)
	}
}

// DefaultModel returns the client for the first configured provider.
func (f *factory) DefaultModel(ctx context.Context) (llms.Model, error) {
	if len(f.cfg.Providers) == 0 {
		return nil, errors.New("no providers configured")
	}
	return f.ModelByName(ctx, f.cfg.Providers[0].Name)
}

func (f *factory) ModelByProvider(ctx context.Context, provider llms.ProviderType) (llms.Model, error) {
	f.lock.Lock()
	defer f.lock.Unlock()

	if client, ok := f.byProvider[provider]; ok {
		return client, nil
	}

	for _, cfg := range f.cfg.Providers {
		if llms.ProviderType(strings.ToUpper(cfg.Provider)) != provider {
			continue
		}
		model, err := NewLLM(ctx, cfg)
		if err != nil {
			return nil, err
		}

		logger.KV(xlog.DEBUG,
			"status", "created_llm",
			"provider", cfg.Provider,
			"model", model.GetName(),
			"name", cfg.Name)

		f.byProvider[provider] = model
		f.byName[cfg.Name] = model
		return model, nil
	}
	return nil, errors.Newf("provider not found for type: %s", provider)
}

func (f *factory) ModelByName(ctx context.Context, name string) (llms.Model, error) {
	f.lock.Lock()
	defer f.lock.Unlock()

	if client, ok := f.byName[name]; ok {
		return client, nil
	}

	for _, cfg := range f.cfg.Providers {
		if cfg.Name != name {
			continue
		}
		model, err := NewLLM(ctx, cfg)
		if err != nil {
			return nil, err
		}

		logger.KV(xlog.DEBUG,
			"status", "created_llm",
			"provider", cfg.Provider,
			"model", model.GetName(),
			"name", cfg.Name)

		f.byName[name] = model
		return model, nil
	}
	return nil, errors.Newf("provider not found for name: %s", name)
}
