package agents

import (
	"github.com/effective-security/agenthub/chatmodel"
	"github.com/effective-security/agenthub/encoding"
	"github.com/effective-security/agenthub/pkg/llms"
	"github.com/effective-security/agenthub/schema"
	"github.com/effective-security/agenthub/store"
)

// Run limits applied when the config does not override them.
const (
	DefaultMaxRetries     = 3
	DefaultMaxMessages    = 100
	DefaultMaxContentSize = 1024 * 1024
	DefaultMaxToolCalls   = 20
)

// Option is a function that can be used to modify the agent Config.
type Option func(*Config)

// Config holds LLM call parameters and agent run limits.
type Config struct {
	// Model is the model to use in an LLM call.
	Model    string
	modelSet bool

	// MaxTokens is the maximum number of tokens to generate in an LLM call.
	MaxTokens    int
	maxTokensSet bool

	// Temperature is the sampling temperature, between 0 and 1.
	Temperature    float64
	temperatureSet bool

	// StopWords is a list of words to stop on.
	StopWords    []string
	stopWordsSet bool

	// TopP is the cumulative probability for top-p sampling.
	TopP    float64
	toppSet bool

	// Seed is a seed for deterministic sampling.
	Seed    int
	seedSet bool

	// ToolChoice is "none", "auto" (the default), or a specific tool.
	ToolChoice    any
	toolChoiceSet bool

	tools    []llms.Tool
	toolsSet bool

	// ResponseFormat is the native structured-output format, set by the
	// agent when the provider supports it.
	ResponseFormat *schema.ResponseFormat

	//
	// Agent options, not related to a single LLM call.
	//

	// CallbackHandler receives agent and tool lifecycle events.
	CallbackHandler Callback

	// Store persists conversation history. No history is kept when nil.
	Store store.MessageStore

	// Mode selects the output encoding for parsed responses.
	Mode encoding.Mode

	// PromptInput provides default values for the system prompt template.
	PromptInput map[string]any

	// Examples are few-shot examples prepended to the conversation.
	Examples chatmodel.FewShotExamples

	// MaxMessages limits the conversation length per run.
	MaxMessages int

	// MaxContentSize limits the total request size in bytes per run.
	MaxContentSize uint64

	// MaxToolCalls limits the number of tool invocations per run.
	MaxToolCalls int

	// SkipMessageHistory disables persisting run messages to the Store.
	SkipMessageHistory bool

	// SkipToolHistory excludes tool calls and responses from persisted history.
	SkipToolHistory bool
}

// NewConfig creates a Config with defaults applied.
func NewConfig(opts ...Option) *Config {
	cfg := &Config{
		Mode:           encoding.ModeDefault,
		MaxMessages:    DefaultMaxMessages,
		MaxContentSize: DefaultMaxContentSize,
		MaxToolCalls:   DefaultMaxToolCalls,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// Apply returns a copy of the config with the given options applied.
func (c *Config) Apply(opts ...Option) *Config {
	if len(opts) == 0 {
		return c
	}
	cfg := *c
	for _, opt := range opts {
		opt(&cfg)
	}
	return &cfg
}

// WithMode specifies the output encoding mode.
func WithMode(mode encoding.Mode) Option {
	return func(o *Config) {
		o.Mode = mode
	}
}

// WithExamples specifies the few-shot examples for the conversation.
func WithExamples(examples chatmodel.FewShotExamples) Option {
	return func(o *Config) {
		o.Examples = examples
	}
}

// WithStore sets the message store for conversation history.
func WithStore(s store.MessageStore) Option {
	return func(o *Config) {
		o.Store = s
	}
}

// WithSkipMessageHistory skips persisting run messages to the store.
func WithSkipMessageHistory(skip bool) Option {
	return func(o *Config) {
		o.SkipMessageHistory = skip
	}
}

// WithSkipToolHistory excludes tool traffic from persisted history.
func WithSkipToolHistory(skip bool) Option {
	return func(o *Config) {
		o.SkipToolHistory = skip
	}
}

// WithPromptInput specifies default system prompt inputs.
func WithPromptInput(input map[string]any) Option {
	return func(o *Config) {
		o.PromptInput = input
	}
}

// WithModel overrides the model for LLM calls.
func WithModel(model string) Option {
	return func(o *Config) {
		o.Model = model
		o.modelSet = true
	}
}

// WithMaxTokens sets the generation token budget.
func WithMaxTokens(maxTokens int) Option {
	return func(o *Config) {
		o.MaxTokens = maxTokens
		o.maxTokensSet = true
	}
}

// WithTemperature sets the sampling temperature.
func WithTemperature(temperature float64) Option {
	return func(o *Config) {
		o.Temperature = temperature
		o.temperatureSet = true
	}
}

// WithTopP sets top-p sampling.
func WithTopP(topP float64) Option {
	return func(o *Config) {
		o.TopP = topP
		o.toppSet = true
	}
}

// WithSeed sets deterministic sampling.
func WithSeed(seed int) Option {
	return func(o *Config) {
		o.Seed = seed
		o.seedSet = true
	}
}

// WithStopWords sets the stop words.
func WithStopWords(stopWords []string) Option {
	return func(o *Config) {
		o.StopWords = stopWords
		o.stopWordsSet = true
	}
}

// WithCallback sets a custom callback handler.
func WithCallback(callbackHandler Callback) Option {
	return func(o *Config) {
		o.CallbackHandler = callbackHandler
	}
}

// WithToolChoice sets the tool choice for LLM calls.
func WithToolChoice(choice any) Option {
	return func(o *Config) {
		o.ToolChoice = choice
		o.toolChoiceSet = true
	}
}

// WithMaxMessages limits the conversation length per run.
func WithMaxMessages(limit int) Option {
	return func(o *Config) {
		o.MaxMessages = limit
	}
}

// WithMaxContentSize limits the total request size in bytes per run.
func WithMaxContentSize(limit uint64) Option {
	return func(o *Config) {
		o.MaxContentSize = limit
	}
}

// WithMaxToolCalls limits the number of tool invocations per run.
func WithMaxToolCalls(limit int) Option {
	return func(o *Config) {
		o.MaxToolCalls = limit
	}
}

func withTools(tools []llms.Tool) Option {
	return func(o *Config) {
		o.tools = tools
		o.toolsSet = true
	}
}

// GetCallOptions converts the config to LLM call options.
func (c *Config) GetCallOptions(options ...Option) []llms.CallOption {
	cfg := c.Apply(options...)

	var callOpts []llms.CallOption
	if cfg.modelSet {
		callOpts = append(callOpts, llms.WithModel(cfg.Model))
	}
	if cfg.maxTokensSet {
		callOpts = append(callOpts, llms.WithMaxTokens(cfg.MaxTokens))
	}
	if cfg.temperatureSet {
		callOpts = append(callOpts, llms.WithTemperature(cfg.Temperature))
	}
	if cfg.stopWordsSet {
		callOpts = append(callOpts, llms.WithStopWords(cfg.StopWords))
	}
	if cfg.toppSet {
		callOpts = append(callOpts, llms.WithTopP(cfg.TopP))
	}
	if cfg.seedSet {
		callOpts = append(callOpts, llms.WithSeed(cfg.Seed))
	}
	if cfg.toolsSet {
		callOpts = append(callOpts, llms.WithTools(cfg.tools))
	}
	if cfg.toolChoiceSet {
		callOpts = append(callOpts, llms.WithToolChoice(cfg.ToolChoice))
	}
	if cfg.ResponseFormat != nil {
		callOpts = append(callOpts, llms.WithResponseFormat(cfg.ResponseFormat))
	}
	return callOpts
}
