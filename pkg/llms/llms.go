package llms

import (
	"context"
)

// ProviderType is the type of provider.
type ProviderType string

const (
	// ProviderOpenAI is the OpenAI chat completions API.
	ProviderOpenAI ProviderType = "OPENAI"
	// ProviderAnthropic is the Anthropic messages API.
	ProviderAnthropic ProviderType = "ANTHROPIC"
	// ProviderGoogleAI is the Google Gemini API.
	ProviderGoogleAI ProviderType = "GOOGLEAI"
	// ProviderGroq is the Groq OpenAI-compatible API.
	ProviderGroq ProviderType = "GROQ"
)

// Model is an interface multi-modal models implement.
type Model interface {
	// GetName returns the name of the model.
	GetName() string
	// GetProviderType returns the type of provider.
	GetProviderType() ProviderType
	// GenerateContent asks the model to generate content from a sequence of
	// messages. It's the most general interface for multi-modal LLMs that support
	// chat-like interactions.
	GenerateContent(ctx context.Context, messages []Message, options ...CallOption) (*ContentResponse, error)
}

// Capability is a bitmask indicating supported features of an LLM provider.
type Capability uint64

const (
	// Basic text or chat generation
	CapabilityText Capability = 1 << iota

	// Structured response formats
	CapabilityJSONResponse
	CapabilityJSONSchema
	CapabilityJSONSchemaStrict

	// Function/tool calling
	CapabilityFunctionCalling
	CapabilityMultiToolCalling

	// Multimodal
	CapabilityVision

	// System prompt support
	CapabilitySystemPrompt
)

var providerCapabilities = map[ProviderType]Capability{
	ProviderOpenAI: CapabilityText |
		CapabilityJSONResponse |
		CapabilityJSONSchema |
		CapabilityJSONSchemaStrict |
		CapabilityFunctionCalling |
		CapabilityMultiToolCalling |
		CapabilitySystemPrompt |
		CapabilityVision,

	ProviderAnthropic: CapabilityText |
		CapabilityJSONResponse |
		CapabilityFunctionCalling |
		CapabilityMultiToolCalling |
		CapabilitySystemPrompt |
		CapabilityVision,

	ProviderGoogleAI: CapabilityText |
		CapabilityJSONResponse |
		CapabilityJSONSchema |
		CapabilityFunctionCalling |
		CapabilityMultiToolCalling |
		CapabilitySystemPrompt |
		CapabilityVision,

	// Groq serves open-weight models behind an OpenAI-compatible endpoint,
	// without the strict schema guarantees.
	ProviderGroq: CapabilityText |
		CapabilityJSONResponse |
		CapabilityFunctionCalling |
		CapabilityMultiToolCalling |
		CapabilitySystemPrompt,
}

// ProviderCapabilities returns the capability bitmask for the provider.
func ProviderCapabilities(pt ProviderType) Capability {
	return providerCapabilities[pt]
}

// Supports reports whether the provider supports all of the given capabilities.
func (pt ProviderType) Supports(cap Capability) bool {
	return providerCapabilities[pt]&cap == cap
}
