// Package agents provides the core chat agent: a prompt-templated LLM call
// with typed output parsing, tool execution, and conversation history.
package agents

import (
	"context"
	"fmt"
	"strings"

	"github.com/effective-security/agenthub/chatmodel"
	"github.com/effective-security/agenthub/pkg/llms"
	"github.com/effective-security/agenthub/tools"
	"github.com/effective-security/xlog"
)

var logger = xlog.NewPackageLogger("github.com/effective-security/agenthub", "agents")

// IAgent is the minimal surface of an agent, used when one agent describes
// another in its prompt.
type IAgent interface {
	// Name returns the name of the agent.
	Name() string
	// Description returns the description of the agent, to be used in the
	// prompt of other agents or LLMs. Should not exceed LLM model limit.
	Description() string
	// FormatPrompt renders the system prompt with the given inputs.
	FormatPrompt(values map[string]any) (llms.PromptValue, error)
	// GetPromptInputVariables returns the required prompt input names.
	GetPromptInputVariables() []string

	Call(ctx context.Context, input *CallInput) (*llms.ContentResponse, error)
}

// Callback receives agent lifecycle events.
type Callback interface {
	tools.Callback
	OnAgentStart(ctx context.Context, agent IAgent, input string)
	OnAgentEnd(ctx context.Context, agent IAgent, input string, resp *llms.ContentResponse, messages []llms.Message)
	OnAgentError(ctx context.Context, agent IAgent, input string, err error, messages []llms.Message)
	OnAgentLLMParseError(ctx context.Context, agent IAgent, input string, response string, err error)
	OnAgentLLMCallStart(ctx context.Context, agent IAgent, llm llms.Model, payload []llms.Message)
	OnAgentLLMCallEnd(ctx context.Context, agent IAgent, llm llms.Model, resp *llms.ContentResponse)
	OnToolNotFound(ctx context.Context, agent IAgent, tool string)
}

// CallInput is the input for an agent call.
type CallInput struct {
	// Input is the user question or task.
	Input string
	// PromptInputs provides values for the system prompt template.
	PromptInputs map[string]any
	// Messages are appended to the conversation after the user input.
	Messages []llms.Message
	// Options override the agent configuration for this call.
	Options []Option
}

// TypeableAgent is an agent with a typed output.
type TypeableAgent[O chatmodel.ContentProvider] interface {
	IAgent
	// Run executes the agent and decodes the output into optionalOutput.
	Run(ctx context.Context, input *CallInput, optionalOutput *O) (*llms.ContentResponse, error)
}

// GetDescriptions renders a markdown list of agent names and descriptions.
func GetDescriptions(list ...IAgent) string {
	var ts strings.Builder
	for _, item := range list {
		ts.WriteString(fmt.Sprintf("- `%s`: %s\n", item.Name(), item.Description()))
	}
	return ts.String()
}

// MapAgents returns the agents keyed by name.
func MapAgents(list ...IAgent) map[string]IAgent {
	if len(list) == 0 {
		return nil
	}
	m := make(map[string]IAgent, len(list))
	for _, a := range list {
		m[a.Name()] = a
	}
	return m
}
