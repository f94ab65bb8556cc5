package agents_test

import (
	"context"
	"reflect"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/agenthub/agents"
	"github.com/effective-security/agenthub/chatmodel"
	"github.com/effective-security/agenthub/encoding"
	"github.com/effective-security/agenthub/pkg/llms"
	"github.com/effective-security/agenthub/prompts"
	"github.com/effective-security/agenthub/schema"
	"github.com/effective-security/agenthub/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeModel returns scripted responses and records the requests.
type fakeModel struct {
	provider  llms.ProviderType
	responses []*llms.ContentResponse
	requests  [][]llms.Message
}

func (m *fakeModel) GetName() string                    { return "fake-model" }
func (m *fakeModel) GetProviderType() llms.ProviderType { return m.provider }

func (m *fakeModel) GenerateContent(ctx context.Context, messages []llms.Message, options ...llms.CallOption) (*llms.ContentResponse, error) {
	m.requests = append(m.requests, messages)
	if len(m.responses) == 0 {
		return nil, errors.New("no scripted response")
	}
	resp := m.responses[0]
	m.responses = m.responses[1:]
	return resp, nil
}

func textResponse(content string) *llms.ContentResponse {
	return &llms.ContentResponse{
		Choices: []*llms.ContentChoice{
			{Content: content, StopReason: "stop"},
		},
	}
}

var sysPrompt = prompts.MustNewPromptTemplate(
	"You are {{.role}}.", []string{"role"})

func TestAgentPlainText(t *testing.T) {
	t.Parallel()

	model := &fakeModel{
		provider:  llms.ProviderAnthropic,
		responses: []*llms.ContentResponse{textResponse("All systems nominal.")},
	}

	ag := agents.NewAgent[chatmodel.String](model, sysPrompt,
		agents.WithMode(encoding.ModePlainText),
		agents.WithPromptInput(map[string]any{"role": "a status reporter"}),
	).WithName("Reporter")

	var out chatmodel.String
	resp, err := ag.Run(context.Background(), &agents.CallInput{Input: "status?"}, &out)
	require.NoError(t, err)
	require.Len(t, resp.Choices, 1)
	assert.Equal(t, "All systems nominal.", out.GetContent())

	// first request carries [system, human]
	require.Len(t, model.requests, 1)
	sent := model.requests[0]
	require.Len(t, sent, 2)
	assert.Equal(t, llms.RoleSystem, sent[0].Role)
	assert.Equal(t, "You are a status reporter.", llms.TextFromParts(sent[0].Parts))
	assert.Equal(t, llms.RoleHuman, sent[1].Role)

	runMsgs := ag.LastRunMessages()
	require.Len(t, runMsgs, 2)
	assert.Equal(t, llms.RoleAI, runMsgs[1].Role)
}

type cityInput struct {
	City string `json:"city"`
}

type cityTool struct {
	called int
}

func (t *cityTool) Name() string        { return "city_lookup" }
func (t *cityTool) Description() string { return "Looks up facts about a city." }
func (t *cityTool) Parameters() any {
	s, _ := schema.New(reflect.TypeOf(cityInput{}))
	return s.Parameters
}
func (t *cityTool) Call(ctx context.Context, input string) (string, error) {
	t.called++
	return `{"population": 650000}`, nil
}

func TestAgentToolLoop(t *testing.T) {
	t.Parallel()

	toolCallResp := &llms.ContentResponse{
		Choices: []*llms.ContentChoice{
			{
				StopReason: "tool_calls",
				ToolCalls: []llms.ToolCall{
					{
						ID:   "call_1",
						Type: "function",
						FunctionCall: &llms.FunctionCall{
							Name:      "city_lookup",
							Arguments: `{"city": "Boston"}`,
						},
					},
				},
			},
		},
	}

	model := &fakeModel{
		provider: llms.ProviderOpenAI,
		responses: []*llms.ContentResponse{
			toolCallResp,
			textResponse("Boston has about 650k residents."),
		},
	}

	tool := &cityTool{}
	ag := agents.NewAgent[chatmodel.String](model, sysPrompt,
		agents.WithMode(encoding.ModePlainText),
		agents.WithPromptInput(map[string]any{"role": "a city guide"}),
	).WithName("CityGuide").WithTools(tool)

	var out chatmodel.String
	_, err := ag.Run(context.Background(), &agents.CallInput{Input: "How big is Boston?"}, &out)
	require.NoError(t, err)
	assert.Equal(t, 1, tool.called)
	assert.Equal(t, "Boston has about 650k residents.", out.GetContent())

	// the second request ends with the tool response
	require.Len(t, model.requests, 2)
	second := model.requests[1]
	last := second[len(second)-1]
	assert.Equal(t, llms.RoleTool, last.Role)
	require.Len(t, last.Parts, 1)
	tr, ok := last.Parts[0].(llms.ToolCallResponse)
	require.True(t, ok)
	assert.Equal(t, "call_1", tr.ToolCallID)
	assert.Contains(t, tr.Content, "650000")
}

func TestAgentToolCallsLimit(t *testing.T) {
	t.Parallel()

	toolCallResp := &llms.ContentResponse{
		Choices: []*llms.ContentChoice{
			{
				ToolCalls: []llms.ToolCall{
					{
						ID:           "call_loop",
						Type:         "function",
						FunctionCall: &llms.FunctionCall{Name: "city_lookup", Arguments: `{"city": "Boston"}`},
					},
				},
			},
		},
	}
	// the model keeps asking for the same tool
	model := &fakeModel{
		provider: llms.ProviderOpenAI,
		responses: []*llms.ContentResponse{
			toolCallResp, toolCallResp, toolCallResp,
		},
	}

	ag := agents.NewAgent[chatmodel.String](model, sysPrompt,
		agents.WithMode(encoding.ModePlainText),
		agents.WithPromptInput(map[string]any{"role": "a city guide"}),
		agents.WithMaxToolCalls(2),
	).WithTools(&cityTool{})

	_, err := ag.Call(context.Background(), &agents.CallInput{Input: "loop"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "tool calls limit is exceeded")
}

func TestAgentToolNotFoundLimit(t *testing.T) {
	t.Parallel()

	notFoundResp := &llms.ContentResponse{
		Choices: []*llms.ContentChoice{
			{
				ToolCalls: []llms.ToolCall{
					{
						ID:           "call_missing",
						Type:         "function",
						FunctionCall: &llms.FunctionCall{Name: "unknown_tool", Arguments: `{}`},
					},
				},
			},
		},
	}
	// the model keeps asking for a tool that does not exist, one per round
	model := &fakeModel{
		provider: llms.ProviderOpenAI,
		responses: []*llms.ContentResponse{
			notFoundResp, notFoundResp, notFoundResp, notFoundResp,
		},
	}

	ag := agents.NewAgent[chatmodel.String](model, sysPrompt,
		agents.WithMode(encoding.ModePlainText),
		agents.WithPromptInput(map[string]any{"role": "a city guide"}),
	).WithTools(&cityTool{})

	_, err := ag.Call(context.Background(), &agents.CallInput{Input: "loop"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "number of not found tools is exceeded")
	assert.Len(t, model.requests, 4)
}

type weatherReport struct {
	City    string `json:"city"`
	Summary string `json:"summary"`
}

func (w weatherReport) GetContent() string { return w.Summary }

func TestAgentTypedOutput(t *testing.T) {
	t.Parallel()

	model := &fakeModel{
		provider: llms.ProviderOpenAI,
		responses: []*llms.ContentResponse{
			textResponse("```json\n{\"city\": \"Boston\", \"summary\": \"sunny\"}\n```"),
		},
	}

	ag := agents.NewAgent[weatherReport](model, sysPrompt,
		agents.WithMode(encoding.ModeJSON),
		agents.WithPromptInput(map[string]any{"role": "a weather reporter"}),
	)

	var out weatherReport
	_, err := ag.Run(context.Background(), &agents.CallInput{Input: "Boston weather"}, &out)
	require.NoError(t, err)
	assert.Equal(t, "Boston", out.City)
	assert.Equal(t, "sunny", out.Summary)
}

func TestAgentReformatRetry(t *testing.T) {
	t.Parallel()

	// the first response is unparsable, the reformat round recovers
	model := &fakeModel{
		provider: llms.ProviderOpenAI,
		responses: []*llms.ContentResponse{
			textResponse("this is not json"),
			textResponse(`{"city": "Boston", "summary": "sunny"}`),
		},
	}

	ag := agents.NewAgent[weatherReport](model, sysPrompt,
		agents.WithMode(encoding.ModeJSON),
		agents.WithPromptInput(map[string]any{"role": "a weather reporter"}),
	)

	var out weatherReport
	_, err := ag.Run(context.Background(), &agents.CallInput{Input: "Boston weather"}, &out)
	require.NoError(t, err)
	assert.Equal(t, "Boston", out.City)
	assert.Equal(t, "sunny", out.Summary)

	// the retry request carries the bad response and a reformat instruction
	require.Len(t, model.requests, 2)
	second := model.requests[1]
	require.GreaterOrEqual(t, len(second), 4)
	assert.Equal(t, llms.RoleAI, second[len(second)-2].Role)
	assert.Equal(t, "this is not json", llms.TextFromParts(second[len(second)-2].Parts))
	last := second[len(second)-1]
	assert.Equal(t, llms.RoleHuman, last.Role)
	assert.Contains(t, llms.TextFromParts(last.Parts), "could not be parsed")
}

func TestAgentParseError(t *testing.T) {
	t.Parallel()

	model := &fakeModel{
		provider: llms.ProviderOpenAI,
		responses: []*llms.ContentResponse{
			textResponse("this is not json"),
			textResponse("still not json"),
		},
	}

	ag := agents.NewAgent[weatherReport](model, sysPrompt,
		agents.WithMode(encoding.ModeJSON),
		agents.WithPromptInput(map[string]any{"role": "a weather reporter"}),
	)

	var out weatherReport
	_, err := ag.Run(context.Background(), &agents.CallInput{Input: "Boston weather"}, &out)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to decode")
	// one reformat attempt, then fail
	assert.Len(t, model.requests, 2)
}

func TestAgentHistoryStore(t *testing.T) {
	t.Parallel()

	model := &fakeModel{
		provider: llms.ProviderOpenAI,
		responses: []*llms.ContentResponse{
			textResponse("Hello, nice to meet you."),
			textResponse("You said your name is Alex."),
		},
	}

	s := store.NewMemoryStore()
	ag := agents.NewAgent[chatmodel.String](model, sysPrompt,
		agents.WithMode(encoding.ModePlainText),
		agents.WithPromptInput(map[string]any{"role": "an assistant"}),
		agents.WithStore(s),
	)

	ctx := chatmodel.WithChatContext(context.Background(), chatmodel.NewChatContext("chat-1", nil))

	_, err := ag.Call(ctx, &agents.CallInput{Input: "My name is Alex."})
	require.NoError(t, err)

	_, err = ag.Call(ctx, &agents.CallInput{Input: "What is my name?"})
	require.NoError(t, err)

	// the second request includes the stored first exchange
	require.Len(t, model.requests, 2)
	second := model.requests[1]
	require.GreaterOrEqual(t, len(second), 4)
	assert.Equal(t, "My name is Alex.", llms.TextFromParts(second[1].Parts))
	assert.Equal(t, "Hello, nice to meet you.", llms.TextFromParts(second[2].Parts))
}

func TestGetDescriptions(t *testing.T) {
	t.Parallel()

	model := &fakeModel{provider: llms.ProviderOpenAI}
	a := agents.NewAgent[chatmodel.String](model, sysPrompt,
		agents.WithMode(encoding.ModePlainText)).
		WithName("Researcher").
		WithDescription("Finds facts.")
	b := agents.NewAgent[chatmodel.String](model, sysPrompt,
		agents.WithMode(encoding.ModePlainText)).
		WithName("Writer").
		WithDescription("Writes prose.")

	desc := agents.GetDescriptions(a, b)
	assert.Contains(t, desc, "- `Researcher`: Finds facts.")
	assert.Contains(t, desc, "- `Writer`: Writes prose.")

	m := agents.MapAgents(a, b)
	require.Len(t, m, 2)
	assert.Same(t, a, m["Researcher"])
}
