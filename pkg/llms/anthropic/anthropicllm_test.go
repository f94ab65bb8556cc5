package anthropic_test

import (
	"reflect"
	"testing"

	"github.com/effective-security/agenthub/pkg/llms"
	"github.com/effective-security/agenthub/pkg/llms/anthropic"
	"github.com/effective-security/agenthub/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "")

	_, err := anthropic.New()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing API key")

	allm, err := anthropic.New(anthropic.WithToken("fake-token"))
	require.NoError(t, err)
	assert.Equal(t, anthropic.DefaultModel, allm.GetName())
	assert.Equal(t, llms.ProviderAnthropic, allm.GetProviderType())

	t.Setenv("ANTHROPIC_API_KEY", "env-token")
	allm, err = anthropic.New(anthropic.WithModel("claude-opus-4-1"))
	require.NoError(t, err)
	assert.Equal(t, "env-token", allm.Options.Token)
	assert.Equal(t, "claude-opus-4-1", allm.GetName())
}

func TestProcessMessages(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name         string
		messages     []llms.Message
		wantMessages int
		wantSystem   string
		wantErr      bool
		errContains  string
	}{
		{
			name:         "empty messages",
			messages:     []llms.Message{},
			wantMessages: 0,
		},
		{
			name: "system messages are folded into the system prompt",
			messages: []llms.Message{
				llms.MessageFromTextParts(llms.RoleSystem, "You are a helpful assistant."),
				llms.MessageFromTextParts(llms.RoleSystem, "Always be polite."),
			},
			wantMessages: 0,
			wantSystem:   "You are a helpful assistant.\nAlways be polite.",
		},
		{
			name: "human message with text",
			messages: []llms.Message{
				llms.MessageFromTextParts(llms.RoleHuman, "Hello, how are you?"),
			},
			wantMessages: 1,
		},
		{
			name: "human message with image",
			messages: []llms.Message{
				llms.MessageFromParts(llms.RoleHuman,
					llms.TextPart("What's in this image?"),
					llms.BinaryPart("image/jpeg", []byte("fake-image-data")),
				),
			},
			wantMessages: 1,
		},
		{
			name: "AI message with tool call",
			messages: []llms.Message{
				llms.MessageFromParts(llms.RoleAI, llms.ToolCall{
					ID: "call_123",
					FunctionCall: &llms.FunctionCall{
						Name:      "get_weather",
						Arguments: `{"location": "Boston"}`,
					},
				}),
			},
			wantMessages: 1,
		},
		{
			name: "tool message",
			messages: []llms.Message{
				llms.MessageFromParts(llms.RoleTool, llms.ToolCallResponse{
					ToolCallID: "call_123",
					Content:    "The weather in Boston is sunny, 22°C",
				}),
			},
			wantMessages: 1,
		},
		{
			name: "unsupported binary content",
			messages: []llms.Message{
				llms.MessageFromParts(llms.RoleHuman,
					llms.BinaryPart("application/pdf", []byte("fake-pdf-data")),
				),
			},
			wantErr:     true,
			errContains: "unsupported binary content type",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			messages, system, err := anthropic.ProcessMessages(tt.messages)
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errContains)
				return
			}
			require.NoError(t, err)
			assert.Len(t, messages, tt.wantMessages)
			assert.Equal(t, tt.wantSystem, system)
		})
	}
}

func TestToTools(t *testing.T) {
	t.Parallel()

	type weatherParams struct {
		Location string `json:"location" jsonschema:"description=The city name"`
	}
	weatherSchema, err := schema.New(reflect.TypeOf(weatherParams{}))
	require.NoError(t, err)

	assert.Nil(t, anthropic.ToTools(nil))

	result := anthropic.ToTools([]llms.Tool{
		{
			Type: "function",
			Function: &llms.FunctionDefinition{
				Name:        "get_weather",
				Description: "Get current weather",
				Parameters:  weatherSchema.Parameters,
			},
		},
	})
	require.Len(t, result, 1)

	tool := result[0]
	require.NotNil(t, tool.OfTool)
	assert.Equal(t, "get_weather", tool.OfTool.Name)
	assert.Equal(t, "object", string(tool.OfTool.InputSchema.Type))
	assert.Contains(t, tool.OfTool.InputSchema.Properties, "location")
	assert.Equal(t, []string{"location"}, tool.OfTool.InputSchema.Required)
}
