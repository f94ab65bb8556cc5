package openai_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"

	"github.com/effective-security/agenthub/pkg/llms"
	"github.com/effective-security/agenthub/pkg/llms/openai"
	"github.com/effective-security/agenthub/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")

	_, err := openai.New()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing API key")

	llm, err := openai.New(openai.WithToken("fake-token"))
	require.NoError(t, err)
	assert.Equal(t, openai.DefaultModel, llm.GetName())
	assert.Equal(t, llms.ProviderOpenAI, llm.GetProviderType())

	llm, err = openai.New(
		openai.WithToken("fake-token"),
		openai.WithModel("gpt-5"),
		openai.WithProvider(llms.ProviderGroq),
	)
	require.NoError(t, err)
	assert.Equal(t, "gpt-5", llm.GetName())
	assert.Equal(t, llms.ProviderGroq, llm.GetProviderType())
}

func TestGenerateContent(t *testing.T) {
	var gotReq map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/chat/completions", r.URL.Path)
		require.Equal(t, "Bearer fake-token", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "chatcmpl-123",
			"object": "chat.completion",
			"model": "gpt-5-mini",
			"choices": [
				{
					"index": 0,
					"finish_reason": "stop",
					"message": {"role": "assistant", "content": "Hello there!"}
				}
			],
			"usage": {"prompt_tokens": 12, "completion_tokens": 4, "total_tokens": 16}
		}`))
	}))
	defer srv.Close()

	llm, err := openai.New(
		openai.WithToken("fake-token"),
		openai.WithBaseURL(srv.URL),
	)
	require.NoError(t, err)

	resp, err := llm.GenerateContent(context.Background(),
		[]llms.Message{
			llms.MessageFromTextParts(llms.RoleSystem, "You are a helpful assistant."),
			llms.MessageFromTextParts(llms.RoleHuman, "Say hello."),
		},
		llms.WithTemperature(0.2),
		llms.WithMaxTokens(128),
	)
	require.NoError(t, err)

	require.Len(t, resp.Choices, 1)
	assert.Equal(t, "Hello there!", resp.Choices[0].Content)
	assert.Equal(t, "stop", resp.Choices[0].StopReason)
	assert.Equal(t, 12, resp.Usage.InputTokens)
	assert.Equal(t, 4, resp.Usage.OutputTokens)
	assert.Equal(t, 16, resp.Usage.TotalTokens)

	assert.Equal(t, "gpt-5-mini", gotReq["model"])
	msgs, ok := gotReq["messages"].([]any)
	require.True(t, ok)
	require.Len(t, msgs, 2)
}

func TestGenerateContentToolCalls(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		tools, ok := req["tools"].([]any)
		require.True(t, ok)
		require.Len(t, tools, 1)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "chatcmpl-456",
			"object": "chat.completion",
			"choices": [
				{
					"index": 0,
					"finish_reason": "tool_calls",
					"message": {
						"role": "assistant",
						"tool_calls": [
							{
								"id": "call_abc",
								"type": "function",
								"function": {"name": "get_weather", "arguments": "{\"location\": \"Boston\"}"}
							}
						]
					}
				}
			],
			"usage": {"prompt_tokens": 20, "completion_tokens": 8, "total_tokens": 28}
		}`))
	}))
	defer srv.Close()

	llm, err := openai.New(
		openai.WithToken("fake-token"),
		openai.WithBaseURL(srv.URL),
	)
	require.NoError(t, err)

	type weatherParams struct {
		Location string `json:"location"`
	}
	s, err := schema.New(reflect.TypeOf(weatherParams{}))
	require.NoError(t, err)

	resp, err := llm.GenerateContent(context.Background(),
		[]llms.Message{
			llms.MessageFromTextParts(llms.RoleHuman, "What's the weather in Boston?"),
		},
		llms.WithTools([]llms.Tool{
			{
				Type: "function",
				Function: &llms.FunctionDefinition{
					Name:        "get_weather",
					Description: "Get current weather",
					Parameters:  s.Parameters,
				},
			},
		}),
	)
	require.NoError(t, err)

	require.Len(t, resp.Choices, 1)
	require.Len(t, resp.Choices[0].ToolCalls, 1)
	tc := resp.Choices[0].ToolCalls[0]
	assert.Equal(t, "call_abc", tc.ID)
	assert.Equal(t, "get_weather", tc.FunctionCall.Name)
	assert.JSONEq(t, `{"location": "Boston"}`, tc.FunctionCall.Arguments)
	assert.Equal(t, "tool_calls", resp.Choices[0].StopReason)
}

func TestGenerateContentAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error": {"message": "Incorrect API key provided", "type": "invalid_request_error"}}`))
	}))
	defer srv.Close()

	llm, err := openai.New(
		openai.WithToken("bad-token"),
		openai.WithBaseURL(srv.URL),
	)
	require.NoError(t, err)

	_, err = llm.GenerateContent(context.Background(),
		[]llms.Message{llms.MessageFromTextParts(llms.RoleHuman, "hi")},
	)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Incorrect API key provided")
}
