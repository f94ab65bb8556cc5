package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/agenthub/pkg/llms"
	"github.com/effective-security/xlog"
	openaisdk "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/packages/param"
	"github.com/openai/openai-go/v3/shared"
)

var logger = xlog.NewPackageLogger("github.com/effective-security/agenthub", "openai")

var (
	// ErrEmptyResponse is returned when the API returns an empty response.
	ErrEmptyResponse = errors.New("openai: empty response")
	// ErrMissingToken is returned when the API token is not configured.
	ErrMissingToken = errors.New("openai: missing API key, set it in the OPENAI_API_KEY environment variable")
)

// LLM is an OpenAI-compatible chat completions client.
// The request and response bodies use the official SDK types, posted over
// a plain HTTP transport so the base URL and headers stay under our control.
type LLM struct {
	opts *Options
}

var _ llms.Model = (*LLM)(nil)

// New returns a new OpenAI LLM.
func New(opts ...Option) (*LLM, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}
	if o.token == "" {
		return nil, errors.WithStack(ErrMissingToken)
	}
	return &LLM{opts: o}, nil
}

// GetName implements the Model interface.
func (o *LLM) GetName() string {
	return o.opts.model
}

// GetProviderType implements the Model interface.
func (o *LLM) GetProviderType() llms.ProviderType {
	return o.opts.provider
}

// GenerateContent implements the Model interface.
func (o *LLM) GenerateContent(ctx context.Context, messages []llms.Message, options ...llms.CallOption) (*llms.ContentResponse, error) {
	opts := llms.CallOptions{
		Model:     o.opts.model,
		MaxTokens: DefaultMaxTokens,
	}
	for _, opt := range options {
		opt(&opts)
	}

	chatMsgs, err := toChatMessages(messages)
	if err != nil {
		return nil, err
	}

	payload := openaisdk.ChatCompletionNewParams{
		Model:               shared.ChatModel(opts.Model),
		Messages:            chatMsgs,
		MaxCompletionTokens: param.NewOpt(int64(opts.MaxTokens)),
	}
	if opts.Temperature > 0 {
		payload.Temperature = param.NewOpt(opts.Temperature)
	}
	if opts.TopP > 0 {
		payload.TopP = param.NewOpt(opts.TopP)
	}
	if opts.Seed > 0 {
		payload.Seed = param.NewOpt(int64(opts.Seed))
	}
	if len(opts.StopWords) > 0 {
		payload.Stop = openaisdk.ChatCompletionNewParamsStopUnion{
			OfStringArray: opts.StopWords,
		}
	}

	for _, tool := range opts.Tools {
		def, err := toFunctionDefinition(tool)
		if err != nil {
			return nil, err
		}
		payload.Tools = append(payload.Tools, openaisdk.ChatCompletionToolUnionParam{
			OfFunction: &openaisdk.ChatCompletionFunctionToolParam{
				Function: *def,
			},
		})
	}
	if tc, ok := opts.ToolChoice.(string); ok && tc != "" {
		payload.ToolChoice = openaisdk.ChatCompletionToolChoiceOptionUnionParam{
			OfAuto: param.NewOpt(tc),
		}
	}

	if rf := opts.ResponseFormat; rf != nil {
		if rf.JSONSchema != nil {
			var schemaDoc map[string]any
			bs, _ := json.Marshal(rf.JSONSchema.Schema)
			_ = json.Unmarshal(bs, &schemaDoc)
			payload.ResponseFormat = openaisdk.ChatCompletionNewParamsResponseFormatUnion{
				OfJSONSchema: &shared.ResponseFormatJSONSchemaParam{
					JSONSchema: shared.ResponseFormatJSONSchemaJSONSchemaParam{
						Name:   rf.JSONSchema.Name,
						Strict: param.NewOpt(rf.JSONSchema.Strict),
						Schema: schemaDoc,
					},
				},
			}
		} else {
			payload.ResponseFormat = openaisdk.ChatCompletionNewParamsResponseFormatUnion{
				OfJSONObject: &shared.ResponseFormatJSONObjectParam{},
			}
		}
	}

	resp, err := o.createChatCompletion(ctx, &payload)
	if err != nil {
		return nil, err
	}
	if len(resp.Choices) == 0 {
		return nil, errors.WithStack(ErrEmptyResponse)
	}

	res := &llms.ContentResponse{
		Usage: llms.Usage{
			InputTokens:  int(resp.Usage.PromptTokens),
			OutputTokens: int(resp.Usage.CompletionTokens),
			TotalTokens:  int(resp.Usage.TotalTokens),
		},
	}
	for _, c := range resp.Choices {
		choice := &llms.ContentChoice{
			Content:    c.Message.Content,
			StopReason: string(c.FinishReason),
		}
		for _, tc := range c.Message.ToolCalls {
			choice.ToolCalls = append(choice.ToolCalls, llms.ToolCall{
				ID:   tc.ID,
				Type: "function",
				FunctionCall: &llms.FunctionCall{
					Name:      tc.Function.Name,
					Arguments: tc.Function.Arguments,
				},
			})
		}
		res.Choices = append(res.Choices, choice)
	}
	return res, nil
}

func toChatMessages(messages []llms.Message) ([]openaisdk.ChatCompletionMessageParamUnion, error) {
	res := make([]openaisdk.ChatCompletionMessageParamUnion, 0, len(messages))
	for _, mc := range messages {
		switch mc.Role {
		case llms.RoleSystem:
			res = append(res, openaisdk.SystemMessage(llms.TextFromParts(mc.Parts)))
		case llms.RoleHuman:
			parts, err := toUserParts(mc.Parts)
			if err != nil {
				return nil, err
			}
			res = append(res, openaisdk.UserMessage(parts))
		case llms.RoleAI:
			msg := openaisdk.ChatCompletionAssistantMessageParam{}
			if text := llms.TextFromParts(mc.Parts); text != "" {
				msg.Content.OfString = param.NewOpt(text)
			}
			for _, p := range mc.Parts {
				if tc, ok := p.(llms.ToolCall); ok && tc.FunctionCall != nil {
					msg.ToolCalls = append(msg.ToolCalls, openaisdk.ChatCompletionMessageToolCallUnionParam{
						OfFunction: &openaisdk.ChatCompletionMessageFunctionToolCallParam{
							ID: tc.ID,
							Function: openaisdk.ChatCompletionMessageFunctionToolCallFunctionParam{
								Name:      tc.FunctionCall.Name,
								Arguments: tc.FunctionCall.Arguments,
							},
						},
					})
				}
			}
			res = append(res, openaisdk.ChatCompletionMessageParamUnion{OfAssistant: &msg})
		case llms.RoleTool:
			if len(mc.Parts) != 1 {
				return nil, errors.Newf("expected exactly one part for role %v, got %v", mc.Role, len(mc.Parts))
			}
			p, ok := mc.Parts[0].(llms.ToolCallResponse)
			if !ok {
				return nil, errors.Newf("expected part of type ToolCallResponse for role %v, got %T", mc.Role, mc.Parts[0])
			}
			res = append(res, openaisdk.ToolMessage(p.Content, p.ToolCallID))
		default:
			return nil, errors.Newf("role %v not supported", mc.Role)
		}
	}
	return res, nil
}

func toUserParts(parts []llms.ContentPart) ([]openaisdk.ChatCompletionContentPartUnionParam, error) {
	res := make([]openaisdk.ChatCompletionContentPartUnionParam, 0, len(parts))
	for _, p := range parts {
		switch pp := p.(type) {
		case llms.TextContent:
			res = append(res, openaisdk.TextContentPart(pp.Text))
		case llms.ImageURLContent:
			img := openaisdk.ChatCompletionContentPartImageImageURLParam{URL: pp.URL}
			if pp.Detail != "" {
				img.Detail = pp.Detail
			}
			res = append(res, openaisdk.ImageContentPart(img))
		case llms.BinaryContent:
			res = append(res, openaisdk.TextContentPart(pp.String()))
		default:
			return nil, errors.Newf("content part %T not supported", p)
		}
	}
	return res, nil
}

func toFunctionDefinition(tool llms.Tool) (*shared.FunctionDefinitionParam, error) {
	if tool.Function == nil {
		return nil, errors.New("tool function definition is required")
	}
	var params map[string]any
	if tool.Function.Parameters != nil {
		bs, err := json.Marshal(tool.Function.Parameters)
		if err != nil {
			return nil, errors.Wrap(err, "failed to marshal tool parameters")
		}
		if err := json.Unmarshal(bs, &params); err != nil {
			return nil, errors.Wrap(err, "failed to decode tool parameters")
		}
	}
	def := &shared.FunctionDefinitionParam{
		Name:       tool.Function.Name,
		Parameters: shared.FunctionParameters(params),
	}
	if tool.Function.Description != "" {
		def.Description = param.NewOpt(tool.Function.Description)
	}
	if tool.Function.Strict {
		def.Strict = param.NewOpt(true)
	}
	return def, nil
}

type errorMessage struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// createChatCompletion posts to {base}/chat/completions and decodes the reply.
func (o *LLM) createChatCompletion(ctx context.Context, payload *openaisdk.ChatCompletionNewParams) (*openaisdk.ChatCompletion, error) {
	bodyBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, errors.Wrap(err, "marshal payload")
	}

	u := strings.TrimSuffix(o.opts.baseURL, "/") + "/chat/completions"
	logger.ContextKV(ctx, xlog.DEBUG, "url", u, "model", payload.Model)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, errors.Wrap(err, "create request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+o.opts.token)
	if o.opts.organization != "" {
		req.Header.Set("OpenAI-Organization", o.opts.organization)
	}

	r, err := o.opts.httpClient.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "send request")
	}
	defer func() { _ = r.Body.Close() }()

	body, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, errors.Wrap(err, "read body")
	}
	if r.StatusCode != http.StatusOK {
		var errResp errorMessage
		if err := json.Unmarshal(body, &errResp); err != nil || errResp.Error.Message == "" {
			return nil, errors.Newf("API returned unexpected status code: %d", r.StatusCode)
		}
		return nil, errors.Newf("API returned unexpected status code: %d: %s", r.StatusCode, errResp.Error.Message)
	}

	var resp openaisdk.ChatCompletion
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, errors.Wrap(err, "decode response")
	}
	return &resp, nil
}
