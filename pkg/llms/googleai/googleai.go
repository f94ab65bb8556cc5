// Package googleai provides an llms.Model backed by the Google Gemini API.
// See https://ai.google.dev/ for more details.
package googleai

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/agenthub/pkg/llms"
	"github.com/effective-security/agenthub/pkg/llms/googleai/internal/genaiutils"
	"google.golang.org/genai"
)

var (
	// ErrMissingAPIKey is returned when no API key is configured.
	ErrMissingAPIKey = errors.New("googleai: missing API key, set it in the GEMINI_API_KEY environment variable")
	// ErrNoContentInResponse is returned when the API produces no candidates.
	ErrNoContentInResponse = errors.New("googleai: no content in generation response")
	// ErrUnknownPartInResponse is returned for response parts this client cannot map.
	ErrUnknownPartInResponse = errors.New("googleai: unknown part type in generation response")
)

const (
	roleModel = "model"
	roleUser  = "user"
	roleTool  = "tool"

	responseMIMETypeJSON = "application/json"
)

// GoogleAI is a Gemini API client.
type GoogleAI struct {
	client *genai.Client
	opts   Options
}

var _ llms.Model = (*GoogleAI)(nil)

// New creates a new GoogleAI client. The API key is read from the
// GEMINI_API_KEY or GOOGLE_API_KEY environment variable unless provided
// with WithAPIKey.
func New(ctx context.Context, opts ...Option) (*GoogleAI, error) {
	clientOptions := DefaultOptions()
	for _, opt := range opts {
		opt(&clientOptions)
	}
	if clientOptions.APIKey == "" {
		return nil, ErrMissingAPIKey
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:     clientOptions.APIKey,
		HTTPClient: clientOptions.HTTPClient,
		Backend:    genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, errors.Wrap(err, "googleai: failed to create client")
	}

	return &GoogleAI{
		client: client,
		opts:   clientOptions,
	}, nil
}

// GetName implements the Model interface.
func (g *GoogleAI) GetName() string {
	return g.opts.DefaultModel
}

// GetProviderType implements the Model interface.
func (g *GoogleAI) GetProviderType() llms.ProviderType {
	return llms.ProviderGoogleAI
}

// GenerateContent implements the Model interface.
func (g *GoogleAI) GenerateContent(ctx context.Context, messages []llms.Message, options ...llms.CallOption) (*llms.ContentResponse, error) {
	opts := llms.CallOptions{
		Model:       g.opts.DefaultModel,
		MaxTokens:   g.opts.DefaultMaxTokens,
		Temperature: g.opts.DefaultTemperature,
		TopP:        g.opts.DefaultTopP,
	}
	for _, opt := range options {
		opt(&opts)
	}

	callCfg := &genai.GenerateContentConfig{
		StopSequences:   opts.StopWords,
		MaxOutputTokens: int32(opts.MaxTokens),
		Temperature:     genaiutils.Float32Ptr(float32(opts.Temperature)),
		TopP:            genaiutils.Float32Ptr(float32(opts.TopP)),
		Seed:            genaiutils.Int32Ptr(int32(opts.Seed)),
	}

	callCfg.SafetySettings = []*genai.SafetySetting{
		{
			Category:  genai.HarmCategoryDangerousContent,
			Threshold: g.opts.HarmThreshold,
		},
		{
			Category:  genai.HarmCategoryHarassment,
			Threshold: g.opts.HarmThreshold,
		},
		{
			Category:  genai.HarmCategoryHateSpeech,
			Threshold: g.opts.HarmThreshold,
		},
		{
			Category:  genai.HarmCategorySexuallyExplicit,
			Threshold: g.opts.HarmThreshold,
		},
	}

	var err error
	if callCfg.Tools, err = genaiutils.ConvertTools(opts.Tools); err != nil {
		return nil, err
	}

	// The Gemini API rejects structured output combined with function
	// declarations, so the response schema is applied only without tools.
	if len(callCfg.Tools) == 0 && opts.ResponseFormat != nil && opts.ResponseFormat.Type != "" && opts.ResponseFormat.Type != "text" {
		callCfg.ResponseMIMEType = responseMIMETypeJSON
		if opts.ResponseFormat.JSONSchema != nil {
			callCfg.ResponseSchema = genaiutils.ConvertResponseFormatSchema(opts.ResponseFormat.JSONSchema)
		}
	}

	history := make([]*genai.Content, 0, len(messages))
	for _, msg := range messages {
		content, err := convertContent(msg)
		if err != nil {
			return nil, err
		}
		if msg.Role == llms.RoleSystem {
			callCfg.SystemInstruction = content
			continue
		}
		history = append(history, content)
	}

	resp, err := g.client.Models.GenerateContent(ctx, opts.Model, history, callCfg)
	if err != nil {
		return nil, errors.Wrap(err, "googleai: failed to generate content")
	}
	if len(resp.Candidates) == 0 {
		return nil, ErrNoContentInResponse
	}
	return convertCandidates(resp.Candidates, resp.UsageMetadata)
}

// convertCandidates converts a sequence of genai.Candidate to a response.
func convertCandidates(candidates []*genai.Candidate, usage *genai.GenerateContentResponseUsageMetadata) (*llms.ContentResponse, error) {
	var contentResponse llms.ContentResponse

	for _, candidate := range candidates {
		buf := strings.Builder{}
		var toolCalls []llms.ToolCall

		if candidate.Content != nil {
			for _, part := range candidate.Content.Parts {
				switch {
				case part.Text != "":
					buf.WriteString(part.Text)
				case part.FunctionCall != nil:
					b, err := json.Marshal(part.FunctionCall.Args)
					if err != nil {
						return nil, errors.Wrap(err, "googleai: failed to marshal function call args")
					}
					toolCalls = append(toolCalls, llms.ToolCall{
						ID:   part.FunctionCall.ID,
						Type: "function",
						FunctionCall: &llms.FunctionCall{
							Name:      part.FunctionCall.Name,
							Arguments: string(b),
						},
					})
				default:
					return nil, errors.WithMessage(ErrUnknownPartInResponse, "not text or tool")
				}
			}
		}

		metadata := map[string]any{
			"citations": candidate.CitationMetadata,
			"safety":    candidate.SafetyRatings,
		}

		contentResponse.Choices = append(contentResponse.Choices,
			&llms.ContentChoice{
				Content:        buf.String(),
				StopReason:     string(candidate.FinishReason),
				GenerationInfo: metadata,
				ToolCalls:      toolCalls,
			})
	}

	if usage != nil {
		contentResponse.Usage = llms.Usage{
			InputTokens:  int(usage.PromptTokenCount),
			OutputTokens: int(usage.CandidatesTokenCount + usage.ToolUsePromptTokenCount + usage.ThoughtsTokenCount),
			TotalTokens:  int(usage.TotalTokenCount),
		}
	}
	return &contentResponse, nil
}

// convertParts converts between generic content parts and genai parts.
func convertParts(parts []llms.ContentPart) ([]*genai.Part, error) {
	convertedParts := make([]*genai.Part, 0, len(parts))
	for _, part := range parts {
		out := new(genai.Part)

		switch p := part.(type) {
		case llms.TextContent:
			out.Text = p.Text
		case llms.BinaryContent:
			out.InlineData = &genai.Blob{MIMEType: p.MIMEType, Data: p.Data}
		case llms.ImageURLContent:
			out.FileData = &genai.FileData{FileURI: p.URL}
		case llms.ToolCall:
			var argsMap map[string]any
			if err := json.Unmarshal([]byte(p.FunctionCall.Arguments), &argsMap); err != nil {
				return nil, errors.Wrap(err, "googleai: failed to unmarshal tool call arguments")
			}
			out.FunctionCall = &genai.FunctionCall{
				ID:   p.ID,
				Name: p.FunctionCall.Name,
				Args: argsMap,
			}
		case llms.ToolCallResponse:
			out.FunctionResponse = &genai.FunctionResponse{
				ID:   p.ToolCallID,
				Name: p.Name,
				Response: map[string]any{
					"response": p.Content,
				},
			}
		default:
			return nil, errors.Newf("googleai: unsupported content part type: %T", part)
		}

		convertedParts = append(convertedParts, out)
	}
	return convertedParts, nil
}

// convertContent converts between a generic Message and genai content.
func convertContent(content llms.Message) (*genai.Content, error) {
	parts, err := convertParts(content.Parts)
	if err != nil {
		return nil, err
	}

	c := &genai.Content{
		Parts: parts,
	}

	switch content.Role {
	case llms.RoleSystem:
		// Role is left empty; the content becomes the system instruction.
	case llms.RoleAI:
		c.Role = roleModel
	case llms.RoleHuman:
		c.Role = roleUser
	case llms.RoleTool:
		c.Role = roleTool
	default:
		return nil, errors.Newf("googleai: role %v not supported", content.Role)
	}

	return c, nil
}
