package agents

import (
	"context"
	"fmt"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/agenthub/chatmodel"
	"github.com/effective-security/agenthub/encoding"
	"github.com/effective-security/agenthub/llmutils"
	"github.com/effective-security/agenthub/pkg/llms"
	"github.com/effective-security/agenthub/pkg/metricskey"
	"github.com/effective-security/agenthub/prompts"
	"github.com/effective-security/agenthub/schema"
	"github.com/effective-security/agenthub/tools"
	"github.com/effective-security/x/slices"
	"github.com/effective-security/x/values"
	"github.com/effective-security/xlog"
	"github.com/invopop/jsonschema"
)

// ProvidePromptInputsFunc supplies extra prompt inputs computed from the
// user input at call time.
type ProvidePromptInputsFunc func(ctx context.Context, input string) (map[string]any, error)

// Agent is a chat agent with a typed output. It renders the system prompt,
// calls the LLM, executes requested tools, and parses the final response.
type Agent[O chatmodel.ContentProvider] struct {
	LLM          llms.Model
	OutputParser chatmodel.OutputParser[O]

	toolsByName map[string]tools.ITool
	toolsNames  []string
	tools       []tools.ITool
	llmToolDefs []llms.Tool

	cfg         *Config
	name        string
	description string
	sysprompt   prompts.FormatPrompter
	runMessages []llms.Message
	onPrompt    ProvidePromptInputsFunc
	inputParser func(string) (string, error)
}

var _ TypeableAgent[chatmodel.String] = (*Agent[chatmodel.String])(nil)

// NewAgent creates an agent for the given model and system prompt.
// When the provider supports structured output natively, the response
// format is derived from the output type; otherwise format instructions
// are appended to the system prompt.
func NewAgent[O chatmodel.ContentProvider](
	llmModel llms.Model,
	sysprompt prompts.FormatPrompter,
	options ...Option) *Agent[O] {
	ret := &Agent[O]{
		cfg:         NewConfig(options...),
		LLM:         llmModel,
		sysprompt:   sysprompt,
		name:        "Generic Agent",
		description: "An AI agent that can perform various tasks.",
	}

	var output O
	ret.OutputParser, _ = encoding.NewTypedOutputParser(output, ret.cfg.Mode)

	prov := llmModel.GetProviderType()
	strict := ret.cfg.Mode == encoding.ModeJSONSchemaStrict && prov.Supports(llms.CapabilityJSONSchemaStrict)
	jsonSchema := (ret.cfg.Mode == encoding.ModeJSONSchema || ret.cfg.Mode == encoding.ModeJSONSchemaStrict) &&
		prov.Supports(llms.CapabilityJSONSchema)
	if jsonSchema {
		rf, err := schema.NewResponseFormat(reflect.TypeOf(output), strict)
		if err != nil {
			logger.KV(xlog.ERROR,
				"status", "failed_to_create_response_format",
				"err", err.Error(),
			)
		}
		ret.cfg.ResponseFormat = rf
	}

	return ret
}

// WithName sets the name of the agent, used in prompts of other agents.
func (a *Agent[O]) WithName(name string) *Agent[O] {
	a.name = name
	return a
}

// WithDescription sets the description of the agent.
func (a *Agent[O]) WithDescription(description string) *Agent[O] {
	a.description = description
	return a
}

// WithOutputParser replaces the output parser.
func (a *Agent[O]) WithOutputParser(outputParser chatmodel.OutputParser[O]) *Agent[O] {
	a.OutputParser = outputParser
	return a
}

// WithInputParser sets a parser applied to the user input before the call.
func (a *Agent[O]) WithInputParser(inputParser func(string) (string, error)) *Agent[O] {
	a.inputParser = inputParser
	return a
}

// WithPromptInputProvider sets a callback that supplies extra prompt inputs.
func (a *Agent[O]) WithPromptInputProvider(cb ProvidePromptInputsFunc) *Agent[O] {
	a.onPrompt = cb
	return a
}

// WithTools adds new tools to the agent, existing tools are not replaced.
func (a *Agent[O]) WithTools(list ...tools.ITool) *Agent[O] {
	if a.toolsByName == nil {
		a.toolsByName = make(map[string]tools.ITool)
	}
	for _, tool := range list {
		name := tool.Name()
		nameLowerCase := strings.ToLower(name)
		if a.toolsByName[nameLowerCase] == nil {
			a.toolsByName[nameLowerCase] = tool
			a.toolsNames = append(a.toolsNames, name)
			a.tools = append(a.tools, tool)
			a.llmToolDefs = append(a.llmToolDefs, llms.Tool{
				Type: "function",
				Function: &llms.FunctionDefinition{
					Name:        name,
					Description: tool.Description(),
					Parameters:  toolParamsSchema(tool.Parameters()),
				},
			})
		}
	}
	return a
}

// toolParamsSchema converts the tool-provided parameters value to the
// schema type expected by llms.FunctionDefinition.
func toolParamsSchema(v any) *jsonschema.Schema {
	s, _ := v.(*jsonschema.Schema)
	return s
}

// Name returns the name of the agent.
func (a *Agent[O]) Name() string {
	return a.name
}

// Description returns the description of the agent.
func (a *Agent[O]) Description() string {
	return a.description
}

// GetTools returns the registered tools.
func (a *Agent[O]) GetTools() []tools.ITool {
	return a.tools
}

// GetCallConfig returns a per-call config with the options applied.
func (a *Agent[O]) GetCallConfig(opts ...Option) *Config {
	return a.cfg.Apply(opts...)
}

// LastRunMessages returns the messages produced by the last run.
func (a *Agent[O]) LastRunMessages() []llms.Message {
	return a.runMessages
}

// FormatPrompt renders the system prompt with the given inputs.
func (a *Agent[O]) FormatPrompt(promptInputs map[string]any) (llms.PromptValue, error) {
	return a.sysprompt.FormatPrompt(llmutils.MergeInputs(a.cfg.PromptInput, promptInputs))
}

// GetPromptInputVariables returns the required prompt input names.
func (a *Agent[O]) GetPromptInputVariables() []string {
	return a.sysprompt.GetInputVariables()
}

// GetSystemPrompt generates the system prompt, appending output format
// instructions when the provider has no native structured output.
func (a *Agent[O]) GetSystemPrompt(ctx context.Context, input string, promptInputs map[string]any) (string, error) {
	if a.onPrompt != nil {
		extra, err := a.onPrompt(ctx, input)
		if err != nil {
			return "", errors.WithMessage(err, "failed to get prompt inputs")
		}
		if len(extra) > 0 {
			promptInputs = llmutils.MergeInputs(promptInputs, extra)
		}
	}

	promptValue, err := a.FormatPrompt(promptInputs)
	if err != nil {
		return "", err
	}

	systemPrompt := strings.TrimRight(promptValue.String(), "\n")

	if a.cfg.ResponseFormat == nil {
		outputSchema := strings.TrimRight(a.OutputParser.GetFormatInstructions(), "\n")
		if outputSchema != "" {
			systemPrompt = fmt.Sprintf("%s\n\n# OUTPUT SCHEMA\n%s", systemPrompt, outputSchema)
		}
	}
	return systemPrompt, nil
}

// Call executes the agent and returns the raw response.
func (a *Agent[O]) Call(ctx context.Context, input *CallInput) (*llms.ContentResponse, error) {
	var output O
	return a.Run(ctx, input, &output)
}

// Run executes the agent and decodes the output into optionalOutput.
func (a *Agent[O]) Run(ctx context.Context, input *CallInput, optionalOutput *O) (*llms.ContentResponse, error) {
	started := time.Now()
	defer metricskey.PerfAgentCall.MeasureSince(started, a.name)

	// reset the run messages
	a.runMessages = nil
	cfg := a.GetCallConfig(input.Options...)

	callback := cfg.CallbackHandler
	if callback != nil {
		callback.OnAgentStart(ctx, a, input.Input)
	}

	resp, messages, err := a.run(ctx, cfg, input, optionalOutput)
	if err != nil {
		metricskey.StatsAgentCallsFailed.IncrCounter(1, a.name)
		if callback != nil {
			callback.OnAgentError(ctx, a, input.Input, err, messages)
		}
		return nil, err
	}
	metricskey.StatsAgentCallsSucceeded.IncrCounter(1, a.name)
	if callback != nil {
		callback.OnAgentEnd(ctx, a, input.Input, resp, messages)
	}
	return resp, nil
}

func (a *Agent[O]) run(ctx context.Context, cfg *Config, input *CallInput, optionalOutput *O) (*llms.ContentResponse, []llms.Message, error) {
	ctx, chatID := chatmodel.EnsureChatID(ctx)

	systemPrompt, err := a.GetSystemPrompt(ctx, input.Input, input.PromptInputs)
	if err != nil {
		return nil, nil, errors.WithMessage(err, "failed to format system prompt")
	}

	messageHistory := []llms.Message{
		llms.MessageFromTextParts(llms.RoleSystem, systemPrompt),
	}
	for _, example := range cfg.Examples {
		messageHistory = append(messageHistory, llms.MessageFromTextParts(llms.RoleHuman, example.Prompt))
		messageHistory = append(messageHistory, llms.MessageFromTextParts(llms.RoleAI, example.Completion))
	}
	if cfg.Store != nil {
		prevMessages := cfg.Store.Messages(ctx)
		logger.ContextKV(ctx, xlog.DEBUG,
			"agent", a.name,
			"chat_id", chatID,
			"message_history", len(prevMessages))
		messageHistory = append(messageHistory, prevMessages...)
	}

	parsedInput := input.Input
	if parsedInput != "" {
		if a.inputParser != nil {
			parsedInput, err = a.inputParser(parsedInput)
			if err != nil {
				return nil, messageHistory, errors.WithMessage(err, "failed to parse input")
			}
		}
		userMessage := llms.MessageFromTextParts(llms.RoleHuman, parsedInput)
		a.runMessages = append(a.runMessages, userMessage)
		messageHistory = append(messageHistory, userMessage)
	}
	if len(input.Messages) > 0 {
		messageHistory = append(messageHistory, input.Messages...)
	}

	var extraOptions []Option
	if len(a.llmToolDefs) > 0 {
		prov := a.LLM.GetProviderType()
		if !prov.Supports(llms.CapabilityFunctionCalling) {
			return nil, messageHistory, errors.Newf("agent %s: the LLM does not support function calling", a.name)
		}
		extraOptions = append(extraOptions, withTools(a.llmToolDefs))
	}
	callOpts := cfg.GetCallOptions(extraOptions...)

	agentName := a.name
	modelName := a.LLM.GetName()

	var totalToolExecuted int
	var resp *llms.ContentResponse
	retryCount := 0
	consecutiveNotFoundCount := 0

	bytesLimit := values.NumbersCoalesce(cfg.MaxContentSize, DefaultMaxContentSize)
	toolsLimit := values.NumbersCoalesce(cfg.MaxToolCalls, DefaultMaxToolCalls)
	for {
		if len(messageHistory) >= cfg.MaxMessages {
			return nil, messageHistory, errors.Newf("agent %s: the messages count exceeded limit", agentName)
		}
		bytesSent := llmutils.CountMessagesContentSize(messageHistory)
		if bytesSent > bytesLimit {
			return nil, messageHistory, errors.Newf("agent %s: the content size exceeded limit", agentName)
		}

		if cfg.CallbackHandler != nil {
			cfg.CallbackHandler.OnAgentLLMCallStart(ctx, a, a.LLM, messageHistory)
		}

		metricskey.StatsLLMMessagesSent.IncrCounter(float64(len(messageHistory)), agentName, modelName)
		metricskey.StatsLLMBytesSent.IncrCounter(float64(bytesSent), agentName, modelName)

		resp, err = a.LLM.GenerateContent(ctx, messageHistory, callOpts...)
		if err != nil {
			return nil, messageHistory, errors.WithMessage(err, "failed to generate content from LLM")
		}

		if cfg.CallbackHandler != nil {
			cfg.CallbackHandler.OnAgentLLMCallEnd(ctx, a, a.LLM, resp)
		}

		bytesReceived := llmutils.CountResponseContentSize(resp)
		metricskey.StatsLLMBytesReceived.IncrCounter(float64(bytesReceived), agentName, modelName)

		tokensIn, tokensOut, tokensTotal := llmutils.CountTokens(resp)
		metricskey.StatsLLMInputTokens.IncrCounter(float64(tokensIn), agentName, modelName)
		metricskey.StatsLLMOutputTokens.IncrCounter(float64(tokensOut), agentName, modelName)
		metricskey.StatsLLMTotalTokens.IncrCounter(float64(tokensTotal), agentName, modelName)

		if len(resp.Choices) == 0 {
			retryCount++
			if retryCount >= DefaultMaxRetries {
				logger.ContextKV(ctx, xlog.ERROR,
					"agent", agentName,
					"status", "max_retries_exceeded",
					"input", slices.StringUpto(parsedInput, 64),
					"retry_count", retryCount,
				)
				return nil, messageHistory, errors.Newf("agent %s: LLM returned empty response after %d retries", agentName, retryCount)
			}
			logger.ContextKV(ctx, xlog.WARNING,
				"agent", agentName,
				"status", "retrying_empty_response",
				"retry_count", retryCount,
			)
			continue
		}

		var toolExecuted int
		var notFoundCount int
		toolExecuted, notFoundCount, messageHistory, err = a.executeToolCalls(ctx, cfg, messageHistory, resp)
		if err != nil {
			return nil, messageHistory, err
		}

		if toolExecuted == 0 {
			break
		}
		consecutiveNotFoundCount += notFoundCount
		totalToolExecuted += toolExecuted
		if consecutiveNotFoundCount > 3 {
			return nil, messageHistory, errors.Newf("agent %s: the number of not found tools is exceeded", agentName)
		}
		if notFoundCount == 0 {
			consecutiveNotFoundCount = 0
		}
		if totalToolExecuted >= toolsLimit {
			return nil, messageHistory, errors.Newf("agent %s: the tool calls limit is exceeded", agentName)
		}
	}

	choices := resp.Choices
	result := choices[0].Content
	if len(choices) > 1 {
		var combinedContent strings.Builder
		for i, choice := range choices {
			if i > 0 {
				combinedContent.WriteString("\n\n")
			}
			combinedContent.WriteString(choice.Content)
		}
		result = combinedContent.String()
	}

	if optionalOutput != nil {
		finalOutput, parseErr := a.OutputParser.Parse(result)
		if parseErr != nil {
			metricskey.StatsAgentLLMParseErrors.IncrCounter(1, agentName)
			logger.ContextKV(ctx, xlog.DEBUG,
				"agent", agentName,
				"status", "failed_to_parse_llm_response",
				"err", parseErr.Error(),
				"output_parser", a.OutputParser.Type(),
				"result", result,
			)
			if cfg.CallbackHandler != nil {
				cfg.CallbackHandler.OnAgentLLMParseError(ctx, a, input.Input, result, parseErr)
			}

			// one reformat attempt: send the parse error and the expected
			// format back to the model
			reformatPrompt := fmt.Sprintf(
				"The response could not be parsed: %s\n\n%s\n\nReturn the response again in the expected format.",
				parseErr.Error(),
				strings.TrimRight(a.OutputParser.GetFormatInstructions(), "\n"))
			messageHistory = append(messageHistory,
				llms.MessageFromTextParts(llms.RoleAI, result),
				llms.MessageFromTextParts(llms.RoleHuman, reformatPrompt),
			)
			resp, err = a.LLM.GenerateContent(ctx, messageHistory, callOpts...)
			if err != nil {
				return nil, messageHistory, errors.WithMessage(err, "failed to generate content from LLM")
			}
			if len(resp.Choices) == 0 {
				return nil, messageHistory, errors.Newf("agent %s: LLM returned empty response", agentName)
			}
			result = resp.Choices[0].Content

			finalOutput, parseErr = a.OutputParser.Parse(result)
			if parseErr != nil {
				metricskey.StatsAgentLLMParseErrors.IncrCounter(1, agentName)
				if cfg.CallbackHandler != nil {
					cfg.CallbackHandler.OnAgentLLMParseError(ctx, a, input.Input, result, parseErr)
				}
				return nil, messageHistory, parseErr
			}
		}
		*optionalOutput = *finalOutput
		result = (*finalOutput).GetContent()
	}

	aiMessage := llms.MessageFromTextParts(llms.RoleAI, result)
	messageHistory = append(messageHistory, aiMessage)
	a.runMessages = append(a.runMessages, aiMessage)

	if cfg.Store != nil && !cfg.SkipMessageHistory && len(a.runMessages) > 0 {
		_ = cfg.Store.Add(ctx, a.runMessages...)

		logger.ContextKV(ctx, xlog.DEBUG,
			"agent", agentName,
			"chat_id", chatID,
			"status", "added_message_history",
			"message_history", len(a.runMessages),
			"human", slices.StringUpto(parsedInput, 64),
			"ai", slices.StringUpto(result, 64),
		)
	}

	return resp, messageHistory, nil
}

// executeToolCalls executes the tool calls in the response in parallel and
// appends the responses to the message history in request order.
func (a *Agent[O]) executeToolCalls(ctx context.Context, cfg *Config, messageHistory []llms.Message, resp *llms.ContentResponse) (int, int, []llms.Message, error) {
	executedCount := 0
	notFoundCount := 0

	type toolCallResult struct {
		toolCall llms.ToolCall
		response string
		err      error
		index    int
		notFound bool
	}

	var toolCalls []llms.ToolCall
	for _, choice := range resp.Choices {
		var choiceToolCalls []llms.ToolCall
		for i, toolCall := range choice.ToolCalls {
			executedCount++

			if toolCall.ID == "" {
				toolCall.ID = fmt.Sprintf("%s_%d", toolCall.FunctionCall.Name, i)
			}
			toolCall.Type = values.StringsCoalesce(toolCall.Type, "function")
			choiceToolCalls = append(choiceToolCalls, toolCall)

			logger.ContextKV(ctx, xlog.DEBUG,
				"agent", a.name,
				"status", "tool_call_found",
				"tool_call_id", toolCall.ID,
				"tool_call_name", toolCall.FunctionCall.Name,
			)
		}
		if len(choiceToolCalls) == 0 {
			continue
		}

		toolCalls = append(toolCalls, choiceToolCalls...)
		assistantResponse := llms.MessageFromToolCalls(llms.RoleAI, choiceToolCalls...)
		messageHistory = append(messageHistory, assistantResponse)
		if !cfg.SkipMessageHistory && !cfg.SkipToolHistory {
			a.runMessages = append(a.runMessages, assistantResponse)
		}
	}

	if executedCount == 0 {
		return executedCount, notFoundCount, messageHistory, nil
	}

	resultChan := make(chan toolCallResult, len(toolCalls))
	var wg sync.WaitGroup
	wg.Add(len(toolCalls))

	for i, toolCall := range toolCalls {
		go func(index int, tc llms.ToolCall) {
			defer wg.Done()
			toolName := tc.FunctionCall.Name
			toolArgs := tc.FunctionCall.Arguments

			tool := a.toolsByName[strings.ToLower(toolName)]
			if tool == nil {
				metricskey.StatsToolCallsNotFound.IncrCounter(1, toolName)
				if cfg.CallbackHandler != nil {
					cfg.CallbackHandler.OnToolNotFound(ctx, a, toolName)
				}

				availableTools := strings.Join(a.toolsNames, ", ")
				logger.ContextKV(ctx, xlog.WARNING,
					"agent", a.name,
					"status", "tool_not_found",
					"tool_name", toolName,
					"available_tools", availableTools,
				)

				resultChan <- toolCallResult{
					toolCall: tc,
					response: fmt.Sprintf("Tool `%s` not found. Please check the tool name and try again with exact match. Available tools: %s", toolName, availableTools),
					index:    index,
					notFound: true,
				}
				return
			}

			if cfg.CallbackHandler != nil {
				cfg.CallbackHandler.OnToolStart(ctx, tool, toolArgs)
			}

			started := time.Now()
			res, err := tool.Call(ctx, toolArgs)
			metricskey.PerfToolCall.MeasureSince(started, toolName)

			if err != nil {
				metricskey.StatsToolCallsFailed.IncrCounter(1, toolName)
				if cfg.CallbackHandler != nil {
					cfg.CallbackHandler.OnToolError(ctx, tool, toolArgs, err)
				}

				if errors.Is(err, chatmodel.ErrFailedUnmarshalInput) {
					res = llmutils.AddComment("agent", a.name, "error", "Failed to unmarshal input, check the JSON schema and try again.")
				} else {
					resultChan <- toolCallResult{
						toolCall: tc,
						err:      errors.WithMessagef(err, "failed to call tool %s", toolName),
						index:    index,
					}
					return
				}
			}
			metricskey.StatsToolCallsSucceeded.IncrCounter(1, toolName)

			if cfg.CallbackHandler != nil {
				cfg.CallbackHandler.OnToolEnd(ctx, tool, toolArgs, res)
			}

			resultChan <- toolCallResult{
				toolCall: tc,
				response: res,
				index:    index,
			}
		}(i, toolCall)
	}

	wg.Wait()
	close(resultChan)

	results := make([]toolCallResult, len(toolCalls))
	for result := range resultChan {
		if result.index >= 0 && result.index < len(results) {
			results[result.index] = result
			if result.notFound {
				notFoundCount++
			}
		}
	}

	// Process results in the same order as the original tool calls.
	for _, result := range results {
		var content string
		if result.err != nil {
			content = fmt.Sprintf("Tool call failed: %s", result.err.Error())
			logger.ContextKV(ctx, xlog.WARNING,
				"agent", a.name,
				"status", "tool_call_failed",
				"tool", result.toolCall.FunctionCall.Name,
				"err", result.err.Error(),
			)
		} else {
			content = result.response
		}

		toolCallResponse := llms.MessageFromToolResponse(llms.RoleTool, llms.ToolCallResponse{
			ToolCallID: result.toolCall.ID,
			Name:       result.toolCall.FunctionCall.Name,
			Content:    content,
		})
		messageHistory = append(messageHistory, toolCallResponse)

		if !cfg.SkipMessageHistory && !cfg.SkipToolHistory {
			a.runMessages = append(a.runMessages, toolCallResponse)
		}
	}

	return executedCount, notFoundCount, messageHistory, nil
}
