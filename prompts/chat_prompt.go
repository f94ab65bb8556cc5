package prompts

import (
	"strings"

	"github.com/effective-security/agenthub/llmutils"
	"github.com/effective-security/agenthub/pkg/llms"
)

var _ llms.PromptValue = ChatPromptValue{}

// ChatPromptValue is a prompt value that is a list of chat messages.
type ChatPromptValue []llms.Message

// String returns the chat message slice as a buffer string.
func (v ChatPromptValue) String() string {
	var buf strings.Builder
	llmutils.PrintMessages(&buf, v)
	return buf.String()
}

// Messages returns the chat message slice.
func (v ChatPromptValue) Messages() []llms.Message {
	return v
}

// MessageFormatter renders one chat message from input values.
type MessageFormatter interface {
	FormatMessage(values map[string]any) (llms.Message, error)
	GetInputVariables() []string
}

type messageTemplate struct {
	role llms.Role
	text *PromptTemplate
}

func (m messageTemplate) FormatMessage(values map[string]any) (llms.Message, error) {
	text, err := m.text.Format(values)
	if err != nil {
		return llms.Message{}, err
	}
	return llms.MessageFromTextParts(m.role, text), nil
}

func (m messageTemplate) GetInputVariables() []string {
	return m.text.GetInputVariables()
}

// NewSystemMessagePromptTemplate creates a system message template.
func NewSystemMessagePromptTemplate(text string, inputVariables []string) MessageFormatter {
	return messageTemplate{role: llms.RoleSystem, text: MustNewPromptTemplate(text, inputVariables)}
}

// NewHumanMessagePromptTemplate creates a human message template.
func NewHumanMessagePromptTemplate(text string, inputVariables []string) MessageFormatter {
	return messageTemplate{role: llms.RoleHuman, text: MustNewPromptTemplate(text, inputVariables)}
}

// NewAIMessagePromptTemplate creates an AI message template.
func NewAIMessagePromptTemplate(text string, inputVariables []string) MessageFormatter {
	return messageTemplate{role: llms.RoleAI, text: MustNewPromptTemplate(text, inputVariables)}
}

// ChatPromptTemplate formats a sequence of chat messages.
type ChatPromptTemplate struct {
	messages []MessageFormatter
}

func NewChatPromptTemplate(messages []MessageFormatter) *ChatPromptTemplate {
	return &ChatPromptTemplate{messages: messages}
}

// FormatPrompt renders all messages with the given values.
func (t *ChatPromptTemplate) FormatPrompt(values map[string]any) (llms.PromptValue, error) {
	res := make(ChatPromptValue, 0, len(t.messages))
	for _, m := range t.messages {
		msg, err := m.FormatMessage(values)
		if err != nil {
			return nil, err
		}
		res = append(res, msg)
	}
	return res, nil
}

func (t *ChatPromptTemplate) GetInputVariables() []string {
	var res []string
	seen := map[string]bool{}
	for _, m := range t.messages {
		for _, v := range m.GetInputVariables() {
			if !seen[v] {
				seen[v] = true
				res = append(res, v)
			}
		}
	}
	return res
}

var _ FormatPrompter = (*ChatPromptTemplate)(nil)
