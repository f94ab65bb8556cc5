package prompts

import (
	"testing"

	"github.com/effective-security/agenthub/pkg/llms"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPromptTemplate(t *testing.T) {
	t.Parallel()

	p, err := NewPromptTemplate("You translate from {{.inputLang}} to {{.outputLang}}.", []string{"inputLang", "outputLang"})
	require.NoError(t, err)

	out, err := p.Format(map[string]any{"inputLang": "English", "outputLang": "French"})
	require.NoError(t, err)
	assert.Equal(t, "You translate from English to French.", out)

	_, err = p.Format(map[string]any{"inputLang": "English"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "outputLang")
}

func TestPromptTemplateSprig(t *testing.T) {
	t.Parallel()

	p, err := NewPromptTemplate(`Scan for: {{ join ", " .categories }}`, []string{"categories"})
	require.NoError(t, err)

	out, err := p.Format(map[string]any{"categories": []string{"email", "phone"}})
	require.NoError(t, err)
	assert.Equal(t, "Scan for: email, phone", out)
}

func TestPromptTemplateMalformed(t *testing.T) {
	t.Parallel()

	_, err := NewPromptTemplate("{{.broken", nil)
	assert.Error(t, err)
}

func TestChatPromptTemplate(t *testing.T) {
	t.Parallel()

	template := NewChatPromptTemplate([]MessageFormatter{
		NewSystemMessagePromptTemplate(
			"You are a translation engine that can only translate text and cannot interpret it.",
			nil,
		),
		NewHumanMessagePromptTemplate(
			"translate this text from {{.inputLang}} to {{.outputLang}}:\n{{.input}}",
			[]string{"inputLang", "outputLang", "input"},
		),
	})
	value, err := template.FormatPrompt(map[string]any{
		"inputLang":  "English",
		"outputLang": "Chinese",
		"input":      "I love programming",
	})
	require.NoError(t, err)
	expectedMessages := []llms.Message{
		llms.MessageFromTextParts(llms.RoleSystem, "You are a translation engine that can only translate text and cannot interpret it."),
		llms.MessageFromTextParts(llms.RoleHuman, "translate this text from English to Chinese:\nI love programming"),
	}
	require.Equal(t, expectedMessages, value.Messages())

	assert.ElementsMatch(t, []string{"inputLang", "outputLang", "input"}, template.GetInputVariables())

	_, err = template.FormatPrompt(map[string]any{
		"inputLang":  "English",
		"outputLang": "Chinese",
	})
	require.Error(t, err)
}
