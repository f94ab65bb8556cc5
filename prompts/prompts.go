package prompts

import (
	"strings"
	"text/template"

	"github.com/Masterminds/sprig/v3"
	"github.com/cockroachdb/errors"
	"github.com/effective-security/agenthub/pkg/llms"
)

// FormatPrompter formats input values into a prompt value.
type FormatPrompter interface {
	FormatPrompt(values map[string]any) (llms.PromptValue, error)
	GetInputVariables() []string
}

// PromptTemplate is a single text template with declared input variables.
// Templates use the Go text/template syntax with the sprig function map.
type PromptTemplate struct {
	Template       string
	InputVariables []string

	tmpl *template.Template
}

// NewPromptTemplate parses the template eagerly so malformed templates fail
// at construction, not at call time.
func NewPromptTemplate(text string, inputVariables []string) (*PromptTemplate, error) {
	tmpl, err := template.New("prompt").
		Funcs(sprig.TxtFuncMap()).
		Option("missingkey=zero").
		Parse(text)
	if err != nil {
		return nil, errors.WithMessage(err, "failed to parse prompt template")
	}
	return &PromptTemplate{
		Template:       text,
		InputVariables: inputVariables,
		tmpl:           tmpl,
	}, nil
}

// MustNewPromptTemplate panics on a malformed template, for package-level prompts.
func MustNewPromptTemplate(text string, inputVariables []string) *PromptTemplate {
	t, err := NewPromptTemplate(text, inputVariables)
	if err != nil {
		panic(err)
	}
	return t
}

// Format renders the template with the given values.
// All declared input variables must be present.
func (p *PromptTemplate) Format(values map[string]any) (string, error) {
	for _, name := range p.InputVariables {
		if _, ok := values[name]; !ok {
			return "", errors.Newf("missing prompt input: %s", name)
		}
	}
	var sb strings.Builder
	if err := p.tmpl.Execute(&sb, values); err != nil {
		return "", errors.WithMessage(err, "failed to render prompt template")
	}
	return sb.String(), nil
}

func (p *PromptTemplate) GetInputVariables() []string {
	return p.InputVariables
}

// FormatPrompt implements FormatPrompter, returning a single system message.
func (p *PromptTemplate) FormatPrompt(values map[string]any) (llms.PromptValue, error) {
	text, err := p.Format(values)
	if err != nil {
		return nil, err
	}
	return ChatPromptValue{llms.MessageFromTextParts(llms.RoleSystem, text)}, nil
}

var _ FormatPrompter = (*PromptTemplate)(nil)
