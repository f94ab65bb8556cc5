// Package catalog manages the component registry: installation
// manifests for agent and tool components, lookup and search over a
// loaded catalog, and install planning with environment reporting.
package catalog

import (
	"bytes"
	"encoding/json"
	"regexp"
	"strings"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Kind values of a component.
const (
	KindAgent = "agent"
	KindTool  = "tool"
)

// EnvVar describes an environment variable a component reads.
type EnvVar struct {
	Name        string `json:"name" yaml:"name" validate:"required,envname"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
	Required    bool   `json:"required,omitempty" yaml:"required,omitempty"`
	Secret      bool   `json:"secret,omitempty" yaml:"secret,omitempty"`
}

// Example is a usage snippet shown by the installer.
type Example struct {
	Title string `json:"title,omitempty" yaml:"title,omitempty"`
	Code  string `json:"code" yaml:"code" validate:"required"`
}

// Manifest describes one installable component.
type Manifest struct {
	Name        string   `json:"name" yaml:"name" validate:"required,kebabcase"`
	Version     string   `json:"version" yaml:"version" validate:"required,semver"`
	Kind        string   `json:"kind" yaml:"kind" validate:"required,oneof=agent tool"`
	Description string   `json:"description" yaml:"description" validate:"required"`
	Tags        []string `json:"tags,omitempty" yaml:"tags,omitempty" validate:"dive,kebabcase"`
	// Runtime lists module paths the component imports.
	Runtime []string `json:"runtime,omitempty" yaml:"runtime,omitempty"`
	// Requires lists other catalog components the component depends on.
	Requires []string  `json:"requires,omitempty" yaml:"requires,omitempty" validate:"dive,kebabcase"`
	Env      []EnvVar  `json:"env,omitempty" yaml:"env,omitempty" validate:"dive"`
	Examples []Example `json:"examples,omitempty" yaml:"examples,omitempty" validate:"dive"`
	// InstallNotes is free-form markdown shown after installation.
	InstallNotes string `json:"installNotes,omitempty" yaml:"installNotes,omitempty"`
}

var (
	kebabRe   = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)
	envNameRe = regexp.MustCompile(`^[A-Z][A-Z0-9_]*$`)

	manifestValidator     *validator.Validate
	manifestValidatorOnce sync.Once
)

func getValidator() *validator.Validate {
	manifestValidatorOnce.Do(func() {
		manifestValidator = validator.New(validator.WithRequiredStructEnabled())
		_ = manifestValidator.RegisterValidation("kebabcase", func(fl validator.FieldLevel) bool {
			return kebabRe.MatchString(fl.Field().String())
		})
		_ = manifestValidator.RegisterValidation("envname", func(fl validator.FieldLevel) bool {
			return envNameRe.MatchString(fl.Field().String())
		})
	})
	return manifestValidator
}

// Validate checks the manifest fields.
func (m *Manifest) Validate() error {
	if err := getValidator().Struct(m); err != nil {
		return errors.WithMessagef(err, "invalid manifest: %s", m.Name)
	}
	return nil
}

// HasTag reports whether the manifest carries the tag, case-insensitive.
func (m *Manifest) HasTag(tag string) bool {
	for _, t := range m.Tags {
		if strings.EqualFold(t, tag) {
			return true
		}
	}
	return false
}

// ParseJSON decodes and validates a JSON manifest.
func ParseJSON(data []byte) (*Manifest, error) {
	var m Manifest
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&m); err != nil {
		return nil, errors.Wrap(err, "failed to parse manifest")
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

const frontmatterDelim = "---"

// ParseMarkdown decodes a markdown manifest: YAML frontmatter between
// --- delimiters holds the fields, the body becomes the install notes
// when the frontmatter does not set them.
func ParseMarkdown(data []byte) (*Manifest, error) {
	text := strings.ReplaceAll(string(data), "\r\n", "\n")
	if !strings.HasPrefix(text, frontmatterDelim+"\n") {
		return nil, errors.New("missing frontmatter")
	}
	rest := text[len(frontmatterDelim)+1:]
	idx := strings.Index(rest, "\n"+frontmatterDelim)
	if idx < 0 {
		return nil, errors.New("unterminated frontmatter")
	}
	front := rest[:idx]
	body := rest[idx+len(frontmatterDelim)+1:]
	body = strings.TrimPrefix(body, "\n")

	var m Manifest
	if err := yaml.Unmarshal([]byte(front), &m); err != nil {
		return nil, errors.Wrap(err, "failed to parse frontmatter")
	}
	if m.InstallNotes == "" {
		m.InstallNotes = strings.TrimSpace(body)
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}
