package pii

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/agenthub/llmutils"
	"github.com/effective-security/agenthub/pkg/llms"
	"github.com/effective-security/x/slices"
	"github.com/effective-security/xlog"
)

var logger = xlog.NewPackageLogger("github.com/effective-security/agenthub", "pii")

// llmEntityTypes are found by the model pass, not by the detectors.
var llmEntityTypes = map[EntityType]bool{
	TypePerson:  true,
	TypeAddress: true,
	TypeOrg:     true,
}

const llmDetectPrompt = `Find every person name, postal address, and organization name in the text below.
Respond with a JSON array only, each element an object with "type" set to one of PERSON, ADDRESS, ORGANIZATION and "value" set to the exact text span.
Respond with [] if there are none. Do not include anything else in the response.

TEXT:
`

// ScrubResult holds the scrubbed text and the reversible mapping.
type ScrubResult struct {
	Text     string   `json:"text" yaml:"Text"`
	Entities []Entity `json:"entities,omitempty" yaml:"Entities,omitempty"`
}

func (r *ScrubResult) GetContent() string {
	return llmutils.ToJSON(r)
}

// Scrubber replaces PII with reversible placeholders. When a model is
// configured, a second pass detects names, addresses and organizations.
type Scrubber struct {
	model llms.Model
}

// NewScrubber creates a detector-only scrubber.
func NewScrubber() *Scrubber {
	return &Scrubber{}
}

// WithModel enables the model pass.
func (s *Scrubber) WithModel(model llms.Model) *Scrubber {
	s.model = model
	return s
}

// Scrub replaces detected PII with placeholders and returns the
// mapping needed to restore them.
func (s *Scrubber) Scrub(ctx context.Context, text string) (*ScrubResult, error) {
	counts := map[EntityType]int{}
	var entities []Entity

	spans := detect(text)
	var sb strings.Builder
	last := 0
	for _, sp := range spans {
		counts[sp.typ]++
		ent := Entity{
			Type:        sp.typ,
			Value:       text[sp.start:sp.end],
			Placeholder: placeholderFor(sp.typ, counts[sp.typ]),
		}
		entities = append(entities, ent)
		sb.WriteString(text[last:sp.start])
		sb.WriteString(ent.Placeholder)
		last = sp.end
	}
	sb.WriteString(text[last:])
	scrubbed := sb.String()

	if s.model != nil {
		llmEntities, err := s.detectWithModel(ctx, scrubbed, counts)
		if err != nil {
			return nil, err
		}
		for _, ent := range llmEntities {
			// replace every occurrence of the span
			scrubbed = strings.ReplaceAll(scrubbed, ent.Value, ent.Placeholder)
			entities = append(entities, ent)
		}
	}

	return &ScrubResult{
		Text:     scrubbed,
		Entities: entities,
	}, nil
}

// Restore substitutes the original values back into text that may
// contain placeholders, such as a model response.
func Restore(text string, entities []Entity) string {
	for _, ent := range entities {
		text = strings.ReplaceAll(text, ent.Placeholder, ent.Value)
	}
	return text
}

func (s *Scrubber) detectWithModel(ctx context.Context, text string, counts map[EntityType]int) ([]Entity, error) {
	resp, err := s.model.GenerateContent(ctx,
		[]llms.Message{
			llms.MessageFromTextParts(llms.RoleHuman, llmDetectPrompt+text),
		},
		llms.WithTemperature(0),
	)
	if err != nil {
		return nil, errors.WithMessage(err, "model detection failed")
	}
	if len(resp.Choices) == 0 {
		return nil, errors.New("empty response from model")
	}

	var found []struct {
		Type  string `json:"type"`
		Value string `json:"value"`
	}
	content := resp.Choices[0].Content
	if err := json.Unmarshal(llmutils.CleanJSON([]byte(content)), &found); err != nil {
		logger.ContextKV(ctx, xlog.WARNING,
			"reason", "unparsable_detection",
			"content", slices.StringUpto(content, 128),
			"err", err.Error())
		return nil, errors.Wrap(err, "failed to parse model detection")
	}

	var entities []Entity
	for _, f := range found {
		typ := EntityType(strings.ToUpper(strings.TrimSpace(f.Type)))
		if !llmEntityTypes[typ] || strings.TrimSpace(f.Value) == "" {
			continue
		}
		// skip values the detectors already replaced
		if !strings.Contains(text, f.Value) {
			continue
		}
		counts[typ]++
		entities = append(entities, Entity{
			Type:        typ,
			Value:       f.Value,
			Placeholder: placeholderFor(typ, counts[typ]),
		})
	}
	return entities, nil
}
