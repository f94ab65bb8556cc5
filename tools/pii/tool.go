package pii

import (
	"context"
	"reflect"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/agenthub/pkg/llms"
	"github.com/effective-security/agenthub/schema"
	"github.com/effective-security/agenthub/tools"
)

const ToolName = "PIIScrubber"

// ScrubRequest represents the tool input.
type ScrubRequest struct {
	Text string `json:"Text" yaml:"Text" jsonschema:"title=Text,description=The text to scrub of personally identifiable information."`
}

// Tool exposes the scrubber as an agent tool.
type Tool struct {
	scrubber   *Scrubber
	funcParams any
}

var _ tools.Tool[ScrubRequest, ScrubResult] = (*Tool)(nil)

// New creates the scrubber tool. Pass nil for detector-only mode.
func New(model llms.Model) (*Tool, error) {
	sc, err := schema.New(reflect.TypeOf(ScrubRequest{}))
	if err != nil {
		return nil, errors.Wrap(err, "failed to create schema")
	}
	scrubber := NewScrubber()
	if model != nil {
		scrubber.WithModel(model)
	}
	return &Tool{
		scrubber:   scrubber,
		funcParams: sc.Parameters,
	}, nil
}

func (t *Tool) Name() string {
	return ToolName
}

func (t *Tool) Description() string {
	return "A tool that replaces personally identifiable information in text with reversible placeholders."
}

func (t *Tool) Parameters() any {
	return t.funcParams
}

func (t *Tool) Run(ctx context.Context, req *ScrubRequest) (*ScrubResult, error) {
	if req.Text == "" {
		return nil, errors.New("invalid request: empty text")
	}
	return t.scrubber.Scrub(ctx, req.Text)
}

func (t *Tool) Call(ctx context.Context, input string) (string, error) {
	return tools.CallTyped[ScrubRequest, ScrubResult](ctx, t, input)
}
