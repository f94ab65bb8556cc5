package callbacks_test

import (
	"bytes"
	"context"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/agenthub/agents"
	"github.com/effective-security/agenthub/callbacks"
	"github.com/effective-security/agenthub/chatmodel"
	"github.com/effective-security/agenthub/encoding"
	"github.com/effective-security/agenthub/pkg/llms"
	"github.com/effective-security/agenthub/prompts"
	"github.com/stretchr/testify/assert"
)

type stubModel struct{}

func (stubModel) GetName() string                    { return "stub" }
func (stubModel) GetProviderType() llms.ProviderType { return llms.ProviderOpenAI }
func (stubModel) GenerateContent(ctx context.Context, messages []llms.Message, options ...llms.CallOption) (*llms.ContentResponse, error) {
	return &llms.ContentResponse{}, nil
}

func newTestAgent() agents.IAgent {
	return agents.NewAgent[chatmodel.String](stubModel{},
		prompts.MustNewPromptTemplate("You help.", nil),
		agents.WithMode(encoding.ModePlainText)).
		WithName("Helper")
}

func TestPrinter(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	p := callbacks.NewPrinter(&buf, callbacks.ModeVerbose)
	ag := newTestAgent()
	ctx := context.Background()

	p.OnAgentStart(ctx, ag, "hello")
	p.OnAgentEnd(ctx, ag, "hello", &llms.ContentResponse{
		Choices: []*llms.ContentChoice{{Content: "done"}},
	}, nil)
	p.OnAgentError(ctx, ag, "hello", errors.New("boom"), nil)
	p.OnToolNotFound(ctx, ag, "missing_tool")

	out := buf.String()
	assert.Contains(t, out, "Agent Start: Helper")
	assert.Contains(t, out, "done")
	assert.Contains(t, out, "Agent Error: Helper: boom")
	assert.Contains(t, out, "Tool Not Found: missing_tool")
}

func TestFanout(t *testing.T) {
	t.Parallel()

	var buf1, buf2 bytes.Buffer
	f := callbacks.NewFanout(
		callbacks.NewPrinter(&buf1, callbacks.ModeDefault),
		callbacks.NewNoop(),
	)
	f.Add(callbacks.NewPrinter(&buf2, callbacks.ModeDefault))

	f.OnAgentStart(context.Background(), newTestAgent(), "hi")

	assert.Contains(t, buf1.String(), "Agent Start: Helper")
	assert.Contains(t, buf2.String(), "Agent Start: Helper")
}
