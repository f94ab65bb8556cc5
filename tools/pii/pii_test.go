package pii_test

import (
	"context"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/agenthub/pkg/llms"
	"github.com/effective-security/agenthub/tools/pii"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeModel returns scripted responses.
type fakeModel struct {
	provider  llms.ProviderType
	responses []*llms.ContentResponse
	requests  [][]llms.Message
}

func (m *fakeModel) GetName() string                    { return "fake-model" }
func (m *fakeModel) GetProviderType() llms.ProviderType { return m.provider }

func (m *fakeModel) GenerateContent(ctx context.Context, messages []llms.Message, options ...llms.CallOption) (*llms.ContentResponse, error) {
	m.requests = append(m.requests, messages)
	if len(m.responses) == 0 {
		return nil, errors.New("no scripted response")
	}
	resp := m.responses[0]
	m.responses = m.responses[1:]
	return resp, nil
}

func textResponse(content string) *llms.ContentResponse {
	return &llms.ContentResponse{
		Choices: []*llms.ContentChoice{
			{Content: content, StopReason: "stop"},
		},
	}
}

func TestScrubDetectors(t *testing.T) {
	t.Parallel()

	text := "Contact John at john.doe@example.com or 555-123-4567. " +
		"SSN 123-45-6789, card 4111 1111 1111 1111, server 192.168.1.10, " +
		"key sk-abcdefghij0123456789."

	res, err := pii.NewScrubber().Scrub(context.Background(), text)
	require.NoError(t, err)

	assert.NotContains(t, res.Text, "john.doe@example.com")
	assert.NotContains(t, res.Text, "555-123-4567")
	assert.NotContains(t, res.Text, "123-45-6789")
	assert.NotContains(t, res.Text, "4111 1111 1111 1111")
	assert.NotContains(t, res.Text, "192.168.1.10")
	assert.NotContains(t, res.Text, "sk-abcdefghij0123456789")

	assert.Contains(t, res.Text, "[EMAIL_1]")
	assert.Contains(t, res.Text, "[PHONE_1]")
	assert.Contains(t, res.Text, "[SSN_1]")
	assert.Contains(t, res.Text, "[CREDIT_CARD_1]")
	assert.Contains(t, res.Text, "[IP_ADDRESS_1]")
	assert.Contains(t, res.Text, "[API_KEY_1]")

	types := map[pii.EntityType]int{}
	for _, ent := range res.Entities {
		types[ent.Type]++
	}
	assert.Equal(t, 1, types[pii.TypeEmail])
	assert.Equal(t, 1, types[pii.TypeCreditCard])

	restored := pii.Restore(res.Text, res.Entities)
	assert.Equal(t, text, restored)
}

func TestScrubLuhnRejectsNonCard(t *testing.T) {
	t.Parallel()

	// fails the Luhn checksum, must be left alone
	res, err := pii.NewScrubber().Scrub(context.Background(), "order number 4111 1111 1111 1112")
	require.NoError(t, err)
	assert.Contains(t, res.Text, "4111 1111 1111 1112")
	assert.Empty(t, res.Entities)
}

func TestScrubMultipleEmails(t *testing.T) {
	t.Parallel()

	res, err := pii.NewScrubber().Scrub(context.Background(), "a@example.com and b@example.com")
	require.NoError(t, err)
	assert.Equal(t, "[EMAIL_1] and [EMAIL_2]", res.Text)
	require.Len(t, res.Entities, 2)
	assert.Equal(t, "a@example.com", res.Entities[0].Value)
}

func TestScrubWithModel(t *testing.T) {
	t.Parallel()

	model := &fakeModel{
		provider: llms.ProviderOpenAI,
		responses: []*llms.ContentResponse{
			textResponse(`[
				{"type":"PERSON","value":"Jane Smith"},
				{"type":"ORGANIZATION","value":"Acme Corp"},
				{"type":"ADDRESS","value":"1 Main St, Springfield"}
			]`),
		},
	}

	text := "Jane Smith of Acme Corp (jane@acme.com) lives at 1 Main St, Springfield."
	res, err := pii.NewScrubber().WithModel(model).Scrub(context.Background(), text)
	require.NoError(t, err)

	assert.NotContains(t, res.Text, "Jane Smith")
	assert.NotContains(t, res.Text, "Acme Corp")
	assert.NotContains(t, res.Text, "jane@acme.com")
	assert.Contains(t, res.Text, "[PERSON_1]")
	assert.Contains(t, res.Text, "[ORGANIZATION_1]")
	assert.Contains(t, res.Text, "[ADDRESS_1]")

	// the model pass receives the already scrubbed text
	require.Len(t, model.requests, 1)
	prompt := model.requests[0][0].Parts[0].(llms.TextContent).Text
	assert.Contains(t, prompt, "[EMAIL_1]")
	assert.NotContains(t, prompt, "jane@acme.com")

	restored := pii.Restore(res.Text, res.Entities)
	assert.Equal(t, text, restored)
}

func TestScrubModelHallucination(t *testing.T) {
	t.Parallel()

	// values not present in the text are dropped
	model := &fakeModel{
		provider: llms.ProviderOpenAI,
		responses: []*llms.ContentResponse{
			textResponse(`[{"type":"PERSON","value":"Nobody Here"},{"type":"BOGUS","value":"x"}]`),
		},
	}

	res, err := pii.NewScrubber().WithModel(model).Scrub(context.Background(), "nothing sensitive")
	require.NoError(t, err)
	assert.Equal(t, "nothing sensitive", res.Text)
	assert.Empty(t, res.Entities)
}

func TestTool(t *testing.T) {
	t.Parallel()

	tool, err := pii.New(nil)
	require.NoError(t, err)

	assert.Equal(t, pii.ToolName, tool.Name())
	assert.NotNil(t, tool.Parameters())

	out, err := tool.Call(context.Background(), `{"Text":"mail me at a@example.com"}`)
	require.NoError(t, err)
	assert.Contains(t, out, "[EMAIL_1]")
	assert.NotContains(t, out, "a@example.com")

	_, err = tool.Run(context.Background(), &pii.ScrubRequest{})
	assert.EqualError(t, err, "invalid request: empty text")
}
