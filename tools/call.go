package tools

import (
	"context"
	"encoding/json"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/agenthub/chatmodel"
	"github.com/effective-security/agenthub/llmutils"
	"github.com/effective-security/agenthub/schema"
)

// CallTyped unmarshals the raw tool input, validates the typed request,
// and marshals the typed result. Tool implementations delegate their
// Call method here to keep a single input/output contract.
func CallTyped[I any, O any](ctx context.Context, t Tool[I, O], input string) (string, error) {
	var req I
	if err := json.Unmarshal(llmutils.CleanJSON([]byte(input)), &req); err != nil {
		return "", errors.WithMessagef(chatmodel.ErrFailedUnmarshalInput, "%s", err.Error())
	}
	if err := schema.ValidateStruct(&req); err != nil {
		return "", err
	}
	out, err := t.Run(ctx, &req)
	if err != nil {
		return "", err
	}
	bs, err := json.Marshal(out)
	if err != nil {
		return "", errors.Wrap(err, "failed to marshal output")
	}
	return string(bs), nil
}
