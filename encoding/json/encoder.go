package json

import (
	"bytes"
	"encoding/json"
	"reflect"

	"github.com/bububa/ljson"
	"github.com/effective-security/agenthub/llmutils"
	"github.com/effective-security/agenthub/schema"
)

// Encoder decodes LLM output into a typed struct, tolerating the usual
// chatter around the JSON body.
type Encoder struct {
	schema   *schema.Schema
	compiled *schema.Compiled
}

func NewEncoder(req any) (*Encoder, error) {
	t := reflect.TypeOf(req)
	sc, err := schema.New(t)
	if err != nil {
		return nil, err
	}
	compiled, err := schema.Compile(t)
	if err != nil {
		return nil, err
	}
	return &Encoder{
		schema:   sc,
		compiled: compiled,
	}, nil
}

func (e *Encoder) Marshal(req any) ([]byte, error) {
	return json.Marshal(req)
}

func (e *Encoder) Unmarshal(bs []byte, ret any) error {
	data := llmutils.CleanJSON(bs)
	// schema-check well-formed documents, ljson still recovers
	// truncated output
	if json.Valid(data) {
		if err := e.compiled.ValidateJSON(data); err != nil {
			return err
		}
	}
	return ljson.Unmarshal(data, ret)
}

func (e *Encoder) Validate(req any) error {
	return schema.ValidateStruct(req)
}

func (e *Encoder) GetFormatInstructions() string {
	var b bytes.Buffer
	b.WriteString("\nRespond with JSON in the following JSON schema:\n")
	b.WriteString("```json\n")
	b.WriteString(e.schema.String())
	b.WriteString("\n```")
	b.WriteString("\nMake sure to return an instance of the JSON, not the schema itself.\n")
	b.WriteString("Use the exact field names as they are defined in the schema.\n")
	return b.String()
}

func (e *Encoder) Schema() *schema.Schema {
	return e.schema
}
