package schema

import (
	"bytes"
	"encoding/json"
	"reflect"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/go-playground/validator/v10"
	jsonschemav6 "github.com/santhosh-tekuri/jsonschema/v6"
)

// Validatable is implemented by request structs that need custom business
// validation, called after schema validation and unmarshaling.
type Validatable interface {
	Validate() error
}

var (
	structValidator     *validator.Validate
	structValidatorOnce sync.Once
)

// ValidateStruct validates the struct tags of a typed request or response.
func ValidateStruct(v any) error {
	structValidatorOnce.Do(func() {
		structValidator = validator.New(validator.WithRequiredStructEnabled())
	})
	if err := structValidator.Struct(v); err != nil {
		return errors.WithMessage(err, "struct validation failed")
	}
	if custom, ok := v.(Validatable); ok {
		if err := custom.Validate(); err != nil {
			return errors.WithMessage(err, "validation failed")
		}
	}
	return nil
}

// Compiled is a compiled JSON schema that can validate raw documents.
type Compiled struct {
	schema *jsonschemav6.Schema
}

var (
	compiled   = make(map[reflect.Type]*Compiled)
	compiledMu sync.Mutex
)

// Compile reflects the type and compiles the resulting schema,
// so raw LLM output can be validated before it is unmarshaled.
func Compile(t reflect.Type) (*Compiled, error) {
	compiledMu.Lock()
	defer compiledMu.Unlock()

	if c, ok := compiled[t]; ok {
		return c, nil
	}

	s, err := New(t)
	if err != nil {
		return nil, err
	}
	raw, err := json.Marshal(s.Parameters)
	if err != nil {
		return nil, errors.WithMessage(err, "failed to marshal schema")
	}
	doc, err := jsonschemav6.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return nil, errors.WithMessage(err, "failed to parse schema")
	}

	compiler := jsonschemav6.NewCompiler()
	url := "mem://" + t.String() + ".json"
	if err := compiler.AddResource(url, doc); err != nil {
		return nil, errors.WithMessage(err, "failed to add schema resource")
	}
	sch, err := compiler.Compile(url)
	if err != nil {
		return nil, errors.WithMessage(err, "failed to compile schema")
	}

	c := &Compiled{schema: sch}
	compiled[t] = c
	return c, nil
}

// ValidateJSON validates a raw JSON document against the compiled schema.
func (c *Compiled) ValidateJSON(raw []byte) error {
	doc, err := jsonschemav6.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return errors.WithMessage(err, "invalid JSON document")
	}
	if err := c.schema.Validate(doc); err != nil {
		return errors.WithMessage(err, "document does not match schema")
	}
	return nil
}
