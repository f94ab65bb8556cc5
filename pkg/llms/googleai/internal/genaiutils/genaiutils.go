// Package genaiutils converts generic tool and schema definitions to the
// representations expected by the Google GenAI SDK.
package genaiutils

import (
	"github.com/cockroachdb/errors"
	"github.com/effective-security/agenthub/pkg/llms"
	"github.com/effective-security/agenthub/schema"
	"github.com/invopop/jsonschema"
	"google.golang.org/genai"
)

// ConvertTools converts generic tool definitions to genai tools.
func ConvertTools(tools []llms.Tool) ([]*genai.Tool, error) {
	if len(tools) == 0 {
		return nil, nil
	}

	genaiTools := make([]*genai.Tool, 0, len(tools))
	for i, tool := range tools {
		if tool.Type != "function" {
			return nil, errors.Newf("tool [%d]: unsupported type %q, want 'function'", i, tool.Type)
		}

		decl := &genai.FunctionDeclaration{
			Name:        tool.Function.Name,
			Description: tool.Function.Description,
		}

		if tool.Function.Parameters != nil {
			s, err := ConvertJSONSchema(tool.Function.Parameters)
			if err != nil {
				return nil, errors.WithMessagef(err, "tool [%d]", i)
			}
			decl.Parameters = s
		}

		genaiTools = append(genaiTools, &genai.Tool{
			FunctionDeclarations: []*genai.FunctionDeclaration{decl},
		})
	}

	return genaiTools, nil
}

// ConvertResponseFormatSchema converts a json_schema response format to a
// genai.Schema for structured output.
func ConvertResponseFormatSchema(jschema *schema.ResponseFormatJSONSchema) *genai.Schema {
	if jschema == nil || jschema.Schema == nil {
		return nil
	}

	var convert func(p *schema.ResponseFormatJSONSchemaProperty) *genai.Schema
	convert = func(p *schema.ResponseFormatJSONSchemaProperty) *genai.Schema {
		if p == nil {
			return nil
		}

		out := &genai.Schema{
			Type:        ConvertSchemaType(p.Type),
			Description: p.Description,
			Required:    p.Required,
		}
		if len(p.Properties) > 0 {
			out.Properties = make(map[string]*genai.Schema, len(p.Properties))
			for k, v := range p.Properties {
				out.Properties[k] = convert(v)
			}
		}
		if p.Items != nil {
			out.Items = convert(p.Items)
		}
		return out
	}

	return convert(jschema.Schema)
}

// ConvertJSONSchema converts a jsonschema.Schema to a genai.Schema.
func ConvertJSONSchema(jschema *jsonschema.Schema) (*genai.Schema, error) {
	if jschema == nil {
		return nil, nil
	}

	out := &genai.Schema{
		Type:        ConvertSchemaType(jschema.Type),
		Description: jschema.Description,
		Required:    jschema.Required,
	}

	if jschema.Properties != nil {
		out.Properties = make(map[string]*genai.Schema)
		for pair := jschema.Properties.Oldest(); pair != nil; pair = pair.Next() {
			propSchema, err := ConvertJSONSchema(pair.Value)
			if err != nil {
				return nil, errors.WithMessagef(err, "property [%s]", pair.Key)
			}
			out.Properties[pair.Key] = propSchema
		}
	}

	if jschema.Items != nil {
		itemsSchema, err := ConvertJSONSchema(jschema.Items)
		if err != nil {
			return nil, errors.WithMessage(err, "items")
		}
		out.Items = itemsSchema
	}

	return out, nil
}

// ConvertSchemaType converts a JSON Schema type name to a genai enum.
func ConvertSchemaType(dt string) genai.Type {
	switch dt {
	case "object":
		return genai.TypeObject
	case "string":
		return genai.TypeString
	case "number":
		return genai.TypeNumber
	case "integer":
		return genai.TypeInteger
	case "boolean":
		return genai.TypeBoolean
	case "array":
		return genai.TypeArray
	default:
		return genai.TypeUnspecified
	}
}

// Float32Ptr returns a pointer to f, or nil when f is zero.
func Float32Ptr(f float32) *float32 {
	if f == 0 {
		return nil
	}
	return &f
}

// Int32Ptr returns a pointer to i, or nil when i is zero.
func Int32Ptr(i int32) *int32 {
	if i == 0 {
		return nil
	}
	return &i
}
