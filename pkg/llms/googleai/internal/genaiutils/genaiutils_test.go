package genaiutils

import (
	"reflect"
	"testing"

	"github.com/effective-security/agenthub/pkg/llms"
	"github.com/effective-security/agenthub/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
)

func TestConvertJSONSchema(t *testing.T) {
	t.Parallel()

	type address struct {
		Street string `json:"street"`
		City   string `json:"city"`
	}
	type person struct {
		Name    string   `json:"name" jsonschema:"description=Name field"`
		Age     int      `json:"age,omitempty"`
		Address *address `json:"address,omitempty"`
		Tags    []string `json:"tags,omitempty"`
	}

	s, err := schema.New(reflect.TypeOf(person{}))
	require.NoError(t, err)

	result, err := ConvertJSONSchema(s.Parameters)
	require.NoError(t, err)

	assert.Equal(t, genai.TypeObject, result.Type)
	assert.Equal(t, []string{"name"}, result.Required)
	require.Len(t, result.Properties, 4)
	assert.Equal(t, genai.TypeString, result.Properties["name"].Type)
	assert.Equal(t, "Name field", result.Properties["name"].Description)
	assert.Equal(t, genai.TypeInteger, result.Properties["age"].Type)

	addressProp := result.Properties["address"]
	require.NotNil(t, addressProp)
	assert.Equal(t, genai.TypeObject, addressProp.Type)
	require.Len(t, addressProp.Properties, 2)
	assert.Equal(t, genai.TypeString, addressProp.Properties["street"].Type)

	tagsProp := result.Properties["tags"]
	require.NotNil(t, tagsProp)
	assert.Equal(t, genai.TypeArray, tagsProp.Type)
	require.NotNil(t, tagsProp.Items)
	assert.Equal(t, genai.TypeString, tagsProp.Items.Type)

	nilResult, err := ConvertJSONSchema(nil)
	require.NoError(t, err)
	assert.Nil(t, nilResult)
}

func TestConvertSchemaType(t *testing.T) {
	t.Parallel()

	assert.Equal(t, genai.TypeObject, ConvertSchemaType("object"))
	assert.Equal(t, genai.TypeString, ConvertSchemaType("string"))
	assert.Equal(t, genai.TypeNumber, ConvertSchemaType("number"))
	assert.Equal(t, genai.TypeInteger, ConvertSchemaType("integer"))
	assert.Equal(t, genai.TypeBoolean, ConvertSchemaType("boolean"))
	assert.Equal(t, genai.TypeArray, ConvertSchemaType("array"))
	assert.Equal(t, genai.TypeUnspecified, ConvertSchemaType("unknown"))
}

func TestConvertTools(t *testing.T) {
	t.Parallel()

	type weatherParams struct {
		Location string `json:"location"`
	}
	s, err := schema.New(reflect.TypeOf(weatherParams{}))
	require.NoError(t, err)

	result, err := ConvertTools(nil)
	require.NoError(t, err)
	assert.Nil(t, result)

	_, err = ConvertTools([]llms.Tool{
		{Type: "retrieval"},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported type")

	result, err = ConvertTools([]llms.Tool{
		{
			Type: "function",
			Function: &llms.FunctionDefinition{
				Name:        "get_weather",
				Description: "Get current weather",
				Parameters:  s.Parameters,
			},
		},
	})
	require.NoError(t, err)
	require.Len(t, result, 1)
	require.Len(t, result[0].FunctionDeclarations, 1)

	decl := result[0].FunctionDeclarations[0]
	assert.Equal(t, "get_weather", decl.Name)
	require.NotNil(t, decl.Parameters)
	assert.Equal(t, genai.TypeObject, decl.Parameters.Type)
	assert.Contains(t, decl.Parameters.Properties, "location")
}

func TestConvertResponseFormatSchema(t *testing.T) {
	t.Parallel()

	assert.Nil(t, ConvertResponseFormatSchema(nil))

	type result struct {
		Answer string   `json:"answer"`
		Steps  []string `json:"steps,omitempty"`
	}
	rf, err := schema.NewResponseFormat(reflect.TypeOf(result{}), true)
	require.NoError(t, err)

	converted := ConvertResponseFormatSchema(rf.JSONSchema)
	require.NotNil(t, converted)
	assert.Equal(t, genai.TypeObject, converted.Type)
	assert.Contains(t, converted.Properties, "answer")
	assert.Contains(t, converted.Properties, "steps")
	assert.Equal(t, genai.TypeArray, converted.Properties["steps"].Type)
}
