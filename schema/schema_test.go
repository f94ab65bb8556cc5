package schema_test

import (
	"reflect"
	"testing"

	"github.com/effective-security/agenthub/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type SearchType string

const (
	Web   SearchType = "web"
	Image SearchType = "image"
	Video SearchType = "video"
)

type Search struct {
	Topic string     `json:"topic,omitempty" jsonschema:"title=Topic,description=Topic of the search,example=golang"`
	Query string     `json:"query" jsonschema:"title=Query,description=Query to search for relevant content,example=what is golang"`
	Type  SearchType `json:"type"  jsonschema:"title=Type,description=Type of search,default=web,enum=web,enum=image,enum=video"`
}

type Nested struct {
	Name    string   `json:"name" jsonschema:"title=Name"`
	Queries []Search `json:"queries" jsonschema:"title=Queries"`
}

func TestSchema(t *testing.T) {
	s, err := schema.New(reflect.TypeOf(Search{}))
	require.NoError(t, err)
	require.NotNil(t, s.Parameters)

	assert.Equal(t, "object", s.Parameters.Type)
	assert.Equal(t, []string{"query", "type"}, s.Parameters.Required)

	prop, ok := s.Parameters.Properties.Get("type")
	require.True(t, ok)
	assert.Equal(t, "string", prop.Type)
	assert.Len(t, prop.Enum, 3)

	// same type returns the cached instance
	s2, err := schema.New(reflect.TypeOf(Search{}))
	require.NoError(t, err)
	assert.Same(t, s, s2)
}

func TestSchemaNested(t *testing.T) {
	s, err := schema.New(reflect.TypeOf(Nested{}))
	require.NoError(t, err)

	prop, ok := s.Parameters.Properties.Get("queries")
	require.True(t, ok)
	assert.Equal(t, "array", prop.Type)
	require.NotNil(t, prop.Items)
	// $ref must be resolved into the full definition
	assert.Empty(t, prop.Items.Ref)
	assert.Equal(t, "object", prop.Items.Type)
	_, ok = prop.Items.Properties.Get("query")
	assert.True(t, ok)
}

func TestResponseFormatStrict(t *testing.T) {
	rf, err := schema.NewResponseFormat(reflect.TypeOf(Search{}), true)
	require.NoError(t, err)

	assert.Equal(t, "json_schema", rf.Type)
	require.NotNil(t, rf.JSONSchema)
	assert.Equal(t, "Search", rf.JSONSchema.Name)
	assert.True(t, rf.JSONSchema.Strict)

	sc := rf.JSONSchema.Schema
	require.NotNil(t, sc)
	require.NotNil(t, sc.AdditionalProperties)
	assert.False(t, *sc.AdditionalProperties)
	// strict mode requires every property
	assert.ElementsMatch(t, []string{"topic", "query", "type"}, sc.Required)
}

func TestCompileValidateJSON(t *testing.T) {
	c, err := schema.Compile(reflect.TypeOf(Search{}))
	require.NoError(t, err)

	err = c.ValidateJSON([]byte(`{"query":"dragons","type":"web"}`))
	assert.NoError(t, err)

	err = c.ValidateJSON([]byte(`{"type":"web"}`))
	assert.Error(t, err)

	err = c.ValidateJSON([]byte(`not json`))
	assert.Error(t, err)
}

type validated struct {
	Email string `json:"email" validate:"required,email"`
}

func TestValidateStruct(t *testing.T) {
	err := schema.ValidateStruct(&validated{Email: "nope"})
	assert.Error(t, err)

	err = schema.ValidateStruct(&validated{Email: "a@b.co"})
	assert.NoError(t, err)
}
