package mcp_test

import (
	"encoding/json"
	"testing"

	"github.com/fwojciec/toolchat"
	"github.com/fwojciec/toolchat/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeSchema(t *testing.T, s string) map[string]any {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.Unmarshal([]byte(s), &m))
	return m
}

func ptr[T any](v T) *T { return &v }

func TestToFunctionDeclarations_PreservesLengthAndOrder(t *testing.T) {
	t.Parallel()
	caps := []toolchat.Capability{
		{Name: "get_nodes", Description: "List nodes"},
		{Name: "get_styles", Description: "List styles"},
		{Name: "export", Description: "Export a node"},
	}
	decls := mcp.ToFunctionDeclarations(caps)
	require.Len(t, decls, len(caps))
	for i, c := range caps {
		assert.Equal(t, c.Name, decls[i].Name)
		assert.Equal(t, c.Description, decls[i].Description)
		require.NotNil(t, decls[i].Parameters)
		assert.Equal(t, "object", decls[i].Parameters.Type)
		assert.Equal(t, c.Description, decls[i].Parameters.Description)
		assert.NotNil(t, decls[i].Parameters.Properties)
	}
}

func TestToFunctionDeclarations_Empty(t *testing.T) {
	t.Parallel()
	assert.Empty(t, mcp.ToFunctionDeclarations(nil))
}

func TestToFunctionDeclarations_SanitizesProperties(t *testing.T) {
	t.Parallel()
	caps := []toolchat.Capability{{
		Name:        "get_nodes",
		Description: "List nodes",
		InputSchema: decodeSchema(t, `{
			"type": "object",
			"$schema": "http://json-schema.org/draft-07/schema#",
			"additionalProperties": false,
			"properties": {
				"type": {"type": "string", "enum": ["FRAME", "GROUP"], "title": "Node type"},
				"limit": {"type": "integer", "minimum": 1, "maximum": 100, "exclusiveMinimum": 0}
			},
			"required": ["type"]
		}`),
	}}
	decls := mcp.ToFunctionDeclarations(caps)
	require.Len(t, decls, 1)
	params := decls[0].Parameters
	assert.Equal(t, []string{"type"}, params.Required)
	assert.Equal(t, &toolchat.Schema{Type: "string", Enum: []any{"FRAME", "GROUP"}}, params.Properties["type"])
	assert.Equal(t, &toolchat.Schema{Type: "integer", Minimum: ptr(1.0), Maximum: ptr(100.0)}, params.Properties["limit"])
}

func TestSanitizeSchema_KeepsOnlyAllowListedKeys(t *testing.T) {
	t.Parallel()
	raw := decodeSchema(t, `{
		"type": "array",
		"description": "ids",
		"format": "uuid",
		"pattern": "^[0-9]+$",
		"nullable": true,
		"default": ["1"],
		"example": ["2"],
		"minItems": 1,
		"maxItems": 5,
		"minLength": 2,
		"maxLength": 10,
		"minProperties": 0,
		"maxProperties": 3,
		"propertyOrdering": ["a", "b"],
		"items": {"type": "string", "const": "x"},
		"oneOf": [{"type": "string"}],
		"title": "IDs",
		"$ref": "#/defs/ids"
	}`)
	got := mcp.SanitizeSchema(raw)

	want := &toolchat.Schema{
		Type:             "array",
		Description:      "ids",
		Format:           "uuid",
		Pattern:          "^[0-9]+$",
		Nullable:         ptr(true),
		Default:          []any{"1"},
		Example:          []any{"2"},
		MinItems:         ptr(int64(1)),
		MaxItems:         ptr(int64(5)),
		MinLength:        ptr(int64(2)),
		MaxLength:        ptr(int64(10)),
		MinProperties:    ptr(int64(0)),
		MaxProperties:    ptr(int64(3)),
		PropertyOrdering: []string{"a", "b"},
		Items:            &toolchat.Schema{Type: "string"},
	}
	assert.Equal(t, want, got)

	// Every key that survives the round trip through JSON is allow-listed.
	b, err := json.Marshal(got)
	require.NoError(t, err)
	var keys map[string]any
	require.NoError(t, json.Unmarshal(b, &keys))
	for k := range keys {
		assert.True(t, toolchat.IsSchemaKey(k), k)
	}
}

func TestSanitizeSchema_Recursive(t *testing.T) {
	t.Parallel()
	raw := decodeSchema(t, `{
		"type": "object",
		"properties": {
			"filter": {
				"type": "object",
				"additionalProperties": true,
				"properties": {
					"names": {"type": "array", "items": {"type": "string", "examples": ["a"]}}
				}
			},
			"value": {"anyOf": [{"type": "string", "title": "s"}, {"type": "number"}]}
		}
	}`)
	got := mcp.SanitizeSchema(raw)

	names := got.Properties["filter"].Properties["names"]
	require.NotNil(t, names)
	assert.Equal(t, &toolchat.Schema{Type: "array", Items: &toolchat.Schema{Type: "string"}}, names)

	value := got.Properties["value"]
	require.Len(t, value.AnyOf, 2)
	assert.Equal(t, &toolchat.Schema{Type: "string"}, value.AnyOf[0])
	assert.Equal(t, &toolchat.Schema{Type: "number"}, value.AnyOf[1])
}

func TestSanitizeSchema_TypeUnion(t *testing.T) {
	t.Parallel()

	t.Run("null member sets nullable", func(t *testing.T) {
		t.Parallel()
		got := mcp.SanitizeSchema(decodeSchema(t, `{"type": ["string", "null"]}`))
		assert.Equal(t, &toolchat.Schema{Type: "string", Nullable: ptr(true)}, got)
	})

	t.Run("explicit nullable wins", func(t *testing.T) {
		t.Parallel()
		got := mcp.SanitizeSchema(decodeSchema(t, `{"type": ["null", "integer"], "nullable": false}`))
		assert.Equal(t, &toolchat.Schema{Type: "integer", Nullable: ptr(false)}, got)
	})
}

func TestSanitizeSchema_DropsUncoercibleValues(t *testing.T) {
	t.Parallel()
	got := mcp.SanitizeSchema(decodeSchema(t, `{
		"type": "string",
		"description": {"nested": true},
		"maxLength": "many",
		"minimum": "2.5",
		"items": "not a schema",
		"required": null
	}`))
	assert.Equal(t, &toolchat.Schema{Type: "string", Minimum: ptr(2.5)}, got)
}
