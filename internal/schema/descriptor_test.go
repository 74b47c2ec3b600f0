package schema

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComponentExportsToSchemaBuildsOneToolPerFunction(t *testing.T) {
	c := Component{Functions: []Function{
		{Name: "add", Params: []Field{{Name: "a", Type: Type{Kind: KindS32}}, {Name: "b", Type: Type{Kind: KindS32}}}, Results: []Type{{Kind: KindS32}}},
		{InterfacePath: "wasi:clocks/monotonic-clock", Name: "now", Results: []Type{{Kind: KindU64}}},
	}}

	toolSchema := ComponentExportsToSchema(c, true)
	require.Len(t, toolSchema.Tools, 2)

	add := toolSchema.Tools[0]
	assert.Equal(t, "add", add.Name)
	props, ok := add.InputSchema["properties"].(map[string]interface{})
	require.True(t, ok)
	assert.Contains(t, props, "a")
	assert.Contains(t, props, "b")
	assert.Equal(t, []string{"a", "b"}, add.InputSchema["required"])
	assert.NotNil(t, add.OutputSchema)

	clock := toolSchema.Tools[1]
	assert.Equal(t, "wasi:clocks/monotonic-clock.now", clock.Name)
	assert.Contains(t, clock.Description, "wasi:clocks/monotonic-clock")
}

func TestComponentExportsToSchemaOmitsOutputSchemaWhenNotRequested(t *testing.T) {
	c := Component{Functions: []Function{
		{Name: "ping", Results: []Type{{Kind: KindBool}}},
	}}
	toolSchema := ComponentExportsToSchema(c, false)
	assert.Nil(t, toolSchema.Tools[0].OutputSchema)
}

func TestComponentExportsToSchemaMultipleResultsBuildsTupleOutput(t *testing.T) {
	c := Component{Functions: []Function{
		{Name: "divmod", Results: []Type{{Kind: KindS32}, {Kind: KindS32}}},
	}}
	toolSchema := ComponentExportsToSchema(c, true)
	out := toolSchema.Tools[0].OutputSchema
	assert.Equal(t, "array", out["type"])
	assert.Equal(t, 2, out["minItems"])
}

func TestDescribeFunctionTruncatesLongNames(t *testing.T) {
	fn := Function{InterfacePath: strings.Repeat("wasi:very-long-interface-path/", 10), Name: "do-something"}
	desc := describeFunction(fn)
	assert.LessOrEqual(t, len(desc), descriptionMaxLen)
	assert.Contains(t, desc, "...")
}

func TestTypeToJSONSchemaPrimitives(t *testing.T) {
	assert.Equal(t, "boolean", typeToJSONSchema(Type{Kind: KindBool})["type"])
	assert.Equal(t, "number", typeToJSONSchema(Type{Kind: KindS32})["type"])
	assert.Equal(t, "string", typeToJSONSchema(Type{Kind: KindString})["type"])
}

func TestTypeToJSONSchemaList(t *testing.T) {
	schema := typeToJSONSchema(Type{Kind: KindList, Elem: &Type{Kind: KindString}})
	assert.Equal(t, "array", schema["type"])
	items := schema["items"].(map[string]interface{})
	assert.Equal(t, "string", items["type"])
}

func TestTypeToJSONSchemaVariant(t *testing.T) {
	variant := Type{Kind: KindVariant, Cases: []VariantCase{
		{Tag: "none"},
		{Tag: "some", Payload: &Type{Kind: KindString}},
	}}
	schema := typeToJSONSchema(variant)
	shapes, ok := schema["oneOf"].([]map[string]interface{})
	require.True(t, ok)
	require.Len(t, shapes, 2)
}

func TestTypeToJSONSchemaOption(t *testing.T) {
	opt := Type{Kind: KindOption, Some: &Type{Kind: KindBool}}
	schema := typeToJSONSchema(opt)
	anyOf, ok := schema["anyOf"].([]map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "null", anyOf[0]["type"])
	assert.Equal(t, "boolean", anyOf[1]["type"])
}

func TestTypeToJSONSchemaResult(t *testing.T) {
	res := Type{Kind: KindResult, Ok: &Type{Kind: KindString}, Err: &Type{Kind: KindString}}
	schema := typeToJSONSchema(res)
	shapes, ok := schema["oneOf"].([]map[string]interface{})
	require.True(t, ok)
	require.Len(t, shapes, 2)
}

func TestTypeToJSONSchemaResource(t *testing.T) {
	owned := typeToJSONSchema(Type{Kind: KindResource, ResourceName: "file", ResourceOwn: true})
	assert.Contains(t, owned["description"], "own")

	borrowed := typeToJSONSchema(Type{Kind: KindResource, ResourceName: "file", ResourceOwn: false})
	assert.Contains(t, borrowed["description"], "borrow")
}

func TestFunctionQualifiedName(t *testing.T) {
	rootFn := Function{Name: "get-time"}
	assert.Equal(t, "get-time", rootFn.QualifiedName())

	ifaceFn := Function{InterfacePath: "wasi:clocks/monotonic-clock", Name: "now"}
	assert.Equal(t, "wasi:clocks/monotonic-clock.now", ifaceFn.QualifiedName())
}
