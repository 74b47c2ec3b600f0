package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJSONToValsScalarRoundTrip(t *testing.T) {
	params := []Field{
		{Name: "count", Type: Type{Kind: KindU32}},
		{Name: "label", Type: Type{Kind: KindString}},
		{Name: "ok", Type: Type{Kind: KindBool}},
	}
	args := map[string]interface{}{"count": float64(3), "label": "hello", "ok": true}

	vals, err := JSONToVals(args, params)
	require.NoError(t, err)
	require.Len(t, vals, 3)
	assert.Equal(t, uint64(3), vals[0].U64)
	assert.Equal(t, "hello", vals[1].Str)
	assert.True(t, vals[2].Bool)

	out := ValsToJSON(vals)
	arr, ok := out.([]interface{})
	require.True(t, ok)
	assert.Equal(t, uint64(3), arr[0])
	assert.Equal(t, "hello", arr[1])
	assert.Equal(t, true, arr[2])
}

func TestJSONToValsMissingParamIsShapeError(t *testing.T) {
	params := []Field{{Name: "count", Type: Type{Kind: KindU32}}}

	_, err := JSONToVals(map[string]interface{}{}, params)
	require.Error(t, err)
	var shapeErr *ShapeError
	require.ErrorAs(t, err, &shapeErr)
	assert.Equal(t, "count", shapeErr.Path)
}

func TestJSONToValSignedRangeChecks(t *testing.T) {
	tests := []struct {
		name    string
		kind    Kind
		value   float64
		wantErr bool
	}{
		{"s8 in range", KindS8, 127, false},
		{"s8 out of range", KindS8, 128, true},
		{"s8 non-integral", KindS8, 1.5, true},
		{"u8 negative", KindU8, -1, true},
		{"u8 in range", KindU8, 255, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := jsonToVal(tc.value, Type{Kind: tc.kind}, "x")
			if tc.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestJSONToValChar(t *testing.T) {
	v, err := jsonToVal("a", Type{Kind: KindChar}, "c")
	require.NoError(t, err)
	assert.Equal(t, "a", v.Str)

	_, err = jsonToVal("ab", Type{Kind: KindChar}, "c")
	require.Error(t, err)
	var charErr *InvalidCharError
	assert.ErrorAs(t, err, &charErr)
}

func TestJSONToValListAndTuple(t *testing.T) {
	listType := Type{Kind: KindList, Elem: &Type{Kind: KindString}}
	v, err := jsonToVal([]interface{}{"a", "b"}, listType, "xs")
	require.NoError(t, err)
	require.Len(t, v.Items, 2)
	assert.Equal(t, "a", v.Items[0].Str)

	tupleType := Type{Kind: KindTuple, Items: []Type{{Kind: KindString}, {Kind: KindBool}}}
	v, err = jsonToVal([]interface{}{"a", true}, tupleType, "t")
	require.NoError(t, err)
	require.Len(t, v.Items, 2)

	_, err = jsonToVal([]interface{}{"a"}, tupleType, "t")
	assert.Error(t, err)
}

func TestJSONToValRecord(t *testing.T) {
	recordType := Type{Kind: KindRecord, Fields: []Field{
		{Name: "x", Type: Type{Kind: KindS32}},
		{Name: "y", Type: Type{Kind: KindS32}},
	}}
	v, err := jsonToVal(map[string]interface{}{"x": float64(1), "y": float64(2)}, recordType, "point")
	require.NoError(t, err)
	assert.Equal(t, int64(1), v.Fields["x"].I64)

	_, err = jsonToVal(map[string]interface{}{"x": float64(1)}, recordType, "point")
	require.Error(t, err)
	var shapeErr *ShapeError
	assert.ErrorAs(t, err, &shapeErr)
}

func TestJSONToValVariant(t *testing.T) {
	variantType := Type{Kind: KindVariant, Cases: []VariantCase{
		{Tag: "none"},
		{Tag: "some", Payload: &Type{Kind: KindString}},
	}}

	v, err := jsonToVal(map[string]interface{}{"tag": "none"}, variantType, "v")
	require.NoError(t, err)
	assert.Equal(t, "none", v.VariantTag)
	assert.Nil(t, v.VariantVal)

	v, err = jsonToVal(map[string]interface{}{"tag": "some", "val": "x"}, variantType, "v")
	require.NoError(t, err)
	require.NotNil(t, v.VariantVal)
	assert.Equal(t, "x", v.VariantVal.Str)

	_, err = jsonToVal(map[string]interface{}{"tag": "bogus"}, variantType, "v")
	require.Error(t, err)
	var unknownErr *UnknownShapeError
	assert.ErrorAs(t, err, &unknownErr)
}

func TestJSONToValEnum(t *testing.T) {
	enumType := Type{Kind: KindEnum, EnumValues: []string{"red", "green", "blue"}}

	v, err := jsonToVal("green", enumType, "color")
	require.NoError(t, err)
	assert.Equal(t, "green", v.Str)

	_, err = jsonToVal("purple", enumType, "color")
	var unknownErr *UnknownShapeError
	assert.ErrorAs(t, err, &unknownErr)
}

func TestJSONToValOption(t *testing.T) {
	optType := Type{Kind: KindOption, Some: &Type{Kind: KindString}}

	v, err := jsonToVal(nil, optType, "maybe")
	require.NoError(t, err)
	assert.Nil(t, v.Option)
	assert.Equal(t, nil, valToJSON(v))

	v, err = jsonToVal("present", optType, "maybe")
	require.NoError(t, err)
	require.NotNil(t, v.Option)
	assert.Equal(t, "present", v.Option.Str)
}

func TestJSONToValResult(t *testing.T) {
	resultType := Type{Kind: KindResult, Ok: &Type{Kind: KindString}, Err: &Type{Kind: KindString}}

	v, err := jsonToVal(map[string]interface{}{"ok": "done"}, resultType, "r")
	require.NoError(t, err)
	assert.False(t, v.ResultErr)
	assert.Equal(t, "done", v.ResultVal.Str)

	v, err = jsonToVal(map[string]interface{}{"err": "boom"}, resultType, "r")
	require.NoError(t, err)
	assert.True(t, v.ResultErr)
	assert.Equal(t, "boom", v.ResultVal.Str)

	_, err = jsonToVal(map[string]interface{}{}, resultType, "r")
	assert.Error(t, err)
}

func TestJSONToValFlags(t *testing.T) {
	flagsType := Type{Kind: KindFlags, FlagNames: []string{"read", "write", "execute"}}

	v, err := jsonToVal([]interface{}{"read", "write"}, flagsType, "perm")
	require.NoError(t, err)
	assert.Equal(t, []string{"read", "write"}, v.Flags)

	_, err = jsonToVal([]interface{}{"delete"}, flagsType, "perm")
	var unknownErr *UnknownShapeError
	assert.ErrorAs(t, err, &unknownErr)
}

func TestValsToJSONSingleVsMultiple(t *testing.T) {
	single := ValsToJSON([]Value{{Kind: KindString, Str: "only"}})
	assert.Equal(t, "only", single)

	multi := ValsToJSON([]Value{{Kind: KindString, Str: "a"}, {Kind: KindBool, Bool: true}})
	arr, ok := multi.([]interface{})
	require.True(t, ok)
	assert.Equal(t, []interface{}{"a", true}, arr)
}

func TestCreatePlaceholderResults(t *testing.T) {
	types := []Type{
		{Kind: KindRecord, Fields: []Field{{Name: "x", Type: Type{Kind: KindS32}}}},
		{Kind: KindList},
	}
	placeholders := CreatePlaceholderResults(types)
	require.Len(t, placeholders, 2)
	assert.Contains(t, placeholders[0].Fields, "x")
}

func TestNativeToValsWidensNumericTypes(t *testing.T) {
	vals, err := NativeToVals(int32(42), []Type{{Kind: KindS32}})
	require.NoError(t, err)
	require.Len(t, vals, 1)
	assert.Equal(t, int64(42), vals[0].I64)
}

func TestNativeToValsTupleShapeMismatch(t *testing.T) {
	_, err := NativeToVals("not-a-tuple", []Type{{Kind: KindS32}, {Kind: KindS32}})
	var shapeErr *ShapeError
	assert.ErrorAs(t, err, &shapeErr)
}
