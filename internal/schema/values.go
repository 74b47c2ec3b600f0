package schema

import (
	"fmt"
	"math"
	"unicode/utf8"
)

// Value is the component model's dynamic value tree: the engine-native
// representation that JSON arguments are converted into before a call, and
// that call results are converted back out of.
type Value struct {
	Kind Kind

	Bool bool
	I64  int64   // s8/s16/s32/s64
	U64  uint64  // u8/u16/u32/u64
	F64  float64 // float32/float64
	Str  string  // string, char, enum tag, resource token

	Items  []Value          // list, tuple
	Fields map[string]Value // record, keyed by field name

	VariantTag string // variant
	VariantVal *Value // variant payload; nil for a no-payload case

	Option *Value // option<T>; nil means none, non-nil means some(*Option)

	ResultErr bool   // result<O,E>
	ResultVal *Value // ok or err payload; nil for a unit ok/err

	Flags []string // flags: names of the set flags
}

// JSONToVals matches each named parameter in argsObject against params, in
// params order, and converts each into the engine's value representation.
func JSONToVals(argsObject map[string]interface{}, params []Field) ([]Value, error) {
	vals := make([]Value, 0, len(params))
	for _, p := range params {
		raw, ok := argsObject[p.Name]
		if !ok {
			return nil, &ShapeError{Path: p.Name}
		}
		v, err := jsonToVal(raw, p.Type, p.Name)
		if err != nil {
			return nil, err
		}
		vals = append(vals, v)
	}
	return vals, nil
}

func jsonToVal(raw interface{}, t Type, path string) (Value, error) {
	switch t.Kind {
	case KindBool:
		b, ok := raw.(bool)
		if !ok {
			return Value{}, &NumberError{Path: path, Want: t.Kind, Got: raw}
		}
		return Value{Kind: t.Kind, Bool: b}, nil

	case KindS8, KindS16, KindS32, KindS64:
		n, ok := asFloat(raw)
		if !ok || !fitsSigned(n, t.Kind) {
			return Value{}, &NumberError{Path: path, Want: t.Kind, Got: raw}
		}
		return Value{Kind: t.Kind, I64: int64(n)}, nil

	case KindU8, KindU16, KindU32, KindU64:
		n, ok := asFloat(raw)
		if !ok || n < 0 || !fitsUnsigned(n, t.Kind) {
			return Value{}, &NumberError{Path: path, Want: t.Kind, Got: raw}
		}
		return Value{Kind: t.Kind, U64: uint64(n)}, nil

	case KindFloat32, KindFloat64:
		n, ok := asFloat(raw)
		if !ok {
			return Value{}, &NumberError{Path: path, Want: t.Kind, Got: raw}
		}
		return Value{Kind: t.Kind, F64: n}, nil

	case KindChar:
		s, ok := raw.(string)
		if !ok {
			return Value{}, &NumberError{Path: path, Want: t.Kind, Got: raw}
		}
		if cnt := utf8.RuneCountInString(s); cnt != 1 {
			return Value{}, &InvalidCharError{Path: path, Got: s}
		}
		return Value{Kind: t.Kind, Str: s}, nil

	case KindString:
		s, ok := raw.(string)
		if !ok {
			return Value{}, &NumberError{Path: path, Want: t.Kind, Got: raw}
		}
		return Value{Kind: t.Kind, Str: s}, nil

	case KindList:
		arr, ok := raw.([]interface{})
		if !ok {
			return Value{}, &ShapeError{Path: path}
		}
		items := make([]Value, 0, len(arr))
		for i, el := range arr {
			v, err := jsonToVal(el, *t.Elem, fmt.Sprintf("%s[%d]", path, i))
			if err != nil {
				return Value{}, err
			}
			items = append(items, v)
		}
		return Value{Kind: t.Kind, Items: items}, nil

	case KindTuple:
		arr, ok := raw.([]interface{})
		if !ok || len(arr) != len(t.Items) {
			return Value{}, &ShapeError{Path: path}
		}
		items := make([]Value, len(arr))
		for i, el := range arr {
			v, err := jsonToVal(el, t.Items[i], fmt.Sprintf("%s[%d]", path, i))
			if err != nil {
				return Value{}, err
			}
			items[i] = v
		}
		return Value{Kind: t.Kind, Items: items}, nil

	case KindRecord:
		obj, ok := raw.(map[string]interface{})
		if !ok {
			return Value{}, &ShapeError{Path: path}
		}
		fields := make(map[string]Value, len(t.Fields))
		for _, f := range t.Fields {
			fv, ok := obj[f.Name]
			if !ok {
				return Value{}, &ShapeError{Path: path + "." + f.Name}
			}
			v, err := jsonToVal(fv, f.Type, path+"."+f.Name)
			if err != nil {
				return Value{}, err
			}
			fields[f.Name] = v
		}
		return Value{Kind: t.Kind, Fields: fields}, nil

	case KindVariant:
		obj, ok := raw.(map[string]interface{})
		if !ok {
			return Value{}, &ShapeError{Path: path}
		}
		tag, ok := obj["tag"].(string)
		if !ok {
			return Value{}, &ShapeError{Path: path + ".tag"}
		}
		for _, c := range t.Cases {
			if c.Tag != tag {
				continue
			}
			if c.Payload == nil {
				return Value{Kind: t.Kind, VariantTag: tag}, nil
			}
			rawVal, ok := obj["val"]
			if !ok {
				return Value{}, &ShapeError{Path: path + ".val"}
			}
			v, err := jsonToVal(rawVal, *c.Payload, path+".val")
			if err != nil {
				return Value{}, err
			}
			return Value{Kind: t.Kind, VariantTag: tag, VariantVal: &v}, nil
		}
		return Value{}, &UnknownShapeError{Path: path, Tag: tag}

	case KindEnum:
		s, ok := raw.(string)
		if !ok {
			return Value{}, &ShapeError{Path: path}
		}
		for _, name := range t.EnumValues {
			if name == s {
				return Value{Kind: t.Kind, Str: s}, nil
			}
		}
		return Value{}, &UnknownShapeError{Path: path, Tag: s}

	case KindOption:
		if raw == nil {
			return Value{Kind: t.Kind}, nil
		}
		v, err := jsonToVal(raw, *t.Some, path)
		if err != nil {
			return Value{}, err
		}
		return Value{Kind: t.Kind, Option: &v}, nil

	case KindResult:
		obj, ok := raw.(map[string]interface{})
		if !ok {
			return Value{}, &ShapeError{Path: path}
		}
		if okRaw, has := obj["ok"]; has {
			if t.Ok == nil {
				return Value{Kind: t.Kind}, nil
			}
			v, err := jsonToVal(okRaw, *t.Ok, path+".ok")
			if err != nil {
				return Value{}, err
			}
			return Value{Kind: t.Kind, ResultVal: &v}, nil
		}
		if errRaw, has := obj["err"]; has {
			if t.Err == nil {
				return Value{Kind: t.Kind, ResultErr: true}, nil
			}
			v, err := jsonToVal(errRaw, *t.Err, path+".err")
			if err != nil {
				return Value{}, err
			}
			return Value{Kind: t.Kind, ResultErr: true, ResultVal: &v}, nil
		}
		return Value{}, &ShapeError{Path: path}

	case KindFlags:
		arr, ok := raw.([]interface{})
		if !ok {
			return Value{}, &ShapeError{Path: path}
		}
		set := make([]string, 0, len(arr))
		for _, el := range arr {
			name, ok := el.(string)
			if !ok {
				return Value{}, &ShapeError{Path: path}
			}
			found := false
			for _, fn := range t.FlagNames {
				if fn == name {
					found = true
					break
				}
			}
			if !found {
				return Value{}, &UnknownShapeError{Path: path, Tag: name}
			}
			set = append(set, name)
		}
		return Value{Kind: t.Kind, Flags: set}, nil

	case KindResource:
		s, ok := raw.(string)
		if !ok {
			return Value{}, &ResourceError{Path: path, Msg: "resource token must be a string"}
		}
		return Value{Kind: t.Kind, Str: s}, nil

	default:
		return Value{}, &ResourceError{Path: path, Msg: "unrepresentable type"}
	}
}

// ValsToJSON converts a call's dynamic results back into a JSON value: a
// single JSON value for one result, or a JSON array for a tuple of results.
func ValsToJSON(values []Value) interface{} {
	if len(values) == 1 {
		return valToJSON(values[0])
	}
	arr := make([]interface{}, len(values))
	for i, v := range values {
		arr[i] = valToJSON(v)
	}
	return arr
}

func valToJSON(v Value) interface{} {
	switch v.Kind {
	case KindBool:
		return v.Bool
	case KindS8, KindS16, KindS32, KindS64:
		return v.I64
	case KindU8, KindU16, KindU32, KindU64:
		return v.U64
	case KindFloat32, KindFloat64:
		return v.F64
	case KindChar, KindString, KindEnum, KindResource:
		return v.Str
	case KindList, KindTuple:
		arr := make([]interface{}, len(v.Items))
		for i, it := range v.Items {
			arr[i] = valToJSON(it)
		}
		return arr
	case KindRecord:
		obj := make(map[string]interface{}, len(v.Fields))
		for k, fv := range v.Fields {
			obj[k] = valToJSON(fv)
		}
		return obj
	case KindVariant:
		if v.VariantVal == nil {
			return map[string]interface{}{"tag": v.VariantTag}
		}
		return map[string]interface{}{"tag": v.VariantTag, "val": valToJSON(*v.VariantVal)}
	case KindOption:
		if v.Option == nil {
			return nil
		}
		return valToJSON(*v.Option)
	case KindResult:
		key := "ok"
		if v.ResultErr {
			key = "err"
		}
		if v.ResultVal == nil {
			return map[string]interface{}{key: nil}
		}
		return map[string]interface{}{key: valToJSON(*v.ResultVal)}
	case KindFlags:
		arr := make([]interface{}, len(v.Flags))
		for i, f := range v.Flags {
			arr[i] = f
		}
		return arr
	default:
		return nil
	}
}

// CreatePlaceholderResults produces typed zero-values into which a call's
// outputs can be written before the engine populates them.
func CreatePlaceholderResults(resultTypes []Type) []Value {
	vals := make([]Value, len(resultTypes))
	for i, t := range resultTypes {
		vals[i] = placeholder(t)
	}
	return vals
}

func placeholder(t Type) Value {
	switch t.Kind {
	case KindList, KindFlags:
		return Value{Kind: t.Kind}
	case KindTuple:
		items := make([]Value, len(t.Items))
		for i, it := range t.Items {
			items[i] = placeholder(it)
		}
		return Value{Kind: t.Kind, Items: items}
	case KindRecord:
		fields := make(map[string]Value, len(t.Fields))
		for _, f := range t.Fields {
			fields[f.Name] = placeholder(f.Type)
		}
		return Value{Kind: t.Kind, Fields: fields}
	default:
		// Scalars, variant, enum, option, result and resource all placeholder
		// to their zero Value; the engine overwrites them on a successful call.
		return Value{Kind: t.Kind}
	}
}

// ValToNative converts a call argument into the plain Go value the engine
// passes across the canonical ABI boundary (bool, the matching int/uint/
// float width, string, []interface{} for list/tuple, map[string]interface{}
// for record, and so on) — the same shape JSON uses, which is also the
// shape the engine's Go<->WIT type mapping expects.
func ValToNative(v Value) interface{} {
	return valToJSON(v)
}

// NativeToVals reconstructs typed Values from a call's raw Go return: a
// single native value when resultTypes has one entry, or a []interface{}
// of them for a tuple return.
func NativeToVals(raw interface{}, resultTypes []Type) ([]Value, error) {
	if len(resultTypes) == 0 {
		return nil, nil
	}
	if len(resultTypes) == 1 {
		v, err := nativeToVal(raw, resultTypes[0], "result")
		if err != nil {
			return nil, err
		}
		return []Value{v}, nil
	}

	arr, ok := raw.([]interface{})
	if !ok || len(arr) != len(resultTypes) {
		return nil, &ShapeError{Path: "result"}
	}
	vals := make([]Value, len(resultTypes))
	for i, t := range resultTypes {
		v, err := nativeToVal(arr[i], t, fmt.Sprintf("result[%d]", i))
		if err != nil {
			return nil, err
		}
		vals[i] = v
	}
	return vals, nil
}

// nativeToVal mirrors jsonToVal but tolerates the wider set of native Go
// numeric types the engine may hand back (int64, uint32, float32, ...)
// rather than only the JSON-decoded float64.
func nativeToVal(raw interface{}, t Type, path string) (Value, error) {
	switch t.Kind {
	case KindS8, KindS16, KindS32, KindS64, KindU8, KindU16, KindU32, KindU64, KindFloat32, KindFloat64:
		n, ok := nativeAsFloat(raw)
		if !ok {
			return Value{}, &NumberError{Path: path, Want: t.Kind, Got: raw}
		}
		return jsonToVal(n, t, path)
	default:
		return jsonToVal(raw, t, path)
	}
}

// nativeAsFloat widens any of the engine's native numeric return types
// into a float64 so jsonToVal's existing range checks can be reused.
func nativeAsFloat(raw interface{}) (float64, bool) {
	switch n := raw.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	default:
		return 0, false
	}
}

func asFloat(raw interface{}) (float64, bool) {
	n, ok := raw.(float64)
	return n, ok
}

func fitsSigned(n float64, k Kind) bool {
	if n != math.Trunc(n) {
		return false
	}
	var lo, hi float64
	switch k {
	case KindS8:
		lo, hi = math.MinInt8, math.MaxInt8
	case KindS16:
		lo, hi = math.MinInt16, math.MaxInt16
	case KindS32:
		lo, hi = math.MinInt32, math.MaxInt32
	case KindS64:
		lo, hi = -math.MaxInt64, math.MaxInt64
	}
	return n >= lo && n <= hi
}

func fitsUnsigned(n float64, k Kind) bool {
	if n != math.Trunc(n) {
		return false
	}
	var hi float64
	switch k {
	case KindU8:
		hi = math.MaxUint8
	case KindU16:
		hi = math.MaxUint16
	case KindU32:
		hi = math.MaxUint32
	case KindU64:
		hi = math.MaxUint64
	}
	return n <= hi
}
