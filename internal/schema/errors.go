package schema

import "fmt"

// ValError is implemented by every marshaling error this package returns, so
// callers can recover the taxonomy subkind named in the core's error design
// (InvalidArgument/ShapeError, UnknownShape, NumberError, InvalidChar,
// ResourceError) via errors.As.
type ValError interface {
	error
	Kind() string
}

// ShapeError reports that a named parameter or record field required by the
// declared type was missing from the JSON argument tree.
type ShapeError struct {
	Path string
}

func (e *ShapeError) Error() string { return fmt.Sprintf("shape error: missing %q", e.Path) }
func (e *ShapeError) Kind() string  { return "ShapeError" }

// UnknownShapeError reports a variant or enum tag that does not match any
// case declared by the target type.
type UnknownShapeError struct {
	Path string
	Tag  string
}

func (e *UnknownShapeError) Error() string {
	return fmt.Sprintf("unknown shape error: %q is not a known case at %q", e.Tag, e.Path)
}
func (e *UnknownShapeError) Kind() string { return "UnknownShape" }

// NumberError reports a JSON number that cannot be narrowed into the
// declared integer or float type without loss (out of range, non-integral
// for an integer target, or not a number at all).
type NumberError struct {
	Path string
	Want Kind
	Got  interface{}
}

func (e *NumberError) Error() string {
	return fmt.Sprintf("number error: %v does not fit %s at %q", e.Got, kindName(e.Want), e.Path)
}
func (e *NumberError) Kind() string { return "NumberError" }

// InvalidCharError reports a string intended as a `char` that is not exactly
// one Unicode scalar value.
type InvalidCharError struct {
	Path string
	Got  string
}

func (e *InvalidCharError) Error() string {
	return fmt.Sprintf("invalid char error: %q at %q is not exactly one unicode scalar", e.Got, e.Path)
}
func (e *InvalidCharError) Kind() string { return "InvalidChar" }

// ResourceError reports a resource handle that could not be represented:
// either the JSON token for a resource is not a string, or the target type
// is not one this package can represent.
type ResourceError struct {
	Path string
	Msg  string
}

func (e *ResourceError) Error() string {
	return fmt.Sprintf("resource error at %q: %s", e.Path, e.Msg)
}
func (e *ResourceError) Kind() string { return "ResourceError" }

func kindName(k Kind) string {
	switch k {
	case KindBool:
		return "bool"
	case KindS8:
		return "s8"
	case KindS16:
		return "s16"
	case KindS32:
		return "s32"
	case KindS64:
		return "s64"
	case KindU8:
		return "u8"
	case KindU16:
		return "u16"
	case KindU32:
		return "u32"
	case KindU64:
		return "u64"
	case KindFloat32:
		return "float32"
	case KindFloat64:
		return "float64"
	case KindChar:
		return "char"
	case KindString:
		return "string"
	case KindList:
		return "list"
	case KindTuple:
		return "tuple"
	case KindRecord:
		return "record"
	case KindVariant:
		return "variant"
	case KindEnum:
		return "enum"
	case KindOption:
		return "option"
	case KindResult:
		return "result"
	case KindFlags:
		return "flags"
	case KindResource:
		return "resource"
	default:
		return "unknown"
	}
}
