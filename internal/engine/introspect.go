package engine

import (
	"fmt"

	"github.com/wippyai/wasm-runtime/runtime"

	"wassette/internal/schema"
)

// Exports walks the compiled component's WIT-level export metadata and
// returns the schema package's type-agnostic view of it, ready for
// schema.ComponentExportsToSchema. The runtime's public quickstart
// documents calling exports by name but not introspecting their
// signatures; this assumes the module surfaces each export's canonical WIT
// signature through ExportedFunctions(), matching the shape implied by its
// documented Go<->WIT type-mapping table (see DESIGN.md).
func (c *CompiledComponent) Exports() (schema.Component, error) {
	fns, err := c.module.ExportedFunctions()
	if err != nil {
		return schema.Component{}, fmt.Errorf("reading component exports: %w", err)
	}

	out := make([]schema.Function, 0, len(fns))
	for _, fn := range fns {
		params := make([]schema.Field, 0, len(fn.Params))
		for _, p := range fn.Params {
			params = append(params, schema.Field{Name: p.Name, Type: fromWIT(p.Type)})
		}
		results := make([]schema.Type, 0, len(fn.Results))
		for _, r := range fn.Results {
			results = append(results, fromWIT(r))
		}
		out = append(out, schema.Function{
			InterfacePath: fn.Interface,
			Name:          fn.Name,
			Params:        params,
			Results:       results,
		})
	}
	return schema.Component{Functions: out}, nil
}

// fromWIT translates the runtime's WIT value-type descriptor into the
// schema package's own Type, so internal/schema stays free of any
// dependency on the engine's underlying component-model library.
func fromWIT(t runtime.ValType) schema.Type {
	switch t.Kind {
	case runtime.KindBool:
		return schema.Type{Kind: schema.KindBool}
	case runtime.KindS8:
		return schema.Type{Kind: schema.KindS8}
	case runtime.KindS16:
		return schema.Type{Kind: schema.KindS16}
	case runtime.KindS32:
		return schema.Type{Kind: schema.KindS32}
	case runtime.KindS64:
		return schema.Type{Kind: schema.KindS64}
	case runtime.KindU8:
		return schema.Type{Kind: schema.KindU8}
	case runtime.KindU16:
		return schema.Type{Kind: schema.KindU16}
	case runtime.KindU32:
		return schema.Type{Kind: schema.KindU32}
	case runtime.KindU64:
		return schema.Type{Kind: schema.KindU64}
	case runtime.KindFloat32:
		return schema.Type{Kind: schema.KindFloat32}
	case runtime.KindFloat64:
		return schema.Type{Kind: schema.KindFloat64}
	case runtime.KindChar:
		return schema.Type{Kind: schema.KindChar}
	case runtime.KindString:
		return schema.Type{Kind: schema.KindString}
	case runtime.KindList:
		elem := fromWIT(*t.Elem)
		return schema.Type{Kind: schema.KindList, Elem: &elem}
	case runtime.KindTuple:
		items := make([]schema.Type, len(t.Items))
		for i, it := range t.Items {
			items[i] = fromWIT(it)
		}
		return schema.Type{Kind: schema.KindTuple, Items: items}
	case runtime.KindRecord:
		fields := make([]schema.Field, len(t.Fields))
		for i, f := range t.Fields {
			fields[i] = schema.Field{Name: f.Name, Type: fromWIT(f.Type)}
		}
		return schema.Type{Kind: schema.KindRecord, Fields: fields}
	case runtime.KindVariant:
		cases := make([]schema.VariantCase, len(t.Cases))
		for i, c := range t.Cases {
			cc := schema.VariantCase{Tag: c.Tag}
			if c.Payload != nil {
				p := fromWIT(*c.Payload)
				cc.Payload = &p
			}
			cases[i] = cc
		}
		return schema.Type{Kind: schema.KindVariant, Cases: cases}
	case runtime.KindEnum:
		return schema.Type{Kind: schema.KindEnum, EnumValues: append([]string(nil), t.EnumValues...)}
	case runtime.KindOption:
		some := fromWIT(*t.Some)
		return schema.Type{Kind: schema.KindOption, Some: &some}
	case runtime.KindResult:
		st := schema.Type{Kind: schema.KindResult}
		if t.Ok != nil {
			ok := fromWIT(*t.Ok)
			st.Ok = &ok
		}
		if t.Err != nil {
			e := fromWIT(*t.Err)
			st.Err = &e
		}
		return st
	case runtime.KindFlags:
		return schema.Type{Kind: schema.KindFlags, FlagNames: append([]string(nil), t.FlagNames...)}
	case runtime.KindResource:
		return schema.Type{Kind: schema.KindResource, ResourceName: t.ResourceName, ResourceOwn: t.ResourceOwn}
	default:
		return schema.Type{Kind: schema.KindString}
	}
}
