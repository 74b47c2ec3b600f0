package schema

import (
	"fmt"

	pkgstrings "wassette/pkg/strings"
)

// descriptionMaxLen caps a synthesized tool description's length so an
// unusually long interface or function name can't produce an MCP tool
// description that dwarfs the rest of the tool list.
const descriptionMaxLen = 120

// ToolDescriptor is the synthesized MCP tool contract for one exported
// component function: derived purely from the component's typed interface,
// no user annotation is consumed.
type ToolDescriptor struct {
	Name         string
	Description  string
	InputSchema  map[string]interface{}
	OutputSchema map[string]interface{} // nil unless requested and the function returns values
	Function     Function                // retained so callers can resolve params for json_to_vals
}

// ToolSchema is the full set of tools synthesized for one component.
type ToolSchema struct {
	Tools []ToolDescriptor
}

// ComponentExportsToSchema walks every exported function of every exported
// interface, plus the component's root world, and synthesizes one
// ToolDescriptor per function. Output schemas are only computed when
// includeOutputSchemas is true.
func ComponentExportsToSchema(c Component, includeOutputSchemas bool) ToolSchema {
	tools := make([]ToolDescriptor, 0, len(c.Functions))
	for _, fn := range c.Functions {
		tools = append(tools, ToolDescriptor{
			Name:         fn.QualifiedName(),
			Description:  describeFunction(fn),
			InputSchema:  inputSchema(fn),
			OutputSchema: outputSchema(fn, includeOutputSchemas),
			Function:     fn,
		})
	}
	return ToolSchema{Tools: tools}
}

func describeFunction(fn Function) string {
	var desc string
	if fn.InterfacePath == "" {
		desc = fmt.Sprintf("Calls the exported function %q.", fn.Name)
	} else {
		desc = fmt.Sprintf("Calls %q exported by interface %q.", fn.Name, fn.InterfacePath)
	}
	return pkgstrings.TruncateDescription(desc, descriptionMaxLen)
}

// inputSchema builds an object schema whose properties map each parameter
// name to the schema of its type, with every parameter required.
func inputSchema(fn Function) map[string]interface{} {
	properties := make(map[string]interface{}, len(fn.Params))
	required := make([]string, 0, len(fn.Params))
	for _, p := range fn.Params {
		properties[p.Name] = typeToJSONSchema(p.Type)
		required = append(required, p.Name)
	}
	schema := map[string]interface{}{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

// outputSchema reflects a function's return type: a single type if the
// function returns one value, or a tuple schema if it returns several.
// Returns nil when includeOutputSchemas is false or the function returns
// nothing.
func outputSchema(fn Function, includeOutputSchemas bool) map[string]interface{} {
	if !includeOutputSchemas || len(fn.Results) == 0 {
		return nil
	}
	if len(fn.Results) == 1 {
		return typeToJSONSchema(fn.Results[0])
	}
	return typeToJSONSchema(Type{Kind: KindTuple, Items: fn.Results})
}

// typeToJSONSchema implements the exhaustive component-type -> JSON-Schema
// mapping table.
func typeToJSONSchema(t Type) map[string]interface{} {
	switch t.Kind {
	case KindBool:
		return map[string]interface{}{"type": "boolean"}
	case KindS8, KindS16, KindS32, KindS64, KindU8, KindU16, KindU32, KindU64, KindFloat32, KindFloat64:
		return map[string]interface{}{"type": "number"}
	case KindChar:
		return map[string]interface{}{"type": "string", "description": "1 unicode codepoint"}
	case KindString:
		return map[string]interface{}{"type": "string"}
	case KindList:
		var items map[string]interface{}
		if t.Elem != nil {
			items = typeToJSONSchema(*t.Elem)
		}
		return map[string]interface{}{"type": "array", "items": items}
	case KindTuple:
		prefix := make([]map[string]interface{}, 0, len(t.Items))
		for _, it := range t.Items {
			prefix = append(prefix, typeToJSONSchema(it))
		}
		return map[string]interface{}{
			"type":        "array",
			"prefixItems": prefix,
			"minItems":    len(t.Items),
			"maxItems":    len(t.Items),
		}
	case KindRecord:
		properties := make(map[string]interface{}, len(t.Fields))
		required := make([]string, 0, len(t.Fields))
		for _, f := range t.Fields {
			properties[f.Name] = typeToJSONSchema(f.Type)
			required = append(required, f.Name)
		}
		return map[string]interface{}{
			"type":       "object",
			"properties": properties,
			"required":   required,
		}
	case KindVariant:
		shapes := make([]map[string]interface{}, 0, len(t.Cases))
		for _, c := range t.Cases {
			if c.Payload == nil {
				shapes = append(shapes, map[string]interface{}{
					"type":       "object",
					"properties": map[string]interface{}{"tag": map[string]interface{}{"const": c.Tag}},
					"required":   []string{"tag"},
				})
				continue
			}
			shapes = append(shapes, map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"tag": map[string]interface{}{"const": c.Tag},
					"val": typeToJSONSchema(*c.Payload),
				},
				"required": []string{"tag", "val"},
			})
		}
		return map[string]interface{}{"oneOf": shapes}
	case KindEnum:
		return map[string]interface{}{"type": "string", "enum": append([]string(nil), t.EnumValues...)}
	case KindOption:
		var inner map[string]interface{}
		if t.Some != nil {
			inner = typeToJSONSchema(*t.Some)
		}
		return map[string]interface{}{"anyOf": []map[string]interface{}{
			{"type": "null"},
			inner,
		}}
	case KindResult:
		okShape := map[string]interface{}{"type": "object", "required": []string{"ok"}}
		if t.Ok != nil {
			okShape["properties"] = map[string]interface{}{"ok": typeToJSONSchema(*t.Ok)}
		}
		errShape := map[string]interface{}{"type": "object", "required": []string{"err"}}
		if t.Err != nil {
			errShape["properties"] = map[string]interface{}{"err": typeToJSONSchema(*t.Err)}
		}
		return map[string]interface{}{"oneOf": []map[string]interface{}{okShape, errShape}}
	case KindFlags:
		return map[string]interface{}{
			"type":  "array",
			"items": map[string]interface{}{"type": "string", "enum": append([]string(nil), t.FlagNames...)},
		}
	case KindResource:
		mode := "borrow"
		if t.ResourceOwn {
			mode = "own"
		}
		return map[string]interface{}{
			"type":        "string",
			"description": fmt.Sprintf("%s resource: %s", mode, t.ResourceName),
		}
	default:
		return map[string]interface{}{}
	}
}
