package mcp

import (
	"github.com/fwojciec/toolchat"
	"github.com/spf13/cast"
)

// ToFunctionDeclarations converts capabilities to function declarations,
// one per capability in the same order. Parameter schemas are projected onto
// the allow-listed [toolchat.Schema] keys; everything else is dropped.
func ToFunctionDeclarations(caps []toolchat.Capability) []toolchat.FunctionDeclaration {
	decls := make([]toolchat.FunctionDeclaration, len(caps))
	for i, c := range caps {
		params := &toolchat.Schema{
			Type:        "object",
			Description: c.Description,
			Properties:  map[string]*toolchat.Schema{},
		}
		if props, err := cast.ToStringMapE(c.InputSchema["properties"]); err == nil {
			params.Properties = sanitizeProperties(props)
		}
		if req, err := cast.ToStringSliceE(c.InputSchema["required"]); err == nil {
			params.Required = req
		}
		decls[i] = toolchat.FunctionDeclaration{
			Name:        c.Name,
			Description: c.Description,
			Parameters:  params,
		}
	}
	return decls
}

// SanitizeSchema projects a JSON schema onto [toolchat.Schema]. Nested
// properties, items and anyOf members are sanitized recursively. Values that
// cannot be coerced to the field's type are dropped. A type union such as
// ["string", "null"] becomes type "string" with nullable set.
func SanitizeSchema(raw map[string]any) *toolchat.Schema {
	s := &toolchat.Schema{}
	for key, v := range raw {
		switch key {
		case "type":
			setType(s, v)
		case "format":
			s.Format = toString(v)
		case "description":
			s.Description = toString(v)
		case "pattern":
			s.Pattern = toString(v)
		case "nullable":
			if b, err := cast.ToBoolE(v); err == nil {
				s.Nullable = &b
			}
		case "enum":
			if vals, ok := toSlice(v); ok {
				s.Enum = vals
			}
		case "default":
			s.Default = v
		case "example":
			s.Example = v
		case "properties":
			if props, err := cast.ToStringMapE(v); err == nil {
				s.Properties = sanitizeProperties(props)
			}
		case "propertyOrdering":
			if names, err := cast.ToStringSliceE(v); err == nil {
				s.PropertyOrdering = names
			}
		case "required":
			if names, err := cast.ToStringSliceE(v); err == nil {
				s.Required = names
			}
		case "items":
			if m, err := cast.ToStringMapE(v); err == nil {
				s.Items = SanitizeSchema(m)
			}
		case "anyOf":
			if members, ok := toSlice(v); ok {
				for _, member := range members {
					if m, err := cast.ToStringMapE(member); err == nil {
						s.AnyOf = append(s.AnyOf, SanitizeSchema(m))
					}
				}
			}
		case "minItems":
			s.MinItems = toInt64(v)
		case "maxItems":
			s.MaxItems = toInt64(v)
		case "minLength":
			s.MinLength = toInt64(v)
		case "maxLength":
			s.MaxLength = toInt64(v)
		case "minProperties":
			s.MinProperties = toInt64(v)
		case "maxProperties":
			s.MaxProperties = toInt64(v)
		case "minimum":
			s.Minimum = toFloat64(v)
		case "maximum":
			s.Maximum = toFloat64(v)
		}
	}
	return s
}

func sanitizeProperties(props map[string]any) map[string]*toolchat.Schema {
	out := make(map[string]*toolchat.Schema, len(props))
	for name, v := range props {
		if m, err := cast.ToStringMapE(v); err == nil {
			out[name] = SanitizeSchema(m)
		}
	}
	return out
}

func setType(s *toolchat.Schema, v any) {
	if t, ok := v.(string); ok {
		s.Type = t
		return
	}
	types, err := cast.ToStringSliceE(v)
	if err != nil {
		return
	}
	for _, t := range types {
		switch {
		case t == "null":
			if s.Nullable == nil {
				nullable := true
				s.Nullable = &nullable
			}
		case s.Type == "":
			s.Type = t
		}
	}
}

func toString(v any) string {
	s, err := cast.ToStringE(v)
	if err != nil {
		return ""
	}
	return s
}

func toInt64(v any) *int64 {
	n, err := cast.ToInt64E(v)
	if err != nil {
		return nil
	}
	return &n
}

func toFloat64(v any) *float64 {
	f, err := cast.ToFloat64E(v)
	if err != nil {
		return nil
	}
	return &f
}

func toSlice(v any) ([]any, bool) {
	if strs, ok := v.([]string); ok {
		out := make([]any, len(strs))
		for i, s := range strs {
			out[i] = s
		}
		return out, true
	}
	out, err := cast.ToSliceE(v)
	return out, err == nil
}
