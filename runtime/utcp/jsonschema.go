package utcp

// JSONSchema is a recursive carrier for the standard JSON-Schema keywords
// this runtime needs to round-trip. Unrecognized keywords are preserved in
// Extra so validate_dict(to_dict(o)) == o even for schemas this struct does
// not model explicitly, matching the "must round-trip" requirement.
type JSONSchema struct {
	Schema               string                 `json:"$schema,omitempty"`
	ID                   string                 `json:"$id,omitempty"`
	Type                 string                 `json:"type,omitempty"`
	Description          string                 `json:"description,omitempty"`
	Properties           map[string]*JSONSchema `json:"properties,omitempty"`
	Items                *JSONSchema            `json:"items,omitempty"`
	Required             []string               `json:"required,omitempty"`
	Enum                 []any                  `json:"enum,omitempty"`
	Const                any                    `json:"const,omitempty"`
	Default              any                    `json:"default,omitempty"`
	Format               string                 `json:"format,omitempty"`
	Pattern              string                 `json:"pattern,omitempty"`
	AdditionalProperties *JSONSchemaOrBool      `json:"additionalProperties,omitempty"`
	Minimum              *float64               `json:"minimum,omitempty"`
	Maximum              *float64               `json:"maximum,omitempty"`
	MinLength            *int                   `json:"minLength,omitempty"`
	MaxLength            *int                   `json:"maxLength,omitempty"`
	MinItems             *int                   `json:"minItems,omitempty"`
	MaxItems             *int                   `json:"maxItems,omitempty"`

	// Extra holds any keyword not modeled above, keyed by JSON field name.
	Extra map[string]any `json:"-"`
}

// JSONSchemaOrBool models the `additionalProperties` keyword, which is
// either a boolean or a nested schema.
type JSONSchemaOrBool struct {
	Bool   *bool
	Schema *JSONSchema
}

// JSONSchemaSerializer converts JSONSchema records to and from plain maps,
// grounded on data/tool.py's JsonSchemaSerializer.
type JSONSchemaSerializer struct{}

// ToDict converts a JSONSchema (and its whole subtree) into a plain map
// suitable for JSON/YAML encoding.
func (JSONSchemaSerializer) ToDict(s *JSONSchema) (map[string]any, error) {
	if s == nil {
		return nil, nil
	}
	out := map[string]any{}
	for k, v := range s.Extra {
		out[k] = v
	}
	setIf(out, "$schema", s.Schema)
	setIf(out, "$id", s.ID)
	setIf(out, "type", s.Type)
	setIf(out, "description", s.Description)
	setIf(out, "format", s.Format)
	setIf(out, "pattern", s.Pattern)
	if s.Const != nil {
		out["const"] = s.Const
	}
	if s.Default != nil {
		out["default"] = s.Default
	}
	if len(s.Enum) > 0 {
		out["enum"] = s.Enum
	}
	if len(s.Required) > 0 {
		out["required"] = s.Required
	}
	if s.Minimum != nil {
		out["minimum"] = *s.Minimum
	}
	if s.Maximum != nil {
		out["maximum"] = *s.Maximum
	}
	if s.MinLength != nil {
		out["minLength"] = *s.MinLength
	}
	if s.MaxLength != nil {
		out["maxLength"] = *s.MaxLength
	}
	if s.MinItems != nil {
		out["minItems"] = *s.MinItems
	}
	if s.MaxItems != nil {
		out["maxItems"] = *s.MaxItems
	}
	if s.Items != nil {
		items, err := (JSONSchemaSerializer{}).ToDict(s.Items)
		if err != nil {
			return nil, err
		}
		out["items"] = items
	}
	if len(s.Properties) > 0 {
		props := map[string]any{}
		for name, prop := range s.Properties {
			d, err := (JSONSchemaSerializer{}).ToDict(prop)
			if err != nil {
				return nil, err
			}
			props[name] = d
		}
		out["properties"] = props
	}
	if s.AdditionalProperties != nil {
		if s.AdditionalProperties.Schema != nil {
			d, err := (JSONSchemaSerializer{}).ToDict(s.AdditionalProperties.Schema)
			if err != nil {
				return nil, err
			}
			out["additionalProperties"] = d
		} else if s.AdditionalProperties.Bool != nil {
			out["additionalProperties"] = *s.AdditionalProperties.Bool
		}
	}
	return out, nil
}

// ValidateDict converts a plain map into a JSONSchema, preserving unknown
// keywords in Extra.
func (JSONSchemaSerializer) ValidateDict(data map[string]any) (*JSONSchema, error) {
	if data == nil {
		return nil, nil
	}
	s := &JSONSchema{Extra: map[string]any{}}
	for k, v := range data {
		switch k {
		case "$schema":
			s.Schema, _ = v.(string)
		case "$id":
			s.ID, _ = v.(string)
		case "type":
			s.Type, _ = v.(string)
		case "description":
			s.Description, _ = v.(string)
		case "format":
			s.Format, _ = v.(string)
		case "pattern":
			s.Pattern, _ = v.(string)
		case "const":
			s.Const = v
		case "default":
			s.Default = v
		case "enum":
			if arr, ok := v.([]any); ok {
				s.Enum = arr
			}
		case "required":
			s.Required = toStringSlice(v)
		case "minimum":
			s.Minimum = toFloatPtr(v)
		case "maximum":
			s.Maximum = toFloatPtr(v)
		case "minLength":
			s.MinLength = toIntPtr(v)
		case "maxLength":
			s.MaxLength = toIntPtr(v)
		case "minItems":
			s.MinItems = toIntPtr(v)
		case "maxItems":
			s.MaxItems = toIntPtr(v)
		case "items":
			if m, ok := v.(map[string]any); ok {
				item, err := (JSONSchemaSerializer{}).ValidateDict(m)
				if err != nil {
					return nil, err
				}
				s.Items = item
			}
		case "properties":
			if m, ok := v.(map[string]any); ok {
				s.Properties = map[string]*JSONSchema{}
				for name, raw := range m {
					pm, ok := raw.(map[string]any)
					if !ok {
						continue
					}
					prop, err := (JSONSchemaSerializer{}).ValidateDict(pm)
					if err != nil {
						return nil, err
					}
					s.Properties[name] = prop
				}
			}
		case "additionalProperties":
			switch ap := v.(type) {
			case bool:
				b := ap
				s.AdditionalProperties = &JSONSchemaOrBool{Bool: &b}
			case map[string]any:
				sub, err := (JSONSchemaSerializer{}).ValidateDict(ap)
				if err != nil {
					return nil, err
				}
				s.AdditionalProperties = &JSONSchemaOrBool{Schema: sub}
			}
		default:
			s.Extra[k] = v
		}
	}
	return s, nil
}

func setIf(m map[string]any, key, value string) {
	if value != "" {
		m[key] = value
	}
}

func toStringSlice(v any) []string {
	arr, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(arr))
	for _, e := range arr {
		if s, ok := e.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func toFloatPtr(v any) *float64 {
	switch n := v.(type) {
	case float64:
		return &n
	case int:
		f := float64(n)
		return &f
	}
	return nil
}

func toIntPtr(v any) *int {
	switch n := v.(type) {
	case int:
		return &n
	case float64:
		i := int(n)
		return &i
	}
	return nil
}
