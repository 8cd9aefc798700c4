package utcp

// ToolSerializer converts Tool records to and from plain maps. Grounded on
// data/tool.py's ToolSerializer.
type ToolSerializer struct {
	CallTemplate DictSerializer[CallTemplate]
}

func (s ToolSerializer) ToDict(t Tool) (map[string]any, error) {
	out := map[string]any{
		"name":        t.Name,
		"description": t.Description,
		"tags":        append([]string(nil), t.Tags...),
	}
	if t.Inputs != nil {
		d, err := (JSONSchemaSerializer{}).ToDict(t.Inputs)
		if err != nil {
			return nil, err
		}
		out["inputs"] = d
	}
	if t.Outputs != nil {
		d, err := (JSONSchemaSerializer{}).ToDict(t.Outputs)
		if err != nil {
			return nil, err
		}
		out["outputs"] = d
	}
	if t.AverageResponseSize != nil {
		out["average_response_size"] = *t.AverageResponseSize
	}
	if t.ToolCallTemplate != nil {
		d, err := s.CallTemplate.ToDict(t.ToolCallTemplate)
		if err != nil {
			return nil, err
		}
		out["tool_call_template"] = d
	}
	return out, nil
}

func (s ToolSerializer) ValidateDict(data map[string]any) (Tool, error) {
	name, err := requireString(data, "name")
	if err != nil {
		return Tool{}, err
	}
	description, _ := data["description"].(string)
	tool := Tool{Name: name, Description: description}
	if raw, ok := data["tags"].([]any); ok {
		for _, v := range raw {
			if str, ok := v.(string); ok {
				tool.Tags = append(tool.Tags, str)
			}
		}
	}
	if raw, ok := data["inputs"].(map[string]any); ok {
		inputs, err := (JSONSchemaSerializer{}).ValidateDict(raw)
		if err != nil {
			return Tool{}, err
		}
		tool.Inputs = inputs
	}
	if raw, ok := data["outputs"].(map[string]any); ok {
		outputs, err := (JSONSchemaSerializer{}).ValidateDict(raw)
		if err != nil {
			return Tool{}, err
		}
		tool.Outputs = outputs
	}
	if raw, ok := data["average_response_size"]; ok {
		if sz := toIntPtr(raw); sz != nil {
			tool.AverageResponseSize = sz
		}
	}
	if raw, ok := data["tool_call_template"].(map[string]any); ok {
		tmpl, err := s.CallTemplate.ValidateDict(raw)
		if err != nil {
			return Tool{}, err
		}
		tool.ToolCallTemplate = tmpl
	}
	return tool, nil
}

// ManualSerializer converts Manual records to and from plain maps.
// Grounded on data/utcp_manual.py's UtcpManualSerializer. Tool-authoring
// decorators (create_from_decorators) are out of scope per spec.md §1.
type ManualSerializer struct {
	Tool DictSerializer[Tool]
}

const defaultUTCPVersion = "1.0.0"

func (s ManualSerializer) ToDict(m *Manual) (map[string]any, error) {
	if m == nil {
		return nil, nil
	}
	tools := make([]any, 0, len(m.Tools))
	for _, t := range m.Tools {
		d, err := s.Tool.ToDict(t)
		if err != nil {
			return nil, err
		}
		tools = append(tools, d)
	}
	version := m.UTCPVersion
	if version == "" {
		version = defaultUTCPVersion
	}
	return map[string]any{
		"utcp_version":  version,
		"manual_version": m.ManualVersion,
		"tools":         tools,
	}, nil
}

func (s ManualSerializer) ValidateDict(data map[string]any) (*Manual, error) {
	m := &Manual{}
	m.UTCPVersion, _ = data["utcp_version"].(string)
	if m.UTCPVersion == "" {
		m.UTCPVersion = defaultUTCPVersion
	}
	m.ManualVersion, _ = data["manual_version"].(string)
	if raw, ok := data["tools"].([]any); ok {
		for _, v := range raw {
			tm, ok := v.(map[string]any)
			if !ok {
				continue
			}
			t, err := s.Tool.ValidateDict(tm)
			if err != nil {
				return nil, err
			}
			m.Tools = append(m.Tools, t)
		}
	}
	return m, nil
}

// LooksLikeOpenAPI reports whether a raw discovery payload looks like an
// OpenAPI/Swagger document rather than a native UTCP manual, per spec.md
// §6: distinguished by the presence of openapi, swagger, or paths keys.
func LooksLikeOpenAPI(data map[string]any) bool {
	for _, key := range []string{"openapi", "swagger", "paths"} {
		if _, ok := data[key]; ok {
			return true
		}
	}
	return false
}
