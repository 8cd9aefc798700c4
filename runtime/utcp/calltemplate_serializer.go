package utcp

import (
	"fmt"
	"time"
)

// CallTemplateSerializer is the dispatcher serializer for CallTemplate,
// delegating to the plugin registry's call-template table keyed by
// TemplateType. Grounded on data/call_template.py's CallTemplateSerializer.
type CallTemplateSerializer struct {
	Lookup func(tag string) (DictSerializer[CallTemplate], bool)
}

func (s CallTemplateSerializer) ToDict(obj CallTemplate) (map[string]any, error) {
	if obj == nil {
		return nil, nil
	}
	impl, ok := s.Lookup(obj.TemplateType())
	if !ok {
		return nil, &ErrUnknownTag{Table: "call_template", Tag: obj.TemplateType()}
	}
	return impl.ToDict(obj)
}

func (s CallTemplateSerializer) ValidateDict(data map[string]any) (CallTemplate, error) {
	tag, _ := data["call_template_type"].(string)
	impl, ok := s.Lookup(tag)
	if !ok {
		return nil, &ErrUnknownTag{Table: "call_template", Tag: tag}
	}
	return impl.ValidateDict(data)
}

func baseToDict(tag, name string, auth Auth, authSer DictSerializer[Auth]) (map[string]any, error) {
	out := map[string]any{"call_template_type": tag, "name": name}
	if auth != nil {
		d, err := authSer.ToDict(auth)
		if err != nil {
			return nil, err
		}
		out["auth"] = d
	}
	return out, nil
}

func baseFromDict(data map[string]any, authSer DictSerializer[Auth]) (name string, auth Auth, headers map[string]string, timeout time.Duration, err error) {
	name, _ = data["name"].(string)
	if name == "" {
		name = NewCallTemplateName()
	} else {
		name = SanitizeIdent(name)
	}
	if raw, ok := data["auth"]; ok && raw != nil {
		m, ok := raw.(map[string]any)
		if !ok {
			return "", nil, nil, 0, &ErrSerializerValidation{Path: "auth", Message: "must be an object"}
		}
		auth, err = authSer.ValidateDict(m)
		if err != nil {
			return "", nil, nil, 0, err
		}
	}
	if raw, ok := data["headers"]; ok {
		if m, ok := raw.(map[string]any); ok {
			headers = map[string]string{}
			for k, v := range m {
				if s, ok := v.(string); ok {
					headers[k] = s
				}
			}
		}
	}
	if raw, ok := data["timeout_ms"]; ok {
		switch n := raw.(type) {
		case float64:
			timeout = time.Duration(n) * time.Millisecond
		case int:
			timeout = time.Duration(n) * time.Millisecond
		}
	}
	return name, auth, headers, timeout, nil
}

func requireString(data map[string]any, key string) (string, error) {
	v, _ := data[key].(string)
	if v == "" {
		return "", &ErrSerializerValidation{Path: key, Message: "required field missing"}
	}
	return v, nil
}

// HTTPCallTemplateSerializer serializes HTTPCallTemplate;
// GraphQLCallTemplate has its own GraphQLCallTemplateSerializer.
type HTTPCallTemplateSerializer struct{ Auth DictSerializer[Auth] }

func (s HTTPCallTemplateSerializer) ToDict(obj CallTemplate) (map[string]any, error) {
	t, ok := obj.(HTTPCallTemplate)
	if !ok {
		return nil, &ErrSerializerValidation{Message: "expected HTTPCallTemplate"}
	}
	out, err := baseToDict("http", t.Name, t.Auth, s.Auth)
	if err != nil {
		return nil, err
	}
	out["url"] = t.URL
	if t.Method != "" {
		out["method"] = t.Method
	}
	if t.Headers != nil {
		out["headers"] = t.Headers
	}
	if t.Timeout > 0 {
		out["timeout_ms"] = int(t.Timeout / time.Millisecond)
	}
	if t.RateLimitRPS > 0 {
		out["rate_limit_rps"] = t.RateLimitRPS
		out["rate_limit_burst"] = t.RateLimitBurst
	}
	return out, nil
}

func (s HTTPCallTemplateSerializer) ValidateDict(data map[string]any) (CallTemplate, error) {
	name, auth, headers, timeout, err := baseFromDict(data, s.Auth)
	if err != nil {
		return nil, err
	}
	url, err := requireString(data, "url")
	if err != nil {
		return nil, err
	}
	method, _ := data["method"].(string)
	if method == "" {
		method = "POST"
	}
	rps, _ := data["rate_limit_rps"].(float64)
	var burst int
	if p := toIntPtr(data["rate_limit_burst"]); p != nil {
		burst = *p
	}
	return HTTPCallTemplate{
		CallTemplateBase: CallTemplateBase{Name: name, Auth: auth},
		URL:              url,
		Method:           method,
		Headers:          headers,
		Timeout:          timeout,
		RateLimitRPS:     rps,
		RateLimitBurst:   int(burst),
	}, nil
}

// SSECallTemplateSerializer serializes SSECallTemplate.
type SSECallTemplateSerializer struct{ Auth DictSerializer[Auth] }

func (s SSECallTemplateSerializer) ToDict(obj CallTemplate) (map[string]any, error) {
	t, ok := obj.(SSECallTemplate)
	if !ok {
		return nil, &ErrSerializerValidation{Message: "expected SSECallTemplate"}
	}
	out, err := baseToDict("sse", t.Name, t.Auth, s.Auth)
	if err != nil {
		return nil, err
	}
	out["url"] = t.URL
	if t.Headers != nil {
		out["headers"] = t.Headers
	}
	if t.Timeout > 0 {
		out["timeout_ms"] = int(t.Timeout / time.Millisecond)
	}
	return out, nil
}

func (s SSECallTemplateSerializer) ValidateDict(data map[string]any) (CallTemplate, error) {
	name, auth, headers, timeout, err := baseFromDict(data, s.Auth)
	if err != nil {
		return nil, err
	}
	url, err := requireString(data, "url")
	if err != nil {
		return nil, err
	}
	return SSECallTemplate{CallTemplateBase{Name: name, Auth: auth}, url, headers, timeout}, nil
}

// StreamableHTTPCallTemplateSerializer serializes StreamableHTTPCallTemplate.
type StreamableHTTPCallTemplateSerializer struct{ Auth DictSerializer[Auth] }

func (s StreamableHTTPCallTemplateSerializer) ToDict(obj CallTemplate) (map[string]any, error) {
	t, ok := obj.(StreamableHTTPCallTemplate)
	if !ok {
		return nil, &ErrSerializerValidation{Message: "expected StreamableHTTPCallTemplate"}
	}
	out, err := baseToDict("streamable_http", t.Name, t.Auth, s.Auth)
	if err != nil {
		return nil, err
	}
	out["url"] = t.URL
	if t.Method != "" {
		out["method"] = t.Method
	}
	if t.Headers != nil {
		out["headers"] = t.Headers
	}
	if t.Timeout > 0 {
		out["timeout_ms"] = int(t.Timeout / time.Millisecond)
	}
	return out, nil
}

func (s StreamableHTTPCallTemplateSerializer) ValidateDict(data map[string]any) (CallTemplate, error) {
	name, auth, headers, timeout, err := baseFromDict(data, s.Auth)
	if err != nil {
		return nil, err
	}
	url, err := requireString(data, "url")
	if err != nil {
		return nil, err
	}
	method, _ := data["method"].(string)
	if method == "" {
		method = "POST"
	}
	return StreamableHTTPCallTemplate{CallTemplateBase{Name: name, Auth: auth}, url, method, headers, timeout, 0, 0}, nil
}

// WebSocketCallTemplateSerializer serializes WebSocketCallTemplate.
type WebSocketCallTemplateSerializer struct{ Auth DictSerializer[Auth] }

func (s WebSocketCallTemplateSerializer) ToDict(obj CallTemplate) (map[string]any, error) {
	t, ok := obj.(WebSocketCallTemplate)
	if !ok {
		return nil, &ErrSerializerValidation{Message: "expected WebSocketCallTemplate"}
	}
	out, err := baseToDict("websocket", t.Name, t.Auth, s.Auth)
	if err != nil {
		return nil, err
	}
	out["url"] = t.URL
	if t.Headers != nil {
		out["headers"] = t.Headers
	}
	if t.Timeout > 0 {
		out["timeout_ms"] = int(t.Timeout / time.Millisecond)
	}
	return out, nil
}

func (s WebSocketCallTemplateSerializer) ValidateDict(data map[string]any) (CallTemplate, error) {
	name, auth, headers, timeout, err := baseFromDict(data, s.Auth)
	if err != nil {
		return nil, err
	}
	url, err := requireString(data, "url")
	if err != nil {
		return nil, err
	}
	return WebSocketCallTemplate{CallTemplateBase{Name: name, Auth: auth}, url, headers, timeout}, nil
}

// TCPCallTemplateSerializer serializes TCPCallTemplate.
type TCPCallTemplateSerializer struct{ Auth DictSerializer[Auth] }

func (s TCPCallTemplateSerializer) ToDict(obj CallTemplate) (map[string]any, error) {
	t, ok := obj.(TCPCallTemplate)
	if !ok {
		return nil, &ErrSerializerValidation{Message: "expected TCPCallTemplate"}
	}
	out, err := baseToDict("tcp", t.Name, t.Auth, s.Auth)
	if err != nil {
		return nil, err
	}
	out["host"], out["port"] = t.Host, t.Port
	if t.Timeout > 0 {
		out["timeout_ms"] = int(t.Timeout / time.Millisecond)
	}
	return out, nil
}

func (s TCPCallTemplateSerializer) ValidateDict(data map[string]any) (CallTemplate, error) {
	name, auth, _, timeout, err := baseFromDict(data, s.Auth)
	if err != nil {
		return nil, err
	}
	host, err := requireString(data, "host")
	if err != nil {
		return nil, err
	}
	var port int
	if p := toIntPtr(data["port"]); p != nil {
		port = *p
	}
	return TCPCallTemplate{CallTemplateBase{Name: name, Auth: auth}, host, port, timeout}, nil
}

// UDPCallTemplateSerializer serializes UDPCallTemplate.
type UDPCallTemplateSerializer struct{ Auth DictSerializer[Auth] }

func (s UDPCallTemplateSerializer) ToDict(obj CallTemplate) (map[string]any, error) {
	t, ok := obj.(UDPCallTemplate)
	if !ok {
		return nil, &ErrSerializerValidation{Message: "expected UDPCallTemplate"}
	}
	out, err := baseToDict("udp", t.Name, t.Auth, s.Auth)
	if err != nil {
		return nil, err
	}
	out["host"], out["port"] = t.Host, t.Port
	if t.Timeout > 0 {
		out["timeout_ms"] = int(t.Timeout / time.Millisecond)
	}
	return out, nil
}

func (s UDPCallTemplateSerializer) ValidateDict(data map[string]any) (CallTemplate, error) {
	name, auth, _, timeout, err := baseFromDict(data, s.Auth)
	if err != nil {
		return nil, err
	}
	host, err := requireString(data, "host")
	if err != nil {
		return nil, err
	}
	var port int
	if p := toIntPtr(data["port"]); p != nil {
		port = *p
	}
	return UDPCallTemplate{CallTemplateBase{Name: name, Auth: auth}, host, port, timeout}, nil
}

// GraphQLCallTemplateSerializer serializes GraphQLCallTemplate.
type GraphQLCallTemplateSerializer struct{ Auth DictSerializer[Auth] }

func (s GraphQLCallTemplateSerializer) ToDict(obj CallTemplate) (map[string]any, error) {
	t, ok := obj.(GraphQLCallTemplate)
	if !ok {
		return nil, &ErrSerializerValidation{Message: "expected GraphQLCallTemplate"}
	}
	out, err := baseToDict("graphql", t.Name, t.Auth, s.Auth)
	if err != nil {
		return nil, err
	}
	out["url"] = t.URL
	if t.Headers != nil {
		out["headers"] = t.Headers
	}
	if t.Operation != "" {
		out["operation"] = t.Operation
	}
	if t.Timeout > 0 {
		out["timeout_ms"] = int(t.Timeout / time.Millisecond)
	}
	return out, nil
}

func (s GraphQLCallTemplateSerializer) ValidateDict(data map[string]any) (CallTemplate, error) {
	name, auth, headers, timeout, err := baseFromDict(data, s.Auth)
	if err != nil {
		return nil, err
	}
	url, err := requireString(data, "url")
	if err != nil {
		return nil, err
	}
	op, _ := data["operation"].(string)
	return GraphQLCallTemplate{CallTemplateBase{Name: name, Auth: auth}, url, headers, op, timeout}, nil
}

// GRPCCallTemplateSerializer serializes GRPCCallTemplate.
type GRPCCallTemplateSerializer struct{ Auth DictSerializer[Auth] }

func (s GRPCCallTemplateSerializer) ToDict(obj CallTemplate) (map[string]any, error) {
	t, ok := obj.(GRPCCallTemplate)
	if !ok {
		return nil, &ErrSerializerValidation{Message: "expected GRPCCallTemplate"}
	}
	out, err := baseToDict("grpc", t.Name, t.Auth, s.Auth)
	if err != nil {
		return nil, err
	}
	out["target"], out["full_method"], out["use_tls"] = t.Target, t.FullMethod, t.UseTLS
	if t.Timeout > 0 {
		out["timeout_ms"] = int(t.Timeout / time.Millisecond)
	}
	return out, nil
}

func (s GRPCCallTemplateSerializer) ValidateDict(data map[string]any) (CallTemplate, error) {
	name, auth, _, timeout, err := baseFromDict(data, s.Auth)
	if err != nil {
		return nil, err
	}
	target, err := requireString(data, "target")
	if err != nil {
		return nil, err
	}
	method, err := requireString(data, "full_method")
	if err != nil {
		return nil, err
	}
	useTLS, _ := data["use_tls"].(bool)
	return GRPCCallTemplate{CallTemplateBase{Name: name, Auth: auth}, target, method, useTLS, timeout}, nil
}

// MCPCallTemplateSerializer serializes MCPCallTemplate.
type MCPCallTemplateSerializer struct{ Auth DictSerializer[Auth] }

func (s MCPCallTemplateSerializer) ToDict(obj CallTemplate) (map[string]any, error) {
	t, ok := obj.(MCPCallTemplate)
	if !ok {
		return nil, &ErrSerializerValidation{Message: "expected MCPCallTemplate"}
	}
	out, err := baseToDict("mcp", t.Name, t.Auth, s.Auth)
	if err != nil {
		return nil, err
	}
	out["kind"] = string(t.Kind)
	if t.Command != "" {
		out["command"] = t.Command
	}
	if len(t.Args) > 0 {
		args := make([]any, len(t.Args))
		for i, a := range t.Args {
			args[i] = a
		}
		out["args"] = args
	}
	if t.URL != "" {
		out["url"] = t.URL
	}
	if t.Headers != nil {
		out["headers"] = t.Headers
	}
	if t.Timeout > 0 {
		out["timeout_ms"] = int(t.Timeout / time.Millisecond)
	}
	return out, nil
}

func (s MCPCallTemplateSerializer) ValidateDict(data map[string]any) (CallTemplate, error) {
	name, auth, headers, timeout, err := baseFromDict(data, s.Auth)
	if err != nil {
		return nil, err
	}
	kind, _ := data["kind"].(string)
	if kind == "" {
		kind = string(MCPTransportStdio)
	}
	command, _ := data["command"].(string)
	url, _ := data["url"].(string)
	var args []string
	if raw, ok := data["args"].([]any); ok {
		for _, a := range raw {
			if s, ok := a.(string); ok {
				args = append(args, s)
			}
		}
	}
	switch MCPTransportKind(kind) {
	case MCPTransportStdio:
		if command == "" {
			return nil, &ErrSerializerValidation{Path: "command", Message: "required for stdio MCP transport"}
		}
	case MCPTransportHTTP:
		if url == "" {
			return nil, &ErrSerializerValidation{Path: "url", Message: "required for http MCP transport"}
		}
	default:
		return nil, &ErrSerializerValidation{Path: "kind", Message: fmt.Sprintf("unknown mcp transport kind %q", kind)}
	}
	return MCPCallTemplate{CallTemplateBase{Name: name, Auth: auth}, MCPTransportKind(kind), command, args, url, headers, timeout}, nil
}

// CLICallTemplateSerializer serializes CLICallTemplate.
type CLICallTemplateSerializer struct{ Auth DictSerializer[Auth] }

func (s CLICallTemplateSerializer) ToDict(obj CallTemplate) (map[string]any, error) {
	t, ok := obj.(CLICallTemplate)
	if !ok {
		return nil, &ErrSerializerValidation{Message: "expected CLICallTemplate"}
	}
	out, err := baseToDict("cli", t.Name, t.Auth, s.Auth)
	if err != nil {
		return nil, err
	}
	out["command"] = t.Command
	if len(t.Args) > 0 {
		args := make([]any, len(t.Args))
		for i, a := range t.Args {
			args[i] = a
		}
		out["args"] = args
	}
	if t.Dir != "" {
		out["dir"] = t.Dir
	}
	if t.Timeout > 0 {
		out["timeout_ms"] = int(t.Timeout / time.Millisecond)
	}
	return out, nil
}

func (s CLICallTemplateSerializer) ValidateDict(data map[string]any) (CallTemplate, error) {
	name, auth, _, timeout, err := baseFromDict(data, s.Auth)
	if err != nil {
		return nil, err
	}
	command, err := requireString(data, "command")
	if err != nil {
		return nil, err
	}
	var args []string
	if raw, ok := data["args"].([]any); ok {
		for _, a := range raw {
			if s, ok := a.(string); ok {
				args = append(args, s)
			}
		}
	}
	dir, _ := data["dir"].(string)
	return CLICallTemplate{CallTemplateBase{Name: name, Auth: auth}, command, args, dir, timeout}, nil
}

// FileCallTemplateSerializer serializes FileCallTemplate.
type FileCallTemplateSerializer struct{ Auth DictSerializer[Auth] }

func (s FileCallTemplateSerializer) ToDict(obj CallTemplate) (map[string]any, error) {
	t, ok := obj.(FileCallTemplate)
	if !ok {
		return nil, &ErrSerializerValidation{Message: "expected FileCallTemplate"}
	}
	out, err := baseToDict("file", t.Name, t.Auth, s.Auth)
	if err != nil {
		return nil, err
	}
	out["file_path"] = t.FilePath
	return out, nil
}

func (s FileCallTemplateSerializer) ValidateDict(data map[string]any) (CallTemplate, error) {
	name, auth, _, _, err := baseFromDict(data, s.Auth)
	if err != nil {
		return nil, err
	}
	path, err := requireString(data, "file_path")
	if err != nil {
		return nil, err
	}
	return FileCallTemplate{CallTemplateBase{Name: name, Auth: auth}, path}, nil
}

// TextCallTemplateSerializer serializes TextCallTemplate.
type TextCallTemplateSerializer struct{ Auth DictSerializer[Auth] }

func (s TextCallTemplateSerializer) ToDict(obj CallTemplate) (map[string]any, error) {
	t, ok := obj.(TextCallTemplate)
	if !ok {
		return nil, &ErrSerializerValidation{Message: "expected TextCallTemplate"}
	}
	out, err := baseToDict("text", t.Name, t.Auth, s.Auth)
	if err != nil {
		return nil, err
	}
	out["content"] = t.Content
	return out, nil
}

func (s TextCallTemplateSerializer) ValidateDict(data map[string]any) (CallTemplate, error) {
	name, auth, _, _, err := baseFromDict(data, s.Auth)
	if err != nil {
		return nil, err
	}
	content, _ := data["content"].(string)
	return TextCallTemplate{CallTemplateBase{Name: name, Auth: auth}, content}, nil
}
