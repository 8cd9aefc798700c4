package utcp

import "time"

// HTTPCallTemplate reaches an endpoint via plain HTTP request/response.
// Also backs the GraphQL transport, which layers a {query, variables}
// envelope on top.
type HTTPCallTemplate struct {
	CallTemplateBase
	URL            string
	Method         string // defaults to "POST" if empty
	Headers        map[string]string
	Timeout        time.Duration
	RateLimitRPS   float64 // 0 disables rate limiting
	RateLimitBurst int
}

func (t HTTPCallTemplate) TemplateType() string { return "http" }
func (t HTTPCallTemplate) WithName(name string) CallTemplate {
	t.Name = name
	return t
}

// SSECallTemplate reaches an endpoint via a Server-Sent Events stream.
type SSECallTemplate struct {
	CallTemplateBase
	URL     string
	Headers map[string]string
	Timeout time.Duration
}

func (t SSECallTemplate) TemplateType() string { return "sse" }
func (t SSECallTemplate) WithName(name string) CallTemplate {
	t.Name = name
	return t
}

// StreamableHTTPCallTemplate reaches an endpoint via a chunked HTTP
// response body carrying newline-delimited JSON frames.
type StreamableHTTPCallTemplate struct {
	CallTemplateBase
	URL            string
	Method         string
	Headers        map[string]string
	Timeout        time.Duration
	RateLimitRPS   float64
	RateLimitBurst int
}

func (t StreamableHTTPCallTemplate) TemplateType() string { return "streamable_http" }
func (t StreamableHTTPCallTemplate) WithName(name string) CallTemplate {
	t.Name = name
	return t
}

// WebSocketCallTemplate reaches an endpoint via a persistent WebSocket
// connection, pairing requests and responses by a correlation id field.
type WebSocketCallTemplate struct {
	CallTemplateBase
	URL     string
	Headers map[string]string
	Timeout time.Duration
}

func (t WebSocketCallTemplate) TemplateType() string { return "websocket" }
func (t WebSocketCallTemplate) WithName(name string) CallTemplate {
	t.Name = name
	return t
}

// TCPCallTemplate reaches an endpoint via a raw TCP socket, length-prefixed
// JSON envelopes.
type TCPCallTemplate struct {
	CallTemplateBase
	Host    string
	Port    int
	Timeout time.Duration
}

func (t TCPCallTemplate) TemplateType() string { return "tcp" }
func (t TCPCallTemplate) WithName(name string) CallTemplate {
	t.Name = name
	return t
}

// UDPCallTemplate reaches an endpoint via a raw UDP socket, a single
// JSON datagram (no length prefix) per call.
type UDPCallTemplate struct {
	CallTemplateBase
	Host    string
	Port    int
	Timeout time.Duration
}

func (t UDPCallTemplate) TemplateType() string { return "udp" }
func (t UDPCallTemplate) WithName(name string) CallTemplate {
	t.Name = name
	return t
}

// GraphQLCallTemplate reaches an endpoint via a GraphQL HTTP POST.
type GraphQLCallTemplate struct {
	CallTemplateBase
	URL       string
	Headers   map[string]string
	Operation string // GraphQL operation/query template; the tool name selects a stored query if empty
	Timeout   time.Duration
}

func (t GraphQLCallTemplate) TemplateType() string { return "graphql" }
func (t GraphQLCallTemplate) WithName(name string) CallTemplate {
	t.Name = name
	return t
}

// GRPCCallTemplate reaches an endpoint via a generic unary gRPC method,
// exchanging google.protobuf.Struct payloads.
type GRPCCallTemplate struct {
	CallTemplateBase
	Target      string // host:port
	FullMethod  string // e.g. "/utcp.ToolInvoker/Call"
	UseTLS      bool
	Timeout     time.Duration
}

func (t GRPCCallTemplate) TemplateType() string { return "grpc" }
func (t GRPCCallTemplate) WithName(name string) CallTemplate {
	t.Name = name
	return t
}

// MCPTransportKind selects how the MCP call template reaches the server.
type MCPTransportKind string

const (
	MCPTransportStdio MCPTransportKind = "stdio"
	MCPTransportHTTP  MCPTransportKind = "http"
)

// MCPCallTemplate reaches a Model Context Protocol server, either by
// spawning a subprocess speaking JSON-RPC over stdio, or via a plain HTTP
// POST whose response body is a single JSON-RPC reply (no SSE).
type MCPCallTemplate struct {
	CallTemplateBase
	Kind    MCPTransportKind
	Command string   // Kind == stdio
	Args    []string // Kind == stdio
	URL     string   // Kind == http
	Headers map[string]string
	Timeout time.Duration
}

func (t MCPCallTemplate) TemplateType() string { return "mcp" }
func (t MCPCallTemplate) WithName(name string) CallTemplate {
	t.Name = name
	return t
}

// CLICallTemplate reaches a tool by invoking a local subprocess, writing
// arguments as JSON on stdin and capturing stdout.
type CLICallTemplate struct {
	CallTemplateBase
	Command string
	Args    []string
	Dir     string // resolved relative to Runtime.RootDir() when relative
	Timeout time.Duration
}

func (t CLICallTemplate) TemplateType() string { return "cli" }
func (t CLICallTemplate) WithName(name string) CallTemplate {
	t.Name = name
	return t
}

// FileCallTemplate reaches a manual (or, for a tool template, a file whose
// contents are returned verbatim) from a local path resolved relative to
// Runtime.RootDir() when relative.
type FileCallTemplate struct {
	CallTemplateBase
	FilePath string
}

func (t FileCallTemplate) TemplateType() string { return "file" }
func (t FileCallTemplate) WithName(name string) CallTemplate {
	t.Name = name
	return t
}

// TextCallTemplate returns literal, in-process content configured directly
// on the template; no I/O occurs.
type TextCallTemplate struct {
	CallTemplateBase
	Content string
}

func (t TextCallTemplate) TemplateType() string { return "text" }
func (t TextCallTemplate) WithName(name string) CallTemplate {
	t.Name = name
	return t
}
