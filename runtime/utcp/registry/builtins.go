package registry

import "github.com/goadesign/utcp-go/runtime/utcp"

// registerBuiltins installs the implementations that ship in the utcp
// package itself (the three auth kinds and the twelve call template
// variants). Transport adapters, search strategies, post-processors, tool
// repositories, and variable loaders live in their own subpackages and
// register themselves into Global() from an init() function when that
// subpackage is imported, the same side-effect-import pattern
// plugin_loader.py's dynamic module scan approximates at compile time.
func registerBuiltins(r *Registry) {
	r.RegisterAuth("api_key", utcp.ApiKeyAuthSerializer{}, false)
	r.RegisterAuth("basic", utcp.BasicAuthSerializer{}, false)
	r.RegisterAuth("oauth2", utcp.OAuth2AuthSerializer{}, false)

	authSer := utcp.AuthSerializer{Lookup: r.LookupAuth}

	r.RegisterCallTemplate("http", utcp.HTTPCallTemplateSerializer{Auth: authSer}, false)
	r.RegisterCallTemplate("sse", utcp.SSECallTemplateSerializer{Auth: authSer}, false)
	r.RegisterCallTemplate("streamable_http", utcp.StreamableHTTPCallTemplateSerializer{Auth: authSer}, false)
	r.RegisterCallTemplate("websocket", utcp.WebSocketCallTemplateSerializer{Auth: authSer}, false)
	r.RegisterCallTemplate("tcp", utcp.TCPCallTemplateSerializer{Auth: authSer}, false)
	r.RegisterCallTemplate("udp", utcp.UDPCallTemplateSerializer{Auth: authSer}, false)
	r.RegisterCallTemplate("graphql", utcp.GraphQLCallTemplateSerializer{Auth: authSer}, false)
	r.RegisterCallTemplate("grpc", utcp.GRPCCallTemplateSerializer{Auth: authSer}, false)
	r.RegisterCallTemplate("mcp", utcp.MCPCallTemplateSerializer{Auth: authSer}, false)
	r.RegisterCallTemplate("cli", utcp.CLICallTemplateSerializer{Auth: authSer}, false)
	r.RegisterCallTemplate("file", utcp.FileCallTemplateSerializer{Auth: authSer}, false)
	r.RegisterCallTemplate("text", utcp.TextCallTemplateSerializer{Auth: authSer}, false)
}

// CallTemplateSerializer returns a ready-to-use dispatcher serializer bound
// to this registry's call-template table.
func (r *Registry) CallTemplateSerializer() utcp.CallTemplateSerializer {
	return utcp.CallTemplateSerializer{Lookup: r.LookupCallTemplate}
}

// AuthSerializer returns a ready-to-use dispatcher serializer bound to this
// registry's auth table.
func (r *Registry) AuthSerializer() utcp.AuthSerializer {
	return utcp.AuthSerializer{Lookup: r.LookupAuth}
}
