package transport

import (
	"context"
	"fmt"

	"github.com/goadesign/utcp-go/runtime/utcp"
	"github.com/goadesign/utcp-go/runtime/utcp/registry"
)

func init() {
	registry.Global().RegisterTransport("text", Text{}, false)
}

// Text returns literal, in-process content configured directly on the
// call template; no I/O occurs. Grounded on spec.md §4.5's text
// transport, used for tools that echo fixed or templated content (e.g.
// prompt snippets) without reaching an external endpoint.
type Text struct{}

func (Text) RegisterManual(context.Context, utcp.Runtime, utcp.CallTemplate) (utcp.RegisterManualResult, error) {
	return utcp.RegisterManualResult{}, fmt.Errorf("text transport does not support manual discovery; use it only as a tool call template")
}

func (Text) DeregisterManual(context.Context, utcp.Runtime, utcp.CallTemplate) error { return nil }

func (Text) CallTool(_ context.Context, _ utcp.Runtime, _ string, _ map[string]any, tmpl utcp.CallTemplate) (any, error) {
	t, ok := tmpl.(utcp.TextCallTemplate)
	if !ok {
		return nil, fmt.Errorf("text transport received %T", tmpl)
	}
	return t.Content, nil
}

func (Text) CallToolStreaming(context.Context, utcp.Runtime, string, map[string]any, utcp.CallTemplate) (utcp.ToolStream, error) {
	return nil, fmt.Errorf("text transport does not support streaming calls")
}
