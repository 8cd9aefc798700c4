package transport

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os/exec"
	"sync/atomic"

	"github.com/goadesign/utcp-go/runtime/utcp"
	"github.com/goadesign/utcp-go/runtime/utcp/registry"
)

func init() {
	registry.Global().RegisterTransport("mcp", MCP{}, false)
}

// rpcRequest and rpcResponse are the JSON-RPC 2.0 envelopes MCP servers
// speak. Grounded on runtime/mcp/caller.go's JSON-RPC error codes and
// envelope shape.
type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      int64  `json:"id"`
	Method  string `json:"method"`
	Params  any    `json:"params,omitempty"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      int64           `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *rpcError       `json:"error,omitempty"`
}

var rpcIDCounter int64

func nextRPCID() int64 { return atomic.AddInt64(&rpcIDCounter, 1) }

// MCP invokes a tool on a Model Context Protocol server, either by
// spawning a subprocess that speaks JSON-RPC over stdio, or by issuing
// JSON-RPC over HTTP. Grounded on runtime/mcp/caller.go and
// runtime/mcp/ssecaller.go's JSON-RPC request construction.
type MCP struct{}

func (m MCP) RegisterManual(ctx context.Context, rt utcp.Runtime, tmpl utcp.CallTemplate) (utcp.RegisterManualResult, error) {
	t, ok := tmpl.(utcp.MCPCallTemplate)
	if !ok {
		return utcp.RegisterManualResult{}, fmt.Errorf("mcp transport received %T", tmpl)
	}
	resp, err := m.rpc(ctx, rt, t, "tools/list", nil)
	if err != nil {
		return utcp.RegisterManualResult{ManualCallTemplate: tmpl, Success: false, Errors: []string{err.Error()}}, nil
	}
	var data map[string]any
	if err := json.Unmarshal(resp, &data); err != nil {
		return utcp.RegisterManualResult{ManualCallTemplate: tmpl, Success: false, Errors: []string{err.Error()}}, nil
	}
	manual, err := decodeManual(data)
	if err != nil {
		return utcp.RegisterManualResult{ManualCallTemplate: tmpl, Success: false, Errors: []string{err.Error()}}, nil
	}
	return utcp.RegisterManualResult{ManualCallTemplate: tmpl, Manual: manual, Success: true}, nil
}

func (MCP) DeregisterManual(context.Context, utcp.Runtime, utcp.CallTemplate) error { return nil }

func (m MCP) CallTool(ctx context.Context, rt utcp.Runtime, toolName string, args map[string]any, tmpl utcp.CallTemplate) (any, error) {
	t, ok := tmpl.(utcp.MCPCallTemplate)
	if !ok {
		return nil, fmt.Errorf("mcp transport received %T", tmpl)
	}
	params := map[string]any{"name": toolName, "arguments": args}
	raw, err := m.rpc(ctx, rt, t, "tools/call", params)
	if err != nil {
		return nil, err
	}
	var result any
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, err
	}
	return result, nil
}

func (MCP) CallToolStreaming(context.Context, utcp.Runtime, string, map[string]any, utcp.CallTemplate) (utcp.ToolStream, error) {
	return nil, fmt.Errorf("mcp transport does not support streaming calls in this client")
}

// rpc performs a single JSON-RPC request/response exchange, dispatching on
// t.Kind to either a subprocess-stdio round trip or an HTTP POST.
func (m MCP) rpc(ctx context.Context, rt utcp.Runtime, t utcp.MCPCallTemplate, method string, params any) (json.RawMessage, error) {
	switch t.Kind {
	case utcp.MCPTransportHTTP:
		return m.rpcHTTP(ctx, t, method, params)
	default:
		return m.rpcStdio(ctx, rt, t, method, params)
	}
}

func (m MCP) rpcHTTP(ctx context.Context, t utcp.MCPCallTemplate, method string, params any) (json.RawMessage, error) {
	reqBody, err := json.Marshal(rpcRequest{JSONRPC: "2.0", ID: nextRPCID(), Method: method, Params: params})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.URL, bytes.NewReader(reqBody))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range t.Headers {
		req.Header.Set(k, v)
	}
	if err := applyHTTPAuth(ctx, req, t.Auth); err != nil {
		return nil, err
	}
	resp, err := httpClientFor(t.Timeout).Do(req)
	if err != nil {
		return nil, &utcp.ErrTransport{Transport: "mcp", Err: err}
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	var rpcResp rpcResponse
	if err := json.Unmarshal(raw, &rpcResp); err != nil {
		return nil, err
	}
	if rpcResp.Error != nil {
		return nil, &utcp.ErrTransport{Transport: "mcp", Err: fmt.Errorf("rpc error %d: %s", rpcResp.Error.Code, rpcResp.Error.Message)}
	}
	return rpcResp.Result, nil
}

// rpcStdio spawns the configured command, writes a single JSON-RPC request
// line to its stdin, and reads a single JSON-RPC response line from its
// stdout. The subprocess is expected to exit after responding; callers
// that need a long-lived MCP session should prefer the http variant.
func (m MCP) rpcStdio(ctx context.Context, rt utcp.Runtime, t utcp.MCPCallTemplate, method string, params any) (json.RawMessage, error) {
	cmd := exec.CommandContext(ctx, t.Command, t.Args...)
	if rt != nil {
		cmd.Dir = rt.RootDir()
	}
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, err
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, err
	}
	if err := cmd.Start(); err != nil {
		return nil, &utcp.ErrTransport{Transport: "mcp", Err: err}
	}
	defer func() { _ = cmd.Wait() }()

	reqBody, err := json.Marshal(rpcRequest{JSONRPC: "2.0", ID: nextRPCID(), Method: method, Params: params})
	if err != nil {
		return nil, err
	}
	if _, err := stdin.Write(append(reqBody, '\n')); err != nil {
		return nil, &utcp.ErrTransport{Transport: "mcp", Err: err}
	}
	_ = stdin.Close()

	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var rpcResp rpcResponse
		if err := json.Unmarshal(line, &rpcResp); err != nil {
			continue
		}
		if rpcResp.Error != nil {
			return nil, &utcp.ErrTransport{Transport: "mcp", Err: fmt.Errorf("rpc error %d: %s", rpcResp.Error.Code, rpcResp.Error.Message)}
		}
		return rpcResp.Result, nil
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return nil, &utcp.ErrTransport{Transport: "mcp", Err: fmt.Errorf("subprocess exited without a response")}
}
