package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/goadesign/utcp-go/runtime/utcp"
	"github.com/goadesign/utcp-go/runtime/utcp/registry"
)

func init() {
	registry.Global().RegisterTransport("file", File{}, false)
}

// File reads a manual (or, for a tool call template, a file's contents
// verbatim) from a local path resolved relative to Runtime.RootDir() when
// relative. Grounded on spec.md §4.5's file transport.
type File struct{}

func (File) RegisterManual(_ context.Context, rt utcp.Runtime, tmpl utcp.CallTemplate) (utcp.RegisterManualResult, error) {
	t, ok := tmpl.(utcp.FileCallTemplate)
	if !ok {
		return utcp.RegisterManualResult{}, fmt.Errorf("file transport received %T", tmpl)
	}
	raw, err := os.ReadFile(resolveDir(rt, t.FilePath))
	if err != nil {
		return utcp.RegisterManualResult{ManualCallTemplate: tmpl, Success: false, Errors: []string{err.Error()}}, nil
	}
	var data map[string]any
	if err := json.Unmarshal(raw, &data); err != nil {
		return utcp.RegisterManualResult{ManualCallTemplate: tmpl, Success: false, Errors: []string{err.Error()}}, nil
	}
	manual, err := decodeManual(data)
	if err != nil {
		return utcp.RegisterManualResult{ManualCallTemplate: tmpl, Success: false, Errors: []string{err.Error()}}, nil
	}
	return utcp.RegisterManualResult{ManualCallTemplate: tmpl, Manual: manual, Success: true}, nil
}

func (File) DeregisterManual(context.Context, utcp.Runtime, utcp.CallTemplate) error { return nil }

// CallTool returns the file's contents: as parsed JSON if the file parses,
// or as a raw string otherwise. args are ignored; a file template has no
// invocation parameters.
func (File) CallTool(_ context.Context, rt utcp.Runtime, _ string, _ map[string]any, tmpl utcp.CallTemplate) (any, error) {
	t, ok := tmpl.(utcp.FileCallTemplate)
	if !ok {
		return nil, fmt.Errorf("file transport received %T", tmpl)
	}
	raw, err := os.ReadFile(resolveDir(rt, t.FilePath))
	if err != nil {
		return nil, &utcp.ErrTransport{Transport: "file", Err: err}
	}
	var result any
	if err := json.Unmarshal(raw, &result); err != nil {
		return string(raw), nil
	}
	return result, nil
}

func (File) CallToolStreaming(context.Context, utcp.Runtime, string, map[string]any, utcp.CallTemplate) (utcp.ToolStream, error) {
	return nil, fmt.Errorf("file transport does not support streaming calls")
}
