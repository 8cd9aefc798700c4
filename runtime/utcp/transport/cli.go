package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"path/filepath"

	"github.com/goadesign/utcp-go/runtime/utcp"
	"github.com/goadesign/utcp-go/runtime/utcp/registry"
)

func init() {
	registry.Global().RegisterTransport("cli", CLI{}, false)
}

// CLI invokes a tool by running a local subprocess, writing a
// {"tool", "arguments"} JSON envelope on stdin and parsing its stdout as
// JSON, or returning stdout as a plain string when it is not JSON.
// Grounded on spec.md §4.5's cli transport.
type CLI struct{}

func resolveDir(rt utcp.Runtime, dir string) string {
	if dir == "" || filepath.IsAbs(dir) {
		return dir
	}
	if rt == nil {
		return dir
	}
	return filepath.Join(rt.RootDir(), dir)
}

func (CLI) RegisterManual(ctx context.Context, rt utcp.Runtime, tmpl utcp.CallTemplate) (utcp.RegisterManualResult, error) {
	t, ok := tmpl.(utcp.CLICallTemplate)
	if !ok {
		return utcp.RegisterManualResult{}, fmt.Errorf("cli transport received %T", tmpl)
	}
	args := append([]string(nil), t.Args...)
	args = append(args, "--discover")
	cmd := exec.CommandContext(ctx, t.Command, args...)
	cmd.Dir = resolveDir(rt, t.Dir)
	out, err := cmd.Output()
	if err != nil {
		return utcp.RegisterManualResult{ManualCallTemplate: tmpl, Success: false, Errors: []string{err.Error()}}, nil
	}
	var data map[string]any
	if err := json.Unmarshal(out, &data); err != nil {
		return utcp.RegisterManualResult{ManualCallTemplate: tmpl, Success: false, Errors: []string{err.Error()}}, nil
	}
	manual, err := decodeManual(data)
	if err != nil {
		return utcp.RegisterManualResult{ManualCallTemplate: tmpl, Success: false, Errors: []string{err.Error()}}, nil
	}
	return utcp.RegisterManualResult{ManualCallTemplate: tmpl, Manual: manual, Success: true}, nil
}

func (CLI) DeregisterManual(context.Context, utcp.Runtime, utcp.CallTemplate) error { return nil }

func (CLI) CallTool(ctx context.Context, rt utcp.Runtime, toolName string, args map[string]any, tmpl utcp.CallTemplate) (any, error) {
	t, ok := tmpl.(utcp.CLICallTemplate)
	if !ok {
		return nil, fmt.Errorf("cli transport received %T", tmpl)
	}
	payload, err := json.Marshal(map[string]any{"tool": toolName, "arguments": args})
	if err != nil {
		return nil, err
	}
	cmd := exec.CommandContext(ctx, t.Command, t.Args...)
	cmd.Dir = resolveDir(rt, t.Dir)
	cmd.Stdin = bytes.NewReader(payload)
	out, err := cmd.Output()
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			return nil, &utcp.ErrTransport{Transport: "cli", Err: fmt.Errorf("exit %d: %s", exitErr.ExitCode(), exitErr.Stderr)}
		}
		return nil, &utcp.ErrTransport{Transport: "cli", Err: err}
	}
	var result any
	if len(out) == 0 {
		return nil, nil
	}
	if err := json.Unmarshal(out, &result); err != nil {
		return string(out), nil
	}
	return result, nil
}

func (CLI) CallToolStreaming(context.Context, utcp.Runtime, string, map[string]any, utcp.CallTemplate) (utcp.ToolStream, error) {
	return nil, fmt.Errorf("cli transport does not support streaming calls")
}
