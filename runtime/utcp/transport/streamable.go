package transport

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/goadesign/utcp-go/runtime/utcp"
	"github.com/goadesign/utcp-go/runtime/utcp/registry"
)

func init() {
	registry.Global().RegisterTransport("streamable_http", StreamableHTTP{}, false)
}

// StreamableHTTP invokes a tool whose response body is a chunked HTTP
// stream of newline-delimited JSON frames, the last of which is treated as
// the call's final result for non-streaming CallTool. Grounded on spec.md
// §4.5's streamable_http transport and the same dial/auth conventions as
// HTTP.
type StreamableHTTP struct{}

func (s StreamableHTTP) RegisterManual(ctx context.Context, _ utcp.Runtime, tmpl utcp.CallTemplate) (utcp.RegisterManualResult, error) {
	t, ok := tmpl.(utcp.StreamableHTTPCallTemplate)
	if !ok {
		return utcp.RegisterManualResult{}, fmt.Errorf("streamable_http transport received %T", tmpl)
	}
	data, err := getJSON(ctx, t.URL, t.Headers, t.Auth, t.Timeout)
	if err != nil {
		return utcp.RegisterManualResult{ManualCallTemplate: tmpl, Success: false, Errors: []string{err.Error()}}, nil
	}
	manual, err := decodeManual(data)
	if err != nil {
		return utcp.RegisterManualResult{ManualCallTemplate: tmpl, Success: false, Errors: []string{err.Error()}}, nil
	}
	return utcp.RegisterManualResult{ManualCallTemplate: tmpl, Manual: manual, Success: true}, nil
}

func (StreamableHTTP) DeregisterManual(context.Context, utcp.Runtime, utcp.CallTemplate) error {
	return nil
}

func (s StreamableHTTP) openStream(ctx context.Context, t utcp.StreamableHTTPCallTemplate, toolName string, args map[string]any) (io.ReadCloser, error) {
	method := t.Method
	if method == "" {
		method = http.MethodPost
	}
	if l := limiterFor(t.Name, t.RateLimitRPS, t.RateLimitBurst); l != nil {
		if err := l.Wait(ctx); err != nil {
			return nil, err
		}
	}
	body, err := json.Marshal(map[string]any{"name": toolName, "arguments": args})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, method, t.URL, bytes.NewReader(body))
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
		return nil, &utcp.ErrTransport{Transport: "streamable_http", Err: err}
	}
	if resp.StatusCode/100 != 2 {
		raw, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		return nil, &utcp.ErrTransport{Transport: "streamable_http", Err: fmt.Errorf("status %d: %s", resp.StatusCode, raw)}
	}
	return resp.Body, nil
}

func (s StreamableHTTP) CallTool(ctx context.Context, _ utcp.Runtime, toolName string, args map[string]any, tmpl utcp.CallTemplate) (any, error) {
	t, ok := tmpl.(utcp.StreamableHTTPCallTemplate)
	if !ok {
		return nil, fmt.Errorf("streamable_http transport received %T", tmpl)
	}
	body, err := s.openStream(ctx, t, toolName, args)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	var last any
	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var frame any
		if err := json.Unmarshal(line, &frame); err != nil {
			return nil, err
		}
		last = frame
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return last, nil
}

func (s StreamableHTTP) CallToolStreaming(ctx context.Context, _ utcp.Runtime, toolName string, args map[string]any, tmpl utcp.CallTemplate) (utcp.ToolStream, error) {
	t, ok := tmpl.(utcp.StreamableHTTPCallTemplate)
	if !ok {
		return nil, fmt.Errorf("streamable_http transport received %T", tmpl)
	}
	body, err := s.openStream(ctx, t, toolName, args)
	if err != nil {
		return nil, err
	}
	return &ndjsonStream{scanner: bufio.NewScanner(body), body: body}, nil
}

type ndjsonStream struct {
	scanner *bufio.Scanner
	body    io.ReadCloser
}

func (n *ndjsonStream) Next(context.Context) (any, bool, error) {
	for n.scanner.Scan() {
		line := n.scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var frame any
		if err := json.Unmarshal(line, &frame); err != nil {
			return nil, false, err
		}
		return frame, true, nil
	}
	if err := n.scanner.Err(); err != nil {
		return nil, false, err
	}
	return nil, false, nil
}

func (n *ndjsonStream) Close() error { return n.body.Close() }
