package transport

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/goadesign/utcp-go/runtime/utcp"
	"github.com/goadesign/utcp-go/runtime/utcp/registry"
)

func init() {
	registry.Global().RegisterTransport("sse", SSE{}, false)
}

// SSE invokes a tool by posting the call and reading the response off a
// Server-Sent Events stream. Grounded on runtime/mcp/ssecaller.go's
// SSECaller and its readSSEEvent frame parser, ported near-verbatim.
type SSE struct{}

func (SSE) RegisterManual(ctx context.Context, _ utcp.Runtime, tmpl utcp.CallTemplate) (utcp.RegisterManualResult, error) {
	t, ok := tmpl.(utcp.SSECallTemplate)
	if !ok {
		return utcp.RegisterManualResult{}, fmt.Errorf("sse transport received %T", tmpl)
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

func (SSE) DeregisterManual(context.Context, utcp.Runtime, utcp.CallTemplate) error { return nil }

func (SSE) CallTool(ctx context.Context, _ utcp.Runtime, toolName string, args map[string]any, tmpl utcp.CallTemplate) (any, error) {
	t, ok := tmpl.(utcp.SSECallTemplate)
	if !ok {
		return nil, fmt.Errorf("sse transport received %T", tmpl)
	}
	body, err := json.Marshal(map[string]any{"name": toolName, "arguments": args})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.URL, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")
	for k, v := range t.Headers {
		req.Header.Set(k, v)
	}
	if err := applyHTTPAuth(ctx, req, t.Auth); err != nil {
		return nil, err
	}
	resp, err := httpClientFor(t.Timeout).Do(req)
	if err != nil {
		return nil, &utcp.ErrTransport{Transport: "sse", Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		raw, _ := io.ReadAll(resp.Body)
		return nil, &utcp.ErrTransport{Transport: "sse", Err: fmt.Errorf("status %d: %s", resp.StatusCode, raw)}
	}

	reader := bufio.NewReader(resp.Body)
	for {
		event, data, err := readSSEEvent(reader)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil, &utcp.ErrTransport{Transport: "sse", Err: errors.New("stream closed before response")}
			}
			return nil, err
		}
		switch event {
		case "response":
			var result any
			if err := json.Unmarshal(data, &result); err != nil {
				return nil, err
			}
			return result, nil
		case "error":
			return nil, &utcp.ErrTransport{Transport: "sse", Err: fmt.Errorf("%s", data)}
		case "", "notification":
			continue
		case "close":
			return nil, &utcp.ErrTransport{Transport: "sse", Err: errors.New("stream closed without response")}
		default:
			continue
		}
	}
}

// CallToolStreaming returns a ToolStream yielding every "notification" and
// "response" frame in order, closing after a "response" or "close" event.
func (SSE) CallToolStreaming(ctx context.Context, _ utcp.Runtime, toolName string, args map[string]any, tmpl utcp.CallTemplate) (utcp.ToolStream, error) {
	t, ok := tmpl.(utcp.SSECallTemplate)
	if !ok {
		return nil, fmt.Errorf("sse transport received %T", tmpl)
	}
	body, err := json.Marshal(map[string]any{"name": toolName, "arguments": args})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.URL, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")
	for k, v := range t.Headers {
		req.Header.Set(k, v)
	}
	if err := applyHTTPAuth(ctx, req, t.Auth); err != nil {
		return nil, err
	}
	resp, err := httpClientFor(t.Timeout).Do(req)
	if err != nil {
		return nil, &utcp.ErrTransport{Transport: "sse", Err: err}
	}
	if resp.StatusCode/100 != 2 {
		raw, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		return nil, &utcp.ErrTransport{Transport: "sse", Err: fmt.Errorf("status %d: %s", resp.StatusCode, raw)}
	}
	return &sseStream{reader: bufio.NewReader(resp.Body), body: resp.Body}, nil
}

type sseStream struct {
	reader *bufio.Reader
	body   io.ReadCloser
	done   bool
}

func (s *sseStream) Next(context.Context) (any, bool, error) {
	if s.done {
		return nil, false, nil
	}
	for {
		event, data, err := readSSEEvent(s.reader)
		if err != nil {
			if errors.Is(err, io.EOF) {
				s.done = true
				return nil, false, nil
			}
			return nil, false, err
		}
		switch event {
		case "response", "notification", "":
			var result any
			if len(data) > 0 {
				if err := json.Unmarshal(data, &result); err != nil {
					result = string(data)
				}
			}
			if event == "response" {
				s.done = true
			}
			return result, true, nil
		case "close":
			s.done = true
			return nil, false, nil
		case "error":
			return nil, false, &utcp.ErrTransport{Transport: "sse", Err: fmt.Errorf("%s", data)}
		default:
			continue
		}
	}
}

func (s *sseStream) Close() error { return s.body.Close() }

// readSSEEvent reads one Server-Sent Events frame, concatenating
// multi-line "data:" fields with "\n" and skipping ":"-prefixed comment
// lines. Ported near-verbatim from runtime/mcp/ssecaller.go's
// readSSEEvent.
func readSSEEvent(reader *bufio.Reader) (string, []byte, error) {
	var event string
	var data []byte
	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			return "", nil, err
		}
		line = strings.TrimRight(line, "\r\n")
		if line == "" {
			if event == "" && len(data) == 0 {
				continue
			}
			return event, data, nil
		}
		if strings.HasPrefix(line, ":") {
			continue
		}
		if after, ok := strings.CutPrefix(line, "event:"); ok {
			event = strings.TrimSpace(after)
			continue
		}
		if after, ok := strings.CutPrefix(line, "data:"); ok {
			chunk := after
			if len(data) > 0 {
				data = append(data, '\n')
			}
			data = append(data, chunk...)
			continue
		}
	}
}

