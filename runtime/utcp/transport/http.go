package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"

	"golang.org/x/time/rate"

	"github.com/goadesign/utcp-go/runtime/utcp"
	"github.com/goadesign/utcp-go/runtime/utcp/registry"
)

func init() {
	registry.Global().RegisterTransport("http", HTTP{}, false)
}

// limiterFor returns (and lazily creates) the rate.Limiter for a call
// template carrying RateLimitRPS > 0. One limiter is shared across calls
// made against the same template name, matching spec.md §4's per-transport
// rate limiting note.
var (
	limiterMu    sync.Mutex
	limiterTable = make(map[string]*rate.Limiter)
)

func limiterFor(key string, rps float64, burst int) *rate.Limiter {
	if rps <= 0 {
		return nil
	}
	limiterMu.Lock()
	defer limiterMu.Unlock()
	if l, ok := limiterTable[key]; ok {
		return l
	}
	if burst <= 0 {
		burst = 1
	}
	l := rate.NewLimiter(rate.Limit(rps), burst)
	limiterTable[key] = l
	return l
}

// HTTP invokes a tool or fetches a manual via a plain HTTP request/response
// exchange. Grounded on runtime/mcp's httpTransport dial/auth conventions
// and spec.md §4.5's transport contract.
type HTTP struct{}

// fetchManual issues a GET against tmpl.URL and parses the body as a UTCP
// manual. Grounded on spec.md §4.8's register_manual discovery step.
func (HTTP) fetchManual(ctx context.Context, t utcp.HTTPCallTemplate) (*utcp.Manual, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.URL, nil)
	if err != nil {
		return nil, err
	}
	for k, v := range t.Headers {
		req.Header.Set(k, v)
	}
	if err := applyHTTPAuth(ctx, req, t.Auth); err != nil {
		return nil, err
	}
	resp, err := httpClientFor(t.Timeout).Do(req)
	if err != nil {
		return nil, &utcp.ErrTransport{Transport: "http", Err: err}
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode/100 != 2 {
		return nil, &utcp.ErrTransport{Transport: "http", Err: fmt.Errorf("status %d: %s", resp.StatusCode, raw)}
	}
	var data map[string]any
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, err
	}
	return decodeManual(data)
}

func (h HTTP) RegisterManual(ctx context.Context, _ utcp.Runtime, tmpl utcp.CallTemplate) (utcp.RegisterManualResult, error) {
	t, ok := tmpl.(utcp.HTTPCallTemplate)
	if !ok {
		return utcp.RegisterManualResult{}, fmt.Errorf("http transport received %T", tmpl)
	}
	manual, err := h.fetchManual(ctx, t)
	if err != nil {
		return utcp.RegisterManualResult{ManualCallTemplate: tmpl, Success: false, Errors: []string{err.Error()}}, nil
	}
	return utcp.RegisterManualResult{ManualCallTemplate: tmpl, Manual: manual, Success: true}, nil
}

func (HTTP) DeregisterManual(context.Context, utcp.Runtime, utcp.CallTemplate) error {
	return nil
}

func (HTTP) CallTool(ctx context.Context, _ utcp.Runtime, toolName string, args map[string]any, tmpl utcp.CallTemplate) (any, error) {
	t, ok := tmpl.(utcp.HTTPCallTemplate)
	if !ok {
		return nil, fmt.Errorf("http transport received %T", tmpl)
	}
	if l := limiterFor(t.Name, t.RateLimitRPS, t.RateLimitBurst); l != nil {
		if err := l.Wait(ctx); err != nil {
			return nil, err
		}
	}
	method := t.Method
	if method == "" {
		method = http.MethodPost
	}
	body, err := json.Marshal(args)
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
		return nil, &utcp.ErrTransport{Transport: "http", Err: err}
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode/100 != 2 {
		return nil, &utcp.ErrTransport{Transport: "http", Err: fmt.Errorf("tool %q status %d: %s", toolName, resp.StatusCode, raw)}
	}
	var result any
	if len(raw) == 0 {
		return nil, nil
	}
	if err := json.Unmarshal(raw, &result); err != nil {
		return string(raw), nil
	}
	return result, nil
}

func (HTTP) CallToolStreaming(context.Context, utcp.Runtime, string, map[string]any, utcp.CallTemplate) (utcp.ToolStream, error) {
	return nil, fmt.Errorf("http transport does not support streaming calls; use sse or streamable_http")
}

func decodeManual(data map[string]any) (*utcp.Manual, error) {
	ser := utcp.ManualSerializer{Tool: utcp.ToolSerializer{CallTemplate: callTemplateCodec}}
	return ser.ValidateDict(data)
}
