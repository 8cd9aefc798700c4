package transport

import (
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
	registry.Global().RegisterTransport("graphql", GraphQL{}, false)
}

// GraphQL invokes a tool as a GraphQL operation over HTTP POST, wrapping
// arguments in the standard {query, variables} envelope. Reuses HTTP's
// dial/auth conventions (spec.md §4.5 groups graphql under the http-family
// transports).
type GraphQL struct{}

func (GraphQL) RegisterManual(ctx context.Context, _ utcp.Runtime, tmpl utcp.CallTemplate) (utcp.RegisterManualResult, error) {
	t, ok := tmpl.(utcp.GraphQLCallTemplate)
	if !ok {
		return utcp.RegisterManualResult{}, fmt.Errorf("graphql transport received %T", tmpl)
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

func (GraphQL) DeregisterManual(context.Context, utcp.Runtime, utcp.CallTemplate) error { return nil }

func (GraphQL) CallTool(ctx context.Context, _ utcp.Runtime, toolName string, args map[string]any, tmpl utcp.CallTemplate) (any, error) {
	t, ok := tmpl.(utcp.GraphQLCallTemplate)
	if !ok {
		return nil, fmt.Errorf("graphql transport received %T", tmpl)
	}
	query := t.Operation
	if query == "" {
		query = toolName
	}
	body, err := json.Marshal(map[string]any{"query": query, "variables": args})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.URL, bytes.NewReader(body))
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
		return nil, &utcp.ErrTransport{Transport: "graphql", Err: err}
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode/100 != 2 {
		return nil, &utcp.ErrTransport{Transport: "graphql", Err: fmt.Errorf("status %d: %s", resp.StatusCode, raw)}
	}
	var envelope struct {
		Data   any `json:"data"`
		Errors []struct {
			Message string `json:"message"`
		} `json:"errors"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, err
	}
	if len(envelope.Errors) > 0 {
		return nil, &utcp.ErrTransport{Transport: "graphql", Err: fmt.Errorf("%s", envelope.Errors[0].Message)}
	}
	return envelope.Data, nil
}

func (GraphQL) CallToolStreaming(context.Context, utcp.Runtime, string, map[string]any, utcp.CallTemplate) (utcp.ToolStream, error) {
	return nil, fmt.Errorf("graphql transport does not support streaming calls; use a subscription-capable transport")
}
