package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/goadesign/utcp-go/runtime/utcp"
	"github.com/goadesign/utcp-go/runtime/utcp/registry"
)

// callTemplateCodec decodes a tool's nested call template (discovered
// inside a manual payload) through the global registry's dispatch table.
var callTemplateCodec = utcp.CallTemplateSerializer{Lookup: registry.Global().LookupCallTemplate}

const defaultHTTPTimeout = 30 * time.Second

// httpClientFor returns an *http.Client configured with timeout, or
// defaultHTTPTimeout if timeout is zero.
func httpClientFor(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = defaultHTTPTimeout
	}
	return &http.Client{Timeout: timeout}
}

// getJSON issues a GET request against target, applies auth, and decodes
// the JSON response body into a map. Shared by every transport whose
// RegisterManual fetches a manual document over HTTP(S).
func getJSON(ctx context.Context, target string, headers map[string]string, auth utcp.Auth, timeout time.Duration) (map[string]any, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, err
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	if err := applyHTTPAuth(ctx, req, auth); err != nil {
		return nil, err
	}
	resp, err := httpClientFor(timeout).Do(req)
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
	return data, nil
}
