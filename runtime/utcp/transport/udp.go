package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"time"

	"github.com/goadesign/utcp-go/runtime/utcp"
	"github.com/goadesign/utcp-go/runtime/utcp/registry"
)

func init() {
	registry.Global().RegisterTransport("udp", UDP{}, false)
}

// UDP invokes a tool by sending a single JSON datagram and waiting for a
// single JSON datagram in reply. Grounded on spec.md §4.5's udp transport;
// like TCP, no teacher file covers raw UDP, so this is a minimal
// request/reply datagram protocol rather than an adopted convention.
type UDP struct{}

func udpRoundTrip(ctx context.Context, host string, port int, timeout time.Duration, payload any) (map[string]any, error) {
	addr := fmt.Sprintf("%s:%d", host, port)
	var d net.Dialer
	conn, err := d.DialContext(ctx, "udp", addr)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	if timeout <= 0 {
		timeout = defaultHTTPTimeout
	}
	if err := conn.SetDeadline(time.Now().Add(timeout)); err != nil {
		return nil, err
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	if _, err := conn.Write(body); err != nil {
		return nil, err
	}

	buf := make([]byte, 65507)
	n, err := conn.Read(buf)
	if err != nil {
		return nil, err
	}
	var data map[string]any
	if err := json.Unmarshal(buf[:n], &data); err != nil {
		return nil, err
	}
	return data, nil
}

func (UDP) RegisterManual(ctx context.Context, _ utcp.Runtime, tmpl utcp.CallTemplate) (utcp.RegisterManualResult, error) {
	t, ok := tmpl.(utcp.UDPCallTemplate)
	if !ok {
		return utcp.RegisterManualResult{}, fmt.Errorf("udp transport received %T", tmpl)
	}
	data, err := udpRoundTrip(ctx, t.Host, t.Port, t.Timeout, map[string]any{"action": "discover"})
	if err != nil {
		return utcp.RegisterManualResult{ManualCallTemplate: tmpl, Success: false, Errors: []string{err.Error()}}, nil
	}
	manual, err := decodeManual(data)
	if err != nil {
		return utcp.RegisterManualResult{ManualCallTemplate: tmpl, Success: false, Errors: []string{err.Error()}}, nil
	}
	return utcp.RegisterManualResult{ManualCallTemplate: tmpl, Manual: manual, Success: true}, nil
}

func (UDP) DeregisterManual(context.Context, utcp.Runtime, utcp.CallTemplate) error { return nil }

func (UDP) CallTool(ctx context.Context, _ utcp.Runtime, toolName string, args map[string]any, tmpl utcp.CallTemplate) (any, error) {
	t, ok := tmpl.(utcp.UDPCallTemplate)
	if !ok {
		return nil, fmt.Errorf("udp transport received %T", tmpl)
	}
	data, err := udpRoundTrip(ctx, t.Host, t.Port, t.Timeout, map[string]any{"tool": toolName, "arguments": args})
	if err != nil {
		return nil, &utcp.ErrTransport{Transport: "udp", Err: err}
	}
	if errMsg, ok := data["error"]; ok && errMsg != nil {
		return nil, &utcp.ErrTransport{Transport: "udp", Err: fmt.Errorf("%v", errMsg)}
	}
	return data["result"], nil
}

func (UDP) CallToolStreaming(context.Context, utcp.Runtime, string, map[string]any, utcp.CallTemplate) (utcp.ToolStream, error) {
	return nil, fmt.Errorf("udp transport does not support streaming calls")
}
