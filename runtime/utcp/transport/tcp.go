package transport

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"net"

	"github.com/goadesign/utcp-go/runtime/utcp"
	"github.com/goadesign/utcp-go/runtime/utcp/registry"
)

func init() {
	registry.Global().RegisterTransport("tcp", TCP{}, false)
}

// TCP invokes a tool over a raw TCP socket using 4-byte big-endian
// length-prefixed JSON envelopes: a request frame is written, and a single
// response frame is read back, then the connection is closed. Grounded on
// spec.md §4.5's tcp transport; no teacher file uses raw sockets, so the
// framing is a minimal, explicit protocol rather than an ecosystem
// convention.
type TCP struct{}

func writeFrame(w io.Writer, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	header := make([]byte, 4)
	binary.BigEndian.PutUint32(header, uint32(len(body)))
	if _, err := w.Write(header); err != nil {
		return err
	}
	_, err = w.Write(body)
	return err
}

func readFrame(r io.Reader) (map[string]any, error) {
	header := make([]byte, 4)
	if _, err := io.ReadFull(r, header); err != nil {
		return nil, err
	}
	size := binary.BigEndian.Uint32(header)
	body := make([]byte, size)
	if _, err := io.ReadFull(r, body); err != nil {
		return nil, err
	}
	var data map[string]any
	if err := json.Unmarshal(body, &data); err != nil {
		return nil, err
	}
	return data, nil
}

func (TCP) RegisterManual(ctx context.Context, _ utcp.Runtime, tmpl utcp.CallTemplate) (utcp.RegisterManualResult, error) {
	t, ok := tmpl.(utcp.TCPCallTemplate)
	if !ok {
		return utcp.RegisterManualResult{}, fmt.Errorf("tcp transport received %T", tmpl)
	}
	conn, err := dialTCP(ctx, t.Host, t.Port)
	if err != nil {
		return utcp.RegisterManualResult{ManualCallTemplate: tmpl, Success: false, Errors: []string{err.Error()}}, nil
	}
	defer conn.Close()
	if err := writeFrame(conn, map[string]any{"action": "discover"}); err != nil {
		return utcp.RegisterManualResult{ManualCallTemplate: tmpl, Success: false, Errors: []string{err.Error()}}, nil
	}
	data, err := readFrame(conn)
	if err != nil {
		return utcp.RegisterManualResult{ManualCallTemplate: tmpl, Success: false, Errors: []string{err.Error()}}, nil
	}
	manual, err := decodeManual(data)
	if err != nil {
		return utcp.RegisterManualResult{ManualCallTemplate: tmpl, Success: false, Errors: []string{err.Error()}}, nil
	}
	return utcp.RegisterManualResult{ManualCallTemplate: tmpl, Manual: manual, Success: true}, nil
}

func (TCP) DeregisterManual(context.Context, utcp.Runtime, utcp.CallTemplate) error { return nil }

func (TCP) CallTool(ctx context.Context, _ utcp.Runtime, toolName string, args map[string]any, tmpl utcp.CallTemplate) (any, error) {
	t, ok := tmpl.(utcp.TCPCallTemplate)
	if !ok {
		return nil, fmt.Errorf("tcp transport received %T", tmpl)
	}
	conn, err := dialTCP(ctx, t.Host, t.Port)
	if err != nil {
		return nil, &utcp.ErrTransport{Transport: "tcp", Err: err}
	}
	defer conn.Close()
	if err := writeFrame(conn, map[string]any{"tool": toolName, "arguments": args}); err != nil {
		return nil, &utcp.ErrTransport{Transport: "tcp", Err: err}
	}
	data, err := readFrame(conn)
	if err != nil {
		return nil, &utcp.ErrTransport{Transport: "tcp", Err: err}
	}
	if errMsg, ok := data["error"]; ok && errMsg != nil {
		return nil, &utcp.ErrTransport{Transport: "tcp", Err: fmt.Errorf("%v", errMsg)}
	}
	return data["result"], nil
}

func (TCP) CallToolStreaming(context.Context, utcp.Runtime, string, map[string]any, utcp.CallTemplate) (utcp.ToolStream, error) {
	return nil, fmt.Errorf("tcp transport does not support streaming calls")
}

func dialTCP(ctx context.Context, host string, port int) (net.Conn, error) {
	var d net.Dialer
	return d.DialContext(ctx, "tcp", fmt.Sprintf("%s:%d", host, port))
}
