package transport

import (
	"context"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/goadesign/utcp-go/runtime/utcp"
	"github.com/goadesign/utcp-go/runtime/utcp/registry"
)

func init() {
	registry.Global().RegisterTransport("websocket", WebSocket{}, false)
}

// WebSocket invokes a tool over a persistent WebSocket connection,
// correlating the request and response by a generated "id" field on each
// frame. One connection is dialed per call; spec.md §5 does not require
// connection pooling for this transport. Grounded on the gorilla/websocket
// dependency present in the teacher's go.mod.
type WebSocket struct{}

func wsDial(ctx context.Context, rawURL string, headers map[string]string, auth utcp.Auth) (*websocket.Conn, error) {
	h := http.Header{}
	for k, v := range headers {
		h.Set(k, v)
	}
	if a, ok := auth.(utcp.ApiKeyAuth); ok {
		varName := a.VarName
		if varName == "" {
			varName = "X-Api-Key"
		}
		h.Set(varName, a.APIKey)
	}
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, rawURL, h)
	return conn, err
}

func (WebSocket) RegisterManual(ctx context.Context, _ utcp.Runtime, tmpl utcp.CallTemplate) (utcp.RegisterManualResult, error) {
	t, ok := tmpl.(utcp.WebSocketCallTemplate)
	if !ok {
		return utcp.RegisterManualResult{}, fmt.Errorf("websocket transport received %T", tmpl)
	}
	conn, err := wsDial(ctx, t.URL, t.Headers, t.Auth)
	if err != nil {
		return utcp.RegisterManualResult{ManualCallTemplate: tmpl, Success: false, Errors: []string{err.Error()}}, nil
	}
	defer conn.Close()

	id := uuid.New().String()
	if err := conn.WriteJSON(map[string]any{"id": id, "action": "discover"}); err != nil {
		return utcp.RegisterManualResult{ManualCallTemplate: tmpl, Success: false, Errors: []string{err.Error()}}, nil
	}
	var data map[string]any
	if err := conn.ReadJSON(&data); err != nil {
		return utcp.RegisterManualResult{ManualCallTemplate: tmpl, Success: false, Errors: []string{err.Error()}}, nil
	}
	manual, err := decodeManual(data)
	if err != nil {
		return utcp.RegisterManualResult{ManualCallTemplate: tmpl, Success: false, Errors: []string{err.Error()}}, nil
	}
	return utcp.RegisterManualResult{ManualCallTemplate: tmpl, Manual: manual, Success: true}, nil
}

func (WebSocket) DeregisterManual(context.Context, utcp.Runtime, utcp.CallTemplate) error { return nil }

func (WebSocket) CallTool(ctx context.Context, _ utcp.Runtime, toolName string, args map[string]any, tmpl utcp.CallTemplate) (any, error) {
	t, ok := tmpl.(utcp.WebSocketCallTemplate)
	if !ok {
		return nil, fmt.Errorf("websocket transport received %T", tmpl)
	}
	conn, err := wsDial(ctx, t.URL, t.Headers, t.Auth)
	if err != nil {
		return nil, &utcp.ErrTransport{Transport: "websocket", Err: err}
	}
	defer conn.Close()

	id := uuid.New().String()
	if err := conn.WriteJSON(map[string]any{"id": id, "tool": toolName, "arguments": args}); err != nil {
		return nil, &utcp.ErrTransport{Transport: "websocket", Err: err}
	}
	for {
		var frame map[string]any
		if err := conn.ReadJSON(&frame); err != nil {
			return nil, &utcp.ErrTransport{Transport: "websocket", Err: err}
		}
		if frame["id"] != id {
			continue
		}
		if errMsg, ok := frame["error"]; ok && errMsg != nil {
			return nil, &utcp.ErrTransport{Transport: "websocket", Err: fmt.Errorf("%v", errMsg)}
		}
		return frame["result"], nil
	}
}

func (WebSocket) CallToolStreaming(ctx context.Context, _ utcp.Runtime, toolName string, args map[string]any, tmpl utcp.CallTemplate) (utcp.ToolStream, error) {
	t, ok := tmpl.(utcp.WebSocketCallTemplate)
	if !ok {
		return nil, fmt.Errorf("websocket transport received %T", tmpl)
	}
	conn, err := wsDial(ctx, t.URL, t.Headers, t.Auth)
	if err != nil {
		return nil, &utcp.ErrTransport{Transport: "websocket", Err: err}
	}
	id := uuid.New().String()
	if err := conn.WriteJSON(map[string]any{"id": id, "tool": toolName, "arguments": args}); err != nil {
		conn.Close()
		return nil, &utcp.ErrTransport{Transport: "websocket", Err: err}
	}
	return &wsStream{conn: conn, id: id}, nil
}

type wsStream struct {
	conn *websocket.Conn
	id   string
	done bool
}

func (s *wsStream) Next(context.Context) (any, bool, error) {
	if s.done {
		return nil, false, nil
	}
	for {
		var frame map[string]any
		if err := s.conn.ReadJSON(&frame); err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.done = true
				return nil, false, nil
			}
			return nil, false, err
		}
		if frame["id"] != s.id {
			continue
		}
		if errMsg, ok := frame["error"]; ok && errMsg != nil {
			return nil, false, fmt.Errorf("%v", errMsg)
		}
		if done, _ := frame["done"].(bool); done {
			s.done = true
			return nil, false, nil
		}
		return frame["result"], true, nil
	}
}

func (s *wsStream) Close() error { return s.conn.Close() }
