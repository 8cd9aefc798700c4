package transport

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/goadesign/utcp-go/runtime/utcp"
)

func sseServer(t *testing.T, frames string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, frames)
	}))
}

func TestSSECallToolReturnsResponseEvent(t *testing.T) {
	srv := sseServer(t, "event: notification\ndata: {\"progress\":1}\n\nevent: response\ndata: {\"ok\":true}\n\n")
	defer srv.Close()

	out, err := SSE{}.CallTool(t.Context(), nil, "t", nil, utcp.SSECallTemplate{URL: srv.URL})
	require.NoError(t, err)
	require.Equal(t, map[string]any{"ok": true}, out)
}

func TestSSECallToolErrorEventFails(t *testing.T) {
	srv := sseServer(t, "event: error\ndata: boom\n\n")
	defer srv.Close()

	_, err := SSE{}.CallTool(t.Context(), nil, "t", nil, utcp.SSECallTemplate{URL: srv.URL})
	require.Error(t, err)
	require.Contains(t, err.Error(), "boom")
}

func TestSSECallToolStreamClosedBeforeResponseFails(t *testing.T) {
	srv := sseServer(t, "event: notification\ndata: {\"progress\":1}\n\n")
	defer srv.Close()

	_, err := SSE{}.CallTool(t.Context(), nil, "t", nil, utcp.SSECallTemplate{URL: srv.URL})
	require.Error(t, err)
	require.Contains(t, err.Error(), "stream closed before response")
}

func TestSSECallToolNonSuccessStatusFails(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	_, err := SSE{}.CallTool(t.Context(), nil, "t", nil, utcp.SSECallTemplate{URL: srv.URL})
	require.Error(t, err)
}

func TestSSECallToolStreamingYieldsEachFrame(t *testing.T) {
	srv := sseServer(t, "event: notification\ndata: {\"progress\":1}\n\nevent: response\ndata: {\"ok\":true}\n\n")
	defer srv.Close()

	stream, err := SSE{}.CallToolStreaming(t.Context(), nil, "t", nil, utcp.SSECallTemplate{URL: srv.URL})
	require.NoError(t, err)
	defer stream.Close()

	v1, ok, err := stream.Next(t.Context())
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, map[string]any{"progress": float64(1)}, v1)

	v2, ok, err := stream.Next(t.Context())
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, map[string]any{"ok": true}, v2)

	_, ok, err = stream.Next(t.Context())
	require.NoError(t, err)
	require.False(t, ok)
}

func TestSSERegisterManualFetchesManual(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"utcp_version":"1.0.0","manual_version":"1.0.0","tools":[{"name":"t1"}]}`))
	}))
	defer srv.Close()

	result, err := SSE{}.RegisterManual(t.Context(), nil, utcp.SSECallTemplate{URL: srv.URL})
	require.NoError(t, err)
	require.True(t, result.Success)
	require.Len(t, result.Manual.Tools, 1)
}

func TestSSECallToolWrongTemplateTypeErrors(t *testing.T) {
	_, err := SSE{}.CallTool(t.Context(), nil, "t", nil, utcp.TextCallTemplate{})
	require.Error(t, err)
}
