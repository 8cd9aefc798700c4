package transport

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/goadesign/utcp-go/runtime/utcp"
)

func TestGraphQLCallToolWrapsQueryAndVariables(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Equal(t, "getWeather", body["query"])
		require.Equal(t, map[string]any{"city": "nyc"}, body["variables"])
		_ = json.NewEncoder(w).Encode(map[string]any{"data": map[string]any{"temp": float64(72)}})
	}))
	defer srv.Close()

	tmpl := utcp.GraphQLCallTemplate{URL: srv.URL, Operation: "getWeather"}
	out, err := GraphQL{}.CallTool(t.Context(), nil, "t", map[string]any{"city": "nyc"}, tmpl)
	require.NoError(t, err)
	require.Equal(t, map[string]any{"temp": float64(72)}, out)
}

func TestGraphQLCallToolDefaultsOperationToToolName(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Equal(t, "my_tool", body["query"])
		_ = json.NewEncoder(w).Encode(map[string]any{"data": nil})
	}))
	defer srv.Close()

	_, err := GraphQL{}.CallTool(t.Context(), nil, "my_tool", nil, utcp.GraphQLCallTemplate{URL: srv.URL})
	require.NoError(t, err)
}

func TestGraphQLCallToolGraphQLErrorsFail(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"errors": []map[string]any{{"message": "field not found"}},
		})
	}))
	defer srv.Close()

	_, err := GraphQL{}.CallTool(t.Context(), nil, "t", nil, utcp.GraphQLCallTemplate{URL: srv.URL})
	require.Error(t, err)
	require.Contains(t, err.Error(), "field not found")
}

func TestGraphQLCallToolNonSuccessStatusFails(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	_, err := GraphQL{}.CallTool(t.Context(), nil, "t", nil, utcp.GraphQLCallTemplate{URL: srv.URL})
	require.Error(t, err)
}

func TestGraphQLCallToolStreamingIsUnsupported(t *testing.T) {
	_, err := GraphQL{}.CallToolStreaming(t.Context(), nil, "t", nil, utcp.GraphQLCallTemplate{})
	require.Error(t, err)
}

func TestGraphQLRegisterManualFetchesManual(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"utcp_version":"1.0.0","manual_version":"1.0.0","tools":[{"name":"t1"}]}`))
	}))
	defer srv.Close()

	result, err := GraphQL{}.RegisterManual(t.Context(), nil, utcp.GraphQLCallTemplate{URL: srv.URL})
	require.NoError(t, err)
	require.True(t, result.Success)
}
