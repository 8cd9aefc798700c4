package transport

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/goadesign/utcp-go/runtime/utcp"
)

func TestTextCallToolReturnsConfiguredContent(t *testing.T) {
	tmpl := utcp.TextCallTemplate{Content: "fixed reply"}
	out, err := Text{}.CallTool(context.Background(), nil, "t", nil, tmpl)
	require.NoError(t, err)
	require.Equal(t, "fixed reply", out)
}

func TestTextCallToolRejectsWrongTemplateType(t *testing.T) {
	_, err := Text{}.CallTool(context.Background(), nil, "t", nil, utcp.FileCallTemplate{})
	require.Error(t, err)
}

func TestTextRegisterManualIsUnsupported(t *testing.T) {
	_, err := Text{}.RegisterManual(context.Background(), nil, utcp.TextCallTemplate{})
	require.Error(t, err)
}

func TestTextCallToolStreamingIsUnsupported(t *testing.T) {
	_, err := Text{}.CallToolStreaming(context.Background(), nil, "t", nil, utcp.TextCallTemplate{})
	require.Error(t, err)
}
