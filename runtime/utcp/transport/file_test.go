package transport

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/goadesign/utcp-go/runtime/utcp"
)

type fakeRuntime struct{ root string }

func (f fakeRuntime) RootDir() string { return f.root }

func TestFileCallToolReturnsParsedJSON(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "data.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"a": 1}`), 0o600))

	out, err := File{}.CallTool(context.Background(), fakeRuntime{root: dir}, "t", nil, utcp.FileCallTemplate{FilePath: path})
	require.NoError(t, err)
	require.Equal(t, map[string]any{"a": float64(1)}, out)
}

func TestFileCallToolReturnsRawStringWhenNotJSON(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "data.txt")
	require.NoError(t, os.WriteFile(path, []byte("plain text"), 0o600))

	out, err := File{}.CallTool(context.Background(), fakeRuntime{root: dir}, "t", nil, utcp.FileCallTemplate{FilePath: path})
	require.NoError(t, err)
	require.Equal(t, "plain text", out)
}

func TestFileCallToolResolvesRelativePathAgainstRootDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "rel.json"), []byte(`"hi"`), 0o600))

	out, err := File{}.CallTool(context.Background(), fakeRuntime{root: dir}, "t", nil, utcp.FileCallTemplate{FilePath: "rel.json"})
	require.NoError(t, err)
	require.Equal(t, "hi", out)
}

func TestFileCallToolMissingFileErrors(t *testing.T) {
	_, err := File{}.CallTool(context.Background(), fakeRuntime{root: t.TempDir()}, "t", nil, utcp.FileCallTemplate{FilePath: "missing.json"})
	require.Error(t, err)
	var target *utcp.ErrTransport
	require.ErrorAs(t, err, &target)
}

func TestFileRegisterManualParsesManualDocument(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "manual.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"utcp_version": "1.0.0",
		"manual_version": "1.0.0",
		"tools": [{"name": "echo", "description": "echoes input"}]
	}`), 0o600))

	result, err := File{}.RegisterManual(context.Background(), fakeRuntime{root: dir}, utcp.FileCallTemplate{FilePath: path})
	require.NoError(t, err)
	require.True(t, result.Success)
	require.Len(t, result.Manual.Tools, 1)
	require.Equal(t, "echo", result.Manual.Tools[0].Name)
}

func TestFileRegisterManualMissingFileFails(t *testing.T) {
	result, err := File{}.RegisterManual(context.Background(), fakeRuntime{root: t.TempDir()}, utcp.FileCallTemplate{FilePath: "nope.json"})
	require.NoError(t, err)
	require.False(t, result.Success)
	require.NotEmpty(t, result.Errors)
}

func TestFileCallToolStreamingIsUnsupported(t *testing.T) {
	_, err := File{}.CallToolStreaming(context.Background(), nil, "t", nil, utcp.FileCallTemplate{})
	require.Error(t, err)
}
