package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/goadesign/utcp-go/runtime/utcp"
)

func tmplNamed(name string) utcp.CallTemplate {
	return utcp.FileCallTemplate{CallTemplateBase: utcp.CallTemplateBase{Name: name}, FilePath: name + ".json"}
}

func manualWithTools(names ...string) *utcp.Manual {
	m := &utcp.Manual{UTCPVersion: "1.0.0"}
	for _, n := range names {
		m.Tools = append(m.Tools, utcp.Tool{Name: n})
	}
	return m
}

func TestInMemorySaveAndGetManual(t *testing.T) {
	ctx := context.Background()
	r := NewInMemory()

	require.NoError(t, r.SaveManual(ctx, tmplNamed("weather"), manualWithTools("get_forecast", "get_alerts")))

	m, ok, err := r.GetManual(ctx, "weather")
	require.NoError(t, err)
	require.True(t, ok)
	require.Len(t, m.Tools, 2)

	tool, err := r.GetTool(ctx, "get_forecast")
	require.NoError(t, err)
	require.NotNil(t, tool)
	require.Equal(t, "get_forecast", tool.Name)
}

func TestInMemorySaveManualReplacesOldTools(t *testing.T) {
	ctx := context.Background()
	r := NewInMemory()

	require.NoError(t, r.SaveManual(ctx, tmplNamed("weather"), manualWithTools("a", "b")))
	require.NoError(t, r.SaveManual(ctx, tmplNamed("weather"), manualWithTools("c")))

	_, err := r.GetTool(ctx, "a")
	require.NoError(t, err)
	tool, err := r.GetTool(ctx, "a")
	require.NoError(t, err)
	require.Nil(t, tool, "tools from a replaced manual version must be gone")

	tools, err := r.GetTools(ctx)
	require.NoError(t, err)
	require.Len(t, tools, 1)
	require.Equal(t, "c", tools[0].Name)
}

func TestInMemoryRemoveManualCascadesToTools(t *testing.T) {
	ctx := context.Background()
	r := NewInMemory()
	require.NoError(t, r.SaveManual(ctx, tmplNamed("weather"), manualWithTools("get_forecast")))

	removed, err := r.RemoveManual(ctx, "weather")
	require.NoError(t, err)
	require.True(t, removed)

	_, ok, err := r.GetManual(ctx, "weather")
	require.NoError(t, err)
	require.False(t, ok)

	tool, err := r.GetTool(ctx, "get_forecast")
	require.NoError(t, err)
	require.Nil(t, tool)

	removed, err = r.RemoveManual(ctx, "weather")
	require.NoError(t, err)
	require.False(t, removed, "removing an already-removed manual reports false")
}

func TestInMemoryRemoveToolDetachesFromManual(t *testing.T) {
	ctx := context.Background()
	r := NewInMemory()
	require.NoError(t, r.SaveManual(ctx, tmplNamed("weather"), manualWithTools("a", "b")))

	removed, err := r.RemoveTool(ctx, "a")
	require.NoError(t, err)
	require.True(t, removed)

	tools, ok, err := r.GetToolsByManual(ctx, "weather")
	require.NoError(t, err)
	require.True(t, ok)
	require.Len(t, tools, 1)
	require.Equal(t, "b", tools[0].Name)
}

func TestInMemoryGetManualCallTemplate(t *testing.T) {
	ctx := context.Background()
	r := NewInMemory()
	tmpl := tmplNamed("weather")
	require.NoError(t, r.SaveManual(ctx, tmpl, manualWithTools()))

	got, ok, err := r.GetManualCallTemplate(ctx, "weather")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, tmpl, got)
}

func TestInMemoryGlobalViewsPreserveRegistrationOrder(t *testing.T) {
	ctx := context.Background()
	r := NewInMemory()

	require.NoError(t, r.SaveManual(ctx, tmplNamed("weather"), manualWithTools("get_forecast", "get_alerts")))
	require.NoError(t, r.SaveManual(ctx, tmplNamed("news"), manualWithTools("get_headlines")))
	require.NoError(t, r.SaveManual(ctx, tmplNamed("sports"), manualWithTools("get_scores")))

	for i := 0; i < 20; i++ {
		tools, err := r.GetTools(ctx)
		require.NoError(t, err)
		require.Equal(t, []string{"get_forecast", "get_alerts", "get_headlines", "get_scores"}, toolNames(tools),
			"GetTools must enumerate in repository registration order, not Go's randomized map order")

		manuals, err := r.GetManuals(ctx)
		require.NoError(t, err)
		require.Len(t, manuals, 3)

		tmpls, err := r.GetManualCallTemplates(ctx)
		require.NoError(t, err)
		require.Equal(t, []string{"weather", "news", "sports"}, templateNames(tmpls))
	}
}

func TestInMemoryGlobalViewsKeepOriginalPositionOnUpdate(t *testing.T) {
	ctx := context.Background()
	r := NewInMemory()

	require.NoError(t, r.SaveManual(ctx, tmplNamed("weather"), manualWithTools("a")))
	require.NoError(t, r.SaveManual(ctx, tmplNamed("news"), manualWithTools("b")))
	require.NoError(t, r.SaveManual(ctx, tmplNamed("weather"), manualWithTools("c")))

	tmpls, err := r.GetManualCallTemplates(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{"weather", "news"}, templateNames(tmpls), "re-saving an existing manual must not move it to the end")
}

func toolNames(tools []utcp.Tool) []string {
	out := make([]string, len(tools))
	for i, t := range tools {
		out[i] = t.Name
	}
	return out
}

func templateNames(tmpls []utcp.CallTemplate) []string {
	out := make([]string, len(tmpls))
	for i, t := range tmpls {
		out[i] = t.TemplateName()
	}
	return out
}

func TestInMemoryConcurrentReadsAndWritesDoNotRace(t *testing.T) {
	ctx := context.Background()
	r := NewInMemory()
	done := make(chan struct{})

	go func() {
		for i := 0; i < 200; i++ {
			name := "m"
			_ = r.SaveManual(ctx, tmplNamed(name), manualWithTools("t"))
		}
		close(done)
	}()

	for i := 0; i < 200; i++ {
		_, _ = r.GetTools(ctx)
		_, _ = r.GetManuals(ctx)
	}
	<-done
}
