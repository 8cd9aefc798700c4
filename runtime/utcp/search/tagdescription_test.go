package search

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/goadesign/utcp-go/runtime/utcp"
)

// fakeRepo serves a fixed tool list, just enough of
// utcp.ConcurrentToolRepository for search strategy tests.
type fakeRepo struct{ tools []utcp.Tool }

func (f fakeRepo) SaveManual(context.Context, utcp.CallTemplate, *utcp.Manual) error { return nil }
func (f fakeRepo) RemoveManual(context.Context, string) (bool, error)                { return false, nil }
func (f fakeRepo) RemoveTool(context.Context, string) (bool, error)                  { return false, nil }
func (f fakeRepo) GetTool(context.Context, string) (*utcp.Tool, error)               { return nil, nil }
func (f fakeRepo) GetTools(context.Context) ([]utcp.Tool, error)                     { return f.tools, nil }
func (f fakeRepo) GetToolsByManual(context.Context, string) ([]utcp.Tool, bool, error) {
	return nil, false, nil
}
func (f fakeRepo) GetManual(context.Context, string) (*utcp.Manual, bool, error) { return nil, false, nil }
func (f fakeRepo) GetManuals(context.Context) ([]utcp.Manual, error)             { return nil, nil }
func (f fakeRepo) GetManualCallTemplate(context.Context, string) (utcp.CallTemplate, bool, error) {
	return nil, false, nil
}
func (f fakeRepo) GetManualCallTemplates(context.Context) ([]utcp.CallTemplate, error) {
	return nil, nil
}

func TestSearchToolsRanksTagMatchesAboveDescriptionMatches(t *testing.T) {
	repo := fakeRepo{tools: []utcp.Tool{
		{Name: "by_description", Description: "fetches the weather forecast"},
		{Name: "by_tag", Tags: []string{"weather"}},
	}}
	s := NewTagAndDescriptionWordMatchStrategy()

	results, err := s.SearchTools(context.Background(), repo, "weather", 10, nil)
	require.NoError(t, err)
	require.Len(t, results, 2)
	require.Equal(t, "by_tag", results[0].Name, "tag matches are weighted higher than description matches")
}

func TestSearchToolsNegativeLimitErrors(t *testing.T) {
	s := NewTagAndDescriptionWordMatchStrategy()
	_, err := s.SearchTools(context.Background(), fakeRepo{}, "q", -1, nil)
	require.Error(t, err)
}

func TestSearchToolsZeroLimitReturnsNil(t *testing.T) {
	s := NewTagAndDescriptionWordMatchStrategy()
	results, err := s.SearchTools(context.Background(), fakeRepo{tools: []utcp.Tool{{Name: "a"}}}, "q", 0, nil)
	require.NoError(t, err)
	require.Nil(t, results)
}

func TestSearchToolsTruncatesToLimit(t *testing.T) {
	repo := fakeRepo{tools: []utcp.Tool{
		{Name: "a", Tags: []string{"weather"}},
		{Name: "b", Tags: []string{"weather"}},
		{Name: "c", Tags: []string{"weather"}},
	}}
	s := NewTagAndDescriptionWordMatchStrategy()
	results, err := s.SearchTools(context.Background(), repo, "weather", 2, nil)
	require.NoError(t, err)
	require.Len(t, results, 2)
}

func TestSearchToolsFiltersByRequiredTags(t *testing.T) {
	repo := fakeRepo{tools: []utcp.Tool{
		{Name: "has-tag", Tags: []string{"Finance"}},
		{Name: "no-tag", Tags: []string{"weather"}},
	}}
	s := NewTagAndDescriptionWordMatchStrategy()
	results, err := s.SearchTools(context.Background(), repo, "", 10, []string{"finance"})
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Equal(t, "has-tag", results[0].Name)
}

func TestTagAndDescriptionSerializerRoundTrip(t *testing.T) {
	ser := tagAndDescriptionSerializer{}
	s := TagAndDescriptionWordMatchStrategy{DescriptionWeight: 2, TagWeight: 5}
	data, err := ser.ToDict(s)
	require.NoError(t, err)

	restored, err := ser.ValidateDict(data)
	require.NoError(t, err)
	require.Equal(t, s, restored)
}
