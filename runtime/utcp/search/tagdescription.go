// Package search provides ToolSearchStrategy implementations.
package search

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/goadesign/utcp-go/runtime/utcp"
	"github.com/goadesign/utcp-go/runtime/utcp/registry"
)

func init() {
	registry.Global().RegisterSearchStrategy(
		"tag_and_description_word_match",
		tagAndDescriptionSerializer{},
		false,
	)
}

var wordRe = regexp.MustCompile(`\w+`)

// TagAndDescriptionWordMatchStrategy ranks tools by a simple weighted
// word-overlap score against their tags and description. Grounded on
// implementations/tag_search.py's TagAndDescriptionWordMatchStrategy.
type TagAndDescriptionWordMatchStrategy struct {
	DescriptionWeight float64
	TagWeight         float64
}

// NewTagAndDescriptionWordMatchStrategy returns the strategy with the
// Python implementation's default weights (tag=3.0, description=1.0).
func NewTagAndDescriptionWordMatchStrategy() TagAndDescriptionWordMatchStrategy {
	return TagAndDescriptionWordMatchStrategy{DescriptionWeight: 1, TagWeight: 3}
}

func (TagAndDescriptionWordMatchStrategy) StrategyType() string {
	return "tag_and_description_word_match"
}

// SearchTools scores every tool in the repository against query and
// returns the top limit results in descending score order. A negative
// limit is an error; limit 0 returns no results. When
// anyOfTagsRequired is non-empty, tools lacking every one of those tags
// (case-insensitive) are excluded before scoring. Grounded on
// search_tools.
func (s TagAndDescriptionWordMatchStrategy) SearchTools(ctx context.Context, repo utcp.ConcurrentToolRepository, query string, limit int, anyOfTagsRequired []string) ([]utcp.Tool, error) {
	if limit < 0 {
		return nil, fmt.Errorf("limit must be non-negative, got %d", limit)
	}
	if limit == 0 {
		return nil, nil
	}

	tools, err := repo.GetTools(ctx)
	if err != nil {
		return nil, err
	}

	queryLower := strings.ToLower(query)
	queryWords := wordRe.FindAllString(queryLower, -1)
	queryWordSet := make(map[string]struct{}, len(queryWords))
	for _, w := range queryWords {
		queryWordSet[w] = struct{}{}
	}

	var required map[string]struct{}
	if len(anyOfTagsRequired) > 0 {
		required = make(map[string]struct{}, len(anyOfTagsRequired))
		for _, t := range anyOfTagsRequired {
			required[strings.ToLower(t)] = struct{}{}
		}
	}

	type scored struct {
		tool  utcp.Tool
		score float64
		index int
	}
	var candidates []scored
	for i, t := range tools {
		if required != nil && !hasAnyTag(t.Tags, required) {
			continue
		}
		candidates = append(candidates, scored{tool: t, score: s.score(t, queryLower, queryWordSet), index: i})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].score > candidates[j].score
	})

	if limit < len(candidates) {
		candidates = candidates[:limit]
	}
	out := make([]utcp.Tool, len(candidates))
	for i, c := range candidates {
		out[i] = c.tool
	}
	return out, nil
}

func hasAnyTag(tags []string, required map[string]struct{}) bool {
	for _, t := range tags {
		if _, ok := required[strings.ToLower(t)]; ok {
			return true
		}
	}
	return false
}

func (s TagAndDescriptionWordMatchStrategy) score(t utcp.Tool, queryLower string, queryWords map[string]struct{}) float64 {
	var score float64
	for _, tag := range t.Tags {
		tagLower := strings.ToLower(tag)
		if strings.Contains(queryLower, tagLower) {
			score += s.TagWeight
			continue
		}
		matched := false
		for _, w := range wordRe.FindAllString(tagLower, -1) {
			if _, ok := queryWords[w]; ok {
				score += s.TagWeight
				matched = true
				break
			}
		}
		_ = matched
	}
	for _, w := range wordRe.FindAllString(strings.ToLower(t.Description), -1) {
		if len(w) <= 2 {
			continue
		}
		if _, ok := queryWords[w]; ok {
			score += s.DescriptionWeight
		}
	}
	return score
}

// tagAndDescriptionSerializer serializes the strategy's own configuration
// (its weights), not the tools it searches. Grounded on
// TagAndDescriptionWordMatchStrategyConfigSerializer.
type tagAndDescriptionSerializer struct{}

func (tagAndDescriptionSerializer) ToDict(obj utcp.ToolSearchStrategy) (map[string]any, error) {
	s, ok := obj.(TagAndDescriptionWordMatchStrategy)
	if !ok {
		return nil, &utcp.ErrSerializerValidation{Message: "expected TagAndDescriptionWordMatchStrategy"}
	}
	return map[string]any{
		"tool_search_strategy_type": "tag_and_description_word_match",
		"description_weight":        s.DescriptionWeight,
		"tag_weight":                s.TagWeight,
	}, nil
}

func (tagAndDescriptionSerializer) ValidateDict(data map[string]any) (utcp.ToolSearchStrategy, error) {
	s := NewTagAndDescriptionWordMatchStrategy()
	if v, ok := data["description_weight"].(float64); ok {
		s.DescriptionWeight = v
	}
	if v, ok := data["tag_weight"].(float64); ok {
		s.TagWeight = v
	}
	return s, nil
}
