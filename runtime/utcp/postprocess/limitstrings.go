package postprocess

import (
	"context"

	"github.com/goadesign/utcp-go/runtime/utcp"
	"github.com/goadesign/utcp-go/runtime/utcp/registry"
)

func init() {
	registry.Global().RegisterPostProcessor("limit_strings", limitStringsSerializer{}, false)
}

// LimitStringsPostProcessor truncates every string leaf in a tool call's
// result to a maximum length, recursively. Grounded on
// implementations/post_processors/limit_strings_post_processor.py.
type LimitStringsPostProcessor struct {
	Limit              int
	ExcludeTools       []string
	OnlyIncludeTools   []string
	ExcludeManuals     []string
	OnlyIncludeManuals []string
}

// NewLimitStringsPostProcessor returns the processor with the Python
// implementation's default limit of 10000 characters.
func NewLimitStringsPostProcessor() LimitStringsPostProcessor {
	return LimitStringsPostProcessor{Limit: 10000}
}

func (LimitStringsPostProcessor) ProcessorType() string { return "limit_strings" }

// PostProcess truncates every string in value to p.Limit runes, unless
// tool or tmpl falls outside the configured scope. Grounded on
// LimitStringsPostProcessor.post_process.
func (p LimitStringsPostProcessor) PostProcess(_ context.Context, _ utcp.Runtime, tool utcp.Tool, tmpl utcp.CallTemplate, value any) (any, error) {
	if !inScope(tool.Name, tmpl, p.ExcludeTools, p.OnlyIncludeTools, p.ExcludeManuals, p.OnlyIncludeManuals) {
		return value, nil
	}
	return p.process(value), nil
}

func (p LimitStringsPostProcessor) process(value any) any {
	switch v := value.(type) {
	case string:
		r := []rune(v)
		if len(r) > p.Limit {
			return string(r[:p.Limit])
		}
		return v
	case map[string]any:
		out := make(map[string]any, len(v))
		for k, val := range v {
			out[k] = p.process(val)
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = p.process(item)
		}
		return out
	default:
		return value
	}
}

// limitStringsSerializer serializes a LimitStringsPostProcessor's
// configuration. Grounded on LimitStringsPostProcessorConfigSerializer.
type limitStringsSerializer struct{}

func (limitStringsSerializer) ToDict(obj utcp.ToolPostProcessor) (map[string]any, error) {
	p, ok := obj.(LimitStringsPostProcessor)
	if !ok {
		return nil, &utcp.ErrSerializerValidation{Message: "expected LimitStringsPostProcessor"}
	}
	limit := p.Limit
	if limit == 0 {
		limit = 10000
	}
	return map[string]any{
		"tool_post_processor_type": "limit_strings",
		"limit":                    limit,
		"exclude_tools":            p.ExcludeTools,
		"only_include_tools":       p.OnlyIncludeTools,
		"exclude_manuals":          p.ExcludeManuals,
		"only_include_manuals":     p.OnlyIncludeManuals,
	}, nil
}

func (limitStringsSerializer) ValidateDict(data map[string]any) (utcp.ToolPostProcessor, error) {
	p := NewLimitStringsPostProcessor()
	if v := toInt(data["limit"]); v != nil {
		p.Limit = *v
	}
	p.ExcludeTools = stringList(data["exclude_tools"])
	p.OnlyIncludeTools = stringList(data["only_include_tools"])
	p.ExcludeManuals = stringList(data["exclude_manuals"])
	p.OnlyIncludeManuals = stringList(data["only_include_manuals"])
	return p, nil
}

func toInt(v any) *int {
	switch n := v.(type) {
	case float64:
		i := int(n)
		return &i
	case int:
		return &n
	default:
		return nil
	}
}
