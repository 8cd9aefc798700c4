// Package postprocess provides ToolPostProcessor implementations.
package postprocess

import (
	"context"
	"slices"

	"github.com/goadesign/utcp-go/runtime/utcp"
	"github.com/goadesign/utcp-go/runtime/utcp/registry"
)

func init() {
	registry.Global().RegisterPostProcessor("filter_dict", filterDictSerializer{}, false)
}

// FilterDictPostProcessor removes or keeps specific keys from a tool
// call's result, recursively. Grounded on
// implementations/post_processors/filter_dict_post_processor.py.
type FilterDictPostProcessor struct {
	ExcludeKeys     []string
	OnlyIncludeKeys []string
	ExcludeTools    []string
	OnlyIncludeTools []string
	ExcludeManuals  []string
	OnlyIncludeManuals []string
}

func (FilterDictPostProcessor) ProcessorType() string { return "filter_dict" }

// PostProcess applies the configured key filter to value, unless tool or
// tmpl falls outside the configured tool/manual scope, or no key filter is
// configured at all — both cases return value unmodified. Grounded on
// FilterDictPostProcessor.post_process.
func (p FilterDictPostProcessor) PostProcess(_ context.Context, _ utcp.Runtime, tool utcp.Tool, tmpl utcp.CallTemplate, value any) (any, error) {
	if !inScope(tool.Name, tmpl, p.ExcludeTools, p.OnlyIncludeTools, p.ExcludeManuals, p.OnlyIncludeManuals) {
		return value, nil
	}
	if len(p.ExcludeKeys) == 0 && len(p.OnlyIncludeKeys) == 0 {
		return value, nil
	}
	return p.filter(value), nil
}

// filter recursively applies the exclude/only-include key rule.
// Grounded on _filter_dict. A list's scalar elements are dropped entirely;
// only dict/list elements survive list filtering (matching the Python
// implementation's behavior exactly, subtle as it is).
func (p FilterDictPostProcessor) filter(value any) any {
	switch v := value.(type) {
	case map[string]any:
		out := make(map[string]any)
		switch {
		case len(p.ExcludeKeys) > 0:
			for k, val := range v {
				if slices.Contains(p.ExcludeKeys, k) {
					continue
				}
				out[k] = p.filter(val)
			}
		case len(p.OnlyIncludeKeys) > 0:
			for k, val := range v {
				if slices.Contains(p.OnlyIncludeKeys, k) {
					out[k] = p.filter(val)
					continue
				}
				child := p.filter(val)
				if nonEmptyContainer(child) {
					out[k] = child
				}
			}
		default:
			for k, val := range v {
				out[k] = p.filter(val)
			}
		}
		return out
	case []any:
		out := make([]any, 0, len(v))
		for _, item := range v {
			processed := p.filter(item)
			if nonEmptyContainer(processed) {
				out = append(out, processed)
			}
		}
		return out
	default:
		return value
	}
}

func nonEmptyContainer(v any) bool {
	switch c := v.(type) {
	case map[string]any:
		return len(c) > 0
	case []any:
		return len(c) > 0
	default:
		return false
	}
}

// inScope reports whether tool/tmpl fall within the processor's configured
// tool/manual allow/deny lists. An empty only-include list means no
// restriction; a name in an exclude list always wins.
func inScope(toolName string, tmpl utcp.CallTemplate, excludeTools, onlyIncludeTools, excludeManuals, onlyIncludeManuals []string) bool {
	if slices.Contains(excludeTools, toolName) {
		return false
	}
	if len(onlyIncludeTools) > 0 && !slices.Contains(onlyIncludeTools, toolName) {
		return false
	}
	manualName := ""
	if tmpl != nil {
		manualName = tmpl.TemplateName()
	}
	if slices.Contains(excludeManuals, manualName) {
		return false
	}
	if len(onlyIncludeManuals) > 0 && !slices.Contains(onlyIncludeManuals, manualName) {
		return false
	}
	return true
}

// filterDictSerializer serializes a FilterDictPostProcessor's
// configuration. Grounded on FilterDictPostProcessorConfigSerializer.
type filterDictSerializer struct{}

func (filterDictSerializer) ToDict(obj utcp.ToolPostProcessor) (map[string]any, error) {
	p, ok := obj.(FilterDictPostProcessor)
	if !ok {
		return nil, &utcp.ErrSerializerValidation{Message: "expected FilterDictPostProcessor"}
	}
	return map[string]any{
		"tool_post_processor_type": "filter_dict",
		"exclude_keys":             p.ExcludeKeys,
		"only_include_keys":        p.OnlyIncludeKeys,
		"exclude_tools":            p.ExcludeTools,
		"only_include_tools":       p.OnlyIncludeTools,
		"exclude_manuals":          p.ExcludeManuals,
		"only_include_manuals":     p.OnlyIncludeManuals,
	}, nil
}

func (filterDictSerializer) ValidateDict(data map[string]any) (utcp.ToolPostProcessor, error) {
	return FilterDictPostProcessor{
		ExcludeKeys:        stringList(data["exclude_keys"]),
		OnlyIncludeKeys:    stringList(data["only_include_keys"]),
		ExcludeTools:       stringList(data["exclude_tools"]),
		OnlyIncludeTools:   stringList(data["only_include_tools"]),
		ExcludeManuals:     stringList(data["exclude_manuals"]),
		OnlyIncludeManuals: stringList(data["only_include_manuals"]),
	}, nil
}

func stringList(v any) []string {
	raw, ok := v.([]any)
	if !ok {
		if ss, ok := v.([]string); ok {
			return ss
		}
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
