package repository

import (
	"context"

	"github.com/goadesign/utcp-go/runtime/utcp"
	"github.com/goadesign/utcp-go/runtime/utcp/registry"
)

func init() {
	registry.Global().RegisterToolRepository("in_memory", func() utcp.ConcurrentToolRepository {
		return NewInMemory()
	}, false)
}

// InMemory is the default ConcurrentToolRepository: manuals, their call
// templates, and their flattened tools held in process memory and guarded
// by a writer-preferring turnstileRWLock. Grounded on
// implementations/in_mem_tool_repository.py's InMemToolRepository.
type InMemory struct {
	lock            turnstileRWLock
	toolsByName     map[string]utcp.Tool
	toolsByManual   map[string][]string // manual name -> ordered tool names
	manualsByName   map[string]*utcp.Manual
	templatesByName map[string]utcp.CallTemplate
	manualOrder     []string // registration order, for deterministic global enumeration
}

// NewInMemory constructs an empty in-memory repository.
func NewInMemory() *InMemory {
	return &InMemory{
		toolsByName:     make(map[string]utcp.Tool),
		toolsByManual:   make(map[string][]string),
		manualsByName:   make(map[string]*utcp.Manual),
		templatesByName: make(map[string]utcp.CallTemplate),
	}
}

// SaveManual atomically replaces the tool set previously associated with
// tmpl's name (if any) before installing the new manual, its call
// template, and its tools. Grounded on
// save_manual_call_template_with_tools.
func (r *InMemory) SaveManual(_ context.Context, tmpl utcp.CallTemplate, manual *utcp.Manual) error {
	r.lock.lock()
	defer r.lock.unlock()

	name := tmpl.TemplateName()
	if old, ok := r.toolsByManual[name]; ok {
		for _, toolName := range old {
			delete(r.toolsByName, toolName)
		}
	}
	if _, exists := r.manualsByName[name]; !exists {
		r.manualOrder = append(r.manualOrder, name)
	}

	names := make([]string, 0, len(manual.Tools))
	for _, t := range manual.Tools {
		r.toolsByName[t.Name] = t
		names = append(names, t.Name)
	}
	r.toolsByManual[name] = names
	r.manualsByName[name] = manual
	r.templatesByName[name] = tmpl
	return nil
}

// RemoveManual removes a manual, its call template, and every tool it
// contributed. Returns false if no manual with that name was registered.
func (r *InMemory) RemoveManual(_ context.Context, name string) (bool, error) {
	r.lock.lock()
	defer r.lock.unlock()

	if _, ok := r.manualsByName[name]; !ok {
		return false, nil
	}
	for _, toolName := range r.toolsByManual[name] {
		delete(r.toolsByName, toolName)
	}
	delete(r.toolsByManual, name)
	delete(r.manualsByName, name)
	delete(r.templatesByName, name)
	for i, n := range r.manualOrder {
		if n == name {
			r.manualOrder = append(r.manualOrder[:i], r.manualOrder[i+1:]...)
			break
		}
	}
	return true, nil
}

// RemoveTool removes a single tool by name, also detaching it from
// whichever manual's tool list references it. Returns false if no tool
// with that name was registered.
func (r *InMemory) RemoveTool(_ context.Context, name string) (bool, error) {
	r.lock.lock()
	defer r.lock.unlock()

	if _, ok := r.toolsByName[name]; !ok {
		return false, nil
	}
	delete(r.toolsByName, name)
	for manual, names := range r.toolsByManual {
		for i, n := range names {
			if n == name {
				r.toolsByManual[manual] = append(names[:i], names[i+1:]...)
				break
			}
		}
	}
	return true, nil
}

// GetTool returns the tool named name, or nil if absent.
func (r *InMemory) GetTool(_ context.Context, name string) (*utcp.Tool, error) {
	r.lock.rLock()
	defer r.lock.rUnlock()

	t, ok := r.toolsByName[name]
	if !ok {
		return nil, nil
	}
	cp := t
	return &cp, nil
}

// GetTools returns a defensive copy of every registered tool, in
// repository enumeration order (manual registration order, then each
// manual's own tool order) so identically-scored search results tie-break
// deterministically.
func (r *InMemory) GetTools(_ context.Context) ([]utcp.Tool, error) {
	r.lock.rLock()
	defer r.lock.rUnlock()

	out := make([]utcp.Tool, 0, len(r.toolsByName))
	for _, manual := range r.manualOrder {
		for _, n := range r.toolsByManual[manual] {
			if t, ok := r.toolsByName[n]; ok {
				out = append(out, t)
			}
		}
	}
	return out, nil
}

// GetToolsByManual returns the tools contributed by the named manual, in
// registration order.
func (r *InMemory) GetToolsByManual(_ context.Context, manualName string) ([]utcp.Tool, bool, error) {
	r.lock.rLock()
	defer r.lock.rUnlock()

	names, ok := r.toolsByManual[manualName]
	if !ok {
		return nil, false, nil
	}
	out := make([]utcp.Tool, 0, len(names))
	for _, n := range names {
		if t, ok := r.toolsByName[n]; ok {
			out = append(out, t)
		}
	}
	return out, true, nil
}

// GetManual returns the named manual, or (nil, false) if absent.
func (r *InMemory) GetManual(_ context.Context, name string) (*utcp.Manual, bool, error) {
	r.lock.rLock()
	defer r.lock.rUnlock()

	m, ok := r.manualsByName[name]
	return m, ok, nil
}

// GetManuals returns every registered manual, in registration order.
func (r *InMemory) GetManuals(_ context.Context) ([]utcp.Manual, error) {
	r.lock.rLock()
	defer r.lock.rUnlock()

	out := make([]utcp.Manual, 0, len(r.manualsByName))
	for _, name := range r.manualOrder {
		if m, ok := r.manualsByName[name]; ok {
			out = append(out, *m)
		}
	}
	return out, nil
}

// GetManualCallTemplate returns the call template a manual was registered
// with.
func (r *InMemory) GetManualCallTemplate(_ context.Context, name string) (utcp.CallTemplate, bool, error) {
	r.lock.rLock()
	defer r.lock.rUnlock()

	t, ok := r.templatesByName[name]
	return t, ok, nil
}

// GetManualCallTemplates returns every registered manual's call template,
// in registration order.
func (r *InMemory) GetManualCallTemplates(_ context.Context) ([]utcp.CallTemplate, error) {
	r.lock.rLock()
	defer r.lock.rUnlock()

	out := make([]utcp.CallTemplate, 0, len(r.templatesByName))
	for _, name := range r.manualOrder {
		if t, ok := r.templatesByName[name]; ok {
			out = append(out, t)
		}
	}
	return out, nil
}
