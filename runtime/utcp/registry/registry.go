// Package registry is the plugin registry: a set of tag-keyed tables
// mapping a discriminator string (e.g. a CallTemplate's template_type, or
// an Auth's auth_type) to the concrete implementation that handles it.
// Grounded on plugins/discovery.py and plugins/plugin_loader.py, which use
// class-level dicts of the same shape; Go has no runtime class scanning, so
// registration happens explicitly through Register calls made from each
// implementation package's init(), the resolution documented in
// SPEC_FULL.md §11 for the "how are plugins discovered" open question.
package registry

import (
	"sync"

	"github.com/goadesign/utcp-go/runtime/utcp"
)

// Registry holds the tag-keyed implementation tables for every
// polymorphic extension point in the client runtime. The zero value is not
// usable; construct with New.
type Registry struct {
	mu sync.RWMutex

	auth             map[string]utcp.DictSerializer[utcp.Auth]
	callTemplate     map[string]utcp.DictSerializer[utcp.CallTemplate]
	variableLoader   map[string]utcp.DictSerializer[utcp.VariableLoader]
	searchStrategy   map[string]utcp.DictSerializer[utcp.ToolSearchStrategy]
	postProcessor    map[string]utcp.DictSerializer[utcp.ToolPostProcessor]
	transport        map[string]utcp.CommunicationProtocol
	toolRepository   map[string]func() utcp.ConcurrentToolRepository

	defaultSearchStrategy string
	defaultToolRepository string
}

// New constructs an empty Registry. Use Global for the process-wide
// instance that built-in implementations register themselves into via
// init().
func New() *Registry {
	return &Registry{
		auth:           make(map[string]utcp.DictSerializer[utcp.Auth]),
		callTemplate:   make(map[string]utcp.DictSerializer[utcp.CallTemplate]),
		variableLoader: make(map[string]utcp.DictSerializer[utcp.VariableLoader]),
		searchStrategy: make(map[string]utcp.DictSerializer[utcp.ToolSearchStrategy]),
		postProcessor:  make(map[string]utcp.DictSerializer[utcp.ToolPostProcessor]),
		transport:      make(map[string]utcp.CommunicationProtocol),
		toolRepository: make(map[string]func() utcp.ConcurrentToolRepository),

		defaultSearchStrategy: "tag_and_description_word_match",
		defaultToolRepository: "in_memory",
	}
}

var (
	globalOnce sync.Once
	global     *Registry
)

// Global returns the process-wide Registry, populating it on first use
// with the built-ins installed by registerBuiltins (the auth kinds and the
// call template serializers). Transports, search strategies,
// post-processors, repositories and variable loaders are added by their
// own packages' init() functions when those packages are imported.
// Idempotent, matching plugin_loader.py's module-level singleton table
// pattern.
func Global() *Registry {
	globalOnce.Do(func() {
		global = New()
		registerBuiltins(global)
	})
	return global
}

// RegisterAuth adds or replaces the serializer for an auth_type tag.
// override must be true to replace an existing entry; this mirrors
// plugin_loader.py's refusal to silently clobber a registered
// implementation.
func (r *Registry) RegisterAuth(tag string, impl utcp.DictSerializer[utcp.Auth], override bool) bool {
	return registerInto(&r.mu, r.auth, tag, impl, override)
}

// LookupAuth resolves an auth_type tag to its serializer.
func (r *Registry) LookupAuth(tag string) (utcp.DictSerializer[utcp.Auth], bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	impl, ok := r.auth[tag]
	return impl, ok
}

// RegisterCallTemplate adds or replaces the serializer for a
// call_template_type tag.
func (r *Registry) RegisterCallTemplate(tag string, impl utcp.DictSerializer[utcp.CallTemplate], override bool) bool {
	return registerInto(&r.mu, r.callTemplate, tag, impl, override)
}

// LookupCallTemplate resolves a call_template_type tag to its serializer.
func (r *Registry) LookupCallTemplate(tag string) (utcp.DictSerializer[utcp.CallTemplate], bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	impl, ok := r.callTemplate[tag]
	return impl, ok
}

// RegisterVariableLoader adds or replaces the serializer for a
// variable_loader_type tag.
func (r *Registry) RegisterVariableLoader(tag string, impl utcp.DictSerializer[utcp.VariableLoader], override bool) bool {
	return registerInto(&r.mu, r.variableLoader, tag, impl, override)
}

// LookupVariableLoader resolves a variable_loader_type tag to its
// serializer.
func (r *Registry) LookupVariableLoader(tag string) (utcp.DictSerializer[utcp.VariableLoader], bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	impl, ok := r.variableLoader[tag]
	return impl, ok
}

// RegisterSearchStrategy adds or replaces the serializer for a
// tool_search_strategy_type tag.
func (r *Registry) RegisterSearchStrategy(tag string, impl utcp.DictSerializer[utcp.ToolSearchStrategy], override bool) bool {
	return registerInto(&r.mu, r.searchStrategy, tag, impl, override)
}

// LookupSearchStrategy resolves a tool_search_strategy_type tag to its
// serializer.
func (r *Registry) LookupSearchStrategy(tag string) (utcp.DictSerializer[utcp.ToolSearchStrategy], bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	impl, ok := r.searchStrategy[tag]
	return impl, ok
}

// DefaultSearchStrategy returns the tag used when a client config omits an
// explicit search strategy.
func (r *Registry) DefaultSearchStrategy() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.defaultSearchStrategy
}

// RegisterPostProcessor adds or replaces the serializer for a
// tool_post_processor_type tag.
func (r *Registry) RegisterPostProcessor(tag string, impl utcp.DictSerializer[utcp.ToolPostProcessor], override bool) bool {
	return registerInto(&r.mu, r.postProcessor, tag, impl, override)
}

// LookupPostProcessor resolves a tool_post_processor_type tag to its
// serializer.
func (r *Registry) LookupPostProcessor(tag string) (utcp.DictSerializer[utcp.ToolPostProcessor], bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	impl, ok := r.postProcessor[tag]
	return impl, ok
}

// RegisterTransport adds or replaces the CommunicationProtocol implementation
// for a call_template_type tag.
func (r *Registry) RegisterTransport(tag string, impl utcp.CommunicationProtocol, override bool) bool {
	return registerInto(&r.mu, r.transport, tag, impl, override)
}

// LookupTransport resolves a call_template_type tag to its
// CommunicationProtocol implementation.
func (r *Registry) LookupTransport(tag string) (utcp.CommunicationProtocol, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	impl, ok := r.transport[tag]
	return impl, ok
}

// RegisterToolRepository adds or replaces the constructor for a
// tool_repository_implementation tag.
func (r *Registry) RegisterToolRepository(tag string, factory func() utcp.ConcurrentToolRepository, override bool) bool {
	return registerInto(&r.mu, r.toolRepository, tag, factory, override)
}

// NewToolRepository constructs a fresh ConcurrentToolRepository for the
// given tag.
func (r *Registry) NewToolRepository(tag string) (utcp.ConcurrentToolRepository, bool) {
	r.mu.RLock()
	factory, ok := r.toolRepository[tag]
	r.mu.RUnlock()
	if !ok {
		return nil, false
	}
	return factory(), true
}

// DefaultToolRepository returns the tag used when a client config omits an
// explicit tool repository.
func (r *Registry) DefaultToolRepository() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.defaultToolRepository
}

// registerInto is the shared guarded-map-insert used by every Register*
// method: under override=false, an existing entry is left untouched and
// false is returned, matching plugin_loader.py's register() which raises
// rather than clobbering by default. The built-in call sites ignore the
// returned bool, so a refused registration is silent.
func registerInto[V any](mu *sync.RWMutex, table map[string]V, tag string, impl V, override bool) bool {
	mu.Lock()
	defer mu.Unlock()
	if _, exists := table[tag]; exists && !override {
		return false
	}
	table[tag] = impl
	return true
}
