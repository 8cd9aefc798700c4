// Package client provides Client, the orchestration layer tying together
// the plugin registry, variable substitution, tool repository, search
// strategy, and post-processing pipeline into the public UTCP API.
// Grounded on implementations/utcp_client_implementation.py's
// UtcpClient, method-by-method.
package client

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/goadesign/utcp-go/runtime/telemetry"
	"github.com/goadesign/utcp-go/runtime/utcp"
	"github.com/goadesign/utcp-go/runtime/utcp/registry"
	"github.com/goadesign/utcp-go/runtime/utcp/variables"
)

// Option configures a Client. Grounded on the teacher's
// runtime/registry.Option functional-option pattern.
type Option func(*Client)

// WithLogger sets the client's logger.
func WithLogger(l telemetry.Logger) Option { return func(c *Client) { c.logger = l } }

// WithMetrics sets the client's metrics recorder.
func WithMetrics(m telemetry.Metrics) Option { return func(c *Client) { c.metrics = m } }

// WithTracer sets the client's tracer.
func WithTracer(t telemetry.Tracer) Option { return func(c *Client) { c.tracer = t } }

// WithRegistry overrides the plugin registry the client resolves
// implementations through; defaults to registry.Global().
func WithRegistry(r *registry.Registry) Option { return func(c *Client) { c.reg = r } }

// Client is the UTCP client runtime: the single entry point applications
// use to register manuals, call tools, and search the combined tool
// catalog. Grounded on UtcpClient.
type Client struct {
	mu sync.RWMutex

	rootDir string
	config  *utcp.ClientConfig
	repo    utcp.ConcurrentToolRepository
	search  utcp.ToolSearchStrategy
	post    []utcp.ToolPostProcessor
	reg     *registry.Registry
	obs     *utcp.Observability

	logger  telemetry.Logger
	metrics telemetry.Metrics
	tracer  telemetry.Tracer
}

func (c *Client) RootDir() string { return c.rootDir }

// Create loads config, self-substitutes its own Variables table exactly
// once (spec.md §9's Open Question resolution: single pass, no recursive
// re-substitution), constructs the configured repository/search
// strategy/post-processors via the plugin registry, and concurrently
// registers every manual named in config.ManualCallTemplates. Grounded on
// UtcpClient.create.
func Create(ctx context.Context, rootDir string, config *utcp.ClientConfig, opts ...Option) (*Client, error) {
	if config == nil {
		config = &utcp.ClientConfig{}
	}
	c := &Client{rootDir: rootDir, config: config}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	if c.reg == nil {
		c.reg = registry.Global()
	}
	c.obs = utcp.NewObservability(c.logger, c.metrics, c.tracer)

	if err := c.selfSubstituteVariables(); err != nil {
		return nil, err
	}

	if config.ToolRepository != nil {
		c.repo = config.ToolRepository
	} else {
		repo, ok := c.reg.NewToolRepository(c.reg.DefaultToolRepository())
		if !ok {
			return nil, fmt.Errorf("default tool repository %q is not registered", c.reg.DefaultToolRepository())
		}
		c.repo = repo
	}

	if config.ToolSearchStrategy != nil {
		c.search = config.ToolSearchStrategy
	} else {
		ser, ok := c.reg.LookupSearchStrategy(c.reg.DefaultSearchStrategy())
		if !ok {
			return nil, fmt.Errorf("default search strategy %q is not registered", c.reg.DefaultSearchStrategy())
		}
		strat, err := ser.ValidateDict(map[string]any{})
		if err != nil {
			return nil, err
		}
		c.search = strat
	}
	c.post = config.PostProcessing

	if len(config.ManualCallTemplates) > 0 {
		if _, err := c.RegisterManuals(ctx, config.ManualCallTemplates); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// selfSubstituteVariables resolves any ${NAME}/$NAME placeholders
// appearing within config.Variables' own values, against the environment
// and configured loaders, exactly once.
func (c *Client) selfSubstituteVariables() error {
	if len(c.config.Variables) == 0 {
		return nil
	}
	sub := variables.Substitutor{}
	resolved := make(map[string]string, len(c.config.Variables))
	for k, v := range c.config.Variables {
		out, err := sub.Substitute(v, c.config, "", osLookupEnv)
		if err != nil {
			return err
		}
		s, _ := out.(string)
		resolved[k] = s
	}
	c.config.Variables = resolved
	return nil
}

func osLookupEnv(key string) (string, bool) { return os.LookupEnv(key) }

// RegisterManual normalizes tmpl's name, substitutes variables throughout
// it, dispatches to the transport registered for its TemplateType, and
// persists the discovered manual and its tools in the repository. Grounded
// on UtcpClient.register_manual.
func (c *Client) RegisterManual(ctx context.Context, tmpl utcp.CallTemplate) (utcp.RegisterManualResult, error) {
	start := time.Now()
	ctx, span := c.obs.StartSpan(ctx, utcp.OpRegisterManual)
	defer func() { c.obs.EndSpan(span, utcp.OutcomeSuccess, nil) }()

	result, err := c.registerManual(ctx, tmpl)
	outcome := utcp.OutcomeSuccess
	var errStr string
	if err != nil || !result.Success {
		outcome = utcp.OutcomeError
		if err != nil {
			errStr = err.Error()
		} else if len(result.Errors) > 0 {
			errStr = result.Errors[0]
		}
	}
	c.obs.LogOperation(ctx, utcp.OperationEvent{
		Operation: utcp.OpRegisterManual,
		Manual:    tmpl.TemplateName(),
		Duration:  time.Since(start),
		Outcome:   outcome,
		Error:     errStr,
	})
	c.obs.RecordOperationMetrics(utcp.OperationEvent{Operation: utcp.OpRegisterManual, Manual: tmpl.TemplateName(), Duration: time.Since(start), Outcome: outcome})
	return result, err
}

func (c *Client) registerManual(ctx context.Context, tmpl utcp.CallTemplate) (utcp.RegisterManualResult, error) {
	name := tmpl.TemplateName()
	if name == "" {
		name = utcp.NewCallTemplateName()
	} else {
		name = utcp.SanitizeIdent(name)
	}
	tmpl = tmpl.WithName(name)

	c.mu.RLock()
	_, exists, err := c.repo.GetManual(ctx, name)
	c.mu.RUnlock()
	if err != nil {
		return utcp.RegisterManualResult{}, err
	}
	if exists {
		return utcp.RegisterManualResult{}, &utcp.ErrDuplicateManual{Name: name}
	}

	sub := variables.Substitutor{}
	substituted, err := substituteTemplate(sub, c.reg, tmpl, c.config, name)
	if err != nil {
		var varErr *utcp.ErrVariableNotFound
		if errors.As(err, &varErr) {
			return utcp.RegisterManualResult{ManualCallTemplate: tmpl, Success: false, Errors: []string{err.Error()}}, err
		}
		return utcp.RegisterManualResult{ManualCallTemplate: tmpl, Success: false, Errors: []string{err.Error()}}, nil
	}

	transport, ok := c.reg.LookupTransport(substituted.TemplateType())
	if !ok {
		return utcp.RegisterManualResult{}, fmt.Errorf("no transport registered for call_template_type %q", substituted.TemplateType())
	}

	result, err := transport.RegisterManual(ctx, c, substituted)
	if err != nil {
		return utcp.RegisterManualResult{}, err
	}
	if !result.Success || result.Manual == nil {
		return result, nil
	}

	for i, t := range result.Manual.Tools {
		if !strings.HasPrefix(t.Name, name+".") {
			t.Name = name + "." + t.Name
			result.Manual.Tools[i] = t
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.repo.SaveManual(ctx, substituted, result.Manual); err != nil {
		return utcp.RegisterManualResult{}, err
	}
	return result, nil
}

// RegisterManuals registers every template concurrently, grounded on the
// teacher's Manager.Search concurrent-fan-out pattern in
// runtime/registry/manager.go: one goroutine per template, synchronized
// with a sync.WaitGroup and a pre-sized results slice indexed by position
// so result order matches input order without extra locking.
//
// A variable-not-found failure is treated differently from every other
// per-manual failure: per UtcpClientImplementation.register_manuals, it is
// re-raised rather than merely captured in the result, while every other
// failure is only recorded in that template's RegisterManualResult.
func (c *Client) RegisterManuals(ctx context.Context, templates []utcp.CallTemplate) ([]utcp.RegisterManualResult, error) {
	results := make([]utcp.RegisterManualResult, len(templates))
	varErrs := make([]error, len(templates))
	var wg sync.WaitGroup
	for i, tmpl := range templates {
		wg.Add(1)
		go func(i int, tmpl utcp.CallTemplate) {
			defer wg.Done()
			result, err := c.RegisterManual(ctx, tmpl)
			if err != nil {
				result = utcp.RegisterManualResult{ManualCallTemplate: tmpl, Success: false, Errors: []string{err.Error()}}
				var varErr *utcp.ErrVariableNotFound
				if errors.As(err, &varErr) {
					varErrs[i] = err
				}
			}
			results[i] = result
		}(i, tmpl)
	}
	wg.Wait()

	var joined error
	for _, e := range varErrs {
		if e != nil {
			joined = errors.Join(joined, e)
		}
	}
	return results, joined
}

// DeregisterManual removes a manual from the repository and notifies its
// transport. Grounded on UtcpClient.deregister_manual.
func (c *Client) DeregisterManual(ctx context.Context, name string) error {
	start := time.Now()
	ctx, span := c.obs.StartSpan(ctx, utcp.OpDeregisterManual)
	defer span.End()

	c.mu.RLock()
	tmpl, ok, err := c.repo.GetManualCallTemplate(ctx, name)
	c.mu.RUnlock()
	if err != nil {
		return err
	}
	if !ok {
		outcome := utcp.OutcomeError
		c.obs.LogOperation(ctx, utcp.OperationEvent{Operation: utcp.OpDeregisterManual, Manual: name, Duration: time.Since(start), Outcome: outcome, Error: "manual not found"})
		return nil
	}

	transport, ok := c.reg.LookupTransport(tmpl.TemplateType())
	if ok {
		if err := transport.DeregisterManual(ctx, c, tmpl); err != nil {
			c.obs.LogOperation(ctx, utcp.OperationEvent{Operation: utcp.OpDeregisterManual, Manual: name, Duration: time.Since(start), Outcome: utcp.OutcomeError, Error: err.Error()})
			return err
		}
	}

	c.mu.Lock()
	_, err = c.repo.RemoveManual(ctx, name)
	c.mu.Unlock()
	outcome := utcp.OutcomeSuccess
	var errStr string
	if err != nil {
		outcome = utcp.OutcomeError
		errStr = err.Error()
	}
	c.obs.LogOperation(ctx, utcp.OperationEvent{Operation: utcp.OpDeregisterManual, Manual: name, Duration: time.Since(start), Outcome: outcome, Error: errStr})
	return err
}

// CallTool resolves toolName's registered call template, substitutes
// variables, dispatches to its transport, and applies every configured
// post-processor in order to the raw result. Grounded on
// UtcpClient.call_tool.
func (c *Client) CallTool(ctx context.Context, toolName string, args map[string]any) (any, error) {
	start := time.Now()
	ctx, span := c.obs.StartSpan(ctx, utcp.OpCallTool)
	defer span.End()

	result, err := c.callTool(ctx, toolName, args)
	outcome := utcp.OutcomeSuccess
	var errStr string
	if err != nil {
		outcome = utcp.OutcomeError
		errStr = err.Error()
	}
	c.obs.LogOperation(ctx, utcp.OperationEvent{Operation: utcp.OpCallTool, Tool: toolName, Duration: time.Since(start), Outcome: outcome, Error: errStr})
	c.obs.RecordOperationMetrics(utcp.OperationEvent{Operation: utcp.OpCallTool, Tool: toolName, Duration: time.Since(start), Outcome: outcome})
	return result, err
}

func (c *Client) callTool(ctx context.Context, toolName string, args map[string]any) (any, error) {
	c.mu.RLock()
	tool, err := c.repo.GetTool(ctx, toolName)
	c.mu.RUnlock()
	if err != nil {
		return nil, err
	}
	if tool == nil {
		return nil, &utcp.ErrUnknownTool{Name: toolName}
	}
	tmpl := tool.ToolCallTemplate
	if tmpl == nil {
		return nil, fmt.Errorf("tool %q has no call template", toolName)
	}

	sub := variables.Substitutor{}
	substituted, err := substituteTemplate(sub, c.reg, tmpl, c.config, tmpl.TemplateName())
	if err != nil {
		return nil, err
	}

	transport, ok := c.reg.LookupTransport(substituted.TemplateType())
	if !ok {
		return nil, fmt.Errorf("no transport registered for call_template_type %q", substituted.TemplateType())
	}

	result, err := transport.CallTool(ctx, c, toolName, args, substituted)
	if err != nil {
		return nil, err
	}
	for _, p := range c.post {
		result, err = p.PostProcess(ctx, c, *tool, substituted, result)
		if err != nil {
			return nil, err
		}
	}
	return result, nil
}

// CallToolStreaming is CallTool's streaming counterpart, returning a
// ToolStream whose elements are passed individually through the
// post-processing pipeline. Grounded on
// UtcpClient.call_tool_streaming.
func (c *Client) CallToolStreaming(ctx context.Context, toolName string, args map[string]any) (utcp.ToolStream, error) {
	start := time.Now()
	ctx, span := c.obs.StartSpan(ctx, utcp.OpCallToolStream)

	c.mu.RLock()
	tool, err := c.repo.GetTool(ctx, toolName)
	c.mu.RUnlock()
	if err != nil {
		span.End()
		return nil, err
	}
	if tool == nil {
		span.End()
		return nil, &utcp.ErrUnknownTool{Name: toolName}
	}
	tmpl := tool.ToolCallTemplate
	if tmpl == nil {
		span.End()
		return nil, fmt.Errorf("tool %q has no call template", toolName)
	}

	sub := variables.Substitutor{}
	substituted, err := substituteTemplate(sub, c.reg, tmpl, c.config, tmpl.TemplateName())
	if err != nil {
		span.End()
		return nil, err
	}

	transport, ok := c.reg.LookupTransport(substituted.TemplateType())
	if !ok {
		span.End()
		return nil, fmt.Errorf("no transport registered for call_template_type %q", substituted.TemplateType())
	}

	stream, err := transport.CallToolStreaming(ctx, c, toolName, args, substituted)
	outcome := utcp.OutcomeSuccess
	var errStr string
	if err != nil {
		outcome = utcp.OutcomeError
		errStr = err.Error()
	}
	c.obs.LogOperation(ctx, utcp.OperationEvent{Operation: utcp.OpCallToolStream, Tool: toolName, Duration: time.Since(start), Outcome: outcome, Error: errStr})
	span.End()
	if err != nil {
		return nil, err
	}
	return &postProcessedStream{inner: stream, client: c, tool: *tool, tmpl: substituted, ctx: ctx}, nil
}

type postProcessedStream struct {
	inner  utcp.ToolStream
	client *Client
	tool   utcp.Tool
	tmpl   utcp.CallTemplate
	ctx    context.Context
}

func (s *postProcessedStream) Next(ctx context.Context) (any, bool, error) {
	value, ok, err := s.inner.Next(ctx)
	if err != nil || !ok {
		return value, ok, err
	}
	for _, p := range s.client.post {
		value, err = p.PostProcess(ctx, s.client, s.tool, s.tmpl, value)
		if err != nil {
			return nil, false, err
		}
	}
	return value, true, nil
}

func (s *postProcessedStream) Close() error { return s.inner.Close() }

// SearchTools delegates to the configured ToolSearchStrategy. Grounded on
// UtcpClient.search_tools.
func (c *Client) SearchTools(ctx context.Context, query string, limit int, anyOfTagsRequired []string) ([]utcp.Tool, error) {
	start := time.Now()
	ctx, span := c.obs.StartSpan(ctx, utcp.OpSearchTools)
	defer span.End()

	c.mu.RLock()
	tools, err := c.search.SearchTools(ctx, c.repo, query, limit, anyOfTagsRequired)
	c.mu.RUnlock()

	outcome := utcp.OutcomeSuccess
	var errStr string
	if err != nil {
		outcome = utcp.OutcomeError
		errStr = err.Error()
	}
	c.obs.LogOperation(ctx, utcp.OperationEvent{Operation: utcp.OpSearchTools, Query: query, ResultCount: len(tools), Duration: time.Since(start), Outcome: outcome, Error: errStr})
	c.obs.RecordOperationMetrics(utcp.OperationEvent{Operation: utcp.OpSearchTools, Query: query, ResultCount: len(tools), Duration: time.Since(start), Outcome: outcome})
	return tools, err
}

// GetRequiredVariablesForManualAndTools returns every ${NAME}/$NAME
// placeholder referenced by tmpl and by each of tools' call templates.
// Grounded on
// UtcpClient.get_required_variables_for_manual_and_tools.
func (c *Client) GetRequiredVariablesForManualAndTools(tmpl utcp.CallTemplate, tools []utcp.Tool) ([]string, error) {
	sub := variables.Substitutor{}
	seen := map[string]struct{}{}
	if err := collectTemplateVariables(sub, c.reg, tmpl, seen); err != nil {
		return nil, err
	}
	for _, t := range tools {
		if t.ToolCallTemplate == nil {
			continue
		}
		if err := collectTemplateVariables(sub, c.reg, t.ToolCallTemplate, seen); err != nil {
			return nil, err
		}
	}
	return sortedKeys(seen), nil
}

// GetRequiredVariablesForRegisteredTool returns every placeholder
// referenced by a single already-registered tool's call template.
// Grounded on
// UtcpClient.get_required_variables_for_registered_tool.
func (c *Client) GetRequiredVariablesForRegisteredTool(ctx context.Context, toolName string) ([]string, error) {
	c.mu.RLock()
	tool, err := c.repo.GetTool(ctx, toolName)
	c.mu.RUnlock()
	if err != nil {
		return nil, err
	}
	if tool == nil {
		return nil, &utcp.ErrUnknownTool{Name: toolName}
	}
	if tool.ToolCallTemplate == nil {
		return nil, nil
	}
	sub := variables.Substitutor{}
	seen := map[string]struct{}{}
	if err := collectTemplateVariables(sub, c.reg, tool.ToolCallTemplate, seen); err != nil {
		return nil, err
	}
	return sortedKeys(seen), nil
}

func sortedKeys(seen map[string]struct{}) []string {
	out := make([]string, 0, len(seen))
	for k := range seen {
		out = append(out, k)
	}
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j-1] > out[j]; j-- {
			out[j-1], out[j] = out[j], out[j-1]
		}
	}
	return out
}
