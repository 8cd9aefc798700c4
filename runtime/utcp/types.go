package utcp

import (
	"context"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

// identSanitizer replaces every character that is not a letter, digit, or
// underscore with "_", matching spec.md §3's name-normalization rule.
var identSanitizer = regexp.MustCompile(`[^A-Za-z0-9_]`)

// SanitizeIdent normalizes free-form input into an identifier by replacing
// every non-identifier character with "_".
func SanitizeIdent(s string) string {
	return identSanitizer.ReplaceAllString(s, "_")
}

// NewCallTemplateName returns a random hex name, matching
// data/call_template.py's default_factory=lambda: uuid.uuid4().hex.
func NewCallTemplateName() string {
	return strings.ReplaceAll(uuid.New().String(), "-", "")
}

// CallTemplate is the polymorphic descriptor of how to reach a tool
// endpoint (for discovery, as a "manual" template, or for invocation, as a
// "tool" template). Grounded on data/call_template.py.
type CallTemplate interface {
	TemplateName() string
	TemplateType() string
	TemplateAuth() Auth
	// WithName returns a copy of the template with its Name field
	// replaced; used by the client runtime to normalize/rewrite names
	// without mutating the caller's value.
	WithName(name string) CallTemplate
}

// CallTemplateBase holds the fields common to every CallTemplate variant.
// Concrete variants embed it.
type CallTemplateBase struct {
	Name string
	Auth Auth
}

func (b CallTemplateBase) TemplateName() string { return b.Name }
func (b CallTemplateBase) TemplateAuth() Auth    { return b.Auth }

// Tool describes a single invokable operation discovered from a manual.
// Grounded on data/tool.py's Tool model.
type Tool struct {
	Name                string
	Description         string
	Inputs              *JSONSchema
	Outputs             *JSONSchema
	Tags                []string
	AverageResponseSize *int
	ToolCallTemplate    CallTemplate
}

// Manual is a provider-published catalog of tools. Grounded on
// data/utcp_manual.py.
type Manual struct {
	UTCPVersion  string
	ManualVersion string
	Tools        []Tool
}

// RegisterManualResult reports the outcome of registering one manual.
// Grounded on data/register_manual_response.py.
type RegisterManualResult struct {
	ManualCallTemplate CallTemplate
	Manual             *Manual
	Success            bool
	Errors             []string
}

// VariableLoader is a pluggable source of external variable values (e.g. a
// dotenv file, or a remote key-value store). Grounded on
// data/variable_loader.py.
type VariableLoader interface {
	LoaderType() string
	Get(key string) (string, bool)
}

// ClientConfig is the UTCP client's top-level configuration record.
// Grounded on data/utcp_client_config.py.
type ClientConfig struct {
	Variables           map[string]string
	LoadVariablesFrom   []VariableLoader
	ToolRepository      ConcurrentToolRepository
	ToolSearchStrategy  ToolSearchStrategy
	PostProcessing      []ToolPostProcessor
	ManualCallTemplates []CallTemplate
}

// ConcurrentToolRepository is the storage contract for manuals, their call
// templates, and their flattened tools. Grounded on
// interfaces/concurrent_tool_repository.py.
type ConcurrentToolRepository interface {
	SaveManual(ctx context.Context, tmpl CallTemplate, manual *Manual) error
	RemoveManual(ctx context.Context, name string) (bool, error)
	RemoveTool(ctx context.Context, name string) (bool, error)
	GetTool(ctx context.Context, name string) (*Tool, error)
	GetTools(ctx context.Context) ([]Tool, error)
	GetToolsByManual(ctx context.Context, manualName string) ([]Tool, bool, error)
	GetManual(ctx context.Context, name string) (*Manual, bool, error)
	GetManuals(ctx context.Context) ([]Manual, error)
	GetManualCallTemplate(ctx context.Context, name string) (CallTemplate, bool, error)
	GetManualCallTemplates(ctx context.Context) ([]CallTemplate, error)
}

// ToolSearchStrategy ranks tools against a query. Grounded on
// interfaces/tool_search_strategy.py.
type ToolSearchStrategy interface {
	StrategyType() string
	SearchTools(ctx context.Context, repo ConcurrentToolRepository, query string, limit int, anyOfTagsRequired []string) ([]Tool, error)
}

// ToolPostProcessor transforms a tool's result. Grounded on
// interfaces/tool_post_processor.py.
type ToolPostProcessor interface {
	ProcessorType() string
	PostProcess(ctx context.Context, rt Runtime, tool Tool, tmpl CallTemplate, value any) (any, error)
}

// Runtime is the narrow back-reference transports receive so they can read
// client configuration (e.g. root directory for file paths) without a
// global. Grounded on spec.md §4.5.
type Runtime interface {
	RootDir() string
}

// ToolStream is a pull iterator over a streaming tool call's results.
// Abandoning iteration before EOF and calling Close releases the
// underlying transport handle, matching spec.md §5's scoped-cleanup
// requirement.
type ToolStream interface {
	// Next blocks until the next element is available, returns
	// (nil, false, nil) at a clean end of stream, or a non-nil error if
	// the transport failed mid-stream.
	Next(ctx context.Context) (any, bool, error)
	Close() error
}

// CommunicationProtocol is the contract every transport adapter
// implements; the client runtime calls into it without knowing its wire
// protocol. Grounded on interfaces/communication_protocol.py.
type CommunicationProtocol interface {
	RegisterManual(ctx context.Context, rt Runtime, tmpl CallTemplate) (RegisterManualResult, error)
	DeregisterManual(ctx context.Context, rt Runtime, tmpl CallTemplate) error
	CallTool(ctx context.Context, rt Runtime, toolName string, args map[string]any, tmpl CallTemplate) (any, error)
	CallToolStreaming(ctx context.Context, rt Runtime, toolName string, args map[string]any, tmpl CallTemplate) (ToolStream, error)
}
