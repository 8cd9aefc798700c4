package utcp

import "fmt"

// ErrSerializerValidation reports that a polymorphic record failed to
// validate through its tagged serializer.
type ErrSerializerValidation struct {
	Path    string
	Message string
}

func (e *ErrSerializerValidation) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("serializer validation failed: %s", e.Message)
	}
	return fmt.Sprintf("serializer validation failed at %q: %s", e.Path, e.Message)
}

// ErrUnknownTag reports that a discriminator tag has no registered
// implementation in one of the plugin registry's tables.
type ErrUnknownTag struct {
	Table string
	Tag   string
}

func (e *ErrUnknownTag) Error() string {
	return fmt.Sprintf("unknown %s tag %q", e.Table, e.Tag)
}

// ErrVariableNotFound reports that a placeholder could not be resolved
// through any configured variable source.
type ErrVariableNotFound struct {
	Name string
}

func (e *ErrVariableNotFound) Error() string {
	return fmt.Sprintf("variable %s referenced in provider configuration not found. Please add it to the environment variables or to your UTCP configuration.", e.Name)
}

// ErrDuplicateManual reports an attempt to register a manual name that is
// already present in the repository.
type ErrDuplicateManual struct {
	Name string
}

func (e *ErrDuplicateManual) Error() string {
	return fmt.Sprintf("manual %q is already registered", e.Name)
}

// ErrUnknownTool reports a call_tool invocation against a name that is not
// present in the repository.
type ErrUnknownTool struct {
	Name string
}

func (e *ErrUnknownTool) Error() string {
	return fmt.Sprintf("tool %q not found", e.Name)
}

// ErrTransport wraps any failure originating from a transport adapter
// while preserving the underlying message.
type ErrTransport struct {
	Transport string
	Err       error
}

func (e *ErrTransport) Error() string {
	return fmt.Sprintf("transport %q error: %v", e.Transport, e.Err)
}

func (e *ErrTransport) Unwrap() error { return e.Err }

// ErrNamespaceInvalid reports that a variable namespace contains a
// character outside [A-Za-z0-9_].
type ErrNamespaceInvalid struct {
	Namespace string
}

func (e *ErrNamespaceInvalid) Error() string {
	return fmt.Sprintf("variable namespace %q contains invalid characters: only alphanumeric characters and underscores are allowed", e.Namespace)
}
