// Package variables implements the default ${NAME}/$NAME variable
// substitution used to resolve placeholders embedded in call template
// fields (URLs, headers, auth secrets) at registration and call time.
// Grounded on implementations/default_variable_substitutor.py.
package variables

import (
	"regexp"
	"sort"

	"github.com/goadesign/utcp-go/runtime/utcp"
)

// placeholderRe matches ${NAME} or $NAME, mirroring the Python
// substitutor's `\$\{([a-zA-Z0-9_]+)\}|\$([a-zA-Z0-9_]+)` pattern.
var placeholderRe = regexp.MustCompile(`\$\{([a-zA-Z0-9_]+)\}|\$([a-zA-Z0-9_]+)`)

// refRe matches the literal token "$ref" when it is not immediately
// followed by another identifier character. Go's RE2 engine does not
// support lookahead, so the Python `\$ref(?![a-zA-Z0-9_])` check is
// reproduced as a plain match of "$ref" followed by a manual inspection of
// the next rune.
var refBareRe = regexp.MustCompile(`\$ref`)

func isIdentByte(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || (b >= '0' && b <= '9') || b == '_'
}

// containsBareRef reports whether s contains "$ref" not immediately
// followed by another identifier character, matching the Python
// substitutor's "skip entire string if a $ref placeholder is present"
// behavior ($ref is reserved for JSON Schema references, never a
// variable).
func containsBareRef(s string) bool {
	for _, loc := range refBareRe.FindAllStringIndex(s, -1) {
		end := loc[1]
		if end >= len(s) || !isIdentByte(s[end]) {
			return true
		}
	}
	return false
}

func isIdentRune(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '_'
}

func validNamespace(namespace string) bool {
	for _, r := range namespace {
		if !isIdentRune(r) {
			return false
		}
	}
	return true
}

// namespacedKey doubles every underscore in namespace and prefixes key
// with it, matching default_variable_substitutor.py's
// `namespace.replace("_", "__") + "_" + key` net effect.
func namespacedKey(namespace, key string) string {
	if namespace == "" {
		return key
	}
	doubled := make([]byte, 0, len(namespace)*2)
	for i := 0; i < len(namespace); i++ {
		if namespace[i] == '_' {
			doubled = append(doubled, '_', '_')
		} else {
			doubled = append(doubled, namespace[i])
		}
	}
	return string(doubled) + "_" + key
}

// Substitutor resolves ${NAME}/$NAME placeholders embedded in a
// ClientConfig's variable-bearing fields. Grounded on
// DefaultVariableSubstitutor.
type Substitutor struct{}

// GetVariable resolves a single key, checking the exact variable table,
// then each configured loader in order, then the process environment.
// Grounded on _get_variable.
func (Substitutor) GetVariable(key string, cfg *utcp.ClientConfig, namespace string, env func(string) (string, bool)) (string, error) {
	fullKey := namespacedKey(namespace, key)
	if cfg != nil {
		if v, ok := cfg.Variables[fullKey]; ok {
			return v, nil
		}
		for _, loader := range cfg.LoadVariablesFrom {
			if v, ok := loader.Get(fullKey); ok {
				return v, nil
			}
		}
	}
	if env != nil {
		if v, ok := env(fullKey); ok {
			return v, nil
		}
	}
	return "", &utcp.ErrVariableNotFound{Name: fullKey}
}

// Substitute walks obj (string, map[string]any, []any, or any other value)
// replacing ${NAME}/$NAME placeholders in every string it finds, using
// GetVariable for resolution. A string containing a bare "$ref" token is
// returned unchanged in its entirety, since "$ref" is reserved for JSON
// Schema references. Grounded on substitute.
func (s Substitutor) Substitute(obj any, cfg *utcp.ClientConfig, namespace string, env func(string) (string, bool)) (any, error) {
	if namespace != "" && !validNamespace(namespace) {
		return nil, &utcp.ErrNamespaceInvalid{Namespace: namespace}
	}
	return s.substitute(obj, cfg, namespace, env)
}

func (s Substitutor) substitute(obj any, cfg *utcp.ClientConfig, namespace string, env func(string) (string, bool)) (any, error) {
	switch v := obj.(type) {
	case string:
		if containsBareRef(v) {
			return v, nil
		}
		var firstErr error
		result := placeholderRe.ReplaceAllStringFunc(v, func(match string) string {
			if firstErr != nil {
				return match
			}
			sub := placeholderRe.FindStringSubmatch(match)
			key := sub[1]
			if key == "" {
				key = sub[2]
			}
			val, err := s.GetVariable(key, cfg, namespace, env)
			if err != nil {
				firstErr = err
				return match
			}
			return val
		})
		if firstErr != nil {
			return nil, firstErr
		}
		return result, nil
	case map[string]any:
		out := make(map[string]any, len(v))
		for k, val := range v {
			sv, err := s.substitute(val, cfg, namespace, env)
			if err != nil {
				return nil, err
			}
			out[k] = sv
		}
		return out, nil
	case []any:
		out := make([]any, len(v))
		for i, val := range v {
			sv, err := s.substitute(val, cfg, namespace, env)
			if err != nil {
				return nil, err
			}
			out[i] = sv
		}
		return out, nil
	default:
		return obj, nil
	}
}

// FindRequiredVariables returns the deduplicated, sorted set of namespaced
// variable names referenced anywhere within obj. Grounded on
// find_required_variables.
func (s Substitutor) FindRequiredVariables(obj any, namespace string) ([]string, error) {
	if namespace != "" && !validNamespace(namespace) {
		return nil, &utcp.ErrNamespaceInvalid{Namespace: namespace}
	}
	seen := map[string]struct{}{}
	s.collectRequired(obj, namespace, seen)
	out := make([]string, 0, len(seen))
	for k := range seen {
		out = append(out, k)
	}
	sort.Strings(out)
	return out, nil
}

func (s Substitutor) collectRequired(obj any, namespace string, seen map[string]struct{}) {
	switch v := obj.(type) {
	case string:
		if containsBareRef(v) {
			return
		}
		for _, sub := range placeholderRe.FindAllStringSubmatch(v, -1) {
			key := sub[1]
			if key == "" {
				key = sub[2]
			}
			seen[namespacedKey(namespace, key)] = struct{}{}
		}
	case map[string]any:
		for _, val := range v {
			s.collectRequired(val, namespace, seen)
		}
	case []any:
		for _, val := range v {
			s.collectRequired(val, namespace, seen)
		}
	}
}
