// Package varloader provides VariableLoader implementations.
package varloader

import (
	"bufio"
	"os"
	"strings"

	"github.com/goadesign/utcp-go/runtime/utcp"
	"github.com/goadesign/utcp-go/runtime/utcp/registry"
)

func init() {
	registry.Global().RegisterVariableLoader("dotenv", dotEnvSerializer{}, false)
}

// DotEnv resolves variables from a .env-format file, re-reading it on
// every Get call rather than caching its contents — the same
// read-through-every-time behavior as
// data/variable_loader_implementations/dot_env_variable_loader.py's
// DotEnvVariableLoader, so edits to the file take effect without
// restarting the client.
type DotEnv struct {
	EnvFilePath string
}

func (DotEnv) LoaderType() string { return "dotenv" }

// Get re-reads EnvFilePath and returns the value bound to key, if any.
// Parse failures and a missing file are both treated as "not found" rather
// than surfaced as errors, matching dotenv_values' tolerant behavior.
func (d DotEnv) Get(key string) (string, bool) {
	f, err := os.Open(d.EnvFilePath)
	if err != nil {
		return "", false
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		k, v, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		k = strings.TrimSpace(k)
		if k != key {
			continue
		}
		v = strings.TrimSpace(v)
		v = strings.Trim(v, `"'`)
		return v, true
	}
	return "", false
}

// dotEnvSerializer serializes a DotEnv loader's configuration. Grounded on
// DotEnvVariableLoaderSerializer.
type dotEnvSerializer struct{}

func (dotEnvSerializer) ToDict(obj utcp.VariableLoader) (map[string]any, error) {
	d, ok := obj.(DotEnv)
	if !ok {
		return nil, &utcp.ErrSerializerValidation{Message: "expected DotEnv"}
	}
	return map[string]any{
		"variable_loader_type": "dotenv",
		"env_file_path":        d.EnvFilePath,
	}, nil
}

func (dotEnvSerializer) ValidateDict(data map[string]any) (utcp.VariableLoader, error) {
	path, _ := data["env_file_path"].(string)
	if path == "" {
		return nil, &utcp.ErrSerializerValidation{Path: "env_file_path", Message: "required field missing"}
	}
	return DotEnv{EnvFilePath: path}, nil
}
