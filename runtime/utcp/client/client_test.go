package client_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/goadesign/utcp-go/runtime/utcp"
	"github.com/goadesign/utcp-go/runtime/utcp/client"
	"github.com/goadesign/utcp-go/runtime/utcp/repository"
	"github.com/goadesign/utcp-go/runtime/utcp/search"
	_ "github.com/goadesign/utcp-go/runtime/utcp/transport"
)

const manualJSON = `{
  "utcp_version": "1.0.0",
  "manual_version": "1.0.0",
  "tools": [
    {
      "name": "greet",
      "description": "says hello",
      "tags": ["greeting"],
      "tool_call_template": {
        "call_template_type": "text",
        "name": "greet",
        "content": "hello there"
      }
    }
  ]
}`

func writeManualFile(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "manual.json")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))
	return path
}

func newTestConfig(manualPath string) *utcp.ClientConfig {
	cfg := &utcp.ClientConfig{
		ToolRepository:     repository.NewInMemory(),
		ToolSearchStrategy: search.NewTagAndDescriptionWordMatchStrategy(),
	}
	if manualPath != "" {
		cfg.ManualCallTemplates = []utcp.CallTemplate{
			utcp.FileCallTemplate{
				CallTemplateBase: utcp.CallTemplateBase{Name: "local"},
				FilePath:         manualPath,
			},
		}
	}
	return cfg
}

func TestCreateRegistersManualsFromConfig(t *testing.T) {
	path := writeManualFile(t, manualJSON)
	c, err := client.Create(context.Background(), "", newTestConfig(path))
	require.NoError(t, err)

	tools, err := c.SearchTools(context.Background(), "hello", 10, nil)
	require.NoError(t, err)
	require.Len(t, tools, 1)
	require.Equal(t, "local.greet", tools[0].Name, "tool names are namespaced by their owning manual's name")
}

func TestCallToolDispatchesThroughTransport(t *testing.T) {
	path := writeManualFile(t, manualJSON)
	c, err := client.Create(context.Background(), "", newTestConfig(path))
	require.NoError(t, err)

	out, err := c.CallTool(context.Background(), "local.greet", nil)
	require.NoError(t, err)
	require.Equal(t, "hello there", out)
}

func TestCallToolUnknownToolErrors(t *testing.T) {
	c, err := client.Create(context.Background(), "", newTestConfig(""))
	require.NoError(t, err)

	_, err = c.CallTool(context.Background(), "nope", nil)
	require.Error(t, err)
	var target *utcp.ErrUnknownTool
	require.ErrorAs(t, err, &target)
}

func TestDeregisterManualRemovesItsTools(t *testing.T) {
	path := writeManualFile(t, manualJSON)
	c, err := client.Create(context.Background(), "", newTestConfig(path))
	require.NoError(t, err)

	require.NoError(t, c.DeregisterManual(context.Background(), "local"))

	_, err = c.CallTool(context.Background(), "local.greet", nil)
	require.Error(t, err)
}

func TestRegisterManualSanitizesEmptyName(t *testing.T) {
	path := writeManualFile(t, manualJSON)
	cfg := &utcp.ClientConfig{
		ToolRepository:     repository.NewInMemory(),
		ToolSearchStrategy: search.NewTagAndDescriptionWordMatchStrategy(),
	}
	c, err := client.Create(context.Background(), "", cfg)
	require.NoError(t, err)

	result, err := c.RegisterManual(context.Background(), utcp.FileCallTemplate{FilePath: path})
	require.NoError(t, err)
	require.True(t, result.Success)
	require.NotEmpty(t, result.ManualCallTemplate.TemplateName())
}

func TestRegisterManualsRunsConcurrentlyAndPreservesOrder(t *testing.T) {
	pathA := writeManualFile(t, manualJSON)
	pathB := writeManualFile(t, `{"utcp_version":"1.0.0","manual_version":"1.0.0","tools":[]}`)
	c, err := client.Create(context.Background(), "", newTestConfig(""))
	require.NoError(t, err)

	results, err := c.RegisterManuals(context.Background(), []utcp.CallTemplate{
		utcp.FileCallTemplate{CallTemplateBase: utcp.CallTemplateBase{Name: "first"}, FilePath: pathA},
		utcp.FileCallTemplate{CallTemplateBase: utcp.CallTemplateBase{Name: "second"}, FilePath: pathB},
	})
	require.NoError(t, err)
	require.Len(t, results, 2)
	require.Equal(t, "first", results[0].ManualCallTemplate.TemplateName())
	require.Equal(t, "second", results[1].ManualCallTemplate.TemplateName())
	require.True(t, results[0].Success)
	require.True(t, results[1].Success)
}

func TestRegisterManualRejectsDuplicateName(t *testing.T) {
	path := writeManualFile(t, manualJSON)
	c, err := client.Create(context.Background(), "", newTestConfig(""))
	require.NoError(t, err)

	tmpl := utcp.FileCallTemplate{CallTemplateBase: utcp.CallTemplateBase{Name: "local"}, FilePath: path}
	_, err = c.RegisterManual(context.Background(), tmpl)
	require.NoError(t, err)

	_, err = c.RegisterManual(context.Background(), tmpl)
	require.Error(t, err)
	var dup *utcp.ErrDuplicateManual
	require.ErrorAs(t, err, &dup)
	require.Equal(t, "local", dup.Name)
}

func TestRegisterManualsPropagatesVariableNotFound(t *testing.T) {
	// The manual call template's own fields (not its tools' nested call
	// templates) are substituted at registration time, so the unresolved
	// placeholder belongs in FilePath: substitution fails before the file
	// is ever read.
	cfg := &utcp.ClientConfig{
		ToolRepository:     repository.NewInMemory(),
		ToolSearchStrategy: search.NewTagAndDescriptionWordMatchStrategy(),
		ManualCallTemplates: []utcp.CallTemplate{
			utcp.FileCallTemplate{CallTemplateBase: utcp.CallTemplateBase{Name: "broken"}, FilePath: "${MISSING_VAR}/manual.json"},
		},
	}

	_, err := client.Create(context.Background(), "", cfg)
	require.Error(t, err, "a variable-not-found failure during initial registration must raise, not be silently captured")
	var varErr *utcp.ErrVariableNotFound
	require.ErrorAs(t, err, &varErr)
}

func TestGetRequiredVariablesForRegisteredTool(t *testing.T) {
	path := writeManualFile(t, `{
		"utcp_version": "1.0.0",
		"manual_version": "1.0.0",
		"tools": [{
			"name": "echo_var",
			"tool_call_template": {
				"call_template_type": "text",
				"name": "echo_var",
				"content": "${API_KEY}"
			}
		}]
	}`)
	c, err := client.Create(context.Background(), "", newTestConfig(path))
	require.NoError(t, err)

	vars, err := c.GetRequiredVariablesForRegisteredTool(context.Background(), "local.echo_var")
	require.NoError(t, err)
	require.Equal(t, []string{"echo_var_API_KEY"}, vars, "required variables are namespaced by the tool's own call template name")
}
