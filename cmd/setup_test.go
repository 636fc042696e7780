package cmd

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readConfig(t *testing.T, path string) map[string]any {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var config map[string]any
	require.NoError(t, json.Unmarshal(data, &config))
	return config
}

func serverEntry(t *testing.T, config map[string]any) map[string]any {
	t.Helper()
	servers, ok := config["mcpServers"].(map[string]any)
	require.True(t, ok, "mcpServers missing")
	entry, ok := servers["docgraph"].(map[string]any)
	require.True(t, ok, "docgraph server missing")
	return entry
}

func TestSetupCmd_Local(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		flag string
	}{
		{"Qwen", "--qwen"},
		{"Claude", "--claude"},
		{"Cursor", "--cursor"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			target := t.TempDir()
			dataDir := t.TempDir()
			out, err := execute(t, "--data-dir", dataDir, "setup", tt.flag, "--local", "--file-path", target)
			require.NoError(t, err)
			assert.Contains(t, out, "Created local")

			entry := serverEntry(t, readConfig(t, filepath.Join(target, "mcp.json")))
			assert.Equal(t, "docgraph", entry["command"])
			assert.Equal(t, []any{"--data-dir", dataDir, "mcp"}, entry["args"])
		})
	}
}

func TestSetupCmd_Global(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	_, err := execute(t, "--data-dir", t.TempDir(), "setup", "--qwen", "--claude", "--global")
	require.NoError(t, err)

	for _, dir := range []string{".qwen", ".claude"} {
		assert.FileExists(t, filepath.Join(home, dir, "global", "mcp.json"))
	}
	assert.NoFileExists(t, filepath.Join(home, ".cursor", "global", "mcp.json"))
}

func TestSetupCmd_Stdout(t *testing.T) {
	t.Parallel()

	t.Run("JSON", func(t *testing.T) {
		t.Parallel()

		out, err := execute(t, "--data-dir", t.TempDir(), "setup")
		require.NoError(t, err)

		var config map[string]any
		require.NoError(t, json.Unmarshal([]byte(out), &config))
		assert.Equal(t, "docgraph", serverEntry(t, config)["command"])
	})

	t.Run("Text", func(t *testing.T) {
		t.Parallel()

		out, err := execute(t, "--data-dir", t.TempDir(), "setup", "--format", "text")
		require.NoError(t, err)
		assert.Contains(t, out, "# Add this to your MCP client configuration:")
		assert.Contains(t, out, `mcpServers: {"docgraph":`)
	})

	t.Run("InvalidFormat", func(t *testing.T) {
		t.Parallel()

		_, err := execute(t, "setup", "--format", "yaml")
		assert.Error(t, err)
	})
}

func TestWriteConfig_Text(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "nested", "mcp.txt")
	require.NoError(t, writeConfig(path, generateDocgraphConfig(""), "text"))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "# Generated by docgraph setup")
	assert.Contains(t, string(data), `"args":["mcp"]`)
}

func TestGetConfigPaths(t *testing.T) {
	t.Parallel()

	assert.Equal(t, filepath.Join("base", ".cursor", "mcp.json"), getLocalConfigPath("base", mcpClients["cursor"]))
	assert.Equal(t, "global", filepath.Base(filepath.Dir(getGlobalConfigPath(mcpClients["claude"]))))
}
