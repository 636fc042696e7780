package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// SetupCmd configures MCP for various AI clients.
type SetupCmd struct {
	Qwen     bool   `help:"Configure for Qwen CLI"`
	Claude   bool   `help:"Configure for Claude Code"`
	Cursor   bool   `help:"Configure for Cursor"`
	Local    bool   `help:"Create project-local configuration"`
	Global   bool   `help:"Create global configuration"`
	Format   string `help:"Output format (json|text)" enum:"json,text" default:"json"`
	FilePath string `help:"Custom directory for the local configuration"`
}

// mcpClient describes where a client keeps its MCP configuration.
type mcpClient struct {
	name      string
	configDir string
	localFile string
}

var mcpClients = map[string]mcpClient{
	"qwen":   {name: "Qwen", configDir: ".qwen", localFile: "mcp.json"},
	"claude": {name: "Claude", configDir: ".claude", localFile: "mcp.json"},
	"cursor": {name: "Cursor", configDir: ".cursor", localFile: "mcp.json"},
}

// Run executes the setup command.
func (c *SetupCmd) Run(app *App) error {
	if c.Format != "json" && c.Format != "text" {
		return fmt.Errorf("invalid format: %s (must be json or text)", c.Format)
	}

	// The server reads the data directory this command resolved.
	dataDir := app.dataDir()
	if abs, err := filepath.Abs(dataDir); err == nil {
		dataDir = abs
	}
	config := generateDocgraphConfig(dataDir)

	var selected []string
	if c.Qwen {
		selected = append(selected, "qwen")
	}
	if c.Claude {
		selected = append(selected, "claude")
	}
	if c.Cursor {
		selected = append(selected, "cursor")
	}

	// Without a client the configuration goes to stdout.
	if len(selected) == 0 {
		return c.outputConfig(app, config)
	}

	if !c.Local && !c.Global {
		c.Local = true
	}

	for _, key := range selected {
		client := mcpClients[key]
		if c.Global {
			path := getGlobalConfigPath(client)
			if err := writeConfig(path, config, c.Format); err != nil {
				return err
			}
			app.success("✓ Created global %s MCP config at %s", client.name, path)
		}
		if c.Local {
			path := getLocalConfigPath(".", client)
			if c.FilePath != "" {
				path = filepath.Join(c.FilePath, client.localFile)
			}
			if err := writeConfig(path, config, c.Format); err != nil {
				return err
			}
			app.success("✓ Created local %s MCP config at %s", client.name, path)
		}
	}
	return nil
}

func (c *SetupCmd) outputConfig(app *App, config map[string]any) error {
	if c.Format == "json" {
		jsonBytes, err := json.MarshalIndent(config, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(app.Out, string(jsonBytes))
		return nil
	}

	fmt.Fprintln(app.Out, "# Add this to your MCP client configuration:")
	fmt.Fprintln(app.Out)
	fmt.Fprint(app.Out, textConfig(config))
	return nil
}

// generateDocgraphConfig returns the mcpServers entry that starts
// `docgraph mcp` on dataDir.
func generateDocgraphConfig(dataDir string) map[string]any {
	args := []string{"mcp"}
	if dataDir != "" {
		args = append([]string{"--data-dir", dataDir}, args...)
	}
	return map[string]any{
		"mcpServers": map[string]any{
			"docgraph": map[string]any{
				"command": "docgraph",
				"args":    args,
			},
		},
	}
}

func getLocalConfigPath(basePath string, client mcpClient) string {
	return filepath.Join(basePath, client.configDir, client.localFile)
}

func getGlobalConfigPath(client mcpClient) string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		homeDir = os.Getenv("HOME")
	}
	return filepath.Join(homeDir, client.configDir, "global", "mcp.json")
}

func textConfig(config map[string]any) string {
	keys := make([]string, 0, len(config))
	for key := range config {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var sb strings.Builder
	for _, key := range keys {
		fmt.Fprintf(&sb, "%s: %s\n", key, toJSON(config[key]))
	}
	return sb.String()
}

func writeConfig(configPath string, config map[string]any, format string) error {
	if err := os.MkdirAll(filepath.Dir(configPath), 0o755); err != nil {
		return fmt.Errorf("creating directory: %w", err)
	}

	var content []byte
	if format == "json" {
		data, err := json.MarshalIndent(config, "", "  ")
		if err != nil {
			return fmt.Errorf("marshaling JSON: %w", err)
		}
		content = append(data, '\n')
	} else {
		header := "# MCP configuration for docgraph\n# Generated by docgraph setup\n\n"
		content = []byte(header + textConfig(config))
	}

	if err := os.WriteFile(configPath, content, 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}
