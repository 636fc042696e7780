// Package cmd provides the docgraph command line interface.
package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/fatih/color"

	"github.com/Benny93/docgraph-go/internal/config"
	"github.com/Benny93/docgraph-go/internal/embeddings"
	"github.com/Benny93/docgraph-go/internal/logger"
	"github.com/Benny93/docgraph-go/internal/logger/console"
	"github.com/Benny93/docgraph-go/internal/storage"
	"github.com/Benny93/docgraph-go/mcp"
)

// Version is set at build time via ldflags.
var Version = "dev"

const (
	storeDirName = "badger"
	metaFileName = "meta.json"
)

// App is the runtime shared by every command: the resolved configuration
// and the output streams.
type App struct {
	Config *config.Config
	Out    io.Writer
	Err    io.Writer
}

func (a *App) dataDir() string {
	return a.Config.DataDir
}

func (a *App) storePath() string {
	return filepath.Join(a.dataDir(), storeDirName)
}

func (a *App) metaPath() string {
	return filepath.Join(a.dataDir(), metaFileName)
}

func (a *App) success(format string, args ...any) {
	color.New(color.FgGreen).Fprintf(a.Out, format+"\n", args...)
}

func (a *App) warn(format string, args ...any) {
	color.New(color.FgYellow).Fprintf(a.Err, format+"\n", args...)
}

// embedder builds the embedder for vectors of the given fallback length,
// backed by Ollama when an encoder URL is configured.
func (a *App) embedder(dim int) *embeddings.Embedder {
	var encoder embeddings.Encoder
	if a.Config.Encoder.URL != "" {
		ollama, err := embeddings.NewOllamaEncoder(embeddings.OllamaParams{
			BaseURL: a.Config.Encoder.URL,
			Model:   a.Config.Encoder.Model,
			Timeout: a.Config.Encoder.Timeout,
		})
		if err != nil {
			logger.Warn("Sentence encoder disabled", "err", err)
		} else {
			encoder = ollama
		}
	}
	return embeddings.NewEmbedder(encoder, dim)
}

// openStore opens the graph store. Read-only opens fail when no graph
// has been persisted yet.
func (a *App) openStore(readOnly bool) (*storage.BadgerBackend, error) {
	dbPath := a.storePath()
	if readOnly {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("no graph found at %s. Run 'docgraph analyze' first", a.dataDir())
		}
	} else if err := os.MkdirAll(dbPath, 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	store := storage.NewBadgerBackend()
	if err := store.Initialize(dbPath, readOnly); err != nil {
		return nil, fmt.Errorf("initializing storage: %w", err)
	}
	return store, nil
}

// Meta is the run summary written next to the graph store.
type Meta struct {
	Version    string    `json:"version"`
	Name       string    `json:"name"`
	Sources    []string  `json:"sources"`
	Stats      MetaStats `json:"stats"`
	AnalyzedAt string    `json:"analyzed_at"`
}

// MetaStats are the counts of the last analysis.
type MetaStats struct {
	Documents      int `json:"documents"`
	Nodes          int `json:"nodes"`
	Edges          int `json:"edges"`
	Visualizations int `json:"visualizations"`
	Errors         int `json:"errors"`
}

func (a *App) writeMeta(meta Meta) error {
	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(a.metaPath(), append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", metaFileName, err)
	}
	return nil
}

func (a *App) readMeta() (*Meta, error) {
	data, err := os.ReadFile(a.metaPath())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("no graph found at %s. Run 'docgraph analyze' first", a.dataDir())
		}
		return nil, fmt.Errorf("reading %s: %w", metaFileName, err)
	}
	var meta Meta
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", metaFileName, err)
	}
	return &meta, nil
}

// MCPCmd starts the MCP server.
type MCPCmd struct{}

// Run executes the mcp command.
func (c *MCPCmd) Run(app *App) error {
	store, err := app.openStore(true)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		<-osSignalChannel()
		cancel()
	}()

	server := mcp.NewServer(store, mcp.WithEmbedder(app.embedder(embeddings.DocumentDimension)))

	// stdout carries JSON-RPC only; logs go to stderr.
	err = server.Run(ctx, os.Stdin, app.Out)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// StatusCmd shows the state of the persisted graph.
type StatusCmd struct{}

// Run executes the status command.
func (c *StatusCmd) Run(app *App) error {
	meta, err := app.readMeta()
	if err != nil {
		return err
	}

	fmt.Fprintf(app.Out, "Graph status for %s\n", app.dataDir())
	fmt.Fprintf(app.Out, "  Name:            %s\n", meta.Name)
	fmt.Fprintf(app.Out, "  Version:         %s\n", meta.Version)
	fmt.Fprintf(app.Out, "  Last analyzed:   %s\n", meta.AnalyzedAt)
	fmt.Fprintf(app.Out, "  Sources:         %s\n", strings.Join(meta.Sources, ", "))
	fmt.Fprintf(app.Out, "  Documents:       %d\n", meta.Stats.Documents)
	fmt.Fprintf(app.Out, "  Nodes:           %d\n", meta.Stats.Nodes)
	fmt.Fprintf(app.Out, "  Edges:           %d\n", meta.Stats.Edges)
	fmt.Fprintf(app.Out, "  Visualizations:  %d\n", meta.Stats.Visualizations)
	if meta.Stats.Errors > 0 {
		fmt.Fprintf(app.Out, "  Failed items:    %d\n", meta.Stats.Errors)
	}
	return nil
}

// CleanCmd deletes the data directory.
type CleanCmd struct {
	Force bool `short:"f" help:"Skip confirmation"`
}

// Run executes the clean command.
func (c *CleanCmd) Run(app *App) error {
	dir := app.dataDir()
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return fmt.Errorf("no graph found at %s. Nothing to clean", dir)
	}

	if !c.Force {
		fmt.Fprintf(app.Out, "Delete %s? [y/N] ", dir)
		var response string
		_, _ = fmt.Scanln(&response)
		if response != "y" && response != "Y" {
			fmt.Fprintln(app.Out, "Aborted")
			return nil
		}
	}

	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("deleting %s: %w", dir, err)
	}

	app.success("Deleted %s", dir)
	return nil
}

// VersionCmd prints the version.
type VersionCmd struct{}

// Run executes the version command.
func (c *VersionCmd) Run(app *App) error {
	fmt.Fprintf(app.Out, "docgraph %s\n", Version)
	return nil
}

// osSignalChannel returns a channel that receives OS signals for graceful shutdown.
func osSignalChannel() <-chan os.Signal {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	return sigChan
}

func toJSON(v any) string {
	bytes, _ := json.Marshal(v)
	return string(bytes)
}

// CLI is the root Kong command structure.
type CLI struct {
	Version  kong.VersionFlag `help:"Show version information"`
	Config   string           `help:"Settings file (default docgraph.yaml when present)" env:"DOCGRAPH_CONFIG"`
	DataDir  string           `help:"Directory holding the persisted graph" env:"DOCGRAPH_DATA_DIR"`
	LogLevel string           `help:"Log level (debug|info|warn|error)" env:"DOCGRAPH_LOG_LEVEL"`
	Verbose  bool             `short:"v" help:"Enable debug logging"`

	// Commands
	Analyze AnalyzeCmd `cmd:"" help:"Process documents and URLs into a knowledge graph"`
	Search  SearchCmd  `cmd:"" help:"Find nodes whose label or description contains a query"`
	Query   QueryCmd   `cmd:"" help:"Hybrid full-text and vector search over the graph"`
	Network NetworkCmd `cmd:"" help:"Show the neighbourhood of a node"`
	Related RelatedCmd `cmd:"" help:"List documents similar to a document"`
	Watch   WatchCmd   `cmd:"" help:"Re-analyze a directory whenever its documents change"`
	Status  StatusCmd  `cmd:"" help:"Show the persisted graph status"`
	Clean   CleanCmd   `cmd:"" help:"Delete the persisted graph"`
	MCP     MCPCmd     `cmd:"" help:"Start MCP server (stdio transport)"`
	Setup   SetupCmd   `cmd:"" help:"Configure MCP clients for docgraph"`
	Show    VersionCmd `cmd:"" name:"version" help:"Print the version"`

	Out io.Writer `kong:"-"`
	Err io.Writer `kong:"-"`
}

// NewCLI creates a new CLI instance writing to the process streams.
func NewCLI() *CLI {
	return &CLI{Out: os.Stdout, Err: os.Stderr}
}

// Execute parses command-line arguments and executes the selected command.
func (c *CLI) Execute(args []string) error {
	if c.Out == nil {
		c.Out = os.Stdout
	}
	if c.Err == nil {
		c.Err = os.Stderr
	}

	parser, err := kong.New(c,
		kong.Name("docgraph"),
		kong.Description("Turn documents into a queryable knowledge graph"),
		kong.UsageOnError(),
		kong.Writers(c.Out, c.Err),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact:             true,
			NoExpandSubcommands: true,
		}),
		kong.Vars{
			"version": Version,
		},
	)
	if err != nil {
		return err
	}

	kongCtx, err := parser.Parse(args)
	if err != nil {
		return err
	}

	app, err := c.newApp()
	if err != nil {
		return err
	}
	return kongCtx.Run(app)
}

// newApp resolves configuration and installs the console logger.
func (c *CLI) newApp() (*App, error) {
	cfg, err := config.Load(c.Config)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if c.DataDir != "" {
		cfg.DataDir = c.DataDir
	}
	if c.LogLevel != "" {
		cfg.LogLevel = c.LogLevel
	}
	if c.Verbose {
		cfg.LogLevel = "debug"
	}

	logger.Init(console.NewConsoleLogger(console.ConsoleLoggerParams{
		Level:  cfg.LogLevel,
		Output: c.Err,
	}))

	return &App{Config: cfg, Out: c.Out, Err: c.Err}, nil
}
