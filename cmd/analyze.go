package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/Benny93/docgraph-go/internal/document"
	"github.com/Benny93/docgraph-go/internal/embeddings"
	"github.com/Benny93/docgraph-go/internal/ingestion"
	"github.com/Benny93/docgraph-go/internal/loader"
	"github.com/Benny93/docgraph-go/internal/logger"
	"github.com/Benny93/docgraph-go/internal/session"
	"github.com/Benny93/docgraph-go/internal/storage"
	"github.com/Benny93/docgraph-go/internal/visualization"
)

// AnalyzeCmd processes files, directories and URLs into a knowledge graph.
type AnalyzeCmd struct {
	Paths       []string `arg:"" optional:"" help:"Files or directories to analyze (default .)"`
	URL         []string `name:"url" short:"u" help:"URL to fetch and analyze (repeatable)"`
	Name        string   `help:"Session name (default: base name of the first path)"`
	Export      string   `short:"e" help:"Also export the session (json|html|pdf|text)"`
	ExportDir   string   `default:"." help:"Directory for the export file"`
	NoVisualize bool     `help:"Skip visualization generation"`
	NoGraph     bool     `help:"Leave the knowledge graph visualization out"`
	Lexicon     string   `type:"existingfile" help:"YAML file replacing the built-in keyword tables"`
}

// analysisRequest is one analysis run shared by analyze and watch.
type analysisRequest struct {
	name     string
	paths    []string
	urls     []string
	settings session.Settings
	lexicon  string
}

// analysisRun is what a run produced.
type analysisRun struct {
	session *session.Session
	result  *session.AnalysisResult
	entries []ingestion.FileEntry
	svc     *session.Service
}

// Run executes the analyze command.
func (c *AnalyzeCmd) Run(app *App) error {
	ctx := context.Background()

	paths := c.Paths
	if len(paths) == 0 && len(c.URL) == 0 {
		paths = []string{"."}
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			return fmt.Errorf("accessing %s: %w", p, err)
		}
	}

	settings := app.sessionSettings()
	if c.NoVisualize {
		settings.AutoVisualize = false
	}
	if c.NoGraph {
		settings.IncludeKnowledgeGraph = false
	}

	store, err := app.openStore(false)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	run, err := app.analyze(ctx, store, analysisRequest{
		name:     sessionName(c.Name, paths),
		paths:    paths,
		urls:     c.URL,
		settings: settings,
		lexicon:  c.Lexicon,
	})
	if err != nil {
		return err
	}
	app.printResult(run)

	if c.Export != "" {
		out, err := run.svc.ExportSession(run.session.ID, session.ExportFormat(c.Export))
		if err != nil {
			return fmt.Errorf("exporting: %w", err)
		}
		if err := os.MkdirAll(c.ExportDir, 0o755); err != nil {
			return fmt.Errorf("creating export directory: %w", err)
		}
		target := filepath.Join(c.ExportDir, out.Filename)
		if err := os.WriteFile(target, out.Data, 0o644); err != nil {
			return fmt.Errorf("writing export: %w", err)
		}
		app.success("Exported %s", target)
	}
	return nil
}

func sessionName(name string, paths []string) string {
	if name != "" {
		return name
	}
	if len(paths) > 0 {
		if abs, err := filepath.Abs(paths[0]); err == nil {
			return filepath.Base(abs)
		}
	}
	return "docgraph"
}

// sessionSettings maps the configured session defaults onto settings.
func (a *App) sessionSettings() session.Settings {
	d := a.Config.Session
	settings := session.DefaultSettings()
	settings.AutoVisualize = d.AutoVisualize
	settings.IncludeKnowledgeGraph = d.IncludeKnowledgeGraph
	if d.ComplexityPreference != "" {
		settings.ComplexityPreference = document.Complexity(d.ComplexityPreference)
	}
	settings.VisualizationPreferences = visualization.ParseTypes(d.VisualizationPreferences)
	settings.Processing = session.ProcessingOptions{
		MaxConcurrency: d.MaxConcurrency,
		FetchTimeout:   d.FetchTimeout,
	}
	return settings
}

// newService wires a session service from the configuration.
func (a *App) newService(lexiconPath string) (*session.Service, error) {
	opts := []document.Option{
		document.WithEmbedder(a.embedder(embeddings.DocumentDimension)),
		document.WithWebLoader(loader.NewWebLoader(nil, 0)),
	}
	if lexiconPath != "" {
		lex, err := document.LoadLexicon(lexiconPath)
		if err != nil {
			return nil, fmt.Errorf("loading lexicon: %w", err)
		}
		opts = append(opts, document.WithLexicon(lex))
	}

	progress := func(phase string, pct float64) {
		fmt.Fprintf(a.Err, "\r\033[K%s (%.0f%%)", phase, pct*100)
	}
	return session.NewService(
		session.WithProcessor(document.NewProcessor(opts...)),
		session.WithProgress(progress),
	), nil
}

// analyze runs one session batch and persists its graph and document
// digests to store.
func (a *App) analyze(ctx context.Context, store storage.Backend, req analysisRequest) (*analysisRun, error) {
	entries, err := ingestion.CollectDocuments(req.paths)
	if err != nil {
		return nil, fmt.Errorf("collecting documents: %w", err)
	}
	if len(entries) == 0 && len(req.urls) == 0 {
		return nil, errors.New("no supported documents found")
	}

	svc, err := a.newService(req.lexicon)
	if err != nil {
		return nil, err
	}

	files := make([]loader.File, len(entries))
	for i, e := range entries {
		files[i] = e.File()
	}

	sess := svc.CreateAnalysisSession(req.name, &req.settings)
	result, err := svc.ProcessDocuments(ctx, sess.ID, files, req.urls)
	fmt.Fprintln(a.Err)
	if err != nil {
		return nil, fmt.Errorf("processing documents: %w", err)
	}
	sess, err = svc.GetSession(sess.ID)
	if err != nil {
		return nil, err
	}

	run := &analysisRun{session: sess, result: result, entries: entries, svc: svc}
	if err := a.persist(ctx, store, run, req); err != nil {
		return nil, err
	}
	return run, nil
}

func (a *App) persist(ctx context.Context, store storage.Backend, run *analysisRun, req analysisRequest) error {
	digests := make(map[string]string, len(run.entries))
	for _, e := range run.entries {
		digests[e.Path] = e.SHA256
	}
	records := make([]storage.DocumentRecord, 0, len(run.session.Documents))
	for _, doc := range run.session.Documents {
		records = append(records, storage.NewDocumentRecord(doc, digests[doc.Metadata.Source]))
	}

	if err := store.SaveSnapshot(ctx, run.session.KnowledgeGraph); err != nil {
		return fmt.Errorf("saving graph: %w", err)
	}
	if err := store.SaveDocuments(ctx, records); err != nil {
		return fmt.Errorf("saving documents: %w", err)
	}

	sources := append(append([]string{}, req.paths...), req.urls...)
	return a.writeMeta(Meta{
		Version: Version,
		Name:    req.name,
		Sources: sources,
		Stats: MetaStats{
			Documents:      len(run.session.Documents),
			Nodes:          run.result.Nodes,
			Edges:          run.result.Edges,
			Visualizations: run.result.Visualizations,
			Errors:         len(run.result.Errors),
		},
		AnalyzedAt: time.Now().UTC().Format(time.RFC3339),
	})
}

func (a *App) printResult(run *analysisRun) {
	r := run.result
	a.success("✓ Analysis complete")
	fmt.Fprintf(a.Out, "  Session:         %s\n", run.session.Name)
	fmt.Fprintf(a.Out, "  Documents:       %d\n", r.DocumentsProcessed)
	fmt.Fprintf(a.Out, "  Nodes:           %d\n", r.Nodes)
	fmt.Fprintf(a.Out, "  Edges:           %d\n", r.Edges)
	fmt.Fprintf(a.Out, "  Visualizations:  %d\n", r.Visualizations)
	for _, doc := range r.Documents {
		fmt.Fprintf(a.Out, "  - %s [%s, %s] %s\n", doc.Title, doc.Metadata.Format, doc.Metadata.Complexity, doc.ID)
	}
	if w := r.Warning(); w != "" {
		a.warn("Warning: %s", w)
	}
}

// WatchCmd re-analyzes a directory whenever its documents change.
type WatchCmd struct {
	Dir         string        `arg:"" optional:"" default:"." help:"Directory to watch"`
	Debounce    time.Duration `default:"2s" help:"Quiet period before a batch of changes is processed"`
	NoVisualize bool          `help:"Skip visualization generation"`
	Lexicon     string        `type:"existingfile" help:"YAML file replacing the built-in keyword tables"`
}

// Run executes the watch command.
func (c *WatchCmd) Run(app *App) error {
	info, err := os.Stat(c.Dir)
	if err != nil {
		return fmt.Errorf("accessing %s: %w", c.Dir, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", c.Dir)
	}

	store, err := app.openStore(false)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	settings := app.sessionSettings()
	if c.NoVisualize {
		settings.AutoVisualize = false
	}
	req := analysisRequest{
		name:     sessionName("", []string{c.Dir}),
		paths:    []string{c.Dir},
		settings: settings,
		lexicon:  c.Lexicon,
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		<-osSignalChannel()
		fmt.Fprintln(app.Out, "\nStopping watch mode...")
		cancel()
	}()

	w := &watcher{app: app, store: store, req: req}
	if err := w.rebuild(ctx); err != nil {
		return err
	}

	fmt.Fprintf(app.Out, "Watching %s for changes (Ctrl+C to stop)\n", c.Dir)
	err = ingestion.WatchDocuments(ctx, c.Dir, c.Debounce, w.handle)
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("watch error: %w", err)
	}

	fmt.Fprintln(app.Out, "Watch mode stopped.")
	return nil
}

// watcher rebuilds the whole graph on every effective change. The graph
// has no per-document removal, so partial updates would leave stale nodes.
type watcher struct {
	app     *App
	store   storage.Backend
	req     analysisRequest
	digests map[string]string
}

func (w *watcher) rebuild(ctx context.Context) error {
	run, err := w.app.analyze(ctx, w.store, w.req)
	if err != nil {
		return err
	}
	w.digests = make(map[string]string, len(run.entries))
	for _, e := range run.entries {
		w.digests[e.RelPath] = e.SHA256
	}
	w.app.printResult(run)
	return nil
}

// changed reports whether the batch differs from the last build.
func (w *watcher) changed(changes ingestion.ChangeSet) bool {
	for _, rel := range changes.Removed {
		if _, ok := w.digests[rel]; ok {
			return true
		}
	}
	for _, e := range changes.Updated {
		if w.digests[e.RelPath] != e.SHA256 {
			return true
		}
	}
	return false
}

func (w *watcher) handle(ctx context.Context, changes ingestion.ChangeSet) error {
	if !w.changed(changes) {
		logger.Debug("Ignoring change batch with identical content",
			"updated", len(changes.Updated), "removed", len(changes.Removed))
		return nil
	}
	fmt.Fprintf(w.app.Out, "\n%d changed, %d removed. Rebuilding...\n", len(changes.Updated), len(changes.Removed))
	return w.rebuild(ctx)
}
