package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Benny93/docgraph-go/internal/config"
	"github.com/Benny93/docgraph-go/internal/document"
	"github.com/Benny93/docgraph-go/internal/ingestion"
	"github.com/Benny93/docgraph-go/internal/session"
	"github.com/Benny93/docgraph-go/internal/storage"
	"github.com/Benny93/docgraph-go/internal/visualization"
)

const (
	resistDoc = "# Photoresist Basics\n\nPhotoresist is part of lithography. The photoresist coats the wafer before exposure.\n"
	maskDoc   = "# Mask Design\n\nThe photomask defines the pattern. Photoresist reacts to light through the mask.\n"
)

// execute runs the CLI with args and returns what it printed to stdout.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cli := &CLI{Out: &out, Err: &errOut}
	err := cli.Execute(args)
	return out.String(), err
}

func writeDocs(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		path := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	return dir
}

func TestAnalyzeWorkflow(t *testing.T) {
	t.Parallel()

	docs := writeDocs(t, map[string]string{
		"resist.md":   resistDoc,
		"mask.md":     maskDoc,
		"image.png":   "not a document",
		".gitignore":  "drafts/\n",
		"drafts/x.md": "# Draft\n\nUnfinished notes about etching.\n",
	})
	dataDir := filepath.Join(t.TempDir(), "data")
	exportDir := t.TempDir()

	out, err := execute(t, "--data-dir", dataDir, "analyze", docs, "--name", "Litho Review", "--export", "json", "--export-dir", exportDir)
	require.NoError(t, err)
	assert.Contains(t, out, "Analysis complete")
	assert.Contains(t, out, "Documents:       2")
	assert.FileExists(t, filepath.Join(dataDir, metaFileName))
	assert.FileExists(t, filepath.Join(exportDir, "litho_review.json"))

	t.Run("Status", func(t *testing.T) {
		out, err := execute(t, "--data-dir", dataDir, "status")
		require.NoError(t, err)
		assert.Contains(t, out, "Litho Review")
		assert.Contains(t, out, "Documents:       2")
	})

	t.Run("Search", func(t *testing.T) {
		out, err := execute(t, "--data-dir", dataDir, "search", "photoresist", "-n", "3")
		require.NoError(t, err)
		assert.Contains(t, out, "concept_photoresist")
	})

	t.Run("SearchNoMatch", func(t *testing.T) {
		out, err := execute(t, "--data-dir", dataDir, "search", "zebrafish")
		require.NoError(t, err)
		assert.Contains(t, out, "No results found")
	})

	t.Run("Query", func(t *testing.T) {
		out, err := execute(t, "--data-dir", dataDir, "query", "photoresist")
		require.NoError(t, err)
		assert.Contains(t, out, "concept_photoresist")
	})

	t.Run("Network", func(t *testing.T) {
		out, err := execute(t, "--data-dir", dataDir, "network", "concept_photoresist", "-d", "1")
		require.NoError(t, err)
		assert.Contains(t, out, "Network of concept_photoresist (depth 1)")
		assert.Contains(t, out, "mentions")
	})

	t.Run("NetworkUnknownNode", func(t *testing.T) {
		out, err := execute(t, "--data-dir", dataDir, "network", "concept_missing")
		require.NoError(t, err)
		assert.Contains(t, out, "not found")
	})

	t.Run("Related", func(t *testing.T) {
		store := storage.NewBadgerBackend()
		require.NoError(t, store.Initialize(filepath.Join(dataDir, storeDirName), true))
		records, err := store.LoadDocuments(context.Background())
		require.NoError(t, store.Close())
		require.NoError(t, err)
		require.Len(t, records, 2)
		for _, r := range records {
			assert.Len(t, r.SHA256, 64, "file digests are persisted")
		}

		// Records are ordered by source, so mask.md comes first.
		out, err := execute(t, "--data-dir", dataDir, "related", records[0].ID)
		require.NoError(t, err)
		assert.Contains(t, out, "resist")
		assert.Contains(t, out, records[1].ID)
	})

	t.Run("Clean", func(t *testing.T) {
		_, err := execute(t, "--data-dir", dataDir, "clean", "--force")
		require.NoError(t, err)
		assert.NoDirExists(t, dataDir)

		_, err = execute(t, "--data-dir", dataDir, "status")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "docgraph analyze")
	})
}

func TestAnalyzeCmd_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		args    func(docs string) []string
		wantErr string
	}{
		{
			name:    "MissingPath",
			args:    func(string) []string { return []string{"analyze", "/nonexistent/path"} },
			wantErr: "accessing /nonexistent/path",
		},
		{
			name:    "NoDocuments",
			args:    func(string) []string { return []string{"analyze", writeDocs(t, map[string]string{"a.png": "x"})} },
			wantErr: "no supported documents found",
		},
		{
			name:    "UnsupportedExport",
			args:    func(docs string) []string { return []string{"analyze", docs, "--export", "docx"} },
			wantErr: session.ErrUnsupportedExport.Error(),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			docs := writeDocs(t, map[string]string{"resist.md": resistDoc})
			args := append([]string{"--data-dir", t.TempDir()}, tt.args(docs)...)
			_, err := execute(t, args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestAnalyzeCmd_ExplicitFileAndWarning(t *testing.T) {
	t.Parallel()

	docs := writeDocs(t, map[string]string{
		"resist.md":  resistDoc,
		"broken.pdf": "not really a pdf",
	})
	dataDir := t.TempDir()

	var out, errOut bytes.Buffer
	cli := &CLI{Out: &out, Err: &errOut}
	err := cli.Execute([]string{
		"--data-dir", dataDir, "analyze",
		filepath.Join(docs, "resist.md"), filepath.Join(docs, "broken.pdf"),
		"--no-visualize",
	})
	require.NoError(t, err)
	assert.Contains(t, out.String(), "Documents:       1")
	assert.Contains(t, out.String(), "Visualizations:  0")
	assert.Contains(t, errOut.String(), "Failed to process")

	var meta Meta
	data, err := os.ReadFile(filepath.Join(dataDir, metaFileName))
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, &meta))
	assert.Equal(t, 1, meta.Stats.Documents)
	assert.Equal(t, 1, meta.Stats.Errors)
	assert.Equal(t, "dev", meta.Version)
}

func TestQueryCommands_NoGraph(t *testing.T) {
	t.Parallel()

	for _, args := range [][]string{
		{"search", "photoresist"},
		{"query", "photoresist"},
		{"network", "concept_photoresist"},
		{"related", "doc-1"},
		{"status"},
		{"clean", "--force"},
	} {
		t.Run(args[0], func(t *testing.T) {
			t.Parallel()

			_, err := execute(t, append([]string{"--data-dir", filepath.Join(t.TempDir(), "none")}, args...)...)
			assert.Error(t, err)
		})
	}
}

func TestVersionCmd(t *testing.T) {
	t.Parallel()

	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "docgraph dev\n", out)
}

func TestSessionName(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		given string
		paths []string
		want  string
	}{
		{"Explicit", "Review", []string{"docs"}, "Review"},
		{"FromPath", "", []string{"/tmp/papers"}, "papers"},
		{"FromFile", "", []string{"/tmp/papers/a.md"}, "a.md"},
		{"NoPaths", "", nil, "docgraph"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, sessionName(tt.given, tt.paths))
		})
	}
}

func TestApp_SessionSettings(t *testing.T) {
	t.Parallel()

	cfg := config.Default()
	cfg.Session.AutoVisualize = false
	cfg.Session.ComplexityPreference = "advanced"
	cfg.Session.VisualizationPreferences = []string{"timeline", "bogus"}
	cfg.Session.MaxConcurrency = 3
	cfg.Session.FetchTimeout = 5 * time.Second

	settings := (&App{Config: cfg}).sessionSettings()

	assert.False(t, settings.AutoVisualize)
	assert.True(t, settings.IncludeKnowledgeGraph)
	assert.Equal(t, document.ComplexityAdvanced, settings.ComplexityPreference)
	assert.Equal(t, []visualization.Type{visualization.TypeTimeline}, settings.VisualizationPreferences)
	assert.Equal(t, session.ProcessingOptions{MaxConcurrency: 3, FetchTimeout: 5 * time.Second}, settings.Processing)
}

func TestWatcher_Changed(t *testing.T) {
	t.Parallel()

	w := &watcher{digests: map[string]string{"a.md": "111", "b.md": "222"}}

	tests := []struct {
		name    string
		changes ingestion.ChangeSet
		want    bool
	}{
		{"Empty", ingestion.ChangeSet{}, false},
		{"SameContent", ingestion.ChangeSet{Updated: []ingestion.FileEntry{{RelPath: "a.md", SHA256: "111"}}}, false},
		{"Modified", ingestion.ChangeSet{Updated: []ingestion.FileEntry{{RelPath: "a.md", SHA256: "999"}}}, true},
		{"Created", ingestion.ChangeSet{Updated: []ingestion.FileEntry{{RelPath: "c.md", SHA256: "333"}}}, true},
		{"RemovedKnown", ingestion.ChangeSet{Removed: []string{"b.md"}}, true},
		{"RemovedUnknown", ingestion.ChangeSet{Removed: []string{"z.md"}}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, w.changed(tt.changes))
		})
	}
}

func TestWatcher_Rebuild(t *testing.T) {
	t.Parallel()

	docs := writeDocs(t, map[string]string{"resist.md": resistDoc})
	var out, errOut bytes.Buffer
	app := &App{Config: config.Default(), Out: &out, Err: &errOut}
	app.Config.DataDir = t.TempDir()

	store := storage.NewMemoryBackend()
	require.NoError(t, store.Initialize("", false))

	w := &watcher{
		app:   app,
		store: store,
		req: analysisRequest{
			name:     "watched",
			paths:    []string{docs},
			settings: session.DefaultSettings(),
		},
	}
	ctx := context.Background()
	require.NoError(t, w.rebuild(ctx))
	assert.Len(t, w.digests, 1)
	nodes := store.NodeCount()
	assert.Positive(t, nodes)

	// Identical content is ignored.
	same := ingestion.ChangeSet{Updated: []ingestion.FileEntry{{RelPath: "resist.md", SHA256: w.digests["resist.md"]}}}
	require.NoError(t, w.handle(ctx, same))
	assert.NotContains(t, out.String(), "Rebuilding")

	require.NoError(t, os.WriteFile(filepath.Join(docs, "mask.md"), []byte(maskDoc), 0o644))
	added := ingestion.ChangeSet{Updated: []ingestion.FileEntry{{RelPath: "mask.md", SHA256: "new"}}}
	require.NoError(t, w.handle(ctx, added))
	assert.Contains(t, out.String(), "Rebuilding")
	assert.Len(t, w.digests, 2)
	assert.Greater(t, store.NodeCount(), nodes)

	records, err := store.LoadDocuments(ctx)
	require.NoError(t, err)
	assert.Len(t, records, 2)
}
