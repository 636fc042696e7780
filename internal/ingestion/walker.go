package ingestion

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-git/go-git/v5/plumbing/format/gitignore"

	"github.com/Benny93/docgraph-go/internal/loader"
)

// FileEntry represents a document file to be processed.
type FileEntry struct {
	// Path is the file path as found on disk.
	Path string

	// RelPath is the path relative to the walked root.
	RelPath string

	// Format is the extraction format detected from the extension.
	Format loader.Format

	// Content is the file content.
	Content []byte

	// SHA256 is the hash of the file content.
	SHA256 string
}

// File converts the entry into a loader input.
func (e FileEntry) File() loader.File {
	return loader.File{Name: e.Path, Content: e.Content}
}

// Ignore files read from a walked root, in addition to the defaults.
var ignoreFiles = []string{".gitignore", ".docgraphignore"}

// Default patterns to ignore (in addition to ignore files).
var defaultIgnorePatterns = []string{
	".git/",
	"node_modules/",
	".docgraph/",
	"vendor/",
	".venv/",
	"venv/",
	"__pycache__/",
	".DS_Store",
	"Thumbs.db",
	"~$*",
}

// WalkDocuments walks root and returns every supported document file that
// is not excluded by the default patterns or the root's ignore files.
func WalkDocuments(root string) ([]FileEntry, error) {
	patterns, err := loadIgnorePatterns(root)
	if err != nil {
		return nil, fmt.Errorf("loading ignore files: %w", err)
	}
	return walkWithMatcher(root, newMatcher(patterns))
}

func walkWithMatcher(root string, matcher gitignore.Matcher) ([]FileEntry, error) {
	var entries []FileEntry

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if d.IsDir() {
			if path != root && shouldSkipDir(d.Name(), path, root, matcher) {
				return filepath.SkipDir
			}
			return nil
		}

		if !loader.IsSupported(d.Name()) {
			return nil
		}

		relPath, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		if matcher.Match(splitPath(relPath), false) {
			return nil
		}

		entry, err := readEntry(path, relPath)
		if err != nil {
			return err
		}
		entries = append(entries, entry)
		return nil
	})

	return entries, err
}

// CollectDocuments expands a mix of files and directories into entries.
// Directories are walked with WalkDocuments; files named explicitly are
// always included, whatever their extension.
func CollectDocuments(paths []string) ([]FileEntry, error) {
	var entries []FileEntry
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, err
		}
		if info.IsDir() {
			found, err := WalkDocuments(p)
			if err != nil {
				return nil, fmt.Errorf("walking %s: %w", p, err)
			}
			entries = append(entries, found...)
			continue
		}
		entry, err := readEntry(p, filepath.Base(p))
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func readEntry(path, relPath string) (FileEntry, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return FileEntry{}, err
	}
	hash := sha256.Sum256(content)
	return FileEntry{
		Path:    path,
		RelPath: relPath,
		Format:  loader.DetectFormat(path),
		Content: content,
		SHA256:  hex.EncodeToString(hash[:]),
	}, nil
}

// loadIgnorePatterns loads patterns from every ignore file in root.
func loadIgnorePatterns(root string) ([]gitignore.Pattern, error) {
	var patterns []gitignore.Pattern
	for _, name := range ignoreFiles {
		content, err := os.ReadFile(filepath.Join(root, name))
		if os.IsNotExist(err) {
			continue
		}
		if err != nil {
			return nil, err
		}

		for _, line := range strings.Split(string(content), "\n") {
			line = strings.TrimSpace(line)
			if line == "" || strings.HasPrefix(line, "#") {
				continue
			}
			patterns = append(patterns, gitignore.ParsePattern(line, nil))
		}
	}
	return patterns, nil
}

// newMatcher combines the default patterns with loaded ones.
func newMatcher(patterns []gitignore.Pattern) gitignore.Matcher {
	all := make([]gitignore.Pattern, 0, len(defaultIgnorePatterns)+len(patterns))
	for _, p := range defaultIgnorePatterns {
		all = append(all, gitignore.ParsePattern(p, nil))
	}
	all = append(all, patterns...)
	return gitignore.NewMatcher(all)
}

// shouldSkipDir checks if a directory should be skipped.
func shouldSkipDir(name, path, root string, matcher gitignore.Matcher) bool {
	if name == ".git" || name == ".docgraph" {
		return true
	}

	relPath, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	return matcher.Match(splitPath(relPath), true)
}

// splitPath splits a path into its components.
func splitPath(path string) []string {
	return strings.Split(path, string(filepath.Separator))
}
