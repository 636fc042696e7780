package loader

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

var reManyNewlines = regexp.MustCompile(`\n{3,}`)

// PDFExtractor shells out to poppler's pdftotext.
type PDFExtractor struct {
	Binary  string
	Timeout time.Duration
}

// NewPDFExtractor returns an extractor using pdftotext from PATH with a
// 30 second timeout.
func NewPDFExtractor() PDFExtractor {
	return PDFExtractor{Binary: "pdftotext", Timeout: 30 * time.Second}
}

// Extract implements Extractor.
func (p PDFExtractor) Extract(ctx context.Context, input []byte) (string, error) {
	if !bytes.HasPrefix(bytes.TrimLeft(input, "\x00\t\r\n "), []byte("%PDF-")) {
		return "", errors.New("not a PDF file: missing %PDF header")
	}

	bin, err := exec.LookPath(p.Binary)
	if err != nil {
		return "", fmt.Errorf("%s not found in PATH: %w", p.Binary, err)
	}

	tmpDir, err := os.MkdirTemp("", "docgraph-pdf-")
	if err != nil {
		return "", fmt.Errorf("failed to create temp dir: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	pdfPath := filepath.Join(tmpDir, "input.pdf")
	if err := os.WriteFile(pdfPath, input, 0o600); err != nil {
		return "", fmt.Errorf("failed to write temp PDF: %w", err)
	}

	if p.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, bin,
		"-enc", "UTF-8",
		"-eol", "unix",
		"-nopgbrk",
		"-q",
		pdfPath,
		"-",
	)
	cmd.Env = append(os.Environ(), "LANG=C.UTF-8", "LC_ALL=C.UTF-8")

	out, err := cmd.CombinedOutput()
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return "", errors.New("pdftotext timed out")
	}
	if err != nil {
		return "", fmt.Errorf("pdftotext failed: %w: %s", err, bytes.TrimSpace(out))
	}

	text := strings.TrimSpace(string(out))
	if text == "" {
		return "", ErrEmptyDocument
	}
	return reManyNewlines.ReplaceAllString(text, "\n\n") + "\n", nil
}
