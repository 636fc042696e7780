package session

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Benny93/docgraph-go/internal/loader"
)

func populatedSession(t *testing.T) (*Service, *Session) {
	t.Helper()
	svc := newService()
	s := svc.CreateAnalysisSession("Litho Review", nil)
	_, err := svc.ProcessDocuments(context.Background(), s.ID, []loader.File{
		textFile("resist.txt", resistText),
		textFile("mask.txt", maskText),
	}, nil)
	require.NoError(t, err)

	got, err := svc.GetSession(s.ID)
	require.NoError(t, err)
	return svc, got
}

func TestExportSession_JSONRoundTrip(t *testing.T) {
	t.Parallel()

	svc, s := populatedSession(t)
	out, err := svc.ExportSession(s.ID, FormatJSON)
	require.NoError(t, err)

	assert.Equal(t, "application/json", out.ContentType)
	assert.Equal(t, "litho_review.json", out.Filename)

	var dump Dump
	require.NoError(t, json.Unmarshal(out.Data, &dump))

	assert.Equal(t, Summarize(s), dump.Summary)
	assert.Equal(t, Summarize(s), Summarize(dump.Session))
	assert.Equal(t, s.ID, dump.Session.ID)
	assert.Equal(t, fixedTime, dump.ExportedAt)
}

func TestExportSession_Formats(t *testing.T) {
	t.Parallel()

	svc, s := populatedSession(t)

	tests := []struct {
		format      ExportFormat
		contentType string
		filename    string
		check       func(t *testing.T, data []byte)
	}{
		{
			format:      FormatHTML,
			contentType: "text/html",
			filename:    "litho_review.html",
			check: func(t *testing.T, data []byte) {
				html := string(data)
				assert.True(t, strings.HasPrefix(html, "<!DOCTYPE html>"))
				assert.Contains(t, html, "<title>Litho Review - Analysis Report</title>")
				assert.Contains(t, html, "<h3>resist</h3>")
				assert.Contains(t, html, "Key Concepts")
			},
		},
		{
			format:      FormatPDF,
			contentType: "application/pdf",
			filename:    "litho_review.pdf",
			check: func(t *testing.T, data []byte) {
				assert.True(t, bytes.HasPrefix(data, []byte("%PDF-")))
				assert.Contains(t, string(data), "%%EOF")
			},
		},
		{
			format:      FormatText,
			contentType: "text/plain",
			filename:    "litho_review.txt",
			check: func(t *testing.T, data []byte) {
				text := string(data)
				assert.True(t, strings.HasPrefix(text, "Litho Review\n"))
				assert.Contains(t, text, "Documents: 2\n")
				assert.Contains(t, text, "## mask\n")
			},
		},
	}

	for _, tt := range tests {
		t.Run(string(tt.format), func(t *testing.T) {
			t.Parallel()
			out, err := svc.ExportSession(s.ID, tt.format)
			require.NoError(t, err)
			assert.Equal(t, tt.contentType, out.ContentType)
			assert.Equal(t, tt.filename, out.Filename)
			tt.check(t, out.Data)
		})
	}
}

func TestExportSession_EscapesHTML(t *testing.T) {
	t.Parallel()

	svc := newService()
	s := svc.CreateAnalysisSession("<script>alert(1)</script>", nil)

	out, err := svc.ExportSession(s.ID, FormatHTML)
	require.NoError(t, err)
	assert.NotContains(t, string(out.Data), "<script>")
	assert.Contains(t, string(out.Data), "No documents.")
}

func TestExportSession_Unsupported(t *testing.T) {
	t.Parallel()

	svc := newService()
	s := svc.CreateAnalysisSession("s", nil)

	_, err := svc.ExportSession(s.ID, "docx")
	assert.ErrorIs(t, err, ErrUnsupportedExport)
}

func TestExportFilename_FallsBackToID(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "abc.json", exportFilename(&Session{ID: "abc", Name: "!!!"}, FormatJSON))
}
