package document

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Benny93/docgraph-go/internal/embeddings"
	"github.com/Benny93/docgraph-go/internal/loader"
)

const sampleText = `Introduction
EUV lithography uses extreme ultraviolet light to pattern each wafer. The mask is important.

Methods
We used a scanner to expose the photoresist on each wafer.
`

func newTestProcessor() *Processor {
	fixed := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	return NewProcessor(
		WithIDGenerator(func() string { return "doc-1" }),
		WithClock(func() time.Time { return fixed }),
	)
}

func TestProcessText(t *testing.T) {
	t.Parallel()
	p := newTestProcessor()

	doc := p.ProcessText(context.Background(), "EUV Notes", sampleText, loader.FormatText, "notes.txt")

	assert.Equal(t, "doc-1", doc.ID)
	assert.Equal(t, "EUV Notes", doc.Title)
	assert.Equal(t, sampleText, doc.Content)
	assert.Equal(t, time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC), doc.CreatedAt)

	assert.Equal(t, loader.FormatText, doc.Metadata.Format)
	assert.Equal(t, "notes.txt", doc.Metadata.Source)
	assert.Equal(t, CountWords(sampleText), doc.Metadata.WordCount)
	assert.Equal(t, 1, doc.Metadata.ReadingTime)
	assert.Equal(t, "wafer", doc.Metadata.KeyTerms[0])
	assert.LessOrEqual(t, len(doc.Metadata.Topics), 5)
	assert.Equal(t, doc.Metadata.KeyTerms[:len(doc.Metadata.Topics)], doc.Metadata.Topics)

	require.Len(t, doc.Sections, 2)
	assert.Equal(t, "doc-1_section_0", doc.Sections[0].ID)
	assert.Equal(t, SectionIntroduction, doc.Sections[0].Type)
	assert.Equal(t, "doc-1_section_1", doc.Sections[1].ID)
	assert.Equal(t, SectionMethodology, doc.Sections[1].Type)
	assert.Contains(t, doc.Sections[1].RelatedConcepts, "wafer")
	for _, s := range doc.Sections {
		assert.GreaterOrEqual(t, s.Importance, 0.0)
		assert.LessOrEqual(t, s.Importance, 1.0)
		assert.Equal(t, embeddings.HashEmbedding(s.Content, embeddings.DocumentDimension), s.Embedding)
		assert.LessOrEqual(t, len(s.RelatedConcepts), 5)
	}

	want := embeddings.HashEmbedding(embeddings.DocumentText("EUV Notes", sampleText), embeddings.DocumentDimension)
	assert.Equal(t, want, doc.Embedding)
	assert.NotNil(t, doc.Suggestions)
}

func TestProcessText_NoHeadings(t *testing.T) {
	t.Parallel()
	p := newTestProcessor()

	doc := p.ProcessText(context.Background(), "plain", "just some lowercase prose without any heading.", loader.FormatText, "plain.txt")
	assert.Empty(t, doc.Sections)
	assert.NotNil(t, doc.Sections)
}

func TestProcessFile(t *testing.T) {
	t.Parallel()
	p := newTestProcessor()
	ctx := context.Background()

	t.Run("TitleFromFileName", func(t *testing.T) {
		t.Parallel()
		doc, err := p.ProcessFile(ctx, loader.File{Name: "dir/lithography.md", Content: []byte(sampleText)})
		require.NoError(t, err)

		assert.Equal(t, "lithography", doc.Title)
		assert.Equal(t, loader.FormatMarkdown, doc.Metadata.Format)
		assert.Equal(t, "dir/lithography.md", doc.Metadata.Source)
	})

	t.Run("UnknownExtensionIsText", func(t *testing.T) {
		t.Parallel()
		doc, err := p.ProcessFile(ctx, loader.File{Name: "data.xyz", Content: []byte("Some content here.")})
		require.NoError(t, err)

		assert.Equal(t, "data", doc.Title)
		assert.Equal(t, loader.FormatText, doc.Metadata.Format)
	})

	t.Run("MalformedPDF", func(t *testing.T) {
		t.Parallel()
		doc, err := p.ProcessFile(ctx, loader.File{Name: "broken.pdf", Content: []byte("not a pdf")})
		require.Error(t, err)
		assert.Nil(t, doc)
		assert.Contains(t, err.Error(), "broken.pdf")
	})
}

func TestProcessURL(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("Resist chemistry notes. Resist again."))
	}))
	t.Cleanup(srv.Close)

	p := newTestProcessor()
	doc, err := p.ProcessURL(context.Background(), srv.URL+"/notes.txt")
	require.NoError(t, err)

	assert.Equal(t, loader.FormatHTML, doc.Metadata.Format)
	assert.Equal(t, srv.URL+"/notes.txt", doc.Metadata.Source)
	assert.Contains(t, doc.Content, "Resist chemistry")

	_, err = p.ProcessURL(context.Background(), "ftp://example.com/file")
	assert.Error(t, err)
}
