package session

import (
	"bytes"
	"cmp"
	"encoding/json"
	"fmt"
	"html/template"
	"slices"
	"strings"
	"time"

	"github.com/jung-kurt/gofpdf"

	"github.com/Benny93/docgraph-go/internal/graph"
)

// ExportFormat names a session export encoding.
type ExportFormat string

const (
	FormatJSON ExportFormat = "json"
	FormatHTML ExportFormat = "html"
	FormatPDF  ExportFormat = "pdf"
	FormatText ExportFormat = "text"
)

// ExportFormats lists the supported formats.
var ExportFormats = []ExportFormat{FormatJSON, FormatHTML, FormatPDF, FormatText}

var contentTypes = map[ExportFormat]string{
	FormatJSON: "application/json",
	FormatHTML: "text/html",
	FormatPDF:  "application/pdf",
	FormatText: "text/plain",
}

var extensions = map[ExportFormat]string{
	FormatJSON: "json",
	FormatHTML: "html",
	FormatPDF:  "pdf",
	FormatText: "txt",
}

// Export is an encoded session ready to be written or downloaded.
type Export struct {
	Data        []byte
	ContentType string
	Filename    string
}

// Summary holds the headline counts of a session.
type Summary struct {
	Documents      int `json:"documents"`
	Visualizations int `json:"visualizations"`
	Nodes          int `json:"nodes"`
	Edges          int `json:"edges"`
}

// Dump is the JSON export of a session.
type Dump struct {
	Session    *Session  `json:"session"`
	Summary    Summary   `json:"summary"`
	ExportedAt time.Time `json:"exportedAt"`
}

// Summarize counts the contents of a session.
func Summarize(s *Session) Summary {
	return Summary{
		Documents:      len(s.Documents),
		Visualizations: len(s.Visualizations),
		Nodes:          s.KnowledgeGraph.NodeCount(),
		Edges:          s.KnowledgeGraph.EdgeCount(),
	}
}

// ExportSession encodes the session in the requested format.
func (s *Service) ExportSession(sessionID string, format ExportFormat) (*Export, error) {
	ct, ok := contentTypes[format]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedExport, format)
	}
	sess, err := s.GetSession(sessionID)
	if err != nil {
		return nil, err
	}

	var data []byte
	switch format {
	case FormatJSON:
		data, err = exportJSON(sess, s.now())
	case FormatHTML:
		data, err = exportHTML(sess, s.now())
	case FormatPDF:
		data, err = exportPDF(sess, s.now())
	case FormatText:
		data = []byte(reportText(sess, s.now()))
	}
	if err != nil {
		return nil, fmt.Errorf("export %s: %w", format, err)
	}

	return &Export{
		Data:        data,
		ContentType: ct,
		Filename:    exportFilename(sess, format),
	}, nil
}

func exportFilename(s *Session, format ExportFormat) string {
	base := graph.Slug(s.Name)
	if base == "" {
		base = s.ID
	}
	return fmt.Sprintf("%s.%s", base, extensions[format])
}

func exportJSON(s *Session, now time.Time) ([]byte, error) {
	return json.MarshalIndent(Dump{Session: s, Summary: Summarize(s), ExportedAt: now}, "", "  ")
}

// reportDocument is the per-document row shared by the HTML, PDF and text
// reports.
type reportDocument struct {
	Title      string
	Format     string
	Words      int
	Reading    int
	Complexity string
	Topics     string
	Summary    string
}

type reportData struct {
	Name           string
	ID             string
	Generated      string
	Summary        Summary
	Documents      []reportDocument
	Visualizations []reportVisualization
	TopConcepts    []reportConcept
}

type reportVisualization struct {
	Title      string
	Type       string
	Confidence string
}

type reportConcept struct {
	Name       string
	Type       string
	Frequency  int
	Importance string
}

const topConceptCount = 10

func buildReport(s *Session, now time.Time) reportData {
	r := reportData{
		Name:      s.Name,
		ID:        s.ID,
		Generated: now.Format("2006-01-02 15:04:05"),
		Summary:   Summarize(s),
	}
	for _, d := range s.Documents {
		r.Documents = append(r.Documents, reportDocument{
			Title:      d.Title,
			Format:     string(d.Metadata.Format),
			Words:      d.Metadata.WordCount,
			Reading:    d.Metadata.ReadingTime,
			Complexity: string(d.Metadata.Complexity),
			Topics:     strings.Join(d.Metadata.Topics, ", "),
			Summary:    d.Metadata.Summary,
		})
	}
	for _, v := range s.Visualizations {
		r.Visualizations = append(r.Visualizations, reportVisualization{
			Title:      v.Title,
			Type:       string(v.Type),
			Confidence: fmt.Sprintf("%.2f", v.Confidence),
		})
	}
	r.TopConcepts = topConcepts(s.KnowledgeGraph)
	return r
}

// topConcepts ranks concept and entity nodes by frequency, then importance.
func topConcepts(snap *graph.Snapshot) []reportConcept {
	if snap == nil {
		return nil
	}
	var nodes []*graph.GraphNode
	for _, n := range snap.Nodes {
		if n.Label == graph.NodeConcept || n.Label == graph.NodeEntity {
			nodes = append(nodes, n)
		}
	}
	slices.SortStableFunc(nodes, func(a, b *graph.GraphNode) int {
		if c := cmp.Compare(b.Properties.Frequency, a.Properties.Frequency); c != 0 {
			return c
		}
		return cmp.Compare(b.Properties.Importance, a.Properties.Importance)
	})
	if len(nodes) > topConceptCount {
		nodes = nodes[:topConceptCount]
	}
	out := make([]reportConcept, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, reportConcept{
			Name:       n.Name,
			Type:       string(n.Label),
			Frequency:  n.Properties.Frequency,
			Importance: fmt.Sprintf("%.2f", n.Properties.Importance),
		})
	}
	return out
}

var reportTemplate = template.Must(template.New("report").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>{{.Name}} - Analysis Report</title>
<style>
body { font-family: -apple-system, "Segoe UI", Helvetica, Arial, sans-serif; margin: 2rem auto; max-width: 960px; color: #1f2937; }
h1 { border-bottom: 2px solid #3B82F6; padding-bottom: .5rem; }
.stats { display: flex; gap: 1rem; margin: 1rem 0; }
.stat { background: #EFF6FF; border-radius: 8px; padding: 1rem; flex: 1; text-align: center; }
.stat strong { display: block; font-size: 1.6rem; color: #3B82F6; }
.doc { border: 1px solid #E5E7EB; border-radius: 8px; padding: 1rem; margin-bottom: 1rem; }
.meta { color: #6B7280; font-size: .9rem; }
table { border-collapse: collapse; width: 100%; }
th, td { text-align: left; padding: .4rem .6rem; border-bottom: 1px solid #E5E7EB; }
</style>
</head>
<body>
<h1>{{.Name}}</h1>
<p class="meta">Session {{.ID}} &middot; generated {{.Generated}}</p>
<div class="stats">
<div class="stat"><strong>{{.Summary.Documents}}</strong>Documents</div>
<div class="stat"><strong>{{.Summary.Visualizations}}</strong>Visualizations</div>
<div class="stat"><strong>{{.Summary.Nodes}}</strong>Nodes</div>
<div class="stat"><strong>{{.Summary.Edges}}</strong>Edges</div>
</div>
<h2>Documents</h2>
{{range .Documents}}<div class="doc">
<h3>{{.Title}}</h3>
<p class="meta">{{.Format}} &middot; {{.Words}} words &middot; {{.Reading}} min &middot; {{.Complexity}}</p>
{{if .Topics}}<p><em>Topics:</em> {{.Topics}}</p>{{end}}
<p>{{.Summary}}</p>
</div>
{{else}}<p>No documents.</p>
{{end}}
{{if .TopConcepts}}<h2>Key Concepts</h2>
<table>
<tr><th>Name</th><th>Type</th><th>Frequency</th><th>Importance</th></tr>
{{range .TopConcepts}}<tr><td>{{.Name}}</td><td>{{.Type}}</td><td>{{.Frequency}}</td><td>{{.Importance}}</td></tr>
{{end}}</table>
{{end}}
{{if .Visualizations}}<h2>Visualizations</h2>
<table>
<tr><th>Title</th><th>Type</th><th>Confidence</th></tr>
{{range .Visualizations}}<tr><td>{{.Title}}</td><td>{{.Type}}</td><td>{{.Confidence}}</td></tr>
{{end}}</table>
{{end}}
</body>
</html>
`))

func exportHTML(s *Session, now time.Time) ([]byte, error) {
	var buf bytes.Buffer
	if err := reportTemplate.Execute(&buf, buildReport(s, now)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func reportText(s *Session, now time.Time) string {
	r := buildReport(s, now)
	var b strings.Builder

	fmt.Fprintf(&b, "%s\n", r.Name)
	fmt.Fprintf(&b, "Session: %s\nGenerated: %s\n\n", r.ID, r.Generated)
	fmt.Fprintf(&b, "Documents: %d\nVisualizations: %d\nNodes: %d\nEdges: %d\n",
		r.Summary.Documents, r.Summary.Visualizations, r.Summary.Nodes, r.Summary.Edges)

	for _, d := range r.Documents {
		fmt.Fprintf(&b, "\n## %s\n", d.Title)
		fmt.Fprintf(&b, "%s, %d words, %d min, %s\n", d.Format, d.Words, d.Reading, d.Complexity)
		if d.Topics != "" {
			fmt.Fprintf(&b, "Topics: %s\n", d.Topics)
		}
		if d.Summary != "" {
			fmt.Fprintf(&b, "%s\n", d.Summary)
		}
	}

	if len(r.TopConcepts) > 0 {
		b.WriteString("\nKey concepts:\n")
		for _, c := range r.TopConcepts {
			fmt.Fprintf(&b, "  %s (%s) x%d\n", c.Name, c.Type, c.Frequency)
		}
	}
	return b.String()
}

func exportPDF(s *Session, now time.Time) ([]byte, error) {
	r := buildReport(s, now)

	pdf := gofpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetMargins(20, 20, 20)
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 16)
	pdf.Cell(0, 10, tr(r.Name))
	pdf.Ln(15)

	pdf.SetFont("Arial", "", 10)
	pdf.Cell(0, 8, fmt.Sprintf("Session %s - generated %s", r.ID, r.Generated))
	pdf.Ln(10)
	pdf.Cell(0, 8, fmt.Sprintf("Documents: %d   Visualizations: %d   Nodes: %d   Edges: %d",
		r.Summary.Documents, r.Summary.Visualizations, r.Summary.Nodes, r.Summary.Edges))
	pdf.Ln(12)

	for _, d := range r.Documents {
		pdf.SetFont("Arial", "B", 12)
		pdf.MultiCell(0, 7, tr(d.Title), "", "L", false)
		pdf.SetFont("Arial", "I", 9)
		pdf.Cell(0, 6, tr(fmt.Sprintf("%s, %d words, %d min, %s", d.Format, d.Words, d.Reading, d.Complexity)))
		pdf.Ln(6)
		pdf.SetFont("Arial", "", 10)
		if d.Topics != "" {
			pdf.MultiCell(0, 5, tr("Topics: "+d.Topics), "", "L", false)
		}
		if d.Summary != "" {
			pdf.MultiCell(0, 5, tr(d.Summary), "", "L", false)
		}
		pdf.Ln(4)
	}

	if len(r.TopConcepts) > 0 {
		pdf.SetFont("Arial", "B", 12)
		pdf.Cell(0, 8, "Key Concepts")
		pdf.Ln(9)

		widths := []float64{80, 30, 30, 30}
		pdf.SetFont("Arial", "B", 10)
		pdf.SetFillColor(239, 246, 255)
		for i, h := range []string{"Name", "Type", "Frequency", "Importance"} {
			pdf.CellFormat(widths[i], 7, h, "1", 0, "L", true, 0, "")
		}
		pdf.Ln(-1)

		pdf.SetFont("Arial", "", 9)
		for _, c := range r.TopConcepts {
			pdf.CellFormat(widths[0], 6, tr(c.Name), "1", 0, "L", false, 0, "")
			pdf.CellFormat(widths[1], 6, c.Type, "1", 0, "L", false, 0, "")
			pdf.CellFormat(widths[2], 6, fmt.Sprint(c.Frequency), "1", 0, "R", false, 0, "")
			pdf.CellFormat(widths[3], 6, c.Importance, "1", 0, "R", false, 0, "")
			pdf.Ln(-1)
		}
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
