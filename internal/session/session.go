// Package session is the application service of docgraph: it owns analysis
// sessions, runs document batches through processing, graph building and
// visualization, and exports session state.
package session

import (
	"errors"
	"slices"
	"strings"
	"time"

	"github.com/Benny93/docgraph-go/internal/document"
	"github.com/Benny93/docgraph-go/internal/graph"
	"github.com/Benny93/docgraph-go/internal/visualization"
)

var (
	// ErrSessionNotFound is returned for unknown session IDs.
	ErrSessionNotFound = errors.New("session not found")

	// ErrUnsupportedExport is returned for unknown export formats.
	ErrUnsupportedExport = errors.New("unsupported export format")
)

// ProcessingOptions bound the work of one ProcessDocuments call.
type ProcessingOptions struct {
	// MaxConcurrency limits how many items are processed at once.
	// Zero means unbounded.
	MaxConcurrency int `json:"maxConcurrency"`

	// FetchTimeout bounds each URL fetch. Zero means no timeout.
	FetchTimeout time.Duration `json:"fetchTimeout"`
}

// Settings control how a session processes and visualizes documents.
type Settings struct {
	AutoVisualize         bool                `json:"autoVisualize"`
	IncludeKnowledgeGraph bool                `json:"includeKnowledgeGraph"`
	ComplexityPreference  document.Complexity `json:"complexityPreference"`

	// VisualizationPreferences restricts generated visualizations to
	// these types when non-empty.
	VisualizationPreferences []visualization.Type `json:"visualizationPreferences"`

	Processing ProcessingOptions `json:"processing"`
}

// DefaultSettings returns the settings of a session created without any.
func DefaultSettings() Settings {
	return Settings{
		AutoVisualize:            true,
		IncludeKnowledgeGraph:    true,
		ComplexityPreference:     document.ComplexityIntermediate,
		VisualizationPreferences: []visualization.Type{},
	}
}

// Session is a read-only view of an analysis session.
type Session struct {
	ID             string                         `json:"id"`
	Name           string                         `json:"name"`
	Documents      []*document.ProcessedDocument  `json:"documents"`
	KnowledgeGraph *graph.Snapshot                `json:"knowledgeGraph"`
	Visualizations []*visualization.Visualization `json:"visualizations"`
	CreatedAt      time.Time                      `json:"createdAt"`
	UpdatedAt      time.Time                      `json:"updatedAt"`
	Settings       Settings                       `json:"settings"`
}

// Document returns the session document with the given ID, or nil.
func (s *Session) Document(id string) *document.ProcessedDocument {
	for _, d := range s.Documents {
		if d.ID == id {
			return d
		}
	}
	return nil
}

// AnalysisResult reports one ProcessDocuments call.
type AnalysisResult struct {
	SessionID string `json:"sessionId"`

	// Success is true whenever the batch ran, even if every item failed;
	// callers must inspect Errors.
	Success bool `json:"success"`

	DocumentsProcessed int                           `json:"documentsProcessed"`
	Documents          []*document.ProcessedDocument `json:"documents"`
	Visualizations     int                           `json:"visualizations"`
	Nodes              int                           `json:"nodes"`
	Edges              int                           `json:"edges"`
	Errors             []string                      `json:"errors"`
}

// Warning joins the per-item errors into one user-facing message.
func (r *AnalysisResult) Warning() string {
	return strings.Join(r.Errors, "; ")
}

func (s *Session) clone() *Session {
	c := *s
	c.Documents = slices.Clone(s.Documents)
	c.Visualizations = slices.Clone(s.Visualizations)
	c.Settings.VisualizationPreferences = slices.Clone(s.Settings.VisualizationPreferences)
	return &c
}
