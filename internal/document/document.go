// Package document turns raw files and web pages into ProcessedDocuments:
// text, metadata, classified sections, an embedding and visualization
// suggestions.
package document

import (
	"time"

	"github.com/Benny93/docgraph-go/internal/loader"
)

// SectionType classifies a document section.
type SectionType string

const (
	SectionIntroduction SectionType = "introduction"
	SectionMethodology  SectionType = "methodology"
	SectionResults      SectionType = "results"
	SectionConclusion   SectionType = "conclusion"
	SectionReference    SectionType = "reference"
	SectionFigure       SectionType = "figure"
	SectionTable        SectionType = "table"
)

// Complexity is a coarse reading-difficulty tier.
type Complexity string

const (
	ComplexityBasic        Complexity = "basic"
	ComplexityIntermediate Complexity = "intermediate"
	ComplexityAdvanced     Complexity = "advanced"
)

// SuggestionType names the kind of visualization a document lends itself to.
type SuggestionType string

const (
	SuggestChart      SuggestionType = "chart"
	SuggestFlowchart  SuggestionType = "flowchart"
	SuggestTimeline   SuggestionType = "timeline"
	SuggestConceptMap SuggestionType = "concept-map"
)

// Metadata is computed once per document.
type Metadata struct {
	Format      loader.Format `json:"format"`
	Source      string        `json:"source"`
	WordCount   int           `json:"wordCount"`
	ReadingTime int           `json:"readingTime"`
	Language    string        `json:"language"`
	Topics      []string      `json:"topics"`
	Summary     string        `json:"summary"`
	KeyTerms    []string      `json:"keyTerms"`
	Complexity  Complexity    `json:"complexity"`
}

// Section is a headed slice of a document.
type Section struct {
	ID              string      `json:"id"`
	Title           string      `json:"title"`
	Content         string      `json:"content"`
	Type            SectionType `json:"type"`
	Importance      float64     `json:"importance"`
	Embedding       []float64   `json:"embedding,omitempty"`
	RelatedConcepts []string    `json:"relatedConcepts"`
}

// TimelineEvent is a "YYYY: text" line found in a document.
type TimelineEvent struct {
	Year  int    `json:"year"`
	Event string `json:"event"`
}

// Suggestion is a processing-time hint consumed by the visualization engine.
type Suggestion struct {
	Type        SuggestionType `json:"type"`
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Data        map[string]any `json:"data"`
	Confidence  float64        `json:"confidence"`
}

// ProcessedDocument is the result of processing one file or URL.
type ProcessedDocument struct {
	ID          string       `json:"id"`
	Title       string       `json:"title"`
	Content     string       `json:"content"`
	Metadata    Metadata     `json:"metadata"`
	Sections    []Section    `json:"sections"`
	Embedding   []float64    `json:"embedding,omitempty"`
	Suggestions []Suggestion `json:"suggestions"`
	CreatedAt   time.Time    `json:"createdAt"`
}
