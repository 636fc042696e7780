package visualization

import (
	"fmt"
	"maps"

	"github.com/Benny93/docgraph-go/internal/document"
)

// Palette is the fixed colour scheme shared by every template.
var Palette = []string{"#3b82f6", "#10b981", "#f59e0b", "#ef4444", "#8b5cf6", "#06b6d4"}

// Template builds a visualization from a processing-time suggestion.
type Template struct {
	Type          Type
	Interactivity []Interaction
	Explanation   string
	AltText       string
	Width         int
	Height        int

	// Data derives the payload from the suggestion. Nil copies the
	// suggestion data as is.
	Data func(s document.Suggestion) map[string]any
}

// Config returns the static rendering configuration of the template.
func (t Template) Config() Config {
	return Config{
		Width:       t.Width,
		Height:      t.Height,
		ColorScheme: append([]string(nil), Palette...),
		Animations:  true,
		Responsive:  true,
		Accessibility: Accessibility{
			AltText: t.AltText,
		},
	}
}

func (t Template) build(s document.Suggestion) *Visualization {
	data := maps.Clone(s.Data)
	if t.Data != nil {
		data = t.Data(s)
	}
	if data == nil {
		data = map[string]any{}
	}
	return &Visualization{
		Title:         s.Title,
		Type:          t.Type,
		Data:          data,
		Config:        t.Config(),
		Interactivity: append([]Interaction(nil), t.Interactivity...),
		Explanation:   t.Explanation,
		Confidence:    s.Confidence,
	}
}

// DefaultTemplates returns the built-in templates keyed by suggestion type.
func DefaultTemplates() map[document.SuggestionType]Template {
	return map[document.SuggestionType]Template{
		document.SuggestChart: {
			Type:          TypeInteractiveChart,
			Interactivity: []Interaction{InteractHover, InteractZoom, InteractFilter},
			Explanation:   "This chart plots the numeric values found in the document in reading order.",
			AltText:       "Bar chart of numeric values extracted from the document",
			Width:         800,
			Height:        400,
			Data:          chartData,
		},
		document.SuggestFlowchart: {
			Type:          TypeFlowchart,
			Interactivity: []Interaction{InteractHover, InteractClick, InteractPan},
			Explanation:   "This flowchart lays out the process steps described in the document.",
			AltText:       "Flowchart of the process steps described in the document",
			Width:         800,
			Height:        600,
			Data:          flowchartData,
		},
		document.SuggestTimeline: {
			Type:          TypeTimeline,
			Interactivity: []Interaction{InteractHover, InteractZoom, InteractPan},
			Explanation:   "This timeline orders the dated events mentioned in the document.",
			AltText:       "Timeline of dated events mentioned in the document",
			Width:         1000,
			Height:        300,
		},
		document.SuggestConceptMap: {
			Type:          TypeConceptMap,
			Interactivity: []Interaction{InteractZoom, InteractPan, InteractDrag, InteractSelect},
			Explanation:   "This concept map connects the key ideas of the document.",
			AltText:       "Concept map of the key ideas in the document",
			Width:         900,
			Height:        700,
		},
	}
}

func chartData(s document.Suggestion) map[string]any {
	values, _ := s.Data["values"].([]float64)
	labels := make([]string, len(values))
	for i := range values {
		labels[i] = fmt.Sprintf("Value %d", i+1)
	}
	return map[string]any{"labels": labels, "values": values}
}

func flowchartData(s document.Suggestion) map[string]any {
	steps, _ := s.Data["steps"].([]string)
	nodes := make([]map[string]any, len(steps))
	edges := make([]map[string]any, 0, max(len(steps)-1, 0))
	for i, step := range steps {
		id := fmt.Sprintf("step_%d", i+1)
		nodes[i] = map[string]any{"id": id, "label": step}
		if i > 0 {
			edges = append(edges, map[string]any{"source": fmt.Sprintf("step_%d", i), "target": id})
		}
	}
	return map[string]any{"steps": steps, "nodes": nodes, "edges": edges}
}

var (
	structureTemplate = Template{
		Type:          TypeNetworkGraph,
		Interactivity: []Interaction{InteractZoom, InteractPan, InteractHover, InteractClick},
		Explanation:   "This graph shows how the document is divided into sections; node size follows section importance.",
		AltText:       "Network graph of the document and its sections",
		Width:         800,
		Height:        600,
	}
	topicTemplate = Template{
		Type:          TypeInteractiveChart,
		Interactivity: []Interaction{InteractHover, InteractFilter},
		Explanation:   "This chart shows how often each main topic occurs in the document.",
		AltText:       "Bar chart of topic frequencies in the document",
		Width:         600,
		Height:        400,
	}
	knowledgeGraphTemplate = Template{
		Type:          TypeNetworkGraph,
		Interactivity: []Interaction{InteractZoom, InteractPan, InteractHover, InteractClick, InteractDrag},
		Explanation:   "This graph shows the concepts and entities of the document and how they relate.",
		AltText:       "Knowledge graph of concepts and entities in the document",
		Width:         1000,
		Height:        800,
	}
)
