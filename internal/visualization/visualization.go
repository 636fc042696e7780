// Package visualization maps processed documents and the knowledge graph
// onto typed visualization descriptors.
package visualization

import (
	"maps"
	"slices"
)

// Type is the kind of a generated visualization.
type Type string

const (
	TypeInteractiveChart Type = "interactive-chart"
	TypeNetworkGraph     Type = "network-graph"
	TypeTimeline         Type = "timeline"
	TypeConceptMap       Type = "concept-map"
	TypeFlowchart        Type = "flowchart"
	TypeHeatmap          Type = "heatmap"
	TypeScatter3D        Type = "3d-scatter"
)

// AllTypes lists every visualization type.
var AllTypes = []Type{
	TypeInteractiveChart, TypeNetworkGraph, TypeTimeline, TypeConceptMap,
	TypeFlowchart, TypeHeatmap, TypeScatter3D,
}

// Interaction is an interactive affordance a visualization supports.
type Interaction string

const (
	InteractZoom   Interaction = "zoom"
	InteractPan    Interaction = "pan"
	InteractHover  Interaction = "hover"
	InteractClick  Interaction = "click"
	InteractFilter Interaction = "filter"
	InteractDrag   Interaction = "drag"
	InteractSelect Interaction = "select"
)

// Accessibility carries the alternative text of a visualization.
type Accessibility struct {
	AltText      string `json:"altText"`
	HighContrast bool   `json:"highContrast"`
}

// Config is the rendering configuration of a visualization.
type Config struct {
	Width         int           `json:"width"`
	Height        int           `json:"height"`
	ColorScheme   []string      `json:"colorScheme"`
	Animations    bool          `json:"animations"`
	Responsive    bool          `json:"responsive"`
	Accessibility Accessibility `json:"accessibility"`
}

// Visualization is a generated visualization descriptor.
type Visualization struct {
	ID            string         `json:"id"`
	Title         string         `json:"title"`
	Type          Type           `json:"type"`
	DocumentID    string         `json:"documentId,omitempty"`
	Data          map[string]any `json:"data"`
	Config        Config         `json:"config"`
	Interactivity []Interaction  `json:"interactivity"`
	Explanation   string         `json:"explanation"`
	Confidence    float64        `json:"confidence"`
}

// Overrides are caller adjustments applied on top of a template config.
// Zero values leave the corresponding setting unchanged.
type Overrides struct {
	Width       int
	Height      int
	ColorScheme []string
	Animations  *bool
	Responsive  *bool
	AltText     string
}

// ApplyOverrides returns a copy of v whose config carries the overrides.
// v itself is not modified.
func ApplyOverrides(v *Visualization, o Overrides) *Visualization {
	out := *v
	out.Data = maps.Clone(v.Data)
	out.Interactivity = slices.Clone(v.Interactivity)
	out.Config.ColorScheme = slices.Clone(v.Config.ColorScheme)

	if o.Width > 0 {
		out.Config.Width = o.Width
	}
	if o.Height > 0 {
		out.Config.Height = o.Height
	}
	if len(o.ColorScheme) > 0 {
		out.Config.ColorScheme = slices.Clone(o.ColorScheme)
	}
	if o.Animations != nil {
		out.Config.Animations = *o.Animations
	}
	if o.Responsive != nil {
		out.Config.Responsive = *o.Responsive
	}
	if o.AltText != "" {
		out.Config.Accessibility.AltText = o.AltText
	}
	return &out
}

// Filter keeps the visualizations whose type is in types. An empty types
// list keeps everything.
func Filter(vs []*Visualization, types []Type) []*Visualization {
	if len(types) == 0 {
		return vs
	}
	out := make([]*Visualization, 0, len(vs))
	for _, v := range vs {
		if slices.Contains(types, v.Type) {
			out = append(out, v)
		}
	}
	return out
}

// ParseTypes converts names to types, dropping unknown names.
func ParseTypes(names []string) []Type {
	var types []Type
	for _, n := range names {
		if t := Type(n); slices.Contains(AllTypes, t) {
			types = append(types, t)
		}
	}
	return types
}
