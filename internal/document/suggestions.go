package document

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

const (
	chartNumberThreshold = 10
	maxChartValues       = 20
	maxFlowSteps         = 10
	maxTimelineEvents    = 10

	chartConfidence     = 0.7
	flowchartConfidence = 0.8
	timelineConfidence  = 0.75
)

var (
	reNumeric   = regexp.MustCompile(`\d+(?:[.,]\d+)*%?`)
	reStep      = regexp.MustCompile(`(?i)\bstep\s+(\d+)\s*[:.)-]\s*([^.\n]+)`)
	reYearEvent = regexp.MustCompile(`(?m)\b(\d{4}):\s*([^\n]+)`)
)

// suggestVisualizations inspects the text for numeric density, process
// language and time language.
func suggestVisualizations(text string, lex *Lexicon) []Suggestion {
	suggestions := []Suggestion{}

	if numbers := reNumeric.FindAllString(text, -1); len(numbers) > chartNumberThreshold {
		suggestions = append(suggestions, chartSuggestion(numbers))
	}

	if lex.processRe != nil && lex.processRe.MatchString(text) {
		suggestions = append(suggestions, flowchartSuggestion(text, lex))
	}

	events := timelineEvents(text)
	if len(events) > 0 || (lex.timeRe != nil && lex.timeRe.MatchString(text)) {
		suggestions = append(suggestions, Suggestion{
			Type:        SuggestTimeline,
			Title:       "Timeline of Events",
			Description: fmt.Sprintf("Chronological view of %d dated events", len(events)),
			Data:        map[string]any{"events": events},
			Confidence:  timelineConfidence,
		})
	}

	return suggestions
}

func chartSuggestion(numbers []string) Suggestion {
	values := make([]float64, 0, maxChartValues)
	for _, n := range numbers {
		if len(values) == maxChartValues {
			break
		}
		v, err := strconv.ParseFloat(strings.ReplaceAll(strings.TrimSuffix(n, "%"), ",", ""), 64)
		if err == nil {
			values = append(values, v)
		}
	}
	return Suggestion{
		Type:        SuggestChart,
		Title:       "Numerical Data Overview",
		Description: fmt.Sprintf("The document contains %d numeric values", len(numbers)),
		Data:        map[string]any{"values": values},
		Confidence:  chartConfidence,
	}
}

func flowchartSuggestion(text string, lex *Lexicon) Suggestion {
	var steps []string
	for _, m := range reStep.FindAllStringSubmatch(text, maxFlowSteps) {
		steps = append(steps, strings.TrimSpace(m[2]))
	}
	if len(steps) == 0 {
		for _, s := range SplitSentences(text) {
			if lex.processRe.MatchString(s) {
				steps = append(steps, s)
				if len(steps) == maxFlowSteps {
					break
				}
			}
		}
	}
	return Suggestion{
		Type:        SuggestFlowchart,
		Title:       "Process Flow",
		Description: fmt.Sprintf("The document describes a process with %d steps", len(steps)),
		Data:        map[string]any{"steps": steps},
		Confidence:  flowchartConfidence,
	}
}

func timelineEvents(text string) []TimelineEvent {
	events := []TimelineEvent{}
	for _, m := range reYearEvent.FindAllStringSubmatch(text, maxTimelineEvents) {
		year, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		events = append(events, TimelineEvent{Year: year, Event: strings.TrimSpace(m[2])})
	}
	return events
}
