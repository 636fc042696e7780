package document

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSuggestVisualizations(t *testing.T) {
	t.Parallel()
	lex := DefaultLexicon()

	t.Run("Flowchart", func(t *testing.T) {
		t.Parallel()
		got := suggestVisualizations("Step 1: mix. Step 2: heat.", lex)

		require.Len(t, got, 1)
		assert.Equal(t, SuggestFlowchart, got[0].Type)
		assert.InDelta(t, 0.8, got[0].Confidence, 1e-9)
		assert.Equal(t, []string{"mix", "heat"}, got[0].Data["steps"])
	})

	t.Run("FlowchartFromProcessSentences", func(t *testing.T) {
		t.Parallel()
		got := suggestVisualizations("The coating process starts early. Then the wafer dries.", lex)

		require.Len(t, got, 1)
		assert.Equal(t, []string{"The coating process starts early"}, got[0].Data["steps"])
	})

	t.Run("Chart", func(t *testing.T) {
		t.Parallel()
		got := suggestVisualizations("Values were 10 20 30 40 50 60 70 80 90 100 110 120", lex)

		require.Len(t, got, 1)
		assert.Equal(t, SuggestChart, got[0].Type)
		assert.InDelta(t, 0.7, got[0].Confidence, 1e-9)
		values, ok := got[0].Data["values"].([]float64)
		require.True(t, ok)
		assert.Len(t, values, 12)
		assert.InDelta(t, 120.0, values[11], 1e-9)
	})

	t.Run("ChartValuesCapped", func(t *testing.T) {
		t.Parallel()
		text := ""
		for i := 0; i < 30; i++ {
			text += " 7"
		}
		got := suggestVisualizations(text, lex)

		require.Len(t, got, 1)
		assert.Len(t, got[0].Data["values"], 20)
	})

	t.Run("Timeline", func(t *testing.T) {
		t.Parallel()
		text := "History of the company.\n1998: Founded in a garage.\n2004: Went public.\n"
		got := suggestVisualizations(text, lex)

		require.Len(t, got, 1)
		assert.Equal(t, SuggestTimeline, got[0].Type)
		assert.InDelta(t, 0.75, got[0].Confidence, 1e-9)
		assert.Equal(t, []TimelineEvent{
			{Year: 1998, Event: "Founded in a garage."},
			{Year: 2004, Event: "Went public."},
		}, got[0].Data["events"])
	})

	t.Run("TimeKeywordWithoutEvents", func(t *testing.T) {
		t.Parallel()
		got := suggestVisualizations("A decade of progress.", lex)

		require.Len(t, got, 1)
		assert.Equal(t, SuggestTimeline, got[0].Type)
		assert.Empty(t, got[0].Data["events"])
	})

	t.Run("None", func(t *testing.T) {
		t.Parallel()
		got := suggestVisualizations("The cat sat on the mat.", lex)
		assert.NotNil(t, got)
		assert.Empty(t, got)
	})
}
