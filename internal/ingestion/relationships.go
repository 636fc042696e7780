package ingestion

import (
	"regexp"
	"strings"

	"github.com/Benny93/docgraph-go/internal/document"
	"github.com/Benny93/docgraph-go/internal/graph"
)

const (
	baseConfidence = 0.5
	minConfidence  = 0.3
	maxContextLen  = 200
)

// relationRule upgrades a co-occurrence to a typed relation when the
// sentence matches.
type relationRule struct {
	relType    graph.RelType
	re         *regexp.Regexp
	confidence float64
}

var relationRules = []relationRule{
	{graph.RelPartOf, regexp.MustCompile(`\b(?:is|are|was|were)\b.*\b(?:part of|component of)\b`), 0.8},
	{graph.RelDefines, regexp.MustCompile(`\b(?:defines|means|refers to)\b`), 0.9},
	{graph.RelContradicts, regexp.MustCompile(`\b(?:however|but|although|contradicts)\b`), 0.7},
	{graph.RelRelatedTo, regexp.MustCompile(`\b(?:related to|associated with|connected to)\b`), 0.6},
}

// classifySentence returns the strongest relation a lowercase sentence
// expresses, defaulting to related_to at the base confidence.
func classifySentence(sentence string) (graph.RelType, float64) {
	relType, confidence := graph.RelRelatedTo, baseConfidence
	for _, rule := range relationRules {
		if rule.confidence > confidence && rule.re.MatchString(sentence) {
			relType, confidence = rule.relType, rule.confidence
		}
	}
	return relType, confidence
}

// AnalyzeRelationships infers edges for one document: one co-occurrence
// edge per item pair sharing a sentence (the best-scoring sentence wins),
// followed by a mentions edge from the document node to every item.
func AnalyzeRelationships(doc *document.ProcessedDocument, documentNodeID string, items []*graph.GraphNode) []*graph.GraphRelationship {
	sentences := document.SplitSentences(doc.Content)
	lowered := make([]string, len(sentences))
	for i, s := range sentences {
		lowered[i] = strings.ToLower(s)
	}
	labels := make([]string, len(items))
	for i, item := range items {
		labels[i] = strings.ToLower(item.Name)
	}

	var rels []*graph.GraphRelationship
	for i := 0; i < len(items); i++ {
		for j := i + 1; j < len(items); j++ {
			if items[i].ID == items[j].ID {
				continue
			}
			best, bestType, bestSentence := 0.0, graph.RelRelatedTo, -1
			for k, s := range lowered {
				if !strings.Contains(s, labels[i]) || !strings.Contains(s, labels[j]) {
					continue
				}
				relType, confidence := classifySentence(s)
				if confidence > best {
					best, bestType, bestSentence = confidence, relType, k
				}
			}
			if bestSentence < 0 || best < minConfidence {
				continue
			}
			rels = append(rels, &graph.GraphRelationship{
				Source: items[i].ID,
				Target: items[j].ID,
				Type:   bestType,
				Weight: best,
				Properties: graph.RelProperties{
					Confidence: best,
					Context:    truncate(sentences[bestSentence], maxContextLen),
					DocumentID: doc.ID,
				},
			})
		}
	}

	for _, item := range items {
		rels = append(rels, &graph.GraphRelationship{
			Source: documentNodeID,
			Target: item.ID,
			Type:   graph.RelMentions,
			Weight: item.Properties.Importance,
			Properties: graph.RelProperties{
				Confidence: 1,
				DocumentID: doc.ID,
			},
		})
	}
	return rels
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
