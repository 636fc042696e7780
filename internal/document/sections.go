package document

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
)

var (
	reMarkdownHeading   = regexp.MustCompile(`^#{1,6}\s+\S`)
	reNumberedHeading   = regexp.MustCompile(`^\d+(?:\.\d+)*\.?\s+[A-Z]`)
	reAllCapsHeading    = regexp.MustCompile(`^[A-Z0-9][A-Z0-9 &:/'-]*$`)
	reTitleCaseWord     = regexp.MustCompile(`^(?:[A-Z][\w'-]*|of|and|the|in|for|on|to|a|an|with|vs\.?)$`)
	reHeadingMarkers    = regexp.MustCompile(`^#{1,6}\s+`)
	terminalPunctuation = ".!?,;:"
)

// isHeading reports whether a line stands alone as a section header:
// a Markdown heading, a numbered heading, an all-caps line, or a short
// title-case line without terminal punctuation.
func isHeading(line string) bool {
	line = strings.TrimSpace(line)
	if line == "" {
		return false
	}
	if reMarkdownHeading.MatchString(line) {
		return true
	}

	words := strings.Fields(line)
	if strings.ContainsAny(line[len(line)-1:], terminalPunctuation) {
		return false
	}
	if reNumberedHeading.MatchString(line) && len(words) <= 12 {
		return true
	}
	if reAllCapsHeading.MatchString(line) && countLetters(line) >= 3 && len(words) <= 10 {
		return true
	}
	if len(words) > 8 || !unicode.IsUpper([]rune(words[0])[0]) {
		return false
	}
	for _, w := range words {
		if !reTitleCaseWord.MatchString(w) {
			return false
		}
	}
	return true
}

func countLetters(s string) int {
	n := 0
	for _, r := range s {
		if unicode.IsLetter(r) {
			n++
		}
	}
	return n
}

type rawSection struct {
	header string
	body   []string
}

// splitSections cuts text at heading lines. Text before the first heading
// belongs to no section and is dropped.
func splitSections(text string) []rawSection {
	var (
		out []rawSection
		cur *rawSection
	)
	for _, line := range strings.Split(text, "\n") {
		if isHeading(line) {
			if cur != nil {
				out = append(out, *cur)
			}
			cur = &rawSection{header: strings.TrimSpace(line)}
			continue
		}
		if cur != nil {
			cur.body = append(cur.body, line)
		}
	}
	if cur != nil {
		out = append(out, *cur)
	}
	return out
}

func headingTitle(header string) string {
	return strings.TrimSpace(reHeadingMarkers.ReplaceAllString(header, ""))
}

// classifySection matches header keywords for every rule first, then body
// phrases, and defaults to introduction.
func classifySection(header, body string, lex *Lexicon) SectionType {
	h := phraseText(header)
	for _, rule := range lex.SectionTypes {
		if containsAnyPhrase(h, rule.Header) {
			return rule.Type
		}
	}
	b := phraseText(body)
	for _, rule := range lex.SectionTypes {
		if containsAnyPhrase(b, rule.Body) {
			return rule.Type
		}
	}
	return SectionIntroduction
}

// sectionImportance is min(words/100, 1), boosted by half (and clamped to
// 1) when the body contains an importance keyword.
func sectionImportance(content string, lex *Lexicon) float64 {
	importance := min(float64(len(strings.Fields(content)))/100, 1)
	if containsAnyPhrase(phraseText(content), lex.ImportanceKeywords) {
		importance = min(importance*1.5, 1)
	}
	return importance
}

func buildSections(documentID, text string, lex *Lexicon) []Section {
	raw := splitSections(text)
	sections := make([]Section, 0, len(raw))
	for i, r := range raw {
		content := strings.TrimSpace(strings.Join(r.body, "\n"))
		sections = append(sections, Section{
			ID:              fmt.Sprintf("%s_section_%d", documentID, i),
			Title:           headingTitle(r.header),
			Content:         content,
			Type:            classifySection(r.header, content, lex),
			Importance:      sectionImportance(content, lex),
			RelatedConcepts: []string{},
		})
	}
	return sections
}
