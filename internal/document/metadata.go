package document

import (
	"math"
	"regexp"
	"sort"
	"strings"
	"unicode"

	"github.com/kljensen/snowball/english"

	"github.com/Benny93/docgraph-go/internal/loader"
)

const (
	wordsPerMinute   = 200
	maxKeyTerms      = 20
	maxTopics        = 5
	summarySentences = 5
	summaryMaxChars  = 500
	languageWindow   = 100
	languageMinHits  = 10
)

var (
	reWordToken  = regexp.MustCompile(`[A-Za-z][A-Za-z'-]*`)
	reSentenceSp = regexp.MustCompile(`[.!?]+`)
	reRefAbbrev  = regexp.MustCompile(`\b(Fig|Eq)\.(\s*\d)`)
	reSpaces     = regexp.MustCompile(`\s+`)
	reTechnical  = regexp.MustCompile(`\b(?:[A-Z]{2,}|[A-Za-z]+(?:ology|ometry|ization|isation)|algorithm\w*|coefficient\w*|parameter\w*|hypothes\w+|wavelength\w*|spectr\w+|quantum)\b`)
)

// CountWords counts whitespace-separated tokens.
func CountWords(text string) int {
	return len(strings.Fields(text))
}

// ReadingTime is the estimated reading time in whole minutes.
func ReadingTime(wordCount int) int {
	return int(math.Ceil(float64(wordCount) / wordsPerMinute))
}

// SplitSentences splits text on runs of '.', '!' and '?', collapsing
// whitespace and dropping empty pieces. The period of a "Fig. N" or
// "Eq. N" reference does not end a sentence.
func SplitSentences(text string) []string {
	masked := reRefAbbrev.ReplaceAllString(text, "${1}\x00${2}")
	parts := reSentenceSp.Split(masked, -1)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.ReplaceAll(p, "\x00", ".")
		p = strings.TrimSpace(reSpaces.ReplaceAllString(p, " "))
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

type termCount struct {
	stem     string
	count    int
	surfaces map[string]int
	order    []string
}

func (t *termCount) label() string {
	best := t.order[0]
	for _, s := range t.order[1:] {
		if t.surfaces[s] > t.surfaces[best] {
			best = s
		}
	}
	return best
}

// KeyTerms ranks stems by raw frequency and returns, for the top 20, the
// most frequent surface form of each stem. Stop words and stems of three
// characters or fewer are ignored; ties keep first-occurrence order.
func KeyTerms(text string, lex *Lexicon) []string {
	counts := make(map[string]*termCount)
	var ordered []*termCount

	for _, tok := range reWordToken.FindAllString(text, -1) {
		word := strings.Trim(strings.ToLower(tok), "'-")
		if word == "" || lex.IsStopword(word) {
			continue
		}
		stem := english.Stem(word, false)
		if len(stem) <= 3 {
			continue
		}
		tc, ok := counts[stem]
		if !ok {
			tc = &termCount{stem: stem, surfaces: make(map[string]int)}
			counts[stem] = tc
			ordered = append(ordered, tc)
		}
		tc.count++
		if tc.surfaces[word] == 0 {
			tc.order = append(tc.order, word)
		}
		tc.surfaces[word]++
	}

	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].count > ordered[j].count
	})

	n := min(len(ordered), maxKeyTerms)
	terms := make([]string, 0, n)
	for _, tc := range ordered[:n] {
		terms = append(terms, tc.label())
	}
	return terms
}

// DetectLanguage returns "en" when at least 10 of the first 100 tokens are
// English stop words, otherwise "unknown".
func DetectLanguage(text string, lex *Lexicon) string {
	hits := 0
	for i, tok := range strings.Fields(text) {
		if i >= languageWindow {
			break
		}
		word := strings.ToLower(strings.TrimFunc(tok, func(r rune) bool {
			return !unicode.IsLetter(r)
		}))
		if lex.IsStopword(word) {
			hits++
		}
	}
	if hits >= languageMinHits {
		return "en"
	}
	return "unknown"
}

// Summarize joins the first five sentences longer than 20 characters and
// truncates the result to 500 characters with an ellipsis.
func Summarize(text string) string {
	var picked []string
	for _, s := range SplitSentences(text) {
		if len([]rune(s)) > 20 {
			picked = append(picked, s)
			if len(picked) == summarySentences {
				break
			}
		}
	}
	if len(picked) == 0 {
		return ""
	}

	summary := strings.Join(picked, ". ") + "."
	if r := []rune(summary); len(r) > summaryMaxChars {
		return string(r[:summaryMaxChars]) + "..."
	}
	return summary
}

// AssessComplexity tiers a text by average sentence length and the number
// of technical-term matches.
func AssessComplexity(text string) Complexity {
	sentences := len(SplitSentences(text))
	avg := float64(CountWords(text)) / float64(max(sentences, 1))
	technical := len(reTechnical.FindAllString(text, -1))

	switch {
	case avg > 20 && technical > 10:
		return ComplexityAdvanced
	case avg > 15 || technical > 5:
		return ComplexityIntermediate
	default:
		return ComplexityBasic
	}
}

func computeMetadata(text string, format loader.Format, source string, lex *Lexicon) Metadata {
	wc := CountWords(text)
	terms := KeyTerms(text, lex)
	return Metadata{
		Format:      format,
		Source:      source,
		WordCount:   wc,
		ReadingTime: ReadingTime(wc),
		Language:    DetectLanguage(text, lex),
		Topics:      append([]string{}, terms[:min(len(terms), maxTopics)]...),
		Summary:     Summarize(text),
		KeyTerms:    terms,
		Complexity:  AssessComplexity(text),
	}
}
