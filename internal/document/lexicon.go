package document

import (
	_ "embed"
	"fmt"
	"os"
	"regexp"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed lexicon.yaml
var defaultLexiconYAML []byte

// SectionRule maps header keywords and body phrases onto a section type.
type SectionRule struct {
	Type   SectionType `yaml:"type"`
	Header []string    `yaml:"header"`
	Body   []string    `yaml:"body"`
}

// Lexicon holds the keyword tables driving classification and suggestions.
type Lexicon struct {
	Stopwords          []string      `yaml:"stopwords"`
	ImportanceKeywords []string      `yaml:"importance_keywords"`
	SectionTypes       []SectionRule `yaml:"section_types"`
	ProcessKeywords    []string      `yaml:"process_keywords"`
	TimeKeywords       []string      `yaml:"time_keywords"`

	stopSet   map[string]bool
	processRe *regexp.Regexp
	timeRe    *regexp.Regexp
}

var (
	defaultLexicon     *Lexicon
	defaultLexiconOnce sync.Once
)

// DefaultLexicon returns the built-in lexicon.
func DefaultLexicon() *Lexicon {
	defaultLexiconOnce.Do(func() {
		lex, err := ParseLexicon(defaultLexiconYAML)
		if err != nil {
			panic(fmt.Sprintf("document: embedded lexicon: %v", err))
		}
		defaultLexicon = lex
	})
	return defaultLexicon
}

// LoadLexicon reads a lexicon from a YAML file.
func LoadLexicon(path string) (*Lexicon, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseLexicon(data)
}

// ParseLexicon decodes a YAML lexicon.
func ParseLexicon(data []byte) (*Lexicon, error) {
	var lex Lexicon
	if err := yaml.Unmarshal(data, &lex); err != nil {
		return nil, fmt.Errorf("parse lexicon: %w", err)
	}
	if len(lex.Stopwords) == 0 {
		return nil, fmt.Errorf("parse lexicon: stopwords are required")
	}

	lex.stopSet = make(map[string]bool, len(lex.Stopwords))
	for _, w := range lex.Stopwords {
		lex.stopSet[strings.ToLower(w)] = true
	}
	lex.processRe = keywordRegexp(lex.ProcessKeywords)
	lex.timeRe = keywordRegexp(lex.TimeKeywords)
	return &lex, nil
}

// IsStopword reports whether the lowercase word is a stop word.
func (l *Lexicon) IsStopword(word string) bool {
	return l.stopSet[word]
}

func keywordRegexp(words []string) *regexp.Regexp {
	if len(words) == 0 {
		return nil
	}
	quoted := make([]string, len(words))
	for i, w := range words {
		quoted[i] = regexp.QuoteMeta(strings.ToLower(w))
	}
	return regexp.MustCompile(`(?i)\b(?:` + strings.Join(quoted, "|") + `)\b`)
}

var nonWord = regexp.MustCompile(`[^a-z0-9]+`)

// phraseText lowercases s and pads it with single spaces between words so
// that containsPhrase can match whole words only.
func phraseText(s string) string {
	return " " + strings.TrimSpace(nonWord.ReplaceAllString(strings.ToLower(s), " ")) + " "
}

func containsPhrase(padded, phrase string) bool {
	p := strings.TrimSpace(nonWord.ReplaceAllString(strings.ToLower(phrase), " "))
	if p == "" {
		return false
	}
	return strings.Contains(padded, " "+p+" ")
}

func containsAnyPhrase(padded string, phrases []string) bool {
	for _, p := range phrases {
		if containsPhrase(padded, p) {
			return true
		}
	}
	return false
}
