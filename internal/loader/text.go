package loader

import (
	"context"
	"strings"
	"unicode/utf8"
)

// PlainTextExtractor passes text through with line endings normalized and
// a leading byte order mark removed.
type PlainTextExtractor struct{}

// Extract implements Extractor.
func (PlainTextExtractor) Extract(_ context.Context, content []byte) (string, error) {
	text := strings.TrimPrefix(string(content), "\uFEFF")
	if !utf8.ValidString(text) {
		text = strings.ToValidUTF8(text, "\uFFFD")
	}
	text = strings.ReplaceAll(text, "\r\n", "\n")
	return strings.ReplaceAll(text, "\r", "\n"), nil
}
