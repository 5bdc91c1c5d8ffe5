package feed

import (
	"fmt"
	"log/slog"
	"strings"

	readability "codeberg.org/readeck/go-readability"
)

// maxExcerptLen caps the post body so a full article is never mirrored.
const maxExcerptLen = 500

// BodyExtractor produces a plain-text excerpt of an article page, used as
// the post body for subscriptions with extract_body enabled.
type BodyExtractor struct{}

func NewBodyExtractor() *BodyExtractor {
	return &BodyExtractor{}
}

func (e *BodyExtractor) Run(data []byte) (string, error) {
	if len(data) == 0 {
		return "", fmt.Errorf("HTML data is empty")
	}

	article, err := readability.FromReader(strings.NewReader(string(data)), nil)
	if err != nil {
		return "", fmt.Errorf("failed to extract content: %w", err)
	}

	text := strings.TrimSpace(article.TextContent)
	if text == "" {
		return "", fmt.Errorf("no content extracted from HTML data")
	}

	slog.Debug("Content extracted successfully",
		"title", article.Title,
		"content_length", len(text))

	return truncate(text, maxExcerptLen), nil
}

func truncate(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return strings.TrimSpace(string(runes[:maxLen])) + "..."
}
