package feed

import (
	"strings"
	"testing"
)

const sampleHTML = `<!DOCTYPE html>
<html>
<head><title>Test Article</title></head>
<body>
  <nav>Home | About | Contact</nav>
  <article>
    <h1>Test Article</h1>
    <p>This is the first paragraph of the article body with enough text to
    be recognized as the main content of the page. It keeps going for a
    while so the extractor has something substantial to work with.</p>
    <p>A second paragraph adds more body text, because readability scores
    pages by content density and very short pages extract poorly.</p>
  </article>
</body>
</html>`

func TestBodyExtractor_Run(t *testing.T) {
	extractor := NewBodyExtractor()

	excerpt, err := extractor.Run([]byte(sampleHTML))
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if !strings.Contains(excerpt, "first paragraph") {
		t.Errorf("Expected excerpt to contain article text, got: %s", excerpt)
	}
	if strings.Contains(excerpt, "<p>") {
		t.Error("Excerpt should be plain text without markup")
	}
	if len([]rune(excerpt)) > maxExcerptLen+3 {
		t.Errorf("Excerpt exceeds the length cap: %d runes", len([]rune(excerpt)))
	}
}

func TestBodyExtractor_EmptyInput(t *testing.T) {
	extractor := NewBodyExtractor()

	if _, err := extractor.Run(nil); err == nil {
		t.Error("Expected error for empty input")
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("short", 10); got != "short" {
		t.Errorf("Short strings should pass through, got %q", got)
	}

	long := strings.Repeat("αβ", 300)
	got := truncate(long, 10)
	if len([]rune(got)) != 13 { // 10 runes + "..."
		t.Errorf("Expected 13 runes after truncation, got %d", len([]rune(got)))
	}
	if !strings.HasSuffix(got, "...") {
		t.Errorf("Expected ellipsis suffix, got %q", got)
	}
}
