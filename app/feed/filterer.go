package feed

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// minKeywordLen drops very short keywords to prevent false positives.
const minKeywordLen = 4

// KeywordFilter decides whether an article qualifies for posting. An empty
// keyword set admits every article.
type KeywordFilter struct {
	keywords []string
}

// NewKeywordFilter builds a filter from a comma-separated keyword argument
// and/or a keywords file (one per line, '#' lines ignored). Keywords are
// lowercased and NFC-normalized so matching works across Unicode feeds.
func NewKeywordFilter(keywordsArg, keywordsFile string) (*KeywordFilter, error) {
	set := make(map[string]struct{})

	for _, kw := range strings.Split(keywordsArg, ",") {
		addKeyword(set, kw)
	}

	if keywordsFile != "" {
		file, err := os.Open(keywordsFile)
		if err != nil {
			return nil, fmt.Errorf("failed to open keywords file: %w", err)
		}
		defer file.Close()

		scanner := bufio.NewScanner(file)
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if line == "" || strings.HasPrefix(line, "#") {
				continue
			}
			addKeyword(set, line)
		}
		if err := scanner.Err(); err != nil {
			return nil, fmt.Errorf("failed to read keywords file: %w", err)
		}
	}

	keywords := make([]string, 0, len(set))
	for kw := range set {
		keywords = append(keywords, kw)
	}

	return &KeywordFilter{keywords: keywords}, nil
}

func addKeyword(set map[string]struct{}, raw string) {
	kw := normalize(strings.TrimSpace(raw))
	if utf8.RuneCountInString(kw) < minKeywordLen {
		return
	}
	set[kw] = struct{}{}
}

// Match reports whether the article passes the filter: any keyword contained
// in the title or summary (case-insensitive), or no keywords configured.
func (f *KeywordFilter) Match(article Article) bool {
	if len(f.keywords) == 0 {
		return true
	}

	content := normalize(article.Title + " " + article.Summary)
	for _, kw := range f.keywords {
		if strings.Contains(content, kw) {
			return true
		}
	}

	return false
}

// Keywords returns the normalized keyword set, for startup logging.
func (f *KeywordFilter) Keywords() []string {
	return f.keywords
}

func normalize(s string) string {
	return strings.ToLower(norm.NFC.String(s))
}
