package feed

import (
	"bytes"
	"cmp"
	"fmt"
	"regexp"
	"strings"

	"github.com/mmcdole/gofeed"
)

var (
	tagPattern   = regexp.MustCompile(`<[^>]*>`)
	spacePattern = regexp.MustCompile(`\s+`)
)

type Parser struct {
	gofeedParser *gofeed.Parser
}

func NewParser() *Parser {
	return &Parser{
		gofeedParser: gofeed.NewParser(),
	}
}

// Run parses raw feed data and normalizes every entry into an Article.
// Entries without both title and link are dropped; they cannot be posted.
func (p *Parser) Run(data []byte) ([]Article, error) {
	parsed, err := p.gofeedParser.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to parse feed: %w", err)
	}

	articles := make([]Article, 0, len(parsed.Items))
	for _, item := range parsed.Items {
		if item.Title == "" || item.Link == "" {
			continue
		}
		articles = append(articles, p.normalizeItem(item))
	}

	return articles, nil
}

func (p *Parser) normalizeItem(item *gofeed.Item) Article {
	article := Article{
		GUID:    cmp.Or(item.GUID, item.Link),
		Title:   strings.TrimSpace(item.Title),
		Link:    item.Link,
		Summary: stripHTML(cmp.Or(item.Description, item.Content)),
	}

	if item.PublishedParsed != nil {
		article.PublishedAt = *item.PublishedParsed
	} else if item.UpdatedParsed != nil {
		article.PublishedAt = *item.UpdatedParsed
	}

	return article
}

// stripHTML reduces a feed summary to plain text for keyword matching.
func stripHTML(s string) string {
	s = tagPattern.ReplaceAllString(s, " ")

	replacer := strings.NewReplacer(
		"&nbsp;", " ",
		"&amp;", "&",
		"&lt;", "<",
		"&gt;", ">",
		"&quot;", "\"",
		"&#39;", "'",
		"&apos;", "'",
	)
	s = replacer.Replace(s)

	s = spacePattern.ReplaceAllString(s, " ")

	return strings.TrimSpace(s)
}
