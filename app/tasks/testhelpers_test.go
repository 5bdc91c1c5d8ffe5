package tasks

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/tuxhouse/lemmy-feed-bot/app/database"
)

// fakeSeenRepo is an in-memory SeenRepository.
type fakeSeenRepo struct {
	mu    sync.Mutex
	items map[string]database.SeenItem
}

var _ database.SeenRepository = (*fakeSeenRepo)(nil)

func newFakeSeenRepo() *fakeSeenRepo {
	return &fakeSeenRepo{items: make(map[string]database.SeenItem)}
}

func (r *fakeSeenRepo) Contains(ctx context.Context, articleID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.items[articleID]
	return ok, nil
}

func (r *fakeSeenRepo) Add(ctx context.Context, articleID, title, community string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[articleID] = database.SeenItem{
		ArticleID: articleID,
		Title:     title,
		Community: community,
		PostedAt:  time.Now(),
	}
	return nil
}

func (r *fakeSeenRepo) Count(ctx context.Context) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.items), nil
}

func (r *fakeSeenRepo) Recent(ctx context.Context, limit int) ([]database.SeenItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	items := make([]database.SeenItem, 0, limit)
	for _, item := range r.items {
		if len(items) >= limit {
			break
		}
		items = append(items, item)
	}
	return items, nil
}

type postedArticle struct {
	CommunityID int
	Title       string
	Link        string
	Body        string
}

// fakePublisher records posts; failing titles simulate publish errors.
type fakePublisher struct {
	mu          sync.Mutex
	communities map[string]int
	posts       []postedArticle
	failTitles  map[string]bool
}

var _ Publisher = (*fakePublisher)(nil)

func newFakePublisher() *fakePublisher {
	return &fakePublisher{
		communities: map[string]int{"technology": 1, "worldnews": 2},
		failTitles:  make(map[string]bool),
	}
}

func (p *fakePublisher) ResolveCommunity(ctx context.Context, name string) (int, error) {
	id, ok := p.communities[name]
	if !ok {
		return 0, fmt.Errorf("community %q not found", name)
	}
	return id, nil
}

func (p *fakePublisher) CreatePost(ctx context.Context, communityID int, title, link, body string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.failTitles[title] {
		return fmt.Errorf("simulated publish failure for %q", title)
	}
	p.posts = append(p.posts, postedArticle{
		CommunityID: communityID,
		Title:       title,
		Link:        link,
		Body:        body,
	})
	return nil
}

func (p *fakePublisher) postCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.posts)
}

// buildRSS renders a minimal RSS document with the given item titles. Each
// item links to https://example.com/<slug>.
func buildRSS(pubDate time.Time, titles ...string) string {
	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="UTF-8"?><rss version="2.0"><channel><title>Test</title>`)
	for _, title := range titles {
		slug := strings.ToLower(strings.ReplaceAll(title, " ", "-"))
		fmt.Fprintf(&b, `<item><title>%s</title><link>https://example.com/%s</link><pubDate>%s</pubDate></item>`,
			title, slug, pubDate.Format(time.RFC1123Z))
	}
	b.WriteString(`</channel></rss>`)
	return b.String()
}

// newFeedServer serves the given body on every request.
func newFeedServer(t *testing.T, body string, status int) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if status != http.StatusOK {
			w.WriteHeader(status)
			return
		}
		w.Header().Set("Content-Type", "application/rss+xml")
		fmt.Fprint(w, body)
	}))
	t.Cleanup(server.Close)
	return server
}
