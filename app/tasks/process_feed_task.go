package tasks

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/tuxhouse/lemmy-feed-bot/app/database"
	"github.com/tuxhouse/lemmy-feed-bot/app/feed"
)

const fetchMaxRetries = 3

// fetchRetryDelay is a variable so tests can shorten it.
var fetchRetryDelay = 5 * time.Second

// ProcessFeedTask handles one subscription for one cycle: fetch, parse,
// drop seen and non-matching articles, publish up to the given allowance,
// and record every published article as seen.
type ProcessFeedTask struct {
	Subscription feed.Subscription

	httpClient   *http.Client
	parser       *feed.Parser
	filterer     *feed.KeywordFilter
	extractor    BodyExtractor
	seenRepo     database.SeenRepository
	publisher    Publisher
	stats        *Stats
	userAgent    string
	fetchTimeout time.Duration
	maxAge       time.Duration
}

func NewProcessFeedTask(sub feed.Subscription, httpClient *http.Client, parser *feed.Parser,
	filterer *feed.KeywordFilter, extractor BodyExtractor, seenRepo database.SeenRepository,
	publisher Publisher, stats *Stats, userAgent string, fetchTimeout, maxAge time.Duration) *ProcessFeedTask {
	return &ProcessFeedTask{
		Subscription: sub,
		httpClient:   httpClient,
		parser:       parser,
		filterer:     filterer,
		extractor:    extractor,
		seenRepo:     seenRepo,
		publisher:    publisher,
		stats:        stats,
		userAgent:    userAgent,
		fetchTimeout: fetchTimeout,
		maxAge:       maxAge,
	}
}

// Execute runs the task and returns the number of articles posted.
// allowance caps the posts this task may make; the scheduler derives it
// from the per-cycle and per-community budgets.
func (t *ProcessFeedTask) Execute(ctx context.Context, allowance int) (int, error) {
	start := time.Now()

	data, err := t.fetchWithRetries(ctx, t.Subscription.FeedURL)
	t.stats.RecordFetch(err)
	if err != nil {
		return 0, fmt.Errorf("failed to fetch feed: %w", err)
	}

	articles, err := t.parser.Run(data)
	if err != nil {
		return 0, fmt.Errorf("failed to parse feed: %w", err)
	}

	communityID, err := t.publisher.ResolveCommunity(ctx, t.Subscription.Community)
	if err != nil {
		return 0, fmt.Errorf("failed to resolve community: %w", err)
	}

	seenCount := 0
	matchedCount := 0
	posted := 0

	for _, article := range articles {
		if posted >= allowance {
			break
		}
		if err := ctx.Err(); err != nil {
			return posted, err
		}

		if t.tooOld(article) {
			slog.Debug("Skipping stale article", "title", article.Title, "published_at", article.PublishedAt)
			continue
		}

		seen, err := t.seenRepo.Contains(ctx, article.ID())
		if err != nil {
			return posted, fmt.Errorf("failed to check seen item: %w", err)
		}
		if seen {
			seenCount++
			continue
		}

		if !t.filterer.Match(article) {
			slog.Debug("Article does not match any keyword", "title", article.Title)
			continue
		}
		matchedCount++

		body := t.extractBody(ctx, article)

		if err := t.publisher.CreatePost(ctx, communityID, article.Title, article.Link, body); err != nil {
			// Not marked seen: the article stays eligible next cycle.
			t.stats.RecordPost(err)
			slog.Error("Failed to post article",
				"title", article.Title,
				"community", t.Subscription.Community,
				"error", err)
			continue
		}
		t.stats.RecordPost(nil)

		if err := t.seenRepo.Add(ctx, article.ID(), article.Title, t.Subscription.Community); err != nil {
			return posted, fmt.Errorf("failed to record seen item: %w", err)
		}

		slog.Info("Posted article",
			"title", article.Title,
			"link", article.Link,
			"community", t.Subscription.Community)
		posted++
	}

	t.stats.RecordArticles(seenCount, matchedCount)

	slog.Debug("Feed processed",
		"feed", t.Subscription.FeedURL,
		"duration", time.Since(start),
		"total", len(articles),
		"already_seen", seenCount,
		"matched", matchedCount,
		"posted", posted)

	return posted, nil
}

func (t *ProcessFeedTask) tooOld(article feed.Article) bool {
	if t.maxAge <= 0 || article.PublishedAt.IsZero() {
		return false
	}
	return time.Since(article.PublishedAt) > t.maxAge
}

// extractBody fetches the article page and extracts a plain-text excerpt.
// Extraction is best effort; any failure falls back to an empty body.
func (t *ProcessFeedTask) extractBody(ctx context.Context, article feed.Article) string {
	if !t.Subscription.ExtractBody || t.extractor == nil {
		return ""
	}

	data, err := t.fetch(ctx, article.Link)
	if err != nil {
		slog.Debug("Failed to fetch article page for extraction", "link", article.Link, "error", err)
		return ""
	}

	body, err := t.extractor.Run(data)
	if err != nil {
		slog.Debug("Failed to extract article body", "link", article.Link, "error", err)
		return ""
	}

	return body
}

// fetchWithRetries retries transient fetch failures within the cycle; the
// next cycle is the outer retry for anything still failing.
func (t *ProcessFeedTask) fetchWithRetries(ctx context.Context, url string) ([]byte, error) {
	var lastErr error
	for attempt := 1; attempt <= fetchMaxRetries; attempt++ {
		data, err := t.fetch(ctx, url)
		if err == nil {
			return data, nil
		}
		lastErr = err

		if attempt < fetchMaxRetries {
			slog.Warn("Feed fetch failed, retrying",
				"url", url,
				"attempt", attempt,
				"max_retries", fetchMaxRetries,
				"error", err)

			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(fetchRetryDelay):
			}
		}
	}

	return nil, fmt.Errorf("fetch failed after %d attempts: %w", fetchMaxRetries, lastErr)
}

func (t *ProcessFeedTask) fetch(ctx context.Context, url string) ([]byte, error) {
	timeoutCtx, cancel := context.WithTimeout(ctx, t.fetchTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(timeoutCtx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("User-Agent", t.userAgent)

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP error: %d %s", resp.StatusCode, resp.Status)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	return data, nil
}
