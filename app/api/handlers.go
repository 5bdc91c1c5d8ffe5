package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/tuxhouse/lemmy-feed-bot/app/database"
	"github.com/tuxhouse/lemmy-feed-bot/app/feed"
	"github.com/tuxhouse/lemmy-feed-bot/app/tasks"
)

const recentSeenLimit = 50

type Handler struct {
	subscriptions []feed.Subscription
	seenRepo      database.SeenRepository
	stats         *tasks.Stats
	startedAt     time.Time
	version       string
}

func NewHandler(subscriptions []feed.Subscription, seenRepo database.SeenRepository,
	stats *tasks.Stats, version string) *Handler {
	return &Handler{
		subscriptions: subscriptions,
		seenRepo:      seenRepo,
		stats:         stats,
		startedAt:     time.Now(),
		version:       version,
	}
}

func (h *Handler) GetHealth(c *gin.Context) {
	health := map[string]interface{}{
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(h.startedAt).String(),
		"feeds":     len(h.subscriptions),
		"enabled":   len(feed.EnabledSubscriptions(h.subscriptions)),
	}

	if count, err := h.seenRepo.Count(c.Request.Context()); err == nil {
		health["seen_items"] = count
	}

	c.JSON(http.StatusOK, health)
}

func (h *Handler) GetStats(c *gin.Context) {
	snapshot := h.stats.Get()

	stats := gin.H{
		"cycles_completed": snapshot.CyclesCompleted,
		"feeds_fetched":    snapshot.FeedsFetched,
		"fetch_errors":     snapshot.FetchErrors,
		"articles_seen":    snapshot.ArticlesSeen,
		"articles_matched": snapshot.ArticlesMatched,
		"posts_created":    snapshot.PostsCreated,
		"publish_errors":   snapshot.PublishErrors,
	}

	if !snapshot.LastCycleAt.IsZero() {
		stats["last_cycle_at"] = snapshot.LastCycleAt.Format(time.RFC3339)
		stats["last_cycle_duration"] = snapshot.LastCycleDuration.String()
	}

	c.JSON(http.StatusOK, stats)
}

func (h *Handler) APIListFeeds(c *gin.Context) {
	feeds := make([]map[string]interface{}, 0, len(h.subscriptions))

	for _, sub := range h.subscriptions {
		feeds = append(feeds, map[string]interface{}{
			"feed_url":     sub.FeedURL,
			"community":    sub.Community,
			"enabled":      sub.IsEnabled(),
			"extract_body": sub.ExtractBody,
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"count": len(feeds),
		"feeds": feeds,
	})
}

func (h *Handler) APIRecentSeen(c *gin.Context) {
	items, err := h.seenRepo.Recent(c.Request.Context(), recentSeenLimit)
	if err != nil {
		slog.Error("Database error", "operation", "recent_seen", "error", err)
		c.Status(http.StatusInternalServerError)
		return
	}

	seen := make([]map[string]interface{}, 0, len(items))
	for _, item := range items {
		seen = append(seen, map[string]interface{}{
			"article_id": item.ArticleID,
			"title":      item.Title,
			"community":  item.Community,
			"posted_at":  item.PostedAt.Format(time.RFC3339),
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"count": len(seen),
		"items": seen,
	})
}
