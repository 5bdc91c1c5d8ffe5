package tasks

import (
	"context"
	"log/slog"
	"math/rand"
	"net/http"
	"sync"
	"time"

	"github.com/tuxhouse/lemmy-feed-bot/app/cfg"
	"github.com/tuxhouse/lemmy-feed-bot/app/database"
	"github.com/tuxhouse/lemmy-feed-bot/app/feed"
)

// Randomized interval bounds used when no explicit interval is configured.
// Spreading cycles out avoids posting in a machine-regular rhythm.
const (
	minRandomIntervalMinutes = 11
	maxRandomIntervalMinutes = 23
)

// Scheduler drives the poll loop: one cycle walks every enabled
// subscription sequentially, then the loop sleeps until the next interval.
// A failing feed never blocks the rest of the cycle.
type Scheduler struct {
	subscriptions []feed.Subscription
	httpClient    *http.Client
	parser        *feed.Parser
	filterer      *feed.KeywordFilter
	extractor     BodyExtractor
	seenRepo      database.SeenRepository
	publisher     Publisher
	stats         *Stats

	userAgent      string
	fetchTimeout   time.Duration
	maxAge         time.Duration
	interval       time.Duration // 0 = randomized per cycle
	maxPosts       int
	simultaneously int

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// Options carries the poll loop knobs derived from configuration.
type Options struct {
	UserAgent      string
	FetchTimeout   time.Duration
	MaxAge         time.Duration
	Interval       time.Duration // 0 = randomized per cycle
	MaxPosts       int
	Simultaneously int
}

func NewScheduler(subscriptions []feed.Subscription, httpClient *http.Client, parser *feed.Parser,
	filterer *feed.KeywordFilter, extractor BodyExtractor, seenRepo database.SeenRepository,
	publisher Publisher, stats *Stats) *Scheduler {
	c := cfg.Get()

	return newScheduler(subscriptions, httpClient, parser, filterer, extractor, seenRepo,
		publisher, stats, Options{
			UserAgent:      c.UserAgent,
			FetchTimeout:   time.Duration(c.FetchTimeout) * time.Second,
			MaxAge:         time.Duration(c.MaxAgeHours) * time.Hour,
			Interval:       time.Duration(c.Interval) * time.Minute,
			MaxPosts:       c.MaxPosts,
			Simultaneously: c.Simultaneously,
		})
}

func newScheduler(subscriptions []feed.Subscription, httpClient *http.Client, parser *feed.Parser,
	filterer *feed.KeywordFilter, extractor BodyExtractor, seenRepo database.SeenRepository,
	publisher Publisher, stats *Stats, opts Options) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())

	return &Scheduler{
		subscriptions:  subscriptions,
		httpClient:     httpClient,
		parser:         parser,
		filterer:       filterer,
		extractor:      extractor,
		seenRepo:       seenRepo,
		publisher:      publisher,
		stats:          stats,
		userAgent:      opts.UserAgent,
		fetchTimeout:   opts.FetchTimeout,
		maxAge:         opts.MaxAge,
		interval:       opts.Interval,
		maxPosts:       opts.MaxPosts,
		simultaneously: opts.Simultaneously,
		ctx:            ctx,
		cancel:         cancel,
	}
}

func (s *Scheduler) Start() {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		timer := time.NewTimer(0) // first cycle runs immediately
		defer timer.Stop()

		for {
			select {
			case <-s.ctx.Done():
				return
			case <-timer.C:
				s.RunCycle(s.ctx)
				next := s.nextInterval()
				slog.Info("Cycle complete, sleeping", "next_cycle_in", next.String())
				timer.Reset(next)
			}
		}
	}()
}

func (s *Scheduler) Stop() {
	s.cancel()
	s.wg.Wait()
}

// RunCycle processes every enabled subscription once, honoring the total
// per-cycle post cap and the per-community batch size.
func (s *Scheduler) RunCycle(ctx context.Context) {
	start := time.Now()
	postsMade := 0
	perCommunity := make(map[string]int)

	for _, sub := range feed.EnabledSubscriptions(s.subscriptions) {
		if ctx.Err() != nil {
			return
		}
		if postsMade >= s.maxPosts {
			slog.Debug("Per-cycle post cap reached", "max_posts", s.maxPosts)
			break
		}

		allowance := s.maxPosts - postsMade
		if remaining := s.simultaneously - perCommunity[sub.Community]; remaining < allowance {
			allowance = remaining
		}
		if allowance <= 0 {
			slog.Debug("Community batch size reached, skipping feed",
				"feed", sub.FeedURL, "community", sub.Community)
			continue
		}

		task := NewProcessFeedTask(sub, s.httpClient, s.parser, s.filterer, s.extractor,
			s.seenRepo, s.publisher, s.stats, s.userAgent, s.fetchTimeout, s.maxAge)

		posted, err := task.Execute(ctx, allowance)
		postsMade += posted
		perCommunity[sub.Community] += posted
		if err != nil {
			slog.Error("Feed processing failed",
				"feed", sub.FeedURL,
				"community", sub.Community,
				"error", err)
			continue
		}
	}

	s.stats.RecordCycle(start)

	if postsMade == 0 {
		slog.Info("No new posts made this cycle")
	} else {
		slog.Info("Cycle posted articles", "count", postsMade, "duration", time.Since(start).String())
	}
}

func (s *Scheduler) nextInterval() time.Duration {
	if s.interval > 0 {
		return s.interval
	}
	minutes := minRandomIntervalMinutes + rand.Intn(maxRandomIntervalMinutes-minRandomIntervalMinutes+1)
	return time.Duration(minutes) * time.Minute
}
