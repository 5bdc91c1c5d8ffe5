package tasks

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/tuxhouse/lemmy-feed-bot/app/feed"
)

func newTestScheduler(t *testing.T, subs []feed.Subscription, publisher *fakePublisher,
	seenRepo *fakeSeenRepo, opts Options) *Scheduler {
	t.Helper()

	filterer, err := feed.NewKeywordFilter("", "")
	if err != nil {
		t.Fatalf("Failed to build filterer: %v", err)
	}

	if opts.UserAgent == "" {
		opts.UserAgent = "test-agent"
	}
	if opts.FetchTimeout == 0 {
		opts.FetchTimeout = 5 * time.Second
	}

	return newScheduler(subs, http.DefaultClient, feed.NewParser(), filterer, nil,
		seenRepo, publisher, NewStats(), opts)
}

func TestScheduler_FetchFailureDoesNotBlockOtherFeeds(t *testing.T) {
	oldDelay := fetchRetryDelay
	fetchRetryDelay = 10 * time.Millisecond
	defer func() { fetchRetryDelay = oldDelay }()

	broken := newFeedServer(t, "", http.StatusInternalServerError)
	working := newFeedServer(t, buildRSS(time.Now(), "Good Article"), http.StatusOK)

	subs := []feed.Subscription{
		{FeedURL: broken.URL, Community: "technology"},
		{FeedURL: working.URL, Community: "worldnews"},
	}

	publisher := newFakePublisher()
	seenRepo := newFakeSeenRepo()
	scheduler := newTestScheduler(t, subs, publisher, seenRepo, Options{
		MaxPosts:       10,
		Simultaneously: 10,
	})

	scheduler.RunCycle(context.Background())

	if publisher.postCount() != 1 {
		t.Errorf("Expected working feed to be processed despite broken feed, got %d posts", publisher.postCount())
	}
	if publisher.posts[0].Title != "Good Article" {
		t.Errorf("Unexpected posted article: %s", publisher.posts[0].Title)
	}

	snapshot := scheduler.stats.Get()
	if snapshot.FetchErrors != 1 {
		t.Errorf("Expected 1 fetch error recorded, got %d", snapshot.FetchErrors)
	}
	if snapshot.CyclesCompleted != 1 {
		t.Errorf("Expected 1 completed cycle, got %d", snapshot.CyclesCompleted)
	}
}

func TestScheduler_MaxPostsPerCycle(t *testing.T) {
	server := newFeedServer(t, buildRSS(time.Now(),
		"Article One", "Article Two", "Article Three", "Article Four", "Article Five"), http.StatusOK)

	subs := []feed.Subscription{
		{FeedURL: server.URL, Community: "technology"},
	}

	publisher := newFakePublisher()
	seenRepo := newFakeSeenRepo()
	scheduler := newTestScheduler(t, subs, publisher, seenRepo, Options{
		MaxPosts:       3,
		Simultaneously: 10,
	})

	scheduler.RunCycle(context.Background())

	if publisher.postCount() != 3 {
		t.Errorf("Expected max_posts=3 to cap the cycle, got %d posts", publisher.postCount())
	}

	// Remaining articles are posted on the following cycle
	scheduler.RunCycle(context.Background())
	if publisher.postCount() != 5 {
		t.Errorf("Expected remaining articles posted next cycle, got %d total", publisher.postCount())
	}
}

func TestScheduler_SimultaneouslyCapsCommunity(t *testing.T) {
	feedA := newFeedServer(t, buildRSS(time.Now(), "A One", "A Two", "A Three"), http.StatusOK)
	feedB := newFeedServer(t, buildRSS(time.Now(), "B One", "B Two"), http.StatusOK)

	// Both feeds target the same community
	subs := []feed.Subscription{
		{FeedURL: feedA.URL, Community: "technology"},
		{FeedURL: feedB.URL, Community: "technology"},
	}

	publisher := newFakePublisher()
	seenRepo := newFakeSeenRepo()
	scheduler := newTestScheduler(t, subs, publisher, seenRepo, Options{
		MaxPosts:       10,
		Simultaneously: 2,
	})

	scheduler.RunCycle(context.Background())

	if publisher.postCount() != 2 {
		t.Errorf("Expected 2 posts for the community this cycle, got %d", publisher.postCount())
	}
}

func TestScheduler_DisabledSubscriptionsSkipped(t *testing.T) {
	server := newFeedServer(t, buildRSS(time.Now(), "Article One"), http.StatusOK)

	off := false
	subs := []feed.Subscription{
		{FeedURL: server.URL, Community: "technology", Enabled: &off},
	}

	publisher := newFakePublisher()
	seenRepo := newFakeSeenRepo()
	scheduler := newTestScheduler(t, subs, publisher, seenRepo, Options{
		MaxPosts:       10,
		Simultaneously: 10,
	})

	scheduler.RunCycle(context.Background())

	if publisher.postCount() != 0 {
		t.Errorf("Expected disabled subscription to be skipped, got %d posts", publisher.postCount())
	}
}

func TestScheduler_NextInterval(t *testing.T) {
	scheduler := &Scheduler{interval: 15 * time.Minute}
	if got := scheduler.nextInterval(); got != 15*time.Minute {
		t.Errorf("Expected fixed interval, got %v", got)
	}

	randomized := &Scheduler{}
	for i := 0; i < 20; i++ {
		got := randomized.nextInterval()
		if got < minRandomIntervalMinutes*time.Minute || got > maxRandomIntervalMinutes*time.Minute {
			t.Fatalf("Randomized interval %v outside [%d, %d] minutes", got,
				minRandomIntervalMinutes, maxRandomIntervalMinutes)
		}
	}
}

func TestScheduler_StartStop(t *testing.T) {
	server := newFeedServer(t, buildRSS(time.Now(), "Article One"), http.StatusOK)

	subs := []feed.Subscription{
		{FeedURL: server.URL, Community: "technology"},
	}

	publisher := newFakePublisher()
	seenRepo := newFakeSeenRepo()
	scheduler := newTestScheduler(t, subs, publisher, seenRepo, Options{
		MaxPosts:       10,
		Simultaneously: 10,
		Interval:       time.Hour,
	})

	scheduler.Start()

	// The first cycle runs immediately
	deadline := time.After(5 * time.Second)
	for publisher.postCount() == 0 {
		select {
		case <-deadline:
			t.Fatal("Timed out waiting for first cycle")
		case <-time.After(10 * time.Millisecond):
		}
	}

	scheduler.Stop()

	if publisher.postCount() != 1 {
		t.Errorf("Expected 1 post from the first cycle, got %d", publisher.postCount())
	}
}
