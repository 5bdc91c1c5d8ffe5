package tasks

import (
	"sync"
	"time"
)

// Stats tracks per-cycle counters. The poll loop writes from its single
// goroutine; the status API reads from HTTP handler goroutines, hence the
// mutex.
type Stats struct {
	mu sync.RWMutex

	cyclesCompleted int
	feedsFetched    int
	fetchErrors     int
	articlesSeen    int
	articlesMatched int
	postsCreated    int
	publishErrors   int

	lastCycleAt       time.Time
	lastCycleDuration time.Duration
}

// Snapshot is a read-only copy of the counters.
type Snapshot struct {
	CyclesCompleted   int           `json:"cycles_completed"`
	FeedsFetched      int           `json:"feeds_fetched"`
	FetchErrors       int           `json:"fetch_errors"`
	ArticlesSeen      int           `json:"articles_seen"`
	ArticlesMatched   int           `json:"articles_matched"`
	PostsCreated      int           `json:"posts_created"`
	PublishErrors     int           `json:"publish_errors"`
	LastCycleAt       time.Time     `json:"last_cycle_at"`
	LastCycleDuration time.Duration `json:"last_cycle_duration"`
}

func NewStats() *Stats {
	return &Stats{}
}

func (s *Stats) RecordFetch(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.fetchErrors++
		return
	}
	s.feedsFetched++
}

func (s *Stats) RecordArticles(seen, matched int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.articlesSeen += seen
	s.articlesMatched += matched
}

func (s *Stats) RecordPost(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.publishErrors++
		return
	}
	s.postsCreated++
}

func (s *Stats) RecordCycle(start time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cyclesCompleted++
	s.lastCycleAt = start
	s.lastCycleDuration = time.Since(start)
}

func (s *Stats) Get() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Snapshot{
		CyclesCompleted:   s.cyclesCompleted,
		FeedsFetched:      s.feedsFetched,
		FetchErrors:       s.fetchErrors,
		ArticlesSeen:      s.articlesSeen,
		ArticlesMatched:   s.articlesMatched,
		PostsCreated:      s.postsCreated,
		PublishErrors:     s.publishErrors,
		LastCycleAt:       s.lastCycleAt,
		LastCycleDuration: s.lastCycleDuration,
	}
}
