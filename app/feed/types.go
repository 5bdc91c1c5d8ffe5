package feed

import (
	"time"
)

// Subscription maps one feed URL to the Lemmy community its articles are
// posted to. Loaded from the subscriptions file, read-only afterwards.
type Subscription struct {
	FeedURL     string `yaml:"feed_url"`
	Community   string `yaml:"community"`
	Enabled     *bool  `yaml:"enabled"`
	ExtractBody bool   `yaml:"extract_body"`
}

// IsEnabled treats a missing enabled flag as true, matching the file format
// where entries are opt-out.
func (s Subscription) IsEnabled() bool {
	return s.Enabled == nil || *s.Enabled
}

// Article is a normalized feed entry, produced per poll cycle and discarded
// after filtering and posting.
type Article struct {
	GUID        string
	Title       string
	Link        string
	Summary     string
	PublishedAt time.Time
}

// ID returns the identifier used for seen-item tracking: the GUID when the
// feed provides one, the link otherwise.
func (a Article) ID() string {
	if a.GUID != "" {
		return a.GUID
	}
	return a.Link
}
