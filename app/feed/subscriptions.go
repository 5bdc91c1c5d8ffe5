package feed

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// LoadSubscriptions reads the subscriptions file: a sequence of
// {feed_url, community, enabled} records. YAML is a superset of JSON, so
// legacy JSON feed lists load unchanged.
func LoadSubscriptions(path string) ([]Subscription, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read subscriptions file: %w", err)
	}

	var subs []Subscription
	if err := yaml.Unmarshal(data, &subs); err != nil {
		return nil, fmt.Errorf("failed to parse subscriptions file: %w", err)
	}

	for i, sub := range subs {
		if sub.FeedURL == "" {
			return nil, fmt.Errorf("subscription at index %d: feed_url is required", i)
		}
		if sub.Community == "" {
			return nil, fmt.Errorf("subscription at index %d: community is required", i)
		}
	}

	return subs, nil
}

// EnabledSubscriptions filters out disabled entries.
func EnabledSubscriptions(subs []Subscription) []Subscription {
	enabled := make([]Subscription, 0, len(subs))
	for _, sub := range subs {
		if sub.IsEnabled() {
			enabled = append(enabled, sub)
		}
	}
	return enabled
}
