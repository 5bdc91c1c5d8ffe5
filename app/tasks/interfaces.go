package tasks

import (
	"context"
)

// Publisher is the slice of the Lemmy client the poll loop needs: resolve a
// community name to its ID and submit a link post.
type Publisher interface {
	ResolveCommunity(ctx context.Context, name string) (int, error)
	CreatePost(ctx context.Context, communityID int, title, link, body string) error
}

// BodyExtractor turns a fetched article page into a post body excerpt.
type BodyExtractor interface {
	Run(data []byte) (string, error)
}
