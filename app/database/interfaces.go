package database

import (
	"context"
	"time"
)

type SeenItem struct {
	ArticleID string
	Title     string
	Community string
	PostedAt  time.Time
}

// SeenRepository is the durable record of articles already posted. The
// at-most-once publish invariant rests on Contains before a post and Add
// immediately after a successful one.
type SeenRepository interface {
	Contains(ctx context.Context, articleID string) (bool, error)
	Add(ctx context.Context, articleID, title, community string) error
	Count(ctx context.Context) (int, error)
	Recent(ctx context.Context, limit int) ([]SeenItem, error)
}
