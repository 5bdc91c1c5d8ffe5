package database

import (
	"context"
	"database/sql"
	"fmt"
)

var _ SeenRepository = (*SeenItemRepository)(nil)

// SeenItemRepository handles database operations for seen items
type SeenItemRepository struct {
	db *DB
}

func NewSeenItemRepository(db *DB) *SeenItemRepository {
	return &SeenItemRepository{db: db}
}

// Contains checks whether an article has already been posted.
func (r *SeenItemRepository) Contains(ctx context.Context, articleID string) (bool, error) {
	var found string
	err := r.db.QueryRowContext(ctx, `
		SELECT article_id FROM seen_items WHERE article_id = ? LIMIT 1
	`, articleID).Scan(&found)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check seen item: %w", err)
	}

	return true, nil
}

// Add records a posted article. Re-adding an existing identifier is a no-op
// so a duplicate insert can never fail a cycle.
func (r *SeenItemRepository) Add(ctx context.Context, articleID, title, community string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO seen_items (article_id, title, community)
		VALUES (?, ?, ?)
		ON CONFLICT (article_id) DO NOTHING
	`, articleID, title, community)
	if err != nil {
		return fmt.Errorf("failed to add seen item: %w", err)
	}

	return nil
}

// Count returns the total number of recorded items.
func (r *SeenItemRepository) Count(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM seen_items`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count seen items: %w", err)
	}

	return count, nil
}

// Recent returns the most recently posted items, newest first.
func (r *SeenItemRepository) Recent(ctx context.Context, limit int) ([]SeenItem, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT article_id, title, community, posted_at
		FROM seen_items
		ORDER BY posted_at DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get recent seen items: %w", err)
	}
	defer rows.Close()

	var items []SeenItem
	for rows.Next() {
		var item SeenItem
		if err := rows.Scan(&item.ArticleID, &item.Title, &item.Community, &item.PostedAt); err != nil {
			return nil, fmt.Errorf("failed to scan seen item: %w", err)
		}
		items = append(items, item)
	}

	return items, rows.Err()
}
