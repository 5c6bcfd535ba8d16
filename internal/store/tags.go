package store

import (
	"context"
	"fmt"
)

// Tag mirrors a remote Habitica tag. The tag mirror owns this table
// entirely; nothing else writes it.
type Tag struct {
	ID    string `json:"id"`
	Text  string `json:"text"`
	Owner string `json:"owner"`
}

func (s *Store) TagsByOwner(ctx context.Context, owner string) ([]Tag, error) {
	rows, err := s.DB.QueryContext(ctx,
		`SELECT id, tag_text, tag_owner FROM tag WHERE tag_owner = $1 ORDER BY id`, owner)
	if err != nil {
		return nil, fmt.Errorf("store: tags by owner: %w", err)
	}
	defer rows.Close()

	var tags []Tag
	for rows.Next() {
		var t Tag
		if err := rows.Scan(&t.ID, &t.Text, &t.Owner); err != nil {
			return nil, fmt.Errorf("store: scan tag: %w", err)
		}
		tags = append(tags, t)
	}
	return tags, rows.Err()
}

func (s *Store) InsertTag(ctx context.Context, t Tag) error {
	_, err := s.DB.ExecContext(ctx,
		`INSERT INTO tag (id, tag_text, tag_owner) VALUES ($1, $2, $3)`,
		t.ID, t.Text, t.Owner)
	if err != nil {
		return fmt.Errorf("store: insert tag %s: %w", t.ID, err)
	}
	return nil
}

func (s *Store) UpdateTagText(ctx context.Context, id, text string) error {
	_, err := s.DB.ExecContext(ctx, `UPDATE tag SET tag_text=$2 WHERE id=$1`, id, text)
	if err != nil {
		return fmt.Errorf("store: update tag %s: %w", id, err)
	}
	return nil
}

// DeleteTag hard-deletes a tag and its task associations.
func (s *Store) DeleteTag(ctx context.Context, id string) error {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: delete tag: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM task_tag WHERE tag_id=$1`, id); err != nil {
		return fmt.Errorf("store: delete tag links %s: %w", id, err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM tag WHERE id=$1`, id); err != nil {
		return fmt.Errorf("store: delete tag %s: %w", id, err)
	}
	return tx.Commit()
}
