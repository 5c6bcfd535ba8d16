package sweep

import (
	"context"
	"fmt"

	"todo-overs-backend/internal/habitica"
	"todo-overs-backend/internal/store"
)

// reconcileTags makes the local tag table match the owner's remote tag
// set: insert new tags, update changed text, hard-delete leftovers. On a
// fetch failure nothing local changes and the error propagates so the
// backoff ladder can decide.
func (s *Sweeper) reconcileTags(ctx context.Context, creds habitica.Credentials, owner string) error {
	remote, err := s.Client.GetTags(ctx, creds)
	if err != nil {
		return err
	}

	local, err := s.Store.TagsByOwner(ctx, owner)
	if err != nil {
		return fmt.Errorf("load local tags: %w", err)
	}
	localByID := make(map[string]store.Tag, len(local))
	for _, t := range local {
		localByID[t.ID] = t
	}

	for _, rt := range remote {
		if lt, ok := localByID[rt.ID]; ok {
			if lt.Text != rt.Name {
				if err := s.Store.UpdateTagText(ctx, rt.ID, rt.Name); err != nil {
					return err
				}
			}
			delete(localByID, rt.ID)
		} else {
			tag := store.Tag{ID: rt.ID, Text: rt.Name, Owner: owner}
			if err := s.Store.InsertTag(ctx, tag); err != nil {
				return err
			}
		}
	}

	// Whatever remains locally no longer exists remotely.
	for id := range localByID {
		if err := s.Store.DeleteTag(ctx, id); err != nil {
			return err
		}
	}
	return nil
}
