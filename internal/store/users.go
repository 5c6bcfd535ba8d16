package store

import (
	"context"
	"fmt"
)

// User holds a Habitica account reference. APIToken is the encrypted
// credential blob; it is only ever decrypted right before an outbound
// call.
type User struct {
	ID       string
	Username string
	APIToken []byte
}

func (s *Store) GetUser(ctx context.Context, id string) (User, error) {
	var u User
	err := s.DB.QueryRowContext(ctx,
		`SELECT id, username, api_token FROM users WHERE id = $1`, id).
		Scan(&u.ID, &u.Username, &u.APIToken)
	return u, err
}

// UpsertUser stores the account on first login and refreshes the
// credential blob on every later one.
func (s *Store) UpsertUser(ctx context.Context, u User) error {
	_, err := s.DB.ExecContext(ctx, `
		INSERT INTO users (id, username, api_token)
		VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE SET
			username = EXCLUDED.username,
			api_token = EXCLUDED.api_token`,
		u.ID, u.Username, u.APIToken)
	if err != nil {
		return fmt.Errorf("store: upsert user %s: %w", u.ID, err)
	}
	return nil
}
