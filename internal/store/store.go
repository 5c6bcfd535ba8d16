// Package store is the durable side of the synchronizer: tasks, tags and
// users in Postgres. Row identities are the remote Habitica IDs.
package store

import "database/sql"

type Store struct {
	DB *sql.DB
}

func New(database *sql.DB) *Store {
	return &Store{DB: database}
}
