package habitica

import "time"

// Credentials is a decrypted owner/API-key pair. It is passed explicitly
// into every call; nothing in this package holds per-user state.
type Credentials struct {
	UserID string
	APIKey string
}

// TaskFields is the writable field set sent on task creation and update.
type TaskFields struct {
	Text     string
	Notes    string
	Priority string
	Days     int
}

// TaskStatus is the remote completion state of a single task.
type TaskStatus struct {
	Completed   bool
	CompletedAt time.Time
}

type Tag struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Account describes the remote user returned by the login endpoints.
type Account struct {
	UserID   string
	APIToken string
	Username string
}
