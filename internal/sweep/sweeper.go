// Package sweep is the recreation engine: one pass walks every tracked
// task, checks its remote status and recreates completed ones according
// to their delay settings. The pass is strictly sequential and tolerates
// rate limiting with a bounded backoff ladder.
package sweep

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"todo-overs-backend/internal/habitica"
	"todo-overs-backend/internal/store"
)

// RemoteClient is the slice of the Habitica client the sweep needs.
type RemoteClient interface {
	FetchTaskStatus(ctx context.Context, creds habitica.Credentials, taskID string) (habitica.TaskStatus, error)
	CreateTask(ctx context.Context, creds habitica.Credentials, fields habitica.TaskFields, tagIDs, checklist []string) (string, error)
	GetTags(ctx context.Context, creds habitica.Credentials) ([]habitica.Tag, error)
}

// TaskStore is the slice of the local store the sweep needs.
type TaskStore interface {
	ListTasks(ctx context.Context) ([]store.Task, error)
	DeleteTask(ctx context.Context, id string) error
	ReplaceTask(ctx context.Context, oldID string, t store.Task) error
	TagsByOwner(ctx context.Context, owner string) ([]store.Tag, error)
	InsertTag(ctx context.Context, t store.Tag) error
	UpdateTagText(ctx context.Context, id, text string) error
	DeleteTag(ctx context.Context, id string) error
	GetUser(ctx context.Context, id string) (store.User, error)
}

type Sweeper struct {
	Store   TaskStore
	Client  RemoteClient
	Decrypt func([]byte) ([]byte, error)

	// Sleep and Now exist so tests can run the backoff ladder without
	// waiting. Nil means time.Sleep / time.Now.
	Sleep func(time.Duration)
	Now   func() time.Time
}

func (s *Sweeper) sleep(d time.Duration) {
	if s.Sleep != nil {
		s.Sleep(d)
		return
	}
	time.Sleep(d)
}

func (s *Sweeper) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// Run executes one full synchronization pass. It returns an error only
// when the pass cannot start at all; per-task failures are logged and
// never abort the loop.
func (s *Sweeper) Run(ctx context.Context) error {
	runID := uuid.NewString()[:8]
	logf := func(format string, args ...interface{}) {
		log.Printf("[sweep %s] "+format, append([]interface{}{runID}, args...)...)
	}

	tasks, err := s.Store.ListTasks(ctx)
	if err != nil {
		return fmt.Errorf("sweep: list tasks: %w", err)
	}
	logf("starting, %d tasks tracked", len(tasks))

	tagsReconciled := make(map[string]bool)
	for _, task := range tasks {
		if ctx.Err() != nil {
			logf("canceled: %v", ctx.Err())
			return nil
		}

		creds, err := s.credentials(ctx, task.Owner)
		if err != nil {
			logf("task %s: owner %s credentials: %v", task.ID, task.Owner, err)
			continue
		}

		// Tag mirror runs once per owner, before any of that owner's
		// tasks are evaluated.
		if !tagsReconciled[task.Owner] {
			tagsReconciled[task.Owner] = true
			err := s.withBackoff(ctx, func() error {
				return s.reconcileTags(ctx, creds, task.Owner)
			})
			if err != nil {
				logf("owner %s: tag reconcile failed: %v", task.Owner, err)
			}
		}

		// Official tasks are read-only mirrors; they never reach the
		// recreation decision.
		if task.Official {
			continue
		}

		s.evaluate(ctx, logf, creds, task)
	}

	logf("finished")
	return nil
}

func (s *Sweeper) credentials(ctx context.Context, owner string) (habitica.Credentials, error) {
	user, err := s.Store.GetUser(ctx, owner)
	if err != nil {
		return habitica.Credentials{}, fmt.Errorf("load user: %w", err)
	}
	key, err := s.Decrypt(user.APIToken)
	if err != nil {
		return habitica.Credentials{}, fmt.Errorf("decrypt token: %w", err)
	}
	return habitica.Credentials{UserID: owner, APIKey: string(key)}, nil
}

// evaluate drives one task through the per-pass state machine: fetch
// status, then decide between delete, skip and recreate.
func (s *Sweeper) evaluate(ctx context.Context, logf func(string, ...interface{}), creds habitica.Credentials, task store.Task) {
	var status habitica.TaskStatus
	err := s.withBackoff(ctx, func() error {
		var ferr error
		status, ferr = s.Client.FetchTaskStatus(ctx, creds, task.ID)
		return ferr
	})

	switch {
	case errors.Is(err, habitica.ErrNotFound):
		// The remote copy is gone; drop the local record.
		if derr := s.Store.DeleteTask(ctx, task.ID); derr != nil {
			logf("task %s: gone remotely but local delete failed: %v", task.ID, derr)
		} else {
			logf("task %s: gone remotely, deleted locally", task.ID)
		}
		return
	case err != nil:
		logf("task %s: status fetch failed: %v", task.ID, err)
		return
	}

	if !status.Completed {
		logf("task %s: not completed", task.ID)
		return
	}

	if task.Delay > 0 {
		elapsed := elapsedDays(status.CompletedAt, s.now())
		if elapsed <= task.Delay {
			logf("task %s: completed but delay not met (%d of %d days)", task.ID, elapsed, task.Delay)
			return
		}
	}

	s.recreate(ctx, logf, creds, task)
}

func (s *Sweeper) recreate(ctx context.Context, logf func(string, ...interface{}), creds habitica.Credentials, task store.Task) {
	fields := habitica.TaskFields{
		Text:     task.Name,
		Notes:    task.Notes,
		Priority: task.Priority,
		Days:     task.Days,
	}
	var checklist []string
	if task.Checklist != "" {
		checklist = strings.Split(task.Checklist, "\n")
	}

	var newID string
	err := s.withBackoff(ctx, func() error {
		var cerr error
		newID, cerr = s.Client.CreateTask(ctx, creds, fields, task.TagIDs, checklist)
		return cerr
	})
	if err != nil {
		logf("task %s: recreation failed: %v", task.ID, err)
		return
	}

	next := task
	next.ID = newID
	if err := s.Store.ReplaceTask(ctx, task.ID, next); err != nil {
		// The remote copy exists even though the local swap failed. A
		// later sweep sees the stale ID 404 and cleans up.
		logf("task %s: recreated remotely as %s but local commit failed: %v", task.ID, newID, err)
		return
	}
	logf("task %s: recreated as %s", task.ID, newID)
}

// elapsedDays counts whole days between two instants after truncating
// both to UTC midnight, so a completion at 23:59 already counts as one
// elapsed day at 00:01.
func elapsedDays(completed, now time.Time) int {
	c := truncateUTC(completed)
	n := truncateUTC(now)
	return int(n.Sub(c).Hours() / 24)
}

func truncateUTC(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
