package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"
)

// Task is a locally tracked todo. ID is the current remote correlation ID
// and changes on every recreation. Official tasks are read-only mirrors
// imported from Habitica and must never be recreated.
type Task struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	Notes     string   `json:"notes"`
	Priority  string   `json:"priority"`
	Days      int      `json:"days"`
	Delay     int      `json:"delay"`
	Checklist string   `json:"checklist"`
	Owner     string   `json:"owner"`
	Official  bool     `json:"official"`
	TagIDs    []string `json:"tags"`
}

const taskColumns = `t.id, t.name, t.notes, t.priority, t.days, t.delay, t.checklist, t.owner, t.official,
       COALESCE(array_agg(tt.tag_id) FILTER (WHERE tt.tag_id IS NOT NULL), '{}')`

func scanTask(row interface{ Scan(...interface{}) error }) (Task, error) {
	var t Task
	err := row.Scan(&t.ID, &t.Name, &t.Notes, &t.Priority, &t.Days, &t.Delay,
		&t.Checklist, &t.Owner, &t.Official, pq.Array(&t.TagIDs))
	return t, err
}

// ListTasks returns every tracked task, grouped by owner so the sweep
// touches each owner's tag set once.
func (s *Store) ListTasks(ctx context.Context) ([]Task, error) {
	rows, err := s.DB.QueryContext(ctx, `
		SELECT `+taskColumns+`
		FROM task t
		LEFT JOIN task_tag tt ON tt.task_id = t.id
		GROUP BY t.id
		ORDER BY t.owner, t.id`)
	if err != nil {
		return nil, fmt.Errorf("store: list tasks: %w", err)
	}
	defer rows.Close()

	var tasks []Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("store: scan task: %w", err)
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

func (s *Store) TasksByOwner(ctx context.Context, owner string) ([]Task, error) {
	rows, err := s.DB.QueryContext(ctx, `
		SELECT `+taskColumns+`
		FROM task t
		LEFT JOIN task_tag tt ON tt.task_id = t.id
		WHERE t.owner = $1
		GROUP BY t.id
		ORDER BY t.id`, owner)
	if err != nil {
		return nil, fmt.Errorf("store: tasks by owner: %w", err)
	}
	defer rows.Close()

	var tasks []Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("store: scan task: %w", err)
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

func (s *Store) GetTask(ctx context.Context, id string) (Task, error) {
	row := s.DB.QueryRowContext(ctx, `
		SELECT `+taskColumns+`
		FROM task t
		LEFT JOIN task_tag tt ON tt.task_id = t.id
		WHERE t.id = $1
		GROUP BY t.id`, id)
	return scanTask(row)
}

func (s *Store) InsertTask(ctx context.Context, t Task) error {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: insert task: %w", err)
	}
	defer tx.Rollback()

	if err := insertTaskTx(ctx, tx, t); err != nil {
		return fmt.Errorf("store: insert task %s: %w", t.ID, err)
	}
	return tx.Commit()
}

// UpdateTask rewrites a task row and its tag associations in place. The
// ID does not change here; only recreation reassigns IDs.
func (s *Store) UpdateTask(ctx context.Context, t Task) error {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: update task: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		UPDATE task
		SET name=$2, notes=$3, priority=$4, days=$5, delay=$6, checklist=$7
		WHERE id=$1`,
		t.ID, t.Name, t.Notes, t.Priority, t.Days, t.Delay, t.Checklist)
	if err != nil {
		return fmt.Errorf("store: update task %s: %w", t.ID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM task_tag WHERE task_id=$1`, t.ID); err != nil {
		return fmt.Errorf("store: clear task tags %s: %w", t.ID, err)
	}
	if err := insertTaskTags(ctx, tx, t.ID, t.TagIDs); err != nil {
		return fmt.Errorf("store: update task tags %s: %w", t.ID, err)
	}
	return tx.Commit()
}

func (s *Store) DeleteTask(ctx context.Context, id string) error {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: delete task: %w", err)
	}
	defer tx.Rollback()

	if err := deleteTaskTx(ctx, tx, id); err != nil {
		return fmt.Errorf("store: delete task %s: %w", id, err)
	}
	return tx.Commit()
}

// ReplaceTask commits a recreation: the old row and its tag links go away
// and the carried-forward record comes in under the new remote ID, all in
// one transaction so tag associations never dangle mid-swap.
func (s *Store) ReplaceTask(ctx context.Context, oldID string, t Task) error {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: replace task: %w", err)
	}
	defer tx.Rollback()

	if err := deleteTaskTx(ctx, tx, oldID); err != nil {
		return fmt.Errorf("store: replace task %s: delete old: %w", oldID, err)
	}
	if err := insertTaskTx(ctx, tx, t); err != nil {
		return fmt.Errorf("store: replace task %s: insert %s: %w", oldID, t.ID, err)
	}
	return tx.Commit()
}

func insertTaskTx(ctx context.Context, tx *sql.Tx, t Task) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO task (id, name, notes, priority, days, delay, checklist, owner, official)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		t.ID, t.Name, t.Notes, t.Priority, t.Days, t.Delay, t.Checklist, t.Owner, t.Official)
	if err != nil {
		return err
	}
	return insertTaskTags(ctx, tx, t.ID, t.TagIDs)
}

func insertTaskTags(ctx context.Context, tx *sql.Tx, taskID string, tagIDs []string) error {
	for _, tagID := range tagIDs {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO task_tag (task_id, tag_id) VALUES ($1, $2)`, taskID, tagID); err != nil {
			return err
		}
	}
	return nil
}

func deleteTaskTx(ctx context.Context, tx *sql.Tx, id string) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM task_tag WHERE task_id=$1`, id); err != nil {
		return err
	}
	_, err := tx.ExecContext(ctx, `DELETE FROM task WHERE id=$1`, id)
	return err
}
