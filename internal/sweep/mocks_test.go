package sweep

import (
	"context"
	"time"

	"todo-overs-backend/internal/habitica"
	"todo-overs-backend/internal/store"
)

type mockClient struct {
	FetchTaskStatusFunc func(ctx context.Context, creds habitica.Credentials, taskID string) (habitica.TaskStatus, error)
	CreateTaskFunc      func(ctx context.Context, creds habitica.Credentials, fields habitica.TaskFields, tagIDs, checklist []string) (string, error)
	GetTagsFunc         func(ctx context.Context, creds habitica.Credentials) ([]habitica.Tag, error)

	fetchCalls  int
	createCalls int
	tagCalls    int
}

func (m *mockClient) FetchTaskStatus(ctx context.Context, creds habitica.Credentials, taskID string) (habitica.TaskStatus, error) {
	m.fetchCalls++
	if m.FetchTaskStatusFunc != nil {
		return m.FetchTaskStatusFunc(ctx, creds, taskID)
	}
	return habitica.TaskStatus{}, nil
}

func (m *mockClient) CreateTask(ctx context.Context, creds habitica.Credentials, fields habitica.TaskFields, tagIDs, checklist []string) (string, error) {
	m.createCalls++
	if m.CreateTaskFunc != nil {
		return m.CreateTaskFunc(ctx, creds, fields, tagIDs, checklist)
	}
	return "new-id", nil
}

func (m *mockClient) GetTags(ctx context.Context, creds habitica.Credentials) ([]habitica.Tag, error) {
	m.tagCalls++
	if m.GetTagsFunc != nil {
		return m.GetTagsFunc(ctx, creds)
	}
	return nil, nil
}

type mockStore struct {
	ListTasksFunc     func(ctx context.Context) ([]store.Task, error)
	DeleteTaskFunc    func(ctx context.Context, id string) error
	ReplaceTaskFunc   func(ctx context.Context, oldID string, t store.Task) error
	TagsByOwnerFunc   func(ctx context.Context, owner string) ([]store.Tag, error)
	InsertTagFunc     func(ctx context.Context, t store.Tag) error
	UpdateTagTextFunc func(ctx context.Context, id, text string) error
	DeleteTagFunc     func(ctx context.Context, id string) error
	GetUserFunc       func(ctx context.Context, id string) (store.User, error)

	deletedTasks []string
	replaced     []store.Task
	replacedOld  []string
	insertedTags []store.Tag
	updatedTags  map[string]string
	deletedTags  []string
}

func (m *mockStore) ListTasks(ctx context.Context) ([]store.Task, error) {
	if m.ListTasksFunc != nil {
		return m.ListTasksFunc(ctx)
	}
	return nil, nil
}

func (m *mockStore) DeleteTask(ctx context.Context, id string) error {
	m.deletedTasks = append(m.deletedTasks, id)
	if m.DeleteTaskFunc != nil {
		return m.DeleteTaskFunc(ctx, id)
	}
	return nil
}

func (m *mockStore) ReplaceTask(ctx context.Context, oldID string, t store.Task) error {
	m.replacedOld = append(m.replacedOld, oldID)
	m.replaced = append(m.replaced, t)
	if m.ReplaceTaskFunc != nil {
		return m.ReplaceTaskFunc(ctx, oldID, t)
	}
	return nil
}

func (m *mockStore) TagsByOwner(ctx context.Context, owner string) ([]store.Tag, error) {
	if m.TagsByOwnerFunc != nil {
		return m.TagsByOwnerFunc(ctx, owner)
	}
	return nil, nil
}

func (m *mockStore) InsertTag(ctx context.Context, t store.Tag) error {
	m.insertedTags = append(m.insertedTags, t)
	if m.InsertTagFunc != nil {
		return m.InsertTagFunc(ctx, t)
	}
	return nil
}

func (m *mockStore) UpdateTagText(ctx context.Context, id, text string) error {
	if m.updatedTags == nil {
		m.updatedTags = make(map[string]string)
	}
	m.updatedTags[id] = text
	if m.UpdateTagTextFunc != nil {
		return m.UpdateTagTextFunc(ctx, id, text)
	}
	return nil
}

func (m *mockStore) DeleteTag(ctx context.Context, id string) error {
	m.deletedTags = append(m.deletedTags, id)
	if m.DeleteTagFunc != nil {
		return m.DeleteTagFunc(ctx, id)
	}
	return nil
}

func (m *mockStore) GetUser(ctx context.Context, id string) (store.User, error) {
	if m.GetUserFunc != nil {
		return m.GetUserFunc(ctx, id)
	}
	return store.User{ID: id, APIToken: []byte("token-" + id)}, nil
}

// newTestSweeper wires a sweeper whose decrypt is a pass-through, whose
// clock is fixed and whose sleeps are recorded instead of taken.
func newTestSweeper(st *mockStore, client *mockClient, now time.Time) (*Sweeper, *[]time.Duration) {
	var sleeps []time.Duration
	s := &Sweeper{
		Store:   st,
		Client:  client,
		Decrypt: func(b []byte) ([]byte, error) { return b, nil },
		Sleep:   func(d time.Duration) { sleeps = append(sleeps, d) },
		Now:     func() time.Time { return now },
	}
	return s, &sleeps
}
