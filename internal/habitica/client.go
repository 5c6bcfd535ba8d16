// Package habitica wraps the handful of Habitica v3 API calls the
// synchronizer needs. Calls never retry internally; retry policy belongs
// to the sweep loop.
package habitica

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

const DefaultBaseURL = "https://habitica.com/api/v3"

var (
	// ErrRateLimited maps a 429 response.
	ErrRateLimited = errors.New("habitica: rate limited")
	// ErrNotFound maps a 404 response.
	ErrNotFound = errors.New("habitica: not found")
	// ErrTransient marks a 2xx response whose body could not be decoded.
	ErrTransient = errors.New("habitica: transient response error")
)

// APIError is any response status outside {2xx, 404, 429}.
type APIError struct {
	Op         string
	StatusCode int
}

func (e *APIError) Error() string {
	return fmt.Sprintf("habitica: %s returned status %d", e.Op, e.StatusCode)
}

type Client struct {
	BaseURL    string
	HTTPClient *http.Client

	now func() time.Time
}

func New(baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		BaseURL:    baseURL,
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
		now:        time.Now,
	}
}

func (c *Client) do(ctx context.Context, method, path string, creds *Credentials, body interface{}) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if creds != nil {
		req.Header.Set("x-api-user", creds.UserID)
		req.Header.Set("x-api-key", creds.APIKey)
	}

	return c.HTTPClient.Do(req)
}

func statusErr(op string, code int) error {
	switch code {
	case http.StatusTooManyRequests:
		return ErrRateLimited
	case http.StatusNotFound:
		return ErrNotFound
	}
	return &APIError{Op: op, StatusCode: code}
}

// FetchTaskStatus reads the completion state of one remote task.
// A 404 comes back as ErrNotFound; the caller decides what that means
// for the local record.
func (c *Client) FetchTaskStatus(ctx context.Context, creds Credentials, taskID string) (TaskStatus, error) {
	res, err := c.do(ctx, http.MethodGet, "/tasks/"+taskID, &creds, nil)
	if err != nil {
		return TaskStatus{}, fmt.Errorf("habitica: fetch task %s: %w", taskID, err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return TaskStatus{}, statusErr("fetch task", res.StatusCode)
	}

	var payload struct {
		Data struct {
			Completed     bool   `json:"completed"`
			DateCompleted string `json:"dateCompleted"`
		} `json:"data"`
	}
	if err := json.NewDecoder(res.Body).Decode(&payload); err != nil {
		return TaskStatus{}, fmt.Errorf("fetch task %s: %w", taskID, ErrTransient)
	}

	status := TaskStatus{Completed: payload.Data.Completed}
	if payload.Data.Completed && payload.Data.DateCompleted != "" {
		completed, err := time.Parse(time.RFC3339, payload.Data.DateCompleted)
		if err != nil {
			return TaskStatus{}, fmt.Errorf("fetch task %s: bad dateCompleted %q: %w",
				taskID, payload.Data.DateCompleted, ErrTransient)
		}
		status.CompletedAt = completed
	}
	return status, nil
}

// CreateTask posts a new todo and, when checklist lines are given, posts
// each line to the task's checklist sub-resource in order. The reported
// outcome is the task post combined with the outcome of the LAST checklist
// post; earlier item failures are not rolled back (see DESIGN.md).
func (c *Client) CreateTask(ctx context.Context, creds Credentials, fields TaskFields, tagIDs []string, checklist []string) (string, error) {
	body := map[string]interface{}{
		"text":     fields.Text,
		"type":     "todo",
		"notes":    fields.Notes,
		"priority": fields.Priority,
		"tags":     tagIDs,
	}
	if fields.Days > 0 {
		body["date"] = c.now().AddDate(0, 0, fields.Days).Format(time.RFC3339)
	}

	res, err := c.do(ctx, http.MethodPost, "/tasks/user", &creds, body)
	if err != nil {
		return "", fmt.Errorf("habitica: create task: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusCreated {
		return "", statusErr("create task", res.StatusCode)
	}

	var payload struct {
		Data struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	if err := json.NewDecoder(res.Body).Decode(&payload); err != nil || payload.Data.ID == "" {
		return "", fmt.Errorf("create task: %w", ErrTransient)
	}
	taskID := payload.Data.ID

	var lastErr error
	for _, item := range checklist {
		lastErr = c.addChecklistItem(ctx, creds, taskID, item)
	}
	if lastErr != nil {
		return "", lastErr
	}
	return taskID, nil
}

func (c *Client) addChecklistItem(ctx context.Context, creds Credentials, taskID, text string) error {
	res, err := c.do(ctx, http.MethodPost, "/tasks/"+taskID+"/checklist", &creds,
		map[string]string{"text": text})
	if err != nil {
		return fmt.Errorf("habitica: add checklist item: %w", err)
	}
	defer res.Body.Close()
	io.Copy(io.Discard, res.Body)

	if res.StatusCode != http.StatusOK && res.StatusCode != http.StatusCreated {
		return statusErr("add checklist item", res.StatusCode)
	}
	return nil
}

// UpdateTask puts the full writable field set onto an existing task.
func (c *Client) UpdateTask(ctx context.Context, creds Credentials, taskID string, fields TaskFields, tagIDs []string) error {
	body := map[string]interface{}{
		"text":     fields.Text,
		"notes":    fields.Notes,
		"priority": fields.Priority,
		"tags":     tagIDs,
	}
	if fields.Days > 0 {
		body["date"] = c.now().AddDate(0, 0, fields.Days).Format(time.RFC3339)
	}

	res, err := c.do(ctx, http.MethodPut, "/tasks/"+taskID, &creds, body)
	if err != nil {
		return fmt.Errorf("habitica: update task %s: %w", taskID, err)
	}
	defer res.Body.Close()
	io.Copy(io.Discard, res.Body)

	if res.StatusCode != http.StatusOK {
		return statusErr("update task", res.StatusCode)
	}
	return nil
}

// GetTags fetches the owner's full remote tag list.
func (c *Client) GetTags(ctx context.Context, creds Credentials) ([]Tag, error) {
	res, err := c.do(ctx, http.MethodGet, "/tags", &creds, nil)
	if err != nil {
		return nil, fmt.Errorf("habitica: get tags: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return nil, statusErr("get tags", res.StatusCode)
	}

	var payload struct {
		Data []Tag `json:"data"`
	}
	if err := json.NewDecoder(res.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("get tags: %w", ErrTransient)
	}
	return payload.Data, nil
}

// Login exchanges a Habitica username and password for the account's user
// ID and API token.
func (c *Client) Login(ctx context.Context, username, password string) (Account, error) {
	res, err := c.do(ctx, http.MethodPost, "/user/auth/local/login", nil,
		map[string]string{"username": username, "password": password})
	if err != nil {
		return Account{}, fmt.Errorf("habitica: login: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return Account{}, statusErr("login", res.StatusCode)
	}

	var payload struct {
		Data struct {
			ID       string `json:"id"`
			APIToken string `json:"apiToken"`
			Username string `json:"username"`
		} `json:"data"`
	}
	if err := json.NewDecoder(res.Body).Decode(&payload); err != nil || payload.Data.ID == "" {
		return Account{}, fmt.Errorf("login: %w", ErrTransient)
	}
	return Account{
		UserID:   payload.Data.ID,
		APIToken: payload.Data.APIToken,
		Username: payload.Data.Username,
	}, nil
}

// FetchUser verifies a credential pair and returns the profile name.
func (c *Client) FetchUser(ctx context.Context, creds Credentials) (Account, error) {
	res, err := c.do(ctx, http.MethodGet, "/user", &creds, nil)
	if err != nil {
		return Account{}, fmt.Errorf("habitica: fetch user: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return Account{}, statusErr("fetch user", res.StatusCode)
	}

	var payload struct {
		Data struct {
			Profile struct {
				Name string `json:"name"`
			} `json:"profile"`
		} `json:"data"`
	}
	if err := json.NewDecoder(res.Body).Decode(&payload); err != nil {
		return Account{}, fmt.Errorf("fetch user: %w", ErrTransient)
	}
	return Account{
		UserID:   creds.UserID,
		APIToken: creds.APIKey,
		Username: payload.Data.Profile.Name,
	}, nil
}
