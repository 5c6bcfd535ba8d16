// Package tasks holds the web CRUD surface. Every mutation goes to
// Habitica first and is committed locally only after the remote call
// succeeds.
package tasks

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"todo-overs-backend/internal/auth"
	"todo-overs-backend/internal/habitica"
	"todo-overs-backend/internal/store"
)

var validPriorities = map[string]bool{
	"0.1": true,
	"1.0": true,
	"1.5": true,
	"2.0": true,
}

type remoteClient interface {
	CreateTask(ctx context.Context, creds habitica.Credentials, fields habitica.TaskFields, tagIDs, checklist []string) (string, error)
	UpdateTask(ctx context.Context, creds habitica.Credentials, taskID string, fields habitica.TaskFields, tagIDs []string) error
}

type taskStore interface {
	GetUser(ctx context.Context, id string) (store.User, error)
	TasksByOwner(ctx context.Context, owner string) ([]store.Task, error)
	GetTask(ctx context.Context, id string) (store.Task, error)
	InsertTask(ctx context.Context, t store.Task) error
	UpdateTask(ctx context.Context, t store.Task) error
	DeleteTask(ctx context.Context, id string) error
	TagsByOwner(ctx context.Context, owner string) ([]store.Tag, error)
}

type Handler struct {
	Store   taskStore
	Client  remoteClient
	Decrypt func([]byte) ([]byte, error)
}

func New(st taskStore, client remoteClient, decrypt func([]byte) ([]byte, error)) *Handler {
	return &Handler{Store: st, Client: client, Decrypt: decrypt}
}

type taskRequest struct {
	Name      string   `json:"name"`
	Notes     string   `json:"notes"`
	Priority  string   `json:"priority"`
	Days      int      `json:"days"`
	Delay     int      `json:"delay"`
	Checklist string   `json:"checklist"`
	Tags      []string `json:"tags"`
}

func (req *taskRequest) validate() string {
	if req.Name == "" {
		return "name is required"
	}
	if req.Days < 0 || req.Delay < 0 {
		return "days and delay must not be negative"
	}
	if req.Priority == "" {
		req.Priority = "1.0"
	}
	if !validPriorities[req.Priority] {
		return "unknown priority"
	}
	return ""
}

func (h *Handler) credentials(r *http.Request) (habitica.Credentials, error) {
	owner := auth.OwnerID(r)
	user, err := h.Store.GetUser(r.Context(), owner)
	if err != nil {
		return habitica.Credentials{}, err
	}
	key, err := h.Decrypt(user.APIToken)
	if err != nil {
		return habitica.Credentials{}, err
	}
	return habitica.Credentials{UserID: owner, APIKey: string(key)}, nil
}

// List: GET /tasks
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	tasks, err := h.Store.TasksByOwner(r.Context(), auth.OwnerID(r))
	if err != nil {
		http.Error(w, "db query error", http.StatusInternalServerError)
		return
	}
	if tasks == nil {
		tasks = []store.Task{}
	}
	json.NewEncoder(w).Encode(tasks)
}

// Create: POST /tasks — creates the remote todo first, then the local row
// under the remote ID.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	var req taskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	if msg := req.validate(); msg != "" {
		http.Error(w, msg, http.StatusBadRequest)
		return
	}

	creds, err := h.credentials(r)
	if err != nil {
		http.Error(w, "credential error", http.StatusInternalServerError)
		return
	}

	fields := habitica.TaskFields{
		Text:     req.Name,
		Notes:    req.Notes,
		Priority: req.Priority,
		Days:     req.Days,
	}
	var checklist []string
	if req.Checklist != "" {
		checklist = strings.Split(req.Checklist, "\n")
	}

	newID, err := h.Client.CreateTask(r.Context(), creds, fields, req.Tags, checklist)
	if err != nil {
		http.Error(w, "remote create failed: "+err.Error(), http.StatusBadGateway)
		return
	}

	task := store.Task{
		ID:        newID,
		Name:      req.Name,
		Notes:     req.Notes,
		Priority:  req.Priority,
		Days:      req.Days,
		Delay:     req.Delay,
		Checklist: req.Checklist,
		Owner:     creds.UserID,
		TagIDs:    req.Tags,
	}
	if err := h.Store.InsertTask(r.Context(), task); err != nil {
		http.Error(w, "db insert error", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(task)
}

// Update: PUT /tasks/{id}
func (h *Handler) Update(w http.ResponseWriter, r *http.Request, id string) {
	w.Header().Set("Content-Type", "application/json")

	existing, err := h.Store.GetTask(r.Context(), id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			http.Error(w, "task not found", http.StatusNotFound)
			return
		}
		http.Error(w, "db query error", http.StatusInternalServerError)
		return
	}
	if existing.Owner != auth.OwnerID(r) {
		http.Error(w, "task not found", http.StatusNotFound)
		return
	}
	if existing.Official {
		http.Error(w, "official tasks are read-only", http.StatusForbidden)
		return
	}

	var req taskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	if msg := req.validate(); msg != "" {
		http.Error(w, msg, http.StatusBadRequest)
		return
	}

	creds, err := h.credentials(r)
	if err != nil {
		http.Error(w, "credential error", http.StatusInternalServerError)
		return
	}

	fields := habitica.TaskFields{
		Text:     req.Name,
		Notes:    req.Notes,
		Priority: req.Priority,
		Days:     req.Days,
	}
	if err := h.Client.UpdateTask(r.Context(), creds, id, fields, req.Tags); err != nil {
		http.Error(w, "remote update failed: "+err.Error(), http.StatusBadGateway)
		return
	}

	task := existing
	task.Name = req.Name
	task.Notes = req.Notes
	task.Priority = req.Priority
	task.Days = req.Days
	task.Delay = req.Delay
	task.Checklist = req.Checklist
	task.TagIDs = req.Tags
	if err := h.Store.UpdateTask(r.Context(), task); err != nil {
		http.Error(w, "db update error", http.StatusInternalServerError)
		return
	}

	json.NewEncoder(w).Encode(task)
}

// Delete: DELETE /tasks/{id} — removes the local record only. The remote
// copy is left alone and ages out through the 404 path of a later sweep.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request, id string) {
	existing, err := h.Store.GetTask(r.Context(), id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			http.Error(w, "task not found", http.StatusNotFound)
			return
		}
		http.Error(w, "db query error", http.StatusInternalServerError)
		return
	}
	if existing.Owner != auth.OwnerID(r) {
		http.Error(w, "task not found", http.StatusNotFound)
		return
	}

	if err := h.Store.DeleteTask(r.Context(), id); err != nil {
		http.Error(w, "db delete error", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Tags: GET /tags — the owner's mirrored tag set.
func (h *Handler) Tags(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	tags, err := h.Store.TagsByOwner(r.Context(), auth.OwnerID(r))
	if err != nil {
		http.Error(w, "db query error", http.StatusInternalServerError)
		return
	}
	if tags == nil {
		tags = []store.Tag{}
	}
	json.NewEncoder(w).Encode(tags)
}
