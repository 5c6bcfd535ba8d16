// Package auth logs users in against Habitica and hands out JWT session
// tokens. No passwords are stored locally; the only secret kept is the
// encrypted API token.
package auth

import (
	"context"
	"encoding/json"
	"net/http"

	"todo-overs-backend/internal/habitica"
	"todo-overs-backend/internal/store"
)

type accountClient interface {
	Login(ctx context.Context, username, password string) (habitica.Account, error)
	FetchUser(ctx context.Context, creds habitica.Credentials) (habitica.Account, error)
}

type userStore interface {
	UpsertUser(ctx context.Context, u store.User) error
}

type Handler struct {
	Store   userStore
	Client  accountClient
	Encrypt func([]byte) ([]byte, error)
	Secret  []byte
}

func NewHandler(st userStore, client accountClient, encrypt func([]byte) ([]byte, error), secret []byte) *Handler {
	return &Handler{Store: st, Client: client, Encrypt: encrypt, Secret: secret}
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type tokenLoginRequest struct {
	UserID   string `json:"user_id"`
	APIToken string `json:"api_token"`
}

type loginResponse struct {
	Token    string `json:"token"`
	UserID   string `json:"user_id"`
	Username string `json:"username"`
}

// Login: POST /auth/login with a Habitica username and password.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	if req.Username == "" || req.Password == "" {
		http.Error(w, "username and password are required", http.StatusBadRequest)
		return
	}

	account, err := h.Client.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		http.Error(w, "invalid credentials", http.StatusForbidden)
		return
	}

	h.finishLogin(w, r, account)
}

// LoginToken: POST /auth/login/token with a user ID and raw API token.
func (h *Handler) LoginToken(w http.ResponseWriter, r *http.Request) {
	var req tokenLoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	if req.UserID == "" || req.APIToken == "" {
		http.Error(w, "user_id and api_token are required", http.StatusBadRequest)
		return
	}

	creds := habitica.Credentials{UserID: req.UserID, APIKey: req.APIToken}
	account, err := h.Client.FetchUser(r.Context(), creds)
	if err != nil {
		http.Error(w, "invalid credentials", http.StatusForbidden)
		return
	}

	h.finishLogin(w, r, account)
}

func (h *Handler) finishLogin(w http.ResponseWriter, r *http.Request, account habitica.Account) {
	blob, err := h.Encrypt([]byte(account.APIToken))
	if err != nil {
		http.Error(w, "credential storage error", http.StatusInternalServerError)
		return
	}

	user := store.User{ID: account.UserID, Username: account.Username, APIToken: blob}
	if err := h.Store.UpsertUser(r.Context(), user); err != nil {
		http.Error(w, "db error", http.StatusInternalServerError)
		return
	}

	token, err := GenerateToken(h.Secret, account.UserID)
	if err != nil {
		http.Error(w, "token error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(loginResponse{
		Token:    token,
		UserID:   account.UserID,
		Username: account.Username,
	})
}
