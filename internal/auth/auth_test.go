package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"todo-overs-backend/internal/habitica"
	"todo-overs-backend/internal/store"
)

var testSecret = []byte("test-secret")

type mockAccountClient struct {
	LoginFunc     func(ctx context.Context, username, password string) (habitica.Account, error)
	FetchUserFunc func(ctx context.Context, creds habitica.Credentials) (habitica.Account, error)
}

func (m *mockAccountClient) Login(ctx context.Context, username, password string) (habitica.Account, error) {
	if m.LoginFunc != nil {
		return m.LoginFunc(ctx, username, password)
	}
	return habitica.Account{}, errors.New("no login stub")
}

func (m *mockAccountClient) FetchUser(ctx context.Context, creds habitica.Credentials) (habitica.Account, error) {
	if m.FetchUserFunc != nil {
		return m.FetchUserFunc(ctx, creds)
	}
	return habitica.Account{}, errors.New("no fetch stub")
}

type mockUserStore struct {
	upserted []store.User
}

func (m *mockUserStore) UpsertUser(ctx context.Context, u store.User) error {
	m.upserted = append(m.upserted, u)
	return nil
}

func passthroughEncrypt(b []byte) ([]byte, error) {
	return append([]byte("enc:"), b...), nil
}

func TestLoginStoresEncryptedTokenAndIssuesJWT(t *testing.T) {
	st := &mockUserStore{}
	client := &mockAccountClient{
		LoginFunc: func(ctx context.Context, username, password string) (habitica.Account, error) {
			if username != "katie" || password != "pw" {
				t.Errorf("login called with (%q, %q)", username, password)
			}
			return habitica.Account{UserID: "user-1", APIToken: "raw-token", Username: "katie"}, nil
		},
	}
	h := NewHandler(st, client, passthroughEncrypt, testSecret)

	body, _ := json.Marshal(map[string]string{"username": "katie", "password": "pw"})
	rec := httptest.NewRecorder()
	h.Login(rec, httptest.NewRequest(http.MethodPost, "/auth/login", bytes.NewReader(body)))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body)
	}
	if len(st.upserted) != 1 {
		t.Fatalf("upserted = %d users, want 1", len(st.upserted))
	}
	if string(st.upserted[0].APIToken) != "enc:raw-token" {
		t.Errorf("stored token = %q, want the encrypted blob", st.upserted[0].APIToken)
	}

	var resp struct {
		Token  string `json:"token"`
		UserID string `json:"user_id"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("bad response: %v", err)
	}
	if resp.UserID != "user-1" || resp.Token == "" {
		t.Errorf("response = %+v", resp)
	}
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	st := &mockUserStore{}
	client := &mockAccountClient{
		LoginFunc: func(context.Context, string, string) (habitica.Account, error) {
			return habitica.Account{}, &habitica.APIError{Op: "login", StatusCode: 401}
		},
	}
	h := NewHandler(st, client, passthroughEncrypt, testSecret)

	body, _ := json.Marshal(map[string]string{"username": "katie", "password": "wrong"})
	rec := httptest.NewRecorder()
	h.Login(rec, httptest.NewRequest(http.MethodPost, "/auth/login", bytes.NewReader(body)))

	if rec.Code != http.StatusForbidden {
		t.Errorf("status = %d, want 403", rec.Code)
	}
	if len(st.upserted) != 0 {
		t.Error("nothing may be stored on a failed login")
	}
}

func TestLoginTokenVerifiesCredentialPair(t *testing.T) {
	st := &mockUserStore{}
	client := &mockAccountClient{
		FetchUserFunc: func(ctx context.Context, creds habitica.Credentials) (habitica.Account, error) {
			if creds.UserID != "user-1" || creds.APIKey != "raw-token" {
				t.Errorf("creds = %+v", creds)
			}
			return habitica.Account{UserID: "user-1", APIToken: "raw-token", Username: "Katie"}, nil
		},
	}
	h := NewHandler(st, client, passthroughEncrypt, testSecret)

	body, _ := json.Marshal(map[string]string{"user_id": "user-1", "api_token": "raw-token"})
	rec := httptest.NewRecorder()
	h.LoginToken(rec, httptest.NewRequest(http.MethodPost, "/auth/login/token", bytes.NewReader(body)))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body)
	}
	if len(st.upserted) != 1 || st.upserted[0].ID != "user-1" {
		t.Errorf("upserted = %+v", st.upserted)
	}
}

func TestMiddlewareRoundtrip(t *testing.T) {
	token, err := GenerateToken(testSecret, "user-1")
	if err != nil {
		t.Fatalf("GenerateToken failed: %v", err)
	}

	var gotOwner string
	handler := Middleware(testSecret)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotOwner = OwnerID(r)
	}))

	req := httptest.NewRequest(http.MethodGet, "/tasks", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if gotOwner != "user-1" {
		t.Errorf("owner = %q, want user-1", gotOwner)
	}
}

func TestMiddlewareRejectsBadTokens(t *testing.T) {
	otherToken, _ := GenerateToken([]byte("other-secret"), "user-1")

	tests := []struct {
		name   string
		header string
	}{
		{"missing", ""},
		{"malformed", "Bearer not-a-jwt"},
		{"wrong secret", "Bearer " + otherToken},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			handler := Middleware(testSecret)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				t.Error("handler must not run")
			}))
			req := httptest.NewRequest(http.MethodGet, "/tasks", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != http.StatusUnauthorized {
				t.Errorf("status = %d, want 401", rec.Code)
			}
		})
	}
}
