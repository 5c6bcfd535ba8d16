// Package changelog serves the public changelog and notice feeds shown
// on the site front page.
package changelog

import (
	"database/sql"
	"encoding/json"
	"net/http"
)

// Types the UI knows how to badge; anything else falls back to plain.
var entryTypes = map[string]bool{
	"feat": true, "fix": true, "docs": true, "style": true,
	"refactor": true, "test": true, "chore": true, "init": true,
}

type Entry struct {
	ID      int    `json:"id"`
	Title   string `json:"title"`
	Type    string `json:"type"`
	Subject string `json:"subject"`
}

type Notice struct {
	ID      int    `json:"id"`
	Content string `json:"content"`
}

// ListHandler: GET /changelog — newest entries first.
func ListHandler(dbx *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rows, err := dbx.QueryContext(r.Context(), `
			SELECT id, title, type, subject
			FROM changelog
			ORDER BY id DESC`)
		if err != nil {
			http.Error(w, "db query error", http.StatusInternalServerError)
			return
		}
		defer rows.Close()

		entries := []Entry{}
		for rows.Next() {
			var e Entry
			if err := rows.Scan(&e.ID, &e.Title, &e.Type, &e.Subject); err != nil {
				http.Error(w, "db scan error", http.StatusInternalServerError)
				return
			}
			entries = append(entries, e)
		}
		if err := rows.Err(); err != nil {
			http.Error(w, "db rows error", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(entries)
	}
}

// CreateHandler: POST /changelog — behind auth; no role model beyond that.
func CreateHandler(dbx *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Title   string `json:"title"`
			Type    string `json:"type"`
			Subject string `json:"subject"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}
		if body.Title == "" {
			http.Error(w, "title is required", http.StatusBadRequest)
			return
		}
		if !entryTypes[body.Type] {
			http.Error(w, "unknown entry type", http.StatusBadRequest)
			return
		}

		var e Entry
		e.Title = body.Title
		e.Type = body.Type
		e.Subject = body.Subject
		err := dbx.QueryRowContext(r.Context(), `
			INSERT INTO changelog (title, type, subject)
			VALUES ($1, $2, $3)
			RETURNING id`,
			body.Title, body.Type, body.Subject).Scan(&e.ID)
		if err != nil {
			http.Error(w, "db insert error", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(e)
	}
}

// NoticesHandler: GET /notices — only notices not marked expired.
func NoticesHandler(dbx *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rows, err := dbx.QueryContext(r.Context(), `
			SELECT id, content
			FROM notice
			WHERE NOT expired
			ORDER BY id DESC`)
		if err != nil {
			http.Error(w, "db query error", http.StatusInternalServerError)
			return
		}
		defer rows.Close()

		notices := []Notice{}
		for rows.Next() {
			var n Notice
			if err := rows.Scan(&n.ID, &n.Content); err != nil {
				http.Error(w, "db scan error", http.StatusInternalServerError)
				return
			}
			notices = append(notices, n)
		}
		if err := rows.Err(); err != nil {
			http.Error(w, "db rows error", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(notices)
	}
}
