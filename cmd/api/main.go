package main

import (
	"context"
	"log"
	"net/http"
	"strings"
	"sync/atomic"

	"github.com/rs/cors"

	"todo-overs-backend/internal/auth"
	"todo-overs-backend/internal/changelog"
	"todo-overs-backend/internal/cipher"
	"todo-overs-backend/internal/config"
	"todo-overs-backend/internal/db"
	"todo-overs-backend/internal/habitica"
	"todo-overs-backend/internal/store"
	"todo-overs-backend/internal/sweep"
	"todo-overs-backend/internal/tasks"
)

func main() {
	cfg := config.Load()

	database, err := db.Connect(cfg.ConnString())
	if err != nil {
		log.Fatal("❌ Failed to connect DB:", err)
	}
	defer database.Close()

	log.Println("✅ Connected to PostgreSQL!")

	codec := cipher.New(cfg.CipherFile)
	if err := codec.Init(); err != nil {
		log.Fatal("❌ Failed to init cipher key:", err)
	}

	if cfg.JWTSecret == "" {
		log.Fatal("❌ JWT_SECRET is required")
	}
	secret := []byte(cfg.JWTSecret)

	st := store.New(database)
	client := habitica.New(cfg.HabiticaURL)

	authHandler := auth.NewHandler(st, client, codec.Encrypt, secret)
	taskHandler := tasks.New(st, client, codec.Decrypt)
	sweeper := &sweep.Sweeper{Store: st, Client: client, Decrypt: codec.Decrypt}

	protect := auth.Middleware(secret)

	mux := http.NewServeMux()

	// Health endpoint
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	})

	// ----- AUTH -----
	mux.HandleFunc("/auth/login", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost:
			authHandler.Login(w, r)
		case http.MethodOptions:
			w.WriteHeader(http.StatusOK)
		default:
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		}
	})
	mux.HandleFunc("/auth/login/token", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost:
			authHandler.LoginToken(w, r)
		case http.MethodOptions:
			w.WriteHeader(http.StatusOK)
		default:
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		}
	})

	// ----- TASKS -----
	mux.Handle("/tasks", protect(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			taskHandler.List(w, r)
		case http.MethodPost:
			taskHandler.Create(w, r)
		case http.MethodOptions:
			w.WriteHeader(http.StatusOK)
		default:
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		}
	})))
	mux.Handle("/tasks/", protect(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimPrefix(r.URL.Path, "/tasks/")
		if id == "" || strings.Contains(id, "/") {
			http.Error(w, "task not found", http.StatusNotFound)
			return
		}
		switch r.Method {
		case http.MethodPut:
			taskHandler.Update(w, r, id)
		case http.MethodDelete:
			taskHandler.Delete(w, r, id)
		case http.MethodOptions:
			w.WriteHeader(http.StatusOK)
		default:
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		}
	})))

	// ----- TAGS -----
	mux.Handle("/tags", protect(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			taskHandler.Tags(w, r)
		case http.MethodOptions:
			w.WriteHeader(http.StatusOK)
		default:
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		}
	})))

	// ----- CHANGELOG / NOTICES -----
	mux.HandleFunc("/changelog", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			changelog.ListHandler(database)(w, r)
		case http.MethodPost:
			protect(changelog.CreateHandler(database)).ServeHTTP(w, r)
		case http.MethodOptions:
			w.WriteHeader(http.StatusOK)
		default:
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		}
	})
	mux.HandleFunc("/notices", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			changelog.NoticesHandler(database)(w, r)
		case http.MethodOptions:
			w.WriteHeader(http.StatusOK)
		default:
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		}
	})

	// ----- SYNC TRIGGER -----
	// One sweep at a time; the guard rejects overlapping triggers. Only
	// whether the sweep could start is reported, outcomes go to the log.
	var syncRunning int32
	mux.Handle("/sync", protect(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		if !atomic.CompareAndSwapInt32(&syncRunning, 0, 1) {
			http.Error(w, "sweep already running", http.StatusConflict)
			return
		}
		go func() {
			defer atomic.StoreInt32(&syncRunning, 0)
			if err := sweeper.Run(context.Background()); err != nil {
				log.Printf("sweep failed to start: %v", err)
			}
		}()
		w.WriteHeader(http.StatusAccepted)
	})))

	// CORS
	c := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
	})

	handler := c.Handler(mux)

	log.Println("🚀 API server is running on", cfg.ListenAddr)
	log.Fatal(http.ListenAndServe(cfg.ListenAddr, handler))
}
