// Package handlers exposes the operator HTTP API: worker control, queue
// inspection, download statistics and subreddit management.
package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/martiantux/redditarr/internal/db"
	"github.com/martiantux/redditarr/internal/paths"
	"github.com/martiantux/redditarr/internal/worker"
)

const recentOutcomeLimit = 25

// Server holds the API dependencies.
type Server struct {
	store   *db.Store
	manager *worker.Manager
	layout  *paths.Layout
}

// NewServer builds the API server.
func NewServer(store *db.Store, manager *worker.Manager, layout *paths.Layout) *Server {
	return &Server{store: store, manager: manager, layout: layout}
}

// Router builds the API route table.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/api/workers/status", s.handleWorkerStatus).Methods(http.MethodGet)
	r.HandleFunc("/api/workers/{worker_type}", s.handleWorkerToggle).Methods(http.MethodPost)
	r.HandleFunc("/api/queues/status", s.handleQueueStatus).Methods(http.MethodGet)
	r.HandleFunc("/api/downloads/stats", s.handleDownloadStats).Methods(http.MethodGet)
	r.HandleFunc("/api/subreddits", s.handleListSubreddits).Methods(http.MethodGet)
	r.HandleFunc("/api/subreddits", s.handleAddSubreddit).Methods(http.MethodPost)
	return r
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Failed to encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

type workerStatusResponse struct {
	WorkerType string `json:"worker_type"`
	Enabled    bool   `json:"enabled"`
	Running    bool   `json:"running"`
}

func (s *Server) handleWorkerStatus(w http.ResponseWriter, r *http.Request) {
	persisted, err := s.store.ListWorkerStatus(r.Context())
	if err != nil {
		log.Printf("Failed to load worker status: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to load worker status")
		return
	}
	out := make([]workerStatusResponse, 0, len(persisted))
	for _, st := range persisted {
		resp := workerStatusResponse{WorkerType: st.WorkerType, Enabled: st.Enabled}
		if q := s.manager.Queue(st.WorkerType); q != nil {
			resp.Running = q.Running()
		}
		out = append(out, resp)
	}
	writeJSON(w, http.StatusOK, out)
}

type workerToggleRequest struct {
	Enabled bool `json:"enabled"`
}

func (s *Server) handleWorkerToggle(w http.ResponseWriter, r *http.Request) {
	workerType := mux.Vars(r)["worker_type"]
	if !worker.ValidWorkerType(workerType) {
		writeError(w, http.StatusBadRequest, "unknown worker type: "+workerType)
		return
	}
	var req workerToggleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := s.manager.SetEnabled(r.Context(), workerType, req.Enabled); err != nil {
		log.Printf("Failed to toggle worker %s: %v", workerType, err)
		writeError(w, http.StatusInternalServerError, "failed to update worker")
		return
	}
	writeJSON(w, http.StatusOK, workerStatusResponse{
		WorkerType: workerType,
		Enabled:    req.Enabled,
		Running:    s.manager.Queue(workerType).Running(),
	})
}

func (s *Server) handleQueueStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.manager.Statuses(recentOutcomeLimit))
}

func (s *Server) handleDownloadStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.store.GetDownloadStats(r.Context())
	if err != nil {
		log.Printf("Failed to load download stats: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to load stats")
		return
	}
	diskUsage, err := paths.DirSize(s.layout.MediaDir())
	if err != nil {
		log.Printf("Failed to compute disk usage: %v", err)
	}
	writeJSON(w, http.StatusOK, struct {
		db.DownloadStats
		DiskUsage int64 `json:"disk_usage_bytes"`
	}{stats, diskUsage})
}

func (s *Server) handleListSubreddits(w http.ResponseWriter, r *http.Request) {
	nsfwMode := s.store.ConfigBool(r.Context(), "nsfw_mode", false)
	subs, err := s.store.ListSubreddits(r.Context(), nsfwMode)
	if err != nil {
		log.Printf("Failed to list subreddits: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to list subreddits")
		return
	}
	for i := range subs {
		size, err := paths.DirSize(s.layout.Absolute("media/" + subs[i].Name))
		if err == nil {
			subs[i].DiskUsage = size
		}
	}
	writeJSON(w, http.StatusOK, subs)
}

type addSubredditRequest struct {
	Name   string `json:"name"`
	Over18 bool   `json:"over_18"`
}

func (s *Server) handleAddSubreddit(w http.ResponseWriter, r *http.Request) {
	var req addSubredditRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	name := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(req.Name, "r/")))
	if name == "" {
		writeError(w, http.StatusBadRequest, "subreddit name is required")
		return
	}
	if err := s.store.AddSubreddit(r.Context(), name, req.Over18); err != nil {
		log.Printf("Failed to add subreddit %s: %v", name, err)
		writeError(w, http.StatusInternalServerError, "failed to add subreddit")
		return
	}
	sub, err := s.store.GetSubreddit(r.Context(), name)
	if err != nil || sub == nil {
		if err == nil {
			err = errors.New("not found after insert")
		}
		log.Printf("Failed to load subreddit %s: %v", name, err)
		writeError(w, http.StatusInternalServerError, "failed to load subreddit")
		return
	}
	writeJSON(w, http.StatusCreated, sub)
}
