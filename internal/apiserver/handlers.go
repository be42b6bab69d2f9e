package apiserver

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/klubi/agentcheck/internal/store"
	v1alpha1 "github.com/klubi/agentcheck/pkg/apis/v1alpha1"
)

// CreateCheckRunRequest is the body of POST /checkruns.
type CreateCheckRunRequest struct {
	Profile string `json:"profile"`
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

// writeJSON serialises data as JSON and writes it to the response.
func (s *Server) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Error("failed to encode JSON response", zap.Error(err))
	}
}

// writeError writes a JSON error envelope to the response.
func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, map[string]string{"error": msg})
}

// ---------------------------------------------------------------------------
// Health
// ---------------------------------------------------------------------------

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// ---------------------------------------------------------------------------
// Profiles
// ---------------------------------------------------------------------------

func (s *Server) handleListProfiles(w http.ResponseWriter, r *http.Request) {
	profiles := make([]*v1alpha1.AgentProfile, 0, len(s.profiles))
	for _, name := range s.profileNames() {
		profiles = append(profiles, s.profiles[name])
	}
	s.writeJSON(w, http.StatusOK, profiles)
}

func (s *Server) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	p, ok := s.profiles[name]
	if !ok {
		s.writeError(w, http.StatusNotFound, "profile not found")
		return
	}
	s.writeJSON(w, http.StatusOK, p)
}

// ---------------------------------------------------------------------------
// CheckRuns
// ---------------------------------------------------------------------------

func (s *Server) handleListCheckRuns(w http.ResponseWriter, r *http.Request) {
	runs, err := store.ListCheckRuns(s.store, r.URL.Query().Get("profile"))
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, runs)
}

func (s *Server) handleGetCheckRun(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]

	run, err := store.GetCheckRun(s.store, name)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			s.writeError(w, http.StatusNotFound, "check run not found")
			return
		}
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, run)
}

func (s *Server) handleCreateCheckRun(w http.ResponseWriter, r *http.Request) {
	var req CreateCheckRunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Profile == "" {
		names := s.profileNames()
		if len(names) != 1 {
			s.writeError(w, http.StatusBadRequest, "profile is required")
			return
		}
		req.Profile = names[0]
	}

	p, ok := s.profiles[req.Profile]
	if !ok {
		s.writeError(w, http.StatusNotFound, "profile not found")
		return
	}

	run, err := s.runner.Run(r.Context(), p)
	if err != nil {
		s.logger.Error("check run failed", zap.String("profile", req.Profile), zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.logger.Info("check run completed",
		zap.String("run", run.Metadata.Name),
		zap.String("phase", string(run.Status.Phase)),
	)
	s.writeJSON(w, http.StatusCreated, run)
}
