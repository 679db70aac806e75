package apiserver

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	v1alpha1 "github.com/wardenhq/warden/pkg/apis/v1alpha1"
)

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
// Chat
// ---------------------------------------------------------------------------

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req v1alpha1.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		s.writeError(w, http.StatusBadRequest, "message must not be empty")
		return
	}

	resp, err := s.coordinator.HandleMessage(r.Context(), req.Message)
	if err != nil {
		s.logger.Error("chat turn failed", zap.Error(err))
		s.writeJSON(w, http.StatusInternalServerError, &v1alpha1.ChatResponse{
			Success: false,
			Error:   err.Error(),
		})
		return
	}

	s.writeJSON(w, http.StatusOK, resp)
}

// ---------------------------------------------------------------------------
// Memory
// ---------------------------------------------------------------------------

func (s *Server) handleListMemory(w http.ResponseWriter, r *http.Request) {
	events, err := s.log.All()
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, events)
}

func (s *Server) handleMemoryByCategory(w http.ResponseWriter, r *http.Request) {
	category := v1alpha1.Category(mux.Vars(r)["category"])
	if !v1alpha1.ValidCategory(category) {
		s.writeError(w, http.StatusBadRequest, "unknown category: "+string(category))
		return
	}

	events, err := s.log.ByCategory(category)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, events)
}

func (s *Server) handleMemoryStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.log.Stats()
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, &v1alpha1.StatsResponse{Stats: stats})
}

func (s *Server) handleClearMemory(w http.ResponseWriter, r *http.Request) {
	if err := s.log.Clear(); err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.logger.Info("memory cleared")
	s.writeJSON(w, http.StatusOK, &v1alpha1.ClearResponse{
		Message: "memory cleared",
		Success: true,
	})
}

// ---------------------------------------------------------------------------
// Tools
// ---------------------------------------------------------------------------

func (s *Server) handleListTools(w http.ResponseWriter, r *http.Request) {
	tools := s.registry.All()
	infos := make([]v1alpha1.ToolInfo, 0, len(tools))
	for _, t := range tools {
		infos = append(infos, v1alpha1.ToolInfo{
			Name:        t.Name,
			Category:    t.Category,
			Description: t.Description,
			Required:    t.Schema.Required,
		})
	}
	s.writeJSON(w, http.StatusOK, infos)
}
