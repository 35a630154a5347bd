package api

import (
	"errors"
	"io"
	"net/http"
	"slices"

	"github.com/go-playground/validator/v10"
	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/xkilldash9x/synapse/api/schemas"
	"github.com/xkilldash9x/synapse/internal/adapters"
	"github.com/xkilldash9x/synapse/internal/auth"
	"github.com/xkilldash9x/synapse/internal/pipeline"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// historyLimit caps the rows returned by the history endpoint.
const historyLimit = 50

// AnalyzeRequest is the body of POST /api/analyze.
type AnalyzeRequest struct {
	Code         string `json:"code" validate:"required"`
	Language     string `json:"language" validate:"omitempty,max=64"`
	Filename     string `json:"filename" validate:"omitempty,max=255"`
	RefactorType string `json:"refactorType" validate:"omitempty,max=64"`
}

// SetKeyRequest is the body of POST /api/set-key.
type SetKeyRequest struct {
	APIKey string `json:"apiKey" validate:"required,min=10"`
}

// AdapterInfo describes one language profile.
type AdapterInfo struct {
	Name       string   `json:"name"`
	Extensions []string `json:"extensions"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.respondWithJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var req AnalyzeRequest
	if !s.decodeBody(w, r, &req) {
		return
	}
	if err := s.validate.Struct(req); err != nil {
		fields := validationFields(err)
		s.logger.Debug("Rejected analyze request", zap.Strings("fields", fields))
		msg := "Invalid request"
		if slices.Contains(fields, "Code:required") {
			msg = "Code is required"
		}
		s.respondWithError(w, http.StatusBadRequest, msg)
		return
	}

	language := req.Language
	if language == "" {
		language = req.Filename
	}
	userID := auth.UserIDFromContext(r.Context())

	result := s.deps.Pipeline.Run(r.Context(), pipeline.Request{
		Code:      req.Code,
		Language:  language,
		Objective: req.RefactorType,
		UserID:    userID,
	})
	s.respondWithJSON(w, http.StatusOK, result)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if s.deps.History == nil {
		s.respondWithJSON(w, http.StatusOK, []schemas.HistoryEntry{})
		return
	}

	history, err := s.deps.History.History(r.Context(), auth.UserIDFromContext(r.Context()), historyLimit)
	if err != nil {
		s.logger.Error("Failed to load history", zap.Error(err))
		s.respondWithError(w, http.StatusInternalServerError, "Failed to fetch history")
		return
	}
	s.respondWithJSON(w, http.StatusOK, history)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	if s.deps.History == nil {
		s.respondWithJSON(w, http.StatusOK, schemas.DashboardStats{RecentProjects: []schemas.RecentProject{}})
		return
	}

	stats, err := s.deps.History.Stats(r.Context(), auth.UserIDFromContext(r.Context()))
	if err != nil {
		s.logger.Error("Failed to compute dashboard stats", zap.Error(err))
		s.respondWithError(w, http.StatusInternalServerError, "Failed to fetch stats")
		return
	}
	s.respondWithJSON(w, http.StatusOK, stats)
}

func (s *Server) handleSetKey(w http.ResponseWriter, r *http.Request) {
	if !s.cfg.AllowKeyUpdate || s.deps.Keys == nil {
		s.respondWithError(w, http.StatusForbidden, "Runtime key updates are disabled")
		return
	}

	var req SetKeyRequest
	if !s.decodeBody(w, r, &req) {
		return
	}
	if err := s.validate.Struct(req); err != nil {
		s.logger.Debug("Rejected key update", zap.Strings("fields", validationFields(err)))
		s.respondWithError(w, http.StatusBadRequest, "Invalid Key")
		return
	}

	s.deps.Keys.SetKey(req.APIKey)
	s.logger.Info("Model API key updated at runtime.", zap.String("prefix", keyPrefix(req.APIKey)))
	s.respondWithJSON(w, http.StatusOK, map[string]any{"success": true, "message": "API Key Updated"})
}

func (s *Server) handleAdapters(w http.ResponseWriter, _ *http.Request) {
	profiles := adapters.All()
	out := make([]AdapterInfo, 0, len(profiles))
	for _, p := range profiles {
		out = append(out, AdapterInfo{Name: p.Name, Extensions: p.Extensions})
	}
	s.respondWithJSON(w, http.StatusOK, out)
}

// decodeBody reads a JSON body into dst, writing the error response itself on failure.
func (s *Server) decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.respondWithError(w, http.StatusRequestEntityTooLarge, "Request body too large")
			return false
		}
		s.respondWithError(w, http.StatusBadRequest, "Failed to read request body")
		return false
	}

	if err := json.Unmarshal(body, dst); err != nil {
		s.respondWithError(w, http.StatusBadRequest, "Invalid JSON body")
		return false
	}
	return true
}

// respondWithError sends a standardized JSON error response.
func (s *Server) respondWithError(w http.ResponseWriter, statusCode int, message string) {
	s.respondWithJSON(w, statusCode, errorResponse{Error: message})
}

func (s *Server) respondWithJSON(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Error("Failed to encode response", zap.Error(err))
	}
}

func keyPrefix(key string) string {
	if len(key) <= 5 {
		return "..."
	}
	return key[:5] + "..."
}

// validationFields lists the failing fields of a validator error, for logs.
func validationFields(err error) []string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil
	}
	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, fe.Field()+":"+fe.Tag())
	}
	return fields
}
