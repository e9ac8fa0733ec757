package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"paperforge/internal/document"
	"paperforge/internal/errcode"
	"paperforge/internal/export"
)

type generateRequest struct {
	Topic          string   `json:"topic"`
	Mode           string   `json:"mode"`
	Type           string   `json:"type"`
	CitationStyle  string   `json:"citation_style"`
	DocID          string   `json:"doc_id"`
	SeedReferences []string `json:"seed_references"`
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	mode, err := document.ParseMode(req.Mode)
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}
	docType, err := document.ParseType(req.Type)
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}
	style, err := document.ParseCitationStyle(req.CitationStyle)
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	user := userFrom(r)
	run, err := s.orchestrator.StartRun(document.GenerationConfig{
		Topic:          req.Topic,
		Mode:           mode,
		Type:           docType,
		CitationStyle:  style,
		SeedReferences: req.SeedReferences,
	}, req.DocID, user.ID)
	if err != nil {
		jsonError(w, err.Error(), statusForCode(errcode.CodeOf(err)))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(map[string]any{
		"run_id":   run.ID,
		"doc_id":   run.DocumentID,
		"poll_url": fmt.Sprintf("/api/runs/%s/status", run.ID),
	})
}

func (s *Server) handleRunStatus(w http.ResponseWriter, r *http.Request) {
	run := s.orchestrator.GetRun(chi.URLParam(r, "runID"))
	if run == nil {
		jsonError(w, "run not found", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(run.Snapshot())
}

func (s *Server) handleCancelRun(w http.ResponseWriter, r *http.Request) {
	if !s.orchestrator.CancelRun(chi.URLParam(r, "runID")) {
		jsonError(w, "run not found", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "cancelling"})
}

// handleRunDocument returns the run's document: complete on success, partial
// after a generation failure.
func (s *Server) handleRunDocument(w http.ResponseWriter, r *http.Request) {
	run := s.orchestrator.GetRun(chi.URLParam(r, "runID"))
	if run == nil {
		jsonError(w, "run not found", http.StatusNotFound)
		return
	}
	doc := run.Document()
	if doc == nil {
		jsonError(w, "run has no document yet", http.StatusConflict)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(doc)
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	run := s.orchestrator.GetRun(chi.URLParam(r, "runID"))
	if run == nil {
		jsonError(w, "run not found", http.StatusNotFound)
		return
	}
	doc := run.Document()
	if doc == nil {
		jsonError(w, "run has no document yet", http.StatusConflict)
		return
	}
	s.writeExport(w, r, doc)
}

func (s *Server) writeExport(w http.ResponseWriter, r *http.Request, doc *document.Document) {
	format, err := export.ParseFormat(chi.URLParam(r, "format"))
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}
	result, err := export.Export(doc, format)
	if err != nil {
		jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", result.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", result.Filename))
	w.Write(result.Data)
}

// statusForCode maps the error taxonomy onto HTTP statuses.
func statusForCode(code errcode.Code) int {
	switch code {
	case errcode.Validation, errcode.Parsing:
		return http.StatusBadRequest
	case errcode.RateLimit:
		return http.StatusTooManyRequests
	case errcode.Configuration:
		return http.StatusServiceUnavailable
	case errcode.Database, errcode.API, errcode.Generation:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
