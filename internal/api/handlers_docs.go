package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
)

// handleListDocuments lists the caller's stored documents.
func (s *Server) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	user := userFrom(r)
	docs, err := s.store.List(r.Context(), user.ID)
	if err != nil {
		jsonError(w, "failed to list documents: "+err.Error(), http.StatusBadGateway)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"documents": docs})
}

func (s *Server) handleGetDocument(w http.ResponseWriter, r *http.Request) {
	doc, err := s.store.Get(r.Context(), chi.URLParam(r, "docID"))
	if err != nil {
		jsonError(w, "failed to fetch document: "+err.Error(), http.StatusBadGateway)
		return
	}
	if doc == nil {
		jsonError(w, "document not found", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(doc)
}

func (s *Server) handleDeleteDocument(w http.ResponseWriter, r *http.Request) {
	docID := chi.URLParam(r, "docID")

	// An in-flight run for this document keeps going; deletion only removes
	// the stored copy.
	if err := s.store.Delete(r.Context(), docID); err != nil {
		jsonError(w, "failed to delete document: "+err.Error(), http.StatusBadGateway)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "deleted"})
}

// handleExportDocument exports a stored document without needing its run.
func (s *Server) handleExportDocument(w http.ResponseWriter, r *http.Request) {
	doc, err := s.store.Get(r.Context(), chi.URLParam(r, "docID"))
	if err != nil {
		jsonError(w, "failed to fetch document: "+err.Error(), http.StatusBadGateway)
		return
	}
	if doc == nil {
		jsonError(w, "document not found", http.StatusNotFound)
		return
	}
	s.writeExport(w, r, doc)
}
