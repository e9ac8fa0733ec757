package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"paperforge/internal/papers"
)

// handleImportPaper parses an uploaded paper, runs model analysis over it
// and stores the result in the knowledge base. The returned citations can be
// passed straight back as seed_references on a generate request.
func (s *Server) handleImportPaper(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes+1024*1024) // extra 1MB for form overhead

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		jsonError(w, "invalid multipart form: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		jsonError(w, "file is required: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer file.Close()

	filename := sanitizeFilename(header.Filename)
	if !papers.IsSupportedExtension(filename) {
		jsonError(w, fmt.Sprintf("unsupported file type: %s", filepath.Ext(filename)), http.StatusBadRequest)
		return
	}

	data, err := io.ReadAll(io.LimitReader(file, s.cfg.MaxUploadBytes+1))
	if err != nil {
		jsonError(w, "failed to read file", http.StatusInternalServerError)
		return
	}
	if int64(len(data)) > s.cfg.MaxUploadBytes {
		jsonError(w, fmt.Sprintf("file exceeds max size (%d bytes)", s.cfg.MaxUploadBytes), http.StatusRequestEntityTooLarge)
		return
	}

	parser, err := papers.ForFile(filename)
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if pp, ok := parser.(*papers.PDFParser); ok {
		pp.FallbackPdftotext = s.cfg.PDFFallbackPdftotext
	}
	paper, err := parser.Parse(bytes.NewReader(data), filename)
	if err != nil {
		jsonError(w, "failed to parse paper: "+err.Error(), http.StatusUnprocessableEntity)
		return
	}

	analysis, err := s.analyzer.Analyze(r.Context(), paper)
	if err != nil {
		jsonError(w, "failed to analyze paper: "+err.Error(), http.StatusBadGateway)
		return
	}

	entryID, err := s.knowledge.Add(paper.Title, analysis)
	if err != nil {
		s.log.Error("knowledge base write failed", "error", err)
		// Analysis still succeeded; report it without an entry ID.
		entryID = ""
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"title":        paper.Title,
		"sections":     len(paper.Sections),
		"entry_id":     entryID,
		"summary":      analysis.Summary,
		"citations":    analysis.Citations,
		"key_concepts": analysis.KeyConcepts,
	})
}

// handleSearchKnowledge searches stored paper analyses and notes.
func (s *Server) handleSearchKnowledge(w http.ResponseWriter, r *http.Request) {
	hits := s.knowledge.Search(r.URL.Query().Get("q"))
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"entries": hits})
}

func sanitizeFilename(name string) string {
	name = filepath.Base(name)
	name = strings.ReplaceAll(name, "/", "_")
	name = strings.ReplaceAll(name, "\\", "_")
	name = strings.ReplaceAll(name, "..", "_")
	if name == "" || name == "." {
		name = "unnamed"
	}
	return name
}
