package api

import (
	"encoding/json"
	"net/http"
)

// handleLLMStats returns rolling model-call latency statistics.
func (s *Server) handleLLMStats(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(s.llmStats.Current())
}
