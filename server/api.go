package server

import (
	"encoding/json"
	"net/http"

	"github.com/julienschmidt/httprouter"
)

// handleReadLog serves the recent system log to operators.
func (s *Server) handleReadLog(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	if _, ok := s.authorize(w, r); !ok {
		return
	}
	if s.database == nil {
		s.sendError(w, http.StatusServiceUnavailable, "log storage not configured")
		return
	}
	data, err := s.database.ReadLog()
	if err != nil {
		s.logger.Error("read log error", err)
		s.sendError(w, http.StatusInternalServerError, "internal error")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if err = json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Error("encoding log data failed", err)
	}
}
