package server

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	"github.com/julienschmidt/httprouter"

	"ocpinode/models"
	"ocpinode/ocpi"
	"ocpinode/ocpi/profiles"
)

// Charging profiles exist from 2.2 on; a 2.1.1 node has no such
// endpoints in its catalogue, so these handlers 404 for it.
func (s *Server) profilesServed(w http.ResponseWriter, params httprouter.Params) bool {
	if !s.checkVersion(w, params) {
		return false
	}
	if s.version == models.V211 {
		s.sendError(w, http.StatusNotFound, "not found")
		return false
	}
	return true
}

func (s *Server) handleGetChargingProfile(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	if !s.profilesServed(w, params) {
		return
	}
	authToken, ok := s.authorize(w, r)
	if !ok {
		return
	}

	responseUrl := r.URL.Query().Get("response_url")
	if responseUrl == "" {
		s.sendError(w, http.StatusUnprocessableEntity, "response_url is required")
		return
	}
	duration, err := strconv.Atoi(r.URL.Query().Get("duration"))
	if err != nil {
		s.sendError(w, http.StatusUnprocessableEntity, "duration is required")
		return
	}

	ack, err := s.profiles.GetActiveProfile(r.Context(), params.ByName("session_id"), duration, responseUrl, authToken)
	s.sendProfileAck(w, ack, err)
}

func (s *Server) handlePutChargingProfile(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	if !s.profilesServed(w, params) {
		return
	}
	authToken, ok := s.authorize(w, r)
	if !ok {
		return
	}

	payload, err := io.ReadAll(r.Body)
	if err != nil {
		s.sendError(w, http.StatusBadRequest, "unreadable body")
		return
	}
	var body struct {
		ResponseUrl string `json:"response_url"`
	}
	if err = json.Unmarshal(payload, &body); err != nil || body.ResponseUrl == "" {
		s.sendError(w, http.StatusUnprocessableEntity, "response_url is required")
		return
	}

	ack, err := s.profiles.SetProfile(r.Context(), params.ByName("session_id"), payload, body.ResponseUrl, authToken)
	s.sendProfileAck(w, ack, err)
}

func (s *Server) handleDeleteChargingProfile(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	if !s.profilesServed(w, params) {
		return
	}
	authToken, ok := s.authorize(w, r)
	if !ok {
		return
	}

	responseUrl := r.URL.Query().Get("response_url")
	if responseUrl == "" {
		s.sendError(w, http.StatusUnprocessableEntity, "response_url is required")
		return
	}

	ack, err := s.profiles.ClearProfile(r.Context(), params.ByName("session_id"), responseUrl, authToken)
	s.sendProfileAck(w, ack, err)
}

func (s *Server) sendProfileAck(w http.ResponseWriter, ack *profiles.Ack, err error) {
	if err != nil {
		s.logger.Error("charging profile dispatch", err)
		s.sendError(w, http.StatusInternalServerError, "internal error")
		return
	}
	s.sendResponse(w, ocpi.NewResponse(ack.StatusCode, []models.ChargingProfileResponse{ack.Response}))
}
