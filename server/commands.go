package server

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/julienschmidt/httprouter"

	"ocpinode/models"
	"ocpinode/ocpi"
)

// commandBody lifts the dispatch-relevant fields out of the
// command-specific shapes; the rest of the body stays opaque.
type commandBody struct {
	ResponseUrl string `json:"response_url"`
	LocationId  string `json:"location_id"`
	EvseUid     string `json:"evse_uid"`
	SessionId   string `json:"session_id"`
}

func (s *Server) handleCommand(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	if !s.checkVersion(w, params) {
		return
	}
	authToken, ok := s.authorize(w, r)
	if !ok {
		return
	}

	command := models.CommandType(params.ByName("command"))
	if !commandSupported(command, s.version) {
		response := models.CommandResponse{Result: models.ResponseNotSupported}
		s.sendResponse(w, ocpi.NewResponse(ocpi.StatusGenericClientError, []models.CommandResponse{response}))
		return
	}

	payload, err := io.ReadAll(r.Body)
	if err != nil {
		s.sendError(w, http.StatusBadRequest, "unreadable body")
		return
	}
	var body commandBody
	if err = json.Unmarshal(payload, &body); err != nil || body.ResponseUrl == "" {
		s.sendError(w, http.StatusUnprocessableEntity, "response_url is required")
		return
	}

	request := &models.CommandRequest{
		Command:     command,
		LocationId:  body.LocationId,
		EvseUid:     body.EvseUid,
		SessionId:   body.SessionId,
		ResponseUrl: body.ResponseUrl,
		AuthToken:   authToken,
		Payload:     payload,
	}

	ack, err := s.commands.Dispatch(r.Context(), request)
	if err != nil {
		s.logger.Error("command dispatch", err)
		s.sendError(w, http.StatusInternalServerError, "internal error")
		return
	}
	s.sendResponse(w, ocpi.NewResponse(ack.StatusCode, []models.CommandResponse{ack.Response}))
}

func commandSupported(command models.CommandType, version models.VersionNumber) bool {
	for _, known := range models.CommandTypes(version) {
		if known == command {
			return true
		}
	}
	return false
}
