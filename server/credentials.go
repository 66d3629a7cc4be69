package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/julienschmidt/httprouter"

	"ocpinode/metrics/counters"
	"ocpinode/models"
	"ocpinode/ocpi"
)

func (s *Server) decodeCredentials(r *http.Request) (*models.Credentials, error) {
	var submitted models.Credentials
	if err := json.NewDecoder(r.Body).Decode(&submitted); err != nil {
		return nil, err
	}
	if submitted.Token == "" || submitted.Url == "" {
		return nil, errors.New("token and url are required")
	}
	s.normalizeParty(&submitted)
	return &submitted, nil
}

// normalizeParty applies the configured case preference to the
// case-insensitive identifiers.
func (s *Server) normalizeParty(submitted *models.Credentials) {
	normalize := strings.ToUpper
	if s.conf.Ocpi.LowercaseCI {
		normalize = strings.ToLower
	}
	submitted.PartyId = normalize(submitted.PartyId)
	submitted.CountryCode = normalize(submitted.CountryCode)
	for i := range submitted.Roles {
		submitted.Roles[i].PartyId = normalize(submitted.Roles[i].PartyId)
		submitted.Roles[i].CountryCode = normalize(submitted.Roles[i].CountryCode)
	}
}

func (s *Server) handleGetCredentials(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	if !s.checkVersion(w, params) {
		return
	}
	token, err := bearerFromRequest(r)
	if err != nil {
		s.sendError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	integration, err := s.registrar.Registered(r.Context(), token)
	if err != nil {
		s.sendError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if integration == nil {
		s.sendError(w, http.StatusMethodNotAllowed, "client is not registered")
		return
	}
	s.sendResponse(w, ocpi.NewResponse(ocpi.StatusSuccess, integration.Credentials))
}

func (s *Server) handlePostCredentials(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	if !s.checkVersion(w, params) {
		return
	}
	token, err := bearerFromRequest(r)
	if err != nil {
		s.sendError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	submitted, err := s.decodeCredentials(r)
	if err != nil {
		s.sendError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	own, err := s.registrar.Register(r.Context(), token, *submitted)
	if err != nil {
		counters.CountRegistration("register", registrationOutcome(err))
		s.sendRegistrationError(w, err)
		return
	}
	counters.CountRegistration("register", "ok")
	s.sendResponse(w, ocpi.NewResponse(ocpi.StatusSuccess, own))
}

func (s *Server) handlePutCredentials(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	if !s.checkVersion(w, params) {
		return
	}
	token, err := bearerFromRequest(r)
	if err != nil {
		s.sendError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	submitted, err := s.decodeCredentials(r)
	if err != nil {
		s.sendError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	own, err := s.registrar.Update(r.Context(), token, *submitted)
	if err != nil {
		counters.CountRegistration("update", registrationOutcome(err))
		s.sendRegistrationError(w, err)
		return
	}
	counters.CountRegistration("update", "ok")
	s.sendResponse(w, ocpi.NewResponse(ocpi.StatusSuccess, own))
}

func (s *Server) handleDeleteCredentials(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	if !s.checkVersion(w, params) {
		return
	}
	token, err := bearerFromRequest(r)
	if err != nil {
		s.sendError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	if err = s.registrar.Deregister(r.Context(), token); err != nil {
		counters.CountRegistration("deregister", registrationOutcome(err))
		s.sendRegistrationError(w, err)
		return
	}
	counters.CountRegistration("deregister", "ok")
	s.sendResponse(w, ocpi.NewResponse(ocpi.StatusSuccess, nil))
}

// sendRegistrationError maps the handshake error taxonomy onto HTTP
// statuses and OCPI envelopes.
func (s *Server) sendRegistrationError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ocpi.ErrAlreadyRegistered):
		s.sendError(w, http.StatusMethodNotAllowed, "client is already registered")
	case errors.Is(err, ocpi.ErrNotRegistered):
		s.sendError(w, http.StatusMethodNotAllowed, "client is not registered")
	case errors.Is(err, ocpi.ErrUnauthorized):
		s.sendError(w, http.StatusUnauthorized, "unauthorized")
	case errors.Is(err, ocpi.ErrUnsupportedVersion):
		s.sendResponse(w, ocpi.NewResponse(ocpi.StatusUnsupportedVersion, nil))
	case errors.Is(err, ocpi.ErrClientAPI):
		s.sendResponse(w, ocpi.NewResponse(ocpi.StatusUnableToUseAPI, nil))
	default:
		s.logger.Error("credentials handler", err)
		s.sendError(w, http.StatusInternalServerError, "internal error")
	}
}

func registrationOutcome(err error) string {
	switch {
	case errors.Is(err, ocpi.ErrAlreadyRegistered):
		return "already_registered"
	case errors.Is(err, ocpi.ErrNotRegistered):
		return "not_registered"
	case errors.Is(err, ocpi.ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, ocpi.ErrUnsupportedVersion):
		return "unsupported_version"
	case errors.Is(err, ocpi.ErrClientAPI):
		return "client_api"
	default:
		return "error"
	}
}
