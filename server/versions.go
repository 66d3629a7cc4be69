package server

import (
	"fmt"
	"net/http"

	"github.com/julienschmidt/httprouter"

	"ocpinode/models"
	"ocpinode/ocpi"
)

// baseUrl is the public root of this node's OCPI surface.
func (s *Server) baseUrl() string {
	return fmt.Sprintf("%s://%s/%s", s.conf.Ocpi.Protocol, s.conf.Ocpi.Host, s.conf.Ocpi.Prefix)
}

// VersionsUrl is the absolute url of the /versions endpoint, handed to
// counterparts in this node's own credentials.
func (s *Server) VersionsUrl() string {
	return s.baseUrl() + "/versions"
}

func (s *Server) moduleUrl(module models.ModuleID) string {
	return fmt.Sprintf("%s/cpo/%s/%s/", s.baseUrl(), s.version, module)
}

// endpointCatalogue is the endpoint set served by this node for its
// version. 2.1.1 catalogues carry no interface role.
func (s *Server) endpointCatalogue() []models.Endpoint {
	role := models.RoleReceiver
	if s.version == models.V211 {
		role = ""
	}
	modules := []models.ModuleID{
		models.ModuleCredentials,
		models.ModuleCommands,
	}
	if s.version != models.V211 {
		modules = append(modules, models.ModuleChargingProfiles)
	}
	endpoints := make([]models.Endpoint, 0, len(modules))
	for _, module := range modules {
		endpoints = append(endpoints, models.Endpoint{
			Identifier: module,
			Role:       role,
			Url:        s.moduleUrl(module),
		})
	}
	return endpoints
}

func (s *Server) handleVersions(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	if !s.authorizeRegistrationAware(w, r) {
		return
	}
	versions := []models.Version{{
		Version: s.version,
		Url:     fmt.Sprintf("%s/%s/details", s.baseUrl(), s.version),
	}}
	s.sendResponse(w, ocpi.NewResponse(ocpi.StatusSuccess, versions))
}

func (s *Server) handleVersionDetails(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	if !s.authorizeRegistrationAware(w, r) {
		return
	}
	details := models.VersionDetails{
		Version:   s.version,
		Endpoints: s.endpointCatalogue(),
	}
	s.sendResponse(w, ocpi.NewResponse(ocpi.StatusSuccess, details))
}
