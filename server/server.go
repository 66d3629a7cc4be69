package server

import (
	"encoding/json"
	"fmt"
	"net"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"

	"ocpinode/internal"
	"ocpinode/internal/config"
	"ocpinode/models"
	"ocpinode/ocpi"
	"ocpinode/ocpi/auth"
	"ocpinode/ocpi/commands"
	"ocpinode/ocpi/credentials"
	"ocpinode/ocpi/profiles"
)

const resultFeedEndpoint = "/ws/results"

type Server struct {
	conf          *config.Config
	httpServer    *http.Server
	upgrader      websocket.Upgrader
	logger        internal.LogHandler
	database      internal.Database
	store         internal.Store
	authenticator *auth.Authenticator
	registrar     *credentials.Registrar
	commands      *commands.Dispatcher
	profiles      *profiles.Dispatcher
	version       models.VersionNumber
}

func NewServer(conf *config.Config) *Server {
	server := &Server{
		conf:     conf,
		upgrader: websocket.Upgrader{},
		version:  models.VersionNumber(conf.Ocpi.Version),
	}
	router := httprouter.New()
	server.Register(router)
	server.httpServer = &http.Server{
		Handler: router,
	}
	return server
}

func (s *Server) SetLogger(logger internal.LogHandler) {
	s.logger = logger
}

func (s *Server) SetDatabase(database internal.Database) {
	s.database = database
}

func (s *Server) SetStore(store internal.Store) {
	s.store = store
}

func (s *Server) SetAuthenticator(authenticator *auth.Authenticator) {
	s.authenticator = authenticator
}

func (s *Server) SetRegistrar(registrar *credentials.Registrar) {
	s.registrar = registrar
}

func (s *Server) SetCommandDispatcher(dispatcher *commands.Dispatcher) {
	s.commands = dispatcher
}

func (s *Server) SetProfileDispatcher(dispatcher *profiles.Dispatcher) {
	s.profiles = dispatcher
}

// Register wires the OCPI surface into the router. The details route is
// registered statically per served version so it can live next to the
// /versions literal.
func (s *Server) Register(router *httprouter.Router) {
	prefix := "/" + s.conf.Ocpi.Prefix

	router.GET(prefix+"/versions", s.handleVersions)
	router.GET(prefix+"/"+s.conf.Ocpi.Version+"/details", s.handleVersionDetails)

	router.GET(prefix+"/cpo/:version/credentials", s.handleGetCredentials)
	router.POST(prefix+"/cpo/:version/credentials", s.handlePostCredentials)
	router.PUT(prefix+"/cpo/:version/credentials", s.handlePutCredentials)
	router.DELETE(prefix+"/cpo/:version/credentials", s.handleDeleteCredentials)

	router.POST(prefix+"/cpo/:version/commands/:command", s.handleCommand)

	router.GET(prefix+"/cpo/:version/chargingprofiles/:session_id", s.handleGetChargingProfile)
	router.PUT(prefix+"/cpo/:version/chargingprofiles/:session_id", s.handlePutChargingProfile)
	router.DELETE(prefix+"/cpo/:version/chargingprofiles/:session_id", s.handleDeleteChargingProfile)

	router.GET(resultFeedEndpoint, s.handleResultFeed)
	router.GET("/api/log", s.handleReadLog)
}

// checkVersion rejects module calls addressed to a version this node
// does not serve.
func (s *Server) checkVersion(w http.ResponseWriter, params httprouter.Params) bool {
	version := models.VersionNumber(params.ByName("version"))
	if version != s.version {
		s.sendError(w, http.StatusNotFound, "version not supported")
		return false
	}
	return true
}

// bearerFromRequest extracts the wire-form token from the Authorization
// header.
func bearerFromRequest(r *http.Request) (string, error) {
	return auth.FromHeader(r.Header.Get("Authorization"))
}

// authorize gates a module handler on a valid token C.
func (s *Server) authorize(w http.ResponseWriter, r *http.Request) (string, bool) {
	if s.conf.Ocpi.NoAuth && r.Header.Get("Authorization") == "" {
		return "", true
	}
	token, err := bearerFromRequest(r)
	if err != nil {
		s.sendError(w, http.StatusUnauthorized, "unauthorized")
		return "", false
	}
	if err = s.authenticator.Authenticate(r.Context(), token); err != nil {
		s.sendError(w, http.StatusUnauthorized, "unauthorized")
		return "", false
	}
	decoded, _ := s.authenticator.DecodeToken(token)
	return decoded, true
}

// authorizeRegistrationAware gates the versions endpoints: token A and
// token C are both acceptable, anonymous is not.
func (s *Server) authorizeRegistrationAware(w http.ResponseWriter, r *http.Request) bool {
	if s.conf.Ocpi.NoAuth && r.Header.Get("Authorization") == "" {
		return true
	}
	token, err := bearerFromRequest(r)
	if err != nil {
		s.sendError(w, http.StatusUnauthorized, "unauthorized")
		return false
	}
	state, err := s.authenticator.AuthenticateForRegistration(r.Context(), token)
	if err != nil {
		s.sendError(w, http.StatusInternalServerError, "internal error")
		return false
	}
	if state != auth.IsTokenA && state != auth.IsTokenC {
		s.sendError(w, http.StatusUnauthorized, "unauthorized")
		return false
	}
	return true
}

func (s *Server) sendResponse(w http.ResponseWriter, response *ocpi.Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(response); err != nil {
		s.logger.Error("error encoding response", err)
	}
}

func (s *Server) sendError(w http.ResponseWriter, statusCode int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(map[string]string{"detail": message})
}

func (s *Server) Start() error {
	if s.conf == nil {
		return fmt.Errorf("configuration not loaded")
	}
	serverAddress := fmt.Sprintf("%s:%s", s.conf.Listen.BindIP, s.conf.Listen.Port)
	s.logger.FeatureEvent("server", "", fmt.Sprintf("starting on %s", serverAddress))
	listener, err := net.Listen("tcp", serverAddress)
	if err != nil {
		return err
	}
	if s.conf.Listen.TLS {
		err = s.httpServer.ServeTLS(listener, s.conf.Listen.CertFile, s.conf.Listen.KeyFile)
	} else {
		err = s.httpServer.Serve(listener)
	}
	return err
}

// Handler exposes the configured router; used by tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}
