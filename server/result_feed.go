package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
)

// resultMessage is one terminal result delivered by the charge-point
// network layer over the feed socket. The correlator picks it up from
// the store on its next poll.
type resultMessage struct {
	Module         string          `json:"module"`
	CorrelationKey string          `json:"correlation_key"`
	Result         json.RawMessage `json:"result"`
}

// handleResultFeed upgrades the connection and ingests result messages
// into the store. The feed is gated by a token query parameter since
// websocket clients cannot set the Authorization header reliably.
func (s *Server) handleResultFeed(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	token := r.URL.Query().Get("token")
	if !s.conf.Ocpi.NoAuth {
		if err := s.authenticator.Authenticate(r.Context(), token); err != nil {
			s.sendError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("result feed upgrade failed", err)
		return
	}
	s.logger.FeatureEvent("resultfeed", "", fmt.Sprintf("feed connected from %s", r.RemoteAddr))

	go s.feedReader(conn)
}

func (s *Server) feedReader(conn *websocket.Conn) {
	defer func() {
		_ = conn.Close()
	}()
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.FeatureEvent("resultfeed", "", "feed closed")
			} else {
				s.logger.Warn(fmt.Sprintf("result feed read: %s", err))
			}
			return
		}
		var message resultMessage
		if err = json.Unmarshal(data, &message); err != nil {
			s.logger.Warn(fmt.Sprintf("undecodable feed message: %s", err))
			continue
		}
		if err = s.ingestResult(&message); err != nil {
			s.logger.Error("storing feed result", err)
		}
	}
}

func (s *Server) ingestResult(message *resultMessage) error {
	if message.CorrelationKey == "" || len(message.Result) == 0 {
		return fmt.Errorf("feed message missing correlation key or result")
	}
	ctx := context.Background()
	switch message.Module {
	case "commands":
		return s.store.PutCommandResult(ctx, message.CorrelationKey, message.Result)
	case "chargingprofiles":
		return s.store.PutProfileResult(ctx, message.CorrelationKey, message.Result)
	}
	return fmt.Errorf("unknown feed module %s", message.Module)
}
