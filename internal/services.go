package internal

import (
	"context"
	"encoding/json"

	"ocpinode/models"
)

// Store is the node's single source of truth for domain objects and for
// the command/profile exchange with the charge-point network layer. It
// is assumed safe for concurrent use; the core adds no locking of its
// own.
type Store interface {
	// Location returns nil without error when the location is unknown.
	Location(ctx context.Context, id string) (json.RawMessage, error)
	// Session returns nil without error when the session is unknown.
	Session(ctx context.Context, id string) (json.RawMessage, error)

	// SendCommand hands the command to the network layer and returns its
	// immediate acknowledgement. A nil response means the command was not
	// taken at all.
	SendCommand(ctx context.Context, request *models.CommandRequest) (*models.CommandResponse, error)
	// SendProfileAction is the charging-profile counterpart of SendCommand.
	SendProfileAction(ctx context.Context, request *models.ProfileRequest) (*models.ChargingProfileResponse, error)

	// ClientToken resolves the push-capable bearer for the counterpart
	// identified by its token C.
	ClientToken(ctx context.Context, tokenC string) (string, error)

	// CommandResult returns the terminal result stored under the
	// correlation key, or nil while none has arrived.
	CommandResult(ctx context.Context, correlationKey string) (json.RawMessage, error)
	ProfileResult(ctx context.Context, correlationKey string) (json.RawMessage, error)
	PutCommandResult(ctx context.Context, correlationKey string, result json.RawMessage) error
	PutProfileResult(ctx context.Context, correlationKey string, result json.RawMessage) error
}

// TokenStore answers set-membership questions about the credential
// lists. Injected into the authenticator so no package-level token
// state exists.
type TokenStore interface {
	// TokenAExists reports whether the token is an unused invite.
	TokenAExists(ctx context.Context, token string) (bool, error)
	// TokenAUsed reports whether the token was an invite that a
	// successful registration has already consumed.
	TokenAUsed(ctx context.Context, token string) (bool, error)
	TokenCExists(ctx context.Context, token string) (bool, error)
}

// RegistrationStore persists integration records keyed by the token C
// issued to the counterpart.
type RegistrationStore interface {
	Integration(ctx context.Context, tokenC string) (*models.Integration, error)
	// SaveIntegration stores the record and marks the invite token A as
	// used in the same call. The invite stays on record so a replayed
	// registration can be told apart from a stranger.
	SaveIntegration(ctx context.Context, tokenA string, integration *models.Integration) error
	// ReplaceIntegration atomically swaps the record stored under
	// oldTokenC for the new one; the old token C must not validate after
	// the call returns. Returns ocpi.ErrNotFound when no record exists
	// under oldTokenC.
	ReplaceIntegration(ctx context.Context, oldTokenC string, integration *models.Integration) error
	// DeleteIntegration returns ocpi.ErrNotFound when no record exists
	// under tokenC.
	DeleteIntegration(ctx context.Context, tokenC string) error
}

type Database interface {
	WriteLogMessage(data Data) error
	ReadLog() (interface{}, error)
}

type Data interface {
	DataType() string
}

type LogHandler interface {
	FeatureEvent(feature, id, text string)
	Debug(text string)
	Warn(text string)
	Error(text string, err error)
}

type MessageService interface {
	Send(message Message) error
}

type Message interface {
	MessageType() string
}

// EventNotifier receives operator-facing notifications about protocol
// events (registrations, command failures).
type EventNotifier interface {
	Notify(text string)
}
