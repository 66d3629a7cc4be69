package models

import "encoding/json"

type CommandType string

const (
	ReserveNow        CommandType = "RESERVE_NOW"
	CancelReservation CommandType = "CANCEL_RESERVATION"
	StartSession      CommandType = "START_SESSION"
	StopSession       CommandType = "STOP_SESSION"
	UnlockConnector   CommandType = "UNLOCK_CONNECTOR"
)

// CommandTypes lists the commands a protocol version accepts;
// CANCEL_RESERVATION exists from 2.2 on.
func CommandTypes(version VersionNumber) []CommandType {
	commands := []CommandType{ReserveNow, StartSession, StopSession, UnlockConnector}
	if version == V211 {
		return commands
	}
	return append(commands, CancelReservation)
}

type CommandResponseType string

const (
	ResponseNotSupported   CommandResponseType = "NOT_SUPPORTED"
	ResponseRejected       CommandResponseType = "REJECTED"
	ResponseAccepted       CommandResponseType = "ACCEPTED"
	ResponseTimeout        CommandResponseType = "TIMEOUT"
	ResponseUnknownSession CommandResponseType = "UNKNOWN_SESSION"
)

type CommandResultType string

const (
	ResultAccepted CommandResultType = "ACCEPTED"
	ResultRejected CommandResultType = "REJECTED"
	ResultFailed   CommandResultType = "FAILED"
	ResultTimeout  CommandResultType = "TIMEOUT"
	ResultUnknown  CommandResultType = "UNKNOWN"
)

// CommandResponse is the synchronous acknowledgement returned to the
// caller; Timeout is only present in 2.2.x responses.
type CommandResponse struct {
	Result  CommandResponseType `json:"result" bson:"result"`
	Timeout int                 `json:"timeout,omitempty" bson:"timeout,omitempty"`
}

// CommandResult is the terminal result pushed to response_url once the
// charge point has answered, or a synthesized one on await timeout.
type CommandResult struct {
	Result CommandResultType `json:"result" bson:"result"`
}

// CommandRequest is the normalized inbound command. The full
// command-specific body stays opaque in Payload; only the fields the
// dispatch logic needs are lifted out of it.
type CommandRequest struct {
	Command        CommandType     `json:"command" bson:"command"`
	LocationId     string          `json:"location_id,omitempty" bson:"location_id,omitempty"`
	EvseUid        string          `json:"evse_uid,omitempty" bson:"evse_uid,omitempty"`
	SessionId      string          `json:"session_id,omitempty" bson:"session_id,omitempty"`
	ResponseUrl    string          `json:"response_url" bson:"response_url"`
	AuthToken      string          `json:"-" bson:"auth_token"`
	CorrelationKey string          `json:"-" bson:"correlation_key"`
	Payload        json.RawMessage `json:"-" bson:"payload"`
}
