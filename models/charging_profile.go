package models

import "encoding/json"

type ProfileAction string

const (
	GetActiveProfile ProfileAction = "GET_ACTIVE_PROFILE"
	SetProfile       ProfileAction = "SET_PROFILE"
	ClearProfile     ProfileAction = "CLEAR_PROFILE"
)

type ChargingProfileResponseType string

const (
	ProfileResponseAccepted       ChargingProfileResponseType = "ACCEPTED"
	ProfileResponseNotSupported   ChargingProfileResponseType = "NOT_SUPPORTED"
	ProfileResponseRejected       ChargingProfileResponseType = "REJECTED"
	ProfileResponseTooOften       ChargingProfileResponseType = "TOO_OFTEN"
	ProfileResponseUnknownSession ChargingProfileResponseType = "UNKNOWN_SESSION"
)

type ChargingProfileResultType string

const (
	ProfileResultAccepted ChargingProfileResultType = "ACCEPTED"
	ProfileResultRejected ChargingProfileResultType = "REJECTED"
	ProfileResultUnknown  ChargingProfileResultType = "UNKNOWN"
)

type ChargingProfileResponse struct {
	Result  ChargingProfileResponseType `json:"result" bson:"result"`
	Timeout int                         `json:"timeout" bson:"timeout"`
}

type ChargingProfileResult struct {
	Result ChargingProfileResultType `json:"result" bson:"result"`
}

// ActiveChargingProfileResult answers a get-active-profile request; the
// profile itself stays an opaque document owned by the network layer.
type ActiveChargingProfileResult struct {
	Result  ChargingProfileResultType `json:"result" bson:"result"`
	Profile json.RawMessage           `json:"profile,omitempty" bson:"profile,omitempty"`
}

type ClearProfileResult struct {
	Result ChargingProfileResultType `json:"result" bson:"result"`
}

// ProfileRequest is the normalized inbound charging-profile operation,
// correlated by a generated key rather than the session id alone.
type ProfileRequest struct {
	Action         ProfileAction   `json:"action" bson:"action"`
	SessionId      string          `json:"session_id" bson:"session_id"`
	Duration       int             `json:"duration,omitempty" bson:"duration,omitempty"`
	ResponseUrl    string          `json:"response_url" bson:"response_url"`
	AuthToken      string          `json:"-" bson:"auth_token"`
	CorrelationKey string          `json:"-" bson:"correlation_key"`
	Profile        json.RawMessage `json:"-" bson:"profile,omitempty"`
}
