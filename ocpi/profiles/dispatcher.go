// Package profiles dispatches the three charging-profile operations
// (get active profile, set, clear) with the same two-phase shape as
// ocpi/commands: synchronous acknowledgement, detached background poll,
// result push to response_url.
package profiles

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"ocpinode/internal"
	"ocpinode/metrics/counters"
	"ocpinode/models"
	"ocpinode/ocpi"
	"ocpinode/ocpi/client"
	"ocpinode/ocpi/codec"
	"ocpinode/ocpi/correlate"
)

const pollInterval = 2 * time.Second

const attemptsPerAwaitSecond = 30

// clearProfileBreakOnEmpty preserves the upstream clear-profile polling
// polarity: the loop ends when the store comes back EMPTY, the opposite
// of the other two actions, and an absent result is reported as
// ACCEPTED. Suspected copy-paste defect in the protocol source; keep
// until product clarifies, then flip to false to align with get/set.
const clearProfileBreakOnEmpty = true

type Ack struct {
	Response   models.ChargingProfileResponse
	StatusCode int
}

type Dispatcher struct {
	store       internal.Store
	client      *client.Client
	codec       codec.Codec
	logger      internal.LogHandler
	interval    time.Duration
	maxAttempts int
	background  func(task func())
}

func NewDispatcher(store internal.Store, cl *client.Client, cd codec.Codec, awaitTime int) *Dispatcher {
	return &Dispatcher{
		store:       store,
		client:      cl,
		codec:       cd,
		interval:    pollInterval,
		maxAttempts: attemptsPerAwaitSecond * awaitTime,
		background:  func(task func()) { go task() },
	}
}

func (d *Dispatcher) SetLogger(logger internal.LogHandler) {
	d.logger = logger
}

func (d *Dispatcher) SetPollInterval(interval time.Duration) {
	d.interval = interval
}

func (d *Dispatcher) SetSynchronous() {
	d.background = func(task func()) { task() }
}

func (d *Dispatcher) log(text string) {
	if d.logger != nil {
		d.logger.FeatureEvent("chargingprofiles", "", text)
	}
}

// GetActiveProfile requests the active profile of a session for the
// given duration.
func (d *Dispatcher) GetActiveProfile(ctx context.Context, sessionId string, duration int, responseUrl, authToken string) (*Ack, error) {
	request := &models.ProfileRequest{
		Action:      models.GetActiveProfile,
		SessionId:   sessionId,
		Duration:    duration,
		ResponseUrl: responseUrl,
		AuthToken:   authToken,
	}
	return d.dispatch(ctx, request)
}

// SetProfile installs or replaces the charging profile of a session.
func (d *Dispatcher) SetProfile(ctx context.Context, sessionId string, profile json.RawMessage, responseUrl, authToken string) (*Ack, error) {
	request := &models.ProfileRequest{
		Action:      models.SetProfile,
		SessionId:   sessionId,
		Profile:     profile,
		ResponseUrl: responseUrl,
		AuthToken:   authToken,
	}
	return d.dispatch(ctx, request)
}

// ClearProfile removes the charging profile of a session.
func (d *Dispatcher) ClearProfile(ctx context.Context, sessionId string, responseUrl, authToken string) (*Ack, error) {
	request := &models.ProfileRequest{
		Action:      models.ClearProfile,
		SessionId:   sessionId,
		ResponseUrl: responseUrl,
		AuthToken:   authToken,
	}
	return d.dispatch(ctx, request)
}

func (d *Dispatcher) dispatch(ctx context.Context, request *models.ProfileRequest) (*Ack, error) {
	session, err := d.store.Session(ctx, request.SessionId)
	if err != nil {
		return nil, err
	}
	if session == nil {
		d.log(fmt.Sprintf("session %s not found for %s", request.SessionId, request.Action))
		counters.CountProfileAction(string(request.Action), "unknown_session")
		return &Ack{
			Response:   models.ChargingProfileResponse{Result: models.ProfileResponseRejected},
			StatusCode: ocpi.StatusGenericClientError,
		}, nil
	}

	request.CorrelationKey = uuid.NewString()
	response, err := d.store.SendProfileAction(ctx, request)
	if err != nil {
		return nil, err
	}
	if response == nil {
		d.log(fmt.Sprintf("%s action for session %s returned without result", request.Action, request.SessionId))
		counters.CountProfileAction(string(request.Action), "rejected")
		return &Ack{
			Response:   models.ChargingProfileResponse{Result: models.ProfileResponseRejected},
			StatusCode: ocpi.StatusGenericServerError,
		}, nil
	}

	if response.Result == models.ProfileResponseAccepted {
		d.background(func() { d.awaitAndPush(request) })
	}
	counters.CountProfileAction(string(request.Action), string(response.Result))
	return &Ack{Response: *response, StatusCode: ocpi.StatusSuccess}, nil
}

func (d *Dispatcher) awaitAndPush(request *models.ProfileRequest) {
	deadline := 2 * d.interval * time.Duration(d.maxAttempts)
	ctx, cancel := context.WithTimeout(context.Background(), deadline)
	defer cancel()

	clientToken, err := d.store.ClientToken(ctx, request.AuthToken)
	if err != nil {
		d.log(fmt.Sprintf("client token for %s push unavailable: %s", request.Action, err))
		counters.CountResultPush("chargingprofiles", "no_client_token")
		return
	}

	result := d.awaitResult(ctx, request)

	pushErr := d.client.PostResult(ctx, request.ResponseUrl, d.codec.EncodeToken(clientToken), result)
	if pushErr != nil {
		d.log(fmt.Sprintf("pushing %s result to %s failed: %s", request.Action, request.ResponseUrl, pushErr))
		counters.CountResultPush("chargingprofiles", "failed")
	} else {
		counters.CountResultPush("chargingprofiles", "ok")
	}
}

// awaitResult polls for the terminal result and shapes it per action.
func (d *Dispatcher) awaitResult(ctx context.Context, request *models.ProfileRequest) interface{} {
	poll := func(ctx context.Context) (json.RawMessage, error) {
		return d.store.ProfileResult(ctx, request.CorrelationKey)
	}

	if request.Action == models.ClearProfile && clearProfileBreakOnEmpty {
		err := correlate.AwaitGone(ctx, poll, d.interval, d.maxAttempts)
		if err != nil {
			d.log(fmt.Sprintf("clear profile for session %s still pending after await budget", request.SessionId))
			return &models.ClearProfileResult{Result: models.ProfileResultRejected}
		}
		return &models.ClearProfileResult{Result: models.ProfileResultAccepted}
	}

	raw, err := correlate.AwaitResult(ctx, poll, d.interval, d.maxAttempts)
	if err != nil {
		d.log(fmt.Sprintf("%s result for session %s did not arrive in time", request.Action, request.SessionId))
		return d.timeoutResult(request.Action)
	}

	switch request.Action {
	case models.GetActiveProfile:
		var result models.ActiveChargingProfileResult
		if unmarshalErr := json.Unmarshal(raw, &result); unmarshalErr != nil {
			return d.timeoutResult(request.Action)
		}
		return &result
	case models.ClearProfile:
		var result models.ClearProfileResult
		if unmarshalErr := json.Unmarshal(raw, &result); unmarshalErr != nil {
			return d.timeoutResult(request.Action)
		}
		return &result
	default:
		var result models.ChargingProfileResult
		if unmarshalErr := json.Unmarshal(raw, &result); unmarshalErr != nil {
			return d.timeoutResult(request.Action)
		}
		return &result
	}
}

func (d *Dispatcher) timeoutResult(action models.ProfileAction) interface{} {
	switch action {
	case models.GetActiveProfile:
		return &models.ActiveChargingProfileResult{Result: models.ProfileResultRejected}
	case models.ClearProfile:
		return &models.ClearProfileResult{Result: models.ProfileResultRejected}
	default:
		return &models.ChargingProfileResult{Result: models.ProfileResultRejected}
	}
}
