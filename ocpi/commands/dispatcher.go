// Package commands accepts OCPI command requests, acknowledges them
// synchronously, and delivers the terminal result to the caller's
// response_url from a detached background task.
//
// Background failures (bearer fetch, outbound push) are terminal and
// logged only: the original HTTP transaction has already closed. There
// is deliberately no retry; a PushHook is the extension point for
// layering bounded retry on later without touching the correlator.
package commands

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

// attemptsPerAwaitSecond turns the configured await budget (seconds)
// into a poll attempt count; with the 2s interval the wall-clock
// deadline is twice that many seconds.
const attemptsPerAwaitSecond = 30

// PushHook observes every outbound result push. The default hook does
// nothing.
type PushHook func(request *models.CommandRequest, result *models.CommandResult, err error)

// Ack is the synchronous acknowledgement for a dispatched command,
// paired with the OCPI status code the envelope must carry.
type Ack struct {
	Response   models.CommandResponse
	StatusCode int
}

type Dispatcher struct {
	store       internal.Store
	client      *client.Client
	codec       codec.Codec
	logger      internal.LogHandler
	pushHook    PushHook
	interval    time.Duration
	maxAttempts int
	// background is started in its own goroutine; replaced in tests to
	// run inline.
	background func(task func())
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

func (d *Dispatcher) SetPushHook(hook PushHook) {
	d.pushHook = hook
}

// SetPollInterval shortens the poll cycle; used by tests.
func (d *Dispatcher) SetPollInterval(interval time.Duration) {
	d.interval = interval
}

// SetSynchronous makes the background phase run inline; used by tests.
func (d *Dispatcher) SetSynchronous() {
	d.background = func(task func()) { task() }
}

func (d *Dispatcher) log(text string) {
	if d.logger != nil {
		d.logger.FeatureEvent("commands", "", text)
	}
}

// Dispatch runs the synchronous phase: location precheck, hand-off to
// the network layer, and the immediate acknowledgement. When the
// network layer accepts, the background phase is scheduled and the
// acknowledgement returns without waiting for the device.
func (d *Dispatcher) Dispatch(ctx context.Context, request *models.CommandRequest) (*Ack, error) {
	if request.LocationId != "" {
		location, err := d.store.Location(ctx, request.LocationId)
		if err != nil {
			return nil, err
		}
		if location == nil {
			d.log(fmt.Sprintf("location %s not found for %s", request.LocationId, request.Command))
			counters.CountCommand(string(request.Command), "unknown_location")
			return &Ack{
				Response:   models.CommandResponse{Result: models.ResponseRejected},
				StatusCode: ocpi.StatusUnknownLocation,
			}, nil
		}
	}

	request.CorrelationKey = uuid.NewString()
	response, err := d.store.SendCommand(ctx, request)
	if err != nil {
		return nil, err
	}
	if response == nil {
		d.log(fmt.Sprintf("send command action for %s returned without result", request.Command))
		counters.CountCommand(string(request.Command), "rejected")
		return &Ack{
			Response:   models.CommandResponse{Result: models.ResponseRejected},
			StatusCode: ocpi.StatusGenericServerError,
		}, nil
	}

	if response.Result == models.ResponseAccepted {
		d.background(func() { d.awaitAndPush(request) })
	}
	counters.CountCommand(string(request.Command), string(response.Result))
	return &Ack{Response: *response, StatusCode: ocpi.StatusSuccess}, nil
}

// awaitAndPush is the background phase: resolve the push bearer, await
// the terminal result under the correlation key, and POST it to
// response_url. Runs detached from the originating request with its own
// deadline; nothing here reaches the original caller.
func (d *Dispatcher) awaitAndPush(request *models.CommandRequest) {
	deadline := 2 * d.interval * time.Duration(d.maxAttempts)
	ctx, cancel := context.WithTimeout(context.Background(), deadline)
	defer cancel()

	clientToken, err := d.store.ClientToken(ctx, request.AuthToken)
	if err != nil {
		d.log(fmt.Sprintf("client token for %s push unavailable: %s", request.Command, err))
		counters.CountResultPush("commands", "no_client_token")
		return
	}

	raw, err := correlate.AwaitResult(ctx, func(ctx context.Context) (json.RawMessage, error) {
		return d.store.CommandResult(ctx, request.CorrelationKey)
	}, d.interval, d.maxAttempts)

	var result models.CommandResult
	switch {
	case err == nil:
		d.log(fmt.Sprintf("result for %s arrived from charge point", request.Command))
		if unmarshalErr := json.Unmarshal(raw, &result); unmarshalErr != nil {
			d.log(fmt.Sprintf("undecodable result for %s: %s", request.Command, unmarshalErr))
			result = models.CommandResult{Result: d.codec.TimeoutResult()}
		}
	default:
		// timeout and deadline collapse into the version's terminal
		// timeout vocabulary
		d.log(fmt.Sprintf("result for %s did not arrive in time", request.Command))
		counters.CountCommandTimeout(string(request.Command))
		result = models.CommandResult{Result: d.codec.TimeoutResult()}
	}

	pushErr := d.client.PostResult(ctx, request.ResponseUrl, d.codec.EncodeToken(clientToken), &result)
	if pushErr != nil {
		d.log(fmt.Sprintf("pushing %s result to %s failed: %s", request.Command, request.ResponseUrl, pushErr))
		counters.CountResultPush("commands", "failed")
	} else {
		counters.CountResultPush("commands", "ok")
	}
	if d.pushHook != nil {
		d.pushHook(request, &result, pushErr)
	}
}
