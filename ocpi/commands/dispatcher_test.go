package commands

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"ocpinode/internal/testutil"
	"ocpinode/models"
	"ocpinode/ocpi"
	"ocpinode/ocpi/client"
	"ocpinode/ocpi/codec"
)

// resultSink captures the pushed terminal result.
type resultSink struct {
	server *httptest.Server
	mu     sync.Mutex
	body   []byte
	bearer string
	hits   int
}

func newResultSink() *resultSink {
	sink := &resultSink{}
	sink.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sink.mu.Lock()
		defer sink.mu.Unlock()
		sink.hits++
		sink.bearer = r.Header.Get("Authorization")
		sink.body, _ = io.ReadAll(r.Body)
	}))
	return sink
}

func newTestDispatcher(t *testing.T, store *testutil.MemStore) *Dispatcher {
	cd, err := codec.ForVersion(models.V221)
	assert.Nil(t, err)
	d := NewDispatcher(store, client.New(), cd, 1)
	d.SetSynchronous()
	d.SetPollInterval(time.Millisecond)
	return d
}

func TestDispatchAcceptedPushesResult(t *testing.T) {
	sink := newResultSink()
	defer sink.server.Close()

	store := testutil.NewMemStore()
	store.Locations["loc-1"] = json.RawMessage(`{"id":"loc-1"}`)
	store.CommandAck = &models.CommandResponse{Result: models.ResponseAccepted}
	store.ClientTokens["their-c"] = "push-token"
	store.SetCommandResult(json.RawMessage(`{"result":"ACCEPTED"}`))

	d := newTestDispatcher(t, store)
	ack, err := d.Dispatch(context.Background(), &models.CommandRequest{
		Command:     models.StartSession,
		LocationId:  "loc-1",
		ResponseUrl: sink.server.URL,
		AuthToken:   "their-c",
	})
	assert.Nil(t, err)
	assert.Equal(t, models.ResponseAccepted, ack.Response.Result)
	assert.Equal(t, ocpi.StatusSuccess, ack.StatusCode)

	assert.Len(t, store.SentCommands, 1)
	assert.NotEmpty(t, store.SentCommands[0].CorrelationKey)

	assert.Equal(t, 1, sink.hits)
	var pushed models.CommandResult
	assert.Nil(t, json.Unmarshal(sink.body, &pushed))
	assert.Equal(t, models.ResultAccepted, pushed.Result)

	// bearer travels base64-encoded under the Token scheme
	expected := "Token " + base64.StdEncoding.EncodeToString([]byte("push-token"))
	assert.Equal(t, expected, sink.bearer)
}

func TestDispatchUnknownLocation(t *testing.T) {
	sink := newResultSink()
	defer sink.server.Close()

	store := testutil.NewMemStore()
	d := newTestDispatcher(t, store)

	ack, err := d.Dispatch(context.Background(), &models.CommandRequest{
		Command:     models.ReserveNow,
		LocationId:  "nope",
		ResponseUrl: sink.server.URL,
		AuthToken:   "their-c",
	})
	assert.Nil(t, err)
	assert.Equal(t, models.ResponseRejected, ack.Response.Result)
	assert.Equal(t, ocpi.StatusUnknownLocation, ack.StatusCode)

	// nothing handed to the network layer, nothing pushed
	assert.Empty(t, store.SentCommands)
	assert.Equal(t, 0, sink.hits)
}

func TestDispatchNotTakenByNetworkLayer(t *testing.T) {
	store := testutil.NewMemStore()
	store.Locations["loc-1"] = json.RawMessage(`{"id":"loc-1"}`)
	d := newTestDispatcher(t, store)

	ack, err := d.Dispatch(context.Background(), &models.CommandRequest{
		Command:     models.UnlockConnector,
		LocationId:  "loc-1",
		ResponseUrl: "http://unused.example.com",
		AuthToken:   "their-c",
	})
	assert.Nil(t, err)
	assert.Equal(t, models.ResponseRejected, ack.Response.Result)
	assert.Equal(t, ocpi.StatusGenericServerError, ack.StatusCode)
}

func TestDispatchRejectedSkipsBackground(t *testing.T) {
	sink := newResultSink()
	defer sink.server.Close()

	store := testutil.NewMemStore()
	store.Locations["loc-1"] = json.RawMessage(`{"id":"loc-1"}`)
	store.CommandAck = &models.CommandResponse{Result: models.ResponseRejected}
	d := newTestDispatcher(t, store)

	ack, err := d.Dispatch(context.Background(), &models.CommandRequest{
		Command:     models.StopSession,
		SessionId:   "sess-1",
		ResponseUrl: sink.server.URL,
		AuthToken:   "their-c",
	})
	assert.Nil(t, err)
	assert.Equal(t, models.ResponseRejected, ack.Response.Result)
	assert.Equal(t, ocpi.StatusSuccess, ack.StatusCode)
	assert.Equal(t, 0, sink.hits)
}

func TestDispatchTimeoutPushesFailed(t *testing.T) {
	sink := newResultSink()
	defer sink.server.Close()

	store := testutil.NewMemStore()
	store.Locations["loc-1"] = json.RawMessage(`{"id":"loc-1"}`)
	store.CommandAck = &models.CommandResponse{Result: models.ResponseAccepted}
	store.ClientTokens["their-c"] = "push-token"
	// no result ever stored

	d := newTestDispatcher(t, store)
	var hookResult *models.CommandResult
	d.SetPushHook(func(request *models.CommandRequest, result *models.CommandResult, err error) {
		hookResult = result
	})

	_, err := d.Dispatch(context.Background(), &models.CommandRequest{
		Command:     models.StartSession,
		LocationId:  "loc-1",
		ResponseUrl: sink.server.URL,
		AuthToken:   "their-c",
	})
	assert.Nil(t, err)

	// attempts budget is 30 polls per configured await second
	assert.Equal(t, 30, store.CommandPolls())

	var pushed models.CommandResult
	assert.Nil(t, json.Unmarshal(sink.body, &pushed))
	assert.Equal(t, models.ResultFailed, pushed.Result)
	assert.NotNil(t, hookResult)
	assert.Equal(t, models.ResultFailed, hookResult.Result)
}

func TestDispatchNoClientTokenSkipsPush(t *testing.T) {
	sink := newResultSink()
	defer sink.server.Close()

	store := testutil.NewMemStore()
	store.Locations["loc-1"] = json.RawMessage(`{"id":"loc-1"}`)
	store.CommandAck = &models.CommandResponse{Result: models.ResponseAccepted}
	store.SetCommandResult(json.RawMessage(`{"result":"ACCEPTED"}`))

	d := newTestDispatcher(t, store)
	_, err := d.Dispatch(context.Background(), &models.CommandRequest{
		Command:     models.StartSession,
		LocationId:  "loc-1",
		ResponseUrl: sink.server.URL,
		AuthToken:   "unresolvable",
	})
	assert.Nil(t, err)
	assert.Equal(t, 0, sink.hits)
}
