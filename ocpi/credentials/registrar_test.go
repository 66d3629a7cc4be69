package credentials

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"ocpinode/internal/testutil"
	"ocpinode/models"
	"ocpinode/ocpi"
	"ocpinode/ocpi/auth"
	"ocpinode/ocpi/client"
	"ocpinode/ocpi/codec"
)

func wire(token string) string {
	return base64.StdEncoding.EncodeToString([]byte(token))
}

// counterpart fakes the remote party's discovery surface.
type counterpart struct {
	server        *httptest.Server
	versions      []models.VersionNumber
	detailsStatus int
	versionsHits  int
	detailsHits   int
}

func newCounterpart(versions ...models.VersionNumber) *counterpart {
	c := &counterpart{versions: versions, detailsStatus: http.StatusOK}
	mux := http.NewServeMux()
	mux.HandleFunc("/versions", func(w http.ResponseWriter, r *http.Request) {
		c.versionsHits++
		var list []models.Version
		for _, v := range c.versions {
			list = append(list, models.Version{Version: v, Url: c.server.URL + "/details/" + string(v)})
		}
		_ = json.NewEncoder(w).Encode(ocpi.NewResponse(ocpi.StatusSuccess, list))
	})
	mux.HandleFunc("/details/", func(w http.ResponseWriter, r *http.Request) {
		c.detailsHits++
		if c.detailsStatus != http.StatusOK {
			w.WriteHeader(c.detailsStatus)
			return
		}
		details := models.VersionDetails{
			Version: models.V221,
			Endpoints: []models.Endpoint{
				{Identifier: models.ModuleCredentials, Role: models.RoleReceiver, Url: c.server.URL + "/credentials"},
				{Identifier: models.ModuleCommands, Role: models.RoleReceiver, Url: c.server.URL + "/commands"},
			},
		}
		_ = json.NewEncoder(w).Encode(ocpi.NewResponse(ocpi.StatusSuccess, details))
	})
	c.server = httptest.NewServer(mux)
	return c
}

func newRegistrar(t *testing.T, store *testutil.MemStore) *Registrar {
	cd, err := codec.ForVersion(models.V221)
	assert.Nil(t, err)
	authenticator := auth.New(store, cd)
	return NewRegistrar(authenticator, store, client.New(), cd, Identity{
		PartyName:   "Test node",
		PartyId:     "NOD",
		CountryCode: "DE",
		VersionsUrl: "https://node.example.com/ocpi/versions",
	})
}

func TestRegister(t *testing.T) {
	remote := newCounterpart(models.V211, models.V221)
	defer remote.server.Close()

	store := testutil.NewMemStore()
	store.TokensA["invite-a"] = true
	registrar := newRegistrar(t, store)

	submitted := models.Credentials{Token: "their-token-b", Url: remote.server.URL + "/versions"}
	own, err := registrar.Register(context.Background(), wire("invite-a"), submitted)
	assert.Nil(t, err)
	assert.NotEmpty(t, own.Token)
	assert.Equal(t, "https://node.example.com/ocpi/versions", own.Url)
	assert.Len(t, own.Roles, 1)
	assert.Equal(t, "CPO", own.Roles[0].Role)
	assert.Equal(t, "NOD", own.Roles[0].PartyId)

	// both discovery hops happened
	assert.Equal(t, 1, remote.versionsHits)
	assert.Equal(t, 1, remote.detailsHits)

	// invite consumed, integration persisted under the issued token C
	assert.Empty(t, store.TokensA)
	assert.True(t, store.UsedTokensA["invite-a"])
	integration := store.Integrations[own.Token]
	assert.NotNil(t, integration)
	assert.Equal(t, models.V221, integration.Version)
	assert.Len(t, integration.Endpoints, 2)
	assert.Equal(t, remote.server.URL+"/commands", integration.EndpointUrl(models.ModuleCommands, models.RoleReceiver))

	// registering again with the issued token C must fail
	_, err = registrar.Register(context.Background(), wire(own.Token), submitted)
	assert.ErrorIs(t, err, ocpi.ErrAlreadyRegistered)
}

func TestRegisterTwiceWithSameInviteToken(t *testing.T) {
	remote := newCounterpart(models.V221)
	defer remote.server.Close()

	store := testutil.NewMemStore()
	store.TokensA["invite-a"] = true
	registrar := newRegistrar(t, store)

	submitted := models.Credentials{Token: "their-token-b", Url: remote.server.URL + "/versions"}
	_, err := registrar.Register(context.Background(), wire("invite-a"), submitted)
	assert.Nil(t, err)

	// the consumed invite identifies a registered party, not a stranger
	_, err = registrar.Register(context.Background(), wire("invite-a"), submitted)
	assert.ErrorIs(t, err, ocpi.ErrAlreadyRegistered)
	assert.Len(t, store.Integrations, 1)
	assert.Equal(t, 1, remote.versionsHits)
}

func TestRegisterUnknownToken(t *testing.T) {
	remote := newCounterpart(models.V221)
	defer remote.server.Close()

	store := testutil.NewMemStore()
	registrar := newRegistrar(t, store)

	submitted := models.Credentials{Token: "their-token-b", Url: remote.server.URL + "/versions"}
	_, err := registrar.Register(context.Background(), wire("never-invited"), submitted)
	assert.ErrorIs(t, err, ocpi.ErrUnauthorized)
	assert.Equal(t, 0, remote.versionsHits)
}

func TestRegisterVersionMismatch(t *testing.T) {
	remote := newCounterpart(models.V211)
	defer remote.server.Close()

	store := testutil.NewMemStore()
	store.TokensA["invite-a"] = true
	registrar := newRegistrar(t, store)

	submitted := models.Credentials{Token: "their-token-b", Url: remote.server.URL + "/versions"}
	_, err := registrar.Register(context.Background(), wire("invite-a"), submitted)
	assert.ErrorIs(t, err, ocpi.ErrUnsupportedVersion)

	// nothing persisted, invite still usable
	assert.Empty(t, store.Integrations)
	assert.True(t, store.TokensA["invite-a"])
}

func TestRegisterDetailsFailure(t *testing.T) {
	remote := newCounterpart(models.V221)
	remote.detailsStatus = http.StatusInternalServerError
	defer remote.server.Close()

	store := testutil.NewMemStore()
	store.TokensA["invite-a"] = true
	registrar := newRegistrar(t, store)

	submitted := models.Credentials{Token: "their-token-b", Url: remote.server.URL + "/versions"}
	_, err := registrar.Register(context.Background(), wire("invite-a"), submitted)
	assert.ErrorIs(t, err, ocpi.ErrClientAPI)
	assert.Empty(t, store.Integrations)
	assert.True(t, store.TokensA["invite-a"])
}

func TestUpdateRotatesToken(t *testing.T) {
	remote := newCounterpart(models.V221)
	defer remote.server.Close()

	store := testutil.NewMemStore()
	store.Integrations["old-c"] = &models.Integration{TokenC: "old-c", Version: models.V221}
	registrar := newRegistrar(t, store)

	submitted := models.Credentials{Token: "their-token-fresh", Url: remote.server.URL + "/versions"}
	own, err := registrar.Update(context.Background(), wire("old-c"), submitted)
	assert.Nil(t, err)
	assert.NotEmpty(t, own.Token)
	assert.NotEqual(t, "old-c", own.Token)

	// old token no longer validates, only the rotated one does
	assert.Nil(t, store.Integrations["old-c"])
	assert.NotNil(t, store.Integrations[own.Token])
	assert.Equal(t, "their-token-fresh", store.Integrations[own.Token].Credentials.Token)
}

func TestUpdateNotRegistered(t *testing.T) {
	remote := newCounterpart(models.V221)
	defer remote.server.Close()

	store := testutil.NewMemStore()
	registrar := newRegistrar(t, store)

	submitted := models.Credentials{Token: "their-token-b", Url: remote.server.URL + "/versions"}
	_, err := registrar.Update(context.Background(), wire("never-registered"), submitted)
	assert.ErrorIs(t, err, ocpi.ErrNotRegistered)
}

func TestDeregister(t *testing.T) {
	store := testutil.NewMemStore()
	store.Integrations["old-c"] = &models.Integration{TokenC: "old-c"}
	registrar := newRegistrar(t, store)

	assert.Nil(t, registrar.Deregister(context.Background(), wire("old-c")))
	assert.Empty(t, store.Integrations)

	err := registrar.Deregister(context.Background(), wire("old-c"))
	assert.ErrorIs(t, err, ocpi.ErrNotRegistered)
}

func TestDeregisterStoreFailureIsNotNotRegistered(t *testing.T) {
	store := testutil.NewMemStore()
	store.Integrations["old-c"] = &models.Integration{TokenC: "old-c"}
	registrar := newRegistrar(t, store)

	store.DeleteIntegrationErr = assert.AnError
	err := registrar.Deregister(context.Background(), wire("old-c"))
	assert.ErrorIs(t, err, assert.AnError)
	assert.NotErrorIs(t, err, ocpi.ErrNotRegistered)

	store.DeleteIntegrationErr = ocpi.ErrNotFound
	err = registrar.Deregister(context.Background(), wire("old-c"))
	assert.ErrorIs(t, err, ocpi.ErrNotRegistered)
}

func TestRegistered(t *testing.T) {
	store := testutil.NewMemStore()
	store.Integrations["known-c"] = &models.Integration{TokenC: "known-c", Version: models.V221}
	registrar := newRegistrar(t, store)

	integration, err := registrar.Registered(context.Background(), wire("known-c"))
	assert.Nil(t, err)
	assert.NotNil(t, integration)
	assert.Equal(t, models.V221, integration.Version)

	integration, err = registrar.Registered(context.Background(), wire("unknown"))
	assert.Nil(t, err)
	assert.Nil(t, integration)
}
