package auth

import (
	"context"
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"

	"ocpinode/internal/testutil"
	"ocpinode/models"
	"ocpinode/ocpi"
	"ocpinode/ocpi/codec"
)

func wire(token string) string {
	return base64.StdEncoding.EncodeToString([]byte(token))
}

func newAuthenticator(t *testing.T) (*Authenticator, *testutil.MemStore) {
	store := testutil.NewMemStore()
	store.TokensA["invite-a"] = true
	store.Integrations["registered-c"] = &models.Integration{TokenC: "registered-c"}

	cd, err := codec.ForVersion(models.V221)
	assert.Nil(t, err)
	return New(store, cd), store
}

func TestAuthenticate(t *testing.T) {
	a, _ := newAuthenticator(t)
	ctx := context.Background()

	assert.Nil(t, a.Authenticate(ctx, wire("registered-c")))
	assert.ErrorIs(t, a.Authenticate(ctx, wire("unknown")), ocpi.ErrUnauthorized)

	// token A is not enough for module access
	assert.ErrorIs(t, a.Authenticate(ctx, wire("invite-a")), ocpi.ErrUnauthorized)

	// undecodable wire form
	assert.ErrorIs(t, a.Authenticate(ctx, "not base64 !!!"), ocpi.ErrUnauthorized)
}

func TestAuthenticateNoAuth(t *testing.T) {
	a, _ := newAuthenticator(t)
	a.SetNoAuth(true)
	assert.Nil(t, a.Authenticate(context.Background(), "anything"))
}

func TestAuthenticateForRegistration(t *testing.T) {
	a, _ := newAuthenticator(t)
	ctx := context.Background()

	state, err := a.AuthenticateForRegistration(ctx, wire("invite-a"))
	assert.Nil(t, err)
	assert.Equal(t, IsTokenA, state)

	state, err = a.AuthenticateForRegistration(ctx, wire("registered-c"))
	assert.Nil(t, err)
	assert.Equal(t, IsTokenC, state)

	state, err = a.AuthenticateForRegistration(ctx, wire("unknown"))
	assert.Nil(t, err)
	assert.Equal(t, Unknown, state)

	// undecodable token classifies as Unknown, not as an error
	state, err = a.AuthenticateForRegistration(ctx, "not base64 !!!")
	assert.Nil(t, err)
	assert.Equal(t, Unknown, state)
}

func TestConsumedInviteClassification(t *testing.T) {
	a, store := newAuthenticator(t)
	ctx := context.Background()
	store.UsedTokensA["consumed-a"] = true

	state, err := a.AuthenticateForRegistration(ctx, wire("consumed-a"))
	assert.Nil(t, err)
	assert.Equal(t, IsUsedTokenA, state)

	// a consumed invite grants no module access
	assert.ErrorIs(t, a.Authenticate(ctx, wire("consumed-a")), ocpi.ErrUnauthorized)
}

func TestRotatedTokenStopsValidating(t *testing.T) {
	a, store := newAuthenticator(t)
	ctx := context.Background()

	assert.Nil(t, a.Authenticate(ctx, wire("registered-c")))

	err := store.ReplaceIntegration(ctx, "registered-c", &models.Integration{TokenC: "rotated-c"})
	assert.Nil(t, err)

	assert.ErrorIs(t, a.Authenticate(ctx, wire("registered-c")), ocpi.ErrUnauthorized)
	assert.Nil(t, a.Authenticate(ctx, wire("rotated-c")))
}

func TestFromHeader(t *testing.T) {
	token, err := FromHeader("Token abc123")
	assert.Nil(t, err)
	assert.Equal(t, "abc123", token)

	token, err = FromHeader("token abc123")
	assert.Nil(t, err)
	assert.Equal(t, "abc123", token)

	_, err = FromHeader("Bearer abc123")
	assert.ErrorIs(t, err, ocpi.ErrUnauthorized)

	_, err = FromHeader("")
	assert.ErrorIs(t, err, ocpi.ErrUnauthorized)

	_, err = FromHeader("Token")
	assert.ErrorIs(t, err, ocpi.ErrUnauthorized)
}
