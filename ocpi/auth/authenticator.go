// Package auth validates inbound bearer credentials against the token
// lists held by the TokenStore.
package auth

import (
	"context"
	"fmt"
	"strings"

	"ocpinode/internal"
	"ocpinode/ocpi"
	"ocpinode/ocpi/codec"
)

// RegistrationState classifies an inbound token for the credentials
// endpoints.
type RegistrationState int

const (
	// Unknown means the token matches neither list; the caller must
	// reject with Unauthorized.
	Unknown RegistrationState = iota
	// IsTokenA means the token matches the pre-shared invite list and
	// the counterpart has not registered yet.
	IsTokenA
	// IsTokenC means the token belongs to an already registered
	// counterpart.
	IsTokenC
	// IsUsedTokenA means the token was an invite that a successful
	// registration has already consumed. It grants no access; it only
	// lets the credentials handler tell a replay apart from a stranger.
	IsUsedTokenA
)

type Authenticator struct {
	tokens internal.TokenStore
	codec  codec.Codec
	noAuth bool
}

func New(tokens internal.TokenStore, cd codec.Codec) *Authenticator {
	return &Authenticator{
		tokens: tokens,
		codec:  cd,
	}
}

// SetNoAuth disables authentication entirely; intended for test
// deployments only.
func (a *Authenticator) SetNoAuth(noAuth bool) {
	a.noAuth = noAuth
}

// Authenticate checks that the wire-form token is in the current valid
// token C set. Membership is checked at call time, so a rotated token
// stops validating the moment the store is updated.
func (a *Authenticator) Authenticate(ctx context.Context, token string) error {
	if a.noAuth {
		return nil
	}
	decoded, err := a.codec.DecodeToken(token)
	if err != nil {
		return fmt.Errorf("%w: %s", ocpi.ErrUnauthorized, err)
	}
	valid, err := a.tokens.TokenCExists(ctx, decoded)
	if err != nil {
		return err
	}
	if !valid {
		return ocpi.ErrUnauthorized
	}
	return nil
}

// AuthenticateForRegistration classifies the token for the credentials
// handshake. A token that fails to decode is Unknown rather than a
// transport error: the handler decides the status code.
func (a *Authenticator) AuthenticateForRegistration(ctx context.Context, token string) (RegistrationState, error) {
	decoded, err := a.codec.DecodeToken(token)
	if err != nil {
		return Unknown, nil
	}
	registered, err := a.tokens.TokenCExists(ctx, decoded)
	if err != nil {
		return Unknown, err
	}
	if registered {
		return IsTokenC, nil
	}
	invited, err := a.tokens.TokenAExists(ctx, decoded)
	if err != nil {
		return Unknown, err
	}
	if invited {
		return IsTokenA, nil
	}
	used, err := a.tokens.TokenAUsed(ctx, decoded)
	if err != nil {
		return Unknown, err
	}
	if used {
		return IsUsedTokenA, nil
	}
	return Unknown, nil
}

// DecodeToken exposes the codec's decoding for handlers that need the
// raw credential value.
func (a *Authenticator) DecodeToken(token string) (string, error) {
	return a.codec.DecodeToken(token)
}

// FromHeader extracts the bearer value from an Authorization header of
// the form "Token <value>".
func FromHeader(header string) (string, error) {
	parts := strings.Fields(header)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Token") {
		return "", ocpi.ErrUnauthorized
	}
	return parts[1], nil
}
