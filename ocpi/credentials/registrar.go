// Package credentials runs the two-sided OCPI registration handshake.
// Registration is a chained pull (versions, then version details)
// performed synchronously inside the handler: each party verifies the
// other's declared endpoint set before anything is persisted.
package credentials

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"ocpinode/internal"
	"ocpinode/models"
	"ocpinode/ocpi"
	"ocpinode/ocpi/auth"
	"ocpinode/ocpi/client"
	"ocpinode/ocpi/codec"
)

// Identity is this node's own public registration identity, served back
// to counterparts on a successful handshake.
type Identity struct {
	PartyName   string
	PartyId     string
	CountryCode string
	// VersionsUrl is the absolute url of this node's /versions endpoint.
	VersionsUrl string
}

type Registrar struct {
	authenticator *auth.Authenticator
	store         internal.RegistrationStore
	client        *client.Client
	codec         codec.Codec
	identity      Identity
	logger        internal.LogHandler
}

func NewRegistrar(authenticator *auth.Authenticator, store internal.RegistrationStore, cl *client.Client, cd codec.Codec, identity Identity) *Registrar {
	return &Registrar{
		authenticator: authenticator,
		store:         store,
		client:        cl,
		codec:         cd,
		identity:      identity,
	}
}

func (r *Registrar) SetLogger(logger internal.LogHandler) {
	r.logger = logger
}

func (r *Registrar) log(text string) {
	if r.logger != nil {
		r.logger.FeatureEvent("credentials", r.identity.PartyId, text)
	}
}

// Register runs the registration handshake for a counterpart invited
// with a token A. On any outbound failure the attempt is abandoned with
// ErrClientAPI and the counterpart stays invited.
func (r *Registrar) Register(ctx context.Context, inboundToken string, submitted models.Credentials) (*models.Credentials, error) {
	state, err := r.authenticator.AuthenticateForRegistration(ctx, inboundToken)
	if err != nil {
		return nil, err
	}
	switch state {
	case auth.IsTokenC, auth.IsUsedTokenA:
		return nil, ocpi.ErrAlreadyRegistered
	case auth.Unknown:
		return nil, ocpi.ErrUnauthorized
	}

	endpoints, err := r.pullEndpoints(ctx, submitted)
	if err != nil {
		return nil, err
	}

	tokenA, err := r.authenticator.DecodeToken(inboundToken)
	if err != nil {
		return nil, ocpi.ErrUnauthorized
	}
	integration := &models.Integration{
		TokenC:      uuid.NewString(),
		Version:     r.codec.Version(),
		Credentials: submitted,
		Endpoints:   endpoints,
	}
	if err = r.store.SaveIntegration(ctx, tokenA, integration); err != nil {
		return nil, err
	}
	r.log(fmt.Sprintf("registered party %s with %d endpoints", partyLabel(submitted), len(endpoints)))
	return r.ownCredentials(integration.TokenC), nil
}

// Update re-runs the discovery pull for an already registered
// counterpart and rotates its token C. The old token stops validating
// in the same store write that records the new catalogue.
func (r *Registrar) Update(ctx context.Context, inboundToken string, submitted models.Credentials) (*models.Credentials, error) {
	state, err := r.authenticator.AuthenticateForRegistration(ctx, inboundToken)
	if err != nil {
		return nil, err
	}
	if state != auth.IsTokenC {
		return nil, ocpi.ErrNotRegistered
	}

	endpoints, err := r.pullEndpoints(ctx, submitted)
	if err != nil {
		return nil, err
	}

	oldTokenC, err := r.authenticator.DecodeToken(inboundToken)
	if err != nil {
		return nil, ocpi.ErrUnauthorized
	}
	integration := &models.Integration{
		TokenC:      uuid.NewString(),
		Version:     r.codec.Version(),
		Credentials: submitted,
		Endpoints:   endpoints,
	}
	if err = r.store.ReplaceIntegration(ctx, oldTokenC, integration); err != nil {
		if errors.Is(err, ocpi.ErrNotFound) {
			return nil, ocpi.ErrNotRegistered
		}
		return nil, err
	}
	r.log(fmt.Sprintf("rotated credentials for party %s", partyLabel(submitted)))
	return r.ownCredentials(integration.TokenC), nil
}

// Deregister removes the integration record and its token C.
func (r *Registrar) Deregister(ctx context.Context, inboundToken string) error {
	state, err := r.authenticator.AuthenticateForRegistration(ctx, inboundToken)
	if err != nil {
		return err
	}
	if state != auth.IsTokenC {
		return ocpi.ErrNotRegistered
	}
	tokenC, err := r.authenticator.DecodeToken(inboundToken)
	if err != nil {
		return ocpi.ErrUnauthorized
	}
	if err = r.store.DeleteIntegration(ctx, tokenC); err != nil {
		if errors.Is(err, ocpi.ErrNotFound) {
			return ocpi.ErrNotRegistered
		}
		return err
	}
	r.log("party deregistered")
	return nil
}

// Registered returns the stored integration for the caller's token C,
// or nil when the caller is not registered.
func (r *Registrar) Registered(ctx context.Context, inboundToken string) (*models.Integration, error) {
	tokenC, err := r.authenticator.DecodeToken(inboundToken)
	if err != nil {
		return nil, nil
	}
	return r.store.Integration(ctx, tokenC)
}

// pullEndpoints performs the two discovery hops against the
// counterpart: its versions endpoint, then the details of the version
// matching this node's own. No fallback to another version.
func (r *Registrar) pullEndpoints(ctx context.Context, submitted models.Credentials) ([]models.Endpoint, error) {
	bearer := r.codec.EncodeToken(submitted.Token)

	versions, err := r.client.Versions(ctx, submitted.Url, bearer)
	if err != nil {
		r.log(fmt.Sprintf("versions request to %s failed: %s", submitted.Url, err))
		return nil, ocpi.ErrClientAPI
	}

	versionUrl := ""
	for _, version := range versions {
		if version.Version == r.codec.Version() {
			versionUrl = version.Url
		}
	}
	if versionUrl == "" {
		r.log(fmt.Sprintf("party does not support version %s", r.codec.Version()))
		return nil, ocpi.ErrUnsupportedVersion
	}

	details, err := r.client.VersionDetails(ctx, versionUrl, bearer)
	if err != nil {
		r.log(fmt.Sprintf("version details request to %s failed: %s", versionUrl, err))
		return nil, ocpi.ErrClientAPI
	}
	return details.Endpoints, nil
}

// ownCredentials builds this node's public credentials carrying the
// token C the counterpart must use from now on.
func (r *Registrar) ownCredentials(tokenC string) *models.Credentials {
	credentials := &models.Credentials{
		Token: tokenC,
		Url:   r.identity.VersionsUrl,
	}
	details := models.BusinessDetails{Name: r.identity.PartyName}
	if r.codec.Version() == models.V211 {
		credentials.BusinessDetails = &details
		credentials.PartyId = r.identity.PartyId
		credentials.CountryCode = r.identity.CountryCode
		return credentials
	}
	credentials.Roles = []models.CredentialsRole{{
		Role:            "CPO",
		BusinessDetails: details,
		PartyId:         r.identity.PartyId,
		CountryCode:     r.identity.CountryCode,
	}}
	return credentials
}

func partyLabel(credentials models.Credentials) string {
	if len(credentials.Roles) > 0 {
		return credentials.Roles[0].CountryCode + "-" + credentials.Roles[0].PartyId
	}
	return credentials.CountryCode + "-" + credentials.PartyId
}
