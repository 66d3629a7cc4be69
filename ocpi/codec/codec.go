// Package codec holds the per-version wire differences in one place:
// token encoding and the terminal result vocabulary. Handlers pick a
// codec once per request instead of branching on the version string.
package codec

import (
	"encoding/base64"
	"fmt"

	"ocpinode/models"
)

type Codec interface {
	Version() models.VersionNumber
	// EncodeToken prepares a bearer value for the wire.
	EncodeToken(token string) string
	// DecodeToken recovers the bearer value from the wire form.
	DecodeToken(token string) (string, error)
	// TimeoutResult is the terminal vocabulary used when a command
	// result never arrives: FAILED in 2.2.x, TIMEOUT in 2.1.x.
	TimeoutResult() models.CommandResultType
}

func ForVersion(version models.VersionNumber) (Codec, error) {
	switch version {
	case models.V211:
		return plainCodec{}, nil
	case models.V221:
		return base64Codec{}, nil
	}
	return nil, fmt.Errorf("no codec for version %s", version)
}

// plainCodec serves 2.1.1: tokens travel raw.
type plainCodec struct{}

func (plainCodec) Version() models.VersionNumber { return models.V211 }

func (plainCodec) EncodeToken(token string) string { return token }

func (plainCodec) DecodeToken(token string) (string, error) { return token, nil }

func (plainCodec) TimeoutResult() models.CommandResultType { return models.ResultTimeout }

// base64Codec serves 2.2.x: tokens are base64-encoded on the wire.
type base64Codec struct{}

func (base64Codec) Version() models.VersionNumber { return models.V221 }

func (base64Codec) EncodeToken(token string) string {
	return base64.StdEncoding.EncodeToString([]byte(token))
}

func (base64Codec) DecodeToken(token string) (string, error) {
	decoded, err := base64.StdEncoding.DecodeString(token)
	if err != nil {
		return "", fmt.Errorf("decoding token: %w", err)
	}
	return string(decoded), nil
}

func (base64Codec) TimeoutResult() models.CommandResultType { return models.ResultFailed }
