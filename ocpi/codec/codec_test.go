package codec

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"ocpinode/models"
)

func TestForVersion(t *testing.T) {
	cd, err := ForVersion(models.V211)
	assert.Nil(t, err)
	assert.Equal(t, models.V211, cd.Version())

	cd, err = ForVersion(models.V221)
	assert.Nil(t, err)
	assert.Equal(t, models.V221, cd.Version())

	_, err = ForVersion("2.0")
	assert.NotNil(t, err)
}

func TestPlainTokens(t *testing.T) {
	cd, err := ForVersion(models.V211)
	assert.Nil(t, err)

	assert.Equal(t, "secret-token", cd.EncodeToken("secret-token"))
	decoded, err := cd.DecodeToken("secret-token")
	assert.Nil(t, err)
	assert.Equal(t, "secret-token", decoded)

	assert.Equal(t, models.ResultTimeout, cd.TimeoutResult())
}

func TestBase64Tokens(t *testing.T) {
	cd, err := ForVersion(models.V221)
	assert.Nil(t, err)

	assert.Equal(t, "c2VjcmV0LXRva2Vu", cd.EncodeToken("secret-token"))
	decoded, err := cd.DecodeToken("c2VjcmV0LXRva2Vu")
	assert.Nil(t, err)
	assert.Equal(t, "secret-token", decoded)

	_, err = cd.DecodeToken("not base64 !!!")
	assert.NotNil(t, err)

	assert.Equal(t, models.ResultFailed, cd.TimeoutResult())
}
