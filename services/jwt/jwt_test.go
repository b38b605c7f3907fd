package jwt

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

const testSecret = "test-secret"

func TestTokenRoundTrip(t *testing.T) {
	userID := uuid.New()

	token, err := GenerateToken(userID, "patient", testSecret, 60)
	assert.NoError(t, err)
	assert.NotEmpty(t, token)

	claims, err := ValidateAndGetClaims(token, testSecret)
	assert.NoError(t, err)
	assert.Equal(t, userID.String(), claims["id"])
	assert.Equal(t, "patient", claims["role"])
}

func TestValidateRejectsWrongSecret(t *testing.T) {
	token, err := GenerateToken(uuid.New(), "doctor", testSecret, 60)
	assert.NoError(t, err)

	_, err = ValidateAndGetClaims(token, "some-other-secret")
	assert.Error(t, err)
}

func TestValidateRejectsExpiredToken(t *testing.T) {
	token, err := GenerateToken(uuid.New(), "patient", testSecret, -5)
	assert.NoError(t, err)

	_, err = ValidateAndGetClaims(token, testSecret)
	assert.Error(t, err)
}

func TestValidateRejectsGarbage(t *testing.T) {
	_, err := ValidateAndGetClaims("not-a-token", testSecret)
	assert.Error(t, err)
}

func TestGenerateRequiresSecret(t *testing.T) {
	_, err := GenerateToken(uuid.New(), "patient", "", 60)
	assert.Error(t, err)
}
