package auth

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMintVerifyRoundTrip(t *testing.T) {
	signer := NewSigner("test-secret")
	playerID := uuid.New()

	token, err := signer.Mint(playerID, "ABC123")
	require.NoError(t, err)

	gotPlayer, gotRoom, err := signer.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, playerID, gotPlayer)
	assert.Equal(t, "ABC123", gotRoom)
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	token, err := NewSigner("secret-a").Mint(uuid.New(), "ABC123")
	require.NoError(t, err)

	_, _, err = NewSigner("secret-b").Verify(token)
	assert.Error(t, err)
}

func TestVerifyRejectsGarbage(t *testing.T) {
	_, _, err := NewSigner("secret").Verify("not.a.token")
	assert.Error(t, err)
}
