package cart

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const secret = "cart-test-secret"

func TestAddStartsEmptyCart(t *testing.T) {
	tok, err := Add(secret, "", 5)
	require.NoError(t, err)

	assert.Equal(t, []uint64{5}, Read(secret, tok))
}

func TestAddIsIdempotentPerRoom(t *testing.T) {
	tok, err := Add(secret, "", 5)
	require.NoError(t, err)
	tok, err = Add(secret, tok, 5)
	require.NoError(t, err)

	assert.Equal(t, []uint64{5}, Read(secret, tok))
}

func TestAddAccumulates(t *testing.T) {
	tok, err := Add(secret, "", 5)
	require.NoError(t, err)
	tok, err = Add(secret, tok, 9)
	require.NoError(t, err)

	assert.Equal(t, []uint64{5, 9}, Read(secret, tok))
}

func TestAddDegradesTamperedTokenToEmpty(t *testing.T) {
	// A tampered cart is not an error: the customer just starts over.
	tok, err := Add(secret, "tampered-token", 3)
	require.NoError(t, err)

	assert.Equal(t, []uint64{3}, Read(secret, tok))
}

func TestRemove(t *testing.T) {
	tok, err := Add(secret, "", 5)
	require.NoError(t, err)
	tok, err = Add(secret, tok, 9)
	require.NoError(t, err)

	tok, err = Remove(secret, tok, 5)
	require.NoError(t, err)
	assert.Equal(t, []uint64{9}, Read(secret, tok))
}

func TestRemoveLastRoomYieldsSignedEmptyCart(t *testing.T) {
	tok, err := Add(secret, "", 5)
	require.NoError(t, err)
	tok, err = Remove(secret, tok, 5)
	require.NoError(t, err)

	require.NotEmpty(t, tok, "an empty cart is still a signed token")
	assert.Empty(t, Read(secret, tok))
}

func TestReadInvalidToken(t *testing.T) {
	assert.Nil(t, Read(secret, ""))
	assert.Nil(t, Read(secret, "garbage"))

	tok, err := Add("other-secret", "", 5)
	require.NoError(t, err)
	assert.Nil(t, Read(secret, tok), "a token signed under another secret must read as absent")
}
