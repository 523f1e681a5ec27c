package secrets

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMintProducesDistinctOpaqueSecrets(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 32; i++ {
		secret, err := Mint()
		require.NoError(t, err)
		assert.Len(t, secret, 43) // 32 bytes, base64 raw URL encoding
		assert.False(t, seen[secret], "minted a duplicate secret")
		seen[secret] = true
	}
}

func TestVerify(t *testing.T) {
	secret, err := Mint()
	require.NoError(t, err)

	assert.True(t, Verify(secret, secret))
	assert.False(t, Verify(secret, "wrong secret"))
	assert.False(t, Verify(secret, secret+"x"))
	assert.False(t, Verify(secret, ""))
}

func TestVerifyNeverMatchesEmptyStored(t *testing.T) {
	assert.False(t, Verify("", ""))
	assert.False(t, Verify("", "anything"))
}
