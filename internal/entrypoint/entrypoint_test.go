package entrypoint

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCSRFKey_HexSecret(t *testing.T) {
	secret := strings.Repeat("ab", 32)

	key, err := csrfKey(secret)

	require.NoError(t, err)
	assert.Len(t, key, 32)
	assert.Equal(t, byte(0xab), key[0])
}

func TestCSRFKey_PassphraseIsHashed(t *testing.T) {
	first, err := csrfKey("not hex at all")
	require.NoError(t, err)
	second, err := csrfKey("not hex at all")
	require.NoError(t, err)

	assert.Len(t, first, 32)
	assert.Equal(t, first, second)
}

func TestCSRFKey_GeneratedWhenEmpty(t *testing.T) {
	first, err := csrfKey("")
	require.NoError(t, err)
	second, err := csrfKey("")
	require.NoError(t, err)

	assert.Len(t, first, 32)
	assert.NotEqual(t, first, second)
}
