package credential

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidKey(t *testing.T) {
	for _, k := range Keys {
		assert.NoError(t, ValidKey(k), k)
	}
	err := ValidKey("gmail-token")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "imap-password")
}

func TestReadSecret(t *testing.T) {
	got, err := ReadSecret(strings.NewReader("s3cret pass\r\nignored\n"))
	require.NoError(t, err)
	assert.Equal(t, "s3cret pass", got)

	got, err = ReadSecret(strings.NewReader("no-newline"))
	require.NoError(t, err)
	assert.Equal(t, "no-newline", got)

	_, err = ReadSecret(strings.NewReader("\n"))
	assert.Error(t, err)
}
