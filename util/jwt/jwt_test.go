package jwt

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestIssueParseRoundTrip(t *testing.T) {
	tok, err := Issue("s3cret", 42, "admin", 1)
	require.NoError(t, err)

	claims, err := ParseAuth(tok, "s3cret")
	require.NoError(t, err)
	require.Equal(t, float64(42), claims["sub"])
	require.Equal(t, "admin", claims["role"])
}

func TestParseAuth_BearerPrefix(t *testing.T) {
	tok, err := Issue("s3cret", 7, "user", 1)
	require.NoError(t, err)

	claims, err := ParseAuth("Bearer "+tok, "s3cret")
	require.NoError(t, err)
	require.Equal(t, float64(7), claims["sub"])

	// Case-insensitive prefix.
	claims, err = ParseAuth("bearer "+tok, "s3cret")
	require.NoError(t, err)
	require.Equal(t, "user", claims["role"])
}

func TestParseAuth_Rejections(t *testing.T) {
	tok, err := Issue("s3cret", 7, "user", 1)
	require.NoError(t, err)

	_, err = ParseAuth(tok, "wrong")
	require.Error(t, err)

	_, err = ParseAuth("", "s3cret")
	require.Error(t, err)

	_, err = ParseAuth("Bearer not.a.token", "s3cret")
	require.Error(t, err)
}

func TestIssue_ExpiredTokenRejected(t *testing.T) {
	tok, err := Issue("s3cret", 7, "user", -1)
	require.NoError(t, err)

	_, err = ParseAuth(tok, "s3cret")
	require.Error(t, err)
}
