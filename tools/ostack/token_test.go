package ostack

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseKeystoneTime(t *testing.T) {
	tests := []struct {
		in   string
		want time.Time
	}{
		{"2014-01-30T15:30:58.819584", time.Date(2014, 1, 30, 15, 30, 58, 819584000, time.UTC)},
		{"2014-01-30T15:30:58", time.Date(2014, 1, 30, 15, 30, 58, 0, time.UTC)},
		{"2014-01-30T15:30:58Z", time.Date(2014, 1, 30, 15, 30, 58, 0, time.UTC)},
		{"2014-01-30T16:30:58+01:00", time.Date(2014, 1, 30, 15, 30, 58, 0, time.UTC)},
	}
	for _, tt := range tests {
		got, err := parseKeystoneTime(tt.in)
		require.NoError(t, err, tt.in)
		assert.True(t, tt.want.Equal(got), tt.in)
		assert.Equal(t, time.UTC, got.Location())
	}

	_, err := parseKeystoneTime("30/01/2014")
	assert.Error(t, err)
}

func TestNewToken(t *testing.T) {
	tok, err := newToken("foo", "", "2014-01-30T15:30:58Z")
	require.NoError(t, err)
	assert.True(t, tok.IssuedAt.IsZero())

	_, err = newToken("", "2014-01-30T15:30:58Z", "2014-01-30T15:30:58Z")
	assert.ErrorContains(t, err, "missing id")
	_, err = newToken("foo", "2014-01-30T15:30:58Z", "")
	assert.ErrorContains(t, err, "missing expiry")
	_, err = newToken("foo", "soon", "2014-01-30T15:30:58Z")
	assert.ErrorContains(t, err, "issued_at")

	tok, err = newToken("foo", "2014-01-30T15:30:58.819584", "2014-01-30T15:30:58.819584")
	require.NoError(t, err)
	assert.Equal(t, tok.IssuedAt, tok.ExpiresAt)
}

func TestToken_ValidAndTTL(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	tok := Token{ID: "foo", IssuedAt: now.Add(-time.Hour), ExpiresAt: now.Add(time.Hour)}

	assert.True(t, tok.Valid(now))
	assert.Equal(t, time.Hour, tok.TTL(now))
	assert.False(t, tok.Valid(now.Add(time.Hour)))
	assert.Zero(t, tok.TTL(now.Add(2*time.Hour)))
	assert.False(t, Token{ExpiresAt: now.Add(time.Hour)}.Valid(now))
}
