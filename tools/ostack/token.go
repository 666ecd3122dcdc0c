package ostack

import (
	"fmt"
	"time"
)

// keystoneTimeLayouts covers RFC3339 and the zone-less form Keystone v2 emits
// (2014-01-30T15:30:58.819584), which is UTC.
var keystoneTimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999",
}

// Token is an issued identity token. It is never refreshed in place.
type Token struct {
	ID        string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Valid reports whether the token has an id and has not expired at now.
func (t Token) Valid(now time.Time) bool {
	return t.ID != "" && now.Before(t.ExpiresAt)
}

// TTL is the remaining lifetime at now, never negative.
func (t Token) TTL(now time.Time) time.Duration {
	if d := t.ExpiresAt.Sub(now); d > 0 {
		return d
	}
	return 0
}

func newToken(id, issuedAt, expires string) (Token, error) {
	if id == "" {
		return Token{}, fmt.Errorf("token: missing id")
	}
	if expires == "" {
		return Token{}, fmt.Errorf("token: missing expiry")
	}
	tok := Token{ID: id}
	var err error
	if tok.ExpiresAt, err = parseKeystoneTime(expires); err != nil {
		return Token{}, fmt.Errorf("token expiry: %w", err)
	}
	if issuedAt != "" {
		if tok.IssuedAt, err = parseKeystoneTime(issuedAt); err != nil {
			return Token{}, fmt.Errorf("token issued_at: %w", err)
		}
		if tok.IssuedAt.After(tok.ExpiresAt) {
			return Token{}, fmt.Errorf("token issued at %s after expiry %s", issuedAt, expires)
		}
	}
	return tok, nil
}

func parseKeystoneTime(s string) (time.Time, error) {
	for _, layout := range keystoneTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised timestamp %q", s)
}
