package ostack

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestV2AuthRequest(t *testing.T) {
	t.Run("tenant id", func(t *testing.T) {
		b, err := json.Marshal(newV2AuthReq(Options{Username: "u", Password: "p", TenantID: "3"}))
		require.NoError(t, err)
		assert.JSONEq(t, `{"auth":{"passwordCredentials":{"username":"u","password":"p"},"tenantId":"3"}}`, string(b))
	})
	t.Run("tenant name", func(t *testing.T) {
		b, err := json.Marshal(newV2AuthReq(Options{Username: "u", Password: "p", TenantName: "acme"}))
		require.NoError(t, err)
		assert.JSONEq(t, `{"auth":{"passwordCredentials":{"username":"u","password":"p"},"tenantName":"acme"}}`, string(b))
	})
}

func TestV3AuthRequest(t *testing.T) {
	t.Run("project id", func(t *testing.T) {
		b, err := json.Marshal(newV3AuthReq(Options{Username: "u", Password: "p", TenantID: "3"}))
		require.NoError(t, err)
		assert.JSONEq(t, `{"auth":{
			"identity":{"methods":["password"],"password":{"user":{"name":"u","domain":{"name":"Default"},"password":"p"}}},
			"scope":{"project":{"id":"3"}}}}`, string(b))
	})
	t.Run("project name", func(t *testing.T) {
		b, err := json.Marshal(newV3AuthReq(Options{Username: "u", Password: "p", TenantName: "acme", Domain: "corp"}))
		require.NoError(t, err)
		assert.JSONEq(t, `{"auth":{
			"identity":{"methods":["password"],"password":{"user":{"name":"u","domain":{"name":"corp"},"password":"p"}}},
			"scope":{"project":{"name":"acme","domain":{"name":"corp"}}}}}`, string(b))
	})
}

func TestAuthenticate_V2(t *testing.T) {
	client := newFakeHTTPClient(http.StatusOK, v2Response("2014-01-30T15:30:58.819584", "2014-01-31T15:30:58Z", builtCatalog))
	opts := testOptions()
	opts.AuthURL = "https://keystone.example.com:5000/v2.0/"

	tok, catalog, err := NewAuthenticator(client).Authenticate(context.Background(), opts)
	require.NoError(t, err)

	assert.Equal(t, "foo", tok.ID)
	assert.Equal(t, time.Date(2014, 1, 30, 15, 30, 58, 819584000, time.UTC), tok.IssuedAt)
	assert.Equal(t, time.Date(2014, 1, 31, 15, 30, 58, 0, time.UTC), tok.ExpiresAt)
	assert.Equal(t, 1, catalog.Len())

	reqs := client.Requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, "https://keystone.example.com:5000/v2.0/tokens", reqs[0].url)
}

func TestAuthenticate_V2Malformed(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"not json", `<html>`},
		{"no access", `{}`},
		{"no token", `{"access":{"serviceCatalog":[]}}`},
		{"no token id", v2ResponseWithID("", "2014-01-30T15:30:58Z")},
		{"no expiry", v2ResponseWithID("foo", "")},
		{"bad expiry", v2ResponseWithID("foo", "yesterday")},
		{"issued after expiry", v2Response("2014-02-01T00:00:00Z", "2014-01-30T15:30:58Z", builtCatalog)},
		{"entry without name", v2Response("", "2014-01-30T15:30:58Z", []map[string]any{{"type": "7", "endpoints": []any{}}})},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newFakeHTTPClient(http.StatusOK, tt.body)
			_, _, err := NewAuthenticator(client).Authenticate(context.Background(), testOptions())

			var aerr *AuthError
			require.ErrorAs(t, err, &aerr)
			assert.Equal(t, http.StatusOK, aerr.Status)
			assert.Equal(t, tt.body, string(aerr.Body))
			assert.Error(t, aerr.Err)
		})
	}
}

func v2ResponseWithID(id, expires string) string {
	b, _ := json.Marshal(map[string]any{
		"access": map[string]any{
			"token":          map[string]any{"id": id, "expires": expires},
			"serviceCatalog": builtCatalog,
		},
	})
	return string(b)
}

const v3Body = `{"token": {
	"issued_at": "2014-01-30T15:30:58.000000Z",
	"expires_at": "2014-01-30T16:30:58.000000Z",
	"catalog": [{"name": "6", "type": "7", "endpoints": [
		{"interface": "public", "region": "5", "url": "foo.com"}
	]}]
}}`

func TestAuthenticate_V3(t *testing.T) {
	client := newFakeHTTPClient(http.StatusCreated, v3Body)
	client.header.Set("X-Subject-Token", "subject-token")
	opts := testOptions()
	opts.IdentityVersion = IdentityV3

	tok, catalog, err := NewAuthenticator(client).Authenticate(context.Background(), opts)
	require.NoError(t, err)
	assert.Equal(t, "subject-token", tok.ID)
	assert.Equal(t, time.Hour, tok.ExpiresAt.Sub(tok.IssuedAt))

	u, err := catalog.Resolve("7", "6", "5", RolePublic)
	require.NoError(t, err)
	assert.Equal(t, "foo.com", u)

	reqs := client.Requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, "4/auth/tokens", reqs[0].url)
}

func TestAuthenticate_V3MissingSubjectToken(t *testing.T) {
	client := newFakeHTTPClient(http.StatusCreated, v3Body)
	opts := testOptions()
	opts.IdentityVersion = IdentityV3

	_, _, err := NewAuthenticator(client).Authenticate(context.Background(), opts)
	assert.ErrorIs(t, err, ErrAuth)
	assert.Contains(t, err.Error(), "missing id")
}

func TestAuthenticate_Non2xx(t *testing.T) {
	for _, status := range []int{http.StatusBadRequest, http.StatusUnauthorized, http.StatusInternalServerError} {
		client := newFakeHTTPClient(status, `{"error":{"message":"nope"}}`)
		_, _, err := NewAuthenticator(client).Authenticate(context.Background(), testOptions())

		var aerr *AuthError
		require.ErrorAs(t, err, &aerr)
		assert.Equal(t, status, aerr.Status)
		assert.Nil(t, aerr.Err)
		assert.Contains(t, aerr.Error(), "nope")
	}
}
