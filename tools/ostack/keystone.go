package ostack

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// maxAuthBody bounds how much of an identity response is read.
const maxAuthBody = 8 << 20

type v2AuthReq struct {
	Auth struct {
		PasswordCredentials struct {
			Username string `json:"username"`
			Password string `json:"password"`
		} `json:"passwordCredentials"`
		TenantID   string `json:"tenantId,omitempty"`
		TenantName string `json:"tenantName,omitempty"`
	} `json:"auth"`
}

type v2AuthResp struct {
	Access *struct {
		Token *struct {
			ID       string `json:"id"`
			IssuedAt string `json:"issued_at"`
			Expires  string `json:"expires"`
		} `json:"token"`
		ServiceCatalog *[]v2CatalogEntry `json:"serviceCatalog"`
	} `json:"access"`
}

type v3Domain struct {
	Name string `json:"name"`
}

type v3AuthReq struct {
	Auth struct {
		Identity struct {
			Methods  []string `json:"methods"`
			Password struct {
				User struct {
					Name     string   `json:"name"`
					Domain   v3Domain `json:"domain"`
					Password string   `json:"password"`
				} `json:"user"`
			} `json:"password"`
		} `json:"identity"`
		Scope struct {
			Project struct {
				ID     string    `json:"id,omitempty"`
				Name   string    `json:"name,omitempty"`
				Domain *v3Domain `json:"domain,omitempty"`
			} `json:"project"`
		} `json:"scope"`
	} `json:"auth"`
}

type v3AuthResp struct {
	Token *struct {
		IssuedAt  string            `json:"issued_at"`
		ExpiresAt string            `json:"expires_at"`
		Catalog   *[]v3CatalogEntry `json:"catalog"`
	} `json:"token"`
}

// Authenticator exchanges credentials for a token and service catalog.
// It holds no state besides the transport and never retries.
type Authenticator struct {
	client HTTPClient
}

func NewAuthenticator(client HTTPClient) *Authenticator {
	return &Authenticator{client: client}
}

// Authenticate performs exactly one POST to the identity service selected by
// opts.IdentityVersion. Every failure is an *AuthError.
func (a *Authenticator) Authenticate(ctx context.Context, opts Options) (Token, *Catalog, error) {
	if opts.identityVersion() == IdentityV3 {
		return a.authenticateV3(ctx, opts)
	}
	return a.authenticateV2(ctx, opts)
}

func newV2AuthReq(opts Options) v2AuthReq {
	var body v2AuthReq
	body.Auth.PasswordCredentials.Username = opts.Username
	body.Auth.PasswordCredentials.Password = opts.Password
	if opts.TenantID != "" {
		body.Auth.TenantID = opts.TenantID
	} else {
		body.Auth.TenantName = opts.TenantName
	}
	return body
}

func (a *Authenticator) authenticateV2(ctx context.Context, opts Options) (Token, *Catalog, error) {
	url := strings.TrimSuffix(opts.AuthURL, "/") + "/tokens"
	resp, body, err := a.post(ctx, url, newV2AuthReq(opts))
	if err != nil {
		return Token{}, nil, err
	}
	var out v2AuthResp
	if err := json.Unmarshal(body, &out); err != nil {
		return Token{}, nil, authErr(url, resp, body, fmt.Errorf("decode response: %w", err))
	}
	if out.Access == nil || out.Access.Token == nil || out.Access.ServiceCatalog == nil {
		return Token{}, nil, authErr(url, resp, body, errors.New("response missing access.token or access.serviceCatalog"))
	}
	tok, err := newToken(out.Access.Token.ID, out.Access.Token.IssuedAt, out.Access.Token.Expires)
	if err != nil {
		return Token{}, nil, authErr(url, resp, body, err)
	}
	catalog, err := decodeV2Catalog(*out.Access.ServiceCatalog)
	if err != nil {
		return Token{}, nil, authErr(url, resp, body, err)
	}
	return tok, catalog, nil
}

func newV3AuthReq(opts Options) v3AuthReq {
	var body v3AuthReq
	body.Auth.Identity.Methods = []string{"password"}
	body.Auth.Identity.Password.User.Name = opts.Username
	body.Auth.Identity.Password.User.Domain.Name = opts.domain()
	body.Auth.Identity.Password.User.Password = opts.Password
	if opts.TenantID != "" {
		body.Auth.Scope.Project.ID = opts.TenantID
	} else {
		body.Auth.Scope.Project.Name = opts.TenantName
		body.Auth.Scope.Project.Domain = &v3Domain{Name: opts.domain()}
	}
	return body
}

func (a *Authenticator) authenticateV3(ctx context.Context, opts Options) (Token, *Catalog, error) {
	url := strings.TrimSuffix(opts.AuthURL, "/") + "/auth/tokens"
	resp, body, err := a.post(ctx, url, newV3AuthReq(opts))
	if err != nil {
		return Token{}, nil, err
	}
	var out v3AuthResp
	if err := json.Unmarshal(body, &out); err != nil {
		return Token{}, nil, authErr(url, resp, body, fmt.Errorf("decode response: %w", err))
	}
	if out.Token == nil || out.Token.Catalog == nil {
		return Token{}, nil, authErr(url, resp, body, errors.New("response missing token or token.catalog"))
	}
	tok, err := newToken(resp.Header.Get("X-Subject-Token"), out.Token.IssuedAt, out.Token.ExpiresAt)
	if err != nil {
		return Token{}, nil, authErr(url, resp, body, err)
	}
	catalog, err := decodeV3Catalog(*out.Token.Catalog)
	if err != nil {
		return Token{}, nil, authErr(url, resp, body, err)
	}
	return tok, catalog, nil
}

// post sends body and returns the response with its fully read body. Non-2xx
// statuses come back as *AuthError.
func (a *Authenticator) post(ctx context.Context, url string, payload any) (*http.Response, []byte, error) {
	req, err := a.client.NewRequest(ctx, http.MethodPost, url, payload)
	if err != nil {
		return nil, nil, &AuthError{URL: url, Err: err}
	}
	resp, err := a.client.Send(req)
	if err != nil {
		return nil, nil, &AuthError{URL: url, Err: err}
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxAuthBody))
	if err != nil {
		return nil, nil, authErr(url, resp, body, fmt.Errorf("read response: %w", err))
	}
	if resp.StatusCode/100 != 2 {
		return nil, nil, authErr(url, resp, body, nil)
	}
	return resp, body, nil
}

func authErr(url string, resp *http.Response, body []byte, err error) *AuthError {
	return &AuthError{URL: url, Status: resp.StatusCode, Body: body, Err: err}
}
