package ostack

import (
	"github.com/gophercloud/gophercloud/v2"
)

// newProvider returns a Gophercloud ProviderClient that is already authenticated
// with tok. Endpoints are located in catalog; no further identity requests are made.
func newProvider(opts Options, transport HTTPClient, tok Token, catalog *Catalog) *gophercloud.ProviderClient {
	provider := &gophercloud.ProviderClient{
		IdentityBase:     gophercloud.NormalizeURL(opts.AuthURL),
		IdentityEndpoint: opts.AuthURL,
		HTTPClient:       stdClient(transport),
		EndpointLocator:  catalog.Locator(),
	}
	provider.SetToken(tok.ID)
	return provider
}
