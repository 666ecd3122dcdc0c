package ostack

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/gophercloud/gophercloud/v2"
	"github.com/rs/zerolog"
)

// ServiceClient is a gophercloud client bound to the resolved endpoint and token.
type ServiceClient struct {
	*gophercloud.ServiceClient

	Service   string
	Version   int
	BaseURL   string
	AuthToken Token
}

// Builder turns credentials into service clients:
// validate, authenticate, resolve, build. Each stage fails fast and returns its
// error unchanged. A Builder is safe for concurrent use.
type Builder struct {
	defaults Options
	log      zerolog.Logger
	metrics  *Metrics
	cache    *TokenCache
	now      func() time.Time
}

type BuilderOption func(*Builder)

// WithDefaults sets options merged into every CreateService call. Merging only
// fills zero fields, so a default Debug of true cannot be switched off per call.
func WithDefaults(opts Options) BuilderOption {
	return func(b *Builder) { b.defaults = opts }
}

func WithLogger(log zerolog.Logger) BuilderOption {
	return func(b *Builder) { b.log = log }
}

func WithMetrics(m *Metrics) BuilderOption {
	return func(b *Builder) { b.metrics = m }
}

// WithCache reuses tokens and catalogs across calls with the same credentials.
// Without it every call authenticates.
func WithCache(c *TokenCache) BuilderOption {
	return func(b *Builder) { b.cache = c }
}

func WithClock(now func() time.Time) BuilderOption {
	return func(b *Builder) { b.now = now }
}

func NewBuilder(opts ...BuilderOption) *Builder {
	b := &Builder{
		log: zerolog.New(os.Stderr).With().Timestamp().Logger().Level(zerolog.InfoLevel),
		now: time.Now,
	}
	for _, o := range opts {
		o(b)
	}
	return b
}

// CreateService validates opts, authenticates once, resolves the catalog entry
// (opts.CatalogType, opts.CatalogName) in opts.Region and returns a client for
// serviceName at the given major version.
func (b *Builder) CreateService(ctx context.Context, serviceName string, version int, opts Options) (*ServiceClient, error) {
	log := b.log.With().Str("service", serviceName).Int("version", version).Logger()
	loc, err := b.locate(ctx, log, serviceName, opts)
	if err != nil {
		return nil, err
	}

	ctor, err := lookupService(serviceName, version)
	if err != nil {
		b.metrics.built(serviceName, err)
		log.Warn().Err(err).Msg("no client for service")
		return nil, err
	}
	sc, err := ctor(newProvider(loc.opts, loc.transport, loc.token, loc.catalog), gophercloud.EndpointOpts{
		Type:         loc.opts.CatalogType,
		Name:         loc.opts.CatalogName,
		Region:       loc.opts.Region,
		Availability: loc.opts.Role().Availability(),
	})
	if err != nil {
		err = fmt.Errorf("build %s v%d client: %w", serviceName, version, err)
		b.metrics.built(serviceName, err)
		return nil, err
	}
	b.metrics.built(serviceName, nil)
	log.Debug().Str("url", loc.url).Msg("client built")

	return &ServiceClient{
		ServiceClient: sc,
		Service:       serviceName,
		Version:       version,
		BaseURL:       loc.url,
		AuthToken:     loc.token,
	}, nil
}

// Resolve runs the validate, authenticate and resolve stages of CreateService
// and returns the endpoint URL without building a client.
func (b *Builder) Resolve(ctx context.Context, opts Options) (string, error) {
	log := b.log.With().Str("catalog_type", opts.CatalogType).Logger()
	loc, err := b.locate(ctx, log, opts.CatalogType, opts)
	if err != nil {
		return "", err
	}
	return loc.url, nil
}

type located struct {
	opts      Options
	transport HTTPClient
	token     Token
	catalog   *Catalog
	url       string
}

func (b *Builder) locate(ctx context.Context, log zerolog.Logger, serviceName string, opts Options) (located, error) {
	opts = opts.Merge(b.defaults)
	if err := Validate(serviceName, opts); err != nil {
		log.Warn().Err(err).Msg("options rejected")
		return located{}, err
	}

	transport := opts.HTTPClient
	if transport == nil {
		transport = NewTransport()
	}
	if opts.Debug {
		transport = NewDebugTransport(transport, log.Level(zerolog.DebugLevel))
	}

	tok, catalog, err := b.authenticate(ctx, opts, transport)
	if err != nil {
		log.Warn().Err(err).Str("auth_url", opts.AuthURL).Msg("authentication failed")
		return located{}, err
	}
	log.Debug().Int("catalog_entries", catalog.Len()).Time("expires", tok.ExpiresAt).Msg("authenticated")

	url, err := catalog.Resolve(opts.CatalogType, opts.CatalogName, opts.Region, opts.Role())
	b.metrics.resolved(err)
	if err != nil {
		log.Warn().Err(err).Msg("endpoint resolution failed")
		return located{}, err
	}
	log.Debug().Str("url", url).Msg("endpoint resolved")
	return located{opts: opts, transport: transport, token: tok, catalog: catalog, url: url}, nil
}

func (b *Builder) authenticate(ctx context.Context, opts Options, transport HTTPClient) (Token, *Catalog, error) {
	auth := NewAuthenticator(transport)
	fetch := func(ctx context.Context) (Token, *Catalog, error) {
		start := time.Now()
		tok, catalog, err := auth.Authenticate(ctx, opts)
		b.metrics.authenticated(time.Since(start), err)
		return tok, catalog, err
	}
	if b.cache == nil {
		return fetch(ctx)
	}
	tok, catalog, hit, err := b.cache.Fetch(ctx, opts, b.now(), fetch)
	if hit {
		b.metrics.cacheHit()
	}
	return tok, catalog, err
}
