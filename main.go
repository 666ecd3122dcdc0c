// Command svc-locator authenticates against Keystone and resolves OpenStack service endpoints (Go + Gophercloud).
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/ostack-misc/svc-locator/tools/ostack"
)

type cli struct {
	configPath string
	envFile    string
	logLevel   string
	logFormat  string
	flagOpts   ostack.Options
	urlRole    string

	opts ostack.Options
	log  zerolog.Logger
}

// load applies config file, then .env and OS_* variables, then explicitly set flags.
func (c *cli) load(cmd *cobra.Command) error {
	c.log = ostack.NewLogger(os.Stderr, c.logLevel, c.logFormat)
	opts, err := ostack.Load(c.configPath, c.envFile)
	if err != nil {
		return err
	}
	f := cmd.Flags()
	set := func(name string, dst *string, v string) {
		if f.Changed(name) {
			*dst = v
		}
	}
	set("username", &opts.Username, c.flagOpts.Username)
	set("password", &opts.Password, c.flagOpts.Password)
	set("auth-url", &opts.AuthURL, c.flagOpts.AuthURL)
	set("region", &opts.Region, c.flagOpts.Region)
	set("catalog-name", &opts.CatalogName, c.flagOpts.CatalogName)
	set("catalog-type", &opts.CatalogType, c.flagOpts.CatalogType)
	set("domain", &opts.Domain, c.flagOpts.Domain)
	if f.Changed("tenant-id") {
		opts.TenantID, opts.TenantName = c.flagOpts.TenantID, ""
	}
	if f.Changed("tenant-name") {
		opts.TenantName, opts.TenantID = c.flagOpts.TenantName, ""
	}
	if f.Changed("identity-version") {
		opts.IdentityVersion = c.flagOpts.IdentityVersion
	}
	if f.Changed("url-role") {
		opts.URLRole = ostack.URLRole(c.urlRole)
	}
	if f.Changed("debug") {
		opts.Debug = c.flagOpts.Debug
	}
	c.opts = *opts
	return nil
}

func (c *cli) authenticate(ctx context.Context) (ostack.Token, *ostack.Catalog, error) {
	if err := ostack.Validate("", c.opts); err != nil {
		return ostack.Token{}, nil, err
	}
	var transport ostack.HTTPClient = ostack.NewTransport()
	if c.opts.Debug {
		transport = ostack.NewDebugTransport(transport, c.log.Level(zerolog.DebugLevel))
	}
	return ostack.NewAuthenticator(transport).Authenticate(ctx, c.opts)
}

func parseServiceArg(s string) (string, int, error) {
	name, ver, ok := strings.Cut(s, ":")
	if !ok {
		return "", 0, fmt.Errorf("invalid service %q (want NAME:VERSION, e.g. Compute:2)", s)
	}
	n, err := strconv.Atoi(ver)
	if err != nil {
		return "", 0, fmt.Errorf("invalid version in %q: %w", s, err)
	}
	return name, n, nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newRootCmd() *cobra.Command {
	c := &cli{}
	root := &cobra.Command{
		Use:           "svc-locator",
		Short:         "Resolve OpenStack service endpoints from Keystone credentials",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.load(cmd)
		},
	}
	pf := root.PersistentFlags()
	pf.StringVar(&c.configPath, "config", ostack.DefaultConfigPath, "Path to config file (YAML)")
	pf.StringVar(&c.envFile, "env-file", ".env", "Optional .env file with OS_* variables")
	pf.StringVar(&c.logLevel, "log-level", "info", "Log level: debug, info, warn, error")
	pf.StringVar(&c.logFormat, "log-format", "console", "Log format: console or json")
	pf.StringVar(&c.flagOpts.Username, "username", "", "OpenStack user (env OS_USERNAME)")
	pf.StringVar(&c.flagOpts.Password, "password", "", "OpenStack password (env OS_PASSWORD)")
	pf.StringVar(&c.flagOpts.TenantID, "tenant-id", "", "Tenant (project) id (env OS_TENANT_ID)")
	pf.StringVar(&c.flagOpts.TenantName, "tenant-name", "", "Tenant (project) name (env OS_TENANT_NAME)")
	pf.StringVar(&c.flagOpts.AuthURL, "auth-url", "", "Identity endpoint, e.g. https://keystone.example.com:5000/v2.0 (env OS_AUTH_URL)")
	pf.StringVar(&c.flagOpts.Region, "region", "", "Region (env OS_REGION_NAME)")
	pf.StringVar(&c.flagOpts.CatalogName, "catalog-name", "", "Catalog entry name, e.g. nova")
	pf.StringVar(&c.flagOpts.CatalogType, "catalog-type", "", "Catalog entry type, e.g. compute")
	pf.StringVar(&c.flagOpts.Domain, "domain", "", "User and project domain (Identity v3)")
	pf.IntVar(&c.flagOpts.IdentityVersion, "identity-version", 0, "Identity API version: 2 or 3")
	pf.StringVar(&c.urlRole, "url-role", "", "Endpoint URL role: publicURL, internalURL, adminURL")
	pf.BoolVar(&c.flagOpts.Debug, "debug", false, "Log every HTTP exchange")

	resolveCmd := &cobra.Command{
		Use:   "resolve",
		Short: "Authenticate and print the endpoint URL for catalog-type/catalog-name in region",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			u, err := ostack.NewBuilder(ostack.WithLogger(c.log)).Resolve(cmd.Context(), c.opts)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), u)
			return nil
		},
	}

	catalogCmd := &cobra.Command{
		Use:   "catalog",
		Short: "Authenticate and print the service catalog as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			tok, catalog, err := c.authenticate(cmd.Context())
			if err != nil {
				return err
			}
			c.log.Info().Time("expires", tok.ExpiresAt).Int("entries", catalog.Len()).Msg("authenticated")
			return printJSON(cmd.OutOrStdout(), catalog.Entries())
		},
	}

	buildCmd := &cobra.Command{
		Use:   "build NAME:VERSION...",
		Short: "Build service clients (e.g. Compute:2 Image:2) and print their endpoints",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			builder := ostack.NewBuilder(
				ostack.WithLogger(c.log),
				ostack.WithCache(ostack.NewTokenCache(ostack.DefaultExpiryMargin)),
			)
			type built struct {
				Service string `json:"service"`
				Version int    `json:"version"`
				URL     string `json:"url"`
			}
			wanted := make([]ostack.ServiceVersion, len(args))
			for i, arg := range args {
				name, version, err := parseServiceArg(arg)
				if err != nil {
					return err
				}
				wanted[i] = ostack.ServiceVersion{Name: name, Version: version}
			}
			results := make([]built, len(wanted))
			g, gCtx := errgroup.WithContext(cmd.Context())
			for i, sv := range wanted {
				g.Go(func() error {
					sc, err := builder.CreateService(gCtx, sv.Name, sv.Version, c.opts)
					if err != nil {
						return fmt.Errorf("%s:%d: %w", sv.Name, sv.Version, err)
					}
					results[i] = built{Service: sc.Service, Version: sc.Version, URL: sc.BaseURL}
					return nil
				})
			}
			if err := g.Wait(); err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), results)
		},
	}

	servicesCmd := &cobra.Command{
		Use:   "services",
		Short: "List the services and versions that can be built",
		Args:  cobra.NoArgs,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, sv := range ostack.SupportedServices() {
				fmt.Fprintf(cmd.OutOrStdout(), "%s:%d\n", sv.Name, sv.Version)
			}
			return nil
		},
	}

	root.AddCommand(resolveCmd, catalogCmd, buildCmd, servicesCmd)
	return root
}

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
