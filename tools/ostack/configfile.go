package ostack

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// defaultConfigYAML is written when cfg/config.yaml does not exist.
const defaultConfigYAML = `# svc-locator default config (edit as needed)
# Required at runtime, via OS_* variables or via CLI:
#   username, password, tenant_id or tenant_name, auth_url, region, catalog_name, catalog_type

username: ""
password: ""
tenant_id: ""
tenant_name: ""
auth_url: ""

region: "RegionOne"
catalog_name: "nova"
catalog_type: "compute"
domain: "Default"
identity_version: 2
url_role: "publicURL"
debug: false
`

// envOverrides maps the usual OpenStack RC variables to options.
var envOverrides = []struct {
	name string
	set  func(*Options, string) error
}{
	{"OS_USERNAME", func(o *Options, v string) error { o.Username = v; return nil }},
	{"OS_PASSWORD", func(o *Options, v string) error { o.Password = v; return nil }},
	{"OS_TENANT_ID", func(o *Options, v string) error { o.TenantID, o.TenantName = v, ""; return nil }},
	{"OS_TENANT_NAME", func(o *Options, v string) error { o.TenantName, o.TenantID = v, ""; return nil }},
	{"OS_AUTH_URL", func(o *Options, v string) error { o.AuthURL = v; return nil }},
	{"OS_REGION_NAME", func(o *Options, v string) error { o.Region = v; return nil }},
	{"OS_CATALOG_NAME", func(o *Options, v string) error { o.CatalogName = v; return nil }},
	{"OS_CATALOG_TYPE", func(o *Options, v string) error { o.CatalogType = v; return nil }},
	{"OS_USER_DOMAIN_NAME", func(o *Options, v string) error { o.Domain = v; return nil }},
	{"OS_IDENTITY_API_VERSION", func(o *Options, v string) error {
		n, err := strconv.Atoi(v)
		if err != nil {
			return err
		}
		o.IdentityVersion = n
		return nil
	}},
	{"OS_INTERFACE", func(o *Options, v string) error {
		switch v {
		case "public", "internal", "admin":
			o.URLRole = URLRole(v + "URL")
		default:
			o.URLRole = URLRole(v)
		}
		return nil
	}},
}

// Load builds options from the YAML file at path, then the envFiles (missing
// ones are skipped) and the OS_* variables of the process environment, later
// sources winning. A missing config file is created from the defaults first.
func Load(path string, envFiles ...string) (*Options, error) {
	opts, err := readConfigFile(path)
	if err != nil {
		return nil, err
	}
	if err := applyEnv(opts, envFiles); err != nil {
		return nil, err
	}
	return opts, nil
}

// readConfigFile decodes path strictly so misspelt keys are reported.
func readConfigFile(path string) (*Options, error) {
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		if err := writeDefaultConfig(path); err != nil {
			return nil, fmt.Errorf("create default config %s: %w", path, err)
		}
		f, err = os.Open(path)
	}
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	defer f.Close()

	opts := &Options{}
	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(opts); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return opts, nil
}

func applyEnv(opts *Options, envFiles []string) error {
	for _, f := range envFiles {
		if _, err := os.Stat(f); err != nil {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return fmt.Errorf("load %s: %w", f, err)
		}
	}
	for _, ov := range envOverrides {
		v, ok := os.LookupEnv(ov.name)
		if !ok || v == "" {
			continue
		}
		if err := ov.set(opts, v); err != nil {
			return fmt.Errorf("%s: %w", ov.name, err)
		}
	}
	return nil
}

func writeDefaultConfig(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(defaultConfigYAML), 0o644)
}
