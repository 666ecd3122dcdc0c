package ostack

const (
	DefaultConfigDir  = "cfg"
	DefaultConfigPath = "cfg/config.yaml"

	IdentityV2 = 2
	IdentityV3 = 3

	DefaultDomain = "Default"
)

// Options is the configuration bag for one CreateService call.
// Loaded from YAML (default: cfg/config.yaml), then .env / OS_* variables; CLI flags override.
// Field order is the validation order.
type Options struct {
	Username    string `yaml:"username" validate:"required"`
	Password    string `yaml:"password" validate:"required"`
	TenantID    string `yaml:"tenant_id" validate:"required_without=TenantName"`
	TenantName  string `yaml:"tenant_name" validate:"excluded_with=TenantID"`
	AuthURL     string `yaml:"auth_url" validate:"required"`
	Region      string `yaml:"region" validate:"required"`
	CatalogName string `yaml:"catalog_name" validate:"required"`
	CatalogType string `yaml:"catalog_type" validate:"required"`

	// Domain scopes user and project for Identity v3; ignored by v2.
	Domain string `yaml:"domain"`
	// IdentityVersion selects the authentication exchange; 0 means v2.
	IdentityVersion int     `yaml:"identity_version" validate:"omitempty,oneof=2 3"`
	URLRole         URLRole `yaml:"url_role" validate:"omitempty,oneof=publicURL internalURL adminURL"`
	Debug           bool    `yaml:"debug"`

	// HTTPClient is the injected transport; NewTransport() is used when nil.
	HTTPClient HTTPClient `yaml:"-" validate:"-"`
}

// Merge returns o with every zero field taken from defaults. Debug is a plain
// bool, so false per call never overrides a true default.
func (o Options) Merge(defaults Options) Options {
	str := func(v *string, d string) {
		if *v == "" {
			*v = d
		}
	}
	str(&o.Username, defaults.Username)
	str(&o.Password, defaults.Password)
	// the tenant pair is merged as a unit so a per-call tenant name is not joined by a default id
	if o.TenantID == "" && o.TenantName == "" {
		o.TenantID, o.TenantName = defaults.TenantID, defaults.TenantName
	}
	str(&o.AuthURL, defaults.AuthURL)
	str(&o.Region, defaults.Region)
	str(&o.CatalogName, defaults.CatalogName)
	str(&o.CatalogType, defaults.CatalogType)
	str(&o.Domain, defaults.Domain)
	if o.IdentityVersion == 0 {
		o.IdentityVersion = defaults.IdentityVersion
	}
	if o.URLRole == "" {
		o.URLRole = defaults.URLRole
	}
	if !o.Debug {
		o.Debug = defaults.Debug
	}
	if o.HTTPClient == nil {
		o.HTTPClient = defaults.HTTPClient
	}
	return o
}

func (o Options) identityVersion() int {
	if o.IdentityVersion == 0 {
		return IdentityV2
	}
	return o.IdentityVersion
}

// Role is the URL role endpoints are resolved under; publicURL when unset.
func (o Options) Role() URLRole {
	if o.URLRole == "" {
		return RolePublic
	}
	return o.URLRole
}

func (o Options) domain() string {
	if o.Domain == "" {
		return DefaultDomain
	}
	return o.Domain
}
