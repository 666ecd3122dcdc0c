package ostack

import (
	"fmt"

	"github.com/gophercloud/gophercloud/v2"
)

// URLRole is the Identity v2 key an endpoint URL is published under.
type URLRole string

const (
	RolePublic   URLRole = "publicURL"
	RoleInternal URLRole = "internalURL"
	RoleAdmin    URLRole = "adminURL"
)

// RoleFor maps a gophercloud availability to the v2 URL role. Empty means public.
func RoleFor(av gophercloud.Availability) (URLRole, error) {
	switch av {
	case "", gophercloud.AvailabilityPublic:
		return RolePublic, nil
	case gophercloud.AvailabilityInternal:
		return RoleInternal, nil
	case gophercloud.AvailabilityAdmin:
		return RoleAdmin, nil
	}
	return "", fmt.Errorf("unknown availability %q", av)
}

// Availability is the gophercloud availability matching r.
func (r URLRole) Availability() gophercloud.Availability {
	switch r {
	case RoleInternal:
		return gophercloud.AvailabilityInternal
	case RoleAdmin:
		return gophercloud.AvailabilityAdmin
	default:
		return gophercloud.AvailabilityPublic
	}
}

// Endpoint is one region's URLs for a catalog entry.
type Endpoint struct {
	Region string
	URLs   map[URLRole]string
}

// URL returns the URL published under role. There is no fallback to other roles.
func (ep Endpoint) URL(role URLRole) (string, bool) {
	u, ok := ep.URLs[role]
	return u, ok && u != ""
}

// Entry is one named, typed service and its regional endpoints.
type Entry struct {
	Name      string
	Type      string
	Endpoints []Endpoint
}

// Catalog is the ordered service catalog of one authentication. It is not
// modified after construction.
type Catalog struct {
	entries []Entry
}

func NewCatalog(entries []Entry) *Catalog {
	c := &Catalog{entries: make([]Entry, len(entries))}
	for i, e := range entries {
		c.entries[i] = e.clone()
	}
	return c
}

// Entries returns a copy of the catalog entries in their original order.
func (c *Catalog) Entries() []Entry {
	out := make([]Entry, len(c.entries))
	for i, e := range c.entries {
		out[i] = e.clone()
	}
	return out
}

func (c *Catalog) Len() int { return len(c.entries) }

// Resolve returns the URL for (typ, name) in region under role. The first entry
// matching type and name wins, then the first endpoint in region.
func (c *Catalog) Resolve(typ, name, region string, role URLRole) (string, error) {
	var entry *Entry
	for i := range c.entries {
		if c.entries[i].Type == typ && c.entries[i].Name == name {
			entry = &c.entries[i]
			break
		}
	}
	if entry == nil {
		return "", &CatalogEntryNotFoundError{Type: typ, Name: name}
	}
	for _, ep := range entry.Endpoints {
		if ep.Region != region {
			continue
		}
		u, ok := ep.URL(role)
		if !ok {
			return "", &URLRoleNotFoundError{Type: typ, Name: name, Region: region, Role: role}
		}
		return u, nil
	}
	return "", &RegionNotFoundError{Type: typ, Name: name, Region: region}
}

// Locator adapts the catalog to gophercloud's endpoint lookup. Type, Name and
// Region come from the EndpointOpts; Availability selects the URL role.
func (c *Catalog) Locator() gophercloud.EndpointLocator {
	return func(eo gophercloud.EndpointOpts) (string, error) {
		role, err := RoleFor(eo.Availability)
		if err != nil {
			return "", err
		}
		return c.Resolve(eo.Type, eo.Name, eo.Region, role)
	}
}

func (e Entry) clone() Entry {
	out := Entry{Name: e.Name, Type: e.Type, Endpoints: make([]Endpoint, len(e.Endpoints))}
	for i, ep := range e.Endpoints {
		urls := make(map[URLRole]string, len(ep.URLs))
		for k, v := range ep.URLs {
			urls[k] = v
		}
		out.Endpoints[i] = Endpoint{Region: ep.Region, URLs: urls}
	}
	return out
}
