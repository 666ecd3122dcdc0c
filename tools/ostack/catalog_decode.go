package ostack

import (
	"fmt"
)

// Catalog JSON from Keystone is loosely typed; every key is a pointer so that
// absence can be told apart from an empty value and rejected.

type v2CatalogEntry struct {
	Name      *string       `json:"name"`
	Type      *string       `json:"type"`
	Endpoints *[]v2Endpoint `json:"endpoints"`
}

type v2Endpoint struct {
	Region      *string `json:"region"`
	PublicURL   *string `json:"publicURL"`
	InternalURL *string `json:"internalURL"`
	AdminURL    *string `json:"adminURL"`
}

type v3CatalogEntry struct {
	Name      *string       `json:"name"`
	Type      *string       `json:"type"`
	Endpoints *[]v3Endpoint `json:"endpoints"`
}

type v3Endpoint struct {
	Interface *string `json:"interface"`
	Region    *string `json:"region"`
	RegionID  *string `json:"region_id"`
	URL       *string `json:"url"`
}

var v3Interfaces = map[string]URLRole{
	"public":   RolePublic,
	"internal": RoleInternal,
	"admin":    RoleAdmin,
}

func decodeV2Catalog(raw []v2CatalogEntry) (*Catalog, error) {
	entries := make([]Entry, 0, len(raw))
	for i, re := range raw {
		if re.Name == nil || re.Type == nil || re.Endpoints == nil {
			return nil, fmt.Errorf("serviceCatalog[%d]: %w", i, missingKey(re.Name == nil, re.Type == nil))
		}
		e := Entry{Name: *re.Name, Type: *re.Type, Endpoints: make([]Endpoint, 0, len(*re.Endpoints))}
		for j, rep := range *re.Endpoints {
			if rep.Region == nil {
				return nil, fmt.Errorf("serviceCatalog[%d].endpoints[%d]: missing region", i, j)
			}
			ep := Endpoint{Region: *rep.Region, URLs: map[URLRole]string{}}
			setURL(ep.URLs, RolePublic, rep.PublicURL)
			setURL(ep.URLs, RoleInternal, rep.InternalURL)
			setURL(ep.URLs, RoleAdmin, rep.AdminURL)
			e.Endpoints = append(e.Endpoints, ep)
		}
		entries = append(entries, e)
	}
	return NewCatalog(entries), nil
}

// decodeV3Catalog folds v3 per-interface endpoints into one Endpoint per region,
// keeping regions in order of first appearance.
func decodeV3Catalog(raw []v3CatalogEntry) (*Catalog, error) {
	entries := make([]Entry, 0, len(raw))
	for i, re := range raw {
		if re.Name == nil || re.Type == nil || re.Endpoints == nil {
			return nil, fmt.Errorf("catalog[%d]: %w", i, missingKey(re.Name == nil, re.Type == nil))
		}
		e := Entry{Name: *re.Name, Type: *re.Type}
		byRegion := map[string]int{}
		for j, rep := range *re.Endpoints {
			region := rep.Region
			if region == nil {
				region = rep.RegionID
			}
			if region == nil {
				return nil, fmt.Errorf("catalog[%d].endpoints[%d]: missing region", i, j)
			}
			if rep.Interface == nil || rep.URL == nil {
				return nil, fmt.Errorf("catalog[%d].endpoints[%d]: missing interface or url", i, j)
			}
			role, ok := v3Interfaces[*rep.Interface]
			if !ok {
				return nil, fmt.Errorf("catalog[%d].endpoints[%d]: unknown interface %q", i, j, *rep.Interface)
			}
			idx, seen := byRegion[*region]
			if !seen {
				idx = len(e.Endpoints)
				byRegion[*region] = idx
				e.Endpoints = append(e.Endpoints, Endpoint{Region: *region, URLs: map[URLRole]string{}})
			}
			// first endpoint per (region, interface) wins
			if _, dup := e.Endpoints[idx].URLs[role]; !dup {
				e.Endpoints[idx].URLs[role] = *rep.URL
			}
		}
		entries = append(entries, e)
	}
	return NewCatalog(entries), nil
}

func setURL(urls map[URLRole]string, role URLRole, v *string) {
	if v != nil && *v != "" {
		urls[role] = *v
	}
}

func missingKey(noName, noType bool) error {
	switch {
	case noName:
		return fmt.Errorf("missing name")
	case noType:
		return fmt.Errorf("missing type")
	default:
		return fmt.Errorf("missing endpoints")
	}
}
