package ostack

import (
	"sort"

	"github.com/gophercloud/gophercloud/v2"
	"github.com/gophercloud/gophercloud/v2/openstack"
)

type serviceKey struct {
	name    string
	version int
}

type serviceConstructor func(*gophercloud.ProviderClient, gophercloud.EndpointOpts) (*gophercloud.ServiceClient, error)

// services maps a service name and major version to its client constructor.
var services = map[serviceKey]serviceConstructor{
	{"Compute", 2}:      openstack.NewComputeV2,
	{"Identity", 2}:     openstack.NewIdentityV2,
	{"Identity", 3}:     openstack.NewIdentityV3,
	{"BlockStorage", 3}: openstack.NewBlockStorageV3,
	{"Image", 2}:        openstack.NewImageV2,
	{"Network", 2}:      openstack.NewNetworkV2,
	{"ObjectStore", 1}:  openstack.NewObjectStorageV1,
}

// ServiceVersion names one supported {service, version} pair.
type ServiceVersion struct {
	Name    string
	Version int
}

// SupportedServices lists the registry sorted by name then version.
func SupportedServices() []ServiceVersion {
	out := make([]ServiceVersion, 0, len(services))
	for k := range services {
		out = append(out, ServiceVersion{Name: k.name, Version: k.version})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].Version < out[j].Version
	})
	return out
}

func lookupService(name string, version int) (serviceConstructor, error) {
	ctor, ok := services[serviceKey{name, version}]
	if !ok {
		return nil, &UnsupportedServiceError{Service: name, Version: version}
	}
	return ctor, nil
}
