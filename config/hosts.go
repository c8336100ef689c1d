package config

import (
	"fmt"
	"maps"
	"slices"
	"strings"
)

// GetHost resolves the host of service in region. An empty region means global.
// The returned error is a *ConfigError listing the regions the service does support.
func (c *Config) GetHost(service string, region Region) (string, error) {
	if region == "" {
		region = RegionGlobal
	}

	var hosts map[Region]string
	if c != nil {
		hosts = c.Hosts[service]
	}

	if host := strings.TrimSpace(hosts[region]); host != "" {
		return strings.TrimRight(host, "/"), nil
	}

	available := slices.Sorted(maps.Keys(hosts))
	return "", NewInvalidRegionError(service, region, available)
}

// SetHosts registers (or replaces) the hosts of a service.
func (c *Config) SetHosts(service string, hosts map[Region]string) {
	if c.Hosts == nil {
		c.Hosts = make(HostTable)
	}
	c.Hosts[service] = maps.Clone(hosts)
}

// Services returns the names of services with at least one configured host.
func (c *Config) Services() []string {
	if c == nil {
		return nil
	}
	return slices.Sorted(maps.Keys(c.Hosts))
}

// NewInvalidRegionError reports a (service, region) pair with no configured host.
func NewInvalidRegionError(service string, region Region, available []Region) *ConfigError {
	err := &ConfigError{
		Category: CategoryInvalid,
		Field:    fmt.Sprintf("hosts.%s.%s", service, region),
		Message:  fmt.Sprintf("invalid region %q for service %q", region, service),
	}
	if len(available) > 0 {
		err.Action = "available regions are " + strings.Join(regionNames(available), ", ")
	} else {
		err.Action = fmt.Sprintf("add hosts.%s to the configuration", service)
	}
	return err
}
