// Package config loads the per-blade YAML configuration: the blade's
// class, the package groups to install, and the overlay networks to
// build. The file is produced upstream by fleet configuration assembly
// and shipped to the blade verbatim.
package config

import (
	"fmt"
	"net/netip"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"bladenet"
)

// Blade is the full configuration applied to one blade.
type Blade struct {
	BladeClass string                  `yaml:"blade_class"`
	Packages   map[string]PackageGroup `yaml:"packages"`
	Networks   map[string]Network      `yaml:"networks"`
}

// PackageGroup describes one named group of packages and the service
// adjustments that go with it. A nil BladeClasses list applies the
// group to every blade class.
type PackageGroup struct {
	BladeClasses      []string `yaml:"blade_classes"`
	PreconfigSettings []string `yaml:"preconfig_settings"`
	Packages          []string `yaml:"packages"`
	ServicesDisable   []string `yaml:"services_disable"`
	ServicesEnable    []string `yaml:"services_enable"`
}

// AppliesTo reports whether the group is configured for the class.
func (g PackageGroup) AppliesTo(bladeClass string) bool {
	if g.BladeClasses == nil {
		return true
	}
	for _, class := range g.BladeClasses {
		if class == bladeClass {
			return true
		}
	}
	return false
}

// Network is the on-disk form of a bladenet.NetworkSpec, with endpoint
// IPs still as strings.
type Network struct {
	NetworkName string   `yaml:"network_name"`
	TunnelName  string   `yaml:"tunnel_name"`
	BridgeName  string   `yaml:"bridge_name"`
	TunnelID    uint32   `yaml:"tunnel_id"`
	EndpointIPs []string `yaml:"endpoint_ips"`
}

// Load reads and parses a blade configuration file.
func Load(path string) (*Blade, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read blade configuration %q: %w", path, err)
	}
	var cfg Blade
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse blade configuration %q: %w", path, err)
	}
	return &cfg, nil
}

// NetworkSpecs converts the declared networks into validated specs, in
// sorted key order so reconciliation order is stable across runs. The
// map key is the fallback network name.
func (b *Blade) NetworkSpecs() ([]bladenet.NetworkSpec, error) {
	keys := make([]string, 0, len(b.Networks))
	for key := range b.Networks {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	specs := make([]bladenet.NetworkSpec, 0, len(keys))
	for _, key := range keys {
		net := b.Networks[key]

		spec := bladenet.NetworkSpec{
			NetworkName: net.NetworkName,
			TunnelName:  net.TunnelName,
			BridgeName:  net.BridgeName,
			TunnelID:    net.TunnelID,
		}
		if spec.NetworkName == "" {
			spec.NetworkName = key
		}
		spec.Normalize()

		for _, raw := range net.EndpointIPs {
			ip, err := netip.ParseAddr(raw)
			if err != nil {
				return nil, &bladenet.ValidationError{
					Field:   "endpoint_ips",
					Message: fmt.Sprintf("network %q: invalid endpoint IP %q", key, raw),
				}
			}
			spec.EndpointIPs = append(spec.EndpointIPs, ip)
		}

		if err := spec.Validate(); err != nil {
			return nil, fmt.Errorf("network %q: %w", key, err)
		}
		specs = append(specs, spec)
	}
	return specs, nil
}
