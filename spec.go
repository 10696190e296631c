package bladenet

import (
	"fmt"
	"net/netip"
)

// MaxVNI is the largest VxLAN network identifier (24-bit field).
const MaxVNI = 1<<24 - 1

// NetworkSpec declares one overlay network to build on the blade.
// EndpointIPs lists the tunnel endpoint of every blade participating
// in the network, including this one; it is computed upstream from the
// fleet inventory and passed through verbatim.
type NetworkSpec struct {
	NetworkName string
	TunnelName  string
	BridgeName  string
	TunnelID    uint32
	EndpointIPs []netip.Addr
}

// Normalize fills the documented defaults: TunnelName falls back to
// NetworkName and BridgeName to "br-" + TunnelName.
func (s *NetworkSpec) Normalize() {
	if s.TunnelName == "" {
		s.TunnelName = s.NetworkName
	}
	if s.BridgeName == "" {
		s.BridgeName = "br-" + s.TunnelName
	}
}

// Validate checks a normalized spec. It does not consult blade state;
// conflicts with existing devices are caught during reconciliation.
func (s NetworkSpec) Validate() error {
	if s.NetworkName == "" {
		return &ValidationError{Field: "network_name", Message: "must not be empty"}
	}
	if s.TunnelName == "" {
		return &ValidationError{Field: "tunnel_name", Message: "must not be empty"}
	}
	if s.TunnelName == s.BridgeName {
		return &ValidationError{
			Field:   "bridge_name",
			Message: fmt.Sprintf("must differ from tunnel name %q", s.TunnelName),
		}
	}
	if s.TunnelID > MaxVNI {
		return &ValidationError{
			Field:   "tunnel_id",
			Message: fmt.Sprintf("%d exceeds the 24-bit VNI limit", s.TunnelID),
		}
	}
	for i, ip := range s.EndpointIPs {
		if !ip.IsValid() {
			return &ValidationError{
				Field:   "endpoint_ips",
				Message: fmt.Sprintf("entry %d is not a valid IP address", i),
			}
		}
	}
	return nil
}

// RemoteIPs returns the endpoint set minus the local address,
// duplicate-free and in the declared order. These are the peers that
// receive static flood entries on the tunnel device.
func (s NetworkSpec) RemoteIPs(local netip.Addr) []netip.Addr {
	seen := make(map[netip.Addr]struct{}, len(s.EndpointIPs))
	remotes := make([]netip.Addr, 0, len(s.EndpointIPs))
	for _, ip := range s.EndpointIPs {
		if ip == local {
			continue
		}
		if _, ok := seen[ip]; ok {
			continue
		}
		seen[ip] = struct{}{}
		remotes = append(remotes, ip)
	}
	return remotes
}
