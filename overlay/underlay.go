package overlay

import (
	"fmt"
	"net/netip"
	"sort"
)

// Underlay is the blade's point of attachment to the physical network
// for one overlay: the device carrying the tunnel endpoint address and
// that address itself.
type Underlay struct {
	Device string
	Local  netip.Addr
}

func (u Underlay) String() string {
	return fmt.Sprintf("%s/%s", u.Device, u.Local)
}

// ResolveUnderlay scans local addresses across all interfaces, in
// sorted device-name order, for a member of the endpoint set. Exactly
// one device is expected to match; zero matches fail with
// NoUnderlayError and two or more distinct matches fail with
// AmbiguousUnderlayError rather than picking one arbitrarily.
func (s *Snapshot) ResolveUnderlay(endpoints []netip.Addr) (Underlay, error) {
	members := make(map[netip.Addr]struct{}, len(endpoints))
	for _, ip := range endpoints {
		members[ip] = struct{}{}
	}

	names := make([]string, 0, len(s.Interfaces))
	for name := range s.Interfaces {
		names = append(names, name)
	}
	sort.Strings(names)

	var matches []Underlay
	for _, name := range names {
		for _, addr := range s.Interfaces[name].LocalAddrs {
			if _, ok := members[addr]; !ok {
				continue
			}
			m := Underlay{Device: name, Local: addr}
			if len(matches) == 0 || matches[len(matches)-1] != m {
				matches = append(matches, m)
			}
		}
	}

	switch len(matches) {
	case 0:
		return Underlay{}, &NoUnderlayError{Endpoints: endpoints}
	case 1:
		return matches[0], nil
	default:
		return Underlay{}, &AmbiguousUnderlayError{Matches: matches}
	}
}
