// Package bladenet holds the shared value types for provisioning static
// VxLAN overlay networks on a virtual blade: the declarative network
// specs supplied by upstream configuration and the observed state of
// the blade's network devices.
package bladenet

import "net/netip"

// LinkKind classifies a network device by its link type.
type LinkKind uint8

const (
	LinkOther LinkKind = iota
	LinkVXLAN
	LinkBridge
)

func (k LinkKind) String() string {
	switch k {
	case LinkVXLAN:
		return "vxlan"
	case LinkBridge:
		return "bridge"
	default:
		return "other"
	}
}

// InterfaceRecord is one network device as observed on the blade.
// Records are captured once per reconciliation pass; ForwardingDsts is
// only populated for vxlan devices.
type InterfaceRecord struct {
	Name           string
	Kind           LinkKind
	LocalAddrs     []netip.Addr
	ForwardingDsts []netip.Addr
}

// HasAddr reports whether addr is bound to this interface.
func (r InterfaceRecord) HasAddr(addr netip.Addr) bool {
	for _, a := range r.LocalAddrs {
		if a == addr {
			return true
		}
	}
	return false
}

// ValidationError indicates an invalid field in a blade configuration.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return e.Field + ": " + e.Message
	}
	return e.Message
}
