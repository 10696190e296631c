package overlay

import (
	"fmt"
	"net/netip"

	"bladenet"
)

// DiscoveryError indicates the blade's network state could not be
// captured: the query tooling is unavailable or returned malformed
// output.
type DiscoveryError struct {
	Op  string
	Err error
}

func (e *DiscoveryError) Error() string {
	return fmt.Sprintf("discover %s: %v", e.Op, e.Err)
}

func (e *DiscoveryError) Unwrap() error { return e.Err }

// NameConflictError indicates a configured tunnel or bridge name is
// already taken by an existing device of a different kind. The
// reconciler refuses to hijack such a device.
type NameConflictError struct {
	Name string
	Have bladenet.LinkKind
	Want bladenet.LinkKind
}

func (e *NameConflictError) Error() string {
	return fmt.Sprintf(
		"interface %q already exists as %s, refusing to replace it with a %s device",
		e.Name, e.Have, e.Want,
	)
}

// NoUnderlayError indicates no local address matches any of a
// network's endpoint IPs: the endpoint list is misconfigured or
// incomplete relative to the blade's actual addressing.
type NoUnderlayError struct {
	Endpoints []netip.Addr
}

func (e *NoUnderlayError) Error() string {
	return fmt.Sprintf(
		"no network device has an address matching any endpoint IP in %v",
		e.Endpoints,
	)
}

// AmbiguousUnderlayError indicates more than one local device carries
// an address in the endpoint set. The reconciler fails rather than
// picking one by enumeration order.
type AmbiguousUnderlayError struct {
	Matches []Underlay
}

func (e *AmbiguousUnderlayError) Error() string {
	return fmt.Sprintf(
		"multiple network devices match the endpoint IP set: %v",
		e.Matches,
	)
}

// LinkCreateError indicates the tunnel or bridge device could not be
// created or assembled.
type LinkCreateError struct {
	Name string
	Err  error
}

func (e *LinkCreateError) Error() string {
	return fmt.Sprintf("create link %q: %v", e.Name, e.Err)
}

func (e *LinkCreateError) Unwrap() error { return e.Err }

// MeshProgramError indicates a static forwarding entry could not be
// added. Entries programmed before the failure are left in place.
type MeshProgramError struct {
	Tunnel string
	Dst    netip.Addr
	Err    error
}

func (e *MeshProgramError) Error() string {
	return fmt.Sprintf("program mesh entry %s on %q: %v", e.Dst, e.Tunnel, e.Err)
}

func (e *MeshProgramError) Unwrap() error { return e.Err }

// RegistrationError indicates a virtual network registry operation
// failed.
type RegistrationError struct {
	Network string
	Op      string
	Err     error
}

func (e *RegistrationError) Error() string {
	return fmt.Sprintf("%s virtual network %q: %v", e.Op, e.Network, e.Err)
}

func (e *RegistrationError) Unwrap() error { return e.Err }
