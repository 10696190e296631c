package overlay

import (
	"context"
	"net/netip"

	"bladenet"
)

// Dataplane mutates and inspects the blade's kernel network devices.
// In production this is the netlink implementation in infra/dataplane;
// tests substitute a fake and assert exact call sequences.
type Dataplane interface {
	// Interfaces returns every network device on the blade keyed by
	// name, with forwarding destinations folded in for vxlan devices.
	Interfaces(ctx context.Context) (map[string]bladenet.InterfaceRecord, error)

	// DeleteLink removes a device. Deleting an absent device is not an
	// error.
	DeleteLink(ctx context.Context, name string) error

	// CreateVXLAN creates a vxlan device bound to the named underlay
	// device, with the kernel-default destination port. It is an
	// unconditional create, not an upsert.
	CreateVXLAN(ctx context.Context, name string, vni uint32, device string) error

	// CreateBridge creates a bridge device.
	CreateBridge(ctx context.Context, name string) error

	// SetMaster enslaves a device under a bridge.
	SetMaster(ctx context.Context, name, bridge string) error

	// AppendFloodEntry appends a static forwarding-database entry for
	// the all-zeroes MAC on the tunnel device, pointing at one remote
	// endpoint.
	AppendFloodEntry(ctx context.Context, tunnel string, dst netip.Addr) error
}

// Registry is the virtualization manager's network registry. In
// production this is virsh, driven through the command runner.
type Registry interface {
	// Networks lists the currently running virtual network names.
	Networks(ctx context.Context) ([]string, error)

	// Define registers a new network bound to the bridge in
	// bridged-forward mode. The network starts out stopped.
	Define(ctx context.Context, name, bridge string) error

	// Start activates a defined network.
	Start(ctx context.Context, name string) error

	// SetAutostart marks a network for automatic start on host boot.
	SetAutostart(ctx context.Context, name string) error

	// Stop deactivates a running network, keeping its definition.
	Stop(ctx context.Context, name string) error

	// Undefine removes a stopped network's definition.
	Undefine(ctx context.Context, name string) error
}
