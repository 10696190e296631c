//go:build linux

package dataplane

import (
	"context"
	"fmt"
	"net"
	"net/netip"

	"bladenet"

	"github.com/vishvananda/netlink"
	"golang.org/x/sys/unix"
)

// Kernel talks to the running kernel through netlink.
// Implements overlay.Dataplane.
type Kernel struct{}

// NewKernel creates the netlink-backed dataplane.
func NewKernel() *Kernel {
	return &Kernel{}
}

// Interfaces returns every link on the blade with its addresses, and
// for vxlan links the forwarding-database destinations. Nothing is
// filtered out; callers decide what is relevant.
func (k *Kernel) Interfaces(_ context.Context) (map[string]bladenet.InterfaceRecord, error) {
	links, err := netlink.LinkList()
	if err != nil {
		return nil, fmt.Errorf("list links: %w", err)
	}

	recs := make(map[string]bladenet.InterfaceRecord, len(links))
	for _, link := range links {
		attrs := link.Attrs()
		rec := bladenet.InterfaceRecord{
			Name: attrs.Name,
			Kind: kindOf(link),
		}

		addrs, err := netlink.AddrList(link, netlink.FAMILY_ALL)
		if err != nil {
			return nil, fmt.Errorf("list addresses on %q: %w", attrs.Name, err)
		}
		for _, addr := range addrs {
			if ip, ok := netip.AddrFromSlice(addr.IP); ok {
				rec.LocalAddrs = append(rec.LocalAddrs, ip.Unmap())
			}
		}

		if rec.Kind == bladenet.LinkVXLAN {
			neighs, err := netlink.NeighList(attrs.Index, unix.AF_BRIDGE)
			if err != nil {
				return nil, fmt.Errorf("list fdb entries on %q: %w", attrs.Name, err)
			}
			for _, neigh := range neighs {
				if len(neigh.IP) == 0 {
					continue
				}
				if ip, ok := netip.AddrFromSlice(neigh.IP); ok {
					rec.ForwardingDsts = append(rec.ForwardingDsts, ip.Unmap())
				}
			}
		}

		recs[attrs.Name] = rec
	}
	return recs, nil
}

// DeleteLink removes a device; an already absent device is not an
// error.
func (k *Kernel) DeleteLink(_ context.Context, name string) error {
	link, err := netlink.LinkByName(name)
	if err != nil {
		if _, ok := err.(netlink.LinkNotFoundError); ok {
			return nil
		}
		return fmt.Errorf("find link %q: %w", name, err)
	}
	if err := netlink.LinkDel(link); err != nil {
		return fmt.Errorf("delete link %q: %w", name, err)
	}
	return nil
}

// CreateVXLAN creates a vxlan device bound to the underlay device.
// The destination port is left at the kernel default.
func (k *Kernel) CreateVXLAN(_ context.Context, name string, vni uint32, device string) error {
	parent, err := netlink.LinkByName(device)
	if err != nil {
		return fmt.Errorf("find underlay device %q: %w", device, err)
	}
	vxlan := &netlink.Vxlan{
		LinkAttrs:    netlink.LinkAttrs{Name: name},
		VxlanId:      int(vni),
		VtepDevIndex: parent.Attrs().Index,
	}
	if err := netlink.LinkAdd(vxlan); err != nil {
		return fmt.Errorf("add vxlan link %q: %w", name, err)
	}
	return nil
}

// CreateBridge creates a bridge device.
func (k *Kernel) CreateBridge(_ context.Context, name string) error {
	bridge := &netlink.Bridge{LinkAttrs: netlink.LinkAttrs{Name: name}}
	if err := netlink.LinkAdd(bridge); err != nil {
		return fmt.Errorf("add bridge link %q: %w", name, err)
	}
	return nil
}

// SetMaster enslaves a device under a bridge.
func (k *Kernel) SetMaster(_ context.Context, name, bridge string) error {
	link, err := netlink.LinkByName(name)
	if err != nil {
		return fmt.Errorf("find link %q: %w", name, err)
	}
	master, err := netlink.LinkByName(bridge)
	if err != nil {
		return fmt.Errorf("find bridge %q: %w", bridge, err)
	}
	if err := netlink.LinkSetMaster(link, master); err != nil {
		return fmt.Errorf("set %q master to %q: %w", name, bridge, err)
	}
	return nil
}

// AppendFloodEntry appends a permanent fdb entry for the all-zeroes
// MAC on the tunnel device, pointing at one remote tunnel endpoint.
// Equivalent to `bridge fdb append to 00:00:00:00:00:00 dst <ip> dev
// <tunnel>`.
func (k *Kernel) AppendFloodEntry(_ context.Context, tunnel string, dst netip.Addr) error {
	link, err := netlink.LinkByName(tunnel)
	if err != nil {
		return fmt.Errorf("find tunnel %q: %w", tunnel, err)
	}
	neigh := &netlink.Neigh{
		LinkIndex:    link.Attrs().Index,
		Family:       unix.AF_BRIDGE,
		State:        netlink.NUD_PERMANENT,
		Flags:        netlink.NTF_SELF,
		IP:           net.IP(dst.AsSlice()),
		HardwareAddr: floodMAC,
	}
	if err := netlink.NeighAppend(neigh); err != nil {
		return fmt.Errorf("append fdb entry %s on %q: %w", dst, tunnel, err)
	}
	return nil
}

func kindOf(link netlink.Link) bladenet.LinkKind {
	switch link.(type) {
	case *netlink.Vxlan:
		return bladenet.LinkVXLAN
	case *netlink.Bridge:
		return bladenet.LinkBridge
	default:
		return bladenet.LinkOther
	}
}
