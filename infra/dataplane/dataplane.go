// Package dataplane implements the overlay dataplane on the Linux
// kernel via netlink: vxlan and bridge device management plus the
// static forwarding-database mesh entries.
package dataplane

import "net"

// floodMAC is the all-zeroes broadcast/unknown-unicast placeholder.
// A forwarding entry keyed to it floods unknown-destination traffic to
// the entry's remote endpoint, which is how the static head-end
// replication mesh substitutes for underlay multicast.
var floodMAC = net.HardwareAddr{0x00, 0x00, 0x00, 0x00, 0x00, 0x00}
