package overlay

import (
	"errors"
	"net/netip"
	"testing"

	"bladenet"
)

func snapshotWith(records ...bladenet.InterfaceRecord) *Snapshot {
	snap := &Snapshot{Interfaces: make(map[string]bladenet.InterfaceRecord)}
	for _, rec := range records {
		snap.Interfaces[rec.Name] = rec
	}
	return snap
}

func addrs(ips ...string) []netip.Addr {
	out := make([]netip.Addr, len(ips))
	for i, ip := range ips {
		out[i] = netip.MustParseAddr(ip)
	}
	return out
}

func TestResolveUnderlay(t *testing.T) {
	t.Run("single match", func(t *testing.T) {
		snap := snapshotWith(
			bladenet.InterfaceRecord{Name: "eth0", LocalAddrs: addrs("192.168.1.5")},
			bladenet.InterfaceRecord{Name: "eth1", LocalAddrs: addrs("10.0.0.2")},
		)

		got, err := snap.ResolveUnderlay(addrs("10.0.0.1", "10.0.0.2", "10.0.0.3"))
		if err != nil {
			t.Fatalf("ResolveUnderlay() error = %v", err)
		}
		want := Underlay{Device: "eth1", Local: netip.MustParseAddr("10.0.0.2")}
		if got != want {
			t.Errorf("ResolveUnderlay() = %v, want %v", got, want)
		}
	})

	t.Run("no match", func(t *testing.T) {
		snap := snapshotWith(
			bladenet.InterfaceRecord{Name: "eth0", LocalAddrs: addrs("192.168.1.5")},
		)

		_, err := snap.ResolveUnderlay(addrs("10.0.0.1", "10.0.0.2"))
		var noUnderlay *NoUnderlayError
		if !errors.As(err, &noUnderlay) {
			t.Fatalf("error = %v, want *NoUnderlayError", err)
		}
	})

	t.Run("two matching devices is ambiguous", func(t *testing.T) {
		snap := snapshotWith(
			bladenet.InterfaceRecord{Name: "eth0", LocalAddrs: addrs("10.0.0.2")},
			bladenet.InterfaceRecord{Name: "eth1", LocalAddrs: addrs("10.0.0.3")},
		)

		_, err := snap.ResolveUnderlay(addrs("10.0.0.1", "10.0.0.2", "10.0.0.3"))
		var ambiguous *AmbiguousUnderlayError
		if !errors.As(err, &ambiguous) {
			t.Fatalf("error = %v, want *AmbiguousUnderlayError", err)
		}
		if len(ambiguous.Matches) != 2 {
			t.Errorf("matches = %v, want 2 entries", ambiguous.Matches)
		}
	})

	t.Run("two matching addresses on one device is ambiguous", func(t *testing.T) {
		snap := snapshotWith(
			bladenet.InterfaceRecord{Name: "eth0", LocalAddrs: addrs("10.0.0.2", "10.0.0.3")},
		)

		_, err := snap.ResolveUnderlay(addrs("10.0.0.2", "10.0.0.3"))
		var ambiguous *AmbiguousUnderlayError
		if !errors.As(err, &ambiguous) {
			t.Fatalf("error = %v, want *AmbiguousUnderlayError", err)
		}
	})

	t.Run("duplicate address listings are not ambiguous", func(t *testing.T) {
		// The same prefix can show up twice on a device (different
		// masks); that is still a single underlay.
		snap := snapshotWith(
			bladenet.InterfaceRecord{Name: "eth0", LocalAddrs: addrs("10.0.0.2", "10.0.0.2")},
		)

		got, err := snap.ResolveUnderlay(addrs("10.0.0.1", "10.0.0.2"))
		if err != nil {
			t.Fatalf("ResolveUnderlay() error = %v", err)
		}
		if got.Device != "eth0" {
			t.Errorf("device = %q, want %q", got.Device, "eth0")
		}
	})
}
