package overlay

import (
	"context"

	"bladenet"
)

// Snapshot is the blade's network state as of the start of a
// reconciliation pass: every device plus the running virtual network
// names. The reconciler keeps it consistent with its own mutations so
// later networks in the same pass see the effect of earlier ones, but
// never re-queries mid-pass.
type Snapshot struct {
	Interfaces map[string]bladenet.InterfaceRecord
	Networks   []string
}

// TakeSnapshot captures the current device set and registry contents.
func TakeSnapshot(ctx context.Context, dp Dataplane, reg Registry) (*Snapshot, error) {
	ifaces, err := dp.Interfaces(ctx)
	if err != nil {
		return nil, &DiscoveryError{Op: "interfaces", Err: err}
	}
	nets, err := reg.Networks(ctx)
	if err != nil {
		return nil, &DiscoveryError{Op: "virtual networks", Err: err}
	}
	return &Snapshot{Interfaces: ifaces, Networks: nets}, nil
}

// CheckConflict verifies that the configured tunnel and bridge names
// are either free or held by a device of the expected kind. It must
// run before any destructive step so an unrelated device sharing a
// name is never silently torn down.
func (s *Snapshot) CheckConflict(tunnelName, bridgeName string) error {
	if rec, ok := s.Interfaces[tunnelName]; ok && rec.Kind != bladenet.LinkVXLAN {
		return &NameConflictError{Name: tunnelName, Have: rec.Kind, Want: bladenet.LinkVXLAN}
	}
	if rec, ok := s.Interfaces[bridgeName]; ok && rec.Kind != bladenet.LinkBridge {
		return &NameConflictError{Name: bridgeName, Have: rec.Kind, Want: bladenet.LinkBridge}
	}
	return nil
}

// HasInterface reports whether a device of the given name was present.
func (s *Snapshot) HasInterface(name string) bool {
	_, ok := s.Interfaces[name]
	return ok
}

// HasNetwork reports whether a virtual network of the given name is
// registered and running.
func (s *Snapshot) HasNetwork(name string) bool {
	for _, n := range s.Networks {
		if n == name {
			return true
		}
	}
	return false
}

func (s *Snapshot) dropInterface(name string) {
	delete(s.Interfaces, name)
}

func (s *Snapshot) addNetwork(name string) {
	if !s.HasNetwork(name) {
		s.Networks = append(s.Networks, name)
	}
}

func (s *Snapshot) dropNetwork(name string) {
	for i, n := range s.Networks {
		if n == name {
			s.Networks = append(s.Networks[:i], s.Networks[i+1:]...)
			return
		}
	}
}
