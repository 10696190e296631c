package overlay

import (
	"context"
	"fmt"
	"log/slog"

	"bladenet"
)

// Reconciler rebuilds the declared overlay networks on the blade. Each
// network is a full destructive rebuild: stale devices and
// registrations are torn down before new state is built, which keeps
// every pass idempotent at the cost of a brief connectivity gap.
//
// A Reconciler captures its state snapshot lazily on first use and is
// meant to live for a single pass; construct a fresh one per run.
type Reconciler struct {
	dp   Dataplane
	reg  Registry
	snap *Snapshot
}

// New creates a reconciler over the given capabilities.
func New(dp Dataplane, reg Registry) *Reconciler {
	return &Reconciler{dp: dp, reg: reg}
}

// Apply reconciles the declared networks in the order supplied. It
// stops at the first network that fails and does not roll back
// networks already rebuilt in the same pass.
func (r *Reconciler) Apply(ctx context.Context, specs []bladenet.NetworkSpec) error {
	for _, spec := range specs {
		if err := r.ApplyNetwork(ctx, spec); err != nil {
			return err
		}
	}
	return nil
}

// ApplyNetwork rebuilds a single overlay network: conflict check,
// teardown of same-named devices, underlay resolution, tunnel and
// bridge assembly, static mesh programming, and re-registration with
// the virtualization manager, in that fixed order, so conflicts are
// caught before anything destructive happens.
func (r *Reconciler) ApplyNetwork(ctx context.Context, spec bladenet.NetworkSpec) error {
	snap, err := r.snapshot(ctx)
	if err != nil {
		return err
	}

	if err := snap.CheckConflict(spec.TunnelName, spec.BridgeName); err != nil {
		return err
	}

	for _, name := range []string{spec.TunnelName, spec.BridgeName} {
		if !snap.HasInterface(name) {
			continue
		}
		if err := r.dp.DeleteLink(ctx, name); err != nil {
			return fmt.Errorf("remove stale link %q: %w", name, err)
		}
		snap.dropInterface(name)
		slog.Info("Removed stale link.", "name", name)
	}

	underlay, err := snap.ResolveUnderlay(spec.EndpointIPs)
	if err != nil {
		return err
	}
	slog.Debug("Resolved underlay.", "network", spec.NetworkName, "device", underlay.Device, "local", underlay.Local)

	if err := r.buildTunnel(ctx, spec, underlay.Device); err != nil {
		return err
	}

	for _, dst := range spec.RemoteIPs(underlay.Local) {
		if err := r.dp.AppendFloodEntry(ctx, spec.TunnelName, dst); err != nil {
			return &MeshProgramError{Tunnel: spec.TunnelName, Dst: dst, Err: err}
		}
	}

	if err := r.RemoveNetwork(ctx, spec.NetworkName); err != nil {
		return err
	}
	if err := r.registerNetwork(ctx, spec.NetworkName, spec.BridgeName); err != nil {
		return err
	}

	slog.Info("Overlay network reconciled.",
		"network", spec.NetworkName,
		"tunnel", spec.TunnelName,
		"bridge", spec.BridgeName,
		"vni", spec.TunnelID,
		"peers", len(spec.RemoteIPs(underlay.Local)),
	)
	return nil
}

// RemoveNetwork deregisters a virtual network: stop, then undefine.
// Removing a network the registry does not know is a no-op.
func (r *Reconciler) RemoveNetwork(ctx context.Context, name string) error {
	snap, err := r.snapshot(ctx)
	if err != nil {
		return err
	}
	if !snap.HasNetwork(name) {
		return nil
	}
	if err := r.reg.Stop(ctx, name); err != nil {
		return &RegistrationError{Network: name, Op: "stop", Err: err}
	}
	if err := r.reg.Undefine(ctx, name); err != nil {
		return &RegistrationError{Network: name, Op: "undefine", Err: err}
	}
	snap.dropNetwork(name)
	slog.Info("Removed virtual network.", "network", name)
	return nil
}

// buildTunnel creates the vxlan device on the underlay, the bridge,
// and masters the tunnel under the bridge. Callers must have removed
// any same-named devices first; these are unconditional creates.
func (r *Reconciler) buildTunnel(ctx context.Context, spec bladenet.NetworkSpec, device string) error {
	if err := r.dp.CreateVXLAN(ctx, spec.TunnelName, spec.TunnelID, device); err != nil {
		return &LinkCreateError{Name: spec.TunnelName, Err: err}
	}
	if err := r.dp.CreateBridge(ctx, spec.BridgeName); err != nil {
		return &LinkCreateError{Name: spec.BridgeName, Err: err}
	}
	if err := r.dp.SetMaster(ctx, spec.TunnelName, spec.BridgeName); err != nil {
		return &LinkCreateError{Name: spec.TunnelName, Err: err}
	}
	return nil
}

// registerNetwork walks the registry through define, start, autostart.
func (r *Reconciler) registerNetwork(ctx context.Context, name, bridge string) error {
	if err := r.reg.Define(ctx, name, bridge); err != nil {
		return &RegistrationError{Network: name, Op: "define", Err: err}
	}
	if err := r.reg.Start(ctx, name); err != nil {
		return &RegistrationError{Network: name, Op: "start", Err: err}
	}
	if err := r.reg.SetAutostart(ctx, name); err != nil {
		return &RegistrationError{Network: name, Op: "autostart", Err: err}
	}
	r.snap.addNetwork(name)
	return nil
}

func (r *Reconciler) snapshot(ctx context.Context) (*Snapshot, error) {
	if r.snap != nil {
		return r.snap, nil
	}
	snap, err := TakeSnapshot(ctx, r.dp, r.reg)
	if err != nil {
		return nil, err
	}
	r.snap = snap
	return snap, nil
}
