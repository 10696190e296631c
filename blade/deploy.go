// Package blade orchestrates a full deployment pass on one blade:
// clock preflight, package setup, and overlay network reconciliation.
// It is the Go counterpart of the script the platform layer ships to
// each blade.
package blade

import (
	"context"
	"fmt"
	"log/slog"

	"bladenet/config"
	"bladenet/infra/journal"
	"bladenet/overlay"
)

// stockNetwork is the virtual network shipped with a stock libvirt
// install. It squats on its own bridge and NAT rules, so it is removed
// before the declared overlays are built.
const stockNetwork = "default"

// Deployment wires the capabilities for one blade deployment pass.
// Journal and Clock are optional.
type Deployment struct {
	Config    *config.Blade
	Runner    Runner
	Dataplane overlay.Dataplane
	Registry  overlay.Registry
	Journal   *journal.Journal
	Clock     ClockSource

	// NetworksOnly skips package setup and goes straight to network
	// reconciliation.
	NetworksOnly bool

	installerOpts []InstallerOption
}

// WithInstallerOptions forwards options to the package installer.
func (d *Deployment) WithInstallerOptions(opts ...InstallerOption) {
	d.installerOpts = append(d.installerOpts, opts...)
}

// Run executes the deployment pass. The first failure aborts the pass;
// networks already rebuilt stay in place.
func (d *Deployment) Run(ctx context.Context) error {
	if d.Clock != nil {
		checkClock(ctx, d.Clock)
	}

	if !d.NetworksOnly {
		plan := PlanPackages(d.Config.Packages, d.Config.BladeClass)
		if plan.Empty() {
			slog.Debug("No package work for this blade class.", "class", d.Config.BladeClass)
		} else {
			installer := NewInstaller(d.Runner, d.installerOpts...)
			if err := installer.Setup(ctx, plan); err != nil {
				return fmt.Errorf("set up packages: %w", err)
			}
		}
	}

	specs, err := d.Config.NetworkSpecs()
	if err != nil {
		return err
	}

	rec := overlay.New(d.Dataplane, d.Registry)

	if err := rec.RemoveNetwork(ctx, stockNetwork); err != nil {
		return err
	}

	passID := d.beginPass()
	for _, spec := range specs {
		if err := rec.ApplyNetwork(ctx, spec); err != nil {
			d.record(passID, spec.NetworkName, journal.OutcomeFailed, err.Error())
			return err
		}
		d.record(passID, spec.NetworkName, journal.OutcomeApplied, "")
	}
	return nil
}

func (d *Deployment) beginPass() int64 {
	if d.Journal == nil {
		return 0
	}
	id, err := d.Journal.BeginPass()
	if err != nil {
		slog.Warn("Journal unavailable for this pass.", "err", err)
		d.Journal = nil
		return 0
	}
	return id
}

func (d *Deployment) record(passID int64, network, outcome, detail string) {
	if d.Journal == nil {
		return
	}
	if err := d.Journal.Record(passID, network, outcome, detail); err != nil {
		slog.Warn("Failed to journal network result.", "network", network, "err", err)
	}
}
