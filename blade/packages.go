package blade

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"bladenet/config"
	"bladenet/infra/cmdrun"
)

// PackagePlan is the flattened package work for one blade class:
// debconf preconfiguration lines, packages to install, and services to
// disable or enable afterwards.
type PackagePlan struct {
	Preconfig []string
	Install   []string
	Disable   []string
	Enable    []string
}

// Empty reports whether the plan has no work at all.
func (p PackagePlan) Empty() bool {
	return len(p.Preconfig) == 0 && len(p.Install) == 0 &&
		len(p.Disable) == 0 && len(p.Enable) == 0
}

// PlanPackages flattens the configured package groups that apply to
// the blade class, in sorted group order for stable execution.
func PlanPackages(groups map[string]config.PackageGroup, bladeClass string) PackagePlan {
	names := make([]string, 0, len(groups))
	for name := range groups {
		names = append(names, name)
	}
	sort.Strings(names)

	var plan PackagePlan
	for _, name := range names {
		group := groups[name]
		if !group.AppliesTo(bladeClass) {
			continue
		}
		plan.Preconfig = append(plan.Preconfig, group.PreconfigSettings...)
		plan.Install = append(plan.Install, group.Packages...)
		plan.Disable = append(plan.Disable, group.ServicesDisable...)
		plan.Enable = append(plan.Enable, group.ServicesEnable...)
	}
	return plan
}

// Installer applies a PackagePlan with apt, debconf and systemctl.
type Installer struct {
	runner  Runner
	timeout time.Duration
}

// InstallerOption configures an Installer.
type InstallerOption func(*Installer)

// WithCommandTimeout bounds each package command. Zero means no bound.
func WithCommandTimeout(d time.Duration) InstallerOption {
	return func(i *Installer) { i.timeout = d }
}

// NewInstaller creates a package installer over the given runner.
func NewInstaller(runner Runner, opts ...InstallerOption) *Installer {
	inst := &Installer{runner: runner}
	for _, opt := range opts {
		opt(inst)
	}
	return inst
}

// Setup brings the package manager up to date and applies the plan:
// preconfigure, install, disable services, enable services.
func (i *Installer) Setup(ctx context.Context, plan PackagePlan) error {
	if err := i.prepare(ctx); err != nil {
		return err
	}
	if err := i.preconfigure(ctx, plan.Preconfig); err != nil {
		return err
	}
	if len(plan.Install) > 0 {
		slog.Info("Installing packages.", "count", len(plan.Install))
		args := append([]string{"install", "-y"}, plan.Install...)
		if err := i.apt(ctx, args...); err != nil {
			return err
		}
	}
	for _, service := range plan.Disable {
		if err := i.systemctl(ctx, "disable", service); err != nil {
			return err
		}
	}
	for _, service := range plan.Enable {
		if err := i.systemctl(ctx, "enable", service); err != nil {
			return err
		}
	}
	return nil
}

// prepare refreshes apt and upgrades the base system so package
// installs see current indexes.
func (i *Installer) prepare(ctx context.Context) error {
	if err := i.apt(ctx, "update"); err != nil {
		return err
	}
	if err := i.apt(ctx, "upgrade", "-y"); err != nil {
		return err
	}
	// Upgrading apt itself has been seen to fail spuriously on fresh
	// images; ignore a nonzero exit here.
	if err := i.apt(ctx, "install", "-y", "apt-utils", "apt"); err != nil {
		var exitErr *cmdrun.ExitError
		if !errors.As(err, &exitErr) {
			return err
		}
		slog.Warn("Refreshing apt tooling failed, continuing.", "err", err)
	}
	return nil
}

// preconfigure feeds debconf selections on stdin so installs run
// non-interactively.
func (i *Installer) preconfigure(ctx context.Context, settings []string) error {
	if len(settings) == 0 {
		return nil
	}
	stdin := strings.NewReader(strings.Join(settings, "\n") + "\n")
	cmd := cmdrun.Command{Name: "debconf-set-selections", Stdin: stdin, Timeout: i.timeout}
	if err := i.runner.Run(ctx, cmd); err != nil {
		return fmt.Errorf("preconfigure packages: %w", err)
	}
	return nil
}

func (i *Installer) apt(ctx context.Context, args ...string) error {
	return i.runner.Run(ctx, cmdrun.Command{Name: "apt", Args: args, Timeout: i.timeout})
}

func (i *Installer) systemctl(ctx context.Context, verb, service string) error {
	cmd := cmdrun.Command{Name: "systemctl", Args: []string{verb, "--now", service}, Timeout: i.timeout}
	if err := i.runner.Run(ctx, cmd); err != nil {
		return fmt.Errorf("%s service %q: %w", verb, service, err)
	}
	return nil
}
