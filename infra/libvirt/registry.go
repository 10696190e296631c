// Package libvirt implements the virtual network registry on top of
// the virsh command-line tool.
package libvirt

import (
	"context"
	"encoding/xml"
	"fmt"
	"os"
	"strings"
	"time"

	"bladenet/infra/cmdrun"
)

// Runner executes external commands with bounded-wait semantics.
// Satisfied by cmdrun.Exec; tests substitute a fake.
type Runner interface {
	Run(ctx context.Context, spec cmdrun.Command) error
	Output(ctx context.Context, spec cmdrun.Command) ([]byte, error)
}

// Registry drives libvirt's network registry through virsh.
// Implements overlay.Registry.
type Registry struct {
	runner  Runner
	binary  string
	timeout time.Duration
}

// Option configures a Registry.
type Option func(*Registry)

// WithBinary sets the path to the virsh binary. Defaults to "virsh"
// (found via PATH).
func WithBinary(path string) Option {
	return func(r *Registry) { r.binary = path }
}

// WithTimeout bounds each virsh invocation. Zero means no bound.
func WithTimeout(d time.Duration) Option {
	return func(r *Registry) { r.timeout = d }
}

// New creates a virsh-backed registry.
func New(runner Runner, opts ...Option) *Registry {
	r := &Registry{runner: runner, binary: "virsh"}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Networks lists the currently running virtual network names.
func (r *Registry) Networks(ctx context.Context) ([]string, error) {
	out, err := r.runner.Output(ctx, r.virsh("net-list", "--name"))
	if err != nil {
		return nil, fmt.Errorf("list virtual networks: %w", err)
	}
	var names []string
	for _, line := range strings.Split(string(out), "\n") {
		if name := strings.TrimSpace(line); name != "" {
			names = append(names, name)
		}
	}
	return names, nil
}

// networkDesc is the libvirt network XML document: a bridged-forward
// network bound onto an existing bridge device.
type networkDesc struct {
	XMLName xml.Name `xml:"network"`
	Name    string   `xml:"name"`
	Forward struct {
		Mode string `xml:"mode,attr"`
	} `xml:"forward"`
	Bridge struct {
		Name string `xml:"name,attr"`
	} `xml:"bridge"`
}

// Define registers a network bound to the bridge. virsh only accepts a
// definition file, so the document goes through a temp file.
func (r *Registry) Define(ctx context.Context, name, bridge string) error {
	desc := networkDesc{Name: name}
	desc.Forward.Mode = "bridge"
	desc.Bridge.Name = bridge

	data, err := xml.MarshalIndent(desc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal network %q definition: %w", name, err)
	}

	tmp, err := os.CreateTemp("", "bladenet-net-*.xml")
	if err != nil {
		return fmt.Errorf("create network definition file: %w", err)
	}
	defer func() {
		_ = os.Remove(tmp.Name())
	}()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write network definition file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write network definition file: %w", err)
	}

	return r.runner.Run(ctx, r.virsh("net-define", tmp.Name()))
}

// Start activates a defined network.
func (r *Registry) Start(ctx context.Context, name string) error {
	return r.runner.Run(ctx, r.virsh("net-start", name))
}

// SetAutostart marks a network for automatic start on host boot.
func (r *Registry) SetAutostart(ctx context.Context, name string) error {
	return r.runner.Run(ctx, r.virsh("net-autostart", name))
}

// Stop deactivates a running network.
func (r *Registry) Stop(ctx context.Context, name string) error {
	return r.runner.Run(ctx, r.virsh("net-destroy", name))
}

// Undefine removes a network definition.
func (r *Registry) Undefine(ctx context.Context, name string) error {
	return r.runner.Run(ctx, r.virsh("net-undefine", name))
}

func (r *Registry) virsh(args ...string) cmdrun.Command {
	return cmdrun.Command{Name: r.binary, Args: args, Timeout: r.timeout}
}
