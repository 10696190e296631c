package blade

import (
	"context"
	"errors"
	"io"
	"reflect"
	"strings"
	"testing"

	"bladenet/config"
	"bladenet/infra/cmdrun"
)

// fakeRunner records every command line, capturing stdin content at
// call time. failOn maps a command line to the error it should return.
type fakeRunner struct {
	calls  []string
	stdins map[string]string
	failOn map[string]error
}

func (f *fakeRunner) Run(_ context.Context, spec cmdrun.Command) error {
	line := spec.String()
	f.calls = append(f.calls, line)
	if spec.Stdin != nil {
		data, err := io.ReadAll(spec.Stdin)
		if err != nil {
			return err
		}
		if f.stdins == nil {
			f.stdins = make(map[string]string)
		}
		f.stdins[line] = string(data)
	}
	return f.failOn[line]
}

func TestPlanPackages(t *testing.T) {
	groups := map[string]config.PackageGroup{
		"hypervisor": {
			BladeClasses:    []string{"compute"},
			Packages:        []string{"qemu-kvm", "libvirt-daemon-system"},
			ServicesEnable:  []string{"libvirtd"},
			ServicesDisable: []string{"apparmor"},
		},
		"base": {
			PreconfigSettings: []string{"iptables-persistent iptables-persistent/autosave_v4 boolean true"},
			Packages:          []string{"bridge-utils"},
		},
		"ceph": {
			BladeClasses: []string{"storage"},
			Packages:     []string{"ceph-osd"},
		},
	}

	plan := PlanPackages(groups, "compute")

	// Groups flatten in sorted name order, so base before hypervisor.
	wantInstall := []string{"bridge-utils", "qemu-kvm", "libvirt-daemon-system"}
	if !reflect.DeepEqual(plan.Install, wantInstall) {
		t.Errorf("Install = %v, want %v", plan.Install, wantInstall)
	}
	if !reflect.DeepEqual(plan.Enable, []string{"libvirtd"}) {
		t.Errorf("Enable = %v", plan.Enable)
	}
	if !reflect.DeepEqual(plan.Disable, []string{"apparmor"}) {
		t.Errorf("Disable = %v", plan.Disable)
	}
	if len(plan.Preconfig) != 1 {
		t.Errorf("Preconfig = %v", plan.Preconfig)
	}

	if !PlanPackages(nil, "compute").Empty() {
		t.Error("empty group map should produce an empty plan")
	}
}

func TestInstallerSetup(t *testing.T) {
	runner := &fakeRunner{}
	inst := NewInstaller(runner)

	plan := PackagePlan{
		Preconfig: []string{"pkg pkg/setting boolean true"},
		Install:   []string{"qemu-kvm", "bridge-utils"},
		Disable:   []string{"apparmor"},
		Enable:    []string{"libvirtd"},
	}
	if err := inst.Setup(context.Background(), plan); err != nil {
		t.Fatalf("Setup() error = %v", err)
	}

	want := []string{
		"apt update",
		"apt upgrade -y",
		"apt install -y apt-utils apt",
		"debconf-set-selections",
		"apt install -y qemu-kvm bridge-utils",
		"systemctl disable --now apparmor",
		"systemctl enable --now libvirtd",
	}
	if !reflect.DeepEqual(runner.calls, want) {
		t.Errorf("calls = %v, want %v", runner.calls, want)
	}
	if got := runner.stdins["debconf-set-selections"]; got != "pkg pkg/setting boolean true\n" {
		t.Errorf("debconf stdin = %q", got)
	}
}

func TestInstallerSetupSkipsEmptySteps(t *testing.T) {
	runner := &fakeRunner{}
	inst := NewInstaller(runner)

	if err := inst.Setup(context.Background(), PackagePlan{}); err != nil {
		t.Fatalf("Setup() error = %v", err)
	}

	// Only the package manager refresh runs.
	want := []string{"apt update", "apt upgrade -y", "apt install -y apt-utils apt"}
	if !reflect.DeepEqual(runner.calls, want) {
		t.Errorf("calls = %v, want %v", runner.calls, want)
	}
}

func TestInstallerToleratesAptToolingFailure(t *testing.T) {
	runner := &fakeRunner{failOn: map[string]error{
		"apt install -y apt-utils apt": &cmdrun.ExitError{Cmd: "apt install -y apt-utils apt", Code: 100},
	}}
	inst := NewInstaller(runner)

	if err := inst.Setup(context.Background(), PackagePlan{Install: []string{"jq"}}); err != nil {
		t.Fatalf("Setup() error = %v, want tooling refresh failure ignored", err)
	}
	if got := runner.calls[len(runner.calls)-1]; got != "apt install -y jq" {
		t.Errorf("last call = %q, want the install to proceed", got)
	}
}

func TestInstallerStopsOnTimeout(t *testing.T) {
	timeoutErr := &cmdrun.TimeoutError{Cmd: "apt update"}
	runner := &fakeRunner{failOn: map[string]error{"apt update": timeoutErr}}
	inst := NewInstaller(runner)

	err := inst.Setup(context.Background(), PackagePlan{Install: []string{"jq"}})
	if !errors.Is(err, timeoutErr) {
		t.Fatalf("error = %v, want the timeout propagated", err)
	}
	if len(runner.calls) != 1 {
		t.Errorf("calls = %v, want setup aborted after first failure", runner.calls)
	}
}

func TestInstallerStopsOnInstallFailure(t *testing.T) {
	runner := &fakeRunner{failOn: map[string]error{
		"apt install -y jq": &cmdrun.ExitError{Cmd: "apt install -y jq", Code: 100},
	}}
	inst := NewInstaller(runner)

	plan := PackagePlan{Install: []string{"jq"}, Enable: []string{"libvirtd"}}
	err := inst.Setup(context.Background(), plan)
	var exitErr *cmdrun.ExitError
	if !errors.As(err, &exitErr) {
		t.Fatalf("error = %v, want *cmdrun.ExitError", err)
	}
	for _, call := range runner.calls {
		if strings.HasPrefix(call, "systemctl") {
			t.Errorf("service adjustment %q ran after a failed install", call)
		}
	}
}
