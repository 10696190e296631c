package libvirt

import (
	"context"
	"errors"
	"os"
	"reflect"
	"strings"
	"testing"

	"bladenet/infra/cmdrun"
)

// fakeRunner records invocations and serves canned output. Define
// passes virsh a temp file that is gone by the time the test runs, so
// the fake captures its content during the call.
type fakeRunner struct {
	commands []cmdrun.Command
	output   []byte
	err      error

	definedXML string
}

func (f *fakeRunner) Run(_ context.Context, spec cmdrun.Command) error {
	f.commands = append(f.commands, spec)
	if len(spec.Args) == 2 && spec.Args[0] == "net-define" {
		data, err := os.ReadFile(spec.Args[1])
		if err != nil {
			return err
		}
		f.definedXML = string(data)
	}
	return f.err
}

func (f *fakeRunner) Output(_ context.Context, spec cmdrun.Command) ([]byte, error) {
	f.commands = append(f.commands, spec)
	return f.output, f.err
}

func (f *fakeRunner) argv() [][]string {
	out := make([][]string, len(f.commands))
	for i, cmd := range f.commands {
		out[i] = append([]string{cmd.Name}, cmd.Args...)
	}
	return out
}

func TestNetworks(t *testing.T) {
	t.Run("parses names and skips blanks", func(t *testing.T) {
		runner := &fakeRunner{output: []byte("default\nfabric0\n\n")}
		reg := New(runner)

		got, err := reg.Networks(context.Background())
		if err != nil {
			t.Fatalf("Networks() error = %v", err)
		}
		want := []string{"default", "fabric0"}
		if !reflect.DeepEqual(got, want) {
			t.Errorf("Networks() = %v, want %v", got, want)
		}

		wantArgv := [][]string{{"virsh", "net-list", "--name"}}
		if !reflect.DeepEqual(runner.argv(), wantArgv) {
			t.Errorf("argv = %v, want %v", runner.argv(), wantArgv)
		}
	})

	t.Run("propagates runner failure", func(t *testing.T) {
		runner := &fakeRunner{err: errors.New("virsh not installed")}
		if _, err := New(runner).Networks(context.Background()); err == nil {
			t.Fatal("Networks() error = nil, want failure")
		}
	})
}

func TestDefine(t *testing.T) {
	runner := &fakeRunner{}
	reg := New(runner)

	if err := reg.Define(context.Background(), "fabric0", "br-fabric0"); err != nil {
		t.Fatalf("Define() error = %v", err)
	}

	if len(runner.commands) != 1 || runner.commands[0].Args[0] != "net-define" {
		t.Fatalf("commands = %v, want a single net-define", runner.argv())
	}

	for _, fragment := range []string{
		"<network>",
		"<name>fabric0</name>",
		`<forward mode="bridge">`,
		`<bridge name="br-fabric0">`,
	} {
		if !strings.Contains(runner.definedXML, fragment) {
			t.Errorf("definition missing %q:\n%s", fragment, runner.definedXML)
		}
	}

	// The temp definition file must not be left behind.
	if _, err := os.Stat(runner.commands[0].Args[1]); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("definition file still exists (stat err = %v)", err)
	}
}

func TestLifecycleCommands(t *testing.T) {
	runner := &fakeRunner{}
	reg := New(runner, WithBinary("/usr/local/bin/virsh"))
	ctx := context.Background()

	if err := reg.Start(ctx, "fabric0"); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if err := reg.SetAutostart(ctx, "fabric0"); err != nil {
		t.Fatalf("SetAutostart() error = %v", err)
	}
	if err := reg.Stop(ctx, "fabric0"); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	if err := reg.Undefine(ctx, "fabric0"); err != nil {
		t.Fatalf("Undefine() error = %v", err)
	}

	want := [][]string{
		{"/usr/local/bin/virsh", "net-start", "fabric0"},
		{"/usr/local/bin/virsh", "net-autostart", "fabric0"},
		{"/usr/local/bin/virsh", "net-destroy", "fabric0"},
		{"/usr/local/bin/virsh", "net-undefine", "fabric0"},
	}
	if !reflect.DeepEqual(runner.argv(), want) {
		t.Errorf("argv = %v, want %v", runner.argv(), want)
	}
}

func TestTimeoutIsForwarded(t *testing.T) {
	runner := &fakeRunner{}
	reg := New(runner, WithTimeout(42))

	_ = reg.Start(context.Background(), "fabric0")

	if runner.commands[0].Timeout != 42 {
		t.Errorf("Timeout = %v, want 42", runner.commands[0].Timeout)
	}
}
