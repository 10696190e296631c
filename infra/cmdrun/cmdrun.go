// Package cmdrun runs external commands with a bounded wait and
// escalating cancellation: past the deadline the process is asked to
// terminate, then killed, then given up on. Every shell-out on the
// blade goes through this one primitive so the timeout behavior is
// uniform.
package cmdrun

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"time"

	"golang.org/x/sys/unix"
)

// DefaultPoll is the completion-poll interval, matching the cadence at
// which timeout escalation advances.
const DefaultPoll = 5 * time.Second

// Command describes one external command invocation. A zero Timeout
// means wait indefinitely (subject only to ctx).
type Command struct {
	Name    string
	Args    []string
	Stdin   io.Reader
	Timeout time.Duration
}

func (c Command) String() string {
	if len(c.Args) == 0 {
		return c.Name
	}
	return c.Name + " " + strings.Join(c.Args, " ")
}

// ExitError reports a command that ran to completion with a nonzero
// exit status, without timing out.
type ExitError struct {
	Cmd  string
	Code int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("command '%s' failed with exit status %d", e.Cmd, e.Code)
}

// TimeoutError reports a command that exceeded its timeout and went
// through the terminate/kill escalation.
type TimeoutError struct {
	Cmd   string
	After time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("command '%s' timed out and was killed after %s", e.Cmd, e.After)
}

// Exec runs commands as child processes, streaming their output to the
// configured writers (the invoker's stdout and stderr by default).
type Exec struct {
	stdout io.Writer
	stderr io.Writer
	poll   time.Duration
}

// Option configures an Exec runner.
type Option func(*Exec)

// WithOutput redirects the command output streams.
func WithOutput(stdout, stderr io.Writer) Option {
	return func(e *Exec) {
		e.stdout = stdout
		e.stderr = stderr
	}
}

// WithPoll overrides the completion-poll interval. Mainly for tests.
func WithPoll(d time.Duration) Option {
	return func(e *Exec) { e.poll = d }
}

// NewExec creates a runner.
func NewExec(opts ...Option) *Exec {
	e := &Exec{stdout: os.Stdout, stderr: os.Stderr, poll: DefaultPoll}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Run executes the command and waits for it to finish.
func (e *Exec) Run(ctx context.Context, spec Command) error {
	return e.run(ctx, spec, e.stdout)
}

// Output executes the command and returns its captured standard
// output. Standard error still streams to the configured writer.
func (e *Exec) Output(ctx context.Context, spec Command) ([]byte, error) {
	var buf bytes.Buffer
	err := e.run(ctx, spec, &buf)
	return buf.Bytes(), err
}

// escalation states for a command past its deadline.
type phase uint8

const (
	phaseRunning phase = iota
	phaseTerminating
	phaseKilled
)

func (e *Exec) run(ctx context.Context, spec Command, stdout io.Writer) error {
	cmd := exec.Command(spec.Name, spec.Args...)
	cmd.Stdin = spec.Stdin
	cmd.Stdout = stdout
	cmd.Stderr = e.stderr

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("execute '%s': %w", spec, err)
	}

	done := make(chan error, 1)
	go func() {
		done <- cmd.Wait()
	}()

	ticker := time.NewTicker(e.poll)
	defer ticker.Stop()

	var elapsed time.Duration
	state := phaseRunning

	for {
		select {
		case err := <-done:
			if state != phaseRunning {
				return &TimeoutError{Cmd: spec.String(), After: elapsed}
			}
			var exitErr *exec.ExitError
			if errors.As(err, &exitErr) {
				return &ExitError{Cmd: spec.String(), Code: exitErr.ExitCode()}
			}
			if err != nil {
				return fmt.Errorf("wait for '%s': %w", spec, err)
			}
			return nil

		case <-ticker.C:
			elapsed += e.poll
			if spec.Timeout <= 0 || elapsed <= spec.Timeout {
				continue
			}
			switch state {
			case phaseRunning:
				_ = cmd.Process.Signal(unix.SIGTERM)
				state = phaseTerminating
			case phaseTerminating:
				_ = cmd.Process.Kill()
				state = phaseKilled
			case phaseKilled:
				// Even SIGKILL did not reap it; stop waiting.
				return &TimeoutError{Cmd: spec.String(), After: elapsed}
			}

		case <-ctx.Done():
			_ = cmd.Process.Kill()
			<-done
			return fmt.Errorf("run '%s': %w", spec, ctx.Err())
		}
	}
}
