// Package runner executes the external CLIs the tools wrap (adb, gradle,
// xcodebuild, pod, npm, npx). Commands run without a shell.
package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/cali-dev/cali/internal/shared/llmutils"
)

// maxStderr bounds the stderr text carried by a CommandError.
const maxStderr = 10000

// Command describes one process invocation.
type Command struct {
	Name string
	Args []string
	// Dir is the working directory. Empty means the current directory.
	Dir string
	// Env holds extra KEY=VALUE pairs appended to the inherited environment.
	Env []string
	// Timeout overrides the runner default when non-zero.
	Timeout time.Duration
	// LogFile receives stdout and stderr of processes started with Start.
	LogFile string
}

func (c Command) String() string {
	return strings.TrimSpace(c.Name + " " + strings.Join(c.Args, " "))
}

// Process is a detached process started in the background.
type Process struct {
	PID     int
	LogFile string
}

// Runner is the contract tools use to run commands.
type Runner interface {
	// Output runs the command and returns its captured stdout, unabridged.
	Output(ctx context.Context, cmd Command) (string, error)
	// Stream runs the command with its output attached to the terminal.
	Stream(ctx context.Context, cmd Command) error
	// Start launches the command and returns without waiting for it.
	Start(ctx context.Context, cmd Command) (*Process, error)
}

// CommandError is returned when a command exits unsuccessfully.
type CommandError struct {
	Command  string
	ExitCode int
	Stderr   string
	TimedOut bool
	Err      error
}

func (e *CommandError) Error() string {
	switch {
	case e.TimedOut:
		return fmt.Sprintf("command %q timed out", e.Command)
	case e.Stderr != "":
		return fmt.Sprintf("command %q failed (exit code %d): %s", e.Command, e.ExitCode, e.Stderr)
	case e.ExitCode > 0:
		return fmt.Sprintf("command %q failed with exit code %d", e.Command, e.ExitCode)
	default:
		return fmt.Sprintf("command %q failed: %v", e.Command, e.Err)
	}
}

func (e *CommandError) Unwrap() error { return e.Err }

// Exec runs commands with os/exec.
type Exec struct {
	timeout time.Duration
	stdout  io.Writer
	stderr  io.Writer
}

// New creates an Exec runner. timeout applies to Output and Stream when the
// command does not set its own; zero means no limit.
func New(timeout time.Duration) *Exec {
	return &Exec{timeout: timeout, stdout: os.Stdout, stderr: os.Stderr}
}

// WithOutput redirects streamed output, mostly for tests.
func (e *Exec) WithOutput(stdout, stderr io.Writer) *Exec {
	e.stdout, e.stderr = stdout, stderr
	return e
}

func (e *Exec) command(ctx context.Context, c Command) (*exec.Cmd, context.Context, context.CancelFunc) {
	timeout := e.timeout
	if c.Timeout > 0 {
		timeout = c.Timeout
	}
	cancel := context.CancelFunc(func() {})
	if timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, timeout)
	}

	cmd := exec.CommandContext(ctx, c.Name, c.Args...)
	cmd.Dir = c.Dir
	if len(c.Env) > 0 {
		cmd.Env = append(os.Environ(), c.Env...)
	}
	return cmd, ctx, cancel
}

func (e *Exec) Output(ctx context.Context, c Command) (string, error) {
	cmd, cmdCtx, cancel := e.command(ctx, c)
	defer cancel()

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	slog.Debug("Running command", "cmd", c.String(), "dir", c.Dir)
	if err := cmd.Run(); err != nil {
		return stdout.String(), wrapError(c, cmdCtx, err, stderr.String())
	}
	return stdout.String(), nil
}

func (e *Exec) Stream(ctx context.Context, c Command) error {
	cmd, cmdCtx, cancel := e.command(ctx, c)
	defer cancel()

	var stderr tail
	cmd.Stdin = os.Stdin
	cmd.Stdout = e.stdout
	cmd.Stderr = io.MultiWriter(e.stderr, &stderr)

	slog.Info("Streaming command", "cmd", c.String(), "dir", c.Dir)
	if err := cmd.Run(); err != nil {
		return wrapError(c, cmdCtx, err, stderr.String())
	}
	return nil
}

func (e *Exec) Start(_ context.Context, c Command) (*Process, error) {
	// Detached processes outlive the tool call, so they do not inherit ctx.
	cmd := exec.Command(c.Name, c.Args...)
	cmd.Dir = c.Dir
	if len(c.Env) > 0 {
		cmd.Env = append(os.Environ(), c.Env...)
	}

	if c.LogFile != "" {
		f, err := os.OpenFile(c.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("open log file: %w", err)
		}
		defer f.Close()
		cmd.Stdout = f
		cmd.Stderr = f
	}

	slog.Info("Starting background command", "cmd", c.String(), "dir", c.Dir, "log", c.LogFile)
	if err := cmd.Start(); err != nil {
		return nil, &CommandError{Command: c.String(), ExitCode: -1, Err: err}
	}
	go func() { _ = cmd.Wait() }()

	return &Process{PID: cmd.Process.Pid, LogFile: c.LogFile}, nil
}

func wrapError(c Command, cmdCtx context.Context, err error, stderr string) error {
	ce := &CommandError{
		Command:  c.String(),
		ExitCode: -1,
		Stderr:   truncate(strings.TrimSpace(stderr)),
		TimedOut: errors.Is(cmdCtx.Err(), context.DeadlineExceeded),
		Err:      err,
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		ce.ExitCode = exitErr.ExitCode()
	}
	return ce
}

func truncate(s string) string {
	if len(s) <= maxStderr {
		return s
	}
	head := llmutils.Clip(s, maxStderr)
	return head + fmt.Sprintf("\n... (truncated, %d more chars)", len(s)-len(head))
}

// tail keeps the last maxStderr bytes written to it, starting on a rune
// boundary.
type tail struct {
	buf []byte
}

func (t *tail) Write(p []byte) (int, error) {
	t.buf = append(t.buf, p...)
	if over := len(t.buf) - maxStderr; over > 0 {
		t.buf = t.buf[over:]
		for len(t.buf) > 0 && !utf8.RuneStart(t.buf[0]) {
			t.buf = t.buf[1:]
		}
	}
	return len(p), nil
}

func (t *tail) String() string { return strings.TrimSpace(string(t.buf)) }
