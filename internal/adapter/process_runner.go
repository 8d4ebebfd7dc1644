package adapter

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os/exec"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	m "zkmutant.dev/pkg/zkmutant/internal/model"
	"zkmutant.dev/pkg/zkmutant/pkg"
)

// DefaultTailLimit bounds each captured stream at 64 KiB.
const DefaultTailLimit = 64 * 1024

// CommandSpec describes one child invocation.
type CommandSpec struct {
	// Argv is the full argument vector; Argv[0] is the binary.
	Argv []string

	// Dir is the working directory for the child.
	Dir string

	// Timeout is the wall-clock budget; zero means unlimited.
	Timeout time.Duration

	// TailLimit caps each captured stream; zero means DefaultTailLimit.
	TailLimit int
}

// ProcessRunner invokes external commands. Production wires it to the
// operating system; tests wire a stub keyed on argv and cwd.
type ProcessRunner interface {
	Run(ctx context.Context, spec CommandSpec) (m.ProcessResult, error)
}

// ExecProcessRunner runs commands via os/exec. Children get their own
// process group so a timeout or interrupt kills the whole tree.
type ExecProcessRunner struct{}

// NewExecProcessRunner constructs an ExecProcessRunner.
func NewExecProcessRunner() *ExecProcessRunner {
	return &ExecProcessRunner{}
}

// Run implements ProcessRunner.
func (r *ExecProcessRunner) Run(ctx context.Context, spec CommandSpec) (m.ProcessResult, error) {
	if len(spec.Argv) == 0 {
		return m.ProcessResult{}, errors.New("empty command")
	}

	if err := ctx.Err(); err != nil {
		return m.ProcessResult{}, err
	}

	limit := spec.TailLimit
	if limit <= 0 {
		limit = DefaultTailLimit
	}

	cmd := exec.Command(spec.Argv[0], spec.Argv[1:]...)
	cmd.Dir = spec.Dir
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	stdoutPipe, err := cmd.StdoutPipe()
	if err != nil {
		return m.ProcessResult{}, fmt.Errorf("stdout pipe: %w", err)
	}

	stderrPipe, err := cmd.StderrPipe()
	if err != nil {
		return m.ProcessResult{}, fmt.Errorf("stderr pipe: %w", err)
	}

	stdout := pkg.NewTailBuffer(limit)
	stderr := pkg.NewTailBuffer(limit)

	start := time.Now()

	if err := cmd.Start(); err != nil {
		return m.ProcessResult{}, fmt.Errorf("spawn %s: %w", spec.Argv[0], err)
	}

	// Both pipes are drained concurrently so a chatty child can never
	// deadlock on a full pipe buffer. The goroutines join before Run
	// returns.
	var drain errgroup.Group

	drain.Go(func() error {
		_, copyErr := io.Copy(stdout, stdoutPipe)
		return copyErr
	})
	drain.Go(func() error {
		_, copyErr := io.Copy(stderr, stderrPipe)
		return copyErr
	})

	runCtx := ctx

	if spec.Timeout > 0 {
		var cancel context.CancelFunc

		runCtx, cancel = context.WithTimeout(ctx, spec.Timeout)
		defer cancel()
	}

	waitCh := make(chan error, 1)

	go func() {
		drainErr := drain.Wait()
		waitErr := cmd.Wait()
		waitCh <- errors.Join(waitErr, drainErr)
	}()

	timedOut := false

	select {
	case waitErr := <-waitCh:
		if isProcessIOError(waitErr) {
			return m.ProcessResult{}, fmt.Errorf("run %s: %w", spec.Argv[0], waitErr)
		}
	case <-runCtx.Done():
		r.killGroup(cmd)
		<-waitCh

		// A parent-context cancellation is an interrupt, not a timeout.
		if ctx.Err() != nil {
			return m.ProcessResult{}, ctx.Err()
		}

		timedOut = true
	}

	return m.ProcessResult{
		ExitCode:   cmd.ProcessState.ExitCode(),
		StdoutTail: stdout.String(),
		StderrTail: stderr.String(),
		DurationMS: time.Since(start).Milliseconds(),
		TimedOut:   timedOut,
	}, nil
}

// isProcessIOError filters expected wait results: a non-zero exit status is
// an outcome, not a runner failure.
func isProcessIOError(err error) bool {
	if err == nil {
		return false
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return false
	}

	// Pipe reads racing process exit surface as closed-pipe errors; the
	// capture is still a valid tail.
	return !errors.Is(err, io.ErrClosedPipe) && !errors.Is(err, fs.ErrClosed) && !errors.Is(err, syscall.EPIPE)
}

// killGroup terminates the child's whole process group.
func (r *ExecProcessRunner) killGroup(cmd *exec.Cmd) {
	if cmd.Process == nil {
		return
	}

	if err := syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL); err != nil {
		slog.Debug("process group kill failed, killing child directly", "pid", cmd.Process.Pid, "error", err)
		_ = cmd.Process.Kill()
	}
}
