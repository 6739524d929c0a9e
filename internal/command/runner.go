// internal/command/runner.go
package command

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/ratio1/r1nodectl/internal/constants"
	"github.com/ratio1/r1nodectl/internal/logging"
)

// Options adjusts a single command invocation.
type Options struct {
	// Timeout bounds the whole invocation. Zero selects the default: 10s
	// locally, 20s when a remote prefix is set (network latency allowance).
	Timeout time.Duration
	// Stdin is supplied to the process when non-empty.
	Stdin []byte
	// OnOutputLine receives each stdout line as it arrives. Used for long
	// operations like image pulls.
	OnOutputLine func(line string)
	// Stream additionally receives raw stdout bytes as they arrive.
	Stream io.Writer
}

// Result is the outcome of one command invocation. A nonzero exit code is
// not an Err; Err is reserved for spawn failures, timeouts and cancellation.
type Result struct {
	Argv     []string
	Stdout   string
	Stderr   string
	ExitCode int
	Err      error
}

// Ok reports whether the command ran and exited zero.
func (r *Result) Ok() bool {
	return r.Err == nil && r.ExitCode == 0
}

// AsError materializes the failure as a single error value: Err when set, a
// *CommandError for a nonzero exit, nil otherwise.
func (r *Result) AsError() error {
	if r.Err != nil {
		return r.Err
	}
	if r.ExitCode != 0 {
		return &CommandError{Argv: r.Argv, ExitCode: r.ExitCode, Stderr: r.Stderr}
	}
	return nil
}

// Runner executes external command lines. Implementations must be safe for
// concurrent use.
type Runner interface {
	// Run executes argv and blocks until it finishes or times out.
	Run(ctx context.Context, argv []string, opts *Options) *Result
	// Start executes argv on its own goroutine and delivers the Result
	// exactly once on the returned channel.
	Start(ctx context.Context, argv []string, opts *Options) <-chan *Result
	// SetRemotePrefix prepends prefix (e.g. ["ssh", "host"]) to every
	// subsequent command. nil or empty restores local execution.
	SetRemotePrefix(prefix []string)
	// RemotePrefix returns a copy of the configured prefix.
	RemotePrefix() []string
}

// ExecRunner runs commands as local subprocesses via os/exec.
type ExecRunner struct {
	mu     sync.RWMutex
	prefix []string
}

// NewExecRunner returns a Runner with no remote prefix.
func NewExecRunner() *ExecRunner {
	return &ExecRunner{}
}

func (r *ExecRunner) SetRemotePrefix(prefix []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(prefix) == 0 {
		r.prefix = nil
		return
	}
	r.prefix = append([]string(nil), prefix...)
}

func (r *ExecRunner) RemotePrefix() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.prefix...)
}

func (r *ExecRunner) withPrefix(argv []string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if len(r.prefix) == 0 {
		return append([]string(nil), argv...)
	}
	full := make([]string, 0, len(r.prefix)+len(argv))
	full = append(full, r.prefix...)
	full = append(full, argv...)
	return full
}

func (r *ExecRunner) defaultTimeout() time.Duration {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if len(r.prefix) > 0 {
		return constants.RemoteCommandTimeout
	}
	return constants.DefaultCommandTimeout
}

func (r *ExecRunner) Run(ctx context.Context, argv []string, opts *Options) *Result {
	if opts == nil {
		opts = &Options{}
	}
	if len(argv) == 0 {
		err := &SpawnError{Err: errors.New("empty command")}
		return &Result{Stderr: err.Error(), ExitCode: 1, Err: err}
	}

	full := r.withPrefix(argv)
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = r.defaultTimeout()
	}

	cctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(cctx, full[0], full[1:]...)

	var stdout, stderr bytes.Buffer
	outW := io.Writer(&stdout)
	var lw *lineWriter
	if opts.OnOutputLine != nil {
		lw = &lineWriter{fn: opts.OnOutputLine}
		outW = io.MultiWriter(outW, lw)
	}
	if opts.Stream != nil {
		outW = io.MultiWriter(outW, opts.Stream)
	}
	cmd.Stdout = outW
	cmd.Stderr = &stderr
	if len(opts.Stdin) > 0 {
		cmd.Stdin = bytes.NewReader(opts.Stdin)
	}

	logging.Debug("Executing: %s (timeout %s)", strings.Join(full, " "), timeout)
	runErr := cmd.Run()
	if lw != nil {
		lw.flush()
	}

	res := &Result{
		Argv:   full,
		Stdout: stdout.String(),
		Stderr: stderr.String(),
	}

	switch {
	case runErr == nil:
		// Exit zero.
	case cctx.Err() == context.DeadlineExceeded:
		res.ExitCode = -1
		res.Err = &TimeoutError{Argv: full, Timeout: timeout}
		logging.Warning("%v", res.Err)
	case cctx.Err() == context.Canceled:
		res.ExitCode = -1
		res.Err = cctx.Err()
	default:
		var exitErr *exec.ExitError
		if errors.As(runErr, &exitErr) {
			res.ExitCode = exitErr.ExitCode()
		} else {
			spawn := &SpawnError{Argv: full, Err: runErr}
			res.Stdout = ""
			res.Stderr = spawn.Error()
			res.ExitCode = 1
			res.Err = spawn
			logging.Error("%v", spawn)
		}
	}

	return res
}

func (r *ExecRunner) Start(ctx context.Context, argv []string, opts *Options) <-chan *Result {
	ch := make(chan *Result, 1)
	go func() {
		ch <- r.Run(ctx, argv, opts)
		close(ch)
	}()
	return ch
}

// lineWriter splits a byte stream into lines for a callback, holding partial
// lines until their newline arrives.
type lineWriter struct {
	fn  func(string)
	buf bytes.Buffer
}

func (w *lineWriter) Write(p []byte) (int, error) {
	w.buf.Write(p)
	for {
		line, err := w.buf.ReadString('\n')
		if err != nil {
			// Partial line, keep for the next write.
			w.buf.WriteString(line)
			break
		}
		w.fn(strings.TrimRight(line, "\r\n"))
	}
	return len(p), nil
}

func (w *lineWriter) flush() {
	if w.buf.Len() > 0 {
		w.fn(strings.TrimRight(w.buf.String(), "\r\n"))
		w.buf.Reset()
	}
}
