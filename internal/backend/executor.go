package backend

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
	"time"
)

// stderrTail bounds how much stderr is kept for error messages.
const stderrTail = 8 << 10

// CommandRunner is the interface for running commands.
type CommandRunner interface {
	Run(ctx context.Context, name string, args []string, stdin io.Reader) (stdout, stderr []byte, err error)
	Start(ctx context.Context, name string, args []string, stdin io.Reader) (stdout, stderr io.ReadCloser, wait func() error, err error)
}

// defaultGrace is how long a cancelled command gets to exit after SIGINT
// before it is killed and its pipes are closed.
const defaultGrace = 30 * time.Second

// ExecCommandRunner uses os/exec. On cancellation the command receives an
// interrupt and is killed only after Grace.
type ExecCommandRunner struct {
	// Grace overrides defaultGrace when positive.
	Grace time.Duration
}

func (r ExecCommandRunner) command(ctx context.Context, name string, args []string, stdin io.Reader) *exec.Cmd {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdin = stdin
	cmd.Cancel = func() error {
		return cmd.Process.Signal(os.Interrupt)
	}

	cmd.WaitDelay = defaultGrace
	if r.Grace > 0 {
		cmd.WaitDelay = r.Grace
	}

	return cmd
}

// Run runs a command.
func (r ExecCommandRunner) Run(ctx context.Context, name string, args []string, stdin io.Reader) (stdout, stderr []byte, err error) {
	cmd := r.command(ctx, name, args, stdin)

	var outBuf, errBuf bytes.Buffer
	cmd.Stdout = &outBuf
	cmd.Stderr = &errBuf

	err = cmd.Run()
	return outBuf.Bytes(), errBuf.Bytes(), err
}

// Start starts a command. The readers reach EOF once the command has exited
// and its output is copied, or Grace after it exited when a descendant
// still holds the pipes.
func (r ExecCommandRunner) Start(ctx context.Context, name string, args []string, stdin io.Reader) (stdout, stderr io.ReadCloser, wait func() error, err error) {
	cmd := r.command(ctx, name, args, stdin)

	stdoutR, stdoutW := io.Pipe()
	stderrR, stderrW := io.Pipe()
	cmd.Stdout = stdoutW
	cmd.Stderr = stderrW

	if err := cmd.Start(); err != nil {
		_ = stdoutW.Close()
		_ = stderrW.Close()
		return nil, nil, nil, err
	}

	done := make(chan error, 1)
	go func() {
		err := cmd.Wait()
		_ = stdoutW.Close()
		_ = stderrW.Close()
		done <- err
	}()

	return stdoutR, stderrR, func() error { return <-done }, nil
}

// Executor runs commands.
type Executor struct {
	runner     CommandRunner
	binaryPath string
	timeout    time.Duration
}

// NewExecutor creates an executor for a binary found on PATH or at an explicit path.
// A zero timeout means commands run until they exit.
func NewExecutor(binary string, timeout time.Duration) (*Executor, error) {
	binaryPath, err := exec.LookPath(binary)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrBinaryNotFound, binary, err)
	}

	return &Executor{
		binaryPath: binaryPath,
		timeout:    timeout,
		runner:     ExecCommandRunner{},
	}, nil
}

// NewExecutorWithRunner creates an executor with a custom runner.
func NewExecutorWithRunner(binaryPath string, timeout time.Duration, runner CommandRunner) *Executor {
	return &Executor{
		binaryPath: binaryPath,
		timeout:    timeout,
		runner:     runner,
	}
}

// BinaryPath returns the resolved binary path.
func (e *Executor) BinaryPath() string {
	return e.binaryPath
}

func (e *Executor) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if e.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, e.timeout)
}

// Execute runs the command and returns output.
func (e *Executor) Execute(ctx context.Context, args []string, stdin io.Reader) (stdout, stderr []byte, err error) {
	ctx, cancel := e.withTimeout(ctx)
	defer cancel()

	return e.runner.Run(ctx, e.binaryPath, args, stdin)
}

// Stream runs the command and streams stdout and stderr line by line.
// Carriage returns also end a line so progress bars surface as updates.
// The last chunk has Done set and carries the exit error, if any.
func (e *Executor) Stream(ctx context.Context, args []string, stdin io.Reader) (<-chan StreamChunk, error) {
	ctx, cancel := e.withTimeout(ctx)

	stdout, stderr, wait, err := e.runner.Start(ctx, e.binaryPath, args, stdin)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("executor: failed to start command: %w", err)
	}

	ch := make(chan StreamChunk, 32)

	go func() {
		defer close(ch)
		defer cancel()

		tail := &tailBuffer{limit: stderrTail}

		var wg sync.WaitGroup
		scanErrs := make([]error, 2)
		wg.Add(2)
		go func() {
			defer wg.Done()
			scanErrs[0] = forwardLines(ctx, stdout, false, nil, ch)
		}()
		go func() {
			defer wg.Done()
			scanErrs[1] = forwardLines(ctx, stderr, true, tail, ch)
		}()
		wg.Wait()

		err := wait()
		if ctx.Err() != nil {
			ch <- StreamChunk{Error: ctx.Err(), Done: true}
			return
		}

		for _, scanErr := range scanErrs {
			if scanErr != nil {
				ch <- StreamChunk{Error: scanErr, Done: true}
				return
			}
		}

		if err != nil {
			if s := tail.String(); s != "" {
				ch <- StreamChunk{Error: fmt.Errorf("%w: %s", err, s), Done: true}
			} else {
				ch <- StreamChunk{Error: err, Done: true}
			}
			return
		}

		ch <- StreamChunk{Done: true}
	}()

	return ch, nil
}

// forwardLines sends every non-empty line of r to ch until EOF or cancellation.
// r is always read to EOF so the child never blocks on a full pipe.
func forwardLines(ctx context.Context, r io.Reader, isStderr bool, tail *tailBuffer, ch chan<- StreamChunk) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64<<10), 1<<20)
	scanner.Split(scanLines)

	for scanner.Scan() {
		line := bytes.Clone(scanner.Bytes())
		if tail != nil {
			tail.Write(append(line, '\n'))
		}
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}

		select {
		case <-ctx.Done():
			_, _ = io.Copy(io.Discard, r)
			return nil
		case ch <- StreamChunk{Data: line, Stderr: isStderr}:
		}
	}

	if err := scanner.Err(); err != nil {
		_, _ = io.Copy(io.Discard, r)
		return err
	}

	return nil
}

// scanLines is bufio.ScanLines that also splits on a bare '\r'.
func scanLines(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}

	if i := bytes.IndexAny(data, "\r\n"); i >= 0 {
		advance = i + 1
		if data[i] == '\r' && i+1 < len(data) && data[i+1] == '\n' {
			advance++
		} else if data[i] == '\r' && i+1 == len(data) && !atEOF {
			// Might be the first half of "\r\n", wait for more.
			return 0, nil, nil
		}
		return advance, data[:i], nil
	}

	if atEOF {
		return len(data), data, nil
	}

	return 0, nil, nil
}

// tailBuffer keeps the last limit bytes written to it.
type tailBuffer struct {
	mu    sync.Mutex
	buf   []byte
	limit int
}

func (t *tailBuffer) Write(p []byte) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.buf = append(t.buf, p...)
	if over := len(t.buf) - t.limit; over > 0 {
		t.buf = t.buf[over:]
	}
}

func (t *tailBuffer) String() string {
	t.mu.Lock()
	defer t.mu.Unlock()

	return string(bytes.TrimSpace(t.buf))
}
