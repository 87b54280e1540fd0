/*---------------------------------------------------------------------------------------------
 *  Copyright (c) Microsoft Corporation. All rights reserved.
 *  Licensed under the MIT License. See LICENSE in the project root for license information.
 *--------------------------------------------------------------------------------------------*/

package lldb

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/go-logr/logr"

	"github.com/microsoft/vim-lldb/pkg/process"
)

const (
	probeTimeout = 10 * time.Second

	// How long to wait for output copying to finish after the debugger exits.
	waitDelay = 2 * time.Second
)

var ErrInvalidDebugger = errors.New("could not create a valid debugger")

// ExitError is returned when the debugger exits with a non-zero exit code.
type ExitError struct {
	Code int32
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("debugger exited with code %d", e.Code)
}

// Debugger drives an LLDB executable. Its input and output streams are bound before
// the command interpreter is started; unbound streams are inherited from this process.
type Debugger struct {
	exe      string
	version  string
	executor process.Executor
	stdin    io.Reader
	stdout   io.Writer
	stderr   io.Writer
	env      []string
	log      logr.Logger
}

// Create verifies that `exe` is a working debugger by asking it for its version.
func Create(ctx context.Context, exe string, executor process.Executor, log logr.Logger) (*Debugger, error) {
	probeCtx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	out, err := exec.CommandContext(probeCtx, exe, "--version").Output()
	if err != nil {
		return nil, fmt.Errorf("%w: '%s --version' failed: %w", ErrInvalidDebugger, exe, err)
	}

	line, _, _ := bytes.Cut(bytes.TrimSpace(out), []byte("\n"))
	version := strings.TrimSpace(string(line))
	if version == "" {
		return nil, fmt.Errorf("%w: '%s' did not report a version", ErrInvalidDebugger, exe)
	}

	log = log.WithName("lldb")
	log.V(1).Info("debugger created", "Path", exe, "Version", version)

	return &Debugger{
		exe:      exe,
		version:  version,
		executor: executor,
		log:      log,
	}, nil
}

func (d *Debugger) IsValid() bool {
	return d != nil && d.version != ""
}

func (d *Debugger) Path() string {
	return d.exe
}

func (d *Debugger) Version() string {
	return d.version
}

func (d *Debugger) SetInputFileHandle(r io.Reader) {
	d.stdin = r
}

func (d *Debugger) SetOutputFileHandle(w io.Writer) {
	d.stdout = w
}

func (d *Debugger) SetErrorFileHandle(w io.Writer) {
	d.stderr = w
}

// SetEnv sets additional KEY=VALUE environment variables for the debugger process.
func (d *Debugger) SetEnv(env []string) {
	d.env = append([]string(nil), env...)
}

// RunCommandInterpreter runs the debugger's interactive command loop and blocks until the debugger exits.
// Cancelling the context stops the debugger.
func (d *Debugger) RunCommandInterpreter(ctx context.Context, opts RunOptions) error {
	interp, err := d.Start(ctx, opts)
	if err != nil {
		return err
	}
	return interp.Wait()
}

// Start launches the debugger's command loop without waiting for it to finish.
// The debugger is stopped when the context is cancelled.
func (d *Debugger) Start(ctx context.Context, opts RunOptions) (*Interpreter, error) {
	if !d.IsValid() {
		return nil, ErrInvalidDebugger
	}

	args := opts.Args()
	cmd := exec.Command(d.exe, args...)
	cmd.Env = append(os.Environ(), d.env...)
	cmd.Stdin = valueOr[io.Reader](d.stdin, os.Stdin)
	cmd.Stdout = valueOr[io.Writer](d.stdout, os.Stdout)
	cmd.Stderr = valueOr[io.Writer](d.stderr, os.Stderr)
	cmd.WaitDelay = waitDelay

	interp := &Interpreter{
		executor: d.executor,
		pid:      process.UnknownPID,
		done:     make(chan struct{}),
		exitCode: process.UnknownExitCode,
	}

	exitHandler := process.ProcessExitHandlerFunc(func(pid process.Pid_t, exitCode int32, err error) {
		if ctx.Err() != nil {
			err = errors.Join(ctx.Err(), err)
		}

		interp.mu.Lock()
		interp.exitCode = exitCode
		interp.exitErr = err
		interp.mu.Unlock()
		close(interp.done)

		if err != nil {
			d.log.V(1).Info("debugger exited with error", "PID", pid, "ExitCode", exitCode, "Error", err.Error())
		} else {
			d.log.V(1).Info("debugger exited", "PID", pid, "ExitCode", exitCode)
		}
	})

	pid, startTime, err := d.executor.StartProcess(ctx, cmd, exitHandler)
	if err != nil {
		return nil, fmt.Errorf("failed to start debugger '%s': %w", d.exe, err)
	}

	interp.mu.Lock()
	interp.pid = pid
	interp.startTime = startTime
	interp.mu.Unlock()

	d.log.V(1).Info("debugger started", "PID", pid, "Args", args)
	return interp, nil
}

// Interpreter represents a running debugger command loop.
type Interpreter struct {
	executor  process.Executor
	pid       process.Pid_t
	startTime time.Time
	done      chan struct{}
	exitCode  int32
	exitErr   error
	mu        sync.Mutex
}

// Wait blocks until the debugger exits. It returns an *ExitError if the debugger exited with a non-zero code.
func (i *Interpreter) Wait() error {
	<-i.done

	i.mu.Lock()
	defer i.mu.Unlock()

	if i.exitErr != nil {
		return i.exitErr
	}
	if i.exitCode != 0 {
		return &ExitError{Code: i.exitCode}
	}
	return nil
}

// Done returns a channel that is closed when the debugger exits.
func (i *Interpreter) Done() <-chan struct{} {
	return i.done
}

// ExitCode returns the debugger exit code. Only valid after the debugger has exited.
func (i *Interpreter) ExitCode() int32 {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.exitCode
}

func (i *Interpreter) Pid() process.Pid_t {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.pid
}

func (i *Interpreter) StartTime() time.Time {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.startTime
}

// Stop asks the debugger to exit, forcefully if it does not comply.
func (i *Interpreter) Stop() error {
	select {
	case <-i.done:
		return nil
	default:
	}

	err := i.executor.StopProcess(i.Pid())
	if errors.Is(err, process.ErrProcessNotFound) {
		// Exited between the check above and the stop request.
		return nil
	}
	return err
}

func valueOr[T comparable](val, fallback T) T {
	var zero T
	if val == zero {
		return fallback
	}
	return val
}
