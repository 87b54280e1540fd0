/*---------------------------------------------------------------------------------------------
 *  Copyright (c) Microsoft Corporation. All rights reserved.
 *  Licensed under the MIT License. See LICENSE in the project root for license information.
 *--------------------------------------------------------------------------------------------*/

package process

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"sync"
	"time"

	"github.com/go-logr/logr"
	"github.com/tklauser/ps"
)

const DefaultStopTimeout = 5 * time.Second

type processState struct {
	cmd       *exec.Cmd
	startTime time.Time
	done      chan struct{} // Closed when cmd.Wait() returns
	waitErr   error
	stopOnce  sync.Once
	stopErr   error
}

type OSExecutor struct {
	procs       map[Pid_t]*processState
	lock        *sync.Mutex
	stopTimeout time.Duration
	log         logr.Logger
}

func NewOSExecutor(log logr.Logger) *OSExecutor {
	return &OSExecutor{
		procs:       make(map[Pid_t]*processState),
		lock:        &sync.Mutex{},
		stopTimeout: DefaultStopTimeout,
		log:         log.WithName("os-executor"),
	}
}

// Sets how long the executor waits for a process to exit after asking it to stop gracefully.
func (e *OSExecutor) WithStopTimeout(timeout time.Duration) *OSExecutor {
	e.stopTimeout = timeout
	return e
}

func (e *OSExecutor) StartProcess(ctx context.Context, cmd *exec.Cmd, handler ProcessExitHandler) (Pid_t, time.Time, error) {
	if err := cmd.Start(); err != nil {
		return UnknownPID, time.Time{}, err
	}
	processStartTime := time.Now()

	osPid := cmd.Process.Pid
	pid, err := IntToPidT(osPid)
	if err != nil {
		_ = cmd.Process.Kill()
		_ = cmd.Wait()
		return UnknownPID, time.Time{}, err
	}

	psProcess, psProcessErr := ps.FindProcess(osPid)
	if psProcessErr != nil {
		e.log.V(1).Info("could not find process startup time", "PID", osPid, "Error", psProcessErr.Error())
	} else {
		// This is what the OS process startup timestamp is, so it is the most accurate value we can get.
		processStartTime = psProcess.CreationTime()
	}

	state := &processState{
		cmd:       cmd,
		startTime: processStartTime,
		done:      make(chan struct{}),
	}

	e.lock.Lock()
	e.procs[pid] = state
	e.lock.Unlock()

	go func() {
		state.waitErr = cmd.Wait()
		close(state.done)
	}()

	go func() {
		var stopErr error

		select {
		case <-state.done:
			// The process exited on its own.
		case <-ctx.Done():
			e.log.V(1).Info("context cancelled, stopping process", "PID", pid)
			stopErr = e.stop(pid, state)
		}

		<-state.done

		e.lock.Lock()
		delete(e.procs, pid)
		e.lock.Unlock()

		if handler != nil {
			exitCode, execErr := getProcessExecResult(state.waitErr, cmd)
			handler.OnProcessExited(pid, exitCode, errors.Join(stopErr, execErr))
		}
	}()

	return pid, processStartTime, nil
}

func (e *OSExecutor) StopProcess(pid Pid_t) error {
	e.lock.Lock()
	state, found := e.procs[pid]
	e.lock.Unlock()

	if !found {
		return fmt.Errorf("could not stop process %d: %w", pid, ErrProcessNotFound)
	}

	return e.stop(pid, state)
}

// Stops the process once; concurrent and repeated calls share the result of the first call.
func (e *OSExecutor) stop(pid Pid_t, state *processState) error {
	state.stopOnce.Do(func() {
		select {
		case <-state.done:
			return
		default:
		}

		e.log.V(1).Info("stopping process", "PID", pid)
		state.stopErr = stopProcess(state.cmd.Process, state.done, e.stopTimeout, e.log)
	})

	return state.stopErr
}

// Returns the process exit code and execution error depending on the result of command wait call.
func getProcessExecResult(waitErr error, cmd *exec.Cmd) (int32, error) {
	var ee *exec.ExitError
	if waitErr == nil {
		return int32(cmd.ProcessState.ExitCode()), nil
	} else if errors.As(waitErr, &ee) {
		return int32(ee.ExitCode()), nil
	} else {
		return UnknownExitCode, waitErr
	}
}

var _ Executor = (*OSExecutor)(nil)
