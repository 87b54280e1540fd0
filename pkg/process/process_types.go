/*---------------------------------------------------------------------------------------------
 *  Copyright (c) Microsoft Corporation. All rights reserved.
 *  Licensed under the MIT License. See LICENSE in the project root for license information.
 *--------------------------------------------------------------------------------------------*/

package process

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os/exec"
	"time"
)

type Pid_t int32

const (
	// A valid exit code of a process is a non-negative number. We use UnknownExitCode to indicate that we have not obtained the exit code yet.
	UnknownExitCode int32 = -1

	// Unknown PID code is used when the process is not started (or fails to start)
	UnknownPID Pid_t = -1
)

var ErrProcessNotFound = errors.New("process is not managed by this executor")

type Executor interface {
	// Starts the process described by given command instance.
	// When the passed context is cancelled, the process is automatically stopped.
	// Returns the process PID and its start time. The exit handler (if any) is called exactly once, after the process exits.
	StartProcess(ctx context.Context, cmd *exec.Cmd, exitHandler ProcessExitHandler) (Pid_t, time.Time, error)

	// Stops the process with a given PID. The process must have been started by this executor.
	StopProcess(pid Pid_t) error
}

type ProcessExitHandler interface {
	// Indicates that process with a given PID has finished execution
	// If err is nil, the process exit code was properly captured and the exitCode value is valid
	// if err is not nil, there was a problem tracking the process and the exitCode value is not valid
	OnProcessExited(pid Pid_t, exitCode int32, err error)
}

// Make it easy to supply a function as a process exit handler.
type ProcessExitHandlerFunc func(Pid_t, int32, error)

func (f ProcessExitHandlerFunc) OnProcessExited(pid Pid_t, exitCode int32, err error) {
	f(pid, exitCode, err)
}

func IntToPidT(pid int) (Pid_t, error) {
	if pid < 0 || pid > math.MaxInt32 {
		return UnknownPID, fmt.Errorf("PID value %d is out of range", pid)
	}
	return Pid_t(pid), nil
}
