/*---------------------------------------------------------------------------------------------
 *  Copyright (c) Microsoft Corporation. All rights reserved.
 *  Licensed under the MIT License. See LICENSE in the project root for license information.
 *--------------------------------------------------------------------------------------------*/

//go:build !windows

package process

import (
	"context"
	"os/exec"
	"testing"
	"time"

	"github.com/go-logr/logr"
	"github.com/stretchr/testify/require"
)

type exitResult struct {
	pid      Pid_t
	exitCode int32
	err      error
}

func exitRecorder() (ProcessExitHandler, <-chan exitResult) {
	ch := make(chan exitResult, 1)
	return ProcessExitHandlerFunc(func(pid Pid_t, exitCode int32, err error) {
		ch <- exitResult{pid, exitCode, err}
	}), ch
}

func waitForExit(t *testing.T, ch <-chan exitResult) exitResult {
	t.Helper()
	select {
	case res := <-ch:
		return res
	case <-time.After(10 * time.Second):
		require.FailNow(t, "process did not exit in time")
		return exitResult{}
	}
}

func TestStartProcessReportsExitCode(t *testing.T) {
	t.Parallel()

	executor := NewOSExecutor(logr.Discard())
	handler, exitCh := exitRecorder()

	pid, startTime, err := executor.StartProcess(context.Background(), exec.Command("sh", "-c", "exit 3"), handler)
	require.NoError(t, err)
	require.NotEqual(t, UnknownPID, pid)
	require.False(t, startTime.IsZero())

	res := waitForExit(t, exitCh)
	require.NoError(t, res.err)
	require.Equal(t, pid, res.pid)
	require.EqualValues(t, 3, res.exitCode)
}

func TestStartProcessFailsForMissingExecutable(t *testing.T) {
	t.Parallel()

	executor := NewOSExecutor(logr.Discard())
	pid, _, err := executor.StartProcess(context.Background(), exec.Command("/definitely/not/a/real/binary"), nil)
	require.Error(t, err)
	require.Equal(t, UnknownPID, pid)
}

func TestContextCancellationStopsProcess(t *testing.T) {
	t.Parallel()

	executor := NewOSExecutor(logr.Discard())
	handler, exitCh := exitRecorder()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	_, _, err := executor.StartProcess(ctx, exec.Command("sleep", "30"), handler)
	require.NoError(t, err)

	cancel()
	res := waitForExit(t, exitCh)
	require.NotEqual(t, int32(0), res.exitCode)
}

func TestStopProcessFallsBackToKill(t *testing.T) {
	t.Parallel()

	executor := NewOSExecutor(logr.Discard()).WithStopTimeout(200 * time.Millisecond)
	handler, exitCh := exitRecorder()

	// The shell ignores SIGTERM, so only SIGKILL can stop it.
	pid, _, err := executor.StartProcess(context.Background(), exec.Command("sh", "-c", "trap '' TERM; while true; do sleep 0.1; done"), handler)
	require.NoError(t, err)

	// Give the shell a moment to install the trap.
	time.Sleep(200 * time.Millisecond)

	require.NoError(t, executor.StopProcess(pid))
	res := waitForExit(t, exitCh)
	require.Equal(t, pid, res.pid)
	require.Equal(t, UnknownExitCode, res.exitCode) // Killed by a signal
}

func TestStopProcessUnknownPid(t *testing.T) {
	t.Parallel()

	executor := NewOSExecutor(logr.Discard())
	err := executor.StopProcess(Pid_t(1))
	require.ErrorIs(t, err, ErrProcessNotFound)
}
