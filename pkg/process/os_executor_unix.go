/*---------------------------------------------------------------------------------------------
 *  Copyright (c) Microsoft Corporation. All rights reserved.
 *  Licensed under the MIT License. See LICENSE in the project root for license information.
 *--------------------------------------------------------------------------------------------*/

//go:build !windows

package process

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/go-logr/logr"
	"golang.org/x/sys/unix"
)

// Asks the process to exit with SIGTERM and falls back to SIGKILL if it does not exit within the timeout.
func stopProcess(proc *os.Process, done <-chan struct{}, timeout time.Duration, log logr.Logger) error {
	err := signalAndWaitForExit(proc, unix.SIGTERM, done, timeout)
	switch {
	case err == nil:
		log.V(1).Info("process stopped by SIGTERM", "PID", proc.Pid)
		return nil
	case !errors.Is(err, context.DeadlineExceeded):
		return err
	}

	err = signalAndWaitForExit(proc, unix.SIGKILL, done, timeout)
	switch {
	case err == nil:
		log.V(1).Info("process stopped by SIGKILL", "PID", proc.Pid)
		return nil
	default:
		return err
	}
}

// Sends a given signal to a process and waits for it to exit.
// If the process does not exit within the timeout, the function returns context.DeadlineExceeded.
func signalAndWaitForExit(proc *os.Process, sig unix.Signal, done <-chan struct{}, timeout time.Duration) error {
	err := proc.Signal(sig)
	switch {
	case errors.Is(err, os.ErrProcessDone):
		return nil
	case err != nil:
		return fmt.Errorf("could not send signal %s to process %d: %w", unix.SignalName(sig), proc.Pid, err)
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-done:
		return nil
	case <-timer.C:
		return context.DeadlineExceeded
	}
}
