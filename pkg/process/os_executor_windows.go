/*---------------------------------------------------------------------------------------------
 *  Copyright (c) Microsoft Corporation. All rights reserved.
 *  Licensed under the MIT License. See LICENSE in the project root for license information.
 *--------------------------------------------------------------------------------------------*/

//go:build windows

package process

import (
	"context"
	"errors"
	"os"
	"time"

	"github.com/go-logr/logr"
)

// Windows has no signals, and there is no universal way to "ask a process to stop",
// so we just kill the process.
func stopProcess(proc *os.Process, done <-chan struct{}, timeout time.Duration, log logr.Logger) error {
	log.V(1).Info("killing process", "PID", proc.Pid)
	err := proc.Kill()
	if err != nil && !errors.Is(err, os.ErrProcessDone) {
		return err
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
