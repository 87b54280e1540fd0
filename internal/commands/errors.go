/*---------------------------------------------------------------------------------------------
 *  Copyright (c) Microsoft Corporation. All rights reserved.
 *  Licensed under the MIT License. See LICENSE in the project root for license information.
 *--------------------------------------------------------------------------------------------*/

package commands

import (
	"errors"
	"os"

	"github.com/microsoft/vim-lldb/internal/lldb"
	"github.com/microsoft/vim-lldb/pkg/logger"
	"github.com/microsoft/vim-lldb/pkg/osutil"
)

// ExitCode returns the process exit code for a command error. If the debugger exited
// with a non-zero code, that code is used, otherwise the default code is returned.
func ExitCode(err error, defaultCode int) int {
	var exitErr *lldb.ExitError
	if errors.As(err, &exitErr) && exitErr.Code > 0 {
		return int(exitErr.Code)
	}
	return defaultCode
}

// ErrorExit reports the error, flushes the log and exits the process.
// A debugger exit code is passed through without reporting it as an error.
func ErrorExit(log *logger.Logger, err error, defaultCode int) {
	code := ExitCode(err, defaultCode)

	var exitErr *lldb.ExitError
	if errors.As(err, &exitErr) {
		log.V(1).Info("Debugger exited with non-zero exit code", "ExitCode", exitErr.Code)
	} else if !errors.Is(err, ErrUsage) {
		// Usage errors were already reported to the user.
		os.Stderr.WriteString(err.Error() + string(osutil.LineSep()))
		log.V(1).Info("Command failed", "Error", err.Error(), "ExitCode", code)
	}

	log.Flush()
	os.Exit(code)
}
