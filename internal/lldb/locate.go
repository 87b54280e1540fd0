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
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/microsoft/vim-lldb/internal/config"
	"github.com/microsoft/vim-lldb/pkg/osutil"
)

const DefaultExecutableName = "lldb"

var (
	ErrNotFound     = errors.New("lldb executable not found")
	ErrNoPythonPath = errors.New("lldb did not report a usable Python module path")
)

// Locate finds the LLDB executable. The explicit path (from a flag or the configuration file) wins,
// then the LLDB environment variable if it names an existing file, then "lldb" on the PATH.
func Locate(explicit string) (string, error) {
	if explicit != "" {
		if strings.ContainsRune(explicit, filepath.Separator) || strings.ContainsRune(explicit, '/') {
			if !osutil.FileExists(explicit) {
				return "", fmt.Errorf("%w: '%s' does not exist", ErrNotFound, explicit)
			}
			return filepath.Abs(explicit)
		}

		found, err := exec.LookPath(explicit)
		if err != nil {
			return "", fmt.Errorf("%w: %w", ErrNotFound, err)
		}
		return found, nil
	}

	if fromEnv, found := os.LookupEnv(config.LLDB); found && osutil.FileExists(fromEnv) {
		return filepath.Abs(fromEnv)
	}

	found, err := exec.LookPath(DefaultExecutableName)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrNotFound, err)
	}
	return found, nil
}

// PythonPath returns the directory that contains LLDB's Python module, as reported by `lldb -P`.
func PythonPath(ctx context.Context, exe string) (string, error) {
	out, err := exec.CommandContext(ctx, exe, "-P").Output()
	if err != nil {
		return "", fmt.Errorf("could not run '%s -P': %w", exe, err)
	}

	// Only the first line is the path; some builds print warnings after it.
	line, _, _ := bytes.Cut(bytes.TrimSpace(out), []byte("\n"))
	dir := strings.TrimSpace(string(line))
	if dir == "" || !osutil.DirExists(dir) {
		return "", fmt.Errorf("%w: '%s'", ErrNoPythonPath, dir)
	}
	return dir, nil
}
