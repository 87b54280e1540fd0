/*---------------------------------------------------------------------------------------------
 *  Copyright (c) Microsoft Corporation. All rights reserved.
 *  Licensed under the MIT License. See LICENSE in the project root for license information.
 *--------------------------------------------------------------------------------------------*/

package testutil

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/microsoft/vim-lldb/pkg/osutil"
)

const (
	FakeLLDBVersion = "lldb version 17.0.6 (fake)"

	// If set, the fake debugger reports this directory when asked for its Python module path.
	FakeLLDBPythonPathEnv = "FAKE_LLDB_PYTHON_PATH"

	// The fake debugger echoes the value of this variable at startup.
	FakeLLDBEchoEnv = "FAKE_LLDB_ECHO_ENV"
)

// A shell script that behaves enough like lldb for tests:
//   - "--version" and "-P" print a version banner and a Python module path,
//   - every other invocation prints its arguments, then echoes each input line to stdout
//     and "err: <line>" to stderr,
//   - "quit" exits with code 0 and "exit N" exits with code N.
const fakeLLDBScript = `#!/bin/sh
if [ "$1" = "--version" ]; then
	echo "%s"
	exit 0
fi
if [ "$1" = "-P" ]; then
	echo "${%s}"
	exit 0
fi
for a in "$@"; do
	echo "arg: $a"
done
if [ -n "${%s}" ]; then
	echo "env: ${%s}"
fi
while IFS= read -r line; do
	case "$line" in
		quit) exit 0 ;;
		exit\ *) exit "${line#exit }" ;;
	esac
	echo "$line"
	echo "err: $line" >&2
done
exit 0
`

// A script that exits with an error when asked for its version.
const brokenLLDBScript = `#!/bin/sh
echo "error: unable to load LLDB framework" >&2
exit 1
`

// WriteFakeLLDB writes the fake debugger to dir as an executable named "lldb" and returns its path.
// Tests should call it from TestMain, before any test starts processes; writing an executable while
// another goroutine forks can make the exec fail with "text file busy".
func WriteFakeLLDB(dir string) (string, error) {
	script := fmt.Sprintf(fakeLLDBScript, FakeLLDBVersion, FakeLLDBPythonPathEnv, FakeLLDBEchoEnv, FakeLLDBEchoEnv)
	return writeScript(dir, "lldb", script)
}

// WriteBrokenLLDB writes a debugger that cannot even report its version.
func WriteBrokenLLDB(dir string) (string, error) {
	return writeScript(dir, "broken-lldb", brokenLLDBScript)
}

func writeScript(dir, name, content string) (string, error) {
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), osutil.PermissionOwnerReadWriteExecuteOthersR); err != nil {
		return "", fmt.Errorf("could not write %s: %w", path, err)
	}
	return path, nil
}
