/*---------------------------------------------------------------------------------------------
 *  Copyright (c) Microsoft Corporation. All rights reserved.
 *  Licensed under the MIT License. See LICENSE in the project root for license information.
 *--------------------------------------------------------------------------------------------*/

package osutil

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLineSep(t *testing.T) {
	t.Parallel()

	if runtime.GOOS == "windows" {
		require.Equal(t, "\r\n", string(LineSep()))
	} else {
		require.Equal(t, "\n", string(LineSep()))
	}
}

func TestFileAndDirExists(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	file := filepath.Join(dir, "f.txt")
	require.NoError(t, os.WriteFile(file, []byte("x"), PermissionOnlyOwnerReadWrite))

	require.True(t, FileExists(file))
	require.False(t, FileExists(dir))
	require.False(t, FileExists(filepath.Join(dir, "missing")))

	require.True(t, DirExists(dir))
	require.False(t, DirExists(file))
}

func TestExistsFollowsSymlinks(t *testing.T) {
	t.Parallel()

	if runtime.GOOS == "windows" {
		t.Skip("creating symlinks requires elevation on Windows")
	}

	dir := t.TempDir()
	file := filepath.Join(dir, "lldb-17")
	require.NoError(t, os.WriteFile(file, []byte("x"), PermissionOwnerReadWriteExecuteOthersR))
	link := filepath.Join(dir, "lldb")
	require.NoError(t, os.Symlink(file, link))
	dirLink := filepath.Join(dir, "python")
	require.NoError(t, os.Symlink(dir, dirLink))

	require.True(t, FileExists(link))
	require.True(t, DirExists(dirLink))
	require.False(t, FileExists(dirLink))
}
