/*---------------------------------------------------------------------------------------------
 *  Copyright (c) Microsoft Corporation. All rights reserved.
 *  Licensed under the MIT License. See LICENSE in the project root for license information.
 *--------------------------------------------------------------------------------------------*/

package osutil

import (
	"os"
	"runtime"
)

const (
	PermissionOnlyOwnerReadWrite           os.FileMode = 0600
	PermissionOnlyOwnerReadWriteTraverse   os.FileMode = 0700 // For directories
	PermissionOwnerReadWriteExecuteOthersR os.FileMode = 0744 // For scripts
)

// CRLF is the Windows line ending.
func CRLF() []byte {
	return []byte("\r\n")
}

// LineSep returns the line ending used for console output on this platform.
func LineSep() []byte {
	if runtime.GOOS == "windows" {
		return CRLF()
	}
	return []byte("\n")
}

// FileExists reports whether the path is a regular file, or a symlink to one.
func FileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

// DirExists reports whether the path is a directory, or a symlink to one.
func DirExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
