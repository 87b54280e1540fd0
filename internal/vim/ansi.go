/*---------------------------------------------------------------------------------------------
 *  Copyright (c) Microsoft Corporation. All rights reserved.
 *  Licensed under the MIT License. See LICENSE in the project root for license information.
 *--------------------------------------------------------------------------------------------*/

package vim

import (
	"regexp"
)

// Matches 7-bit and 8-bit C1 ANSI control sequences: two-byte ESC sequences,
// single-byte C1 controls and CSI sequences (ESC [ or 0x9B, parameters, intermediates, final byte).
var ansiSequence = regexp.MustCompile(`(?:\x1B[@-Z\\-_]|[\x80-\x9A\x9C-\x9F]|(?:\x1B\[|\x9B)[0-?]*[ -/]*[@-~])`)

// StripANSI removes terminal control sequences (colors, cursor movement) from debugger output
// so that it can be passed to the editor as plain text.
func StripANSI(s string) string {
	return string(StripANSIBytes([]byte(s)))
}

func StripANSIBytes(b []byte) []byte {
	return ansiSequence.ReplaceAll(b, nil)
}
