/*---------------------------------------------------------------------------------------------
 *  Copyright (c) Microsoft Corporation. All rights reserved.
 *  Licensed under the MIT License. See LICENSE in the project root for license information.
 *--------------------------------------------------------------------------------------------*/

package vim

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEncodeCall(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name     string
		fn       string
		args     []any
		expected string
	}{
		{
			name:     "no arguments",
			fn:       "Tapi_LldbOutCb",
			expected: "\x1b]51;[\"call\",\"Tapi_LldbOutCb\",[]]\a",
		},
		{
			name:     "string and number",
			fn:       "Tapi_LldbOutCb",
			args:     []any{"current file", 12},
			expected: "\x1b]51;[\"call\",\"Tapi_LldbOutCb\",[\"current file\",12]]\a",
		},
		{
			name:     "quotes and newlines are escaped",
			fn:       "Tapi_LldbErrCb",
			args:     []any{"error: 'x' is \"undefined\"\n"},
			expected: "\x1b]51;[\"call\",\"Tapi_LldbErrCb\",[\"error: 'x' is \\\"undefined\\\"\\n\"]]\a",
		},
		{
			name:     "ANSI sequences are stripped from bytes",
			fn:       "Tapi_LldbOutCb",
			args:     []any{[]byte("\x1b[32m* thread #1\x1b[0m")},
			expected: "\x1b]51;[\"call\",\"Tapi_LldbOutCb\",[\"* thread #1\"]]\a",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			seq, err := EncodeCall(DefaultIOEscapeSequence, tc.fn, tc.args...)
			require.NoError(t, err)
			require.Equal(t, tc.expected, string(seq))
		})
	}
}

func TestEncodeCallRequiresFunctionName(t *testing.T) {
	t.Parallel()

	_, err := EncodeCall(DefaultIOEscapeSequence, " ")
	require.ErrorIs(t, err, ErrInvalidFunctionName)
}

func TestStripANSI(t *testing.T) {
	t.Parallel()

	require.Equal(t, "plain", StripANSI("plain"))
	require.Equal(t, "red text", StripANSI("\x1b[31mred\x1b[0m text"))
	require.Equal(t, "cursor", StripANSI("\x1b[2K\x1b[1Gcursor"))
	require.Equal(t, "(lldb) ", StripANSI("\x1bM(lldb) \x1b\\"))
}
