/*---------------------------------------------------------------------------------------------
 *  Copyright (c) Microsoft Corporation. All rights reserved.
 *  Licensed under the MIT License. See LICENSE in the project root for license information.
 *--------------------------------------------------------------------------------------------*/

package vim

import (
	"errors"
	"fmt"
	"strings"

	"github.com/tidwall/sjson"
)

const (
	// Operating System Command 51 is what Vim's terminal listens to, see :h terminal-api
	DefaultIOEscapeSequence = "\x1b]51;"

	// Vim only allows calling functions with this prefix unless term_setapi() says otherwise.
	DefaultFunctionPrefix = "Tapi_"

	// Terminates the OSC sequence.
	bel = "\a"

	// Names of the editor-side callbacks used for debugger output.
	OutputCallback = "LldbOutCb"
	ErrorCallback  = "LldbErrCb"
)

var ErrInvalidFunctionName = errors.New("terminal API function name must not be empty")

// EncodeCall returns the escape sequence that asks the editor to call function `fn` with `args`:
//
//	<seq>["call","<fn>",[<args...>]]<BEL>
//
// String arguments are stripped of ANSI control sequences. All values are JSON-encoded,
// so quotes and control characters in debugger output cannot break out of the payload.
func EncodeCall(seq, fn string, args ...any) ([]byte, error) {
	if strings.TrimSpace(fn) == "" {
		return nil, ErrInvalidFunctionName
	}

	argsJSON := "[]"
	for i, arg := range args {
		var err error
		switch v := arg.(type) {
		case string:
			argsJSON, err = sjson.Set(argsJSON, "-1", StripANSI(v))
		case []byte:
			argsJSON, err = sjson.Set(argsJSON, "-1", string(StripANSIBytes(v)))
		default:
			argsJSON, err = sjson.Set(argsJSON, "-1", v)
		}
		if err != nil {
			return nil, fmt.Errorf("could not encode argument %d of terminal API call '%s': %w", i, fn, err)
		}
	}

	payload, err := sjson.Set(`["call"]`, "-1", fn)
	if err == nil {
		payload, err = sjson.SetRaw(payload, "-1", argsJSON)
	}
	if err != nil {
		return nil, fmt.Errorf("could not encode terminal API call '%s': %w", fn, err)
	}

	var sb strings.Builder
	sb.Grow(len(seq) + len(payload) + len(bel))
	sb.WriteString(seq)
	sb.WriteString(payload)
	sb.WriteString(bel)
	return []byte(sb.String()), nil
}
