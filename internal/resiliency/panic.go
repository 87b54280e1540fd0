/*---------------------------------------------------------------------------------------------
 *  Copyright (c) Microsoft Corporation. All rights reserved.
 *  Licensed under the MIT License. See LICENSE in the project root for license information.
 *--------------------------------------------------------------------------------------------*/

package resiliency

import (
	"fmt"
	"runtime/debug"

	"github.com/go-logr/logr"
)

// PanicError carries a recovered panic value and the stack of the panicking goroutine.
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("vim-lldb stopped unexpectedly: %v", e.Value)
}

// Unwrap returns the panic value if it is an error.
func (e *PanicError) Unwrap() error {
	if err, isErr := e.Value.(error); isErr {
		return err
	}
	return nil
}

// MakePanicError converts the result of recover() into an error and logs it with the stack.
// It must be called from the deferred function that calls recover(). Returns nil if there was no panic.
func MakePanicError(panicVal any, log logr.Logger) error {
	if panicVal == nil {
		return nil
	}

	panicErr := &PanicError{Value: panicVal, Stack: debug.Stack()}
	log.Error(panicErr, "Unexpected panic", "Stack", string(panicErr.Stack))
	return panicErr
}
