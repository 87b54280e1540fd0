/*---------------------------------------------------------------------------------------------
 *  Copyright (c) Microsoft Corporation. All rights reserved.
 *  Licensed under the MIT License. See LICENSE in the project root for license information.
 *--------------------------------------------------------------------------------------------*/

package vim

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"golang.org/x/term"

	"github.com/microsoft/vim-lldb/pkg/osutil"
)

const (
	FdInput  = 0
	FdOutput = 1
	FdError  = 2
)

var (
	ErrInvalidDescriptor = errors.New("only the input (0) and output (1) terminal descriptors can be set")
	ErrNoOutputTerminal  = errors.New("output terminal is not set")
	ErrNoInputTerminal   = errors.New("input terminal is not set")
)

// Terminal holds the streams of the editor's terminal window that the debugger is attached to.
type Terminal struct {
	ttyIn  *os.File
	ttyOut *os.File
	reader *bufio.Reader

	ioEscapeSeq string
	funcPrefix  string

	// Serializes escape sequence writes so that concurrent calls do not interleave.
	writeLock *sync.Mutex
}

func NewTerminal() *Terminal {
	return &Terminal{
		ioEscapeSeq: DefaultIOEscapeSequence,
		funcPrefix:  DefaultFunctionPrefix,
		writeLock:   &sync.Mutex{},
	}
}

// SetTTY opens the terminal device at `path` and associates it with the given descriptor:
// FdInput opens it for reading, FdOutput opens it for writing. Other descriptors are rejected.
// A previously associated file for the same descriptor is closed.
func (t *Terminal) SetTTY(fd int, path string) error {
	switch fd {
	case FdInput:
		f, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("could not open input terminal: %w", err)
		}
		closeIfSet(t.ttyIn)
		t.ttyIn = f
		t.reader = nil
		return nil

	case FdOutput:
		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, osutil.PermissionOnlyOwnerReadWrite)
		if err != nil {
			return fmt.Errorf("could not open output terminal: %w", err)
		}
		closeIfSet(t.ttyOut)
		t.ttyOut = f
		return nil

	default:
		return fmt.Errorf("%w: %d", ErrInvalidDescriptor, fd)
	}
}

func (t *Terminal) TTYIn() (*os.File, bool) {
	return t.ttyIn, t.ttyIn != nil
}

func (t *Terminal) TTYOut() (*os.File, bool) {
	return t.ttyOut, t.ttyOut != nil
}

// SetIOEscapeSequence changes the escape sequence that precedes terminal API calls.
// Returns false (and keeps the current sequence) if the sequence is empty or does not start with ESC.
func (t *Terminal) SetIOEscapeSequence(seq string) bool {
	if !strings.HasPrefix(seq, "\x1b") {
		return false
	}
	t.ioEscapeSeq = seq
	return true
}

func (t *Terminal) IOEscapeSequence() string {
	return t.ioEscapeSeq
}

// SetFunctionPrefix changes the prefix prepended to editor function names in terminal API calls.
func (t *Terminal) SetFunctionPrefix(prefix string) {
	t.funcPrefix = prefix
}

func (t *Terminal) FunctionPrefix() string {
	return t.funcPrefix
}

// Write asks the editor to call `method` (prefixed with the function prefix) with the given arguments.
// Returns the number of bytes written to the output terminal.
func (t *Terminal) Write(method string, args ...any) (int, error) {
	if t.ttyOut == nil {
		return 0, ErrNoOutputTerminal
	}

	seq, err := EncodeCall(t.ioEscapeSeq, t.funcPrefix+method, args...)
	if err != nil {
		return 0, err
	}

	t.writeLock.Lock()
	defer t.writeLock.Unlock()
	return t.ttyOut.Write(seq)
}

// ReadLine reads the next line typed into the input terminal, without the line terminator.
func (t *Terminal) ReadLine() (string, error) {
	if t.ttyIn == nil {
		return "", ErrNoInputTerminal
	}
	if t.reader == nil {
		t.reader = bufio.NewReader(t.ttyIn)
	}

	line, err := t.reader.ReadString('\n')
	if err != nil && (!errors.Is(err, io.EOF) || line == "") {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func (t *Terminal) Close() error {
	var errs []error
	if t.ttyIn != nil {
		errs = append(errs, t.ttyIn.Close())
		t.ttyIn = nil
		t.reader = nil
	}
	if t.ttyOut != nil {
		errs = append(errs, t.ttyOut.Close())
		t.ttyOut = nil
	}
	return errors.Join(errs...)
}

// IsTerminal reports whether the file is connected to a terminal device.
func IsTerminal(f *os.File) bool {
	return f != nil && term.IsTerminal(int(f.Fd()))
}

func closeIfSet(f *os.File) {
	if f != nil {
		_ = f.Close()
	}
}
