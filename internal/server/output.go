/*---------------------------------------------------------------------------------------------
 *  Copyright (c) Microsoft Corporation. All rights reserved.
 *  Licensed under the MIT License. See LICENSE in the project root for license information.
 *--------------------------------------------------------------------------------------------*/

package server

import (
	"bytes"
	"sync"

	"github.com/go-logr/logr"

	"github.com/microsoft/vim-lldb/internal/pubsub"
	"github.com/microsoft/vim-lldb/internal/vim"
)

// outputWriter receives one of the debugger output streams. Every chunk is broadcast to the
// connected sessions; complete lines are also reported to the editor terminal, if there is one.
type outputWriter struct {
	sessions *pubsub.SubscriptionSet[[]byte]
	terminal *vim.Terminal
	callback string
	log      logr.Logger

	lock    *sync.Mutex
	partial []byte
}

func newOutputWriter(sessions *pubsub.SubscriptionSet[[]byte], terminal *vim.Terminal, callback string, log logr.Logger) *outputWriter {
	return &outputWriter{
		sessions: sessions,
		terminal: terminal,
		callback: callback,
		log:      log,
		lock:     &sync.Mutex{},
	}
}

func (w *outputWriter) Write(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}

	// The caller may reuse p after Write returns.
	chunk := bytes.Clone(p)
	w.sessions.Notify(chunk)

	if w.terminal != nil {
		w.reportLines(chunk)
	}

	return len(p), nil
}

func (w *outputWriter) reportLines(chunk []byte) {
	w.lock.Lock()
	defer w.lock.Unlock()

	w.partial = append(w.partial, chunk...)
	for {
		line, rest, found := bytes.Cut(w.partial, []byte("\n"))
		if !found {
			break
		}
		w.report(bytes.TrimRight(line, "\r"))
		w.partial = rest
	}

	// Do not hold on to the consumed part of the buffer.
	w.partial = bytes.Clone(w.partial)
}

// Flush reports whatever is left of an unterminated last line.
func (w *outputWriter) Flush() {
	if w.terminal == nil {
		return
	}

	w.lock.Lock()
	defer w.lock.Unlock()

	if len(w.partial) > 0 {
		w.report(w.partial)
		w.partial = nil
	}
}

func (w *outputWriter) report(line []byte) {
	if len(bytes.TrimSpace(line)) == 0 {
		return
	}

	if _, err := w.terminal.Write(w.callback, string(line)); err != nil {
		w.log.V(1).Info("could not report debugger output to the editor", "Callback", w.callback, "Error", err.Error())
	}
}
