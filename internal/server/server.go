/*---------------------------------------------------------------------------------------------
 *  Copyright (c) Microsoft Corporation. All rights reserved.
 *  Licensed under the MIT License. See LICENSE in the project root for license information.
 *--------------------------------------------------------------------------------------------*/

// Package server exposes a single debugger command loop over TCP. Each connection is a session:
// commands sent by any session are fed to the debugger, and the debugger output is broadcast to all sessions.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"sync"

	"github.com/go-logr/logr"
	"github.com/google/uuid"

	"github.com/microsoft/vim-lldb/internal/lldb"
	"github.com/microsoft/vim-lldb/internal/pubsub"
	"github.com/microsoft/vim-lldb/internal/vim"
)

const (
	// A session that sends this line is closed. The debugger keeps running.
	FinishCommand = "Finish"

	sessionOutputInitialCapacity = 16
)

var ErrServerRunning = errors.New("server is already running")

type Config struct {
	// Address to listen on. Ignored if Listener is set.
	Address string

	// Optional, pre-created listener.
	Listener net.Listener

	Debugger   *lldb.Debugger
	RunOptions lldb.RunOptions

	// Optional editor terminal. If set, every line of debugger output is also reported
	// to the editor through the output and error callbacks.
	Terminal *vim.Terminal
}

type Server struct {
	config   Config
	log      logr.Logger
	listener net.Listener
	output   *pubsub.SubscriptionSet[[]byte]

	// Write end of the debugger input pipe. Commands are written one line at a time under the lock.
	stdin     *os.File
	stdinLock *sync.Mutex

	sessions     map[uuid.UUID]net.Conn
	sessionsLock *sync.Mutex
	sessionsWg   *sync.WaitGroup

	running bool
	lock    *sync.Mutex
}

func NewServer(config Config, log logr.Logger) (*Server, error) {
	if !config.Debugger.IsValid() {
		return nil, lldb.ErrInvalidDebugger
	}

	return &Server{
		config:       config,
		log:          log.WithName("server"),
		output:       pubsub.NewSubscriptionSet[[]byte](nil, context.Background()),
		stdinLock:    &sync.Mutex{},
		sessions:     make(map[uuid.UUID]net.Conn),
		sessionsLock: &sync.Mutex{},
		sessionsWg:   &sync.WaitGroup{},
		lock:         &sync.Mutex{},
	}, nil
}

// Listen starts listening for connections without accepting them yet.
// Run() calls it if it has not been called before.
func (s *Server) Listen() error {
	s.lock.Lock()
	defer s.lock.Unlock()

	if s.listener != nil {
		return nil
	}

	if s.config.Listener != nil {
		s.listener = s.config.Listener
		return nil
	}

	listener, err := net.Listen("tcp", s.config.Address)
	if err != nil {
		return fmt.Errorf("could not listen on %s: %w", s.config.Address, err)
	}
	s.listener = listener
	return nil
}

// Addr returns the address the server listens on, or nil if it is not listening yet.
func (s *Server) Addr() net.Addr {
	s.lock.Lock()
	defer s.lock.Unlock()

	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Run starts the debugger and serves sessions until the context is cancelled or the debugger exits.
// A debugger stopped because of context cancellation is not an error.
func (s *Server) Run(ctx context.Context) error {
	s.lock.Lock()
	if s.running {
		s.lock.Unlock()
		return ErrServerRunning
	}
	s.running = true
	s.lock.Unlock()

	if err := s.Listen(); err != nil {
		return err
	}
	defer s.listener.Close()

	debuggerCtx, cancelDebugger := context.WithCancel(ctx)
	defer cancelDebugger()

	// The input must be an *os.File so that the debugger reads it directly
	// and waiting for the debugger does not wait for an input copying goroutine.
	inR, inW, err := os.Pipe()
	if err != nil {
		return fmt.Errorf("could not create debugger input pipe: %w", err)
	}
	s.stdin = inW

	stdout := newOutputWriter(s.output, s.config.Terminal, vim.OutputCallback, s.log)
	stderr := newOutputWriter(s.output, s.config.Terminal, vim.ErrorCallback, s.log)

	d := s.config.Debugger
	d.SetInputFileHandle(inR)
	d.SetOutputFileHandle(stdout)
	d.SetErrorFileHandle(stderr)

	interp, err := d.Start(debuggerCtx, s.config.RunOptions)
	_ = inR.Close()
	if err != nil {
		_ = inW.Close()
		return err
	}

	s.log.Info("debugger server started", "Address", s.listener.Addr().String(), "DebuggerPID", interp.Pid())

	acceptDone := make(chan struct{})
	go func() {
		defer close(acceptDone)
		s.acceptSessions(debuggerCtx)
	}()

	select {
	case <-ctx.Done():
		s.log.V(1).Info("server context cancelled, stopping the debugger")
	case <-interp.Done():
		s.log.V(1).Info("debugger exited, stopping the server")
	}

	_ = s.listener.Close()
	<-acceptDone

	// Closing the input lets a well-behaved debugger exit on its own; cancellation makes sure it does.
	s.stdinLock.Lock()
	_ = inW.Close()
	s.stdinLock.Unlock()
	cancelDebugger()
	runErr := interp.Wait()

	stdout.Flush()
	stderr.Flush()

	s.closeSessions()
	s.sessionsWg.Wait()

	if errors.Is(runErr, context.Canceled) && ctx.Err() != nil {
		runErr = nil
	}
	if runErr != nil {
		s.log.V(1).Info("debugger server stopped", "Error", runErr.Error())
	} else {
		s.log.V(1).Info("debugger server stopped")
	}
	return runErr
}

func (s *Server) acceptSessions(ctx context.Context) {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if !errors.Is(err, net.ErrClosed) {
				s.log.Error(err, "could not accept a connection")
			}
			return
		}

		id := uuid.New()
		s.sessionsLock.Lock()
		s.sessions[id] = conn
		s.sessionsLock.Unlock()

		s.sessionsWg.Add(1)
		go func() {
			defer s.sessionsWg.Done()
			newSession(id, conn, s, s.log).run(ctx)

			s.sessionsLock.Lock()
			delete(s.sessions, id)
			s.sessionsLock.Unlock()
		}()
	}
}

func (s *Server) closeSessions() {
	s.sessionsLock.Lock()
	defer s.sessionsLock.Unlock()

	for _, conn := range s.sessions {
		_ = conn.Close()
	}
}

// sendCommand writes a single command line to the debugger input.
func (s *Server) sendCommand(command string) error {
	s.stdinLock.Lock()
	defer s.stdinLock.Unlock()

	_, err := s.stdin.Write([]byte(command + "\n"))
	if err != nil {
		return fmt.Errorf("could not send command to the debugger: %w", err)
	}
	return nil
}

// subscribe registers a sink for debugger output.
func (s *Server) subscribe(sink chan<- []byte) *pubsub.Subscription[[]byte] {
	return s.output.Subscribe(sink)
}
