/*---------------------------------------------------------------------------------------------
 *  Copyright (c) Microsoft Corporation. All rights reserved.
 *  Licensed under the MIT License. See LICENSE in the project root for license information.
 *--------------------------------------------------------------------------------------------*/

package server

import (
	"bufio"
	"context"
	"net"
	"strings"

	"github.com/go-logr/logr"
	"github.com/google/uuid"
	"github.com/smallnest/chanx"
)

type session struct {
	id     uuid.UUID
	conn   net.Conn
	server *Server
	log    logr.Logger
}

func newSession(id uuid.UUID, conn net.Conn, server *Server, log logr.Logger) *session {
	return &session{
		id:     id,
		conn:   conn,
		server: server,
		log:    log.WithValues("Session", id.String(), "Remote", conn.RemoteAddr().String()),
	}
}

// run reads commands from the connection until the peer finishes the session or goes away.
func (s *session) run(ctx context.Context) {
	s.log.V(1).Info("session started")

	// The output channel outlives the session context: the subscription must be cancelled
	// (closing the channel input) before the channel stops draining it.
	outputCtx, cancelOutput := context.WithCancel(context.Background())
	defer cancelOutput()
	output := chanx.NewUnboundedChan[[]byte](outputCtx, sessionOutputInitialCapacity)
	sub := s.server.subscribe(output.In)

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		s.writeOutput(output.Out)
	}()

	s.readCommands(ctx)

	// Deliver the output received so far before closing the connection.
	sub.Cancel()
	<-writerDone
	_ = s.conn.Close()

	s.log.V(1).Info("session ended")
}

func (s *session) readCommands(ctx context.Context) {
	scanner := bufio.NewScanner(s.conn)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return
		}

		line := strings.TrimRight(scanner.Text(), "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		if line == FinishCommand {
			s.log.V(1).Info("session finished by the client")
			return
		}

		s.log.V(1).Info("command received", "Command", line)
		if err := s.server.sendCommand(line); err != nil {
			s.log.Error(err, "command could not be delivered", "Command", line)
			return
		}
	}

	if err := scanner.Err(); err != nil && ctx.Err() == nil {
		s.log.V(1).Info("session connection read failed", "Error", err.Error())
	}
}

// writeOutput forwards debugger output to the connection until the output channel is closed.
// After a write failure the output is drained and dropped, and the connection is closed to end the session.
func (s *session) writeOutput(output <-chan []byte) {
	failed := false
	for chunk := range output {
		if failed {
			continue
		}
		if _, err := s.conn.Write(chunk); err != nil {
			failed = true
			s.log.V(1).Info("could not send debugger output to the session", "Error", err.Error())
			_ = s.conn.Close()
		}
	}
}
