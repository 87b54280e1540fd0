/*---------------------------------------------------------------------------------------------
 *  Copyright (c) Microsoft Corporation. All rights reserved.
 *  Licensed under the MIT License. See LICENSE in the project root for license information.
 *--------------------------------------------------------------------------------------------*/

package server

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"time"

	"github.com/go-logr/logr"

	"github.com/microsoft/vim-lldb/internal/resiliency"
)

const (
	ClientPrompt = "(lldb) "

	DefaultDialAttempts = 3
	DefaultDialInterval = time.Second
)

type ClientConfig struct {
	Address      string
	DialAttempts uint64
	DialInterval time.Duration
	Prompt       string
}

// Client is an interactive front end for a debugger server session.
type Client struct {
	conn   net.Conn
	prompt string
	log    logr.Logger
}

// Dial connects to the server, retrying a fixed number of times if the server is not reachable yet.
func Dial(ctx context.Context, config ClientConfig, log logr.Logger) (*Client, error) {
	attempts := config.DialAttempts
	if attempts == 0 {
		attempts = DefaultDialAttempts
	}
	interval := config.DialInterval
	if interval == 0 {
		interval = DefaultDialInterval
	}
	prompt := config.Prompt
	if prompt == "" {
		prompt = ClientPrompt
	}
	log = log.WithName("client").WithValues("Address", config.Address)

	dialer := net.Dialer{}
	conn, err := resiliency.RetryGetNotify(ctx, resiliency.FixedAttempts(attempts, interval),
		func() (net.Conn, error) {
			return dialer.DialContext(ctx, "tcp", config.Address)
		},
		func(attempt uint, err error, next time.Duration) {
			log.Info(fmt.Sprintf("Attempt %d of %d to connect to the debugger server failed, retrying...", attempt, attempts), "Error", err.Error(), "Delay", next)
		},
	)
	if err != nil {
		return nil, fmt.Errorf("could not connect to the debugger server at %s: %w", config.Address, err)
	}

	if tcpConn, isTCP := conn.(*net.TCPConn); isTCP {
		// Close immediately, dropping unsent data, like an abortive close.
		_ = tcpConn.SetLinger(0)
	}

	log.V(1).Info("connected to the debugger server")
	return &Client{conn: conn, prompt: prompt, log: log}, nil
}

// Run sends lines read from `in` to the server and copies the server output to `out`.
// It returns when the input ends, the server closes the connection, or the context is cancelled.
func (c *Client) Run(ctx context.Context, in io.Reader, out io.Writer) error {
	readerDone := make(chan error, 1)
	go func() {
		_, err := io.Copy(out, c.conn)
		readerDone <- err
	}()

	lines := make(chan string)
	inputDone := make(chan error, 1)
	go func() {
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		inputDone <- scanner.Err()
	}()

	for {
		if _, err := io.WriteString(out, c.prompt); err != nil {
			return err
		}

		select {
		case <-ctx.Done():
			_ = c.conn.Close()
			return ctx.Err()

		case err := <-readerDone:
			c.log.V(1).Info("server closed the connection")
			if err != nil && !errors.Is(err, net.ErrClosed) {
				return err
			}
			return nil

		case err := <-inputDone:
			// End of input finishes the session. The server closes the connection
			// after sending the remaining output.
			if _, writeErr := io.WriteString(c.conn, FinishCommand+"\n"); writeErr == nil {
				select {
				case <-readerDone:
				case <-ctx.Done():
				}
			}
			_ = c.conn.Close()
			return err

		case line := <-lines:
			line = strings.TrimRight(line, "\r")
			if strings.TrimSpace(line) == "" {
				continue
			}
			if _, err := io.WriteString(c.conn, line+"\n"); err != nil {
				return fmt.Errorf("could not send the command to the debugger server: %w", err)
			}
		}
	}
}

func (c *Client) Close() error {
	err := c.conn.Close()
	if errors.Is(err, net.ErrClosed) {
		return nil
	}
	return err
}
