/*---------------------------------------------------------------------------------------------
 *  Copyright (c) Microsoft Corporation. All rights reserved.
 *  Licensed under the MIT License. See LICENSE in the project root for license information.
 *--------------------------------------------------------------------------------------------*/

package commands

import (
	"fmt"
	"os"
	"os/signal"

	"github.com/go-logr/logr"
	"github.com/spf13/cobra"

	"github.com/microsoft/vim-lldb/internal/server"
	"github.com/microsoft/vim-lldb/internal/vim"
)

const listenFlagName = "listen"

func NewServeCommand(log logr.Logger, flags *rootFlags) *cobra.Command {
	var listenAddress string

	serveCmd := &cobra.Command{
		Use:   "serve [-- target [args...]]",
		Short: "Runs the debugger behind a TCP command server",
		Long: `Runs a single debugger instance and accepts client connections on a TCP address.

Commands sent by any client are fed to the debugger, one line at a time, and the debugger output
is sent to all connected clients. A client ends its session by sending the line "Finish".
If an output terminal is given, every line of debugger output is also reported to the editor
through the terminal API.`,
		RunE:         serve(log, flags, &listenAddress),
		Args:         cobra.ArbitraryArgs,
		SilenceUsage: true,
	}

	serveCmd.Flags().StringVar(&listenAddress, listenFlagName, "", "The address to listen on. Defaults to the configuration file value, or 127.0.0.1:65400.")

	return serveCmd
}

func serve(log logr.Logger, flags *rootFlags, listenAddress *string) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		log := log.WithName("serve")

		cfg, err := flags.resolveConfig(cmd.Flags())
		if err != nil {
			return err
		}
		if cmd.Flags().Changed(listenFlagName) {
			cfg.ListenAddress = *listenAddress
		}

		var terminal *vim.Terminal
		if flags.outputPath != "" {
			terminal = vim.NewTerminal()
			defer terminal.Close()

			if err = terminal.SetTTY(vim.FdOutput, flags.outputPath); err != nil {
				return err
			}
			terminal.SetFunctionPrefix(cfg.TapiPrefix)
		}

		d, err := createDebugger(cmd, cfg, log)
		if err != nil {
			return err
		}

		s, err := server.NewServer(server.Config{
			Address:    cfg.ListenAddress,
			Debugger:   d,
			RunOptions: runOptions(cfg, args),
			Terminal:   terminal,
		}, log)
		if err != nil {
			return err
		}

		if err = s.Listen(); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Listening on %s\n", s.Addr().String())

		ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer cancel()
		return s.Run(ctx)
	}
}
