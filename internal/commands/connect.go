/*---------------------------------------------------------------------------------------------
 *  Copyright (c) Microsoft Corporation. All rights reserved.
 *  Licensed under the MIT License. See LICENSE in the project root for license information.
 *--------------------------------------------------------------------------------------------*/

package commands

import (
	"os"
	"os/signal"
	"time"

	"github.com/go-logr/logr"
	"github.com/spf13/cobra"

	"github.com/microsoft/vim-lldb/internal/server"
)

const addrFlagName = "addr"

func NewConnectCommand(log logr.Logger, flags *rootFlags) *cobra.Command {
	var (
		addr         string
		dialAttempts uint64
		dialInterval time.Duration
	)

	connectCmd := &cobra.Command{
		Use:   "connect",
		Short: "Connects to a debugger command server",
		Long: `Connects to a debugger started with the "serve" command. Lines read from standard input
are sent to the debugger and the debugger output is written to standard output.
The session ends when standard input is closed.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			log := log.WithName("connect")

			cfg, err := flags.resolveConfig(cmd.Flags())
			if err != nil {
				return err
			}
			if cmd.Flags().Changed(addrFlagName) {
				cfg.ListenAddress = addr
			}

			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer cancel()

			client, err := server.Dial(ctx, server.ClientConfig{
				Address:      cfg.ListenAddress,
				DialAttempts: dialAttempts,
				DialInterval: dialInterval,
			}, log)
			if err != nil {
				return err
			}
			defer client.Close()

			return client.Run(ctx, cmd.InOrStdin(), cmd.OutOrStdout())
		},
		Args:         cobra.NoArgs,
		SilenceUsage: true,
	}

	connectCmd.Flags().StringVar(&addr, addrFlagName, "", "The address of the debugger command server. Defaults to the configuration file value, or 127.0.0.1:65400.")
	connectCmd.Flags().Uint64Var(&dialAttempts, "attempts", server.DefaultDialAttempts, "How many times to try connecting to the server.")
	connectCmd.Flags().DurationVar(&dialInterval, "retry-interval", server.DefaultDialInterval, "How long to wait between connection attempts.")

	return connectCmd
}
