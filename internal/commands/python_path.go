/*---------------------------------------------------------------------------------------------
 *  Copyright (c) Microsoft Corporation. All rights reserved.
 *  Licensed under the MIT License. See LICENSE in the project root for license information.
 *--------------------------------------------------------------------------------------------*/

package commands

import (
	"fmt"

	"github.com/go-logr/logr"
	"github.com/spf13/cobra"

	"github.com/microsoft/vim-lldb/internal/lldb"
)

func NewPythonPathCommand(log logr.Logger, flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "python-path",
		Short: "Prints the directory containing the LLDB Python module",
		Long: `Prints the directory containing the LLDB Python module, as reported by the debugger.
Editor plugins add this directory to their Python module search path.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			log := log.WithName("python-path")

			cfg, err := flags.resolveConfig(cmd.Flags())
			if err != nil {
				return err
			}

			exe, err := lldb.Locate(cfg.LLDBPath)
			if err != nil {
				log.Error(err, "Debugger executable not found")
				return err
			}

			dir, err := lldb.PythonPath(cmd.Context(), exe)
			if err != nil {
				log.Error(err, "Could not determine the Python module path", "LLDBPath", exe)
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), dir)
			return nil
		},
		Args:         cobra.NoArgs,
		SilenceUsage: true,
	}
}
