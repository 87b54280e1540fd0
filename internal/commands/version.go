/*---------------------------------------------------------------------------------------------
 *  Copyright (c) Microsoft Corporation. All rights reserved.
 *  Licensed under the MIT License. See LICENSE in the project root for license information.
 *--------------------------------------------------------------------------------------------*/

package commands

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/go-logr/logr"
	"github.com/spf13/cobra"

	"github.com/microsoft/vim-lldb/internal/lldb"
	"github.com/microsoft/vim-lldb/internal/version"
	"github.com/microsoft/vim-lldb/pkg/process"
)

const (
	//  If set, the value of this variable will be written to the log as one of the first log messages.
	VIM_LLDB_LOGGING_CONTEXT = "VIM_LLDB_LOGGING_CONTEXT"
)

func NewVersionCommand(log logr.Logger, flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Prints version information",
		Long:  `Prints version information, including the version of the debugger that would be used, if one is found.`,
		RunE:  getVersion(log, flags),
		Args:  cobra.NoArgs,
	}
}

func getVersion(log logr.Logger, flags *rootFlags) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		log := log.WithName("version")

		out := version.Version()

		// The debugger version is informational; a missing debugger is not an error here.
		if cfg, cfgErr := flags.resolveConfig(cmd.Flags()); cfgErr == nil {
			if exe, locateErr := lldb.Locate(cfg.LLDBPath); locateErr == nil {
				if d, createErr := lldb.Create(cmd.Context(), exe, process.NewOSExecutor(log), log); createErr == nil {
					out.Debugger = d.Version()
				}
			}
		}

		versionStr, err := versionString(out)
		if err != nil {
			log.Error(err, "Could not serialize version information")
			return err
		}

		fmt.Fprintln(cmd.OutOrStdout(), versionStr)
		return nil
	}
}

func logStart(log logr.Logger, programStartMsg string) func(_ *cobra.Command, _ []string) {
	return func(_ *cobra.Command, _ []string) {
		versionStr, err := versionString(version.Version())
		if err != nil {
			versionStr = fmt.Sprintf("unknown: %v", err)
		}

		launchPath, pathErr := os.Executable()
		if pathErr != nil {
			launchPath = os.Args[0]
		}

		log.V(1).Info(programStartMsg,
			"PID", os.Getpid(),
			"Exe", launchPath,
			"Args", os.Args[1:],
			"Version", versionStr,
		)

		logContext, found := os.LookupEnv(VIM_LLDB_LOGGING_CONTEXT)
		if found && len(logContext) > 0 {
			log.V(1).Info(logContext)
		}
	}
}

func versionString(v version.VersionOutput) (string, error) {
	if b, err := json.Marshal(v); err != nil {
		return "", err
	} else {
		return string(b), nil
	}
}
