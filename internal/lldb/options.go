/*---------------------------------------------------------------------------------------------
 *  Copyright (c) Microsoft Corporation. All rights reserved.
 *  Licensed under the MIT License. See LICENSE in the project root for license information.
 *--------------------------------------------------------------------------------------------*/

package lldb

import (
	"fmt"
	"strconv"

	"github.com/microsoft/vim-lldb/internal/config"
)

// RunOptions control how the debugger's command interpreter behaves.
// The interactive driver always prints command results, handles process events
// and keeps going after a crash or a continue, so those do not need options here.
type RunOptions struct {
	Prompt string

	// Echo commands read from files and from the one-line options before running them.
	EchoCommands        bool
	EchoCommentCommands bool

	// Stop sourcing a command file at the first command that fails.
	StopOnError bool

	NoColor    bool
	NoLLDBInit bool

	// Commands run before the target is loaded (-O), after default settings are applied.
	PreTargetCommands []string

	// Command files sourced after the target is loaded (-s).
	SourceFiles []string

	// Commands run after the target is loaded (-o).
	OneLineCommands []string

	// Program to debug, and its arguments.
	Target     string
	TargetArgs []string
}

func DefaultRunOptions() RunOptions {
	return RunOptions{
		Prompt:       config.DefaultPrompt,
		EchoCommands: true,
		StopOnError:  false,
	}
}

// RunOptionsFromConfig returns run options initialized from the configuration file values.
func RunOptionsFromConfig(cfg *config.Config) RunOptions {
	opts := DefaultRunOptions()
	if cfg == nil {
		return opts
	}

	opts.Prompt = cfg.Prompt
	opts.EchoCommands = cfg.EchoCommands
	opts.StopOnError = cfg.StopOnError
	opts.NoColor = cfg.NoColor
	opts.NoLLDBInit = cfg.NoLLDBInit
	opts.SourceFiles = append([]string(nil), cfg.SourceFiles...)
	opts.OneLineCommands = append([]string(nil), cfg.OneLineCommands...)
	return opts
}

// Args translates the options to lldb driver command line arguments.
func (o RunOptions) Args() []string {
	args := []string{}

	if o.NoLLDBInit {
		args = append(args, "--no-lldbinit")
	}
	if o.NoColor {
		args = append(args, "--no-use-colors")
	}

	settings := []string{}
	if o.Prompt != "" {
		settings = append(settings, "prompt "+strconv.Quote(o.Prompt))
	}
	settings = append(settings,
		fmt.Sprintf("interpreter.echo-commands %t", o.EchoCommands),
		fmt.Sprintf("interpreter.echo-comment-commands %t", o.EchoCommentCommands),
		fmt.Sprintf("interpreter.stop-command-source-on-error %t", o.StopOnError),
	)
	for _, s := range settings {
		args = append(args, "--one-line-before-file", "settings set "+s)
	}

	for _, c := range o.PreTargetCommands {
		args = append(args, "--one-line-before-file", c)
	}
	for _, f := range o.SourceFiles {
		args = append(args, "--source", f)
	}
	for _, c := range o.OneLineCommands {
		args = append(args, "--one-line", c)
	}

	if o.Target != "" {
		args = append(args, "--", o.Target)
		args = append(args, o.TargetArgs...)
	}

	return args
}
