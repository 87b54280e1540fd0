/*---------------------------------------------------------------------------------------------
 *  Copyright (c) Microsoft Corporation. All rights reserved.
 *  Licensed under the MIT License. See LICENSE in the project root for license information.
 *--------------------------------------------------------------------------------------------*/

package commands

import (
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/go-logr/logr"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/microsoft/vim-lldb/internal/config"
	"github.com/microsoft/vim-lldb/internal/lldb"
	"github.com/microsoft/vim-lldb/internal/vim"
	"github.com/microsoft/vim-lldb/pkg/logger"
	"github.com/microsoft/vim-lldb/pkg/process"
)

const (
	UsageLine = "usage: vim-lldb -i inputfile -o outputfile -e errorfile"

	inputFlagName       = "input"
	outputFlagName      = "output"
	errorFlagName       = "error"
	lldbFlagName        = "lldb"
	configFlagName      = "config"
	envFileFlagName     = "env-file"
	promptFlagName      = "prompt"
	sourceFlagName      = "source"
	oneLineFlagName     = "one-line"
	noLLDBInitFlagName  = "no-lldbinit"
	noColorFlagName     = "no-color"
	stopOnErrorFlagName = "stop-on-error"
)

var ErrUsage = errors.New("invalid command line")

// Values of the flags shared by the root command and its subcommands.
type rootFlags struct {
	inputPath   string
	outputPath  string
	errorPath   string
	lldbPath    string
	configPath  string
	envFiles    []string
	prompt      string
	sourceFiles []string
	oneLine     []string
	noLLDBInit  bool
	noColor     bool
	stopOnError bool
}

func NewRootCmd(log *logger.Logger) (*cobra.Command, error) {
	flags := &rootFlags{}

	rootCmd := &cobra.Command{
		Use:   "vim-lldb [-i inputfile] [-o outputfile] [-e errorfile] [flags] [-- target [args...]]",
		Short: "Runs the LLDB command interpreter attached to editor terminal windows",
		Long: `Runs the LLDB command interpreter with its input and output bound to terminal devices
of an editor (such as Vim terminal windows).

Debugger output can be forwarded to the editor through the terminal API, and a single
debugger can be shared by several clients with the "serve" and "connect" commands.`,
		RunE:             runDebugger(log.Logger, flags),
		PersistentPreRun: logStart(log.Logger, "vim-lldb starting..."),
		Args:             cobra.ArbitraryArgs,
		SilenceErrors:    true,
		SilenceUsage:     true,
	}

	rootCmd.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		fmt.Fprintln(cmd.OutOrStdout(), UsageLine)
		return fmt.Errorf("%w: %w", ErrUsage, err)
	})

	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&flags.inputPath, inputFlagName, "i", "", "Path to the terminal device the debugger reads commands from.")
	pf.StringVarP(&flags.outputPath, outputFlagName, "o", "", "Path to the terminal device the debugger writes output to.")
	pf.StringVarP(&flags.errorPath, errorFlagName, "e", "", "Path to the terminal device for error output. Accepted for compatibility; error output goes to the output terminal.")
	pf.StringVar(&flags.lldbPath, lldbFlagName, "", "Path to the LLDB executable. Defaults to the LLDB environment variable, then 'lldb' on the PATH.")
	pf.StringVar(&flags.configPath, configFlagName, "", "Path to the configuration file. Defaults to the "+config.VIM_LLDB_CONFIG+" environment variable, then the user configuration directory.")
	pf.StringArrayVar(&flags.envFiles, envFileFlagName, nil, "A .env file with environment variables for the debugger process. Can be repeated.")
	pf.StringVar(&flags.prompt, promptFlagName, config.DefaultPrompt, "The debugger prompt.")
	pf.StringArrayVarP(&flags.sourceFiles, sourceFlagName, "s", nil, "A file with debugger commands to run after the target is loaded. Can be repeated.")
	pf.StringArrayVar(&flags.oneLine, oneLineFlagName, nil, "A debugger command to run after the target is loaded. Can be repeated.")
	pf.BoolVar(&flags.noLLDBInit, noLLDBInitFlagName, false, "Do not read the .lldbinit files.")
	pf.BoolVar(&flags.noColor, noColorFlagName, false, "Do not use colors in debugger output.")
	pf.BoolVar(&flags.stopOnError, stopOnErrorFlagName, false, "Stop running sourced commands after the first error.")
	log.AddLevelFlag(pf)

	rootCmd.AddCommand(
		NewServeCommand(log.Logger, flags),
		NewConnectCommand(log.Logger, flags),
		NewPythonPathCommand(log.Logger, flags),
		NewVersionCommand(log.Logger, flags),
	)

	return rootCmd, nil
}

func runDebugger(log logr.Logger, flags *rootFlags) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		log := log.WithName("run")

		if flags.errorPath != "" {
			log.V(1).Info("Error terminal is not used, error output goes to the output terminal", "Path", flags.errorPath)
		}

		// Interrupts reach the debugger too; it uses them to stop the debuggee.
		interrupts := make(chan os.Signal, 1)
		signal.Notify(interrupts, os.Interrupt)
		defer signal.Stop(interrupts)

		terminal := vim.NewTerminal()
		defer func() {
			if closeErr := terminal.Close(); closeErr != nil {
				log.V(1).Info("Could not close the terminals", "Error", closeErr.Error())
			}
		}()

		if err := openTerminals(terminal, flags, log); err != nil {
			return err
		}

		cfg, err := flags.resolveConfig(cmd.Flags())
		if err != nil {
			return err
		}

		d, err := createDebugger(cmd, cfg, log)
		if err != nil {
			return err
		}

		if in, isSet := terminal.TTYIn(); isSet {
			d.SetInputFileHandle(in)
		}
		if out, isSet := terminal.TTYOut(); isSet {
			d.SetOutputFileHandle(out)
			d.SetErrorFileHandle(out)
		}

		return d.RunCommandInterpreter(cmd.Context(), runOptions(cfg, args))
	}
}

func openTerminals(terminal *vim.Terminal, flags *rootFlags, log logr.Logger) error {
	if flags.inputPath != "" {
		if err := terminal.SetTTY(vim.FdInput, flags.inputPath); err != nil {
			return err
		}
		if in, _ := terminal.TTYIn(); !vim.IsTerminal(in) {
			log.V(1).Info("Input is not a terminal device", "Path", flags.inputPath)
		}
	}

	if flags.outputPath != "" {
		if err := terminal.SetTTY(vim.FdOutput, flags.outputPath); err != nil {
			return err
		}
		if out, _ := terminal.TTYOut(); !vim.IsTerminal(out) {
			log.V(1).Info("Output is not a terminal device", "Path", flags.outputPath)
		}
	}

	return nil
}

// resolveConfig loads the configuration file and applies the flags that were set explicitly on top of it.
func (f *rootFlags) resolveConfig(fs *pflag.FlagSet) (*config.Config, error) {
	cfg, err := config.Load(f.configPath)
	if err != nil {
		return nil, err
	}

	if fs.Changed(lldbFlagName) {
		cfg.LLDBPath = f.lldbPath
	}
	if fs.Changed(promptFlagName) {
		cfg.Prompt = f.prompt
	}
	if fs.Changed(noLLDBInitFlagName) {
		cfg.NoLLDBInit = f.noLLDBInit
	}
	if fs.Changed(noColorFlagName) {
		cfg.NoColor = f.noColor
	}
	if fs.Changed(stopOnErrorFlagName) {
		cfg.StopOnError = f.stopOnError
	}
	cfg.SourceFiles = append(cfg.SourceFiles, f.sourceFiles...)
	cfg.OneLineCommands = append(cfg.OneLineCommands, f.oneLine...)
	cfg.EnvFiles = append(cfg.EnvFiles, f.envFiles...)

	return cfg, nil
}

// createDebugger locates and verifies the debugger and binds the environment from the configured .env files.
func createDebugger(cmd *cobra.Command, cfg *config.Config, log logr.Logger) (*lldb.Debugger, error) {
	exe, err := lldb.Locate(cfg.LLDBPath)
	if err == nil {
		var d *lldb.Debugger
		d, err = lldb.Create(cmd.Context(), exe, process.NewOSExecutor(log), log)
		if err == nil {
			env, envErr := cfg.Environment()
			if envErr != nil {
				return nil, envErr
			}
			d.SetEnv(env)
			return d, nil
		}
	}

	fmt.Fprintln(cmd.OutOrStdout(), lldb.ErrInvalidDebugger.Error())
	log.Error(err, "Debugger could not be created", "LLDBPath", cfg.LLDBPath)
	if !errors.Is(err, lldb.ErrInvalidDebugger) {
		err = fmt.Errorf("%w: %w", lldb.ErrInvalidDebugger, err)
	}
	return nil, err
}

func runOptions(cfg *config.Config, args []string) lldb.RunOptions {
	opts := lldb.RunOptionsFromConfig(cfg)
	if len(args) > 0 {
		opts.Target = args[0]
		opts.TargetArgs = args[1:]
	}
	return opts
}
