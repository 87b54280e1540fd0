/*---------------------------------------------------------------------------------------------
 *  Copyright (c) Microsoft Corporation. All rights reserved.
 *  Licensed under the MIT License. See LICENSE in the project root for license information.
 *--------------------------------------------------------------------------------------------*/

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	// Name of the environment variable that points to the LLDB executable.
	LLDB = "LLDB"

	// Name of the environment variable that points to the configuration file.
	VIM_LLDB_CONFIG = "VIM_LLDB_CONFIG"

	DefaultPrompt        = "(vim-lldb) "
	DefaultListenAddress = "127.0.0.1:65400"
	DefaultTapiPrefix    = "Tapi_"

	configDirName  = "vim-lldb"
	configFileName = "config.yaml"
)

// Config holds settings that can be provided through the configuration file.
// Command line flags take precedence over values read from the file.
type Config struct {
	// Path to the LLDB executable. If empty, the LLDB environment variable and PATH are consulted.
	LLDBPath string `yaml:"lldb"`

	Prompt       string `yaml:"prompt"`
	EchoCommands bool   `yaml:"echoCommands"`
	StopOnError  bool   `yaml:"stopOnError"`
	NoColor      bool   `yaml:"noColor"`
	NoLLDBInit   bool   `yaml:"noLLDBInit"`

	// Files with debugger commands to source after the target is loaded.
	SourceFiles []string `yaml:"source"`

	// Debugger commands to run after the target is loaded.
	OneLineCommands []string `yaml:"oneLine"`

	// .env files with additional environment variables for the debugger process.
	EnvFiles []string `yaml:"envFiles"`

	// Prefix for editor functions called through the terminal API.
	TapiPrefix string `yaml:"tapiPrefix"`

	// Address the command server listens on.
	ListenAddress string `yaml:"listen"`
}

func Default() *Config {
	return &Config{
		Prompt:        DefaultPrompt,
		EchoCommands:  true,
		StopOnError:   false,
		TapiPrefix:    DefaultTapiPrefix,
		ListenAddress: DefaultListenAddress,
	}
}

// DefaultPath returns the location of the configuration file used when none is specified explicitly.
func DefaultPath() (string, error) {
	if p, found := os.LookupEnv(VIM_LLDB_CONFIG); found && p != "" {
		return p, nil
	}

	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, configDirName, configFileName), nil
}

// Load reads the configuration file at `path` on top of the defaults.
// If `path` is empty, the default location is used and a missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		defaultPath, err := DefaultPath()
		if err != nil {
			// No place to look for the configuration file, use defaults.
			return cfg, nil
		}
		path = defaultPath
	}

	content, err := os.ReadFile(path)
	if err != nil {
		if !explicit && errors.Is(err, fs.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("could not read configuration file '%s': %w", path, err)
	}

	if err = yaml.Unmarshal(content, cfg); err != nil {
		return nil, fmt.Errorf("configuration file '%s' is invalid: %w", path, err)
	}

	// Relative paths in the configuration file are relative to the file itself.
	baseDir := filepath.Dir(path)
	cfg.SourceFiles = resolvePaths(baseDir, cfg.SourceFiles)
	cfg.EnvFiles = resolvePaths(baseDir, cfg.EnvFiles)

	return cfg, nil
}

// Environment returns KEY=VALUE pairs read from the configured .env files, sorted by key.
func (c *Config) Environment() ([]string, error) {
	if len(c.EnvFiles) == 0 {
		return nil, nil
	}

	vars, err := godotenv.Read(c.EnvFiles...)
	if err != nil {
		return nil, fmt.Errorf("could not read environment files %s: %w", strings.Join(c.EnvFiles, ", "), err)
	}

	keys := make([]string, 0, len(vars))
	for k := range vars {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	env := make([]string, 0, len(keys))
	for _, k := range keys {
		env = append(env, k+"="+vars[k])
	}
	return env, nil
}

func resolvePaths(baseDir string, paths []string) []string {
	if len(paths) == 0 {
		return paths
	}

	resolved := make([]string, len(paths))
	for i, p := range paths {
		if filepath.IsAbs(p) {
			resolved[i] = p
		} else {
			resolved[i] = filepath.Join(baseDir, p)
		}
	}
	return resolved
}
