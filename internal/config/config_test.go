/*---------------------------------------------------------------------------------------------
 *  Copyright (c) Microsoft Corporation. All rights reserved.
 *  Licensed under the MIT License. See LICENSE in the project root for license information.
 *--------------------------------------------------------------------------------------------*/

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadMissingDefaultFileUsesDefaults(t *testing.T) {
	t.Setenv(VIM_LLDB_CONFIG, filepath.Join(t.TempDir(), "nope.yaml"))

	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, Default(), cfg)
}

func TestLoadMissingExplicitFileFails(t *testing.T) {
	t.Parallel()

	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoadOverridesDefaults(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
lldb: /opt/llvm/bin/lldb
prompt: "(dbg) "
echoCommands: false
noColor: true
source:
  - breakpoints.lldb
  - /abs/commands.lldb
envFiles:
  - debug.env
listen: 127.0.0.1:7000
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))

	cfg, err := Load(path)
	require.NoError(t, err)

	require.Equal(t, "/opt/llvm/bin/lldb", cfg.LLDBPath)
	require.Equal(t, "(dbg) ", cfg.Prompt)
	require.False(t, cfg.EchoCommands)
	require.True(t, cfg.NoColor)
	require.False(t, cfg.StopOnError)
	require.Equal(t, []string{filepath.Join(dir, "breakpoints.lldb"), "/abs/commands.lldb"}, cfg.SourceFiles)
	require.Equal(t, []string{filepath.Join(dir, "debug.env")}, cfg.EnvFiles)
	require.Equal(t, "127.0.0.1:7000", cfg.ListenAddress)
	require.Equal(t, DefaultTapiPrefix, cfg.TapiPrefix, "values absent from the file keep their defaults")
}

func TestLoadInvalidYaml(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("prompt: [unterminated"), 0600))

	_, err := Load(path)
	require.Error(t, err)
}

func TestEnvironmentFromEnvFiles(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	first := filepath.Join(dir, "a.env")
	second := filepath.Join(dir, "b.env")
	require.NoError(t, os.WriteFile(first, []byte("ZED=last\nLLDB_DEBUGSERVER_PATH=/usr/bin/debugserver\n"), 0600))
	require.NoError(t, os.WriteFile(second, []byte("# comment\nALPHA=\"quoted value\"\n"), 0600))

	cfg := Default()
	env, err := cfg.Environment()
	require.NoError(t, err)
	require.Empty(t, env)

	cfg.EnvFiles = []string{first, second}
	env, err = cfg.Environment()
	require.NoError(t, err)
	require.Equal(t, []string{
		"ALPHA=quoted value",
		"LLDB_DEBUGSERVER_PATH=/usr/bin/debugserver",
		"ZED=last",
	}, env)

	cfg.EnvFiles = []string{filepath.Join(dir, "missing.env")}
	_, err = cfg.Environment()
	require.Error(t, err)
}
