/*---------------------------------------------------------------------------------------------
 *  Copyright (c) Microsoft Corporation. All rights reserved.
 *  Licensed under the MIT License. See LICENSE in the project root for license information.
 *--------------------------------------------------------------------------------------------*/

//go:build !windows

package commands

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/microsoft/vim-lldb/internal/lldb"
	"github.com/microsoft/vim-lldb/internal/testutil"
	"github.com/microsoft/vim-lldb/internal/version"
	"github.com/microsoft/vim-lldb/pkg/logger"
)

const waitTimeout = 10 * time.Second

var fakeLLDB string

func TestMain(m *testing.M) {
	dir, err := os.MkdirTemp("", "vim-lldb-commands-test-")
	if err == nil {
		fakeLLDB, err = testutil.WriteFakeLLDB(dir)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	code := m.Run()
	_ = os.RemoveAll(dir)
	os.Exit(code)
}

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// Runs the root command with the given arguments and returns what it printed to standard output.
func execute(t *testing.T, ctx context.Context, in io.Reader, out io.Writer, args ...string) error {
	t.Helper()

	root, err := NewRootCmd(logger.NewWithWriter("test", io.Discard))
	require.NoError(t, err)
	root.SetArgs(args)
	root.SetOut(out)
	root.SetErr(io.Discard)
	if in != nil {
		root.SetIn(in)
	}
	return root.ExecuteContext(ctx)
}

// Writes a configuration file (and an .env file next to it) so that tests do not depend on the user configuration.
func writeConfig(t *testing.T, content string) string {
	t.Helper()

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "test.env"), []byte("FAKE_LLDB_ECHO_ENV=from-config-env\n"), 0600))
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestUnknownFlagPrintsUsage(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	err := execute(t, context.Background(), nil, &out, "--bogus")
	require.ErrorIs(t, err, ErrUsage)
	require.Equal(t, UsageLine+"\n", out.String())
	require.Equal(t, 1, ExitCode(err, 1))
}

func TestRunAttachesTerminals(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	inPath := filepath.Join(dir, "in")
	outPath := filepath.Join(dir, "out")
	require.NoError(t, os.WriteFile(inPath, []byte("frame info\nquit\n"), 0600))
	cfgPath := writeConfig(t, "prompt: \"(cfg) \"\nenvFiles:\n  - test.env\n")

	var stdout bytes.Buffer
	err := execute(t, context.Background(), nil, &stdout,
		"-i", inPath, "-o", outPath, "-e", filepath.Join(dir, "err"),
		"--config", cfgPath, "--lldb", fakeLLDB,
		"--one-line", "bt", "--no-color",
		"--", "./a.out", "x",
	)
	require.NoError(t, err)
	require.Empty(t, stdout.String())

	content, err := os.ReadFile(outPath)
	require.NoError(t, err)
	output := string(content)
	require.Contains(t, output, "arg: settings set prompt \"(cfg) \"\n")
	require.Contains(t, output, "arg: --no-use-colors\n")
	require.Contains(t, output, "arg: --one-line\narg: bt\n")
	require.Contains(t, output, "arg: --\narg: ./a.out\narg: x\n")
	require.Contains(t, output, "env: from-config-env\n")
	require.Contains(t, output, "\nframe info\n")
	require.Contains(t, output, "err: frame info\n")
	require.NoFileExists(t, filepath.Join(dir, "err"))
}

func TestPromptFlagOverridesConfig(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	inPath := filepath.Join(dir, "in")
	outPath := filepath.Join(dir, "out")
	require.NoError(t, os.WriteFile(inPath, []byte("quit\n"), 0600))
	cfgPath := writeConfig(t, "prompt: \"(cfg) \"\n")

	err := execute(t, context.Background(), nil, io.Discard,
		"-i", inPath, "-o", outPath, "--config", cfgPath, "--lldb", fakeLLDB, "--prompt", "(flag) ")
	require.NoError(t, err)

	content, err := os.ReadFile(outPath)
	require.NoError(t, err)
	require.Contains(t, string(content), "arg: settings set prompt \"(flag) \"\n")
	require.NotContains(t, string(content), "(cfg)")
}

func TestDebuggerExitCodeIsPropagated(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	inPath := filepath.Join(dir, "in")
	require.NoError(t, os.WriteFile(inPath, []byte("exit 5\n"), 0600))

	err := execute(t, context.Background(), nil, io.Discard,
		"-i", inPath, "-o", filepath.Join(dir, "out"), "--config", writeConfig(t, ""), "--lldb", fakeLLDB)
	require.Error(t, err)
	require.Equal(t, 5, ExitCode(err, 1))
}

func TestMissingDebugger(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	err := execute(t, context.Background(), nil, &out,
		"--config", writeConfig(t, ""), "--lldb", filepath.Join(t.TempDir(), "lldb"))
	require.ErrorIs(t, err, lldb.ErrInvalidDebugger)
	require.Equal(t, "could not create a valid debugger\n", out.String())
	require.Equal(t, 1, ExitCode(err, 1))
}

func TestMissingInputTerminal(t *testing.T) {
	t.Parallel()

	err := execute(t, context.Background(), nil, io.Discard,
		"-i", filepath.Join(t.TempDir(), "missing"), "--config", writeConfig(t, ""), "--lldb", fakeLLDB)
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestInvalidConfigFile(t *testing.T) {
	t.Parallel()

	err := execute(t, context.Background(), nil, io.Discard,
		"--config", writeConfig(t, "prompt: [unterminated"), "--lldb", fakeLLDB)
	require.Error(t, err)
	require.Contains(t, err.Error(), "is invalid")
}

func TestPythonPathCommand(t *testing.T) {
	pyDir := t.TempDir()
	t.Setenv(testutil.FakeLLDBPythonPathEnv, pyDir)

	var out bytes.Buffer
	err := execute(t, context.Background(), nil, &out, "python-path", "--config", writeConfig(t, ""), "--lldb", fakeLLDB)
	require.NoError(t, err)
	require.Equal(t, pyDir+"\n", out.String())
}

func TestVersionCommand(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	err := execute(t, context.Background(), nil, &out, "version", "--config", writeConfig(t, ""), "--lldb", fakeLLDB)
	require.NoError(t, err)

	require.True(t, gjson.Valid(out.String()), "version output is not JSON: %q", out.String())
	parsed := gjson.Parse(out.String())
	require.Equal(t, version.DevelopmentVersion, parsed.Get("version").String())
	require.Equal(t, testutil.FakeLLDBVersion, parsed.Get("debugger").String())
}

func TestVersionCommandWithoutDebugger(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	err := execute(t, context.Background(), nil, &out, "version", "--config", writeConfig(t, ""), "--lldb", filepath.Join(t.TempDir(), "lldb"))
	require.NoError(t, err)
	require.False(t, gjson.Get(out.String(), "debugger").Exists())
}

func TestServeAndConnect(t *testing.T) {
	t.Parallel()

	cfgPath := writeConfig(t, "")
	serveCtx, cancelServe := context.WithCancel(context.Background())
	defer cancelServe()

	serveOut := &syncBuffer{}
	serveResult := make(chan error, 1)
	go func() {
		serveResult <- execute(t, serveCtx, nil, serveOut, "serve", "--config", cfgPath, "--lldb", fakeLLDB, "--listen", "127.0.0.1:0")
	}()

	var addr string
	require.Eventually(t, func() bool {
		line, found := strings.CutPrefix(serveOut.String(), "Listening on ")
		if found && strings.HasSuffix(line, "\n") {
			addr = strings.TrimSpace(line)
			return true
		}
		return false
	}, waitTimeout, 10*time.Millisecond)

	inR, inW := io.Pipe()
	connectOut := &syncBuffer{}
	connectResult := make(chan error, 1)
	go func() {
		connectResult <- execute(t, context.Background(), inR, connectOut, "connect", "--config", cfgPath, "--addr", addr)
	}()

	// The session may not be subscribed to the output yet when the first command is sent,
	// so keep sending until the echo comes back.
	require.Eventually(t, func() bool {
		if _, err := io.WriteString(inW, "frame info\n"); err != nil {
			return false
		}
		return strings.Contains(connectOut.String(), "err: frame info\n")
	}, waitTimeout, 50*time.Millisecond)
	require.True(t, strings.HasPrefix(connectOut.String(), "(lldb) "))

	require.NoError(t, inW.Close())
	select {
	case err := <-connectResult:
		require.NoError(t, err)
	case <-time.After(waitTimeout):
		require.FailNow(t, "connect command did not finish")
	}

	cancelServe()
	select {
	case err := <-serveResult:
		require.NoError(t, err)
	case <-time.After(waitTimeout):
		require.FailNow(t, "serve command did not finish")
	}
}

func TestExitCode(t *testing.T) {
	t.Parallel()

	require.Equal(t, 2, ExitCode(errors.New("setup failed"), 2))
	require.Equal(t, 7, ExitCode(fmt.Errorf("wrapped: %w", &lldb.ExitError{Code: 7}), 1))
	require.Equal(t, 1, ExitCode(&lldb.ExitError{Code: -1}, 1))
}
