/*---------------------------------------------------------------------------------------------
 *  Copyright (c) Microsoft Corporation. All rights reserved.
 *  Licensed under the MIT License. See LICENSE in the project root for license information.
 *--------------------------------------------------------------------------------------------*/

package logger

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/go-logr/logr"
	"github.com/go-logr/zapr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/microsoft/vim-lldb/internal/resiliency"
	"github.com/microsoft/vim-lldb/pkg/osutil"
)

const (
	VIM_LLDB_DIAGNOSTICS_LOG_FOLDER = "VIM_LLDB_DIAGNOSTICS_LOG_FOLDER" // Folder to write diagnostics logs to (defaults to a temp folder)
	VIM_LLDB_DIAGNOSTICS_LOG_LEVEL  = "VIM_LLDB_DIAGNOSTICS_LOG_LEVEL"  // Log level to include in diagnostics logs (defaults to none)

	// The console usually is the terminal the debugger is attached to, so only warnings and errors are shown there by default.
	DefaultConsoleLevel = zapcore.WarnLevel
)

var defaultDiagnosticsFolder = filepath.Join(os.TempDir(), "vim-lldb", "logs")

// Options describe where log entries go.
type Options struct {
	// Used for the diagnostics log file name.
	Name string

	// Human-readable log output. Nothing is written to the console if nil.
	Console      io.Writer
	ConsoleLevel zapcore.Level

	// Machine-readable (JSON) log file, written only if DiagnosticsLevel is set.
	DiagnosticsFolder string
	DiagnosticsLevel  *zapcore.Level
}

// OptionsFromEnvironment returns options for console logging to `console`,
// with the diagnostics log enabled by the VIM_LLDB_DIAGNOSTICS_LOG_* environment variables.
func OptionsFromEnvironment(name string, console io.Writer) (Options, error) {
	opts := Options{
		Name:              name,
		Console:           console,
		ConsoleLevel:      DefaultConsoleLevel,
		DiagnosticsFolder: defaultDiagnosticsFolder,
	}

	if folder, found := os.LookupEnv(VIM_LLDB_DIAGNOSTICS_LOG_FOLDER); found && folder != "" {
		opts.DiagnosticsFolder = folder
	}

	levelStr, found := os.LookupEnv(VIM_LLDB_DIAGNOSTICS_LOG_LEVEL)
	if !found || levelStr == "" {
		return opts, nil
	}
	level, err := ParseLevel(levelStr)
	if err != nil {
		return opts, fmt.Errorf("%s is invalid: %w", VIM_LLDB_DIAGNOSTICS_LOG_LEVEL, err)
	}
	opts.DiagnosticsLevel = &level
	return opts, nil
}

type Logger struct {
	logr.Logger
	consoleLevel    zap.AtomicLevel
	diagnosticsFile string
	flush           func()
}

// New creates a logger that writes to stderr, plus the diagnostics log if the environment enables it.
func New(name string) *Logger {
	return NewWithWriter(name, os.Stderr)
}

func NewWithWriter(name string, w io.Writer) *Logger {
	opts, optsErr := OptionsFromEnvironment(name, w)
	log := NewWithOptions(opts)
	if optsErr != nil {
		log.Error(optsErr, "Diagnostics log is disabled")
	}
	return log
}

func NewWithOptions(opts Options) *Logger {
	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	if runtime.GOOS == "windows" {
		encoderConfig.LineEnding = string(osutil.CRLF())
	}

	l := &Logger{consoleLevel: zap.NewAtomicLevelAt(opts.ConsoleLevel)}
	cores := []zapcore.Core{}
	syncers := []func() error{}

	if opts.Console != nil {
		console := zapcore.Lock(zapcore.AddSync(opts.Console))
		cores = append(cores, zapcore.NewCore(zapcore.NewConsoleEncoder(encoderConfig), console, l.consoleLevel))
	}

	var diagnosticsErr error
	if opts.DiagnosticsLevel != nil {
		file, err := createDiagnosticsFile(opts.DiagnosticsFolder, opts.Name)
		if err != nil {
			diagnosticsErr = err
		} else {
			l.diagnosticsFile = file.Name()
			cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(encoderConfig), file, zap.NewAtomicLevelAt(*opts.DiagnosticsLevel)))
			syncers = append(syncers, file.Sync)
		}
	}

	zapLogger := zap.New(zapcore.NewTee(cores...))
	l.Logger = zapr.NewLogger(zapLogger)
	l.flush = func() {
		_ = zapLogger.Sync()
		for _, s := range syncers {
			_ = s()
		}
	}

	if diagnosticsErr != nil {
		l.Error(diagnosticsErr, "Diagnostics log could not be created")
	}
	return l
}

// WithName adds a name segment to the logger. Unlike logr.Logger.WithName, it modifies the receiver.
func (l *Logger) WithName(name string) *Logger {
	l.Logger = l.Logger.WithName(name)
	return l
}

func (l *Logger) SetConsoleLevel(level zapcore.Level) {
	l.consoleLevel.SetLevel(level)
}

func (l *Logger) ConsoleLevel() zapcore.Level {
	return l.consoleLevel.Level()
}

// DiagnosticsFile returns the path of the diagnostics log file, or an empty string if there is none.
func (l *Logger) DiagnosticsFile() string {
	return l.diagnosticsFile
}

func (l *Logger) Flush() {
	l.flush()
}

// The file name includes a millisecond timestamp and the PID. Another instance started at the same time
// may still have picked the same name, so creating the file is retried with a fresh timestamp.
func createDiagnosticsFile(folder, name string) (*os.File, error) {
	if err := ensureFolder(folder); err != nil {
		return nil, err
	}

	b := backoff.NewExponentialBackOff(
		backoff.WithInitialInterval(20*time.Millisecond),
		backoff.WithMaxInterval(100*time.Millisecond),
		backoff.WithMaxElapsedTime(2*time.Second),
	)
	file, err := resiliency.RetryGet(context.Background(), b, func() (*os.File, error) {
		fileName := fmt.Sprintf("%s-%s-%d.log", name, time.Now().Format("20060102T150405.000"), os.Getpid())
		return os.OpenFile(filepath.Join(folder, fileName), os.O_WRONLY|os.O_CREATE|os.O_EXCL, osutil.PermissionOnlyOwnerReadWrite)
	})
	if err != nil {
		return nil, fmt.Errorf("could not create diagnostics log file in '%s': %w", folder, err)
	}
	return file, nil
}

func ensureFolder(folder string) error {
	info, err := os.Stat(folder)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		if err = os.MkdirAll(folder, osutil.PermissionOnlyOwnerReadWriteTraverse); err != nil {
			return fmt.Errorf("could not create diagnostics log folder '%s': %w", folder, err)
		}
		return nil
	case err != nil:
		return fmt.Errorf("could not access diagnostics log folder '%s': %w", folder, err)
	case !info.IsDir():
		return fmt.Errorf("'%s' is not a directory and cannot be used as diagnostics log folder", folder)
	default:
		return nil
	}
}
