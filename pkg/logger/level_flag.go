/*---------------------------------------------------------------------------------------------
 *  Copyright (c) Microsoft Corporation. All rights reserved.
 *  Licensed under the MIT License. See LICENSE in the project root for license information.
 *--------------------------------------------------------------------------------------------*/

package logger

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/pflag"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	verbosityFlagName      = "verbosity"
	verbosityFlagShortName = "v"
)

var namedLevels = map[string]zapcore.Level{
	"debug": zapcore.DebugLevel,
	"info":  zapcore.InfoLevel,
	"warn":  zapcore.WarnLevel,
	"error": zapcore.ErrorLevel,
}

// ParseLevel accepts a level name ("debug", "info", "warn", "error") or a positive logr verbosity.
// Verbosity N enables V(N) messages, which zap represents as level -N.
func ParseLevel(value string) (zapcore.Level, error) {
	value = strings.ToLower(strings.TrimSpace(value))
	if level, isNamed := namedLevels[value]; isNamed {
		return level, nil
	}

	verbosity, err := strconv.Atoi(value)
	if err != nil || verbosity <= 0 || verbosity > 127 {
		return zapcore.InvalidLevel, fmt.Errorf("invalid log level '%s'", value)
	}
	return zapcore.Level(-verbosity), nil
}

// levelFlag sets the level of the console output when the flag is parsed.
type levelFlag struct {
	level zap.AtomicLevel
}

func (f *levelFlag) Set(value string) error {
	level, err := ParseLevel(value)
	if err != nil {
		return err
	}
	f.level.SetLevel(level)
	return nil
}

func (f *levelFlag) String() string {
	level := f.level.Level()
	if level < zapcore.DebugLevel {
		return strconv.Itoa(-int(level))
	}
	return level.String()
}

func (*levelFlag) Type() string {
	return "level"
}

var _ pflag.Value = (*levelFlag)(nil)

// AddLevelFlag adds the -v/--verbosity flag that controls the console log level.
func (l *Logger) AddLevelFlag(fs *pflag.FlagSet) {
	fs.VarP(&levelFlag{level: l.consoleLevel}, verbosityFlagName, verbosityFlagShortName,
		"Console logging level: 'debug', 'info', 'warn', 'error', or a positive number for increasingly detailed debug output.")
}
