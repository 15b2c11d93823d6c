/*
 * MIT License
 *
 * Copyright (c) 2024-2026 The FreeIPA Go Authors
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 */

package log

import (
	"io"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	// DefaultLogger logs at info level to standard error.
	DefaultLogger = New(InfoLevel, os.Stderr)
	// DebugLogger logs everything to standard error.
	DebugLogger = New(DebugLevel, os.Stderr)
	// DiscardLogger drops every message. Handy in tests.
	DiscardLogger = New(Disabled, io.Discard)
)

// enforce compilation error
var _ Logger = (*Log)(nil)

// Log is the zap backed implementation of Logger.
type Log struct {
	level   Level
	outputs []io.Writer
	logger  *zap.SugaredLogger
}

// New creates a Log writing JSON records to the given sinks at the given
// level. Without a sink it writes to standard error.
func New(level Level, writers ...io.Writer) *Log {
	if len(writers) == 0 {
		writers = []io.Writer{os.Stderr}
	}

	var zapLevel zapcore.Level
	switch level {
	case InfoLevel:
		zapLevel = zapcore.InfoLevel
	case WarningLevel:
		zapLevel = zapcore.WarnLevel
	case ErrorLevel:
		zapLevel = zapcore.ErrorLevel
	case FatalLevel:
		zapLevel = zapcore.FatalLevel
	case DebugLevel:
		zapLevel = zapcore.DebugLevel
	default:
		return &Log{
			level:   Disabled,
			outputs: writers,
			logger:  zap.NewNop().Sugar(),
		}
	}

	syncers := make([]zapcore.WriteSyncer, 0, len(writers))
	for _, writer := range writers {
		syncers = append(syncers, zapcore.AddSync(writer))
	}

	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.TimeKey = "time"
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(encoderConfig),
		zap.CombineWriteSyncers(syncers...),
		zapLevel,
	)

	return &Log{
		level:   level,
		outputs: writers,
		logger:  zap.New(core, zap.AddCaller(), zap.AddCallerSkip(1)).Sugar(),
	}
}

// Debug implements Logger.
func (l *Log) Debug(v ...any) {
	l.logger.Debug(v...)
}

// Debugf implements Logger.
func (l *Log) Debugf(format string, v ...any) {
	l.logger.Debugf(format, v...)
}

// Info implements Logger.
func (l *Log) Info(v ...any) {
	l.logger.Info(v...)
}

// Infof implements Logger.
func (l *Log) Infof(format string, v ...any) {
	l.logger.Infof(format, v...)
}

// Warn implements Logger.
func (l *Log) Warn(v ...any) {
	l.logger.Warn(v...)
}

// Warnf implements Logger.
func (l *Log) Warnf(format string, v ...any) {
	l.logger.Warnf(format, v...)
}

// Error implements Logger.
func (l *Log) Error(v ...any) {
	l.logger.Error(v...)
}

// Errorf implements Logger.
func (l *Log) Errorf(format string, v ...any) {
	l.logger.Errorf(format, v...)
}

// Fatal implements Logger.
func (l *Log) Fatal(v ...any) {
	l.logger.Fatal(v...)
}

// Fatalf implements Logger.
func (l *Log) Fatalf(format string, v ...any) {
	l.logger.Fatalf(format, v...)
}

// LogLevel implements Logger.
func (l *Log) LogLevel() Level {
	return l.level
}

// LogOutput implements Logger.
func (l *Log) LogOutput() []io.Writer {
	return l.outputs
}
