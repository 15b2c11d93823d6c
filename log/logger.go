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

// Package log defines the logging contract used across the project together
// with a zap-backed implementation of it. Components take a Logger instead
// of a concrete type so tests can run silent and embedders can plug their
// own logging stack in.
package log

import "io"

// Logger is the project wide logging contract.
type Logger interface {
	// Debug logs a message at the debug level.
	Debug(v ...any)
	// Debugf logs a formatted message at the debug level.
	Debugf(format string, v ...any)
	// Info logs a message at the info level.
	Info(v ...any)
	// Infof logs a formatted message at the info level.
	Infof(format string, v ...any)
	// Warn logs a message at the warning level.
	Warn(v ...any)
	// Warnf logs a formatted message at the warning level.
	Warnf(format string, v ...any)
	// Error logs a message at the error level.
	Error(v ...any)
	// Errorf logs a formatted message at the error level.
	Errorf(format string, v ...any)
	// Fatal logs a message at the fatal level and stops the process.
	Fatal(v ...any)
	// Fatalf logs a formatted message at the fatal level and stops the process.
	Fatalf(format string, v ...any)
	// LogLevel returns the level the logger was built with.
	LogLevel() Level
	// LogOutput returns the sinks the logger writes to.
	LogOutput() []io.Writer
}
