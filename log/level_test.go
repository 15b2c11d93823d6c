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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLevelString(t *testing.T) {
	assert.Equal(t, "info", InfoLevel.String())
	assert.Equal(t, "warning", WarningLevel.String())
	assert.Equal(t, "error", ErrorLevel.String())
	assert.Equal(t, "fatal", FatalLevel.String())
	assert.Equal(t, "debug", DebugLevel.String())
	assert.Equal(t, "disabled", Disabled.String())
	assert.Equal(t, "", Level(42).String())
}

func TestParseLevel(t *testing.T) {
	testCases := []struct {
		text     string
		expected Level
	}{
		{text: "info", expected: InfoLevel},
		{text: "", expected: InfoLevel},
		{text: "WARNING", expected: WarningLevel},
		{text: "warn", expected: WarningLevel},
		{text: "error", expected: ErrorLevel},
		{text: "fatal", expected: FatalLevel},
		{text: "Debug", expected: DebugLevel},
		{text: "off", expected: Disabled},
	}
	for _, testCase := range testCases {
		level, err := ParseLevel(testCase.text)
		require.NoError(t, err)
		assert.Equal(t, testCase.expected, level)
	}

	_, err := ParseLevel("shouting")
	assert.Error(t, err)
}
