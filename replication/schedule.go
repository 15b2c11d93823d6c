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

package replication

import "regexp"

// Schedule is a replication update schedule in directory server syntax:
// a HHMM-HHMM window followed by the weekday digits it applies to.
type Schedule string

const (
	// ScheduleAlways keeps the agreement replicating around the clock,
	// every day of the week.
	ScheduleAlways Schedule = "0000-2359 0123456"

	// scheduleNudge is a narrow sunday-only window. Writing it and then
	// restoring the previous schedule tricks the server into starting an
	// incremental session immediately.
	scheduleNudge Schedule = "2358-2359 0"

	// scheduleNudgeAlt is the fallback window for agreements that
	// already run on scheduleNudge.
	scheduleNudgeAlt Schedule = "2358-2359 1"
)

var schedulePattern = regexp.MustCompile(`^[0-9]{4}-[0-9]{4} [0-6]{1,7}$`)

// String implements fmt.Stringer.
func (s Schedule) String() string {
	return string(s)
}

// Valid reports whether the schedule is well formed.
func (s Schedule) Valid() bool {
	return schedulePattern.MatchString(string(s))
}

// Nudge returns a schedule different from s that can be written and
// reverted to force an immediate replication session.
func (s Schedule) Nudge() Schedule {
	if s == scheduleNudge {
		return scheduleNudgeAlt
	}
	return scheduleNudge
}
