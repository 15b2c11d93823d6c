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

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorWrapping(t *testing.T) {
	cause := errors.New("connection reset")

	testCases := []struct {
		name     string
		err      error
		sentinel error
		contains string
	}{
		{
			name:     "peer unavailable",
			err:      NewErrPeerUnavailable("ds2.example.com", cause),
			sentinel: ErrPeerUnavailable,
			contains: "ds2.example.com",
		},
		{
			name:     "allocation conflict",
			err:      NewErrAllocationConflict("ds2.example.com", cause),
			sentinel: ErrAllocationConflict,
			contains: "ds2.example.com",
		},
		{
			name:     "agreement not found",
			err:      NewErrAgreementNotFound("ds2.example.com"),
			sentinel: ErrAgreementNotFound,
			contains: "ds2.example.com",
		},
		{
			name:     "replica busy",
			err:      NewErrReplicaBusy("cn=meTods2.example.com,cn=config", "Error (1) replica busy"),
			sentinel: ErrReplicaBusy,
			contains: "replica busy",
		},
		{
			name:     "replication failed",
			err:      NewErrReplicationFailed("cn=meTods2.example.com,cn=config", "-11 connection refused"),
			sentinel: ErrReplicationFailed,
			contains: "connection refused",
		},
		{
			name:     "convergence timeout",
			err:      NewErrConvergenceTimeout("cn=meTods2.example.com,cn=config", 600),
			sentinel: ErrConvergenceTimeout,
			contains: "600",
		},
		{
			name:     "inconsistent topology",
			err:      NewErrInconsistentTopology(cause),
			sentinel: ErrInconsistentTopology,
			contains: "connection reset",
		},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			assert.ErrorIs(t, testCase.err, testCase.sentinel)
			assert.ErrorContains(t, testCase.err, testCase.contains)
		})
	}

	t.Run("the cause stays reachable through the join", func(t *testing.T) {
		assert.ErrorIs(t, NewErrPeerUnavailable("ds2.example.com", cause), cause)
	})
}
