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
	"fmt"
)

var (
	// ErrPeerUnavailable is returned when a replica identifier cannot be
	// read from the peer that is supposed to hand them out.
	ErrPeerUnavailable = errors.New("replica identifier pool unavailable on peer")

	// ErrAllocationConflict is returned when the peer rejects the
	// identifier counter update after handing out a value.
	ErrAllocationConflict = errors.New("peer rejected the identifier counter update")

	// ErrAgreementNotFound is returned when no replication agreement
	// toward the given host exists.
	ErrAgreementNotFound = errors.New("replication agreement not found")

	// ErrReplicaBusy is returned when a total update cannot start because
	// the remote replica is owned by another operation.
	ErrReplicaBusy = errors.New("replica is busy")

	// ErrReplicationFailed is returned when the directory server reports
	// a failed initialization or incremental update.
	ErrReplicationFailed = errors.New("replication failed")

	// ErrConvergenceTimeout is returned when the bounded update poll
	// exhausts its attempt budget without reaching a terminal state.
	ErrConvergenceTimeout = errors.New("timed out waiting for replication to converge")

	// ErrInconsistentTopology is returned by forced teardown when one or
	// more cleanup stages failed after all of them were attempted.
	ErrInconsistentTopology = errors.New("topology cleanup left inconsistent state")

	// ErrSelfRemoval is returned when a node is asked to tear itself down.
	ErrSelfRemoval = errors.New("a replica cannot clean itself up")
)

// NewErrPeerUnavailable returns an ErrPeerUnavailable for the given peer.
func NewErrPeerUnavailable(host string, err error) error {
	return errors.Join(fmt.Errorf("peer=%s: %w", host, ErrPeerUnavailable), err)
}

// NewErrAllocationConflict returns an ErrAllocationConflict for the given peer.
func NewErrAllocationConflict(host string, err error) error {
	return errors.Join(fmt.Errorf("peer=%s: %w", host, ErrAllocationConflict), err)
}

// NewErrAgreementNotFound returns an ErrAgreementNotFound for the given host.
func NewErrAgreementNotFound(host string) error {
	return fmt.Errorf("host=%s: %w", host, ErrAgreementNotFound)
}

// NewErrReplicaBusy returns an ErrReplicaBusy carrying the reported status.
func NewErrReplicaBusy(agreementDN, status string) error {
	return fmt.Errorf("agreement=%s status=%q: %w", agreementDN, status, ErrReplicaBusy)
}

// NewErrReplicationFailed returns an ErrReplicationFailed carrying the
// reported status.
func NewErrReplicationFailed(agreementDN, status string) error {
	return fmt.Errorf("agreement=%s status=%q: %w", agreementDN, status, ErrReplicationFailed)
}

// NewErrConvergenceTimeout returns an ErrConvergenceTimeout after the
// given number of attempts.
func NewErrConvergenceTimeout(agreementDN string, attempts int) error {
	return fmt.Errorf("agreement=%s attempts=%d: %w", agreementDN, attempts, ErrConvergenceTimeout)
}

// NewErrInconsistentTopology wraps the first stage failure of a forced
// teardown.
func NewErrInconsistentTopology(err error) error {
	return errors.Join(ErrInconsistentTopology, err)
}
