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
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/flowchartsman/retry"

	"github.com/cjeanner/freeipa/directory"
)

const (
	// busyMarker appears in the initialization status when the remote
	// replica is owned by another total update.
	busyMarker = "replica busy"

	// successMarker appears in the initialization status once a total
	// update went through.
	successMarker = "Total update succeeded"
)

// errStillSyncing keeps the bounded update poll retrying. It never
// escapes this package.
var errStillSyncing = errors.New("incremental update still in progress")

// WaitForInitialization blocks until the total update behind the given
// agreement reaches a terminal state. Total updates move entire suffixes
// and have no useful upper bound, so the wait only ends on completion, a
// terminal status or cancellation of ctx.
func (m *Manager) WaitForInitialization(ctx context.Context, conn directory.Handle, agreementDN string) error {
	m.logger.Infof("waiting for total update of %s on host=%s", agreementDN, conn.Host())
	start := time.Now()
	ticker := time.NewTicker(m.cfg.pollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
		done, err := m.checkInitialization(ctx, conn, agreementDN)
		if err != nil {
			return err
		}
		if done {
			m.logger.Infof("total update of %s completed after %s", agreementDN, time.Since(start).Round(time.Second))
			return nil
		}
	}
}

// checkInitialization reads the total update state of an agreement once.
// It returns true when the update completed, an error when it reached a
// terminal failure and false to keep polling.
func (m *Manager) checkInitialization(ctx context.Context, conn directory.Handle, agreementDN string) (bool, error) {
	entry, err := conn.ReadEntry(ctx, agreementDN, directory.ScopeBase, "",
		[]string{attrBeginRefresh, attrUpdateInProgress, attrLastInitStatus})
	if err != nil {
		return false, err
	}

	refresh := entry.Value(attrBeginRefresh)
	inProgress := entry.Value(attrUpdateInProgress)
	status := entry.Value(attrLastInitStatus)

	if refresh != "" {
		m.logger.Debugf("total update of %s still queued", agreementDN)
		return false, nil
	}
	switch {
	case status == "":
		m.logger.Debugf("total update of %s reported no status yet", agreementDN)
		return false, nil
	case strings.Contains(status, busyMarker):
		return false, NewErrReplicaBusy(agreementDN, status)
	case strings.Contains(status, successMarker):
		return true, nil
	case strings.EqualFold(inProgress, "true"):
		m.logger.Debugf("total update of %s in progress", agreementDN)
		return false, nil
	default:
		return false, NewErrReplicationFailed(agreementDN, status)
	}
}

// WaitForUpdate blocks until the incremental update behind the given
// agreement converges. Unlike total updates the incremental poll is
// bounded: after maxTries checks it gives up with ErrConvergenceTimeout.
// A maxTries of zero or less applies the configured budget.
func (m *Manager) WaitForUpdate(ctx context.Context, conn directory.Handle, agreementDN string, maxTries int) error {
	if maxTries <= 0 {
		maxTries = m.cfg.updateTries
	}
	m.logger.Infof("waiting for incremental update of %s on host=%s", agreementDN, conn.Host())

	retrier := retry.NewRetrier(maxTries, m.cfg.pollInterval, m.cfg.pollInterval)
	err := retrier.RunContext(ctx, func(ctx context.Context) error {
		done, checkErr := m.checkUpdate(ctx, conn, agreementDN)
		switch {
		case checkErr != nil:
			return retry.Stop(checkErr)
		case done:
			return nil
		default:
			return errStillSyncing
		}
	})
	switch {
	case err == nil:
		return nil
	case errors.Is(err, errStillSyncing):
		return NewErrConvergenceTimeout(agreementDN, maxTries)
	default:
		return err
	}
}

// checkUpdate reads the incremental update state of an agreement once.
// A nonzero code at the head of the status string wins over the progress
// flags: the server keeps start and end timestamps of failed sessions
// that would otherwise look complete.
func (m *Manager) checkUpdate(ctx context.Context, conn directory.Handle, agreementDN string) (bool, error) {
	entry, err := conn.ReadEntry(ctx, agreementDN, directory.ScopeBase, "",
		[]string{attrUpdateInProgress, attrLastUpdateStatus, attrLastUpdateStart, attrLastUpdateEnd})
	if err != nil {
		return false, err
	}

	inProgress := entry.Value(attrUpdateInProgress)
	status := entry.Value(attrLastUpdateStatus)
	start := entry.Value(attrLastUpdateStart)
	end := entry.Value(attrLastUpdateEnd)

	m.logger.Debugf("incremental update of %s: inprogress=%q status=%q start=%q end=%q",
		agreementDN, inProgress, status, start, end)

	if code, ok := statusCode(status); ok && code != 0 {
		return false, NewErrReplicationFailed(agreementDN, status)
	}
	done := strings.EqualFold(inProgress, "false") && start != "" && end != "" && start <= end
	return done, nil
}

// statusCode extracts the numeric code the directory server prefixes
// update status strings with. Status strings in other formats carry no
// code.
func statusCode(status string) (int, bool) {
	head, _, _ := strings.Cut(status, " ")
	code, err := strconv.Atoi(head)
	if err != nil {
		return 0, false
	}
	return code, true
}
