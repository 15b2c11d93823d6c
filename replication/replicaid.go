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
	"fmt"
	"strconv"

	"github.com/cjeanner/freeipa/directory"
)

// ReplicaID returns the replica identifier of conn. A node that already
// carries a replica entry keeps its identifier. Otherwise a fresh one is
// taken from the shared counter on peer: the current counter value is
// handed out and the counter is advanced by one. During a peer bootstrap
// the two calls pass the not-yet-configured side as conn and the side
// holding the counter as peer; a node bootstrapping alone passes itself
// as both.
func (m *Manager) ReplicaID(ctx context.Context, conn, peer directory.Handle) (int, error) {
	entry, err := conn.ReadEntry(ctx, m.ReplicaDN(), directory.ScopeBase, "", []string{attrReplicaID})
	switch {
	case err == nil:
		if raw := entry.Value(attrReplicaID); raw != "" {
			id, convErr := strconv.Atoi(raw)
			if convErr != nil {
				return 0, fmt.Errorf("host=%s has malformed replica id %q: %w", conn.Host(), raw, convErr)
			}
			m.logger.Debugf("host=%s already holds replica id=%d", conn.Host(), id)
			return id, nil
		}
	case !errors.Is(err, directory.ErrNotFound):
		return 0, err
	}

	counterDN := m.idCounterDN()
	entry, err = peer.ReadEntry(ctx, counterDN, directory.ScopeBase, "", []string{attrReplicaID})
	if err != nil {
		return 0, NewErrPeerUnavailable(peer.Host(), err)
	}
	raw := entry.Value(attrReplicaID)
	if raw == "" {
		return 0, NewErrPeerUnavailable(peer.Host(),
			fmt.Errorf("entry %s carries no %s value", counterDN, attrReplicaID))
	}
	id, err := strconv.Atoi(raw)
	if err != nil {
		return 0, NewErrPeerUnavailable(peer.Host(),
			fmt.Errorf("entry %s carries malformed %s value %q: %w", counterDN, attrReplicaID, raw, err))
	}

	next := strconv.Itoa(id + 1)
	if err := peer.ModifyEntry(ctx, counterDN, directory.ReplaceMod(attrReplicaID, next)); err != nil {
		return 0, NewErrAllocationConflict(peer.Host(), err)
	}
	m.logger.Infof("allocated replica id=%d for host=%s from peer=%s", id, conn.Host(), peer.Host())
	return id, nil
}

// EnsureIDCounter creates the shared identifier counter on conn with the
// given seed. An existing counter keeps its value. Deployments that
// bootstrap against a peer inherit the counter through replication and
// never call this; a node starting alone seeds its own.
func (m *Manager) EnsureIDCounter(ctx context.Context, conn directory.Handle, seed int) error {
	entry := directory.NewEntry(m.idCounterDN())
	entry.SetValues("objectclass", "top", "nsContainer")
	entry.SetValues("cn", "replication")
	entry.SetValues(attrReplicaID, strconv.Itoa(seed))

	err := conn.CreateEntry(ctx, entry)
	switch {
	case err == nil:
		m.logger.Infof("seeded replica id counter at %d on host=%s", seed, conn.Host())
		return nil
	case errors.Is(err, directory.ErrAlreadyExists):
		m.logger.Debugf("replica id counter already present on host=%s", conn.Host())
		return nil
	default:
		return err
	}
}
