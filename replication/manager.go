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

// Package replication coordinates multi-master replication topologies
// across 389 directory server nodes: it allocates replica identities,
// manages the agreements that connect nodes, polls convergence, moves
// deployments from password to kerberos authentication, synchronizes
// with foreign directories and scrubs departed nodes from the shared
// tree. All state lives in the directory servers themselves; the
// package only talks to them through directory.Handle.
package replication

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/cjeanner/freeipa/directory"
	"github.com/cjeanner/freeipa/internal/errorschain"
	"github.com/cjeanner/freeipa/log"
)

// Attribute names shared across the package. The directory server treats
// attribute names case-insensitively, the spellings here match what it
// writes back.
const (
	attrReplicaID        = "nsDS5ReplicaId"
	attrReplicaBindDN    = "nsds5replicabinddn"
	attrReplicaHost      = "nsds5replicahost"
	attrUpdateSchedule   = "nsds5replicaupdateschedule"
	attrTransportInfo    = "nsds5replicatransportinfo"
	attrBindMethod       = "nsds5replicabindmethod"
	attrCredentials      = "nsds5replicacredentials"
	attrBeginRefresh     = "nsds5BeginReplicaRefresh"
	attrUpdateInProgress = "nsds5replicaUpdateInProgress"
	attrLastUpdateStatus = "nsds5ReplicaLastUpdateStatus"
	attrLastUpdateStart  = "nsds5ReplicaLastUpdateStart"
	attrLastUpdateEnd    = "nsds5ReplicaLastUpdateEnd"
	attrLastInitStatus   = "nsds5ReplicaLastInitStatus"
)

const (
	// replicaTypeUpdatable marks a replica that accepts writes and
	// supplies them to its peers.
	replicaTypeUpdatable = "3"

	// replicaFlagLogChanges makes the replica record its writes in the
	// changelog so agreements can replay them.
	replicaFlagLogChanges = "1"

	changelogDN  = "cn=changelog5,cn=config"
	ldbmConfigDN = "cn=config,cn=ldbm database,cn=plugins,cn=config"
)

// Manager drives the replication topology of a directory deployment from
// the point of view of one node. The handle passed at construction is the
// local node; operations that involve a peer take the peer's handle as an
// argument.
type Manager struct {
	cfg    *Config
	conn   directory.Handle
	logger log.Logger
}

// NewManager creates a Manager for the given realm bound to the local
// node's directory handle.
func NewManager(realm string, conn directory.Handle, opts ...Option) (*Manager, error) {
	if conn == nil {
		return nil, errors.New("a directory handle is required")
	}
	cfg := newConfig(realm, opts...)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Manager{
		cfg:    cfg,
		conn:   conn,
		logger: cfg.logger,
	}, nil
}

// Realm returns the kerberos realm the Manager operates in.
func (m *Manager) Realm() string {
	return m.cfg.realm
}

// Suffix returns the replicated directory suffix.
func (m *Manager) Suffix() string {
	return m.cfg.suffix
}

// Local returns the handle of the node the Manager was built for.
func (m *Manager) Local() directory.Handle {
	return m.conn
}

// ManagerDN returns the bind DN of the replication pseudo user.
func (m *Manager) ManagerDN() string {
	return m.cfg.managerDN
}

// mappingTreeDN returns the suffix container below cn=mapping tree where
// the directory server keeps per-suffix replication configuration. The
// suffix is itself a DN, so it is escaped to serve as an attribute value.
func (m *Manager) mappingTreeDN() string {
	return fmt.Sprintf("cn=%s,cn=mapping tree,cn=config", directory.EscapeDNValue(m.cfg.suffix))
}

// ReplicaDN returns the DN of the replica configuration entry.
func (m *Manager) ReplicaDN() string {
	return "cn=replica," + m.mappingTreeDN()
}

// AgreementDN returns the deterministic DN of the agreement toward host.
func (m *Manager) AgreementDN(host string) string {
	return fmt.Sprintf("cn=%s,%s", agreementCN(host), m.ReplicaDN())
}

func agreementCN(host string) string {
	return "meTo" + host
}

// idCounterDN returns the DN of the shared replica identifier counter.
// The counter lives inside the replicated suffix so every node sees the
// same value.
func (m *Manager) idCounterDN() string {
	return "cn=replication,cn=etc," + m.cfg.suffix
}

func (m *Manager) managerCN() string {
	if values, err := directory.RDNValues(m.cfg.managerDN); err == nil && len(values) > 0 {
		return values[0]
	}
	return "replication manager"
}

// EnsureManagerAccount creates the replication pseudo user on conn. When
// the account already exists its password is reset to the Manager's
// credential so both sides of an agreement share it.
func (m *Manager) EnsureManagerAccount(ctx context.Context, conn directory.Handle) error {
	entry := directory.NewEntry(m.cfg.managerDN)
	entry.SetValues("objectclass", "top", "person")
	entry.SetValues("cn", m.managerCN())
	entry.SetValues("sn", "replication manager pseudo user")
	entry.SetValues("userpassword", m.cfg.managerPassword)

	err := conn.CreateEntry(ctx, entry)
	switch {
	case err == nil:
		m.logger.Infof("added replication manager %s on host=%s", m.cfg.managerDN, conn.Host())
		return nil
	case errors.Is(err, directory.ErrAlreadyExists):
		m.logger.Debugf("replication manager %s exists on host=%s, resetting password", m.cfg.managerDN, conn.Host())
		return conn.ModifyEntry(ctx, m.cfg.managerDN,
			directory.ReplaceMod("userpassword", m.cfg.managerPassword))
	default:
		return err
	}
}

// RemoveManagerAccount deletes the replication pseudo user from conn. A
// missing account is not an error.
func (m *Manager) RemoveManagerAccount(ctx context.Context, conn directory.Handle) error {
	err := conn.DeleteEntry(ctx, m.cfg.managerDN)
	if err != nil && !errors.Is(err, directory.ErrNotFound) {
		return err
	}
	return nil
}

// EnsureReplica creates the replica configuration entry on conn with the
// given identifier. An existing entry is left untouched.
func (m *Manager) EnsureReplica(ctx context.Context, conn directory.Handle, replicaID int) error {
	entry := directory.NewEntry(m.ReplicaDN())
	entry.SetValues("objectclass", "top", "nsds5replica", "extensibleobject")
	entry.SetValues("cn", "replica")
	entry.SetValues("nsds5replicaroot", m.cfg.suffix)
	entry.SetValues("nsds5replicaid", fmt.Sprintf("%d", replicaID))
	entry.SetValues("nsds5replicatype", replicaTypeUpdatable)
	entry.SetValues("nsds5flags", replicaFlagLogChanges)
	entry.SetValues(attrReplicaBindDN, m.cfg.managerDN)
	entry.SetValues("nsds5replicalegacyconsumer", "off")

	err := conn.CreateEntry(ctx, entry)
	switch {
	case err == nil:
		m.logger.Infof("configured replica id=%d on host=%s", replicaID, conn.Host())
		return nil
	case errors.Is(err, directory.ErrAlreadyExists):
		m.logger.Debugf("replica entry already present on host=%s", conn.Host())
		return nil
	default:
		return err
	}
}

// EnsureChangelog enables the changelog on conn. The changelog directory
// is placed next to the server's database directory.
func (m *Manager) EnsureChangelog(ctx context.Context, conn directory.Handle) error {
	_, err := conn.ReadEntry(ctx, changelogDN, directory.ScopeBase, "", []string{"cn"})
	switch {
	case err == nil:
		m.logger.Debugf("changelog already enabled on host=%s", conn.Host())
		return nil
	case !errors.Is(err, directory.ErrNotFound):
		return err
	}

	dir, err := m.changelogDir(ctx, conn)
	if err != nil {
		return err
	}

	entry := directory.NewEntry(changelogDN)
	entry.SetValues("objectclass", "top", "extensibleobject")
	entry.SetValues("cn", "changelog5")
	entry.SetValues("nsslapd-changelogdir", dir)

	if err := conn.CreateEntry(ctx, entry); err != nil && !errors.Is(err, directory.ErrAlreadyExists) {
		return err
	}
	m.logger.Infof("enabled changelog in %s on host=%s", dir, conn.Host())
	return nil
}

// changelogDir derives the changelog location from the server's database
// directory. The value is a path on the remote server, so POSIX path
// rules apply no matter where this code runs.
func (m *Manager) changelogDir(ctx context.Context, conn directory.Handle) (string, error) {
	entry, err := conn.ReadEntry(ctx, ldbmConfigDN, directory.ScopeBase, "", []string{"nsslapd-directory"})
	if err != nil {
		return "", err
	}
	dbdir := strings.TrimSpace(entry.Value("nsslapd-directory"))
	if dbdir == "" {
		return "", fmt.Errorf("host=%s has no database directory configured", conn.Host())
	}
	return path.Join(path.Dir(dbdir), "cldb"), nil
}

// basicSetup brings one node to the minimum state required to take part
// in replication: a bindable manager account, a replica entry with the
// given identifier and an enabled changelog.
func (m *Manager) basicSetup(ctx context.Context, conn directory.Handle, replicaID int) error {
	return errorschain.
		New(errorschain.ReturnFirst()).
		AddErrorFn(func() error { return m.EnsureManagerAccount(ctx, conn) }).
		AddErrorFn(func() error { return m.EnsureReplica(ctx, conn, replicaID) }).
		AddErrorFn(func() error { return m.EnsureChangelog(ctx, conn) }).
		Error()
}
