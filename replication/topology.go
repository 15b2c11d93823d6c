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

	"github.com/cjeanner/freeipa/directory"
)

// SetupReplication connects the local node with remote: both sides get
// a replica identity, the shared pseudo user, a changelog and an
// agreement toward the other, and the remote then pushes a full copy of
// the suffix to the local node. The identifier for the local node is
// allocated from remote's counter, so remote must already be part of a
// replicating deployment (or freshly bootstrapped).
func (m *Manager) SetupReplication(ctx context.Context, remote directory.Handle) error {
	m.logger.Infof("setting up replication between host=%s and host=%s", m.conn.Host(), remote.Host())

	localID, err := m.ReplicaID(ctx, m.conn, remote)
	if err != nil {
		return err
	}
	if err := m.basicSetup(ctx, m.conn, localID); err != nil {
		return err
	}

	remoteID, err := m.ReplicaID(ctx, remote, remote)
	if err != nil {
		return err
	}
	if err := m.basicSetup(ctx, remote, remoteID); err != nil {
		return err
	}

	if _, err := m.SetupAgreement(ctx, remote, m.conn); err != nil {
		return err
	}
	if _, err := m.SetupAgreement(ctx, m.conn, remote); err != nil {
		return err
	}

	return m.StartReplication(ctx, remote, m.conn.Host())
}

// StartReplication triggers a total update on the agreement on holds
// toward host and waits for it to finish. The node behind the agreement
// receives a full copy of the suffix from on. A total update that is
// already running is joined instead of restarted.
func (m *Manager) StartReplication(ctx context.Context, on directory.Handle, host string) error {
	dn := m.AgreementDN(host)
	m.logger.Infof("starting total update of %s on host=%s", dn, on.Host())

	err := on.ModifyEntry(ctx, dn, directory.AddMod(attrBeginRefresh, "start"))
	switch {
	case err == nil:
	case errors.Is(err, directory.ErrTypeOrValueExists):
		m.logger.Debugf("total update of %s already running", dn)
	default:
		return err
	}
	return m.WaitForInitialization(ctx, on, dn)
}

// SetupWinSync connects the local node with a foreign directory. The
// local node bootstraps its replica identity from its own counter, a
// synchronization agreement is created toward ad with the given bind
// credentials, and the password interception account is prepared. The
// bounded readiness poll is advisory: a slow foreign server does not
// abort the setup.
func (m *Manager) SetupWinSync(ctx context.Context, ad directory.Handle, adBindDN, adPassword, passSyncPassword string, opts ...AgreementOption) error {
	m.logger.Infof("setting up windows synchronization between host=%s and host=%s", m.conn.Host(), ad.Host())

	if err := m.EnsureIDCounter(ctx, m.conn, DefaultCounterSeed); err != nil {
		return err
	}
	id, err := m.ReplicaID(ctx, m.conn, m.conn)
	if err != nil {
		return err
	}
	if err := m.basicSetup(ctx, m.conn, id); err != nil {
		return err
	}
	if err := m.EnsurePassSyncUser(ctx, m.conn, passSyncPassword); err != nil {
		return err
	}

	opts = append(opts, WithAgreementCredentials(adBindDN, adPassword), WithWinSync())
	dn, err := m.SetupAgreement(ctx, m.conn, ad, opts...)
	if err != nil {
		return err
	}

	m.logger.Infof("waiting for sync agreement %s to become ready", dn)
	if err := m.WaitForUpdate(ctx, m.conn, dn, forcedSyncTries); err != nil {
		switch {
		case errors.Is(err, ErrConvergenceTimeout), errors.Is(err, ErrReplicationFailed):
			m.logger.Warnf("sync agreement %s not ready, starting anyway: %v", dn, err)
		default:
			return err
		}
	}
	return m.StartReplication(ctx, m.conn, ad.Host())
}

// EnsurePassSyncUser creates the account the password interception
// service binds as, registers it with the password plugin so intercepted
// passwords bypass policy, and grants it write access to password
// attributes. An existing account keeps its password.
func (m *Manager) EnsurePassSyncUser(ctx context.Context, conn directory.Handle, password string) error {
	passSyncDN := "uid=passsync,cn=sysaccounts,cn=etc," + m.cfg.suffix

	_, err := conn.ReadEntry(ctx, passSyncDN, directory.ScopeBase, "", []string{"uid"})
	switch {
	case err == nil:
		m.logger.Infof("password sync account %s exists, not resetting its password", passSyncDN)
		return nil
	case !errors.Is(err, directory.ErrNotFound):
		return err
	}

	entry := directory.NewEntry(passSyncDN)
	entry.SetValues("objectclass", "account", "simplesecurityobject")
	entry.SetValues("uid", "passsync")
	entry.SetValues("userPassword", password)
	if err := conn.CreateEntry(ctx, entry); err != nil && !errors.Is(err, directory.ErrAlreadyExists) {
		return err
	}
	m.logger.Infof("created password sync account %s on host=%s", passSyncDN, conn.Host())

	const extopDN = "cn=ipa_pwd_extop,cn=plugins,cn=config"
	plugin, err := conn.ReadEntry(ctx, extopDN, directory.ScopeBase, "", []string{"passSyncManagersDNs"})
	if err != nil {
		return err
	}
	managers := append(plugin.Values("passSyncManagersDNs"), passSyncDN)
	if err := conn.ModifyEntry(ctx, extopDN, directory.ReplaceMod("passSyncManagersDNs", managers...)); err != nil {
		return err
	}

	aci := fmt.Sprintf("(targetattr = \"userPassword || krbPrincipalKey || sambaLMPassword || sambaNTPassword || passwordHistory\")"+
		"(version 3.0; acl \"Windows PassSync service can write passwords\"; allow (write) userdn=\"ldap:///%s\";)", passSyncDN)
	err = conn.ModifyEntry(ctx, m.cfg.suffix, directory.AddMod("aci", aci))
	switch {
	case err == nil:
		return nil
	case errors.Is(err, directory.ErrTypeOrValueExists):
		m.logger.Debugf("password sync aci already present in %s on host=%s", m.cfg.suffix, conn.Host())
		return nil
	default:
		return err
	}
}
