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
	"time"

	"github.com/go-ldap/ldap/v3"

	"github.com/cjeanner/freeipa/directory"
)

// ForceSync triggers an immediate incremental session on the agreement
// conn holds toward host. The directory server offers no direct trigger,
// so the agreement's schedule is flipped to a narrow window and restored,
// which the server answers with a session right away. The DN of the
// nudged agreement is returned.
func (m *Manager) ForceSync(ctx context.Context, conn directory.Handle, host string) (string, error) {
	filter := fmt.Sprintf("(&(nsDS5ReplicaHost=%s)%s)", ldap.EscapeFilter(host), agreementFilter)
	entries, err := conn.SearchEntries(ctx, "cn=config", directory.ScopeSubtree, filter, []string{attrUpdateSchedule})
	if err != nil {
		return "", err
	}
	if len(entries) == 0 {
		return "", NewErrAgreementNotFound(host)
	}
	if len(entries) > 1 {
		m.logger.Warnf("found %d agreements toward host=%s, using %s", len(entries), host, entries[0].DN)
	}

	dn := entries[0].DN
	current := Schedule(entries[0].Value(attrUpdateSchedule))
	nudge := current.Nudge()

	m.logger.Infof("changing schedule of %s to %s to force synchronization", dn, nudge)
	if err := conn.ModifyEntry(ctx, dn, directory.ReplaceMod(attrUpdateSchedule, nudge.String())); err != nil {
		return "", err
	}

	select {
	case <-ctx.Done():
	case <-time.After(m.cfg.pollInterval):
	}

	restore := current
	if restore == "" {
		restore = ScheduleAlways
	}
	m.logger.Infof("restoring schedule of %s to %s", dn, restore)
	if err := conn.ModifyEntry(ctx, dn, directory.ReplaceMod(attrUpdateSchedule, restore.String())); err != nil {
		return "", err
	}
	return dn, nil
}

// MigrateToGSSAPI moves the agreements between the local node and remote
// from pseudo-user binds to kerberos authentication. The sides are
// force-synced first so both key distribution centers hold the same
// principals, then the agreements are flipped and the pseudo user is
// retired.
func (m *Manager) MigrateToGSSAPI(ctx context.Context, remote directory.Handle) error {
	host := remote.Host()
	m.logger.Infof("migrating replication between host=%s and host=%s to GSSAPI", m.conn.Host(), host)

	if _, err := m.ForceSync(ctx, m.conn, host); err != nil {
		return err
	}
	if err := m.WaitForUpdate(ctx, m.conn, m.AgreementDN(host), forcedSyncTries); err != nil {
		return err
	}
	return m.switchAgreementsToGSSAPI(ctx, m.conn, remote)
}

// SetupGSSAPIReplication creates kerberos-authenticated agreements in
// both directions between the local node and remote. Both nodes must
// already hold each other's service principals.
func (m *Manager) SetupGSSAPIReplication(ctx context.Context, remote directory.Handle) error {
	if err := m.crossRegisterPrincipals(ctx, m.conn, remote); err != nil {
		return err
	}
	if _, err := m.SetupAgreement(ctx, remote, m.conn, WithGSSAPITransport()); err != nil {
		return err
	}
	if _, err := m.SetupAgreement(ctx, m.conn, remote, WithGSSAPITransport()); err != nil {
		return err
	}
	return nil
}

// switchAgreementsToGSSAPI flips both agreements to kerberos in a
// single modify per side and removes the now-unused pseudo user from
// both nodes.
func (m *Manager) switchAgreementsToGSSAPI(ctx context.Context, a, b directory.Handle) error {
	if err := m.crossRegisterPrincipals(ctx, a, b); err != nil {
		return err
	}

	flip := []directory.Mod{
		directory.ReplaceMod(attrTransportInfo, "LDAP"),
		directory.ReplaceMod(attrBindMethod, "SASL/GSSAPI"),
		directory.DeleteMod(attrReplicaBindDN),
		directory.DeleteMod(attrCredentials),
	}
	if err := a.ModifyEntry(ctx, m.AgreementDN(b.Host()), flip...); err != nil {
		return err
	}
	if err := b.ModifyEntry(ctx, m.AgreementDN(a.Host()), flip...); err != nil {
		return err
	}
	m.logger.Infof("agreements between host=%s and host=%s now authenticate with GSSAPI", a.Host(), b.Host())

	if err := m.RemoveManagerAccount(ctx, a); err != nil {
		return err
	}
	return m.RemoveManagerAccount(ctx, b)
}

// crossRegisterPrincipals allows each node's ldap service principal to
// act as a replication bind identity on the other node. The principals
// are resolved through the opposite node on purpose: finding them proves
// the directories have converged far enough for kerberos to work.
func (m *Manager) crossRegisterPrincipals(ctx context.Context, a, b directory.Handle) error {
	bPrincipal, err := m.principalDN(ctx, a, b.Host())
	if err != nil {
		return err
	}
	aPrincipal, err := m.principalDN(ctx, b, a.Host())
	if err != nil {
		return err
	}

	replicaDN := m.ReplicaDN()
	if err := m.registerBindDN(ctx, a, replicaDN, bPrincipal); err != nil {
		return err
	}
	return m.registerBindDN(ctx, b, replicaDN, aPrincipal)
}

func (m *Manager) registerBindDN(ctx context.Context, conn directory.Handle, replicaDN, principalDN string) error {
	err := conn.ModifyEntry(ctx, replicaDN, directory.AddMod(attrReplicaBindDN, principalDN))
	switch {
	case err == nil:
		m.logger.Infof("registered %s as replication bind identity on host=%s", principalDN, conn.Host())
		return nil
	case errors.Is(err, directory.ErrTypeOrValueExists):
		m.logger.Debugf("%s already registered on host=%s", principalDN, conn.Host())
		return nil
	default:
		return err
	}
}

// principalDN resolves the DN of host's ldap service principal as seen
// by on.
func (m *Manager) principalDN(ctx context.Context, on directory.Handle, host string) (string, error) {
	filter := fmt.Sprintf("(krbprincipalname=ldap/%s@%s)", ldap.EscapeFilter(host), ldap.EscapeFilter(m.cfg.realm))
	entries, err := on.SearchEntries(ctx, m.cfg.suffix, directory.ScopeSubtree, filter, []string{"krbprincipalname"})
	if err != nil {
		return "", err
	}
	if len(entries) == 0 {
		return "", fmt.Errorf("no kerberos principal for ldap/%s@%s on host=%s", host, m.cfg.realm, on.Host())
	}
	return entries[0].DN, nil
}
