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
	"strings"

	"github.com/go-ldap/ldap/v3"

	"github.com/cjeanner/freeipa/directory"
	"github.com/cjeanner/freeipa/internal/errorschain"
)

// RemoveReplica scrubs a departed node from the parts of the shared tree
// that expose it, so clients stop routing to it: its service principals,
// its master registration with the services below it, and the number
// ranges it owned. Without force the cleanup stops at the first failing
// stage. With force every stage runs and the collected failures come
// back wrapped in ErrInconsistentTopology, since a partial scrub leaves
// state someone has to look at.
func (m *Manager) RemoveReplica(ctx context.Context, host string, force bool) error {
	if strings.EqualFold(host, m.conn.Host()) {
		return fmt.Errorf("host=%s: %w", host, ErrSelfRemoval)
	}
	m.logger.Infof("cleaning up replica host=%s from the shared tree", host)

	principals := func() error { return m.removeServicePrincipals(ctx, host) }
	master := func() error { return m.removeMasterEntry(ctx, host) }
	ranges := func() error { return m.removeNumberRanges(ctx, host) }

	if !force {
		return errorschain.
			New(errorschain.ReturnFirst()).
			AddErrorFns(principals, master, ranges).
			Error()
	}

	err := errorschain.
		New(errorschain.ReturnFirst()).
		AddError(principals()).
		AddError(master()).
		AddError(ranges()).
		Error()
	if err != nil {
		return NewErrInconsistentTopology(err)
	}
	return nil
}

// removeServicePrincipals deletes every kerberos principal issued to
// services on host.
func (m *Manager) removeServicePrincipals(ctx context.Context, host string) error {
	filter := fmt.Sprintf("(krbprincipalname=*/%s@%s)", ldap.EscapeFilter(host), ldap.EscapeFilter(m.cfg.realm))
	entries, err := m.conn.SearchEntries(ctx, m.cfg.suffix, directory.ScopeSubtree, filter, []string{"krbprincipalname"})
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		m.logger.Debugf("no service principals left for host=%s", host)
		return nil
	}
	return m.deleteSubtree(ctx, entries)
}

// removeMasterEntry deletes the node's master registration together
// with the service entries below it.
func (m *Manager) removeMasterEntry(ctx context.Context, host string) error {
	base := fmt.Sprintf("cn=%s,cn=masters,cn=ipa,cn=etc,%s", host, m.cfg.suffix)
	entries, err := m.conn.SearchEntries(ctx, base, directory.ScopeSubtree, "", []string{"cn"})
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		m.logger.Debugf("no master entry left for host=%s", host)
		return nil
	}
	return m.deleteSubtree(ctx, entries)
}

// removeNumberRanges deletes the distributed numeric assignment ranges
// the node owned.
func (m *Manager) removeNumberRanges(ctx context.Context, host string) error {
	filter := fmt.Sprintf("(dnaHostname=%s)", ldap.EscapeFilter(host))
	entries, err := m.conn.SearchEntries(ctx, "cn=etc,"+m.cfg.suffix, directory.ScopeSubtree, filter, []string{"dnaHostname"})
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		m.logger.Debugf("no number ranges left for host=%s", host)
		return nil
	}
	return m.deleteSubtree(ctx, entries)
}

// deleteSubtree deletes the given entries children before parents, the
// only order a directory server accepts. Entries another actor removed
// in the meantime are skipped.
func (m *Manager) deleteSubtree(ctx context.Context, entries []*directory.Entry) error {
	dns := make([]string, 0, len(entries))
	for _, entry := range entries {
		dns = append(dns, entry.DN)
	}
	directory.SortDeepestFirst(dns)

	for _, dn := range dns {
		err := m.conn.DeleteEntry(ctx, dn)
		switch {
		case err == nil:
			m.logger.Debugf("deleted %s", dn)
		case errors.Is(err, directory.ErrNotFound):
			m.logger.Debugf("%s already gone", dn)
		default:
			return err
		}
	}
	return nil
}

// Disconnect removes the agreements between the local node and remote in
// both directions and drops the referral the surviving side kept toward
// the other. Referral cleanup is best effort.
func (m *Manager) Disconnect(ctx context.Context, remote directory.Handle) error {
	if err := m.DeleteAgreement(ctx, remote, m.conn.Host()); err != nil {
		return err
	}
	if err := m.DeleteAgreement(ctx, m.conn, remote.Host()); err != nil {
		return err
	}
	if err := m.DeleteReferral(ctx, remote.Host()); err != nil {
		m.logger.Debugf("failed to remove referral toward host=%s: %v", remote.Host(), err)
	}
	return nil
}

// referralEscaper renders a suffix the way the directory server embeds
// it in referral URLs.
var referralEscaper = strings.NewReplacer("=", "%3D", ",", "%2C")

// DeleteReferral removes the referral URL pointing at host from the
// suffix container. The URL is reconstructed the same way the server
// builds it, with the suffix percent-escaped.
func (m *Manager) DeleteReferral(ctx context.Context, host string) error {
	url := fmt.Sprintf("ldap://%s:%d/%s", host, m.cfg.agreementPort, referralEscaper.Replace(m.cfg.suffix))
	return m.conn.ModifyEntry(ctx, m.mappingTreeDN(), directory.DeleteMod("nsslapd-referral", url))
}
