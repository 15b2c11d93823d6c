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

	"github.com/go-ldap/ldap/v3"

	"github.com/cjeanner/freeipa/directory"
)

const chainingBackendBase = "chaindb"

// SetupChainOnUpdate makes the local node forward writes it cannot
// serve to remote through a chaining backend, so read-mostly nodes can
// still accept the occasional write.
func (m *Manager) SetupChainOnUpdate(ctx context.Context, remote directory.Handle) error {
	backend, err := m.ensureChainingBackend(ctx, remote)
	if err != nil {
		return err
	}
	return m.enableChainOnUpdate(ctx, backend)
}

// ensureChainingBackend creates a chaining backend pointing at remote
// and returns its name. Backend names are a numbered family; existing
// numbers are skipped until a free one is found.
func (m *Manager) ensureChainingBackend(ctx context.Context, remote directory.Handle) (string, error) {
	url := fmt.Sprintf("ldap://%s:%d/", remote.Host(), remote.Port())
	for n := 1; ; n++ {
		name := fmt.Sprintf("%s%d", chainingBackendBase, n)
		dn := fmt.Sprintf("cn=%s,cn=chaining database,cn=plugins,cn=config", name)

		entry := directory.NewEntry(dn)
		entry.SetValues("objectclass", "top", "extensibleObject", "nsBackendInstance")
		entry.SetValues("cn", name)
		entry.SetValues("nsslapd-suffix", m.cfg.suffix)
		entry.SetValues("nsfarmserverurl", url)
		entry.SetValues("nsmultiplexorbinddn", m.cfg.managerDN)
		entry.SetValues("nsmultiplexorcredentials", m.cfg.managerPassword)

		err := m.conn.CreateEntry(ctx, entry)
		switch {
		case err == nil:
			m.logger.Infof("created chaining backend %s toward %s", name, url)
			return name, nil
		case errors.Is(err, directory.ErrAlreadyExists):
			continue
		default:
			return "", err
		}
	}
}

// enableChainOnUpdate points the suffix's mapping tree entry at the
// chaining backend and installs the replication plugin's distribution
// function, which routes replicated writes locally and everything else
// through the chain.
func (m *Manager) enableChainOnUpdate(ctx context.Context, backend string) error {
	mappingTree, err := m.findMappingTreeEntry(ctx)
	if err != nil {
		return err
	}
	plugin, err := m.conn.ReadEntry(ctx, replicationPluginDN, directory.ScopeBase, "", []string{"nsslapd-pluginPath"})
	if err != nil {
		return err
	}
	pluginPath := plugin.Value("nsslapd-pluginPath")

	err = m.conn.ModifyEntry(ctx, mappingTree.DN,
		directory.ReplaceMod("nsslapd-state", "backend"),
		directory.AddMod("nsslapd-backend", backend),
		directory.AddMod("nsslapd-distribution-plugin", pluginPath),
		directory.AddMod("nsslapd-distribution-funct", "repl_chain_on_update"),
	)
	switch {
	case err == nil:
		m.logger.Infof("enabled chain on update for %s through backend %s", m.cfg.suffix, backend)
		return nil
	case errors.Is(err, directory.ErrTypeOrValueExists):
		m.logger.Debugf("chain on update already enabled for %s", m.cfg.suffix)
		return nil
	default:
		return err
	}
}

// findMappingTreeEntry locates the suffix's mapping tree entry. Older
// servers store the cn value wrapped in double quotes, newer ones store
// it bare, so both spellings are searched.
func (m *Manager) findMappingTreeEntry(ctx context.Context) (*directory.Entry, error) {
	quoted := `"` + m.cfg.suffix + `"`
	filter := fmt.Sprintf("(|(cn=%s)(cn=%s))", ldap.EscapeFilter(m.cfg.suffix), ldap.EscapeFilter(quoted))
	entries, err := m.conn.SearchEntries(ctx, "cn=mapping tree,cn=config", directory.ScopeOneLevel, filter, []string{"cn"})
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("no mapping tree entry for suffix %s on host=%s", m.cfg.suffix, m.conn.Host())
	}
	return entries[0], nil
}

// EnsureChainingFarm grants the replication pseudo user proxy rights on
// conn's suffix, which the chaining backend on the other side needs to
// forward writes under the original identity.
func (m *Manager) EnsureChainingFarm(ctx context.Context, conn directory.Handle) error {
	aci := fmt.Sprintf("(targetattr = \"*\")(version 3.0; acl \"Proxied authorization for database links\";"+
		" allow (proxy) userdn = \"ldap:///%s\";)", m.cfg.managerDN)
	err := conn.ModifyEntry(ctx, m.cfg.suffix, directory.AddMod("aci", aci))
	switch {
	case err == nil:
		m.logger.Infof("granted proxy rights to %s on host=%s", m.cfg.managerDN, conn.Host())
		return nil
	case errors.Is(err, directory.ErrTypeOrValueExists):
		m.logger.Debugf("proxy aci already present in %s on host=%s", m.cfg.suffix, conn.Host())
		return nil
	default:
		return err
	}
}
