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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cjeanner/freeipa/directory"
	"github.com/cjeanner/freeipa/directory/memdir"
)

func seedReplicationPlugin(t *testing.T, node *memdir.Directory, enabled string) {
	t.Helper()
	entry := directory.NewEntry(replicationPluginDN)
	entry.SetValues("objectclass", "nsSlapdPlugin")
	entry.SetValues("cn", "Multimaster Replication Plugin")
	entry.SetValues("nsslapd-pluginPath", "libreplication-plugin")
	entry.SetValues("nsslapd-pluginEnabled", enabled)
	require.NoError(t, node.CreateEntry(context.Background(), entry))
}

func seedMappingTree(t *testing.T, node *memdir.Directory, manager *Manager, cn string) {
	t.Helper()
	entry := directory.NewEntry(manager.mappingTreeDN())
	entry.SetValues("objectclass", "nsMappingTree")
	entry.SetValues("cn", cn)
	entry.SetValues("nsslapd-state", "on")
	require.NoError(t, node.CreateEntry(context.Background(), entry))
}

func TestSetupChainOnUpdate(t *testing.T) {
	const backendDN = "cn=chaindb1,cn=chaining database,cn=plugins,cn=config"

	t.Run("With a quoted mapping tree cn", func(t *testing.T) {
		ctx := context.Background()
		local := newTestNode("ds1.example.com")
		remote := memdir.New("ds2.example.com")
		manager := newTestManager(t, local)
		seedReplicationPlugin(t, local, "on")
		seedMappingTree(t, local, manager, `"dc=example,dc=com"`)

		require.NoError(t, manager.SetupChainOnUpdate(ctx, remote))

		backend := local.Entry(backendDN)
		require.NotNil(t, backend)
		assert.Equal(t, "ldap://ds2.example.com:389/", backend.Value("nsfarmserverurl"))
		assert.Equal(t, "dc=example,dc=com", backend.Value("nsslapd-suffix"))
		assert.Equal(t, manager.ManagerDN(), backend.Value("nsmultiplexorbinddn"))
		assert.Equal(t, manager.cfg.managerPassword, backend.Value("nsmultiplexorcredentials"))

		mapping := local.Entry(manager.mappingTreeDN())
		assert.Equal(t, "backend", mapping.Value("nsslapd-state"))
		assert.Equal(t, []string{"chaindb1"}, mapping.Values("nsslapd-backend"))
		assert.Equal(t, "libreplication-plugin", mapping.Value("nsslapd-distribution-plugin"))
		assert.Equal(t, "repl_chain_on_update", mapping.Value("nsslapd-distribution-funct"))
	})

	t.Run("With a bare mapping tree cn", func(t *testing.T) {
		ctx := context.Background()
		local := newTestNode("ds1.example.com")
		manager := newTestManager(t, local)
		seedReplicationPlugin(t, local, "on")
		seedMappingTree(t, local, manager, "dc=example,dc=com")

		require.NoError(t, manager.SetupChainOnUpdate(ctx, memdir.New("ds2.example.com")))
		assert.Equal(t, "backend", local.Entry(manager.mappingTreeDN()).Value("nsslapd-state"))
	})

	t.Run("With the first backend name taken", func(t *testing.T) {
		ctx := context.Background()
		local := newTestNode("ds1.example.com")
		manager := newTestManager(t, local)
		seedReplicationPlugin(t, local, "on")
		seedMappingTree(t, local, manager, "dc=example,dc=com")

		taken := directory.NewEntry(backendDN)
		taken.SetValues("objectclass", "nsBackendInstance")
		taken.SetValues("cn", "chaindb1")
		require.NoError(t, local.CreateEntry(ctx, taken))

		require.NoError(t, manager.SetupChainOnUpdate(ctx, memdir.New("ds2.example.com")))
		assert.NotNil(t, local.Entry("cn=chaindb2,cn=chaining database,cn=plugins,cn=config"))
		assert.Equal(t, []string{"chaindb2"}, local.Entry(manager.mappingTreeDN()).Values("nsslapd-backend"))
	})

	t.Run("With chaining already enabled", func(t *testing.T) {
		ctx := context.Background()
		local := newTestNode("ds1.example.com")
		remote := memdir.New("ds2.example.com")
		manager := newTestManager(t, local)
		seedReplicationPlugin(t, local, "on")
		seedMappingTree(t, local, manager, "dc=example,dc=com")

		require.NoError(t, manager.SetupChainOnUpdate(ctx, remote))
		require.NoError(t, manager.SetupChainOnUpdate(ctx, remote))

		// the second enable is a no-op, the routing stays on the first backend
		assert.Equal(t, []string{"chaindb1"}, local.Entry(manager.mappingTreeDN()).Values("nsslapd-backend"))
	})

	t.Run("Without a mapping tree", func(t *testing.T) {
		local := newTestNode("ds1.example.com")
		manager := newTestManager(t, local)
		seedReplicationPlugin(t, local, "on")

		err := manager.SetupChainOnUpdate(context.Background(), memdir.New("ds2.example.com"))
		assert.ErrorContains(t, err, "no mapping tree entry")
	})
}

func TestEnsureChainingFarm(t *testing.T) {
	ctx := context.Background()
	node := newTestNode("ds1.example.com")
	seedSuffix(t, node)
	manager := newTestManager(t, node)

	require.NoError(t, manager.EnsureChainingFarm(ctx, node))
	acis := node.Entry("dc=example,dc=com").Values("aci")
	require.Len(t, acis, 1)
	assert.Contains(t, acis[0], "Proxied authorization for database links")

	require.NoError(t, manager.EnsureChainingFarm(ctx, node))
	assert.Len(t, node.Entry("dc=example,dc=com").Values("aci"), 1)
}

func TestCheckReplicationPlugin(t *testing.T) {
	t.Run("With the plugin enabled", func(t *testing.T) {
		node := newTestNode("ds1.example.com")
		manager := newTestManager(t, node)
		seedReplicationPlugin(t, node, "ON")
		assert.NoError(t, manager.CheckReplicationPlugin(context.Background(), node))
	})

	t.Run("With the plugin disabled", func(t *testing.T) {
		node := newTestNode("ds1.example.com")
		manager := newTestManager(t, node)
		seedReplicationPlugin(t, node, "off")
		err := manager.CheckReplicationPlugin(context.Background(), node)
		assert.ErrorContains(t, err, "disabled")
	})

	t.Run("Without the plugin", func(t *testing.T) {
		node := newTestNode("ds1.example.com")
		manager := newTestManager(t, node)
		err := manager.CheckReplicationPlugin(context.Background(), node)
		assert.ErrorContains(t, err, "does not carry")
	})
}
