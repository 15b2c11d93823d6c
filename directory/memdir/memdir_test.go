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

package memdir

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cjeanner/freeipa/directory"
)

func seedEntry(t *testing.T, dir *Directory, dn string, attrs map[string][]string) {
	t.Helper()
	entry := directory.NewEntry(dn)
	for attr, values := range attrs {
		entry.SetValues(attr, values...)
	}
	require.NoError(t, dir.CreateEntry(context.TODO(), entry))
}

func TestCreateAndReadEntry(t *testing.T) {
	ctx := context.TODO()
	dir := New("ds1.example.com")

	entry := directory.NewEntry("cn=config")
	entry.SetValues("cn", "config")
	entry.SetValues("objectclass", "top")
	require.NoError(t, dir.CreateEntry(ctx, entry))

	got, err := dir.ReadEntry(ctx, "cn=config", directory.ScopeBase, "", nil)
	require.NoError(t, err)
	assert.Equal(t, "top", got.Value("objectclass"))

	err = dir.CreateEntry(ctx, directory.NewEntry("CN=Config"))
	assert.ErrorIs(t, err, directory.ErrAlreadyExists)
}

func TestReadEntryMissing(t *testing.T) {
	dir := New("ds1.example.com")
	_, err := dir.ReadEntry(context.TODO(), "cn=absent", directory.ScopeBase, "", nil)
	assert.ErrorIs(t, err, directory.ErrNotFound)
}

func TestSearchMissingBaseIsEmpty(t *testing.T) {
	dir := New("ds1.example.com")
	entries, err := dir.SearchEntries(context.TODO(), "cn=absent,dc=example,dc=com", directory.ScopeSubtree, "(objectclass=*)", nil)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestSearchScopes(t *testing.T) {
	ctx := context.TODO()
	dir := New("ds1.example.com")
	seedEntry(t, dir, "dc=example,dc=com", map[string][]string{"objectclass": {"domain"}})
	seedEntry(t, dir, "cn=etc,dc=example,dc=com", map[string][]string{"objectclass": {"nscontainer"}})
	seedEntry(t, dir, "cn=accounts,dc=example,dc=com", map[string][]string{"objectclass": {"nscontainer"}})
	seedEntry(t, dir, "cn=replication,cn=etc,dc=example,dc=com", map[string][]string{"objectclass": {"nscontainer"}})

	base, err := dir.SearchEntries(ctx, "dc=example,dc=com", directory.ScopeBase, "", nil)
	require.NoError(t, err)
	assert.Len(t, base, 1)

	children, err := dir.SearchEntries(ctx, "dc=example,dc=com", directory.ScopeOneLevel, "", nil)
	require.NoError(t, err)
	assert.Len(t, children, 2)

	subtree, err := dir.SearchEntries(ctx, "dc=example,dc=com", directory.ScopeSubtree, "", nil)
	require.NoError(t, err)
	assert.Len(t, subtree, 4)
}

func TestSearchProjectsAttributes(t *testing.T) {
	ctx := context.TODO()
	dir := New("ds1.example.com")
	seedEntry(t, dir, "cn=replica,cn=config", map[string][]string{
		"cn":            {"replica"},
		"nsds5replicaid": {"7"},
	})

	entries, err := dir.SearchEntries(ctx, "cn=replica,cn=config", directory.ScopeBase, "", []string{"nsds5replicaid"})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.True(t, entries[0].Has("nsds5replicaid"))
	assert.False(t, entries[0].Has("cn"))
}

func TestModifyEntry(t *testing.T) {
	ctx := context.TODO()
	dir := New("ds1.example.com")
	seedEntry(t, dir, "cn=replica,cn=config", map[string][]string{
		"nsds5replicabinddn": {"cn=manager,cn=config"},
	})

	t.Run("With add of a new value", func(t *testing.T) {
		err := dir.ModifyEntry(ctx, "cn=replica,cn=config",
			directory.AddMod("nsds5replicabinddn", "krbprincipalname=x,dc=example,dc=com"))
		require.NoError(t, err)
		assert.Len(t, dir.Entry("cn=replica,cn=config").Values("nsds5replicabinddn"), 2)
	})

	t.Run("With add of a duplicate value", func(t *testing.T) {
		err := dir.ModifyEntry(ctx, "cn=replica,cn=config",
			directory.AddMod("nsds5replicabinddn", "cn=manager,cn=config"))
		assert.ErrorIs(t, err, directory.ErrTypeOrValueExists)
	})

	t.Run("With replace", func(t *testing.T) {
		err := dir.ModifyEntry(ctx, "cn=replica,cn=config",
			directory.ReplaceMod("nsds5flags", "1"))
		require.NoError(t, err)
		assert.Equal(t, "1", dir.Entry("cn=replica,cn=config").Value("nsds5flags"))
	})

	t.Run("With delete of the whole attribute", func(t *testing.T) {
		err := dir.ModifyEntry(ctx, "cn=replica,cn=config",
			directory.DeleteMod("nsds5flags"))
		require.NoError(t, err)
		assert.False(t, dir.Entry("cn=replica,cn=config").Has("nsds5flags"))
	})

	t.Run("With a missing entry", func(t *testing.T) {
		err := dir.ModifyEntry(ctx, "cn=absent,cn=config", directory.ReplaceMod("cn", "x"))
		assert.ErrorIs(t, err, directory.ErrNotFound)
	})
}

func TestModifyIsAtomic(t *testing.T) {
	ctx := context.TODO()
	dir := New("ds1.example.com")
	seedEntry(t, dir, "cn=replica,cn=config", map[string][]string{
		"nsds5replicabinddn": {"cn=manager,cn=config"},
	})

	err := dir.ModifyEntry(ctx, "cn=replica,cn=config",
		directory.ReplaceMod("nsds5flags", "1"),
		directory.AddMod("nsds5replicabinddn", "cn=manager,cn=config"))
	require.ErrorIs(t, err, directory.ErrTypeOrValueExists)

	// the failed modify must not have applied the first mod either
	assert.False(t, dir.Entry("cn=replica,cn=config").Has("nsds5flags"))
}

func TestDeleteEntry(t *testing.T) {
	ctx := context.TODO()
	dir := New("ds1.example.com")
	seedEntry(t, dir, "cn=masters,dc=example,dc=com", nil)
	seedEntry(t, dir, "cn=host1,cn=masters,dc=example,dc=com", nil)

	t.Run("With children still present", func(t *testing.T) {
		err := dir.DeleteEntry(ctx, "cn=masters,dc=example,dc=com")
		assert.ErrorIs(t, err, directory.ErrNotAllowedOnNonLeaf)
	})

	t.Run("With a leaf", func(t *testing.T) {
		require.NoError(t, dir.DeleteEntry(ctx, "cn=host1,cn=masters,dc=example,dc=com"))
		require.NoError(t, dir.DeleteEntry(ctx, "cn=masters,dc=example,dc=com"))
	})

	t.Run("With a missing entry", func(t *testing.T) {
		err := dir.DeleteEntry(ctx, "cn=absent")
		assert.ErrorIs(t, err, directory.ErrNotFound)
	})
}

func TestClosedHandle(t *testing.T) {
	dir := New("ds1.example.com")
	require.NoError(t, dir.Close())
	require.NoError(t, dir.Close())

	_, err := dir.ReadEntry(context.TODO(), "cn=config", directory.ScopeBase, "", nil)
	assert.ErrorIs(t, err, directory.ErrHandleClosed)
}

func TestHostAndPort(t *testing.T) {
	dir := New("ds1.example.com", WithPort(636))
	assert.Equal(t, "ds1.example.com", dir.Host())
	assert.Equal(t, 636, dir.Port())
}
