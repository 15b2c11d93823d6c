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

package directory

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEntryAttributeNamesAreCaseInsensitive(t *testing.T) {
	entry := NewEntry("cn=replica,cn=config")
	entry.SetValues("ObjectClass", "top", "nsds5replica")

	assert.True(t, entry.Has("objectclass"))
	assert.True(t, entry.Has("OBJECTCLASS"))
	assert.Equal(t, []string{"top", "nsds5replica"}, entry.Values("objectclass"))
	assert.Equal(t, "top", entry.Value("objectClass"))
}

func TestEntryHasValueComparesCaseInsensitively(t *testing.T) {
	entry := NewEntry("cn=replica,cn=config")
	entry.SetValues("nsds5replicabinddn", "CN=Replication Manager,CN=Config")

	assert.True(t, entry.HasValue("nsds5replicabinddn", "cn=replication manager,cn=config"))
	assert.False(t, entry.HasValue("nsds5replicabinddn", "cn=somebody else,cn=config"))
}

func TestEntryAddAndRemoveValues(t *testing.T) {
	entry := NewEntry("cn=test")
	entry.AddValues("member", "a")
	entry.AddValues("member", "b")
	assert.Equal(t, []string{"a", "b"}, entry.Values("member"))

	entry.RemoveValues("member", "a")
	assert.Equal(t, []string{"b"}, entry.Values("member"))

	entry.RemoveValues("member", "b")
	assert.False(t, entry.Has("member"))
	assert.Nil(t, entry.Values("member"))
}

func TestEntrySetEmptyRemovesAttribute(t *testing.T) {
	entry := NewEntry("cn=test")
	entry.SetValues("description", "something")
	entry.SetValues("description")
	assert.False(t, entry.Has("description"))
}

func TestEntryProject(t *testing.T) {
	entry := NewEntry("cn=test")
	entry.SetValues("cn", "test")
	entry.SetValues("objectclass", "top")
	entry.SetValues("description", "hidden")

	projected := entry.Project([]string{"cn", "objectclass"})
	assert.True(t, projected.Has("cn"))
	assert.True(t, projected.Has("objectclass"))
	assert.False(t, projected.Has("description"))

	full := entry.Project(nil)
	assert.True(t, full.Has("description"))
}

func TestEntryCloneIsIndependent(t *testing.T) {
	entry := NewEntry("cn=test")
	entry.SetValues("cn", "test")

	clone := entry.Clone()
	clone.SetValues("cn", "changed")

	assert.Equal(t, "test", entry.Value("cn"))
	assert.Equal(t, "changed", clone.Value("cn"))
}

func TestEntryAttributesAreSorted(t *testing.T) {
	entry := NewEntry("cn=test")
	entry.SetValues("nsDS5ReplicaRoot", "dc=example,dc=com")
	entry.SetValues("cn", "test")
	entry.SetValues("description", "d")

	assert.Equal(t, []string{"cn", "description", "nsDS5ReplicaRoot"}, entry.Attributes())
}
