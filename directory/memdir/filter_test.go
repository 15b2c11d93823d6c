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
	"fmt"
	"testing"

	"github.com/go-ldap/ldap/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cjeanner/freeipa/directory"
)

func principalEntry(principal string) *directory.Entry {
	entry := directory.NewEntry(fmt.Sprintf("krbprincipalname=%s,cn=services,cn=accounts,dc=example,dc=com", principal))
	entry.SetValues("objectclass", "krbprincipal")
	entry.SetValues("krbprincipalname", principal)
	return entry
}

func TestFilterPresence(t *testing.T) {
	match, err := compileFilter("(objectclass=*)")
	require.NoError(t, err)
	assert.True(t, match(principalEntry("ldap/ds1.example.com@EXAMPLE.COM")))

	empty := directory.NewEntry("cn=empty")
	assert.False(t, match(empty))
}

func TestFilterEquality(t *testing.T) {
	match, err := compileFilter("(krbprincipalname=LDAP/ds1.example.com@EXAMPLE.COM)")
	require.NoError(t, err)
	assert.True(t, match(principalEntry("ldap/ds1.example.com@EXAMPLE.COM")))
	assert.False(t, match(principalEntry("ldap/ds2.example.com@EXAMPLE.COM")))
}

func TestFilterSubstring(t *testing.T) {
	t.Run("With a leading wildcard", func(t *testing.T) {
		match, err := compileFilter("(krbprincipalname=*/ds1.example.com@EXAMPLE.COM)")
		require.NoError(t, err)
		assert.True(t, match(principalEntry("ldap/ds1.example.com@EXAMPLE.COM")))
		assert.True(t, match(principalEntry("HTTP/ds1.example.com@EXAMPLE.COM")))
		assert.False(t, match(principalEntry("ldap/ds2.example.com@EXAMPLE.COM")))
	})
	t.Run("With a trailing wildcard", func(t *testing.T) {
		match, err := compileFilter("(krbprincipalname=ldap/*)")
		require.NoError(t, err)
		assert.True(t, match(principalEntry("ldap/anything@EXAMPLE.COM")))
		assert.False(t, match(principalEntry("host/anything@EXAMPLE.COM")))
	})
	t.Run("With wildcards on both ends", func(t *testing.T) {
		match, err := compileFilter("(krbprincipalname=*ds1*)")
		require.NoError(t, err)
		assert.True(t, match(principalEntry("ldap/ds1.example.com@EXAMPLE.COM")))
		assert.False(t, match(principalEntry("ldap/ds2.example.com@EXAMPLE.COM")))
	})
}

func TestFilterComposites(t *testing.T) {
	entry := directory.NewEntry("cn=ds1,cn=masters,dc=example,dc=com")
	entry.SetValues("objectclass", "nscontainer", "ipaConfigObject")
	entry.SetValues("cn", "ds1")

	t.Run("With and", func(t *testing.T) {
		match, err := compileFilter("(&(objectclass=nscontainer)(cn=ds1))")
		require.NoError(t, err)
		assert.True(t, match(entry))

		match, err = compileFilter("(&(objectclass=nscontainer)(cn=other))")
		require.NoError(t, err)
		assert.False(t, match(entry))
	})

	t.Run("With or", func(t *testing.T) {
		match, err := compileFilter("(|(cn=other)(cn=ds1))")
		require.NoError(t, err)
		assert.True(t, match(entry))
	})

	t.Run("With not", func(t *testing.T) {
		match, err := compileFilter("(!(cn=other))")
		require.NoError(t, err)
		assert.True(t, match(entry))

		match, err = compileFilter("(!(cn=ds1))")
		require.NoError(t, err)
		assert.False(t, match(entry))
	})

	t.Run("With nesting", func(t *testing.T) {
		match, err := compileFilter("(&(nsDS5ReplicaHost=ds2.example.com)(objectclass=nsds5ReplicationAgreement))")
		require.NoError(t, err)
		agreement := directory.NewEntry("cn=meTods2.example.com,cn=replica,cn=config")
		agreement.SetValues("objectclass", "nsds5replicationagreement")
		agreement.SetValues("nsds5replicahost", "ds2.example.com")
		assert.True(t, match(agreement))
	})
}

func TestFilterEscapedValuesRoundTrip(t *testing.T) {
	entry := directory.NewEntry("cn=mapping tree,cn=config")
	entry.SetValues("cn", "dc=example,dc=com")

	filter := fmt.Sprintf("(cn=%s)", ldap.EscapeFilter("dc=example,dc=com"))
	match, err := compileFilter(filter)
	require.NoError(t, err)
	assert.True(t, match(entry))
}

func TestFilterLiteralStarIsEscaped(t *testing.T) {
	entry := directory.NewEntry("cn=odd")
	entry.SetValues("description", "a*b")

	match, err := compileFilter(fmt.Sprintf("(description=%s)", ldap.EscapeFilter("a*b")))
	require.NoError(t, err)
	assert.True(t, match(entry))

	other := directory.NewEntry("cn=other")
	other.SetValues("description", "aXb")
	assert.False(t, match(other))
}

func TestFilterMalformed(t *testing.T) {
	for _, bad := range []string{"(", "(cn)", "(&(cn=a)", "(cn=a)(cn=b)"} {
		_, err := compileFilter(bad)
		assert.Error(t, err, "filter %q should not compile", bad)
	}
}
