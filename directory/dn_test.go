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
	"github.com/stretchr/testify/require"
)

func TestNormalizeDN(t *testing.T) {
	t.Run("With mixed case attribute types", func(t *testing.T) {
		normalized, err := NormalizeDN("CN=Replica,CN=Mapping Tree,CN=config")
		require.NoError(t, err)
		assert.Equal(t, "cn=Replica,cn=Mapping Tree,cn=config", normalized)
	})
	t.Run("With invalid input", func(t *testing.T) {
		_, err := NormalizeDN("not a dn at all,=")
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrInvalidDN)
	})
}

func TestEqualDN(t *testing.T) {
	testCases := []struct {
		name  string
		a     string
		b     string
		equal bool
	}{
		{
			name:  "case differences",
			a:     "cn=replica,cn=config",
			b:     "CN=Replica,CN=Config",
			equal: true,
		},
		{
			name:  "hexadecimal and backslash escapes",
			a:     `cn=dc\3Dexample\2Cdc\3Dcom,cn=mapping tree,cn=config`,
			b:     `cn=dc\=example\,dc\=com,cn=mapping tree,cn=config`,
			equal: true,
		},
		{
			name:  "different entries",
			a:     "cn=meTohost1.example.com,cn=replica,cn=config",
			b:     "cn=meTohost2.example.com,cn=replica,cn=config",
			equal: false,
		},
	}
	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			assert.Equal(t, testCase.equal, EqualDN(testCase.a, testCase.b))
		})
	}
}

func TestDepth(t *testing.T) {
	assert.Equal(t, 1, Depth("dc=com"))
	assert.Equal(t, 2, Depth("dc=example,dc=com"))
	assert.Equal(t, 4, Depth("cn=masters,cn=ipa,dc=example,dc=com"))
}

func TestUnder(t *testing.T) {
	suffix := "dc=example,dc=com"
	assert.True(t, Under("dc=example,dc=com", suffix))
	assert.True(t, Under("cn=etc,DC=Example,DC=Com", suffix))
	assert.True(t, Under("cn=replication,cn=etc,dc=example,dc=com", suffix))
	assert.False(t, Under("dc=other,dc=com", suffix))
	assert.False(t, Under("dc=com", suffix))
}

func TestSortDeepestFirst(t *testing.T) {
	dns := []string{
		"cn=masters,cn=ipa,cn=etc,dc=example,dc=com",
		"cn=CA,cn=host1.example.com,cn=masters,cn=ipa,cn=etc,dc=example,dc=com",
		"cn=host1.example.com,cn=masters,cn=ipa,cn=etc,dc=example,dc=com",
	}
	SortDeepestFirst(dns)
	assert.Equal(t, []string{
		"cn=CA,cn=host1.example.com,cn=masters,cn=ipa,cn=etc,dc=example,dc=com",
		"cn=host1.example.com,cn=masters,cn=ipa,cn=etc,dc=example,dc=com",
		"cn=masters,cn=ipa,cn=etc,dc=example,dc=com",
	}, dns)
}

func TestDomainFromSuffix(t *testing.T) {
	t.Run("With plain suffix", func(t *testing.T) {
		domain, err := DomainFromSuffix("dc=greyoak,dc=com")
		require.NoError(t, err)
		assert.Equal(t, "greyoak.com", domain)
	})
	t.Run("With deep suffix", func(t *testing.T) {
		domain, err := DomainFromSuffix("dc=lab,dc=example,dc=com")
		require.NoError(t, err)
		assert.Equal(t, "lab.example.com", domain)
	})
	t.Run("With non dc components", func(t *testing.T) {
		domain, err := DomainFromSuffix("cn=sub,dc=example,dc=com")
		require.NoError(t, err)
		assert.Equal(t, "sub.example.com", domain)
	})
	t.Run("With invalid suffix", func(t *testing.T) {
		_, err := DomainFromSuffix("===")
		assert.Error(t, err)
	})
}

func TestSuffixFromRealm(t *testing.T) {
	assert.Equal(t, "dc=example,dc=com", SuffixFromRealm("EXAMPLE.COM"))
	assert.Equal(t, "dc=ipa,dc=greyoak,dc=com", SuffixFromRealm("IPA.GREYOAK.COM"))
}

func TestSuffixRealmRoundTrip(t *testing.T) {
	suffix := SuffixFromRealm("IPA.EXAMPLE.COM")
	domain, err := DomainFromSuffix(suffix)
	require.NoError(t, err)
	assert.Equal(t, "ipa.example.com", domain)
}

func TestEscapeDNValue(t *testing.T) {
	escaped := EscapeDNValue("dc=example,dc=com")
	assert.Equal(t, `dc\3Dexample\2Cdc\3Dcom`, escaped)
}
