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

package ldapdir

import (
	"errors"
	"testing"

	"github.com/go-ldap/ldap/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cjeanner/freeipa/directory"
)

func TestMapResultError(t *testing.T) {
	testCases := []struct {
		name     string
		code     uint16
		expected error
	}{
		{name: "no such object", code: ldap.LDAPResultNoSuchObject, expected: directory.ErrNotFound},
		{name: "entry already exists", code: ldap.LDAPResultEntryAlreadyExists, expected: directory.ErrAlreadyExists},
		{name: "attribute or value exists", code: ldap.LDAPResultAttributeOrValueExists, expected: directory.ErrTypeOrValueExists},
		{name: "not allowed on non leaf", code: ldap.LDAPResultNotAllowedOnNonLeaf, expected: directory.ErrNotAllowedOnNonLeaf},
		{name: "invalid credentials", code: ldap.LDAPResultInvalidCredentials, expected: directory.ErrAuthFailure},
		{name: "insufficient access", code: ldap.LDAPResultInsufficientAccessRights, expected: directory.ErrAuthFailure},
		{name: "server busy", code: ldap.LDAPResultBusy, expected: directory.ErrUnavailable},
		{name: "server unavailable", code: ldap.LDAPResultUnavailable, expected: directory.ErrUnavailable},
		{name: "network error", code: ldap.ErrorNetwork, expected: directory.ErrUnavailable},
	}
	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			raw := ldap.NewError(testCase.code, errors.New("ldap failure"))
			err := mapResultError("ds1.example.com", "cn=replica,cn=config", raw)
			assert.ErrorIs(t, err, testCase.expected)
		})
	}

	t.Run("unmapped codes keep the original error", func(t *testing.T) {
		raw := ldap.NewError(ldap.LDAPResultUnwillingToPerform, errors.New("server says no"))
		err := mapResultError("ds1.example.com", "cn=config", raw)
		require.Error(t, err)
		assert.True(t, ldap.IsErrorWithCode(err, ldap.LDAPResultUnwillingToPerform))
	})

	t.Run("nil stays nil", func(t *testing.T) {
		assert.NoError(t, mapResultError("ds1.example.com", "cn=config", nil))
	})
}

func TestNewSearchRequestDefaults(t *testing.T) {
	request := newSearchRequest("dc=example,dc=com", directory.ScopeSubtree, "", []string{"cn"})
	assert.Equal(t, "(objectClass=*)", request.Filter)
	assert.Equal(t, ldap.ScopeWholeSubtree, request.Scope)
	assert.Equal(t, ldap.NeverDerefAliases, request.DerefAliases)
	assert.Equal(t, []string{"cn"}, request.Attributes)
}

func TestLDAPScopeMapping(t *testing.T) {
	assert.Equal(t, ldap.ScopeBaseObject, ldapScope(directory.ScopeBase))
	assert.Equal(t, ldap.ScopeSingleLevel, ldapScope(directory.ScopeOneLevel))
	assert.Equal(t, ldap.ScopeWholeSubtree, ldapScope(directory.ScopeSubtree))
}

func TestFromLDAPEntry(t *testing.T) {
	raw := ldap.NewEntry("cn=replica,cn=config", map[string][]string{
		"cn":             {"replica"},
		"nsDS5ReplicaId": {"4"},
	})
	entry := fromLDAPEntry(raw)
	assert.Equal(t, "cn=replica,cn=config", entry.DN)
	assert.Equal(t, "4", entry.Value("nsds5replicaid"))
	assert.Equal(t, "replica", entry.Value("CN"))
}

func TestConfigValidate(t *testing.T) {
	t.Run("With a valid simple bind config", func(t *testing.T) {
		config := NewConfig("ds1.example.com",
			WithSimpleBind("cn=Directory Manager", "hunter2"),
			WithPort(636))
		assert.NoError(t, config.Validate())
	})

	t.Run("With missing credentials", func(t *testing.T) {
		config := NewConfig("ds1.example.com")
		err := config.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "bind")
	})

	t.Run("With a bad port", func(t *testing.T) {
		config := NewConfig("ds1.example.com",
			WithSimpleBind("cn=Directory Manager", "hunter2"),
			WithPort(-1))
		assert.Error(t, config.Validate())
	})

	t.Run("With a bad host", func(t *testing.T) {
		config := NewConfig("not a host",
			WithSimpleBind("cn=Directory Manager", "hunter2"))
		assert.Error(t, config.Validate())
	})

	t.Run("With external bind no credentials are needed", func(t *testing.T) {
		config := NewConfig("ds1.example.com", WithExternalBind())
		assert.NoError(t, config.Validate())
	})
}
