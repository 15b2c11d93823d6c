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

// Package ldapdir implements directory.Handle on top of a real LDAP
// connection to a 389-ds instance. It owns dialing, binding and the
// translation of LDAP result codes into the directory error taxonomy;
// everything above it stays protocol-free.
package ldapdir

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"strconv"
	"strings"

	"github.com/flowchartsman/retry"
	"github.com/go-ldap/ldap/v3"
	"go.uber.org/atomic"

	"github.com/cjeanner/freeipa/directory"
	"github.com/cjeanner/freeipa/log"
)

// enforce compilation error
var _ directory.Handle = (*Conn)(nil)

// Conn is an authenticated LDAP session implementing directory.Handle.
type Conn struct {
	host   string
	port   int
	conn   *ldap.Conn
	logger log.Logger
	closed *atomic.Bool
}

// Connect dials the configured directory server, retrying the dial a few
// times before giving up, and binds with the configured identity. Dial
// failures surface as directory.ErrUnavailable, rejected credentials as
// directory.ErrAuthFailure.
func Connect(ctx context.Context, config *Config) (*Conn, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	var conn *ldap.Conn
	retrier := retry.NewRetrier(config.dialAttempts, config.dialBackoff, config.dialBackoff)
	err := retrier.RunContext(ctx, func(context.Context) error {
		var dialErr error
		conn, dialErr = dial(config)
		if dialErr != nil {
			config.logger.Debugf("dial %s:%d failed: %v", config.host, config.port, dialErr)
		}
		return dialErr
	})
	if err != nil {
		return nil, directory.NewErrUnavailable(config.host, err)
	}

	conn.SetTimeout(config.timeout)

	switch config.mode {
	case bindExternal:
		err = conn.ExternalBind()
	default:
		err = conn.Bind(config.bindDN, config.bindPassword)
	}
	if err != nil {
		_ = conn.Close()
		if ldap.IsErrorWithCode(err, ldap.LDAPResultInvalidCredentials) {
			return nil, directory.NewErrAuthFailure(config.host, err)
		}
		return nil, directory.NewErrUnavailable(config.host, err)
	}

	config.logger.Debugf("connected to directory server %s:%d", config.host, config.port)
	return &Conn{
		host:   config.host,
		port:   config.port,
		conn:   conn,
		logger: config.logger,
		closed: atomic.NewBool(false),
	}, nil
}

func dial(config *Config) (*ldap.Conn, error) {
	address := net.JoinHostPort(config.host, strconv.Itoa(config.port))
	if config.plaintext {
		return ldap.DialURL("ldap://" + address)
	}
	tlsConfig := config.tlsConfig
	if tlsConfig == nil {
		tlsConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	} else {
		tlsConfig = tlsConfig.Clone()
	}
	if tlsConfig.ServerName == "" {
		tlsConfig.ServerName = config.host
	}
	tlsConfig.InsecureSkipVerify = config.insecureTLS
	return ldap.DialURL("ldaps://"+address, ldap.DialWithTLSConfig(tlsConfig))
}

// Host implements directory.Handle.
func (c *Conn) Host() string {
	return c.host
}

// Port implements directory.Handle.
func (c *Conn) Port() int {
	return c.port
}

// ReadEntry implements directory.Handle.
func (c *Conn) ReadEntry(ctx context.Context, dn string, scope directory.Scope, filter string, attrs []string) (*directory.Entry, error) {
	if err := c.guard(ctx); err != nil {
		return nil, err
	}
	result, err := c.conn.Search(newSearchRequest(dn, scope, filter, attrs))
	if err != nil {
		if ldap.IsErrorWithCode(err, ldap.LDAPResultNoSuchObject) {
			return nil, directory.NewErrNotFound(dn)
		}
		return nil, c.mapError(dn, err)
	}
	if len(result.Entries) == 0 {
		return nil, directory.NewErrNotFound(dn)
	}
	return fromLDAPEntry(result.Entries[0]), nil
}

// SearchEntries implements directory.Handle. A missing search base yields
// an empty result rather than an error.
func (c *Conn) SearchEntries(ctx context.Context, base string, scope directory.Scope, filter string, attrs []string) ([]*directory.Entry, error) {
	if err := c.guard(ctx); err != nil {
		return nil, err
	}
	result, err := c.conn.Search(newSearchRequest(base, scope, filter, attrs))
	if err != nil {
		if ldap.IsErrorWithCode(err, ldap.LDAPResultNoSuchObject) {
			return nil, nil
		}
		return nil, c.mapError(base, err)
	}
	entries := make([]*directory.Entry, 0, len(result.Entries))
	for _, raw := range result.Entries {
		entries = append(entries, fromLDAPEntry(raw))
	}
	return entries, nil
}

// CreateEntry implements directory.Handle.
func (c *Conn) CreateEntry(ctx context.Context, entry *directory.Entry) error {
	if err := c.guard(ctx); err != nil {
		return err
	}
	request := ldap.NewAddRequest(entry.DN, nil)
	for _, attr := range entry.Attributes() {
		request.Attribute(attr, entry.Values(attr))
	}
	if err := c.conn.Add(request); err != nil {
		return c.mapError(entry.DN, err)
	}
	return nil
}

// ModifyEntry implements directory.Handle.
func (c *Conn) ModifyEntry(ctx context.Context, dn string, mods ...directory.Mod) error {
	if err := c.guard(ctx); err != nil {
		return err
	}
	request := ldap.NewModifyRequest(dn, nil)
	attrs := make([]string, 0, len(mods))
	for _, mod := range mods {
		attrs = append(attrs, mod.Attr)
		switch mod.Op {
		case directory.ModAdd:
			request.Add(mod.Attr, mod.Values)
		case directory.ModReplace:
			request.Replace(mod.Attr, mod.Values)
		case directory.ModDelete:
			request.Delete(mod.Attr, mod.Values)
		}
	}
	if err := c.conn.Modify(request); err != nil {
		if ldap.IsErrorWithCode(err, ldap.LDAPResultAttributeOrValueExists) {
			return directory.NewErrTypeOrValueExists(dn, strings.Join(attrs, ","))
		}
		return c.mapError(dn, err)
	}
	return nil
}

// DeleteEntry implements directory.Handle.
func (c *Conn) DeleteEntry(ctx context.Context, dn string) error {
	if err := c.guard(ctx); err != nil {
		return err
	}
	if err := c.conn.Del(ldap.NewDelRequest(dn, nil)); err != nil {
		return c.mapError(dn, err)
	}
	return nil
}

// Close implements directory.Handle. Closing twice is safe.
func (c *Conn) Close() error {
	if c.closed.CompareAndSwap(false, true) {
		return c.conn.Close()
	}
	return nil
}

func (c *Conn) guard(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if c.closed.Load() {
		return directory.ErrHandleClosed
	}
	return nil
}

// mapError translates an LDAP result code into the directory error
// taxonomy. Codes without a sentinel keep the original error, wrapped
// with the operation target for context.
func (c *Conn) mapError(dn string, err error) error {
	return mapResultError(c.host, dn, err)
}

func mapResultError(host, dn string, err error) error {
	switch {
	case err == nil:
		return nil
	case ldap.IsErrorWithCode(err, ldap.LDAPResultNoSuchObject):
		return directory.NewErrNotFound(dn)
	case ldap.IsErrorWithCode(err, ldap.LDAPResultEntryAlreadyExists):
		return directory.NewErrAlreadyExists(dn)
	case ldap.IsErrorWithCode(err, ldap.LDAPResultAttributeOrValueExists):
		return directory.NewErrTypeOrValueExists(dn, "")
	case ldap.IsErrorWithCode(err, ldap.LDAPResultNotAllowedOnNonLeaf):
		return directory.NewErrNotAllowedOnNonLeaf(dn)
	case ldap.IsErrorWithCode(err, ldap.LDAPResultInvalidCredentials),
		ldap.IsErrorWithCode(err, ldap.LDAPResultInsufficientAccessRights):
		return directory.NewErrAuthFailure(host, err)
	case ldap.IsErrorWithCode(err, ldap.LDAPResultBusy),
		ldap.IsErrorWithCode(err, ldap.LDAPResultUnavailable),
		ldap.IsErrorWithCode(err, ldap.ErrorNetwork):
		return directory.NewErrUnavailable(host, err)
	default:
		return fmt.Errorf("host=%s dn=%s: %w", host, dn, err)
	}
}

func newSearchRequest(base string, scope directory.Scope, filter string, attrs []string) *ldap.SearchRequest {
	if strings.TrimSpace(filter) == "" {
		filter = "(objectClass=*)"
	}
	return ldap.NewSearchRequest(
		base,
		ldapScope(scope),
		ldap.NeverDerefAliases,
		0,
		0,
		false,
		filter,
		attrs,
		nil,
	)
}

func ldapScope(scope directory.Scope) int {
	switch scope {
	case directory.ScopeBase:
		return ldap.ScopeBaseObject
	case directory.ScopeOneLevel:
		return ldap.ScopeSingleLevel
	default:
		return ldap.ScopeWholeSubtree
	}
}

func fromLDAPEntry(raw *ldap.Entry) *directory.Entry {
	entry := directory.NewEntry(raw.DN)
	for _, attr := range raw.Attributes {
		entry.SetValues(attr.Name, attr.Values...)
	}
	return entry
}
