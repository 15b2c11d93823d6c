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

// Package memdir provides an in-memory directory.Handle. It keeps entries in
// a flat DN-keyed map and implements scoped searches with a small LDAP
// filter evaluator, which is enough to stand in for a 389-ds instance in
// tests. It enforces neither schema nor parent existence on create, but it
// does refuse to delete non-leaf entries so that deletion-order bugs show up.
package memdir

import (
	"context"
	"sort"
	"sync"

	"go.uber.org/atomic"

	"github.com/cjeanner/freeipa/directory"
)

// enforce compilation error
var _ directory.Handle = (*Directory)(nil)

// Directory is an in-memory directory node.
type Directory struct {
	mu      sync.RWMutex
	host    string
	port    int
	entries map[string]*directory.Entry
	closed  *atomic.Bool
}

// Option configures a Directory.
type Option func(*Directory)

// WithPort sets the port the fake node reports. Defaults to 389.
func WithPort(port int) Option {
	return func(d *Directory) {
		d.port = port
	}
}

// New creates an empty in-memory directory node for the given host.
func New(host string, opts ...Option) *Directory {
	d := &Directory{
		host:    host,
		port:    389,
		entries: make(map[string]*directory.Entry),
		closed:  atomic.NewBool(false),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Host returns the hostname the node was created with.
func (d *Directory) Host() string {
	return d.host
}

// Port returns the port the node reports.
func (d *Directory) Port() int {
	return d.port
}

// ReadEntry implements directory.Handle.
func (d *Directory) ReadEntry(ctx context.Context, dn string, scope directory.Scope, filter string, attrs []string) (*directory.Entry, error) {
	entries, err := d.SearchEntries(ctx, dn, scope, filter, attrs)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, directory.NewErrNotFound(dn)
	}
	return entries[0], nil
}

// SearchEntries implements directory.Handle. A missing base yields an empty
// result, never an error.
func (d *Directory) SearchEntries(ctx context.Context, base string, scope directory.Scope, filter string, attrs []string) ([]*directory.Entry, error) {
	if err := d.guard(ctx); err != nil {
		return nil, err
	}

	match, err := compileFilter(filter)
	if err != nil {
		return nil, err
	}

	d.mu.RLock()
	defer d.mu.RUnlock()

	fbase := directory.FoldDN(base)
	keys := make([]string, 0, len(d.entries))
	for key := range d.entries {
		if !inScope(key, fbase, scope) {
			continue
		}
		keys = append(keys, key)
	}
	sort.Strings(keys)

	out := make([]*directory.Entry, 0, len(keys))
	for _, key := range keys {
		entry := d.entries[key]
		if !match(entry) {
			continue
		}
		out = append(out, entry.Project(attrs))
	}
	return out, nil
}

func inScope(key, fbase string, scope directory.Scope) bool {
	switch scope {
	case directory.ScopeBase:
		return key == fbase
	case directory.ScopeOneLevel:
		return key != fbase && directory.Under(key, fbase) && directory.Depth(key) == directory.Depth(fbase)+1
	default:
		return directory.Under(key, fbase)
	}
}

// CreateEntry implements directory.Handle.
func (d *Directory) CreateEntry(ctx context.Context, entry *directory.Entry) error {
	if err := d.guard(ctx); err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	key := directory.FoldDN(entry.DN)
	if _, ok := d.entries[key]; ok {
		return directory.NewErrAlreadyExists(entry.DN)
	}
	d.entries[key] = entry.Clone()
	return nil
}

// ModifyEntry implements directory.Handle. The modifications are applied
// atomically: when one of them fails the entry is left untouched.
func (d *Directory) ModifyEntry(ctx context.Context, dn string, mods ...directory.Mod) error {
	if err := d.guard(ctx); err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	key := directory.FoldDN(dn)
	current, ok := d.entries[key]
	if !ok {
		return directory.NewErrNotFound(dn)
	}

	staged := current.Clone()
	for _, mod := range mods {
		switch mod.Op {
		case directory.ModAdd:
			for _, value := range mod.Values {
				if staged.HasValue(mod.Attr, value) {
					return directory.NewErrTypeOrValueExists(dn, mod.Attr)
				}
			}
			staged.AddValues(mod.Attr, mod.Values...)
		case directory.ModReplace:
			staged.SetValues(mod.Attr, mod.Values...)
		case directory.ModDelete:
			if len(mod.Values) == 0 {
				staged.RemoveAttribute(mod.Attr)
				continue
			}
			staged.RemoveValues(mod.Attr, mod.Values...)
		}
	}
	d.entries[key] = staged
	return nil
}

// DeleteEntry implements directory.Handle. Entries that still have children
// cannot be deleted, mirroring how a real directory server behaves.
func (d *Directory) DeleteEntry(ctx context.Context, dn string) error {
	if err := d.guard(ctx); err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	key := directory.FoldDN(dn)
	if _, ok := d.entries[key]; !ok {
		return directory.NewErrNotFound(dn)
	}
	for other := range d.entries {
		if other != key && directory.Under(other, key) {
			return directory.NewErrNotAllowedOnNonLeaf(dn)
		}
	}
	delete(d.entries, key)
	return nil
}

// Close implements directory.Handle.
func (d *Directory) Close() error {
	d.closed.Store(true)
	return nil
}

// Entry returns a copy of the stored entry at dn, or nil when absent. This
// is a test helper and not part of directory.Handle.
func (d *Directory) Entry(dn string) *directory.Entry {
	d.mu.RLock()
	defer d.mu.RUnlock()
	entry, ok := d.entries[directory.FoldDN(dn)]
	if !ok {
		return nil
	}
	return entry.Clone()
}

// DNs returns the folded DNs of every stored entry, sorted. This is a test
// helper and not part of directory.Handle.
func (d *Directory) DNs() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	dns := make([]string, 0, len(d.entries))
	for key := range d.entries {
		dns = append(dns, key)
	}
	sort.Strings(dns)
	return dns
}

func (d *Directory) guard(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if d.closed.Load() {
		return directory.ErrHandleClosed
	}
	return nil
}
