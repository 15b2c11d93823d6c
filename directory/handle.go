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

// Package directory defines the narrow surface the replication coordinator
// needs from a directory server node: scoped reads, entry writes and a couple
// of DN helpers. Concrete backends live in subpackages; ldapdir speaks the
// wire protocol to a real 389-ds instance while memdir keeps everything
// in memory for tests.
package directory

import "context"

// Scope selects how much of the tree below a base DN an operation covers.
type Scope int

const (
	// ScopeBase covers the base entry only.
	ScopeBase Scope = iota
	// ScopeOneLevel covers the immediate children of the base entry.
	ScopeOneLevel
	// ScopeSubtree covers the base entry and everything below it.
	ScopeSubtree
)

func (s Scope) String() string {
	switch s {
	case ScopeBase:
		return "base"
	case ScopeOneLevel:
		return "onelevel"
	case ScopeSubtree:
		return "subtree"
	default:
		return "unknown"
	}
}

// ModOp enumerates the modification operations a directory server understands.
type ModOp int

const (
	// ModAdd appends values to an attribute.
	ModAdd ModOp = iota
	// ModReplace replaces every value of an attribute.
	ModReplace
	// ModDelete removes the given values, or the whole attribute when no
	// values are given.
	ModDelete
)

func (o ModOp) String() string {
	switch o {
	case ModAdd:
		return "add"
	case ModReplace:
		return "replace"
	case ModDelete:
		return "delete"
	default:
		return "unknown"
	}
}

// Mod is a single attribute modification applied to an existing entry.
type Mod struct {
	Op     ModOp
	Attr   string
	Values []string
}

// AddMod builds an add modification.
func AddMod(attr string, values ...string) Mod {
	return Mod{Op: ModAdd, Attr: attr, Values: values}
}

// ReplaceMod builds a replace modification.
func ReplaceMod(attr string, values ...string) Mod {
	return Mod{Op: ModReplace, Attr: attr, Values: values}
}

// DeleteMod builds a delete modification. With no values the whole
// attribute is removed.
func DeleteMod(attr string, values ...string) Mod {
	return Mod{Op: ModDelete, Attr: attr, Values: values}
}

// Handle is an authenticated session against a single directory node.
//
// Implementations are expected to be safe for sequential use only; the
// coordinator never shares a handle between goroutines. Every remote
// failure is reported through the error taxonomy of this package so that
// callers can tell an absent entry from an unreachable peer.
type Handle interface {
	// Host returns the hostname the handle is bound to.
	Host() string

	// Port returns the port the handle is bound to.
	Port() int

	// ReadEntry returns the first entry matching the given filter under dn.
	// It returns ErrNotFound when nothing matches. An empty filter reads
	// the entry itself. When attrs is non-empty the returned entry only
	// carries the requested attributes.
	ReadEntry(ctx context.Context, dn string, scope Scope, filter string, attrs []string) (*Entry, error)

	// SearchEntries returns every entry matching the filter under base.
	// A missing search base is not an error: the result is simply empty.
	SearchEntries(ctx context.Context, base string, scope Scope, filter string, attrs []string) ([]*Entry, error)

	// CreateEntry adds a new entry. It returns ErrAlreadyExists when an
	// entry with the same DN is already present.
	CreateEntry(ctx context.Context, entry *Entry) error

	// ModifyEntry applies the given modifications to the entry at dn in
	// order. It returns ErrNotFound when the entry does not exist and
	// ErrTypeOrValueExists when an add duplicates an existing value.
	ModifyEntry(ctx context.Context, dn string, mods ...Mod) error

	// DeleteEntry removes the entry at dn. It returns ErrNotFound when the
	// entry does not exist and ErrNotAllowedOnNonLeaf when the entry still
	// has children.
	DeleteEntry(ctx context.Context, dn string) error

	// Close releases the underlying session. Closing an already closed
	// handle is a no-op.
	Close() error
}
