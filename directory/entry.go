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
	"sort"
	"strings"
)

// Entry is a directory entry: a DN plus a set of multi-valued attributes.
// Attribute names are case-insensitive, which matches how directory servers
// treat them; the spelling used when an attribute is first set is preserved
// for display.
type Entry struct {
	// DN is the distinguished name of the entry.
	DN string

	values map[string][]string
	names  map[string]string
}

// NewEntry creates an empty entry with the given DN.
func NewEntry(dn string) *Entry {
	return &Entry{
		DN:     dn,
		values: make(map[string][]string),
		names:  make(map[string]string),
	}
}

func foldAttr(attr string) string {
	return strings.ToLower(strings.TrimSpace(attr))
}

// SetValues replaces every value of the given attribute. Setting an
// attribute to no values removes it.
func (e *Entry) SetValues(attr string, values ...string) {
	key := foldAttr(attr)
	if len(values) == 0 {
		delete(e.values, key)
		delete(e.names, key)
		return
	}
	if _, ok := e.names[key]; !ok {
		e.names[key] = attr
	}
	e.values[key] = append([]string(nil), values...)
}

// AddValues appends values to the given attribute, creating it when absent.
func (e *Entry) AddValues(attr string, values ...string) {
	if len(values) == 0 {
		return
	}
	key := foldAttr(attr)
	if _, ok := e.names[key]; !ok {
		e.names[key] = attr
	}
	e.values[key] = append(e.values[key], values...)
}

// RemoveValues removes the given values from the attribute. The attribute
// disappears once its last value is removed.
func (e *Entry) RemoveValues(attr string, values ...string) {
	key := foldAttr(attr)
	current, ok := e.values[key]
	if !ok {
		return
	}
	kept := current[:0]
	for _, v := range current {
		drop := false
		for _, doomed := range values {
			if strings.EqualFold(v, doomed) {
				drop = true
				break
			}
		}
		if !drop {
			kept = append(kept, v)
		}
	}
	if len(kept) == 0 {
		delete(e.values, key)
		delete(e.names, key)
		return
	}
	e.values[key] = kept
}

// RemoveAttribute removes the attribute and all its values.
func (e *Entry) RemoveAttribute(attr string) {
	key := foldAttr(attr)
	delete(e.values, key)
	delete(e.names, key)
}

// Values returns a copy of the values of the given attribute, or nil when
// the attribute is absent.
func (e *Entry) Values(attr string) []string {
	current, ok := e.values[foldAttr(attr)]
	if !ok {
		return nil
	}
	return append([]string(nil), current...)
}

// Value returns the first value of the given attribute, or the empty string
// when the attribute is absent.
func (e *Entry) Value(attr string) string {
	current := e.values[foldAttr(attr)]
	if len(current) == 0 {
		return ""
	}
	return current[0]
}

// Has reports whether the entry carries the given attribute.
func (e *Entry) Has(attr string) bool {
	_, ok := e.values[foldAttr(attr)]
	return ok
}

// HasValue reports whether the attribute carries the given value. Values
// are compared case-insensitively, the way directory servers compare the
// attributes this coordinator touches.
func (e *Entry) HasValue(attr, value string) bool {
	for _, v := range e.values[foldAttr(attr)] {
		if strings.EqualFold(v, value) {
			return true
		}
	}
	return false
}

// Attributes returns the attribute names of the entry in their original
// spelling, sorted for deterministic iteration.
func (e *Entry) Attributes() []string {
	names := make([]string, 0, len(e.names))
	for _, name := range e.names {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		return strings.ToLower(names[i]) < strings.ToLower(names[j])
	})
	return names
}

// Clone returns a deep copy of the entry.
func (e *Entry) Clone() *Entry {
	clone := NewEntry(e.DN)
	for key, vals := range e.values {
		clone.values[key] = append([]string(nil), vals...)
		clone.names[key] = e.names[key]
	}
	return clone
}

// Project returns a copy of the entry restricted to the requested
// attributes. An empty request returns the full entry.
func (e *Entry) Project(attrs []string) *Entry {
	if len(attrs) == 0 {
		return e.Clone()
	}
	projected := NewEntry(e.DN)
	for _, attr := range attrs {
		key := foldAttr(attr)
		if vals, ok := e.values[key]; ok {
			projected.values[key] = append([]string(nil), vals...)
			projected.names[key] = e.names[key]
		}
	}
	return projected
}
