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
	"strconv"
	"strings"

	"github.com/cjeanner/freeipa/directory"
)

// The evaluator covers the subset of RFC 4515 the replication coordinator
// actually sends: presence, equality, substring matches and the and/or/not
// composites. Extensible matches and ranges are not supported.

type filterNode interface {
	matches(entry *directory.Entry) bool
}

// compileFilter parses filter into a predicate. The empty filter matches
// everything.
func compileFilter(filter string) (func(entry *directory.Entry) bool, error) {
	filter = strings.TrimSpace(filter)
	if filter == "" {
		return func(*directory.Entry) bool { return true }, nil
	}
	if !strings.HasPrefix(filter, "(") {
		filter = "(" + filter + ")"
	}
	node, rest, err := parseFilterNode(filter)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(rest) != "" {
		return nil, fmt.Errorf("malformed filter %q: trailing data", filter)
	}
	return node.matches, nil
}

func parseFilterNode(s string) (filterNode, string, error) {
	if !strings.HasPrefix(s, "(") {
		return nil, "", fmt.Errorf("malformed filter %q: expected '('", s)
	}
	body := s[1:]
	if body == "" {
		return nil, "", fmt.Errorf("malformed filter %q: unterminated", s)
	}

	switch body[0] {
	case '&', '|':
		var children []filterNode
		rest := body[1:]
		for strings.HasPrefix(rest, "(") {
			child, remaining, err := parseFilterNode(rest)
			if err != nil {
				return nil, "", err
			}
			children = append(children, child)
			rest = remaining
		}
		if !strings.HasPrefix(rest, ")") {
			return nil, "", fmt.Errorf("malformed filter %q: expected ')'", s)
		}
		if body[0] == '&' {
			return andNode(children), rest[1:], nil
		}
		return orNode(children), rest[1:], nil

	case '!':
		child, rest, err := parseFilterNode(body[1:])
		if err != nil {
			return nil, "", err
		}
		if !strings.HasPrefix(rest, ")") {
			return nil, "", fmt.Errorf("malformed filter %q: expected ')'", s)
		}
		return &notNode{child: child}, rest[1:], nil

	default:
		end := strings.IndexByte(body, ')')
		if end < 0 {
			return nil, "", fmt.Errorf("malformed filter %q: unterminated comparison", s)
		}
		comparison := body[:end]
		eq := strings.IndexByte(comparison, '=')
		if eq <= 0 {
			return nil, "", fmt.Errorf("malformed filter %q: expected attr=value", s)
		}
		node := newComparisonNode(comparison[:eq], comparison[eq+1:])
		return node, body[end+1:], nil
	}
}

func newComparisonNode(attr, value string) filterNode {
	if value == "*" {
		return &presenceNode{attr: attr}
	}
	if strings.Contains(value, "*") {
		raw := strings.Split(value, "*")
		parts := make([]string, len(raw))
		for i, part := range raw {
			parts[i] = strings.ToLower(unescapeFilterValue(part))
		}
		return &substringNode{
			attr:          attr,
			parts:         parts,
			anchoredStart: !strings.HasPrefix(value, "*"),
			anchoredEnd:   !strings.HasSuffix(value, "*"),
		}
	}
	return &equalityNode{attr: attr, value: unescapeFilterValue(value)}
}

type andNode []filterNode

func (n andNode) matches(entry *directory.Entry) bool {
	for _, child := range n {
		if !child.matches(entry) {
			return false
		}
	}
	return true
}

type orNode []filterNode

func (n orNode) matches(entry *directory.Entry) bool {
	for _, child := range n {
		if child.matches(entry) {
			return true
		}
	}
	return false
}

type notNode struct {
	child filterNode
}

func (n *notNode) matches(entry *directory.Entry) bool {
	return !n.child.matches(entry)
}

type presenceNode struct {
	attr string
}

func (n *presenceNode) matches(entry *directory.Entry) bool {
	return entry.Has(n.attr)
}

type equalityNode struct {
	attr  string
	value string
}

func (n *equalityNode) matches(entry *directory.Entry) bool {
	return entry.HasValue(n.attr, n.value)
}

type substringNode struct {
	attr          string
	parts         []string
	anchoredStart bool
	anchoredEnd   bool
}

func (n *substringNode) matches(entry *directory.Entry) bool {
	for _, value := range entry.Values(n.attr) {
		if n.matchValue(strings.ToLower(value)) {
			return true
		}
	}
	return false
}

func (n *substringNode) matchValue(value string) bool {
	parts := n.parts
	if n.anchoredStart && len(parts) > 0 {
		if !strings.HasPrefix(value, parts[0]) {
			return false
		}
		value = value[len(parts[0]):]
		parts = parts[1:]
	}
	if n.anchoredEnd && len(parts) > 0 {
		last := parts[len(parts)-1]
		if !strings.HasSuffix(value, last) {
			return false
		}
		value = value[:len(value)-len(last)]
		parts = parts[:len(parts)-1]
	}
	for _, part := range parts {
		if part == "" {
			continue
		}
		idx := strings.Index(value, part)
		if idx < 0 {
			return false
		}
		value = value[idx+len(part):]
	}
	return true
}

// unescapeFilterValue reverses RFC 4515 hex escaping, turning sequences
// such as \2a back into their raw bytes. Invalid escapes are kept verbatim.
func unescapeFilterValue(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' && i+2 < len(s) {
			if code, err := strconv.ParseUint(s[i+1:i+3], 16, 8); err == nil {
				b.WriteByte(byte(code))
				i += 2
				continue
			}
		}
		b.WriteByte(s[i])
	}
	return b.String()
}
