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

	"github.com/go-ldap/ldap/v3"
)

// NormalizeDN parses dn and rebuilds it in canonical form: attribute types
// lowercased, components joined without whitespace, values re-escaped. It
// returns ErrInvalidDN when dn cannot be parsed.
func NormalizeDN(dn string) (string, error) {
	parsed, err := ldap.ParseDN(dn)
	if err != nil {
		return "", NewErrInvalidDN(dn, err)
	}
	rdns := make([]string, 0, len(parsed.RDNs))
	for _, rdn := range parsed.RDNs {
		atvs := make([]string, 0, len(rdn.Attributes))
		for _, atv := range rdn.Attributes {
			atvs = append(atvs, strings.ToLower(atv.Type)+"="+ldap.EscapeDN(atv.Value))
		}
		rdns = append(rdns, strings.Join(atvs, "+"))
	}
	return strings.Join(rdns, ","), nil
}

// FoldDN returns a case-folded canonical form of dn, suitable as a map key
// and for equality checks. Unparseable input falls back to a trimmed,
// lowercased copy so that lookups stay deterministic.
func FoldDN(dn string) string {
	normalized, err := NormalizeDN(dn)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(dn))
	}
	return strings.ToLower(normalized)
}

// EqualDN reports whether a and b name the same entry.
func EqualDN(a, b string) bool {
	return FoldDN(a) == FoldDN(b)
}

// Depth returns the number of relative components of dn. An unparseable DN
// falls back to counting separators.
func Depth(dn string) int {
	parsed, err := ldap.ParseDN(dn)
	if err != nil {
		return strings.Count(dn, ",") + 1
	}
	return len(parsed.RDNs)
}

// Under reports whether dn sits at or below base.
func Under(dn, base string) bool {
	fdn := FoldDN(dn)
	fbase := FoldDN(base)
	return fdn == fbase || strings.HasSuffix(fdn, ","+fbase)
}

// SortDeepestFirst orders DNs so that children always come before their
// parents, which is the only safe order for bulk deletion. Entries at the
// same depth keep a stable lexicographic order.
func SortDeepestFirst(dns []string) {
	sort.SliceStable(dns, func(i, j int) bool {
		di, dj := Depth(dns[i]), Depth(dns[j])
		if di != dj {
			return di > dj
		}
		return dns[i] < dns[j]
	})
}

// RDNValues returns the first attribute value of every component of dn,
// outermost component first.
func RDNValues(dn string) ([]string, error) {
	parsed, err := ldap.ParseDN(dn)
	if err != nil {
		return nil, NewErrInvalidDN(dn, err)
	}
	values := make([]string, 0, len(parsed.RDNs))
	for _, rdn := range parsed.RDNs {
		if len(rdn.Attributes) == 0 {
			continue
		}
		values = append(values, rdn.Attributes[0].Value)
	}
	return values, nil
}

// DomainFromSuffix derives the DNS domain that corresponds to a directory
// suffix: the value of every component joined by dots. For example the
// suffix dc=example,dc=com yields example.com.
func DomainFromSuffix(suffix string) (string, error) {
	values, err := RDNValues(suffix)
	if err != nil {
		return "", err
	}
	if len(values) == 0 {
		return "", NewErrInvalidDN(suffix, nil)
	}
	return strings.Join(values, "."), nil
}

// SuffixFromRealm derives the directory suffix that corresponds to a
// Kerberos realm: one dc component per realm label, lowercased. For example
// the realm EXAMPLE.COM yields dc=example,dc=com.
func SuffixFromRealm(realm string) string {
	labels := strings.Split(strings.TrimSpace(realm), ".")
	rdns := make([]string, 0, len(labels))
	for _, label := range labels {
		if label == "" {
			continue
		}
		rdns = append(rdns, "dc="+ldap.EscapeDN(strings.ToLower(label)))
	}
	return strings.Join(rdns, ",")
}

// EscapeDNValue escapes a value, typically itself a DN, so it can be
// embedded as a single component value inside another DN. The hexadecimal
// form matches what 389-ds uses for its mapping tree entries.
func EscapeDNValue(value string) string {
	value = strings.ReplaceAll(value, "=", `\3D`)
	return strings.ReplaceAll(value, ",", `\2C`)
}
