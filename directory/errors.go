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
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when the requested entry does not exist or
	// when a read matches nothing.
	ErrNotFound = errors.New("entry not found")

	// ErrAlreadyExists is returned when creating an entry whose DN is
	// already taken.
	ErrAlreadyExists = errors.New("entry already exists")

	// ErrTypeOrValueExists is returned when an add modification duplicates
	// a value the attribute already carries.
	ErrTypeOrValueExists = errors.New("attribute or value already exists")

	// ErrNotAllowedOnNonLeaf is returned when deleting an entry that still
	// has children.
	ErrNotAllowedOnNonLeaf = errors.New("operation not allowed on non-leaf entry")

	// ErrAuthFailure is returned when the directory server rejects the
	// bind credentials.
	ErrAuthFailure = errors.New("authentication failed")

	// ErrUnavailable is returned when the directory server cannot be
	// reached or refuses to serve the operation.
	ErrUnavailable = errors.New("directory server unavailable")

	// ErrHandleClosed is returned when an operation is attempted on a
	// closed handle.
	ErrHandleClosed = errors.New("directory handle is closed")

	// ErrInvalidDN is returned when a distinguished name cannot be parsed.
	ErrInvalidDN = errors.New("invalid distinguished name")
)

// NewErrNotFound returns an ErrNotFound carrying the DN that was requested.
func NewErrNotFound(dn string) error {
	return fmt.Errorf("dn=%s: %w", dn, ErrNotFound)
}

// NewErrAlreadyExists returns an ErrAlreadyExists carrying the conflicting DN.
func NewErrAlreadyExists(dn string) error {
	return fmt.Errorf("dn=%s: %w", dn, ErrAlreadyExists)
}

// NewErrTypeOrValueExists returns an ErrTypeOrValueExists for the given
// entry and attribute.
func NewErrTypeOrValueExists(dn, attr string) error {
	return fmt.Errorf("dn=%s attribute=%s: %w", dn, attr, ErrTypeOrValueExists)
}

// NewErrNotAllowedOnNonLeaf returns an ErrNotAllowedOnNonLeaf carrying the DN.
func NewErrNotAllowedOnNonLeaf(dn string) error {
	return fmt.Errorf("dn=%s: %w", dn, ErrNotAllowedOnNonLeaf)
}

// NewErrAuthFailure returns an ErrAuthFailure for the given host.
func NewErrAuthFailure(host string, err error) error {
	return errors.Join(fmt.Errorf("host=%s: %w", host, ErrAuthFailure), err)
}

// NewErrUnavailable returns an ErrUnavailable for the given host.
func NewErrUnavailable(host string, err error) error {
	return errors.Join(fmt.Errorf("host=%s: %w", host, ErrUnavailable), err)
}

// NewErrInvalidDN returns an ErrInvalidDN carrying the offending DN.
func NewErrInvalidDN(dn string, err error) error {
	return errors.Join(fmt.Errorf("dn=%s: %w", dn, ErrInvalidDN), err)
}
