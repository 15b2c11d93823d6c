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

// Package errorschain chains a sequence of fallible steps and reduces their
// outcome to a single error. Steps can be added as already-computed errors
// or as functions that are only run when the chain is evaluated, which lets
// a caller pick between run-everything and stop-at-first-failure behavior.
package errorschain

import "go.uber.org/multierr"

// Chain is an ordered list of fallible steps.
type Chain struct {
	returnFirst bool
	links       []func() error
}

// ChainOption configures a chain at creation time.
type ChainOption func(*Chain)

// ReturnFirst makes the chain report the first non-nil error. Steps added
// as functions after the failing one are never run.
func ReturnFirst() ChainOption {
	return func(c *Chain) { c.returnFirst = true }
}

// ReturnAll makes the chain run every step and report the combined errors.
func ReturnAll() ChainOption {
	return func(c *Chain) { c.returnFirst = false }
}

// New creates a chain.
func New(opts ...ChainOption) *Chain {
	chain := &Chain{}
	for _, opt := range opts {
		opt(chain)
	}
	return chain
}

// AddError appends an already-computed error to the chain. The work that
// produced it has been done by the caller, so a ReturnFirst chain built
// from AddError calls runs everything and surfaces the first failure.
func (c *Chain) AddError(err error) *Chain {
	c.links = append(c.links, func() error { return err })
	return c
}

// AddErrors appends several already-computed errors to the chain.
func (c *Chain) AddErrors(errs ...error) *Chain {
	for _, err := range errs {
		c.AddError(err)
	}
	return c
}

// AddErrorFn appends a deferred step. It only runs when the chain is
// evaluated and, on a ReturnFirst chain, only when no earlier step failed.
func (c *Chain) AddErrorFn(fn func() error) *Chain {
	c.links = append(c.links, fn)
	return c
}

// AddErrorFns appends several deferred steps.
func (c *Chain) AddErrorFns(fns ...func() error) *Chain {
	c.links = append(c.links, fns...)
	return c
}

// Error evaluates the chain.
func (c *Chain) Error() error {
	var combined error
	for _, link := range c.links {
		if err := link(); err != nil {
			if c.returnFirst {
				return err
			}
			combined = multierr.Append(combined, err)
		}
	}
	return combined
}
