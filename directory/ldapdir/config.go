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
	"crypto/tls"
	"time"

	"github.com/cjeanner/freeipa/internal/validation"
	"github.com/cjeanner/freeipa/log"
)

type bindMode int

const (
	bindSimple bindMode = iota
	bindExternal
)

const (
	// DefaultPort is the LDAPS port directory servers listen on.
	DefaultPort = 636

	defaultTimeout      = 30 * time.Second
	defaultDialAttempts = 5
	defaultDialBackoff  = time.Second
)

// Config carries everything needed to reach and authenticate against one
// directory server.
type Config struct {
	host         string
	port         int
	mode         bindMode
	bindDN       string
	bindPassword string
	plaintext    bool
	tlsConfig    *tls.Config
	insecureTLS  bool
	timeout      time.Duration
	dialAttempts int
	dialBackoff  time.Duration
	logger       log.Logger
}

// Option configures a Config.
type Option func(*Config)

// WithPort overrides the default LDAPS port.
func WithPort(port int) Option {
	return func(c *Config) { c.port = port }
}

// WithSimpleBind authenticates with the given DN and password. This is the
// default mode; without credentials Validate rejects the config.
func WithSimpleBind(bindDN, password string) Option {
	return func(c *Config) {
		c.mode = bindSimple
		c.bindDN = bindDN
		c.bindPassword = password
	}
}

// WithExternalBind authenticates through SASL EXTERNAL, which maps the TLS
// client certificate (or the unix socket peer) to a directory identity.
func WithExternalBind() Option {
	return func(c *Config) { c.mode = bindExternal }
}

// WithPlaintext disables TLS and connects over ldap://. Only sensible for
// localhost connections.
func WithPlaintext() Option {
	return func(c *Config) { c.plaintext = true }
}

// WithTLSConfig supplies the TLS client configuration, typically carrying
// the IPA CA certificate pool.
func WithTLSConfig(tlsConfig *tls.Config) Option {
	return func(c *Config) { c.tlsConfig = tlsConfig }
}

// WithInsecureTLS skips server certificate verification.
func WithInsecureTLS() Option {
	return func(c *Config) { c.insecureTLS = true }
}

// WithTimeout sets the per-operation timeout on the wire connection.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Config) { c.timeout = timeout }
}

// WithDialRetry controls how often and how patiently the dial is retried
// before the node is reported unavailable.
func WithDialRetry(attempts int, backoff time.Duration) Option {
	return func(c *Config) {
		c.dialAttempts = attempts
		c.dialBackoff = backoff
	}
}

// WithLogger sets the logger. Defaults to log.DefaultLogger.
func WithLogger(logger log.Logger) Option {
	return func(c *Config) { c.logger = logger }
}

// NewConfig creates a Config for the given host with the default LDAPS
// port and simple bind mode.
func NewConfig(host string, opts ...Option) *Config {
	config := &Config{
		host:         host,
		port:         DefaultPort,
		mode:         bindSimple,
		timeout:      defaultTimeout,
		dialAttempts: defaultDialAttempts,
		dialBackoff:  defaultDialBackoff,
		logger:       log.DefaultLogger,
	}
	for _, opt := range opts {
		opt(config)
	}
	return config
}

// Validate checks the config before any connection attempt.
func (c *Config) Validate() error {
	chain := validation.New(validation.AllErrors()).
		AddValidator(validation.NewHostnameValidator("host", c.host)).
		AddAssertion(c.port > 0 && c.port <= 65535, "the [port] is invalid").
		AddAssertion(c.timeout > 0, "the [timeout] must be positive").
		AddAssertion(c.dialAttempts > 0, "the [dial attempts] must be positive")
	if c.mode == bindSimple {
		chain.
			AddValidator(validation.NewDNValidator("bind dn", c.bindDN)).
			AddValidator(validation.NewEmptyStringValidator("bind password", c.bindPassword))
	}
	return chain.Validate()
}
