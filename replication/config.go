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

package replication

import (
	"errors"
	"strings"
	"time"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/google/uuid"

	"github.com/cjeanner/freeipa/directory"
	"github.com/cjeanner/freeipa/internal/validation"
	"github.com/cjeanner/freeipa/log"
)

const (
	// DefaultCounterSeed is the value the shared identifier counter is
	// created with when a deployment bootstraps without any peer.
	DefaultCounterSeed = 3

	// defaultAgreementPort is the port agreements dial their peer on.
	defaultAgreementPort = 389

	// agreementTimeout bounds, in seconds, how long the directory server
	// waits on a peer during a replication session.
	agreementTimeout = 120

	// defaultUpdateTries is the attempt budget of the bounded
	// incremental-update poll.
	defaultUpdateTries = 600

	// forcedSyncTries is the shorter budget used right after a forced
	// sync, when convergence is expected within seconds.
	forcedSyncTries = 30

	// defaultPollInterval is the pause between convergence checks.
	defaultPollInterval = time.Second

	// defaultManagerDN is the pseudo user agreements bind as until a
	// deployment moves to kerberos-based authentication.
	defaultManagerDN = "cn=replication manager,cn=config"
)

// defaultExcludedAttrs lists the attributes every agreement strips from
// the replicated attribute set. They are either recomputed locally or
// deliberately kept per node.
var defaultExcludedAttrs = []string{
	"memberof",
	"entryusn",
	"krblastsuccessfulauth",
	"krblastfailedauth",
	"krbloginfailedcount",
}

// Config carries the settings of a replication Manager.
type Config struct {
	realm           string
	suffix          string
	agreementPort   int
	pollInterval    time.Duration
	updateTries     int
	managerDN       string
	managerPassword string
	excludedAttrs   []string
	logger          log.Logger
}

// Option configures a replication Manager.
type Option func(*Config)

// WithSuffix overrides the directory suffix derived from the realm.
func WithSuffix(suffix string) Option {
	return func(c *Config) {
		c.suffix = suffix
	}
}

// WithAgreementPort sets the port agreements dial their peer on.
func WithAgreementPort(port int) Option {
	return func(c *Config) {
		c.agreementPort = port
	}
}

// WithPollInterval sets the pause between convergence checks.
func WithPollInterval(interval time.Duration) Option {
	return func(c *Config) {
		c.pollInterval = interval
	}
}

// WithUpdateTries sets the attempt budget of the bounded
// incremental-update poll.
func WithUpdateTries(tries int) Option {
	return func(c *Config) {
		c.updateTries = tries
	}
}

// WithManagerCredentials sets the pseudo user agreements bind as. When
// not set a random credential is generated for the lifetime of the
// Manager.
func WithManagerCredentials(dn, password string) Option {
	return func(c *Config) {
		c.managerDN = dn
		c.managerPassword = password
	}
}

// WithExcludedAttributes adds attributes to the set stripped from the
// replicated attribute list. Duplicates are collapsed.
func WithExcludedAttributes(attrs ...string) Option {
	return func(c *Config) {
		c.excludedAttrs = append(c.excludedAttrs, attrs...)
	}
}

// WithLogger sets the logger used by the Manager.
func WithLogger(logger log.Logger) Option {
	return func(c *Config) {
		c.logger = logger
	}
}

func newConfig(realm string, opts ...Option) *Config {
	cfg := &Config{
		realm:         realm,
		agreementPort: defaultAgreementPort,
		pollInterval:  defaultPollInterval,
		updateTries:   defaultUpdateTries,
		managerDN:     defaultManagerDN,
		excludedAttrs: defaultExcludedAttrs,
		logger:        log.DefaultLogger,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.suffix == "" {
		cfg.suffix = directory.SuffixFromRealm(realm)
	}
	if cfg.managerPassword == "" {
		cfg.managerPassword = uuid.NewString()
	}
	excluded := mapset.NewSet[string]()
	for _, attr := range cfg.excludedAttrs {
		excluded.Add(strings.ToLower(attr))
	}
	cfg.excludedAttrs = mapset.Sorted(excluded)
	return cfg
}

// Validate checks the configuration and returns all violations found.
func (c *Config) Validate() error {
	return validation.
		New(validation.AllErrors()).
		AddValidator(validation.NewEmptyStringValidator("realm", c.realm)).
		AddValidator(validation.NewPatternValidator(`^[A-Z0-9][A-Z0-9.-]*$`, c.realm,
			errors.New("the realm must be an uppercase domain name"))).
		AddValidator(validation.NewDNValidator("suffix", c.suffix)).
		AddValidator(validation.NewDNValidator("managerDN", c.managerDN)).
		AddAssertion(c.agreementPort > 0 && c.agreementPort <= 65535, "the agreement port is invalid").
		AddAssertion(c.pollInterval > 0, "the poll interval must be positive").
		AddAssertion(c.updateTries > 0, "the update attempt budget must be positive").
		Validate()
}
