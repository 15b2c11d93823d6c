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

package main

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/cjeanner/freeipa/directory/ldapdir"
)

// cliConfig is the on-disk configuration of the tool. Every field can be
// left out; secrets are better supplied through the environment.
type cliConfig struct {
	// Realm is the kerberos realm, e.g. EXAMPLE.COM.
	Realm string `yaml:"realm"`
	// Suffix overrides the directory suffix derived from the realm.
	Suffix string `yaml:"suffix"`
	// Host is the local directory node. Defaults to the machine hostname.
	Host string `yaml:"host"`

	Directory struct {
		Port      int    `yaml:"port"`
		BindDN    string `yaml:"bind_dn"`
		Password  string `yaml:"password"`
		CACert    string `yaml:"ca_cert"`
		Insecure  bool   `yaml:"insecure"`
		Plaintext bool   `yaml:"plaintext"`
		Timeout   string `yaml:"timeout"`
	} `yaml:"directory"`

	Replication struct {
		PollInterval string `yaml:"poll_interval"`
		UpdateTries  int    `yaml:"update_tries"`
	} `yaml:"replication"`
}

// loadConfig reads the configuration file at path and applies defaults
// and environment overrides. An empty path yields the defaults alone.
func loadConfig(path string) (*cliConfig, error) {
	cfg := &cliConfig{}
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(raw, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}

	// environment beats the file, flags beat both
	overrideFromEnv(&cfg.Realm, "IPA_REALM")
	overrideFromEnv(&cfg.Suffix, "IPA_SUFFIX")
	overrideFromEnv(&cfg.Host, "IPA_HOST")
	overrideFromEnv(&cfg.Directory.BindDN, "IPA_BIND_DN")
	overrideFromEnv(&cfg.Directory.Password, "IPA_BIND_PASSWORD")
	overrideFromEnv(&cfg.Directory.CACert, "IPA_CA_CERT")

	if cfg.Host == "" {
		hostname, err := os.Hostname()
		if err != nil {
			return nil, fmt.Errorf("no host configured and no hostname available: %w", err)
		}
		cfg.Host = hostname
	}
	if cfg.Directory.Port == 0 {
		cfg.Directory.Port = ldapdir.DefaultPort
	}
	if cfg.Directory.BindDN == "" {
		cfg.Directory.BindDN = "cn=Directory Manager"
	}
	if cfg.Directory.Timeout == "" {
		cfg.Directory.Timeout = "30s"
	}
	return cfg, nil
}

func overrideFromEnv(target *string, key string) {
	if value := os.Getenv(key); value != "" {
		*target = value
	}
}

func (c *cliConfig) directoryTimeout() (time.Duration, error) {
	timeout, err := time.ParseDuration(c.Directory.Timeout)
	if err != nil {
		return 0, fmt.Errorf("invalid directory timeout %q: %w", c.Directory.Timeout, err)
	}
	return timeout, nil
}

func (c *cliConfig) pollInterval() (time.Duration, error) {
	if c.Replication.PollInterval == "" {
		return 0, nil
	}
	interval, err := time.ParseDuration(c.Replication.PollInterval)
	if err != nil {
		return 0, fmt.Errorf("invalid poll interval %q: %w", c.Replication.PollInterval, err)
	}
	return interval, nil
}
