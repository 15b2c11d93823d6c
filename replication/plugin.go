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
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/cjeanner/freeipa/directory"
)

const replicationPluginDN = "cn=Multimaster Replication Plugin,cn=plugins,cn=config"

// CheckReplicationPlugin verifies conn's server carries the multimaster
// replication plugin and has it enabled. Every other operation in this
// package silently assumes it does.
func (m *Manager) CheckReplicationPlugin(ctx context.Context, conn directory.Handle) error {
	entry, err := conn.ReadEntry(ctx, replicationPluginDN, directory.ScopeBase, "", []string{"nsslapd-pluginEnabled"})
	switch {
	case errors.Is(err, directory.ErrNotFound):
		return fmt.Errorf("host=%s does not carry the multimaster replication plugin", conn.Host())
	case err != nil:
		return err
	}
	if enabled := entry.Value("nsslapd-pluginEnabled"); !strings.EqualFold(enabled, "on") {
		return fmt.Errorf("multimaster replication plugin is disabled on host=%s", conn.Host())
	}
	return nil
}
