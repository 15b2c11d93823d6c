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
	"strconv"
	"strings"

	mapset "github.com/deckarep/golang-set/v2"

	"github.com/cjeanner/freeipa/directory"
)

const (
	// WinUserContainer is the default container foreign directories keep
	// their user entries in, relative to the synchronized suffix.
	WinUserContainer = "cn=Users"

	// IPAUserContainer is the container this deployment keeps its user
	// entries in, relative to the suffix.
	IPAUserContainer = "cn=users,cn=accounts"
)

// Transport tells how an agreement connects to and authenticates against
// its peer.
type Transport int

const (
	// TransportTLS dials over TLS and binds with the replication pseudo
	// user's credentials.
	TransportTLS Transport = iota
	// TransportGSSAPI dials over plain LDAP and authenticates with the
	// node's kerberos identity.
	TransportGSSAPI
)

// String implements fmt.Stringer.
func (t Transport) String() string {
	switch t {
	case TransportGSSAPI:
		return "GSSAPI"
	default:
		return "TLS"
	}
}

// Kind distinguishes agreements toward peer replicas from agreements
// toward a foreign directory.
type Kind int

const (
	// KindPeer replicates the suffix to another node of this deployment.
	KindPeer Kind = iota
	// KindWinSync synchronizes a subtree with a foreign directory.
	KindWinSync
)

// String implements fmt.Stringer.
func (k Kind) String() string {
	switch k {
	case KindWinSync:
		return "winsync"
	default:
		return "peer"
	}
}

// WinSync carries the subtree mapping of a synchronization agreement.
type WinSync struct {
	// RemoteSubtree is the container synchronized on the foreign side.
	RemoteSubtree string
	// LocalSubtree is the container synchronized on this side.
	LocalSubtree string
	// Domain is the foreign domain name, derived from the suffix.
	Domain string
	// SyncUsers and SyncGroups report which entry kinds flow.
	SyncUsers  bool
	SyncGroups bool
	// OneWay is set when changes only flow from the foreign side.
	OneWay bool
}

// Agreement is the parsed form of a replication agreement entry.
type Agreement struct {
	DN            string
	CN            string
	Host          string
	Port          int
	Suffix        string
	Transport     Transport
	BindDN        string
	Schedule      Schedule
	ExcludedAttrs []string
	Kind          Kind
	WinSync       *WinSync
	Description   string
}

type agreementSpec struct {
	transport  Transport
	bindDN     string
	password   string
	winsync    bool
	winSubtree string
}

// AgreementOption configures an agreement at creation time.
type AgreementOption func(*agreementSpec)

// WithGSSAPITransport makes the agreement authenticate with the node's
// kerberos identity instead of the replication pseudo user.
func WithGSSAPITransport() AgreementOption {
	return func(s *agreementSpec) {
		s.transport = TransportGSSAPI
	}
}

// WithAgreementCredentials overrides the bind identity stored in the
// agreement. Only meaningful for TLS transport.
func WithAgreementCredentials(bindDN, password string) AgreementOption {
	return func(s *agreementSpec) {
		s.bindDN = bindDN
		s.password = password
	}
}

// WithWinSync turns the agreement into a synchronization agreement using
// the default user containers on both sides.
func WithWinSync() AgreementOption {
	return func(s *agreementSpec) {
		s.winsync = true
	}
}

// WithWinSyncSubtree turns the agreement into a synchronization
// agreement rooted at the given container on the foreign side.
func WithWinSyncSubtree(remoteSubtree string) AgreementOption {
	return func(s *agreementSpec) {
		s.winsync = true
		s.winSubtree = remoteSubtree
	}
}

// SetupAgreement creates the agreement entry on from pointing at to and
// returns its DN. Agreements are named deterministically after the peer
// host, so creating one that already exists is not an error.
func (m *Manager) SetupAgreement(ctx context.Context, from, to directory.Handle, opts ...AgreementOption) (string, error) {
	spec := &agreementSpec{
		transport: TransportTLS,
		bindDN:    m.cfg.managerDN,
		password:  m.cfg.managerPassword,
	}
	for _, opt := range opts {
		opt(spec)
	}

	cn := agreementCN(to.Host())
	dn := m.AgreementDN(to.Host())

	entry := directory.NewEntry(dn)
	entry.SetValues("objectclass", "nsds5replicationagreement")
	entry.SetValues("cn", cn)
	entry.SetValues(attrReplicaHost, to.Host())
	entry.SetValues("nsds5replicaport", strconv.Itoa(m.cfg.agreementPort))
	entry.SetValues("nsds5replicatimeout", strconv.Itoa(agreementTimeout))
	entry.SetValues("nsds5replicaroot", m.cfg.suffix)
	entry.SetValues(attrUpdateSchedule, ScheduleAlways.String())
	entry.SetValues("nsds5replicatedattributelist", m.replicatedAttributeList())
	entry.SetValues("description", "me to "+to.Host())

	switch spec.transport {
	case TransportGSSAPI:
		entry.SetValues(attrTransportInfo, "LDAP")
		entry.SetValues(attrBindMethod, "SASL/GSSAPI")
	default:
		entry.SetValues(attrReplicaBindDN, spec.bindDN)
		entry.SetValues(attrCredentials, spec.password)
		entry.SetValues(attrTransportInfo, "TLS")
		entry.SetValues(attrBindMethod, "simple")
	}

	if spec.winsync {
		if err := m.setupWinSyncAttrs(entry, spec.winSubtree); err != nil {
			return "", err
		}
	}

	err := from.CreateEntry(ctx, entry)
	switch {
	case err == nil:
		m.logger.Infof("created %s agreement %s on host=%s", spec.transport, dn, from.Host())
		return dn, nil
	case errors.Is(err, directory.ErrAlreadyExists):
		m.logger.Debugf("agreement %s already present on host=%s", dn, from.Host())
		return dn, nil
	default:
		return "", err
	}
}

// setupWinSyncAttrs rewrites an agreement entry into a synchronization
// agreement. Users are synchronized, groups are not: group membership is
// managed on this side only.
func (m *Manager) setupWinSyncAttrs(entry *directory.Entry, remoteSubtree string) error {
	domain, err := directory.DomainFromSuffix(m.cfg.suffix)
	if err != nil {
		return err
	}
	if remoteSubtree == "" {
		remoteSubtree = WinUserContainer + "," + m.cfg.suffix
	}
	localSubtree := IPAUserContainer + "," + m.cfg.suffix

	entry.SetValues("objectclass", "nsDSWindowsReplicationAgreement")
	entry.SetValues("nsds7WindowsReplicaSubtree", remoteSubtree)
	entry.SetValues("nsds7DirectoryReplicaSubtree", localSubtree)
	entry.SetValues("nsds7NewWinUserSyncEnabled", "true")
	entry.SetValues("nsds7NewWinGroupSyncEnabled", "false")
	entry.SetValues("nsds7WindowsDomain", domain)
	entry.SetValues("oneWaySync", "fromWindows")
	return nil
}

func (m *Manager) replicatedAttributeList() string {
	return "(objectclass=*) $ EXCLUDE " + strings.Join(m.cfg.excludedAttrs, " ")
}

// DeleteAgreement removes the agreement toward host from conn. A missing
// agreement is not an error.
func (m *Manager) DeleteAgreement(ctx context.Context, conn directory.Handle, host string) error {
	dn := m.AgreementDN(host)
	err := conn.DeleteEntry(ctx, dn)
	switch {
	case err == nil:
		m.logger.Infof("deleted agreement %s on host=%s", dn, conn.Host())
		return nil
	case errors.Is(err, directory.ErrNotFound):
		m.logger.Debugf("agreement %s already gone on host=%s", dn, conn.Host())
		return nil
	default:
		return err
	}
}

// agreementFilter matches both peer and synchronization agreements.
const agreementFilter = "(|(objectclass=nsds5ReplicationAgreement)(objectclass=nsDSWindowsReplicationAgreement))"

// FindAgreements returns every replication agreement configured on conn.
func (m *Manager) FindAgreements(ctx context.Context, conn directory.Handle) ([]*Agreement, error) {
	entries, err := conn.SearchEntries(ctx, "cn=mapping tree,cn=config", directory.ScopeSubtree, agreementFilter, nil)
	if err != nil {
		return nil, err
	}
	agreements := make([]*Agreement, 0, len(entries))
	for _, entry := range entries {
		agreements = append(agreements, agreementFromEntry(entry))
	}
	return agreements, nil
}

// PeerHosts returns the distinct hosts conn holds agreements toward, in
// lexical order.
func (m *Manager) PeerHosts(ctx context.Context, conn directory.Handle) ([]string, error) {
	agreements, err := m.FindAgreements(ctx, conn)
	if err != nil {
		return nil, err
	}
	hosts := mapset.NewSet[string]()
	for _, agreement := range agreements {
		if agreement.Host != "" {
			hosts.Add(agreement.Host)
		}
	}
	return mapset.Sorted(hosts), nil
}

// AgreementKind reports whether the agreement toward host is a peer or a
// synchronization agreement.
func (m *Manager) AgreementKind(ctx context.Context, conn directory.Handle, host string) (Kind, error) {
	entry, err := conn.ReadEntry(ctx, m.AgreementDN(host), directory.ScopeBase, "", []string{"objectclass"})
	switch {
	case errors.Is(err, directory.ErrNotFound):
		return KindPeer, NewErrAgreementNotFound(host)
	case err != nil:
		return KindPeer, err
	}
	if entry.HasValue("objectclass", "nsDSWindowsReplicationAgreement") {
		return KindWinSync, nil
	}
	return KindPeer, nil
}

func agreementFromEntry(entry *directory.Entry) *Agreement {
	agreement := &Agreement{
		DN:          entry.DN,
		CN:          entry.Value("cn"),
		Host:        entry.Value(attrReplicaHost),
		Suffix:      entry.Value("nsds5replicaroot"),
		BindDN:      entry.Value(attrReplicaBindDN),
		Schedule:    Schedule(entry.Value(attrUpdateSchedule)),
		Description: entry.Value("description"),
	}
	if port, err := strconv.Atoi(entry.Value("nsds5replicaport")); err == nil {
		agreement.Port = port
	}
	if strings.EqualFold(entry.Value(attrBindMethod), "SASL/GSSAPI") {
		agreement.Transport = TransportGSSAPI
	}
	if list := entry.Value("nsds5replicatedattributelist"); list != "" {
		if _, excludes, found := strings.Cut(list, "$ EXCLUDE"); found {
			agreement.ExcludedAttrs = strings.Fields(excludes)
		}
	}
	if entry.HasValue("objectclass", "nsDSWindowsReplicationAgreement") {
		agreement.Kind = KindWinSync
		agreement.WinSync = &WinSync{
			RemoteSubtree: entry.Value("nsds7WindowsReplicaSubtree"),
			LocalSubtree:  entry.Value("nsds7DirectoryReplicaSubtree"),
			Domain:        entry.Value("nsds7WindowsDomain"),
			SyncUsers:     strings.EqualFold(entry.Value("nsds7NewWinUserSyncEnabled"), "true"),
			SyncGroups:    strings.EqualFold(entry.Value("nsds7NewWinGroupSyncEnabled"), "true"),
			OneWay:        strings.EqualFold(entry.Value("oneWaySync"), "fromWindows"),
		}
	}
	return agreement
}
