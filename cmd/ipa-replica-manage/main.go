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

// ipa-replica-manage administers the replication topology of a FreeIPA
// deployment: it connects and disconnects directory nodes, migrates
// agreements to kerberos authentication, sets up synchronization with a
// windows domain and scrubs departed replicas from the shared tree.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/cjeanner/freeipa/directory/ldapdir"
	"github.com/cjeanner/freeipa/internal/tlsconf"
	"github.com/cjeanner/freeipa/log"
	"github.com/cjeanner/freeipa/replication"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
}

// session bundles everything a subcommand needs: the parsed config, the
// logger and an authenticated connection to the local node wrapped in a
// topology manager.
type session struct {
	cfg     *cliConfig
	logger  log.Logger
	local   *ldapdir.Conn
	manager *replication.Manager
}

func (s *session) Close() {
	if s.local != nil {
		_ = s.local.Close()
	}
}

// dial opens an authenticated connection to the directory node on host
// using the credentials of the session.
func (s *session) dial(ctx context.Context, host string) (*ldapdir.Conn, error) {
	timeout, err := s.cfg.directoryTimeout()
	if err != nil {
		return nil, err
	}
	tlsConfig, err := tlsconf.ClientConfig(s.cfg.Directory.CACert, s.cfg.Directory.Insecure)
	if err != nil {
		return nil, err
	}

	opts := []ldapdir.Option{
		ldapdir.WithPort(s.cfg.Directory.Port),
		ldapdir.WithSimpleBind(s.cfg.Directory.BindDN, s.cfg.Directory.Password),
		ldapdir.WithTLSConfig(tlsConfig),
		ldapdir.WithTimeout(timeout),
		ldapdir.WithLogger(s.logger),
	}
	if s.cfg.Directory.Plaintext {
		opts = append(opts, ldapdir.WithPlaintext())
	}
	return ldapdir.Connect(ctx, ldapdir.NewConfig(host, opts...))
}

type rootFlags struct {
	configPath string
	envFile    string
	logLevel   string
	host       string
}

func newRootCommand() *cobra.Command {
	flags := &rootFlags{}
	var sess *session

	root := &cobra.Command{
		Use:           "ipa-replica-manage",
		Short:         "Manage the replication topology of FreeIPA directory nodes",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if flags.envFile != "" {
				if err := godotenv.Load(flags.envFile); err != nil {
					return fmt.Errorf("failed to load env file %s: %w", flags.envFile, err)
				}
			} else {
				_ = godotenv.Load()
			}

			level, err := log.ParseLevel(flags.logLevel)
			if err != nil {
				return err
			}
			logger := log.New(level, os.Stderr)

			cfg, err := loadConfig(flags.configPath)
			if err != nil {
				return err
			}
			if flags.host != "" {
				cfg.Host = flags.host
			}
			if cfg.Realm == "" {
				return fmt.Errorf("no realm configured, set realm: in the config or IPA_REALM")
			}
			if !cfg.Directory.Plaintext && cfg.Directory.Password == "" {
				return fmt.Errorf("no bind password configured, set directory.password or IPA_BIND_PASSWORD")
			}

			sess = &session{cfg: cfg, logger: logger}
			local, err := sess.dial(cmd.Context(), cfg.Host)
			if err != nil {
				return fmt.Errorf("failed to connect to local node %s: %w", cfg.Host, err)
			}
			sess.local = local

			managerOpts := []replication.Option{replication.WithLogger(logger)}
			if cfg.Suffix != "" {
				managerOpts = append(managerOpts, replication.WithSuffix(cfg.Suffix))
			}
			if interval, err := cfg.pollInterval(); err != nil {
				return err
			} else if interval > 0 {
				managerOpts = append(managerOpts, replication.WithPollInterval(interval))
			}
			if cfg.Replication.UpdateTries > 0 {
				managerOpts = append(managerOpts, replication.WithUpdateTries(cfg.Replication.UpdateTries))
			}

			manager, err := replication.NewManager(cfg.Realm, local, managerOpts...)
			if err != nil {
				sess.Close()
				return err
			}
			sess.manager = manager
			return nil
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			if sess != nil {
				sess.Close()
			}
		},
	}

	root.PersistentFlags().StringVarP(&flags.configPath, "config", "c", "", "path to the YAML configuration file")
	root.PersistentFlags().StringVar(&flags.envFile, "env-file", "", "env file with secrets, .env is picked up by default")
	root.PersistentFlags().StringVar(&flags.logLevel, "log-level", "info", "log verbosity: debug|info|warning|error")
	root.PersistentFlags().StringVar(&flags.host, "host", "", "local directory node, defaults to the machine hostname")

	root.AddCommand(
		newListCommand(&sess),
		newCheckCommand(&sess),
		newConnectCommand(&sess),
		newDisconnectCommand(&sess),
		newDelCommand(&sess),
		newForceSyncCommand(&sess),
		newSecureCommand(&sess),
		newWinSyncCommand(&sess),
		newChainCommand(&sess),
	)
	return root
}

func newListCommand(sess **session) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the replication agreements of the local node",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s := *sess
			agreements, err := s.manager.FindAgreements(cmd.Context(), s.local)
			if err != nil {
				return err
			}
			if len(agreements) == 0 {
				fmt.Println("no agreements")
				return nil
			}
			for _, agreement := range agreements {
				fmt.Printf("%s: %s via %s\n", agreement.Host, agreement.Kind, agreement.Transport)
			}
			return nil
		},
	}
}

func newCheckCommand(sess **session) *cobra.Command {
	return &cobra.Command{
		Use:   "check [host]",
		Short: "Verify a node carries the replication plugin",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s := *sess
			conn := s.local
			if len(args) == 1 && args[0] != s.cfg.Host {
				remote, err := s.dial(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				defer remote.Close()
				conn = remote
			}
			if err := s.manager.CheckReplicationPlugin(cmd.Context(), conn); err != nil {
				return err
			}
			fmt.Printf("%s: replication plugin enabled\n", conn.Host())
			return nil
		},
	}
}

func newConnectCommand(sess **session) *cobra.Command {
	var gssapi bool
	cmd := &cobra.Command{
		Use:   "connect <remote-host>",
		Short: "Set up replication between the local node and a remote node",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s := *sess
			remote, err := s.dial(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			defer remote.Close()

			if err := s.manager.SetupReplication(cmd.Context(), remote); err != nil {
				return err
			}
			if gssapi {
				return s.manager.MigrateToGSSAPI(cmd.Context(), remote)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&gssapi, "gssapi", false, "migrate the new agreements to kerberos right away")
	return cmd
}

func newDisconnectCommand(sess **session) *cobra.Command {
	return &cobra.Command{
		Use:   "disconnect <remote-host>",
		Short: "Remove the agreements between the local node and a remote node",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s := *sess
			remote, err := s.dial(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			defer remote.Close()
			return s.manager.Disconnect(cmd.Context(), remote)
		},
	}
}

func newDelCommand(sess **session) *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "del <host>",
		Short: "Disconnect a replica and scrub it from the shared tree",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s := *sess
			host := args[0]

			remote, err := s.dial(cmd.Context(), host)
			switch {
			case err == nil:
				defer remote.Close()
				if err := s.manager.Disconnect(cmd.Context(), remote); err != nil {
					return err
				}
			case force:
				s.logger.Warnf("cannot reach host=%s, cleaning up without disconnecting: %v", host, err)
			default:
				return fmt.Errorf("cannot reach host=%s, use --force to clean up anyway: %w", host, err)
			}

			return s.manager.RemoveReplica(cmd.Context(), host, force)
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "run every cleanup stage even when one fails")
	return cmd
}

func newForceSyncCommand(sess **session) *cobra.Command {
	return &cobra.Command{
		Use:   "force-sync <host>",
		Short: "Trigger an immediate replication session toward a peer",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s := *sess
			dn, err := s.manager.ForceSync(cmd.Context(), s.local, args[0])
			if err != nil {
				return err
			}
			fmt.Printf("nudged %s\n", dn)
			return nil
		},
	}
}

func newSecureCommand(sess **session) *cobra.Command {
	return &cobra.Command{
		Use:   "secure <remote-host>",
		Short: "Migrate the agreements with a peer to kerberos authentication",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s := *sess
			remote, err := s.dial(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			defer remote.Close()
			return s.manager.MigrateToGSSAPI(cmd.Context(), remote)
		},
	}
}

func newWinSyncCommand(sess **session) *cobra.Command {
	var (
		adBindDN   string
		adPassword string
		adCACert   string
		adInsecure bool
		passSync   string
		subtree    string
	)
	cmd := &cobra.Command{
		Use:   "winsync <ad-host>",
		Short: "Set up user synchronization with a windows domain controller",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s := *sess
			if adPassword == "" {
				adPassword = os.Getenv("IPA_AD_PASSWORD")
			}
			if passSync == "" {
				passSync = os.Getenv("IPA_PASSSYNC_PASSWORD")
			}
			if adBindDN == "" || adPassword == "" {
				return fmt.Errorf("the windows side needs --ad-bind-dn and a password (flag or IPA_AD_PASSWORD)")
			}
			if passSync == "" {
				return fmt.Errorf("a password for the PassSync account is required (flag or IPA_PASSSYNC_PASSWORD)")
			}

			// The windows side is bound with the same credentials the
			// agreement will store.
			tlsConfig, err := tlsconf.ClientConfig(adCACert, adInsecure)
			if err != nil {
				return err
			}
			ad, err := ldapdir.Connect(cmd.Context(), ldapdir.NewConfig(args[0],
				ldapdir.WithSimpleBind(adBindDN, adPassword),
				ldapdir.WithTLSConfig(tlsConfig),
				ldapdir.WithLogger(s.logger),
			))
			if err != nil {
				return fmt.Errorf("failed to connect to the windows side: %w", err)
			}
			defer ad.Close()

			var opts []replication.AgreementOption
			if subtree != "" {
				opts = append(opts, replication.WithWinSyncSubtree(subtree))
			}
			return s.manager.SetupWinSync(cmd.Context(), ad, adBindDN, adPassword, passSync, opts...)
		},
	}
	cmd.Flags().StringVar(&adBindDN, "ad-bind-dn", "", "bind DN on the windows side")
	cmd.Flags().StringVar(&adPassword, "ad-password", "", "bind password on the windows side (env IPA_AD_PASSWORD)")
	cmd.Flags().StringVar(&adCACert, "ad-ca-cert", "", "CA bundle for the windows side")
	cmd.Flags().BoolVar(&adInsecure, "ad-insecure", false, "skip certificate verification toward the windows side")
	cmd.Flags().StringVar(&passSync, "passsync-password", "", "password for the PassSync account (env IPA_PASSSYNC_PASSWORD)")
	cmd.Flags().StringVar(&subtree, "subtree", "", "windows container to synchronize, defaults to cn=Users")
	return cmd
}

func newChainCommand(sess **session) *cobra.Command {
	return &cobra.Command{
		Use:   "chain <remote-host>",
		Short: "Forward writes the local node cannot serve to a remote master",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s := *sess
			remote, err := s.dial(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			defer remote.Close()

			if err := s.manager.EnsureChainingFarm(cmd.Context(), remote); err != nil {
				return err
			}
			return s.manager.SetupChainOnUpdate(cmd.Context(), remote)
		},
	}
}
