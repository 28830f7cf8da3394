// Package cli implements inboxctl, a terminal client for the mailsorter API.
package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"mailsorter/internal/dashboard"
	"mailsorter/internal/storage"
	"mailsorter/pkg/logger"
)

// app holds the per-invocation wiring built in PersistentPreRunE.
type app struct {
	cfg    *Config
	log    *zap.Logger
	store  storage.Store
	client *dashboard.Client
	ctrl   *dashboard.Controller
}

func NewRootCommand() *cobra.Command {
	a := &app{}
	var configPath string

	root := &cobra.Command{
		Use:           "inboxctl",
		Short:         "Fetch, classify and browse your inbox through a mailsorter server",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := LoadConfig(configPath, func(v *viper.Viper) error {
				flags := cmd.Flags()
				for key, name := range map[string]string{
					"server":         "server",
					"session":        "session",
					"storage.driver": "storage-driver",
					"storage.path":   "storage-path",
				} {
					if err := v.BindPFlag(key, flags.Lookup(name)); err != nil {
						return err
					}
				}
				return nil
			})
			if err != nil {
				return err
			}

			a.cfg = cfg
			a.log = logger.NewLogger(cfg.Log)
			a.store, err = storage.Open(cmd.Context(), cfg.Storage, cfg.Redis)
			if err != nil {
				return fmt.Errorf("open storage: %w", err)
			}
			a.client = dashboard.NewClient(cfg.Server, nil)
			a.ctrl = dashboard.NewController(a.client, a.store, a.log)
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			_ = a.log.Sync()
			return a.store.Close()
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&configPath, "config", DefaultConfigPath(), "client config file")
	pf.String("server", "", "mailsorter server URL")
	pf.String("session", "", "session token from the browser sign-in")
	pf.String("storage-driver", "", "local storage: sqlite, redis or keyring")
	pf.String("storage-path", "", "sqlite file or keyring directory")

	root.AddCommand(
		newFetchCommand(a),
		newClassifyCommand(a),
		newListCommand(a),
		newKeyCommand(a),
		newSessionCommand(a),
	)
	return root
}

func newFetchCommand(a *app) *cobra.Command {
	var maxResults int
	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Fetch the most recent emails",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.cfg.Session == "" {
				return dashboard.ErrNotAuthenticated
			}
			sess, err := a.client.Session(cmd.Context(), a.cfg.Session)
			if err != nil {
				return err
			}
			if maxResults == 0 {
				maxResults = a.cfg.MaxResults
			}
			if err := a.ctrl.Fetch(cmd.Context(), sess.AccessToken, maxResults); err != nil {
				return err
			}
			s := a.ctrl.State()
			renderEmails(cmd.OutOrStdout(), s.Visible())
			return nil
		},
	}
	cmd.Flags().IntVarP(&maxResults, "max", "n", 0, "number of emails (server default 15)")
	return cmd
}

func newClassifyCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "classify",
		Short: "Classify the stored emails with your model key",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			err := a.ctrl.Classify(cmd.Context())
			if errors.Is(err, dashboard.ErrAPIKeyRequired) {
				return fmt.Errorf("%w: run `inboxctl key set <key>` first", err)
			}
			if err != nil {
				return err
			}
			s := a.ctrl.State()
			renderEmails(cmd.OutOrStdout(), s.Visible())
			renderCounts(cmd.OutOrStdout(), s)
			return nil
		},
	}
}

func newListCommand(a *app) *cobra.Command {
	var category string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "Show stored emails, optionally filtered by category",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.ctrl.Load(cmd.Context()); err != nil {
				return err
			}
			if err := a.ctrl.SelectFilter(category); err != nil {
				return err
			}
			s := a.ctrl.State()
			renderEmails(cmd.OutOrStdout(), s.Visible())
			renderCounts(cmd.OutOrStdout(), s)
			return nil
		},
	}
	cmd.Flags().StringVarP(&category, "category", "c", dashboard.FilterAll, "All or one category name")
	return cmd
}

func newKeyCommand(a *app) *cobra.Command {
	key := &cobra.Command{
		Use:   "key",
		Short: "Manage the stored model API key",
	}
	key.AddCommand(
		&cobra.Command{
			Use:   "set <key>",
			Short: "Store the model API key",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				if err := a.ctrl.SetAPIKey(cmd.Context(), args[0]); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Key saved.")
				return nil
			},
		},
		&cobra.Command{
			Use:   "show",
			Short: "Show the stored key, masked",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				if err := a.ctrl.Load(cmd.Context()); err != nil {
					return err
				}
				k := a.ctrl.State().APIKey
				if k == "" {
					fmt.Fprintln(cmd.OutOrStdout(), "No key stored.")
					return nil
				}
				fmt.Fprintln(cmd.OutOrStdout(), maskKey(k))
				return nil
			},
		},
		&cobra.Command{
			Use:   "clear",
			Short: "Remove the stored key",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return a.ctrl.SetAPIKey(cmd.Context(), "")
			},
		},
	)
	return key
}

func newSessionCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "session",
		Short: "Show who the session token belongs to",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.cfg.Session == "" {
				return dashboard.ErrNotAuthenticated
			}
			sess, err := a.client.Session(cmd.Context(), a.cfg.Session)
			if err != nil {
				return err
			}
			printSession(cmd.OutOrStdout(), sess)
			return nil
		},
	}
}

func printSession(w io.Writer, s dashboard.Session) {
	email := s.Email
	if email == "" {
		email = "(unknown)"
	}
	fmt.Fprintf(w, "Signed in as %s\n", email)
	if s.Expires != "" {
		fmt.Fprintf(w, "Expires %s\n", s.Expires)
	}
}
