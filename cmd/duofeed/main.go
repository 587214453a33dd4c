// Package main provides the duofeed CLI entry point.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"runtime/debug"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/gauthierbraillon/duofeed/internal/aggregator"
	"github.com/gauthierbraillon/duofeed/internal/config"
	"github.com/gauthierbraillon/duofeed/internal/display"
	"github.com/gauthierbraillon/duofeed/internal/feed"
	"github.com/gauthierbraillon/duofeed/internal/logging"
	"github.com/gauthierbraillon/duofeed/internal/partition"
	"github.com/gauthierbraillon/duofeed/internal/server"
	"github.com/gauthierbraillon/duofeed/pkg/browser"
	"github.com/gauthierbraillon/duofeed/pkg/oauth"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// resolveVersion prefers the ldflags version and falls back to the module
// version recorded by go install.
func resolveVersion(ldflags string, info *debug.BuildInfo) string {
	if ldflags != "dev" {
		return ldflags
	}
	if info != nil && info.Main.Version != "" && info.Main.Version != "(devel)" {
		return info.Main.Version
	}
	return "dev"
}

// app carries what every subcommand needs once configuration is loaded.
type app struct {
	configPath string
	logLevel   string
	cfg        config.Config
	logger     *slog.Logger
}

func (a *app) load(cmd *cobra.Command) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if a.logLevel != "" {
		cfg.LogLevel = a.logLevel
	}
	a.cfg = cfg
	a.logger = logging.New(cfg.LogLevel, cmd.ErrOrStderr())
	return nil
}

func (a *app) partitioner(policy string) (*partition.Partitioner, error) {
	layout := a.cfg.Layout
	if policy != "" {
		layout.Policy = policy
	}
	opts, err := layout.PartitionOptions()
	if err != nil {
		return nil, err
	}
	return partition.New(append(opts, partition.WithLogger(a.logger))...)
}

// newRootCmd creates the root command for duofeed CLI.
func newRootCmd() *cobra.Command {
	a := &app{}

	var info *debug.BuildInfo
	if bi, ok := debug.ReadBuildInfo(); ok {
		info = bi
	}

	rootCmd := &cobra.Command{
		Use:          "duofeed",
		Short:        "Show email, posts and group chats as a two-column feed",
		Long:         "Duofeed merges your Gmail inbox, posts and GroupMe chats into one feed laid out in two balanced columns.",
		Version:      resolveVersion(version, info),
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.load(cmd)
		},
	}

	rootCmd.SetVersionTemplate("duofeed version {{.Version}}\n")
	rootCmd.PersistentFlags().StringVar(&a.configPath, "config", "", "Path to a YAML config file (default $DUOFEED_CONFIG)")
	rootCmd.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "Log level: debug, info, warn or error")

	rootCmd.AddCommand(newAuthCmd(a))
	rootCmd.AddCommand(newFeedCmd(a))
	rootCmd.AddCommand(newServeCmd(a))
	rootCmd.AddCommand(newConfigCmd(a))

	return rootCmd
}

// newAuthCmd creates the auth subcommand.
func newAuthCmd(a *app) *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "auth <provider>",
		Short: "Authenticate with a provider (gmail)",
		Long:  "Run the browser OAuth flow for Gmail and save the token. GroupMe uses GROUPME_ACCESS_TOKEN instead.",
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) != 1 {
				return fmt.Errorf("requires exactly one provider argument (gmail)")
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			provider := args[0]
			if provider != gmailProvider {
				return fmt.Errorf("invalid provider %q: must be 'gmail'", provider)
			}

			clientID, clientSecret := a.cfg.Gmail.ClientID, a.cfg.Gmail.ClientSecret
			if clientID == "" || clientSecret == "" {
				return fmt.Errorf("missing credentials: set DUOFEED_GMAIL_CLIENT_ID and DUOFEED_GMAIL_CLIENT_SECRET environment variables")
			}

			out := cmd.OutOrStdout()
			cfg := oauth.GmailConfig(clientID, clientSecret, oauth.RedirectURL(port))
			state := oauth.NewState()
			authURL := oauth.AuthURL(cfg, state)

			fmt.Fprintf(out, "Authenticating with %s...\n", provider)
			fmt.Fprintf(out, "Opening browser for authorization...\n")
			if err := browser.Open(authURL); err != nil {
				fmt.Fprintf(out, "Could not open browser. Please visit:\n%s\n", authURL)
			}

			fmt.Fprintf(out, "Waiting for authorization...\n")
			ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Minute)
			defer cancel()

			code, err := oauth.NewCallbackServer(port).WaitForCallback(ctx, state, 5*time.Minute)
			if err != nil {
				return fmt.Errorf("authorization failed: %w", err)
			}

			fmt.Fprintf(out, "Exchanging authorization code...\n")
			token, err := cfg.Exchange(ctx, code)
			if err != nil {
				return fmt.Errorf("token exchange failed: %w", err)
			}

			if err := oauth.NewTokenStorage(a.cfg.ConfigDir).Save(provider, token); err != nil {
				return fmt.Errorf("failed to save token: %w", err)
			}

			fmt.Fprintf(out, "Successfully authenticated with %s!\n", provider)
			fmt.Fprintf(out, "Token saved to: %s\n", a.cfg.ConfigDir)
			return nil
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 8080, "Port for OAuth callback server")

	return cmd
}

// newFeedCmd creates the feed subcommand.
func newFeedCmd(a *app) *cobra.Command {
	var (
		fixture  string
		limit    int
		types    []string
		strategy string
		format   string
		policy   string
	)

	cmd := &cobra.Command{
		Use:   "feed",
		Short: "Display the two-column feed",
		Long:  "Fetch emails and group chats, order them newest first and print them in two balanced columns.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if format != "terminal" && format != "json" {
				return fmt.Errorf("invalid format %q: must be 'terminal' or 'json'", format)
			}
			opts, err := feedOptions(limit, types)
			if err != nil {
				return err
			}

			p, err := a.partitioner(policy)
			if err != nil {
				return err
			}
			layout := p.SelectBest
			if strategy != "" {
				if layout, err = p.Strategy(strategy); err != nil {
					return fmt.Errorf("%w (available: %s)", err, strings.Join(p.StrategyNames(), ", "))
				}
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()

			if fixture == "" {
				fixture = a.cfg.Fixture
			}
			items, errs, err := newSources(a.cfg, a.logger).gather(ctx, fixture)
			if err != nil {
				return err
			}
			for _, err := range errs {
				fmt.Fprintf(cmd.ErrOrStderr(), "%v\n", err)
			}

			agg := aggregator.New(p)
			agg.AddItems(items)
			result := layout(agg.GetFeed(opts))

			return render(cmd.OutOrStdout(), format, result)
		},
	}

	cmd.Flags().StringVarP(&fixture, "fixture", "f", "", "Read items from a {\"feedItems\": [...]} JSON file instead of live sources")
	cmd.Flags().IntVarP(&limit, "limit", "l", 20, "Maximum number of items to display (0 for all)")
	cmd.Flags().StringSliceVarP(&types, "type", "t", nil, "Filter by type (email, post, group)")
	cmd.Flags().StringVarP(&strategy, "strategy", "s", "", "Use one layout strategy instead of the best-scoring one")
	cmd.Flags().StringVar(&format, "format", "terminal", "Output format: terminal or json")
	cmd.Flags().StringVar(&policy, "policy", "", "Scoring policy: asymmetric or symmetric")

	return cmd
}

func feedOptions(limit int, types []string) (aggregator.FeedOptions, error) {
	if limit < 0 {
		return aggregator.FeedOptions{}, fmt.Errorf("invalid limit %d: must not be negative", limit)
	}
	opts := aggregator.FeedOptions{Limit: limit}
	for _, name := range types {
		typ, err := feed.ParseType(name)
		if err != nil {
			return opts, err
		}
		opts.Types = append(opts.Types, typ)
	}
	return opts, nil
}

func render(w io.Writer, format string, result partition.Result) error {
	if format == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}
	_, err := fmt.Fprint(w, display.NewTerminalFormatter().FormatColumns(result))
	return err
}

// newServeCmd creates the serve subcommand.
func newServeCmd(a *app) *cobra.Command {
	var (
		addr    string
		fixture string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the local feed backend",
		Long:  "Serve the feed layout as JSON on /api/feed for the web client.",
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := a.partitioner("")
			if err != nil {
				return err
			}
			if addr == "" {
				addr = a.cfg.Server.Addr
			}
			if fixture == "" {
				fixture = a.cfg.Fixture
			}

			src := newSources(a.cfg, a.logger)
			srv := server.New(src.forServer(fixture), p,
				server.WithAllowedOrigins(a.cfg.Server.AllowedOrigins...),
				server.WithLogger(a.logger),
			)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			fmt.Fprintf(cmd.OutOrStdout(), "Serving feed on http://%s/api/feed\n", addr)
			return srv.ListenAndServe(ctx, addr)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (default from config, 127.0.0.1:8000)")
	cmd.Flags().StringVarP(&fixture, "fixture", "f", "", "Serve items from a JSON fixture file")

	return cmd
}

// newConfigCmd creates the config subcommand.
func newConfigCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show the effective configuration",
		Long:  "Print the configuration after defaults, config file, .env and environment are applied. Secrets are redacted.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := a.cfg
			redact(&cfg.Gmail.ClientSecret)
			redact(&cfg.GroupMe.AccessToken)

			out, err := yaml.Marshal(cfg)
			if err != nil {
				return fmt.Errorf("failed to encode config: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Config directory: %s\n", cfg.ConfigDir)
			_, err = cmd.OutOrStdout().Write(out)
			return err
		},
	}

	return cmd
}

func redact(s *string) {
	if *s != "" {
		*s = "********"
	}
}
