package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	authclient "github.com/goliatone/go-auth-client"
	"github.com/goliatone/go-auth-client/config"
	"github.com/goliatone/go-auth-client/internal/devbackend"
	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-print"
	"github.com/spf13/cobra"
)

type rootOptions struct {
	// transport replaces http.DefaultTransport for backend calls
	transport http.RoundTripper
	// loadConfig defaults to config.Load
	loadConfig func(path string) (*config.Config, error)
}

type rootFlags struct {
	configPath string
	baseURL    string
	logLevel   string
}

func newRootCmd(opts rootOptions) *cobra.Command {
	if opts.loadConfig == nil {
		opts.loadConfig = config.Load
	}

	flags := &rootFlags{}
	root := &cobra.Command{
		Use:           "backoffice",
		Short:         "Back office client: sign in and browse sections through the route guard",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVarP(&flags.configPath, "config", "c", "", "config file (default ./config.yaml or the user config dir)")
	root.PersistentFlags().StringVar(&flags.baseURL, "base-url", "", "backend API base URL")
	root.PersistentFlags().StringVar(&flags.logLevel, "log-level", "", "log level (debug, info, warn, error)")

	run := func(fn func(ctx context.Context, a *app, args []string) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig(flags.configPath)
			if err != nil {
				return err
			}
			if flags.baseURL != "" {
				cfg.BaseURL = flags.baseURL
			}
			if flags.logLevel != "" {
				cfg.LogLevel = flags.logLevel
			}

			a, err := newApp(cmd.Context(), cfg, opts.transport, cmd.OutOrStdout(), cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer a.Close()

			return fn(cmd.Context(), a, args)
		}
	}

	root.AddCommand(
		newLoginCmd(run),
		newLogoutCmd(run),
		newWhoamiCmd(run),
		newStatusCmd(run),
		newSectionsCmd(run),
		newMenuCmd(run),
		newOpenCmd(run),
		newDevServerCmd(),
	)

	return root
}

type runner func(fn func(ctx context.Context, a *app, args []string) error) func(*cobra.Command, []string) error

func newLoginCmd(run runner) *cobra.Command {
	var username, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and persist the session",
		Args:  cobra.NoArgs,
	}
	cmd.Flags().StringVarP(&username, "username", "u", "", "username (or BACKOFFICE_USERNAME)")
	cmd.Flags().StringVarP(&password, "password", "p", "", "password (or BACKOFFICE_PASSWORD)")

	cmd.RunE = run(func(ctx context.Context, a *app, _ []string) error {
		if username == "" {
			username = os.Getenv(config.EnvPrefix + "_USERNAME")
		}
		if password == "" {
			password = os.Getenv(config.EnvPrefix + "_PASSWORD")
		}

		identity, err := a.session.Login(ctx, authclient.Credentials{
			Username: username,
			Password: password,
		})
		if err != nil {
			return userFacing(err)
		}

		fmt.Fprintf(a.out, "Signed in as %s (%s)\n", identity.Username, identity.Role)
		return nil
	})
	return cmd
}

func newLogoutCmd(run runner) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "logout",
		Short: "Sign out and clear the stored session",
		Args:  cobra.NoArgs,
	}
	cmd.RunE = run(func(ctx context.Context, a *app, _ []string) error {
		if err := a.session.Logout(ctx); err != nil {
			return err
		}
		fmt.Fprintln(a.out, "Signed out")
		return nil
	})
	return cmd
}

func newWhoamiCmd(run runner) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "whoami",
		Short: "Print the signed in identity",
		Args:  cobra.NoArgs,
	}
	cmd.RunE = run(func(_ context.Context, a *app, _ []string) error {
		identity := a.session.CurrentIdentity()
		if identity == nil {
			return userFacing(authclient.ErrNoSession)
		}
		fmt.Fprintln(a.out, print.MaybePrettyJSON(identity))
		return nil
	})
	return cmd
}

type sessionStatus struct {
	State         authclient.SessionState `json:"state"`
	Authenticated bool                    `json:"authenticated"`
	Expired       bool                    `json:"expired"`
	Role          authclient.UserRole     `json:"role,omitempty"`
	Username      string                  `json:"username,omitempty"`
	ExpiresAt     *time.Time              `json:"expires_at,omitempty"`
}

func newStatusCmd(run runner) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Print the session state",
		Args:  cobra.NoArgs,
	}
	cmd.RunE = run(func(ctx context.Context, a *app, _ []string) error {
		status := sessionStatus{
			State:         a.session.State(),
			Authenticated: a.session.IsAuthenticated(ctx),
			Expired:       a.session.IsExpired(ctx),
		}
		if identity := a.session.CurrentIdentity(); identity != nil {
			status.Role = identity.Role
			status.Username = identity.Username
		}
		if credential, ok := a.session.Credential(ctx); ok {
			if claims, err := authclient.NewCredentialDecoder(nil).Decode(credential); err == nil {
				exp := claims.Expires()
				status.ExpiresAt = &exp
			}
		}
		fmt.Fprintln(a.out, print.MaybePrettyJSON(status))
		return nil
	})
	return cmd
}

func newSectionsCmd(run runner) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sections",
		Short: "List the sections the current role can reach",
		Args:  cobra.NoArgs,
	}
	cmd.RunE = run(func(_ context.Context, a *app, _ []string) error {
		role, ok := a.session.Role()
		if !ok {
			return userFacing(authclient.ErrNoSession)
		}
		for _, s := range a.guard.Policy().Sections(role) {
			fmt.Fprintln(a.out, s)
		}
		return nil
	})
	return cmd
}

func newMenuCmd(run runner) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "menu",
		Short: "Print the navigation menu for the current role",
		Args:  cobra.NoArgs,
	}
	cmd.RunE = run(func(_ context.Context, a *app, _ []string) error {
		role, _ := a.session.Role()
		for _, item := range a.guard.Policy().Menu(role, authclient.DefaultMenu()) {
			fmt.Fprintf(a.out, "%-16s %s\n", item.Title, item.Path)
		}
		return nil
	})
	return cmd
}

func newOpenCmd(run runner) *cobra.Command {
	var (
		page    int
		limit   int
		sort    string
		order   string
		filters []string
	)
	cmd := &cobra.Command{
		Use:   "open <section> [id]",
		Short: "Open a section through the route guard and print its data",
		Args:  cobra.RangeArgs(1, 2),
	}
	cmd.Flags().IntVar(&page, "page", 1, "page number")
	cmd.Flags().IntVar(&limit, "limit", 10, "page size")
	cmd.Flags().StringVar(&sort, "sort", "", "sort field")
	cmd.Flags().StringVar(&order, "order", "", "sort order (asc or desc)")
	cmd.Flags().StringSliceVar(&filters, "filter", nil, "filters as key=value")

	cmd.RunE = run(func(ctx context.Context, a *app, args []string) error {
		section := authclient.Section(strings.ToLower(strings.Trim(args[0], "/")))
		route := authclient.RouteFor(section)

		decision := a.guard.Check(ctx, route)
		if !decision.Allowed {
			fmt.Fprintf(a.out, "redirect: %s\n", decision.Redirect)
			return userFacing(decision.Reason)
		}

		if len(args) == 2 {
			id, err := entryID(args[1])
			if err != nil {
				return err
			}
			var entry map[string]any
			if err := a.api.Get(ctx, route.Path+"/"+id, nil, &entry); err != nil {
				return userFacing(err)
			}
			fmt.Fprintln(a.out, print.MaybePrettyJSON(entry))
			return nil
		}

		query, err := parseFilters(filters)
		if err != nil {
			return err
		}

		var result authclient.Page[map[string]any]
		err = a.api.GetPaginated(ctx, route.Path, authclient.Pagination{
			Page:  page,
			Limit: limit,
			Sort:  sort,
			Order: order,
		}, query, &result)
		if err != nil {
			return userFacing(err)
		}

		fmt.Fprintln(a.out, print.MaybePrettyJSON(result))
		return nil
	})
	return cmd
}

func newDevServerCmd() *cobra.Command {
	var (
		addr       string
		signingKey string
		ttl        time.Duration
		logLevel   string
	)
	cmd := &cobra.Command{
		Use:   "dev-server",
		Short: "Run a local backend with seeded users (password: secret)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			srv, err := devbackend.New(devbackend.Config{
				SigningKey: []byte(signingKey),
				TokenTTL:   ttl,
				Logger:     newLogger(cmd.ErrOrStderr(), logLevel),
			})
			if err != nil {
				return err
			}

			errc := make(chan error, 1)
			go func() { errc <- srv.Listen(addr) }()

			fmt.Fprintf(cmd.OutOrStdout(), "dev backend on %s\n", addr)

			select {
			case err := <-errc:
				return err
			case <-cmd.Context().Done():
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				return srv.Shutdown(ctx)
			}
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:8000", "listen address")
	cmd.Flags().StringVar(&signingKey, "signing-key", "dev-secret", "HS256 signing key")
	cmd.Flags().DurationVar(&ttl, "token-ttl", time.Hour, "token lifetime")
	cmd.Flags().StringVar(&logLevel, "log-level", "info", "log level")
	return cmd
}

func parseFilters(raw []string) (map[string]string, error) {
	out := make(map[string]string, len(raw))
	for _, f := range raw {
		k, v, ok := strings.Cut(f, "=")
		if !ok || strings.TrimSpace(k) == "" {
			return nil, errors.New("filter must be key=value", errors.CategoryBadInput).
				WithMetadata(map[string]any{"filter": f})
		}
		out[strings.TrimSpace(k)] = strings.TrimSpace(v)
	}
	return out, nil
}

// entryID rejects ids that would leave the guarded section path
func entryID(raw string) (string, error) {
	id := strings.TrimSpace(raw)
	if id == "" || id == "." || id == ".." || strings.ContainsAny(id, `/\`) {
		return "", errors.New("entry id must be a single path segment", errors.CategoryBadInput).
			WithMetadata(map[string]any{"id": raw})
	}
	return id, nil
}

// userFacing keeps the message of rich errors and drops the category prefix
func userFacing(err error) error {
	if err == nil {
		return nil
	}
	var richErr *errors.Error
	if errors.As(err, &richErr) {
		return cliError{msg: richErr.Message, cause: err}
	}
	return err
}

type cliError struct {
	msg   string
	cause error
}

func (e cliError) Error() string { return e.msg }
func (e cliError) Unwrap() error { return e.cause }
