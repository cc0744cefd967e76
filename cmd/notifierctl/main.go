// Command notifierctl administers the parent notifier's persisted state.
//
// Usage:
//
//	notifierctl login --username parent01 --password secret
//	notifierctl session show
//	notifierctl session clear
//	notifierctl state show -o yaml
//	notifierctl state reset events
//	notifierctl poll
//	notifierctl poll --commit
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/childtrack/parent-notifier/internal/api/handler"
	"github.com/childtrack/parent-notifier/internal/checkstate"
	"github.com/childtrack/parent-notifier/internal/childtrack"
	"github.com/childtrack/parent-notifier/internal/config"
	"github.com/childtrack/parent-notifier/internal/kvstore"
	"github.com/childtrack/parent-notifier/internal/localnotify"
	"github.com/childtrack/parent-notifier/internal/notifications"
	"github.com/childtrack/parent-notifier/internal/platform"
	"github.com/childtrack/parent-notifier/internal/session"
)

var logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))

func main() {
	// Load .env if present
	_ = godotenv.Load(".env")

	root := &cobra.Command{
		Use:           "notifierctl",
		Short:         "ChildTrack parent notifier administration",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().Bool("verbose", false, "Log at debug level")
	root.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		if v, _ := cmd.Flags().GetBool("verbose"); v {
			logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
		}
	}

	root.AddCommand(loginCmd())
	root.AddCommand(sessionCmd())
	root.AddCommand(stateCmd())
	root.AddCommand(pollCmd())
	root.AddCommand(versionCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

// env bundles what every subcommand needs.
type env struct {
	cfg      *config.Config
	store    kvstore.Store
	sessions *session.Store
	state    *checkstate.Store
}

// run loads configuration, opens the store and hands both to fn.
func run(fn func(ctx context.Context, e *env) error) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		return failure("Invalid configuration", err.Error())
	}

	store, err := kvstore.Open(ctx, cfg)
	if err != nil {
		return failure("Cannot open the "+cfg.StoreDriver+" store", err.Error())
	}
	defer store.Close()

	return fn(ctx, &env{
		cfg:      cfg,
		store:    store,
		sessions: session.New(store),
		state:    checkstate.New(store, cfg.StorePrefix),
	})
}

func (e *env) client() *childtrack.Client {
	return childtrack.NewClient(childtrack.Options{
		BaseURL: e.cfg.BackendURL,
		Paths: childtrack.Paths{
			Attendance: e.cfg.AttendancePath,
			Events:     e.cfg.EventsPath,
			Guardians:  e.cfg.GuardiansPath,
			Login:      e.cfg.LoginPath,
		},
		Timeout:           e.cfg.HTTPTimeout,
		RequestsPerMinute: e.cfg.APIRequestsPerMinute,
		MaxPages:          e.cfg.MaxPages,
		Token:             e.sessions.Token,
		Logger:            logger,
	})
}

// --------------------------------------------------------------------------
// login
// --------------------------------------------------------------------------

func loginCmd() *cobra.Command {
	var username, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign a parent in and cache the session",
		RunE: func(cmd *cobra.Command, args []string) error {
			if username == "" || password == "" {
				return failure("Username and password are required", "Pass --username and --password.")
			}
			return run(func(ctx context.Context, e *env) error {
				res, err := e.client().Login(ctx, username, password)
				var le *childtrack.LoginError
				if errors.As(err, &le) {
					return failure("Login rejected", le.Message)
				}
				if err != nil {
					return failure("Login failed", err.Error())
				}
				p, err := e.sessions.SaveRaw(ctx, res.Parent)
				if err != nil {
					return failure("Login response has no usable student", err.Error())
				}
				if err := e.sessions.SetToken(ctx, res.Token); err != nil {
					return failure("Could not store the session token", err.Error())
				}
				st := p.Student()
				success("Signed in as %s", orDefault(p.Name, username))
				field("student", orDefault(st.Name, st.LRN))
				if p.MustChangeCredentials {
					warning("The backend asks this parent to change their credentials")
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&username, "username", "", "Parent username")
	cmd.Flags().StringVar(&password, "password", os.Getenv("CHILDTRACK_PASSWORD"), "Parent password (default $CHILDTRACK_PASSWORD)")
	return cmd
}

// --------------------------------------------------------------------------
// session
// --------------------------------------------------------------------------

func sessionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "session",
		Short: "Inspect or clear the cached parent session",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the cached parent and student",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(func(ctx context.Context, e *env) error {
				p, err := e.sessions.Parent(ctx)
				if errors.Is(err, session.ErrNoSession) {
					warning("No parent signed in")
					return nil
				}
				if err != nil {
					return failure("Cached session is unreadable", err.Error())
				}
				st := p.Student()
				field("parent", p.Name)
				field("username", p.Username)
				field("lrn", st.LRN)
				field("student", st.Name)
				field("section", st.Section)
				field("teacher", st.Teacher)
				field("token", mask(e.sessions.Token(ctx)))
				if !st.Identified() {
					warning("Student cannot be identified; polling will be skipped")
				}
				return nil
			})
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "clear",
		Short: "Sign out by removing the cached parent and token",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(func(ctx context.Context, e *env) error {
				if err := e.sessions.Clear(ctx); err != nil {
					return failure("Could not clear the session", err.Error())
				}
				success("Session cleared")
				return nil
			})
		},
	})
	return cmd
}

// --------------------------------------------------------------------------
// state
// --------------------------------------------------------------------------

func stateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "state",
		Short: "Inspect or reset per-category check-state",
	}

	var output string
	show := &cobra.Command{
		Use:   "show",
		Short: "Print fingerprints and notified ids",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(func(ctx context.Context, e *env) error {
				return printState(e.state.Snapshot(ctx), output)
			})
		},
	}
	show.Flags().StringVarP(&output, "output", "o", "text", "Output format: text, json or yaml")
	cmd.AddCommand(show)

	cmd.AddCommand(&cobra.Command{
		Use:       "reset [category]",
		Short:     "Forget fingerprints and notified ids (all categories by default)",
		Args:      cobra.MaximumNArgs(1),
		ValidArgs: categoryNames(),
		RunE: func(cmd *cobra.Command, args []string) error {
			targets := checkstate.Categories()
			if len(args) == 1 {
				c := checkstate.Category(strings.ToLower(args[0]))
				if !c.Valid() {
					return failure("Unknown category "+args[0], "Choose one of: "+strings.Join(categoryNames(), ", "))
				}
				targets = []checkstate.Category{c}
			}
			return run(func(ctx context.Context, e *env) error {
				for _, c := range targets {
					if err := e.state.Reset(ctx, c); err != nil {
						return failure("Could not reset "+string(c), err.Error())
					}
					success("Reset %s", c)
				}
				return nil
			})
		},
	})
	return cmd
}

func printState(states []checkstate.CategoryState, output string) error {
	switch output {
	case "json":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(states)
	case "yaml":
		enc := yaml.NewEncoder(os.Stdout)
		enc.SetIndent(2)
		defer enc.Close()
		return enc.Encode(states)
	case "text", "":
		for _, s := range states {
			cyan.Printf("%s\n", s.Category)
			if s.Error != "" {
				red.Printf("  error: %s\n", s.Error)
				continue
			}
			if !s.Polled {
				faint.Println("  never polled")
				continue
			}
			field("  fingerprint", s.Fingerprint)
			field("  notified", len(s.Notified))
		}
		return nil
	default:
		return failure("Unknown output format "+output, "Use text, json or yaml.")
	}
}

func categoryNames() []string {
	var names []string
	for _, c := range checkstate.Categories() {
		names = append(names, string(c))
	}
	return names
}

// --------------------------------------------------------------------------
// poll
// --------------------------------------------------------------------------

func pollCmd() *cobra.Command {
	var commit bool
	cmd := &cobra.Command{
		Use:   "poll",
		Short: "Run one detection cycle and print what would be shown",
		Long: "Run one detection cycle and print what would be shown.\n\n" +
			"By default the cycle runs against an in-memory copy of the check-state, so the\n" +
			"daemon still announces everything printed here. With --commit the cycle records\n" +
			"its fingerprints and notified ids in the shared store, and the daemon will not\n" +
			"announce those items again.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(func(ctx context.Context, e *env) error {
				loc, err := e.cfg.Location()
				if err != nil {
					return failure("Invalid timezone", err.Error())
				}
				state := e.state
				if !commit {
					state = checkstate.New(kvstore.NewMemory(), e.cfg.StorePrefix)
					if err := e.state.CopyTo(ctx, state); err != nil {
						return failure("Could not read check-state", err.Error())
					}
				}
				center := localnotify.New(localnotify.Options{
					Permission: platform.PermissionGranted,
					Logger:     logger,
				})
				if _, err := center.RequestPermission(ctx); err != nil {
					return failure("Permission request failed", err.Error())
				}
				for _, ch := range platform.DefaultChannels {
					if err := center.ConfigureChannel(ctx, ch); err != nil {
						return failure("Channel setup failed", err.Error())
					}
				}

				svc := notifications.NewService(notifications.ServiceOptions{
					Presenter: center,
					Fetcher:   e.client(),
					Parents:   e.sessions,
					State:     state,
					Location:  loc,
					Logger:    logger,
				})
				res, _ := svc.PollNow(ctx)
				if res.Skipped != "" {
					warning("Cycle skipped: %s", res.Skipped)
					return nil
				}
				for _, n := range center.List() {
					green.Printf("%s\n", n.Message.Title)
					fmt.Printf("  %s\n", n.Message.Body)
				}
				for c, msg := range res.Errors {
					red.Printf("%s: %s\n", c, msg)
				}
				if res.Sent == 0 && len(res.Errors) == 0 {
					success("Nothing new")
				}
				if len(res.Errors) > 0 {
					return fmt.Errorf("%d categories failed", len(res.Errors))
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&commit, "commit", false, "Record the cycle in the shared check-state")
	return cmd
}

// --------------------------------------------------------------------------
// version
// --------------------------------------------------------------------------

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the notifier version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println(handler.Version)
		},
	}
}

// --------------------------------------------------------------------------
// helpers
// --------------------------------------------------------------------------

func orDefault(v, fallback string) string {
	if v != "" {
		return v
	}
	return fallback
}

func mask(token string) string {
	if len(token) <= 4 {
		return strings.Repeat("*", len(token))
	}
	return token[:4] + strings.Repeat("*", len(token)-4)
}
