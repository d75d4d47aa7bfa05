package main

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"
	"golang.org/x/oauth2"

	"daycal/internal/agenda"
	"daycal/internal/google"
	"daycal/internal/graph"
	"daycal/internal/icloud"
	"daycal/internal/tokens"
)

func main() {
	// Load .env file first, but don't error if it doesn't exist.
	_ = godotenv.Load()

	app := &cli.App{
		Name:  "daycal",
		Usage: "List today's calendar events from Microsoft Graph, Google Calendar or CalDAV.",
		Commands: []*cli.Command{
			authCommand(),
			todayCommand(),
		},
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := app.RunContext(ctx, os.Args)
	stop()
	if err != nil {
		slog.Error("Application failed", "error", err)
		os.Exit(1)
	}
}

func providerFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "provider",
		Value:   graph.ProviderName,
		Usage:   "Calendar provider: graph, google or caldav.",
		EnvVars: []string{"DAYCAL_PROVIDER"},
	}
}

func tokenDirFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "token-dir",
		Usage:   "Directory holding OAuth tokens (default: XDG data dir).",
		EnvVars: []string{"DAYCAL_TOKEN_DIR"},
	}
}

func authCommand() *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Authenticate with a calendar account to get an API token.",
		Flags: []cli.Flag{providerFlag(), tokenDirFlag()},
		Action: func(c *cli.Context) error {
			logger := setupLogger("info")
			provider := c.String("provider")
			logger.Info("Starting authentication flow.", "provider", provider)

			config, err := oauthConfig(provider)
			if err != nil {
				return err
			}

			authURL := config.AuthCodeURL(tokens.NewState(), oauth2.AccessTypeOffline)
			fmt.Fprintf(c.App.Writer, "Go to the following link in your browser then type the "+
				"authorization code: \n%v\n", authURL)

			fmt.Fprint(c.App.Writer, "Enter Authorization Code: ")
			reader := bufio.NewReader(os.Stdin)
			authCode, _ := reader.ReadString('\n')
			authCode = strings.TrimSpace(authCode)

			var token *oauth2.Token
			if provider == google.ProviderName {
				token, err = google.TokenFromWeb(c.Context, config, authCode)
			} else {
				token, err = graph.TokenFromCode(c.Context, config, authCode)
			}
			if err != nil {
				return fmt.Errorf("unable to retrieve token from web: %w", err)
			}

			fmt.Fprint(c.App.Writer, "Enter a name for this account (e.g., 'personal', 'work'): ")
			accountName, _ := reader.ReadString('\n')
			accountName = strings.TrimSpace(accountName)
			if accountName == "" {
				return fmt.Errorf("account name cannot be empty")
			}

			store := tokens.NewStore(c.String("token-dir"))
			if err := store.Save(provider, accountName, token); err != nil {
				return fmt.Errorf("failed to save token: %w", err)
			}

			logger.Info("Successfully authenticated and saved token.", "file", store.Path(provider, accountName))
			return nil
		},
	}
}

func todayCommand() *cli.Command {
	return &cli.Command{
		Name:  "today",
		Usage: "Print today's events.",
		Flags: []cli.Flag{
			providerFlag(),
			tokenDirFlag(),
			&cli.StringFlag{Name: "account", Usage: "Account name given during auth (default: the only one)."},
			&cli.StringFlag{Name: "timezone", Value: "Local", Usage: "IANA zone that defines 'today'.", EnvVars: []string{"DAYCAL_TIMEZONE"}},
			&cli.StringFlag{Name: "format", Value: formatJSON, Usage: "Output format: json or ics."},
			&cli.IntFlag{Name: "watch", Usage: "Print the agenda every N seconds."},
			&cli.StringFlag{Name: "log-level", Value: "info", Usage: "debug, info, warn or error.", EnvVars: []string{"LOG_LEVEL"}},
			&cli.StringFlag{Name: "graph-url", Value: graph.DefaultBaseURL, Usage: "Microsoft Graph base URL.", EnvVars: []string{"GRAPH_BASE_URL"}},
		},
		Action: func(c *cli.Context) error {
			logger := setupLogger(c.String("log-level"))

			format := c.String("format")
			if format != formatJSON && format != formatICS {
				return fmt.Errorf("unknown format %q", format)
			}

			loc, err := time.LoadLocation(c.String("timezone"))
			if err != nil {
				return fmt.Errorf("invalid timezone '%s': %w", c.String("timezone"), err)
			}

			source, err := newSource(c.Context, logger, c, loc)
			if err != nil {
				return err
			}
			svc := agenda.NewService(logger, source, loc)

			// --watch flag takes precedence
			if c.IsSet("watch") {
				interval := time.Duration(c.Int("watch")) * time.Second
				if interval <= 0 {
					return fmt.Errorf("watch interval must be positive")
				}
				logger.Info("Starting watcher.", "interval", interval)
				watch(c.Context, interval, func() {
					resp := svc.Today(c.Context)
					if err := writeResponse(c.App.Writer, format, resp, loc); err != nil {
						logger.Error("Failed to write agenda", "error", err)
					}
				})
				logger.Info("Watcher stopped.")
				return nil
			}

			resp := svc.Today(c.Context)
			if err := writeResponse(c.App.Writer, format, resp, loc); err != nil {
				return err
			}
			if resp.Failed() {
				return fmt.Errorf("agenda failed with code %d", resp.ErrorCode)
			}
			return nil
		},
	}
}

// watch runs fn immediately and then on every tick until ctx is done.
func watch(ctx context.Context, interval time.Duration, fn func()) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		fn()
		if ctx.Err() != nil {
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func oauthConfig(provider string) (*oauth2.Config, error) {
	switch provider {
	case graph.ProviderName:
		config, err := graph.OAuthConfig(os.Getenv("MS_CLIENT_ID"), os.Getenv("MS_CLIENT_SECRET"), os.Getenv("MS_TENANT"))
		if err != nil {
			return nil, fmt.Errorf("failed to get graph oauth config: %w", err)
		}
		return config, nil
	case icloud.ProviderName:
		return nil, fmt.Errorf("caldav signs in with ICLOUD_USERNAME and ICLOUD_APP_SPECIFIC_PASSWORD, no auth needed")
	case google.ProviderName:
		config, err := google.GetOAuthConfig(os.Getenv("GOOGLE_CLIENT_ID"), os.Getenv("GOOGLE_CLIENT_SECRET"))
		if err != nil {
			return nil, fmt.Errorf("failed to get google oauth config: %w", err)
		}
		return config, nil
	default:
		return nil, fmt.Errorf("unknown provider %q", provider)
	}
}

// newSource builds the calendar source for the selected provider account.
func newSource(ctx context.Context, logger *slog.Logger, c *cli.Context, loc *time.Location) (agenda.Source, error) {
	provider := c.String("provider")
	if provider == icloud.ProviderName {
		return icloud.NewClient(ctx, logger, os.Getenv("CALDAV_URL"), os.Getenv("ICLOUD_USERNAME"),
			os.Getenv("ICLOUD_APP_SPECIFIC_PASSWORD"), os.Getenv("ICLOUD_CALENDAR_NAME"), loc)
	}

	config, err := oauthConfig(provider)
	if err != nil {
		return nil, err
	}

	store := tokens.NewStore(c.String("token-dir"))
	account, err := pickAccount(store, provider, c.String("account"))
	if err != nil {
		return nil, err
	}
	token, err := store.Load(provider, account)
	if err != nil {
		return nil, fmt.Errorf("failed to load token for account %s: %w", account, err)
	}
	logger.Debug("Using account", "provider", provider, "account", account)

	if provider == google.ProviderName {
		return google.NewClient(ctx, logger, config, token, loc)
	}

	// Without the Prefer header Graph answers in UTC, which parses fine.
	tz := loc.String()
	if loc == time.Local {
		tz = ""
	}
	return graph.NewAuthenticatedClient(ctx, logger, config, token, c.String("graph-url"), tz)
}

func pickAccount(store *tokens.Store, provider, account string) (string, error) {
	if account != "" {
		return account, nil
	}
	accounts, err := store.Accounts(provider)
	if err != nil {
		return "", fmt.Errorf("could not list %s accounts: %w", provider, err)
	}
	switch len(accounts) {
	case 0:
		return "", fmt.Errorf("no %s accounts found. Run the 'auth' command first", provider)
	case 1:
		return accounts[0], nil
	default:
		return "", fmt.Errorf("several %s accounts found (%s), pick one with --account", provider, strings.Join(accounts, ", "))
	}
}

func setupLogger(level string) *slog.Logger {
	var logLevel slog.Level
	switch strings.ToLower(level) {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))
}
