package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"schedcal/internal/appointments"
	"schedcal/internal/availability"
	"schedcal/internal/config"
	"schedcal/internal/google"
	"schedcal/internal/models"
	"schedcal/internal/server"

	"github.com/urfave/cli/v2"
	"golang.org/x/oauth2"
)

func main() {
	app := &cli.App{
		Name:  "schedcal",
		Usage: "Find common interview slots across calendars and book them.",
		Commands: []*cli.Command{
			serveCommand(),
			authCommand(),
			migrateCommand(),
			availabilityCommand(),
			splitCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		slog.Error("Application failed", "error", err)
		os.Exit(1)
	}
}

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the HTTP API.",
		Action: func(c *cli.Context) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}
			logger := setupLogger(cfg.LogLevel, cfg.IsProduction())

			ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
			defer stop()

			rt, err := build(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer rt.close(logger)

			srv := server.New(logger, rt.svc, server.Options{
				AllowedOrigins: []string{cfg.ClientURL},
				ReadyChecks:    rt.checks,
			})
			err = srv.ListenAndServe(ctx, fmt.Sprintf(":%d", cfg.Port))
			logger.Info("Waiting for background mails")
			rt.svc.Wait()
			return err
		},
	}
}

func authCommand() *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Authenticate with a Google account to get an API token.",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "account", Usage: "Name of the account, e.g. 'recruiting'. Prompted for when empty."},
		},
		Action: func(c *cli.Context) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			logger := setupLogger("info", false)
			logger.Info("Starting Google authentication flow.")

			oauthConfig, err := google.GetOAuthConfigForAuthFlow(cfg.GoogleClientID, cfg.GoogleClientSecret)
			if err != nil {
				return fmt.Errorf("failed to get google oauth config: %w", err)
			}

			authURL := oauthConfig.AuthCodeURL("state-token", oauth2.AccessTypeOffline)
			fmt.Printf("Go to the following link in your browser then type the "+
				"authorization code: \n%v\n", authURL)

			fmt.Print("Enter Authorization Code: ")
			reader := bufio.NewReader(os.Stdin)
			authCode, _ := reader.ReadString('\n')
			authCode = strings.TrimSpace(authCode)

			token, err := google.TokenFromWeb(c.Context, oauthConfig, authCode)
			if err != nil {
				return fmt.Errorf("unable to retrieve token from web: %w", err)
			}

			accountName := c.String("account")
			if accountName == "" {
				fmt.Print("Enter a name for this account (e.g., 'recruiting'): ")
				accountName, _ = reader.ReadString('\n')
				accountName = strings.TrimSpace(accountName)
			}
			tokenFile := "token-" + accountName + ".json"

			if err := google.SaveToken(tokenFile, token); err != nil {
				return fmt.Errorf("failed to save token: %w", err)
			}

			logger.Info("Successfully authenticated and saved token.", "file", tokenFile)
			accounts, err := google.GetTokenAccounts()
			if err == nil {
				logger.Info("Known Google accounts", "accounts", accounts)
			}
			return nil
		},
	}
}

func migrateCommand() *cli.Command {
	return &cli.Command{
		Name:  "migrate",
		Usage: "Apply the appointments database migrations.",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "status", Usage: "Print the schema version without migrating."},
		},
		Action: func(c *cli.Context) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if cfg.DatabaseURL == "" {
				return fmt.Errorf("DATABASE_URL is required")
			}
			logger := setupLogger(cfg.LogLevel, cfg.IsProduction())

			pool, err := appointments.Open(c.Context, cfg.DatabaseURL)
			if err != nil {
				return fmt.Errorf("failed to connect to database: %w", err)
			}
			defer pool.Close()

			m, err := appointments.NewMigrator(pool, logger)
			if err != nil {
				return err
			}
			defer m.Close()

			if c.Bool("status") {
				version, err := m.Version(c.Context)
				if err != nil {
					return err
				}
				fmt.Println(version)
				return nil
			}
			return m.Up(c.Context)
		},
	}
}

func availabilityCommand() *cli.Command {
	return &cli.Command{
		Name:  "availability",
		Usage: "Compute common availability for a request file and print it as JSON.",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "request", Required: true, Usage: "JSON file holding the availability request."},
			&cli.StringFlag{Name: "freebusy", Usage: "JSON file of bitmaps by participant and date. The calendar provider is queried when empty."},
		},
		Action: func(c *cli.Context) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			logger := setupLogger(cfg.LogLevel, cfg.IsProduction())

			var req models.ScheduleRequest
			if err := readJSON(c.String("request"), &req); err != nil {
				return err
			}

			q, err := req.Query(cfg.GridMinutes)
			if err != nil {
				return err
			}

			var fb availability.FreeBusy
			if path := c.String("freebusy"); path != "" {
				if err := readJSON(path, &fb); err != nil {
					return err
				}
			} else {
				fetcher, err := buildFetcher(c.Context, cfg, logger)
				if err != nil {
					return err
				}
				fq, err := req.FreeBusyQuery(q, cfg.DefaultTimeZone)
				if err != nil {
					return err
				}
				if fb, err = fetcher.FetchFreeBusy(c.Context, fq); err != nil {
					return fmt.Errorf("failed to fetch free/busy: %w", err)
				}
			}

			res, err := availability.Calculate(q, fb)
			if err != nil {
				return err
			}
			return writeJSON(os.Stdout, models.AvailabilityResponse{
				CommonAvailability: res.CommonAvailability,
				SlotAttendeesMap:   res.SlotAttendees,
			})
		},
	}
}

func splitCommand() *cli.Command {
	return &cli.Command{
		Name:      "split",
		Usage:     "Split candidate windows read from stdin into display slots.",
		ArgsUsage: "< candidates.json",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "duration", Value: 60, Usage: "Slot length in minutes."},
		},
		Action: func(c *cli.Context) error {
			var windows [][2]string
			if err := json.NewDecoder(os.Stdin).Decode(&windows); err != nil {
				return fmt.Errorf("failed to read candidates: %w", err)
			}
			split, err := availability.SplitCandidates(windows, c.Int("duration"))
			if err != nil {
				return err
			}
			return writeJSON(os.Stdout, split)
		},
	}
}

func readJSON(path string, v any) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := json.NewDecoder(f).Decode(v); err != nil {
		return fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func setupLogger(level string, production bool) *slog.Logger {
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

	opts := &slog.HandlerOptions{Level: logLevel}
	if production {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts)).With("service", "schedcal")
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}
