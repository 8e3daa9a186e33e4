package main

import (
	"context"
	"fmt"
	"log/slog"

	"schedcal/internal/appointments"
	"schedcal/internal/config"
	"schedcal/internal/fbcache"
	"schedcal/internal/formstore"
	"schedcal/internal/google"
	"schedcal/internal/graph"
	"schedcal/internal/icloud"
	"schedcal/internal/notify"
	"schedcal/internal/scheduler"
	"schedcal/internal/server"

	"github.com/redis/go-redis/v9"
)

// calendarProvider serves free/busy lookups and can write interview events.
type calendarProvider interface {
	scheduler.FreeBusyFetcher
	scheduler.EventWriter
}

type runtime struct {
	svc     *scheduler.Service
	checks  map[string]server.Check
	closers []func(context.Context) error
}

func (rt *runtime) close(logger *slog.Logger) {
	for i := len(rt.closers) - 1; i >= 0; i-- {
		if err := rt.closers[i](context.Background()); err != nil {
			logger.Warn("Failed to close resource", "error", err)
		}
	}
}

// build connects every backing service named by cfg and assembles the
// scheduling service.
func build(ctx context.Context, cfg config.Config, logger *slog.Logger) (*runtime, error) {
	rt := &runtime{checks: map[string]server.Check{}}
	fail := func(err error) (*runtime, error) {
		rt.close(logger)
		return nil, err
	}

	mongoClient, err := formstore.Connect(ctx, cfg.MongoURI)
	if err != nil {
		return fail(err)
	}
	rt.closers = append(rt.closers, mongoClient.Disconnect)
	forms := formstore.NewMongoStore(mongoClient.Database(cfg.MongoDatabase).Collection(cfg.MongoCollection), logger)
	if err := forms.EnsureIndexes(ctx); err != nil {
		return fail(err)
	}
	rt.checks["mongo"] = forms.Ping
	logger.Info("Connected to MongoDB", "database", cfg.MongoDatabase, "collection", cfg.MongoCollection)

	provider, err := buildProvider(ctx, cfg, logger)
	if err != nil {
		return fail(err)
	}

	var fetcher scheduler.FreeBusyFetcher = provider
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		rt.closers = append(rt.closers, func(context.Context) error { return rdb.Close() })
		rt.checks["redis"] = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
		fetcher = fbcache.New(rdb, provider, cfg.FreeBusyCacheTTL, "fb", logger)
		logger.Info("Free/busy cache enabled", "addr", cfg.RedisAddr, "ttl", cfg.FreeBusyCacheTTL)
	}

	var events scheduler.EventWriter = provider
	if cfg.EventWriter == "caldav" {
		events, err = icloud.NewClient(ctx, logger, cfg.ICloudUsername, cfg.ICloudPassword, cfg.ICloudCalendarName)
		if err != nil {
			return fail(fmt.Errorf("failed to create icloud client: %w", err))
		}
	}

	var mailer scheduler.Mailer
	switch cfg.MailTransport {
	case "smtp":
		mailer = notify.NewSMTPSender(cfg.SMTPHost, cfg.SMTPPort, cfg.SystemSenderEmail)
	default:
		if g, ok := provider.(*graph.Client); ok {
			mailer = g
		} else {
			mailer = graph.NewClient(ctx, logger, cfg.GraphTenantID, cfg.GraphClientID, cfg.GraphClientSecret, cfg.GraphBaseURL)
		}
	}

	deps := scheduler.Deps{
		FreeBusy: fetcher,
		Events:   events,
		Forms:    forms,
		Mailer:   mailer,
	}
	if cfg.DatabaseURL != "" {
		pool, err := appointments.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			return fail(fmt.Errorf("failed to connect to database: %w", err))
		}
		rt.closers = append(rt.closers, func(context.Context) error { pool.Close(); return nil })
		rt.checks["postgres"] = appointments.ReadyCheck(pool)
		deps.Appointments = appointments.NewRepository(pool)
		logger.Info("Appointment records enabled")
	}

	rt.svc = scheduler.New(logger, deps, scheduler.Settings{
		SenderEmail:     cfg.SystemSenderEmail,
		APIURL:          cfg.APIURL,
		DefaultTimeZone: cfg.DefaultTimeZone,
		GridMinutes:     cfg.GridMinutes,
	})
	return rt, nil
}

func buildProvider(ctx context.Context, cfg config.Config, logger *slog.Logger) (calendarProvider, error) {
	switch cfg.CalendarProvider {
	case "google":
		client, err := google.NewClient(ctx, logger, cfg.GoogleClientID, cfg.GoogleClientSecret, cfg.GoogleAccount)
		if err != nil {
			return nil, fmt.Errorf("failed to create google client for account %s: %w", cfg.GoogleAccount, err)
		}
		logger.Info("Using Google Calendar", "account", cfg.GoogleAccount)
		return client, nil
	default:
		logger.Info("Using Microsoft Graph", "tenant", cfg.GraphTenantID)
		return graph.NewClient(ctx, logger, cfg.GraphTenantID, cfg.GraphClientID, cfg.GraphClientSecret, cfg.GraphBaseURL), nil
	}
}

func buildFetcher(ctx context.Context, cfg config.Config, logger *slog.Logger) (scheduler.FreeBusyFetcher, error) {
	return buildProvider(ctx, cfg, logger)
}
