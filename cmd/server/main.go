package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"golang.org/x/sync/errgroup"

	accountservice "slotbook/internal/account/service"
	accountstore "slotbook/internal/account/store"
	"slotbook/internal/eventbus"
	kafkabus "slotbook/internal/eventbus/kafka"
	memorybus "slotbook/internal/eventbus/memory"
	"slotbook/internal/platform/config"
	"slotbook/internal/platform/httpserver"
	"slotbook/internal/platform/logger"
	"slotbook/internal/platform/metrics"
	platformredis "slotbook/internal/platform/redis"
	profileconsumer "slotbook/internal/profile/consumer"
	profileservice "slotbook/internal/profile/service"
	profilestore "slotbook/internal/profile/store"
	scheduleconsumer "slotbook/internal/schedule/consumer"
	scheduleservice "slotbook/internal/schedule/service"
	schedulestore "slotbook/internal/schedule/store"
	"slotbook/internal/token"
	httptransport "slotbook/internal/transport/http"
)

// main wires high-level dependencies and keeps the server lifecycle small.
// Business logic lives in the internal service packages. Empty DSN/URL/broker
// settings fall back to the in-memory implementations so the binary runs
// standalone.
func main() {
	cfg := config.FromEnv()
	log := logger.New()

	if err := run(cfg, log); err != nil {
		log.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New()

	var (
		accounts        accountservice.AccountStore
		accountProfiles accountservice.ProfileStore
		profiles        profileservice.Store
		schedules       scheduleservice.Store
	)
	if cfg.PostgresDSN != "" {
		db, err := sql.Open("pgx", cfg.PostgresDSN)
		if err != nil {
			return err
		}
		defer db.Close()
		if err := db.PingContext(ctx); err != nil {
			return err
		}
		accounts = accountstore.NewPostgres(db)
		accountProfiles = accountstore.NewPostgresProfiles(db)
		profiles = profilestore.NewPostgres(db)
		schedules = schedulestore.NewPostgres(db)
		log.Info("using postgres storage")
	} else {
		accounts = accountstore.NewMemory()
		accountProfiles = accountstore.NewMemoryProfiles()
		profiles = profilestore.NewMemory()
		schedules = schedulestore.NewMemory()
		log.Info("using in-memory storage")
	}

	var refresh accountservice.RefreshTokenStore
	redisClient, err := platformredis.New(cfg.Redis())
	if err != nil {
		return err
	}
	if redisClient != nil {
		defer redisClient.Close()
		refresh = accountstore.NewRedisRefreshTokens(redisClient.Client)
		log.Info("using redis refresh token store")
	} else {
		refresh = accountstore.NewMemoryRefreshTokens()
	}

	var bus eventbus.Bus
	var kafka *kafkabus.Bus
	if len(cfg.KafkaBrokers) > 0 {
		kafka, err = kafkabus.New(ctx, kafkabus.Config{
			Brokers:  cfg.KafkaBrokers,
			ClientID: "slotbook",
		}, log)
		if err != nil {
			return err
		}
		defer kafka.Close()
		bus = kafka
		log.Info("using kafka event bus", "brokers", cfg.KafkaBrokers)
	} else {
		bus = memorybus.New(log)
		log.Info("using in-memory event bus")
	}

	tokens := token.NewService(cfg.JWTSigningKey, cfg.JWTIssuer, cfg.AccessTokenTTL)

	accountSvc := accountservice.NewService(accounts, accountProfiles, refresh, tokens, bus, log, m, cfg.RefreshTokenTTL)
	accountProfileSvc := accountservice.NewProfileService(accountProfiles, accounts)
	profileSvc := profileservice.NewService(profiles)
	scheduleMgr := scheduleservice.NewManager(schedules, log)
	bookingArb := scheduleservice.NewArbiter(schedules, log, m)

	if err := profileconsumer.NewProvisioner(profiles, bus, log, m).Register(bus); err != nil {
		return err
	}
	if err := scheduleconsumer.NewProvisioner(schedules, log, m).Register(bus); err != nil {
		return err
	}

	handler := httptransport.NewHandler(accountSvc, accountProfileSvc, profileSvc, scheduleMgr, bookingArb, log)
	router := httptransport.NewRouter(handler, tokens, log)
	srv := httpserver.New(cfg.Addr, router)

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("starting slotbook", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	if kafka != nil {
		g.Go(func() error {
			return kafka.Run(ctx)
		})
	}

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
