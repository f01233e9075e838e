package main

import (
	"context"
	"database/sql"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/yuanmu/fundtrack/internal/clients/discord"
	"github.com/yuanmu/fundtrack/internal/clients/eastmoney"
	"github.com/yuanmu/fundtrack/internal/config"
	"github.com/yuanmu/fundtrack/internal/database"
	"github.com/yuanmu/fundtrack/internal/modules/allocation"
	"github.com/yuanmu/fundtrack/internal/modules/calendar"
	caljobs "github.com/yuanmu/fundtrack/internal/modules/calendar/jobs"
	"github.com/yuanmu/fundtrack/internal/modules/dca"
	dcajobs "github.com/yuanmu/fundtrack/internal/modules/dca/jobs"
	"github.com/yuanmu/fundtrack/internal/modules/funds"
	"github.com/yuanmu/fundtrack/internal/modules/navs"
	navjobs "github.com/yuanmu/fundtrack/internal/modules/navs/jobs"
	"github.com/yuanmu/fundtrack/internal/modules/portfolio"
	"github.com/yuanmu/fundtrack/internal/modules/settlement"
	"github.com/yuanmu/fundtrack/internal/modules/trading"
	tradejobs "github.com/yuanmu/fundtrack/internal/modules/trading/jobs"
	"github.com/yuanmu/fundtrack/internal/scheduler"
	"github.com/yuanmu/fundtrack/internal/server"
	"github.com/yuanmu/fundtrack/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		l := logger.New(logger.Config{Level: "info"})
		l.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: cfg.DevMode,
	})

	log.Info().Msg("Starting fundtrack")

	db, err := database.New(cfg.DatabasePath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer db.Close()

	if err := initSchemas(db); err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize schema")
	}

	// Repositories
	calRepo := calendar.NewRepository(db.Conn(), log)
	navsRepo := navs.NewRepository(db.Conn(), log)
	fundsRepo := funds.NewRepository(db.Conn(), log)
	tradesRepo := trading.NewRepository(db.Conn(), log)
	dcaRepo := dca.NewRepository(db.Conn(), log)
	allocRepo := allocation.NewRepository(db.Conn(), log)

	// Services
	calService := calendar.NewService(calRepo, log)
	policies := settlement.DefaultPolicies()
	tradingService := trading.NewService(tradesRepo, fundsRepo, calService, policies, log)
	confirmer := trading.NewConfirmer(tradesRepo, navsRepo, log)
	matcher := dca.NewMatcher(dcaRepo, tradesRepo, calService, log)
	runner := dca.NewRunner(dcaRepo, matcher, tradingService, tradesRepo, log)

	discordClient := discord.NewClient(cfg.DiscordWebhookURL, log)
	portfolioService := portfolio.NewService(tradesRepo, tradesRepo, fundsRepo, navsRepo, allocRepo, discordClient, log)

	// Background jobs
	eastmoneyClient := eastmoney.NewClient(cfg.NavAPIBaseURL, log)
	sched := scheduler.New(log)

	jobs := []struct {
		schedule string
		job      scheduler.Job
	}{
		{cfg.ConfirmSchedule, tradejobs.NewConfirmJob(confirmer, log)},
		{cfg.DcaSchedule, dcajobs.NewRunDailyJob(runner, log)},
		{cfg.NavFetchSchedule, navjobs.NewFetchJob(navsRepo, eastmoneyClient, tradesRepo, dcaRepo, log)},
		{cfg.CalendarSyncSchedule, caljobs.NewSyncJob(calService, cfg.CalendarSyncURL, log)},
	}
	for _, j := range jobs {
		if err := sched.AddJob(j.schedule, j.job); err != nil {
			log.Fatal().Err(err).Str("job", j.job.Name()).Msg("Failed to register job")
		}
	}
	sched.Start()
	defer sched.Stop()

	srv := server.New(server.Config{
		Port: cfg.Port,
		Log:  log,
		DB:   db,
		Handlers: server.Handlers{
			Calendar:   calendar.NewHandler(calService, log),
			Navs:       navs.NewHandler(navsRepo, log),
			Funds:      funds.NewHandler(fundsRepo, log),
			Trading:    trading.NewHandler(tradingService, confirmer, log),
			Dca:        dca.NewHandler(dcaRepo, matcher, runner, fundsRepo, tradingService, log),
			Allocation: allocation.NewHandler(allocRepo, log),
			Portfolio:  portfolio.NewHandler(portfolioService, log),
		},
		DevMode: cfg.DevMode,
	})

	go func() {
		if err := srv.Start(); err != nil {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	log.Info().Int("port", cfg.Port).Msg("Server started successfully")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server stopped")
}

func initSchemas(db *database.DB) error {
	inits := []func(*sql.DB) error{
		calendar.InitSchema,
		navs.InitSchema,
		funds.InitSchema,
		trading.InitSchema,
		dca.InitSchema,
		allocation.InitSchema,
	}
	for _, init := range inits {
		if err := init(db.Conn()); err != nil {
			return err
		}
	}
	return nil
}
