package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	_ "github.com/jackc/pgx/v5/stdlib"

	"pipeline-crm/internal/appointment"
	"pipeline-crm/internal/auth"
	"pipeline-crm/internal/branch"
	"pipeline-crm/internal/claim"
	"pipeline-crm/internal/clock"
	"pipeline-crm/internal/config"
	"pipeline-crm/internal/hibernate"
	"pipeline-crm/internal/history"
	"pipeline-crm/internal/httpapi"
	"pipeline-crm/internal/intake"
	"pipeline-crm/internal/lead"
	"pipeline-crm/internal/settings"
	"pipeline-crm/pkg/logger"
	"pipeline-crm/pkg/utils"
)

func main() {
	// Root context that cancels on shutdown
	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", "err", err)
		os.Exit(1)
	}

	log := logger.New(cfg.App.Env)
	slog.SetDefault(log)

	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	authManager, err := auth.NewManager(cfg.Auth)
	if err != nil {
		log.Error("auth init failed", "err", err)
		os.Exit(1)
	}

	db, err := utils.OpenPostgres(rootCtx, "pgx", cfg.PostgresDSN(), utils.PostgresPoolConfig{})
	if err != nil {
		log.Error("postgres init failed", "err", err)
		os.Exit(1)
	}
	defer db.Close()

	rdb, err := utils.OpenRedis(rootCtx, utils.RedisConfig{Addr: cfg.RedisAddr()})
	if err != nil {
		log.Error("redis init failed", "err", err)
		os.Exit(1)
	}
	defer rdb.Close()

	clk := clock.System{}

	leadRepo := lead.NewPostgresRepo(db)
	apptRepo := appointment.NewPostgresRepo(db)
	branchRepo := branch.NewPostgresRepo(db)
	settingsRepo := settings.NewPostgresRepo(db)
	historyRepo := history.NewPostgresRepo(db)

	branchSvc := branch.NewService(branchRepo, clk)
	settingsSvc := settings.NewService(settingsRepo)
	historySvc := history.NewService(historyRepo, clk)
	apptSvc := appointment.NewService(apptRepo, branchSvc, clk)
	leadSvc := lead.NewService(leadRepo, apptSvc, settingsSvc, historySvc, clk)
	intakeSvc := intake.NewService(leadRepo, clk, log)

	limiter := claim.NewRedisSessionLimiter(rdb, cfg.Pipeline.MaxConcurrentSessions, cfg.Pipeline.AssignmentTTL)
	claims := claim.NewManager(leadRepo, apptRepo, limiter, clk, cfg.Pipeline.ClaimGrace)

	// Background maintenance loops.
	sweeper := claim.NewSweeper(leadRepo, cfg.Pipeline.AssignmentTTL, cfg.Pipeline.SweepInterval, log)
	go sweeper.Run(rootCtx)

	reaper := hibernate.NewReaper(leadRepo, cfg.Pipeline.HibernationWindow, cfg.Pipeline.ReapInterval, clk, log)
	go reaper.Run(rootCtx)

	// Gin router
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logger.Middleware(log))

	h := httpapi.Handlers{
		Auth:         authManager,
		Intake:       intakeSvc,
		Leads:        leadSvc,
		Claims:       claims,
		Appointments: apptSvc,
		Branches:     branchSvc,
		Settings:     settingsSvc,
		History:      historySvc,
	}
	registerRoutes(r, h, auth.RequireAccessToken(authManager))

	srv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info("api listening", "addr", srv.Addr, "env", cfg.App.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server failed", "err", err)
			stop()
		}
	}()

	<-rootCtx.Done()
	log.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown failed", "err", err)
	}

	_ = logger.ShutdownFlush(shutdownCtx, 2*time.Second)
}
