package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Dosada05/football-league/brackets"
	"github.com/Dosada05/football-league/config"
	"github.com/Dosada05/football-league/db"
	"github.com/Dosada05/football-league/handlers"
	"github.com/Dosada05/football-league/repositories"
	api "github.com/Dosada05/football-league/routes"
	"github.com/Dosada05/football-league/services"
	"github.com/Dosada05/football-league/storage"
	"github.com/go-chi/chi/v5"
)

// @title Football League API
// @version 1.0
// @description Соревнования, расписание, таблицы и переходы команд между стадиями.
// @BasePath /api
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	// Настройка логгера
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	// Загрузка конфигурации
	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("configuration loaded", slog.Int("port", cfg.ServerPort))
	if cfg.JWTSecretKey == "" {
		logger.Warn("JWT_SECRET_KEY is empty, admin endpoints are not protected")
	}

	legPolicy, err := brackets.ParseLegPolicy(cfg.DefaultLegPolicy)
	if err != nil {
		logger.Error("invalid DEFAULT_LEG_POLICY", slog.Any("error", err))
		os.Exit(1)
	}

	// Подключение к базе данных
	dbConn, err := db.Connect(cfg.DatabaseURL, 5*time.Second)
	if err != nil {
		logger.Error("failed to connect to database", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := dbConn.Close(); err != nil {
			logger.Error("failed to close database connection", slog.Any("error", err))
		} else {
			logger.Info("database connection closed")
		}
	}()
	logger.Info("database connection established")

	// Архив итоговых таблиц (Cloudflare R2), опционально
	var archiver services.StandingsArchiver
	r2Cfg := storage.R2Config{
		AccountID:       cfg.R2AccountID,
		AccessKeyID:     cfg.R2AccessKeyID,
		SecretAccessKey: cfg.R2SecretAccessKey,
		BucketName:      cfg.R2BucketName,
		PublicBaseURL:   cfg.R2PublicBaseURL,
		Endpoint:        cfg.R2Endpoint,
	}
	if r2Cfg.Configured() {
		uploader, err := storage.NewR2Uploader(context.Background(), r2Cfg)
		if err != nil {
			logger.Error("failed to initialize R2 uploader", slog.Any("error", err))
			os.Exit(1)
		}
		archiver = storage.NewStandingsArchiver(uploader, logger)
		logger.Info("standings archive enabled", slog.String("bucket", cfg.R2BucketName))
	} else {
		logger.Info("standings archive disabled, R2 is not configured")
	}

	// Инициализация WebSocket Hub
	wsHub := brackets.NewHub(logger)
	go wsHub.Run()
	logger.Info("WebSocket Hub started")

	// Инициализация репозиториев
	tx := repositories.NewPostgresTransactor(dbConn, logger)
	teamRepo := repositories.NewPostgresTeamRepository(dbConn)
	competitionRepo := repositories.NewPostgresCompetitionRepository(dbConn)
	memberRepo := repositories.NewPostgresCompetitionTeamRepository(dbConn)
	groupRepo := repositories.NewPostgresGroupRepository(dbConn)
	roundRepo := repositories.NewPostgresKnockoutRoundRepository(dbConn)
	matchRepo := repositories.NewPostgresMatchRepository(dbConn)
	ruleRepo := repositories.NewPostgresAdvancementRuleRepository(dbConn)
	logger.Info("Repositories initialized")

	// Инициализация сервисов
	teamService := services.NewTeamService(teamRepo)
	competitionService := services.NewCompetitionService(tx, competitionRepo, memberRepo, teamRepo, matchRepo, logger)
	standingsService := services.NewStandingsService(competitionRepo, memberRepo, groupRepo, matchRepo, archiver, logger)
	fixtureService := services.NewFixtureService(services.FixtureServiceDeps{
		Tx:              tx,
		CompetitionRepo: competitionRepo,
		MemberRepo:      memberRepo,
		GroupRepo:       groupRepo,
		RoundRepo:       roundRepo,
		MatchRepo:       matchRepo,
		Standings:       standingsService,
		Publisher:       wsHub,
		Shuffler:        brackets.NewShuffler(cfg.ShuffleSeed),
		LegPolicy:       legPolicy,
		Logger:          logger,
	})
	matchService := services.NewMatchService(matchRepo, teamRepo, competitionRepo, standingsService, wsHub, logger)
	advancementService := services.NewAdvancementService(
		competitionRepo,
		memberRepo,
		ruleRepo,
		standingsService,
		competitionService,
		wsHub,
		logger,
	)
	logger.Info("Services initialized")

	// Запуск планировщика автоматического перевода команд
	scheduler, err := services.NewAdvancementScheduler(advancementService, cfg.AdvancementInterval, logger)
	if err != nil {
		logger.Error("failed to create advancement scheduler", slog.Any("error", err))
		os.Exit(1)
	}
	if err := scheduler.Start(); err != nil {
		logger.Error("failed to start advancement scheduler", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := scheduler.Shutdown(); err != nil {
			logger.Error("failed to stop advancement scheduler", slog.Any("error", err))
		}
	}()

	// Инициализация обработчиков HTTP
	competitionHandler := handlers.NewCompetitionHandler(competitionService, standingsService)
	fixtureHandler := handlers.NewFixtureHandler(fixtureService)
	standingsHandler := handlers.NewStandingsHandler(standingsService)
	advancementHandler := handlers.NewAdvancementHandler(advancementService)
	matchHandler := handlers.NewMatchHandler(matchService)
	teamHandler := handlers.NewTeamHandler(teamService)
	webSocketHandler := handlers.NewWebSocketHandler(wsHub, competitionService, cfg.CORSAllowedOrigins, logger)
	logger.Info("HTTP handlers initialized")

	// Настройка маршрутизатора
	router := chi.NewRouter()
	api.SetupRoutes(
		router,
		api.Options{
			JWTSecret:      cfg.JWTSecretKey,
			AllowedOrigins: cfg.CORSAllowedOrigins,
			RateLimitRPS:   cfg.RateLimitRPS,
			RateLimitBurst: cfg.RateLimitBurst,
		},
		competitionHandler,
		fixtureHandler,
		standingsHandler,
		advancementHandler,
		matchHandler,
		teamHandler,
		webSocketHandler,
	)
	logger.Info("Routes configured")

	// Настройка и запуск HTTP-сервера
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 35 * time.Second,
		IdleTimeout:  120 * time.Second,
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("starting server", slog.String("address", server.Addr))
		serverErrors <- server.ListenAndServe()
	}()

	// Ожидание сигнала завершения
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", slog.Any("error", err))
			return
		}
		logger.Info("server stopped gracefully")
	case sig := <-quit:
		logger.Info("shutdown signal received", slog.String("signal", sig.String()))
		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancelShutdown()

		logger.Info("shutting down server", slog.Duration("timeout", 15*time.Second))
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("graceful shutdown failed", slog.Any("error", err))
			if closeErr := server.Close(); closeErr != nil {
				logger.Error("failed to force close server", slog.Any("error", closeErr))
			}
			return
		}
		logger.Info("server shutdown complete")
	}
	logger.Info("application exited")
}
