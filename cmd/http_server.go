package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/openlearn/learning-management/internal"
	"github.com/openlearn/learning-management/internal/assessment"
	assessmentPostgres "github.com/openlearn/learning-management/internal/assessment/postgres"
	auditPostgres "github.com/openlearn/learning-management/internal/audit/postgres"
	"github.com/openlearn/learning-management/internal/auth"
	authPostgres "github.com/openlearn/learning-management/internal/auth/postgres"
	"github.com/openlearn/learning-management/internal/core/events"
	"github.com/openlearn/learning-management/internal/course"
	coursePostgres "github.com/openlearn/learning-management/internal/course/postgres"
	"github.com/openlearn/learning-management/internal/group"
	groupPostgres "github.com/openlearn/learning-management/internal/group/postgres"
	"github.com/openlearn/learning-management/internal/notification"
	notificationPostgres "github.com/openlearn/learning-management/internal/notification/postgres"
	"github.com/openlearn/learning-management/internal/transport/rest"
	"github.com/openlearn/learning-management/internal/user"
	userPostgres "github.com/openlearn/learning-management/internal/user/postgres"
	"github.com/openlearn/learning-management/pkg/logger"
)

var httpServerCmd = &cobra.Command{
	Use:   "server",
	Short: "Start HTTP server",
	Long:  `Start the HTTP server to handle API requests`,
	Run: func(cmd *cobra.Command, args []string) {
		startHTTPServer()
	},
}

type Dependencies struct {
	Config   *internal.Config
	DB       *sqlx.DB
	Router   *chi.Mux
	Handlers rest.Handlers
	Logger   *slog.Logger
}

func startHTTPServer() {
	deps, err := initializeDependencies()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize dependencies: %v\n", err)
		os.Exit(1)
	}

	rest.RegisterAllRoutes(deps.Router, deps.DB.DB, deps.Handlers, deps.Logger)

	addr := fmt.Sprintf(":%d", deps.Config.Server.Port)
	deps.Logger.Info("starting HTTP server", "address", addr)

	server := &http.Server{
		Addr:              addr,
		Handler:           deps.Router,
		ReadHeaderTimeout: deps.Config.Server.ReadHeaderTimeout,
		ReadTimeout:       deps.Config.Server.ReadTimeout,
		WriteTimeout:      deps.Config.Server.WriteTimeout,
		IdleTimeout:       deps.Config.Server.IdleTimeout,
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	serverErrChan := make(chan error, 1)
	go func() {
		serverErrChan <- server.ListenAndServe()
	}()

	select {
	case sig := <-sigChan:
		deps.Logger.Info("received signal, shutting down", "signal", sig)
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			deps.Logger.Error("server shutdown error", "error", err)
		}
		if err := deps.DB.Close(); err != nil {
			deps.Logger.Error("database close error", "error", err)
		}
	case err := <-serverErrChan:
		if err != nil && err != http.ErrServerClosed {
			deps.Logger.Error("server failed to start", "error", err)
			os.Exit(1)
		}
	}

	deps.Logger.Info("server stopped")
}

func initializeDependencies() (*Dependencies, error) {
	cfg, err := loadConfig(".")
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger.Init(cfg.Observability.Logging.Level, cfg.Observability.Logging.Format)
	log := logger.LoggerWrapper()

	db, err := initDB(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	gormDB, err := initGorm(db)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize orm: %w", err)
	}

	bus := events.NewEventBus(log)

	auditRepo := auditPostgres.NewAuditRepository(gormDB, log)

	authRepo := authPostgres.NewAuthRepository(gormDB, log)
	tokens := auth.NewJWTTokenGenerator(
		cfg.Security.AccessTokenSecret,
		cfg.Security.RefreshTokenSecret,
		cfg.Security.AccessTokenDuration,
		cfg.Security.RefreshTokenDuration,
	)
	authService := auth.NewService(authRepo, tokens, cfg.Security.BCryptCost, log)
	gate := auth.NewGate(authRepo, log)

	userRepo := userPostgres.NewUserRepository(gormDB, auditRepo, log)
	userService := user.NewService(userRepo, authService, bus, cfg.Bootstrap.DefaultUserPassword, log)

	groupRepo := groupPostgres.NewGroupRepository(gormDB, auditRepo, log)
	groupService := group.NewService(groupRepo, log)

	assessmentRepo := assessmentPostgres.NewAssessmentRepository(gormDB, auditRepo, log)
	assessmentService := assessment.NewService(assessmentRepo, bus, log)

	courseRepo := coursePostgres.NewCourseRepository(gormDB, auditRepo, log)
	courseService := course.NewService(courseRepo, bus, assessmentService, log)

	notificationRepo := notificationPostgres.NewNotificationRepository(gormDB, log)
	notificationService := notification.NewService(notificationRepo, log)
	notificationService.Register(bus)

	handlers := rest.Handlers{
		Auth:         auth.NewHandler(authService, log),
		Gate:         gate,
		User:         user.NewHandler(userService, log),
		Group:        group.NewHandler(groupService, log),
		Course:       course.NewHandler(courseService, log),
		Assessment:   assessment.NewHandler(assessmentService, log),
		Notification: notification.NewHandler(notificationService, log),
	}

	return &Dependencies{
		Config:   cfg,
		Logger:   log,
		DB:       db,
		Router:   chi.NewRouter(),
		Handlers: handlers,
	}, nil
}

func initDB(cfg internal.DatabaseConfig) (*sqlx.DB, error) {
	const driver = "pgx"

	dbConn, err := sqlx.Connect(driver, cfg.Source)
	if err != nil {
		return nil, fmt.Errorf("failed to open db connection: %w", err)
	}

	dbConn.SetMaxIdleConns(cfg.MaxIdleConns)
	dbConn.SetMaxOpenConns(cfg.MaxOpenConns)
	dbConn.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	dbConn.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	if err := dbConn.Ping(); err != nil {
		_ = dbConn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return dbConn, nil
}

// initGorm layers the ORM over the existing pool. TranslateError turns driver
// duplicate-key errors into gorm.ErrDuplicatedKey, which the repositories
// depend on.
func initGorm(db *sqlx.DB) (*gorm.DB, error) {
	return gorm.Open(gormpostgres.New(gormpostgres.Config{Conn: db.DB}), &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
	})
}
