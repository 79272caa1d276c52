package cmd

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/openlearn/learning-management/internal/core/events"
	"github.com/openlearn/learning-management/internal/notification"
	notificationPostgres "github.com/openlearn/learning-management/internal/notification/postgres"
	"github.com/openlearn/learning-management/pkg/logger"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Start the event subscriber loop",
	Long:  `Start a standalone event bus with the notification subscribers attached, for debugging fan-out without the HTTP server.`,
	Run: func(cmd *cobra.Command, args []string) {
		startEventWorker()
	},
}

func startEventWorker() {
	cfg, err := loadConfig(".")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Init(cfg.Observability.Logging.Level, cfg.Observability.Logging.Format)
	lg := logger.LoggerWrapper()

	sqlxDB, err := initDB(cfg.Database)
	if err != nil {
		log.Fatalf("failed to init db: %v", err)
	}
	db, err := initGorm(sqlxDB)
	if err != nil {
		log.Fatalf("failed to init orm: %v", err)
	}

	bus := events.NewEventBus(lg)
	notificationRepo := notificationPostgres.NewNotificationRepository(db, lg)
	notification.NewService(notificationRepo, lg).Register(bus)

	lg.Info("event worker is running. Press Ctrl+C to stop.")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigChan
	lg.Info("received signal, shutting down event worker", "signal", sig)
	if err := sqlxDB.Close(); err != nil {
		lg.Error("database close error", "error", err)
	}
}
