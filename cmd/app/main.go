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

	"cafe/cmd"
	httpapi "cafe/internal/adapters/in/http"
	"cafe/internal/adapters/out/postgres/migrations"
	"cafe/internal/pkg/logging"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := cmd.LoadEnvFile(".env"); err != nil {
		log.Fatalf("Error loading .env file: %v", err)
	}
	configs, err := cmd.LoadConfig()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}
	logger := logging.New(configs.LogLevel)

	gormDB := mustOpenDatabase(configs)

	app, err := cmd.NewCompositionRoot(configs, gormDB, logger)
	if err != nil {
		log.Fatalf("Failed to build application: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := app.Start(ctx); err != nil {
		log.Fatalf("Failed to start background work: %v", err)
	}

	if err := startWebServer(ctx, app, configs.HTTPPort, logger); err != nil {
		logger.Error("web server stopped", "error", err)
	}

	if err := app.Close(); err != nil {
		logger.Error("shutdown incomplete", "error", err)
	}
	logger.Info("bye")
}

func mustOpenDatabase(configs cmd.Config) *gorm.DB {
	gormDB, err := gorm.Open(postgres.Open(configs.DSN()), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	sqlDB, err := gormDB.DB()
	if err != nil {
		log.Fatalf("Failed to get database handle: %v", err)
	}
	if err := migrations.Up(sqlDB); err != nil {
		log.Fatalf("Failed to apply migrations: %v", err)
	}
	return gormDB
}

func startWebServer(ctx context.Context, app *cmd.CompositionRoot, port string, logger *slog.Logger) error {
	doc, err := httpapi.LoadOpenAPI()
	if err != nil {
		return err
	}
	validator, err := httpapi.RequestValidator(doc)
	if err != nil {
		return err
	}
	if err := httpapi.RegisterSwaggerDoc(doc); err != nil {
		return err
	}

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())
	e.Use(httpapi.RequestLogger(logger))
	app.HTTPServer().Register(e, validator)

	errCh := make(chan error, 1)
	go func() {
		if err := e.Start(fmt.Sprintf("0.0.0.0:%s", port)); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}
