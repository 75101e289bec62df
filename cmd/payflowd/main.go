package main

import (
	"context"
	"encoding/hex"
	"fmt"
	nethttp "net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/adrg/xdg"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/labstack/echo/v4"

	"github.com/embercash/payflow/config"
	"github.com/embercash/payflow/db"
	"github.com/embercash/payflow/db/migrations"
	"github.com/embercash/payflow/engine"
	"github.com/embercash/payflow/events"
	"github.com/embercash/payflow/http"
	"github.com/embercash/payflow/logger"
	"github.com/embercash/payflow/walletclient"
	"github.com/embercash/payflow/walletclient/lnd"
)

func main() {
	// ignore errors, the env file is optional
	godotenv.Load(".env")

	appConfig := &config.AppConfig{}
	if err := envconfig.Process("", appConfig); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to process config: %v\n", err)
		os.Exit(1)
	}

	logger.Init(appConfig.LogLevel)

	if appConfig.Workdir == "" {
		appConfig.Workdir = filepath.Join(xdg.DataHome, "payflow")
	}
	if err := os.MkdirAll(appConfig.Workdir, os.ModePerm); err != nil {
		logger.Logger.Fatal().Err(err).Msg("Failed to create workdir")
	}

	if appConfig.LogToFile {
		if err := logger.AddFileLogger(appConfig.Workdir); err != nil {
			logger.Logger.Fatal().Err(err).Msg("Failed to create file logger")
		}
	}

	logger.Logger.Info().Msg("Payflow starting in HTTP mode")

	osSignalChannel := make(chan os.Signal, 1)
	signal.Notify(osSignalChannel, os.Interrupt, syscall.SIGTERM, syscall.SIGPIPE)

	ctx, cancel := context.WithCancel(context.Background())

	go func() {
		for {
			s := <-osSignalChannel
			logger.Logger.Info().Interface("signal", s).Msg("Received OS signal")

			if s == syscall.SIGPIPE {
				continue
			}

			cancel()
			break
		}
	}()

	databaseUri := appConfig.DatabaseUri
	if databaseUri == "payflow.db" {
		databaseUri = filepath.Join(appConfig.Workdir, databaseUri)
	}

	gormDB, err := db.NewDB(databaseUri, appConfig.LogDBQueries)
	if err != nil {
		logger.Logger.Fatal().Err(err).Msg("Failed to open database")
	}

	if err := migrations.Migrate(gormDB); err != nil {
		logger.Logger.Fatal().Err(err).Msg("Failed to migrate database")
	}

	cfg, err := config.NewConfig(appConfig, gormDB)
	if err != nil {
		logger.Logger.Fatal().Err(err).Msg("Failed to initialize config")
	}

	eventPublisher := events.NewEventPublisher()

	eng := engine.NewEngine(gormDB, cfg, eventPublisher, engine.NewLogPresenter(false))

	if appConfig.LNBackendType == config.LNDBackendType && appConfig.LNDAddress != "" {
		client, err := newLNDClient(ctx, appConfig, eventPublisher)
		if err != nil {
			logger.Logger.Fatal().Err(err).Msg("Failed to connect wallet backend")
		}
		if err := eng.SetActiveWallet(ctx, client); err != nil {
			logger.Logger.Fatal().Err(err).Msg("Failed to activate wallet")
		}
	} else {
		logger.Logger.Warn().Msg("No wallet backend configured, payment URIs will be deferred")
	}

	e := echo.New()
	httpSvc := http.NewHttpService(gormDB, cfg, eng, eventPublisher)
	httpSvc.RegisterSharedRoutes(e)

	go func() {
		if err := e.Start(fmt.Sprintf(":%v", appConfig.Port)); err != nil && err != nethttp.ErrServerClosed {
			logger.Logger.Error().Err(err).Msg("echo server failed to start")
			cancel()
		}
	}()

	<-ctx.Done()
	logger.Logger.Info().Msg("Shutting down echo server...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Logger.Error().Err(err).Msg("Failed to shutdown echo server")
	}

	if client, _ := eng.ActiveWallet(); client != nil {
		if err := client.Shutdown(); err != nil {
			logger.Logger.Error().Err(err).Msg("Failed to shutdown wallet client")
		}
	}
	if err := db.Stop(gormDB); err != nil {
		logger.Logger.Error().Err(err).Msg("Failed to close database")
	}
	logger.Logger.Info().Msg("Payflow exited")
}

func newLNDClient(ctx context.Context, appConfig *config.AppConfig, eventPublisher events.EventPublisher) (walletclient.WalletClient, error) {
	certHex := ""
	if appConfig.LNDCertFile != "" {
		certBytes, err := os.ReadFile(appConfig.LNDCertFile)
		if err != nil {
			return nil, err
		}
		certHex = hex.EncodeToString(certBytes)
	}

	macaroonBytes, err := os.ReadFile(appConfig.LNDMacaroonFile)
	if err != nil {
		return nil, err
	}

	return lnd.NewLNDService(ctx, eventPublisher, appConfig.LNDAddress, certHex, hex.EncodeToString(macaroonBytes))
}
