package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"bookstore/internal/config"
	"bookstore/internal/domain/model"
	"bookstore/internal/infra/db"
	"bookstore/internal/infra/memory"
	"bookstore/internal/infra/payment"
	infraRepo "bookstore/internal/infra/repository"
	"bookstore/internal/repository"
	"bookstore/internal/server"
	"bookstore/internal/usecase"

	"github.com/joho/godotenv"
	"github.com/labstack/gommon/log"
)

func main() {
	//.env は任意（無ければ環境変数だけで動く）
	_ = godotenv.Load()

	logger := log.New("bookstore")
	logger.SetHeader(`{"time":"${time_rfc3339}","level":"${level}","prefix":"${prefix}"}`)

	cfg, err := config.Load()
	if err != nil {
		logger.Fatalj(log.JSON{"event": "config_error", "error": err.Error()})
	}
	logger.SetLevel(parseLevel(cfg.LogLevel))

	var (
		tx    repository.TransactionManager
		repos repository.Repos
	)
	switch cfg.Storage {
	case config.StorageMemory:
		store := memory.NewStore()
		store.SeedDemo()
		tx, repos = store, store.Repos()
		logger.Warnj(log.JSON{"event": "storage_memory", "message": "data is not persisted"})
	default:
		gormDB, err := db.Connect(cfg.Database)
		if err != nil {
			logger.Fatalj(log.JSON{"event": "db_connect_failed", "error": err.Error()})
		}
		if cfg.Database.AutoMigrate {
			if err := db.AutoMigrate(gormDB); err != nil {
				logger.Fatalj(log.JSON{"event": "db_migrate_failed", "error": err.Error()})
			}
		}
		tx, repos = infraRepo.NewTxManagerGorm(gormDB), infraRepo.NewRepos(gormDB)
	}

	gateways := map[model.PaymentMethod]usecase.PaymentGateway{
		model.PaymentMethodCOD: payment.CODGateway{},
	}
	//URL未設定なら vnpay の照会はしない（pendingのまま）
	if cfg.PaymentGatewayURL != "" {
		gateways[model.PaymentMethodVNPay] = payment.NewHTTPGateway(cfg.PaymentGatewayURL, cfg.PaymentGatewayTimeout)
	}

	e := server.New(server.Deps{
		Config:   cfg,
		Tx:       tx,
		Repos:    repos,
		Logger:   logger,
		Gateways: gateways,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	addr := cfg.Port
	if !strings.HasPrefix(addr, ":") {
		addr = ":" + addr
	}
	if err := server.Start(ctx, e, addr, cfg.ShutdownTimeout); err != nil {
		logger.Errorj(log.JSON{"event": "server_error", "error": err.Error()})
		os.Exit(1)
	}
}

func parseLevel(s string) log.Lvl {
	switch strings.ToUpper(s) {
	case "DEBUG":
		return log.DEBUG
	case "WARN":
		return log.WARN
	case "ERROR":
		return log.ERROR
	case "OFF":
		return log.OFF
	default:
		return log.INFO
	}
}
