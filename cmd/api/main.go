package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/oxyplant/cylinder-ledger/internal/config"
	"github.com/oxyplant/cylinder-ledger/internal/handlers"
	"github.com/oxyplant/cylinder-ledger/internal/queue"
	"github.com/oxyplant/cylinder-ledger/internal/repository"
	"github.com/oxyplant/cylinder-ledger/internal/services"
	xhttp "github.com/oxyplant/cylinder-ledger/pkg/http"
	"github.com/oxyplant/cylinder-ledger/pkg/logger"
	"github.com/oxyplant/cylinder-ledger/pkg/pg"
	"github.com/oxyplant/cylinder-ledger/pkg/prom"
	"github.com/oxyplant/cylinder-ledger/pkg/redis"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {

	err := config.Load(argContainsEnvPath())
	if err != nil {
		logger.Error("failed to load config", "error", err)
		return
	}

	// transport (tcp for now)
	s := xhttp.NewServer(xhttp.DefaultServerOption)
	s.Server.ReadBufferSize = 1024 * 16
	s.Server.WriteBufferSize = 1024 * 16
	s.Use(xhttp.CompressMiddleware(6))
	s.Use(xhttp.TimeoutMiddleware(time.Second * 5))
	s.Use(xhttp.RequestLoggerMiddleware)
	s.Use(xhttp.RecoverMiddleware)
	s.Router = xhttp.CreateDefaultRouter()

	readConf := pg.Config{
		User:     config.Get().PostgresReadUser,
		Host:     config.Get().PostgresReadHost,
		Port:     config.Get().PostgresReadPort,
		Password: config.Get().PostgresReadPassword,
		Database: config.Get().PostgresReadDatabase,
	}
	writeConf := pg.Config{
		User:     config.Get().PostgresWriteUser,
		Host:     config.Get().PostgresWriteHost,
		Port:     config.Get().PostgresWritePort,
		Password: config.Get().PostgresWritePassword,
		Database: config.Get().PostgresWriteDatabase,
	}

	pgDebug := false
	if config.Get().AppEnv == "dev" {
		pgDebug = true
	}
	db, err := pg.CreateReadWrite(readConf, writeConf, pgDebug)
	if err != nil {
		logger.Error("failed connecting to pg", "error", err)
		return
	}

	redisAdap, err := redis.NewRedisAdapter("default", config.Get().RedisUniversalKeyPrefix, &redis.Options{
		Addrs:      []string{config.Get().RedisAddr},
		ClientName: "default",
		DB:         config.Get().RedisDatabase,
		Username:   config.Get().RedisUsername,
		Password:   config.Get().RedisPassword,
	})
	if err != nil {
		logger.Error("failed connecting to redis", "error", err)
		return
	}

	alertQueue, err := queue.New(redisAdap, queue.Config{
		Name:              config.Get().QueueName,
		ConsumerGroup:     config.Get().QueueConsumerGroup,
		ConsumerName:      config.Get().QueueConsumerName,
		MaxRetries:        config.Get().QueueMaxRetries,
		VisibilityTimeout: config.Get().QueueVisibilityTimeout,
		PollInterval:      config.Get().QueuePollInterval,
		BatchSize:         config.Get().QueueBatchSize,
		MaxLen:            config.Get().QueueMaxLen,
		EnableDLQ:         config.Get().QueueEnableDLQ,
	})
	if err != nil {
		logger.Error("failed creating alert queue", "error", err)
		return
	}

	var hostname string
	hostname, err = os.Hostname()
	if err != nil {
		hostname = "unknown"
	}
	if err := prom.Create(hostname, config.Get().AppEnv, config.Get().PromNamespace); err != nil {
		logger.Error("failed to create prometheus metrics", "error", err)
	}
	if config.Get().AppDebugMetricsAddr != "" {
		go prom.ListenAndServer(config.Get().AppDebugMetricsAddr, config.Get().AppDebugMetricsURI)
	}

	// repositories
	bottleRepo := repository.NewBottleRepository(db)
	tankRepo := repository.NewTankRepository(db)
	ledgerRepo := repository.NewLedgerRepository(db)
	transactionRepo := repository.NewTransactionRepository(db)
	paymentRepo := repository.NewPaymentRepository(db)
	customerRepo := repository.NewCustomerRepository(db)
	supplierRepo := repository.NewSupplierRepository(db)
	planRepo := repository.NewFillPlanRepository(db)

	// seed the singleton tank row on first boot
	if _, err := tankRepo.Init(context.Background(),
		config.Get().TankInitCapacityG,
		0,
		config.Get().TankInitLowThresholdG,
		config.Get().TankInitCriticalThresholdG,
	); err != nil {
		logger.Error("failed to init tank row", "error", err)
		return
	}

	// services
	alertService := services.NewAlertService(alertQueue)
	fillService := services.NewFillService(db, bottleRepo, tankRepo, ledgerRepo, planRepo, alertService)
	bottleService := services.NewBottleService(db, bottleRepo, ledgerRepo)
	transactionService := services.NewTransactionService(db, bottleRepo, tankRepo, ledgerRepo, transactionRepo, paymentRepo, customerRepo, supplierRepo, alertService)
	ledgerService := services.NewLedgerService(bottleRepo, ledgerRepo)
	statementService := services.NewStatementService(customerRepo, transactionRepo, paymentRepo)
	accountService := services.NewAccountService(customerRepo, supplierRepo)
	tankService := services.NewTankService(tankRepo)
	healthService := services.NewHealthService()

	// v1 handlers
	bottleHandler := handlers.NewBottleHandler(bottleService, fillService, ledgerService)
	transactionHandler := handlers.NewTransactionHandler(transactionService, ledgerService, statementService)
	tankHandler := handlers.NewTankHandler(tankService, transactionService)
	accountHandler := handlers.NewAccountHandler(accountService)
	healthHandler := handlers.NewHealthHandler(healthService)

	g := s.Router.Group("/api/v1")
	handlers.RegisterBottleRoutes(g, bottleHandler)
	handlers.RegisterTransactionRoutes(g, transactionHandler)
	handlers.RegisterTankRoutes(g, tankHandler)
	handlers.RegisterAccountRoutes(g, accountHandler)
	handlers.RegisterHealthRoutes(g, healthHandler)

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	go func() {
		var err = s.ListenAndServe(config.Get().HttpListenAddr)
		if err != nil {
			logger.Error("error in running http-server", "error", err)
		}
	}()

	select {
	case <-c:
		s.Shutdown()
	}
}

func argContainsEnvPath() string {
	for _, v := range os.Args {
		if strings.Contains(v, "--env=") {
			s := strings.Split(v, "=")
			if _, err := os.Open(s[1]); err != nil {
				logger.Error("failed to open the passed env file, got error" + err.Error())
				return ""
			}
			return s[1]
		}
	}
	return ""
}
