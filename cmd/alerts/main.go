package main

import (
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/oxyplant/cylinder-ledger/internal/alerts"
	"github.com/oxyplant/cylinder-ledger/internal/config"
	gateway "github.com/oxyplant/cylinder-ledger/internal/gateways"
	"github.com/oxyplant/cylinder-ledger/pkg/logger"
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

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	notifier, err := gateway.NewClient(gateway.ClientConfig{
		URL:        config.Get().NotifierURL,
		Timeout:    config.Get().NotifierTimeout,
		MaxRetries: config.Get().NotifierMaxRetries,
	})
	if err != nil {
		logger.Error("failed to create notifier client", "error", err)
		return
	}

	idempotency := alerts.NewIdempotencyService(redisAdap, alerts.DefaultIdempotencyConfig())

	dispatcher, err := alerts.NewDispatcher(redisAdap)
	if err != nil {
		logger.Error("failed to create dispatcher", "error", err)
		return
	}
	dispatcher.RegisterProcessor(alerts.NewTankAlertProcessor(notifier, idempotency))

	var hostname string
	hostname, err = os.Hostname()
	if err != nil {
		hostname = "unknown"
	}
	if err = prom.Create(hostname, config.Get().AppEnv, config.Get().PromNamespace); err != nil {
		logger.Error("failed to create prometheus metrics", "error", err)
		return
	}

	go func() {
		prom.ListenAndServer(":9100", "/metrics")
	}()

	go func() {
		if err := dispatcher.Start(2); err != nil {
			logger.Error("failed to start dispatcher", "error", err)
		}
	}()

	select {
	case <-c:
		dispatcher.Stop()
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
