package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/coolrevive/corefulfill/config"
	"github.com/coolrevive/corefulfill/internal/broker/kafka"
	"github.com/coolrevive/corefulfill/internal/integrations/podlookup"
	podfake "github.com/coolrevive/corefulfill/internal/integrations/podlookup/fake"
	"github.com/coolrevive/corefulfill/internal/integrations/podlookup/httplookup"
	"github.com/coolrevive/corefulfill/internal/services/ordering"
	"github.com/coolrevive/corefulfill/internal/storage/pgfulfill"
)

type fulfillAPIApp struct {
	ctx     context.Context
	cancel  context.CancelFunc
	opts    apiOpts
	deps    apiDeps
	closeDB func()
}

func mustBootstrapFulfillAPI() *fulfillAPIApp {
	cfgPath := os.Getenv("configPath")
	if cfgPath == "" {
		panic("configPath env var is required")
	}

	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		panic(fmt.Sprintf("ошибка парсинга конфига, %v", err))
	}

	httpAddr := cfg.Fulfill.HTTPAddr
	if httpAddr == "" {
		httpAddr = ":8080"
	}
	resolveTopic := cfg.Kafka.ResolveTopicName
	if resolveTopic == "" {
		resolveTopic = "core.resolve"
	}
	orderTopic := cfg.Kafka.OrderTopicName
	if orderTopic == "" {
		orderTopic = "core.order"
	}

	st := mustOpenPostgresWithRetry(cfg.Database.ConnString(), 60*time.Second)

	producer := kafka.NewProducer([]string{cfg.Kafka.Addr()})
	svc := ordering.New(producer, newPodLookup(cfg), resolveTopic, orderTopic)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	return &fulfillAPIApp{
		ctx:    ctx,
		cancel: cancel,
		opts:   apiOpts{httpAddr: httpAddr},
		deps: apiDeps{
			ordering:  svc,
			inventory: st,
			intake:    st,
		},
		closeDB: st.Close,
	}
}

func newPodLookup(cfg *config.Config) podlookup.Client {
	// Без карты endpoint'ов работаем на детерминированной заглушке — для демо.
	if len(cfg.Fulfill.PodEndpoints) > 0 {
		return httplookup.New(cfg.Fulfill.PodEndpoints)
	}
	return podfake.New()
}

func mustOpenPostgresWithRetry(connString string, wait time.Duration) *pgfulfill.Storage {
	deadline := time.Now().Add(wait)
	var lastErr error
	for time.Now().Before(deadline) {
		st, err := pgfulfill.New(connString)
		if err == nil {
			return st
		}
		lastErr = err
		time.Sleep(1 * time.Second)
	}
	panic(fmt.Sprintf("postgres is not ready after %s: %v", wait, lastErr))
}

func (a *fulfillAPIApp) Close() {
	if a.cancel != nil {
		a.cancel()
	}
	if a.closeDB != nil {
		a.closeDB()
	}
}

func (a *fulfillAPIApp) Run() error {
	return runFulfillAPI(a.ctx, a.opts, a.deps)
}
