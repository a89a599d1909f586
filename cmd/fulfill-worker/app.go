package main

import (
	"context"
	"log/slog"
	"time"

	"github.com/coolrevive/corefulfill/config"
	"github.com/coolrevive/corefulfill/internal/broker/kafka"
	"github.com/coolrevive/corefulfill/internal/cache"
	"github.com/coolrevive/corefulfill/internal/cache/rediscache"
	"github.com/coolrevive/corefulfill/internal/integrations/mailgate"
	mailfake "github.com/coolrevive/corefulfill/internal/integrations/mailgate/fake"
	"github.com/coolrevive/corefulfill/internal/integrations/mailgate/httpgate"
	"github.com/coolrevive/corefulfill/internal/integrations/podlookup"
	podfake "github.com/coolrevive/corefulfill/internal/integrations/podlookup/fake"
	"github.com/coolrevive/corefulfill/internal/integrations/podlookup/httplookup"
	"github.com/coolrevive/corefulfill/internal/jobs"
	"github.com/coolrevive/corefulfill/internal/services/conveyance"
	"github.com/coolrevive/corefulfill/internal/services/inventory"
	"github.com/coolrevive/corefulfill/internal/services/notifier"
	"github.com/coolrevive/corefulfill/internal/services/ordering"
	"github.com/coolrevive/corefulfill/internal/services/warehouse"
	"github.com/coolrevive/corefulfill/internal/storage/pgfulfill"
)

// workerStorage — всё, что воркеру нужно от хранилища; *pgfulfill.Storage
// закрывает весь набор.
type workerStorage interface {
	warehouse.Repository
	conveyance.Repository
	inventory.Repository
	inventory.FeedRepository
	notifier.Contacts
}

type workerProducer interface {
	Publish(ctx context.Context, topic string, key, value []byte) error
}

type workerConsumer interface {
	Consume(ctx context.Context, handler kafka.Handler) error
	Close() error
}

type workerFactories struct {
	newStorage     func(cfg *config.Config) (workerStorage, func(), error)
	newProducer    func(cfg *config.Config) workerProducer
	newCache       func(cfg *config.Config) cache.BytesCache
	newRateLimiter func(cfg *config.Config) notifier.SendLimiter
	newPodLookup   func(cfg *config.Config) podlookup.Client
	newMailGate    func(cfg *config.Config) mailgate.Client
	newConsumer    func(cfg *config.Config, topic, group string) workerConsumer
}

func defaultWorkerFactories() workerFactories {
	return workerFactories{
		newStorage: func(cfg *config.Config) (workerStorage, func(), error) {
			st, err := pgfulfill.New(cfg.Database.ConnString())
			if err != nil {
				return nil, nil, err
			}
			return st, st.Close, nil
		},
		newProducer: func(cfg *config.Config) workerProducer {
			return kafka.NewProducer([]string{cfg.Kafka.Addr()})
		},
		newCache: func(cfg *config.Config) cache.BytesCache {
			return rediscache.New(cfg.Redis.Addr())
		},
		newRateLimiter: func(cfg *config.Config) notifier.SendLimiter {
			return rediscache.NewRateLimiter(cfg.Redis.Addr())
		},
		newPodLookup: func(cfg *config.Config) podlookup.Client {
			// Без карты endpoint'ов работаем на детерминированной заглушке.
			if len(cfg.Fulfill.PodEndpoints) > 0 {
				return httplookup.New(cfg.Fulfill.PodEndpoints)
			}
			return podfake.New()
		},
		newMailGate: func(cfg *config.Config) mailgate.Client {
			if cfg.Fulfill.MailerBaseURL != "" {
				return httpgate.New(cfg.Fulfill.MailerBaseURL, cfg.Fulfill.MailerSender)
			}
			return mailfake.New()
		},
		newConsumer: func(cfg *config.Config, topic, group string) workerConsumer {
			brokers := []string{cfg.Kafka.Addr()}
			return kafka.NewConsumer(brokers, topic, group, kafka.NewProducer(brokers))
		},
	}
}

func RunFulfillWorker(ctx context.Context, cfg *config.Config, f workerFactories) error {
	resolveTopic := cfg.Kafka.ResolveTopicName
	if resolveTopic == "" {
		resolveTopic = "core.resolve"
	}
	orderTopic := cfg.Kafka.OrderTopicName
	if orderTopic == "" {
		orderTopic = "core.order"
	}
	transitTopic := cfg.Kafka.TransitTopicName
	if transitTopic == "" {
		transitTopic = "core.transit"
	}
	group := cfg.Fulfill.KafkaConsumerGroup
	if group == "" {
		group = "fulfill-worker"
	}
	warehouseID := cfg.Fulfill.WarehouseID
	if warehouseID == "" {
		warehouseID = "W1"
	}
	conveyanceUnit := cfg.Fulfill.ConveyanceUnit
	if conveyanceUnit == "" {
		conveyanceUnit = "Wally"
	}
	schedules := jobs.Schedules{
		PickStart:       defaultSchedule(cfg.Fulfill.PickStartSchedule),
		PickComplete:    defaultSchedule(cfg.Fulfill.PickCompleteSchedule),
		MissionStart:    defaultSchedule(cfg.Fulfill.MissionStartSchedule),
		MissionComplete: defaultSchedule(cfg.Fulfill.MissionCompleteSchedule),
	}
	feedInterval := time.Duration(cfg.Fulfill.FeedPollIntervalSeconds) * time.Second
	feedBatch := cfg.Fulfill.FeedBatchSize
	contactTTL := time.Duration(cfg.Fulfill.ContactCacheTTLSeconds) * time.Second
	if contactTTL <= 0 {
		contactTTL = 10 * time.Minute
	}

	st, closeFn, err := f.newStorage(cfg)
	if err != nil {
		return err
	}
	if closeFn != nil {
		defer closeFn()
	}

	producer := f.newProducer(cfg)

	orderingSvc := ordering.New(producer, f.newPodLookup(cfg), resolveTopic, orderTopic)
	warehouseSvc := warehouse.New(st, producer, transitTopic, conveyanceUnit)
	conveyanceSvc := conveyance.New(st, producer, transitTopic)
	inventorySvc := inventory.New(st)
	feed := inventory.NewFeed(st, inventorySvc, "inventory-projector").
		WithSettings(feedInterval, feedBatch)

	notifierSvc := notifier.New(st, f.newCache(cfg), f.newMailGate(cfg), contactTTL)
	if perMin := int64(cfg.Fulfill.MailerRateLimitPerMinute); perMin > 0 {
		if rl := f.newRateLimiter(cfg); rl != nil {
			notifierSvc = notifierSvc.WithRateLimit(rl, perMin, time.Minute)
		}
	}

	jm := jobs.NewManager(warehouseSvc, conveyanceSvc, warehouseID, conveyanceUnit, schedules)
	if err := jm.StartAll(); err != nil {
		return err
	}
	defer jm.StopAll()

	consume := func(topic, group, name string, handle func(ctx context.Context, value []byte) (kafka.Outcome, error)) {
		c := f.newConsumer(cfg, topic, group)
		go func() {
			defer func() { _ = c.Close() }()
			runConsumer(ctx, name, c, handle)
		}()
	}

	consume(resolveTopic, group+"-resolver", "resolve requests", orderingSvc.HandleResolveRequest)
	consume(orderTopic, group+"-projector", "order seed", inventorySvc.HandleOrderMessage)
	consume(transitTopic, group+"-projector", "transit fold", inventorySvc.HandleTransitMessage)
	consume(transitTopic, group+"-notifier", "transit notices", notifierSvc.HandleTransitMessage)

	go func() { _ = feed.Run(ctx) }()

	go func() {
		err := runWorkerHTTPServer(ctx, workerHTTPOpts{
			httpAddr: cfg.Fulfill.WorkerHTTPAddr,
			feed:     feed,
			cfg:      cfg,
		})
		if err != nil && ctx.Err() == nil {
			slog.Error("worker http server stopped", "error", err.Error())
		}
	}()

	<-ctx.Done()
	return ctx.Err()
}

// runConsumer перезапускает Consume после транзиентных сбоев, пока жив контекст.
func runConsumer(ctx context.Context, name string, c workerConsumer, handle func(ctx context.Context, value []byte) (kafka.Outcome, error)) {
	slog.Info("kafka consumer started", "name", name)
	for {
		err := c.Consume(ctx, func(_ []byte, value []byte) (kafka.Outcome, error) {
			return handle(ctx, value)
		})
		if ctx.Err() != nil {
			return
		}
		slog.Error("consumer interrupted, restarting", "name", name, "error", err.Error())
		select {
		case <-ctx.Done():
			return
		case <-time.After(time.Second):
		}
	}
}

func defaultSchedule(s string) string {
	if s == "" {
		// Каждые 10 секунд.
		return "*/10 * * * * *"
	}
	return s
}
