package main

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/coolrevive/corefulfill/config"
	"github.com/coolrevive/corefulfill/internal/broker/kafka"
	"github.com/coolrevive/corefulfill/internal/cache"
	"github.com/coolrevive/corefulfill/internal/integrations/mailgate"
	mailfake "github.com/coolrevive/corefulfill/internal/integrations/mailgate/fake"
	"github.com/coolrevive/corefulfill/internal/integrations/mailgate/httpgate"
	"github.com/coolrevive/corefulfill/internal/integrations/podlookup"
	podfake "github.com/coolrevive/corefulfill/internal/integrations/podlookup/fake"
	"github.com/coolrevive/corefulfill/internal/integrations/podlookup/httplookup"
	"github.com/coolrevive/corefulfill/internal/models"
	"github.com/coolrevive/corefulfill/internal/services/notifier"
	"github.com/coolrevive/corefulfill/internal/storage/pgfulfill"
)

type noopStorage struct{}

func (noopStorage) ListPickOrders(ctx context.Context, warehouseID, status string) ([]*models.PickOrder, error) {
	return nil, nil
}

func (noopStorage) UpdatePickStatus(ctx context.Context, po *models.PickOrder, status string) error {
	return nil
}

func (noopStorage) InsertMission(ctx context.Context, m *models.ConveyanceMission) error { return nil }

func (noopStorage) ListMissions(ctx context.Context, conveyanceUnit, status string) ([]*models.ConveyanceMission, error) {
	return nil, nil
}

func (noopStorage) UpdateMissionStatus(ctx context.Context, m *models.ConveyanceMission, status string) error {
	return nil
}

func (noopStorage) AppendInventoryEvent(ctx context.Context, ev *models.InventoryEvent) error {
	return nil
}

func (noopStorage) GetInventory(ctx context.Context, finishedProductID string) (*models.InventoryRecord, error) {
	return nil, pgfulfill.ErrNotFound
}

func (noopStorage) GetInventoryByCoreID(ctx context.Context, coreID string) (*models.InventoryRecord, error) {
	return nil, pgfulfill.ErrNotFound
}

func (noopStorage) InsertInventory(ctx context.Context, rec *models.InventoryRecord) error {
	return nil
}

func (noopStorage) UpdateInventory(ctx context.Context, rec *models.InventoryRecord, status string, statusDetail *string, statusAt time.Time, newVersion int64) error {
	return nil
}

func (noopStorage) GetCheckpoint(ctx context.Context, consumer string) (int64, error) { return 0, nil }

func (noopStorage) SaveCheckpoint(ctx context.Context, consumer string, seq int64) error { return nil }

func (noopStorage) ListInventoryEventsAfter(ctx context.Context, afterSeq int64, limit int) ([]*models.InventoryEvent, error) {
	return nil, nil
}

func (noopStorage) GetContact(ctx context.Context, messageType, podID string) (*models.ContactRecord, error) {
	return nil, pgfulfill.ErrNotFound
}

type noopProducer struct{}

func (noopProducer) Publish(ctx context.Context, topic string, key, value []byte) error { return nil }

type idleConsumer struct{}

func (idleConsumer) Consume(ctx context.Context, handler kafka.Handler) error {
	<-ctx.Done()
	return ctx.Err()
}

func (idleConsumer) Close() error { return nil }

func TestDefaultWorkerFactories_SelectPodLookup(t *testing.T) {
	f := defaultWorkerFactories()

	withEndpoints := &config.Config{}
	withEndpoints.Fulfill.PodEndpoints = map[string]string{"P1": "http://pod-p1.local"}
	c1 := f.newPodLookup(withEndpoints)
	_, ok := c1.(*httplookup.Client)
	require.True(t, ok)

	c2 := f.newPodLookup(&config.Config{})
	_, ok = c2.(*podfake.FakeClient)
	require.True(t, ok)
}

func TestDefaultWorkerFactories_SelectMailGate(t *testing.T) {
	f := defaultWorkerFactories()

	withURL := &config.Config{}
	withURL.Fulfill.MailerBaseURL = "http://mailer.local"
	withURL.Fulfill.MailerSender = "noreply@coolrevive.test"
	c1 := f.newMailGate(withURL)
	_, ok := c1.(*httpgate.Client)
	require.True(t, ok)

	c2 := f.newMailGate(&config.Config{})
	_, ok = c2.(*mailfake.FakeClient)
	require.True(t, ok)
}

func TestDefaultWorkerFactories_ProducerAndCache_NonNil(t *testing.T) {
	f := defaultWorkerFactories()
	cfg := &config.Config{
		Kafka: config.KafkaConfig{Host: "localhost", Port: 9092},
		Redis: config.RedisConfig{Host: "localhost", Port: 6379},
	}
	require.NotNil(t, f.newProducer(cfg))
	require.NotNil(t, f.newCache(cfg))
	require.NotNil(t, f.newRateLimiter(cfg))
}

func TestRunFulfillWorker_ContextCanceled(t *testing.T) {
	calledClose := false

	f := workerFactories{
		newStorage: func(cfg *config.Config) (workerStorage, func(), error) {
			return noopStorage{}, func() { calledClose = true }, nil
		},
		newProducer: func(cfg *config.Config) workerProducer { return noopProducer{} },
		newCache: func(cfg *config.Config) cache.BytesCache {
			return nil
		},
		newRateLimiter: func(cfg *config.Config) notifier.SendLimiter { return nil },
		newPodLookup:   func(cfg *config.Config) podlookup.Client { return podfake.New() },
		newMailGate:    func(cfg *config.Config) mailgate.Client { return mailfake.New() },
		newConsumer: func(cfg *config.Config, topic, group string) workerConsumer {
			return idleConsumer{}
		},
	}

	cfg := &config.Config{}
	cfg.Fulfill.WorkerHTTPAddr = "127.0.0.1:0"

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := RunFulfillWorker(ctx, cfg, f)
	require.ErrorIs(t, err, context.Canceled)
	require.True(t, calledClose)
}
