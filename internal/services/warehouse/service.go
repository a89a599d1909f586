package warehouse

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/coolrevive/corefulfill/internal/broker/messages"
	"github.com/coolrevive/corefulfill/internal/models"
	"github.com/coolrevive/corefulfill/internal/storage/pgfulfill"
)

type Repository interface {
	ListPickOrders(ctx context.Context, warehouseID, status string) ([]*models.PickOrder, error)
	UpdatePickStatus(ctx context.Context, po *models.PickOrder, status string) error
	InsertMission(ctx context.Context, m *models.ConveyanceMission) error
}

type Producer interface {
	Publish(ctx context.Context, topic string, key, value []byte) error
}

// Service — машина состояний заказов на подбор. Оба sweep'а идемпотентны:
// выборка по статусу плюс conditional update гарантируют, что повторный запуск
// без новых pending-заказов ничего не переводит повторно.
type Service struct {
	repo     Repository
	producer Producer

	transitTopic   string
	conveyanceUnit string
}

func New(repo Repository, producer Producer, transitTopic, conveyanceUnit string) *Service {
	return &Service{
		repo:           repo,
		producer:       producer,
		transitTopic:   transitTopic,
		conveyanceUnit: conveyanceUnit,
	}
}

// StartPendingPicks переводит pending-заказы склада в started и шлёт
// транзитное уведомление по каждому. Возвращает число переведённых заказов.
func (s *Service) StartPendingPicks(ctx context.Context, warehouseID string) (int, error) {
	pending, err := s.repo.ListPickOrders(ctx, warehouseID, models.StatusPending)
	if err != nil {
		return 0, errors.Wrap(err, "list pending picks")
	}

	started := 0
	for _, po := range pending {
		if err := ctx.Err(); err != nil {
			return started, err
		}
		if err := s.repo.UpdatePickStatus(ctx, po, models.StatusStarted); err != nil {
			if errors.Is(err, pgfulfill.ErrConcurrencyConflict) {
				// Параллельный sweep успел первым — этот заказ больше не наш.
				slog.Warn("pick start lost race", "order_id", po.OrderID)
				continue
			}
			slog.Error("pick start failed", "order_id", po.OrderID, "error", err.Error())
			continue
		}
		started++
		if err := s.notifyCoreInTransit(ctx, po, models.PhasePickOrderStarted); err != nil {
			// Переход уже зафиксирован; уведомление не откатывает его.
			slog.Error("pick start notice failed", "order_id", po.OrderID, "error", err.Error())
		}
	}
	return started, nil
}

// CompletePendingPicks переводит started-заказы в completed, шлёт уведомление
// и создаёт миссию доставки. Сбой уведомления обрывает остаток работы по
// этому заказу (миссия не создаётся до следующего цикла разбора).
func (s *Service) CompletePendingPicks(ctx context.Context, warehouseID string) (int, error) {
	startedOrders, err := s.repo.ListPickOrders(ctx, warehouseID, models.StatusStarted)
	if err != nil {
		return 0, errors.Wrap(err, "list started picks")
	}

	completed := 0
	for _, po := range startedOrders {
		if err := ctx.Err(); err != nil {
			return completed, err
		}
		if err := s.repo.UpdatePickStatus(ctx, po, models.StatusCompleted); err != nil {
			if errors.Is(err, pgfulfill.ErrConcurrencyConflict) {
				slog.Warn("pick complete lost race", "order_id", po.OrderID)
				continue
			}
			slog.Error("pick complete failed", "order_id", po.OrderID, "error", err.Error())
			continue
		}
		completed++
		if err := s.notifyCoreInTransit(ctx, po, models.PhasePickOrderCompleted); err != nil {
			slog.Error("pick complete notice failed", "order_id", po.OrderID, "error", err.Error())
			continue
		}
		if err := s.deliverToConveyance(ctx, po); err != nil {
			slog.Error("mission create failed", "order_id", po.OrderID, "error", err.Error())
		}
	}
	return completed, nil
}

func (s *Service) notifyCoreInTransit(ctx context.Context, po *models.PickOrder, phase string) error {
	// Наружу уходит только выделенный тип события, не строка хранилища.
	msg := messages.NewNextCoreInTransit(po.PodID, po.CoreID, phase, time.Now().UTC())
	b, err := json.Marshal(msg)
	if err != nil {
		return errors.Wrap(err, "marshal transit notice")
	}
	return s.producer.Publish(ctx, s.transitTopic, []byte(msg.PodID), b)
}

func (s *Service) deliverToConveyance(ctx context.Context, po *models.PickOrder) error {
	m := &models.ConveyanceMission{
		ConveyanceUnit:   s.conveyanceUnit,
		MissionID:        uuid.NewString(),
		Origin:           po.WarehouseID,
		Destination:      po.PodID,
		TagID:            po.CoreID,
		MissionStatus:    models.StatusPending,
		DispatchDateTime: time.Now().UTC(),
	}
	return s.repo.InsertMission(ctx, m)
}
