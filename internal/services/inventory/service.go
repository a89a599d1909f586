package inventory

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/coolrevive/corefulfill/internal/broker/kafka"
	"github.com/coolrevive/corefulfill/internal/broker/messages"
	"github.com/coolrevive/corefulfill/internal/models"
	"github.com/coolrevive/corefulfill/internal/storage/pgfulfill"
)

type Repository interface {
	AppendInventoryEvent(ctx context.Context, ev *models.InventoryEvent) error
	GetInventory(ctx context.Context, finishedProductID string) (*models.InventoryRecord, error)
	GetInventoryByCoreID(ctx context.Context, coreID string) (*models.InventoryRecord, error)
	InsertInventory(ctx context.Context, rec *models.InventoryRecord) error
	UpdateInventory(ctx context.Context, rec *models.InventoryRecord, status string, statusDetail *string, statusAt time.Time, newVersion int64) error
}

// Service сворачивает журнал изменений в текущее состояние по каждому
// FinishedProductId. Разрешение конфликтов — по seq журнала (монотонная
// версия на ключ); StatusDateTime хранится только для отображения.
type Service struct {
	repo Repository

	// Ровно один писатель на ключ в пределах процесса.
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func New(repo Repository) *Service {
	return &Service{
		repo:  repo,
		locks: make(map[string]*sync.Mutex),
	}
}

// HandleOrderMessage — обработчик order-топика: первое появление
// FinishedProductId заносится в журнал как "Core Ordered".
func (s *Service) HandleOrderMessage(ctx context.Context, value []byte) (kafka.Outcome, error) {
	msg, err := messages.DecodeOrderNextCore(value)
	if err != nil {
		slog.Error("order message: bad body", "error", err.Error())
		return kafka.DeadLetter, nil
	}
	if msg.FinishedProductID == "" || msg.CoreID == "" {
		// Неразрешённый заказ в order-топике — испорченное сообщение.
		slog.Error("order message: not fully resolved", "message_id", msg.MessageID)
		return kafka.DeadLetter, nil
	}

	ev := &models.InventoryEvent{
		ID:                msg.MessageID,
		FinishedProductID: msg.FinishedProductID,
		PodID:             msg.PodID,
		CoreID:            msg.CoreID,
		Status:            models.PhaseCoreOrdered,
		StatusDateTime:    msg.RequestDateTime,
	}
	if err := s.repo.AppendInventoryEvent(ctx, ev); err != nil {
		return kafka.Complete, err
	}
	return kafka.Complete, nil
}

// HandleTransitMessage — обработчик transit-топика: статусное уведомление
// дописывается в журнал под ключом текущей записи этого ядра.
func (s *Service) HandleTransitMessage(ctx context.Context, value []byte) (kafka.Outcome, error) {
	msg, err := messages.DecodeNextCoreInTransit(value)
	if err != nil {
		slog.Error("transit message: bad body", "error", err.Error())
		return kafka.DeadLetter, nil
	}

	rec, err := s.repo.GetInventoryByCoreID(ctx, msg.CoreID)
	if errors.Is(err, pgfulfill.ErrNotFound) {
		// Заказ ещё не спроецирован; оставляем на передоставку, порядок
		// появления записей за нас добьёт фид.
		return kafka.Complete, errors.Errorf("no inventory record for core %s yet", msg.CoreID)
	}
	if err != nil {
		return kafka.Complete, err
	}

	ev := &models.InventoryEvent{
		ID:                msg.MessageID,
		FinishedProductID: rec.FinishedProductID,
		PodID:             msg.PodID,
		CoreID:            msg.CoreID,
		Status:            msg.Status,
		StatusDateTime:    msg.StatusDateTime,
	}
	if err := s.repo.AppendInventoryEvent(ctx, ev); err != nil {
		return kafka.Complete, err
	}
	return kafka.Complete, nil
}

// ApplyChangeBatch применяет пачку журнала: сначала редукция до одной записи
// на ключ (максимальный StatusDateTime, при равенстве — больший seq), затем
// независимое применение по ключам.
func (s *Service) ApplyChangeBatch(ctx context.Context, entries []*models.InventoryEvent) error {
	latest := reduceLatest(entries)

	for _, ev := range latest {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := s.applyOne(ctx, ev); err != nil {
			return errors.Wrapf(err, "apply change for %s", ev.FinishedProductID)
		}
	}
	return nil
}

func reduceLatest(entries []*models.InventoryEvent) []*models.InventoryEvent {
	byKey := make(map[string]*models.InventoryEvent, len(entries))
	order := make([]string, 0, len(entries))
	for _, ev := range entries {
		cur, ok := byKey[ev.FinishedProductID]
		if !ok {
			byKey[ev.FinishedProductID] = ev
			order = append(order, ev.FinishedProductID)
			continue
		}
		if ev.StatusDateTime.After(cur.StatusDateTime) ||
			(ev.StatusDateTime.Equal(cur.StatusDateTime) && ev.Seq > cur.Seq) {
			byKey[ev.FinishedProductID] = ev
		}
	}
	out := make([]*models.InventoryEvent, 0, len(byKey))
	for _, k := range order {
		out = append(out, byKey[k])
	}
	return out
}

func (s *Service) applyOne(ctx context.Context, ev *models.InventoryEvent) error {
	unlock := s.lockKey(ev.FinishedProductID)
	defer unlock()

	rec, err := s.repo.GetInventory(ctx, ev.FinishedProductID)
	if errors.Is(err, pgfulfill.ErrNotFound) {
		return s.repo.InsertInventory(ctx, &models.InventoryRecord{
			ID:                ev.ID,
			FinishedProductID: ev.FinishedProductID,
			PodID:             ev.PodID,
			CoreID:            ev.CoreID,
			Status:            ev.Status,
			StatusDetail:      ev.StatusDetail,
			StatusDateTime:    ev.StatusDateTime,
			Version:           ev.Seq,
		})
	}
	if err != nil {
		return err
	}

	if ev.Seq <= rec.Version {
		// Передоставленная пачка: эта запись уже применена.
		return nil
	}
	if rec.Status == ev.Status && equalDetail(rec.StatusDetail, ev.StatusDetail) {
		return nil
	}

	err = s.repo.UpdateInventory(ctx, rec, ev.Status, ev.StatusDetail, ev.StatusDateTime, ev.Seq)
	if errors.Is(err, pgfulfill.ErrConcurrencyConflict) {
		// Конкурентный фид успел первым; следующий цикл перечитает.
		slog.Warn("inventory update lost race", "finished_product_id", ev.FinishedProductID)
		return nil
	}
	return err
}

func (s *Service) lockKey(key string) func() {
	s.mu.Lock()
	l, ok := s.locks[key]
	if !ok {
		l = &sync.Mutex{}
		s.locks[key] = l
	}
	s.mu.Unlock()
	l.Lock()
	return l.Unlock
}

func equalDetail(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
