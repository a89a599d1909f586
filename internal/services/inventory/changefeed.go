package inventory

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/coolrevive/corefulfill/internal/models"
)

type FeedRepository interface {
	GetCheckpoint(ctx context.Context, consumer string) (int64, error)
	SaveCheckpoint(ctx context.Context, consumer string, seq int64) error
	ListInventoryEventsAfter(ctx context.Context, afterSeq int64, limit int) ([]*models.InventoryEvent, error)
}

type Applier interface {
	ApplyChangeBatch(ctx context.Context, entries []*models.InventoryEvent) error
}

// Feed гонит журнал изменений в проектор упорядоченными пачками.
// Чекпоинт двигается только после чистого применения пачки, поэтому после
// падения пачка может прийти повторно (at-least-once) — проектор это
// переживает за счёт seq-версий.
type Feed struct {
	repo    FeedRepository
	applier Applier

	consumer     string
	pollInterval time.Duration
	batchSize    int

	triggerCh chan struct{}

	lastCycleUnixNano atomic.Int64
	totalApplied      atomic.Int64
	totalErrors       atomic.Int64
	lastErrorMu       sync.Mutex
	lastError         string
}

func NewFeed(repo FeedRepository, applier Applier, consumer string) *Feed {
	return &Feed{
		repo:         repo,
		applier:      applier,
		consumer:     consumer,
		pollInterval: 2 * time.Second,
		batchSize:    100,
		triggerCh:    make(chan struct{}, 1),
	}
}

func (f *Feed) WithSettings(pollInterval time.Duration, batchSize int) *Feed {
	if pollInterval > 0 {
		f.pollInterval = pollInterval
	}
	if batchSize > 0 {
		f.batchSize = batchSize
	}
	return f
}

// Trigger forces an immediate feed cycle (best-effort, non-blocking).
func (f *Feed) Trigger() {
	select {
	case f.triggerCh <- struct{}{}:
	default:
	}
}

type FeedStats struct {
	LastCycleAt  *time.Time `json:"lastCycleAt,omitempty"`
	TotalApplied int64      `json:"totalApplied"`
	TotalErrors  int64      `json:"totalErrors"`
	LastError    string     `json:"lastError,omitempty"`
}

func (f *Feed) Stats() FeedStats {
	st := FeedStats{
		TotalApplied: f.totalApplied.Load(),
		TotalErrors:  f.totalErrors.Load(),
	}
	if n := f.lastCycleUnixNano.Load(); n > 0 {
		t := time.Unix(0, n).UTC()
		st.LastCycleAt = &t
	}
	f.lastErrorMu.Lock()
	st.LastError = f.lastError
	f.lastErrorMu.Unlock()
	return st
}

func (f *Feed) Run(ctx context.Context) error {
	t := time.NewTicker(f.pollInterval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
			f.runOnce(ctx)
		case <-f.triggerCh:
			f.runOnce(ctx)
		}
	}
}

func (f *Feed) runOnce(ctx context.Context) {
	f.lastCycleUnixNano.Store(time.Now().UTC().UnixNano())

	seq, err := f.repo.GetCheckpoint(ctx, f.consumer)
	if err != nil {
		f.fail("get checkpoint", err)
		return
	}

	for {
		batch, err := f.repo.ListInventoryEventsAfter(ctx, seq, f.batchSize)
		if err != nil {
			f.fail("list inventory events", err)
			return
		}
		if len(batch) == 0 {
			return
		}

		if err := f.applier.ApplyChangeBatch(ctx, batch); err != nil {
			// Чекпоинт не двигаем: пачка придёт ещё раз.
			f.fail("apply change batch", err)
			return
		}

		seq = batch[len(batch)-1].Seq
		if err := f.repo.SaveCheckpoint(ctx, f.consumer, seq); err != nil {
			f.fail("save checkpoint", err)
			return
		}
		f.totalApplied.Add(int64(len(batch)))
	}
}

func (f *Feed) fail(op string, err error) {
	f.totalErrors.Add(1)
	f.lastErrorMu.Lock()
	f.lastError = err.Error()
	f.lastErrorMu.Unlock()
	slog.Error(op, "error", err.Error())
}
