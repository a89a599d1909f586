package pgfulfill

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"

	"github.com/coolrevive/corefulfill/internal/models"
)

// AppendInventoryEvent дописывает запись в журнал; seq присваивает БД.
func (s *Storage) AppendInventoryEvent(ctx context.Context, ev *models.InventoryEvent) error {
	now := time.Now().UTC()
	err := s.db.QueryRow(ctx, `
INSERT INTO inventory_events (id, finished_product_id, pod_id, core_id, status, status_detail, status_datetime, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
RETURNING seq
`, ev.ID, ev.FinishedProductID, ev.PodID, ev.CoreID, ev.Status, ev.StatusDetail, ev.StatusDateTime, now).Scan(&ev.Seq)
	if err != nil {
		return errors.Wrap(err, "append inventory event")
	}
	ev.CreatedAt = now
	return nil
}

// ListInventoryEventsAfter returns the next ordered batch of the change-log
// feed, strictly after the given sequence number.
func (s *Storage) ListInventoryEventsAfter(ctx context.Context, afterSeq int64, limit int) ([]*models.InventoryEvent, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	rows, err := s.db.Query(ctx, `
SELECT seq, id, finished_product_id, pod_id, core_id, status, status_detail, status_datetime, created_at
FROM inventory_events
WHERE seq > $1
ORDER BY seq ASC
LIMIT $2
`, afterSeq, limit)
	if err != nil {
		return nil, errors.Wrap(err, "select inventory events")
	}
	defer rows.Close()

	var out []*models.InventoryEvent
	for rows.Next() {
		var ev models.InventoryEvent
		if err := rows.Scan(
			&ev.Seq, &ev.ID, &ev.FinishedProductID, &ev.PodID, &ev.CoreID,
			&ev.Status, &ev.StatusDetail, &ev.StatusDateTime, &ev.CreatedAt,
		); err != nil {
			return nil, errors.Wrap(err, "scan inventory event")
		}
		out = append(out, &ev)
	}
	if rows.Err() != nil {
		return nil, errors.Wrap(rows.Err(), "rows")
	}
	return out, nil
}

func (s *Storage) GetCheckpoint(ctx context.Context, consumer string) (int64, error) {
	var seq int64
	err := s.db.QueryRow(ctx, `SELECT seq FROM inventory_checkpoints WHERE consumer = $1`, consumer).Scan(&seq)
	if err == pgx.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, errors.Wrap(err, "get checkpoint")
	}
	return seq, nil
}

func (s *Storage) SaveCheckpoint(ctx context.Context, consumer string, seq int64) error {
	_, err := s.db.Exec(ctx, `
INSERT INTO inventory_checkpoints (consumer, seq, updated_at)
VALUES ($1,$2,now())
ON CONFLICT (consumer) DO UPDATE SET seq = EXCLUDED.seq, updated_at = now()
`, consumer, seq)
	return errors.Wrap(err, "save checkpoint")
}

func (s *Storage) GetInventory(ctx context.Context, finishedProductID string) (*models.InventoryRecord, error) {
	return s.getInventoryBy(ctx, `finished_product_id = $1`, finishedProductID)
}

// GetInventoryByCoreID ищет текущую запись по ядру; нужен транзитным
// уведомлениям, в которых нет FinishedProductId.
func (s *Storage) GetInventoryByCoreID(ctx context.Context, coreID string) (*models.InventoryRecord, error) {
	return s.getInventoryBy(ctx, `core_id = $1`, coreID)
}

func (s *Storage) getInventoryBy(ctx context.Context, where, arg string) (*models.InventoryRecord, error) {
	var rec models.InventoryRecord
	err := s.db.QueryRow(ctx, `
SELECT finished_product_id, id, pod_id, core_id, status, status_detail, status_datetime, version, updated_at
FROM inventory
WHERE `+where, arg).Scan(
		&rec.FinishedProductID, &rec.ID, &rec.PodID, &rec.CoreID,
		&rec.Status, &rec.StatusDetail, &rec.StatusDateTime, &rec.Version, &rec.UpdatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "select inventory")
	}
	return &rec, nil
}

func (s *Storage) InsertInventory(ctx context.Context, rec *models.InventoryRecord) error {
	_, err := s.db.Exec(ctx, `
INSERT INTO inventory (finished_product_id, id, pod_id, core_id, status, status_detail, status_datetime, version, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,now())
`, rec.FinishedProductID, rec.ID, rec.PodID, rec.CoreID, rec.Status, rec.StatusDetail, rec.StatusDateTime, rec.Version)
	return errors.Wrap(err, "insert inventory")
}

// UpdateInventory применяет новое состояние по version-токену из выборки.
func (s *Storage) UpdateInventory(ctx context.Context, rec *models.InventoryRecord, status string, statusDetail *string, statusAt time.Time, newVersion int64) error {
	tag, err := s.db.Exec(ctx, `
UPDATE inventory
SET status = $1, status_detail = $2, status_datetime = $3, version = $4, updated_at = now()
WHERE finished_product_id = $5 AND version = $6
`, status, statusDetail, statusAt, newVersion, rec.FinishedProductID, rec.Version)
	if err != nil {
		return errors.Wrap(err, "update inventory")
	}
	if tag.RowsAffected() == 0 {
		return ErrConcurrencyConflict
	}
	rec.Status = status
	rec.StatusDetail = statusDetail
	rec.StatusDateTime = statusAt
	rec.Version = newVersion
	return nil
}
