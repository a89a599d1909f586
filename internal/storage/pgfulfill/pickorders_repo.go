package pgfulfill

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/coolrevive/corefulfill/internal/models"
)

func (s *Storage) InsertPickOrder(ctx context.Context, po *models.PickOrder) error {
	now := time.Now().UTC()
	_, err := s.db.Exec(ctx, `
INSERT INTO pick_orders (warehouse_id, order_id, pod_id, core_id, pick_status, version, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,0,$6,$6)
`, po.WarehouseID, po.OrderID, po.PodID, po.CoreID, po.PickStatus, now)
	if err != nil {
		return errors.Wrap(err, "insert pick order")
	}
	po.Version = 0
	return nil
}

func (s *Storage) ListPickOrders(ctx context.Context, warehouseID, status string) ([]*models.PickOrder, error) {
	rows, err := s.db.Query(ctx, `
SELECT warehouse_id, order_id, pod_id, core_id, pick_status, version, created_at, updated_at
FROM pick_orders
WHERE warehouse_id = $1 AND pick_status = $2
ORDER BY created_at ASC
`, warehouseID, status)
	if err != nil {
		return nil, errors.Wrap(err, "select pick orders")
	}
	defer rows.Close()

	var out []*models.PickOrder
	for rows.Next() {
		var po models.PickOrder
		if err := rows.Scan(
			&po.WarehouseID, &po.OrderID, &po.PodID, &po.CoreID,
			&po.PickStatus, &po.Version, &po.CreatedAt, &po.UpdatedAt,
		); err != nil {
			return nil, errors.Wrap(err, "scan pick order")
		}
		out = append(out, &po)
	}
	if rows.Err() != nil {
		return nil, errors.Wrap(rows.Err(), "rows")
	}
	return out, nil
}

// UpdatePickStatus переводит заказ в новый статус по условию version = токен
// из выборки. Нулевой rows affected = проигранная гонка двух sweep'ов.
func (s *Storage) UpdatePickStatus(ctx context.Context, po *models.PickOrder, status string) error {
	tag, err := s.db.Exec(ctx, `
UPDATE pick_orders
SET pick_status = $1, version = version + 1, updated_at = now()
WHERE warehouse_id = $2 AND order_id = $3 AND version = $4
`, status, po.WarehouseID, po.OrderID, po.Version)
	if err != nil {
		return errors.Wrap(err, "update pick status")
	}
	if tag.RowsAffected() == 0 {
		return ErrConcurrencyConflict
	}
	po.PickStatus = status
	po.Version++
	return nil
}
