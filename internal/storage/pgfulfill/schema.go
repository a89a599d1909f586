package pgfulfill

import (
	"context"

	"github.com/pkg/errors"
)

func (s *Storage) initSchema(ctx context.Context) error {
	stmts := []string{
		`
CREATE TABLE IF NOT EXISTS pick_orders (
  warehouse_id TEXT NOT NULL,
  order_id TEXT NOT NULL,
  pod_id TEXT NOT NULL,
  core_id TEXT NOT NULL,
  pick_status TEXT NOT NULL DEFAULT 'pending',
  version BIGINT NOT NULL DEFAULT 0,
  created_at TIMESTAMPTZ NOT NULL,
  updated_at TIMESTAMPTZ NOT NULL,
  PRIMARY KEY (warehouse_id, order_id)
)`,
		`CREATE INDEX IF NOT EXISTS idx_pick_orders_status ON pick_orders(warehouse_id, pick_status)`,
		`
CREATE TABLE IF NOT EXISTS conveyance_missions (
  conveyance_unit TEXT NOT NULL,
  mission_id TEXT NOT NULL,
  origin TEXT NOT NULL,
  destination TEXT NOT NULL,
  tag_id TEXT NOT NULL,
  mission_status TEXT NOT NULL DEFAULT 'pending',
  dispatch_datetime TIMESTAMPTZ NOT NULL,
  mission_start TIMESTAMPTZ NULL,
  mission_end TIMESTAMPTZ NULL,
  version BIGINT NOT NULL DEFAULT 0,
  created_at TIMESTAMPTZ NOT NULL,
  updated_at TIMESTAMPTZ NOT NULL,
  PRIMARY KEY (conveyance_unit, mission_id)
)`,
		`CREATE INDEX IF NOT EXISTS idx_conveyance_missions_status ON conveyance_missions(conveyance_unit, mission_status)`,
		`
CREATE TABLE IF NOT EXISTS inventory (
  finished_product_id TEXT PRIMARY KEY,
  id TEXT NOT NULL,
  pod_id TEXT NOT NULL DEFAULT '',
  core_id TEXT NOT NULL DEFAULT '',
  status TEXT NOT NULL,
  status_detail TEXT NULL,
  status_datetime TIMESTAMPTZ NOT NULL,
  version BIGINT NOT NULL DEFAULT 0,
  updated_at TIMESTAMPTZ NOT NULL
)`,
		`CREATE INDEX IF NOT EXISTS idx_inventory_core_id ON inventory(core_id)`,
		// Append-only журнал изменений; seq задаёт порядок фида.
		`
CREATE TABLE IF NOT EXISTS inventory_events (
  seq BIGSERIAL PRIMARY KEY,
  id TEXT NOT NULL,
  finished_product_id TEXT NOT NULL,
  pod_id TEXT NOT NULL DEFAULT '',
  core_id TEXT NOT NULL DEFAULT '',
  status TEXT NOT NULL,
  status_detail TEXT NULL,
  status_datetime TIMESTAMPTZ NOT NULL,
  created_at TIMESTAMPTZ NOT NULL
)`,
		`CREATE INDEX IF NOT EXISTS idx_inventory_events_product ON inventory_events(finished_product_id, seq)`,
		`
CREATE TABLE IF NOT EXISTS inventory_checkpoints (
  consumer TEXT PRIMARY KEY,
  seq BIGINT NOT NULL,
  updated_at TIMESTAMPTZ NOT NULL
)`,
		`
CREATE TABLE IF NOT EXISTS contact_list (
  message_type TEXT NOT NULL,
  pod_id TEXT NOT NULL,
  email_address TEXT NOT NULL,
  PRIMARY KEY (message_type, pod_id)
)`,
	}

	for _, q := range stmts {
		if _, err := s.db.Exec(ctx, q); err != nil {
			return errors.Wrap(err, "init schema")
		}
	}
	return nil
}
