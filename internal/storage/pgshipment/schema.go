package pgshipment

import (
	"context"

	"github.com/pkg/errors"
)

func (s *Storage) initSchema(ctx context.Context) error {
	stmts := []string{
		`
CREATE TABLE IF NOT EXISTS shipments (
  id BIGSERIAL PRIMARY KEY,
  order_ref TEXT NOT NULL,
  supplier_ref TEXT NOT NULL,
  quantity INT NOT NULL,
  status TEXT NOT NULL,

  unloading_started_at TIMESTAMPTZ NULL,
  unloading_completed_at TIMESTAMPTZ NULL,

  inspection_status TEXT NULL,
  inspected_by TEXT NULL,
  inspection_notes TEXT NULL,
  inspection_started_at TIMESTAMPTZ NULL,
  inspection_completed_at TIMESTAMPTZ NULL,

  receiving_status TEXT NULL,
  received_by TEXT NULL,
  received_quantity INT NULL,
  receiving_started_at TIMESTAMPTZ NULL,
  receiving_completed_at TIMESTAMPTZ NULL,

  rejection_reason TEXT NULL,
  rejected_by TEXT NULL,
  rejected_at TIMESTAMPTZ NULL,

  stored_by TEXT NULL,
  stored_at TIMESTAMPTZ NULL,

  previous_status TEXT NULL,
  archived_at TIMESTAMPTZ NULL,

  created_at TIMESTAMPTZ NOT NULL,
  updated_at TIMESTAMPTZ NOT NULL,
  UNIQUE (order_ref)
)`,
		`CREATE INDEX IF NOT EXISTS idx_shipments_status ON shipments(status)`,
		`CREATE INDEX IF NOT EXISTS idx_shipments_supplier_ref ON shipments(supplier_ref)`,
	}

	for _, q := range stmts {
		if _, err := s.db.Exec(ctx, q); err != nil {
			return errors.Wrap(err, "init schema")
		}
	}
	return nil
}
