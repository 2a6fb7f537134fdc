package pgshipment

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"

	"github.com/BearBump/CargoDock/internal/models"
)

const shipmentColumns = `
  id, order_ref, supplier_ref, quantity, status,
  unloading_started_at, unloading_completed_at,
  inspection_status, inspected_by, inspection_notes,
  inspection_started_at, inspection_completed_at,
  receiving_status, received_by, received_quantity,
  receiving_started_at, receiving_completed_at,
  rejection_reason, rejected_by, rejected_at,
  stored_by, stored_at,
  previous_status, archived_at,
  created_at, updated_at`

func (s *Storage) CreateShipment(ctx context.Context, in models.ShipmentCreateInput) (*models.Shipment, error) {
	now := time.Now().UTC()
	status := in.Status
	if status == "" {
		status = models.StatusPlannedSeafreight
	}

	var id uint64
	err := s.db.QueryRow(ctx, `
INSERT INTO shipments (order_ref, supplier_ref, quantity, status, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$5)
ON CONFLICT (order_ref)
DO UPDATE SET updated_at = shipments.updated_at
RETURNING id
`, in.OrderRef, in.SupplierRef, in.Quantity, status, now).Scan(&id)
	if err != nil {
		return nil, errors.Wrap(err, "insert shipment")
	}

	return s.GetShipmentByID(ctx, id)
}

func (s *Storage) GetShipmentByID(ctx context.Context, id uint64) (*models.Shipment, error) {
	row := s.db.QueryRow(ctx, `SELECT`+shipmentColumns+` FROM shipments WHERE id = $1`, id)
	sh, err := scanShipment(row)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "select shipment")
	}
	return sh, nil
}

func (s *Storage) GetShipmentByOrderRef(ctx context.Context, orderRef string) (*models.Shipment, error) {
	row := s.db.QueryRow(ctx, `SELECT`+shipmentColumns+` FROM shipments WHERE order_ref = $1`, orderRef)
	sh, err := scanShipment(row)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "select shipment by order_ref")
	}
	return sh, nil
}

func (s *Storage) ListShipments(ctx context.Context, limit, offset int) ([]*models.Shipment, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}

	rows, err := s.db.Query(ctx, `
SELECT`+shipmentColumns+`
FROM shipments
ORDER BY created_at DESC
LIMIT $1 OFFSET $2
`, limit, offset)
	if err != nil {
		return nil, errors.Wrap(err, "select shipments")
	}
	defer rows.Close()

	var out []*models.Shipment
	for rows.Next() {
		sh, err := scanShipment(rows)
		if err != nil {
			return nil, errors.Wrap(err, "scan shipment")
		}
		out = append(out, sh)
	}
	if rows.Err() != nil {
		return nil, errors.Wrap(rows.Err(), "rows")
	}
	return out, nil
}

// SaveShipment перезаписывает статус и все поля этапов целиком: источником
// истины для полей перехода является WorkflowEngine, не SQL.
func (s *Storage) SaveShipment(ctx context.Context, sh *models.Shipment) error {
	_, err := s.db.Exec(ctx, `
UPDATE shipments
SET
  status = $2,
  unloading_started_at = $3,
  unloading_completed_at = $4,
  inspection_status = $5,
  inspected_by = $6,
  inspection_notes = $7,
  inspection_started_at = $8,
  inspection_completed_at = $9,
  receiving_status = $10,
  received_by = $11,
  received_quantity = $12,
  receiving_started_at = $13,
  receiving_completed_at = $14,
  rejection_reason = $15,
  rejected_by = $16,
  rejected_at = $17,
  stored_by = $18,
  stored_at = $19,
  previous_status = $20,
  archived_at = $21,
  updated_at = $22
WHERE id = $1
`,
		sh.ID, sh.Status,
		sh.UnloadingStartedAt, sh.UnloadingCompletedAt,
		sh.InspectionStatus, sh.InspectedBy, sh.InspectionNotes,
		sh.InspectionStartedAt, sh.InspectionCompletedAt,
		sh.ReceivingStatus, sh.ReceivedBy, sh.ReceivedQuantity,
		sh.ReceivingStartedAt, sh.ReceivingCompletedAt,
		sh.RejectionReason, sh.RejectedBy, sh.RejectedAt,
		sh.StoredBy, sh.StoredAt,
		sh.PreviousStatus, sh.ArchivedAt,
		sh.UpdatedAt.UTC(),
	)
	return errors.Wrap(err, "update shipment")
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanShipment(row rowScanner) (*models.Shipment, error) {
	var sh models.Shipment
	if err := row.Scan(
		&sh.ID, &sh.OrderRef, &sh.SupplierRef, &sh.Quantity, &sh.Status,
		&sh.UnloadingStartedAt, &sh.UnloadingCompletedAt,
		&sh.InspectionStatus, &sh.InspectedBy, &sh.InspectionNotes,
		&sh.InspectionStartedAt, &sh.InspectionCompletedAt,
		&sh.ReceivingStatus, &sh.ReceivedBy, &sh.ReceivedQuantity,
		&sh.ReceivingStartedAt, &sh.ReceivingCompletedAt,
		&sh.RejectionReason, &sh.RejectedBy, &sh.RejectedAt,
		&sh.StoredBy, &sh.StoredAt,
		&sh.PreviousStatus, &sh.ArchivedAt,
		&sh.CreatedAt, &sh.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &sh, nil
}
