package workflow

import (
	"time"

	"github.com/BearBump/CargoDock/internal/apperrors"
	"github.com/BearBump/CargoDock/internal/models"
)

// Engine решает, допустим ли переход статуса, и вычисляет новые поля записи.
// Никакого I/O: вход — копия записи, выход — новая запись или ошибка.
type Engine struct {
	now func() time.Time
}

func New(now func() time.Time) *Engine {
	if now == nil {
		now = time.Now
	}
	return &Engine{now: now}
}

func (e *Engine) StartUnloading(rec models.Shipment, actor string) (models.Shipment, error) {
	if err := requireStatus(&rec, "start unloading",
		models.StatusArrivedPTA, models.StatusArrivedKLM, models.StatusArrivedOffsite); err != nil {
		return rec, err
	}
	now := e.now().UTC()
	rec.Status = models.StatusUnloading
	rec.UnloadingStartedAt = &now
	rec.UpdatedAt = now
	return rec, nil
}

func (e *Engine) CompleteUnloading(rec models.Shipment, actor string) (models.Shipment, error) {
	if err := requireStatus(&rec, "complete unloading", models.StatusUnloading); err != nil {
		return rec, err
	}
	now := e.now().UTC()
	rec.Status = models.StatusInspectionPending
	rec.UnloadingCompletedAt = &now
	rec.UpdatedAt = now
	return rec, nil
}

func (e *Engine) StartInspection(rec models.Shipment, inspector string) (models.Shipment, error) {
	if err := requireStatus(&rec, "start inspection", models.StatusInspectionPending); err != nil {
		return rec, err
	}
	now := e.now().UTC()
	sub := models.StageInProgress
	rec.Status = models.StatusInspecting
	rec.InspectionStatus = &sub
	rec.InspectedBy = &inspector
	rec.InspectionStartedAt = &now
	rec.UpdatedAt = now
	return rec, nil
}

// CompleteInspection переводит в inspection_passed либо inspection_failed.
// Если инспектор не передан, остаётся записанный при start inspection.
func (e *Engine) CompleteInspection(rec models.Shipment, passed bool, notes, inspector string) (models.Shipment, error) {
	if err := requireStatus(&rec, "complete inspection", models.StatusInspecting); err != nil {
		return rec, err
	}
	now := e.now().UTC()
	sub := models.StageFailed
	rec.Status = models.StatusInspectionFailed
	if passed {
		sub = models.StagePassed
		rec.Status = models.StatusInspectionPassed
	}
	rec.InspectionStatus = &sub
	if notes != "" {
		rec.InspectionNotes = &notes
	}
	if inspector != "" {
		rec.InspectedBy = &inspector
	}
	rec.InspectionCompletedAt = &now
	rec.UpdatedAt = now
	return rec, nil
}

func (e *Engine) StartReceiving(rec models.Shipment, receiver string) (models.Shipment, error) {
	if err := requireStatus(&rec, "start receiving", models.StatusInspectionPassed); err != nil {
		return rec, err
	}
	now := e.now().UTC()
	sub := models.StageInProgress
	rec.Status = models.StatusReceiving
	rec.ReceivingStatus = &sub
	rec.ReceivedBy = &receiver
	rec.ReceivingStartedAt = &now
	rec.UpdatedAt = now
	return rec, nil
}

func (e *Engine) CompleteReceiving(rec models.Shipment, receivedQty int32, receiver string) (models.Shipment, error) {
	if err := requireStatus(&rec, "complete receiving", models.StatusReceiving); err != nil {
		return rec, err
	}
	now := e.now().UTC()
	sub := models.StageCompleted
	rec.Status = models.StatusReceived
	rec.ReceivingStatus = &sub
	rec.ReceivedQuantity = &receivedQty
	if receiver != "" {
		rec.ReceivedBy = &receiver
	}
	rec.ReceivingCompletedAt = &now
	rec.UpdatedAt = now
	return rec, nil
}

func (e *Engine) Reject(rec models.Shipment, reason, actor string) (models.Shipment, error) {
	if err := requireStatus(&rec, "reject", models.StatusInspectionFailed); err != nil {
		return rec, err
	}
	now := e.now().UTC()
	rec.Status = models.StatusRejected
	rec.RejectionReason = &reason
	rec.RejectedBy = &actor
	rec.RejectedAt = &now
	rec.UpdatedAt = now
	return rec, nil
}

func (e *Engine) Store(rec models.Shipment, actor string) (models.Shipment, error) {
	if err := requireStatus(&rec, "store", models.StatusReceived); err != nil {
		return rec, err
	}
	now := e.now().UTC()
	rec.Status = models.StatusStored
	rec.StoredBy = &actor
	rec.StoredAt = &now
	rec.UpdatedAt = now
	return rec, nil
}

func (e *Engine) Archive(rec models.Shipment, actor string) (models.Shipment, error) {
	if rec.Status == models.StatusArchived {
		return rec, &apperrors.ConflictError{
			Op:            "archive",
			CurrentStatus: rec.Status,
			ValidStatuses: nonArchivedStatuses(),
		}
	}
	now := e.now().UTC()
	prev := rec.Status
	rec.PreviousStatus = &prev
	rec.Status = models.StatusArchived
	rec.ArchivedAt = &now
	rec.UpdatedAt = now
	return rec, nil
}

func (e *Engine) Unarchive(rec models.Shipment, actor string) (models.Shipment, error) {
	if err := requireStatus(&rec, "unarchive", models.StatusArchived); err != nil {
		return rec, err
	}
	if rec.PreviousStatus == nil || *rec.PreviousStatus == "" {
		return rec, &apperrors.ValidationError{Message: "shipment has no previous status to restore"}
	}
	now := e.now().UTC()
	rec.Status = *rec.PreviousStatus
	rec.PreviousStatus = nil
	rec.ArchivedAt = nil
	rec.UpdatedAt = now
	return rec, nil
}

func requireStatus(rec *models.Shipment, op string, valid ...string) error {
	for _, v := range valid {
		if rec.Status == v {
			return nil
		}
	}
	return &apperrors.ConflictError{
		Op:            op,
		CurrentStatus: rec.Status,
		ValidStatuses: valid,
	}
}

func nonArchivedStatuses() []string {
	return []string{
		models.StatusPlannedAirfreight, models.StatusPlannedSeafreight,
		models.StatusInTransitAirfreight, models.StatusInTransitSeafreight,
		models.StatusArrivedPTA, models.StatusArrivedKLM, models.StatusArrivedOffsite,
		models.StatusUnloading, models.StatusInspectionPending, models.StatusInspecting,
		models.StatusInspectionPassed, models.StatusInspectionFailed,
		models.StatusReceiving, models.StatusReceived,
		models.StatusRejected, models.StatusStored,
	}
}
