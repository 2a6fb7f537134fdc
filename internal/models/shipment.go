package models

import "time"

// Статусы жизненного цикла поставки (workflow).
const (
	StatusPlannedAirfreight   = "planned_airfreight"
	StatusPlannedSeafreight   = "planned_seafreight"
	StatusInTransitAirfreight = "in_transit_airfreight"
	StatusInTransitSeafreight = "in_transit_seafreight"
	StatusArrivedPTA          = "arrived_pta"
	StatusArrivedKLM          = "arrived_klm"
	StatusArrivedOffsite      = "arrived_offsite"
	StatusUnloading           = "unloading"
	StatusInspectionPending   = "inspection_pending"
	StatusInspecting          = "inspecting"
	StatusInspectionPassed    = "inspection_passed"
	StatusInspectionFailed    = "inspection_failed"
	StatusReceiving           = "receiving"
	StatusReceived            = "received"
	StatusRejected            = "rejected"
	StatusStored              = "stored"
	StatusArchived            = "archived"
)

// Под-статусы этапов инспекции и приёмки.
const (
	StageInProgress = "in_progress"
	StagePassed     = "passed"
	StageFailed     = "failed"
	StageCompleted  = "completed"
)

type Shipment struct {
	ID          uint64
	OrderRef    string
	SupplierRef string
	Quantity    int32
	Status      string

	UnloadingStartedAt   *time.Time
	UnloadingCompletedAt *time.Time

	InspectionStatus      *string
	InspectedBy           *string
	InspectionNotes       *string
	InspectionStartedAt   *time.Time
	InspectionCompletedAt *time.Time

	ReceivingStatus      *string
	ReceivedBy           *string
	ReceivedQuantity     *int32
	ReceivingStartedAt   *time.Time
	ReceivingCompletedAt *time.Time

	RejectionReason *string
	RejectedBy      *string
	RejectedAt      *time.Time

	StoredBy *string
	StoredAt *time.Time

	// PreviousStatus хранит статус до архивации, чтобы unarchive мог его вернуть.
	PreviousStatus *string
	ArchivedAt     *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

type ShipmentCreateInput struct {
	OrderRef    string
	SupplierRef string
	Quantity    int32
	Status      string
}
