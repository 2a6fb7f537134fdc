package realtime

import (
	"encoding/json"
	"log/slog"
	"time"

	"github.com/BearBump/CargoDock/internal/models"
)

// Типы событий канала. Клиент шлёт join/leave, всё остальное — сервер.
const (
	EventJoin              = "join"
	EventLeave             = "leave"
	EventJoined            = "joined"
	EventWatcherArrived    = "watcher_arrived"
	EventWatcherDeparted   = "watcher_departed"
	EventShipmentUpdated   = "shipment_updated"
	EventDocumentUploaded  = "document_uploaded"
	EventInspectionStatus  = "inspection_status"
	EventShipmentRejected  = "shipment_rejected"
	EventInventoryCount    = "inventory_count"
	EventWarehouseCapacity = "warehouse_capacity"
	EventError             = "error"
)

type Frame struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type JoinPayload struct {
	ShipmentID uint64 `json:"shipment_id"`
}

type JoinedPayload struct {
	ShipmentID  uint64    `json:"shipment_id"`
	ViewerCount int       `json:"viewer_count"`
	Timestamp   time.Time `json:"timestamp"`
}

type WatcherArrivedPayload struct {
	ShipmentID   uint64    `json:"shipment_id"`
	UserID       string    `json:"user_id,omitempty"`
	Role         string    `json:"role"`
	ConnectionID string    `json:"connection_id"`
	Timestamp    time.Time `json:"timestamp"`
}

type WatcherDepartedPayload struct {
	ShipmentID   uint64    `json:"shipment_id"`
	UserID       string    `json:"user_id,omitempty"`
	Role         string    `json:"role"`
	ConnectionID string    `json:"connection_id"`
	ViewerCount  int       `json:"viewer_count"`
	Timestamp    time.Time `json:"timestamp"`
}

type ShipmentUpdatedPayload struct {
	ShipmentID uint64           `json:"shipment_id"`
	Status     string           `json:"status,omitempty"`
	ChangedBy  string           `json:"changed_by,omitempty"`
	Shipment   *models.Shipment `json:"shipment,omitempty"`
	Timestamp  time.Time        `json:"timestamp"`
}

type DocumentRef struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

type DocumentUploadedPayload struct {
	ShipmentID uint64      `json:"shipment_id"`
	Document   DocumentRef `json:"document"`
	Timestamp  time.Time   `json:"timestamp"`
}

type InspectionStatusPayload struct {
	ShipmentID       uint64    `json:"shipment_id"`
	InspectionStatus string    `json:"inspection_status"`
	Notes            string    `json:"notes,omitempty"`
	InspectedBy      string    `json:"inspected_by,omitempty"`
	Timestamp        time.Time `json:"timestamp"`
}

type ShipmentRejectedPayload struct {
	ShipmentID uint64    `json:"shipment_id"`
	Reason     string    `json:"reason"`
	RejectedBy string    `json:"rejected_by,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

type InventoryCountPayload struct {
	ShipmentID       uint64    `json:"shipment_id"`
	ReceivedQuantity int32     `json:"received_quantity"`
	CountedBy        string    `json:"counted_by,omitempty"`
	Timestamp        time.Time `json:"timestamp"`
}

// Ёмкость склада не привязана к поставке, событие уходит всем соединениям.
type WarehouseCapacityPayload struct {
	Location      string    `json:"location"`
	TotalCapacity int       `json:"total_capacity"`
	AvailableBins int       `json:"available_bins"`
	UsedCapacity  int       `json:"used_capacity"`
	Timestamp     time.Time `json:"timestamp"`
}

type ErrorPayload struct {
	Message string `json:"message"`
}

func newFrame(typ string, payload any) Frame {
	b, err := json.Marshal(payload)
	if err != nil {
		slog.Error("marshal frame payload", "type", typ, "err", err)
		return Frame{Type: typ}
	}
	return Frame{Type: typ, Payload: b}
}
