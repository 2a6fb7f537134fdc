package messages

import "time"

// ShipmentUpdated публикуется в kafka после каждого зафиксированного перехода.
// Это и лента для внешних потребителей, и точка расширения под backplane
// при многопроцессном деплое.
type ShipmentUpdated struct {
	ShipmentID uint64    `json:"shipment_id"`
	OrderRef   string    `json:"order_ref"`
	Status     string    `json:"status"`
	ChangedBy  string    `json:"changed_by,omitempty"`
	ChangedAt  time.Time `json:"changed_at"`
}

// WarehouseCapacityUpdated приходит из внешней складской системы.
type WarehouseCapacityUpdated struct {
	Location      string    `json:"location"`
	TotalCapacity int       `json:"total_capacity"`
	AvailableBins int       `json:"available_bins"`
	UsedCapacity  int       `json:"used_capacity"`
	MeasuredAt    time.Time `json:"measured_at"`
}
