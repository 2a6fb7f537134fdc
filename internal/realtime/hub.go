package realtime

import (
	"log/slog"
	"sync"
	"time"

	"github.com/BearBump/CargoDock/internal/models"
)

// Hub — менеджер каналов: маршрутизирует join/leave/disconnect в Registry и
// раздаёт события зрителям. Снимок получателей берётся из Registry на момент
// вызова; доставка — best effort, упавшее соединение не ломает остальные.
// sendMu сериализует рассылки, чтобы события одной комнаты уходили в порядке
// вызовов Broadcast (FIFO per room).
type Hub struct {
	registry *Registry
	now      func() time.Time

	sendMu sync.Mutex
}

func NewHub(registry *Registry, now func() time.Time) *Hub {
	if now == nil {
		now = time.Now
	}
	return &Hub{registry: registry, now: now}
}

func (h *Hub) lockSend() func() {
	h.sendMu.Lock()
	return h.sendMu.Unlock
}

func (h *Hub) Registry() *Registry {
	return h.registry
}

// Join подключает соединение к комнате поставки. Подтверждение со счётчиком
// зрителей получает только входящий; watcher_arrived — все остальные.
// Повторный join не меняет данные, но подтверждение и уведомления шлёт снова.
func (h *Hub) Join(c *Conn, shipmentID uint64) {
	_, count := h.registry.Join(c, shipmentID)
	watchers := h.registry.Watchers(shipmentID)

	defer h.lockSend()()
	now := h.now().UTC()
	h.deliver(c, newFrame(EventJoined, JoinedPayload{
		ShipmentID:  shipmentID,
		ViewerCount: count,
		Timestamp:   now,
	}))

	arrived := newFrame(EventWatcherArrived, WatcherArrivedPayload{
		ShipmentID:   shipmentID,
		UserID:       c.Identity.UserID,
		Role:         c.Identity.Role,
		ConnectionID: c.ID,
		Timestamp:    now,
	})
	for _, w := range watchers {
		if w.ID == c.ID {
			continue
		}
		h.deliver(w, arrived)
	}
}

func (h *Hub) Leave(c *Conn, shipmentID uint64) {
	removed, count := h.registry.Leave(c, shipmentID)
	if !removed {
		return
	}
	h.notifyDeparted(c, Departure{
		ShipmentID:  shipmentID,
		ViewerCount: count,
		Remaining:   h.registry.Watchers(shipmentID),
	})
}

// Disconnect выполняет полный свип присутствия. Вызывается безусловно при
// закрытии соединения, в том числе после обрыва сети.
func (h *Hub) Disconnect(c *Conn) {
	for _, dep := range h.registry.Disconnect(c) {
		h.notifyDeparted(c, dep)
	}
}

func (h *Hub) notifyDeparted(c *Conn, dep Departure) {
	defer h.lockSend()()
	departed := newFrame(EventWatcherDeparted, WatcherDepartedPayload{
		ShipmentID:   dep.ShipmentID,
		UserID:       c.Identity.UserID,
		Role:         c.Identity.Role,
		ConnectionID: c.ID,
		ViewerCount:  dep.ViewerCount,
		Timestamp:    h.now().UTC(),
	})
	for _, w := range dep.Remaining {
		if w.ID == c.ID {
			continue
		}
		h.deliver(w, departed)
	}
}

func (h *Hub) ShipmentUpdated(shipmentID uint64, status, changedBy string, sh *models.Shipment) {
	h.broadcast(shipmentID, EventShipmentUpdated, ShipmentUpdatedPayload{
		ShipmentID: shipmentID,
		Status:     status,
		ChangedBy:  changedBy,
		Shipment:   sh,
		Timestamp:  h.now().UTC(),
	})
}

func (h *Hub) DocumentUploaded(shipmentID uint64, doc DocumentRef) {
	h.broadcast(shipmentID, EventDocumentUploaded, DocumentUploadedPayload{
		ShipmentID: shipmentID,
		Document:   doc,
		Timestamp:  h.now().UTC(),
	})
}

func (h *Hub) InspectionStatus(shipmentID uint64, inspectionStatus, notes, inspectedBy string) {
	h.broadcast(shipmentID, EventInspectionStatus, InspectionStatusPayload{
		ShipmentID:       shipmentID,
		InspectionStatus: inspectionStatus,
		Notes:            notes,
		InspectedBy:      inspectedBy,
		Timestamp:        h.now().UTC(),
	})
}

func (h *Hub) ShipmentRejected(shipmentID uint64, reason, rejectedBy string) {
	h.broadcast(shipmentID, EventShipmentRejected, ShipmentRejectedPayload{
		ShipmentID: shipmentID,
		Reason:     reason,
		RejectedBy: rejectedBy,
		Timestamp:  h.now().UTC(),
	})
}

func (h *Hub) InventoryCount(shipmentID uint64, receivedQty int32, countedBy string) {
	h.broadcast(shipmentID, EventInventoryCount, InventoryCountPayload{
		ShipmentID:       shipmentID,
		ReceivedQuantity: receivedQty,
		CountedBy:        countedBy,
		Timestamp:        h.now().UTC(),
	})
}

// WarehouseCapacity не привязана к поставке и уходит всем живым соединениям.
func (h *Hub) WarehouseCapacity(location string, total, availableBins, used int) {
	frame := newFrame(EventWarehouseCapacity, WarehouseCapacityPayload{
		Location:      location,
		TotalCapacity: total,
		AvailableBins: availableBins,
		UsedCapacity:  used,
		Timestamp:     h.now().UTC(),
	})
	conns := h.registry.Conns()
	defer h.lockSend()()
	for _, c := range conns {
		h.deliver(c, frame)
	}
}

// broadcast при нуле зрителей — no-op, не ошибка.
func (h *Hub) broadcast(shipmentID uint64, typ string, payload any) {
	watchers := h.registry.Watchers(shipmentID)
	if len(watchers) == 0 {
		return
	}
	frame := newFrame(typ, payload)
	defer h.lockSend()()
	for _, w := range watchers {
		h.deliver(w, frame)
	}
}

func (h *Hub) deliver(c *Conn, f Frame) {
	if err := c.writeFrame(f); err != nil {
		// Соединение могло оборваться между снимком и записью; это
		// допустимая частичная доставка, свип сделает deferred disconnect.
		slog.Debug("deliver frame", "conn", c.ID, "type", f.Type, "err", err)
	}
}
