package shipments

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/pkg/errors"

	"github.com/BearBump/CargoDock/internal/apperrors"
	"github.com/BearBump/CargoDock/internal/broker/messages"
	"github.com/BearBump/CargoDock/internal/cache"
	"github.com/BearBump/CargoDock/internal/models"
	"github.com/BearBump/CargoDock/internal/realtime"
	"github.com/BearBump/CargoDock/internal/workflow"
)

type Repository interface {
	CreateShipment(ctx context.Context, in models.ShipmentCreateInput) (*models.Shipment, error)
	GetShipmentByID(ctx context.Context, id uint64) (*models.Shipment, error)
	ListShipments(ctx context.Context, limit, offset int) ([]*models.Shipment, error)
	SaveShipment(ctx context.Context, sh *models.Shipment) error
}

// Broadcaster — канал оповещения зрителей; реализуется realtime.Hub.
type Broadcaster interface {
	ShipmentUpdated(shipmentID uint64, status, changedBy string, sh *models.Shipment)
	DocumentUploaded(shipmentID uint64, doc realtime.DocumentRef)
	InspectionStatus(shipmentID uint64, inspectionStatus, notes, inspectedBy string)
	ShipmentRejected(shipmentID uint64, reason, rejectedBy string)
	InventoryCount(shipmentID uint64, receivedQty int32, countedBy string)
}

type Publisher interface {
	Publish(ctx context.Context, key, value []byte) error
}

type Service struct {
	repo       Repository
	engine     *workflow.Engine
	hub        Broadcaster
	cache      cache.BytesCache
	producer   Publisher
	currentTTL time.Duration
}

func New(repo Repository, engine *workflow.Engine, hub Broadcaster, c cache.BytesCache, producer Publisher, currentTTL time.Duration) *Service {
	if engine == nil {
		engine = workflow.New(nil)
	}
	return &Service{
		repo:       repo,
		engine:     engine,
		hub:        hub,
		cache:      c,
		producer:   producer,
		currentTTL: currentTTL,
	}
}

func (s *Service) CreateShipment(ctx context.Context, in models.ShipmentCreateInput) (*models.Shipment, error) {
	if in.OrderRef == "" {
		return nil, errors.New("orderRef is required")
	}
	if in.SupplierRef == "" {
		return nil, errors.New("supplierRef is required")
	}
	if in.Quantity <= 0 {
		return nil, errors.New("quantity must be positive")
	}
	switch in.Status {
	case "", models.StatusPlannedAirfreight, models.StatusPlannedSeafreight:
	default:
		return nil, errors.New("shipment must be created in a planned_* status")
	}
	return s.repo.CreateShipment(ctx, in)
}

func (s *Service) GetShipment(ctx context.Context, id uint64) (*models.Shipment, error) {
	if s.cache != nil && s.currentTTL > 0 {
		if b, ok, err := s.cache.Get(ctx, currentKey(id)); err == nil && ok {
			var sh models.Shipment
			if json.Unmarshal(b, &sh) == nil {
				return &sh, nil
			}
		}
	}

	sh, err := s.repo.GetShipmentByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if sh == nil {
		return nil, &apperrors.NotFoundError{Resource: "shipment", ID: id}
	}
	s.refreshCache(ctx, sh)
	return sh, nil
}

func (s *Service) ListShipments(ctx context.Context, limit, offset int) ([]*models.Shipment, error) {
	return s.repo.ListShipments(ctx, limit, offset)
}

func (s *Service) StartUnloading(ctx context.Context, id uint64, actor string) (*models.Shipment, error) {
	return s.transition(ctx, id, actor, nil, func(rec models.Shipment) (models.Shipment, error) {
		return s.engine.StartUnloading(rec, actor)
	})
}

func (s *Service) CompleteUnloading(ctx context.Context, id uint64, actor string) (*models.Shipment, error) {
	return s.transition(ctx, id, actor, nil, func(rec models.Shipment) (models.Shipment, error) {
		return s.engine.CompleteUnloading(rec, actor)
	})
}

func (s *Service) StartInspection(ctx context.Context, id uint64, inspector string) (*models.Shipment, error) {
	return s.transition(ctx, id, inspector, func(sh *models.Shipment) {
		s.hub.InspectionStatus(id, deref(sh.InspectionStatus), "", deref(sh.InspectedBy))
	}, func(rec models.Shipment) (models.Shipment, error) {
		return s.engine.StartInspection(rec, inspector)
	})
}

func (s *Service) CompleteInspection(ctx context.Context, id uint64, passed bool, notes, inspector string) (*models.Shipment, error) {
	return s.transition(ctx, id, inspector, func(sh *models.Shipment) {
		s.hub.InspectionStatus(id, deref(sh.InspectionStatus), deref(sh.InspectionNotes), deref(sh.InspectedBy))
	}, func(rec models.Shipment) (models.Shipment, error) {
		return s.engine.CompleteInspection(rec, passed, notes, inspector)
	})
}

func (s *Service) StartReceiving(ctx context.Context, id uint64, receiver string) (*models.Shipment, error) {
	return s.transition(ctx, id, receiver, nil, func(rec models.Shipment) (models.Shipment, error) {
		return s.engine.StartReceiving(rec, receiver)
	})
}

func (s *Service) CompleteReceiving(ctx context.Context, id uint64, receivedQty int32, receiver string) (*models.Shipment, error) {
	return s.transition(ctx, id, receiver, func(sh *models.Shipment) {
		if sh.ReceivedQuantity != nil {
			s.hub.InventoryCount(id, *sh.ReceivedQuantity, deref(sh.ReceivedBy))
		}
	}, func(rec models.Shipment) (models.Shipment, error) {
		return s.engine.CompleteReceiving(rec, receivedQty, receiver)
	})
}

func (s *Service) Reject(ctx context.Context, id uint64, reason, actor string) (*models.Shipment, error) {
	if reason == "" {
		return nil, errors.New("rejection reason is required")
	}
	return s.transition(ctx, id, actor, func(sh *models.Shipment) {
		s.hub.ShipmentRejected(id, reason, actor)
	}, func(rec models.Shipment) (models.Shipment, error) {
		return s.engine.Reject(rec, reason, actor)
	})
}

func (s *Service) Store(ctx context.Context, id uint64, actor string) (*models.Shipment, error) {
	return s.transition(ctx, id, actor, nil, func(rec models.Shipment) (models.Shipment, error) {
		return s.engine.Store(rec, actor)
	})
}

func (s *Service) Archive(ctx context.Context, id uint64, actor string) (*models.Shipment, error) {
	return s.transition(ctx, id, actor, nil, func(rec models.Shipment) (models.Shipment, error) {
		return s.engine.Archive(rec, actor)
	})
}

func (s *Service) Unarchive(ctx context.Context, id uint64, actor string) (*models.Shipment, error) {
	return s.transition(ctx, id, actor, nil, func(rec models.Shipment) (models.Shipment, error) {
		return s.engine.Unarchive(rec, actor)
	})
}

// NotifyDocumentUploaded вызывается слоем загрузки файлов (вне этого модуля).
func (s *Service) NotifyDocumentUploaded(ctx context.Context, id uint64, name, url string) error {
	sh, err := s.repo.GetShipmentByID(ctx, id)
	if err != nil {
		return err
	}
	if sh == nil {
		return &apperrors.NotFoundError{Resource: "shipment", ID: id}
	}
	s.hub.DocumentUploaded(id, realtime.DocumentRef{Name: name, URL: url})
	return nil
}

// transition: загрузка -> решение движка -> сохранение -> кэш -> оповещения.
// Отклонённый переход возвращается как ConflictError и НЕ порождает broadcast.
func (s *Service) transition(ctx context.Context, id uint64, actor string, extraNotify func(*models.Shipment), apply func(models.Shipment) (models.Shipment, error)) (*models.Shipment, error) {
	if id == 0 {
		return nil, errors.New("shipmentId is required")
	}

	rec, err := s.repo.GetShipmentByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, &apperrors.NotFoundError{Resource: "shipment", ID: id}
	}

	updated, err := apply(*rec)
	if err != nil {
		return nil, err
	}

	if err := s.repo.SaveShipment(ctx, &updated); err != nil {
		return nil, err
	}

	s.refreshCache(ctx, &updated)

	if s.hub != nil {
		s.hub.ShipmentUpdated(id, updated.Status, actor, &updated)
		if extraNotify != nil {
			extraNotify(&updated)
		}
	}

	s.publishUpdated(ctx, &updated, actor)
	return &updated, nil
}

func (s *Service) refreshCache(ctx context.Context, sh *models.Shipment) {
	if s.cache == nil || s.currentTTL <= 0 {
		return
	}
	b, _ := json.Marshal(sh)
	if err := s.cache.Set(ctx, currentKey(sh.ID), b, s.currentTTL); err != nil {
		slog.Warn("refresh shipment cache", "shipment_id", sh.ID, "err", err)
	}
}

// Публикация в kafka — best effort: доменный переход уже зафиксирован в БД.
func (s *Service) publishUpdated(ctx context.Context, sh *models.Shipment, actor string) {
	if s.producer == nil {
		return
	}
	msg := messages.ShipmentUpdated{
		ShipmentID: sh.ID,
		OrderRef:   sh.OrderRef,
		Status:     sh.Status,
		ChangedBy:  actor,
		ChangedAt:  sh.UpdatedAt,
	}
	b, _ := json.Marshal(msg)
	if err := s.producer.Publish(ctx, []byte(fmt.Sprintf("%d", sh.ID)), b); err != nil {
		slog.Warn("publish shipment.updated", "shipment_id", sh.ID, "err", err)
	}
}

func currentKey(id uint64) string {
	return fmt.Sprintf("shipment:%d:current", id)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
