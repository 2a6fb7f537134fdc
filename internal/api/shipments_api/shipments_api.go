package shipments_api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/BearBump/CargoDock/internal/apperrors"
	"github.com/BearBump/CargoDock/internal/models"
	"github.com/BearBump/CargoDock/internal/services/shipments"
)

// Тонкий HTTP-фасад над сервисом: декодирование, вызов, маппинг ошибок.
// Вся доменная логика — в service/engine.
type ShipmentsAPI struct {
	svc *shipments.Service
}

func New(svc *shipments.Service) *ShipmentsAPI {
	return &ShipmentsAPI{svc: svc}
}

func (a *ShipmentsAPI) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/shipments", a.createShipment)
	r.Get("/shipments", a.listShipments)
	r.Get("/shipments/{id}", a.getShipment)

	r.Post("/shipments/{id}/start-unloading", a.startUnloading)
	r.Post("/shipments/{id}/complete-unloading", a.completeUnloading)
	r.Post("/shipments/{id}/start-inspection", a.startInspection)
	r.Post("/shipments/{id}/complete-inspection", a.completeInspection)
	r.Post("/shipments/{id}/start-receiving", a.startReceiving)
	r.Post("/shipments/{id}/complete-receiving", a.completeReceiving)
	r.Post("/shipments/{id}/reject", a.reject)
	r.Post("/shipments/{id}/store", a.store)
	r.Post("/shipments/{id}/archive", a.archive)
	r.Post("/shipments/{id}/unarchive", a.unarchive)
	r.Post("/shipments/{id}/documents", a.documentUploaded)
	return r
}

type createShipmentRequest struct {
	OrderRef    string `json:"order_ref"`
	SupplierRef string `json:"supplier_ref"`
	Quantity    int32  `json:"quantity"`
	Status      string `json:"status,omitempty"`
}

func (a *ShipmentsAPI) createShipment(w http.ResponseWriter, r *http.Request) {
	var req createShipmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	sh, err := a.svc.CreateShipment(r.Context(), models.ShipmentCreateInput{
		OrderRef:    req.OrderRef,
		SupplierRef: req.SupplierRef,
		Quantity:    req.Quantity,
		Status:      req.Status,
	})
	respond(w, sh, err)
}

func (a *ShipmentsAPI) listShipments(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	out, err := a.svc.ListShipments(r.Context(), limit, offset)
	respond(w, out, err)
}

func (a *ShipmentsAPI) getShipment(w http.ResponseWriter, r *http.Request) {
	id, ok := shipmentID(w, r)
	if !ok {
		return
	}
	sh, err := a.svc.GetShipment(r.Context(), id)
	respond(w, sh, err)
}

type transitionRequest struct {
	Actor     string `json:"actor,omitempty"`
	Inspector string `json:"inspector,omitempty"`
	Receiver  string `json:"receiver,omitempty"`

	Passed           bool   `json:"passed,omitempty"`
	Notes            string `json:"notes,omitempty"`
	ReceivedQuantity int32  `json:"received_quantity,omitempty"`
	Reason           string `json:"reason,omitempty"`
}

func decodeTransition(r *http.Request) transitionRequest {
	var req transitionRequest
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&req)
	}
	return req
}

func (a *ShipmentsAPI) startUnloading(w http.ResponseWriter, r *http.Request) {
	id, ok := shipmentID(w, r)
	if !ok {
		return
	}
	req := decodeTransition(r)
	sh, err := a.svc.StartUnloading(r.Context(), id, req.Actor)
	respond(w, sh, err)
}

func (a *ShipmentsAPI) completeUnloading(w http.ResponseWriter, r *http.Request) {
	id, ok := shipmentID(w, r)
	if !ok {
		return
	}
	req := decodeTransition(r)
	sh, err := a.svc.CompleteUnloading(r.Context(), id, req.Actor)
	respond(w, sh, err)
}

func (a *ShipmentsAPI) startInspection(w http.ResponseWriter, r *http.Request) {
	id, ok := shipmentID(w, r)
	if !ok {
		return
	}
	req := decodeTransition(r)
	sh, err := a.svc.StartInspection(r.Context(), id, req.Inspector)
	respond(w, sh, err)
}

func (a *ShipmentsAPI) completeInspection(w http.ResponseWriter, r *http.Request) {
	id, ok := shipmentID(w, r)
	if !ok {
		return
	}
	req := decodeTransition(r)
	sh, err := a.svc.CompleteInspection(r.Context(), id, req.Passed, req.Notes, req.Inspector)
	respond(w, sh, err)
}

func (a *ShipmentsAPI) startReceiving(w http.ResponseWriter, r *http.Request) {
	id, ok := shipmentID(w, r)
	if !ok {
		return
	}
	req := decodeTransition(r)
	sh, err := a.svc.StartReceiving(r.Context(), id, req.Receiver)
	respond(w, sh, err)
}

func (a *ShipmentsAPI) completeReceiving(w http.ResponseWriter, r *http.Request) {
	id, ok := shipmentID(w, r)
	if !ok {
		return
	}
	req := decodeTransition(r)
	sh, err := a.svc.CompleteReceiving(r.Context(), id, req.ReceivedQuantity, req.Receiver)
	respond(w, sh, err)
}

func (a *ShipmentsAPI) reject(w http.ResponseWriter, r *http.Request) {
	id, ok := shipmentID(w, r)
	if !ok {
		return
	}
	req := decodeTransition(r)
	sh, err := a.svc.Reject(r.Context(), id, req.Reason, req.Actor)
	respond(w, sh, err)
}

func (a *ShipmentsAPI) store(w http.ResponseWriter, r *http.Request) {
	id, ok := shipmentID(w, r)
	if !ok {
		return
	}
	req := decodeTransition(r)
	sh, err := a.svc.Store(r.Context(), id, req.Actor)
	respond(w, sh, err)
}

func (a *ShipmentsAPI) archive(w http.ResponseWriter, r *http.Request) {
	id, ok := shipmentID(w, r)
	if !ok {
		return
	}
	req := decodeTransition(r)
	sh, err := a.svc.Archive(r.Context(), id, req.Actor)
	respond(w, sh, err)
}

func (a *ShipmentsAPI) unarchive(w http.ResponseWriter, r *http.Request) {
	id, ok := shipmentID(w, r)
	if !ok {
		return
	}
	req := decodeTransition(r)
	sh, err := a.svc.Unarchive(r.Context(), id, req.Actor)
	respond(w, sh, err)
}

type documentRequest struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

func (a *ShipmentsAPI) documentUploaded(w http.ResponseWriter, r *http.Request) {
	id, ok := shipmentID(w, r)
	if !ok {
		return
	}
	var req documentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Name == "" {
		writeError(w, http.StatusBadRequest, "document name is required")
		return
	}
	if err := a.svc.NotifyDocumentUploaded(r.Context(), id, req.Name, req.URL); err != nil {
		respond(w, nil, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func shipmentID(w http.ResponseWriter, r *http.Request) (uint64, bool) {
	id, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id == 0 {
		writeError(w, http.StatusBadRequest, "invalid shipment id")
		return 0, false
	}
	return id, true
}

func respond(w http.ResponseWriter, body any, err error) {
	if err != nil {
		var conflict *apperrors.ConflictError
		var notFound *apperrors.NotFoundError
		var validation *apperrors.ValidationError
		switch {
		case errors.As(err, &conflict):
			writeError(w, http.StatusConflict, conflict.Error())
		case errors.As(err, &notFound):
			writeError(w, http.StatusNotFound, notFound.Error())
		case errors.As(err, &validation):
			writeError(w, http.StatusUnprocessableEntity, validation.Error())
		default:
			slog.Error("shipments api", "err", err)
			writeError(w, http.StatusInternalServerError, "internal error")
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, code int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}
