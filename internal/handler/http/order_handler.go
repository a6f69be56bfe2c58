package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"
	"github.com/vasiliy-maslov/shop-backend/internal/order"
)

type CreateOrderRequest struct {
	ItemIDs []string `json:"item_ids,omitempty" validate:"omitempty,dive,uuid4"`
}

type BulkTransitionRequest struct {
	OrderIDs []string `json:"order_ids" validate:"required,min=1,dive,uuid4"`
	Status   string   `json:"status" validate:"required,oneof=accepted rejected"`
}

type OrderHandler struct {
	service  order.Service
	validate *validator.Validate
}

func NewOrderHandler(service order.Service) *OrderHandler {
	return &OrderHandler{
		service:  service,
		validate: validator.New(),
	}
}

func (h *OrderHandler) RegisterRoutes(router chi.Router) {
	router.Post("/orders", h.handleCreateOrder)
	router.Get("/orders/{id}", h.handleGetOrder)
	router.Post("/orders/{id}/receipt", h.handleUploadReceipt)
}

// RegisterAdminRoutes mounts the back-office endpoints. The fronting proxy is
// expected to restrict who reaches them.
func (h *OrderHandler) RegisterAdminRoutes(router chi.Router) {
	router.Post("/admin/orders/transition", h.handleBulkTransition)
}

func (h *OrderHandler) handleCreateOrder(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFromContext(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "missing user identity")
		return
	}

	var requestPayload CreateOrderRequest

	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()

	// An empty body means "order the whole cart".
	if err := decoder.Decode(&requestPayload); err != nil && !errors.Is(err, io.EOF) {
		log.Error().Err(err).Msg("Failed to decode request body")
		respondWithError(w, http.StatusBadRequest, fmt.Sprintf("Invalid request payload %v", err))
		return
	}

	if err := h.validate.Struct(requestPayload); err != nil {
		respondWithValidationError(w, err)
		return
	}

	itemIDs, err := parseUUIDs(requestPayload.ItemIDs)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid item_ids")
		return
	}

	placed, err := h.service.PlaceOrder(r.Context(), userID, itemIDs)
	if err != nil {
		respondWithDomainError(w, err)
		return
	}

	respondWithJSON(w, http.StatusCreated, placed)
}

func (h *OrderHandler) handleGetOrder(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFromContext(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "missing user identity")
		return
	}

	orderID, err := uuid.FromString(chi.URLParam(r, "id"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid order id")
		return
	}

	o, err := h.service.GetOrder(r.Context(), userID, orderID)
	if err != nil {
		respondWithDomainError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, o)
}

func (h *OrderHandler) handleUploadReceipt(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFromContext(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "missing user identity")
		return
	}

	orderID, err := uuid.FromString(chi.URLParam(r, "id"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid order id")
		return
	}

	if err := r.ParseMultipartForm(order.MaxReceiptSize); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	file, header, err := r.FormFile("receipt")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "receipt file is required")
		return
	}
	defer file.Close()

	o, err := h.service.AttachReceipt(r.Context(), userID, orderID, header.Filename, header.Size, file)
	if err != nil {
		respondWithDomainError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, o)
}

func (h *OrderHandler) handleBulkTransition(w http.ResponseWriter, r *http.Request) {
	var requestPayload BulkTransitionRequest

	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()

	if err := decoder.Decode(&requestPayload); err != nil {
		log.Error().Err(err).Msg("Failed to decode request body")
		respondWithError(w, http.StatusBadRequest, fmt.Sprintf("Invalid request payload %v", err))
		return
	}

	if err := h.validate.Struct(requestPayload); err != nil {
		respondWithValidationError(w, err)
		return
	}

	orderIDs, err := parseUUIDs(requestPayload.OrderIDs)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid order_ids")
		return
	}

	results := h.service.BulkTransition(r.Context(), orderIDs, order.Status(requestPayload.Status))

	succeeded := 0
	for _, res := range results {
		if res.OK {
			succeeded++
		}
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"succeeded": succeeded,
		"failed":    len(results) - succeeded,
		"results":   results,
	})
}

func parseUUIDs(raw []string) ([]uuid.UUID, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	ids := make([]uuid.UUID, 0, len(raw))
	for _, s := range raw {
		id, err := uuid.FromString(s)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}
