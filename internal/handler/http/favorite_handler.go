package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/gofrs/uuid"
	"github.com/vasiliy-maslov/shop-backend/internal/favorite"
)

type FavoriteHandler struct {
	service favorite.Service
}

func NewFavoriteHandler(service favorite.Service) *FavoriteHandler {
	return &FavoriteHandler{service: service}
}

func (h *FavoriteHandler) RegisterRoutes(router chi.Router) {
	router.Get("/favorites", h.handleList)
	router.Post("/favorites/{product_id}", h.handleToggle)
}

func (h *FavoriteHandler) handleList(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFromContext(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "missing user identity")
		return
	}

	entries, err := h.service.List(r.Context(), userID)
	if err != nil {
		respondWithDomainError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, entries)
}

func (h *FavoriteHandler) handleToggle(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFromContext(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "missing user identity")
		return
	}

	productID, err := uuid.FromString(chi.URLParam(r, "product_id"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid product id")
		return
	}

	f, added, err := h.service.Toggle(r.Context(), userID, productID)
	if err != nil {
		respondWithDomainError(w, err)
		return
	}

	if !added {
		respondWithJSON(w, http.StatusOK, map[string]string{"status": "removed"})
		return
	}

	respondWithJSON(w, http.StatusCreated, f)
}
