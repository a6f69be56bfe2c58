package transport

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/vasiliy-maslov/shop-backend/internal/cart"
	"github.com/vasiliy-maslov/shop-backend/internal/catalog"
	"github.com/vasiliy-maslov/shop-backend/internal/favorite"
	handler "github.com/vasiliy-maslov/shop-backend/internal/handler/http"
	"github.com/vasiliy-maslov/shop-backend/internal/inventory"
	"github.com/vasiliy-maslov/shop-backend/internal/order"
	"github.com/vasiliy-maslov/shop-backend/internal/payment"
	"github.com/vasiliy-maslov/shop-backend/internal/storage"
)

func NewRouter(dbPool *pgxpool.Pool, receipts storage.Provider) *chi.Mux {
	r := chi.NewRouter()
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	})

	catalogRepo := catalog.NewRepository(dbPool)
	stock := inventory.NewStore(dbPool)
	cartRepo := cart.NewRepository(dbPool)
	orderRepo := order.NewRepository(dbPool)
	favoriteRepo := favorite.NewRepository(dbPool)
	paymentRepo := payment.NewRepository(dbPool)

	cartSvc := cart.NewService(cartRepo, catalogRepo, stock)
	orderSvc := order.NewService(orderRepo, cartRepo, stock, paymentRepo, receipts)
	favoriteSvc := favorite.NewService(favoriteRepo, catalogRepo)

	cartHandler := handler.NewCartHandler(cartSvc)
	orderHandler := handler.NewOrderHandler(orderSvc)
	favoriteHandler := handler.NewFavoriteHandler(favoriteSvc)

	r.Group(func(r chi.Router) {
		r.Use(handler.RequireUser)
		cartHandler.RegisterRoutes(r)
		orderHandler.RegisterRoutes(r)
		favoriteHandler.RegisterRoutes(r)
	})

	orderHandler.RegisterAdminRoutes(r)

	return r
}
