package favorite

import (
	"context"
	"errors"
	"fmt"

	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"
	"github.com/vasiliy-maslov/shop-backend/internal/catalog"
)

type Service interface {
	// Toggle adds the product to the user's favorites, or removes it when it
	// is already there. Returns the favorite and whether it was added.
	Toggle(ctx context.Context, userID, productID uuid.UUID) (*Favorite, bool, error)
	List(ctx context.Context, userID uuid.UUID) ([]ListEntry, error)
}

type service struct {
	repo     Repository
	products catalog.Repository
}

func NewService(repo Repository, products catalog.Repository) Service {
	return &service{repo: repo, products: products}
}

func (s *service) Toggle(ctx context.Context, userID, productID uuid.UUID) (*Favorite, bool, error) {
	product, err := s.products.GetProductByID(ctx, productID)
	if err != nil {
		return nil, false, err
	}
	if !product.IsActive {
		return nil, false, catalog.ErrProductUnavailable
	}

	existing, err := s.repo.GetByUserProduct(ctx, userID, productID)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, false, fmt.Errorf("service: failed to look up favorite: %w", err)
	}

	if existing != nil {
		if err := s.repo.Delete(ctx, existing.ID); err != nil {
			return nil, false, fmt.Errorf("service: failed to remove favorite: %w", err)
		}
		log.Info().Stringer("user_id", userID).Stringer("product_id", productID).Msg("service: favorite removed")
		return existing, false, nil
	}

	f := &Favorite{UserID: userID, ProductID: productID}
	if err := s.repo.Insert(ctx, f); err != nil {
		return nil, false, fmt.Errorf("service: failed to add favorite: %w", err)
	}
	log.Info().Stringer("user_id", userID).Stringer("product_id", productID).Msg("service: favorite added")
	return f, true, nil
}

func (s *service) List(ctx context.Context, userID uuid.UUID) ([]ListEntry, error) {
	entries, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("service: failed to list favorites: %w", err)
	}
	return entries, nil
}
