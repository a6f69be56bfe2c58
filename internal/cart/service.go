package cart

import (
	"context"
	"errors"
	"fmt"

	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"github.com/vasiliy-maslov/shop-backend/internal/catalog"
	"github.com/vasiliy-maslov/shop-backend/internal/inventory"
)

type Service interface {
	GetCart(ctx context.Context, userID uuid.UUID) (*Snapshot, error)
	AddItem(ctx context.Context, userID, productID uuid.UUID, sizeName string, quantity int) (*Snapshot, error)
	UpdateItem(ctx context.Context, userID, itemID uuid.UUID, quantity *int, sizeName *string) (*Snapshot, error)
	RemoveItem(ctx context.Context, userID, itemID uuid.UUID) (*Snapshot, error)
}

type service struct {
	repo     Repository
	products catalog.Repository
	stock    inventory.Store
}

func NewService(repo Repository, products catalog.Repository, stock inventory.Store) Service {
	return &service{
		repo:     repo,
		products: products,
		stock:    stock,
	}
}

func (s *service) GetCart(ctx context.Context, userID uuid.UUID) (*Snapshot, error) {
	cart, err := s.repo.GetOrCreate(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("service: failed to get or create cart: %w", err)
	}

	return s.snapshot(ctx, cart.ID)
}

func (s *service) AddItem(ctx context.Context, userID, productID uuid.UUID, sizeName string, quantity int) (*Snapshot, error) {
	if quantity < 1 {
		return nil, fmt.Errorf("service: quantity must be at least 1, got %d", quantity)
	}

	product, err := s.products.GetProductByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	if !product.IsActive {
		return nil, catalog.ErrProductUnavailable
	}

	size, err := s.products.GetSizeByName(ctx, sizeName)
	if err != nil {
		return nil, err
	}

	cart, err := s.repo.GetOrCreate(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("service: failed to get or create cart: %w", err)
	}

	// The stock check covers the resulting quantity, not the delta: stock may
	// have dropped since the line was first added.
	resulting := quantity
	existing, err := s.repo.GetItemByProductSize(ctx, cart.ID, productID, size.ID)
	if err != nil && !errors.Is(err, ErrItemNotFound) {
		return nil, fmt.Errorf("service: failed to look up existing cart item: %w", err)
	}
	if existing != nil {
		resulting += existing.Quantity
	}

	if err := s.checkStock(ctx, product.Name, product.ID, size, resulting); err != nil {
		return nil, err
	}

	if existing != nil {
		existing.Quantity = resulting
		if err := s.repo.UpdateItem(ctx, existing); err != nil {
			return nil, fmt.Errorf("service: failed to update cart item quantity: %w", err)
		}
	} else {
		item := &Item{CartID: cart.ID, ProductID: productID, SizeID: size.ID, Quantity: quantity}
		if err := s.repo.InsertItem(ctx, item); err != nil {
			return nil, fmt.Errorf("service: failed to insert cart item: %w", err)
		}
	}

	log.Info().
		Stringer("cart_id", cart.ID).
		Stringer("product_id", productID).
		Str("size", size.Name).
		Int("quantity", resulting).
		Msg("service: cart item added")

	return s.snapshot(ctx, cart.ID)
}

func (s *service) UpdateItem(ctx context.Context, userID, itemID uuid.UUID, quantity *int, sizeName *string) (*Snapshot, error) {
	if quantity == nil && sizeName == nil {
		return nil, errors.New("service: nothing to update: provide quantity and/or size")
	}

	cart, err := s.repo.GetOrCreate(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("service: failed to get or create cart: %w", err)
	}

	item, err := s.repo.GetItem(ctx, cart.ID, itemID)
	if err != nil {
		return nil, err
	}

	newQuantity := item.Quantity
	if quantity != nil {
		if *quantity < 1 {
			return nil, fmt.Errorf("service: quantity must be at least 1, got %d", *quantity)
		}
		newQuantity = *quantity
	}

	newSizeID := item.SizeID
	newSizeName := item.SizeName

	if sizeName != nil && *sizeName != item.SizeName {
		size, err := s.products.GetSizeByName(ctx, *sizeName)
		if err != nil {
			return nil, err
		}

		// A distinct line for (product, newSize) may already exist; merging
		// silently would hide a user mistake, so reject it.
		other, err := s.repo.GetItemByProductSize(ctx, cart.ID, item.ProductID, size.ID)
		if err != nil && !errors.Is(err, ErrItemNotFound) {
			return nil, fmt.Errorf("service: failed to look up conflicting cart item: %w", err)
		}
		if other != nil && other.ID != item.ID {
			return nil, ErrDuplicateLineItem
		}

		if err := s.checkStock(ctx, item.ProductName, item.ProductID, size, newQuantity); err != nil {
			return nil, err
		}
		newSizeID = size.ID
		newSizeName = size.Name
	} else if quantity != nil {
		size := &catalog.Size{ID: item.SizeID, Name: item.SizeName}
		if err := s.checkStock(ctx, item.ProductName, item.ProductID, size, newQuantity); err != nil {
			return nil, err
		}
	}

	updated := &Item{
		ID:        item.ID,
		CartID:    cart.ID,
		ProductID: item.ProductID,
		SizeID:    newSizeID,
		Quantity:  newQuantity,
	}
	if err := s.repo.UpdateItem(ctx, updated); err != nil {
		return nil, err
	}

	log.Info().
		Stringer("cart_id", cart.ID).
		Stringer("item_id", item.ID).
		Str("size", newSizeName).
		Int("quantity", newQuantity).
		Msg("service: cart item updated")

	return s.snapshot(ctx, cart.ID)
}

func (s *service) RemoveItem(ctx context.Context, userID, itemID uuid.UUID) (*Snapshot, error) {
	cart, err := s.repo.GetOrCreate(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("service: failed to get or create cart: %w", err)
	}

	if err := s.repo.DeleteItem(ctx, cart.ID, itemID); err != nil {
		return nil, err
	}

	return s.snapshot(ctx, cart.ID)
}

// checkStock fails with InsufficientStockError when the requested quantity
// exceeds what the ledger currently holds. A missing ledger row counts as
// zero stock.
func (s *service) checkStock(ctx context.Context, productName string, productID uuid.UUID, size *catalog.Size, quantity int) error {
	available, err := s.stock.GetStock(ctx, productID, size.ID)
	if err != nil {
		if errors.Is(err, inventory.ErrRecordNotFound) {
			available = 0
		} else {
			return fmt.Errorf("service: failed to read stock: %w", err)
		}
	}

	if quantity > available {
		return &inventory.InsufficientStockError{
			ProductName: productName,
			SizeName:    size.Name,
			Available:   available,
			Requested:   quantity,
		}
	}
	return nil
}

func (s *service) snapshot(ctx context.Context, cartID uuid.UUID) (*Snapshot, error) {
	items, err := s.repo.ListItems(ctx, cartID)
	if err != nil {
		return nil, fmt.Errorf("service: failed to list cart items: %w", err)
	}

	snap := &Snapshot{
		ID:    cartID,
		Items: make([]SnapshotItem, 0, len(items)),
	}

	subtotal := decimal.Zero
	for _, it := range items {
		unitPrice := catalog.FinalPrice(it.Price, it.DiscountPercent)
		lineTotal := unitPrice.Mul(decimal.NewFromInt(int64(it.Quantity)))
		subtotal = subtotal.Add(lineTotal)

		snap.Items = append(snap.Items, SnapshotItem{
			ID:        it.ID,
			ProductID: it.ProductID,
			Product:   it.ProductName,
			Size:      it.SizeName,
			Quantity:  it.Quantity,
			UnitPrice: unitPrice,
			Subtotal:  lineTotal,
		})
	}

	snap.ShippingCost = decimal.Zero
	if len(items) > 0 && subtotal.LessThan(FreeShippingThreshold) {
		snap.ShippingCost = ShippingFee
	}
	snap.Total = subtotal.Add(snap.ShippingCost)

	return snap, nil
}
