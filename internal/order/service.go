package order

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"

	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"github.com/vasiliy-maslov/shop-backend/internal/cart"
	"github.com/vasiliy-maslov/shop-backend/internal/catalog"
	"github.com/vasiliy-maslov/shop-backend/internal/inventory"
	"github.com/vasiliy-maslov/shop-backend/internal/payment"
	"github.com/vasiliy-maslov/shop-backend/internal/storage"
)

// MaxReceiptSize ограничивает размер загружаемого чека.
const MaxReceiptSize = 5 << 20 // 5 MB

var (
	ErrEmptyCart     = errors.New("cart is empty or no items matched")
	ErrFileTooLarge  = fmt.Errorf("receipt file exceeds %d bytes", MaxReceiptSize)
	ErrInvalidStatus = errors.New("status must be accepted or rejected")
)

// PlacedOrder is the order snapshot returned by PlaceOrder, together with the
// payment instructions the buyer needs next.
type PlacedOrder struct {
	*Order
	PaymentQRs []payment.QR `json:"payment_qrs"`
}

// TransitionResult is one entry of a bulk transition report.
type TransitionResult struct {
	OrderID uuid.UUID `json:"order_id"`
	OK      bool      `json:"ok"`
	Error   string    `json:"error,omitempty"`
}

type Service interface {
	// PlaceOrder converts the user's cart (or an explicit subset of its
	// items) into an immutable order. Stock is checked but not decremented;
	// the decrement happens on acceptance.
	PlaceOrder(ctx context.Context, userID uuid.UUID, itemIDs []uuid.UUID) (*PlacedOrder, error)
	GetOrder(ctx context.Context, userID, orderID uuid.UUID) (*Order, error)
	AttachReceipt(ctx context.Context, userID, orderID uuid.UUID, filename string, size int64, r io.Reader) (*Order, error)
	// TransitionStatus is the only way a status changes; writing the column
	// directly would bypass the inventory commit.
	TransitionStatus(ctx context.Context, orderID uuid.UUID, newStatus Status) error
	BulkTransition(ctx context.Context, orderIDs []uuid.UUID, newStatus Status) []TransitionResult
}

type service struct {
	repo     Repository
	carts    cart.Repository
	stock    inventory.Store
	payments payment.Repository
	receipts storage.Provider
}

func NewService(repo Repository, carts cart.Repository, stock inventory.Store, payments payment.Repository, receipts storage.Provider) Service {
	return &service{
		repo:     repo,
		carts:    carts,
		stock:    stock,
		payments: payments,
		receipts: receipts,
	}
}

func (s *service) PlaceOrder(ctx context.Context, userID uuid.UUID, itemIDs []uuid.UUID) (*PlacedOrder, error) {
	userCart, err := s.carts.GetOrCreate(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("service: failed to get cart: %w", err)
	}

	var items []cart.ItemDetail
	if len(itemIDs) > 0 {
		itemIDs = dedupe(itemIDs)
		items, err = s.carts.ListItemsByIDs(ctx, userCart.ID, itemIDs)
		if err != nil {
			return nil, fmt.Errorf("service: failed to resolve cart items: %w", err)
		}
		if len(items) != len(itemIDs) {
			// Some requested ids are missing or belong to another cart.
			return nil, cart.ErrItemNotFound
		}
	} else {
		items, err = s.carts.ListItems(ctx, userCart.ID)
		if err != nil {
			return nil, fmt.Errorf("service: failed to list cart items: %w", err)
		}
	}

	if len(items) == 0 {
		return nil, ErrEmptyCart
	}

	keys := make([]inventory.Key, 0, len(items))
	for _, it := range items {
		keys = append(keys, inventory.Key{ProductID: it.ProductID, SizeID: it.SizeID})
	}
	stocks, err := s.stock.GetStocks(ctx, keys)
	if err != nil {
		return nil, fmt.Errorf("service: failed to read stocks: %w", err)
	}

	for _, it := range items {
		available := stocks[inventory.Key{ProductID: it.ProductID, SizeID: it.SizeID}]
		if available < it.Quantity {
			return nil, &inventory.InsufficientStockError{
				ProductName: it.ProductName,
				SizeName:    it.SizeName,
				Available:   available,
				Requested:   it.Quantity,
			}
		}
	}

	// Snapshot prices now; the order never re-reads the catalog.
	total := decimal.Zero
	orderItems := make([]Item, 0, len(items))
	consumedIDs := make([]uuid.UUID, 0, len(items))
	for _, it := range items {
		price := catalog.FinalPrice(it.Price, it.DiscountPercent)
		total = total.Add(price.Mul(decimal.NewFromInt(int64(it.Quantity))))

		orderItems = append(orderItems, Item{
			ProductID:   it.ProductID,
			ProductName: it.ProductName,
			SizeID:      it.SizeID,
			SizeName:    it.SizeName,
			Quantity:    it.Quantity,
			Price:       price,
		})
		consumedIDs = append(consumedIDs, it.ID)
	}

	o := &Order{
		UserID: userID,
		Total:  total,
		Status: StatusInProgress,
		Items:  orderItems,
	}

	if err := s.repo.Create(ctx, o, consumedIDs); err != nil {
		return nil, fmt.Errorf("service: failed to create order: %w", err)
	}

	log.Info().
		Stringer("order_id", o.ID).
		Stringer("user_id", userID).
		Str("total", total.String()).
		Int("items", len(orderItems)).
		Msg("service: order placed")

	qrs, err := s.payments.List(ctx)
	if err != nil {
		// The order already exists; missing payment instructions must not
		// fail the request.
		log.Warn().Err(err).Stringer("order_id", o.ID).Msg("service: failed to list payment QRs")
		qrs = []payment.QR{}
	}

	return &PlacedOrder{Order: o, PaymentQRs: qrs}, nil
}

func (s *service) GetOrder(ctx context.Context, userID, orderID uuid.UUID) (*Order, error) {
	o, err := s.repo.GetByIDForUser(ctx, orderID, userID)
	if err != nil {
		if errors.Is(err, ErrOrderNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("service: failed to fetch order: %w", err)
	}
	return o, nil
}

func (s *service) AttachReceipt(ctx context.Context, userID, orderID uuid.UUID, filename string, size int64, r io.Reader) (*Order, error) {
	o, err := s.repo.GetByIDForUser(ctx, orderID, userID)
	if err != nil {
		return nil, err
	}
	if o.Status != StatusInProgress {
		return nil, ErrOrderNotEditable
	}
	if size > MaxReceiptSize {
		return nil, ErrFileTooLarge
	}

	objectName := fmt.Sprintf("%s_%s", o.ID, filepath.Base(filename))
	ref, err := s.receipts.Save(ctx, objectName, io.LimitReader(r, MaxReceiptSize))
	if err != nil {
		return nil, fmt.Errorf("service: failed to store receipt: %w", err)
	}

	if err := s.repo.SetReceipt(ctx, o.ID, ref); err != nil {
		return nil, err
	}

	log.Info().Stringer("order_id", o.ID).Str("receipt", ref).Msg("service: receipt attached")

	return s.repo.GetByIDForUser(ctx, orderID, userID)
}

func (s *service) TransitionStatus(ctx context.Context, orderID uuid.UUID, newStatus Status) error {
	var err error
	switch newStatus {
	case StatusAccepted:
		err = s.repo.Accept(ctx, orderID)
	case StatusRejected:
		err = s.repo.Reject(ctx, orderID)
	default:
		return ErrInvalidStatus
	}

	if err != nil {
		log.Warn().Err(err).Stringer("order_id", orderID).Stringer("new_status", newStatus).
			Msg("service: status transition failed")
		return err
	}

	log.Info().Stringer("order_id", orderID).Stringer("new_status", newStatus).
		Msg("service: order status updated")
	return nil
}

func (s *service) BulkTransition(ctx context.Context, orderIDs []uuid.UUID, newStatus Status) []TransitionResult {
	results := make([]TransitionResult, 0, len(orderIDs))
	for _, id := range orderIDs {
		res := TransitionResult{OrderID: id, OK: true}
		if err := s.TransitionStatus(ctx, id, newStatus); err != nil {
			res.OK = false
			res.Error = err.Error()
		}
		results = append(results, res)
	}
	return results
}

func dedupe(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]bool, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}
