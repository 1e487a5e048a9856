package order

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/curatedcrate/storefront/internal/domain/box"
	"github.com/curatedcrate/storefront/internal/domain/cart"
	"github.com/curatedcrate/storefront/internal/domain/discount"
	"github.com/curatedcrate/storefront/internal/domain/product"
)

// PlaceOrderRequest holds the input for placing an order.
type PlaceOrderRequest struct {
	UserID          string
	Items           []cart.Item
	ShippingAddress ShippingAddress
	PaymentMethod   string
	DiscountCode    string
	// IdempotencyKey deduplicates client retries. When a previous order by
	// the same user carries the same key, that order is returned instead of
	// placing a new one.
	IdempotencyKey string
}

// PlaceOrderResult holds the placed (or replayed) order.
type PlaceOrderResult struct {
	Order *Order
	// Replayed is true when the order was matched by idempotency key rather
	// than newly created.
	Replayed bool
}

// Service encapsulates order placement business logic: themed-box expansion,
// pricing, discount application, and the transactional commit.
type Service struct {
	products  product.Repository
	boxes     box.Repository
	discounts discount.Validator
	store     Store
}

// NewService creates an order Service with the required domain dependencies.
func NewService(
	products product.Repository,
	boxes box.Repository,
	discounts discount.Validator,
	store Store,
) *Service {
	return &Service{
		products:  products,
		boxes:     boxes,
		discounts: discounts,
		store:     store,
	}
}

// PlaceOrder expands cart items into line items in input order (themed-box
// contents inline at the position of their box entry), prices the order,
// validates an optional discount code, and commits everything in a single
// transaction via the Store. The user's cart is deleted as part of that
// transaction.
func (s *Service) PlaceOrder(ctx context.Context, req PlaceOrderRequest) (*PlaceOrderResult, error) {
	if req.IdempotencyKey != "" {
		prev, err := s.store.FindByIdempotencyKey(ctx, req.UserID, req.IdempotencyKey)
		switch {
		case err == nil:
			return &PlaceOrderResult{Order: prev, Replayed: true}, nil
		case !errors.Is(err, ErrNotFound):
			return nil, errors.Wrap(err, "idempotency lookup")
		}
	}

	if len(req.Items) == 0 {
		return nil, ErrEmptyCart
	}

	var (
		items      []LineItem
		decrements []StockDecrement
		subtotal   = decimal.Zero
	)

	for _, item := range req.Items {
		switch item.Kind {
		case cart.KindThemedBox:
			b, err := s.boxes.GetByID(ctx, item.BoxID)
			if err != nil {
				if errors.Is(err, box.ErrNotFound) {
					return nil, &UnknownItemError{Kind: "themed box", ID: item.BoxID}
				}
				return nil, errors.Wrapf(err, "get themed box %s", item.BoxID)
			}
			if !b.Active {
				return nil, &UnknownItemError{Kind: "themed box", ID: item.BoxID}
			}

			// The box contributes its fixed price; contents are snapshotted
			// at their current prices for the historical record only.
			subtotal = subtotal.Add(b.Price)
			for _, p := range b.Products {
				items = append(items, LineItem{
					ProductID: p.ID,
					Name:      p.Name,
					Image:     p.Thumbnail(),
					UnitPrice: p.Price,
					Quantity:  1,
				})
				decrements = append(decrements, StockDecrement{ProductID: p.ID, Quantity: 1})
			}

		case cart.KindProduct:
			if item.Quantity <= 0 {
				return nil, &InvalidQuantityError{ProductID: item.ProductID}
			}

			p, err := s.products.GetByID(ctx, item.ProductID)
			if err != nil {
				if errors.Is(err, product.ErrNotFound) {
					return nil, &UnknownItemError{Kind: "product", ID: item.ProductID}
				}
				return nil, errors.Wrapf(err, "get product %s", item.ProductID)
			}
			if !p.Active {
				return nil, &UnknownItemError{Kind: "product", ID: item.ProductID}
			}

			qty := decimal.NewFromInt(int64(item.Quantity))
			subtotal = subtotal.Add(p.Price.Mul(qty))
			items = append(items, LineItem{
				ProductID: p.ID,
				Name:      p.Name,
				Image:     p.Thumbnail(),
				UnitPrice: p.Price,
				Quantity:  item.Quantity,
			})
			decrements = append(decrements, StockDecrement{ProductID: p.ID, Quantity: item.Quantity})

		default:
			return nil, errors.Errorf("unsupported cart item kind: %q", item.Kind)
		}
	}

	if len(items) == 0 {
		return nil, ErrEmptyCart
	}

	// Apply a discount when a code is provided. Validation is read-only; the
	// use counter is incremented inside the placement transaction.
	discountAmount := decimal.Zero
	discountCode := ""
	if req.DiscountCode != "" {
		approval, err := s.discounts.Validate(ctx, req.DiscountCode, subtotal)
		if err != nil {
			return nil, err
		}
		discountAmount = approval.Amount
		discountCode = approval.Code
	}

	total := subtotal.Sub(discountAmount)
	if total.IsNegative() {
		total = decimal.Zero
	}

	o := &Order{
		ID:              uuid.New().String(),
		UserID:          req.UserID,
		Items:           items,
		ShippingAddress: req.ShippingAddress,
		PaymentMethod:   req.PaymentMethod,
		Subtotal:        subtotal.Round(2),
		Discount:        discountAmount.Round(2),
		DiscountCode:    discountCode,
		Total:           total.Round(2),
		Status:          StatusProcessing,
		IdempotencyKey:  req.IdempotencyKey,
	}
	if err := s.store.Place(ctx, o, decrements); err != nil {
		// A concurrent retry with the same key can commit between the lookup
		// above and the insert; serve the committed order instead of failing.
		if req.IdempotencyKey != "" && errors.Is(err, ErrIdempotencyConflict) {
			prev, lookupErr := s.store.FindByIdempotencyKey(ctx, req.UserID, req.IdempotencyKey)
			if lookupErr != nil {
				return nil, errors.Wrap(lookupErr, "idempotency conflict lookup")
			}
			return &PlaceOrderResult{Order: prev, Replayed: true}, nil
		}
		return nil, err
	}

	return &PlaceOrderResult{Order: o}, nil
}
