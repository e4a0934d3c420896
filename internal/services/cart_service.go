package services

import (
	"context"
	"errors"
	"fmt"

	"storefront/internal/models"
	"storefront/internal/repositories"
	"storefront/pkg/currency"

	"github.com/shopspring/decimal"
)

// CartService reads and mutates a user's cart. Every mutation returns the cart as re-read from
// the store, never a locally patched copy.
type CartService struct {
	store repositories.Store
}

// NewCartService creates a new CartService.
func NewCartService(store repositories.Store) *CartService {
	return &CartService{store: store}
}

// BuildCartView joins cart items with their products and totals them.
// Items whose product no longer exists are skipped.
func BuildCartView(items []models.CartItem) models.CartView {
	view := models.CartView{Items: make([]models.CartLine, 0, len(items)), Total: decimal.Zero}
	for _, item := range items {
		if item.Product == nil {
			continue
		}
		subtotal := item.Subtotal()
		view.Items = append(view.Items, models.CartLine{
			ID:        item.ID,
			ProductID: item.ProductID,
			Name:      item.Product.Name,
			ImageURL:  item.Product.ImageURL,
			Price:     item.Product.Price,
			Stock:     item.Product.Stock,
			Quantity:  item.Quantity,
			Subtotal:  subtotal,
		})
		view.Total = view.Total.Add(subtotal)
	}
	view.TotalDisplay = currency.FormatVND(view.Total)
	return view
}

// GetCart returns the caller's cart joined with live product data.
func (s *CartService) GetCart(ctx context.Context, id models.Identity) (*models.CartView, error) {
	if err := requireUser(id); err != nil {
		return nil, err
	}
	items, err := s.store.Carts().ListByUser(ctx, id.UserID)
	if err != nil {
		return nil, storeErr("load cart", err)
	}
	view := BuildCartView(items)
	return &view, nil
}

// AddItem puts quantity units of a product in the cart, merging with an existing line.
// The resulting quantity never exceeds the product's stock.
func (s *CartService) AddItem(ctx context.Context, id models.Identity, productID string, quantity int) (*models.CartView, error) {
	if err := requireUser(id); err != nil {
		return nil, err
	}
	if quantity < 1 {
		return nil, newValidationError("Quantity", "Quantity must be at least 1")
	}

	product, err := s.store.Products().GetByID(ctx, productID)
	if err != nil {
		return nil, storeErr("load product", err)
	}
	if product.Stock < 1 {
		return nil, newValidationError("ProductID", fmt.Sprintf("Product '%s' is out of stock", product.Name))
	}

	existing, err := s.store.Carts().GetByUserAndProduct(ctx, id.UserID, productID)
	switch {
	case err == nil:
		merged := addWithinStock(existing.Quantity, quantity, product.Stock)
		if err := s.store.Carts().UpdateQuantity(ctx, existing.ID, merged); err != nil {
			return nil, storeErr("update cart item", err)
		}
	case errors.Is(err, repositories.ErrNotFound):
		item := &models.CartItem{UserID: id.UserID, ProductID: productID, Quantity: addWithinStock(0, quantity, product.Stock)}
		if err := s.store.Carts().Create(ctx, item); err != nil {
			return nil, storeErr("add cart item", err)
		}
	default:
		return nil, storeErr("load cart item", err)
	}
	return s.GetCart(ctx, id)
}

// addWithinStock returns current+quantity capped at stock, without computing a sum that could overflow.
func addWithinStock(current, quantity, stock int) int {
	if quantity > stock-current {
		return stock
	}
	return current + quantity
}

// SetQuantity changes the quantity of one cart line. Quantities below 1 leave the cart unchanged;
// quantities above the product's stock are clamped to it.
func (s *CartService) SetQuantity(ctx context.Context, id models.Identity, itemID string, quantity int) (*models.CartView, error) {
	if err := requireUser(id); err != nil {
		return nil, err
	}
	if quantity < 1 {
		return s.GetCart(ctx, id)
	}

	item, err := s.ownedItem(ctx, id, itemID)
	if err != nil {
		return nil, err
	}
	if item.Product != nil && quantity > item.Product.Stock {
		quantity = item.Product.Stock
	}
	if quantity >= 1 && quantity != item.Quantity {
		if err := s.store.Carts().UpdateQuantity(ctx, item.ID, quantity); err != nil {
			return nil, storeErr("update cart item", err)
		}
	}
	return s.GetCart(ctx, id)
}

// RemoveItem deletes one cart line.
func (s *CartService) RemoveItem(ctx context.Context, id models.Identity, itemID string) (*models.CartView, error) {
	if err := requireUser(id); err != nil {
		return nil, err
	}
	if _, err := s.ownedItem(ctx, id, itemID); err != nil {
		return nil, err
	}
	if err := s.store.Carts().Delete(ctx, itemID); err != nil {
		return nil, storeErr("remove cart item", err)
	}
	return s.GetCart(ctx, id)
}

// ownedItem loads a cart item, reporting items of other users as not found.
func (s *CartService) ownedItem(ctx context.Context, id models.Identity, itemID string) (*models.CartItem, error) {
	item, err := s.store.Carts().GetByID(ctx, itemID)
	if err != nil {
		return nil, storeErr("load cart item", err)
	}
	if item.UserID != id.UserID {
		return nil, fmt.Errorf("cart item with ID %s: %w", itemID, ErrNotFound)
	}
	return item, nil
}
