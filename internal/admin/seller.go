package admin

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ariefcatur/go-storefront/internal/api"
	"github.com/ariefcatur/go-storefront/internal/orders"
)

var ErrInvalidProduct = errors.New("invalid product")

type SellerBackend interface {
	ListStoreProducts(ctx context.Context, storeID string) ([]orders.Product, error)
	CreateProduct(ctx context.Context, in api.ProductInput) (orders.Product, error)
	UpdateProduct(ctx context.Context, id string, in api.ProductInput) (orders.Product, error)
	DeleteProduct(ctx context.Context, id string) error
}

// Seller is the product table of one store.
type Seller struct {
	b       SellerBackend
	storeID string

	Products *View[orders.Product]
}

func NewSeller(b SellerBackend, storeID string) *Seller {
	fetch := func(ctx context.Context) ([]orders.Product, error) { return b.ListStoreProducts(ctx, storeID) }
	return &Seller{
		b:        b,
		storeID:  storeID,
		Products: NewView("store products", fetch, productID, productTabs()...),
	}
}

func (s *Seller) StoreID() string { return s.storeID }

func (s *Seller) Refresh(ctx context.Context) error { return s.Products.Refresh(ctx) }

func (s *Seller) Create(ctx context.Context, in api.ProductInput) error {
	in.StoreID = s.storeID
	if err := validateProduct(in); err != nil {
		return err
	}
	return s.Products.Mutate(ctx, func(ctx context.Context) error {
		_, err := s.b.CreateProduct(ctx, in)
		return err
	})
}

func (s *Seller) Update(ctx context.Context, id string, in api.ProductInput) error {
	in.StoreID = s.storeID
	if err := validateProduct(in); err != nil {
		return err
	}
	return s.Products.Mutate(ctx, func(ctx context.Context) error {
		_, err := s.b.UpdateProduct(ctx, id, in)
		return err
	})
}

func (s *Seller) Delete(ctx context.Context, id string) error {
	return s.Products.Mutate(ctx, func(ctx context.Context) error {
		return s.b.DeleteProduct(ctx, id)
	})
}

func validateProduct(in api.ProductInput) error {
	switch {
	case strings.TrimSpace(in.Title) == "":
		return fmt.Errorf("%w: title is required", ErrInvalidProduct)
	case in.Price.IsNegative():
		return fmt.Errorf("%w: price must not be negative", ErrInvalidProduct)
	case in.Stock < 0:
		return fmt.Errorf("%w: stock must not be negative", ErrInvalidProduct)
	}
	return nil
}
