package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/ariefcatur/go-storefront/internal/orders"
)

// Kind names an admin-managed collection.
type Kind string

const (
	KindUsers        Kind = "users"
	KindStores       Kind = "stores"
	KindProducts     Kind = "products"
	KindTransactions Kind = "transactions"
)

func (k Kind) Valid() bool {
	switch k {
	case KindUsers, KindStores, KindProducts, KindTransactions:
		return true
	}
	return false
}

func (c *Client) AdminUsers(ctx context.Context) ([]orders.User, error) {
	var out []orders.User
	_, err := c.do(ctx, http.MethodGet, "/admin/users", nil, nil, &out)
	return out, err
}

func (c *Client) AdminStores(ctx context.Context) ([]orders.Store, error) {
	var out []orders.Store
	_, err := c.do(ctx, http.MethodGet, "/admin/stores", nil, nil, &out)
	return out, err
}

func (c *Client) AdminProducts(ctx context.Context) ([]orders.Product, error) {
	var out []orders.Product
	_, err := c.do(ctx, http.MethodGet, "/admin/products", nil, nil, &out)
	return out, err
}

func (c *Client) AdminTransactions(ctx context.Context) ([]orders.Transaction, error) {
	var out []orders.Transaction
	_, err := c.do(ctx, http.MethodGet, "/admin/transactions", nil, nil, &out)
	return out, err
}

func (c *Client) SetEnabled(ctx context.Context, kind Kind, id string, enabled bool) error {
	if !kind.Valid() {
		return fmt.Errorf("unknown admin kind %q", kind)
	}
	action := "disable"
	if enabled {
		action = "enable"
	}
	_, err := c.do(ctx, http.MethodPatch, "/admin/"+string(kind)+"/"+escape(id)+"/"+action, nil, nil, nil)
	return err
}

func (c *Client) AdminDelete(ctx context.Context, kind Kind, id string) error {
	if !kind.Valid() {
		return fmt.Errorf("unknown admin kind %q", kind)
	}
	_, err := c.do(ctx, http.MethodDelete, "/admin/"+string(kind)+"/"+escape(id), nil, nil, nil)
	return err
}
