package api

import (
	"context"
	"net/http"
	"net/url"

	"github.com/ariefcatur/go-storefront/internal/orders"
	"github.com/shopspring/decimal"
)

type ProductQuery struct {
	Search   string
	Category string
}

func (q ProductQuery) values() url.Values {
	v := url.Values{}
	if q.Search != "" {
		v.Set("search", q.Search)
	}
	if q.Category != "" {
		v.Set("category", q.Category)
	}
	return v
}

func (c *Client) ListProducts(ctx context.Context, q ProductQuery) ([]orders.Product, error) {
	var out []orders.Product
	_, err := c.do(ctx, http.MethodGet, "/products", q.values(), nil, &out)
	return out, err
}

func (c *Client) GetProduct(ctx context.Context, id string) (orders.Product, error) {
	var out orders.Product
	_, err := c.do(ctx, http.MethodGet, "/products/"+escape(id), nil, nil, &out)
	return out, err
}

func (c *Client) ListCategories(ctx context.Context) ([]orders.Category, error) {
	var out []orders.Category
	_, err := c.do(ctx, http.MethodGet, "/products/categories", nil, nil, &out)
	return out, err
}

func (c *Client) ListStoreProducts(ctx context.Context, storeID string) ([]orders.Product, error) {
	var out []orders.Product
	_, err := c.do(ctx, http.MethodGet, "/products/store/"+escape(storeID), nil, nil, &out)
	return out, err
}

// ProductInput is the create/update body used by seller screens.
type ProductInput struct {
	Title       string          `json:"title"`
	Description string          `json:"description,omitempty"`
	SKU         string          `json:"sku"`
	Category    string          `json:"category,omitempty"`
	Thumbnail   string          `json:"thumbnail,omitempty"`
	Price       decimal.Decimal `json:"price"`
	Stock       int             `json:"stock"`
	StoreID     string          `json:"store_id"`
}

func (c *Client) CreateProduct(ctx context.Context, in ProductInput) (orders.Product, error) {
	var out orders.Product
	_, err := c.do(ctx, http.MethodPost, "/products", nil, in, &out)
	return out, err
}

func (c *Client) UpdateProduct(ctx context.Context, id string, in ProductInput) (orders.Product, error) {
	var out orders.Product
	_, err := c.do(ctx, http.MethodPut, "/products/"+escape(id), nil, in, &out)
	return out, err
}

func (c *Client) DeleteProduct(ctx context.Context, id string) error {
	_, err := c.do(ctx, http.MethodDelete, "/products/"+escape(id), nil, nil, nil)
	return err
}
