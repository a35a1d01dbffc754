package api

import (
	"context"
	"net/http"

	"github.com/ariefcatur/go-storefront/internal/orders"
)

func (c *Client) ListAddresses(ctx context.Context) ([]orders.Address, error) {
	var out []orders.Address
	_, err := c.do(ctx, http.MethodGet, "/addresses", nil, nil, &out)
	return out, err
}

func (c *Client) CreateAddress(ctx context.Context, a orders.Address) (orders.Address, error) {
	var out orders.Address
	_, err := c.do(ctx, http.MethodPost, "/addresses", nil, a, &out)
	return out, err
}

// SetDefaultAddress flags id as the default shipping address; the backend
// clears the flag on the others.
func (c *Client) SetDefaultAddress(ctx context.Context, id string) error {
	_, err := c.do(ctx, http.MethodPatch, "/addresses/"+escape(id)+"/default", nil, nil, nil)
	return err
}
