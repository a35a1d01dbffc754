package api

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/ariefcatur/go-storefront/internal/orders"
)

// ListCarts fetches the user's carts. When itemIDs is non-empty the backend
// returns only those items (checkout slice).
func (c *Client) ListCarts(ctx context.Context, itemIDs []string) ([]orders.Cart, error) {
	var q url.Values
	if len(itemIDs) > 0 {
		q = url.Values{"cartItemIds": {strings.Join(itemIDs, ",")}}
	}
	var out []orders.Cart
	_, err := c.do(ctx, http.MethodGet, "/cart", q, nil, &out)
	return out, err
}

type addCartItemReq struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

func (c *Client) AddCartItem(ctx context.Context, productID string, qty int) (orders.CartItem, error) {
	var out orders.CartItem
	_, err := c.do(ctx, http.MethodPost, "/cart/items", nil, addCartItemReq{ProductID: productID, Quantity: qty}, &out)
	return out, err
}

func (c *Client) RemoveCartItem(ctx context.Context, itemID string) error {
	_, err := c.do(ctx, http.MethodDelete, "/cart/items/"+escape(itemID), nil, nil, nil)
	return err
}

// IncreaseCartItem changes the quantity by amount; a negative amount decreases.
func (c *Client) IncreaseCartItem(ctx context.Context, itemID string, amount int) (orders.CartItem, error) {
	q := url.Values{"amount": {strconv.Itoa(amount)}}
	var out orders.CartItem
	_, err := c.do(ctx, http.MethodPatch, "/cart/items/"+escape(itemID)+"/increase", q, nil, &out)
	return out, err
}
