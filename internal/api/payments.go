package api

import (
	"context"
	"net/http"

	"github.com/ariefcatur/go-storefront/internal/orders"
)

func (c *Client) CreatePayment(ctx context.Context, channelCode string, req orders.PaymentRequest) (orders.PaymentResponse, error) {
	var out orders.PaymentResponse
	_, err := c.do(ctx, http.MethodPost, "/payments/"+escape(channelCode), nil, req, &out)
	return out, err
}

func (c *Client) GetTransaction(ctx context.Context, referenceID string) (orders.Transaction, error) {
	var out orders.Transaction
	_, err := c.do(ctx, http.MethodGet, "/transaction/"+escape(referenceID), nil, nil, &out)
	return out, err
}

func (c *Client) ListOrders(ctx context.Context) ([]orders.Order, error) {
	var out []orders.Order
	_, err := c.do(ctx, http.MethodGet, "/orders", nil, nil, &out)
	return out, err
}

func (c *Client) GetOrder(ctx context.Context, referenceID string) (orders.Order, error) {
	var out orders.Order
	_, err := c.do(ctx, http.MethodGet, "/orders/"+escape(referenceID), nil, nil, &out)
	return out, err
}
