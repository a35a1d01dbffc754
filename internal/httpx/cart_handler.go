package httpx

import (
	"context"
	"net/http"

	"github.com/ariefcatur/go-storefront/internal/cart"
	"github.com/ariefcatur/go-storefront/internal/orders"
	"github.com/go-chi/chi/v5"
)

type cartResp struct {
	Carts    []orders.Cart `json:"carts"`
	Selected []string      `json:"selected"`
	Summary  cart.Summary  `json:"summary"`
}

type itemResp struct {
	Item    orders.CartItem `json:"item"`
	Changed bool            `json:"changed"`
	Pending bool            `json:"pending"`
}

func cartOf(v *cart.View) cartResp {
	return cartResp{Carts: v.Carts(), Selected: v.Selected(), Summary: v.Summary()}
}

// ensureCart loads the mirror on first use or when reload is asked for.
func (h *Handler) ensureCart(r *http.Request, reload bool) error {
	v := contextOf(r).Cart
	if v.Loaded() && !reload {
		return nil
	}
	return h.call(r, v.Load)
}

func (h *Handler) getCart(w http.ResponseWriter, r *http.Request) {
	if err := h.ensureCart(r, r.URL.Query().Get("reload") == "1"); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, cartOf(contextOf(r).Cart))
}

type addItemReq struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

func (h *Handler) addCartItem(w http.ResponseWriter, r *http.Request) {
	var req addItemReq
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.ProductID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing product_id"})
		return
	}
	if req.Quantity <= 0 {
		req.Quantity = 1
	}
	v := contextOf(r).Cart
	err := h.call(r, func(ctx context.Context) error { return v.Add(ctx, req.ProductID, req.Quantity) })
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, cartOf(v))
}

func (h *Handler) increaseCartItem(w http.ResponseWriter, r *http.Request) {
	h.stepCartItem(w, r, (*cart.View).Increase)
}

func (h *Handler) decreaseCartItem(w http.ResponseWriter, r *http.Request) {
	h.stepCartItem(w, r, (*cart.View).Decrease)
}

// stepCartItem applies a +1/-1 locally; the backend sees the net change once
// the debounce window closes.
func (h *Handler) stepCartItem(w http.ResponseWriter, r *http.Request, step func(*cart.View, string) (orders.CartItem, bool, error)) {
	if err := h.ensureCart(r, false); err != nil {
		writeError(w, err)
		return
	}
	v := contextOf(r).Cart
	id := chi.URLParam(r, "id")
	it, changed, err := step(v, id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, itemResp{Item: it, Changed: changed, Pending: v.Pending(id)})
}

func (h *Handler) removeCartItem(w http.ResponseWriter, r *http.Request) {
	if err := h.ensureCart(r, false); err != nil {
		writeError(w, err)
		return
	}
	v := contextOf(r).Cart
	id := chi.URLParam(r, "id")
	if err := h.call(r, func(ctx context.Context) error { return v.Remove(ctx, id) }); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, cartOf(v))
}

type selectReq struct {
	Selected bool `json:"selected"`
}

func (h *Handler) selectCartItem(w http.ResponseWriter, r *http.Request) {
	var req selectReq
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	if err := h.ensureCart(r, false); err != nil {
		writeError(w, err)
		return
	}
	v := contextOf(r).Cart
	if err := v.Select(chi.URLParam(r, "id"), req.Selected); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, cartOf(v))
}

func (h *Handler) selectAll(w http.ResponseWriter, r *http.Request) {
	var req selectReq
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	if err := h.ensureCart(r, false); err != nil {
		writeError(w, err)
		return
	}
	v := contextOf(r).Cart
	v.SelectAll(req.Selected)
	writeJSON(w, http.StatusOK, cartOf(v))
}

func (h *Handler) cartSummary(w http.ResponseWriter, r *http.Request) {
	if err := h.ensureCart(r, false); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, contextOf(r).Cart.Summary())
}

// flushCart pushes pending quantity changes, e.g. before leaving for checkout.
func (h *Handler) flushCart(w http.ResponseWriter, r *http.Request) {
	v := contextOf(r).Cart
	if err := v.Flush(r.Context()); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, cartOf(v))
}
