package httpx

import (
	"context"
	"net/http"

	"github.com/ariefcatur/go-storefront/internal/api"
	"github.com/ariefcatur/go-storefront/internal/checkout"
	"github.com/ariefcatur/go-storefront/internal/orders"
	"github.com/go-chi/chi/v5"
)

func (h *Handler) listProducts(w http.ResponseWriter, r *http.Request) {
	q := api.ProductQuery{Search: r.URL.Query().Get("search"), Category: r.URL.Query().Get("category")}
	ps, err := contextOf(r).API.ListProducts(r.Context(), q)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ps)
}

func (h *Handler) getProduct(w http.ResponseWriter, r *http.Request) {
	p, err := contextOf(r).API.GetProduct(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *Handler) listCategories(w http.ResponseWriter, r *http.Request) {
	cs, err := contextOf(r).API.ListCategories(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, cs)
}

func (h *Handler) shippingOptions(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.shipping())
}

func (h *Handler) shipping() []checkout.ShippingOption {
	if len(h.Shipping) == 0 {
		return checkout.DefaultShipping
	}
	return h.Shipping
}

func (h *Handler) paymentMethods(w http.ResponseWriter, r *http.Request) {
	tab := checkout.Tab(r.URL.Query().Get("tab"))
	if tab == "" {
		writeJSON(w, http.StatusOK, checkout.PaymentMethods)
		return
	}
	if !tab.Valid() {
		writeError(w, checkout.ErrUnknownTab)
		return
	}
	writeJSON(w, http.StatusOK, checkout.MethodsFor(tab))
}

func (h *Handler) listAddresses(w http.ResponseWriter, r *http.Request) {
	var out []orders.Address
	err := h.call(r, func(ctx context.Context) (err error) {
		out, err = contextOf(r).API.ListAddresses(ctx)
		return err
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) createAddress(w http.ResponseWriter, r *http.Request) {
	var req orders.Address
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	var out orders.Address
	err := h.call(r, func(ctx context.Context) (err error) {
		out, err = contextOf(r).API.CreateAddress(ctx, req)
		return err
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, out)
}

func (h *Handler) setDefaultAddress(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	err := h.call(r, func(ctx context.Context) error {
		return contextOf(r).API.SetDefaultAddress(ctx, id)
	})
	if err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
