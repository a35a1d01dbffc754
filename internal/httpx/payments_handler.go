package httpx

import (
	"context"
	"net/http"

	"github.com/ariefcatur/go-storefront/internal/app"
	"github.com/ariefcatur/go-storefront/internal/orders"
	"github.com/ariefcatur/go-storefront/internal/payment"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

func (h *Handler) tracker(r *http.Request, c *app.Context) (*payment.Tracker, error) {
	return payment.NewTracker(c.API, chi.URLParam(r, "ref"), payment.WithLogger(c.Log))
}

// paymentStatus serves the status screen, from the cache when it holds a
// row owned by the caller.
func (h *Handler) paymentStatus(w http.ResponseWriter, r *http.Request) {
	c := contextOf(r)
	tr, err := h.tracker(r, c)
	if err != nil {
		writeError(w, err)
		return
	}
	if tx, ok := h.cached(r.Context(), c, chi.URLParam(r, "ref")); ok {
		tr.Seed(tx)
		writeJSON(w, http.StatusOK, tr.Snapshot())
		return
	}
	h.check(w, r, c, tr)
}

// checkPayment is the "check again" button: always asks the backend.
func (h *Handler) checkPayment(w http.ResponseWriter, r *http.Request) {
	c := contextOf(r)
	tr, err := h.tracker(r, c)
	if err != nil {
		writeError(w, err)
		return
	}
	if tx, ok := h.cached(r.Context(), c, tr.Snapshot().ReferenceID); ok {
		tr.Seed(tx) // phase to restore if the check fails
	}
	h.check(w, r, c, tr)
}

func (h *Handler) check(w http.ResponseWriter, r *http.Request, c *app.Context, tr *payment.Tracker) {
	var snap payment.Snapshot
	err := h.call(r, func(ctx context.Context) (err error) {
		snap, err = tr.Check(ctx)
		return err
	})
	if err != nil {
		// the screen keeps rendering the previous phase plus the message
		writeJSON(w, statusFor(err), snap)
		return
	}
	if h.Status != nil {
		if err := h.Status.Put(r.Context(), c.Session.Identity().Username, tr.Transaction()); err != nil {
			c.Log.Warn("cache payment status", zap.String("reference_id", snap.ReferenceID), zap.Error(err))
		}
	}
	writeJSON(w, http.StatusOK, snap)
}

func (h *Handler) cached(ctx context.Context, c *app.Context, ref string) (orders.Transaction, bool) {
	if h.Status == nil {
		return orders.Transaction{}, false
	}
	tx, owner, ok, err := h.Status.Get(ctx, ref)
	if err != nil {
		c.Log.Warn("read payment status cache", zap.String("reference_id", ref), zap.Error(err))
		return orders.Transaction{}, false
	}
	if !ok || owner != c.Session.Identity().Username {
		return orders.Transaction{}, false
	}
	return tx, true
}

type orderResp struct {
	orders.Order
	Badge orders.Badge `json:"badge"`
}

func withBadge(o orders.Order) orderResp {
	b, _ := orders.OrderBadge(o.Status)
	return orderResp{Order: o, Badge: b}
}

func (h *Handler) listOrders(w http.ResponseWriter, r *http.Request) {
	var list []orders.Order
	err := h.call(r, func(ctx context.Context) (err error) {
		list, err = contextOf(r).API.ListOrders(ctx)
		return err
	})
	if err != nil {
		writeError(w, err)
		return
	}
	out := make([]orderResp, 0, len(list))
	for _, o := range list {
		out = append(out, withBadge(o))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request) {
	ref := chi.URLParam(r, "ref")
	if !payment.ValidReference(ref) {
		writeError(w, payment.ErrInvalidReference)
		return
	}
	var o orders.Order
	err := h.call(r, func(ctx context.Context) (err error) {
		o, err = contextOf(r).API.GetOrder(ctx, ref)
		return err
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, withBadge(o))
}
