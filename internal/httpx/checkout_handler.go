package httpx

import (
	"context"
	"net/http"

	"github.com/ariefcatur/go-storefront/internal/checkout"
	kafkax "github.com/ariefcatur/go-storefront/internal/kafka"
	"github.com/ariefcatur/go-storefront/internal/orders"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

const IdempotencyHeader = "Idempotency-Key"

type checkoutReq struct {
	ItemIDs     []string           `json:"item_ids"` // empty: current cart selection
	AddressID   string             `json:"address_id"`
	ShippingID  string             `json:"shipping_id"`
	Tab         checkout.Tab       `json:"tab"`
	ChannelCode string             `json:"channel_code"`
	PaymentType orders.PaymentType `json:"payment_type"`
}

type checkoutPreviewResp struct {
	Items           []orders.CartItem         `json:"items"`
	Addresses       []orders.Address          `json:"addresses"`
	AddressID       string                    `json:"address_id"`
	ShippingOptions []checkout.ShippingOption `json:"shipping_options"`
	ShippingID      string                    `json:"shipping_id"`
	Tab             checkout.Tab              `json:"tab"`
	ChannelCode     string                    `json:"channel_code"`
	Methods         []checkout.PaymentMethod  `json:"methods"`
	Summary         checkout.Summary          `json:"summary"`
}

type checkoutSubmitResp struct {
	checkout.Outcome
	Idempotent bool `json:"idempotent"`
}

// compose flushes pending cart syncs, loads a composer for the request and
// applies the selections in order: address, shipping, tab, channel, payment
// type.
func (h *Handler) compose(w http.ResponseWriter, r *http.Request) (*checkout.Composer, bool) {
	var req checkoutReq
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return nil, false
	}
	c := contextOf(r)
	// quantities still inside the debounce window must reach the backend
	// before the composer reads the cart
	if err := c.Cart.Flush(r.Context()); err != nil {
		writeError(w, err)
		return nil, false
	}
	ids := req.ItemIDs
	if len(ids) == 0 {
		if err := h.ensureCart(r, false); err != nil {
			writeError(w, err)
			return nil, false
		}
		ids = c.Cart.Selected()
	}
	comp := checkout.NewComposer(c.API, ids,
		checkout.WithShipping(h.shipping()),
		checkout.WithAdminFee(h.AdminFee),
		checkout.WithLogger(c.Log),
	)
	if err := h.call(r, comp.Load); err != nil {
		writeError(w, err)
		return nil, false
	}

	steps := []struct {
		set bool
		fn  func() error
	}{
		{req.AddressID != "", func() error { return comp.SelectAddress(req.AddressID) }},
		{req.ShippingID != "", func() error { return comp.SelectShipping(req.ShippingID) }},
		{req.Tab != "", func() error { return comp.SelectTab(req.Tab) }},
		{req.ChannelCode != "", func() error { return comp.SelectChannel(req.ChannelCode) }},
		{req.PaymentType != "", func() error { return comp.SetPaymentType(req.PaymentType) }},
	}
	for _, s := range steps {
		if !s.set {
			continue
		}
		if err := s.fn(); err != nil {
			writeError(w, err)
			return nil, false
		}
	}
	return comp, true
}

func (h *Handler) checkoutPreview(w http.ResponseWriter, r *http.Request) {
	comp, ok := h.compose(w, r)
	if !ok {
		return
	}
	resp := checkoutPreviewResp{
		Items:           comp.Items(),
		Addresses:       comp.Addresses(),
		ShippingOptions: comp.ShippingOptions(),
		Summary:         comp.Summary(),
	}
	if a, ok := comp.Address(); ok {
		resp.AddressID = a.ID
	}
	if s, ok := comp.Shipping(); ok {
		resp.ShippingID = s.ID
	}
	resp.Tab, resp.ChannelCode = comp.Payment()
	resp.Methods = checkout.MethodsFor(resp.Tab)
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) checkoutSubmit(w http.ResponseWriter, r *http.Request) {
	comp, ok := h.compose(w, r)
	if !ok {
		return
	}
	c := contextOf(r)
	username := c.Session.Identity().Username
	key := r.Header.Get(IdempotencyHeader)
	sub := &checkout.Submitter{Store: h.Attempts, Locker: h.Locker}

	var (
		out     checkout.Outcome
		existed bool
	)
	err := h.call(r, func(ctx context.Context) (err error) {
		out, existed, err = sub.Submit(ctx, comp, key, username)
		return err
	})
	if err != nil && out.Payment.ReferenceID == "" {
		writeError(w, err)
		return
	}
	if err != nil {
		// payment exists upstream even though the attempt row failed
		c.Log.Error("record payment attempt", zap.String("reference_id", out.Payment.ReferenceID), zap.Error(err))
	}

	if !existed {
		h.announce(r, username, key, comp.Summary(), out)
		// the backend moves paid items out of the cart
		if err := h.ensureCart(r, true); err != nil {
			c.Log.Warn("reload cart after checkout", zap.Error(err))
		}
	}
	code := http.StatusCreated
	if existed {
		code = http.StatusOK
	}
	writeJSON(w, code, checkoutSubmitResp{Outcome: out, Idempotent: existed})
}

// announce caches the fresh payment and publishes PaymentCreated for the
// watcher.
func (h *Handler) announce(r *http.Request, username, key string, sum checkout.Summary, out checkout.Outcome) {
	ctx := context.WithoutCancel(r.Context())
	p := out.Payment
	a, _ := p.FirstAction()
	status := p.Status
	if status == "" {
		status = orders.PaymentPending
	}
	if h.Status != nil {
		tx := orders.Transaction{
			ReferenceID:  p.ReferenceID,
			Status:       status,
			ChannelCode:  p.ChannelCode,
			Subtotal:     sum.Subtotal,
			ShippingCost: sum.Shipping,
			Tax:          sum.AdminFee,
			Total:        sum.Total,
			Actions:      p.Actions,
		}
		if err := h.Status.Put(ctx, username, tx); err != nil {
			h.log().Warn("cache payment status", zap.String("reference_id", p.ReferenceID), zap.Error(err))
		}
	}
	if h.Events == nil {
		return
	}
	env, err := kafkax.PublishEnvelope(h.Events, orders.EventPaymentCreated, h.Service, p.ReferenceID, orders.PaymentCreatedPayload{
		ReferenceID: p.ReferenceID,
		ExternalID:  key,
		Username:    username,
		ChannelCode: p.ChannelCode,
		Descriptor:  a.Descriptor,
		Total:       sum.Total,
	})
	if err != nil {
		h.log().Error("publish payment created", zap.String("reference_id", p.ReferenceID), zap.Error(err))
		return
	}
	h.log().Info("payment created",
		zap.String("reference_id", p.ReferenceID),
		zap.String("event_id", env.EventID),
		zap.String("request_id", middleware.GetReqID(r.Context())))
}
