// Package checkout composes the selected cart slice, shipping address,
// shipping method and payment method into one payment-creation request.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/ariefcatur/go-storefront/internal/money"
	"github.com/ariefcatur/go-storefront/internal/orders"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var (
	ErrNoItems        = errors.New("checkout has no items")
	ErrNoAddress      = errors.New("no shipping address selected")
	ErrUnknownAddress = errors.New("unknown shipping address")
	ErrNoShipping     = errors.New("no shipping option selected")
	ErrUnknownOption  = errors.New("unknown shipping option")
	ErrNoChannel      = errors.New("no payment channel selected")
	ErrChannelTab     = errors.New("payment channel does not belong to the active tab")
	ErrUnknownTab     = errors.New("unknown payment tab")
	ErrPaymentType    = errors.New("unknown payment type")
)

type Backend interface {
	ListCarts(ctx context.Context, itemIDs []string) ([]orders.Cart, error)
	ListAddresses(ctx context.Context) ([]orders.Address, error)
	CreatePayment(ctx context.Context, channelCode string, req orders.PaymentRequest) (orders.PaymentResponse, error)
}

// Navigation says where the client goes after a successful submission.
type Navigation string

const (
	NavRedirect       Navigation = "redirect"        // full page load to URL
	NavVirtualAccount Navigation = "virtual_account" // VA screen for ReferenceID
	NavQRIS           Navigation = "qris"            // QR screen for ReferenceID
	NavNone           Navigation = "none"
)

type Outcome struct {
	Navigation  Navigation             `json:"navigation"`
	URL         string                 `json:"url,omitempty"`
	ReferenceID string                 `json:"reference_id,omitempty"`
	Payment     orders.PaymentResponse `json:"payment"`
}

// OutcomeOf maps a payment response onto the next navigation.
func OutcomeOf(resp orders.PaymentResponse) Outcome {
	out := Outcome{Navigation: NavNone, Payment: resp}
	a, ok := resp.FirstAction()
	switch {
	case ok && a.Descriptor == orders.DescriptorWebURL:
		out.Navigation, out.URL = NavRedirect, a.Value
	case ok && a.Descriptor == orders.DescriptorVirtualAcct:
		out.Navigation, out.ReferenceID = NavVirtualAccount, resp.ReferenceID
	case resp.ChannelCode == orders.ChannelQRIS:
		out.Navigation, out.ReferenceID = NavQRIS, resp.ReferenceID
	}
	return out
}

type Summary struct {
	Items    int             `json:"items"`
	Subtotal decimal.Decimal `json:"subtotal"`
	Shipping decimal.Decimal `json:"shipping"`
	AdminFee decimal.Decimal `json:"admin_fee"`
	Total    decimal.Decimal `json:"total"`
}

type Option func(*Composer)

func WithShipping(opts []ShippingOption) Option { return func(c *Composer) { c.shipping = opts } }
func WithAdminFee(fee decimal.Decimal) Option   { return func(c *Composer) { c.adminFee = fee } }
func WithLogger(l *zap.Logger) Option           { return func(c *Composer) { c.log = l } }

type Composer struct {
	backend  Backend
	itemIDs  []string
	shipping []ShippingOption
	adminFee decimal.Decimal
	log      *zap.Logger

	mu          sync.Mutex
	items       []orders.CartItem
	addresses   []orders.Address
	addressID   string
	shippingID  string
	tab         Tab
	channel     string
	paymentType orders.PaymentType
}

func NewComposer(b Backend, itemIDs []string, opts ...Option) *Composer {
	c := &Composer{
		backend:     b,
		itemIDs:     append([]string(nil), itemIDs...),
		shipping:    DefaultShipping,
		adminFee:    decimal.NewFromInt(2500),
		log:         zap.NewNop(),
		tab:         TabVirtualAccount,
		paymentType: orders.PaymentTypePay,
	}
	for _, o := range opts {
		o(c)
	}
	if len(c.shipping) > 0 {
		c.shippingID = c.shipping[0].ID
	}
	return c
}

// Load fetches the cart slice and the saved addresses concurrently, then
// pre-selects the default shipping address.
func (c *Composer) Load(ctx context.Context) error {
	if len(c.itemIDs) == 0 {
		return ErrNoItems
	}
	var carts []orders.Cart
	var addrs []orders.Address
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		carts, err = c.backend.ListCarts(gctx, c.itemIDs)
		if err != nil {
			return fmt.Errorf("load checkout items: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		addrs, err = c.backend.ListAddresses(gctx)
		if err != nil {
			return fmt.Errorf("load addresses: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		c.log.Warn("checkout load failed", zap.Error(err))
		return err
	}

	want := map[string]bool{}
	for _, id := range c.itemIDs {
		want[id] = true
	}
	var items []orders.CartItem
	for _, cart := range carts {
		for _, it := range cart.Items {
			if want[it.ID] {
				items = append(items, it)
			}
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = items
	c.addresses = addrs
	c.addressID = defaultAddressID(addrs)
	if len(items) == 0 {
		return ErrNoItems
	}
	return nil
}

// defaultAddressID returns the first address flagged default-shipping, or ""
// when none is flagged.
func defaultAddressID(addrs []orders.Address) string {
	for _, a := range addrs {
		if a.IsDefaultShipping {
			return a.ID
		}
	}
	return ""
}

func (c *Composer) Items() []orders.CartItem {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]orders.CartItem(nil), c.items...)
}

func (c *Composer) Addresses() []orders.Address {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]orders.Address(nil), c.addresses...)
}

func (c *Composer) ShippingOptions() []ShippingOption { return c.shipping }

func (c *Composer) SelectAddress(id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, a := range c.addresses {
		if a.ID == id {
			c.addressID = id
			return nil
		}
	}
	return ErrUnknownAddress
}

// Address returns the selected address; ok is false when none is selected.
func (c *Composer) Address() (orders.Address, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.selectedAddress()
}

func (c *Composer) selectedAddress() (orders.Address, bool) {
	for _, a := range c.addresses {
		if a.ID == c.addressID && c.addressID != "" {
			return a, true
		}
	}
	return orders.Address{}, false
}

func (c *Composer) SelectShipping(id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.shippingOption(id); !ok {
		return ErrUnknownOption
	}
	c.shippingID = id
	return nil
}

// Shipping returns the selected shipping option.
func (c *Composer) Shipping() (ShippingOption, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.shippingOption(c.shippingID)
}

func (c *Composer) shippingOption(id string) (ShippingOption, bool) {
	for _, s := range c.shipping {
		if s.ID == id {
			return s, true
		}
	}
	return ShippingOption{}, false
}

// SelectTab switches the payment tab. QRIS has a single channel and is
// assigned immediately; other tabs keep the channel only if it is theirs.
func (c *Composer) SelectTab(tab Tab) error {
	if !tab.Valid() {
		return ErrUnknownTab
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tab = tab
	if tab == TabQRIS {
		c.channel = orders.ChannelQRIS
		return nil
	}
	if m, ok := methodFor(c.channel); !ok || m.Tab != tab {
		c.channel = ""
	}
	return nil
}

// SelectChannel picks a bank or wallet inside the active tab.
func (c *Composer) SelectChannel(code string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	m, ok := methodFor(code)
	if !ok || m.Tab != c.tab {
		return ErrChannelTab
	}
	c.channel = code
	return nil
}

func (c *Composer) SetPaymentType(t orders.PaymentType) error {
	if !t.Valid() {
		return ErrPaymentType
	}
	c.mu.Lock()
	c.paymentType = t
	c.mu.Unlock()
	return nil
}

// Payment returns the active tab and channel code ("" if not chosen).
func (c *Composer) Payment() (Tab, string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tab, c.channel
}

// Summary: total = items + shipping + admin fee, rounded to whole rupiah.
func (c *Composer) Summary() Summary {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.summary()
}

func (c *Composer) summary() Summary {
	parts := make([]decimal.Decimal, 0, len(c.items))
	for _, it := range c.items {
		parts = append(parts, it.Subtotal)
	}
	s := Summary{Items: len(c.items), Subtotal: money.Sum(parts...), AdminFee: c.adminFee}
	if opt, ok := c.shippingOption(c.shippingID); ok {
		s.Shipping = opt.Price
	}
	s.Total = money.Whole(money.Sum(s.Subtotal, s.Shipping, s.AdminFee))
	return s
}

// Request builds the payment-creation request and its channel code.
func (c *Composer) Request() (string, orders.PaymentRequest, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.items) == 0 {
		return "", orders.PaymentRequest{}, ErrNoItems
	}
	addr, ok := c.selectedAddress()
	if !ok {
		return "", orders.PaymentRequest{}, ErrNoAddress
	}
	ship, ok := c.shippingOption(c.shippingID)
	if !ok {
		return "", orders.PaymentRequest{}, ErrNoShipping
	}
	if c.channel == "" {
		return "", orders.PaymentRequest{}, ErrNoChannel
	}

	sum := c.summary()
	snap := orders.CartSnapshot{Subtotal: sum.Subtotal}
	for _, it := range c.items {
		snap.Items = append(snap.Items, orders.CartSnapshotItem{
			CartItemID: it.ID,
			ProductID:  it.Product.ID,
			Title:      it.Product.Title,
			Quantity:   it.Quantity,
			Price:      it.Price,
			Subtotal:   it.Subtotal,
		})
	}
	req := orders.PaymentRequest{
		Type:            c.paymentType,
		ShippingType:    ship.ID,
		ShippingCost:    ship.Price,
		Tax:             c.adminFee,
		Amount:          sum.Total,
		ShippingAddress: addr,
		Cart:            snap,
	}
	return c.channel, req, nil
}

// Submit sends the payment request and maps the answer to a navigation.
// Unrecognised action descriptors yield NavNone.
func (c *Composer) Submit(ctx context.Context) (Outcome, error) {
	channel, req, err := c.Request()
	if err != nil {
		return Outcome{}, err
	}
	resp, err := c.backend.CreatePayment(ctx, channel, req)
	if err != nil {
		c.log.Warn("create payment failed", zap.String("channel", channel), zap.Error(err))
		return Outcome{}, fmt.Errorf("create payment: %w", err)
	}
	out := OutcomeOf(resp)
	if out.Navigation == NavNone {
		a, _ := resp.FirstAction()
		c.log.Info("payment created without a handled action",
			zap.String("reference_id", resp.ReferenceID),
			zap.String("channel", resp.ChannelCode),
			zap.String("descriptor", a.Descriptor))
	}
	return out, nil
}
