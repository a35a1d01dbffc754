// Package cart mirrors the server cart on the client: optimistic quantity
// edits, debounced sync, selection for checkout.
package cart

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ariefcatur/go-storefront/internal/money"
	"github.com/ariefcatur/go-storefront/internal/orders"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var (
	ErrUnknownItem = errors.New("cart item not found")
	ErrClosed      = errors.New("cart view closed")
)

// Backend is the cart slice of the REST API.
type Backend interface {
	ListCarts(ctx context.Context, itemIDs []string) ([]orders.Cart, error)
	AddCartItem(ctx context.Context, productID string, qty int) (orders.CartItem, error)
	RemoveCartItem(ctx context.Context, itemID string) error
	IncreaseCartItem(ctx context.Context, itemID string, amount int) (orders.CartItem, error)
}

type Option func(*View)

func WithWindow(d time.Duration) Option         { return func(v *View) { v.window = d } }
func WithLogger(l *zap.Logger) Option           { return func(v *View) { v.log = l } }
func WithRequestTimeout(d time.Duration) Option { return func(v *View) { v.timeout = d } }

// WithNotifier routes user-visible failures, e.g. to the session alert queue.
func WithNotifier(n func(msg string)) Option { return func(v *View) { v.notify = n } }

type View struct {
	backend Backend
	window  time.Duration
	timeout time.Duration
	log     *zap.Logger
	notify  func(msg string)
	syncer  *Syncer

	mu        sync.Mutex
	carts     []orders.Cart
	confirmed map[string]orders.CartItem // last server-acknowledged state per item
	selected  map[string]bool
	loaded    bool
}

func NewView(b Backend, opts ...Option) *View {
	v := &View{
		backend:   b,
		window:    700 * time.Millisecond,
		timeout:   10 * time.Second,
		log:       zap.NewNop(),
		notify:    func(string) {},
		confirmed: map[string]orders.CartItem{},
		selected:  map[string]bool{},
	}
	for _, o := range opts {
		o(v)
	}
	v.syncer = NewSyncer(v.window, v.timeout, v.sendQuantity, v.syncDone)
	return v
}

// Load replaces the mirror with the server carts. Selection survives for
// items that still exist.
func (v *View) Load(ctx context.Context) error {
	carts, err := v.backend.ListCarts(ctx, nil)
	if err != nil {
		v.log.Warn("load cart failed", zap.Error(err))
		return fmt.Errorf("load cart: %w", err)
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	v.carts = carts
	v.confirmed = map[string]orders.CartItem{}
	sel := map[string]bool{}
	for ci := range v.carts {
		for ii := range v.carts[ci].Items {
			it := v.carts[ci].Items[ii]
			v.confirmed[it.ID] = it
			if v.selected[it.ID] {
				sel[it.ID] = true
			}
		}
	}
	v.selected = sel
	v.loaded = true
	return nil
}

func (v *View) Loaded() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.loaded
}

// Carts returns a deep copy of the mirror.
func (v *View) Carts() []orders.Cart {
	v.mu.Lock()
	defer v.mu.Unlock()
	out := make([]orders.Cart, len(v.carts))
	for i, c := range v.carts {
		c.Items = append([]orders.CartItem(nil), c.Items...)
		c.Total = cartTotal(c.Items)
		out[i] = c
	}
	return out
}

// Items returns every item across carts in display order.
func (v *View) Items() []orders.CartItem {
	v.mu.Lock()
	defer v.mu.Unlock()
	var out []orders.CartItem
	for _, c := range v.carts {
		out = append(out, c.Items...)
	}
	return out
}

func (v *View) Item(itemID string) (orders.CartItem, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	ci, ii := v.find(itemID)
	if ci < 0 {
		return orders.CartItem{}, false
	}
	return v.carts[ci].Items[ii], true
}

// Increase adds one unit unless the item is at its max stock. changed is
// false for a no-op.
func (v *View) Increase(itemID string) (orders.CartItem, bool, error) {
	return v.step(itemID, +1)
}

// Decrease removes one unit unless the item is at 1.
func (v *View) Decrease(itemID string) (orders.CartItem, bool, error) {
	return v.step(itemID, -1)
}

func (v *View) step(itemID string, delta int) (orders.CartItem, bool, error) {
	v.mu.Lock()
	ci, ii := v.find(itemID)
	if ci < 0 {
		v.mu.Unlock()
		return orders.CartItem{}, false, ErrUnknownItem
	}
	it := &v.carts[ci].Items[ii]
	next := it.Quantity + delta
	if next < 1 || next > it.MaxStock {
		cur := *it
		v.mu.Unlock()
		return cur, false, nil
	}
	// schedule under v.mu; the syncer never takes v.mu while holding its own lock
	if !v.syncer.Schedule(itemID, next) {
		cur := *it
		v.mu.Unlock()
		return cur, false, ErrClosed
	}
	it.Quantity = next
	it.Subtotal = money.Subtotal(it.Price, next)
	cur := *it
	v.mu.Unlock()
	return cur, true, nil
}

// sendQuantity runs on the syncer goroutine. The backend takes a delta, so
// the target is converted against the last confirmed quantity.
func (v *View) sendQuantity(ctx context.Context, itemID string, target int) error {
	v.mu.Lock()
	base, ok := v.confirmed[itemID]
	v.mu.Unlock()
	if !ok {
		return ErrUnknownItem
	}
	delta := target - base.Quantity
	if delta == 0 {
		return nil
	}
	updated, err := v.backend.IncreaseCartItem(ctx, itemID, delta)
	if err != nil {
		return err
	}
	if updated.ID == "" {
		updated = base
		updated.Quantity = target
	}
	if updated.Subtotal.IsZero() {
		updated.Subtotal = money.Subtotal(updated.Price, updated.Quantity)
	}
	v.mu.Lock()
	v.confirmed[itemID] = updated
	// adopt the server row unless the user has moved on since
	if ci, ii := v.find(itemID); ci >= 0 && v.carts[ci].Items[ii].Quantity == target {
		v.carts[ci].Items[ii] = updated
	}
	v.mu.Unlock()
	return nil
}

func (v *View) syncDone(itemID string, target int, err error) {
	if err == nil {
		return
	}
	v.log.Warn("cart quantity sync failed",
		zap.String("item_id", itemID), zap.Int("target", target), zap.Error(err))
	if !errors.Is(err, ErrUnknownItem) {
		v.rollback(itemID)
	}
	v.notify("Could not update item quantity")
}

// rollback reverts the local item to its confirmed snapshot and drops any
// queued target for it.
func (v *View) rollback(itemID string) {
	v.syncer.Cancel(itemID)
	v.mu.Lock()
	defer v.mu.Unlock()
	base, ok := v.confirmed[itemID]
	if !ok {
		return
	}
	if ci, ii := v.find(itemID); ci >= 0 {
		v.carts[ci].Items[ii] = base
	}
}

// Remove deletes itemID optimistically. On failure the item is put back at
// its original position with its selection, and an alert is raised.
func (v *View) Remove(ctx context.Context, itemID string) error {
	v.syncer.Cancel(itemID)

	v.mu.Lock()
	ci, ii := v.find(itemID)
	if ci < 0 {
		v.mu.Unlock()
		return ErrUnknownItem
	}
	cartID := v.carts[ci].ID
	removed := v.carts[ci].Items[ii]
	wasSelected := v.selected[itemID]
	items := v.carts[ci].Items
	v.carts[ci].Items = append(items[:ii:ii], items[ii+1:]...)
	delete(v.selected, itemID)
	v.mu.Unlock()

	if err := v.backend.RemoveCartItem(ctx, itemID); err != nil {
		v.log.Warn("remove cart item failed", zap.String("item_id", itemID), zap.Error(err))
		v.mu.Lock()
		if base, ok := v.confirmed[itemID]; ok {
			removed = base
		}
		v.reinsert(cartID, ii, removed)
		if wasSelected {
			v.selected[itemID] = true
		}
		v.mu.Unlock()
		v.notify("Could not remove item from cart")
		return fmt.Errorf("remove cart item: %w", err)
	}

	v.mu.Lock()
	delete(v.confirmed, itemID)
	v.mu.Unlock()
	return nil
}

func (v *View) reinsert(cartID string, at int, it orders.CartItem) {
	for ci := range v.carts {
		if v.carts[ci].ID != cartID {
			continue
		}
		items := v.carts[ci].Items
		if at > len(items) {
			at = len(items)
		}
		items = append(items, orders.CartItem{})
		copy(items[at+1:], items[at:])
		items[at] = it
		v.carts[ci].Items = items
		return
	}
}

// Add puts productID into the server cart and reloads the mirror.
func (v *View) Add(ctx context.Context, productID string, qty int) error {
	if qty < 1 {
		qty = 1
	}
	if _, err := v.backend.AddCartItem(ctx, productID, qty); err != nil {
		v.log.Warn("add to cart failed", zap.String("product_id", productID), zap.Error(err))
		v.notify("Could not add item to cart")
		return fmt.Errorf("add cart item: %w", err)
	}
	return v.Load(ctx)
}

func (v *View) Select(itemID string, on bool) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if ci, _ := v.find(itemID); ci < 0 {
		return ErrUnknownItem
	}
	if on {
		v.selected[itemID] = true
	} else {
		delete(v.selected, itemID)
	}
	return nil
}

func (v *View) SelectAll(on bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.selected = map[string]bool{}
	if !on {
		return
	}
	for _, c := range v.carts {
		for _, it := range c.Items {
			v.selected[it.ID] = true
		}
	}
}

// Selected returns the selected item ids in display order.
func (v *View) Selected() []string {
	v.mu.Lock()
	defer v.mu.Unlock()
	var out []string
	for _, c := range v.carts {
		for _, it := range c.Items {
			if v.selected[it.ID] {
				out = append(out, it.ID)
			}
		}
	}
	return out
}

type Summary struct {
	SelectedCount int             `json:"selected_count"`
	ItemCount     int             `json:"item_count"`
	Subtotal      decimal.Decimal `json:"subtotal"`
}

// Summary totals only the selected items.
func (v *View) Summary() Summary {
	v.mu.Lock()
	defer v.mu.Unlock()
	var s Summary
	var parts []decimal.Decimal
	for _, c := range v.carts {
		for _, it := range c.Items {
			s.ItemCount++
			if v.selected[it.ID] {
				s.SelectedCount++
				parts = append(parts, it.Subtotal)
			}
		}
	}
	s.Subtotal = money.Sum(parts...)
	return s
}

// Reset forgets the mirror and the selection so the next Load starts from
// the server. Queued quantity changes are dropped.
func (v *View) Reset() {
	v.mu.Lock()
	ids := make([]string, 0, len(v.confirmed))
	for id := range v.confirmed {
		ids = append(ids, id)
	}
	v.carts = nil
	v.confirmed = map[string]orders.CartItem{}
	v.selected = map[string]bool{}
	v.loaded = false
	v.mu.Unlock()

	for _, id := range ids {
		v.syncer.Cancel(id)
	}
}

// Pending reports whether itemID still has an unacknowledged quantity change.
func (v *View) Pending(itemID string) bool { return v.syncer.Pending(itemID) }

// Flush pushes pending quantity changes now and waits for them.
func (v *View) Flush(ctx context.Context) error { return v.syncer.Flush(ctx) }

func (v *View) Close(ctx context.Context) error { return v.syncer.Close(ctx) }

// find must be called with v.mu held; returns (-1, -1) when absent.
func (v *View) find(itemID string) (int, int) {
	for ci := range v.carts {
		for ii := range v.carts[ci].Items {
			if v.carts[ci].Items[ii].ID == itemID {
				return ci, ii
			}
		}
	}
	return -1, -1
}

func cartTotal(items []orders.CartItem) decimal.Decimal {
	parts := make([]decimal.Decimal, 0, len(items))
	for _, it := range items {
		parts = append(parts, it.Subtotal)
	}
	return money.Sum(parts...)
}
