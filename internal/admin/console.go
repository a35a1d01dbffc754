package admin

import (
	"context"
	"errors"
	"fmt"

	"github.com/ariefcatur/go-storefront/internal/api"
	"github.com/ariefcatur/go-storefront/internal/orders"
	"golang.org/x/sync/errgroup"
)

var (
	ErrUnknownKind = errors.New("unknown admin collection")
	ErrUnsupported = errors.New("operation not supported for this collection")
)

// Backend is the admin slice of *api.Client.
type Backend interface {
	AdminUsers(ctx context.Context) ([]orders.User, error)
	AdminStores(ctx context.Context) ([]orders.Store, error)
	AdminProducts(ctx context.Context) ([]orders.Product, error)
	AdminTransactions(ctx context.Context) ([]orders.Transaction, error)
	SetEnabled(ctx context.Context, kind api.Kind, id string, enabled bool) error
	AdminDelete(ctx context.Context, kind api.Kind, id string) error
}

// Console groups the four admin tables.
type Console struct {
	b Backend

	Users        *View[orders.User]
	Stores       *View[orders.Store]
	Products     *View[orders.Product]
	Transactions *View[orders.Transaction]
}

func NewConsole(b Backend) *Console {
	return &Console{
		b: b,
		Users: NewView("users", b.AdminUsers, func(u orders.User) string { return u.ID },
			TabFilter[orders.User]{TabActive, func(u orders.User) bool { return u.Enabled }},
			TabFilter[orders.User]{TabDisabled, func(u orders.User) bool { return !u.Enabled }},
		),
		Stores: NewView("stores", b.AdminStores, func(s orders.Store) string { return s.ID },
			TabFilter[orders.Store]{TabActive, func(s orders.Store) bool { return s.Enabled }},
			TabFilter[orders.Store]{TabDisabled, func(s orders.Store) bool { return !s.Enabled }},
		),
		Products: NewView("products", b.AdminProducts, productID, productTabs()...),
		Transactions: NewView("transactions", b.AdminTransactions, func(t orders.Transaction) string { return t.ReferenceID },
			TabFilter[orders.Transaction]{TabPending, func(t orders.Transaction) bool { return !t.Status.Terminal() }},
			TabFilter[orders.Transaction]{TabPaid, func(t orders.Transaction) bool { return t.Status == orders.PaymentSucceeded }},
			TabFilter[orders.Transaction]{TabFailed, func(t orders.Transaction) bool {
				return t.Status.Terminal() && t.Status != orders.PaymentSucceeded
			}},
		),
	}
}

func productID(p orders.Product) string { return p.ID }

func productTabs() []TabFilter[orders.Product] {
	return []TabFilter[orders.Product]{
		{TabActive, func(p orders.Product) bool { return p.Enabled }},
		{TabDisabled, func(p orders.Product) bool { return !p.Enabled }},
		{TabOutOfStock, func(p orders.Product) bool { return p.Stock <= 0 }},
	}
}

// Refresh loads every table concurrently.
func (c *Console) Refresh(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return c.Users.Refresh(gctx) })
	g.Go(func() error { return c.Stores.Refresh(gctx) })
	g.Go(func() error { return c.Products.Refresh(gctx) })
	g.Go(func() error { return c.Transactions.Refresh(gctx) })
	return g.Wait()
}

// RefreshKind loads a single table.
func (c *Console) RefreshKind(ctx context.Context, kind api.Kind) error {
	switch kind {
	case api.KindUsers:
		return c.Users.Refresh(ctx)
	case api.KindStores:
		return c.Stores.Refresh(ctx)
	case api.KindProducts:
		return c.Products.Refresh(ctx)
	case api.KindTransactions:
		return c.Transactions.Refresh(ctx)
	}
	return fmt.Errorf("%w %q", ErrUnknownKind, kind)
}

// SetEnabled enables or disables a user, store or product and refetches
// that table.
func (c *Console) SetEnabled(ctx context.Context, kind api.Kind, id string, enabled bool) error {
	if kind == api.KindTransactions {
		return ErrUnsupported
	}
	return c.mutate(ctx, kind, func(ctx context.Context) error {
		return c.b.SetEnabled(ctx, kind, id, enabled)
	})
}

func (c *Console) Delete(ctx context.Context, kind api.Kind, id string) error {
	if kind == api.KindTransactions {
		return ErrUnsupported
	}
	return c.mutate(ctx, kind, func(ctx context.Context) error {
		return c.b.AdminDelete(ctx, kind, id)
	})
}

func (c *Console) mutate(ctx context.Context, kind api.Kind, op func(context.Context) error) error {
	switch kind {
	case api.KindUsers:
		return c.Users.Mutate(ctx, op)
	case api.KindStores:
		return c.Stores.Mutate(ctx, op)
	case api.KindProducts:
		return c.Products.Mutate(ctx, op)
	}
	return fmt.Errorf("%w %q", ErrUnknownKind, kind)
}

// Rows returns the filtered rows of kind as a JSON-ready value.
func (c *Console) Rows(kind api.Kind, tab Tab) (any, error) {
	switch kind {
	case api.KindUsers:
		return c.Users.Filter(tab)
	case api.KindStores:
		return c.Stores.Filter(tab)
	case api.KindProducts:
		return c.Products.Filter(tab)
	case api.KindTransactions:
		return c.Transactions.Filter(tab)
	}
	return nil, fmt.Errorf("%w %q", ErrUnknownKind, kind)
}
