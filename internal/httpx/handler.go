package httpx

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/ariefcatur/go-storefront/internal/app"
	"github.com/ariefcatur/go-storefront/internal/checkout"
	kafkax "github.com/ariefcatur/go-storefront/internal/kafka"
	"github.com/ariefcatur/go-storefront/internal/logx"
	"github.com/ariefcatur/go-storefront/internal/orders"
	"github.com/ariefcatur/go-storefront/internal/session"
	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const SessionCookie = "sid"

// StatusCache is satisfied by *redisx.StatusCache.
type StatusCache interface {
	Get(ctx context.Context, ref string) (orders.Transaction, string, bool, error)
	Put(ctx context.Context, owner string, tx orders.Transaction) error
}

// Handler serves the storefront BFF. Registry is required; the rest are
// optional and disable their feature when nil.
type Handler struct {
	Registry     *app.Registry
	Attempts     checkout.AttemptStore
	Locker       checkout.Locker
	Status       StatusCache
	Events       kafkax.Publisher
	Shipping     []checkout.ShippingOption
	AdminFee     decimal.Decimal
	Service      string
	CookieSecure bool
	Log          *zap.Logger
}

func (h *Handler) log() *zap.Logger { return logx.OrNop(h.Log) }

func (h *Handler) Register(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.withSession)

		r.Post("/auth/login", h.login)
		r.Post("/auth/register", h.register)
		r.Post("/auth/logout", h.logout)
		r.Post("/auth/refresh", h.refresh)
		r.Get("/auth/me", h.me)
		r.Get("/alerts", h.alerts)

		r.Get("/products", h.listProducts)
		r.Get("/products/{id}", h.getProduct)
		r.Get("/categories", h.listCategories)
		r.Get("/shipping-options", h.shippingOptions)
		r.Get("/payment-methods", h.paymentMethods)

		r.Group(func(r chi.Router) {
			r.Use(h.requireAuth)

			r.Get("/cart", h.getCart)
			r.Post("/cart/items", h.addCartItem)
			r.Post("/cart/items/{id}/increase", h.increaseCartItem)
			r.Post("/cart/items/{id}/decrease", h.decreaseCartItem)
			r.Delete("/cart/items/{id}", h.removeCartItem)
			r.Put("/cart/items/{id}/selected", h.selectCartItem)
			r.Put("/cart/selection", h.selectAll)
			r.Get("/cart/summary", h.cartSummary)
			r.Post("/cart/flush", h.flushCart)

			r.Get("/addresses", h.listAddresses)
			r.Post("/addresses", h.createAddress)
			r.Patch("/addresses/{id}/default", h.setDefaultAddress)

			r.Post("/checkout/preview", h.checkoutPreview)
			r.Post("/checkout/submit", h.checkoutSubmit)

			r.Get("/payments/{ref}", h.paymentStatus)
			r.Post("/payments/{ref}/check", h.checkPayment)

			r.Get("/orders", h.listOrders)
			r.Get("/orders/{ref}", h.getOrder)

			r.Route("/admin", func(r chi.Router) {
				r.Use(requireRole(session.Identity.IsAdmin))
				r.Get("/{kind}", h.adminList)
				r.Patch("/{kind}/{id}/enable", h.adminSetEnabled(true))
				r.Patch("/{kind}/{id}/disable", h.adminSetEnabled(false))
				r.Delete("/{kind}/{id}", h.adminDelete)
			})

			r.Route("/seller/stores/{store}/products", func(r chi.Router) {
				r.Use(requireRole(session.Identity.IsSeller))
				r.Get("/", h.sellerList)
				r.Post("/", h.sellerCreate)
				r.Put("/{id}", h.sellerUpdate)
				r.Delete("/{id}", h.sellerDelete)
			})
		})
	})
}

type ctxKey struct{}

func contextOf(r *http.Request) *app.Context {
	c, _ := r.Context().Value(ctxKey{}).(*app.Context)
	return c
}

// withSession resolves the sid cookie into an app context, creating a new
// anonymous one when the cookie is missing or stale.
func (h *Handler) withSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var (
			c   *app.Context
			err error
		)
		if ck, cerr := r.Cookie(SessionCookie); cerr == nil && ck.Value != "" {
			c, err = h.Registry.Get(r.Context(), ck.Value)
			if err != nil && !errors.Is(err, session.ErrUnknownSession) {
				h.log().Error("load session", zap.Error(err))
				writeError(w, err)
				return
			}
		}
		if c == nil {
			c, err = h.Registry.Create(r.Context())
			if err != nil {
				h.log().Error("create session", zap.Error(err))
				writeError(w, err)
				return
			}
			http.SetCookie(w, &http.Cookie{
				Name:     SessionCookie,
				Value:    c.ID,
				Path:     "/",
				HttpOnly: true,
				Secure:   h.CookieSecure,
				SameSite: http.SameSiteLaxMode,
				Expires:  time.Now().Add(7 * 24 * time.Hour),
			})
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, c)))
	})
}

func (h *Handler) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !contextOf(r).Session.Authenticated() {
			writeError(w, session.ErrNotAuthenticated)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func requireRole(allowed func(session.Identity) bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !allowed(contextOf(r).Session.Identity()) {
				writeError(w, errForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// call runs fn with the session's token, refreshing it once on a 401.
func (h *Handler) call(r *http.Request, fn func(ctx context.Context) error) error {
	return h.Registry.Authorized(r.Context(), contextOf(r), fn)
}
