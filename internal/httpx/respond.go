package httpx

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/ariefcatur/go-storefront/internal/admin"
	"github.com/ariefcatur/go-storefront/internal/api"
	"github.com/ariefcatur/go-storefront/internal/cart"
	"github.com/ariefcatur/go-storefront/internal/checkout"
	"github.com/ariefcatur/go-storefront/internal/payment"
	"github.com/ariefcatur/go-storefront/internal/session"
)

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, statusFor(err), map[string]string{"error": err.Error()})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(v); err != nil {
		return errBadJSON
	}
	return nil
}

var (
	errBadJSON   = errors.New("invalid json")
	errForbidden = errors.New("forbidden")
)

// statusFor maps domain and backend errors to a response code. Backend 4xx
// pass through; anything else from the backend is a bad gateway.
func statusFor(err error) int {
	var apiErr *api.Error
	switch {
	case errors.Is(err, errBadJSON),
		errors.Is(err, checkout.ErrNoItems),
		errors.Is(err, checkout.ErrNoAddress),
		errors.Is(err, checkout.ErrUnknownAddress),
		errors.Is(err, checkout.ErrNoShipping),
		errors.Is(err, checkout.ErrUnknownOption),
		errors.Is(err, checkout.ErrNoChannel),
		errors.Is(err, checkout.ErrChannelTab),
		errors.Is(err, checkout.ErrUnknownTab),
		errors.Is(err, checkout.ErrPaymentType),
		errors.Is(err, payment.ErrInvalidReference),
		errors.Is(err, admin.ErrUnknownTab),
		errors.Is(err, admin.ErrInvalidProduct):
		return http.StatusBadRequest
	case errors.Is(err, session.ErrNotAuthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, errForbidden):
		return http.StatusForbidden
	case errors.Is(err, cart.ErrUnknownItem), errors.Is(err, admin.ErrUnknownKind):
		return http.StatusNotFound
	case errors.Is(err, admin.ErrUnsupported):
		return http.StatusMethodNotAllowed
	case errors.Is(err, checkout.ErrSubmitInProgress), errors.Is(err, cart.ErrClosed):
		return http.StatusConflict
	case errors.As(err, &apiErr):
		if apiErr.StatusCode >= 400 && apiErr.StatusCode < 500 {
			return apiErr.StatusCode
		}
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}
