package httpx

import (
	"context"
	"net/http"

	"github.com/ariefcatur/go-storefront/internal/api"
	"github.com/ariefcatur/go-storefront/internal/session"
)

type meResp struct {
	Authenticated bool   `json:"authenticated"`
	Username      string `json:"username,omitempty"`
	Role          string `json:"role,omitempty"`
}

func meOf(id session.Identity) meResp {
	return meResp{Authenticated: id.Valid(), Username: id.Username, Role: id.Role}
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var req api.Credentials
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.Username == "" || req.Password == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing fields"})
		return
	}
	c := contextOf(r)
	var id session.Identity
	err := h.Registry.Rebind(r.Context(), c, func(ctx context.Context) (err error) {
		id, err = c.Session.Login(ctx, req)
		return err
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, meOf(id))
}

func (h *Handler) register(w http.ResponseWriter, r *http.Request) {
	var req api.Registration
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.Username == "" || req.Email == "" || req.Password == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing fields"})
		return
	}
	c := contextOf(r)
	var id session.Identity
	err := h.Registry.Rebind(r.Context(), c, func(ctx context.Context) (err error) {
		id, err = c.Session.Register(ctx, req)
		return err
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, meOf(id))
}

// logout drops the whole context so no cart state outlives the identity.
func (h *Handler) logout(w http.ResponseWriter, r *http.Request) {
	c := contextOf(r)
	_ = c.Session.Logout(r.Context())
	if err := h.Registry.Drop(r.Context(), c.ID); err != nil {
		writeError(w, err)
		return
	}
	http.SetCookie(w, &http.Cookie{Name: SessionCookie, Value: "", Path: "/", MaxAge: -1, HttpOnly: true, Secure: h.CookieSecure})
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) refresh(w http.ResponseWriter, r *http.Request) {
	c := contextOf(r)
	id, err := c.Session.Refresh(r.Context())
	if serr := h.Registry.Save(r.Context(), c); serr != nil && err == nil {
		err = serr
	}
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, meOf(id))
}

func (h *Handler) me(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, meOf(contextOf(r).Session.Identity()))
}

func (h *Handler) alerts(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, contextOf(r).Session.Alerts().Drain())
}
