package httpx

import (
	"context"
	"fmt"
	"net/http"

	"github.com/ariefcatur/go-storefront/internal/admin"
	"github.com/ariefcatur/go-storefront/internal/api"
	"github.com/go-chi/chi/v5"
)

type tableResp struct {
	Kind   string            `json:"kind"`
	Tab    admin.Tab         `json:"tab"`
	Counts map[admin.Tab]int `json:"counts"`
	Rows   any               `json:"rows"`
}

func tabOf(r *http.Request) admin.Tab {
	if t := admin.Tab(r.URL.Query().Get("tab")); t != "" {
		return t
	}
	return admin.TabAll
}

func kindOf(r *http.Request) (api.Kind, error) {
	k := api.Kind(chi.URLParam(r, "kind"))
	if !k.Valid() {
		return "", fmt.Errorf("%w %q", admin.ErrUnknownKind, k)
	}
	return k, nil
}

func countsOf(c *admin.Console, k api.Kind) map[admin.Tab]int {
	switch k {
	case api.KindUsers:
		return c.Users.Counts()
	case api.KindStores:
		return c.Stores.Counts()
	case api.KindProducts:
		return c.Products.Counts()
	}
	return c.Transactions.Counts()
}

// adminTable renders the current rows of kind after an optional mutation.
func (h *Handler) adminTable(w http.ResponseWriter, r *http.Request, mutate func(ctx context.Context, c *admin.Console) error) {
	kind, err := kindOf(r)
	if err != nil {
		writeError(w, err)
		return
	}
	con := admin.NewConsole(contextOf(r).API)
	err = h.call(r, func(ctx context.Context) error {
		if mutate != nil {
			return mutate(ctx, con)
		}
		return con.RefreshKind(ctx, kind)
	})
	if err != nil {
		writeError(w, err)
		return
	}
	tab := tabOf(r)
	rows, err := con.Rows(kind, tab)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tableResp{Kind: string(kind), Tab: tab, Counts: countsOf(con, kind), Rows: rows})
}

func (h *Handler) adminList(w http.ResponseWriter, r *http.Request) {
	h.adminTable(w, r, nil)
}

func (h *Handler) adminSetEnabled(enabled bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		h.adminTable(w, r, func(ctx context.Context, c *admin.Console) error {
			return c.SetEnabled(ctx, api.Kind(chi.URLParam(r, "kind")), id, enabled)
		})
	}
}

func (h *Handler) adminDelete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	h.adminTable(w, r, func(ctx context.Context, c *admin.Console) error {
		return c.Delete(ctx, api.Kind(chi.URLParam(r, "kind")), id)
	})
}

func (h *Handler) sellerTable(w http.ResponseWriter, r *http.Request, code int, mutate func(ctx context.Context, s *admin.Seller) error) {
	s := admin.NewSeller(contextOf(r).API, chi.URLParam(r, "store"))
	err := h.call(r, func(ctx context.Context) error {
		if mutate != nil {
			return mutate(ctx, s)
		}
		return s.Refresh(ctx)
	})
	if err != nil {
		writeError(w, err)
		return
	}
	tab := tabOf(r)
	rows, err := s.Products.Filter(tab)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, code, tableResp{Kind: "store_products", Tab: tab, Counts: s.Products.Counts(), Rows: rows})
}

func (h *Handler) sellerList(w http.ResponseWriter, r *http.Request) {
	h.sellerTable(w, r, http.StatusOK, nil)
}

func (h *Handler) sellerCreate(w http.ResponseWriter, r *http.Request) {
	var in api.ProductInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, err)
		return
	}
	h.sellerTable(w, r, http.StatusCreated, func(ctx context.Context, s *admin.Seller) error { return s.Create(ctx, in) })
}

func (h *Handler) sellerUpdate(w http.ResponseWriter, r *http.Request) {
	var in api.ProductInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, err)
		return
	}
	id := chi.URLParam(r, "id")
	h.sellerTable(w, r, http.StatusOK, func(ctx context.Context, s *admin.Seller) error { return s.Update(ctx, id, in) })
}

func (h *Handler) sellerDelete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	h.sellerTable(w, r, http.StatusOK, func(ctx context.Context, s *admin.Seller) error { return s.Delete(ctx, id) })
}
