// Package admin holds the admin and seller management views. Every list is
// fetched whole, filtered in memory, and fetched again after a successful
// mutation; nothing here edits a local copy.
package admin

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

var ErrUnknownTab = errors.New("unknown tab")

type Tab string

const (
	TabAll        Tab = "all"
	TabActive     Tab = "active"
	TabDisabled   Tab = "disabled"
	TabOutOfStock Tab = "out_of_stock"
	TabPending    Tab = "pending"
	TabPaid       Tab = "paid"
	TabFailed     Tab = "failed"
)

// FetchFunc loads a whole collection.
type FetchFunc[T any] func(ctx context.Context) ([]T, error)

// View is one management table.
type View[T any] struct {
	name  string
	fetch FetchFunc[T]
	id    func(T) string
	tabs  map[Tab]func(T) bool
	order []Tab

	mu     sync.RWMutex
	rows   []T
	loaded bool
}

// NewView builds a view. TabAll is always present and comes first.
func NewView[T any](name string, fetch FetchFunc[T], id func(T) string, tabs ...TabFilter[T]) *View[T] {
	v := &View[T]{
		name:  name,
		fetch: fetch,
		id:    id,
		tabs:  map[Tab]func(T) bool{TabAll: func(T) bool { return true }},
		order: []Tab{TabAll},
	}
	for _, t := range tabs {
		if _, dup := v.tabs[t.Tab]; !dup {
			v.order = append(v.order, t.Tab)
		}
		v.tabs[t.Tab] = t.Match
	}
	return v
}

type TabFilter[T any] struct {
	Tab   Tab
	Match func(T) bool
}

func (v *View[T]) Name() string { return v.name }
func (v *View[T]) Tabs() []Tab  { return append([]Tab(nil), v.order...) }

// Refresh replaces the rows with a fresh fetch. On error the previous rows
// stay.
func (v *View[T]) Refresh(ctx context.Context) error {
	rows, err := v.fetch(ctx)
	if err != nil {
		return fmt.Errorf("fetch %s: %w", v.name, err)
	}
	v.mu.Lock()
	v.rows = rows
	v.loaded = true
	v.mu.Unlock()
	return nil
}

func (v *View[T]) Loaded() bool {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.loaded
}

func (v *View[T]) Rows() []T {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return append([]T(nil), v.rows...)
}

// Filter returns the rows of tab, in fetch order.
func (v *View[T]) Filter(tab Tab) ([]T, error) {
	match, ok := v.tabs[tab]
	if !ok {
		return nil, fmt.Errorf("%s: %w %q", v.name, ErrUnknownTab, tab)
	}
	v.mu.RLock()
	defer v.mu.RUnlock()
	out := make([]T, 0, len(v.rows))
	for _, r := range v.rows {
		if match(r) {
			out = append(out, r)
		}
	}
	return out, nil
}

// Counts returns the number of rows per tab.
func (v *View[T]) Counts() map[Tab]int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	out := make(map[Tab]int, len(v.order))
	for _, t := range v.order {
		match := v.tabs[t]
		n := 0
		for _, r := range v.rows {
			if match(r) {
				n++
			}
		}
		out[t] = n
	}
	return out
}

func (v *View[T]) Find(id string) (T, bool) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	for _, r := range v.rows {
		if v.id(r) == id {
			return r, true
		}
	}
	var zero T
	return zero, false
}

// Mutate runs op and refetches once it succeeded. A failed op leaves the
// rows untouched.
func (v *View[T]) Mutate(ctx context.Context, op func(ctx context.Context) error) error {
	if err := op(ctx); err != nil {
		return err
	}
	return v.Refresh(ctx)
}
