package checkout

import (
	"fmt"
	"os"

	"github.com/ariefcatur/go-storefront/internal/orders"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// ShippingOption is a fixed, client-side shipping choice; no rate lookup.
type ShippingOption struct {
	ID    string          `json:"id" yaml:"id"`
	Label string          `json:"label" yaml:"label"`
	Info  string          `json:"info" yaml:"info"`
	Price decimal.Decimal `json:"price" yaml:"-"`
}

var DefaultShipping = []ShippingOption{
	{ID: "standard", Label: "Standard", Info: "Arrives in 4-10 business days", Price: decimal.NewFromInt(10000)},
	{ID: "express", Label: "Express", Info: "Arrives in 2-5 business days", Price: decimal.NewFromInt(25000)},
	{ID: "overnight", Label: "Overnight", Info: "Arrives the next business day", Price: decimal.NewFromInt(50000)},
}

type shippingFile struct {
	Shipping []struct {
		ID    string `yaml:"id"`
		Label string `yaml:"label"`
		Info  string `yaml:"info"`
		Price string `yaml:"price"`
	} `yaml:"shipping"`
}

// LoadShipping reads a shipping catalog override. An empty path yields the
// built-in catalog.
func LoadShipping(path string) ([]ShippingOption, error) {
	if path == "" {
		return DefaultShipping, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read shipping catalog: %w", err)
	}
	return ParseShipping(b)
}

func ParseShipping(b []byte) ([]ShippingOption, error) {
	var f shippingFile
	if err := yaml.Unmarshal(b, &f); err != nil {
		return nil, fmt.Errorf("parse shipping catalog: %w", err)
	}
	if len(f.Shipping) == 0 {
		return nil, fmt.Errorf("shipping catalog is empty")
	}
	seen := map[string]bool{}
	out := make([]ShippingOption, 0, len(f.Shipping))
	for _, s := range f.Shipping {
		if s.ID == "" || seen[s.ID] {
			return nil, fmt.Errorf("shipping option id %q missing or duplicated", s.ID)
		}
		seen[s.ID] = true
		price, err := decimal.NewFromString(s.Price)
		if err != nil || price.IsNegative() {
			return nil, fmt.Errorf("shipping option %s: invalid price %q", s.ID, s.Price)
		}
		out = append(out, ShippingOption{ID: s.ID, Label: s.Label, Info: s.Info, Price: price})
	}
	return out, nil
}

// Tab is a payment-method group in the checkout screen.
type Tab string

const (
	TabVirtualAccount Tab = "virtual_account"
	TabQRIS           Tab = "qris"
	TabEWallet        Tab = "ewallet"
)

func (t Tab) Valid() bool {
	switch t {
	case TabVirtualAccount, TabQRIS, TabEWallet:
		return true
	}
	return false
}

type PaymentMethod struct {
	ChannelCode string `json:"channel_code"`
	Tab         Tab    `json:"tab"`
	Label       string `json:"label"`
	Color       string `json:"color"`
}

var PaymentMethods = []PaymentMethod{
	{ChannelCode: "BCA", Tab: TabVirtualAccount, Label: "BCA Virtual Account", Color: "#005BAC"},
	{ChannelCode: "BNI", Tab: TabVirtualAccount, Label: "BNI Virtual Account", Color: "#F15A23"},
	{ChannelCode: "BRI", Tab: TabVirtualAccount, Label: "BRI Virtual Account", Color: "#00529C"},
	{ChannelCode: "MANDIRI", Tab: TabVirtualAccount, Label: "Mandiri Virtual Account", Color: "#003D79"},
	{ChannelCode: orders.ChannelQRIS, Tab: TabQRIS, Label: "QRIS", Color: "#E4002B"},
	{ChannelCode: "OVO", Tab: TabEWallet, Label: "OVO", Color: "#4C3494"},
	{ChannelCode: "DANA", Tab: TabEWallet, Label: "DANA", Color: "#108EE9"},
	{ChannelCode: "SHOPEEPAY", Tab: TabEWallet, Label: "ShopeePay", Color: "#EE4D2D"},
}

func methodFor(code string) (PaymentMethod, bool) {
	for _, m := range PaymentMethods {
		if m.ChannelCode == code {
			return m, true
		}
	}
	return PaymentMethod{}, false
}

// MethodsFor lists the channels shown under tab.
func MethodsFor(tab Tab) []PaymentMethod {
	var out []PaymentMethod
	for _, m := range PaymentMethods {
		if m.Tab == tab {
			out = append(out, m)
		}
	}
	return out
}
