package money

import "github.com/shopspring/decimal"

// Subtotal = price × qty, rounded half away from zero to 2 decimals.
func Subtotal(price decimal.Decimal, qty int) decimal.Decimal {
	return price.Mul(decimal.NewFromInt(int64(qty))).Round(2)
}

// Whole rounds to the integer currency unit (IDR has no minor unit in practice).
func Whole(d decimal.Decimal) decimal.Decimal {
	return d.Round(0)
}

func Sum(ds ...decimal.Decimal) decimal.Decimal {
	return decimal.Sum(decimal.Zero, ds...)
}

// Parse reads a decimal string, returning def when s is empty or invalid.
func Parse(s string, def decimal.Decimal) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return def
	}
	return d
}
