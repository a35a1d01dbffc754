package payment

import (
	"slices"

	"github.com/ariefcatur/go-storefront/internal/orders"
)

// Variant picks the card graphic and instructions of the status screen.
// Presentation only; it does not affect the phase.
type Variant string

const (
	VariantBCA   Variant = "va_bca"
	VariantBNI   Variant = "va_bni"
	VariantVA    Variant = "va_other"
	VariantQRIS  Variant = "qris"
	VariantOther Variant = "other"
)

func VariantOf(channelCode string) Variant {
	switch channelCode {
	case "BCA":
		return VariantBCA
	case "BNI":
		return VariantBNI
	case "BRI", "MANDIRI":
		return VariantVA
	case orders.ChannelQRIS:
		return VariantQRIS
	}
	return VariantOther
}

var instructions = map[Variant][]string{
	VariantBCA: {
		"Open BCA mobile or KlikBCA",
		"Choose m-Transfer > BCA Virtual Account",
		"Enter the virtual account number",
		"Check the amount and confirm",
	},
	VariantBNI: {
		"Open BNI Mobile Banking",
		"Choose Transfer > Virtual Account Billing",
		"Enter the virtual account number",
		"Check the amount and confirm",
	},
	VariantVA: {
		"Open your bank app",
		"Pay to the virtual account number shown",
	},
	VariantQRIS: {
		"Open any QRIS-enabled e-wallet or bank app",
		"Scan the QR code",
		"Check the amount and confirm",
	},
	VariantOther: {
		"Follow the instructions on the payment page",
	},
}

// Instructions returns the payment steps for v.
func Instructions(v Variant) []string {
	steps, ok := instructions[v]
	if !ok {
		steps = instructions[VariantOther]
	}
	return slices.Clone(steps)
}
