package orders

import (
	"time"

	"github.com/shopspring/decimal"
)

// Wire models mirrored from the storefront backend. All money values are
// decimals; the backend sends them as JSON numbers.

type Product struct {
	ID          string          `json:"id"`
	Title       string          `json:"title"`
	Description string          `json:"description,omitempty"`
	SKU         string          `json:"sku"`
	Category    string          `json:"category,omitempty"`
	Thumbnail   string          `json:"thumbnail,omitempty"`
	Price       decimal.Decimal `json:"price"`
	Stock       int             `json:"stock"`
	StoreID     string          `json:"store_id,omitempty"`
	StoreName   string          `json:"store_name,omitempty"`
	Enabled     bool            `json:"enabled"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

type Category struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug,omitempty"`
}

type CartProduct struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Thumbnail string `json:"thumbnail,omitempty"`
	SKU       string `json:"sku"`
	StoreName string `json:"store_name,omitempty"`
}

type CartItem struct {
	ID       string          `json:"id"`
	Product  CartProduct     `json:"product"`
	Price    decimal.Decimal `json:"price"`
	Quantity int             `json:"quantity"`
	MaxStock int             `json:"max_stock"`
	Subtotal decimal.Decimal `json:"subtotal"`
}

type Cart struct {
	ID           string          `json:"id"`
	UserID       string          `json:"user_id"`
	Items        []CartItem      `json:"items"`
	Total        decimal.Decimal `json:"total"`
	IsCheckedOut bool            `json:"is_checked_out"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

type Address struct {
	ID                string `json:"id"`
	Type              string `json:"type"` // HOME | OFFICE
	Name              string `json:"name"`
	Street            string `json:"street"`
	Apartment         string `json:"apartment,omitempty"`
	City              string `json:"city"`
	State             string `json:"state"`
	PostalCode        string `json:"postal_code"`
	Country           string `json:"country"`
	Phone             string `json:"phone"`
	IsDefaultShipping bool   `json:"is_default_shipping"`
}

// Action is one entry of a payment's actions[]; descriptor decides how the
// client continues (redirect, show VA number, ...).
type Action struct {
	Type       string `json:"type"`
	Descriptor string `json:"descriptor"`
	Value      string `json:"value"`
}

const (
	DescriptorWebURL      = "WEB_URL"
	DescriptorVirtualAcct = "VIRTUAL_ACCOUNT_NUMBER"
	DescriptorQRString    = "QR_STRING"
	DescriptorDeeplinkURL = "DEEPLINK_URL"
	ChannelQRIS           = "QRIS"
)

type CartSnapshotItem struct {
	CartItemID string          `json:"cart_item_id"`
	ProductID  string          `json:"product_id"`
	Title      string          `json:"title"`
	Quantity   int             `json:"quantity"`
	Price      decimal.Decimal `json:"price"`
	Subtotal   decimal.Decimal `json:"subtotal"`
}

type CartSnapshot struct {
	Items    []CartSnapshotItem `json:"items"`
	Subtotal decimal.Decimal    `json:"subtotal"`
}

type PaymentRequest struct {
	Type              PaymentType       `json:"type"`
	ShippingType      string            `json:"shipping_type"`
	ShippingCost      decimal.Decimal   `json:"shipping_cost"`
	Tax               decimal.Decimal   `json:"tax"`
	Amount            decimal.Decimal   `json:"amount"`
	ShippingAddress   Address           `json:"shipping_address"`
	Cart              CartSnapshot      `json:"cart"`
	ChannelProperties map[string]string `json:"channel_properties,omitempty"`
}

type PaymentResponse struct {
	ID          string        `json:"id"`
	ReferenceID string        `json:"reference_id"`
	Status      PaymentStatus `json:"status"`
	ChannelCode string        `json:"channel_code"`
	Actions     []Action      `json:"actions"`
}

// FirstAction returns actions[0], if any.
func (p PaymentResponse) FirstAction() (Action, bool) {
	if len(p.Actions) == 0 {
		return Action{}, false
	}
	return p.Actions[0], true
}

type PaymentType string

const (
	PaymentTypePay                 PaymentType = "PAY"
	PaymentTypePayAndSave          PaymentType = "PAY_AND_SAVE"
	PaymentTypeReusablePaymentCode PaymentType = "REUSABLE_PAYMENT_CODE"
	PaymentTypeSave                PaymentType = "SAVE"
)

func (t PaymentType) Valid() bool {
	switch t {
	case PaymentTypePay, PaymentTypePayAndSave, PaymentTypeReusablePaymentCode, PaymentTypeSave:
		return true
	}
	return false
}

type Transaction struct {
	ReferenceID  string          `json:"reference_id"`
	Status       PaymentStatus   `json:"status"`
	ChannelCode  string          `json:"channel_code"`
	Subtotal     decimal.Decimal `json:"subtotal"`
	ShippingCost decimal.Decimal `json:"shipping_cost"`
	Tax          decimal.Decimal `json:"tax"`
	Total        decimal.Decimal `json:"total"`
	Actions      []Action        `json:"actions"`
	ExpiresAt    time.Time       `json:"expires_at"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// FirstAction returns actions[0], if any.
func (t Transaction) FirstAction() (Action, bool) {
	if len(t.Actions) == 0 {
		return Action{}, false
	}
	return t.Actions[0], true
}

type OrderItem struct {
	ProductID string          `json:"product_id"`
	Title     string          `json:"title"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
	Subtotal  decimal.Decimal `json:"subtotal"`
}

type Order struct {
	ID           string          `json:"id"`
	ReferenceID  string          `json:"reference_id"`
	Status       OrderStatus     `json:"status"`
	Items        []OrderItem     `json:"items"`
	Subtotal     decimal.Decimal `json:"subtotal"`
	ShippingCost decimal.Decimal `json:"shipping_cost"`
	Tax          decimal.Decimal `json:"tax"`
	Total        decimal.Decimal `json:"total"`
	ShippingType string          `json:"shipping_type"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

type User struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	Role      string    `json:"role"` // USER | SELLER | ADMIN
	Enabled   bool      `json:"enabled"`
	CreatedAt time.Time `json:"created_at"`
}

type Store struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	OwnerID   string    `json:"owner_id"`
	Enabled   bool      `json:"enabled"`
	CreatedAt time.Time `json:"created_at"`
}

// Attempt is a payment the BFF created on behalf of a session, keyed by the
// client idempotency key (external id).
type Attempt struct {
	ID          string
	ExternalID  string
	Username    string
	ReferenceID string
	ChannelCode string
	Descriptor  string
	ActionValue string
	Status      PaymentStatus
	TotalAmount decimal.Decimal
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
