package orders

// PaymentStatus is the backend's payment status. Server-authoritative; the
// client only reads it.
type PaymentStatus string

const (
	PaymentPending        PaymentStatus = "PENDING"
	PaymentRequiresAction PaymentStatus = "REQUIRES_ACTION"
	PaymentSucceeded      PaymentStatus = "SUCCEEDED"
	PaymentFailed         PaymentStatus = "FAILED"
	PaymentCanceled       PaymentStatus = "CANCELED"
	PaymentExpired        PaymentStatus = "EXPIRED"
)

var PaymentStatuses = []PaymentStatus{
	PaymentPending, PaymentRequiresAction, PaymentSucceeded,
	PaymentFailed, PaymentCanceled, PaymentExpired,
}

func (s PaymentStatus) Terminal() bool {
	switch s {
	case PaymentSucceeded, PaymentFailed, PaymentCanceled, PaymentExpired:
		return true
	}
	return false
}

// OrderStatus is the fulfillment status of an order.
type OrderStatus string

const (
	OrderPendingPayment OrderStatus = "PENDING_PAYMENT"
	OrderPaid           OrderStatus = "PAID"
	OrderProcessing     OrderStatus = "PROCESSING"
	OrderShipped        OrderStatus = "SHIPPED"
	OrderDelivered      OrderStatus = "DELIVERED"
	OrderCompleted      OrderStatus = "COMPLETED"
	OrderCanceled       OrderStatus = "CANCELED"
	OrderRefunded       OrderStatus = "REFUNDED"
)

var OrderStatuses = []OrderStatus{
	OrderPendingPayment, OrderPaid, OrderProcessing, OrderShipped,
	OrderDelivered, OrderCompleted, OrderCanceled, OrderRefunded,
}

var validNext = map[OrderStatus]map[OrderStatus]bool{
	OrderPendingPayment: {OrderPaid: true, OrderCanceled: true},
	OrderPaid:           {OrderProcessing: true, OrderRefunded: true},
	OrderProcessing:     {OrderShipped: true, OrderCanceled: true, OrderRefunded: true},
	OrderShipped:        {OrderDelivered: true},
	OrderDelivered:      {OrderCompleted: true, OrderRefunded: true},
	OrderCompleted:      {},
	OrderCanceled:       {},
	OrderRefunded:       {},
}

func CanTransition(from, to OrderStatus) bool {
	return validNext[from][to]
}

// Badge is how a status is shown: a label plus a color token.
type Badge struct {
	Label string `json:"label"`
	Color string `json:"color"`
}

var unknownBadge = Badge{Label: "Unknown", Color: "gray"}

// PaymentBadge maps every PaymentStatus to its badge. ok is false for
// statuses outside the enum.
func PaymentBadge(s PaymentStatus) (b Badge, ok bool) {
	switch s {
	case PaymentPending:
		return Badge{"Waiting for payment", "yellow"}, true
	case PaymentRequiresAction:
		return Badge{"Action required", "orange"}, true
	case PaymentSucceeded:
		return Badge{"Paid", "green"}, true
	case PaymentFailed:
		return Badge{"Failed", "red"}, true
	case PaymentCanceled:
		return Badge{"Canceled", "gray"}, true
	case PaymentExpired:
		return Badge{"Expired", "red"}, true
	}
	return unknownBadge, false
}

func OrderBadge(s OrderStatus) (b Badge, ok bool) {
	switch s {
	case OrderPendingPayment:
		return Badge{"Waiting for payment", "yellow"}, true
	case OrderPaid:
		return Badge{"Paid", "green"}, true
	case OrderProcessing:
		return Badge{"Processing", "blue"}, true
	case OrderShipped:
		return Badge{"Shipped", "indigo"}, true
	case OrderDelivered:
		return Badge{"Delivered", "teal"}, true
	case OrderCompleted:
		return Badge{"Completed", "green"}, true
	case OrderCanceled:
		return Badge{"Canceled", "gray"}, true
	case OrderRefunded:
		return Badge{"Refunded", "purple"}, true
	}
	return unknownBadge, false
}
