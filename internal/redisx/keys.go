package redisx

import (
	"fmt"
	"time"
)

const (
	// Session BFF: session:{sid} -> Identity JSON
	KeySession = "session:%s"

	// Cache status payment: payment_status:{reference_id} -> Transaction JSON
	KeyPaymentStatus = "payment_status:%s"

	// Lock submit checkout: lock:checkout:{idempotency_key}
	KeyCheckoutLock = "lock:checkout:%s"

	// Dedup event processing: dedup:{service}:{event_id}
	KeyDedup = "dedup:%s:%s"
)

var (
	TTLSession      = 7 * 24 * time.Hour
	TTLStatusCache  = 5 * time.Minute
	TTLCheckoutLock = 30 * time.Second
	TTLDedup        = 48 * time.Hour
)

func SessionKey(sid string) string { return fmt.Sprintf(KeySession, sid) }
func PaymentStatusKey(ref string) string { return fmt.Sprintf(KeyPaymentStatus, ref) }
func CheckoutLockKey(key string) string { return fmt.Sprintf(KeyCheckoutLock, key) }
func DedupKey(service, eventID string) string { return fmt.Sprintf(KeyDedup, service, eventID) }
