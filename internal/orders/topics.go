package orders

const (
	TopicPaymentCreated       = "storefront.payment.created"
	TopicPaymentStatusChanged = "storefront.payment.status.changed"
)

// Partition key = reference_id, so every event of one payment keeps its order.
func PartitionKey(referenceID string) []byte { return []byte(referenceID) }
