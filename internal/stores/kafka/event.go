package kafka

import "time"

const TopicOrderPaid = `quikkart.order-paid`

// OrderPaidEvent is published once per line item after an online payment is
// reconciled into orders. Keyed by the order group id.
type OrderPaidEvent struct {
	OrderId   string    `json:"order_id"`
	ProductId string    `json:"product_id"`
	Quantity  int       `json:"quantity"`
	CreatedAt time.Time `json:"created_at"`
}
