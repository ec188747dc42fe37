package orders

import "time"

// Payment states an order row can carry. PAID and EXPIRED are terminal;
// CASH ON DELIVERY rows settle offline.
const (
	StatusCashOnDelivery = "CASH ON DELIVERY"
	StatusPaid           = "PAID"
	StatusPending        = "PENDING"
	StatusExpired        = "EXPIRED"
)

// FulfillmentProcessing is the initial fulfillment status, independent of the
// payment status.
const FulfillmentProcessing = "Processing"

type ProductDetails struct {
	Name  string `json:"name"`
	Image string `json:"image"`
}

// Order is one line item of an order group. All rows created from a single
// checkout transaction share one OrderID.
type Order struct {
	ID              int64          `json:"id"`
	OrderID         string         `json:"orderId"`
	UserID          string         `json:"userId"`
	ProductID       string         `json:"productId"`
	ProductDetails  ProductDetails `json:"product_details"`
	PaymentID       string         `json:"paymentId"`
	StripeSessionID string         `json:"-"`
	PaymentStatus   string         `json:"payment_status"`
	DeliveryAddress string         `json:"delivery_address"`
	SubTotalAmt     float64        `json:"subTotalAmt"`
	TotalAmt        float64        `json:"totalAmt"`
	Quantity        int            `json:"quantity"`
	Status          string         `json:"status"`
	CreatedAt       time.Time      `json:"createdAt"`
	UpdatedAt       time.Time      `json:"updatedAt"`
}

// Line is one cart line as submitted at checkout time, with the product
// snapshot the client saw.
type Line struct {
	ProductID      string         `json:"productId" validate:"required"`
	Quantity       int            `json:"quantity" validate:"gte=0"`
	Price          float64        `json:"price" validate:"gte=0"`
	ProductDetails ProductDetails `json:"product_details"`
}

// SessionItem is one line reconstructed from checkout-session metadata. Only
// the fields that fit the processor's metadata size limit survive the round
// trip; everything else is re-resolved locally.
type SessionItem struct {
	ProductID string
	Quantity  int
}

// SessionGroup is everything needed to materialize an order group from a
// completed checkout session. Amounts come from the processor's session, not
// from any client-supplied value.
type SessionGroup struct {
	SessionID   string
	PaymentID   string
	UserID      string
	AddressID   string
	Items       []SessionItem
	SubTotalAmt float64
	TotalAmt    float64
}
