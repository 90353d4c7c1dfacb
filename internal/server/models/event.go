package models

// Purchase kinds carried by payment events.
const (
	PurchasePlan = "plan"
	PurchasePack = "pack"
)

// PaymentStatusApproved is the only status that changes entitlements.
const PaymentStatusApproved = "approved"

// PaymentEvent is a notification from the payment provider.
type PaymentEvent struct {
	PaymentID    string `cbor:"payment_id" json:"payment_id"`
	Status       string `cbor:"status" json:"status"`
	UserID       string `cbor:"user_id" json:"user_id"`
	PurchaseKind string `cbor:"purchase_kind" json:"purchase_kind"`
	ProductID    int64  `cbor:"product_id" json:"product_id"`
}

// WelcomeMessage is published after a successful registration.
type WelcomeMessage struct {
	UserID   string `cbor:"user_id"`
	Email    string `cbor:"email"`
	UserName string `cbor:"username"`
}
