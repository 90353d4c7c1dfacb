package models

// Plan is a subscription tier.
type Plan struct {
	ID            int64
	Name          string
	MonthlyPrice  float64
	BaseSlots     int
	BaseGB        int
	BaseNotes     int
	BaseReminders int
	AdFree        bool
}

// Pack is a one-off purchase that adds to a user's limits.
type Pack struct {
	ID             int64
	Name           string
	Price          float64
	ExtraSlots     int
	ExtraGB        int
	ExtraNotes     int
	ExtraReminders int
}

// ProcessedPayment records a payment id whose entitlement has already been
// applied.
type ProcessedPayment struct {
	PaymentID    string
	UserID       string
	PurchaseKind string
	ProductID    int64
}

// Stats are the aggregate figures shown to operators.
type Stats struct {
	Users        int64   `json:"users"`
	PremiumUsers int64   `json:"premium_users"`
	MRR          float64 `json:"mrr"`
	AdViews      int64   `json:"ad_views"`
}
