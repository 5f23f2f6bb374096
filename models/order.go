package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Order statuses. The status field moves pending→confirmed or
// pending→rejected only; both targets are terminal.
const (
	OrderPending   = "pending"
	OrderConfirmed = "confirmed"
	OrderRejected  = "rejected"
)

// Payment statuses. Monotonic: pending→paid, set exactly once.
const (
	PaymentPending = "pending"
	PaymentPaid    = "paid"
)

// TrackingStatuses are the shipment stages a tracking event may carry.
var TrackingStatuses = []string{
	"Cutting Completed",
	"Sewing Started",
	"Finishing",
	"QC Checked",
	"Packed",
	"Shipped / Out for Delivery",
}

type TrackingEvent struct {
	ID       string    `json:"id" bson:"id"`
	Status   string    `json:"status" bson:"status"`
	Location string    `json:"location" bson:"location"`
	Note     string    `json:"note" bson:"note"`
	Time     time.Time `json:"time" bson:"time"`
}

type Order struct {
	ID              primitive.ObjectID `json:"_id,omitempty" bson:"_id,omitempty"`
	UserEmail       string             `json:"userEmail" bson:"userEmail"`
	ProductID       string             `json:"productId" bson:"productId"`
	ProductTitle    string             `json:"productTitle" bson:"productTitle"`
	Quantity        int                `json:"quantity" bson:"quantity"`
	TotalPrice      float64            `json:"totalPrice" bson:"totalPrice"`
	OrderStatus     string             `json:"orderStatus" bson:"orderStatus"`
	PaymentStatus   string             `json:"paymentStatus" bson:"paymentStatus"`
	Tracking        []TrackingEvent    `json:"tracking" bson:"tracking"`
	CreatedAt       time.Time          `json:"createdAt" bson:"createdAt"`
	ApprovedAt      *time.Time         `json:"approvedAt,omitempty" bson:"approvedAt,omitempty"`
	RejectedAt      *time.Time         `json:"rejectedAt,omitempty" bson:"rejectedAt,omitempty"`
	CancelledAt     *time.Time         `json:"cancelledAt,omitempty" bson:"cancelledAt,omitempty"`
	PaidAt          *time.Time         `json:"paidAt,omitempty" bson:"paidAt,omitempty"`
	PaymentIntentID string             `json:"paymentIntentId,omitempty" bson:"paymentIntentId,omitempty"`
	TransactionID   string             `json:"transactionId,omitempty" bson:"transactionId,omitempty"`
}

// DisplayStatus derives the customer-facing state from the two
// independent axes. Payment never overwrites a manager decision in
// storage; a paid order merely displays as confirmed until a manager
// rejects it.
func (o Order) DisplayStatus() string {
	if o.OrderStatus == OrderRejected {
		return OrderRejected
	}
	if o.OrderStatus == OrderConfirmed || o.PaymentStatus == PaymentPaid {
		return OrderConfirmed
	}
	return OrderPending
}

func ValidTrackingStatus(status string) bool {
	for _, s := range TrackingStatuses {
		if s == status {
			return true
		}
	}
	return false
}
