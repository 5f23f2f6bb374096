package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Product struct {
	ID                primitive.ObjectID `json:"_id,omitempty" bson:"_id,omitempty"`
	Title             string             `json:"title" bson:"title"`
	Category          string             `json:"category" bson:"category"`
	Price             float64            `json:"price" bson:"price"`
	AvailableQuantity int                `json:"availableQuantity" bson:"availableQuantity"`
	MOQ               int                `json:"moq" bson:"moq"`
	PaymentOption     string             `json:"paymentOption" bson:"paymentOption"`
	ShowOnHome        bool               `json:"showOnHome" bson:"showOnHome"`
	Image             string             `json:"image,omitempty" bson:"image,omitempty"`
	Thumbnail         string             `json:"thumbnail,omitempty" bson:"thumbnail,omitempty"`
	CreatedBy         string             `json:"createdBy" bson:"createdBy"`
	CreatedAt         time.Time          `json:"createdAt" bson:"createdAt"`
}

// ProductSpec carries the comparable fields of a product. Two products
// matching on every field of the spec are exact duplicates and the
// second insert is rejected.
type ProductSpec struct {
	Title             string  `json:"title" bson:"title"`
	Category          string  `json:"category" bson:"category"`
	Price             float64 `json:"price" bson:"price"`
	AvailableQuantity int     `json:"availableQuantity" bson:"availableQuantity"`
	MOQ               int     `json:"moq" bson:"moq"`
	PaymentOption     string  `json:"paymentOption" bson:"paymentOption"`
	ShowOnHome        bool    `json:"showOnHome" bson:"showOnHome"`
}
