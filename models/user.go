package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// User roles
const (
	RoleBuyer   = "buyer"
	RoleManager = "manager"
	RoleAdmin   = "admin"
)

// Account statuses
const (
	StatusPending   = "pending"
	StatusActive    = "active"
	StatusSuspended = "suspended"
)

type User struct {
	ID           primitive.ObjectID `json:"_id,omitempty" bson:"_id,omitempty"`
	Email        string             `json:"email" bson:"email"`
	Name         string             `json:"name" bson:"name"`
	Role         string             `json:"role" bson:"role"`
	Status       string             `json:"status" bson:"status"`
	PasswordHash string             `json:"-" bson:"password_hash,omitempty"`
	CreatedAt    time.Time          `json:"createdAt" bson:"createdAt"`
}

// CanModerate reports whether the account currently holds manager or
// admin privileges. Privileges require an active status; a suspended
// manager keeps the role but loses the grant.
func (u *User) CanModerate() bool {
	return (u.Role == RoleManager || u.Role == RoleAdmin) && u.Status == StatusActive
}

func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin && u.Status == StatusActive
}
