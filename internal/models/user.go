package models

import "time"

// User is an account of the invoicing application as seen by the session layer.
// The password hash never leaves the server: it is excluded from JSON.
type User struct {
	ID           string    `bson:"_id" json:"id"`
	Email        string    `bson:"email" json:"email"`
	Name         string    `bson:"name" json:"name"`
	TenantID     string    `bson:"tenantId,omitempty" json:"tenantId,omitempty"`
	PasswordHash string    `bson:"passwordHash" json:"-"`
	CreatedAt    time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt    time.Time `bson:"updatedAt" json:"updatedAt"`
}
