package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Role classifies an identity.
type Role string

const (
	RoleOwner   Role = "owner"
	RoleTrainer Role = "trainer"
	RoleClient  Role = "client"
	RoleGuest   Role = "guest"
)

// User is the authentication principal. Client identities are provisioned
// automatically; staff identities (owner, trainer) are created explicitly.
type User struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Username     string             `bson:"username" json:"username"` // unique
	Email        string             `bson:"email" json:"email"`       // unique
	FirstName    string             `bson:"firstName,omitempty" json:"firstName,omitempty"`
	LastName     string             `bson:"lastName,omitempty" json:"lastName,omitempty"`
	PasswordHash string             `bson:"passwordHash" json:"-"`
	Role         Role               `bson:"role" json:"role"`

	// ProvisionedAge is the client age the default password was derived from.
	// Nil for identities that were not provisioned from a client record.
	ProvisionedAge *int `bson:"provisionedAge,omitempty" json:"-"`

	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updatedAt"`
}

func (u *User) IsStaff() bool {
	return u.Role == RoleOwner || u.Role == RoleTrainer
}

func (u *User) IsClient() bool {
	return u.Role == RoleClient
}

// ValidStaffRole reports whether r may be given to an explicitly created staff identity.
func ValidStaffRole(r Role) bool {
	return r == RoleOwner || r == RoleTrainer
}
