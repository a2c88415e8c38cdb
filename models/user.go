package models

import (
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

const MaxAddresses = 4

var (
	ErrAddressLimit    = errors.New("address book is full")
	ErrAddressNotFound = errors.New("address not found")
)

type Address struct {
	ID        bson.ObjectID `bson:"_id" json:"id"`
	Street    string        `bson:"street" json:"street"`
	City      string        `bson:"city" json:"city"`
	State     string        `bson:"state" json:"state"`
	Zip       string        `bson:"zip" json:"zip"`
	Country   string        `bson:"country" json:"country"`
	Phone     string        `bson:"phone" json:"phone"`
	IsDefault bool          `bson:"isDefault" json:"isDefault"`
}

type User struct {
	ID           bson.ObjectID   `bson:"_id,omitempty" json:"id"`
	Name         string          `bson:"name" json:"name"`
	Email        string          `bson:"email,omitempty" json:"email,omitempty"`
	Phone        string          `bson:"phone,omitempty" json:"phone,omitempty"`
	PasswordHash string          `bson:"passwordHash" json:"-"` // never expose
	Role         Role            `bson:"role" json:"role"`
	IsActive     bool            `bson:"isActive" json:"isActive"`
	Addresses    []Address       `bson:"addresses" json:"addresses"`
	Wishlist     []bson.ObjectID `bson:"wishlist" json:"wishlist"`
	CreatedAt    time.Time       `bson:"createdAt" json:"createdAt"`
	UpdatedAt    time.Time       `bson:"updatedAt" json:"updatedAt"`
}

func (u *User) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}

// AddAddress appends a to the address book. The first address, or one flagged
// as default, becomes the only default.
func (u *User) AddAddress(a Address) error {
	if len(u.Addresses) >= MaxAddresses {
		return ErrAddressLimit
	}
	if a.ID.IsZero() {
		a.ID = bson.NewObjectID()
	}
	if a.Country == "" {
		a.Country = "India"
	}
	if a.IsDefault {
		u.clearDefault()
	} else if len(u.Addresses) == 0 {
		a.IsDefault = true
	}
	u.Addresses = append(u.Addresses, a)
	return nil
}

// UpdateAddress replaces the address with the same ID, keeping the single
// default invariant.
func (u *User) UpdateAddress(a Address) error {
	for i := range u.Addresses {
		if u.Addresses[i].ID != a.ID {
			continue
		}
		wasDefault := u.Addresses[i].IsDefault
		if a.IsDefault {
			u.clearDefault()
		} else if wasDefault {
			// the default can only move, not disappear
			a.IsDefault = true
		}
		if a.Country == "" {
			a.Country = u.Addresses[i].Country
		}
		u.Addresses[i] = a
		return nil
	}
	return ErrAddressNotFound
}

// RemoveAddress deletes the address with id; removing the default promotes
// the first remaining address.
func (u *User) RemoveAddress(id bson.ObjectID) error {
	for i, a := range u.Addresses {
		if a.ID != id {
			continue
		}
		u.Addresses = append(u.Addresses[:i], u.Addresses[i+1:]...)
		if a.IsDefault && len(u.Addresses) > 0 {
			u.Addresses[0].IsDefault = true
		}
		return nil
	}
	return ErrAddressNotFound
}

func (u *User) clearDefault() {
	for i := range u.Addresses {
		u.Addresses[i].IsDefault = false
	}
}
