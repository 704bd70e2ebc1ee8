package accounts

import (
	"context"
	"errors"
)

// Account is a forum session owned by some external identity (a chat user,
// a CLI operator...). ExternalID never changes once created.
type Account struct {
	ExternalID          string    `json:"external_id"`
	Username            string    `json:"username"`
	Cookies             CookieSet `json:"cookies"`
	LastAuthenticatedAt int64     `json:"last_authenticated_at"`
	Valid               bool      `json:"valid"`
	AutoSign            bool      `json:"autosign"`
}

// DisplayName is the username, or the external id when the username
// is still unknown.
func (a Account) DisplayName() string {
	if a.Username != "" {
		return a.Username
	}
	return a.ExternalID
}

// Clone returns a copy that shares nothing with a.
func (a Account) Clone() Account {
	out := a
	if a.Cookies.values != nil {
		out.Cookies = NewCookieSet(a.Cookies.values)
	}
	return out
}

var ErrNotFound = errors.New("account not found")

// Store persists accounts keyed on ExternalID.
//
// Implementations must be safe for concurrent use and a Get following an
// Upsert must observe it. Listing order is insertion order.
type Store interface {
	GetAll(ctx context.Context) ([]Account, error)
	GetAutoSign(ctx context.Context) ([]Account, error)
	// GetByID returns ErrNotFound if no account exists for the id.
	GetByID(ctx context.Context, externalID string) (Account, error)
	Upsert(ctx context.Context, account Account) error
}
