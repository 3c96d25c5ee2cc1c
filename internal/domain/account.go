package domain

import "time"

// Account is the persisted user account a registration resolves to.
// An account without a PasswordHash has not finished registration yet.
type Account struct {
	AccountID      string    `json:"id" dynamodbav:"account_id"`
	Email          string    `json:"email" dynamodbav:"email"`
	PasswordHash   string    `json:"-" dynamodbav:"password_hash"`
	EmailConfirmed bool      `json:"email_confirmed" dynamodbav:"email_confirmed"`
	CreatedAt      time.Time `json:"created" dynamodbav:"created_at"`
	UpdatedAt      time.Time `json:"updated" dynamodbav:"updated_at"`
}

// HasPassword reports whether registration was completed.
func (a *Account) HasPassword() bool {
	return a != nil && a.PasswordHash != ""
}
