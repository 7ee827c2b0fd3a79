package identity

import (
	"time"

	"github.com/sushihentaime/markpress/internal/kvstore"
)

const (
	credentialPrefix = "credential:"

	bcryptCost = 12

	DefaultTokenTTL time.Duration = 24 * time.Hour
)

// Provider owns credentials and issues the bearer tokens the API accepts.
type Provider struct {
	m      *credentialModel
	tokens *TokenManager
}

type credentialModel struct {
	store kvstore.Store
}

// Credential is stored under credential:<lower(email)>.
type Credential struct {
	UserID       string    `json:"userId"`
	Email        string    `json:"email"`
	PasswordHash []byte    `json:"passwordHash"`
	CreatedAt    time.Time `json:"createdAt"`
}

type Token struct {
	Plain  string    `json:"token"`
	Expiry time.Time `json:"expiry"`
}
