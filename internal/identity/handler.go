// Package identity stands in for the external identity service: it stores
// credentials and turns bearer tokens into user ids.
package identity

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/sushihentaime/markpress/internal/common"
	"github.com/sushihentaime/markpress/internal/kvstore"
)

func NewProvider(store kvstore.Store, tokens *TokenManager) *Provider {
	return &Provider{
		m:      newCredentialModel(store),
		tokens: tokens,
	}
}

// Register stores a credential for email and returns the new user id.
func (p *Provider) Register(ctx context.Context, email, password string) (string, error) {
	v := common.NewValidator()
	ValidateEmail(v, email)
	ValidatePassword(v, password)
	if !v.Valid() {
		return "", v.ValidationError()
	}

	hash, err := hashPassword(password)
	if err != nil {
		return "", err
	}

	c := Credential{
		UserID:       uuid.NewString(),
		Email:        strings.TrimSpace(email),
		PasswordHash: hash,
		CreatedAt:    time.Now().UTC(),
	}

	if err := p.m.insert(ctx, &c); err != nil {
		return "", err
	}

	return c.UserID, nil
}

// Login checks the password for email and issues a token.
func (p *Provider) Login(ctx context.Context, email, password string) (*Token, error) {
	v := common.NewValidator()
	v.Check(email != "", "email", "must be provided")
	v.Check(password != "", "password", "must be provided")
	if !v.Valid() {
		return nil, v.ValidationError()
	}

	c, err := p.m.getByEmail(ctx, email)
	if err != nil {
		switch {
		case errors.Is(err, errNoCredential):
			return nil, common.ErrAuthenticationFailure
		default:
			return nil, err
		}
	}

	ok, err := comparePassword(c.PasswordHash, password)
	if err != nil {
		return nil, err
	}

	if !ok {
		return nil, common.ErrAuthenticationFailure
	}

	return p.tokens.Generate(c.UserID)
}

// Unregister removes the credential for email. It undoes a Register whose
// follow-up writes failed and is a no-op for unknown addresses.
func (p *Provider) Unregister(ctx context.Context, email string) error {
	return p.m.delete(ctx, email)
}

// IssueToken returns a fresh token for a user that was just registered.
func (p *Provider) IssueToken(userID string) (*Token, error) {
	return p.tokens.Generate(userID)
}

// Authenticate resolves a bearer token to a user id.
func (p *Provider) Authenticate(ctx context.Context, token string) (string, error) {
	userID, err := p.tokens.Validate(token)
	if err != nil {
		return "", common.ErrAuthenticationFailure
	}

	return userID, nil
}
