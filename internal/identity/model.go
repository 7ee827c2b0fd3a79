package identity

import (
	"context"
	"errors"
	"strings"

	"github.com/sushihentaime/markpress/internal/kvstore"
)

var (
	ErrDuplicateEmail = errors.New("duplicate email")
	errNoCredential   = errors.New("credential not found")
)

func newCredentialModel(store kvstore.Store) *credentialModel {
	return &credentialModel{store: store}
}

func credentialKey(email string) string {
	return credentialPrefix + strings.ToLower(strings.TrimSpace(email))
}

// insert fails with ErrDuplicateEmail when the address is taken. The check
// and the write are separate store calls, so two concurrent signups for the
// same address can both succeed; the later write wins.
func (m *credentialModel) insert(ctx context.Context, c *Credential) error {
	key := credentialKey(c.Email)

	_, err := m.store.Get(ctx, key)
	switch {
	case err == nil:
		return ErrDuplicateEmail
	case !errors.Is(err, kvstore.ErrNotFound):
		return err
	}

	return kvstore.SetJSON(ctx, m.store, key, c)
}

func (m *credentialModel) getByEmail(ctx context.Context, email string) (*Credential, error) {
	var c Credential

	err := kvstore.GetJSON(ctx, m.store, credentialKey(email), &c)
	if err != nil {
		switch {
		case errors.Is(err, kvstore.ErrNotFound):
			return nil, errNoCredential
		default:
			return nil, err
		}
	}

	return &c, nil
}

func (m *credentialModel) delete(ctx context.Context, email string) error {
	return m.store.Delete(ctx, credentialKey(email))
}
