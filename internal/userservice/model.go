package userservice

import (
	"context"
	"errors"

	"github.com/sushihentaime/markpress/internal/common"
	"github.com/sushihentaime/markpress/internal/kvstore"
)

func NewUserModel(store kvstore.Store) *UserModel {
	return &UserModel{store: store}
}

func userKey(id string) string {
	return userPrefix + id
}

func (m *UserModel) get(ctx context.Context, id string) (*User, error) {
	var u User

	err := kvstore.GetJSON(ctx, m.store, userKey(id), &u)
	if err != nil {
		switch {
		case errors.Is(err, kvstore.ErrNotFound):
			return nil, common.ErrRecordNotFound
		default:
			return nil, err
		}
	}

	return &u, nil
}

func (m *UserModel) put(ctx context.Context, u *User) error {
	return kvstore.SetJSON(ctx, m.store, userKey(u.ID), u)
}
