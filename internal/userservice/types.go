package userservice

import (
	"context"
	"log/slog"
	"time"

	"github.com/sushihentaime/markpress/internal/common"
	"github.com/sushihentaime/markpress/internal/identity"
	"github.com/sushihentaime/markpress/internal/kvstore"
)

const (
	userPrefix = "user:"

	MaxNameLength = 100
)

// Platforms lists the social link keys a profile may carry. Other keys are
// dropped on update.
var Platforms = []string{"twitter", "github", "linkedin", "facebook", "instagram", "youtube", "website"}

// Registrar is the part of the identity provider used at signup.
type Registrar interface {
	Register(ctx context.Context, email, password string) (string, error)
	Unregister(ctx context.Context, email string) error
	IssueToken(userID string) (*identity.Token, error)
}

// BlogCounter reports how many published blogs a user owns.
type BlogCounter interface {
	CountPublished(ctx context.Context, userID string) (int, error)
}

// BlogCounterFunc adapts a function to BlogCounter.
type BlogCounterFunc func(ctx context.Context, userID string) (int, error)

func (f BlogCounterFunc) CountPublished(ctx context.Context, userID string) (int, error) {
	return f(ctx, userID)
}

type UserService struct {
	m      *UserModel
	ids    Registrar
	mb     common.MessageProducer
	c      *common.Cache
	blogs  BlogCounter
	logger *slog.Logger
}

type UserModel struct {
	store kvstore.Store
}

type Preferences struct {
	EmailNotifications bool `json:"emailNotifications"`
	PublicProfile      bool `json:"publicProfile"`
	ShowEmail          bool `json:"showEmail"`
	ShowPhone          bool `json:"showPhone"`
	ShowLocation       bool `json:"showLocation"`
}

func DefaultPreferences() Preferences {
	return Preferences{
		EmailNotifications: true,
		PublicProfile:      true,
	}
}

type User struct {
	ID          string            `json:"id"`
	Name        string            `json:"name"`
	Email       string            `json:"email"`
	Bio         string            `json:"bio"`
	Location    string            `json:"location"`
	Phone       string            `json:"phone"`
	Website     string            `json:"website"`
	AvatarURL   string            `json:"avatarUrl"`
	SocialLinks map[string]string `json:"socialLinks"`
	// Preferences is nil for records written before preferences existed.
	Preferences *Preferences `json:"preferences"`
	CreatedAt   time.Time    `json:"createdAt"`
	UpdatedAt   time.Time    `json:"updatedAt"`
}

// UserSummary is a profile as returned to clients.
type UserSummary struct {
	User
	BlogCount int `json:"blogCount"`
}

// Author is the minimal projection attached to blogs and comments.
type Author struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type PreferencesPatch struct {
	EmailNotifications *bool `json:"emailNotifications"`
	PublicProfile      *bool `json:"publicProfile"`
	ShowEmail          *bool `json:"showEmail"`
	ShowPhone          *bool `json:"showPhone"`
	ShowLocation       *bool `json:"showLocation"`
}

// ProfilePatch carries a profile update. Nil scalar fields are left alone;
// SocialLinks always replaces the stored map.
type ProfilePatch struct {
	Name        *string           `json:"name"`
	Bio         *string           `json:"bio"`
	Location    *string           `json:"location"`
	Phone       *string           `json:"phone"`
	Website     *string           `json:"website"`
	AvatarURL   *string           `json:"avatarUrl"`
	SocialLinks map[string]string `json:"socialLinks"`
	Preferences *PreferencesPatch `json:"preferences"`
}

type SignUpResult struct {
	User  *UserSummary    `json:"user"`
	Token *identity.Token `json:"token"`
}
