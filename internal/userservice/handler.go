// Package userservice owns user profiles: creation at signup, reads with
// computed blog counts, owner-only updates and the author projection used by
// the content service.
package userservice

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/sushihentaime/markpress/internal/common"
	"github.com/sushihentaime/markpress/internal/identity"
	"github.com/sushihentaime/markpress/internal/kvstore"
)

func NewUserService(store kvstore.Store, ids Registrar, mb common.MessageProducer, c *common.Cache, blogs BlogCounter, logger *slog.Logger) *UserService {
	if mb == nil {
		mb = common.DiscardProducer{}
	}

	return &UserService{
		m:      NewUserModel(store),
		ids:    ids,
		mb:     mb,
		c:      c,
		blogs:  blogs,
		logger: logger,
	}
}

// SignUp registers the credential, creates the profile and publishes a
// user.created event. A failed publish is logged and does not fail signup.
func (s *UserService) SignUp(ctx context.Context, name, email, password string) (*SignUpResult, error) {
	name = strings.TrimSpace(name)
	email = strings.TrimSpace(email)

	v := common.NewValidator()
	validateName(v, name)
	identity.ValidateEmail(v, email)
	identity.ValidatePassword(v, password)
	if !v.Valid() {
		return nil, v.ValidationError()
	}

	id, err := s.ids.Register(ctx, email, password)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	prefs := DefaultPreferences()
	u := &User{
		ID:          id,
		Name:        name,
		Email:       email,
		SocialLinks: map[string]string{},
		Preferences: &prefs,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	// Without the profile the credential would block the address forever.
	if err := s.m.put(ctx, u); err != nil {
		if uerr := s.ids.Unregister(ctx, email); uerr != nil {
			s.logger.Error("could not remove credential after failed signup", "error", uerr, "user_id", id)
		}
		return nil, err
	}

	s.publishUserCreated(ctx, u)

	token, err := s.ids.IssueToken(id)
	if err != nil {
		return nil, err
	}

	return &SignUpResult{
		User:  &UserSummary{User: *u},
		Token: token,
	}, nil
}

func (s *UserService) publishUserCreated(ctx context.Context, u *User) {
	msg, err := json.Marshal(common.UserCreatedMessage{Email: u.Email, Name: u.Name})
	if err != nil {
		s.logger.Error("could not encode user.created message", "error", err, "user_id", u.ID)
		return
	}

	if err := s.mb.Publish(ctx, msg, common.UserCreatedKey, common.UserExchange); err != nil {
		s.logger.Error("could not publish user.created message", "error", err, "user_id", u.ID)
	}
}

// GetProfile returns the profile of userID as seen by viewerID. Contact
// fields the owner chose not to show are blanked for everyone else.
func (s *UserService) GetProfile(ctx context.Context, userID, viewerID string) (*UserSummary, error) {
	u, err := s.m.get(ctx, userID)
	if err != nil {
		return nil, err
	}

	summary, err := s.summary(ctx, u)
	if err != nil {
		return nil, err
	}

	if viewerID != userID {
		p := summary.Preferences
		if !p.ShowEmail {
			summary.Email = ""
		}
		if !p.ShowPhone {
			summary.Phone = ""
		}
		if !p.ShowLocation {
			summary.Location = ""
		}
	}

	return summary, nil
}

// UpdateProfile applies patch to the caller's own profile.
func (s *UserService) UpdateProfile(ctx context.Context, userID, callerID string, patch ProfilePatch) (*UserSummary, error) {
	if callerID == "" {
		return nil, common.ErrAuthenticationFailure
	}

	if callerID != userID {
		return nil, common.ErrForbidden
	}

	u, err := s.m.get(ctx, userID)
	if err != nil {
		return nil, err
	}

	if patch.Name != nil {
		u.Name = strings.TrimSpace(*patch.Name)
	}

	v := common.NewValidator()
	validateName(v, u.Name)
	if !v.Valid() {
		return nil, v.ValidationError()
	}

	setIfPresent(&u.Bio, patch.Bio)
	setIfPresent(&u.Location, patch.Location)
	setIfPresent(&u.Phone, patch.Phone)
	setIfPresent(&u.Website, patch.Website)
	setIfPresent(&u.AvatarURL, patch.AvatarURL)

	u.SocialLinks = cleanSocialLinks(patch.SocialLinks)
	u.Preferences = mergePreferences(u.Preferences, patch.Preferences)
	u.UpdatedAt = time.Now().UTC()

	if err := s.m.put(ctx, u); err != nil {
		return nil, err
	}

	s.c.Delete(common.CacheKeyAuthor(userID))

	return s.summary(ctx, u)
}

// Author returns the {id, name} projection of a user, or nil when the user
// does not exist.
func (s *UserService) Author(ctx context.Context, userID string) (*Author, error) {
	if userID == "" {
		return nil, nil
	}

	key := common.CacheKeyAuthor(userID)
	if a, found := s.c.Get(key); found {
		return a.(*Author), nil
	}

	u, err := s.m.get(ctx, userID)
	if err != nil {
		if errors.Is(err, common.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}

	a := &Author{ID: u.ID, Name: u.Name}
	s.c.Set(key, a)

	return a, nil
}

func (s *UserService) summary(ctx context.Context, u *User) (*UserSummary, error) {
	count, err := s.blogs.CountPublished(ctx, u.ID)
	if err != nil {
		return nil, err
	}

	if u.Preferences == nil {
		prefs := DefaultPreferences()
		u.Preferences = &prefs
	}
	if u.SocialLinks == nil {
		u.SocialLinks = map[string]string{}
	}

	return &UserSummary{User: *u, BlogCount: count}, nil
}

func setIfPresent(dst *string, v *string) {
	if v != nil {
		*dst = strings.TrimSpace(*v)
	}
}

func mergePreferences(current *Preferences, patch *PreferencesPatch) *Preferences {
	merged := DefaultPreferences()
	if current != nil {
		merged = *current
	}

	if patch == nil {
		return &merged
	}

	mergeBool(&merged.EmailNotifications, patch.EmailNotifications)
	mergeBool(&merged.PublicProfile, patch.PublicProfile)
	mergeBool(&merged.ShowEmail, patch.ShowEmail)
	mergeBool(&merged.ShowPhone, patch.ShowPhone)
	mergeBool(&merged.ShowLocation, patch.ShowLocation)

	return &merged
}

func mergeBool(dst *bool, v *bool) {
	if v != nil {
		*dst = *v
	}
}
