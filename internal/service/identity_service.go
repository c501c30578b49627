package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/passport/internal/model"
	"github.com/xxxsen/passport/internal/oauth"
	appErr "github.com/xxxsen/passport/internal/pkg/errors"
	"github.com/xxxsen/passport/internal/pkg/timeutil"
)

// IdentityService maps a verified external identity or a verified local
// email to exactly one account, creating or linking as needed.
type IdentityService struct {
	users         AccountStore
	defaultRoleID int64
	now           func() int64
}

func NewIdentityService(users AccountStore, defaultRoleID int64) *IdentityService {
	if defaultRoleID == 0 {
		defaultRoleID = model.RoleMember
	}
	return &IdentityService{users: users, defaultRoleID: defaultRoleID, now: timeutil.NowUnix}
}

// ResolveByProvider finds or creates the local account for a verified
// provider profile. The provider-id lookup deliberately precedes the
// email lookup: a user who changed their provider-visible email must
// keep resolving to the same account, and the email match only bridges
// the first federated login of a user who registered locally.
func (s *IdentityService) ResolveByProvider(ctx context.Context, profile *oauth.Profile) (*model.User, error) {
	if profile == nil || profile.SubjectID == "" {
		return nil, appErr.ErrProfileIncomplete
	}
	provider := profile.Provider
	if !oauth.Known(provider) {
		return nil, appErr.ErrUnknownProvider
	}

	if user, err := s.users.GetByProviderID(ctx, provider, profile.SubjectID); err == nil {
		return user, nil
	} else if !errors.Is(err, appErr.ErrNotFound) {
		return nil, err
	}

	email := NormalizeEmail(profile.Email)
	if email == "" {
		// LinkedIn must exist locally even when it withholds the email;
		// everyone else has to supply one.
		if provider != oauth.ProviderLinkedIn {
			return nil, appErr.ErrProfileIncomplete
		}
		email = placeholderEmail(provider, profile.SubjectID)
	}

	if user, err := s.users.GetByEmail(ctx, email); err == nil {
		if err := s.users.SetProviderID(ctx, user.ID, provider, profile.SubjectID, s.now()); err != nil {
			return nil, err
		}
		logutil.GetLogger(ctx).Info("provider linked to existing account",
			zap.String("provider", provider), zap.String("user_id", user.ID))
		return s.users.GetByID(ctx, user.ID)
	} else if !errors.Is(err, appErr.ErrNotFound) {
		return nil, err
	}

	now := s.now()
	user := &model.User{
		ID:        newID(),
		Email:     email,
		FirstName: profile.FirstName,
		LastName:  profile.LastName,
		RoleID:    s.defaultRoleID,
		Ctime:     now,
		Mtime:     now,
	}
	setProviderField(user, provider, profile.SubjectID)
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, appErr.ErrConflict) {
			// A concurrent login for the same identity won the insert.
			if existing, lookupErr := s.users.GetByProviderID(ctx, provider, profile.SubjectID); lookupErr == nil {
				return existing, nil
			}
		}
		return nil, err
	}
	logutil.GetLogger(ctx).Info("account created from federated login",
		zap.String("provider", provider), zap.String("user_id", user.ID))
	return user, nil
}

// ResolveLocal looks up the account behind a local login attempt.
func (s *IdentityService) ResolveLocal(ctx context.Context, email string) (*model.User, error) {
	user, err := s.users.GetByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		return nil, err
	}
	if user.PasswordHash == "" {
		return nil, appErr.ErrNoPassword
	}
	return user, nil
}

func setProviderField(user *model.User, provider, subjectID string) {
	switch provider {
	case oauth.ProviderGoogle:
		user.GoogleID = subjectID
	case oauth.ProviderFacebook:
		user.FacebookID = subjectID
	case oauth.ProviderTwitter:
		user.TwitterID = subjectID
	case oauth.ProviderLinkedIn:
		user.LinkedInID = subjectID
	}
}

func placeholderEmail(provider, subjectID string) string {
	return fmt.Sprintf("%s_%s@accounts.invalid", provider, subjectID)
}
