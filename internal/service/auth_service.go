package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/passport/internal/model"
	"github.com/xxxsen/passport/internal/oauth"
	appErr "github.com/xxxsen/passport/internal/pkg/errors"
	"github.com/xxxsen/passport/internal/pkg/jwt"
	"github.com/xxxsen/passport/internal/pkg/timeutil"
)

// AuthService sequences the verification engine, the identity resolver
// and the token issuer per flow. It keeps no flow state of its own
// beyond the short-lived reset tickets.
type AuthService struct {
	users     AccountStore
	identity  *IdentityService
	verifier  *VerificationService
	providers map[string]oauth.Provider
	tickets   *resetTicketStore
	issuer    TokenIssuer
}

func NewAuthService(users AccountStore, identity *IdentityService, verifier *VerificationService,
	providers map[string]oauth.Provider, issuer TokenIssuer, resetTicketTTL time.Duration) *AuthService {
	if providers == nil {
		providers = map[string]oauth.Provider{}
	}
	return &AuthService{
		users:     users,
		identity:  identity,
		verifier:  verifier,
		providers: providers,
		tickets:   newResetTicketStore(resetTicketTTL),
		issuer:    issuer,
	}
}

const (
	minPasswordLength = 8
	// bcrypt truncates nothing and errors past 72 bytes.
	maxPasswordLength = 72
)

// validatePassword runs before any code or ticket is consumed, so a
// password bcrypt would reject cannot burn a one-time credential.
func validatePassword(password string) error {
	if len(password) < minPasswordLength || len(password) > maxPasswordLength {
		return appErr.ErrInvalid
	}
	return nil
}

type RegisterInput struct {
	Email     string
	Code      string
	Password  string
	FirstName string
	LastName  string
	Phone     string
	BirthDate int64
}

// InitiateLogin checks the password and sends a login code. NotFound
// and a wrong password both come back as ErrUnauthorized; ErrNoPassword
// passes through so the caller can point social-only accounts at their
// provider.
func (s *AuthService) InitiateLogin(ctx context.Context, email, password, originIP string) error {
	user, err := s.identity.ResolveLocal(ctx, email)
	if err != nil {
		if errors.Is(err, appErr.ErrNotFound) {
			return appErr.ErrUnauthorized
		}
		return err
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return appErr.ErrUnauthorized
	}
	return s.verifier.IssueCode(ctx, email, model.PurposeLogin, originIP)
}

func (s *AuthService) CompleteLogin(ctx context.Context, email, code string) (*model.User, string, error) {
	ok, err := s.verifier.ValidateCode(ctx, email, code, model.PurposeLogin)
	if err != nil {
		return nil, "", err
	}
	if !ok {
		return nil, "", appErr.ErrUnauthorized
	}
	user, err := s.users.GetByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		return nil, "", appErr.ErrUnauthorized
	}
	return s.issue(ctx, user, "login")
}

func (s *AuthService) InitiateRegister(ctx context.Context, email, originIP string) error {
	exists, err := s.users.EmailExists(ctx, NormalizeEmail(email))
	if err != nil {
		return err
	}
	if exists {
		return appErr.ErrAlreadyRegistered
	}
	return s.verifier.IssueCode(ctx, email, model.PurposeRegister, originIP)
}

func (s *AuthService) CompleteRegister(ctx context.Context, input RegisterInput) (*model.User, string, error) {
	if err := validatePassword(input.Password); err != nil {
		return nil, "", err
	}
	ok, err := s.verifier.ValidateCode(ctx, input.Email, input.Code, model.PurposeRegister)
	if err != nil {
		return nil, "", err
	}
	if !ok {
		return nil, "", appErr.ErrUnauthorized
	}
	email := NormalizeEmail(input.Email)
	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, "", err
	}
	now := timeutil.NowUnix()
	user := &model.User{
		ID:           newID(),
		Email:        email,
		PasswordHash: string(hash),
		FirstName:    strings.TrimSpace(input.FirstName),
		LastName:     strings.TrimSpace(input.LastName),
		Phone:        strings.TrimSpace(input.Phone),
		BirthDate:    input.BirthDate,
		RoleID:       s.identity.defaultRoleID,
		Ctime:        now,
		Mtime:        now,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, appErr.ErrConflict) {
			return nil, "", appErr.ErrAlreadyRegistered
		}
		return nil, "", err
	}
	return s.issue(ctx, user, "register")
}

// InitiateReset sends a reset code. The account must exist and carry a
// password; the HTTP layer is responsible for presenting both failure
// kinds neutrally.
func (s *AuthService) InitiateReset(ctx context.Context, email, originIP string) error {
	if _, err := s.identity.ResolveLocal(ctx, email); err != nil {
		return err
	}
	return s.verifier.IssueCode(ctx, email, model.PurposeResetPassword, originIP)
}

// VerifyResetCode validates the reset code once and trades it for a
// single-use ticket. The ticket, not the now-consumed code, authorizes
// the final password change.
func (s *AuthService) VerifyResetCode(ctx context.Context, email, code string) (string, error) {
	ok, err := s.verifier.ValidateCode(ctx, email, code, model.PurposeResetPassword)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", appErr.ErrUnauthorized
	}
	return s.tickets.Issue(NormalizeEmail(email)), nil
}

func (s *AuthService) ResetPassword(ctx context.Context, email, ticket, newPassword string) error {
	if err := validatePassword(newPassword); err != nil {
		return err
	}
	email = NormalizeEmail(email)
	if !s.tickets.Consume(email, ticket) {
		return appErr.ErrUnauthorized
	}
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return appErr.ErrUnauthorized
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	if err := s.users.UpdatePassword(ctx, user.ID, string(hash), timeutil.NowUnix()); err != nil {
		return err
	}
	logutil.GetLogger(ctx).Info("password reset completed", zap.String("user_id", user.ID))
	return nil
}

// ResendCode re-issues a code for an in-flight flow; the hourly
// issuance ceiling still applies.
func (s *AuthService) ResendCode(ctx context.Context, email, purpose, originIP string) error {
	if !model.KnownPurpose(purpose) {
		return appErr.ErrInvalid
	}
	return s.verifier.IssueCode(ctx, email, purpose, originIP)
}

// SocialLogin resolves a federated identity to a local account and
// issues a credential. Twitter, facebook and linkedin clients may
// forward the profile fields their SDK verified; google identities are
// always re-fetched with the access token, never taken on the client's
// word.
func (s *AuthService) SocialLogin(ctx context.Context, provider, accessToken string, supplied *oauth.Profile) (*model.User, string, error) {
	name := strings.ToLower(strings.TrimSpace(provider))
	if !oauth.Known(name) {
		return nil, "", appErr.ErrUnknownProvider
	}
	profile := supplied
	if !suppliedProfileTrusted(name) {
		profile = nil
	}
	if profile == nil || profile.SubjectID == "" {
		impl := s.providers[name]
		if impl == nil {
			return nil, "", appErr.ErrUnknownProvider
		}
		if accessToken == "" {
			return nil, "", appErr.ErrUnauthorized
		}
		fetched, err := impl.FetchProfile(ctx, accessToken)
		if err != nil {
			return nil, "", err
		}
		profile = fetched
	}
	profile.Provider = name
	user, err := s.identity.ResolveByProvider(ctx, profile)
	if err != nil {
		return nil, "", err
	}
	return s.issue(ctx, user, name)
}

// suppliedProfileTrusted reports whether a client may hand over profile
// fields in place of a token fetch. Twitter never exposes the email
// server side and the facebook/linkedin popup SDKs verify the profile
// before forwarding it; a google identity is only ever established from
// the userinfo endpoint.
func suppliedProfileTrusted(provider string) bool {
	switch provider {
	case oauth.ProviderTwitter, oauth.ProviderFacebook, oauth.ProviderLinkedIn:
		return true
	}
	return false
}

// ExchangeSocialCode trades an authorization code for an access token
// on providers that support it (linkedin).
func (s *AuthService) ExchangeSocialCode(ctx context.Context, provider, code string) (string, error) {
	name := strings.ToLower(strings.TrimSpace(provider))
	impl := s.providers[name]
	if impl == nil {
		return "", appErr.ErrUnknownProvider
	}
	exchanger, ok := impl.(oauth.CodeExchanger)
	if !ok {
		return "", appErr.ErrInvalid
	}
	return exchanger.ExchangeCode(ctx, code)
}

func (s *AuthService) issue(ctx context.Context, user *model.User, flow string) (*model.User, string, error) {
	token, err := s.issuer.Issue(user)
	if err != nil {
		return nil, "", err
	}
	logutil.GetLogger(ctx).Info("credential issued",
		zap.String("flow", flow), zap.String("user_id", user.ID))
	return user, token, nil
}

// JWTIssuer is the default TokenIssuer.
type JWTIssuer struct {
	secret []byte
	ttl    time.Duration
}

func NewJWTIssuer(secret []byte, ttl time.Duration) *JWTIssuer {
	return &JWTIssuer{secret: secret, ttl: ttl}
}

func (j *JWTIssuer) Issue(user *model.User) (string, error) {
	return jwt.GenerateToken(user.ID, user.Email, user.RoleID, j.secret, j.ttl)
}
