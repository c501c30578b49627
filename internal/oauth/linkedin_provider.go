package oauth

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"golang.org/x/oauth2"

	appErr "github.com/xxxsen/passport/internal/pkg/errors"
)

const (
	linkedInTokenURL    = "https://www.linkedin.com/oauth/v2/accessToken"
	linkedInUserInfoURL = "https://api.linkedin.com/v2/userinfo"
)

func init() {
	Register(ProviderLinkedIn, func(args ProviderArgs) (Provider, error) {
		return &linkedInProvider{cfg: args.Config, client: args.Client}, nil
	})
}

type linkedInProvider struct {
	cfg    ProviderConfig
	client *http.Client
}

func (l *linkedInProvider) Name() string {
	return ProviderLinkedIn
}

// ExchangeCode trades the authorization code the browser popup hands us
// for an access token. LinkedIn is the only provider whose clients
// cannot obtain the token themselves.
func (l *linkedInProvider) ExchangeCode(ctx context.Context, code string) (string, error) {
	if l.cfg.ClientID == "" || l.cfg.ClientSecret == "" {
		return "", fmt.Errorf("linkedin oauth is not configured")
	}
	conf := &oauth2.Config{
		ClientID:     l.cfg.ClientID,
		ClientSecret: l.cfg.ClientSecret,
		RedirectURL:  l.cfg.RedirectURL,
		Endpoint: oauth2.Endpoint{
			TokenURL:  linkedInTokenURL,
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}
	ctx = context.WithValue(ctx, oauth2.HTTPClient, l.client)
	token, err := conf.Exchange(ctx, code)
	if err != nil {
		return "", fmt.Errorf("%w: linkedin code exchange: %v", appErr.ErrProviderUnavailable, err)
	}
	if token.AccessToken == "" {
		return "", fmt.Errorf("%w: linkedin returned empty access token", appErr.ErrProviderUnavailable)
	}
	return token.AccessToken, nil
}

type linkedInUserInfo struct {
	Sub        string `json:"sub"`
	Email      string `json:"email"`
	GivenName  string `json:"given_name"`
	FamilyName string `json:"family_name"`
}

func (l *linkedInProvider) FetchProfile(ctx context.Context, accessToken string) (*Profile, error) {
	var info linkedInUserInfo
	if err := getJSON(ctx, l.client, linkedInUserInfoURL, accessToken, &info); err != nil {
		return nil, err
	}
	if info.Sub == "" {
		return nil, fmt.Errorf("%w: linkedin userinfo missing subject", appErr.ErrProviderUnavailable)
	}
	return &Profile{
		Provider:  ProviderLinkedIn,
		SubjectID: info.Sub,
		Email:     strings.TrimSpace(info.Email),
		FirstName: info.GivenName,
		LastName:  info.FamilyName,
	}, nil
}
