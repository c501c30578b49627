package oauth

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	appErr "github.com/xxxsen/passport/internal/pkg/errors"
)

const googleUserInfoURL = "https://www.googleapis.com/oauth2/v3/userinfo"

func init() {
	Register(ProviderGoogle, func(args ProviderArgs) (Provider, error) {
		return &googleProvider{client: args.Client}, nil
	})
}

type googleProvider struct {
	client *http.Client
}

func (g *googleProvider) Name() string {
	return ProviderGoogle
}

type googleUserInfo struct {
	Sub        string `json:"sub"`
	Email      string `json:"email"`
	GivenName  string `json:"given_name"`
	FamilyName string `json:"family_name"`
}

func (g *googleProvider) FetchProfile(ctx context.Context, accessToken string) (*Profile, error) {
	var info googleUserInfo
	if err := getJSON(ctx, g.client, googleUserInfoURL, accessToken, &info); err != nil {
		return nil, err
	}
	if info.Sub == "" {
		return nil, fmt.Errorf("%w: google userinfo missing subject", appErr.ErrProviderUnavailable)
	}
	return &Profile{
		Provider:  ProviderGoogle,
		SubjectID: info.Sub,
		Email:     strings.TrimSpace(info.Email),
		FirstName: info.GivenName,
		LastName:  info.FamilyName,
	}, nil
}
