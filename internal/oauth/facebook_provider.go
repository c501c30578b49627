package oauth

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	appErr "github.com/xxxsen/passport/internal/pkg/errors"
)

const facebookMeURL = "https://graph.facebook.com/me"

func init() {
	Register(ProviderFacebook, func(args ProviderArgs) (Provider, error) {
		return &facebookProvider{client: args.Client}, nil
	})
}

type facebookProvider struct {
	client *http.Client
}

func (f *facebookProvider) Name() string {
	return ProviderFacebook
}

type facebookUserInfo struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

func (f *facebookProvider) FetchProfile(ctx context.Context, accessToken string) (*Profile, error) {
	params := url.Values{}
	params.Set("fields", "id,email,first_name,last_name")
	params.Set("access_token", accessToken)
	var info facebookUserInfo
	if err := getJSON(ctx, f.client, facebookMeURL+"?"+params.Encode(), "", &info); err != nil {
		return nil, err
	}
	if info.ID == "" {
		return nil, fmt.Errorf("%w: facebook profile missing id", appErr.ErrProviderUnavailable)
	}
	return &Profile{
		Provider:  ProviderFacebook,
		SubjectID: info.ID,
		Email:     strings.TrimSpace(info.Email),
		FirstName: info.FirstName,
		LastName:  info.LastName,
	}, nil
}
