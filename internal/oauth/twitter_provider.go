package oauth

import (
	"context"
	"fmt"
	"net/http"

	appErr "github.com/xxxsen/passport/internal/pkg/errors"
)

const twitterMeURL = "https://api.twitter.com/2/users/me"

func init() {
	Register(ProviderTwitter, func(args ProviderArgs) (Provider, error) {
		return &twitterProvider{client: args.Client}, nil
	})
}

type twitterProvider struct {
	client *http.Client
}

func (t *twitterProvider) Name() string {
	return ProviderTwitter
}

type twitterUserInfo struct {
	Data struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	} `json:"data"`
}

// FetchProfile never yields an email: the twitter v2 users endpoint does
// not expose one, so resolution relies on client-supplied profile fields
// or fails with ErrProfileIncomplete downstream.
func (t *twitterProvider) FetchProfile(ctx context.Context, accessToken string) (*Profile, error) {
	var info twitterUserInfo
	if err := getJSON(ctx, t.client, twitterMeURL, accessToken, &info); err != nil {
		return nil, err
	}
	if info.Data.ID == "" {
		return nil, fmt.Errorf("%w: twitter profile missing id", appErr.ErrProviderUnavailable)
	}
	first, last := splitDisplayName(info.Data.Name)
	return &Profile{
		Provider:  ProviderTwitter,
		SubjectID: info.Data.ID,
		FirstName: first,
		LastName:  last,
	}, nil
}
