package oauth

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"
)

const (
	ProviderGoogle   = "google"
	ProviderFacebook = "facebook"
	ProviderTwitter  = "twitter"
	ProviderLinkedIn = "linkedin"
)

func Known(name string) bool {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case ProviderGoogle, ProviderFacebook, ProviderTwitter, ProviderLinkedIn:
		return true
	}
	return false
}

// Profile is what a provider can tell us about an authenticated user.
// SubjectID is always present on success; Email and the name parts
// depend on the provider.
type Profile struct {
	Provider  string
	SubjectID string
	Email     string
	FirstName string
	LastName  string
}

// Provider turns a verified access token into a Profile.
type Provider interface {
	Name() string
	FetchProfile(ctx context.Context, accessToken string) (*Profile, error)
}

// CodeExchanger is implemented by providers whose clients hand the
// server an authorization code instead of an access token.
type CodeExchanger interface {
	ExchangeCode(ctx context.Context, code string) (string, error)
}

type ProviderConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
}

type ProviderArgs struct {
	Config ProviderConfig
	Client *http.Client
}

type ProviderFactory func(args ProviderArgs) (Provider, error)

var registry = map[string]ProviderFactory{}

func Register(name string, factory ProviderFactory) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" || factory == nil {
		return
	}
	registry[key] = factory
}

func NewProvider(name string, args ProviderArgs) (Provider, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	factory := registry[key]
	if factory == nil {
		return nil, fmt.Errorf("unsupported oauth provider: %s", name)
	}
	if args.Client == nil {
		args.Client = &http.Client{Timeout: 10 * time.Second}
	}
	return factory(args)
}
