// Package oauth talks to Google's OAuth2 endpoints: it builds the consent URL,
// exchanges authorization codes and decodes the returned ID token.
package oauth

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"authsvc/dto"

	"github.com/coreos/go-oidc"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const GoogleIssuer = "https://accounts.google.com"

var (
	ErrClientNotConfigured = errors.New("google client id not configured")
	ErrExchangeFailed      = errors.New("google code exchange failed")
	ErrIdentityInvalid     = errors.New("google identity assertion invalid")
)

type GoogleConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
}

// IDTokenVerifier is satisfied by *oidc.IDTokenVerifier.
type IDTokenVerifier interface {
	Verify(ctx context.Context, rawIDToken string) (*oidc.IDToken, error)
}

type GoogleClient struct {
	config     *oauth2.Config
	httpClient *http.Client
	verifier   IDTokenVerifier
}

type Option func(*GoogleClient)

func WithHTTPClient(c *http.Client) Option {
	return func(g *GoogleClient) {
		g.httpClient = c
	}
}

func WithEndpoint(endpoint oauth2.Endpoint) Option {
	return func(g *GoogleClient) {
		g.config.Endpoint = endpoint
	}
}

// WithVerifier makes DecodeIdentity check the assertion signature and audience.
func WithVerifier(v IDTokenVerifier) Option {
	return func(g *GoogleClient) {
		g.verifier = v
	}
}

func NewGoogleClient(cfg GoogleConfig, opts ...Option) *GoogleClient {
	endpoint := google.Endpoint
	endpoint.AuthStyle = oauth2.AuthStyleInParams

	g := &GoogleClient{
		config: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       []string{"email", "profile"},
			Endpoint:     endpoint,
		},
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// NewGoogleVerifier discovers Google's signing keys for ID token checks.
func NewGoogleVerifier(ctx context.Context, clientID string) (*oidc.IDTokenVerifier, error) {
	provider, err := oidc.NewProvider(ctx, GoogleIssuer)
	if err != nil {
		return nil, fmt.Errorf("discover google oidc provider: %w", err)
	}
	return provider.Verifier(&oidc.Config{ClientID: clientID}), nil
}

func (g *GoogleClient) Configured() bool {
	return g.config.ClientID != ""
}

func (g *GoogleClient) AuthCodeURL(state string) (string, error) {
	if !g.Configured() {
		return "", ErrClientNotConfigured
	}
	return g.config.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce), nil
}

func (g *GoogleClient) Exchange(ctx context.Context, code string) (*dto.OAuthTokens, error) {
	if g.httpClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, g.httpClient)
	}

	token, err := g.config.Exchange(ctx, code)
	if err != nil {
		var retrieveErr *oauth2.RetrieveError
		if errors.As(err, &retrieveErr) {
			return nil, fmt.Errorf("%w: status %d: %s", ErrExchangeFailed, retrieveErr.Response.StatusCode, string(retrieveErr.Body))
		}
		return nil, fmt.Errorf("%w: %v", ErrExchangeFailed, err)
	}

	idToken, _ := token.Extra("id_token").(string)
	if idToken == "" {
		return nil, fmt.Errorf("%w: response carried no id_token", ErrExchangeFailed)
	}

	return &dto.OAuthTokens{
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		IDToken:      idToken,
		Expiry:       token.Expiry,
	}, nil
}

type googleClaims struct {
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	GivenName     string `json:"given_name"`
	FamilyName    string `json:"family_name"`
	Picture       string `json:"picture"`
	jwt.RegisteredClaims
}

func (g *GoogleClient) DecodeIdentity(ctx context.Context, assertion string) (*dto.GoogleIdentity, error) {
	var claims googleClaims
	if g.verifier != nil {
		idToken, err := g.verifier.Verify(ctx, assertion)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrIdentityInvalid, err)
		}
		if err := idToken.Claims(&claims); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrIdentityInvalid, err)
		}
	} else {
		if _, _, err := jwt.NewParser().ParseUnverified(assertion, &claims); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrIdentityInvalid, err)
		}
	}

	if claims.Email == "" {
		return nil, fmt.Errorf("%w: missing email", ErrIdentityInvalid)
	}

	identity := &dto.GoogleIdentity{
		Email:         claims.Email,
		GivenName:     claims.GivenName,
		FamilyName:    claims.FamilyName,
		Picture:       claims.Picture,
		EmailVerified: claims.EmailVerified,
	}
	if claims.IssuedAt != nil {
		identity.IssuedAt = claims.IssuedAt.Time
	}
	if claims.ExpiresAt != nil {
		identity.ExpiresAt = claims.ExpiresAt.Time
	}
	return identity, nil
}
