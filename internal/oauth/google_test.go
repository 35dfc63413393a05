package oauth_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"authsvc/internal/oauth"

	"github.com/coreos/go-oidc"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

var testConfig = oauth.GoogleConfig{
	ClientID:     "client-id",
	ClientSecret: "client-secret",
	RedirectURL:  "http://localhost:8080/auth/callback",
}

func fakeIDToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("google-does-not-use-this"))
	require.NoError(t, err)
	return signed
}

func newTokenServer(t *testing.T, handler http.HandlerFunc) *oauth.GoogleClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return oauth.NewGoogleClient(testConfig,
		oauth.WithHTTPClient(srv.Client()),
		oauth.WithEndpoint(oauth2.Endpoint{
			AuthURL:   srv.URL + "/auth",
			TokenURL:  srv.URL + "/token",
			AuthStyle: oauth2.AuthStyleInParams,
		}),
	)
}

func TestAuthCodeURL(t *testing.T) {
	client := oauth.NewGoogleClient(testConfig)

	raw, err := client.AuthCodeURL("state-123")
	require.NoError(t, err)

	u, err := url.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "accounts.google.com", u.Host)

	q := u.Query()
	assert.Equal(t, "code", q.Get("response_type"))
	assert.Equal(t, "email profile", q.Get("scope"))
	assert.Equal(t, "offline", q.Get("access_type"))
	assert.Equal(t, "consent", q.Get("prompt"))
	assert.Equal(t, "client-id", q.Get("client_id"))
	assert.Equal(t, testConfig.RedirectURL, q.Get("redirect_uri"))
	assert.Equal(t, "state-123", q.Get("state"))
}

func TestAuthCodeURL_NotConfigured(t *testing.T) {
	client := oauth.NewGoogleClient(oauth.GoogleConfig{})

	_, err := client.AuthCodeURL("state")
	assert.ErrorIs(t, err, oauth.ErrClientNotConfigured)
}

func TestExchange(t *testing.T) {
	idToken := fakeIDToken(t, jwt.MapClaims{"email": "user@gmail.com"})

	client := newTokenServer(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "/token", r.URL.Path)
		assert.Equal(t, "authorization_code", r.PostForm.Get("grant_type"))
		assert.Equal(t, "the-code", r.PostForm.Get("code"))
		assert.Equal(t, "client-id", r.PostForm.Get("client_id"))
		assert.Equal(t, "client-secret", r.PostForm.Get("client_secret"))
		assert.Equal(t, testConfig.RedirectURL, r.PostForm.Get("redirect_uri"))

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token":  "ya29.access",
			"refresh_token": "1//refresh",
			"token_type":    "Bearer",
			"expires_in":    3599,
			"id_token":      idToken,
		})
	})

	tokens, err := client.Exchange(context.Background(), "the-code")
	require.NoError(t, err)
	assert.Equal(t, "ya29.access", tokens.AccessToken)
	assert.Equal(t, "1//refresh", tokens.RefreshToken)
	assert.Equal(t, idToken, tokens.IDToken)
	assert.False(t, tokens.Expiry.IsZero())
}

func TestExchange_ProviderError(t *testing.T) {
	client := newTokenServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"invalid_grant","error_description":"Bad Request"}`))
	})

	_, err := client.Exchange(context.Background(), "used-code")
	assert.ErrorIs(t, err, oauth.ErrExchangeFailed)
	assert.Contains(t, err.Error(), "invalid_grant")
}

func TestExchange_MissingIDToken(t *testing.T) {
	client := newTokenServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"ya29.access","token_type":"Bearer"}`))
	})

	_, err := client.Exchange(context.Background(), "the-code")
	assert.ErrorIs(t, err, oauth.ErrExchangeFailed)
}

func TestDecodeIdentity(t *testing.T) {
	iat := time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC)
	assertion := fakeIDToken(t, jwt.MapClaims{
		"iss":            "https://accounts.google.com",
		"email":          "user@gmail.com",
		"email_verified": true,
		"given_name":     "Jane",
		"family_name":    "Doe",
		"picture":        "https://lh3.googleusercontent.com/a/pic",
		"iat":            iat.Unix(),
		"exp":            iat.Add(time.Hour).Unix(),
	})

	identity, err := oauth.NewGoogleClient(testConfig).DecodeIdentity(context.Background(), assertion)
	require.NoError(t, err)
	assert.Equal(t, "user@gmail.com", identity.Email)
	assert.True(t, identity.EmailVerified)
	assert.Equal(t, "Jane", identity.GivenName)
	assert.Equal(t, "Doe", identity.FamilyName)
	assert.Equal(t, "https://lh3.googleusercontent.com/a/pic", identity.Picture)
	assert.True(t, identity.IssuedAt.Equal(iat))
	assert.True(t, identity.ExpiresAt.Equal(iat.Add(time.Hour)))
}

func TestDecodeIdentity_Invalid(t *testing.T) {
	client := oauth.NewGoogleClient(testConfig)

	_, err := client.DecodeIdentity(context.Background(), "garbage")
	assert.ErrorIs(t, err, oauth.ErrIdentityInvalid)

	_, err = client.DecodeIdentity(context.Background(), fakeIDToken(t, jwt.MapClaims{"sub": "123"}))
	assert.ErrorIs(t, err, oauth.ErrIdentityInvalid)
}

type rejectingVerifier struct{}

func (rejectingVerifier) Verify(ctx context.Context, raw string) (*oidc.IDToken, error) {
	return nil, errors.New("oidc: id token signed by unknown key")
}

func TestDecodeIdentity_VerifierRejects(t *testing.T) {
	client := oauth.NewGoogleClient(testConfig, oauth.WithVerifier(rejectingVerifier{}))

	_, err := client.DecodeIdentity(context.Background(), fakeIDToken(t, jwt.MapClaims{"email": "user@gmail.com"}))
	assert.ErrorIs(t, err, oauth.ErrIdentityInvalid)
}
