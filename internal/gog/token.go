package gog

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/Yepoleb/gogdb/internal/model"
)

// Credentials of the Galaxy client, used when no token exists yet.
const (
	GalaxyClientID     = "46899977096215655"
	GalaxyClientSecret = "9d85c43b1482497dbbce61f6e4aa173a433796eeae2ca8c5f6129f2dc4de46d9"
)

const (
	redirectURL  = "https://embed.gog.com/on_login_success?origin=client"
	authURL      = "https://auth.gog.com/auth"
	tokenURL     = "https://auth.gog.com/token"
	expiryMargin = 60 * time.Second
)

// AuthError is returned when the token endpoint rejects a request. It
// is terminal and aborts the run instead of being retried.
type AuthError struct {
	Code        string
	Description string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("authentication failed: %s (%s)", e.Code, e.Description)
}

// AuthCodeURL returns the login URL the user has to open in a browser
// to obtain a login code.
func AuthCodeURL(clientID string) string {
	query := url.Values{}
	query.Set("client_id", clientID)
	query.Set("redirect_uri", redirectURL)
	query.Set("response_type", "code")
	query.Set("layout", "client2")
	return authURL + "?" + query.Encode()
}

// tokenResponse covers both success and error payloads of the token
// endpoint. Client id and secret are echoed back by some responses and
// kept when present.
type tokenResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
	ClientID         string `json:"client_id"`
	ClientSecret     string `json:"client_secret"`
	AccessToken      string `json:"access_token"`
	RefreshToken     string `json:"refresh_token"`
	ExpiresIn        int64  `json:"expires_in"`
	Scope            string `json:"scope"`
	SessionID        string `json:"session_id"`
	TokenType        string `json:"token_type"`
	UserID           string `json:"user_id"`
	Created          *int64 `json:"created"`
}

// Token holds the current OAuth pair. Callers must serialize access
// through the session's refresh lock.
type Token struct {
	data  model.Token
	clock Clock
}

func NewToken(clock Clock) *Token {
	return &Token{
		data: model.Token{
			ClientID:     GalaxyClientID,
			ClientSecret: GalaxyClientSecret,
		},
		clock: clock,
	}
}

// SetData replaces the token pair from a token endpoint payload. An
// error field in the payload yields an AuthError. A payload without a
// created timestamp is stamped with the current time.
func (t *Token) SetData(payload []byte) error {
	var resp tokenResponse
	if err := json.Unmarshal(payload, &resp); err != nil {
		return fmt.Errorf("decoding token payload: %w", err)
	}
	if resp.Error != "" {
		return &AuthError{Code: resp.Error, Description: resp.ErrorDescription}
	}

	if resp.ClientID != "" {
		t.data.ClientID = resp.ClientID
	}
	if resp.ClientSecret != "" {
		t.data.ClientSecret = resp.ClientSecret
	}
	t.data.AccessToken = resp.AccessToken
	t.data.RefreshToken = resp.RefreshToken
	t.data.ExpiresIn = resp.ExpiresIn
	t.data.Scope = resp.Scope
	t.data.SessionID = resp.SessionID
	t.data.TokenType = resp.TokenType
	t.data.UserID = resp.UserID
	if resp.Created != nil {
		t.data.Created = *resp.Created
	} else {
		t.data.Created = t.clock.Now().Unix()
	}
	return nil
}

// Restore adopts a previously persisted token pair.
func (t *Token) Restore(data model.Token) {
	t.data = data
	if t.data.ClientID == "" {
		t.data.ClientID = GalaxyClientID
	}
	if t.data.ClientSecret == "" {
		t.data.ClientSecret = GalaxyClientSecret
	}
}

// Data returns the token pair in its persisted form.
func (t *Token) Data() model.Token {
	return t.data
}

func (t *Token) AccessToken() string {
	return t.data.AccessToken
}

// Expired reports whether the token needs a refresh. The pair is
// treated as expired one margin before its declared lifetime runs out
// so in-flight requests never carry a stale token.
func (t *Token) Expired() bool {
	issued := time.Unix(t.data.Created, 0)
	age := t.clock.Now().Sub(issued)
	return age > time.Duration(t.data.ExpiresIn)*time.Second-expiryMargin
}

// Refresh exchanges the refresh token for a new pair.
func (t *Token) Refresh(ctx context.Context, client *http.Client) error {
	query := url.Values{}
	query.Set("client_id", t.data.ClientID)
	query.Set("client_secret", t.data.ClientSecret)
	query.Set("grant_type", "refresh_token")
	query.Set("refresh_token", t.data.RefreshToken)
	payload, err := tokenRequest(ctx, client, query)
	if err != nil {
		return err
	}
	return t.SetData(payload)
}

// TokenFromCode exchanges a login code for an initial token pair. The
// redirect url must be sent along for origin verification.
func TokenFromCode(ctx context.Context, client *http.Client, clock Clock, loginCode string) (*Token, error) {
	query := url.Values{}
	query.Set("client_id", GalaxyClientID)
	query.Set("client_secret", GalaxyClientSecret)
	query.Set("grant_type", "authorization_code")
	query.Set("code", loginCode)
	query.Set("redirect_uri", redirectURL)
	payload, err := tokenRequest(ctx, client, query)
	if err != nil {
		return nil, err
	}
	token := NewToken(clock)
	if err := token.SetData(payload); err != nil {
		return nil, err
	}
	return token, nil
}

func tokenRequest(ctx context.Context, client *http.Client, query url.Values) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, tokenURL+"?"+query.Encode(), nil)
	if err != nil {
		return nil, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("requesting token: %w", err)
	}
	defer resp.Body.Close()
	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading token response: %w", err)
	}
	return payload, nil
}
