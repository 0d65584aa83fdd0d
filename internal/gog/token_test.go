package gog_test

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/Yepoleb/gogdb/internal/gog"
	"github.com/Yepoleb/gogdb/internal/model"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

var issueTime = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func TestToken_SetData(t *testing.T) {
	t.Run("success payload", func(t *testing.T) {
		t.Parallel()
		token := gog.NewToken(&fakeClock{now: issueTime})
		payload := []byte(`{
			"access_token": "access123",
			"refresh_token": "refresh456",
			"expires_in": 3600,
			"token_type": "bearer",
			"user_id": "12345"
		}`)
		if err := token.SetData(payload); err != nil {
			t.Fatalf("SetData() error = %v", err)
		}

		data := token.Data()
		if data.AccessToken != "access123" || data.RefreshToken != "refresh456" {
			t.Errorf("token pair = %q/%q", data.AccessToken, data.RefreshToken)
		}
		if data.ClientID != gog.GalaxyClientID {
			t.Errorf("ClientID = %q, want the Galaxy default", data.ClientID)
		}
		if data.Created != issueTime.Unix() {
			t.Errorf("Created = %d, want stamped with the clock's %d", data.Created, issueTime.Unix())
		}
	})

	t.Run("payload with created timestamp", func(t *testing.T) {
		t.Parallel()
		token := gog.NewToken(&fakeClock{now: issueTime})
		payload := []byte(`{"access_token": "a", "expires_in": 3600, "created": 1000}`)
		if err := token.SetData(payload); err != nil {
			t.Fatalf("SetData() error = %v", err)
		}
		if got := token.Data().Created; got != 1000 {
			t.Errorf("Created = %d, want the payload's 1000", got)
		}
	})

	t.Run("error payload", func(t *testing.T) {
		t.Parallel()
		token := gog.NewToken(&fakeClock{now: issueTime})
		payload := []byte(`{"error": "invalid_grant", "error_description": "refresh token expired"}`)

		err := token.SetData(payload)
		var authErr *gog.AuthError
		if !errors.As(err, &authErr) {
			t.Fatalf("SetData() error = %v, want AuthError", err)
		}
		if authErr.Code != "invalid_grant" {
			t.Errorf("Code = %q, want invalid_grant", authErr.Code)
		}
	})

	t.Run("garbage payload", func(t *testing.T) {
		t.Parallel()
		token := gog.NewToken(&fakeClock{now: issueTime})
		if err := token.SetData([]byte("<html>")); err == nil {
			t.Error("SetData() error = nil for non-JSON payload")
		}
	})
}

func TestToken_Expired(t *testing.T) {
	t.Parallel()
	cases := []struct {
		name    string
		elapsed time.Duration
		want    bool
	}{
		{"fresh", time.Minute, false},
		{"just inside the margin", 3600*time.Second - 61*time.Second, false},
		{"one margin before expiry", 3600*time.Second - 59*time.Second, true},
		{"past expiry", 2 * time.Hour, true},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			clock := &fakeClock{now: issueTime.Add(tc.elapsed)}
			token := gog.NewToken(clock)
			token.Restore(model.Token{
				AccessToken: "a",
				ExpiresIn:   3600,
				Created:     issueTime.Unix(),
			})
			if got := token.Expired(); got != tc.want {
				t.Errorf("Expired() after %v = %v, want %v", tc.elapsed, got, tc.want)
			}
		})
	}
}

func TestToken_Restore(t *testing.T) {
	t.Parallel()
	token := gog.NewToken(&fakeClock{now: issueTime})
	token.Restore(model.Token{AccessToken: "a", RefreshToken: "r"})

	data := token.Data()
	if data.ClientID != gog.GalaxyClientID || data.ClientSecret != gog.GalaxyClientSecret {
		t.Error("Restore did not fill in the Galaxy client credentials")
	}
	if token.AccessToken() != "a" {
		t.Errorf("AccessToken() = %q, want a", token.AccessToken())
	}
}

func TestAuthCodeURL(t *testing.T) {
	t.Parallel()
	url := gog.AuthCodeURL(gog.GalaxyClientID)
	if !strings.HasPrefix(url, "https://auth.gog.com/auth?") {
		t.Errorf("AuthCodeURL() = %q, want the auth endpoint", url)
	}
	if !strings.Contains(url, "client_id="+gog.GalaxyClientID) {
		t.Error("AuthCodeURL() is missing the client id")
	}
	if !strings.Contains(url, "response_type=code") {
		t.Error("AuthCodeURL() is missing the response type")
	}
}
