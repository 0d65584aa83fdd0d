package model

// Token is the persisted OAuth token pair. Created is a unix timestamp
// of the moment the pair was issued; ExpiresIn is the declared lifetime
// in seconds.
type Token struct {
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
	Scope        string `json:"scope"`
	SessionID    string `json:"session_id"`
	TokenType    string `json:"token_type"`
	UserID       string `json:"user_id"`
	Created      int64  `json:"created"`
}
