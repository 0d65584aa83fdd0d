package gog

import (
	"bytes"
	"compress/zlib"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"sync"
	"time"

	"github.com/Yepoleb/gogdb/internal/storage"
)

// CachePolicy controls how a request interacts with the raw response
// cache on disk.
type CachePolicy int

const (
	CacheNone     CachePolicy = 0                      // download without caching
	CacheStore    CachePolicy = 1                      // download and store to disk
	CacheLoad     CachePolicy = 2                      // only load from disk
	CacheFallback CachePolicy = CacheStore | CacheLoad // try to load, fall back to download
)

const (
	defaultClientVersion = "1.2.17.9" // just for their statistics
	defaultRetries       = 3
	defaultTimeout       = 10 * time.Second
)

// Request describes one JSON fetch. Name is a label for log messages.
// CacheKey is the raw cache path and must be set for any policy other
// than CacheNone. Decompress enables raw zlib decoding of the response
// body. Expected404 lowers the log severity of a 404 without changing
// the absent result.
type Request struct {
	Name        string
	URL         string
	Caching     CachePolicy
	CacheKey    []string
	Decompress  bool
	Expected404 bool
}

// SessionOptions configures a Session. Zero values fall back to the
// defaults above.
type SessionOptions struct {
	UserAgent string
	Retries   int
	Timeout   time.Duration
	Locale    string
	Logger    Logger
	Clock     Clock
}

// Session is the authenticated upstream client. It owns the token
// lifecycle and is safe for concurrent use.
type Session struct {
	client    *http.Client
	store     *storage.Store
	logger    Logger
	clock     Clock
	userAgent string
	retries   int
	timeout   time.Duration

	tokenMu sync.Mutex
	token   *Token
}

// NewSession builds a session around the token persisted in the store.
// It fails when no token exists yet, in which case an interactive login
// has to run first.
func NewSession(store *storage.Store, opts SessionOptions) (*Session, error) {
	if opts.UserAgent == "" {
		opts.UserAgent = fmt.Sprintf("GOGGalaxyClient/%s gogdb/2.0", defaultClientVersion)
	}
	if opts.Retries == 0 {
		opts.Retries = defaultRetries
	}
	if opts.Timeout == 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.Locale == "" {
		opts.Locale = "US_USD_en-US"
	}
	if opts.Logger == nil {
		opts.Logger = NewNopLogger()
	}
	if opts.Clock == nil {
		opts.Clock = RealClock{}
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("creating cookie jar: %w", err)
	}
	siteURL, _ := url.Parse("https://www.gog.com/")
	jar.SetCookies(siteURL, []*http.Cookie{
		{Name: "gog_lc", Value: opts.Locale, Domain: "gog.com", Path: "/"},
	})

	tokenData, err := store.LoadToken()
	if err != nil {
		return nil, fmt.Errorf("loading token: %w", err)
	}
	if tokenData == nil {
		return nil, errors.New("no token stored, run auth first")
	}
	token := NewToken(opts.Clock)
	token.Restore(*tokenData)

	return &Session{
		client:    &http.Client{Jar: jar},
		store:     store,
		logger:    opts.Logger,
		clock:     opts.Clock,
		userAgent: opts.UserAgent,
		retries:   opts.Retries,
		timeout:   opts.Timeout,
		token:     token,
	}, nil
}

// refreshIfExpired refreshes and persists the token when needed. The
// lock serializes all callers so concurrent requests never trigger
// duplicate refreshes.
func (s *Session) refreshIfExpired(ctx context.Context) error {
	s.tokenMu.Lock()
	defer s.tokenMu.Unlock()
	if !s.token.Expired() {
		return nil
	}
	s.logger.Debug("refreshing token")
	if err := s.token.Refresh(ctx, s.client); err != nil {
		return err
	}
	data := s.token.Data()
	if err := s.store.SaveToken(&data); err != nil {
		return fmt.Errorf("persisting token: %w", err)
	}
	return nil
}

func (s *Session) accessToken() string {
	s.tokenMu.Lock()
	defer s.tokenMu.Unlock()
	return s.token.AccessToken()
}

// GetJSON fetches one JSON document. Absent values, a cache miss under
// a load-only policy, a terminal 4xx or an exhausted retry budget,
// return a nil payload with a nil error. Errors are reserved for
// authentication failures and context cancellation, which abort the
// whole run.
func (s *Session) GetJSON(ctx context.Context, req Request) (json.RawMessage, error) {
	s.logger.Debug("requesting", "url", req.URL)
	if req.Caching&CacheLoad != 0 {
		cached, err := s.store.LoadRaw(req.CacheKey...)
		if err == nil && cached != nil {
			s.logger.Debug("served from cache", "url", req.URL)
			return cached, nil
		}
		if req.Caching == CacheLoad {
			return nil, nil
		}
	}

	if err := s.refreshIfExpired(ctx); err != nil {
		var authErr *AuthError
		if errors.As(err, &authErr) {
			return nil, err
		}
		s.logger.Error("token refresh failed", "name", req.Name, "error", err)
		return nil, nil
	}

	content, err := s.download(ctx, req)
	if err != nil || content == nil {
		return nil, err
	}

	if req.Caching&CacheStore != 0 {
		if err := s.store.SaveRaw(content, req.CacheKey...); err != nil {
			s.logger.Error("failed to cache response", "name", req.Name, "error", err)
		}
	}
	return content, nil
}

// download runs the retry loop for one request. Transport errors, 5xx,
// 408 and unparseable 2xx bodies all consume one attempt; any other
// 4xx is terminal.
func (s *Session) download(ctx context.Context, req Request) (json.RawMessage, error) {
	var lastFailure string
	for attempt := 0; attempt < s.retries; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		content, failure, terminal := s.attempt(ctx, req)
		if terminal {
			return content, nil
		}
		lastFailure = failure
	}
	s.logger.Error("failed to load", "name", req.Name, "error", lastFailure)
	return nil, nil
}

// attempt performs a single request. The terminal result stops the
// retry loop, either with a payload or with a definitive absence.
func (s *Session) attempt(ctx context.Context, req Request) (content json.RawMessage, failure string, terminal bool) {
	reqCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(reqCtx, http.MethodGet, req.URL, nil)
	if err != nil {
		return nil, err.Error(), true
	}
	httpReq.Header.Set("User-Agent", s.userAgent)
	httpReq.Header.Set("Authorization", "Bearer "+s.accessToken())

	resp, err := s.client.Do(httpReq)
	if err != nil {
		return nil, err.Error(), false
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 || resp.StatusCode == http.StatusRequestTimeout {
		io.Copy(io.Discard, resp.Body)
		return nil, fmt.Sprintf("status %d", resp.StatusCode), false
	}
	if resp.StatusCode >= 400 {
		io.Copy(io.Discard, resp.Body)
		if resp.StatusCode == http.StatusNotFound && req.Expected404 {
			s.logger.Debug("request returned 404", "name", req.Name)
		} else {
			s.logger.Error("request failed", "name", req.Name, "status", resp.StatusCode)
		}
		return nil, "", true
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err.Error(), false
	}
	if req.Decompress {
		body, err = zlibDecompress(body)
		if err != nil {
			return nil, err.Error(), false
		}
	}
	if !json.Valid(body) {
		return nil, "invalid json", false
	}
	return json.RawMessage(body), "", true
}

func zlibDecompress(data []byte) ([]byte, error) {
	zr, err := zlib.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer zr.Close()
	return io.ReadAll(zr)
}
