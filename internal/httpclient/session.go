package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"time"

	"golang.org/x/net/publicsuffix"
)

// DefaultUserAgent is the browser identification sent on every request.
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// maxBody caps how much of a response body is read into memory.
const maxBody = 8 << 20

// Session is a cookie-carrying client owned by a single retrieval. Cookies
// set by any response, including challenge endpoints, are replayed on
// later requests to matching hosts.
type Session struct {
	client    *http.Client
	userAgent string
	header    http.Header
}

// NewSession returns a Session using the Chrome TLS transport.
func NewSession(userAgent string, timeout time.Duration) *Session {
	return NewSessionWithClient(New(timeout), userAgent)
}

// NewSessionWithClient wraps client, installing a fresh cookie jar.
func NewSessionWithClient(client *http.Client, userAgent string) *Session {
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	// cookiejar.New never returns a non-nil error.
	jar, _ := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	c := *client
	c.Jar = jar
	return &Session{
		client:    &c,
		userAgent: userAgent,
		header:    make(http.Header),
	}
}

// Header returns the headers added to every request.
func (s *Session) Header() http.Header { return s.header }

// UserAgent returns the session's User-Agent.
func (s *Session) UserAgent() string { return s.userAgent }

// SetCookies stores cookies for u in the session jar.
func (s *Session) SetCookies(u *url.URL, cookies []*http.Cookie) {
	s.client.Jar.SetCookies(u, cookies)
}

// Cookies returns the cookies the session would send to u.
func (s *Session) Cookies(u *url.URL) []*http.Cookie {
	return s.client.Jar.Cookies(u)
}

// Do sends req with the session headers applied.
func (s *Session) Do(req *http.Request) (*http.Response, error) {
	for k, vs := range s.header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	if req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", s.userAgent)
	}
	return s.client.Do(req)
}

// Page is a fetched document.
type Page struct {
	// URL is the final URL after redirects.
	URL    string
	Status int
	Body   string
}

// Get fetches rawURL and reads the whole body.
func (s *Session) Get(ctx context.Context, rawURL string) (*Page, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := s.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	return &Page{
		URL:    resp.Request.URL.String(),
		Status: resp.StatusCode,
		Body:   string(body),
	}, nil
}

// StatusError is returned by PostJSON for a non-2xx response.
type StatusError struct {
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("HTTP %d", e.Status)
	}
	return fmt.Sprintf("HTTP %d: %s", e.Status, e.Body)
}

// PostJSON posts in as JSON and decodes a 2xx response into out.
func (s *Session) PostJSON(ctx context.Context, rawURL string, in, out any) error {
	reqBody, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, rawURL, bytes.NewReader(reqBody))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json, text/plain, */*")

	resp, err := s.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &StatusError{Status: resp.StatusCode, Body: string(bytes.TrimSpace(body))}
	}

	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBody)).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
