package challenge

import (
	"context"
	"encoding/json"
	"errors"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"net/url"
	"regexp"
	"testing"
	"time"

	"github.com/qm4/keyfetch/internal/httpclient"
	"github.com/qm4/keyfetch/internal/types"
)

// fakeService is a scriptable challenge endpoint pair.
type fakeService struct {
	requestStatus int
	requestBody   string
	verifyStatus  int
	verifyBody    string

	gotRequest map[string]json.RawMessage
	gotVerify  map[string]any
	verifyHits int
}

func (f *fakeService) handler(t *testing.T) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/captcha/request", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("request method = %s, want POST", r.Method)
		}
		json.NewDecoder(r.Body).Decode(&f.gotRequest)
		http.SetCookie(w, &http.Cookie{Name: "pending", Value: "1", Path: "/"})
		w.WriteHeader(f.requestStatus)
		w.Write([]byte(f.requestBody))
	})
	mux.HandleFunc("/captcha/verify", func(w http.ResponseWriter, r *http.Request) {
		f.verifyHits++
		json.NewDecoder(r.Body).Decode(&f.gotVerify)
		http.SetCookie(w, &http.Cookie{Name: "cleared", Value: "yes", Path: "/"})
		w.WriteHeader(f.verifyStatus)
		w.Write([]byte(f.verifyBody))
	})
	return mux
}

const rotatePuzzle = `{"id":"abc","puzzle":{"instruction":"Rotate to align","shapes":[{"type":"arrow","size":1,"orientation":75}]}}`

func newTestClient(base string) *Client {
	return New(Config{
		BaseURL:   base + "/captcha",
		Timeout:   2 * time.Second,
		Variation: 0.1,
		Rand:      rand.New(rand.NewSource(1)),
	})
}

func TestBypassSuccess(t *testing.T) {
	svc := &fakeService{
		requestStatus: http.StatusOK,
		requestBody:   rotatePuzzle,
		verifyStatus:  http.StatusOK,
		verifyBody:    `{"success":true}`,
	}
	server := httptest.NewServer(svc.handler(t))
	defer server.Close()

	sess := httpclient.NewSession("", 5*time.Second)
	got, err := newTestClient(server.URL).Bypass(context.Background(), sess)
	if err != nil {
		t.Fatalf("Bypass() error = %v", err)
	}
	if got != sess {
		t.Error("Bypass() returned a different session")
	}

	// Request payload.
	var force bool
	if err := json.Unmarshal(svc.gotRequest["forcePuzzle"], &force); err != nil || force {
		t.Errorf("forcePuzzle = %s, want false", svc.gotRequest["forcePuzzle"])
	}
	var fp string
	json.Unmarshal(svc.gotRequest["deviceFingerprint"], &fp)
	if !regexp.MustCompile(`^-[0-9a-f]{8}$`).MatchString(fp) {
		t.Errorf("deviceFingerprint = %q", fp)
	}
	var tel map[string]float64
	if err := json.Unmarshal(svc.gotRequest["telemetry"], &tel); err != nil {
		t.Fatalf("telemetry: %v", err)
	}
	if tel["keypresses"] != 0 || tel["speedSamples"] != tel["moves"] {
		t.Errorf("telemetry = %v", tel)
	}

	// Verify payload.
	if svc.gotVerify["id"] != "abc" {
		t.Errorf("verify id = %v, want abc", svc.gotVerify["id"])
	}
	if svc.gotVerify["answer"] != float64(285) {
		t.Errorf("verify answer = %v, want 285", svc.gotVerify["answer"])
	}

	// Cookies from both endpoints stay in the session.
	u, _ := url.Parse(server.URL)
	names := map[string]bool{}
	for _, c := range sess.Cookies(u) {
		names[c.Name] = true
	}
	if !names["pending"] || !names["cleared"] {
		t.Errorf("session cookies = %v, want pending and cleared", names)
	}
}

func TestBypassFailures(t *testing.T) {
	tests := []struct {
		name       string
		svc        fakeService
		want       error
		wantCause  error
		wantVerify int
	}{
		{
			name: "request non-2xx",
			svc:  fakeService{requestStatus: http.StatusTooManyRequests, requestBody: `{}`},
			want: types.ErrChallengeRequestFailed,
		},
		{
			name: "request malformed body",
			svc:  fakeService{requestStatus: http.StatusOK, requestBody: `<html>`},
			want: types.ErrChallengeRequestFailed,
		},
		{
			name: "request without puzzle",
			svc:  fakeService{requestStatus: http.StatusOK, requestBody: `{"id":"x"}`},
			want: types.ErrChallengeRequestFailed,
		},
		{
			name:      "unsupported instruction",
			svc:       fakeService{requestStatus: http.StatusOK, requestBody: `{"id":"x","puzzle":{"instruction":"do something","shapes":[]}}`},
			want:      types.ErrChallengeSolveFailed,
			wantCause: types.ErrUnsupportedInstruction,
		},
		{
			name:      "no matching shape",
			svc:       fakeService{requestStatus: http.StatusOK, requestBody: `{"id":"x","puzzle":{"instruction":"find the star","shapes":[{"type":"circle"}]}}`},
			want:      types.ErrChallengeSolveFailed,
			wantCause: types.ErrNoMatchingShape,
		},
		{
			name:       "verify non-2xx",
			svc:        fakeService{requestStatus: http.StatusOK, requestBody: rotatePuzzle, verifyStatus: http.StatusForbidden, verifyBody: `{"success":false}`},
			want:       types.ErrChallengeVerifyFailed,
			wantVerify: 1,
		},
		{
			name:       "verify malformed body",
			svc:        fakeService{requestStatus: http.StatusOK, requestBody: rotatePuzzle, verifyStatus: http.StatusOK, verifyBody: `ok`},
			want:       types.ErrChallengeVerifyFailed,
			wantVerify: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := tt.svc
			server := httptest.NewServer(svc.handler(t))
			defer server.Close()

			_, err := newTestClient(server.URL).Bypass(context.Background(), httpclient.NewSession("", 5*time.Second))
			if !errors.Is(err, tt.want) {
				t.Fatalf("Bypass() error = %v, want %v", err, tt.want)
			}
			if tt.wantCause != nil && !errors.Is(err, tt.wantCause) {
				t.Errorf("Bypass() error = %v, want cause %v", err, tt.wantCause)
			}
			var ce *types.ChallengeError
			if !errors.As(err, &ce) {
				t.Errorf("expected *types.ChallengeError, got %T", err)
			}
			if svc.verifyHits != tt.wantVerify {
				t.Errorf("verify hits = %d, want %d", svc.verifyHits, tt.wantVerify)
			}
		})
	}
}

func TestBypassTimeout(t *testing.T) {
	done := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-done:
		case <-time.After(2 * time.Second):
		}
	}))
	defer server.Close()
	defer close(done)

	c := New(Config{BaseURL: server.URL, Timeout: 50 * time.Millisecond})
	_, err := c.Bypass(context.Background(), httpclient.NewSession("", 5*time.Second))
	if !errors.Is(err, types.ErrChallengeRequestFailed) {
		t.Errorf("Bypass() error = %v, want request failure", err)
	}
}

func TestNewDefaults(t *testing.T) {
	c := New(Config{Variation: -1})
	if c.baseURL != DefaultBaseURL {
		t.Errorf("baseURL = %q", c.baseURL)
	}
	if c.timeout != DefaultTimeout {
		t.Errorf("timeout = %v", c.timeout)
	}
	if c.variation != 0.1 {
		t.Errorf("variation = %v", c.variation)
	}
	if c.rng == nil {
		t.Error("rng not set")
	}
}
