// Package challenge drives the puzzle challenge that gates protected pages.
//
// Flow:
//  1. Build a telemetry profile and a device fingerprint.
//  2. POST {base}/request with {"telemetry", "deviceFingerprint", "forcePuzzle": false}.
//  3. Solve the returned puzzle.
//  4. POST {base}/verify with {"id", "answer"}.
//
// Cookies granted by either response stay in the session.
package challenge

import (
	"context"
	"encoding/json"
	"errors"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/qm4/keyfetch/internal/fingerprint"
	"github.com/qm4/keyfetch/internal/httpclient"
	"github.com/qm4/keyfetch/internal/puzzle"
	"github.com/qm4/keyfetch/internal/telemetry"
	"github.com/qm4/keyfetch/internal/types"
)

const (
	// DefaultBaseURL is the challenge service root shared by both endpoints.
	DefaultBaseURL = "https://sentry.platorelay.com/.gs/pow/captcha"
	// DefaultTimeout bounds each challenge request.
	DefaultTimeout = 15 * time.Second

	requestPath = "/request"
	verifyPath  = "/verify"
)

// Source is the randomness used for telemetry and fingerprints.
type Source interface {
	telemetry.Source
	fingerprint.Source
}

// requestPayload is the POST body for the request endpoint.
type requestPayload struct {
	Telemetry         telemetry.BehaviorProfile `json:"telemetry"`
	DeviceFingerprint string                    `json:"deviceFingerprint"`
	ForcePuzzle       bool                      `json:"forcePuzzle"`
}

// requestResponse is the response from the request endpoint.
type requestResponse struct {
	ID     string         `json:"id"`
	Puzzle *puzzle.Puzzle `json:"puzzle"`
}

// verifyPayload is the POST body for the verify endpoint.
type verifyPayload struct {
	ID     string        `json:"id"`
	Answer puzzle.Answer `json:"answer"`
}

// Config holds challenge client settings.
type Config struct {
	BaseURL string
	Timeout time.Duration
	// Variation is the telemetry jitter. Negative selects the default.
	Variation float64
	// Rand defaults to a time-seeded source.
	Rand Source
}

// Client runs the challenge protocol.
type Client struct {
	baseURL   string
	timeout   time.Duration
	variation float64

	mu  sync.Mutex
	rng Source
}

// New creates a challenge client, filling unset fields with defaults.
func New(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Variation < 0 {
		cfg.Variation = telemetry.DefaultVariation
	}
	if cfg.Rand == nil {
		cfg.Rand = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Client{
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		timeout:   cfg.Timeout,
		variation: cfg.Variation,
		rng:       cfg.Rand,
	}
}

// Bypass runs one request/solve/verify cycle over sess and returns the
// same session. Failures are *types.ChallengeError tagged with the phase.
// A 2xx verify response with any JSON body counts as success.
func (c *Client) Bypass(ctx context.Context, sess *httpclient.Session) (*httpclient.Session, error) {
	profile, fp := c.identity()
	logger := log.With().Str("fingerprint", fp).Logger()

	var pr requestResponse
	logger.Debug().Str("url", c.baseURL+requestPath).Msg("Requesting puzzle")
	err := c.post(ctx, sess, requestPath, requestPayload{
		Telemetry:         profile,
		DeviceFingerprint: fp,
		ForcePuzzle:       false,
	}, &pr)
	if err != nil {
		return nil, types.NewChallengeError(types.PhaseRequest, err)
	}
	if pr.Puzzle == nil {
		return nil, types.NewChallengeError(types.PhaseRequest, errors.New("response has no puzzle"))
	}

	answer, err := puzzle.Solve(*pr.Puzzle)
	if err != nil {
		return nil, types.NewChallengeError(types.PhaseSolve, err)
	}
	logger.Debug().
		Str("instruction", pr.Puzzle.Instruction).
		Int("shapes", len(pr.Puzzle.Shapes)).
		Stringer("kind", answer.Kind).
		Float64("answer", answer.Value).
		Msg("Puzzle solved")

	id := pr.ID
	if id == "" {
		id = pr.Puzzle.ID
	}

	var verified json.RawMessage
	err = c.post(ctx, sess, verifyPath, verifyPayload{ID: id, Answer: answer}, &verified)
	if err != nil {
		return nil, types.NewChallengeError(types.PhaseVerify, err)
	}
	logger.Debug().Msg("Challenge verified")

	return sess, nil
}

func (c *Client) identity() (telemetry.BehaviorProfile, string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return telemetry.Generate(c.rng, c.variation), fingerprint.Generate(c.rng)
}

func (c *Client) post(ctx context.Context, sess *httpclient.Session, path string, in, out any) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	return sess.PostJSON(ctx, c.baseURL+path, in, out)
}
