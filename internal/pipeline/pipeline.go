// Package pipeline composes URL resolution, page fetch, challenge bypass
// and code extraction into a single retrieval.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/qm4/keyfetch/internal/extract"
	"github.com/qm4/keyfetch/internal/httpclient"
	"github.com/qm4/keyfetch/internal/resolver"
	"github.com/qm4/keyfetch/internal/selectors"
	"github.com/qm4/keyfetch/internal/types"
)

// DefaultTimeout bounds each page fetch.
const DefaultTimeout = 15 * time.Second

// Bypasser clears a challenge on a session. *challenge.Client implements it.
type Bypasser interface {
	Bypass(ctx context.Context, sess *httpclient.Session) (*httpclient.Session, error)
}

// Detector decides whether a fetched page is a challenge interstitial.
type Detector interface {
	IsChallenge(finalURL, body string) bool
}

// Extractor pulls the code out of a page.
type Extractor interface {
	Code(html string) (string, error)
}

// Options configures a Retriever. Zero values select defaults.
type Options struct {
	UserAgent string
	Timeout   time.Duration
	Detector  Detector
	Extractor Extractor
	// NewSession overrides how the per-retrieval session is built.
	NewSession func() *httpclient.Session
	// Prepare runs on the fresh session before the first fetch.
	Prepare func(ctx context.Context, sess *httpclient.Session, target string)
}

// Retriever runs retrievals. It holds no per-retrieval state and is safe
// for concurrent use as long as its Bypasser is.
type Retriever struct {
	bypasser   Bypasser
	detector   Detector
	extractor  Extractor
	timeout    time.Duration
	newSession func() *httpclient.Session
	prepare    func(ctx context.Context, sess *httpclient.Session, target string)
}

// New creates a Retriever that clears challenges with b.
func New(b Bypasser, opts Options) *Retriever {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.Detector == nil {
		opts.Detector = selectors.Get()
	}
	if opts.Extractor == nil {
		opts.Extractor = extract.Default()
	}
	if opts.NewSession == nil {
		ua, timeout := opts.UserAgent, opts.Timeout
		opts.NewSession = func() *httpclient.Session {
			return httpclient.NewSession(ua, timeout)
		}
	}
	return &Retriever{
		bypasser:   b,
		detector:   opts.Detector,
		extractor:  opts.Extractor,
		timeout:    opts.Timeout,
		newSession: opts.NewSession,
		prepare:    opts.Prepare,
	}
}

// Result is the outcome of one retrieval.
type Result struct {
	ID         string
	Target     string
	Challenged bool
	Code       string
	Elapsed    time.Duration
	Err        error
}

// OK reports whether a code was found.
func (r *Result) OK() bool { return r.Err == nil && r.Code != "" }

// Message renders the result as a single human-readable line.
func (r *Result) Message() string {
	secs := r.Elapsed.Seconds()
	if r.OK() {
		return fmt.Sprintf("code: %s (elapsed %.2fs)", r.Code, secs)
	}

	var fe *types.FetchError
	var ce *types.ChallengeError
	switch {
	case errors.As(r.Err, &fe) && fe.Status != 0 && fe.Stage == types.StageAfterChallenge:
		return fmt.Sprintf("page fetch after challenge failed with status %d (elapsed %.2fs)", fe.Status, secs)
	case errors.As(r.Err, &fe) && fe.Status != 0:
		return fmt.Sprintf("page fetch failed with status %d (elapsed %.2fs)", fe.Status, secs)
	case errors.As(r.Err, &fe):
		return fmt.Sprintf("page fetch failed: %v (elapsed %.2fs)", fe.Err, secs)
	case errors.As(r.Err, &ce):
		return fmt.Sprintf("challenge bypass failed: %v (elapsed %.2fs)", ce, secs)
	case errors.Is(r.Err, types.ErrNotFound):
		return fmt.Sprintf("no code found (elapsed %.2fs)", secs)
	default:
		return fmt.Sprintf("retrieval failed: %v (elapsed %.2fs)", r.Err, secs)
	}
}

// Retrieve resolves raw, fetches it, clears at most one challenge and
// extracts the code. Elapsed time is always recorded.
func (r *Retriever) Retrieve(ctx context.Context, raw string) *Result {
	start := time.Now()
	res := &Result{ID: uuid.NewString()}
	defer func() { res.Elapsed = time.Since(start) }()

	res.Target = resolver.Resolve(raw)
	logger := log.With().Str("retrieval_id", res.ID).Str("target", res.Target).Logger()
	logger.Debug().Str("raw", raw).Msg("Resolved target")

	sess := r.newSession()
	if r.prepare != nil {
		r.prepare(ctx, sess, res.Target)
	}

	page, err := r.fetch(ctx, sess, res.Target, types.StageInitial)
	if err != nil {
		res.Err = err
		logger.Debug().Err(err).Msg("Initial fetch failed")
		return res
	}

	if r.detector.IsChallenge(page.URL, page.Body) {
		res.Challenged = true
		logger.Info().Str("final_url", page.URL).Msg("Challenge detected")

		if sess, err = r.bypasser.Bypass(ctx, sess); err != nil {
			res.Err = err
			logger.Warn().Err(err).Msg("Challenge bypass failed")
			return res
		}

		if page, err = r.fetch(ctx, sess, res.Target, types.StageAfterChallenge); err != nil {
			res.Err = err
			logger.Debug().Err(err).Msg("Fetch after challenge failed")
			return res
		}
	}

	res.Code, res.Err = r.extractor.Code(page.Body)
	logEnd(logger, res, time.Since(start))
	return res
}

func (r *Retriever) fetch(ctx context.Context, sess *httpclient.Session, target, stage string) (*httpclient.Page, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	page, err := sess.Get(ctx, target)
	if err != nil {
		return nil, types.NewTransportError(stage, target, err)
	}
	if page.Status != http.StatusOK {
		return nil, types.NewStatusError(stage, target, page.Status)
	}
	return page, nil
}

func logEnd(logger zerolog.Logger, res *Result, elapsed time.Duration) {
	if res.Err != nil {
		logger.Debug().Err(res.Err).Dur("elapsed", elapsed).Msg("No code extracted")
		return
	}
	logger.Info().Bool("challenged", res.Challenged).Dur("elapsed", elapsed).Msg("Code extracted")
}
