// Package types provides the error taxonomy shared by the retrieval stages.
package types

import (
	"errors"
	"fmt"
)

// Sentinel errors. Check them with errors.Is.
var (
	// Puzzle errors
	ErrUnsupportedInstruction = errors.New("unsupported puzzle instruction")
	ErrNoMatchingShape        = errors.New("no shape matches the instruction")
	ErrEmptyPuzzle            = errors.New("puzzle has no shapes")

	// Challenge phases
	ErrChallengeRequestFailed = errors.New("challenge request failed")
	ErrChallengeSolveFailed   = errors.New("challenge solve failed")
	ErrChallengeVerifyFailed  = errors.New("challenge verify failed")

	// Page errors
	ErrPageFetchFailed = errors.New("page fetch failed")

	// Extraction errors
	ErrNotFound = errors.New("redemption code not found")
)

// Challenge phases reported by ChallengeError.
const (
	PhaseRequest = "request"
	PhaseSolve   = "solve"
	PhaseVerify  = "verify"
)

// ChallengeError reports which step of the challenge protocol failed.
// It matches the phase sentinel with errors.Is and unwraps to the cause.
type ChallengeError struct {
	Phase string
	Err   error
}

func (e *ChallengeError) Error() string {
	if e.Err == nil {
		return e.sentinel().Error()
	}
	return fmt.Sprintf("%s: %v", e.sentinel(), e.Err)
}

func (e *ChallengeError) Unwrap() error {
	return e.Err
}

// Is matches the sentinel for the error's phase.
func (e *ChallengeError) Is(target error) bool {
	return target == e.sentinel()
}

func (e *ChallengeError) sentinel() error {
	switch e.Phase {
	case PhaseSolve:
		return ErrChallengeSolveFailed
	case PhaseVerify:
		return ErrChallengeVerifyFailed
	default:
		return ErrChallengeRequestFailed
	}
}

// NewChallengeError wraps err as a failure of the given phase.
func NewChallengeError(phase string, err error) *ChallengeError {
	return &ChallengeError{Phase: phase, Err: err}
}

// Fetch stages reported by FetchError.
const (
	StageInitial        = "initial"
	StageAfterChallenge = "after-challenge"
)

// FetchError provides details about a failed page fetch.
// Status is zero when the request never produced a response.
type FetchError struct {
	Stage  string
	URL    string
	Status int
	Err    error
}

func (e *FetchError) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("%s (%s): %v", ErrPageFetchFailed, e.Stage, e.Err)
	}
	return fmt.Sprintf("%s (%s): HTTP %d", ErrPageFetchFailed, e.Stage, e.Status)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// Is reports whether target is ErrPageFetchFailed.
func (e *FetchError) Is(target error) bool {
	return target == ErrPageFetchFailed
}

// NewStatusError creates a FetchError for a non-200 response.
func NewStatusError(stage, url string, status int) *FetchError {
	return &FetchError{Stage: stage, URL: url, Status: status}
}

// NewTransportError creates a FetchError for a request that produced no response.
func NewTransportError(stage, url string, err error) *FetchError {
	return &FetchError{Stage: stage, URL: url, Err: err}
}
