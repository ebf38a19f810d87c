package types

import (
	"errors"
	"fmt"
	"testing"
)

func TestChallengeErrorMatchesPhase(t *testing.T) {
	cause := errors.New("boom")
	tests := []struct {
		phase string
		want  error
	}{
		{PhaseRequest, ErrChallengeRequestFailed},
		{PhaseSolve, ErrChallengeSolveFailed},
		{PhaseVerify, ErrChallengeVerifyFailed},
	}

	for _, tt := range tests {
		t.Run(tt.phase, func(t *testing.T) {
			err := fmt.Errorf("bypass: %w", NewChallengeError(tt.phase, cause))
			if !errors.Is(err, tt.want) {
				t.Errorf("errors.Is(%v, %v) = false", err, tt.want)
			}
			if !errors.Is(err, cause) {
				t.Error("expected the cause to be reachable")
			}
			for _, other := range []error{ErrChallengeRequestFailed, ErrChallengeSolveFailed, ErrChallengeVerifyFailed} {
				if other != tt.want && errors.Is(err, other) {
					t.Errorf("phase %s should not match %v", tt.phase, other)
				}
			}
		})
	}
}

func TestChallengeErrorWrapsPuzzleSentinel(t *testing.T) {
	err := NewChallengeError(PhaseSolve, ErrUnsupportedInstruction)
	if !errors.Is(err, ErrUnsupportedInstruction) {
		t.Error("expected solver sentinel to survive wrapping")
	}
}

func TestFetchError(t *testing.T) {
	err := NewStatusError(StageInitial, "https://example.com", 403)
	if !errors.Is(err, ErrPageFetchFailed) {
		t.Error("expected ErrPageFetchFailed")
	}

	var fe *FetchError
	if !errors.As(fmt.Errorf("wrapped: %w", err), &fe) {
		t.Fatal("errors.As failed")
	}
	if fe.Status != 403 {
		t.Errorf("Status = %d, want 403", fe.Status)
	}
	if got := err.Error(); got != "page fetch failed (initial): HTTP 403" {
		t.Errorf("Error() = %q", got)
	}

	cause := errors.New("dial tcp: refused")
	terr := NewTransportError(StageAfterChallenge, "https://example.com", cause)
	if terr.Status != 0 || !errors.Is(terr, cause) {
		t.Errorf("unexpected transport error %+v", terr)
	}
}
