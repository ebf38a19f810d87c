package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

const stateFile = "state.json"

// State holds runtime state persisted across CLI invocations.
type State struct {
	// Scopes maps a caller-defined scope (a chat group, a channel) to
	// whether automatic link handling is enabled there.
	Scopes map[string]bool `json:"scopes"`
}

// LoadState reads state from the XDG config directory, returning empty state if not found.
func LoadState() *State {
	s := &State{Scopes: make(map[string]bool)}

	data, err := os.ReadFile(StatePath())
	if err != nil {
		return s
	}

	_ = json.Unmarshal(data, s)
	if s.Scopes == nil {
		s.Scopes = make(map[string]bool)
	}

	return s
}

// SaveState writes state to the XDG config directory.
func SaveState(s *State) error {
	path := StatePath()
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("creating state dir: %w", err)
	}

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("marshalling state: %w", err)
	}

	return os.WriteFile(path, data, 0o600)
}

// SetEnabled records whether scope is enabled. Disabling removes the entry.
func (s *State) SetEnabled(scope string, on bool) {
	if s.Scopes == nil {
		s.Scopes = make(map[string]bool)
	}
	if !on {
		delete(s.Scopes, scope)
		return
	}
	s.Scopes[scope] = true
}

// Enabled reports whether scope is enabled.
func (s *State) Enabled(scope string) bool {
	if s.Scopes == nil {
		return false
	}
	return s.Scopes[scope]
}

// StatePath returns the path to the state file.
func StatePath() string {
	return filePathForApp(appName, stateFile)
}
