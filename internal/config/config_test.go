package config

import (
	"os"
	"path/filepath"
	"testing"
)

func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	// Keep godotenv from picking up a stray .env in the package directory.
	t.Chdir(dir)
	for _, k := range []string{"KEYFETCH_USER_AGENT", "KEYFETCH_TIMEOUT", "KEYFETCH_CHALLENGE_BASE", "KEYFETCH_LOG_LEVEL", "KEYFETCH_FOOTER"} {
		t.Setenv(k, "")
	}
	return dir
}

func TestLoadDefaults(t *testing.T) {
	isolate(t)

	cfg := Load()
	if cfg.UserAgent != DefaultUserAgent {
		t.Errorf("UserAgent = %q", cfg.UserAgent)
	}
	if cfg.Timeout != DefaultTimeout {
		t.Errorf("Timeout = %d, want %d", cfg.Timeout, DefaultTimeout)
	}
	if cfg.ChallengeBase != DefaultChallengeBase {
		t.Errorf("ChallengeBase = %q", cfg.ChallengeBase)
	}
	if cfg.Variation != DefaultVariation {
		t.Errorf("Variation = %v", cfg.Variation)
	}
	if cfg.LogLevel != DefaultLogLevel {
		t.Errorf("LogLevel = %q", cfg.LogLevel)
	}
}

func TestSaveThenLoad(t *testing.T) {
	dir := isolate(t)

	in := &Config{Timeout: 30, Footer: "join us", Variation: 0.2}
	if err := Save(in); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	path := filepath.Join(dir, "keyfetch", "config.json")
	if FilePath() != path {
		t.Errorf("FilePath() = %q, want %q", FilePath(), path)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Errorf("perm = %o, want 600", perm)
	}

	cfg := Load()
	if cfg.Timeout != 30 || cfg.Footer != "join us" || cfg.Variation != 0.2 {
		t.Errorf("Load() = %+v", cfg)
	}
}

func TestEnvOverrides(t *testing.T) {
	isolate(t)
	if err := Save(&Config{Timeout: 30, ChallengeBase: "https://file.example"}); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	t.Setenv("KEYFETCH_TIMEOUT", "5")
	t.Setenv("KEYFETCH_CHALLENGE_BASE", "https://env.example/gate")
	t.Setenv("KEYFETCH_FOOTER", "footer")

	cfg := Load()
	if cfg.Timeout != 5 {
		t.Errorf("Timeout = %d, want 5", cfg.Timeout)
	}
	if cfg.ChallengeBase != "https://env.example/gate" {
		t.Errorf("ChallengeBase = %q", cfg.ChallengeBase)
	}
	if cfg.Footer != "footer" {
		t.Errorf("Footer = %q", cfg.Footer)
	}
}

func TestDotEnv(t *testing.T) {
	dir := isolate(t)
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte("KEYFETCH_LOG_LEVEL=debug\n"), 0o600); err != nil {
		t.Fatalf("write .env: %v", err)
	}
	os.Unsetenv("KEYFETCH_LOG_LEVEL")

	if cfg := Load(); cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, want debug", cfg.LogLevel)
	}
}

func TestMalformedFileFallsBack(t *testing.T) {
	dir := isolate(t)
	os.MkdirAll(filepath.Join(dir, "keyfetch"), 0o700)
	os.WriteFile(filepath.Join(dir, "keyfetch", "config.json"), []byte("{not json"), 0o600)

	if cfg := Load(); cfg.Timeout != DefaultTimeout {
		t.Errorf("Timeout = %d, want default", cfg.Timeout)
	}
}

func TestValidate(t *testing.T) {
	cfg := &Config{Timeout: -3, Variation: 4}
	cfg.Validate()
	if cfg.Timeout != DefaultTimeout {
		t.Errorf("Timeout = %d", cfg.Timeout)
	}
	if cfg.Variation != DefaultVariation {
		t.Errorf("Variation = %v", cfg.Variation)
	}
}

func TestStateScopes(t *testing.T) {
	isolate(t)

	s := LoadState()
	if s.Enabled("group-1") {
		t.Error("fresh state should have nothing enabled")
	}

	s.SetEnabled("group-1", true)
	s.SetEnabled("group-2", true)
	s.SetEnabled("group-2", false)
	if err := SaveState(s); err != nil {
		t.Fatalf("SaveState() error = %v", err)
	}

	loaded := LoadState()
	if !loaded.Enabled("group-1") {
		t.Error("group-1 should be enabled")
	}
	if loaded.Enabled("group-2") {
		t.Error("group-2 should be disabled")
	}
	if len(loaded.Scopes) != 1 {
		t.Errorf("Scopes = %v", loaded.Scopes)
	}
}
