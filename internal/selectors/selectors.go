// Package selectors provides the pattern tables used for code extraction,
// challenge detection and link detection.
package selectors

import (
	"embed"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

//go:embed selectors.yaml
var defaultSelectorsFS embed.FS

// Selectors contains all pattern tables.
type Selectors struct {
	CodePrefix            string   `yaml:"code_prefix"`
	CodeSelectors         []string `yaml:"code_selectors"`
	ChallengeURLMarkers   []string `yaml:"challenge_url_markers"`
	ChallengeBodyKeywords []string `yaml:"challenge_body_keywords"`
	LinkDomains           []string `yaml:"link_domains"`
}

var (
	instance *Selectors
	once     sync.Once
	loadErr  error
)

// Get returns the singleton Selectors instance.
// Patterns are loaded from the embedded selectors.yaml file.
func Get() *Selectors {
	once.Do(func() {
		instance, loadErr = load()
		if loadErr != nil {
			log.Error().Err(loadErr).Msg("Failed to load selectors, using defaults")
			instance = defaultSelectors()
		}
	})
	return instance
}

func load() (*Selectors, error) {
	data, err := defaultSelectorsFS.ReadFile("selectors.yaml")
	if err != nil {
		return nil, err
	}
	return parse(data)
}

func parse(data []byte) (*Selectors, error) {
	var s Selectors
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, err
	}

	defaults := defaultSelectors()
	if s.CodePrefix == "" {
		s.CodePrefix = defaults.CodePrefix
	}
	if len(s.CodeSelectors) == 0 {
		s.CodeSelectors = defaults.CodeSelectors
	}

	log.Debug().
		Int("code_selectors", len(s.CodeSelectors)).
		Int("challenge_url_markers", len(s.ChallengeURLMarkers)).
		Int("challenge_body_keywords", len(s.ChallengeBodyKeywords)).
		Int("link_domains", len(s.LinkDomains)).
		Msg("Selectors loaded")

	return &s, nil
}

// IsChallenge reports whether a page served at finalURL with body is a
// challenge interstitial. URL markers match case-sensitively, body
// keywords case-insensitively.
func (s *Selectors) IsChallenge(finalURL, body string) bool {
	for _, m := range s.ChallengeURLMarkers {
		if strings.Contains(finalURL, m) {
			return true
		}
	}
	lower := strings.ToLower(body)
	for _, k := range s.ChallengeBodyKeywords {
		if strings.Contains(lower, strings.ToLower(k)) {
			return true
		}
	}
	return false
}

// defaultSelectors returns hardcoded fallback patterns.
func defaultSelectors() *Selectors {
	return &Selectors{
		CodePrefix: "FREE_",
		CodeSelectors: []string{
			"#card-key",
			".voucher-code",
			"pre",
			"code",
			`div[class*="card"]`,
			`p[class*="key"]`,
			`span[class*="code"]`,
		},
		ChallengeURLMarkers:   []string{"sentry"},
		ChallengeBodyKeywords: []string{"captcha"},
		LinkDomains: []string{
			"auth.platoboost.com",
			"auth.platorelay.com",
			"auth.platoboost.net",
			"auth.platoboost.click",
			"auth.platoboost.app",
			"auth.platoboost.me",
			"deltaios-executor.com",
		},
	}
}
