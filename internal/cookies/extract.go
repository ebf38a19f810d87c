// Package cookies imports browser cookies via kooky so a retrieval can
// start with whatever clearance the user's own browser already holds.
// Safari-first, Chrome as fallback.
package cookies

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"runtime"

	"github.com/browserutils/kooky"
	"github.com/browserutils/kooky/browser/chrome"
	"github.com/browserutils/kooky/browser/safari"
	"github.com/rs/zerolog/log"

	"github.com/qm4/keyfetch/internal/httpclient"
)

// Result holds extracted cookies.
type Result struct {
	Cookies []*http.Cookie
	Browser string // which browser provided them
}

func (r *Result) has(name string) bool {
	for _, c := range r.Cookies {
		if c.Name == name {
			return true
		}
	}
	return false
}

// Extract reads every non-empty cookie whose domain ends with domain.
// Safari is read first (its cookies are plaintext on macOS); Chrome fills
// in names Safari did not have.
func Extract(ctx context.Context, domain string) (*Result, error) {
	result := &Result{}

	if err := extractSafari(ctx, domain, result); err != nil {
		log.Debug().Err(err).Msg("Safari cookies unavailable")
	}
	if err := extractChrome(ctx, domain, result); err != nil {
		log.Debug().Err(err).Msg("Chrome cookies unavailable")
	}

	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	return result, nil
}

// Seed copies browser cookies for target's host into sess. Failures are
// logged and otherwise ignored.
func Seed(ctx context.Context, sess *httpclient.Session, target string) {
	u, err := url.Parse(target)
	if err != nil || u.Hostname() == "" {
		return
	}

	result, err := Extract(ctx, u.Hostname())
	if err != nil {
		log.Debug().Err(err).Msg("Cookie import failed")
		return
	}
	if len(result.Cookies) == 0 {
		return
	}

	sess.SetCookies(u, result.Cookies)
	log.Debug().
		Int("count", len(result.Cookies)).
		Str("browser", result.Browser).
		Str("host", u.Hostname()).
		Msg("Imported browser cookies")
}

func extractSafari(ctx context.Context, domain string, result *Result) error {
	paths, err := safariCookiePaths()
	if err != nil {
		return err
	}

	for _, path := range paths {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			continue
		}

		seq := safari.TraverseCookies(path,
			kooky.DomainHasSuffix(domain),
		).OnlyCookies()

		if err := collect(ctx, seq, "safari", result); err != nil {
			return err
		}
	}

	return nil
}

func extractChrome(ctx context.Context, domain string, result *Result) error {
	path, err := chromeCookiePath()
	if err != nil {
		return err
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return fmt.Errorf("Chrome cookie file not found at %s", path)
	}

	seq := chrome.TraverseCookies(path,
		kooky.DomainHasSuffix(domain),
	).OnlyCookies()

	return collect(ctx, seq, "chrome", result)
}

func collect(ctx context.Context, seq kooky.CookieSeq, browser string, result *Result) error {
	for cookie := range seq {
		if err := ctx.Err(); err != nil {
			return err
		}
		if cookie == nil || cookie.Value == "" {
			continue
		}
		// First browser to supply a name wins.
		if result.has(cookie.Name) {
			continue
		}
		result.Cookies = append(result.Cookies, &http.Cookie{
			Name:  cookie.Name,
			Value: cookie.Value,
			Path:  "/",
		})
		if result.Browser == "" {
			result.Browser = browser
		}
		log.Debug().Str("name", cookie.Name).Str("domain", cookie.Domain).Str("browser", browser).Msg("Found cookie")
	}
	return nil
}

func chromeCookiePath() (string, error) {
	if runtime.GOOS != "darwin" {
		return "", fmt.Errorf("unsupported OS %q: only macOS is currently supported", runtime.GOOS)
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	networkPath := filepath.Join(dir, "Google", "Chrome", "Default", "Network", "Cookies")
	if _, err := os.Stat(networkPath); err == nil {
		return networkPath, nil
	}
	return filepath.Join(dir, "Google", "Chrome", "Default", "Cookies"), nil
}

func safariCookiePaths() ([]string, error) {
	if runtime.GOOS != "darwin" {
		return nil, fmt.Errorf("unsupported OS %q: only macOS is currently supported", runtime.GOOS)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, err
	}
	return []string{
		filepath.Join(home, "Library", "Containers", "com.apple.Safari", "Data", "Library", "Cookies", "Cookies.binarycookies"),
		filepath.Join(home, "Library", "Cookies", "Cookies.binarycookies"),
	}, nil
}
