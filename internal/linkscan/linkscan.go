// Package linkscan picks entry links out of free text.
package linkscan

import (
	"regexp"
	"strings"
	"sync"
)

var (
	cacheMu sync.Mutex
	cache   = map[string]*regexp.Regexp{}
)

// Find returns the first link in text pointing at one of domains, checking
// domains in order. Links without a scheme get "https://". It returns ""
// when nothing matches.
func Find(text string, domains []string) string {
	for _, d := range domains {
		if m := pattern(d).FindString(text); m != "" {
			if !strings.HasPrefix(m, "http://") && !strings.HasPrefix(m, "https://") {
				m = "https://" + m
			}
			return m
		}
	}
	return ""
}

func pattern(domain string) *regexp.Regexp {
	cacheMu.Lock()
	defer cacheMu.Unlock()
	re, ok := cache[domain]
	if !ok {
		re = regexp.MustCompile(`(?:https?://)?` + regexp.QuoteMeta(domain) + `\S+`)
		cache[domain] = re
	}
	return re
}
