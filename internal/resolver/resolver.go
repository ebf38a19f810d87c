// Package resolver turns short-link entry URLs into the page they point at.
//
// Short links carry their destination base64-encoded in the "d" query
// parameter of a path ending in "/a". Resolution is best effort: anything
// that cannot be decoded is returned unchanged.
package resolver

import (
	"encoding/base64"
	"net/url"
	"strings"
	"unicode/utf8"
)

const (
	shortPathSuffix = "/a"
	shortQueryMark  = "a?"
	destParam       = "d"
)

// Resolve returns the destination encoded in raw, or raw itself.
func Resolve(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	if !strings.HasSuffix(u.Path, shortPathSuffix) && !strings.Contains(raw, shortQueryMark) {
		return raw
	}

	q, err := url.ParseQuery(u.RawQuery)
	if err != nil && len(q) == 0 {
		return raw
	}
	d := q.Get(destParam)
	if d == "" {
		return raw
	}

	decoded, ok := decode(d)
	if !ok {
		return raw
	}
	if strings.HasPrefix(decoded, "http") {
		return decoded
	}
	origin := url.URL{Scheme: u.Scheme, User: u.User, Host: u.Host}
	return origin.String() + decoded
}

func decode(s string) (string, bool) {
	for _, enc := range []*base64.Encoding{base64.StdEncoding, base64.RawStdEncoding} {
		b, err := enc.DecodeString(s)
		if err == nil && utf8.Valid(b) {
			return string(b), true
		}
	}
	return "", false
}
