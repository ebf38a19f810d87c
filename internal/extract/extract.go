// Package extract finds the redemption code in a fetched page.
package extract

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog/log"

	"github.com/qm4/keyfetch/internal/selectors"
	"github.com/qm4/keyfetch/internal/types"
)

// Extractor probes a page for a code with a given prefix.
type Extractor struct {
	prefix    string
	selectors []string
	strict    *regexp.Regexp
	loose     *regexp.Regexp
}

// New returns an Extractor for prefix, probing cssSelectors in order.
func New(prefix string, cssSelectors []string) *Extractor {
	q := regexp.QuoteMeta(prefix)
	return &Extractor{
		prefix:    prefix,
		selectors: cssSelectors,
		strict:    regexp.MustCompile(`(?i)` + q + `[0-9a-f]{32}`),
		loose:     regexp.MustCompile(q + `[A-Za-z0-9]+`),
	}
}

// Default returns an Extractor built from the embedded pattern tables.
func Default() *Extractor {
	s := selectors.Get()
	return New(s.CodePrefix, s.CodeSelectors)
}

// Code returns the first code found in html using the default tables.
func Code(html string) (string, error) {
	return Default().Code(html)
}

// Code tries, in order: the text of the first element matched by each
// selector, a prefix followed by 32 hex characters anywhere in the markup,
// then the prefix followed by any alphanumeric run. It returns
// types.ErrNotFound when nothing matches.
func (e *Extractor) Code(html string) (string, error) {
	if code, ok := e.fromDocument(html); ok {
		log.Debug().Str("method", "selector").Msg("Extracted code")
		return code, nil
	}

	if code := e.strict.FindString(html); code != "" {
		log.Debug().Str("method", "strict").Msg("Extracted code")
		return code, nil
	}

	if code := e.loose.FindString(html); code != "" {
		log.Debug().Str("method", "loose").Msg("Extracted code")
		return code, nil
	}

	return "", types.ErrNotFound
}

func (e *Extractor) fromDocument(html string) (string, bool) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		log.Debug().Err(err).Msg("Failed to parse HTML")
		return "", false
	}

	for _, sel := range e.selectors {
		node := doc.Find(sel).First()
		if node.Length() == 0 {
			continue
		}
		if text := collapsedText(node); strings.HasPrefix(text, e.prefix) {
			return text, true
		}
	}
	return "", false
}

// collapsedText joins the element's text nodes with each piece trimmed,
// so markup-induced whitespace does not split a code.
func collapsedText(s *goquery.Selection) string {
	var b strings.Builder
	s.Contents().Each(func(_ int, c *goquery.Selection) {
		if goquery.NodeName(c) == "#text" {
			b.WriteString(strings.TrimSpace(c.Text()))
			return
		}
		b.WriteString(collapsedText(c))
	})
	return b.String()
}
