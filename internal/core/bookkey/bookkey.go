// Package bookkey provides deterministic identity keys for books
//
// Pipeline for title/author keys
// 1 UTF-8 repair drop invalid bytes
// 2 Unicode NFKD decomposition so marks detach from their base runes
// 3 Remove combining marks and format chars
// 4 Case folding
// 5 Width fold fullwidth to ASCII
// 6 NFC recompose
// 7 Collapse whitespace to single spaces and trim
package bookkey

import (
	"strings"
	"sync"
	"unicode"

	perr "bestsellers/internal/platform/errors"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
	"golang.org/x/text/width"
)

// pool of fresh transformer chains
var chainPool = sync.Pool{
	New: func() any {
		// order matters and mirrors the documented pipeline
		// decomposition must precede mark removal or precomposed runes keep their accents
		return transform.Chain(
			norm.NFKD,                          // compat decomposition detaches marks
			runes.Remove(runes.In(unicode.Mn)), // strip combining marks
			runes.Remove(runes.In(unicode.Cf)), // strip format chars ZWJ ZWNJ FEFF etc
			cases.Fold(),                       // unicode case folding
			width.Fold,                         // map fullwidth forms to ASCII
			norm.NFC,                           // recompose what remains
		)
	},
}

// NormalizeISBN strips separators and validates shape, returning the bare
// 10 or 13 character identifier with any check X uppercased
func NormalizeISBN(raw string) (string, error) {
	var b strings.Builder
	b.Grow(len(raw))
	for _, r := range raw {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == 'x' || r == 'X':
			b.WriteRune('X')
		case r == '-' || r == ' ':
			// separator, skip
		default:
			return "", perr.InvalidArgf("isbn %q: unexpected character %q", raw, r)
		}
	}
	s := b.String()
	switch len(s) {
	case 10:
		// check digit X only valid in last position
		if i := strings.IndexByte(s[:9], 'X'); i >= 0 {
			return "", perr.InvalidArgf("isbn %q: X only valid as check digit", raw)
		}
		return s, nil
	case 13:
		if strings.ContainsRune(s, 'X') {
			return "", perr.InvalidArgf("isbn %q: 13-digit form has no X", raw)
		}
		return s, nil
	default:
		return "", perr.InvalidArgf("isbn %q: got %d significant characters, want 10 or 13", raw, len(s))
	}
}

// TitleKey returns the normalized form of a title or author string for
// fallback identity when no ISBN is available
func TitleKey(s string) string {
	if s == "" {
		return ""
	}

	s = strings.ToValidUTF8(s, "")

	tr := chainPool.Get().(transform.Transformer)
	ns, _, _ := transform.String(tr, s)
	tr.Reset()
	chainPool.Put(tr)

	return collapseSpaces(ns)
}

// Compose joins a title and author key into a single fallback identity
func Compose(title, author string) string {
	t := TitleKey(title)
	a := TitleKey(author)
	if a == "" {
		return t
	}
	return t + "|" + a
}

// collapseSpaces converts whitespace runs to a single ASCII space and trims
func collapseSpaces(s string) string {
	if s == "" {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	inWS := false
	for _, r := range s {
		if unicode.IsSpace(r) {
			inWS = true
			continue
		}
		if inWS && b.Len() > 0 {
			b.WriteByte(' ')
		}
		inWS = false
		b.WriteRune(r)
	}
	return b.String()
}
