// Package util provides small string helpers shared by the API and CLI.
package util

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	separatorRe  = regexp.MustCompile(`[\s_/.]+`)
	disallowedRe = regexp.MustCompile(`[^a-z0-9-]`)
	dashRunRe    = regexp.MustCompile(`-+`)
)

// maxSlugLen bounds slugs used as download file names.
const maxSlugLen = 60

// Slug turns a title into a lowercase ASCII file-name stem.
// Accents are folded ("Café Menü" becomes "cafe-menu") and anything
// else outside [a-z0-9-] is dropped. The result may be empty.
func Slug(input string) string {
	folded, _, err := transform.String(transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC), input)
	if err != nil {
		folded = input
	}

	s := strings.ToLower(strings.TrimSpace(folded))
	s = separatorRe.ReplaceAllString(s, "-")
	s = disallowedRe.ReplaceAllString(s, "")
	s = dashRunRe.ReplaceAllString(s, "-")
	s = strings.Trim(s, "-")

	if len(s) > maxSlugLen {
		s = strings.TrimRight(s[:maxSlugLen], "-")
	}
	return s
}
