package utils

import (
	"regexp"
	"strings"

	"github.com/mozillazg/go-unidecode"
)

var slugStrip = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify produces a URL-safe ASCII slug from a document title. Used as a
// fallback when a CMS document has no slug of its own.
func Slugify(title string) string {
	s := unidecode.Unidecode(title)
	s = strings.ToLower(s)
	s = slugStrip.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}
