package agenda

import (
	"regexp"
	"strings"
	"unicode"
)

// urlPattern is deliberately loose: anything host-like of 2-256 characters
// ending in a 2-4 letter suffix, with an optional path.
var urlPattern = regexp.MustCompile(`(?i)[-a-z0-9@:%_+.~#?&/=]{2,256}\.[a-z]{2,4}\b(/[-a-z0-9@:%_+.~#?&/=]*)?`)

var schemePattern = regexp.MustCompile(`^[a-zA-Z]+://`)

// ExtractURL finds the first URL-like token in text. The token runs from the
// match start to the next whitespace; https:// is prepended when it has no scheme.
func ExtractURL(text string) (string, bool) {
	loc := urlPattern.FindStringIndex(text)
	if loc == nil {
		return "", false
	}

	u := text[loc[0]:]
	if i := strings.IndexFunc(u, unicode.IsSpace); i >= 0 {
		u = u[:i]
	}
	if !schemePattern.MatchString(u) {
		u = "https://" + u
	}
	return u, true
}
