// Package linkurl extracts product links from chat text and reduces them to
// the canonical form used as the tracking dedup key.
package linkurl

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/rs/zerolog/log"
)

var invisible = strings.NewReplacer(
	"\u200b", "", // zero-width space
	"\u200c", "", // zero-width non-joiner
	"\u200d", "", // zero-width joiner
	"\ufeff", "", // byte-order mark
)

var urlPattern = regexp.MustCompile(`(?i)\b[a-z][a-z0-9+.\-]*://[^\s\p{Z}]+|\bwww\.[^\s\p{Z}]+`)

// trailing punctuation that is never part of a pasted link
const trailingCutset = `.,;:!?"'>]}»`

// ExtractURLs returns the distinct URLs found in text, in first-seen order.
// Bare www. tokens are promoted to https. It never panics.
func ExtractURLs(text string) (urls []string) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Int("text_len", len(text)).Msg("url extraction failed")
			urls = []string{}
		}
	}()

	urls = []string{}
	if text == "" {
		return urls
	}

	matches := urlPattern.FindAllString(invisible.Replace(text), -1)
	seen := make(map[string]struct{}, len(matches))

	for _, m := range matches {
		candidate := trimTrailing(m)
		if hasPrefixFold(candidate, "www.") {
			candidate = "https://" + candidate
		}
		if !plausible(candidate) {
			continue
		}
		if _, dup := seen[candidate]; dup {
			continue
		}
		seen[candidate] = struct{}{}
		urls = append(urls, candidate)
	}

	return urls
}

// Canonicalize lowercases scheme, host and path, drops trailing slashes,
// query, fragment and userinfo. Input without a recognizable host is
// returned unchanged.
func Canonicalize(raw string) string {
	s := strings.TrimSpace(raw)
	if hasPrefixFold(s, "www.") {
		s = "https://" + s
	}

	u, err := url.Parse(s)
	if err != nil || u.Host == "" || u.Scheme == "" {
		return raw
	}

	path := strings.TrimRight(u.EscapedPath(), "/")

	return strings.ToLower(u.Scheme) + "://" + strings.ToLower(u.Host) + strings.ToLower(path)
}

// Host returns the lowercased hostname of rawURL without port and without a
// leading "www.". Bare domains ("Shop.com") are accepted.
func Host(rawURL string) string {
	s := strings.TrimSpace(rawURL)
	if s == "" {
		return ""
	}
	if !strings.Contains(s, "://") {
		s = "https://" + s
	}

	u, err := url.Parse(s)
	if err != nil {
		return ""
	}

	return strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
}

func trimTrailing(s string) string {
	for s != "" {
		r := []rune(s)
		last := r[len(r)-1]
		switch {
		case strings.ContainsRune(trailingCutset, last):
			s = string(r[:len(r)-1])
		case last == ')' && strings.Count(s, "(") < strings.Count(s, ")"):
			s = string(r[:len(r)-1])
		default:
			return s
		}
	}
	return s
}

func plausible(candidate string) bool {
	i := strings.Index(candidate, "://")
	return i > 0 && len(candidate) > i+3
}

func hasPrefixFold(s, prefix string) bool {
	return len(s) >= len(prefix) && strings.EqualFold(s[:len(prefix)], prefix)
}
