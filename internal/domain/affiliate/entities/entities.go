package entities

import (
	"strings"
	"time"

	"github.com/Conte777/affiliate-relay/pkg/linkurl"
)

// AffiliateDomain is an allow-list entry for link tracking
type AffiliateDomain struct {
	ID            uint      `json:"id"`
	Domain        string    `json:"domain"`
	AffiliateCode string    `json:"affiliate_code"`
	IsActive      bool      `json:"is_active"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Match is a positive domain match for a URL
type Match struct {
	Domain        string
	AffiliateCode string
}

// DomainSet is an immutable snapshot of the active allow-list
type DomainSet struct {
	byDomain map[string]string
}

// NewDomainSet builds a snapshot from the given rows, ignoring inactive ones
func NewDomainSet(domains []AffiliateDomain) *DomainSet {
	set := &DomainSet{byDomain: make(map[string]string, len(domains))}
	for _, d := range domains {
		if !d.IsActive {
			continue
		}
		set.byDomain[NormalizeDomain(d.Domain)] = d.AffiliateCode
	}
	return set
}

// Len returns the number of active domains
func (s *DomainSet) Len() int {
	if s == nil {
		return 0
	}
	return len(s.byDomain)
}

// Match reports whether the URL host equals an active domain exactly.
// Subdomains do not match unless listed themselves.
func (s *DomainSet) Match(canonicalURL string) (Match, bool) {
	if s == nil {
		return Match{}, false
	}

	host := linkurl.Host(canonicalURL)
	if host == "" {
		return Match{}, false
	}

	code, ok := s.byDomain[host]
	if !ok {
		return Match{}, false
	}

	return Match{Domain: host, AffiliateCode: code}, true
}

// NormalizeDomain lowercases and strips scheme, path and a leading "www."
func NormalizeDomain(domain string) string {
	return linkurl.Host(strings.TrimSpace(domain))
}
