package index

import (
	"strings"

	"golang.org/x/net/publicsuffix"
)

// parentDomains - registrable parent and private suffix of a domain:
//
//	parentDomains("www.google.com") -> "google.com", ""
//	parentDomains("a.b.github.io") -> "b.github.io", "github.io"
func parentDomains(domain string) (string, string) {
	parent, err := publicsuffix.EffectiveTLDPlusOne(domain)
	if err != nil {
		parent = domain
	}

	if _, _, ok := strings.Cut(parent, "."); !ok {
		return "", ""
	}

	suffix, icann := publicsuffix.PublicSuffix(domain)
	if icann {
		return parent, ""
	}

	if _, _, ok := strings.Cut(suffix, "."); !ok {
		return parent, ""
	}

	return parent, suffix
}
