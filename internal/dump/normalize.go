package dump

import (
	"net/url"
	"strings"

	"golang.org/x/net/idna"

	"github.com/usher2/u2dumpsync/internal/logger"
)

var schemes = []string{"https", "http"}

// NormalizeDomain - normalize domain name.
func NormalizeDomain(domain string) string {
	domain = strings.ReplaceAll(domain, "\\", "/")
	domain = strings.TrimLeft(domain, "/")

	for _, scheme := range schemes {
		if len(domain) > len(scheme) && strings.EqualFold(domain[:len(scheme)], scheme) {
			if rest := domain[len(scheme):]; rest[0] == ':' || rest[0] == '/' {
				domain = strings.TrimLeft(rest, ":/")
			}

			break
		}
	}

	if c := strings.IndexByte(domain, '/'); c >= 0 {
		domain = domain[:c]
	}

	domain = strings.ReplaceAll(domain, ",", ".")
	domain = strings.ReplaceAll(domain, " ", "")
	domain = strings.TrimPrefix(domain, "*.")
	domain = strings.TrimSuffix(domain, ".")
	domain = strings.ToLower(domain)
	domain, _ = idna.ToASCII(domain)

	return domain
}

// NormalizeURL - normalize URL.
func NormalizeURL(u string) string {
	u = strings.ReplaceAll(u, "\\", "/")

	// http:host and http:/host
	if scheme, rest, ok := strings.Cut(u, ":"); ok && isWebScheme(scheme) && !strings.HasPrefix(rest, "//") {
		u = scheme + "://" + strings.TrimLeft(rest, "/")
	}

	nurl, err := url.Parse(u)
	if err != nil {
		logger.Debug.Printf("URL parse error: %s\n", err)

		return u
	}

	domain := nurl.Hostname()
	port := nurl.Port()

	nurl.Host = NormalizeDomain(domain)
	if port != "" {
		nurl.Host = nurl.Host + ":" + port
	}

	nurl.Fragment = ""
	nurl.RawFragment = ""

	return nurl.String()
}

func isWebScheme(s string) bool {
	for _, scheme := range schemes {
		if strings.EqualFold(s, scheme) {
			return true
		}
	}

	return false
}
