package normalizers

import (
	"net/netip"
	"regexp"
	"strings"

	"github.com/Ramsey-B/thistle/pkg/models"
)

var (
	schemePattern = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9+.\-]*://`)
	domainPattern = regexp.MustCompile(`^([a-z0-9\p{L}]([a-z0-9\p{L}\-]*[a-z0-9\p{L}])?\.)+[a-z\p{L}][a-z0-9\p{L}\-]*$`)
	macSeparators = strings.NewReplacer(":", "", "-", "", ".", "", " ", "")
)

// splitHost strips the scheme and returns the host and the remainder (path, query, fragment)
func splitHost(s string) (string, string) {
	s = schemePattern.ReplaceAllString(strings.TrimSpace(s), "")
	if i := strings.IndexAny(s, "/?#"); i >= 0 {
		return s[:i], s[i:]
	}
	return s, ""
}

func cleanHost(host string) string {
	host = strings.ToLower(host)
	if i := strings.LastIndex(host, "@"); i >= 0 {
		host = host[i+1:]
	}
	host = strings.TrimPrefix(host, "www.")
	host = strings.TrimSuffix(host, ":80")
	host = strings.TrimSuffix(host, ":443")
	return strings.TrimSuffix(host, ".")
}

func normalizeURL(raw string, _ models.IdentifierKind, res *models.NormalizationResult) {
	host, rest := splitHost(raw)
	host = cleanHost(host)
	rest = strings.TrimRight(rest, "/")

	res.Normalized = host + rest
	res.SearchForm = strings.ToLower(res.Normalized)
	res.Confidence = models.ConfidenceCertain
	res.Components["host"] = host
	if rest != "" {
		res.Components["path"] = rest
	}

	hostOnly := host
	if i := strings.LastIndex(hostOnly, ":"); i > 0 && !strings.Contains(hostOnly, "]") {
		hostOnly = hostOnly[:i]
	}
	res.IsValid = host != "" && !strings.ContainsAny(res.Normalized, " \t\n") &&
		(domainPattern.MatchString(hostOnly) || hostOnly == "localhost" || isIPLiteral(hostOnly))
	if !res.IsValid {
		res.Confidence = models.ConfidenceLow
		res.Errors = append(res.Errors, "url has no valid host")
	}
}

func normalizeDomain(raw string, _ models.IdentifierKind, res *models.NormalizationResult) {
	host, _ := splitHost(raw)
	host = cleanHost(host)
	if i := strings.LastIndex(host, ":"); i > 0 {
		host = host[:i]
	}

	res.Normalized = host
	res.SearchForm = host
	res.Confidence = models.ConfidenceCertain
	res.IsValid = domainPattern.MatchString(host)
	if !res.IsValid {
		res.Confidence = models.ConfidenceLow
		res.Errors = append(res.Errors, "not a valid domain name")
		return
	}
	labels := strings.Split(host, ".")
	res.Components["tld"] = labels[len(labels)-1]
	if len(labels) > 2 {
		res.Components["registered_domain"] = strings.Join(labels[len(labels)-2:], ".")
	}
}

func isIPLiteral(s string) bool {
	_, err := netip.ParseAddr(strings.Trim(s, "[]"))
	return err == nil
}

func normalizeIP(raw string, _ models.IdentifierKind, res *models.NormalizationResult) {
	value := strings.Trim(strings.TrimSpace(raw), "[]")
	addr, err := netip.ParseAddr(value)
	if err != nil {
		res.Normalized = strings.ToLower(value)
		res.SearchForm = res.Normalized
		res.Confidence = models.ConfidenceLow
		res.Errors = append(res.Errors, "not a valid IP address")
		return
	}
	addr = addr.Unmap()
	res.Normalized = addr.String()
	res.SearchForm = res.Normalized
	res.IsValid = true
	res.Confidence = models.ConfidenceCertain
	if addr.Is4() {
		res.Components["version"] = 4
	} else {
		res.Components["version"] = 6
	}
	res.Components["private"] = addr.IsPrivate()
}

func normalizeMAC(raw string, _ models.IdentifierKind, res *models.NormalizationResult) {
	hex := strings.ToLower(macSeparators.Replace(strings.TrimSpace(raw)))
	if len(hex) != 12 || !isHex(hex) {
		res.Normalized = strings.ToLower(strings.TrimSpace(raw))
		res.SearchForm = res.Normalized
		res.Confidence = models.ConfidenceLow
		res.Errors = append(res.Errors, "not a valid MAC address")
		return
	}
	parts := make([]string, 0, 6)
	for i := 0; i < 12; i += 2 {
		parts = append(parts, hex[i:i+2])
	}
	res.Normalized = strings.Join(parts, ":")
	res.SearchForm = hex
	res.IsValid = true
	res.Confidence = models.ConfidenceCertain
	res.Components["oui"] = strings.Join(parts[:3], ":")
}

func normalizeHandle(raw string, _ models.IdentifierKind, res *models.NormalizationResult) {
	handle := strings.ToLower(strings.TrimSpace(raw))
	handle = strings.TrimLeft(handle, "@")
	res.Normalized = handle
	res.SearchForm = handle
	res.Confidence = models.ConfidenceCertain
	res.IsValid = handle != "" && !strings.ContainsAny(handle, " \t\n")
	if !res.IsValid {
		res.Confidence = models.ConfidenceLow
		res.Errors = append(res.Errors, "handle is empty or contains whitespace")
	}
}
