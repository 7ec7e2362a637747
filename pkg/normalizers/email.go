package normalizers

import (
	"regexp"
	"strings"

	"github.com/Ramsey-B/thistle/pkg/models"
)

var emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s.]+$`)

// providers that ignore dots in the local part
var dotlessProviders = map[string]string{
	"gmail.com":      "gmail.com",
	"googlemail.com": "gmail.com",
}

func normalizeEmail(raw string, _ models.IdentifierKind, res *models.NormalizationResult) {
	email := strings.ToLower(strings.TrimSpace(raw))
	email = strings.TrimPrefix(email, "mailto:")
	res.Normalized = email
	res.SearchForm = email
	res.Confidence = models.ConfidenceCertain

	if !emailPattern.MatchString(email) {
		res.IsValid = false
		res.Confidence = models.ConfidenceLow
		res.Errors = append(res.Errors, "not a valid email address")
		return
	}
	res.IsValid = true

	at := strings.LastIndex(email, "@")
	local, domain := email[:at], email[at+1:]
	res.Components["local"] = local
	res.Components["domain"] = domain

	base := local
	if plus := strings.Index(local, "+"); plus > 0 {
		base = local[:plus]
		res.Components["tag"] = local[plus+1:]
		res.AlternativeForms = append(res.AlternativeForms, base+"@"+domain)
	}
	if canonical, ok := dotlessProviders[domain]; ok {
		dotless := strings.ReplaceAll(base, ".", "") + "@" + canonical
		if dotless != email && !containsString(res.AlternativeForms, dotless) {
			res.AlternativeForms = append(res.AlternativeForms, dotless)
		}
	}
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
