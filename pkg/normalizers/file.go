package normalizers

import (
	"strings"

	"github.com/Ramsey-B/thistle/pkg/models"
)

var hashAlgorithms = map[int]string{
	32: "md5",
	40: "sha1",
	64: "sha256",
}

// HashAlgorithm returns the digest algorithm implied by a hex string's length
func HashAlgorithm(s string) (string, bool) {
	if !isHex(s) {
		return "", false
	}
	alg, ok := hashAlgorithms[len(s)]
	return alg, ok
}

func normalizeFile(raw string, kind models.IdentifierKind, res *models.NormalizationResult) {
	value := strings.TrimSpace(raw)
	res.Confidence = models.ConfidenceCertain
	res.IsValid = value != ""

	if alg, ok := HashAlgorithm(value); ok {
		res.Normalized = strings.ToLower(value)
		res.SearchForm = res.Normalized
		res.Components["hash_algorithm"] = alg
		return
	}

	if kind == models.KindFileHash {
		res.IsValid = false
		res.Errors = append(res.Errors, "hash must be 32, 40 or 64 hex characters")
	}
	// file names are case-sensitive on most systems
	res.Normalized = value
	res.SearchForm = strings.ToLower(value)
}
