package normalizers

import (
	"strings"

	"github.com/Ramsey-B/thistle/pkg/models"
)

var nameSuffixes = map[string]bool{
	"jr": true, "sr": true, "ii": true, "iii": true, "iv": true,
	"phd": true, "md": true, "dds": true, "esq": true,
}

var nameHonorifics = map[string]bool{
	"mr": true, "mrs": true, "ms": true, "miss": true, "mx": true,
	"dr": true, "prof": true, "sir": true,
}

// NormalizeName lower-cases a person's name, drops punctuation, honorifics and
// generational suffixes and collapses whitespace. Diacritics are kept.
func NormalizeName(s string) string {
	tokens := strings.Fields(wordsOnly(NFC(s)))
	for len(tokens) > 1 && nameHonorifics[tokens[0]] {
		tokens = tokens[1:]
	}
	for len(tokens) > 1 && nameSuffixes[tokens[len(tokens)-1]] {
		tokens = tokens[:len(tokens)-1]
	}
	return strings.Join(tokens, " ")
}

func normalizeName(raw string, kind models.IdentifierKind, res *models.NormalizationResult) {
	var normalized string
	if kind == models.KindName {
		normalized = NormalizeName(raw)
	} else {
		// organizations keep designators like "inc" so distinct entities stay distinct
		normalized = wordsOnly(NFC(raw))
	}

	res.Normalized = normalized
	res.SearchForm = FoldDiacritics(normalized)
	res.IsValid = normalized != ""
	res.Confidence = models.ConfidenceCertain
	if !res.IsValid {
		res.Errors = append(res.Errors, "name has no letters or digits")
		res.Confidence = models.ConfidenceUnknown
		return
	}

	tokens := strings.Fields(normalized)
	res.Components["tokens"] = tokens
	if kind == models.KindName && len(tokens) > 1 {
		res.Components["given"] = tokens[0]
		res.Components["family"] = tokens[len(tokens)-1]
	}
	if res.SearchForm != normalized {
		res.AlternativeForms = append(res.AlternativeForms, res.SearchForm)
	}
}
