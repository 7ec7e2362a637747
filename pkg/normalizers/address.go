package normalizers

import (
	"strings"

	"github.com/Ramsey-B/thistle/pkg/models"
)

var addressAbbreviations = map[string]string{
	"street":    "st",
	"avenue":    "ave",
	"boulevard": "blvd",
	"drive":     "dr",
	"road":      "rd",
	"lane":      "ln",
	"court":     "ct",
	"circle":    "cir",
	"place":     "pl",
	"terrace":   "ter",
	"highway":   "hwy",
	"parkway":   "pkwy",
	"square":    "sq",
	"apartment": "apt",
	"suite":     "ste",
	"floor":     "fl",
	"building":  "bldg",
	"north":     "n",
	"south":     "s",
	"east":      "e",
	"west":      "w",
	"northeast": "ne",
	"northwest": "nw",
	"southeast": "se",
	"southwest": "sw",
}

// AddressTokens lower-cases, folds diacritics, strips punctuation and
// abbreviates common street words
func AddressTokens(s string) []string {
	tokens := strings.Fields(wordsOnly(FoldDiacritics(s)))
	for i, t := range tokens {
		if abbr, ok := addressAbbreviations[t]; ok {
			tokens[i] = abbr
		}
	}
	return tokens
}

func normalizeAddress(raw string, _ models.IdentifierKind, res *models.NormalizationResult) {
	tokens := AddressTokens(raw)
	res.Normalized = strings.Join(tokens, " ")
	res.SearchForm = res.Normalized
	res.IsValid = len(tokens) > 0
	res.Confidence = models.ConfidenceHigh
	if !res.IsValid {
		res.Errors = append(res.Errors, "address is empty")
		res.Confidence = models.ConfidenceUnknown
		return
	}
	res.Components["tokens"] = tokens
	if zip := trailingPostalCode(tokens); zip != "" {
		res.Components["postal_code"] = zip
	}
}

func trailingPostalCode(tokens []string) string {
	last := tokens[len(tokens)-1]
	if d := DigitsOnly(last); len(d) == len(last) && (len(d) == 5 || len(d) == 9) {
		return d
	}
	return ""
}
