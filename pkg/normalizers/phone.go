package normalizers

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/Ramsey-B/thistle/pkg/models"
)

// dialingPlan describes how national numbers are written in one country
type dialingPlan struct {
	CallingCode string
	TrunkPrefix string
	MinLen      int
	MaxLen      int
}

var dialingPlans = map[string]dialingPlan{
	"US": {"1", "", 10, 10},
	"CA": {"1", "", 10, 10},
	"GB": {"44", "0", 9, 10},
	"IE": {"353", "0", 7, 9},
	"DE": {"49", "0", 6, 13},
	"FR": {"33", "0", 9, 9},
	"ES": {"34", "", 9, 9},
	"IT": {"39", "", 6, 11},
	"NL": {"31", "0", 9, 9},
	"BE": {"32", "0", 8, 9},
	"CH": {"41", "0", 9, 9},
	"AT": {"43", "0", 4, 13},
	"SE": {"46", "0", 7, 9},
	"NO": {"47", "", 8, 8},
	"DK": {"45", "", 8, 8},
	"FI": {"358", "0", 5, 12},
	"PL": {"48", "", 9, 9},
	"PT": {"351", "", 9, 9},
	"RU": {"7", "8", 10, 10},
	"UA": {"380", "0", 9, 9},
	"TR": {"90", "0", 10, 10},
	"IL": {"972", "0", 8, 9},
	"AE": {"971", "0", 8, 9},
	"SA": {"966", "0", 9, 9},
	"IN": {"91", "0", 10, 10},
	"PK": {"92", "0", 9, 10},
	"CN": {"86", "0", 10, 11},
	"JP": {"81", "0", 9, 10},
	"KR": {"82", "0", 8, 10},
	"AU": {"61", "0", 9, 9},
	"NZ": {"64", "0", 8, 10},
	"BR": {"55", "0", 10, 11},
	"MX": {"52", "", 10, 10},
	"AR": {"54", "0", 10, 10},
	"ZA": {"27", "0", 9, 9},
	"NG": {"234", "0", 8, 10},
	"EG": {"20", "0", 9, 10},
	"SG": {"65", "", 8, 8},
	"HK": {"852", "", 8, 8},
	"PH": {"63", "0", 10, 10},
	"ID": {"62", "0", 9, 12},
	"TH": {"66", "0", 8, 9},
	"VN": {"84", "0", 9, 10},
	"MY": {"60", "0", 9, 10},
}

// calling code -> regions sharing it, built from dialingPlans
var callingCodes = func() map[string][]string {
	out := make(map[string][]string)
	for region, plan := range dialingPlans {
		out[plan.CallingCode] = append(out[plan.CallingCode], region)
	}
	for _, regions := range out {
		sort.Strings(regions)
	}
	return out
}()

var phoneExtension = regexp.MustCompile(`(?i)\s*(?:ext\.?|extension|x|#)\s*(\d{1,6})\s*$`)

const (
	minPhoneDigits = 7
	maxPhoneDigits = 15
)

func normalizePhone(raw string, _ models.IdentifierKind, res *models.NormalizationResult, hints models.Hints) {
	value := strings.TrimSpace(raw)
	if m := phoneExtension.FindStringSubmatchIndex(value); m != nil {
		res.Components["extension"] = value[m[2]:m[3]]
		value = strings.TrimSpace(value[:m[0]])
	}

	international := strings.HasPrefix(value, "+")
	digits := DigitsOnly(value)
	res.IsValid = len(digits) >= minPhoneDigits && len(digits) <= maxPhoneDigits
	if !res.IsValid {
		res.Errors = append(res.Errors, fmt.Sprintf("phone numbers have %d to %d digits, got %d", minPhoneDigits, maxPhoneDigits, len(digits)))
	}

	if international {
		res.Normalized = "+" + digits
		res.SearchForm = digits
		res.Confidence = models.ConfidenceHigh
		if !res.IsValid {
			res.Confidence = models.ConfidenceLow
		}
		if cc, regions := lookupCallingCode(digits); cc != "" {
			res.Components["country_code"] = cc
			res.Components["national_number"] = digits[len(cc):]
			res.Components["regions"] = regions
		} else {
			res.Warnings = append(res.Warnings, "unrecognized country calling code")
		}
		return
	}

	region, hintName := phoneRegionHint(hints)
	if region == "" {
		// without a country the same digits can belong to many numbering plans
		res.Normalized = digits
		res.SearchForm = digits
		res.Confidence = models.ConfidenceLow
		res.HintsAvailable = []string{models.HintCountry, models.HintDefaultRegion}
		res.Components["national_number"] = digits
		res.SetAmbiguity(models.AmbiguityHigh)
		return
	}

	plan, ok := dialingPlans[region]
	if !ok {
		res.Normalized = digits
		res.SearchForm = digits
		res.Confidence = models.ConfidenceLow
		res.HintsAvailable = []string{models.HintCountry, models.HintDefaultRegion}
		res.Errors = append(res.Errors, fmt.Sprintf("unrecognized %s %q", hintName, region))
		res.SetAmbiguity(models.AmbiguityHigh)
		return
	}

	national := nationalNumber(digits, plan)
	res.Normalized = "+" + plan.CallingCode + national
	res.SearchForm = plan.CallingCode + national
	res.HintsUsed = append(res.HintsUsed, hintName)
	res.Components["country_code"] = plan.CallingCode
	res.Components["national_number"] = national
	res.Components["region"] = region
	res.Confidence = models.ConfidenceHigh
	res.SetAmbiguity(models.AmbiguityNone)

	if len(national) < plan.MinLen || len(national) > plan.MaxLen {
		res.Confidence = models.ConfidenceMedium
		res.Warnings = append(res.Warnings, fmt.Sprintf("unexpected national number length %d for %s", len(national), region))
		res.SetAmbiguity(models.AmbiguityLow)
	}
}

// phoneRegionHint returns the region to apply; country_hint wins over default_region
func phoneRegionHint(hints models.Hints) (string, string) {
	if h := strings.ToUpper(strings.TrimSpace(hints.CountryHint)); h != "" {
		return h, models.HintCountry
	}
	if h := strings.ToUpper(strings.TrimSpace(hints.DefaultRegion)); h != "" {
		return h, models.HintDefaultRegion
	}
	return "", ""
}

// nationalNumber strips a trunk prefix or an already present calling code
func nationalNumber(digits string, plan dialingPlan) string {
	if plan.TrunkPrefix != "" && strings.HasPrefix(digits, plan.TrunkPrefix) {
		rest := digits[len(plan.TrunkPrefix):]
		if len(rest) >= plan.MinLen && len(rest) <= plan.MaxLen {
			return rest
		}
	}
	if len(digits) > plan.MaxLen && strings.HasPrefix(digits, plan.CallingCode) {
		rest := digits[len(plan.CallingCode):]
		if len(rest) >= plan.MinLen && len(rest) <= plan.MaxLen {
			return rest
		}
	}
	return digits
}

// lookupCallingCode finds the longest known calling code prefixing digits
func lookupCallingCode(digits string) (string, []string) {
	for n := 3; n >= 1; n-- {
		if len(digits) <= n {
			continue
		}
		if regions, ok := callingCodes[digits[:n]]; ok {
			return digits[:n], regions
		}
	}
	return "", nil
}
