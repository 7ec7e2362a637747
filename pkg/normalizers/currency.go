package normalizers

import (
	"fmt"
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/Ramsey-B/thistle/pkg/models"
)

// ISO 4217 codes accepted as hints or inline codes, with their minor unit digits
var currencyDecimals = map[string]int{
	"USD": 2, "EUR": 2, "GBP": 2, "JPY": 0, "CNY": 2, "CHF": 2, "CAD": 2,
	"AUD": 2, "NZD": 2, "HKD": 2, "SGD": 2, "SEK": 2, "NOK": 2, "DKK": 2,
	"ISK": 0, "PLN": 2, "CZK": 2, "HUF": 2, "RUB": 2, "UAH": 2, "TRY": 2,
	"INR": 2, "PKR": 2, "KRW": 0, "BRL": 2, "MXN": 2, "ARS": 2, "CLP": 0,
	"COP": 2, "ZAR": 2, "NGN": 2, "EGP": 2, "ILS": 2, "AED": 2, "SAR": 2,
	"THB": 2, "VND": 0, "IDR": 2, "MYR": 2, "PHP": 2, "BTC": 8, "ETH": 8,
}

// symbols that identify exactly one currency
var currencySymbols = map[string]string{
	"US$": "USD", "C$": "CAD", "CA$": "CAD", "A$": "AUD", "AU$": "AUD",
	"NZ$": "NZD", "HK$": "HKD", "S$": "SGD", "R$": "BRL", "MX$": "MXN",
	"CN¥": "CNY", "RMB": "CNY", "JP¥": "JPY", "€": "EUR", "£": "GBP",
	"₹": "INR", "₽": "RUB", "₩": "KRW", "₺": "TRY", "₴": "UAH", "₪": "ILS",
	"₦": "NGN", "฿": "THB", "₫": "VND", "₱": "PHP", "zł": "PLN", "₿": "BTC",
}

// symbols shared by several currencies
var ambiguousCurrencySymbols = map[string][]string{
	"$":  {"USD", "CAD", "AUD", "NZD", "MXN", "HKD", "SGD", "ARS"},
	"¥":  {"JPY", "CNY"},
	"kr": {"SEK", "NOK", "DKK", "ISK"},
	"Fr": {"CHF"},
}

var (
	currencyCodePattern = regexp.MustCompile(`\b([A-Za-z]{3})\b`)
	amountPattern       = regexp.MustCompile(`-?\d[\d.,' ]*\d|-?\d`)
)

// longest symbols first so "US$" wins over "$"
var symbolOrder = func() []string {
	var out []string
	for s := range currencySymbols {
		out = append(out, s)
	}
	for s := range ambiguousCurrencySymbols {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool {
		if len(out[i]) != len(out[j]) {
			return len(out[i]) > len(out[j])
		}
		return out[i] < out[j]
	})
	return out
}()

func normalizeCurrency(raw string, _ models.IdentifierKind, res *models.NormalizationResult, hints models.Hints) {
	value := CollapseWhitespace(raw)
	res.Normalized = value
	res.SearchForm = strings.ToLower(value)

	amountText := amountPattern.FindString(value)
	if amountText == "" {
		res.Confidence = models.ConfidenceUnknown
		res.Errors = append(res.Errors, "no amount found")
		return
	}
	amount, amountAmbiguous, err := parseAmount(amountText)
	if err != nil {
		res.Confidence = models.ConfidenceUnknown
		res.Errors = append(res.Errors, err.Error())
		return
	}
	res.IsValid = true
	res.Components["amount"] = amount

	rest := strings.Replace(value, amountText, " ", 1)
	code, candidates, symbol := detectCurrency(rest)
	if symbol != "" {
		res.Components["symbol"] = symbol
	}

	hint := strings.ToUpper(strings.TrimSpace(hints.CurrencyHint))
	if hint != "" {
		if _, ok := currencyDecimals[hint]; !ok {
			res.Errors = append(res.Errors, fmt.Sprintf("unrecognized %s %q", models.HintCurrency, hints.CurrencyHint))
			hint = ""
		}
	}

	switch {
	case code != "":
		if hint != "" && hint != code {
			res.Warnings = append(res.Warnings, fmt.Sprintf("%s %s ignored, value names %s", models.HintCurrency, hint, code))
		}
		res.Confidence = models.ConfidenceCertain
	case hint != "":
		if len(candidates) > 0 && !containsString(candidates, hint) {
			res.Warnings = append(res.Warnings, fmt.Sprintf("symbol %s does not usually denote %s", symbol, hint))
		}
		code = hint
		res.HintsUsed = append(res.HintsUsed, models.HintCurrency)
		res.Confidence = models.ConfidenceHigh
	case len(candidates) == 1:
		code = candidates[0]
		res.Confidence = models.ConfidenceHigh
	default:
		res.Normalized = formatAmount(amount, 2)
		res.SearchForm = res.Normalized
		for _, c := range candidates {
			res.AlternativeForms = append(res.AlternativeForms, formatAmount(amount, currencyDecimals[c])+" "+c)
		}
		res.HintsAvailable = []string{models.HintCurrency}
		res.Confidence = models.ConfidenceLow
		if len(candidates) > 0 {
			res.Components["candidates"] = candidates
			res.SetAmbiguity(models.AmbiguityHigh)
		} else {
			res.SetAmbiguity(models.AmbiguityCritical)
		}
		return
	}

	res.Components["currency"] = code
	res.Normalized = formatAmount(amount, currencyDecimals[code]) + " " + code
	res.SearchForm = strings.ToLower(res.Normalized)
	if amountAmbiguous {
		res.Warnings = append(res.Warnings, fmt.Sprintf("%q read with ',' as thousands separator", amountText))
		res.Confidence = models.ConfidenceMedium
		res.SetAmbiguity(models.AmbiguityMedium)
	}
}

// detectCurrency finds an ISO code or symbol in the non-amount part of the value
func detectCurrency(s string) (code string, candidates []string, symbol string) {
	for _, m := range currencyCodePattern.FindAllStringSubmatch(s, -1) {
		c := strings.ToUpper(m[1])
		if _, ok := currencyDecimals[c]; ok {
			return c, nil, ""
		}
	}
	for _, sym := range symbolOrder {
		if !containsSymbol(s, sym) {
			continue
		}
		if c, ok := currencySymbols[sym]; ok {
			return c, nil, sym
		}
		return "", ambiguousCurrencySymbols[sym], sym
	}
	return "", nil, ""
}

// containsSymbol finds sym in s. A symbol that starts or ends with a letter
// must not touch another letter on that side, so "kr" is not found in "skrill".
func containsSymbol(s, sym string) bool {
	first, _ := utf8.DecodeRuneInString(sym)
	last, _ := utf8.DecodeLastRuneInString(sym)
	for offset := 0; offset < len(s); {
		i := strings.Index(s[offset:], sym)
		if i < 0 {
			return false
		}
		start := offset + i
		end := start + len(sym)
		before, _ := utf8.DecodeLastRuneInString(s[:start])
		after, _ := utf8.DecodeRuneInString(s[end:])
		leftOK := !unicode.IsLetter(first) || start == 0 || !unicode.IsLetter(before)
		rightOK := !unicode.IsLetter(last) || end == len(s) || !unicode.IsLetter(after)
		if leftOK && rightOK {
			return true
		}
		offset = start + len(sym)
	}
	return false
}

// parseAmount reads 1,234.56 and 1.234,56 style amounts. The second return is
// true when a lone separator could be either a decimal or a thousands mark.
func parseAmount(s string) (float64, bool, error) {
	s = strings.NewReplacer(" ", "", "'", "").Replace(s)
	lastDot := strings.LastIndex(s, ".")
	lastComma := strings.LastIndex(s, ",")
	ambiguous := false

	switch {
	case lastDot >= 0 && lastComma >= 0:
		if lastComma > lastDot {
			s = strings.ReplaceAll(s, ".", "")
			s = strings.Replace(s, ",", ".", 1)
		} else {
			s = strings.ReplaceAll(s, ",", "")
		}
	case lastComma >= 0:
		groups := strings.Split(s, ",")
		if len(groups) == 2 && len(groups[1]) != 3 {
			s = groups[0] + "." + groups[1]
		} else {
			ambiguous = len(groups) == 2
			s = strings.Join(groups, "")
		}
	case strings.Count(s, ".") > 1:
		s = strings.ReplaceAll(s, ".", "")
	}

	amount, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsInf(amount, 0) || math.IsNaN(amount) {
		return 0, false, fmt.Errorf("invalid amount %q", s)
	}
	return amount, ambiguous, nil
}

func formatAmount(amount float64, decimals int) string {
	return strconv.FormatFloat(amount, 'f', decimals, 64)
}
