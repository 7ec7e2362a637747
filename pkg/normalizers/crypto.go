package normalizers

import (
	"regexp"
	"strings"

	"github.com/Ramsey-B/thistle/pkg/models"
)

// CryptoDetection describes the address family a value belongs to
type CryptoDetection struct {
	Currency      string
	AddressType   string
	Confidence    float64
	CaseSensitive bool
}

// CryptoDetector identifies the currency and address format of a crypto address
type CryptoDetector interface {
	Detect(value string) (CryptoDetection, bool)
}

type cryptoPattern struct {
	pattern   *regexp.Regexp
	detection CryptoDetection
	// lowercase the value before matching (bech32 is case-insensitive)
	fold bool
}

// PatternCryptoDetector recognizes address families by their encoding shape.
// Patterns are checked in order, so the loose ones come last.
type PatternCryptoDetector struct {
	patterns []cryptoPattern
}

const base58 = `[1-9A-HJ-NP-Za-km-z]`

// NewPatternCryptoDetector returns a detector for the common address families
func NewPatternCryptoDetector() *PatternCryptoDetector {
	return &PatternCryptoDetector{patterns: []cryptoPattern{
		{regexp.MustCompile(`^0x[0-9a-fA-F]{40}$`), CryptoDetection{"ETH", "evm", 0.95, true}, false},
		{regexp.MustCompile(`^(bc1|tb1)[02-9ac-hj-np-z]{11,71}$`), CryptoDetection{"BTC", "bech32", 0.95, false}, true},
		{regexp.MustCompile(`^ltc1[02-9ac-hj-np-z]{11,71}$`), CryptoDetection{"LTC", "bech32", 0.95, false}, true},
		{regexp.MustCompile(`^addr1[02-9ac-hj-np-z]{50,}$`), CryptoDetection{"ADA", "bech32", 0.9, false}, true},
		{regexp.MustCompile(`^[13]` + base58 + `{25,34}$`), CryptoDetection{"BTC", "base58", 0.9, true}, false},
		{regexp.MustCompile(`^[LM]` + base58 + `{26,33}$`), CryptoDetection{"LTC", "base58", 0.85, true}, false},
		{regexp.MustCompile(`^D[5-9A-HJ-NP-U]` + base58 + `{32}$`), CryptoDetection{"DOGE", "base58", 0.85, true}, false},
		{regexp.MustCompile(`^T` + base58 + `{33}$`), CryptoDetection{"TRX", "base58", 0.85, true}, false},
		{regexp.MustCompile(`^r` + base58 + `{24,34}$`), CryptoDetection{"XRP", "base58", 0.8, true}, false},
		{regexp.MustCompile(`^4[0-9AB]` + base58 + `{93}$`), CryptoDetection{"XMR", "base58", 0.9, true}, false},
		{regexp.MustCompile(`^` + base58 + `{32,44}$`), CryptoDetection{"SOL", "base58", 0.5, true}, false},
	}}
}

// Detect implements CryptoDetector
func (d *PatternCryptoDetector) Detect(value string) (CryptoDetection, bool) {
	for _, p := range d.patterns {
		v := value
		if p.fold {
			v = strings.ToLower(v)
		}
		if p.pattern.MatchString(v) {
			return p.detection, true
		}
	}
	return CryptoDetection{}, false
}

func (n *Normalizer) normalizeCrypto(raw string, _ models.IdentifierKind, res *models.NormalizationResult) {
	value := strings.TrimSpace(raw)
	lower := strings.ToLower(value)
	res.SearchForm = lower

	detection, ok := n.crypto.Detect(value)
	if !ok {
		// unknown families keep their case; many encodings are case-sensitive
		res.Normalized = value
		res.IsValid = false
		res.Confidence = models.ConfidenceLow
		res.Warnings = append(res.Warnings, "unrecognized crypto address format")
		return
	}

	res.IsValid = true
	res.Confidence = models.ConfidenceCertain
	if detection.Confidence < 0.7 {
		res.Confidence = models.ConfidenceMedium
	}
	res.Normalized = value
	if !detection.CaseSensitive {
		res.Normalized = lower
	}
	res.Components["currency"] = detection.Currency
	res.Components["address_type"] = detection.AddressType
	res.Components["detector_confidence"] = detection.Confidence
}
