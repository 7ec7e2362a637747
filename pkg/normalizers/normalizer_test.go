package normalizers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/thistle/pkg/models"
)

func TestNormalize_Email(t *testing.T) {
	n := New()

	res := n.Normalize(" John.Doe+news@Gmail.COM ", models.KindEmail, models.Hints{})

	assert.True(t, res.IsValid)
	assert.False(t, res.IsAmbiguous)
	assert.Equal(t, "john.doe+news@gmail.com", res.Normalized)
	assert.Equal(t, models.ConfidenceCertain, res.Confidence)
	assert.Contains(t, res.AlternativeForms, "john.doe@gmail.com")
	assert.Contains(t, res.AlternativeForms, "johndoe@gmail.com")
	assert.Equal(t, "news", res.Components["tag"])
}

func TestNormalize_EmailInvalid(t *testing.T) {
	res := New().Normalize("not-an-email", models.KindEmail, models.Hints{})

	assert.False(t, res.IsValid)
	assert.NotEmpty(t, res.Errors)
}

func TestNormalize_Phone(t *testing.T) {
	n := New()

	t.Run("NoHintIsAmbiguous", func(t *testing.T) {
		res := n.Normalize("555-123-4567", models.KindPhone, models.Hints{})

		assert.Equal(t, "5551234567", res.Normalized)
		assert.True(t, res.IsAmbiguous)
		assert.Equal(t, models.AmbiguityHigh, res.AmbiguityLevel)
		assert.True(t, res.NeedsReview)
		assert.Contains(t, res.HintsAvailable, models.HintCountry)
		assert.Contains(t, res.HintsAvailable, models.HintDefaultRegion)
	})

	t.Run("DefaultRegionResolves", func(t *testing.T) {
		res := n.Normalize("555-123-4567", models.KindPhone, models.Hints{DefaultRegion: "US"})

		assert.Equal(t, "+15551234567", res.Normalized)
		assert.False(t, res.IsAmbiguous)
		assert.False(t, res.NeedsReview)
		assert.Equal(t, models.ConfidenceHigh, res.Confidence)
		assert.Equal(t, []string{models.HintDefaultRegion}, res.HintsUsed)
	})

	t.Run("CountryHintWinsOverDefaultRegion", func(t *testing.T) {
		res := n.Normalize("020 7946 0958", models.KindPhone, models.Hints{CountryHint: "gb", DefaultRegion: "US"})

		assert.Equal(t, "+442079460958", res.Normalized)
		assert.Equal(t, []string{models.HintCountry}, res.HintsUsed)
	})

	t.Run("InternationalPrefix", func(t *testing.T) {
		res := n.Normalize("+1 (555) 123-4567", models.KindPhone, models.Hints{})

		assert.Equal(t, "+15551234567", res.Normalized)
		assert.False(t, res.IsAmbiguous)
		assert.Equal(t, "1", res.Components["country_code"])
	})

	t.Run("CallingCodeAlreadyPresent", func(t *testing.T) {
		res := n.Normalize("1-555-123-4567", models.KindPhone, models.Hints{CountryHint: "US"})

		assert.Equal(t, "+15551234567", res.Normalized)
	})

	t.Run("Extension", func(t *testing.T) {
		res := n.Normalize("555-123-4567 x89", models.KindPhone, models.Hints{CountryHint: "US"})

		assert.Equal(t, "+15551234567", res.Normalized)
		assert.Equal(t, "89", res.Components["extension"])
	})

	t.Run("UnknownHintRecordsError", func(t *testing.T) {
		res := n.Normalize("555-123-4567", models.KindPhone, models.Hints{CountryHint: "ZZ"})

		assert.NotEmpty(t, res.Errors)
		assert.True(t, res.IsAmbiguous)
		assert.Empty(t, res.HintsUsed)
	})

	t.Run("TooShort", func(t *testing.T) {
		res := n.Normalize("12345", models.KindPhone, models.Hints{})

		assert.False(t, res.IsValid)
	})
}

func TestNormalize_Date(t *testing.T) {
	n := New()

	t.Run("ISO", func(t *testing.T) {
		res := n.Normalize("2021-03-04", models.KindDate, models.Hints{})

		assert.Equal(t, "2021-03-04", res.Normalized)
		assert.False(t, res.IsAmbiguous)
		assert.Equal(t, models.ConfidenceCertain, res.Confidence)
	})

	t.Run("AmbiguousDayMonth", func(t *testing.T) {
		res := n.Normalize("03/04/2021", models.KindDate, models.Hints{})

		assert.True(t, res.IsValid)
		assert.Equal(t, models.AmbiguityHigh, res.AmbiguityLevel)
		assert.True(t, res.NeedsReview)
		assert.ElementsMatch(t, []string{"2021-03-04", "2021-04-03"}, res.AlternativeForms)
		assert.Equal(t, []string{models.HintDateOrder}, res.HintsAvailable)
	})

	tests := []struct {
		name  string
		raw   string
		order string
		want  string
	}{
		{"MDY", "03/04/2021", models.DateOrderMDY, "2021-03-04"},
		{"DMY", "03/04/2021", models.DateOrderDMY, "2021-04-03"},
		{"DMYDashes", "03-04-2021", models.DateOrderDMY, "2021-04-03"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := n.Normalize(tt.raw, models.KindDate, models.Hints{DateOrder: tt.order})

			assert.Equal(t, tt.want, res.Normalized)
			assert.False(t, res.IsAmbiguous)
			assert.Equal(t, models.ConfidenceHigh, res.Confidence)
			assert.Equal(t, []string{models.HintDateOrder}, res.HintsUsed)
		})
	}

	t.Run("OnlyOneOrderFits", func(t *testing.T) {
		res := n.Normalize("25/12/2021", models.KindDate, models.Hints{})

		assert.Equal(t, "2021-12-25", res.Normalized)
		assert.Equal(t, models.AmbiguityLow, res.AmbiguityLevel)
		assert.False(t, res.NeedsReview)
	})

	t.Run("SameDayAndMonth", func(t *testing.T) {
		res := n.Normalize("04/04/2021", models.KindDate, models.Hints{})

		assert.Equal(t, "2021-04-04", res.Normalized)
		assert.False(t, res.IsAmbiguous)
	})

	t.Run("Textual", func(t *testing.T) {
		res := n.Normalize("March 4, 2021", models.KindDate, models.Hints{})

		assert.Equal(t, "2021-03-04", res.Normalized)
		assert.False(t, res.IsAmbiguous)
	})

	t.Run("NotACalendarDate", func(t *testing.T) {
		res := n.Normalize("31/02/2021", models.KindDate, models.Hints{})

		assert.False(t, res.IsValid)
		assert.NotEmpty(t, res.Errors)
	})

	yearFirst := []struct {
		name         string
		raw          string
		order        string
		wantNorm     string
		wantAmbig    bool
		wantWarning  bool
		wantHintUsed bool
	}{
		{"YMDOnYearFirst", "2021/03/04", models.DateOrderYMD, "2021-03-04", false, false, true},
		{"YMDOnYearLast", "03/04/2021", models.DateOrderYMD, "03/04/2021", true, true, false},
		{"YMDLowercase", "2021.03.04", "ymd", "2021-03-04", false, false, true},
	}
	for _, tt := range yearFirst {
		t.Run(tt.name, func(t *testing.T) {
			res := n.Normalize(tt.raw, models.KindDate, models.Hints{DateOrder: tt.order})

			assert.True(t, res.IsValid)
			assert.Empty(t, res.Errors)
			assert.Equal(t, tt.wantNorm, res.Normalized)
			assert.Equal(t, tt.wantAmbig, res.IsAmbiguous)
			assert.Equal(t, tt.wantWarning, len(res.Warnings) > 0)
			if tt.wantHintUsed {
				assert.Equal(t, []string{models.HintDateOrder}, res.HintsUsed)
			} else {
				assert.Empty(t, res.HintsUsed)
			}
		})
	}

	t.Run("UnknownOrderHint", func(t *testing.T) {
		res := n.Normalize("03/04/2021", models.KindDate, models.Hints{DateOrder: "XYZ"})

		assert.NotEmpty(t, res.Errors)
		assert.True(t, res.IsAmbiguous)
	})
}

func TestNormalize_Currency(t *testing.T) {
	n := New()

	t.Run("AmbiguousSymbol", func(t *testing.T) {
		res := n.Normalize("$1,234.56", models.KindCurrency, models.Hints{})

		assert.Equal(t, "1234.56", res.Normalized)
		assert.Equal(t, models.AmbiguityHigh, res.AmbiguityLevel)
		assert.Contains(t, res.AlternativeForms, "1234.56 USD")
		assert.Contains(t, res.AlternativeForms, "1234.56 CAD")
		assert.Equal(t, []string{models.HintCurrency}, res.HintsAvailable)
	})

	t.Run("HintResolves", func(t *testing.T) {
		res := n.Normalize("$1,234.56", models.KindCurrency, models.Hints{CurrencyHint: "usd"})

		assert.Equal(t, "1234.56 USD", res.Normalized)
		assert.False(t, res.IsAmbiguous)
		assert.Equal(t, models.ConfidenceHigh, res.Confidence)
		assert.Equal(t, []string{models.HintCurrency}, res.HintsUsed)
	})

	t.Run("UniqueSymbolWithCommaDecimal", func(t *testing.T) {
		res := n.Normalize("€1.234,56", models.KindCurrency, models.Hints{})

		assert.Equal(t, "1234.56 EUR", res.Normalized)
		assert.False(t, res.IsAmbiguous)
	})

	t.Run("InlineCode", func(t *testing.T) {
		res := n.Normalize("100 JPY", models.KindCurrency, models.Hints{})

		assert.Equal(t, "100 JPY", res.Normalized)
		assert.Equal(t, models.ConfidenceCertain, res.Confidence)
	})

	t.Run("UnknownHint", func(t *testing.T) {
		res := n.Normalize("$5", models.KindCurrency, models.Hints{CurrencyHint: "XXX"})

		assert.NotEmpty(t, res.Errors)
		assert.True(t, res.IsAmbiguous)
	})

	symbols := []struct {
		name       string
		raw        string
		wantSymbol string
	}{
		{"KronaAfterAmount", "100 kr", "kr"},
		{"FrancWithDot", "Fr. 20", "Fr"},
		{"KronaInsideWord", "100 skrill", ""},
		{"FrancInsideWord", "Friday 100", ""},
	}
	for _, tt := range symbols {
		t.Run(tt.name, func(t *testing.T) {
			res := n.Normalize(tt.raw, models.KindCurrency, models.Hints{})

			require.True(t, res.IsValid)
			if tt.wantSymbol == "" {
				assert.NotContains(t, res.Components, "symbol")
				assert.Equal(t, models.AmbiguityCritical, res.AmbiguityLevel)
				return
			}
			assert.Equal(t, tt.wantSymbol, res.Components["symbol"])
		})
	}

	t.Run("NoAmount", func(t *testing.T) {
		res := n.Normalize("USD", models.KindCurrency, models.Hints{})

		assert.False(t, res.IsValid)
	})
}

func TestNormalize_Crypto(t *testing.T) {
	n := New()

	t.Run("EVMKeepsChecksumCase", func(t *testing.T) {
		addr := "0x52908400098527886E0F7030069857D2E4169EE7"
		res := n.Normalize(addr, models.KindCryptoAddress, models.Hints{})

		assert.True(t, res.IsValid)
		assert.Equal(t, addr, res.Normalized)
		assert.Equal(t, "ETH", res.Components["currency"])
	})

	t.Run("Bech32IsLowercased", func(t *testing.T) {
		res := n.Normalize("BC1QAR0SRRR7XFKVY5L643LYDNW9RE59GTZZWF5MDQ", models.KindCryptoAddress, models.Hints{})

		assert.True(t, res.IsValid)
		assert.Equal(t, "bc1qar0srrr7xfkvy5l643lydnw9re59gtzzwf5mdq", res.Normalized)
		assert.Equal(t, "BTC", res.Components["currency"])
	})

	t.Run("CustomDetector", func(t *testing.T) {
		custom := New(WithCryptoDetector(stubDetector{}))
		res := custom.Normalize("ANYTHING", models.KindCryptoAddress, models.Hints{})

		assert.Equal(t, "anything", res.Normalized)
		assert.Equal(t, "TEST", res.Components["currency"])
	})

	t.Run("Unrecognized", func(t *testing.T) {
		res := n.Normalize("not a wallet", models.KindCryptoAddress, models.Hints{})

		assert.False(t, res.IsValid)
		assert.NotEmpty(t, res.Warnings)
	})
}

type stubDetector struct{}

func (stubDetector) Detect(string) (CryptoDetection, bool) {
	return CryptoDetection{Currency: "TEST", AddressType: "stub", Confidence: 1}, true
}

func TestNormalize_Simple(t *testing.T) {
	n := New()

	tests := []struct {
		name   string
		raw    string
		kind   models.IdentifierKind
		want   string
		search string
	}{
		{"Name", "Dr. José García Jr.", models.KindName, "josé garcía", "jose garcia"},
		{"Organization", "Acme, Inc.", models.KindOrganization, "acme inc", "acme inc"},
		{"Address", "123 Main Street, Apt 4", models.KindAddress, "123 main st apt 4", "123 main st apt 4"},
		{"URL", "HTTPS://www.Example.com/Path/", models.KindURL, "example.com/Path", "example.com/path"},
		{"Domain", "WWW.Example.COM.", models.KindDomain, "example.com", "example.com"},
		{"IPv4Mapped", "::ffff:192.168.1.1", models.KindIP, "192.168.1.1", "192.168.1.1"},
		{"MAC", "AA-BB-CC-DD-EE-FF", models.KindMAC, "aa:bb:cc:dd:ee:ff", "aabbccddeeff"},
		{"Username", "@JohnDoe", models.KindUsername, "johndoe", "johndoe"},
		{"UsernameRepeatedAt", "@@john", models.KindUsername, "john", "john"},
		{"SHA256", "E3B0C44298FC1C149AFBF4C8996FB92427AE41E4649B934CA495991B7852B855", models.KindFileHash,
			"e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855",
			"e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"},
		{"Other", "  Some   Value ", models.KindOther, "Some Value", "some value"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := n.Normalize(tt.raw, tt.kind, models.Hints{})

			assert.True(t, res.IsValid)
			assert.Equal(t, tt.want, res.Normalized)
			assert.Equal(t, tt.search, res.SearchForm)
		})
	}
}

func TestNormalize_ResolvesKindAlias(t *testing.T) {
	res := New().Normalize("A@B.COM", "e-mail", models.Hints{})

	assert.Equal(t, models.KindEmail, res.Kind)
	assert.Equal(t, "a@b.com", res.Normalized)
}

func TestNormalize_Empty(t *testing.T) {
	res := New().Normalize("   ", models.KindEmail, models.Hints{})

	assert.False(t, res.IsValid)
	assert.NotEmpty(t, res.Errors)
}

func TestNormalize_Idempotent(t *testing.T) {
	n := New()

	tests := []struct {
		raw   string
		kind  models.IdentifierKind
		hints models.Hints
	}{
		{"John.Doe+x@Gmail.com", models.KindEmail, models.Hints{}},
		{"555-123-4567", models.KindPhone, models.Hints{}},
		{"555-123-4567", models.KindPhone, models.Hints{DefaultRegion: "US"}},
		{"020 7946 0958", models.KindPhone, models.Hints{CountryHint: "GB"}},
		{"03/04/21", models.KindDate, models.Hints{}},
		{"03/04/2021", models.KindDate, models.Hints{DateOrder: models.DateOrderDMY}},
		{"2021/03/04", models.KindDate, models.Hints{DateOrder: models.DateOrderYMD}},
		{"@@john", models.KindUsername, models.Hints{}},
		{"@@John_Doe", models.KindSocialHandle, models.Hints{}},
		{"March 2021", models.KindDate, models.Hints{}},
		{"2021-03-04T10:00:00+02:00", models.KindDate, models.Hints{}},
		{"$5", models.KindCurrency, models.Hints{}},
		{"€1.234,56", models.KindCurrency, models.Hints{}},
		{"Dr. José García Jr.", models.KindName, models.Hints{}},
		{"123 Main Street, Apt 4", models.KindAddress, models.Hints{}},
		{"HTTPS://www.Example.com/Path/", models.KindURL, models.Hints{}},
		{"AA-BB-CC-DD-EE-FF", models.KindMAC, models.Hints{}},
		{"BC1QAR0SRRR7XFKVY5L643LYDNW9RE59GTZZWF5MDQ", models.KindCryptoAddress, models.Hints{}},
	}

	for _, tt := range tests {
		t.Run(string(tt.kind)+"/"+tt.raw, func(t *testing.T) {
			first := n.Normalize(tt.raw, tt.kind, tt.hints)
			require.NotEmpty(t, first.Normalized)

			second := n.Normalize(first.Normalized, tt.kind, tt.hints)
			assert.Equal(t, first.Normalized, second.Normalized)
		})
	}
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()

	assert.Equal(t, "john smith", r.ApplyChain("  John  SMITH Jr. ", "trim", "nname"))
	assert.Equal(t, "5551234567", r.Apply("(555) 123-4567", "digits_only"))
	assert.Equal(t, "unchanged", r.Apply("unchanged", "missing"))

	extended := r.With("reverse", func(s string) string {
		out := []rune(s)
		for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
			out[i], out[j] = out[j], out[i]
		}
		return string(out)
	})
	assert.Equal(t, "cba", extended.Apply("abc", "reverse"))
	_, ok := r.Get("reverse")
	assert.False(t, ok)
}
