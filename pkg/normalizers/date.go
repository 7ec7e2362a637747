package normalizers

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/Ramsey-B/thistle/pkg/models"
)

const isoDate = "2006-01-02"

var (
	isoDatePattern     = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	isoMonthPattern    = regexp.MustCompile(`^\d{4}-\d{2}$`)
	isoDateTimePattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}[T ]\d{2}:\d{2}`)
	yearFirstPattern   = regexp.MustCompile(`^(\d{4})[/.](\d{1,2})[/.](\d{1,2})$`)
	numericDatePattern = regexp.MustCompile(`^(\d{1,2})[/.\-](\d{1,2})[/.\-](\d{2}|\d{4})$`)
)

var dateTimeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
}

var textualDateLayouts = []string{
	"January 2, 2006",
	"January 2 2006",
	"Jan 2, 2006",
	"Jan 2 2006",
	"2 January 2006",
	"2 Jan 2006",
	"02 Jan 2006",
	"Monday, January 2, 2006",
	"Mon, 02 Jan 2006",
}

var monthDateLayouts = []string{
	"January 2006",
	"Jan 2006",
}

func normalizeDate(raw string, _ models.IdentifierKind, res *models.NormalizationResult, hints models.Hints) {
	value := CollapseWhitespace(raw)
	res.Normalized = value
	res.SearchForm = strings.ToLower(value)

	switch {
	case isoDatePattern.MatchString(value):
		t, err := time.Parse(isoDate, value)
		if err != nil {
			invalidDate(res, err.Error())
			return
		}
		setDate(res, t, models.ConfidenceCertain)
		return
	case isoMonthPattern.MatchString(value):
		t, err := time.Parse("2006-01", value)
		if err != nil {
			invalidDate(res, err.Error())
			return
		}
		setMonth(res, t)
		return
	case isoDateTimePattern.MatchString(value):
		for _, layout := range dateTimeLayouts {
			if t, err := time.Parse(layout, value); err == nil {
				setDate(res, t, models.ConfidenceCertain)
				res.Normalized = t.UTC().Format(time.RFC3339)
				res.SearchForm = res.Normalized
				res.Components["time"] = true
				return
			}
		}
		invalidDate(res, "unrecognized ISO 8601 timestamp")
		return
	}

	if m := yearFirstPattern.FindStringSubmatch(value); m != nil {
		y, mo, d := atoi(m[1]), atoi(m[2]), atoi(m[3])
		t, ok := makeDate(y, mo, d)
		if !ok {
			invalidDate(res, fmt.Sprintf("%s is not a calendar date", value))
			return
		}
		setDate(res, t, models.ConfidenceHigh)
		if dateOrderHint(hints) == models.DateOrderYMD {
			res.HintsUsed = append(res.HintsUsed, models.HintDateOrder)
		}
		return
	}

	if m := numericDatePattern.FindStringSubmatch(value); m != nil {
		normalizeNumericDate(m[1], m[2], m[3], res, hints)
		return
	}

	// month names parse case-insensitively
	for _, layout := range textualDateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			setDate(res, t, models.ConfidenceHigh)
			return
		}
	}
	for _, layout := range monthDateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			setMonth(res, t)
			return
		}
	}

	invalidDate(res, "unrecognized date format")
}

// normalizeNumericDate handles a/b/year forms where day and month order is unknown
func normalizeNumericDate(first, second, yearStr string, res *models.NormalizationResult, hints models.Hints) {
	a, b := atoi(first), atoi(second)
	year := atoi(yearStr)
	if len(yearStr) == 2 {
		year = expandTwoDigitYear(year)
		res.Warnings = append(res.Warnings, fmt.Sprintf("two-digit year %s expanded to %d", yearStr, year))
	}

	mdy, mdyOK := makeDate(year, a, b)
	dmy, dmyOK := makeDate(year, b, a)

	order := dateOrderHint(hints)
	switch order {
	case "":
	case models.DateOrderYMD:
		// the year is last here, so the hint cannot pick day and month
		res.Warnings = append(res.Warnings, fmt.Sprintf("%s %s ignored, value does not start with a year", models.HintDateOrder, order))
	case models.DateOrderMDY, models.DateOrderDMY:
		t, ok := mdy, mdyOK
		if order == models.DateOrderDMY {
			t, ok = dmy, dmyOK
		}
		if !ok {
			invalidDate(res, fmt.Sprintf("value is not a calendar date in %s order", order))
			return
		}
		setDate(res, t, models.ConfidenceHigh)
		res.HintsUsed = append(res.HintsUsed, models.HintDateOrder)
		if len(yearStr) == 2 {
			res.SetAmbiguity(models.AmbiguityLow)
		}
		return
	default:
		res.Errors = append(res.Errors, fmt.Sprintf("unrecognized %s %q", models.HintDateOrder, hints.DateOrder))
	}

	switch {
	case !mdyOK && !dmyOK:
		invalidDate(res, "value is not a calendar date")
	case mdyOK && dmyOK && mdy.Equal(dmy):
		setDate(res, mdy, models.ConfidenceHigh)
	case mdyOK && !dmyOK:
		setDate(res, mdy, models.ConfidenceMedium)
		res.Components["inferred_order"] = models.DateOrderMDY
		res.SetAmbiguity(models.AmbiguityLow)
	case dmyOK && !mdyOK:
		setDate(res, dmy, models.ConfidenceMedium)
		res.Components["inferred_order"] = models.DateOrderDMY
		res.SetAmbiguity(models.AmbiguityLow)
	default:
		// 03/04/2021 is March 4th or April 3rd; keep both and ask for date_order
		res.IsValid = true
		res.Normalized = fmt.Sprintf("%02d/%02d/%04d", a, b, year)
		res.SearchForm = res.Normalized
		res.AlternativeForms = []string{mdy.Format(isoDate), dmy.Format(isoDate)}
		res.HintsAvailable = []string{models.HintDateOrder}
		res.Confidence = models.ConfidenceLow
		res.SetAmbiguity(models.AmbiguityHigh)
	}
}

func dateOrderHint(hints models.Hints) string {
	return strings.ToUpper(strings.TrimSpace(hints.DateOrder))
}

func setDate(res *models.NormalizationResult, t time.Time, confidence models.NormalizationConfidence) {
	res.IsValid = true
	res.Normalized = t.Format(isoDate)
	res.SearchForm = res.Normalized
	res.Confidence = confidence
	res.Components["year"] = t.Year()
	res.Components["month"] = int(t.Month())
	res.Components["day"] = t.Day()
}

func setMonth(res *models.NormalizationResult, t time.Time) {
	res.IsValid = true
	res.Normalized = t.Format("2006-01")
	res.SearchForm = res.Normalized
	res.Confidence = models.ConfidenceHigh
	res.Components["year"] = t.Year()
	res.Components["month"] = int(t.Month())
	res.Components["precision"] = "month"
}

func invalidDate(res *models.NormalizationResult, msg string) {
	res.IsValid = false
	res.Confidence = models.ConfidenceUnknown
	res.Errors = append(res.Errors, msg)
}

// makeDate builds a date and rejects values time.Date would roll over
func makeDate(year, month, day int) (time.Time, bool) {
	if month < 1 || month > 12 || day < 1 || day > 31 {
		return time.Time{}, false
	}
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	if t.Month() != time.Month(month) || t.Day() != day {
		return time.Time{}, false
	}
	return t, true
}

// expandTwoDigitYear pivots at 50: 49 -> 2049, 50 -> 1950
func expandTwoDigitYear(y int) int {
	if y < 50 {
		return 2000 + y
	}
	return 1900 + y
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}
