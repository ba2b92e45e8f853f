package parsers

import (
	"encoding/json"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// BareMillionsBelow is the bound under which a number without a magnitude
// marker is read as millions ("2" means 2 000 000).
const BareMillionsBelow = 100

var (
	budgetNumberRe = regexp.MustCompile(`\.?\d[\d.,]*`)
	millionMarkers = []string{"млн", "миллион", "million", "mln", "mio"}
	thousandMarker = []string{"тыс", "thousand"}
)

// NormalizeBudget converts a numeric or colloquial budget into whole currency units.
// ok is false when no amount can be read.
func NormalizeBudget(v any) (amount int64, ok bool) {
	switch n := v.(type) {
	case nil:
		return 0, false
	case int:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case float32:
		return truncFloat(float64(n))
	case float64:
		return truncFloat(n)
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return i, true
		}
		if f, err := n.Float64(); err == nil {
			return truncFloat(f)
		}
		return 0, false
	case string:
		return parseBudgetText(n)
	}
	return 0, false
}

func truncFloat(f float64) (int64, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) || math.Abs(f) > math.MaxInt64/2 {
		return 0, false
	}
	return int64(f), true
}

func parseBudgetText(s string) (int64, bool) {
	s = strings.ToLower(s)
	s = strings.Join(strings.Fields(s), "")

	loc := budgetNumberRe.FindStringIndex(s)
	if loc == nil {
		return 0, false
	}
	raw := normalizeSeparators(strings.TrimRight(s[loc[0]:loc[1]], ".,"))
	num, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, false
	}
	rest := s[loc[1]:]

	var mult float64 = 1
	switch {
	case containsAny(s, millionMarkers), hasSuffixMarker(rest, "kk", "кк"):
		mult = 1_000_000
	case containsAny(s, thousandMarker), hasSuffixMarker(rest, "k", "к"):
		mult = 1_000
	case num < BareMillionsBelow:
		mult = 1_000_000
	}
	if mult == 1 {
		return int64(math.Trunc(num)), true
	}
	return int64(math.Round(num * mult)), true
}

// normalizeSeparators rewrites a number to use "." as the only decimal point.
// With both "." and "," present the last one is decimal and the rest group
// digits (1.200.000,50). A separator repeated on its own groups digits
// (2.000.000, 1,500,000); a single one is decimal (2,5).
func normalizeSeparators(raw string) string {
	dots, commas := strings.Count(raw, "."), strings.Count(raw, ",")
	switch {
	case dots > 0 && commas > 0:
		last := strings.LastIndexAny(raw, ".,")
		intPart := strings.NewReplacer(".", "", ",", "").Replace(raw[:last])
		return intPart + "." + raw[last+1:]
	case dots > 1:
		return strings.ReplaceAll(raw, ".", "")
	case commas > 1:
		return strings.ReplaceAll(raw, ",", "")
	default:
		return strings.ReplaceAll(raw, ",", ".")
	}
}

func containsAny(s string, markers []string) bool {
	for _, m := range markers {
		if strings.Contains(s, m) {
			return true
		}
	}
	return false
}

// hasSuffixMarker matches a marker right after the number that is not the
// start of a longer word ("500k" but not "500kg").
func hasSuffixMarker(rest string, markers ...string) bool {
	for _, m := range markers {
		if !strings.HasPrefix(rest, m) {
			continue
		}
		tail := []rune(rest[len(m):])
		if len(tail) == 0 || !isLetter(tail[0]) {
			return true
		}
	}
	return false
}

func isLetter(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'а' && r <= 'я') || r == 'ё'
}
