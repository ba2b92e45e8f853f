package parsers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/autoimport-pro/server/internal/agent/model"
	errx "github.com/autoimport-pro/server/internal/core/error"
	"github.com/autoimport-pro/server/pkg/phone"
	logx "github.com/autoimport-pro/server/pkg/logger"
)

// basic safety limits to avoid pathological inputs
const (
	maxContentLen = 32 * 1024
	maxValueLen   = 200
	maxErrSnippet = 200
)

// legacy and alternative keys the oracle uses
var slotAliases = map[string]string{
	"car_brand":      model.SlotBrand,
	"make":           model.SlotBrand,
	"car_model":      model.SlotModel,
	"country":        model.SlotSourceCountry,
	"name":           model.SlotCustomerName,
	"customer_phone": model.SlotPhone,
	"phone_number":   model.SlotPhone,
}

// values that mean "not stated"
var unknownValues = map[string]struct{}{
	"":           {},
	"unknown":    {},
	"null":       {},
	"none":       {},
	"n/a":        {},
	"неизвестно": {},
}

// SlotParseResult is the outcome of parsing one extraction reply.
type SlotParseResult struct {
	Slots     model.Slots
	Warnings  []string
	Truncated bool
}

// ParseSlots reads the extraction reply. The oracle may wrap the JSON object in
// code fences or prose; anything outside the outermost braces is ignored.
// A reply without a readable object yields a malformed_output error; bad
// individual values only add warnings.
func ParseSlots(content, phoneRegion string) (res SlotParseResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			logx.Error().Str("component", "slot_parser").Msgf("panic recovered: %v", r)
			res = SlotParseResult{}
			err = errx.New(errx.KindMalformedOutput, fmt.Errorf("slot parser panic: %v", r))
		}
	}()

	if len(content) > maxContentLen {
		logx.Warn().
			Str("component", "slot_parser").
			Int("max_len", maxContentLen).
			Int("orig_len", len(content)).
			Msg("content truncated due to size limit")
		content = content[:maxContentLen]
		res.Truncated = true
	}

	payload, ok := extractObject(content)
	if !ok {
		return res, errx.New(errx.KindMalformedOutput, fmt.Errorf("no json object in reply: %q", safeSnippet(content)))
	}

	dec := json.NewDecoder(bytes.NewReader([]byte(payload)))
	dec.UseNumber()
	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return res, errx.New(errx.KindMalformedOutput, fmt.Errorf("decode extraction: %w", err))
	}

	warn := func(format string, args ...any) {
		res.Warnings = append(res.Warnings, fmt.Sprintf(format, args...))
	}

	for _, key := range orderedKeys(raw) {
		value := raw[key]
		name := strings.ToLower(strings.TrimSpace(key))
		if alias, ok := slotAliases[name]; ok {
			name = alias
		}

		switch name {
		case model.SlotBudgetMin, model.SlotBudgetMax:
			if isUnknown(value) {
				continue
			}
			amount, ok := NormalizeBudget(value)
			if !ok || amount <= 0 {
				warn("%s: unreadable budget %q", name, safeSnippet(fmt.Sprint(value)))
				continue
			}
			if name == model.SlotBudgetMin {
				res.Slots.BudgetMin = model.Int64(amount)
			} else {
				res.Slots.BudgetMax = model.Int64(amount)
			}

		case model.SlotBrand, model.SlotModel, model.SlotSourceCountry, model.SlotTimeline,
			model.SlotBodyType, model.SlotCustomerName, model.SlotPhone:
			if isUnknown(value) {
				continue
			}
			text, ok := textValue(value)
			if !ok {
				warn("%s: unsupported value type %T", name, value)
				continue
			}
			if !utf8.ValidString(text) || len(text) > maxValueLen {
				warn("%s: invalid value", name)
				continue
			}
			if name == model.SlotPhone {
				text = phone.NormalizeE164(text, phoneRegion)
			}
			setText(&res.Slots, name, text)

		default:
			warn("unknown slot %q", safeSnippet(key))
		}
	}

	if res.Slots.BudgetMin != nil && res.Slots.BudgetMax != nil && *res.Slots.BudgetMin > *res.Slots.BudgetMax {
		warn("budget_min above budget_max")
	}
	return res, nil
}

// orderedKeys sorts alias keys before canonical ones so a canonical key
// overrides its alias when both are present.
func orderedKeys(raw map[string]any) []string {
	keys := make([]string, 0, len(raw))
	for k := range raw {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		ai, aj := isAliasKey(keys[i]), isAliasKey(keys[j])
		if ai != aj {
			return ai
		}
		return keys[i] < keys[j]
	})
	return keys
}

func isAliasKey(key string) bool {
	_, ok := slotAliases[strings.ToLower(strings.TrimSpace(key))]
	return ok
}

// extractObject strips code fences and returns the outermost {...} span.
func extractObject(s string) (string, bool) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```JSON")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")

	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end <= start {
		return "", false
	}
	return s[start : end+1], true
}

func isUnknown(v any) bool {
	if v == nil {
		return true
	}
	s, ok := v.(string)
	if !ok {
		return false
	}
	_, unknown := unknownValues[strings.ToLower(strings.TrimSpace(s))]
	return unknown
}

func textValue(v any) (string, bool) {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t), true
	case json.Number:
		return t.String(), true
	}
	return "", false
}

func setText(s *model.Slots, name, v string) {
	switch name {
	case model.SlotBrand:
		s.Brand = model.String(v)
	case model.SlotModel:
		s.Model = model.String(v)
	case model.SlotSourceCountry:
		s.SourceCountry = model.String(v)
	case model.SlotTimeline:
		s.Timeline = model.String(v)
	case model.SlotBodyType:
		s.BodyType = model.String(v)
	case model.SlotCustomerName:
		s.CustomerName = model.String(v)
	case model.SlotPhone:
		s.Phone = model.String(v)
	}
}

func safeSnippet(s string) string {
	s = strings.TrimSpace(s)
	if len(s) <= maxErrSnippet {
		return s
	}
	// cut on a rune boundary
	cut := maxErrSnippet
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}
