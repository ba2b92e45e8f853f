package model

import "strings"

// Slot names, in the order they are asked for.
const (
	SlotBrand         = "brand"
	SlotModel         = "model"
	SlotBudgetMin     = "budget_min"
	SlotBudgetMax     = "budget_max"
	SlotSourceCountry = "source_country"
	SlotTimeline      = "timeline"
	SlotBodyType      = "body_type"
	SlotCustomerName  = "customer_name"
	SlotPhone         = "phone"
)

// SlotNames is the fixed slot set.
var SlotNames = []string{
	SlotBrand,
	SlotModel,
	SlotBudgetMin,
	SlotBudgetMax,
	SlotSourceCountry,
	SlotTimeline,
	SlotBodyType,
	SlotCustomerName,
	SlotPhone,
}

// Slots holds the facts learned about a customer. A nil field is unknown.
type Slots struct {
	Brand         *string `json:"brand,omitempty"`
	Model         *string `json:"model,omitempty"`
	BudgetMin     *int64  `json:"budget_min,omitempty"`
	BudgetMax     *int64  `json:"budget_max,omitempty"`
	SourceCountry *string `json:"source_country,omitempty"`
	Timeline      *string `json:"timeline,omitempty"`
	BodyType      *string `json:"body_type,omitempty"`
	CustomerName  *string `json:"customer_name,omitempty"`
	Phone         *string `json:"phone,omitempty"`
}

// Merge returns s with every non-nil field of update applied on top.
// Known values are never cleared.
func (s Slots) Merge(update Slots) Slots {
	out := s
	mergeStr(&out.Brand, update.Brand)
	mergeStr(&out.Model, update.Model)
	mergeInt(&out.BudgetMin, update.BudgetMin)
	mergeInt(&out.BudgetMax, update.BudgetMax)
	mergeStr(&out.SourceCountry, update.SourceCountry)
	mergeStr(&out.Timeline, update.Timeline)
	mergeStr(&out.BodyType, update.BodyType)
	mergeStr(&out.CustomerName, update.CustomerName)
	mergeStr(&out.Phone, update.Phone)
	return out
}

func mergeStr(dst **string, v *string) {
	if v != nil {
		c := *v
		*dst = &c
	}
}

func mergeInt(dst **int64, v *int64) {
	if v != nil {
		c := *v
		*dst = &c
	}
}

// Map returns the known slots keyed by slot name.
func (s Slots) Map() map[string]any {
	m := make(map[string]any, len(SlotNames))
	for _, name := range SlotNames {
		if v, ok := s.value(name); ok {
			m[name] = v
		}
	}
	return m
}

// Missing returns the slot names that are still unknown, in SlotNames order.
func (s Slots) Missing() []string {
	missing := make([]string, 0, len(SlotNames))
	for _, name := range SlotNames {
		if _, ok := s.value(name); !ok {
			missing = append(missing, name)
		}
	}
	return missing
}

func (s Slots) value(name string) (any, bool) {
	switch name {
	case SlotBrand:
		return strValue(s.Brand)
	case SlotModel:
		return strValue(s.Model)
	case SlotBudgetMin:
		return intValue(s.BudgetMin)
	case SlotBudgetMax:
		return intValue(s.BudgetMax)
	case SlotSourceCountry:
		return strValue(s.SourceCountry)
	case SlotTimeline:
		return strValue(s.Timeline)
	case SlotBodyType:
		return strValue(s.BodyType)
	case SlotCustomerName:
		return strValue(s.CustomerName)
	case SlotPhone:
		return strValue(s.Phone)
	}
	return nil, false
}

func strValue(p *string) (any, bool) {
	if p == nil {
		return nil, false
	}
	return *p, true
}

func intValue(p *int64) (any, bool) {
	if p == nil {
		return nil, false
	}
	return *p, true
}

// Has* report presence for classification: empty strings and zero budgets count as absent.

func (s Slots) HasBrand() bool        { return present(s.Brand) }
func (s Slots) HasBodyType() bool     { return present(s.BodyType) }
func (s Slots) HasCustomerName() bool { return present(s.CustomerName) }
func (s Slots) HasPhone() bool        { return present(s.Phone) }
func (s Slots) HasBudgetMax() bool    { return s.BudgetMax != nil && *s.BudgetMax > 0 }

// TimelineText returns the lower-cased timeline or "".
func (s Slots) TimelineText() string {
	if s.Timeline == nil {
		return ""
	}
	return strings.ToLower(*s.Timeline)
}

func present(p *string) bool {
	return p != nil && strings.TrimSpace(*p) != ""
}

// String and Int64 return pointers to copies of v.
func String(v string) *string { return &v }
func Int64(v int64) *int64    { return &v }
