package model

import (
	"strings"

	"github.com/cloudwego/eino/schema"
)

// Pricing is the USD price per 1M text tokens.
type Pricing struct {
	InputPerM  float64
	OutputPerM float64
}

var defaultPricing = map[string]Pricing{
	"gemini-2.5-pro":        {InputPerM: 1.25, OutputPerM: 10.00},
	"gemini-2.5-flash":      {InputPerM: 0.30, OutputPerM: 2.50},
	"gemini-2.5-flash-lite": {InputPerM: 0.10, OutputPerM: 0.40},
}

// ResolvePricing returns the pricing for a model, ignoring a "models/" prefix.
// Unknown models cost nothing.
func ResolvePricing(model string) Pricing {
	return defaultPricing[strings.TrimPrefix(model, "models/")]
}

// UsageCost is the priced token usage of one oracle call.
type UsageCost struct {
	Model            string
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
	InputUSD         float64
	OutputUSD        float64
	TotalUSD         float64
}

// ComputeCost prices the usage reported on msg. ok is false when the provider reported none.
func ComputeCost(msg *schema.Message, modelName string) (cost UsageCost, ok bool) {
	if msg == nil || msg.ResponseMeta == nil || msg.ResponseMeta.Usage == nil {
		return UsageCost{}, false
	}
	u := msg.ResponseMeta.Usage
	p := ResolvePricing(modelName)
	cost = UsageCost{
		Model:            modelName,
		PromptTokens:     u.PromptTokens,
		CompletionTokens: u.CompletionTokens,
		TotalTokens:      u.TotalTokens,
		InputUSD:         p.InputPerM * float64(u.PromptTokens) / 1_000_000.0,
		OutputUSD:        p.OutputPerM * float64(u.CompletionTokens) / 1_000_000.0,
	}
	cost.TotalUSD = cost.InputUSD + cost.OutputUSD
	return cost, true
}
