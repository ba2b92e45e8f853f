package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/cloudwego/eino/schema"
	"github.com/dustin/go-humanize"

	"github.com/autoimport-pro/server/internal/agent/model"
)

var searchCarsInfo = &schema.ToolInfo{
	Name: ToolSearchCars,
	Desc: "Search the car catalog by filters. Use it when the customer asks about specific cars, availability, prices or wants to see options. " +
		"Returns a formatted list of matching in-stock cars ordered by price.",
	ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
		"brand":       {Type: "string", Desc: "Car brand (Toyota, BMW, Mercedes-Benz, Hyundai, Kia, Lexus, Audi, Porsche, Land Rover, Genesis)"},
		"model":       {Type: "string", Desc: "Car model"},
		"price_min":   {Type: "integer", Desc: "Minimum price in rubles"},
		"price_max":   {Type: "integer", Desc: "Maximum price in rubles"},
		"year_min":    {Type: "integer", Desc: "Minimum production year"},
		"year_max":    {Type: "integer", Desc: "Maximum production year"},
		"country":     {Type: "string", Desc: "Country where the car is located (Japan, Korea, Germany, UAE)"},
		"body_type":   {Type: "string", Desc: "Body type (sedan, crossover, SUV, hatchback, minivan, coupe)"},
		"engine_type": {Type: "string", Desc: "Engine type (petrol, diesel, hybrid, electric)"},
		"mileage_max": {Type: "integer", Desc: "Maximum mileage in km"},
		"limit":       {Type: "integer", Desc: "Number of results (default 5, max 20)"},
	}),
}

var availableBrandsInfo = &schema.ToolInfo{
	Name:        ToolAvailableBrands,
	Desc:        "List the car brands currently in stock with the number of cars for each. Use it when the customer asks which brands are available.",
	ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{}),
}

var priceRangeInfo = &schema.ToolInfo{
	Name: ToolPriceRange,
	Desc: "Get the minimum, maximum and average price of in-stock cars, optionally for a brand and model. Use it when the customer asks how much a brand or model costs.",
	ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
		"brand": {Type: "string", Desc: "Car brand (optional)"},
		"model": {Type: "string", Desc: "Car model (optional)"},
	}),
}

// PriceRangeInput is the argument of get_price_range.
type PriceRangeInput struct {
	Brand string `json:"brand,omitempty" validate:"max=50"`
	Model string `json:"model,omitempty" validate:"max=100"`
}

func decodeArgs(args string, v any) error {
	args = strings.TrimSpace(args)
	if args == "" {
		args = "{}"
	}
	if err := json.Unmarshal([]byte(args), v); err != nil {
		return fmt.Errorf("invalid arguments: %w", err)
	}
	return nil
}

func (r *Registry) searchCars(ctx context.Context, args string) (string, error) {
	var f model.CarFilter
	if err := decodeArgs(args, &f); err != nil {
		return "", err
	}
	if f.Limit == 0 {
		f.Limit = model.DefaultSearchLimit
	}
	if err := r.validate.Struct(f); err != nil {
		return "", fmt.Errorf("invalid search filters: %w", err)
	}

	cars, err := r.catalog.Search(ctx, f)
	if err != nil {
		return "", fmt.Errorf("search catalog: %w", err)
	}
	return FormatCarList(cars), nil
}

func (r *Registry) availableBrands(ctx context.Context, _ string) (string, error) {
	brands, err := r.catalog.Brands(ctx)
	if err != nil {
		return "", fmt.Errorf("list brands: %w", err)
	}
	if len(brands) == 0 {
		return "The catalog is empty right now.", nil
	}

	var b strings.Builder
	b.WriteString("Brands in stock:")
	for _, bc := range brands {
		fmt.Fprintf(&b, "\n- %s: %d cars", bc.Brand, bc.Count)
	}
	return b.String(), nil
}

func (r *Registry) priceRange(ctx context.Context, args string) (string, error) {
	var in PriceRangeInput
	if err := decodeArgs(args, &in); err != nil {
		return "", err
	}
	in.Brand = strings.TrimSpace(in.Brand)
	in.Model = strings.TrimSpace(in.Model)
	if err := r.validate.Struct(in); err != nil {
		return "", fmt.Errorf("invalid price range filters: %w", err)
	}

	st, err := r.catalog.PriceRange(ctx, in.Brand, in.Model)
	if err != nil {
		return "", fmt.Errorf("price range: %w", err)
	}
	if st.Count == 0 {
		return "No cars match these criteria.", nil
	}

	subject := strings.TrimSpace(strings.Join([]string{in.Brand, in.Model}, " "))
	if subject == "" {
		subject = "all cars"
	}
	return fmt.Sprintf("Prices for %s (%d in stock):\n- Minimum: %s\n- Maximum: %s\n- Average: %s",
		subject, st.Count, formatRUB(st.Min), formatRUB(st.Max), formatRUB(st.Avg)), nil
}

// FormatCarList renders search results for the chat.
func FormatCarList(cars []model.Car) string {
	if len(cars) == 0 {
		return "Unfortunately no cars match these criteria. Try changing the search parameters."
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Found %d cars:\n", len(cars))
	for i, c := range cars {
		fmt.Fprintf(&b, "\n%d. %s\n", i+1, FormatCar(c))
	}
	return b.String()
}

// FormatCar renders one car for the chat.
func FormatCar(c model.Car) string {
	return fmt.Sprintf("**%s %s %d**\n"+
		"- Price: %s\n"+
		"- Mileage: %s km\n"+
		"- Engine: %s l %s\n"+
		"- Transmission: %s, drive: %s\n"+
		"- Body: %s, color: %s\n"+
		"- Country: %s (%s)\n"+
		"- Delivery: ~%d days\n"+
		"- Condition: %s",
		c.Brand, c.Model, c.Year,
		formatRUB(c.PriceRUB),
		groupDigits(int64(c.MileageKM)),
		strconv.FormatFloat(c.EngineVolume, 'f', 1, 64), c.EngineType,
		c.Transmission, c.Drive,
		c.BodyType, c.Color,
		c.Country, c.City,
		c.DeliveryDays,
		c.Condition,
	)
}

func formatRUB(v int64) string {
	return groupDigits(v) + " RUB"
}

// groupDigits writes 1234567 as "1 234 567".
func groupDigits(v int64) string {
	return strings.ReplaceAll(humanize.Comma(v), ",", " ")
}
