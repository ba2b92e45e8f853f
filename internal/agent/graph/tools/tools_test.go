package tools

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/autoimport-pro/server/internal/agent/model"
)

type fakeCatalog struct {
	cars      []model.Car
	brands    []model.BrandCount
	stats     model.PriceStats
	err       error
	panics    bool
	lastQuery model.CarFilter
	lastBrand string
	lastModel string
}

func (f *fakeCatalog) Search(_ context.Context, q model.CarFilter) ([]model.Car, error) {
	if f.panics {
		panic("boom")
	}
	f.lastQuery = q
	return f.cars, f.err
}

func (f *fakeCatalog) Brands(context.Context) ([]model.BrandCount, error) {
	return f.brands, f.err
}

func (f *fakeCatalog) PriceRange(_ context.Context, brand, mdl string) (model.PriceStats, error) {
	f.lastBrand, f.lastModel = brand, mdl
	return f.stats, f.err
}

var camry = model.Car{
	Brand: "Toyota", Model: "Camry", Year: 2021, PriceRUB: 2_850_000, MileageKM: 35_000,
	EngineVolume: 2.5, EngineType: "Petrol", Transmission: "Automatic", Drive: "Front",
	BodyType: "Sedan", Color: "White", Country: "Japan", City: "Tokyo", DeliveryDays: 30, Condition: "Excellent",
}

func TestSearchCarsFormatsResults(t *testing.T) {
	cat := &fakeCatalog{cars: []model.Car{camry}}
	r := NewRegistry(cat)

	out := r.run(context.Background(), ToolSearchCars, `{"brand":"тойота","price_max":3000000}`)

	assert.Equal(t, "тойота", cat.lastQuery.Brand)
	assert.Equal(t, int64(3_000_000), cat.lastQuery.PriceMax)
	assert.Equal(t, model.DefaultSearchLimit, cat.lastQuery.Limit)
	assert.Contains(t, out, "Found 1 cars:")
	assert.Contains(t, out, "**Toyota Camry 2021**")
	assert.Contains(t, out, "- Price: 2 850 000 RUB")
	assert.Contains(t, out, "- Mileage: 35 000 km")
	assert.Contains(t, out, "- Engine: 2.5 l Petrol")
}

func TestSearchCarsEmpty(t *testing.T) {
	r := NewRegistry(&fakeCatalog{})
	out := r.run(context.Background(), ToolSearchCars, `{}`)
	assert.Contains(t, out, "no cars match")
}

func TestSearchCarsInvalidFiltersBecomeText(t *testing.T) {
	r := NewRegistry(&fakeCatalog{})
	out := r.run(context.Background(), ToolSearchCars, `{"price_min":5000000,"price_max":1000000}`)
	assert.Contains(t, out, "Tool search_cars failed")
	assert.Contains(t, out, "invalid search filters")

	out = r.run(context.Background(), ToolSearchCars, `not json`)
	assert.Contains(t, out, "invalid arguments")
}

func TestToolErrorsAndPanicsBecomeText(t *testing.T) {
	r := NewRegistry(&fakeCatalog{err: errors.New("db down")})
	out := r.run(context.Background(), ToolAvailableBrands, `{}`)
	assert.Contains(t, out, "Tool get_available_brands failed")
	assert.Contains(t, out, "db down")

	r = NewRegistry(&fakeCatalog{panics: true})
	out, err := r.tools[ToolSearchCars].InvokableRun(context.Background(), `{}`)
	require.NoError(t, err)
	assert.Contains(t, out, "internal error")
}

func TestAvailableBrands(t *testing.T) {
	r := NewRegistry(&fakeCatalog{brands: []model.BrandCount{{Brand: "Toyota", Count: 4}, {Brand: "BMW", Count: 2}}})
	out := r.run(context.Background(), ToolAvailableBrands, "")
	assert.Equal(t, "Brands in stock:\n- Toyota: 4 cars\n- BMW: 2 cars", out)

	r = NewRegistry(&fakeCatalog{})
	assert.Equal(t, "The catalog is empty right now.", r.run(context.Background(), ToolAvailableBrands, "{}"))
}

func TestPriceRange(t *testing.T) {
	cat := &fakeCatalog{stats: model.PriceStats{Min: 1_000_000, Max: 3_000_000, Avg: 2_000_000, Count: 3}}
	r := NewRegistry(cat)

	out := r.run(context.Background(), ToolPriceRange, `{"brand":" BMW ","model":"X5"}`)
	assert.Equal(t, "BMW", cat.lastBrand)
	assert.Equal(t, "X5", cat.lastModel)
	assert.Equal(t, "Prices for BMW X5 (3 in stock):\n- Minimum: 1 000 000 RUB\n- Maximum: 3 000 000 RUB\n- Average: 2 000 000 RUB", out)

	cat.stats = model.PriceStats{}
	assert.Equal(t, "No cars match these criteria.", r.run(context.Background(), ToolPriceRange, `{}`))
}

func TestUnknownTool(t *testing.T) {
	r := NewRegistry(&fakeCatalog{})
	out := r.run(context.Background(), "order_pizza", `{"size":"xl"}`)

	var m map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &m))
	assert.Equal(t, "unknown_tool", m["error"])
	assert.Equal(t, "order_pizza", m["name"])
	assert.ElementsMatch(t, []any{ToolSearchCars, ToolAvailableBrands, ToolPriceRange}, m["available"])
}

func TestRegistryInfos(t *testing.T) {
	r := NewRegistry(&fakeCatalog{})
	infos, err := r.Infos(context.Background())
	require.NoError(t, err)
	require.Len(t, infos, 3)
	assert.Equal(t, ToolAvailableBrands, infos[0].Name)
	assert.Equal(t, ToolPriceRange, infos[1].Name)
	assert.Equal(t, ToolSearchCars, infos[2].Name)
	assert.Len(t, r.Tools(), 3)
}

func TestSanitizeArguments(t *testing.T) {
	ctx := context.Background()

	out, err := SanitizeArguments(ctx, ToolSearchCars, `{"brand":"  BMW ","model":"","price_max":"3 000 000","year_min":"abc","limit":100}`)
	require.NoError(t, err)
	var m map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &m))
	assert.Equal(t, "BMW", m["brand"])
	assert.NotContains(t, m, "model")
	assert.Equal(t, float64(3_000_000), m["price_max"])
	assert.NotContains(t, m, "year_min")
	assert.Equal(t, float64(model.MaxSearchLimit), m["limit"])

	out, _ = SanitizeArguments(ctx, ToolSearchCars, `{"limit":"0"}`)
	assert.JSONEq(t, `{"limit":1}`, out)

	out, _ = SanitizeArguments(ctx, ToolAvailableBrands, `{"junk":true}`)
	assert.JSONEq(t, `{}`, out)

	out, _ = SanitizeArguments(ctx, ToolSearchCars, `garbage`)
	assert.Equal(t, "garbage", out)
}
