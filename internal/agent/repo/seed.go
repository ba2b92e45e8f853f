package repo

import (
	"context"

	"github.com/autoimport-pro/server/internal/agent/model"
	errx "github.com/autoimport-pro/server/internal/core/error"
	logx "github.com/autoimport-pro/server/pkg/logger"
)

// SampleCars is a small demo inventory.
func SampleCars() []model.Car {
	return []model.Car{
		{Brand: "Toyota", Model: "Camry", Year: 2021, PriceUSD: 31_000, PriceRUB: 2_850_000, Country: "Japan", City: "Tokyo",
			MileageKM: 35_000, EngineVolume: 2.5, EngineType: "Petrol", Transmission: "Automatic", Drive: "Front",
			BodyType: "Sedan", Color: "White", Trim: "Prestige", Condition: "Excellent", DeliveryDays: 30, InStock: true,
			VIN: "JTNB11HK103000001", Description: "One owner, full service history."},
		{Brand: "Toyota", Model: "RAV4", Year: 2022, PriceUSD: 36_000, PriceRUB: 3_300_000, Country: "Japan", City: "Osaka",
			MileageKM: 18_000, EngineVolume: 2.5, EngineType: "Hybrid", Transmission: "CVT", Drive: "AWD",
			BodyType: "Crossover", Color: "Grey", Trim: "Adventure", Condition: "Excellent", DeliveryDays: 35, InStock: true,
			VIN: "JTMW1RFV903000002"},
		{Brand: "Lexus", Model: "RX 350", Year: 2020, PriceUSD: 52_000, PriceRUB: 4_800_000, Country: "Japan", City: "Yokohama",
			MileageKM: 41_000, EngineVolume: 3.5, EngineType: "Petrol", Transmission: "Automatic", Drive: "AWD",
			BodyType: "SUV", Color: "Black", Trim: "F Sport", Condition: "Good", DeliveryDays: 35, InStock: true,
			VIN: "2T2BZMCA4LC000003"},
		{Brand: "Hyundai", Model: "Palisade", Year: 2022, PriceUSD: 45_000, PriceRUB: 4_100_000, Country: "Korea", City: "Seoul",
			MileageKM: 22_000, EngineVolume: 2.2, EngineType: "Diesel", Transmission: "Automatic", Drive: "AWD",
			BodyType: "SUV", Color: "Blue", Trim: "Calligraphy", Condition: "Excellent", DeliveryDays: 25, InStock: true,
			VIN: "KM8R5DHE0NU000004"},
		{Brand: "Kia", Model: "K5", Year: 2021, PriceUSD: 24_000, PriceRUB: 2_200_000, Country: "Korea", City: "Busan",
			MileageKM: 40_000, EngineVolume: 2.0, EngineType: "Petrol", Transmission: "Automatic", Drive: "Front",
			BodyType: "Sedan", Color: "Red", Trim: "GT-Line", Condition: "Good", DeliveryDays: 25, InStock: true,
			VIN: "KNAG64J75M5000005"},
		{Brand: "Genesis", Model: "GV80", Year: 2023, PriceUSD: 68_000, PriceRUB: 6_250_000, Country: "Korea", City: "Seoul",
			MileageKM: 9_000, EngineVolume: 3.5, EngineType: "Petrol", Transmission: "Automatic", Drive: "AWD",
			BodyType: "SUV", Color: "White", Trim: "Prestige", Condition: "Excellent", DeliveryDays: 28, InStock: true,
			VIN: "KMUHCESC0PU000006"},
		{Brand: "BMW", Model: "X5", Year: 2021, PriceUSD: 70_000, PriceRUB: 6_450_000, Country: "Germany", City: "Munich",
			MileageKM: 38_000, EngineVolume: 3.0, EngineType: "Diesel", Transmission: "Automatic", Drive: "AWD",
			BodyType: "SUV", Color: "Black", Trim: "M Sport", Condition: "Excellent", DeliveryDays: 40, InStock: true,
			VIN: "WBACR61050L000007"},
		{Brand: "Mercedes-Benz", Model: "E 200", Year: 2020, PriceUSD: 42_000, PriceRUB: 3_900_000, Country: "Germany", City: "Stuttgart",
			MileageKM: 55_000, EngineVolume: 2.0, EngineType: "Petrol", Transmission: "Automatic", Drive: "Rear",
			BodyType: "Sedan", Color: "Silver", Trim: "Avantgarde", Condition: "Good", DeliveryDays: 40, InStock: true,
			VIN: "WDD2130421A000008"},
		{Brand: "Porsche", Model: "Cayenne", Year: 2022, PriceUSD: 98_000, PriceRUB: 9_000_000, Country: "UAE", City: "Dubai",
			MileageKM: 15_000, EngineVolume: 3.0, EngineType: "Petrol", Transmission: "Automatic", Drive: "AWD",
			BodyType: "SUV", Color: "Grey", Condition: "Excellent", DeliveryDays: 45, InStock: true,
			VIN: "WP1ZZZ9YZNDA00009"},
		{Brand: "Toyota", Model: "Land Cruiser 300", Year: 2022, PriceUSD: 110_000, PriceRUB: 10_100_000, Country: "UAE", City: "Dubai",
			MileageKM: 12_000, EngineVolume: 3.5, EngineType: "Petrol", Transmission: "Automatic", Drive: "AWD",
			BodyType: "SUV", Color: "White", Trim: "VX", Condition: "Excellent", DeliveryDays: 45, InStock: false,
			VIN: "JTMHV01J604000010", Description: "Reserved."},
	}
}

// SeedIfEmpty inserts cars when the catalog has no rows yet. It reports how many were inserted.
func SeedIfEmpty(ctx context.Context, c *SQLiteCatalog, cars []model.Car) (int, error) {
	var n int
	if err := c.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM cars`).Scan(&n); err != nil {
		return 0, errx.WrapDB(err)
	}
	if n > 0 {
		return 0, nil
	}
	if err := c.InsertCars(ctx, cars); err != nil {
		return 0, err
	}
	logx.Info().Int("cars", len(cars)).Msg("Catalog seeded")
	return len(cars), nil
}
