package model

import "context"

// CarFilter narrows a catalog search. Zero values are ignored.
type CarFilter struct {
	Brand      string `json:"brand,omitempty"`
	Model      string `json:"model,omitempty"`
	PriceMin   int64  `json:"price_min,omitempty" validate:"omitempty,min=0"`
	PriceMax   int64  `json:"price_max,omitempty" validate:"omitempty,min=0,gtefield=PriceMin"`
	YearMin    int    `json:"year_min,omitempty" validate:"omitempty,gte=1950,lte=2100"`
	YearMax    int    `json:"year_max,omitempty" validate:"omitempty,gte=1950,lte=2100,gtefield=YearMin"`
	Country    string `json:"country,omitempty"`
	BodyType   string `json:"body_type,omitempty"`
	EngineType string `json:"engine_type,omitempty"`
	MileageMax int    `json:"mileage_max,omitempty" validate:"omitempty,min=0"`
	Limit      int    `json:"limit,omitempty" validate:"omitempty,min=1,max=20"`
}

const (
	DefaultSearchLimit = 5
	MaxSearchLimit     = 20
)

// Car is a catalog record ready for import.
type Car struct {
	ID           int64
	Brand        string
	Model        string
	Year         int
	PriceUSD     int64
	PriceRUB     int64
	Country      string
	City         string
	MileageKM    int
	EngineVolume float64
	EngineType   string
	Transmission string
	Drive        string
	BodyType     string
	Color        string
	Trim         string
	Condition    string
	DeliveryDays int
	InStock      bool
	VIN          string
	Description  string
}

// BrandCount is the number of in-stock cars of a brand.
type BrandCount struct {
	Brand string
	Count int
}

// PriceStats summarises in-stock prices in RUB.
type PriceStats struct {
	Min   int64
	Max   int64
	Avg   int64
	Count int
}

// Catalog is the car search capability used by the tools.
type Catalog interface {
	Search(ctx context.Context, f CarFilter) ([]Car, error)
	Brands(ctx context.Context) ([]BrandCount, error)
	PriceRange(ctx context.Context, brand, model string) (PriceStats, error)
}
