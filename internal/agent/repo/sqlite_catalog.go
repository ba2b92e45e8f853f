package repo

import (
	"context"
	"database/sql"
	"strings"

	"github.com/autoimport-pro/server/internal/agent/model"
	errx "github.com/autoimport-pro/server/internal/core/error"
	logx "github.com/autoimport-pro/server/pkg/logger"
)

const carColumns = `id, brand, model, year, price_usd, price_rub, country, city, mileage_km,
	engine_volume, engine_type, transmission, drive, body_type, color, trim, condition,
	delivery_days, in_stock, COALESCE(vin, ''), description`

// SQLiteCatalog searches the in-stock cars table.
type SQLiteCatalog struct {
	db *sql.DB
}

func NewSQLiteCatalog(db *sql.DB) *SQLiteCatalog {
	return &SQLiteCatalog{db: db}
}

// Search returns in-stock cars matching f, cheapest first.
func (c *SQLiteCatalog) Search(ctx context.Context, f model.CarFilter) ([]model.Car, error) {
	where := []string{"in_stock = 1"}
	var args []any

	if f.Brand != "" {
		where = append(where, "brand LIKE ?")
		args = append(args, "%"+normalize(brandAliases, f.Brand)+"%")
	}
	if f.Model != "" {
		where = append(where, "model LIKE ?")
		args = append(args, "%"+strings.TrimSpace(f.Model)+"%")
	}
	if f.PriceMin > 0 {
		where = append(where, "price_rub >= ?")
		args = append(args, f.PriceMin)
	}
	if f.PriceMax > 0 {
		where = append(where, "price_rub <= ?")
		args = append(args, f.PriceMax)
	}
	if f.YearMin > 0 {
		where = append(where, "year >= ?")
		args = append(args, f.YearMin)
	}
	if f.YearMax > 0 {
		where = append(where, "year <= ?")
		args = append(args, f.YearMax)
	}
	if f.Country != "" {
		where = append(where, "country = ? COLLATE NOCASE")
		args = append(args, normalize(countryAliases, f.Country))
	}
	if f.BodyType != "" {
		where = append(where, "body_type = ? COLLATE NOCASE")
		args = append(args, normalize(bodyAliases, f.BodyType))
	}
	if f.EngineType != "" {
		where = append(where, "engine_type = ? COLLATE NOCASE")
		args = append(args, normalize(engineAliases, f.EngineType))
	}
	if f.MileageMax > 0 {
		where = append(where, "mileage_km <= ?")
		args = append(args, f.MileageMax)
	}

	limit := f.Limit
	if limit <= 0 {
		limit = model.DefaultSearchLimit
	}
	if limit > model.MaxSearchLimit {
		limit = model.MaxSearchLimit
	}
	args = append(args, limit)

	query := "SELECT " + carColumns + " FROM cars WHERE " + strings.Join(where, " AND ") +
		" ORDER BY price_rub ASC, id ASC LIMIT ?"

	rows, err := c.db.QueryContext(ctx, query, args...)
	if err != nil {
		logx.Error().Err(err).Msg("failed to search cars")
		return nil, errx.WrapDB(err)
	}
	defer rows.Close()

	var cars []model.Car
	for rows.Next() {
		var car model.Car
		if err := rows.Scan(
			&car.ID, &car.Brand, &car.Model, &car.Year, &car.PriceUSD, &car.PriceRUB, &car.Country, &car.City,
			&car.MileageKM, &car.EngineVolume, &car.EngineType, &car.Transmission, &car.Drive, &car.BodyType,
			&car.Color, &car.Trim, &car.Condition, &car.DeliveryDays, &car.InStock, &car.VIN, &car.Description,
		); err != nil {
			return nil, errx.WrapDB(err)
		}
		cars = append(cars, car)
	}
	return cars, errx.WrapDB(rows.Err())
}

// Brands lists in-stock brands, most stocked first.
func (c *SQLiteCatalog) Brands(ctx context.Context) ([]model.BrandCount, error) {
	rows, err := c.db.QueryContext(ctx, `SELECT brand, COUNT(*) AS n FROM cars
		WHERE in_stock = 1 GROUP BY brand ORDER BY n DESC, brand ASC`)
	if err != nil {
		logx.Error().Err(err).Msg("failed to list brands")
		return nil, errx.WrapDB(err)
	}
	defer rows.Close()

	var out []model.BrandCount
	for rows.Next() {
		var b model.BrandCount
		if err := rows.Scan(&b.Brand, &b.Count); err != nil {
			return nil, errx.WrapDB(err)
		}
		out = append(out, b)
	}
	return out, errx.WrapDB(rows.Err())
}

// PriceRange summarises in-stock prices, optionally narrowed by brand and model.
func (c *SQLiteCatalog) PriceRange(ctx context.Context, brand, carModel string) (model.PriceStats, error) {
	where := []string{"in_stock = 1"}
	var args []any
	if strings.TrimSpace(brand) != "" {
		where = append(where, "brand LIKE ?")
		args = append(args, "%"+normalize(brandAliases, brand)+"%")
	}
	if strings.TrimSpace(carModel) != "" {
		where = append(where, "model LIKE ?")
		args = append(args, "%"+strings.TrimSpace(carModel)+"%")
	}

	query := `SELECT COALESCE(MIN(price_rub), 0), COALESCE(MAX(price_rub), 0),
		COALESCE(CAST(AVG(price_rub) AS INTEGER), 0), COUNT(*) FROM cars WHERE ` + strings.Join(where, " AND ")

	var s model.PriceStats
	if err := c.db.QueryRowContext(ctx, query, args...).Scan(&s.Min, &s.Max, &s.Avg, &s.Count); err != nil {
		logx.Error().Err(err).Msg("failed to compute price range")
		return model.PriceStats{}, errx.WrapDB(err)
	}
	return s, nil
}

// InsertCars adds cars to the catalog in one transaction.
func (c *SQLiteCatalog) InsertCars(ctx context.Context, cars []model.Car) error {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return errx.WrapDB(err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO cars (brand, model, year, price_usd, price_rub, country, city,
		mileage_km, engine_volume, engine_type, transmission, drive, body_type, color, trim, condition,
		delivery_days, in_stock, vin, description)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return errx.WrapDB(err)
	}
	defer stmt.Close()

	for _, car := range cars {
		var vin any
		if car.VIN != "" {
			vin = car.VIN
		}
		if _, err := stmt.ExecContext(ctx,
			car.Brand, car.Model, car.Year, car.PriceUSD, car.PriceRUB, car.Country, car.City,
			car.MileageKM, car.EngineVolume, car.EngineType, car.Transmission, car.Drive, car.BodyType,
			car.Color, car.Trim, car.Condition, car.DeliveryDays, car.InStock, vin, car.Description,
		); err != nil {
			return errx.WrapDB(err)
		}
	}
	return errx.WrapDB(tx.Commit())
}

var _ model.Catalog = (*SQLiteCatalog)(nil)
