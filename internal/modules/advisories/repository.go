package advisories

import (
	"database/sql"
	"fmt"

	"github.com/agrisage/agrisage/internal/advisory"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Repository handles advisory report database operations against advisory.db.
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a new advisories repository.
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repo", "advisories").Logger(),
	}
}

const reportColumns = `id, farmer_id, crop, acreage, severity,
	base_yield, predicted_yield, weather_factor, yield_reduction_pct,
	current_price, price_source, predicted_price, price_change_pct,
	sell_window_start, sell_window_end,
	decision, rationale, current_value, future_value, profit_delta,
	storage_cost, net_profit, break_even_price,
	rainfall_mm, temperature_c, humidity_pct, weather_source, region,
	confidence, created_at, updated_at`

// Upsert stores the report as the farmer's current advisory, replacing any
// earlier one. A missing ID gets a fresh UUID. Returns the stored row.
func (r *Repository) Upsert(rep Report) (*Report, error) {
	if rep.FarmerID == "" {
		return nil, fmt.Errorf("farmer id is required")
	}
	if rep.ID == "" {
		rep.ID = uuid.New().String()
	}

	_, err := r.db.Exec(`
		INSERT INTO advisory_reports (id, farmer_id, crop, acreage, severity,
			base_yield, predicted_yield, weather_factor, yield_reduction_pct,
			current_price, price_source, predicted_price, price_change_pct,
			sell_window_start, sell_window_end,
			decision, rationale, current_value, future_value, profit_delta,
			storage_cost, net_profit, break_even_price,
			rainfall_mm, temperature_c, humidity_pct, weather_source, region,
			confidence, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, datetime('now'), datetime('now'))
		ON CONFLICT(farmer_id) DO UPDATE SET
			id = excluded.id,
			crop = excluded.crop,
			acreage = excluded.acreage,
			severity = excluded.severity,
			base_yield = excluded.base_yield,
			predicted_yield = excluded.predicted_yield,
			weather_factor = excluded.weather_factor,
			yield_reduction_pct = excluded.yield_reduction_pct,
			current_price = excluded.current_price,
			price_source = excluded.price_source,
			predicted_price = excluded.predicted_price,
			price_change_pct = excluded.price_change_pct,
			sell_window_start = excluded.sell_window_start,
			sell_window_end = excluded.sell_window_end,
			decision = excluded.decision,
			rationale = excluded.rationale,
			current_value = excluded.current_value,
			future_value = excluded.future_value,
			profit_delta = excluded.profit_delta,
			storage_cost = excluded.storage_cost,
			net_profit = excluded.net_profit,
			break_even_price = excluded.break_even_price,
			rainfall_mm = excluded.rainfall_mm,
			temperature_c = excluded.temperature_c,
			humidity_pct = excluded.humidity_pct,
			weather_source = excluded.weather_source,
			region = excluded.region,
			confidence = excluded.confidence,
			updated_at = datetime('now')`,
		rep.ID, rep.FarmerID, rep.Crop, rep.Acreage, rep.Severity,
		rep.BaseYield, rep.PredictedYield, rep.WeatherFactor, rep.YieldReductionPct,
		rep.CurrentPrice, rep.PriceSource, rep.PredictedPrice, rep.PriceChangePct,
		rep.SellWindowStart, rep.SellWindowEnd,
		string(rep.Decision), rep.Rationale, rep.CurrentValue, rep.FutureValue, rep.ProfitDelta,
		rep.StorageCost, rep.NetProfit, rep.BreakEvenPrice,
		rep.RainfallMM, rep.TemperatureC, rep.HumidityPct, rep.WeatherSource, rep.Region,
		rep.Confidence,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert advisory report: %w", err)
	}

	return r.GetByFarmer(rep.FarmerID)
}

// GetByFarmer returns the farmer's current report, or nil when none exists.
func (r *Repository) GetByFarmer(farmerID string) (*Report, error) {
	row := r.db.QueryRow(`SELECT `+reportColumns+` FROM advisory_reports
		WHERE farmer_id = ?`, farmerID)

	rep, err := scanReport(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query advisory report: %w", err)
	}
	return rep, nil
}

// Recent returns up to limit reports, most recently updated first.
func (r *Repository) Recent(limit int) ([]Report, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := r.db.Query(`SELECT `+reportColumns+` FROM advisory_reports
		ORDER BY updated_at DESC, id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query advisory reports: %w", err)
	}
	defer rows.Close()

	var reports []Report
	for rows.Next() {
		rep, err := scanReport(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan advisory report: %w", err)
		}
		reports = append(reports, *rep)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating advisory reports: %w", err)
	}
	return reports, nil
}

// CountByDecision returns how many current reports carry each decision.
func (r *Repository) CountByDecision() (map[string]int, error) {
	rows, err := r.db.Query(`SELECT decision, COUNT(*) FROM advisory_reports GROUP BY decision`)
	if err != nil {
		return nil, fmt.Errorf("failed to count reports by decision: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var decision string
		var n int
		if err := rows.Scan(&decision, &n); err != nil {
			return nil, fmt.Errorf("failed to scan decision count: %w", err)
		}
		counts[decision] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating decision counts: %w", err)
	}
	return counts, nil
}

// rowScanner abstracts *sql.Row and *sql.Rows for scanReport.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanReport(row rowScanner) (*Report, error) {
	var rep Report
	var decision string
	err := row.Scan(&rep.ID, &rep.FarmerID, &rep.Crop, &rep.Acreage, &rep.Severity,
		&rep.BaseYield, &rep.PredictedYield, &rep.WeatherFactor, &rep.YieldReductionPct,
		&rep.CurrentPrice, &rep.PriceSource, &rep.PredictedPrice, &rep.PriceChangePct,
		&rep.SellWindowStart, &rep.SellWindowEnd,
		&decision, &rep.Rationale, &rep.CurrentValue, &rep.FutureValue, &rep.ProfitDelta,
		&rep.StorageCost, &rep.NetProfit, &rep.BreakEvenPrice,
		&rep.RainfallMM, &rep.TemperatureC, &rep.HumidityPct, &rep.WeatherSource, &rep.Region,
		&rep.Confidence, &rep.CreatedAt, &rep.UpdatedAt)
	if err != nil {
		return nil, err
	}
	rep.Decision = advisory.Decision(decision)
	return &rep, nil
}
