package market

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Repository handles mandi price database operations against history.db.
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a new market repository.
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repo", "market").Logger(),
	}
}

// Record inserts a price quote, replacing any earlier quote for the same
// crop, market and date. Crop and market names are stored lowercase.
func (r *Repository) Record(p MandiPrice) error {
	if p.Crop == "" {
		return fmt.Errorf("crop is required")
	}
	if p.Market == "" {
		return fmt.Errorf("market is required")
	}
	if p.PricePerQuintal <= 0 {
		return fmt.Errorf("price must be positive, got %v", p.PricePerQuintal)
	}
	if p.Date == "" {
		p.Date = time.Now().Format(DateLayout)
	}
	if _, err := time.Parse(DateLayout, p.Date); err != nil {
		return fmt.Errorf("invalid date %q: %w", p.Date, err)
	}

	_, err := r.db.Exec(`
		INSERT INTO mandi_prices (crop, market, date, price_per_quintal, arrivals_quintals, recorded_at)
		VALUES (?, ?, ?, ?, ?, datetime('now'))
		ON CONFLICT(crop, market, date) DO UPDATE SET
			price_per_quintal = excluded.price_per_quintal,
			arrivals_quintals = excluded.arrivals_quintals,
			recorded_at = excluded.recorded_at`,
		strings.ToLower(strings.TrimSpace(p.Crop)),
		strings.ToLower(strings.TrimSpace(p.Market)),
		p.Date, p.PricePerQuintal, p.ArrivalsQuintals,
	)
	if err != nil {
		return fmt.Errorf("failed to record mandi price: %w", err)
	}
	return nil
}

// LatestForCrop returns the most recent quote for a crop across all mandis,
// or nil when no quote has been recorded.
func (r *Repository) LatestForCrop(crop string) (*MandiPrice, error) {
	row := r.db.QueryRow(`
		SELECT id, crop, market, date, price_per_quintal, arrivals_quintals, recorded_at
		FROM mandi_prices
		WHERE crop = ?
		ORDER BY date DESC, recorded_at DESC
		LIMIT 1`,
		strings.ToLower(strings.TrimSpace(crop)),
	)

	var p MandiPrice
	err := row.Scan(&p.ID, &p.Crop, &p.Market, &p.Date, &p.PricePerQuintal, &p.ArrivalsQuintals, &p.RecordedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query latest price: %w", err)
	}
	return &p, nil
}

// HistoryForCrop returns up to limit quotes for a crop, newest first.
func (r *Repository) HistoryForCrop(crop string, limit int) ([]MandiPrice, error) {
	if limit <= 0 {
		limit = 90
	}

	rows, err := r.db.Query(`
		SELECT id, crop, market, date, price_per_quintal, arrivals_quintals, recorded_at
		FROM mandi_prices
		WHERE crop = ?
		ORDER BY date DESC, recorded_at DESC
		LIMIT ?`,
		strings.ToLower(strings.TrimSpace(crop)), limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query price history: %w", err)
	}
	defer rows.Close()

	var prices []MandiPrice
	for rows.Next() {
		var p MandiPrice
		if err := rows.Scan(&p.ID, &p.Crop, &p.Market, &p.Date, &p.PricePerQuintal, &p.ArrivalsQuintals, &p.RecordedAt); err != nil {
			return nil, fmt.Errorf("failed to scan mandi price: %w", err)
		}
		prices = append(prices, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating mandi prices: %w", err)
	}
	return prices, nil
}

// SeriesForCrop returns the close series for a crop in chronological order,
// one price per date (the newest quote wins when multiple mandis reported).
// This is the input shape the trend indicators expect.
func (r *Repository) SeriesForCrop(crop string, limit int) ([]float64, error) {
	if limit <= 0 {
		limit = 90
	}

	rows, err := r.db.Query(`
		SELECT price_per_quintal FROM (
			SELECT date, price_per_quintal,
				ROW_NUMBER() OVER (PARTITION BY date ORDER BY recorded_at DESC) AS rn
			FROM mandi_prices
			WHERE crop = ?
		)
		WHERE rn = 1
		ORDER BY date DESC
		LIMIT ?`,
		strings.ToLower(strings.TrimSpace(crop)), limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query price series: %w", err)
	}
	defer rows.Close()

	var descending []float64
	for rows.Next() {
		var v float64
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("failed to scan price: %w", err)
		}
		descending = append(descending, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating price series: %w", err)
	}

	// Flip newest-first into chronological order
	series := make([]float64, len(descending))
	for i, v := range descending {
		series[len(descending)-1-i] = v
	}
	return series, nil
}

// Crops returns the distinct crops with at least one quote, sorted.
func (r *Repository) Crops() ([]string, error) {
	rows, err := r.db.Query(`SELECT DISTINCT crop FROM mandi_prices ORDER BY crop`)
	if err != nil {
		return nil, fmt.Errorf("failed to query crops: %w", err)
	}
	defer rows.Close()

	var crops []string
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, fmt.Errorf("failed to scan crop: %w", err)
		}
		crops = append(crops, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating crops: %w", err)
	}
	return crops, nil
}

// DeleteOlderThan removes quotes dated before cutoff and returns how many
// rows went. Used by the retention job.
func (r *Repository) DeleteOlderThan(cutoff time.Time) (int64, error) {
	res, err := r.db.Exec(`DELETE FROM mandi_prices WHERE date < ?`, cutoff.Format(DateLayout))
	if err != nil {
		return 0, fmt.Errorf("failed to delete old mandi prices: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count deleted mandi prices: %w", err)
	}
	if n > 0 {
		r.log.Debug().Int64("rows", n).Msg("Pruned old mandi prices")
	}
	return n, nil
}
