package weather

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Repository handles weather sample database operations against history.db.
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a new weather repository.
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repo", "weather").Logger(),
	}
}

// Record inserts a sample, replacing any earlier observation for the same
// mandal and date. Mandal names are stored lowercase so lookups are
// case-insensitive.
func (r *Repository) Record(s Sample) error {
	if s.Mandal == "" {
		return fmt.Errorf("mandal is required")
	}
	if s.Date == "" {
		s.Date = time.Now().Format(DateLayout)
	}
	if _, err := time.Parse(DateLayout, s.Date); err != nil {
		return fmt.Errorf("invalid date %q: %w", s.Date, err)
	}

	_, err := r.db.Exec(`
		INSERT INTO weather_samples (mandal, date, rainfall_mm, temperature_c, humidity_pct, recorded_at)
		VALUES (?, ?, ?, ?, ?, datetime('now'))
		ON CONFLICT(mandal, date) DO UPDATE SET
			rainfall_mm = excluded.rainfall_mm,
			temperature_c = excluded.temperature_c,
			humidity_pct = excluded.humidity_pct,
			recorded_at = excluded.recorded_at`,
		strings.ToLower(strings.TrimSpace(s.Mandal)), s.Date,
		s.RainfallMM, s.TemperatureC, s.HumidityPct,
	)
	if err != nil {
		return fmt.Errorf("failed to record weather sample: %w", err)
	}
	return nil
}

// LatestForMandal returns the most recent sample for a mandal, or nil when
// nothing has been recorded yet.
func (r *Repository) LatestForMandal(mandal string) (*Sample, error) {
	row := r.db.QueryRow(`
		SELECT id, mandal, date, rainfall_mm, temperature_c, humidity_pct, recorded_at
		FROM weather_samples
		WHERE mandal = ?
		ORDER BY date DESC
		LIMIT 1`,
		strings.ToLower(strings.TrimSpace(mandal)),
	)

	var s Sample
	err := row.Scan(&s.ID, &s.Mandal, &s.Date, &s.RainfallMM, &s.TemperatureC, &s.HumidityPct, &s.RecordedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query latest weather: %w", err)
	}
	return &s, nil
}

// ListForMandal returns up to limit samples for a mandal, newest first.
func (r *Repository) ListForMandal(mandal string, limit int) ([]Sample, error) {
	if limit <= 0 {
		limit = 30
	}

	rows, err := r.db.Query(`
		SELECT id, mandal, date, rainfall_mm, temperature_c, humidity_pct, recorded_at
		FROM weather_samples
		WHERE mandal = ?
		ORDER BY date DESC
		LIMIT ?`,
		strings.ToLower(strings.TrimSpace(mandal)), limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query weather samples: %w", err)
	}
	defer rows.Close()

	var samples []Sample
	for rows.Next() {
		var s Sample
		if err := rows.Scan(&s.ID, &s.Mandal, &s.Date, &s.RainfallMM, &s.TemperatureC, &s.HumidityPct, &s.RecordedAt); err != nil {
			return nil, fmt.Errorf("failed to scan weather sample: %w", err)
		}
		samples = append(samples, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating weather samples: %w", err)
	}
	return samples, nil
}

// Mandals returns the distinct mandals with at least one sample, sorted.
func (r *Repository) Mandals() ([]string, error) {
	rows, err := r.db.Query(`SELECT DISTINCT mandal FROM weather_samples ORDER BY mandal`)
	if err != nil {
		return nil, fmt.Errorf("failed to query mandals: %w", err)
	}
	defer rows.Close()

	var mandals []string
	for rows.Next() {
		var m string
		if err := rows.Scan(&m); err != nil {
			return nil, fmt.Errorf("failed to scan mandal: %w", err)
		}
		mandals = append(mandals, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating mandals: %w", err)
	}
	return mandals, nil
}

// DeleteOlderThan removes samples dated before cutoff and returns how many
// rows went. Used by the retention job.
func (r *Repository) DeleteOlderThan(cutoff time.Time) (int64, error) {
	res, err := r.db.Exec(`DELETE FROM weather_samples WHERE date < ?`, cutoff.Format(DateLayout))
	if err != nil {
		return 0, fmt.Errorf("failed to delete old weather samples: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count deleted weather samples: %w", err)
	}
	if n > 0 {
		r.log.Debug().Int64("rows", n).Msg("Pruned old weather samples")
	}
	return n, nil
}
