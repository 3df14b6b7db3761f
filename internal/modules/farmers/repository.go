package farmers

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Repository handles farmer database operations against advisory.db.
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a new farmers repository.
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repo", "farmers").Logger(),
	}
}

const farmerColumns = `id, name, phone, mandal, village, crop, acreage,
	sowing_date, has_cold_storage, created_at, updated_at`

// Create registers a farmer and returns the stored row. A missing ID gets a
// fresh UUID; mandal and crop are stored lowercase so they join cleanly with
// the observation tables.
func (r *Repository) Create(f Farmer) (*Farmer, error) {
	if strings.TrimSpace(f.Name) == "" {
		return nil, fmt.Errorf("name is required")
	}
	if strings.TrimSpace(f.Crop) == "" {
		return nil, fmt.Errorf("crop is required")
	}
	if f.Acreage <= 0 {
		return nil, fmt.Errorf("acreage must be positive, got %v", f.Acreage)
	}

	if f.ID == "" {
		f.ID = uuid.New().String()
	}
	f.Mandal = strings.ToLower(strings.TrimSpace(f.Mandal))
	f.Crop = strings.ToLower(strings.TrimSpace(f.Crop))

	_, err := r.db.Exec(`
		INSERT INTO farmers (id, name, phone, mandal, village, crop, acreage,
			sowing_date, has_cold_storage, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, datetime('now'), datetime('now'))`,
		f.ID, strings.TrimSpace(f.Name), f.Phone, f.Mandal, f.Village, f.Crop,
		f.Acreage, f.SowingDate, boolToInt(f.HasColdStorage),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create farmer: %w", err)
	}

	r.log.Info().Str("farmer_id", f.ID).Str("crop", f.Crop).Msg("Registered farmer")
	return r.GetByID(f.ID)
}

// GetByID returns a farmer, or nil when the id is unknown.
func (r *Repository) GetByID(id string) (*Farmer, error) {
	row := r.db.QueryRow(`SELECT `+farmerColumns+` FROM farmers WHERE id = ?`, id)

	f, err := scanFarmer(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query farmer: %w", err)
	}
	return f, nil
}

// List returns up to limit farmers, newest registrations first. A
// non-positive limit returns everyone.
func (r *Repository) List(limit int) ([]Farmer, error) {
	if limit <= 0 {
		limit = -1 // SQLite: no limit
	}

	rows, err := r.db.Query(`SELECT `+farmerColumns+` FROM farmers
		ORDER BY created_at DESC, id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query farmers: %w", err)
	}
	defer rows.Close()

	var farmers []Farmer
	for rows.Next() {
		f, err := scanFarmer(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan farmer: %w", err)
		}
		farmers = append(farmers, *f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating farmers: %w", err)
	}
	return farmers, nil
}

// ListByCrop returns farmers growing the given crop.
func (r *Repository) ListByCrop(crop string) ([]Farmer, error) {
	rows, err := r.db.Query(`SELECT `+farmerColumns+` FROM farmers
		WHERE crop = ? ORDER BY created_at DESC, id`,
		strings.ToLower(strings.TrimSpace(crop)))
	if err != nil {
		return nil, fmt.Errorf("failed to query farmers by crop: %w", err)
	}
	defer rows.Close()

	var farmers []Farmer
	for rows.Next() {
		f, err := scanFarmer(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan farmer: %w", err)
		}
		farmers = append(farmers, *f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating farmers: %w", err)
	}
	return farmers, nil
}

// Update rewrites a farmer's mutable fields. Returns the stored row, or nil
// when the id is unknown.
func (r *Repository) Update(f Farmer) (*Farmer, error) {
	if f.ID == "" {
		return nil, fmt.Errorf("id is required")
	}
	if f.Acreage <= 0 {
		return nil, fmt.Errorf("acreage must be positive, got %v", f.Acreage)
	}

	res, err := r.db.Exec(`
		UPDATE farmers SET name = ?, phone = ?, mandal = ?, village = ?,
			crop = ?, acreage = ?, sowing_date = ?, has_cold_storage = ?,
			updated_at = datetime('now')
		WHERE id = ?`,
		strings.TrimSpace(f.Name), f.Phone,
		strings.ToLower(strings.TrimSpace(f.Mandal)), f.Village,
		strings.ToLower(strings.TrimSpace(f.Crop)), f.Acreage,
		f.SowingDate, boolToInt(f.HasColdStorage), f.ID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to update farmer: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, nil
	}
	return r.GetByID(f.ID)
}

// Delete removes a farmer. Advisory reports cascade via the schema.
func (r *Repository) Delete(id string) (bool, error) {
	res, err := r.db.Exec(`DELETE FROM farmers WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete farmer: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to count deleted farmers: %w", err)
	}
	return n > 0, nil
}

// CountByCrop returns registration counts per crop, largest first.
func (r *Repository) CountByCrop() ([]CropCount, error) {
	rows, err := r.db.Query(`SELECT crop, COUNT(*) FROM farmers
		GROUP BY crop ORDER BY COUNT(*) DESC, crop`)
	if err != nil {
		return nil, fmt.Errorf("failed to count farmers by crop: %w", err)
	}
	defer rows.Close()

	var counts []CropCount
	for rows.Next() {
		var c CropCount
		if err := rows.Scan(&c.Crop, &c.Count); err != nil {
			return nil, fmt.Errorf("failed to scan crop count: %w", err)
		}
		counts = append(counts, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating crop counts: %w", err)
	}
	return counts, nil
}

// CountByMandal returns registration counts per mandal, largest first.
func (r *Repository) CountByMandal() ([]MandalCount, error) {
	rows, err := r.db.Query(`SELECT mandal, COUNT(*) FROM farmers
		GROUP BY mandal ORDER BY COUNT(*) DESC, mandal`)
	if err != nil {
		return nil, fmt.Errorf("failed to count farmers by mandal: %w", err)
	}
	defer rows.Close()

	var counts []MandalCount
	for rows.Next() {
		var c MandalCount
		if err := rows.Scan(&c.Mandal, &c.Count); err != nil {
			return nil, fmt.Errorf("failed to scan mandal count: %w", err)
		}
		counts = append(counts, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating mandal counts: %w", err)
	}
	return counts, nil
}

// Count returns the total number of registered farmers.
func (r *Repository) Count() (int, error) {
	var n int
	if err := r.db.QueryRow(`SELECT COUNT(*) FROM farmers`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count farmers: %w", err)
	}
	return n, nil
}

// rowScanner abstracts *sql.Row and *sql.Rows for scanFarmer.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanFarmer(row rowScanner) (*Farmer, error) {
	var f Farmer
	var coldStorage int
	err := row.Scan(&f.ID, &f.Name, &f.Phone, &f.Mandal, &f.Village, &f.Crop,
		&f.Acreage, &f.SowingDate, &coldStorage, &f.CreatedAt, &f.UpdatedAt)
	if err != nil {
		return nil, err
	}
	f.HasColdStorage = coldStorage != 0
	return &f, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
