// Package snapshots keeps the advisory history as msgpack blobs in the
// cache database. Every generated report lands here before the current
// report row is overwritten, so the trail of past advice survives.
package snapshots

import (
	"database/sql"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/vmihailenco/msgpack/v5"
)

// Snapshot is one archived advisory payload.
type Snapshot struct {
	ID        int64  `json:"id"`
	FarmerID  string `json:"farmer_id"`
	Crop      string `json:"crop"`
	Payload   []byte `json:"-"`
	CreatedAt string `json:"created_at"`
}

// Decode unmarshals the payload into out.
func (s Snapshot) Decode(out interface{}) error {
	if err := msgpack.Unmarshal(s.Payload, out); err != nil {
		return fmt.Errorf("failed to decode snapshot %d: %w", s.ID, err)
	}
	return nil
}

// Repository handles snapshot database operations against cache.db.
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a new snapshots repository.
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repo", "snapshots").Logger(),
	}
}

// Save msgpack-encodes v and appends it to the farmer's history.
func (r *Repository) Save(farmerID, crop string, v interface{}) error {
	if farmerID == "" {
		return fmt.Errorf("farmer id is required")
	}

	payload, err := msgpack.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}

	_, err = r.db.Exec(`
		INSERT INTO advisory_snapshots (farmer_id, crop, payload, created_at)
		VALUES (?, ?, ?, datetime('now'))`,
		farmerID, crop, payload,
	)
	if err != nil {
		return fmt.Errorf("failed to save snapshot: %w", err)
	}
	return nil
}

// ListForFarmer returns up to limit snapshots for a farmer, newest first.
// Payloads come back encoded; call Decode per snapshot.
func (r *Repository) ListForFarmer(farmerID string, limit int) ([]Snapshot, error) {
	if limit <= 0 {
		limit = 30
	}

	rows, err := r.db.Query(`
		SELECT id, farmer_id, crop, payload, created_at
		FROM advisory_snapshots
		WHERE farmer_id = ?
		ORDER BY created_at DESC, id DESC
		LIMIT ?`,
		farmerID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query snapshots: %w", err)
	}
	defer rows.Close()

	var snaps []Snapshot
	for rows.Next() {
		var s Snapshot
		if err := rows.Scan(&s.ID, &s.FarmerID, &s.Crop, &s.Payload, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan snapshot: %w", err)
		}
		snaps = append(snaps, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating snapshots: %w", err)
	}
	return snaps, nil
}

// Count returns the total number of stored snapshots.
func (r *Repository) Count() (int, error) {
	var n int
	if err := r.db.QueryRow(`SELECT COUNT(*) FROM advisory_snapshots`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count snapshots: %w", err)
	}
	return n, nil
}

// Prune keeps the newest keepPerFarmer snapshots per farmer and deletes the
// rest. Returns how many rows went. Used by the maintenance job.
func (r *Repository) Prune(keepPerFarmer int) (int64, error) {
	if keepPerFarmer < 1 {
		return 0, fmt.Errorf("keepPerFarmer must be at least 1, got %d", keepPerFarmer)
	}

	res, err := r.db.Exec(`
		DELETE FROM advisory_snapshots WHERE id IN (
			SELECT id FROM (
				SELECT id, ROW_NUMBER() OVER (
					PARTITION BY farmer_id
					ORDER BY created_at DESC, id DESC
				) AS rn
				FROM advisory_snapshots
			)
			WHERE rn > ?
		)`,
		keepPerFarmer,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to prune snapshots: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count pruned snapshots: %w", err)
	}
	if n > 0 {
		r.log.Debug().Int64("rows", n).Int("keep", keepPerFarmer).Msg("Pruned advisory snapshots")
	}
	return n, nil
}
