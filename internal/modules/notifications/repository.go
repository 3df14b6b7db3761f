package notifications

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Repository handles notification database operations against advisory.db.
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a new notifications repository.
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repo", "notifications").Logger(),
	}
}

// Create stores an alert and returns its id.
func (r *Repository) Create(kind Kind, crop, mandal, message string) (string, error) {
	if strings.TrimSpace(message) == "" {
		return "", fmt.Errorf("message is required")
	}
	switch kind {
	case KindPriceAlert, KindAdvisory, KindSystem:
	default:
		return "", fmt.Errorf("unknown notification kind %q", kind)
	}

	id := uuid.New().String()
	_, err := r.db.Exec(`
		INSERT INTO notifications (id, kind, crop, mandal, message, read, created_at)
		VALUES (?, ?, ?, ?, ?, 0, datetime('now'))`,
		id, string(kind), strings.ToLower(strings.TrimSpace(crop)),
		strings.ToLower(strings.TrimSpace(mandal)), message,
	)
	if err != nil {
		return "", fmt.Errorf("failed to create notification: %w", err)
	}

	r.log.Debug().Str("kind", string(kind)).Str("crop", crop).Msg("Raised notification")
	return id, nil
}

// List returns up to limit notifications, newest first.
func (r *Repository) List(limit int) ([]Notification, error) {
	return r.list(`SELECT id, kind, crop, mandal, message, read, created_at
		FROM notifications ORDER BY created_at DESC, id LIMIT ?`, limit)
}

// Unread returns up to limit unread notifications, newest first.
func (r *Repository) Unread(limit int) ([]Notification, error) {
	return r.list(`SELECT id, kind, crop, mandal, message, read, created_at
		FROM notifications WHERE read = 0 ORDER BY created_at DESC, id LIMIT ?`, limit)
}

func (r *Repository) list(query string, limit int) ([]Notification, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := r.db.Query(query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query notifications: %w", err)
	}
	defer rows.Close()

	var items []Notification
	for rows.Next() {
		var n Notification
		var read int
		if err := rows.Scan(&n.ID, &n.Kind, &n.Crop, &n.Mandal, &n.Message, &read, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan notification: %w", err)
		}
		n.Read = read != 0
		items = append(items, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating notifications: %w", err)
	}
	return items, nil
}

// MarkRead flags one notification as read. Returns false when the id is
// unknown.
func (r *Repository) MarkRead(id string) (bool, error) {
	res, err := r.db.Exec(`UPDATE notifications SET read = 1 WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("failed to mark notification read: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to count marked notifications: %w", err)
	}
	return n > 0, nil
}

// MarkAllRead flags every unread notification as read and returns how many
// flipped.
func (r *Repository) MarkAllRead() (int64, error) {
	res, err := r.db.Exec(`UPDATE notifications SET read = 1 WHERE read = 0`)
	if err != nil {
		return 0, fmt.Errorf("failed to mark notifications read: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count marked notifications: %w", err)
	}
	return n, nil
}

// CountUnread returns the number of unread notifications.
func (r *Repository) CountUnread() (int, error) {
	var n int
	if err := r.db.QueryRow(`SELECT COUNT(*) FROM notifications WHERE read = 0`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count unread notifications: %w", err)
	}
	return n, nil
}

// HasToday reports whether a notification of this kind for this crop was
// already raised today. The price-alert job uses it to avoid repeating
// itself on every run.
func (r *Repository) HasToday(kind Kind, crop string) (bool, error) {
	var n int
	err := r.db.QueryRow(`
		SELECT COUNT(*) FROM notifications
		WHERE kind = ? AND crop = ? AND created_at >= date('now')`,
		string(kind), strings.ToLower(strings.TrimSpace(crop)),
	).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("failed to check notifications: %w", err)
	}
	return n > 0, nil
}

// DeleteOlderThan removes read notifications created before cutoff, keeping
// unread ones regardless of age. Used by the retention job.
func (r *Repository) DeleteOlderThan(cutoff time.Time) (int64, error) {
	res, err := r.db.Exec(`DELETE FROM notifications WHERE read = 1 AND created_at < ?`,
		cutoff.UTC().Format("2006-01-02 15:04:05"))
	if err != nil {
		return 0, fmt.Errorf("failed to delete old notifications: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count deleted notifications: %w", err)
	}
	return n, nil
}
