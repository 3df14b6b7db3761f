package reliability

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/agrisage/agrisage/internal/database"
)

// BackupService snapshots the SQLite databases into a tar.gz archive with a
// manifest and ships it to object storage.
type BackupService struct {
	databases map[string]*database.DB
	store     ObjectStore
	dataDir   string
	retain    int
	log       zerolog.Logger
}

// NewBackupService creates a new backup service. retain is the number of
// remote archives kept after each upload.
func NewBackupService(
	databases map[string]*database.DB,
	store ObjectStore,
	dataDir string,
	retain int,
	log zerolog.Logger,
) *BackupService {
	return &BackupService{
		databases: databases,
		store:     store,
		dataDir:   dataDir,
		retain:    retain,
		log:       log.With().Str("service", "backup").Logger(),
	}
}

// ArchiveInfo describes a remote archive for listings.
type ArchiveInfo struct {
	Filename  string    `json:"filename"`
	Timestamp time.Time `json:"timestamp"`
	SizeBytes int64     `json:"size_bytes"`
	AgeHours  int64     `json:"age_hours"`
}

// CreateAndUpload snapshots every database, packs the snapshots and a
// manifest into an archive, uploads it, and rotates old remote archives.
// Returns the uploaded archive's filename.
func (s *BackupService) CreateAndUpload(ctx context.Context) (string, error) {
	s.log.Info().Msg("Starting backup")
	startTime := time.Now()

	stagingDir := filepath.Join(s.dataDir, "backup-staging")
	if err := os.MkdirAll(stagingDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create staging directory: %w", err)
	}
	defer os.RemoveAll(stagingDir)

	manifest := Manifest{
		ID:        uuid.New().String(),
		CreatedAt: startTime.UTC(),
	}

	names := make([]string, 0, len(s.databases))
	for name := range s.databases {
		names = append(names, name)
	}
	sort.Strings(names)

	files := make([]string, 0, len(names)+1)
	for _, name := range names {
		filename := name + ".db"
		snapshotPath := filepath.Join(stagingDir, filename)

		s.log.Debug().Str("database", name).Msg("Snapshotting database")

		if err := s.snapshotDatabase(name, snapshotPath); err != nil {
			return "", fmt.Errorf("failed to snapshot %s: %w", name, err)
		}

		info, err := os.Stat(snapshotPath)
		if err != nil {
			return "", fmt.Errorf("failed to stat %s snapshot: %w", name, err)
		}

		checksum, err := checksumFile(snapshotPath)
		if err != nil {
			return "", fmt.Errorf("failed to checksum %s snapshot: %w", name, err)
		}

		manifest.Databases = append(manifest.Databases, ArchiveEntry{
			Name:      name,
			Filename:  filename,
			SizeBytes: info.Size(),
			Checksum:  checksum,
		})
		files = append(files, filename)
	}

	if err := writeManifest(filepath.Join(stagingDir, manifestFilename), manifest); err != nil {
		return "", fmt.Errorf("failed to write manifest: %w", err)
	}
	files = append(files, manifestFilename)

	name := archiveName(startTime)
	archivePath := filepath.Join(stagingDir, name)
	if err := writeArchive(archivePath, stagingDir, files); err != nil {
		return "", fmt.Errorf("failed to create archive: %w", err)
	}

	archiveInfo, err := os.Stat(archivePath)
	if err != nil {
		return "", fmt.Errorf("failed to stat archive: %w", err)
	}

	f, err := os.Open(archivePath)
	if err != nil {
		return "", fmt.Errorf("failed to open archive: %w", err)
	}
	defer f.Close()

	if err := s.store.Upload(ctx, name, f); err != nil {
		return "", fmt.Errorf("failed to upload archive: %w", err)
	}

	if err := s.rotate(ctx); err != nil {
		s.log.Warn().Err(err).Msg("Failed to rotate old archives")
	}

	s.log.Info().
		Dur("duration_ms", time.Since(startTime)).
		Str("archive", name).
		Int64("size_bytes", archiveInfo.Size()).
		Msg("Backup uploaded")

	return name, nil
}

// ListArchives lists remote archives, newest first.
func (s *BackupService) ListArchives(ctx context.Context) ([]ArchiveInfo, error) {
	objects, err := s.store.List(ctx, archivePrefix)
	if err != nil {
		return nil, fmt.Errorf("failed to list archives: %w", err)
	}

	now := time.Now()
	archives := make([]ArchiveInfo, 0, len(objects))
	for _, obj := range objects {
		ts, ok := parseArchiveTime(obj.Key)
		if !ok {
			s.log.Warn().Str("key", obj.Key).Msg("Skipping object with unrecognized name")
			continue
		}

		archives = append(archives, ArchiveInfo{
			Filename:  obj.Key,
			Timestamp: ts,
			SizeBytes: obj.SizeBytes,
			AgeHours:  int64(now.Sub(ts).Hours()),
		})
	}

	sort.Slice(archives, func(i, j int) bool {
		return archives[i].Timestamp.After(archives[j].Timestamp)
	})

	return archives, nil
}

// rotate deletes remote archives beyond the retain count, oldest first.
func (s *BackupService) rotate(ctx context.Context) error {
	if s.retain < 1 {
		return nil
	}

	archives, err := s.ListArchives(ctx)
	if err != nil {
		return err
	}

	deleted := 0
	for i := s.retain; i < len(archives); i++ {
		if err := s.store.Delete(ctx, archives[i].Filename); err != nil {
			s.log.Warn().Err(err).Str("archive", archives[i].Filename).Msg("Failed to delete old archive")
			continue
		}
		deleted++
	}

	if deleted > 0 {
		s.log.Info().
			Int("deleted", deleted).
			Int("remaining", len(archives)-deleted).
			Msg("Rotated old archives")
	}

	return nil
}

// snapshotDatabase copies one database with VACUUM INTO and verifies the
// copy. VACUUM INTO gives a consistent snapshot without blocking writers.
func (s *BackupService) snapshotDatabase(name, destPath string) error {
	db, ok := s.databases[name]
	if !ok || db == nil {
		return fmt.Errorf("database %s not found", name)
	}

	if _, err := db.Conn().Exec(fmt.Sprintf("VACUUM INTO '%s'", destPath)); err != nil {
		return fmt.Errorf("VACUUM INTO failed: %w", err)
	}

	if err := verifySnapshot(destPath); err != nil {
		os.Remove(destPath)
		return err
	}

	return nil
}

// verifySnapshot opens a snapshot and runs a SQLite integrity check.
func verifySnapshot(path string) error {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return fmt.Errorf("failed to open snapshot: %w", err)
	}
	defer db.Close()

	var result string
	if err := db.QueryRow("PRAGMA integrity_check").Scan(&result); err != nil {
		return fmt.Errorf("integrity check query failed: %w", err)
	}
	if result != "ok" {
		return fmt.Errorf("integrity check failed: %s", result)
	}

	return nil
}
