package reliability

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
)

const restoreStagingDir = "restore-staging"

// ErrInvalidArchiveName marks a stage request whose filename is not a
// backup archive produced by this service.
var ErrInvalidArchiveName = errors.New("invalid archive name")

// RestoreService applies staged backup archives before the databases open.
// Operators drop an archive into <dataDir>/restore-staging (or stage a
// remote one with Fetch) and restart; the swap happens at startup, when
// nothing holds the database files open.
type RestoreService struct {
	store   ObjectStore // nil when backups are disabled
	dataDir string
	log     zerolog.Logger
}

// NewRestoreService creates a new restore service.
func NewRestoreService(store ObjectStore, dataDir string, log zerolog.Logger) *RestoreService {
	return &RestoreService{
		store:   store,
		dataDir: dataDir,
		log:     log.With().Str("service", "restore").Logger(),
	}
}

// StagingDir returns the staging directory path.
func (s *RestoreService) StagingDir() string {
	return filepath.Join(s.dataDir, restoreStagingDir)
}

// Fetch downloads a remote archive into the staging directory. The databases
// are swapped on the next startup.
func (s *RestoreService) Fetch(ctx context.Context, filename string) error {
	if s.store == nil {
		return fmt.Errorf("no object store configured")
	}
	if _, ok := parseArchiveTime(filename); !ok || filepath.Base(filename) != filename {
		return fmt.Errorf("%w: %s", ErrInvalidArchiveName, filename)
	}

	stagingDir := s.StagingDir()
	if err := os.MkdirAll(stagingDir, 0755); err != nil {
		return fmt.Errorf("failed to create staging directory: %w", err)
	}

	destPath := filepath.Join(stagingDir, filename)
	f, err := os.Create(destPath)
	if err != nil {
		return fmt.Errorf("failed to create staged archive: %w", err)
	}

	n, err := s.store.Download(ctx, filename, f)
	closeErr := f.Close()
	if err != nil {
		os.Remove(destPath)
		return fmt.Errorf("failed to download archive: %w", err)
	}
	if closeErr != nil {
		os.Remove(destPath)
		return fmt.Errorf("failed to finish staged archive: %w", closeErr)
	}

	s.log.Info().
		Str("archive", filename).
		Int64("size_bytes", n).
		Msg("Archive staged; restore applies on next startup")

	return nil
}

// ApplyStaged looks for a staged archive, verifies it against its manifest,
// and swaps its databases into the data directory. Must run before the
// databases are opened. Returns true when a restore was applied.
func (s *RestoreService) ApplyStaged() (bool, error) {
	stagingDir := s.StagingDir()

	entries, err := os.ReadDir(stagingDir)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to read staging directory: %w", err)
	}

	// The timestamp in the name sorts lexicographically, newest wins
	var candidates []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if _, ok := parseArchiveTime(entry.Name()); !ok {
			continue
		}
		candidates = append(candidates, entry.Name())
	}
	if len(candidates) == 0 {
		return false, nil
	}

	archive := candidates[0]
	for _, name := range candidates[1:] {
		if name > archive {
			archive = name
		}
	}

	archivePath := filepath.Join(stagingDir, archive)
	s.log.Warn().Str("archive", archive).Msg("Staged archive found, restoring databases")

	if err := s.apply(archivePath); err != nil {
		// Set the bad archive aside so the next startup is not blocked
		if renameErr := os.Rename(archivePath, archivePath+".rejected"); renameErr != nil {
			s.log.Warn().Err(renameErr).Msg("Failed to set aside rejected archive")
		}
		return false, fmt.Errorf("failed to restore from %s: %w", archive, err)
	}

	// Superseded staged archives go too, or an older one would be applied
	// on a later restart
	for _, name := range candidates {
		if err := os.Remove(filepath.Join(stagingDir, name)); err != nil && !os.IsNotExist(err) {
			s.log.Warn().Err(err).Str("archive", name).Msg("Failed to remove staged archive")
		}
	}

	s.log.Info().Str("archive", archive).Msg("Restore applied")
	return true, nil
}

// apply extracts an archive, verifies every database against the manifest,
// and swaps the files into place. Verification happens before any live file
// is touched.
func (s *RestoreService) apply(archivePath string) error {
	extractDir := filepath.Join(s.StagingDir(), "extract")
	if err := os.RemoveAll(extractDir); err != nil {
		return fmt.Errorf("failed to clear extract directory: %w", err)
	}
	if err := os.MkdirAll(extractDir, 0755); err != nil {
		return fmt.Errorf("failed to create extract directory: %w", err)
	}
	defer os.RemoveAll(extractDir)

	if err := extractArchive(archivePath, extractDir); err != nil {
		return err
	}

	manifest, err := readManifest(filepath.Join(extractDir, manifestFilename))
	if err != nil {
		return fmt.Errorf("failed to read manifest: %w", err)
	}
	if len(manifest.Databases) == 0 {
		return fmt.Errorf("manifest lists no databases")
	}

	for _, entry := range manifest.Databases {
		path := filepath.Join(extractDir, entry.Filename)

		info, err := os.Stat(path)
		if err != nil {
			return fmt.Errorf("archive is missing %s: %w", entry.Filename, err)
		}
		if info.Size() != entry.SizeBytes {
			return fmt.Errorf("%s size mismatch: manifest says %d, archive has %d",
				entry.Filename, entry.SizeBytes, info.Size())
		}

		checksum, err := checksumFile(path)
		if err != nil {
			return fmt.Errorf("failed to checksum %s: %w", entry.Filename, err)
		}
		if checksum != entry.Checksum {
			return fmt.Errorf("%s checksum mismatch", entry.Filename)
		}

		if err := verifySnapshot(path); err != nil {
			return fmt.Errorf("%s failed verification: %w", entry.Filename, err)
		}
	}

	for _, entry := range manifest.Databases {
		if err := s.swapDatabase(entry.Filename, filepath.Join(extractDir, entry.Filename)); err != nil {
			return err
		}
	}

	return nil
}

// swapDatabase moves a restored file into place, keeping the previous
// database as <name>.pre-restore.
func (s *RestoreService) swapDatabase(filename, restoredPath string) error {
	livePath := filepath.Join(s.dataDir, filename)

	if _, err := os.Stat(livePath); err == nil {
		keepPath := livePath + ".pre-restore"
		os.Remove(keepPath)
		if err := os.Rename(livePath, keepPath); err != nil {
			return fmt.Errorf("failed to set aside %s: %w", filename, err)
		}
	}

	// Stale WAL or SHM files would shadow the restored data
	os.Remove(livePath + "-wal")
	os.Remove(livePath + "-shm")

	if err := os.Rename(restoredPath, livePath); err != nil {
		return fmt.Errorf("failed to move %s into place: %w", filename, err)
	}

	s.log.Info().Str("database", filename).Msg("Database file restored")
	return nil
}
