package reliability

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite" // SQLite driver

	"github.com/agrisage/agrisage/internal/database"
	"github.com/agrisage/agrisage/pkg/logger"
)

// fakeStore is an in-memory ObjectStore for tests.
type fakeStore struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func newFakeStore() *fakeStore {
	return &fakeStore{objects: make(map[string][]byte)}
}

func (f *fakeStore) Upload(_ context.Context, key string, body io.Reader) error {
	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[key] = data
	return nil
}

func (f *fakeStore) Download(_ context.Context, key string, w io.WriterAt) (int64, error) {
	f.mu.Lock()
	data, ok := f.objects[key]
	f.mu.Unlock()
	if !ok {
		return 0, fmt.Errorf("object %s not found", key)
	}
	n, err := w.WriteAt(data, 0)
	return int64(n), err
}

func (f *fakeStore) List(_ context.Context, prefix string) ([]ObjectInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []ObjectInfo
	for key, data := range f.objects {
		if strings.HasPrefix(key, prefix) {
			out = append(out, ObjectInfo{Key: key, SizeBytes: int64(len(data))})
		}
	}
	return out, nil
}

func (f *fakeStore) Delete(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.objects, key)
	return nil
}

func (f *fakeStore) get(key string) ([]byte, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.objects[key]
	return data, ok
}

// newBackupTestDB creates a database at dataDir/<name>.db with a couple of rows.
func newBackupTestDB(t *testing.T, dataDir, name string) *database.DB {
	t.Helper()

	db, err := database.New(database.Config{
		Path:    filepath.Join(dataDir, name+".db"),
		Profile: database.ProfileStandard,
		Name:    name,
	})
	require.NoError(t, err)

	_, err = db.Conn().Exec("CREATE TABLE observations (id INTEGER PRIMARY KEY, mandal TEXT)")
	require.NoError(t, err)
	_, err = db.Conn().Exec("INSERT INTO observations (mandal) VALUES ('kankipadu'), ('gudivada')")
	require.NoError(t, err)

	return db
}

func countObservations(t *testing.T, path string) int {
	t.Helper()

	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	defer db.Close()

	var count int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM observations").Scan(&count))
	return count
}

func TestBackupService_CreateAndUpload(t *testing.T) {
	log := logger.New(logger.Config{Level: "error", Pretty: false})

	tempDir := t.TempDir()
	dataDir := filepath.Join(tempDir, "data")
	require.NoError(t, os.MkdirAll(dataDir, 0755))

	advisoryDB := newBackupTestDB(t, dataDir, "advisory")
	defer advisoryDB.Close()
	historyDB := newBackupTestDB(t, dataDir, "history")
	defer historyDB.Close()

	store := newFakeStore()
	svc := NewBackupService(map[string]*database.DB{
		"advisory": advisoryDB,
		"history":  historyDB,
	}, store, dataDir, 14, log)

	name, err := svc.CreateAndUpload(context.Background())
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(name, archivePrefix))
	assert.True(t, strings.HasSuffix(name, ".tar.gz"))

	// Staging directory is cleaned up after the run
	_, err = os.Stat(filepath.Join(dataDir, "backup-staging"))
	assert.True(t, os.IsNotExist(err))

	data, ok := store.get(name)
	require.True(t, ok, "archive should be in the store")
	require.NotEmpty(t, data)

	// Unpack the uploaded archive and check it against its own manifest
	archivePath := filepath.Join(tempDir, name)
	require.NoError(t, os.WriteFile(archivePath, data, 0644))

	extractDir := filepath.Join(tempDir, "extracted")
	require.NoError(t, os.MkdirAll(extractDir, 0755))
	require.NoError(t, extractArchive(archivePath, extractDir))

	manifest, err := readManifest(filepath.Join(extractDir, manifestFilename))
	require.NoError(t, err)
	require.Len(t, manifest.Databases, 2)
	assert.NotEmpty(t, manifest.ID)
	assert.Equal(t, "advisory", manifest.Databases[0].Name)
	assert.Equal(t, "history", manifest.Databases[1].Name)

	for _, entry := range manifest.Databases {
		path := filepath.Join(extractDir, entry.Filename)

		info, err := os.Stat(path)
		require.NoError(t, err)
		assert.Equal(t, entry.SizeBytes, info.Size())

		checksum, err := checksumFile(path)
		require.NoError(t, err)
		assert.Equal(t, entry.Checksum, checksum)

		require.NoError(t, verifySnapshot(path))
	}

	// Snapshot content matches the live database at backup time
	assert.Equal(t, 2, countObservations(t, filepath.Join(extractDir, "advisory.db")))
}

func TestBackupService_Rotation(t *testing.T) {
	log := logger.New(logger.Config{Level: "error", Pretty: false})

	tempDir := t.TempDir()
	dataDir := filepath.Join(tempDir, "data")
	require.NoError(t, os.MkdirAll(dataDir, 0755))

	advisoryDB := newBackupTestDB(t, dataDir, "advisory")
	defer advisoryDB.Close()

	store := newFakeStore()
	store.objects[archivePrefix+"2025-01-01-030000.tar.gz"] = []byte("old-1")
	store.objects[archivePrefix+"2025-01-02-030000.tar.gz"] = []byte("old-2")
	store.objects[archivePrefix+"2025-01-03-030000.tar.gz"] = []byte("old-3")
	store.objects["notes.txt"] = []byte("unrelated")

	svc := NewBackupService(map[string]*database.DB{"advisory": advisoryDB}, store, dataDir, 2, log)

	name, err := svc.CreateAndUpload(context.Background())
	require.NoError(t, err)

	archives, err := svc.ListArchives(context.Background())
	require.NoError(t, err)
	require.Len(t, archives, 2, "rotation should keep the two newest archives")
	assert.Equal(t, name, archives[0].Filename)
	assert.Equal(t, archivePrefix+"2025-01-03-030000.tar.gz", archives[1].Filename)

	// Rotation only touches backup archives
	_, ok := store.get("notes.txt")
	assert.True(t, ok)
}

func TestBackupService_ListArchives(t *testing.T) {
	log := logger.New(logger.Config{Level: "error", Pretty: false})

	store := newFakeStore()
	store.objects[archivePrefix+"2025-03-01-030000.tar.gz"] = []byte("a")
	store.objects[archivePrefix+"2025-05-01-030000.tar.gz"] = []byte("bb")
	store.objects[archivePrefix+"2025-04-01-030000.tar.gz"] = []byte("ccc")
	store.objects[archivePrefix+"badstamp.tar.gz"] = []byte("junk")

	svc := NewBackupService(nil, store, t.TempDir(), 14, log)

	archives, err := svc.ListArchives(context.Background())
	require.NoError(t, err)
	require.Len(t, archives, 3, "unparseable names are skipped")

	assert.Equal(t, archivePrefix+"2025-05-01-030000.tar.gz", archives[0].Filename)
	assert.Equal(t, archivePrefix+"2025-04-01-030000.tar.gz", archives[1].Filename)
	assert.Equal(t, archivePrefix+"2025-03-01-030000.tar.gz", archives[2].Filename)

	assert.Equal(t, int64(2), archives[0].SizeBytes)
	assert.Greater(t, archives[0].AgeHours, int64(0))
	assert.Equal(t, time.Date(2025, 5, 1, 3, 0, 0, 0, time.UTC), archives[0].Timestamp)
}

func TestRestoreService_ApplyStaged(t *testing.T) {
	log := logger.New(logger.Config{Level: "error", Pretty: false})

	t.Run("restores staged archive", func(t *testing.T) {
		dataDir := t.TempDir()

		advisoryDB := newBackupTestDB(t, dataDir, "advisory")
		store := newFakeStore()
		svc := NewBackupService(map[string]*database.DB{"advisory": advisoryDB}, store, dataDir, 14, log)

		name, err := svc.CreateAndUpload(context.Background())
		require.NoError(t, err)
		archiveData, ok := store.get(name)
		require.True(t, ok)

		// The live database diverges after the backup
		_, err = advisoryDB.Conn().Exec("INSERT INTO observations (mandal) VALUES ('nuzvid')")
		require.NoError(t, err)
		require.NoError(t, advisoryDB.Close())

		stagingDir := filepath.Join(dataDir, restoreStagingDir)
		require.NoError(t, os.MkdirAll(stagingDir, 0755))
		require.NoError(t, os.WriteFile(filepath.Join(stagingDir, name), archiveData, 0644))

		restore := NewRestoreService(nil, dataDir, log)
		applied, err := restore.ApplyStaged()
		require.NoError(t, err)
		assert.True(t, applied)

		// Live file is back at backup-time state, the diverged copy is kept
		assert.Equal(t, 2, countObservations(t, filepath.Join(dataDir, "advisory.db")))
		assert.Equal(t, 3, countObservations(t, filepath.Join(dataDir, "advisory.db.pre-restore")))

		// The applied archive is consumed
		_, err = os.Stat(filepath.Join(stagingDir, name))
		assert.True(t, os.IsNotExist(err))
	})

	t.Run("nothing staged", func(t *testing.T) {
		restore := NewRestoreService(nil, t.TempDir(), log)

		applied, err := restore.ApplyStaged()
		require.NoError(t, err)
		assert.False(t, applied)
	})

	t.Run("applies newest archive and removes superseded ones", func(t *testing.T) {
		dataDir := t.TempDir()

		advisoryDB := newBackupTestDB(t, dataDir, "advisory")
		store := newFakeStore()
		svc := NewBackupService(map[string]*database.DB{"advisory": advisoryDB}, store, dataDir, 14, log)

		// First backup holds two rows
		firstName, err := svc.CreateAndUpload(context.Background())
		require.NoError(t, err)
		firstData, _ := store.get(firstName)

		// Second backup holds three
		_, err = advisoryDB.Conn().Exec("INSERT INTO observations (mandal) VALUES ('nuzvid')")
		require.NoError(t, err)
		secondName, err := svc.CreateAndUpload(context.Background())
		require.NoError(t, err)
		secondData, _ := store.get(secondName)

		_, err = advisoryDB.Conn().Exec("INSERT INTO observations (mandal) VALUES ('jaggayyapeta')")
		require.NoError(t, err)
		require.NoError(t, advisoryDB.Close())

		// Stage both under names that order them explicitly
		stagingDir := filepath.Join(dataDir, restoreStagingDir)
		require.NoError(t, os.MkdirAll(stagingDir, 0755))
		oldStaged := archivePrefix + "2025-06-01-000000.tar.gz"
		newStaged := archivePrefix + "2025-06-02-000000.tar.gz"
		require.NoError(t, os.WriteFile(filepath.Join(stagingDir, oldStaged), firstData, 0644))
		require.NoError(t, os.WriteFile(filepath.Join(stagingDir, newStaged), secondData, 0644))

		restore := NewRestoreService(nil, dataDir, log)
		applied, err := restore.ApplyStaged()
		require.NoError(t, err)
		assert.True(t, applied)

		assert.Equal(t, 3, countObservations(t, filepath.Join(dataDir, "advisory.db")))

		// Both staged archives are gone, none left to re-apply later
		_, err = os.Stat(filepath.Join(stagingDir, oldStaged))
		assert.True(t, os.IsNotExist(err))
		_, err = os.Stat(filepath.Join(stagingDir, newStaged))
		assert.True(t, os.IsNotExist(err))
	})

	t.Run("rejects archive with checksum mismatch", func(t *testing.T) {
		dataDir := t.TempDir()
		buildDir := t.TempDir()

		// A real SQLite file whose manifest entry lies about the checksum
		db, err := database.New(database.Config{
			Path:    filepath.Join(buildDir, "advisory.db"),
			Profile: database.ProfileStandard,
			Name:    "advisory",
		})
		require.NoError(t, err)
		_, err = db.Conn().Exec("CREATE TABLE observations (id INTEGER PRIMARY KEY)")
		require.NoError(t, err)
		require.NoError(t, db.Close())

		info, err := os.Stat(filepath.Join(buildDir, "advisory.db"))
		require.NoError(t, err)

		manifest := Manifest{
			ID:        "tampered",
			CreatedAt: time.Now().UTC(),
			Databases: []ArchiveEntry{{
				Name:      "advisory",
				Filename:  "advisory.db",
				SizeBytes: info.Size(),
				Checksum:  "sha256:deadbeef",
			}},
		}
		require.NoError(t, writeManifest(filepath.Join(buildDir, manifestFilename), manifest))

		stagingDir := filepath.Join(dataDir, restoreStagingDir)
		require.NoError(t, os.MkdirAll(stagingDir, 0755))
		staged := archivePrefix + "2025-06-01-000000.tar.gz"
		require.NoError(t, writeArchive(
			filepath.Join(stagingDir, staged),
			buildDir,
			[]string{"advisory.db", manifestFilename},
		))

		restore := NewRestoreService(nil, dataDir, log)
		applied, err := restore.ApplyStaged()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "checksum mismatch")
		assert.False(t, applied)

		// The bad archive is set aside so the next startup is clean
		_, err = os.Stat(filepath.Join(stagingDir, staged+".rejected"))
		assert.NoError(t, err)

		// No database file appeared
		_, err = os.Stat(filepath.Join(dataDir, "advisory.db"))
		assert.True(t, os.IsNotExist(err))
	})
}

func TestRestoreService_Fetch(t *testing.T) {
	log := logger.New(logger.Config{Level: "error", Pretty: false})

	t.Run("stages a remote archive", func(t *testing.T) {
		dataDir := t.TempDir()

		name := archivePrefix + "2025-06-01-000000.tar.gz"
		store := newFakeStore()
		store.objects[name] = []byte("archive-bytes")

		restore := NewRestoreService(store, dataDir, log)
		require.NoError(t, restore.Fetch(context.Background(), name))

		data, err := os.ReadFile(filepath.Join(dataDir, restoreStagingDir, name))
		require.NoError(t, err)
		assert.Equal(t, []byte("archive-bytes"), data)
	})

	t.Run("rejects names outside the staging directory", func(t *testing.T) {
		restore := NewRestoreService(newFakeStore(), t.TempDir(), log)

		err := restore.Fetch(context.Background(), "../advisory.db")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid archive name")
	})

	t.Run("requires an object store", func(t *testing.T) {
		restore := NewRestoreService(nil, t.TempDir(), log)

		err := restore.Fetch(context.Background(), archivePrefix+"2025-06-01-000000.tar.gz")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "no object store")
	})
}

func TestParseArchiveTime(t *testing.T) {
	ts, ok := parseArchiveTime(archivePrefix + "2025-08-25-033000.tar.gz")
	require.True(t, ok)
	assert.Equal(t, time.Date(2025, 8, 25, 3, 30, 0, 0, time.UTC), ts)

	for _, name := range []string{
		"backup-2025-08-25-033000.tar.gz",
		archivePrefix + "2025-08-25-033000.zip",
		archivePrefix + "yesterday.tar.gz",
		"",
	} {
		_, ok := parseArchiveTime(name)
		assert.False(t, ok, "name %q should not parse", name)
	}
}
