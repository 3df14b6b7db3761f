package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agrisage/agrisage/internal/database"
	"github.com/agrisage/agrisage/internal/reliability"
	"github.com/agrisage/agrisage/internal/scheduler"
	apptesting "github.com/agrisage/agrisage/internal/testing"
)

// memStore is an in-memory reliability.ObjectStore for backup endpoint tests.
type memStore struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func newMemStore() *memStore {
	return &memStore{objects: make(map[string][]byte)}
}

func (s *memStore) Upload(ctx context.Context, key string, body io.Reader) error {
	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key] = data
	return nil
}

func (s *memStore) Download(ctx context.Context, key string, w io.WriterAt) (int64, error) {
	s.mu.Lock()
	data, ok := s.objects[key]
	s.mu.Unlock()
	if !ok {
		return 0, os.ErrNotExist
	}
	n, err := w.WriteAt(data, 0)
	return int64(n), err
}

func (s *memStore) List(ctx context.Context, prefix string) ([]reliability.ObjectInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var infos []reliability.ObjectInfo
	for key, data := range s.objects {
		if strings.HasPrefix(key, prefix) {
			infos = append(infos, reliability.ObjectInfo{
				Key:       key,
				SizeBytes: int64(len(data)),
				Modified:  time.Now(),
			})
		}
	}
	return infos, nil
}

func (s *memStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, key)
	return nil
}

// countingJob records trigger invocations.
type countingJob struct {
	name  string
	calls atomic.Int64
}

func (j *countingJob) Name() string { return j.name }

func (j *countingJob) Run() error {
	j.calls.Add(1)
	return nil
}

type systemFixture struct {
	handlers *SystemHandlers
	runs     *scheduler.RunRepository
	job      *countingJob
	dataDir  string
}

func newSystemFixture(t *testing.T, store reliability.ObjectStore) *systemFixture {
	t.Helper()

	dataDir := t.TempDir()

	advisoryDB, cleanupAdvisory := apptesting.NewTestDB(t, "advisory")
	t.Cleanup(cleanupAdvisory)
	historyDB, cleanupHistory := apptesting.NewTestDB(t, "history")
	t.Cleanup(cleanupHistory)
	cacheDB, cleanupCache := apptesting.NewTestDB(t, "cache")
	t.Cleanup(cleanupCache)

	databases := map[string]*database.DB{
		"advisory": advisoryDB,
		"history":  historyDB,
		"cache":    cacheDB,
	}

	runs := scheduler.NewRunRepository(apptesting.GetRawConnection(cacheDB), zerolog.Nop())
	sched := scheduler.New(runs, zerolog.Nop())

	job := &countingJob{name: "price-alerts"}
	jobs := map[string]scheduler.Job{job.name: job}

	var backups *reliability.BackupService
	if store != nil {
		backups = reliability.NewBackupService(databases, store, dataDir, 5, zerolog.Nop())
	}
	restore := reliability.NewRestoreService(store, dataDir, zerolog.Nop())

	handlers := NewSystemHandlers(
		zerolog.Nop(), dataDir, databases, runs, sched, jobs, backups, restore,
	)

	return &systemFixture{handlers: handlers, runs: runs, job: job, dataDir: dataDir}
}

// systemRouter mounts the handlers the way the server does, so URL
// parameters resolve.
func systemRouter(h *SystemHandlers) http.Handler {
	r := chi.NewRouter()
	r.Route("/api/system", func(r chi.Router) {
		r.Get("/status", h.HandleSystemStatus)
		r.Get("/database/stats", h.HandleDatabaseStats)
		r.Get("/jobs", h.HandleJobsStatus)
		r.Post("/jobs/{name}/run", h.HandleTriggerJob)
		r.Post("/backup", h.HandleTriggerBackup)
		r.Get("/backups", h.HandleListBackups)
		r.Post("/backups/{filename}/stage", h.HandleStageRestore)
	})
	return r
}

func TestSystemHandlers_HandleSystemStatus(t *testing.T) {
	f := newSystemFixture(t, nil)

	rec := httptest.NewRecorder()
	f.handlers.HandleSystemStatus(rec, httptest.NewRequest(http.MethodGet, "/api/system/status", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	var resp SystemStatusResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))

	assert.Equal(t, "healthy", resp.Status)
	assert.GreaterOrEqual(t, resp.UptimeSeconds, 0.0)
	assert.Greater(t, resp.Goroutines, 0)
	assert.Greater(t, resp.HeapAllocMB, 0.0)
	assert.NotEmpty(t, resp.GoVersion)
}

func TestSystemHandlers_HandleDatabaseStats(t *testing.T) {
	f := newSystemFixture(t, nil)

	rec := httptest.NewRecorder()
	f.handlers.HandleDatabaseStats(rec, httptest.NewRequest(http.MethodGet, "/api/system/database/stats", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	var resp DatabaseStatsResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))

	require.Len(t, resp.Databases, 3)
	assert.Equal(t, "advisory", resp.Databases[0].Name)
	assert.Equal(t, "cache", resp.Databases[1].Name)
	assert.Equal(t, "history", resp.Databases[2].Name)
	for _, db := range resp.Databases {
		assert.Greater(t, db.SizeMB, 0.0, db.Name)
		assert.Greater(t, db.PageCount, int64(0), db.Name)
		assert.NotEmpty(t, db.Path, db.Name)
	}
	assert.Greater(t, resp.TotalSizeMB, 0.0)
	assert.NotEmpty(t, resp.LastChecked)
}

func TestSystemHandlers_HandleJobsStatus(t *testing.T) {
	f := newSystemFixture(t, nil)

	started := time.Date(2025, time.August, 2, 7, 0, 0, 0, time.UTC)
	require.NoError(t, f.runs.Record("price-alerts", started, 1500*time.Millisecond, nil))

	rec := httptest.NewRecorder()
	f.handlers.HandleJobsStatus(rec, httptest.NewRequest(http.MethodGet, "/api/system/jobs", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	var resp JobsStatusResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))

	require.Len(t, resp.Jobs, 1)
	assert.Equal(t, "price-alerts", resp.Jobs[0].Name)
	require.NotNil(t, resp.Jobs[0].LastRun)
	assert.Equal(t, "ok", resp.Jobs[0].LastRun.Status)
	assert.Equal(t, int64(1500), resp.Jobs[0].LastRun.DurationMS)

	require.Len(t, resp.Recent, 1)
	assert.Equal(t, "price-alerts", resp.Recent[0].JobName)
}

func TestSystemHandlers_HandleTriggerJob(t *testing.T) {
	f := newSystemFixture(t, nil)
	srv := httptest.NewServer(systemRouter(f.handlers))
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/api/system/jobs/price-alerts/run", "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusAccepted, resp.StatusCode)

	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "success", body["status"])
	assert.Contains(t, body["message"], "price-alerts")

	// The job runs in the background and its outcome is recorded
	require.Eventually(t, func() bool {
		return f.job.calls.Load() == 1
	}, 2*time.Second, 10*time.Millisecond)

	require.Eventually(t, func() bool {
		run, err := f.runs.LastRun("price-alerts")
		return err == nil && run != nil && run.Status == "ok"
	}, 2*time.Second, 10*time.Millisecond)
}

func TestSystemHandlers_HandleTriggerJob_Unknown(t *testing.T) {
	f := newSystemFixture(t, nil)
	srv := httptest.NewServer(systemRouter(f.handlers))
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/api/system/jobs/harvest-the-moon/run", "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, int64(0), f.job.calls.Load())
}

func TestSystemHandlers_BackupEndpointsWithoutStore(t *testing.T) {
	f := newSystemFixture(t, nil)
	srv := httptest.NewServer(systemRouter(f.handlers))
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/api/system/backup", "application/json", nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	resp, err = http.Get(srv.URL + "/api/system/backups")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	resp, err = http.Post(srv.URL+"/api/system/backups/agrisage-backup-2025-01-01-000000.tar.gz/stage", "application/json", nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestSystemHandlers_BackupLifecycle(t *testing.T) {
	store := newMemStore()
	f := newSystemFixture(t, store)
	srv := httptest.NewServer(systemRouter(f.handlers))
	defer srv.Close()

	// Trigger a backup
	resp, err := http.Post(srv.URL+"/api/system/backup", "application/json", nil)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var created map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))
	resp.Body.Close()

	assert.Equal(t, "success", created["status"])
	archive := created["archive"]
	assert.True(t, strings.HasPrefix(archive, "agrisage-backup-"), archive)
	assert.True(t, strings.HasSuffix(archive, ".tar.gz"), archive)

	// The archive shows up in the listing
	resp, err = http.Get(srv.URL + "/api/system/backups")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var listing BackupsResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&listing))
	resp.Body.Close()

	require.Equal(t, 1, listing.Count)
	assert.Equal(t, archive, listing.Archives[0].Filename)
	assert.Greater(t, listing.Archives[0].SizeBytes, int64(0))

	// Stage it for restore
	resp, err = http.Post(srv.URL+"/api/system/backups/"+archive+"/stage", "application/json", nil)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var staged map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&staged))
	resp.Body.Close()

	assert.Equal(t, "success", staged["status"])

	stagedPath := filepath.Join(f.dataDir, "restore-staging", archive)
	info, err := os.Stat(stagedPath)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))
}

func TestSystemHandlers_HandleStageRestore_RejectsBadName(t *testing.T) {
	store := newMemStore()
	f := newSystemFixture(t, store)
	srv := httptest.NewServer(systemRouter(f.handlers))
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/api/system/backups/notes.txt/stage", "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
