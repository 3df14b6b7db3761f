package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/agrisage/agrisage/internal/database"
	"github.com/agrisage/agrisage/internal/reliability"
	"github.com/agrisage/agrisage/internal/scheduler"
)

// SystemHandlers handles system monitoring and operational endpoints
type SystemHandlers struct {
	log       zerolog.Logger
	dataDir   string
	databases map[string]*database.DB
	runs      *scheduler.RunRepository
	sched     *scheduler.Scheduler
	jobs      map[string]scheduler.Job
	backups   *reliability.BackupService // nil when backups are disabled
	restore   *reliability.RestoreService
	startTime time.Time
}

// NewSystemHandlers creates system handlers
func NewSystemHandlers(
	log zerolog.Logger,
	dataDir string,
	databases map[string]*database.DB,
	runs *scheduler.RunRepository,
	sched *scheduler.Scheduler,
	jobs map[string]scheduler.Job,
	backups *reliability.BackupService,
	restore *reliability.RestoreService,
) *SystemHandlers {
	return &SystemHandlers{
		log:       log.With().Str("handler", "system").Logger(),
		dataDir:   dataDir,
		databases: databases,
		runs:      runs,
		sched:     sched,
		jobs:      jobs,
		backups:   backups,
		restore:   restore,
		startTime: time.Now(),
	}
}

// SystemStatusResponse is the system status payload
type SystemStatusResponse struct {
	Status        string  `json:"status"`
	UptimeSeconds float64 `json:"uptime_seconds"`
	CPUPercent    float64 `json:"cpu_percent"`
	MemoryPercent float64 `json:"memory_percent"`
	Goroutines    int     `json:"goroutines"`
	HeapAllocMB   float64 `json:"heap_alloc_mb"`
	DataDirMB     float64 `json:"data_dir_mb"`
	GoVersion     string  `json:"go_version"`
}

// HandleSystemStatus returns process and host statistics
// GET /api/system/status
func (h *SystemHandlers) HandleSystemStatus(w http.ResponseWriter, r *http.Request) {
	h.log.Debug().Msg("Getting system status")

	cpuPercent, memPercent := h.getSystemStats()

	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	response := SystemStatusResponse{
		Status:        "healthy",
		UptimeSeconds: time.Since(h.startTime).Seconds(),
		CPUPercent:    cpuPercent,
		MemoryPercent: memPercent,
		Goroutines:    runtime.NumGoroutine(),
		HeapAllocMB:   float64(memStats.HeapAlloc) / 1024 / 1024,
		DataDirMB:     h.getDirSize(h.dataDir),
		GoVersion:     runtime.Version(),
	}

	h.writeJSON(w, http.StatusOK, response)
}

// DBStatsInfo describes one database file
type DBStatsInfo struct {
	Name          string  `json:"name"`
	Path          string  `json:"path"`
	SizeMB        float64 `json:"size_mb"`
	WALSizeMB     float64 `json:"wal_size_mb"`
	PageCount     int64   `json:"page_count"`
	FreelistCount int64   `json:"freelist_count"`
}

// DatabaseStatsResponse is the database stats payload
type DatabaseStatsResponse struct {
	Databases   []DBStatsInfo `json:"databases"`
	TotalSizeMB float64       `json:"total_size_mb"`
	LastChecked string        `json:"last_checked"`
}

// HandleDatabaseStats returns per-database size and page statistics
// GET /api/system/database/stats
func (h *SystemHandlers) HandleDatabaseStats(w http.ResponseWriter, r *http.Request) {
	h.log.Debug().Msg("Getting database stats")

	names := make([]string, 0, len(h.databases))
	for name := range h.databases {
		names = append(names, name)
	}
	sort.Strings(names)

	infos := make([]DBStatsInfo, 0, len(names))
	totalSizeMB := 0.0

	for _, name := range names {
		db := h.databases[name]
		if db == nil {
			continue
		}

		stats, err := db.GetStats()
		if err != nil {
			h.log.Warn().Err(err).Str("database", name).Msg("Failed to collect database stats")
			continue
		}

		sizeMB := float64(stats.SizeBytes) / 1024 / 1024
		totalSizeMB += sizeMB

		infos = append(infos, DBStatsInfo{
			Name:          name,
			Path:          db.Path(),
			SizeMB:        sizeMB,
			WALSizeMB:     float64(stats.WALSizeBytes) / 1024 / 1024,
			PageCount:     stats.PageCount,
			FreelistCount: stats.FreelistCount,
		})
	}

	h.writeJSON(w, http.StatusOK, DatabaseStatsResponse{
		Databases:   infos,
		TotalSizeMB: totalSizeMB,
		LastChecked: time.Now().Format(time.RFC3339),
	})
}

// JobStatusInfo pairs a registered job with its most recent run
type JobStatusInfo struct {
	Name    string         `json:"name"`
	LastRun *scheduler.Run `json:"last_run,omitempty"`
}

// JobsStatusResponse is the jobs status payload
type JobsStatusResponse struct {
	Jobs   []JobStatusInfo `json:"jobs"`
	Recent []scheduler.Run `json:"recent"`
}

// HandleJobsStatus returns registered jobs and their recent executions
// GET /api/system/jobs
func (h *SystemHandlers) HandleJobsStatus(w http.ResponseWriter, r *http.Request) {
	h.log.Debug().Msg("Getting jobs status")

	names := make([]string, 0, len(h.jobs))
	for name := range h.jobs {
		names = append(names, name)
	}
	sort.Strings(names)

	jobs := make([]JobStatusInfo, 0, len(names))
	for _, name := range names {
		info := JobStatusInfo{Name: name}
		if h.runs != nil {
			lastRun, err := h.runs.LastRun(name)
			if err != nil {
				h.log.Warn().Err(err).Str("job", name).Msg("Failed to load last run")
			} else {
				info.LastRun = lastRun
			}
		}
		jobs = append(jobs, info)
	}

	recent := []scheduler.Run{}
	if h.runs != nil {
		runs, err := h.runs.Recent(20)
		if err != nil {
			h.log.Warn().Err(err).Msg("Failed to load recent runs")
		} else if runs != nil {
			recent = runs
		}
	}

	h.writeJSON(w, http.StatusOK, JobsStatusResponse{
		Jobs:   jobs,
		Recent: recent,
	})
}

// HandleTriggerJob runs a registered job immediately
// POST /api/system/jobs/{name}/run
func (h *SystemHandlers) HandleTriggerJob(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	job, ok := h.jobs[name]
	if !ok {
		http.Error(w, "Unknown job: "+name, http.StatusNotFound)
		return
	}

	h.log.Info().Str("job", name).Msg("Manual job trigger")

	// Run in the background; the outcome lands in the job_runs table
	go func() {
		if err := h.sched.RunNow(job); err != nil {
			h.log.Error().Err(err).Str("job", name).Msg("Triggered job failed")
		}
	}()

	h.writeJSON(w, http.StatusAccepted, map[string]string{
		"status":  "success",
		"message": name + " job triggered",
	})
}

// HandleTriggerBackup creates and uploads a backup archive immediately
// POST /api/system/backup
func (h *SystemHandlers) HandleTriggerBackup(w http.ResponseWriter, r *http.Request) {
	if h.backups == nil {
		http.Error(w, "Backups are not configured", http.StatusServiceUnavailable)
		return
	}

	h.log.Info().Msg("Manual backup trigger")

	archive, err := h.backups.CreateAndUpload(r.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("Manual backup failed")
		http.Error(w, "Backup failed", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]string{
		"status":  "success",
		"message": "Backup archive uploaded",
		"archive": archive,
	})
}

// BackupsResponse lists the remote backup archives
type BackupsResponse struct {
	Archives []reliability.ArchiveInfo `json:"archives"`
	Count    int                       `json:"count"`
}

// HandleListBackups returns the remote archives, newest first
// GET /api/system/backups
func (h *SystemHandlers) HandleListBackups(w http.ResponseWriter, r *http.Request) {
	if h.backups == nil {
		http.Error(w, "Backups are not configured", http.StatusServiceUnavailable)
		return
	}

	archives, err := h.backups.ListArchives(r.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list backup archives")
		http.Error(w, "Failed to list backup archives", http.StatusInternalServerError)
		return
	}
	if archives == nil {
		archives = []reliability.ArchiveInfo{}
	}

	h.writeJSON(w, http.StatusOK, BackupsResponse{
		Archives: archives,
		Count:    len(archives),
	})
}

// HandleStageRestore downloads a remote archive into the restore staging
// directory; the swap happens on the next restart.
// POST /api/system/backups/{filename}/stage
func (h *SystemHandlers) HandleStageRestore(w http.ResponseWriter, r *http.Request) {
	if h.backups == nil {
		http.Error(w, "Backups are not configured", http.StatusServiceUnavailable)
		return
	}

	filename := chi.URLParam(r, "filename")

	if err := h.restore.Fetch(r.Context(), filename); err != nil {
		if errors.Is(err, reliability.ErrInvalidArchiveName) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		h.log.Error().Err(err).Str("archive", filename).Msg("Failed to stage restore")
		http.Error(w, "Failed to stage restore", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]string{
		"status":  "success",
		"message": "Archive staged; restore applies on next restart",
		"archive": filename,
	})
}

// getDirSize calculates total size of a directory in MB
func (h *SystemHandlers) getDirSize(dirPath string) float64 {
	var totalSize int64

	err := filepath.Walk(dirPath, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil // Skip errors
		}
		if !info.IsDir() {
			totalSize += info.Size()
		}
		return nil
	})

	if err != nil {
		h.log.Warn().Err(err).Str("dir", dirPath).Msg("Failed to calculate directory size")
		return 0
	}

	return float64(totalSize) / 1024 / 1024
}

// getSystemStats calculates CPU and RAM usage percentages.
// Uses a 100ms CPU sample so the status call stays fast.
func (h *SystemHandlers) getSystemStats() (float64, float64) {
	cpuPercent, err := cpu.Percent(100*time.Millisecond, false)
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to get CPU percentage")
		cpuPercent = []float64{0}
	}

	memStat, err := mem.VirtualMemory()
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to get memory statistics")
		return 0, 0
	}

	cpuAvg := 0.0
	if len(cpuPercent) > 0 {
		cpuAvg = cpuPercent[0]
	}

	return cpuAvg, memStat.UsedPercent
}

// writeJSON writes a JSON response
func (h *SystemHandlers) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
