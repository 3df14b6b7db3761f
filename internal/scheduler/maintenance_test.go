package scheduler

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agrisage/agrisage/internal/database"
	"github.com/agrisage/agrisage/internal/modules/market"
	"github.com/agrisage/agrisage/internal/modules/notifications"
	"github.com/agrisage/agrisage/internal/modules/snapshots"
	"github.com/agrisage/agrisage/internal/modules/weather"
	apptesting "github.com/agrisage/agrisage/internal/testing"
)

type maintenanceFixture struct {
	advisoryDB *database.DB
	historyDB  *database.DB
	cacheDB    *database.DB

	weatherRepo  *weather.Repository
	marketRepo   *market.Repository
	snapshotRepo *snapshots.Repository
	notifier     *notifications.Repository
	runs         *RunRepository
}

func newMaintenanceFixture(t *testing.T) *maintenanceFixture {
	t.Helper()

	advisoryDB, advisoryCleanup := apptesting.NewTestDB(t, "advisory")
	t.Cleanup(advisoryCleanup)
	historyDB, historyCleanup := apptesting.NewTestDB(t, "history")
	t.Cleanup(historyCleanup)
	cacheDB, cacheCleanup := apptesting.NewTestDB(t, "cache")
	t.Cleanup(cacheCleanup)

	return &maintenanceFixture{
		advisoryDB:   advisoryDB,
		historyDB:    historyDB,
		cacheDB:      cacheDB,
		weatherRepo:  weather.NewRepository(historyDB.Conn(), zerolog.Nop()),
		marketRepo:   market.NewRepository(historyDB.Conn(), zerolog.Nop()),
		snapshotRepo: snapshots.NewRepository(cacheDB.Conn(), zerolog.Nop()),
		notifier:     notifications.NewRepository(advisoryDB.Conn(), zerolog.Nop()),
		runs:         NewRunRepository(cacheDB.Conn(), zerolog.Nop()),
	}
}

func (f *maintenanceFixture) job(retentionDays, snapshotKeep int) *MaintenanceJob {
	return NewMaintenanceJob(
		map[string]*database.DB{
			"advisory": f.advisoryDB,
			"history":  f.historyDB,
			"cache":    f.cacheDB,
		},
		f.weatherRepo, f.marketRepo, f.snapshotRepo, f.notifier, f.runs,
		retentionDays, snapshotKeep,
		zerolog.Nop(),
	)
}

func TestMaintenanceJob_PrunesOldObservations(t *testing.T) {
	f := newMaintenanceFixture(t)

	require.NoError(t, f.weatherRepo.Record(weather.Sample{
		Mandal: "kankipadu", Date: "2020-01-01", RainfallMM: 50, TemperatureC: 27, HumidityPct: 70,
	}))
	require.NoError(t, f.weatherRepo.Record(weather.Sample{
		Mandal: "kankipadu", Date: "2025-07-30", RainfallMM: 80, TemperatureC: 29, HumidityPct: 75,
	}))

	require.NoError(t, f.marketRepo.Record(market.MandiPrice{
		Crop: "paddy", Market: "vijayawada", Date: "2020-01-01", PricePerQuintal: 1500,
	}))
	require.NoError(t, f.marketRepo.Record(market.MandiPrice{
		Crop: "paddy", Market: "vijayawada", Date: "2025-07-30", PricePerQuintal: 2300,
	}))

	job := f.job(365, 30)
	job.now = func() time.Time { return time.Date(2025, time.August, 2, 2, 30, 0, 0, time.UTC) }

	require.NoError(t, job.Run())

	samples, err := f.weatherRepo.ListForMandal("kankipadu", 0)
	require.NoError(t, err)
	require.Len(t, samples, 1)
	assert.Equal(t, "2025-07-30", samples[0].Date)

	prices, err := f.marketRepo.HistoryForCrop("paddy", 0)
	require.NoError(t, err)
	require.Len(t, prices, 1)
	assert.Equal(t, "2025-07-30", prices[0].Date)
}

func TestMaintenanceJob_CapsSnapshotHistory(t *testing.T) {
	f := newMaintenanceFixture(t)

	for i := 0; i < 5; i++ {
		require.NoError(t, f.snapshotRepo.Save("farmer-1", "paddy", map[string]int{"rev": i}))
	}
	require.NoError(t, f.snapshotRepo.Save("farmer-2", "cotton", map[string]int{"rev": 0}))

	job := f.job(365, 2)
	job.now = func() time.Time { return time.Date(2025, time.August, 2, 2, 30, 0, 0, time.UTC) }

	require.NoError(t, job.Run())

	one, err := f.snapshotRepo.ListForFarmer("farmer-1", 0)
	require.NoError(t, err)
	assert.Len(t, one, 2, "farmer-1 should keep only the newest two snapshots")

	two, err := f.snapshotRepo.ListForFarmer("farmer-2", 0)
	require.NoError(t, err)
	assert.Len(t, two, 1, "farmer-2 was already under the cap")
}

func TestMaintenanceJob_PrunesReadNotificationsAndRuns(t *testing.T) {
	f := newMaintenanceFixture(t)

	readID, err := f.notifier.Create(notifications.KindSystem, "", "", "old and acknowledged")
	require.NoError(t, err)
	_, err = f.notifier.Create(notifications.KindSystem, "", "", "old but never read")
	require.NoError(t, err)

	_, err = f.notifier.MarkRead(readID)
	require.NoError(t, err)

	// Age both notifications well past retention
	_, err = f.advisoryDB.Conn().Exec(`UPDATE notifications SET created_at = '2020-01-01 00:00:00'`)
	require.NoError(t, err)

	require.NoError(t, f.runs.Record("price-alerts", time.Now(), time.Second, nil))
	_, err = f.cacheDB.Conn().Exec(`UPDATE job_runs SET created_at = '2020-01-01 00:00:00'`)
	require.NoError(t, err)
	require.NoError(t, f.runs.Record("price-alerts", time.Now(), time.Second, nil))

	job := f.job(365, 30)
	job.now = func() time.Time { return time.Date(2025, time.August, 2, 2, 30, 0, 0, time.UTC) }

	require.NoError(t, job.Run())

	remaining, err := f.notifier.List(10)
	require.NoError(t, err)
	require.Len(t, remaining, 1, "unread notifications survive retention")
	assert.Equal(t, "old but never read", remaining[0].Message)

	runs, err := f.runs.Recent(10)
	require.NoError(t, err)
	assert.Len(t, runs, 1, "only the recent job run should remain")
}

func TestMaintenanceJob_VacuumsOnFirstOfMonth(t *testing.T) {
	f := newMaintenanceFixture(t)

	job := f.job(365, 30)
	job.now = func() time.Time { return time.Date(2025, time.September, 1, 2, 30, 0, 0, time.UTC) }

	// Nothing to prune; the run should still checkpoint and vacuum cleanly
	require.NoError(t, job.Run())
}

func TestMaintenanceJob_SkipsNilDatabases(t *testing.T) {
	f := newMaintenanceFixture(t)

	job := NewMaintenanceJob(
		map[string]*database.DB{"advisory": f.advisoryDB, "missing": nil},
		f.weatherRepo, f.marketRepo, f.snapshotRepo, f.notifier, f.runs,
		365, 30,
		zerolog.Nop(),
	)
	job.now = func() time.Time { return time.Date(2025, time.September, 1, 2, 30, 0, 0, time.UTC) }

	require.NoError(t, job.Run())
	assert.Equal(t, "maintenance", job.Name())
}
