package market

import (
	"fmt"
	"testing"
	"time"

	apptesting "github.com/agrisage/agrisage/internal/testing"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRepo(t *testing.T) *Repository {
	t.Helper()
	db, cleanup := apptesting.NewTestDB(t, "history")
	t.Cleanup(cleanup)
	return NewRepository(apptesting.GetRawConnection(db), zerolog.Nop())
}

func quote(crop, market, date string, price float64) MandiPrice {
	return MandiPrice{Crop: crop, Market: market, Date: date, PricePerQuintal: price}
}

func TestRepository_RecordAndLatest(t *testing.T) {
	repo := newTestRepo(t)

	require.NoError(t, repo.Record(quote("Paddy", "Vijayawada", "2025-06-10", 2050)))
	require.NoError(t, repo.Record(quote("paddy", "vijayawada", "2025-06-11", 2080)))

	latest, err := repo.LatestForCrop("PADDY")
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, "2025-06-11", latest.Date)
	assert.Equal(t, 2080.0, latest.PricePerQuintal)
	assert.Equal(t, "paddy", latest.Crop)
	assert.Equal(t, "vijayawada", latest.Market)
	assert.Nil(t, latest.ArrivalsQuintals)
}

func TestRepository_UpsertReplacesSameQuote(t *testing.T) {
	repo := newTestRepo(t)

	arrivals := 120.0
	require.NoError(t, repo.Record(quote("chillies", "guntur", "2025-06-10", 9200)))
	require.NoError(t, repo.Record(MandiPrice{
		Crop: "chillies", Market: "guntur", Date: "2025-06-10",
		PricePerQuintal: 9350, ArrivalsQuintals: &arrivals,
	}))

	history, err := repo.HistoryForCrop("chillies", 10)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, 9350.0, history[0].PricePerQuintal)
	require.NotNil(t, history[0].ArrivalsQuintals)
	assert.Equal(t, 120.0, *history[0].ArrivalsQuintals)
}

func TestRepository_SeparateMandisKeepSeparateRows(t *testing.T) {
	repo := newTestRepo(t)

	require.NoError(t, repo.Record(quote("paddy", "vijayawada", "2025-06-10", 2050)))
	require.NoError(t, repo.Record(quote("paddy", "gudivada", "2025-06-10", 2030)))

	history, err := repo.HistoryForCrop("paddy", 10)
	require.NoError(t, err)
	assert.Len(t, history, 2)
}

func TestRepository_LatestForCrop_Empty(t *testing.T) {
	repo := newTestRepo(t)

	latest, err := repo.LatestForCrop("saffron")
	require.NoError(t, err)
	assert.Nil(t, latest)
}

func TestRepository_RecordValidation(t *testing.T) {
	repo := newTestRepo(t)

	assert.Error(t, repo.Record(quote("", "vijayawada", "2025-06-10", 2000)))
	assert.Error(t, repo.Record(quote("paddy", "", "2025-06-10", 2000)))
	assert.Error(t, repo.Record(quote("paddy", "vijayawada", "2025-06-10", 0)))
	assert.Error(t, repo.Record(quote("paddy", "vijayawada", "2025-06-10", -50)))
	assert.Error(t, repo.Record(quote("paddy", "vijayawada", "10/06/2025", 2000)))
}

func TestRepository_SeriesForCrop_ChronologicalDeduplicated(t *testing.T) {
	repo := newTestRepo(t)

	// Two mandis quote the same dates; the series keeps one price per date.
	require.NoError(t, repo.Record(quote("paddy", "vijayawada", "2025-06-10", 2000)))
	require.NoError(t, repo.Record(quote("paddy", "gudivada", "2025-06-10", 2004)))
	require.NoError(t, repo.Record(quote("paddy", "vijayawada", "2025-06-11", 2040)))
	require.NoError(t, repo.Record(quote("paddy", "vijayawada", "2025-06-12", 2080)))

	series, err := repo.SeriesForCrop("paddy", 30)
	require.NoError(t, err)
	require.Len(t, series, 3)
	// Oldest first, one value per date
	assert.Equal(t, 2040.0, series[1])
	assert.Equal(t, 2080.0, series[2])
}

func TestRepository_Crops(t *testing.T) {
	repo := newTestRepo(t)

	require.NoError(t, repo.Record(quote("turmeric", "duggirala", "2025-06-10", 9600)))
	require.NoError(t, repo.Record(quote("paddy", "vijayawada", "2025-06-10", 2050)))

	crops, err := repo.Crops()
	require.NoError(t, err)
	assert.Equal(t, []string{"paddy", "turmeric"}, crops)
}

func TestRepository_DeleteOlderThan(t *testing.T) {
	repo := newTestRepo(t)

	require.NoError(t, repo.Record(quote("paddy", "vijayawada", "2024-03-01", 1900)))
	require.NoError(t, repo.Record(quote("paddy", "vijayawada", "2025-06-10", 2050)))

	deleted, err := repo.DeleteOlderThan(time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	history, err := repo.HistoryForCrop("paddy", 10)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "2025-06-10", history[0].Date)
}

func TestRepository_HistoryLimit(t *testing.T) {
	repo := newTestRepo(t)

	for day := 1; day <= 5; day++ {
		date := fmt.Sprintf("2025-06-%02d", day)
		require.NoError(t, repo.Record(quote("paddy", "vijayawada", date, 2000+float64(day))))
	}

	history, err := repo.HistoryForCrop("paddy", 3)
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.Equal(t, "2025-06-05", history[0].Date)
	assert.Equal(t, "2025-06-03", history[2].Date)
}
