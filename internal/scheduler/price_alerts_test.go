package scheduler

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agrisage/agrisage/internal/modules/market"
	"github.com/agrisage/agrisage/internal/modules/notifications"
	"github.com/agrisage/agrisage/internal/refdata"
	apptesting "github.com/agrisage/agrisage/internal/testing"
)

type priceAlertsFixture struct {
	marketRepo *market.Repository
	notifier   *notifications.Repository
	catalog    *refdata.Catalog
}

func newPriceAlertsFixture(t *testing.T) *priceAlertsFixture {
	t.Helper()

	historyDB, historyCleanup := apptesting.NewTestDB(t, "history")
	t.Cleanup(historyCleanup)
	advisoryDB, advisoryCleanup := apptesting.NewTestDB(t, "advisory")
	t.Cleanup(advisoryCleanup)

	return &priceAlertsFixture{
		marketRepo: market.NewRepository(apptesting.GetRawConnection(historyDB), zerolog.Nop()),
		notifier:   notifications.NewRepository(apptesting.GetRawConnection(advisoryDB), zerolog.Nop()),
		catalog:    refdata.NewCatalog(),
	}
}

func (f *priceAlertsFixture) job(thresholdPct float64) *PriceAlertsJob {
	return NewPriceAlertsJob(f.marketRepo, f.catalog, f.notifier, thresholdPct, zerolog.Nop())
}

func TestPriceAlertsJob_RaisesAlertOnBigMove(t *testing.T) {
	f := newPriceAlertsFixture(t)

	// Paddy baseline is 2200; 2600 is an +18.2% move
	require.NoError(t, f.marketRepo.Record(market.MandiPrice{
		Crop: "Paddy", Market: "Vijayawada", Date: "2025-08-20", PricePerQuintal: 2600,
	}))
	// Chillies baseline is 9000; 9100 is barely a move
	require.NoError(t, f.marketRepo.Record(market.MandiPrice{
		Crop: "Chillies", Market: "Guntur", Date: "2025-08-20", PricePerQuintal: 9100,
	}))

	require.NoError(t, f.job(10.0).Run())

	alerts, err := f.notifier.List(10)
	require.NoError(t, err)
	require.Len(t, alerts, 1)

	alert := alerts[0]
	assert.Equal(t, notifications.KindPriceAlert, alert.Kind)
	assert.Equal(t, "paddy", alert.Crop)
	assert.Equal(t, "vijayawada", alert.Mandal)
	assert.Contains(t, alert.Message, "paddy at ₹2600.00")
	assert.Contains(t, alert.Message, "+18.2%")
	assert.Contains(t, alert.Message, "₹2200.00 baseline")
}

func TestPriceAlertsJob_DedupesPerDay(t *testing.T) {
	f := newPriceAlertsFixture(t)

	require.NoError(t, f.marketRepo.Record(market.MandiPrice{
		Crop: "Paddy", Market: "Vijayawada", Date: "2025-08-20", PricePerQuintal: 1700,
	}))

	job := f.job(10.0)
	require.NoError(t, job.Run())
	require.NoError(t, job.Run())

	alerts, err := f.notifier.List(10)
	require.NoError(t, err)
	assert.Len(t, alerts, 1, "second sweep on the same day should stay quiet")
	assert.Contains(t, alerts[0].Message, "-22.7%")
}

func TestPriceAlertsJob_RespectsThreshold(t *testing.T) {
	f := newPriceAlertsFixture(t)

	require.NoError(t, f.marketRepo.Record(market.MandiPrice{
		Crop: "Paddy", Market: "Vijayawada", Date: "2025-08-20", PricePerQuintal: 2600,
	}))

	// +18.2% is below a 25% threshold
	require.NoError(t, f.job(25.0).Run())

	count, err := f.notifier.CountUnread()
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestPriceAlertsJob_UnknownCropUsesDefaultBaseline(t *testing.T) {
	f := newPriceAlertsFixture(t)

	// Unknown crops fall back to the district default profile (baseline 2500)
	require.NoError(t, f.marketRepo.Record(market.MandiPrice{
		Crop: "Quinoa", Market: "Vijayawada", Date: "2025-08-20", PricePerQuintal: 2550,
	}))

	require.NoError(t, f.job(10.0).Run())

	count, err := f.notifier.CountUnread()
	require.NoError(t, err)
	assert.Zero(t, count, "a 2% move should not alert")
}

func TestPriceAlertsJob_NoPricesNoAlerts(t *testing.T) {
	f := newPriceAlertsFixture(t)

	require.NoError(t, f.job(10.0).Run())

	count, err := f.notifier.CountUnread()
	require.NoError(t, err)
	assert.Zero(t, count)
}
