package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"nhooyr.io/websocket"

	"github.com/agrisage/agrisage/internal/config"
	"github.com/agrisage/agrisage/internal/di"
)

// newTestServer wires a full container against a temp data directory and
// serves the real router.
func newTestServer(t *testing.T) (*Server, *httptest.Server) {
	t.Helper()

	cfg := &config.Config{
		DataDir:                t.TempDir(),
		Port:                   0,
		LogLevel:               "error",
		DevMode:                true,
		DefaultRegion:          "Vijayawada",
		PriceAlertThresholdPct: 10,
		RetentionDays:          365,
		SnapshotKeep:           30,
		Backup:                 &config.BackupConfig{Enabled: false, Retain: 14},
	}

	container, err := di.Wire(cfg, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(container.Close)

	s := New(Config{
		Log:       zerolog.Nop(),
		Config:    cfg,
		Port:      cfg.Port,
		DevMode:   true,
		Container: container,
	})

	srv := httptest.NewServer(s.router)
	t.Cleanup(srv.Close)

	return s, srv
}

func getJSON(t *testing.T, url string, out interface{}) int {
	t.Helper()

	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()

	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func postJSON(t *testing.T, url string, body interface{}, out interface{}) int {
	t.Helper()

	payload, err := json.Marshal(body)
	require.NoError(t, err)

	resp, err := http.Post(url, "application/json", bytes.NewReader(payload))
	require.NoError(t, err)
	defer resp.Body.Close()

	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func TestServer_Health(t *testing.T) {
	_, srv := newTestServer(t)

	var health struct {
		Status    string            `json:"status"`
		Service   string            `json:"service"`
		Databases map[string]string `json:"databases"`
	}
	code := getJSON(t, srv.URL+"/health", &health)

	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "healthy", health.Status)
	assert.Equal(t, "agrisage", health.Service)
	require.Len(t, health.Databases, 3)
	for name, state := range health.Databases {
		assert.Equal(t, "ok", state, name)
	}
}

func TestServer_FarmerRoundTrip(t *testing.T) {
	_, srv := newTestServer(t)

	var created struct {
		Data struct {
			ID     string `json:"id"`
			Name   string `json:"name"`
			Mandal string `json:"mandal"`
			Crop   string `json:"crop"`
		} `json:"data"`
	}
	code := postJSON(t, srv.URL+"/api/farmers", map[string]interface{}{
		"name":    "Venkata Lakshmi",
		"mandal":  "Gudivada",
		"village": "Angaluru",
		"crop":    "Paddy",
		"acreage": 4.5,
	}, &created)

	require.Equal(t, http.StatusCreated, code)
	require.NotEmpty(t, created.Data.ID)
	assert.Equal(t, "gudivada", created.Data.Mandal)
	assert.Equal(t, "paddy", created.Data.Crop)

	var fetched struct {
		Data struct {
			ID   string `json:"id"`
			Name string `json:"name"`
		} `json:"data"`
	}
	code = getJSON(t, srv.URL+"/api/farmers/"+created.Data.ID, &fetched)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "Venkata Lakshmi", fetched.Data.Name)
}

func TestServer_RecordedPriceReachesStream(t *testing.T) {
	s, srv := newTestServer(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, srv.URL+"/api/prices/stream", nil)
	require.NoError(t, err)
	defer conn.Close(websocket.StatusNormalClosure, "")

	require.Eventually(t, func() bool {
		return s.priceStream.SubscriberCount() == 1
	}, 2*time.Second, 10*time.Millisecond)

	code := postJSON(t, srv.URL+"/api/prices", map[string]interface{}{
		"crop":              "paddy",
		"market":            "vijayawada",
		"date":              "2025-08-02",
		"price_per_quintal": 2410.0,
	}, nil)
	require.Equal(t, http.StatusCreated, code)

	msgType, data, err := conn.Read(ctx)
	require.NoError(t, err)
	assert.Equal(t, websocket.MessageText, msgType)

	var price struct {
		Crop            string  `json:"crop"`
		Market          string  `json:"market"`
		PricePerQuintal float64 `json:"price_per_quintal"`
	}
	require.NoError(t, json.Unmarshal(data, &price))
	assert.Equal(t, "paddy", price.Crop)
	assert.Equal(t, "vijayawada", price.Market)
	assert.Equal(t, 2410.0, price.PricePerQuintal)
}

func TestServer_AdvisoryEndpointThroughRouter(t *testing.T) {
	_, srv := newTestServer(t)

	var generated struct {
		Data struct {
			Crop     string `json:"crop"`
			Decision string `json:"decision"`
		} `json:"data"`
	}
	code := postJSON(t, srv.URL+"/api/advisories", map[string]interface{}{
		"crop":    "paddy",
		"acreage": 3.0,
		"mandal":  "Kankipadu",
	}, &generated)

	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "paddy", generated.Data.Crop)
	assert.NotEmpty(t, generated.Data.Decision)
}

func TestServer_CropCatalogThroughRouter(t *testing.T) {
	_, srv := newTestServer(t)

	var listing struct {
		Data []struct {
			Name string `json:"name"`
		} `json:"data"`
	}
	code := getJSON(t, srv.URL+"/api/crops", &listing)
	require.Equal(t, http.StatusOK, code)
	assert.NotEmpty(t, listing.Data)

	var crop struct {
		Data struct {
			Name     string  `json:"name"`
			AvgPrice float64 `json:"avg_price"`
		} `json:"data"`
	}
	code = getJSON(t, srv.URL+"/api/crops/chillies", &crop)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "chillies", crop.Data.Name)
	assert.Equal(t, 9000.0, crop.Data.AvgPrice)
}

func TestServer_SystemStatusThroughRouter(t *testing.T) {
	_, srv := newTestServer(t)

	var status SystemStatusResponse
	code := getJSON(t, srv.URL+"/api/system/status", &status)

	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "healthy", status.Status)
	assert.Greater(t, status.Goroutines, 0)
}

func TestServer_BackupRoutesDisabled(t *testing.T) {
	_, srv := newTestServer(t)

	resp, err := http.Post(srv.URL+"/api/system/backup", "application/json", nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestServer_UnknownRoute(t *testing.T) {
	_, srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/api/tractors")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
