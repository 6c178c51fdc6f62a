package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.FramebufferCreated()
		m.FramebufferDestroyed()
		m.ImportFailed()
		m.PlaneStaged()
		m.SetHDRBlobs(1)
		m.ColorimetrySkipped()
		m.SlotAnomaly()
		m.TextureMapFailed()
		m.FrameRendered()
		m.SetSlotsOccupied(3)
	})
}

func TestCounters(t *testing.T) {
	m := New()
	m.FramebufferCreated()
	m.FramebufferCreated()
	m.FramebufferDestroyed()
	m.SlotAnomaly()
	m.SetHDRBlobs(1)
	m.SetSlotsOccupied(2)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.framebuffersCreated))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.framebuffersDestroyed))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.slotAnomalies))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.hdrBlobsLive))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.slotsOccupied))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.importFailures))

	n, err := testutil.GatherAndCount(m.Registry())
	require.NoError(t, err)
	assert.Equal(t, 10, n)
}

func TestRouter(t *testing.T) {
	m := New()
	m.FrameRendered()
	srv := httptest.NewServer(m.Router())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	rec := httptest.NewRecorder()
	m.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Contains(t, rec.Body.String(), "primelayer_frames_rendered_total 1")

	rec = httptest.NewRecorder()
	m.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/metrics", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)

	rec = httptest.NewRecorder()
	m.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
