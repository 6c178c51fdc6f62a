// Package metrics exposes Prometheus counters for both presentation paths.
// A nil *Metrics is valid and records nothing.
package metrics

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the presentation counters and gauges.
type Metrics struct {
	registry *prometheus.Registry

	framebuffersCreated   prometheus.Counter
	framebuffersDestroyed prometheus.Counter
	importFailures        prometheus.Counter
	planesStaged          prometheus.Counter
	hdrBlobsLive          prometheus.Gauge
	colorimetrySkipped    prometheus.Counter

	slotAnomalies      prometheus.Counter
	textureMapFailures prometheus.Counter
	framesRendered     prometheus.Counter
	slotsOccupied      prometheus.Gauge
}

// New creates and registers the metrics on a private registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		framebuffersCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "primelayer_framebuffers_created_total",
			Help: "Framebuffers imported for direct scanout",
		}),
		framebuffersDestroyed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "primelayer_framebuffers_destroyed_total",
			Help: "Scanout framebuffers removed",
		}),
		importFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "primelayer_scanout_import_failures_total",
			Help: "Buffers that could not be imported for scanout",
		}),
		planesStaged: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "primelayer_planes_staged_total",
			Help: "Video plane updates staged into atomic requests",
		}),
		hdrBlobsLive: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "primelayer_hdr_blobs_live",
			Help: "HDR output metadata blobs currently allocated",
		}),
		colorimetrySkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "primelayer_colorimetry_fallbacks_total",
			Help: "Colorimetry or HDR requests skipped because the sink does not advertise them",
		}),
		slotAnomalies: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "primelayer_slot_anomalies_total",
			Help: "Pictures submitted into slots still holding an unreleased buffer",
		}),
		textureMapFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "primelayer_texture_map_failures_total",
			Help: "Buffers that could not be mapped into GPU textures",
		}),
		framesRendered: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "primelayer_frames_rendered_total",
			Help: "Frames drawn by the composite renderer",
		}),
		slotsOccupied: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "primelayer_slots_occupied",
			Help: "Renderer slots holding a decoder buffer",
		}),
	}

	m.registry.MustRegister(
		m.framebuffersCreated,
		m.framebuffersDestroyed,
		m.importFailures,
		m.planesStaged,
		m.hdrBlobsLive,
		m.colorimetrySkipped,
		m.slotAnomalies,
		m.textureMapFailures,
		m.framesRendered,
		m.slotsOccupied,
	)
	return m
}

func (m *Metrics) FramebufferCreated() {
	if m != nil {
		m.framebuffersCreated.Inc()
	}
}

func (m *Metrics) FramebufferDestroyed() {
	if m != nil {
		m.framebuffersDestroyed.Inc()
	}
}

func (m *Metrics) ImportFailed() {
	if m != nil {
		m.importFailures.Inc()
	}
}

func (m *Metrics) PlaneStaged() {
	if m != nil {
		m.planesStaged.Inc()
	}
}

// SetHDRBlobs records whether a metadata blob is allocated.
func (m *Metrics) SetHDRBlobs(n int) {
	if m != nil {
		m.hdrBlobsLive.Set(float64(n))
	}
}

func (m *Metrics) ColorimetrySkipped() {
	if m != nil {
		m.colorimetrySkipped.Inc()
	}
}

func (m *Metrics) SlotAnomaly() {
	if m != nil {
		m.slotAnomalies.Inc()
	}
}

func (m *Metrics) TextureMapFailed() {
	if m != nil {
		m.textureMapFailures.Inc()
	}
}

func (m *Metrics) FrameRendered() {
	if m != nil {
		m.framesRendered.Inc()
	}
}

func (m *Metrics) SetSlotsOccupied(n int) {
	if m != nil {
		m.slotsOccupied.Set(float64(n))
	}
}

// Registry exposes the registry for tests and custom exporters.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Router mounts the metrics handler at /metrics.
func (m *Metrics) Router() http.Handler {
	r := chi.NewRouter()
	r.Method(http.MethodGet, "/metrics", m.Handler())
	return r
}
