package scanout_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/bnema/primelayer/internal/colorimetry"
	"github.com/bnema/primelayer/internal/drm"
	"github.com/bnema/primelayer/internal/geom"
	"github.com/bnema/primelayer/internal/metrics"
	"github.com/bnema/primelayer/internal/scanout"
	"github.com/bnema/primelayer/internal/sim"
	"github.com/bnema/primelayer/internal/videobuf"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type rig struct {
	kms     *sim.KMS
	req     *drm.AtomicRequest
	pool    *videobuf.Pool
	dec     *sim.Decoder
	bridge  *scanout.Bridge
	metrics *metrics.Metrics
}

func newRig(t *testing.T, out scanout.Output, stream sim.Stream) *rig {
	t.Helper()
	r := &rig{
		kms:     sim.NewKMS(),
		req:     drm.NewAtomicRequest(),
		pool:    videobuf.NewPool(0),
		metrics: metrics.New(),
	}
	if stream.Picture.Width == 0 {
		stream.Picture = sim.SDRPicture(1280, 720)
	}
	r.dec = sim.NewDecoder(r.pool, stream)
	r.bridge = scanout.New(r.kms, r.req, out, scanout.WithMetrics(r.metrics))
	return r
}

func sdrOutput() scanout.Output {
	return scanout.Output{
		VideoPlane: sim.VideoPlane(),
		GUIPlane:   sim.GUIPlane(),
		Connector:  sim.Connector(false),
		CrtcID:     sim.CrtcID,
	}
}

func hdrOutput() scanout.Output {
	out := sdrOutput()
	out.Connector = sim.Connector(true)
	out.Caps = sim.HDRSink()
	return out
}

func (r *rig) decode(t *testing.T) *videobuf.PrimeBuffer {
	t.Helper()
	buf, err := r.dec.Decode()
	require.NoError(t, err)
	return buf
}

func (r *rig) value(t *testing.T, obj uint32, name string) uint64 {
	t.Helper()
	v, ok := r.req.Value(obj, name)
	require.True(t, ok, "%s not staged on object %d", name, obj)
	return v
}

var fullscreen = geom.XYWH(0, 0, 1920, 1080)

func TestRetirementQueue(t *testing.T) {
	r := newRig(t, sdrOutput(), sim.Stream{})
	b1, b2, b3 := r.decode(t), r.decode(t), r.decode(t)

	require.True(t, r.bridge.StagePlane(b1, fullscreen))
	assert.Equal(t, 2, b1.Refs())
	assert.Same(t, b1, r.bridge.Current())
	assert.Nil(t, r.bridge.Previous())

	require.True(t, r.bridge.StagePlane(b2, fullscreen))
	assert.Equal(t, 2, b1.Refs(), "superseded buffer is kept for one more cycle")
	assert.Same(t, b1, r.bridge.Previous())
	assert.NotZero(t, r.bridge.FramebufferID(b1))

	require.True(t, r.bridge.StagePlane(b3, fullscreen))
	assert.Equal(t, 1, b1.Refs())
	assert.Zero(t, r.bridge.FramebufferID(b1), "retired buffer is unmapped")
	assert.Equal(t, 0, b1.DescriptorRefs())
	assert.Equal(t, 2, b2.Refs())
	assert.Equal(t, 2, b3.Refs())
	assert.Equal(t, 2, r.kms.LiveFramebuffers())
	assert.Equal(t, 2, r.kms.LiveHandles())

	r.bridge.Close()
	for _, b := range []*videobuf.PrimeBuffer{b1, b2, b3} {
		assert.Equal(t, 1, b.Refs())
		assert.Equal(t, 0, b.DescriptorRefs())
		b.Release()
	}
	assert.Equal(t, 0, r.pool.InUse())
	assert.Equal(t, 0, r.kms.LiveFramebuffers())
	assert.Equal(t, 0, r.kms.LiveHandles())
}

func TestAcquireWithoutImport(t *testing.T) {
	r := newRig(t, sdrOutput(), sim.Stream{})
	b1, b2, b3 := r.decode(t), r.decode(t), r.decode(t)

	r.bridge.Acquire(b1)
	r.bridge.Acquire(b2)
	r.bridge.Acquire(b3)
	assert.Equal(t, 1, b1.Refs())
	assert.Equal(t, 2, b2.Refs())
	assert.Equal(t, 2, b3.Refs())

	r.bridge.Close()
	assert.Nil(t, r.bridge.Current())
	assert.Nil(t, r.bridge.Previous())
	assert.Equal(t, 1, b2.Refs())
	assert.Equal(t, 1, b3.Refs())
}

func TestMapIsIdempotent(t *testing.T) {
	r := newRig(t, sdrOutput(), sim.Stream{})
	b := r.decode(t)

	require.True(t, r.bridge.MapForScanout(b))
	id := r.bridge.FramebufferID(b)
	require.True(t, r.bridge.MapForScanout(b))
	require.True(t, r.bridge.StagePlane(b, fullscreen))

	assert.Equal(t, 1, r.kms.FramebufferCreates)
	assert.Equal(t, id, r.bridge.FramebufferID(b))
	assert.Equal(t, 2, b.Refs(), "only a fresh import takes a reference")
	assert.Equal(t, 1, b.DescriptorRefs())
	assert.Equal(t, uint64(id), r.value(t, sim.VideoPlaneID, drm.PropFBID))
}

func TestUnmapFromScanout(t *testing.T) {
	r := newRig(t, sdrOutput(), sim.Stream{ObjectPerPlane: true})
	b := r.decode(t)

	require.True(t, r.bridge.MapForScanout(b))
	assert.Equal(t, 2, r.kms.LiveHandles())
	assert.Equal(t, 1, r.kms.LiveFramebuffers())

	r.bridge.UnmapFromScanout(b)
	assert.Equal(t, 0, r.kms.LiveHandles())
	assert.Equal(t, 0, r.kms.LiveFramebuffers())
	assert.Equal(t, 0, b.DescriptorRefs())
	assert.Zero(t, r.bridge.FramebufferID(b))

	r.bridge.UnmapFromScanout(b)
	r.bridge.UnmapFromScanout(r.decode(t))

	r.bridge.Close()
	assert.Equal(t, 1, b.Refs())
}

func TestImportFailureLeavesNothingBehind(t *testing.T) {
	boom := errors.New("boom")

	tests := []struct {
		name  string
		setup func(k *sim.KMS)
	}{
		{
			name: "second handle import fails",
			setup: func(k *sim.KMS) {
				calls := 0
				k.ImportHook = func(int) error {
					calls++
					if calls == 2 {
						return boom
					}
					return nil
				}
			},
		},
		{
			name: "framebuffer creation fails",
			setup: func(k *sim.KMS) {
				k.FramebufferHook = func(drm.FramebufferSpec) error { return boom }
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newRig(t, sdrOutput(), sim.Stream{ObjectPerPlane: true})
			tt.setup(r.kms)
			b := r.decode(t)

			assert.False(t, r.bridge.StagePlane(b, fullscreen))
			assert.Equal(t, 1, b.Refs())
			assert.Equal(t, 0, b.DescriptorRefs())
			assert.Equal(t, 0, r.kms.LiveHandles())
			assert.Equal(t, 0, r.kms.LiveFramebuffers())
			assert.Nil(t, r.bridge.Current())
			assert.Empty(t, r.req.Pending(), "a failed frame stages nothing")

			err := testutil.GatherAndCompare(r.metrics.Registry(), strings.NewReader(`
# HELP primelayer_scanout_import_failures_total Buffers that could not be imported for scanout
# TYPE primelayer_scanout_import_failures_total counter
primelayer_scanout_import_failures_total 1
`), "primelayer_scanout_import_failures_total")
			assert.NoError(t, err)
		})
	}
}

func TestMapRejectsBadDescriptor(t *testing.T) {
	r := newRig(t, sdrOutput(), sim.Stream{})
	b, err := r.pool.Get(sim.SDRPicture(64, 64), videobuf.FormatDRMPrime, videobuf.Descriptor{})
	require.NoError(t, err)

	assert.False(t, r.bridge.MapForScanout(b))
	assert.Equal(t, 0, r.kms.FramebufferCreates)
	assert.Equal(t, 1, b.Refs())
}

func TestStagePlaneGeometry(t *testing.T) {
	tests := []struct {
		name       string
		dest       geom.Rect
		x, y, w, h uint64
	}{
		{"odd origin and size", geom.XYWH(101, 50, 639, 359), 100, 50, 640, 360},
		{"already even", geom.XYWH(240, 0, 1440, 1080), 240, 0, 1440, 1080},
		{"negative origin", geom.XYWH(-3, -1, 10, 10), uint64(0xfffffffffffffffc), uint64(0xfffffffffffffffe), 10, 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newRig(t, sdrOutput(), sim.Stream{})
			b := r.decode(t)
			require.True(t, r.bridge.StagePlane(b, tt.dest))

			assert.Equal(t, tt.x, r.value(t, sim.VideoPlaneID, drm.PropCrtcX))
			assert.Equal(t, tt.y, r.value(t, sim.VideoPlaneID, drm.PropCrtcY))
			assert.Equal(t, tt.w, r.value(t, sim.VideoPlaneID, drm.PropCrtcW))
			assert.Equal(t, tt.h, r.value(t, sim.VideoPlaneID, drm.PropCrtcH))

			assert.Equal(t, uint64(0), r.value(t, sim.VideoPlaneID, drm.PropSrcX))
			assert.Equal(t, uint64(1280)<<16, r.value(t, sim.VideoPlaneID, drm.PropSrcW))
			assert.Equal(t, uint64(720)<<16, r.value(t, sim.VideoPlaneID, drm.PropSrcH))
			assert.Equal(t, uint64(sim.CrtcID), r.value(t, sim.VideoPlaneID, drm.PropCrtcID))
			r.bridge.Close()
		})
	}
}

func TestStagePlaneWithoutVideoPlane(t *testing.T) {
	out := sdrOutput()
	out.VideoPlane = nil
	r := newRig(t, out, sim.Stream{})
	b := r.decode(t)
	refs := b.Refs()

	assert.False(t, r.bridge.StagePlane(b, fullscreen))
	assert.Equal(t, refs, b.Refs(), "no reference taken")
	assert.Zero(t, r.kms.FramebufferCreates)
	assert.Zero(t, r.kms.LiveHandles())
	assert.Zero(t, r.bridge.FramebufferID(b))
	assert.Nil(t, r.bridge.Current())
	assert.Empty(t, r.req.Pending())

	r.bridge.Close()
	b.Release()
	assert.Zero(t, r.pool.InUse())
}

func TestFramebufferLayout(t *testing.T) {
	r := newRig(t, sdrOutput(), sim.Stream{SplitLayers: true, Modifier: 0x0100000000000002})
	b := r.decode(t)
	require.True(t, r.bridge.MapForScanout(b))

	spec, ok := r.kms.Framebuffer(r.bridge.FramebufferID(b))
	require.True(t, ok)
	assert.Equal(t, drm.FormatNV12, spec.Format)
	assert.Equal(t, uint32(1280), spec.Width)
	assert.Equal(t, uint32(720), spec.Height)
	assert.Equal(t, drm.FlagModifiers, spec.Flags)
	assert.Equal(t, spec.Handles[0], spec.Handles[1], "both planes live in one object")
	assert.Equal(t, uint32(1280*720), spec.Offsets[1])
	r.bridge.Close()
}

func TestConfigureDisplayHDR(t *testing.T) {
	r := newRig(t, hdrOutput(), sim.Stream{Format: videobuf.FormatP010, Picture: sim.HDR10Picture(3840, 2160, 1000)})
	b := r.decode(t)

	r.bridge.ConfigureDisplay(b)
	assert.True(t, r.req.Active())
	assert.Equal(t, uint64(2), r.value(t, sim.VideoPlaneID, drm.PropColorEncoding))
	assert.Equal(t, uint64(0), r.value(t, sim.VideoPlaneID, drm.PropColorRange))
	assert.Equal(t, uint64(10), r.value(t, sim.ConnectorID, drm.PropColorspace))

	blob := r.bridge.HDRBlob()
	require.NotZero(t, blob)
	assert.Equal(t, uint64(blob), r.value(t, sim.ConnectorID, drm.PropHDRMetadata))

	data, ok := r.kms.Blob(blob)
	require.True(t, ok)
	var want colorimetry.HDRMetadata
	want.Apply(b.Picture(), colorimetry.EOTFSMPTEST2084)
	wantData, err := want.MarshalBinary()
	require.NoError(t, err)
	assert.Equal(t, wantData, data)

	// new metadata replaces the blob, never two at once
	b2 := r.decode(t)
	b2.Picture().Mastering.MaxLuminance = videobuf.Rational{Num: 4000, Den: 1}
	r.bridge.ConfigureDisplay(b2)
	assert.NotEqual(t, blob, r.bridge.HDRBlob())
	assert.Equal(t, 2, r.kms.BlobCreates)
	assert.Equal(t, 1, r.kms.LiveBlobs())
	assert.Equal(t, 1, r.kms.PeakBlobs())

	r.bridge.Close()
	assert.Zero(t, r.bridge.HDRBlob())
	assert.Equal(t, 0, r.kms.LiveBlobs())
}

func TestConfigureDisplayWithoutSinkSupport(t *testing.T) {
	tests := []struct {
		name string
		caps colorimetry.Capabilities
	}{
		{"no capability data", nil},
		{"sdr sink", sim.Sink{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := hdrOutput()
			out.Caps = tt.caps
			r := newRig(t, out, sim.Stream{Format: videobuf.FormatP010, Picture: sim.HDR10Picture(3840, 2160, 1000)})
			b := r.decode(t)

			r.bridge.ConfigureDisplay(b)
			assert.True(t, r.req.Active())
			assert.Equal(t, uint64(2), r.value(t, sim.VideoPlaneID, drm.PropColorEncoding), "plane encoding does not depend on the sink")

			_, ok := r.req.Value(sim.ConnectorID, drm.PropColorspace)
			assert.False(t, ok)
			_, ok = r.req.Value(sim.ConnectorID, drm.PropHDRMetadata)
			assert.False(t, ok)
			assert.Equal(t, 0, r.kms.BlobCreates)
		})
	}
}

func TestConfigureDisplaySDR(t *testing.T) {
	r := newRig(t, hdrOutput(), sim.Stream{Picture: sim.SDRPicture(720, 576)})
	b := r.decode(t)

	r.bridge.ConfigureDisplay(b)
	assert.Equal(t, uint64(0), r.value(t, sim.VideoPlaneID, drm.PropColorEncoding), "untagged SD is BT.601")
	assert.Equal(t, uint64(0), r.value(t, sim.ConnectorID, drm.PropColorspace))

	// SDR on an HDR capable connector still sends metadata with the SDR eotf
	blob := r.bridge.HDRBlob()
	require.NotZero(t, blob)
	data, _ := r.kms.Blob(blob)
	assert.Equal(t, colorimetry.EOTFTraditionalSDR, data[4])
	r.bridge.Close()
}

func TestConfigureDisplayBlobFailure(t *testing.T) {
	r := newRig(t, hdrOutput(), sim.Stream{Format: videobuf.FormatP010, Picture: sim.HDR10Picture(3840, 2160, 1000)})
	r.kms.BlobHook = func([]byte) error { return errors.New("enomem") }

	r.bridge.ConfigureDisplay(r.decode(t))
	assert.Zero(t, r.bridge.HDRBlob())
	assert.Equal(t, uint64(0), r.value(t, sim.ConnectorID, drm.PropHDRMetadata))
}

func TestConfigureDisplayFallsBackToGUIPlane(t *testing.T) {
	gui := drm.NewModeObject(sim.GUIPlaneID).
		WithProperty(drm.PropColorEncoding, map[string]uint64{colorimetry.EncodingBT709: 1}).
		WithProperty(drm.PropColorRange, map[string]uint64{colorimetry.RangeFull: 1})
	out := scanout.Output{GUIPlane: gui}

	pic := sim.SDRPicture(1920, 1080)
	pic.FullRange = true
	r := newRig(t, out, sim.Stream{Picture: pic})

	r.bridge.ConfigureDisplay(r.decode(t))
	assert.Equal(t, uint64(1), r.value(t, sim.GUIPlaneID, drm.PropColorEncoding))
	assert.Equal(t, uint64(1), r.value(t, sim.GUIPlaneID, drm.PropColorRange))
	assert.True(t, r.req.Active())
}

func TestRefreshPlane(t *testing.T) {
	r := newRig(t, sdrOutput(), sim.Stream{})
	b1, b2 := r.decode(t), r.decode(t)

	r.bridge.RefreshPlane()
	assert.Empty(t, r.req.Pending())

	require.True(t, r.bridge.StagePlane(b1, fullscreen))
	require.True(t, r.bridge.StagePlane(b2, fullscreen))
	r.req.Reset()

	r.bridge.RefreshPlane()
	assert.Nil(t, r.bridge.Previous())
	assert.Equal(t, 1, b1.Refs())
	assert.Equal(t, 2, r.kms.FramebufferCreates, "no new import")
	assert.Equal(t, uint64(r.bridge.FramebufferID(b2)), r.value(t, sim.VideoPlaneID, drm.PropFBID))
	assert.Equal(t, uint64(sim.CrtcID), r.value(t, sim.VideoPlaneID, drm.PropCrtcID))
	r.bridge.Close()
}

func TestDisablePlane(t *testing.T) {
	r := newRig(t, hdrOutput(), sim.Stream{Format: videobuf.FormatP010, Picture: sim.HDR10Picture(3840, 2160, 1000)})
	b := r.decode(t)
	r.bridge.ConfigureDisplay(b)
	require.True(t, r.bridge.StagePlane(b, fullscreen))
	require.Equal(t, 1, r.kms.LiveBlobs())
	r.req.Reset()

	r.bridge.DisablePlane()
	assert.Equal(t, uint64(0), r.value(t, sim.VideoPlaneID, drm.PropFBID))
	assert.Equal(t, uint64(0), r.value(t, sim.VideoPlaneID, drm.PropCrtcID))
	assert.Equal(t, uint64(0), r.value(t, sim.ConnectorID, drm.PropColorspace))
	assert.Equal(t, uint64(0), r.value(t, sim.ConnectorID, drm.PropHDRMetadata))
	assert.True(t, r.req.Active())
	assert.Equal(t, 0, r.kms.LiveBlobs())
	assert.Zero(t, r.bridge.HDRBlob())

	r.bridge.Close()
	b.Release()
	assert.Equal(t, 0, r.pool.InUse())
}
