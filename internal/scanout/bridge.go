// Package scanout puts decoded hardware buffers straight onto a KMS overlay
// plane, bypassing the GPU. The Bridge owns the framebuffer imports of the
// buffers it shows and keeps the previously shown buffer alive for one more
// cycle, since the display may still be reading it when the next frame is
// staged.
package scanout

import (
	"github.com/bnema/primelayer/internal/colorimetry"
	"github.com/bnema/primelayer/internal/drm"
	"github.com/bnema/primelayer/internal/geom"
	"github.com/bnema/primelayer/internal/logger"
	"github.com/bnema/primelayer/internal/metrics"
	"github.com/bnema/primelayer/internal/videobuf"
	"github.com/charmbracelet/log"
)

// KMS is the subset of the DRM device the bridge needs.
type KMS interface {
	ImportHandle(fd int) (uint32, error)
	CloseHandle(handle uint32) error
	CreateFramebuffer(spec drm.FramebufferSpec) (uint32, error)
	DestroyFramebuffer(id uint32) error
	CreatePropertyBlob(data []byte) (uint32, error)
	DestroyPropertyBlob(id uint32) error
}

// Request receives staged property writes for the next atomic commit.
type Request interface {
	StageProperty(obj drm.Object, name string, value uint64)
	MarkActive()
}

// Output is the display pipe the bridge drives.
type Output struct {
	VideoPlane drm.Object
	// GUIPlane carries the colour properties when there is no video plane.
	GUIPlane  drm.Object
	Connector drm.Object
	CrtcID    uint32
	// Caps is the sink capability data; nil means nothing is advertised.
	Caps colorimetry.Capabilities
}

// Option configures a Bridge.
type Option func(*Bridge)

// WithMetrics records bridge activity.
func WithMetrics(m *metrics.Metrics) Option {
	return func(b *Bridge) { b.metrics = m }
}

type framebuffer struct {
	id      uint32
	handles [videobuf.MaxObjects]uint32
}

// Bridge is the direct scanout presentation path. It is not safe for
// concurrent use; all calls belong on the display thread.
type Bridge struct {
	kms     KMS
	req     Request
	out     Output
	metrics *metrics.Metrics
	log     *log.Logger

	previous videobuf.Buffer
	current  videobuf.Buffer
	imports  map[videobuf.Buffer]*framebuffer

	hdr     colorimetry.HDRMetadata
	hdrBlob uint32
}

// New creates a bridge for one output.
func New(kms KMS, req Request, out Output, opts ...Option) *Bridge {
	b := &Bridge{
		kms:     kms,
		req:     req,
		out:     out,
		imports: make(map[videobuf.Buffer]*framebuffer),
		log:     logger.With("scanout"),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Close releases both retained buffers and the HDR metadata blob.
func (b *Bridge) Close() {
	b.Release(b.previous)
	b.previous = nil
	b.Release(b.current)
	b.current = nil
	b.destroyBlob()
}

// Acquire makes buf the current buffer. The buffer shown before the current
// one is released, so a buffer stays referenced for one full cycle after it
// has been superseded.
func (b *Bridge) Acquire(buf videobuf.Buffer) {
	b.Release(b.previous)

	b.previous = b.current

	b.current = buf
	b.current.Acquire()
}

// Release unmaps buf and drops the bridge's reference. Nil is ignored.
func (b *Bridge) Release(buf videobuf.Buffer) {
	if buf == nil {
		return
	}
	b.UnmapFromScanout(buf)
	buf.Release()
}

// MapForScanout imports buf as a framebuffer. A buffer that is already
// imported is left alone. A fresh import becomes the current buffer.
// On failure nothing imported so far is retained.
func (b *Bridge) MapForScanout(buf videobuf.Buffer) bool {
	if _, ok := b.imports[buf]; ok {
		return true
	}

	if err := buf.AcquireDescriptor(); err != nil {
		b.log.Error("failed to acquire descriptor", "err", err)
		b.metrics.ImportFailed()
		return false
	}

	desc := buf.Descriptor()
	if desc == nil {
		b.log.Error("buffer returned no descriptor")
		buf.ReleaseDescriptor()
		b.metrics.ImportFailed()
		return false
	}

	fb := &framebuffer{}
	for i, obj := range desc.Objects {
		if i >= videobuf.MaxObjects {
			break
		}
		handle, err := b.kms.ImportHandle(obj.FD)
		if err != nil {
			b.log.Error("failed to convert prime fd to gem handle", "fd", obj.FD, "object", i, "err", err)
			b.teardown(buf, fb)
			b.metrics.ImportFailed()
			return false
		}
		fb.handles[i] = handle
	}

	spec := planeLayout(desc, fb.handles)
	spec.Width = uint32(buf.Width())
	spec.Height = uint32(buf.Height())

	id, err := b.kms.CreateFramebuffer(spec)
	if err != nil {
		b.log.Error("failed to add framebuffer", "spec", spec.String(), "err", err)
		b.teardown(buf, fb)
		b.metrics.ImportFailed()
		return false
	}
	fb.id = id
	b.imports[buf] = fb
	b.metrics.FramebufferCreated()
	b.log.Debug("imported framebuffer", "fb", id, "format", drm.FormatName(spec.Format), "flags", spec.Flags)

	b.Acquire(buf)
	return true
}

// UnmapFromScanout removes the framebuffer of buf, closes its handles and
// releases the descriptor. Buffers without an import are ignored.
func (b *Bridge) UnmapFromScanout(buf videobuf.Buffer) {
	fb, ok := b.imports[buf]
	if !ok {
		return
	}
	delete(b.imports, buf)
	b.teardown(buf, fb)
}

func (b *Bridge) teardown(buf videobuf.Buffer, fb *framebuffer) {
	if fb.id != 0 {
		if err := b.kms.DestroyFramebuffer(fb.id); err != nil {
			b.log.Error("failed to remove framebuffer", "fb", fb.id, "err", err)
		}
		b.metrics.FramebufferDestroyed()
		fb.id = 0
	}

	for i, h := range fb.handles {
		if h == 0 {
			continue
		}
		if err := b.kms.CloseHandle(h); err != nil {
			b.log.Error("failed to close gem handle", "handle", h, "err", err)
		}
		fb.handles[i] = 0
	}

	buf.ReleaseDescriptor()
}

// ConfigureDisplay stages the colour state a picture needs before its first
// presentation: plane encoding and range, connector colorimetry and HDR
// output metadata. Anything the display does not expose or advertise is
// skipped.
func (b *Bridge) ConfigureDisplay(buf videobuf.Buffer) {
	pic := buf.Picture()

	plane := b.out.VideoPlane
	if plane == nil {
		plane = b.out.GUIPlane
	}
	if plane != nil {
		if v, ok := plane.PropertyValue(drm.PropColorEncoding, colorimetry.ColorEncoding(pic)); ok {
			b.req.StageProperty(plane, drm.PropColorEncoding, v)
		}
		if v, ok := plane.PropertyValue(drm.PropColorRange, colorimetry.ColorRange(pic)); ok {
			b.req.StageProperty(plane, drm.PropColorRange, v)
		}
	}

	if conn := b.out.Connector; conn != nil {
		b.configureColorimetry(conn, pic)
		b.configureHDR(conn, pic)
	}

	b.req.MarkActive()
}

func (b *Bridge) configureColorimetry(conn drm.Object, pic *videobuf.Picture) {
	name := colorimetry.Colorimetry(pic)
	v, ok := conn.PropertyValue(drm.PropColorspace, name)
	if !ok {
		return
	}
	if !b.caps().SupportsColorimetry(name) {
		b.log.Debug("sink does not advertise colorimetry, keeping current", "colorspace", name)
		b.metrics.ColorimetrySkipped()
		return
	}
	b.log.Debug("setting connector colorspace", "colorspace", name)
	b.req.StageProperty(conn, drm.PropColorspace, v)
	b.req.MarkActive()
}

func (b *Bridge) configureHDR(conn drm.Object, pic *videobuf.Picture) {
	if !conn.SupportsProperty(drm.PropHDRMetadata) {
		return
	}

	eotf := colorimetry.EOTF(pic)
	if !b.caps().SupportsEOTF(eotf) {
		b.log.Debug("sink does not advertise eotf", "eotf", colorimetry.EOTFName(eotf))
		b.metrics.ColorimetrySkipped()
		return
	}

	b.destroyBlob()
	b.hdr.Apply(pic, eotf)

	data, err := b.hdr.MarshalBinary()
	if err == nil {
		b.hdrBlob, err = b.kms.CreatePropertyBlob(data)
	}
	if err != nil {
		b.log.Error("failed to create hdr metadata blob", "err", err)
		b.hdrBlob = 0
	} else {
		b.log.Debug("hdr metadata",
			"eotf", colorimetry.EOTFName(eotf),
			"primaries", b.hdr.DisplayPrimaries,
			"white", b.hdr.WhitePoint,
			"max_lum", b.hdr.MaxLuminance,
			"min_lum", b.hdr.MinLuminance,
			"max_cll", b.hdr.MaxCLL,
			"max_fall", b.hdr.MaxFALL,
			"blob", b.hdrBlob)
	}
	b.metrics.SetHDRBlobs(b.liveBlobs())

	b.req.StageProperty(conn, drm.PropHDRMetadata, uint64(b.hdrBlob))
}

// StagePlane shows buf on the video plane inside dest. It returns false and
// stages nothing when there is no video plane or the buffer cannot be
// imported; the plane then keeps its previous content.
func (b *Bridge) StagePlane(buf videobuf.Buffer, dest geom.Rect) bool {
	plane := b.out.VideoPlane
	if plane == nil {
		b.log.Error("no video plane to stage on")
		return false
	}
	if !b.MapForScanout(buf) {
		b.UnmapFromScanout(buf)
		return false
	}
	fb := b.imports[buf]

	b.req.StageProperty(plane, drm.PropFBID, uint64(fb.id))
	b.req.StageProperty(plane, drm.PropCrtcID, uint64(b.out.CrtcID))
	b.req.StageProperty(plane, drm.PropSrcX, 0)
	b.req.StageProperty(plane, drm.PropSrcY, 0)
	b.req.StageProperty(plane, drm.PropSrcW, uint64(buf.Width())<<16)
	b.req.StageProperty(plane, drm.PropSrcH, uint64(buf.Height())<<16)

	x, y, w, h := evenGeometry(dest)
	b.req.StageProperty(plane, drm.PropCrtcX, x)
	b.req.StageProperty(plane, drm.PropCrtcY, y)
	b.req.StageProperty(plane, drm.PropCrtcW, w)
	b.req.StageProperty(plane, drm.PropCrtcH, h)

	b.metrics.PlaneStaged()
	return true
}

// evenGeometry rounds the origin down and the size up to even values.
// Signed origins are sign extended as the kernel expects for CRTC_X/Y.
func evenGeometry(dest geom.Rect) (x, y, w, h uint64) {
	x = uint64(int64(int32(dest.X1) &^ 1))
	y = uint64(int64(int32(dest.Y1) &^ 1))
	w = uint64((uint32(dest.Width()) + 1) &^ 1)
	h = uint64((uint32(dest.Height()) + 1) &^ 1)
	return x, y, w, h
}

// RefreshPlane re-stages the current framebuffer without importing again
// and releases the buffer shown before it.
func (b *Bridge) RefreshPlane() {
	if b.current == nil {
		return
	}
	fb, ok := b.imports[b.current]
	if !ok {
		return
	}

	b.Release(b.previous)
	b.previous = nil

	plane := b.out.VideoPlane
	if plane == nil {
		return
	}
	b.req.StageProperty(plane, drm.PropFBID, uint64(fb.id))
	b.req.StageProperty(plane, drm.PropCrtcID, uint64(b.out.CrtcID))
}

// DisablePlane detaches the video plane and resets connector colour state.
func (b *Bridge) DisablePlane() {
	if plane := b.out.VideoPlane; plane != nil {
		b.req.StageProperty(plane, drm.PropFBID, 0)
		b.req.StageProperty(plane, drm.PropCrtcID, 0)
	}

	conn := b.out.Connector
	if conn == nil {
		return
	}

	if v, ok := conn.PropertyValue(drm.PropColorspace, colorimetry.ColorimetryDefault); ok {
		b.log.Debug("setting connector colorspace", "colorspace", colorimetry.ColorimetryDefault)
		b.req.StageProperty(conn, drm.PropColorspace, v)
	}

	if conn.SupportsProperty(drm.PropHDRMetadata) {
		b.req.StageProperty(conn, drm.PropHDRMetadata, 0)
		b.req.MarkActive()
		b.destroyBlob()
	}
}

func (b *Bridge) destroyBlob() {
	if b.hdrBlob == 0 {
		return
	}
	if err := b.kms.DestroyPropertyBlob(b.hdrBlob); err != nil {
		b.log.Error("failed to destroy hdr metadata blob", "blob", b.hdrBlob, "err", err)
	}
	b.hdrBlob = 0
	b.metrics.SetHDRBlobs(0)
}

func (b *Bridge) liveBlobs() int {
	if b.hdrBlob != 0 {
		return 1
	}
	return 0
}

func (b *Bridge) caps() colorimetry.Capabilities {
	if b.out.Caps == nil {
		return noCaps{}
	}
	return b.out.Caps
}

type noCaps struct{}

func (noCaps) SupportsColorimetry(string) bool { return false }
func (noCaps) SupportsEOTF(uint8) bool         { return false }

// Current returns the buffer being presented, or nil.
func (b *Bridge) Current() videobuf.Buffer { return b.current }

// Previous returns the buffer waiting to be retired, or nil.
func (b *Bridge) Previous() videobuf.Buffer { return b.previous }

// FramebufferID returns the framebuffer of buf, zero when not imported.
func (b *Bridge) FramebufferID(buf videobuf.Buffer) uint32 {
	if fb, ok := b.imports[buf]; ok {
		return fb.id
	}
	return 0
}

// HDRBlob returns the live HDR metadata blob id, zero when none.
func (b *Bridge) HDRBlob() uint32 { return b.hdrBlob }
