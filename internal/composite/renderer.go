// Package composite draws decoded hardware buffers as textured quads through
// the GPU. It is the fallback when a frame cannot go straight to a scanout
// plane, and the path used when the picture has to be blended with the UI.
package composite

import (
	"errors"
	"fmt"

	"github.com/bnema/primelayer/internal/colorimetry"
	"github.com/bnema/primelayer/internal/geom"
	"github.com/bnema/primelayer/internal/logger"
	"github.com/bnema/primelayer/internal/metrics"
	"github.com/bnema/primelayer/internal/videobuf"
	"github.com/charmbracelet/log"
)

// DefaultSlots is the number of buffers in flight between decoder and GPU.
const DefaultSlots = 4

// ErrNoContext is returned by Configure when no GPU context is current.
var ErrNoContext = errors.New("composite: no active display context")

// Option configures a Renderer.
type Option func(*Renderer)

// WithSlots sets the number of slots.
func WithSlots(n int) Option {
	return func(r *Renderer) {
		if n > 0 {
			r.slots = make([]slot, n)
		}
	}
}

// WithMetrics records renderer activity.
func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Renderer) { r.metrics = m }
}

// ViewMode adjusts where the frame lands inside the output.
type ViewMode struct {
	Stretch bool
	// Zoom scales the fitted frame around its centre. Zero means 1.
	Zoom float64
	// PixelRatio multiplies the frame aspect ratio. Zero means 1.
	PixelRatio float64
	// VerticalShift moves the frame by a fraction of the output height.
	VerticalShift float64
}

// RenderInfo describes the renderer to the buffer producer.
type RenderInfo struct {
	MaxBufferSize int
}

type slot struct {
	buf     videobuf.Buffer
	texture Texture
	fence   Fence
	mapped  bool

	primaries videobuf.ColorPrimaries
	space     videobuf.ColorSpace
	bits      int
	fullRange bool
}

// Renderer is the texture composite presentation path. It is not safe for
// concurrent use; all calls belong on the thread owning the GPU context.
type Renderer struct {
	display Display
	ctx     Context
	metrics *metrics.Metrics
	log     *log.Logger

	slots []slot

	configured  bool
	width       int
	height      int
	format      videobuf.PixelFormat
	fps         float64
	orientation int
	flags       Flags
	aspect      float64
	view        ViewMode
	clearLevel  float32

	output geom.Rect
	dest   geom.Rect
	quad   [4]geom.Point
}

// New creates an unconfigured renderer.
func New(display Display, opts ...Option) *Renderer {
	r := &Renderer{
		display: display,
		slots:   make([]slot, DefaultSlots),
		log:     logger.With("composite"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Configure prepares the renderer for pictures shaped like buf. All slots
// are flushed. It fails with ErrNoContext when no GPU context is current.
func (r *Renderer) Configure(buf videobuf.Buffer, fps float64, orientation int) error {
	pic := buf.Picture()

	r.width = pic.Width
	r.height = pic.Height
	r.format = buf.Format()
	r.fps = fps
	r.orientation = orientation
	r.flags = flagsFor(pic)
	r.aspect = aspectRatio(pic)

	r.Flush(false)

	ctx := r.display.Context()
	if ctx == nil {
		r.log.Error("no active display context")
		return ErrNoContext
	}
	r.ctx = ctx

	for i := range r.slots {
		s := &r.slots[i]
		if s.texture == nil {
			tex, err := ctx.NewTexture()
			if err != nil {
				return fmt.Errorf("create texture for slot %d: %w", i, err)
			}
			s.texture = tex
		}
		if s.fence == nil {
			s.fence = ctx.NewFence()
		}
	}

	r.clearLevel = 0
	if ctx.LimitedRange() {
		r.clearLevel = 16.0 / 255.0
	}

	r.configured = true
	r.layout()

	r.log.Debug("configured",
		"width", r.width,
		"height", r.height,
		"format", r.format,
		"fps", fps,
		"orientation", orientation,
		"flags", fmt.Sprintf("%#x", uint32(r.flags)))
	return nil
}

func aspectRatio(pic *videobuf.Picture) float64 {
	if pic.DisplayWidth > 0 && pic.DisplayHeight > 0 {
		return float64(pic.DisplayWidth) / float64(pic.DisplayHeight)
	}
	if pic.Width > 0 && pic.Height > 0 {
		return float64(pic.Width) / float64(pic.Height)
	}
	return 0
}

// Configured reports whether a picture format is set up.
func (r *Renderer) Configured() bool { return r.configured }

// Flags returns the render flags derived by Configure.
func (r *Renderer) Flags() Flags { return r.flags }

// DestRect returns the current destination rectangle in output pixels.
func (r *Renderer) DestRect() geom.Rect { return r.dest }

// SetViewMode changes the view adjustments applied on the next layout.
func (r *Renderer) SetViewMode(v ViewMode) {
	r.view = v
	r.Update()
}

// Update re-derives the layout after the output or view mode changed.
func (r *Renderer) Update() {
	if !r.configured {
		return
	}
	r.layout()
}

func (r *Renderer) layout() {
	w, h := r.ctx.OutputSize()
	r.output = geom.XYWH(0, 0, float64(w), float64(h))

	aspect := r.aspect
	if r.view.PixelRatio > 0 {
		aspect *= r.view.PixelRatio
	}
	rotated := ((r.orientation%360)+360)%180 == 90
	if rotated && aspect > 0 {
		aspect = 1 / aspect
	}

	dest := geom.Fit(r.output, aspect)
	if r.view.Stretch {
		dest = r.output
	}
	if z := r.view.Zoom; z > 0 && z != 1 {
		cx := (dest.X1 + dest.X2) / 2
		cy := (dest.Y1 + dest.Y2) / 2
		hw := dest.Width() * z / 2
		hh := dest.Height() * z / 2
		dest = geom.Rect{X1: cx - hw, Y1: cy - hh, X2: cx + hw, Y2: cy + hh}
	}
	if s := r.view.VerticalShift; s != 0 {
		dy := s * r.output.Height()
		dest.Y1 += dy
		dest.Y2 += dy
	}

	r.dest = dest
	r.quad = geom.RotatedQuad(dest, r.orientation)
}

// ConfigChanged reports whether buf needs a new Configure.
func (r *Renderer) ConfigChanged(buf videobuf.Buffer) bool {
	return buf.Format() != r.format
}

// SubmitPicture installs buf in a slot with a reference of its own. A slot
// that still holds a buffer is torn down first.
func (r *Renderer) SubmitPicture(buf videobuf.Buffer, index int) {
	s, ok := r.slot(index)
	if !ok {
		return
	}

	if s.buf != nil {
		r.log.Error("unreleased video buffer", "slot", index)
		r.metrics.SlotAnomaly()
		if s.fence != nil {
			s.fence.Destroy()
		}
		r.unmap(s)
		s.buf.Release()
		s.buf = nil
	}

	buf.Acquire()
	s.buf = buf

	pic := buf.Picture()
	s.primaries = pic.Primaries
	s.space = pic.Space
	if s.space == videobuf.SpaceUnspecified {
		s.space = colorimetry.InferColorSpace(pic.Width, pic.Height)
	}
	s.bits = pic.Bits
	s.fullRange = pic.FullRange

	r.metrics.SetSlotsOccupied(r.occupied())
}

// NeedsSlot reports whether the producer may refill a slot: true once the
// GPU passed the fence of the last draw that sampled it.
func (r *Renderer) NeedsSlot(index int) bool {
	s, ok := r.slot(index)
	if !ok {
		return false
	}
	return s.fence == nil || s.fence.Signaled()
}

// RenderSlot draws the buffer of a slot into the destination rectangle.
// With clear set, the area around the frame is painted first: letterbox bars
// when alpha is opaque, a full clear otherwise.
func (r *Renderer) RenderSlot(index int, clear bool, field FieldFlags, alpha uint8) {
	if !r.configured {
		return
	}
	r.layout()

	if clear {
		if alpha == 255 {
			r.drawBlackBars()
		} else {
			r.ctx.Clear(r.clearLevel)
		}
	}

	s, ok := r.slot(index)
	if !ok || s.buf == nil {
		return
	}

	if !s.mapped {
		if err := s.texture.Map(s.buf); err != nil {
			r.log.Error("failed to map buffer into texture", "slot", index, "err", err)
			r.metrics.TextureMapFailed()
			return
		}
		s.mapped = true
	}

	planes := s.texture.Planes()
	if len(planes) > 3 {
		planes = planes[:3]
	}

	m := colorimetry.NewConvertMatrix()
	m.SetPrimaries(videobuf.PrimariesBT709, s.primaries)
	m.SetSource(s.space, s.bits, !s.fullRange, s.texture.Bits())
	m.SetParams(1, 0, r.ctx.LimitedRange())

	call := DrawCall{
		Textures:  planes,
		Vertices:  r.quad,
		TexCoords: [4]geom.Point{{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 1, Y: 1}, {X: 0, Y: 1}},
		YUV:       m.YUV(),
		Alpha:     float32(alpha) / 255,
		Blend:     alpha < 255,
		Field:     field,
	}
	if needsGamutMapping(s.primaries) {
		call.ColorConversion = true
		call.Primaries = m.Primaries()
		call.GammaSrc = float32(m.GammaSrc())
		call.GammaDstInv = float32(1 / m.GammaDst())
	}

	r.ctx.Draw(call)
	s.fence.Create()
	r.metrics.FrameRendered()
}

// needsGamutMapping is false for BT.709 and for untagged primaries, which
// are drawn as BT.709.
func needsGamutMapping(p videobuf.ColorPrimaries) bool {
	switch p {
	case videobuf.PrimariesBT709, videobuf.PrimariesUnspecified, videobuf.PrimariesReserved0:
		return false
	}
	return true
}

func (r *Renderer) drawBlackBars() {
	bars := r.output.Subtract(r.dest)
	if len(bars) == 0 {
		return
	}
	r.ctx.FillRects(bars, r.clearLevel)
}

// ReleaseSlot drops the fence, texture mapping and buffer of a slot.
func (r *Renderer) ReleaseSlot(index int) {
	s, ok := r.slot(index)
	if !ok {
		return
	}
	if s.fence != nil {
		s.fence.Destroy()
	}
	r.unmap(s)
	if s.buf != nil {
		s.buf.Release()
		s.buf = nil
	}
	r.metrics.SetSlotsOccupied(r.occupied())
}

// Flush releases every slot unless saveBuffers is set, and returns
// saveBuffers. Releasing the slots leaves the renderer unconfigured.
func (r *Renderer) Flush(saveBuffers bool) bool {
	if !saveBuffers {
		for i := range r.slots {
			r.ReleaseSlot(i)
		}
		r.configured = false
	}
	return saveBuffers
}

// Close releases every slot.
func (r *Renderer) Close() {
	r.Flush(false)
}

// Supports reports the view adjustments this renderer honours.
func (r *Renderer) Supports(f Feature) bool {
	switch f {
	case FeatureStretch, FeatureZoom, FeatureVerticalShift, FeaturePixelRatio, FeatureRotation:
		return true
	}
	return false
}

// SupportsScaling reports whether the texture filter can scale with method.
func (r *Renderer) SupportsScaling(method ScalingMethod) bool {
	return method == ScalingLinear
}

// RenderInfo returns the number of buffers the producer may keep in flight.
func (r *Renderer) RenderInfo() RenderInfo {
	return RenderInfo{MaxBufferSize: len(r.slots)}
}

// Occupied reports whether a slot holds a buffer.
func (r *Renderer) Occupied(index int) bool {
	s, ok := r.slot(index)
	return ok && s.buf != nil
}

// CanRender probes whether every layer of buf can be imported by ctx.
func CanRender(buf videobuf.Buffer, ctx Context) bool {
	if buf == nil || ctx == nil {
		return false
	}
	if err := buf.AcquireDescriptor(); err != nil {
		return false
	}
	defer buf.ReleaseDescriptor()

	desc := buf.Descriptor()
	if desc == nil || len(desc.Objects) == 0 {
		return false
	}
	for _, layer := range desc.Layers {
		modifier := desc.Objects[0].Modifier
		if len(layer.Planes) > 0 && layer.Planes[0].ObjectIndex < len(desc.Objects) {
			modifier = desc.Objects[layer.Planes[0].ObjectIndex].Modifier
		}
		if !ctx.SupportsFormatModifier(layer.Format, modifier) {
			return false
		}
	}
	return true
}

func (r *Renderer) slot(index int) (*slot, bool) {
	if index < 0 || index >= len(r.slots) {
		r.log.Error("slot out of range", "slot", index, "slots", len(r.slots))
		return nil, false
	}
	return &r.slots[index], true
}

func (r *Renderer) unmap(s *slot) {
	if s.texture != nil && s.mapped {
		s.texture.Unmap()
	}
	s.mapped = false
}

func (r *Renderer) occupied() int {
	n := 0
	for i := range r.slots {
		if r.slots[i].buf != nil {
			n++
		}
	}
	return n
}
