package sim

import (
	"fmt"

	"github.com/bnema/primelayer/internal/composite"
	"github.com/bnema/primelayer/internal/drm"
	"github.com/bnema/primelayer/internal/geom"
	"github.com/bnema/primelayer/internal/videobuf"
)

// Display hands out Ctx, or no context when Ctx is nil.
type Display struct {
	Ctx *GPU
}

func (d *Display) Context() composite.Context {
	if d.Ctx == nil {
		return nil
	}
	return d.Ctx
}

// GPU is a recording drawing backend. Fences only signal when told to.
type GPU struct {
	Width   int
	Height  int
	Limited bool

	// MapErr, when set, fails every texture map.
	MapErr error
	// Importable limits SupportsFormatModifier to the listed formats and
	// modifiers. Nil accepts everything.
	Importable map[uint32][]uint64

	Draws  []composite.DrawCall
	Clears []float32
	Fills  [][]geom.Rect

	textures []*Texture
	fences   []*Fence
	nextTex  uint32
}

// NewGPU returns a context rendering to a width x height output.
func NewGPU(width, height int) *GPU {
	return &GPU{Width: width, Height: height}
}

func (g *GPU) NewTexture() (composite.Texture, error) {
	t := &Texture{gpu: g}
	g.textures = append(g.textures, t)
	return t, nil
}

func (g *GPU) NewFence() composite.Fence {
	f := &Fence{}
	g.fences = append(g.fences, f)
	return f
}

func (g *GPU) OutputSize() (int, int) { return g.Width, g.Height }
func (g *GPU) LimitedRange() bool     { return g.Limited }

func (g *GPU) Clear(level float32) {
	g.Clears = append(g.Clears, level)
}

func (g *GPU) FillRects(rects []geom.Rect, level float32) {
	g.Fills = append(g.Fills, rects)
	g.Clears = append(g.Clears, level)
}

func (g *GPU) Draw(call composite.DrawCall) {
	g.Draws = append(g.Draws, call)
}

func (g *GPU) SupportsFormatModifier(format uint32, modifier uint64) bool {
	if g.Importable == nil {
		return true
	}
	mods, ok := g.Importable[format]
	if !ok {
		return false
	}
	for _, m := range mods {
		if m == modifier {
			return true
		}
	}
	return false
}

// SignalAll marks every outstanding fence as passed.
func (g *GPU) SignalAll() {
	for _, f := range g.fences {
		f.Signal()
	}
}

// MappedTextures counts textures currently holding a buffer.
func (g *GPU) MappedTextures() int {
	n := 0
	for _, t := range g.textures {
		if t.buf != nil {
			n++
		}
	}
	return n
}

// Texture imports buffers by holding their descriptor.
type Texture struct {
	gpu    *GPU
	buf    videobuf.Buffer
	planes []uint32
	bits   int

	Maps   int
	Unmaps int
}

func (t *Texture) Map(buf videobuf.Buffer) error {
	if t.buf == buf {
		return nil
	}
	if t.gpu.MapErr != nil {
		return t.gpu.MapErr
	}
	t.Unmap()
	if err := buf.AcquireDescriptor(); err != nil {
		return fmt.Errorf("map texture: %w", err)
	}
	desc := buf.Descriptor()

	t.planes = make([]uint32, 0, videobuf.MaxPlanes)
	t.bits = 8
	for _, layer := range desc.Layers {
		if layer.Format == drm.FormatR16 || layer.Format == drm.FormatGR1616 || layer.Format == drm.FormatP010 {
			t.bits = 16
		}
		for range layer.Planes {
			t.gpu.nextTex++
			t.planes = append(t.planes, t.gpu.nextTex)
		}
	}
	t.buf = buf
	t.Maps++
	return nil
}

func (t *Texture) Unmap() {
	if t.buf == nil {
		return
	}
	t.buf.ReleaseDescriptor()
	t.buf = nil
	t.planes = nil
	t.Unmaps++
}

func (t *Texture) Planes() []uint32 { return t.planes }
func (t *Texture) Bits() int        { return t.bits }

// Fence is a GPU fence that passes only when Signal is called.
type Fence struct {
	created  bool
	signaled bool

	Creates  int
	Destroys int
}

func (f *Fence) Create() {
	f.created = true
	f.signaled = false
	f.Creates++
}

func (f *Fence) Destroy() {
	if f.created {
		f.Destroys++
	}
	f.created = false
	f.signaled = false
}

func (f *Fence) Signaled() bool {
	return !f.created || f.signaled
}

// Signal marks the fence as passed by the GPU.
func (f *Fence) Signal() {
	if f.created {
		f.signaled = true
	}
}
