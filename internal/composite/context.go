package composite

import (
	"github.com/bnema/primelayer/internal/geom"
	"github.com/bnema/primelayer/internal/videobuf"
)

// Display hands out the GPU context that is current on the render thread.
type Display interface {
	// Context returns nil when no context is current.
	Context() Context
}

// Context is the drawing backend of the renderer.
type Context interface {
	NewTexture() (Texture, error)
	NewFence() Fence

	OutputSize() (width, height int)
	// LimitedRange reports whether the output expects 16-235 RGB.
	LimitedRange() bool

	Clear(level float32)
	FillRects(rects []geom.Rect, level float32)
	Draw(call DrawCall)

	// SupportsFormatModifier reports whether dma-bufs of this format and
	// modifier can be imported as textures.
	SupportsFormatModifier(format uint32, modifier uint64) bool
}

// Texture imports a decoder buffer as sampleable GPU textures.
type Texture interface {
	Map(buf videobuf.Buffer) error
	Unmap()
	// Planes returns the texture names in Y, U, V order. Semi-planar
	// buffers have two.
	Planes() []uint32
	// Bits is the per-component depth of the imported textures.
	Bits() int
}

// Fence tracks completion of the GPU work that samples a slot.
type Fence interface {
	// Create inserts a new fence after the submitted work, replacing any
	// previous one.
	Create()
	Destroy()
	// Signaled is true once the GPU passed the fence, or when there is none.
	Signaled() bool
}

// DrawCall is one textured quad with its shader parameters.
type DrawCall struct {
	Textures  []uint32
	Vertices  [4]geom.Point
	TexCoords [4]geom.Point

	YUV   [4][4]float32
	Alpha float32
	Blend bool

	// ColorConversion enables the linearise, gamut map and re-encode stage.
	ColorConversion bool
	Primaries       [3][3]float32
	GammaSrc        float32
	GammaDstInv     float32

	Field FieldFlags
}
