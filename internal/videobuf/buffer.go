// Package videobuf describes decoded hardware video buffers: the refcounted
// handle both presentation paths consume, its multi-plane dma-buf layout and
// the picture metadata that travels with it.
package videobuf

import (
	"errors"
	"fmt"
	"sync"

	"github.com/bnema/primelayer/internal/logger"
)

const (
	// MaxObjects is the number of memory objects a descriptor may reference.
	MaxObjects = 4
	// MaxLayers is the number of layers a descriptor may carry.
	MaxLayers = 4
	// MaxPlanes is the number of planes per layer.
	MaxPlanes = 4
)

// ErrNoDescriptor is returned when a buffer cannot export its hardware layout.
var ErrNoDescriptor = errors.New("videobuf: hardware descriptor unavailable")

// PixelFormat identifies the decoder side format of a buffer.
type PixelFormat int

const (
	FormatNone PixelFormat = iota
	FormatDRMPrime
	FormatNV12
	FormatP010
	FormatYUV420P
)

func (f PixelFormat) String() string {
	switch f {
	case FormatDRMPrime:
		return "drm_prime"
	case FormatNV12:
		return "nv12"
	case FormatP010:
		return "p010"
	case FormatYUV420P:
		return "yuv420p"
	default:
		return "none"
	}
}

// Object is one exported memory object of a frame.
type Object struct {
	FD       int
	Size     uint64
	Modifier uint64
}

// Plane maps a layer plane onto an object.
type Plane struct {
	ObjectIndex int
	Offset      uint32
	Pitch       uint32
}

// Layer is a group of planes sharing one DRM fourcc.
type Layer struct {
	Format uint32
	Planes []Plane
}

// Descriptor is the dma-buf layout of a decoded frame.
type Descriptor struct {
	Objects []Object
	Layers  []Layer
}

// Validate checks the descriptor against the fixed layout limits.
func (d *Descriptor) Validate() error {
	if len(d.Objects) == 0 || len(d.Objects) > MaxObjects {
		return fmt.Errorf("videobuf: %d objects, want 1..%d", len(d.Objects), MaxObjects)
	}
	if len(d.Layers) == 0 || len(d.Layers) > MaxLayers {
		return fmt.Errorf("videobuf: %d layers, want 1..%d", len(d.Layers), MaxLayers)
	}
	for i, l := range d.Layers {
		if len(l.Planes) == 0 || len(l.Planes) > MaxPlanes {
			return fmt.Errorf("videobuf: layer %d has %d planes, want 1..%d", i, len(l.Planes), MaxPlanes)
		}
		for j, p := range l.Planes {
			if p.ObjectIndex < 0 || p.ObjectIndex >= len(d.Objects) {
				return fmt.Errorf("videobuf: layer %d plane %d references object %d", i, j, p.ObjectIndex)
			}
		}
	}
	return nil
}

// Buffer is a reference counted decoded frame living in hardware memory.
// Every Acquire must be balanced by exactly one Release, and every successful
// AcquireDescriptor by exactly one ReleaseDescriptor.
type Buffer interface {
	Acquire()
	Release()

	AcquireDescriptor() error
	ReleaseDescriptor()
	// Descriptor is only valid between AcquireDescriptor and ReleaseDescriptor.
	Descriptor() *Descriptor

	Width() int
	Height() int
	Format() PixelFormat
	Picture() *Picture
}

// PrimeBuffer is a pooled Buffer backed by an exported dma-buf descriptor.
type PrimeBuffer struct {
	mu       sync.Mutex
	refs     int
	descRefs int
	desc     *Descriptor
	layout   Descriptor
	picture  Picture
	format   PixelFormat
	pool     *Pool
}

// Acquire adds a reference.
func (b *PrimeBuffer) Acquire() {
	b.mu.Lock()
	b.refs++
	b.mu.Unlock()
}

// Release drops a reference and recycles the buffer once none remain.
func (b *PrimeBuffer) Release() {
	b.mu.Lock()
	if b.refs == 0 {
		b.mu.Unlock()
		logger.Error("release of unreferenced video buffer", "buffer", fmt.Sprintf("%p", b))
		return
	}
	b.refs--
	last := b.refs == 0
	b.mu.Unlock()

	if last && b.pool != nil {
		b.pool.put(b)
	}
}

// Refs reports the current reference count.
func (b *PrimeBuffer) Refs() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.refs
}

// AcquireDescriptor exports the layout on first use and counts later users.
func (b *PrimeBuffer) AcquireDescriptor() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.descRefs == 0 {
		if err := b.layout.Validate(); err != nil {
			return fmt.Errorf("%w: %v", ErrNoDescriptor, err)
		}
		d := b.layout
		b.desc = &d
	}
	b.descRefs++
	return nil
}

// ReleaseDescriptor drops a descriptor user. Extra calls are ignored.
func (b *PrimeBuffer) ReleaseDescriptor() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.descRefs == 0 {
		return
	}
	b.descRefs--
	if b.descRefs == 0 {
		b.desc = nil
	}
}

// DescriptorRefs reports how many users hold the descriptor.
func (b *PrimeBuffer) DescriptorRefs() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.descRefs
}

func (b *PrimeBuffer) Descriptor() *Descriptor {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.desc
}

func (b *PrimeBuffer) Width() int          { return b.picture.Width }
func (b *PrimeBuffer) Height() int         { return b.picture.Height }
func (b *PrimeBuffer) Format() PixelFormat { return b.format }
func (b *PrimeBuffer) Picture() *Picture   { return &b.picture }
