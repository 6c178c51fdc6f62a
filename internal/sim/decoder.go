package sim

import (
	"fmt"

	"github.com/bnema/primelayer/internal/drm"
	"github.com/bnema/primelayer/internal/videobuf"
)

// Stream describes the frames a Decoder produces.
type Stream struct {
	Format videobuf.PixelFormat
	// Modifier is attached to every exported object.
	Modifier uint64
	// SplitLayers exports one single-plane layer per plane, the way VA-API
	// and V4L2 exporters often describe planar frames.
	SplitLayers bool
	// ObjectPerPlane backs every plane with its own dma-buf.
	ObjectPerPlane bool
	Picture        videobuf.Picture
}

// Decoder hands out pooled buffers with synthetic dma-buf layouts.
type Decoder struct {
	pool   *videobuf.Pool
	stream Stream
	nextFD int
	frames int
}

// NewDecoder creates a decoder drawing buffers from pool.
func NewDecoder(pool *videobuf.Pool, stream Stream) *Decoder {
	if stream.Format == videobuf.FormatNone {
		stream.Format = videobuf.FormatNV12
	}
	if stream.Picture.Bits == 0 {
		stream.Picture.Bits = 8
		if stream.Format == videobuf.FormatP010 {
			stream.Picture.Bits = 10
		}
	}
	return &Decoder{pool: pool, stream: stream, nextFD: 100}
}

// SetPicture changes the metadata of subsequent frames, as a mid-stream
// reconfiguration would.
func (d *Decoder) SetPicture(pic videobuf.Picture) {
	if pic.Bits == 0 {
		pic.Bits = d.stream.Picture.Bits
	}
	d.stream.Picture = pic
}

// Picture returns the metadata of the next frame.
func (d *Decoder) Picture() videobuf.Picture { return d.stream.Picture }

// Frames reports how many buffers were decoded.
func (d *Decoder) Frames() int { return d.frames }

// Decode returns the next frame. The caller owns one reference.
func (d *Decoder) Decode() (*videobuf.PrimeBuffer, error) {
	layout, err := d.layout()
	if err != nil {
		return nil, err
	}
	buf, err := d.pool.Get(d.stream.Picture, videobuf.FormatDRMPrime, layout)
	if err != nil {
		return nil, fmt.Errorf("decode frame %d: %w", d.frames, err)
	}
	d.frames++
	return buf, nil
}

type planeDesc struct {
	format uint32
	pitch  uint32
	height uint32
}

func (d *Decoder) layout() (videobuf.Descriptor, error) {
	w := uint32(d.stream.Picture.Width)
	h := uint32(d.stream.Picture.Height)
	if w == 0 || h == 0 {
		return videobuf.Descriptor{}, fmt.Errorf("decode: empty picture %dx%d", w, h)
	}

	var whole uint32
	var planes []planeDesc
	switch d.stream.Format {
	case videobuf.FormatNV12:
		whole = drm.FormatNV12
		planes = []planeDesc{{drm.FormatR8, w, h}, {drm.FormatGR88, w, h / 2}}
	case videobuf.FormatP010:
		whole = drm.FormatP010
		planes = []planeDesc{{drm.FormatR16, w * 2, h}, {drm.FormatGR1616, w * 2, h / 2}}
	case videobuf.FormatYUV420P:
		whole = drm.FormatYUV420
		planes = []planeDesc{{drm.FormatR8, w, h}, {drm.FormatR8, w / 2, h / 2}, {drm.FormatR8, w / 2, h / 2}}
	default:
		return videobuf.Descriptor{}, fmt.Errorf("decode: unsupported format %s", d.stream.Format)
	}

	var desc videobuf.Descriptor
	var offset uint32
	var size uint64
	for _, p := range planes {
		size += uint64(p.pitch) * uint64(p.height)
	}

	var all []videobuf.Plane
	for i, p := range planes {
		obj := 0
		off := offset
		if d.stream.ObjectPerPlane {
			obj = i
			off = 0
			desc.Objects = append(desc.Objects, d.object(uint64(p.pitch)*uint64(p.height)))
		}
		plane := videobuf.Plane{ObjectIndex: obj, Offset: off, Pitch: p.pitch}
		if d.stream.SplitLayers {
			desc.Layers = append(desc.Layers, videobuf.Layer{Format: p.format, Planes: []videobuf.Plane{plane}})
		} else {
			all = append(all, plane)
		}
		offset += p.pitch * p.height
	}
	if !d.stream.ObjectPerPlane {
		desc.Objects = []videobuf.Object{d.object(size)}
	}
	if !d.stream.SplitLayers {
		desc.Layers = []videobuf.Layer{{Format: whole, Planes: all}}
	}
	return desc, nil
}

func (d *Decoder) object(size uint64) videobuf.Object {
	d.nextFD++
	return videobuf.Object{FD: d.nextFD, Size: size, Modifier: d.stream.Modifier}
}
