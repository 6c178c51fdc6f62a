package scanout

import (
	"github.com/bnema/primelayer/internal/drm"
	"github.com/bnema/primelayer/internal/videobuf"
)

// planeLayout flattens the descriptor into ADDFB2 arrays. Decoders that
// export one layer per plane (R8 + GR88 and friends) get their layers folded
// into the planes of a single framebuffer.
func planeLayout(desc *videobuf.Descriptor, handles [videobuf.MaxObjects]uint32) drm.FramebufferSpec {
	var spec drm.FramebufferSpec

	multiLayer := len(desc.Layers) > 1
	for li, layer := range desc.Layers {
		for pi, plane := range layer.Planes {
			idx := pi
			if multiLayer && len(layer.Planes) == 1 {
				idx = li
			}
			if idx >= len(spec.Handles) || plane.ObjectIndex >= len(desc.Objects) {
				continue
			}
			spec.Handles[idx] = handles[plane.ObjectIndex]
			spec.Pitches[idx] = plane.Pitch
			spec.Offsets[idx] = plane.Offset
			spec.Modifiers[idx] = desc.Objects[plane.ObjectIndex].Modifier
		}
	}

	spec.Format = inferFormat(desc)

	for _, obj := range desc.Objects {
		if drm.HasModifier(obj.Modifier) {
			spec.Flags |= drm.FlagModifiers
			break
		}
	}
	return spec
}

// inferFormat maps split-layer exports to the planar format they describe.
func inferFormat(desc *videobuf.Descriptor) uint32 {
	if len(desc.Layers) == 0 {
		return 0
	}
	l := desc.Layers

	switch len(l) {
	case 2:
		switch {
		case l[0].Format == drm.FormatR8 && l[1].Format == drm.FormatGR88:
			return drm.FormatNV12
		case l[0].Format == drm.FormatR16 && l[1].Format == drm.FormatGR1616:
			return drm.FormatP010
		}
	case 3:
		if l[0].Format == drm.FormatR8 && l[1].Format == drm.FormatR8 && l[2].Format == drm.FormatR8 {
			return drm.FormatYUV420
		}
	}
	return l[0].Format
}
