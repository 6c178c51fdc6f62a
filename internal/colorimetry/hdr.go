package colorimetry

import (
	"encoding/binary"
	"math"

	"github.com/bnema/primelayer/internal/videobuf"
)

// HDRMetadataSize is sizeof(struct hdr_output_metadata).
const HDRMetadataSize = 32

// StaticMetadataType1 is the only static metadata descriptor defined by CTA-861.
const StaticMetadataType1 uint8 = 0

// Chromaticity is a CIE 1931 coordinate in units of 0.00002.
type Chromaticity struct {
	X uint16
	Y uint16
}

// HDRMetadata mirrors the kernel hdr_output_metadata with its type 1 infoframe.
type HDRMetadata struct {
	MetadataType     uint32
	EOTF             uint8
	DescriptorType   uint8
	DisplayPrimaries [3]Chromaticity
	WhitePoint       Chromaticity
	// MaxLuminance is in cd/m², MinLuminance in 0.0001 cd/m².
	MaxLuminance uint16
	MinLuminance uint16
	MaxCLL       uint16
	MaxFALL      uint16
}

// Apply updates the metadata for a picture. The EOTF is always overwritten;
// mastering primaries, luminance bounds and content light levels are only
// replaced when the picture carries them, otherwise the previous values stay.
func (m *HDRMetadata) Apply(pic *videobuf.Picture, eotf uint8) {
	m.MetadataType = uint32(StaticMetadataType1)
	m.DescriptorType = StaticMetadataType1
	m.EOTF = eotf

	if md := pic.Mastering; md != nil && md.HasPrimaries {
		for i := range md.Primaries {
			m.DisplayPrimaries[i] = Chromaticity{
				X: toUint16(md.Primaries[i][0].Float() * 50000.0),
				Y: toUint16(md.Primaries[i][1].Float() * 50000.0),
			}
		}
		m.WhitePoint = Chromaticity{
			X: toUint16(md.WhitePoint[0].Float() * 50000.0),
			Y: toUint16(md.WhitePoint[1].Float() * 50000.0),
		}
	}

	if md := pic.Mastering; md != nil && md.HasLuminance {
		m.MaxLuminance = toUint16(md.MaxLuminance.Float())
		m.MinLuminance = toUint16(md.MinLuminance.Float() * 10000.0)
	}

	if cl := pic.ContentLight; cl != nil {
		m.MaxCLL = cl.MaxCLL
		m.MaxFALL = cl.MaxFALL
	}
}

// MarshalBinary encodes the metadata in the kernel's native layout.
func (m *HDRMetadata) MarshalBinary() ([]byte, error) {
	b := make([]byte, HDRMetadataSize)
	ne := binary.NativeEndian

	ne.PutUint32(b[0:], m.MetadataType)
	b[4] = m.EOTF
	b[5] = m.DescriptorType
	off := 6
	for _, p := range m.DisplayPrimaries {
		ne.PutUint16(b[off:], p.X)
		ne.PutUint16(b[off+2:], p.Y)
		off += 4
	}
	ne.PutUint16(b[18:], m.WhitePoint.X)
	ne.PutUint16(b[20:], m.WhitePoint.Y)
	ne.PutUint16(b[22:], m.MaxLuminance)
	ne.PutUint16(b[24:], m.MinLuminance)
	ne.PutUint16(b[26:], m.MaxCLL)
	ne.PutUint16(b[28:], m.MaxFALL)
	return b, nil
}

func toUint16(v float64) uint16 {
	r := math.Round(v)
	if r <= 0 {
		return 0
	}
	if r >= math.MaxUint16 {
		return math.MaxUint16
	}
	return uint16(r)
}
