// Package drm holds the kernel mode-setting pieces the presentation paths
// talk to: fourcc codes, property names, KMS objects, atomic property staging
// and an ioctl backed device.
package drm

import "fmt"

func fourcc(a, b, c, d byte) uint32 {
	return uint32(a) | uint32(b)<<8 | uint32(c)<<16 | uint32(d)<<24
}

// Pixel formats from drm_fourcc.h.
var (
	FormatR8       = fourcc('R', '8', ' ', ' ')
	FormatR16      = fourcc('R', '1', '6', ' ')
	FormatGR88     = fourcc('G', 'R', '8', '8')
	FormatGR1616   = fourcc('G', 'R', '3', '2')
	FormatNV12     = fourcc('N', 'V', '1', '2')
	FormatP010     = fourcc('P', '0', '1', '0')
	FormatYUV420   = fourcc('Y', 'U', '1', '2')
	FormatXRGB8888 = fourcc('X', 'R', '2', '4')
)

const (
	// ModLinear is the implicit linear layout.
	ModLinear uint64 = 0
	// ModInvalid marks a modifier the producer could not express.
	ModInvalid uint64 = (1 << 56) - 1

	// FlagModifiers selects the modifier aware ADDFB2 path.
	FlagModifiers uint32 = 1 << 1
)

// FormatName renders a fourcc as its four characters.
func FormatName(f uint32) string {
	return fmt.Sprintf("%c%c%c%c", byte(f), byte(f>>8), byte(f>>16), byte(f>>24))
}

// HasModifier reports whether m describes an explicit, non-trivial layout.
func HasModifier(m uint64) bool {
	return m != ModLinear && m != ModInvalid
}
