// Package colorimetry holds the colour negotiation shared by the scanout and
// composite presentation paths: plane encoding and range selection, connector
// colorimetry, HDR static metadata and the YUV to RGB conversion matrices.
package colorimetry

import "github.com/bnema/primelayer/internal/videobuf"

// HDMI EOTF codes from CTA-861-G.
const (
	EOTFTraditionalSDR uint8 = 0
	EOTFTraditionalHDR uint8 = 1
	EOTFSMPTEST2084    uint8 = 2
	EOTFHLG            uint8 = 3
)

// Plane COLOR_ENCODING and COLOR_RANGE enum entries.
const (
	EncodingBT601  = "ITU-R BT.601 YCbCr"
	EncodingBT709  = "ITU-R BT.709 YCbCr"
	EncodingBT2020 = "ITU-R BT.2020 YCbCr"

	RangeLimited = "YCbCr limited range"
	RangeFull    = "YCbCr full range"
)

// Connector Colorspace enum entries.
const (
	ColorimetryDefault   = "Default"
	ColorimetryBT2020RGB = "BT2020_RGB"
	ColorimetryBT2020YCC = "BT2020_YCC"
)

// Capabilities answers what the sink advertises in its capability data.
type Capabilities interface {
	SupportsColorimetry(name string) bool
	SupportsEOTF(eotf uint8) bool
}

// InferColorSpace guesses the matrix of untagged content from its size.
// The width test is strict and the height test is not: 1024x576 stays
// BT.470BG while 720x600 already counts as HD.
func InferColorSpace(width, height int) videobuf.ColorSpace {
	if width > 1024 || height >= 600 {
		return videobuf.SpaceBT709
	}
	return videobuf.SpaceBT470BG
}

// ColorEncoding picks the plane COLOR_ENCODING entry for a picture.
func ColorEncoding(pic *videobuf.Picture) string {
	switch pic.Space {
	case videobuf.SpaceBT2020CL, videobuf.SpaceBT2020NCL:
		return EncodingBT2020
	case videobuf.SpaceSMPTE170M, videobuf.SpaceBT470BG, videobuf.SpaceFCC:
		return EncodingBT601
	case videobuf.SpaceBT709:
		return EncodingBT709
	default:
		if InferColorSpace(pic.Width, pic.Height) == videobuf.SpaceBT709 {
			return EncodingBT709
		}
		return EncodingBT601
	}
}

// ColorRange picks the plane COLOR_RANGE entry for a picture.
func ColorRange(pic *videobuf.Picture) string {
	if pic.FullRange {
		return RangeFull
	}
	return RangeLimited
}

// Colorimetry picks the connector Colorspace entry for a picture.
func Colorimetry(pic *videobuf.Picture) string {
	switch pic.Space {
	case videobuf.SpaceBT2020CL, videobuf.SpaceBT2020NCL:
		return ColorimetryBT2020RGB
	default:
		return ColorimetryDefault
	}
}

// EOTF maps the picture transfer characteristic to an HDMI EOTF code.
func EOTF(pic *videobuf.Picture) uint8 {
	switch pic.Transfer {
	case videobuf.TransferSMPTE2084:
		return EOTFSMPTEST2084
	case videobuf.TransferARIBSTDB67, videobuf.TransferBT2020_10:
		return EOTFHLG
	default:
		return EOTFTraditionalSDR
	}
}

// EOTFName is used for logging.
func EOTFName(eotf uint8) string {
	switch eotf {
	case EOTFTraditionalSDR:
		return "sdr"
	case EOTFTraditionalHDR:
		return "hdr-gamma"
	case EOTFSMPTEST2084:
		return "pq"
	case EOTFHLG:
		return "hlg"
	default:
		return "unknown"
	}
}
