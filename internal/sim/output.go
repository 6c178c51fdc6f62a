package sim

import (
	"slices"

	"github.com/bnema/primelayer/internal/colorimetry"
	"github.com/bnema/primelayer/internal/drm"
)

// Object ids of the simulated pipe.
const (
	VideoPlaneID = 31
	GUIPlaneID   = 32
	ConnectorID  = 40
	CrtcID       = 50
)

// VideoPlane returns an overlay plane exposing the scanout and colour properties.
func VideoPlane() *drm.ModeObject {
	return drm.NewModeObject(VideoPlaneID).
		WithProperty(drm.PropFBID, nil).
		WithProperty(drm.PropCrtcID, nil).
		WithProperty(drm.PropSrcX, nil).
		WithProperty(drm.PropSrcY, nil).
		WithProperty(drm.PropSrcW, nil).
		WithProperty(drm.PropSrcH, nil).
		WithProperty(drm.PropCrtcX, nil).
		WithProperty(drm.PropCrtcY, nil).
		WithProperty(drm.PropCrtcW, nil).
		WithProperty(drm.PropCrtcH, nil).
		WithProperty(drm.PropColorEncoding, map[string]uint64{
			colorimetry.EncodingBT601:  0,
			colorimetry.EncodingBT709:  1,
			colorimetry.EncodingBT2020: 2,
		}).
		WithProperty(drm.PropColorRange, map[string]uint64{
			colorimetry.RangeLimited: 0,
			colorimetry.RangeFull:    1,
		})
}

// GUIPlane returns a primary plane without colour properties.
func GUIPlane() *drm.ModeObject {
	return drm.NewModeObject(GUIPlaneID).
		WithProperty(drm.PropFBID, nil).
		WithProperty(drm.PropCrtcID, nil)
}

// Connector returns an HDMI connector. Colorspace is always exposed;
// HDR_OUTPUT_METADATA only when hdr is set.
func Connector(hdr bool) *drm.ModeObject {
	c := drm.NewModeObject(ConnectorID).
		WithProperty(drm.PropColorspace, map[string]uint64{
			colorimetry.ColorimetryDefault:   0,
			colorimetry.ColorimetryBT2020YCC: 9,
			colorimetry.ColorimetryBT2020RGB: 10,
		})
	if hdr {
		c.WithProperty(drm.PropHDRMetadata, nil)
	}
	return c
}

// Sink is a capability set for a simulated display.
type Sink struct {
	Colorimetry []string
	EOTFs       []uint8
}

// HDRSink advertises BT.2020 and the SDR, PQ and HLG transfer functions.
func HDRSink() Sink {
	return Sink{
		Colorimetry: []string{colorimetry.ColorimetryBT2020RGB, colorimetry.ColorimetryBT2020YCC},
		EOTFs:       []uint8{colorimetry.EOTFTraditionalSDR, colorimetry.EOTFSMPTEST2084, colorimetry.EOTFHLG},
	}
}

func (s Sink) SupportsColorimetry(name string) bool {
	return name == colorimetry.ColorimetryDefault || slices.Contains(s.Colorimetry, name)
}

func (s Sink) SupportsEOTF(eotf uint8) bool {
	return slices.Contains(s.EOTFs, eotf)
}
