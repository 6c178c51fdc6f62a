package composite

import (
	"github.com/bnema/primelayer/internal/colorimetry"
	"github.com/bnema/primelayer/internal/videobuf"
)

// Flags describe the configured picture to the draw backend.
type Flags uint32

const (
	FlagChromaLeft Flags = 1 << iota
	FlagChromaCenter
	FlagChromaTopLeft

	FlagMatrixBT601
	FlagMatrixBT709
	FlagMatrixBT2020
	FlagMatrixSMPTE240M
	FlagMatrixFCC

	FlagPrimariesBT709
	FlagPrimariesBT470M
	FlagPrimariesBT470BG
	FlagPrimariesSMPTE170M
	FlagPrimariesSMPTE240M
	FlagPrimariesFilm
	FlagPrimariesBT2020

	FlagStereoSideBySide
	FlagStereoTopBottom
)

// FieldFlags select which field or view of the frame a draw samples.
type FieldFlags uint32

const (
	FieldTop FieldFlags = 1 << iota
	FieldBottom
	FieldLeftView
	FieldRightView
)

func flagsFor(pic *videobuf.Picture) Flags {
	return chromaFlags(pic.Chroma) | matrixFlags(pic) | primariesFlags(pic.Primaries) | stereoFlags(pic.StereoMode)
}

func chromaFlags(loc videobuf.ChromaLocation) Flags {
	switch loc {
	case videobuf.ChromaLeft:
		return FlagChromaLeft
	case videobuf.ChromaCenter:
		return FlagChromaCenter
	case videobuf.ChromaTopLeft:
		return FlagChromaTopLeft
	}
	return 0
}

func matrixFlags(pic *videobuf.Picture) Flags {
	switch pic.Space {
	case videobuf.SpaceBT709:
		return FlagMatrixBT709
	case videobuf.SpaceBT470BG, videobuf.SpaceSMPTE170M:
		return FlagMatrixBT601
	case videobuf.SpaceBT2020NCL, videobuf.SpaceBT2020CL:
		return FlagMatrixBT2020
	case videobuf.SpaceSMPTE240M:
		return FlagMatrixSMPTE240M
	case videobuf.SpaceFCC:
		return FlagMatrixFCC
	}
	if colorimetry.InferColorSpace(pic.Width, pic.Height) == videobuf.SpaceBT709 {
		return FlagMatrixBT709
	}
	return FlagMatrixBT601
}

func primariesFlags(p videobuf.ColorPrimaries) Flags {
	switch p {
	case videobuf.PrimariesBT709:
		return FlagPrimariesBT709
	case videobuf.PrimariesBT470M:
		return FlagPrimariesBT470M
	case videobuf.PrimariesBT470BG:
		return FlagPrimariesBT470BG
	case videobuf.PrimariesSMPTE170M:
		return FlagPrimariesSMPTE170M
	case videobuf.PrimariesSMPTE240M:
		return FlagPrimariesSMPTE240M
	case videobuf.PrimariesFilm:
		return FlagPrimariesFilm
	case videobuf.PrimariesBT2020:
		return FlagPrimariesBT2020
	}
	return 0
}

func stereoFlags(mode string) Flags {
	switch mode {
	case "left_right", "right_left":
		return FlagStereoSideBySide
	case "top_bottom", "bottom_top":
		return FlagStereoTopBottom
	}
	return 0
}

// Feature is an optional view adjustment a renderer may honour.
type Feature int

const (
	FeatureStretch Feature = iota
	FeatureZoom
	FeatureVerticalShift
	FeaturePixelRatio
	FeatureRotation
	FeatureBrightness
	FeatureContrast
	FeatureNonLinearStretch
)

// ScalingMethod is the texture filter used when scaling.
type ScalingMethod int

const (
	ScalingNearest ScalingMethod = iota
	ScalingLinear
	ScalingCubic
	ScalingLanczos
)
