package videobuf

// ColorPrimaries follows the ISO/IEC 23091-4 code points used by decoders.
type ColorPrimaries int

const (
	PrimariesReserved0   ColorPrimaries = 0
	PrimariesBT709       ColorPrimaries = 1
	PrimariesUnspecified ColorPrimaries = 2
	PrimariesBT470M      ColorPrimaries = 4
	PrimariesBT470BG     ColorPrimaries = 5
	PrimariesSMPTE170M   ColorPrimaries = 6
	PrimariesSMPTE240M   ColorPrimaries = 7
	PrimariesFilm        ColorPrimaries = 8
	PrimariesBT2020      ColorPrimaries = 9
)

func (p ColorPrimaries) String() string {
	switch p {
	case PrimariesBT709:
		return "bt709"
	case PrimariesUnspecified:
		return "unspecified"
	case PrimariesBT470M:
		return "bt470m"
	case PrimariesBT470BG:
		return "bt470bg"
	case PrimariesSMPTE170M:
		return "smpte170m"
	case PrimariesSMPTE240M:
		return "smpte240m"
	case PrimariesFilm:
		return "film"
	case PrimariesBT2020:
		return "bt2020"
	default:
		return "reserved"
	}
}

// ColorSpace is the YCbCr matrix coefficient code point.
type ColorSpace int

const (
	SpaceRGB         ColorSpace = 0
	SpaceBT709       ColorSpace = 1
	SpaceUnspecified ColorSpace = 2
	SpaceReserved    ColorSpace = 3
	SpaceFCC         ColorSpace = 4
	SpaceBT470BG     ColorSpace = 5
	SpaceSMPTE170M   ColorSpace = 6
	SpaceSMPTE240M   ColorSpace = 7
	SpaceYCgCo       ColorSpace = 8
	SpaceBT2020NCL   ColorSpace = 9
	SpaceBT2020CL    ColorSpace = 10
)

func (s ColorSpace) String() string {
	switch s {
	case SpaceRGB:
		return "rgb"
	case SpaceBT709:
		return "bt709"
	case SpaceUnspecified:
		return "unspecified"
	case SpaceFCC:
		return "fcc"
	case SpaceBT470BG:
		return "bt470bg"
	case SpaceSMPTE170M:
		return "smpte170m"
	case SpaceSMPTE240M:
		return "smpte240m"
	case SpaceYCgCo:
		return "ycgco"
	case SpaceBT2020NCL:
		return "bt2020nc"
	case SpaceBT2020CL:
		return "bt2020c"
	default:
		return "reserved"
	}
}

// ColorTransfer is the transfer characteristic code point.
type ColorTransfer int

const (
	TransferBT709       ColorTransfer = 1
	TransferUnspecified ColorTransfer = 2
	TransferGamma22     ColorTransfer = 4
	TransferGamma28     ColorTransfer = 5
	TransferSMPTE170M   ColorTransfer = 6
	TransferBT2020_10   ColorTransfer = 14
	TransferBT2020_12   ColorTransfer = 15
	TransferSMPTE2084   ColorTransfer = 16
	TransferARIBSTDB67  ColorTransfer = 18
)

// ChromaLocation is the siting of chroma samples relative to luma.
type ChromaLocation int

const (
	ChromaUnspecified ChromaLocation = iota
	ChromaLeft
	ChromaCenter
	ChromaTopLeft
	ChromaTop
	ChromaBottomLeft
	ChromaBottom
)

// Rational is a numerator/denominator pair as carried in decoder side data.
type Rational struct {
	Num int
	Den int
}

// Float returns the rational as a float, zero when the denominator is zero.
func (r Rational) Float() float64 {
	if r.Den == 0 {
		return 0
	}
	return float64(r.Num) / float64(r.Den)
}

// MasteringDisplay is the colour volume of the display the content was graded on.
type MasteringDisplay struct {
	// Primaries are the R, G, B chromaticities as (x, y) pairs.
	Primaries    [3][2]Rational
	WhitePoint   [2]Rational
	MinLuminance Rational
	MaxLuminance Rational
	HasPrimaries bool
	HasLuminance bool
}

// ContentLight holds the MaxCLL and MaxFALL values in cd/m².
type ContentLight struct {
	MaxCLL  uint16
	MaxFALL uint16
}

// Picture is the per-frame metadata the decoder attaches to a buffer.
type Picture struct {
	Width         int
	Height        int
	DisplayWidth  int
	DisplayHeight int

	Primaries ColorPrimaries
	Space     ColorSpace
	Transfer  ColorTransfer
	FullRange bool
	Bits      int
	Chroma    ChromaLocation

	// StereoMode is empty for 2D content, otherwise e.g. "left_right" or "top_bottom".
	StereoMode string

	Mastering    *MasteringDisplay
	ContentLight *ContentLight
}
