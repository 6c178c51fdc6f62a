package colorimetry

import "github.com/bnema/primelayer/internal/videobuf"

type xy struct{ x, y float64 }

type gamut struct {
	r, g, b, white xy
}

var (
	whiteD65 = xy{0.3127, 0.3290}
	whiteC   = xy{0.310, 0.316}

	gamutBT709   = gamut{xy{0.640, 0.330}, xy{0.300, 0.600}, xy{0.150, 0.060}, whiteD65}
	gamutBT470M  = gamut{xy{0.670, 0.330}, xy{0.210, 0.710}, xy{0.140, 0.080}, whiteC}
	gamutBT470BG = gamut{xy{0.640, 0.330}, xy{0.290, 0.600}, xy{0.150, 0.060}, whiteD65}
	gamutSMPTE   = gamut{xy{0.630, 0.340}, xy{0.310, 0.595}, xy{0.155, 0.070}, whiteD65}
	gamutFilm    = gamut{xy{0.681, 0.319}, xy{0.243, 0.692}, xy{0.145, 0.049}, whiteC}
	gamutBT2020  = gamut{xy{0.708, 0.292}, xy{0.170, 0.797}, xy{0.131, 0.046}, whiteD65}
)

func gamutOf(p videobuf.ColorPrimaries) gamut {
	switch p {
	case videobuf.PrimariesBT470M:
		return gamutBT470M
	case videobuf.PrimariesBT470BG:
		return gamutBT470BG
	case videobuf.PrimariesSMPTE170M, videobuf.PrimariesSMPTE240M:
		return gamutSMPTE
	case videobuf.PrimariesFilm:
		return gamutFilm
	case videobuf.PrimariesBT2020:
		return gamutBT2020
	default:
		return gamutBT709
	}
}

// lumaCoefficients returns Kr and Kb of a YCbCr matrix.
func lumaCoefficients(s videobuf.ColorSpace) (kr, kb float64) {
	switch s {
	case videobuf.SpaceBT709:
		return 0.2126, 0.0722
	case videobuf.SpaceFCC:
		return 0.30, 0.11
	case videobuf.SpaceSMPTE240M:
		return 0.212, 0.087
	case videobuf.SpaceBT2020NCL, videobuf.SpaceBT2020CL:
		return 0.2627, 0.0593
	default:
		return 0.299, 0.114
	}
}

// ConvertMatrix builds the shader matrices that turn sampled YCbCr texels
// into output RGB.
type ConvertMatrix struct {
	srcPrimaries videobuf.ColorPrimaries
	dstPrimaries videobuf.ColorPrimaries
	space        videobuf.ColorSpace
	srcBits      int
	textureBits  int
	limitedSrc   bool
	limitedDst   bool
	contrast     float64
	black        float64
}

// NewConvertMatrix returns a BT.709 limited 8-bit identity setup.
func NewConvertMatrix() *ConvertMatrix {
	return &ConvertMatrix{
		srcPrimaries: videobuf.PrimariesBT709,
		dstPrimaries: videobuf.PrimariesBT709,
		space:        videobuf.SpaceBT709,
		srcBits:      8,
		textureBits:  8,
		limitedSrc:   true,
		contrast:     1,
	}
}

// SetPrimaries sets the destination and source gamuts.
func (c *ConvertMatrix) SetPrimaries(dst, src videobuf.ColorPrimaries) {
	c.dstPrimaries = dst
	c.srcPrimaries = src
}

// SetSource describes the stored samples. textureBits is the depth of the
// texture the samples are read from; narrower sources sit in its high bits.
func (c *ConvertMatrix) SetSource(space videobuf.ColorSpace, bits int, limited bool, textureBits int) {
	c.space = space
	c.srcBits = bits
	if c.srcBits < 8 {
		c.srcBits = 8
	}
	c.limitedSrc = limited
	c.textureBits = textureBits
	if c.textureBits <= 0 {
		c.textureBits = c.srcBits
	}
}

// SetParams sets picture contrast and black level and the output range.
func (c *ConvertMatrix) SetParams(contrast, black float64, limitedDst bool) {
	c.contrast = contrast
	c.black = black
	c.limitedDst = limitedDst
}

// YUV returns the 4x4 affine matrix, row major, mapping (Y, Cb, Cr, 1)
// texture samples in [0,1] to (R, G, B, 1).
func (c *ConvertMatrix) YUV() [4][4]float32 {
	kr, kb := lumaCoefficients(c.space)
	kg := 1 - kr - kb
	base := [3][3]float64{
		{1, 0, 2 - 2*kr},
		{1, -kb * (2 - 2*kb) / kg, -kr * (2 - 2*kr) / kg},
		{1, 2 - 2*kb, 0},
	}

	shift := c.srcBits - 8
	maxCode := float64(int(1)<<c.srcBits - 1)
	var yBlack, yRange, cMid, cRange float64
	if c.limitedSrc {
		yBlack = float64(int(16) << shift)
		yRange = float64(int(219) << shift)
		cMid = float64(int(128) << shift)
		cRange = float64(int(224) << shift)
	} else {
		yBlack = 0
		yRange = maxCode
		cMid = float64(int(1) << (c.srcBits - 1))
		cRange = maxCode
	}

	// sample * scale gives the code value in source bits
	scale := maxCode
	if c.textureBits > c.srcBits {
		scale = float64(int(1)<<c.textureBits-1) / float64(int(1)<<(c.textureBits-c.srcBits))
	}

	ay, by := scale/yRange, -yBlack/yRange
	ac, bc := scale/cRange, -cMid/cRange

	k := c.contrast
	black := c.black
	var lift float64
	if c.limitedDst {
		k *= 219.0 / 255.0
		black *= 219.0 / 255.0
		lift = 16.0 / 255.0
	}

	var m [4][4]float32
	for r := 0; r < 3; r++ {
		m[r][0] = float32(base[r][0] * ay * k)
		m[r][1] = float32(base[r][1] * ac * k)
		m[r][2] = float32(base[r][2] * ac * k)
		off := base[r][0]*by + (base[r][1]+base[r][2])*bc
		m[r][3] = float32(off*k + black + lift)
	}
	m[3][3] = 1
	return m
}

// Primaries returns the linear-light gamut mapping from source to
// destination primaries, with Bradford adaptation when white points differ.
func (c *ConvertMatrix) Primaries() [3][3]float32 {
	src := gamutOf(c.srcPrimaries)
	dst := gamutOf(c.dstPrimaries)

	srcXYZ := rgbToXYZ(src)
	if src.white != dst.white {
		srcXYZ = mul3(bradford(src.white, dst.white), srcXYZ)
	}
	m := mul3(inverse3(rgbToXYZ(dst)), srcXYZ)

	var out [3][3]float32
	for i := range m {
		for j := range m[i] {
			out[i][j] = float32(m[i][j])
		}
	}
	return out
}

// GammaSrc is the decoding gamma applied before the gamut mapping.
func (c *ConvertMatrix) GammaSrc() float64 {
	if c.srcPrimaries == videobuf.PrimariesBT2020 {
		return 2.4
	}
	return 2.2
}

// GammaDst is the encoding gamma applied after the gamut mapping.
func (c *ConvertMatrix) GammaDst() float64 {
	return 2.2
}

type mat3 [3][3]float64

func toXYZ(c xy) [3]float64 {
	return [3]float64{c.x / c.y, 1, (1 - c.x - c.y) / c.y}
}

func rgbToXYZ(g gamut) mat3 {
	r, gr, b := toXYZ(g.r), toXYZ(g.g), toXYZ(g.b)
	p := mat3{
		{r[0], gr[0], b[0]},
		{r[1], gr[1], b[1]},
		{r[2], gr[2], b[2]},
	}
	w := toXYZ(g.white)
	inv := inverse3(p)
	var s [3]float64
	for i := 0; i < 3; i++ {
		s[i] = inv[i][0]*w[0] + inv[i][1]*w[1] + inv[i][2]*w[2]
	}
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			p[i][j] *= s[j]
		}
	}
	return p
}

var bradfordM = mat3{
	{0.8951, 0.2664, -0.1614},
	{-0.7502, 1.7135, 0.0367},
	{0.0389, -0.0685, 1.0296},
}

func bradford(from, to xy) mat3 {
	ws, wd := toXYZ(from), toXYZ(to)
	var cs, cd [3]float64
	for i := 0; i < 3; i++ {
		cs[i] = bradfordM[i][0]*ws[0] + bradfordM[i][1]*ws[1] + bradfordM[i][2]*ws[2]
		cd[i] = bradfordM[i][0]*wd[0] + bradfordM[i][1]*wd[1] + bradfordM[i][2]*wd[2]
	}
	d := mat3{{cd[0] / cs[0], 0, 0}, {0, cd[1] / cs[1], 0}, {0, 0, cd[2] / cs[2]}}
	return mul3(inverse3(bradfordM), mul3(d, bradfordM))
}

func mul3(a, b mat3) mat3 {
	var r mat3
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			r[i][j] = a[i][0]*b[0][j] + a[i][1]*b[1][j] + a[i][2]*b[2][j]
		}
	}
	return r
}

func inverse3(m mat3) mat3 {
	det := m[0][0]*(m[1][1]*m[2][2]-m[1][2]*m[2][1]) -
		m[0][1]*(m[1][0]*m[2][2]-m[1][2]*m[2][0]) +
		m[0][2]*(m[1][0]*m[2][1]-m[1][1]*m[2][0])
	if det == 0 {
		return mat3{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}}
	}
	inv := 1 / det
	return mat3{
		{
			(m[1][1]*m[2][2] - m[1][2]*m[2][1]) * inv,
			(m[0][2]*m[2][1] - m[0][1]*m[2][2]) * inv,
			(m[0][1]*m[1][2] - m[0][2]*m[1][1]) * inv,
		},
		{
			(m[1][2]*m[2][0] - m[1][0]*m[2][2]) * inv,
			(m[0][0]*m[2][2] - m[0][2]*m[2][0]) * inv,
			(m[0][2]*m[1][0] - m[0][0]*m[1][2]) * inv,
		},
		{
			(m[1][0]*m[2][1] - m[1][1]*m[2][0]) * inv,
			(m[0][1]*m[2][0] - m[0][0]*m[2][1]) * inv,
			(m[0][0]*m[1][1] - m[0][1]*m[1][0]) * inv,
		},
	}
}
