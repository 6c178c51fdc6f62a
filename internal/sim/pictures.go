package sim

import "github.com/bnema/primelayer/internal/videobuf"

// SDRPicture is untagged 8-bit limited range content.
func SDRPicture(width, height int) videobuf.Picture {
	return videobuf.Picture{
		Width:     width,
		Height:    height,
		Primaries: videobuf.PrimariesUnspecified,
		Space:     videobuf.SpaceUnspecified,
		Transfer:  videobuf.TransferUnspecified,
		Bits:      8,
		Chroma:    videobuf.ChromaLeft,
	}
}

// HDR10Picture is 10-bit BT.2020 PQ content graded on a P3 D65 display.
func HDR10Picture(width, height int, maxLuminance int) videobuf.Picture {
	return videobuf.Picture{
		Width:     width,
		Height:    height,
		Primaries: videobuf.PrimariesBT2020,
		Space:     videobuf.SpaceBT2020NCL,
		Transfer:  videobuf.TransferSMPTE2084,
		Bits:      10,
		Chroma:    videobuf.ChromaTopLeft,
		Mastering: &videobuf.MasteringDisplay{
			Primaries: [3][2]videobuf.Rational{
				{{Num: 34000, Den: 50000}, {Num: 16000, Den: 50000}},
				{{Num: 13250, Den: 50000}, {Num: 34500, Den: 50000}},
				{{Num: 7500, Den: 50000}, {Num: 3000, Den: 50000}},
			},
			WhitePoint:   [2]videobuf.Rational{{Num: 15635, Den: 50000}, {Num: 16450, Den: 50000}},
			MinLuminance: videobuf.Rational{Num: 50, Den: 10000},
			MaxLuminance: videobuf.Rational{Num: maxLuminance, Den: 1},
			HasPrimaries: true,
			HasLuminance: true,
		},
		ContentLight: &videobuf.ContentLight{MaxCLL: 1000, MaxFALL: 400},
	}
}
