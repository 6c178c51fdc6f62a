package colorimetry

import (
	"testing"

	"github.com/bnema/primelayer/internal/videobuf"
	"github.com/stretchr/testify/assert"
)

func TestInferColorSpace(t *testing.T) {
	tests := []struct {
		w, h int
		want videobuf.ColorSpace
	}{
		{720, 576, videobuf.SpaceBT470BG},
		{1024, 576, videobuf.SpaceBT470BG},
		{1025, 576, videobuf.SpaceBT709},
		{720, 599, videobuf.SpaceBT470BG},
		{720, 600, videobuf.SpaceBT709},
		{1920, 1080, videobuf.SpaceBT709},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, InferColorSpace(tt.w, tt.h), "%dx%d", tt.w, tt.h)
	}
}

func TestColorEncoding(t *testing.T) {
	tests := []struct {
		name string
		pic  videobuf.Picture
		want string
	}{
		{"bt2020 ncl", videobuf.Picture{Space: videobuf.SpaceBT2020NCL}, EncodingBT2020},
		{"bt2020 cl", videobuf.Picture{Space: videobuf.SpaceBT2020CL}, EncodingBT2020},
		{"smpte170m", videobuf.Picture{Space: videobuf.SpaceSMPTE170M}, EncodingBT601},
		{"bt470bg", videobuf.Picture{Space: videobuf.SpaceBT470BG}, EncodingBT601},
		{"fcc", videobuf.Picture{Space: videobuf.SpaceFCC}, EncodingBT601},
		{"bt709", videobuf.Picture{Space: videobuf.SpaceBT709, Width: 720, Height: 480}, EncodingBT709},
		{"untagged hd", videobuf.Picture{Space: videobuf.SpaceUnspecified, Width: 1280, Height: 720}, EncodingBT709},
		{"untagged sd", videobuf.Picture{Space: videobuf.SpaceUnspecified, Width: 720, Height: 576}, EncodingBT601},
		{"ycgco falls back to size", videobuf.Picture{Space: videobuf.SpaceYCgCo, Width: 1920, Height: 1080}, EncodingBT709},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ColorEncoding(&tt.pic))
		})
	}
}

func TestColorRange(t *testing.T) {
	assert.Equal(t, RangeFull, ColorRange(&videobuf.Picture{FullRange: true}))
	assert.Equal(t, RangeLimited, ColorRange(&videobuf.Picture{}))
}

func TestColorimetry(t *testing.T) {
	assert.Equal(t, ColorimetryBT2020RGB, Colorimetry(&videobuf.Picture{Space: videobuf.SpaceBT2020NCL}))
	assert.Equal(t, ColorimetryBT2020RGB, Colorimetry(&videobuf.Picture{Space: videobuf.SpaceBT2020CL}))
	assert.Equal(t, ColorimetryDefault, Colorimetry(&videobuf.Picture{Space: videobuf.SpaceBT709}))
	assert.Equal(t, ColorimetryDefault, Colorimetry(&videobuf.Picture{Space: videobuf.SpaceUnspecified}))
}

func TestEOTF(t *testing.T) {
	tests := []struct {
		transfer videobuf.ColorTransfer
		want     uint8
	}{
		{videobuf.TransferSMPTE2084, EOTFSMPTEST2084},
		{videobuf.TransferARIBSTDB67, EOTFHLG},
		{videobuf.TransferBT2020_10, EOTFHLG},
		{videobuf.TransferBT709, EOTFTraditionalSDR},
		{videobuf.TransferUnspecified, EOTFTraditionalSDR},
	}
	for _, tt := range tests {
		pic := videobuf.Picture{Transfer: tt.transfer}
		assert.Equal(t, tt.want, EOTF(&pic), "transfer %d", tt.transfer)
	}
	assert.Equal(t, "pq", EOTFName(EOTFSMPTEST2084))
	assert.Equal(t, "unknown", EOTFName(9))
}
