package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSimulateCommand(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want []string
	}{
		{
			name: "scanout path",
			args: []string{"simulate", "--path", "scanout", "--frames", "12", "--hdr=false", "--fail-every", "0"},
			want: []string{"scanout", "12", "none live"},
		},
		{
			name: "composite path",
			args: []string{"simulate", "--path", "composite", "--frames", "9", "--hdr=false", "--fail-every", "0"},
			want: []string{"composite", "9", "none live"},
		},
		{
			name: "scanout with fallbacks",
			args: []string{"simulate", "--path", "scanout", "--frames", "10", "--hdr", "--fail-every", "3"},
			want: []string{"fell back to compositing", "peak 1 live"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sandbox(t)
			out, err := executeCommand(rootCmd, tt.args...)
			require.NoError(t, err)
			for _, w := range tt.want {
				assert.Contains(t, out, w)
			}
			assert.NotContains(t, out, "still live")
		})
	}
}

func TestSimulateRejectsUnknownPath(t *testing.T) {
	sandbox(t)
	_, err := executeCommand(rootCmd, "simulate", "--path", "overlay", "--frames", "1", "--fail-every", "0")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "overlay")
}

func TestHDRCommand(t *testing.T) {
	sandbox(t)
	out, err := executeCommand(rootCmd, "hdr", "--eotf", "pq", "--max-lum", "4000", "--min-lum", "0.0050", "--max-cll", "1200", "--max-fall", "300")
	require.NoError(t, err)
	assert.Contains(t, out, "pq")
	assert.Contains(t, out, "4000")
	assert.Contains(t, out, "1200")
	assert.Contains(t, out, "300")
	assert.Contains(t, out, "00000000", "hex dump of the blob")

	_, err = executeCommand(rootCmd, "hdr", "--eotf", "dolby")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown eotf")

	// restore flag defaults for other tests
	_, err = executeCommand(rootCmd, "hdr", "--eotf", "pq", "--max-lum", "1000", "--min-lum", "0.005", "--max-cll", "1000", "--max-fall", "400")
	require.NoError(t, err)
}

func TestEDIDCommand(t *testing.T) {
	tmpDir := sandbox(t)
	path := filepath.Join(tmpDir, "edid.bin")
	require.NoError(t, os.WriteFile(path, hdrEDID(), 0644))

	out, err := executeCommand(rootCmd, "edid", path)
	require.NoError(t, err)
	assert.Contains(t, out, "BT2020_RGB")
	assert.Contains(t, out, "pq")
	assert.Contains(t, out, "TESTMON")

	require.NoError(t, os.WriteFile(path, []byte("not an edid"), 0644))
	_, err = executeCommand(rootCmd, "edid", path)
	require.Error(t, err)
}

// hdrEDID builds a base block plus a CTA-861 extension advertising BT.2020
// colorimetry and SDR, PQ and HLG transfer functions.
func hdrEDID() []byte {
	raw := make([]byte, 256)
	copy(raw, []byte{0x00, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0x00})
	raw[8], raw[9] = 0x10, 0xac // "DEL"
	raw[10], raw[11] = 0x34, 0x12

	// monitor name descriptor
	copy(raw[54:], []byte{0, 0, 0, 0xfc, 0})
	copy(raw[59:72], []byte("TESTMON\n     "))
	raw[126] = 1

	ext := raw[128:]
	ext[0] = 0x02
	ext[1] = 0x03
	blocks := []byte{
		0xe3, 0x05, 0xc0, 0x00, // colorimetry: BT2020_YCC, BT2020_RGB
		0xe6, 0x06, 0x0d, 0x01, 0x78, 0x5a, 0x00, // hdr static: SDR, PQ, HLG
	}
	copy(ext[4:], blocks)
	ext[2] = byte(4 + len(blocks))

	fixChecksum(raw[:128])
	fixChecksum(ext)
	return raw
}

func fixChecksum(block []byte) {
	var sum byte
	for _, b := range block[:127] {
		sum += b
	}
	block[127] = byte(0 - int(sum))
}

func TestVersionCommand(t *testing.T) {
	sandbox(t)
	out, err := executeCommand(rootCmd, "version")
	require.NoError(t, err)
	assert.Contains(t, out, Version)
	assert.Contains(t, out, "platform")
}

func TestHDRCommandDevice(t *testing.T) {
	tmpDir := sandbox(t)
	t.Cleanup(func() { _ = hdrCmd.Flags().Set("device", "") })
	t.Setenv("PRIMELAYER_DISPLAY_DEVICE", filepath.Join(tmpDir, "configured-card"))

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"bare flag uses display.device", []string{"hdr", "--device"}, "configured-card"},
		{"explicit path", []string{"hdr", "--device=" + filepath.Join(tmpDir, "explicit-card")}, "explicit-card"},
		{"separate value is rejected", []string{"hdr", "--device", filepath.Join(tmpDir, "stray-card")}, "unknown command"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := executeCommand(rootCmd, tt.args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
			_ = hdrCmd.Flags().Set("device", "")
		})
	}
}
