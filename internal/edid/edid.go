// Package edid reads the parts of a sink's EDID that colour negotiation
// needs: identification, the CTA-861 colorimetry data block and the HDR
// static metadata data block.
package edid

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"strings"
)

const blockSize = 128

var (
	// ErrInvalid is returned for data that is not an EDID.
	ErrInvalid = errors.New("edid: invalid data")

	header = []byte{0x00, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0x00}
)

const (
	tagCTA            = 0x02
	dataBlockExtended = 7
	extColorimetry    = 0x05
	extHDRStatic      = 0x06
)

// colorimetryBits maps connector Colorspace entries to colorimetry data block bits.
var colorimetryBits = map[string]uint16{
	"XVYCC_601":      1 << 0,
	"XVYCC_709":      1 << 1,
	"SYCC_601":       1 << 2,
	"opYCC_601":      1 << 3,
	"opRGB":          1 << 4,
	"BT2020_CYCC":    1 << 5,
	"BT2020_YCC":     1 << 6,
	"BT2020_RGB":     1 << 7,
	"DCI-P3_RGB_D65": 1 << 15,
}

// Info is the decoded capability data of a sink.
type Info struct {
	Manufacturer string
	ProductCode  uint16
	Name         string
	Extensions   int

	// Colorimetry holds the two colorimetry data block payload bytes, first byte low.
	Colorimetry    uint16
	HasHDRBlock    bool
	EOTFs          uint8
	StaticMetadata uint8

	// Desired content luminance in cd/m², zero when not advertised.
	MaxLuminance         float64
	MaxFrameAvgLuminance float64
	MinLuminance         float64
}

// Parse decodes a raw EDID including its extension blocks.
func Parse(raw []byte) (*Info, error) {
	if len(raw) < blockSize || len(raw)%blockSize != 0 {
		return nil, fmt.Errorf("%w: length %d is not a multiple of %d", ErrInvalid, len(raw), blockSize)
	}
	if !bytes.Equal(raw[:8], header) {
		return nil, fmt.Errorf("%w: bad header", ErrInvalid)
	}

	info := &Info{
		Manufacturer: manufacturer(raw[8], raw[9]),
		ProductCode:  uint16(raw[10]) | uint16(raw[11])<<8,
		Name:         monitorName(raw[:blockSize]),
		Extensions:   int(raw[126]),
	}

	for i := 0; i < len(raw)/blockSize; i++ {
		block := raw[i*blockSize : (i+1)*blockSize]
		if checksum(block) != 0 {
			return nil, fmt.Errorf("%w: block %d checksum mismatch", ErrInvalid, i)
		}
		if i > 0 && block[0] == tagCTA {
			info.parseCTA(block)
		}
	}

	return info, nil
}

func (info *Info) parseCTA(block []byte) {
	end := int(block[2])
	if end < 4 || end > blockSize-1 {
		return
	}

	for i := 4; i < end; {
		tag := block[i] >> 5
		length := int(block[i] & 0x1f)
		if i+1+length > end {
			return
		}
		payload := block[i+1 : i+1+length]
		i += 1 + length

		if tag != dataBlockExtended || length < 1 {
			continue
		}
		switch payload[0] {
		case extColorimetry:
			if length >= 2 {
				info.Colorimetry = uint16(payload[1])
			}
			if length >= 3 {
				info.Colorimetry |= uint16(payload[2]) << 8
			}
		case extHDRStatic:
			if length < 3 {
				continue
			}
			info.HasHDRBlock = true
			info.EOTFs = payload[1]
			info.StaticMetadata = payload[2]
			if length >= 4 && payload[3] != 0 {
				info.MaxLuminance = 50 * math.Pow(2, float64(payload[3])/32)
			}
			if length >= 5 && payload[4] != 0 {
				info.MaxFrameAvgLuminance = 50 * math.Pow(2, float64(payload[4])/32)
			}
			if length >= 6 && info.MaxLuminance > 0 {
				cv := float64(payload[5]) / 255
				info.MinLuminance = info.MaxLuminance * cv * cv / 100
			}
		}
	}
}

// SupportsColorimetry reports whether the sink accepts the connector
// Colorspace entry. "Default" is always accepted.
func (info *Info) SupportsColorimetry(name string) bool {
	if name == "Default" {
		return true
	}
	bit, ok := colorimetryBits[name]
	return ok && info.Colorimetry&bit != 0
}

// SupportsEOTF reports whether the HDR static metadata block lists eotf.
func (info *Info) SupportsEOTF(eotf uint8) bool {
	return info.HasHDRBlock && eotf < 8 && info.EOTFs&(1<<eotf) != 0
}

// ColorimetryNames lists the advertised Colorspace entries in a stable order.
func (info *Info) ColorimetryNames() []string {
	order := []string{"XVYCC_601", "XVYCC_709", "SYCC_601", "opYCC_601", "opRGB",
		"BT2020_CYCC", "BT2020_YCC", "BT2020_RGB", "DCI-P3_RGB_D65"}
	var names []string
	for _, n := range order {
		if info.Colorimetry&colorimetryBits[n] != 0 {
			names = append(names, n)
		}
	}
	return names
}

func manufacturer(hi, lo byte) string {
	v := uint16(hi)<<8 | uint16(lo)
	letters := []byte{
		byte(v>>10&0x1f) + 'A' - 1,
		byte(v>>5&0x1f) + 'A' - 1,
		byte(v&0x1f) + 'A' - 1,
	}
	return string(letters)
}

func monitorName(base []byte) string {
	for off := 54; off <= 108; off += 18 {
		d := base[off : off+18]
		if d[0] == 0 && d[1] == 0 && d[3] == 0xfc {
			name := string(d[5:18])
			if i := strings.IndexByte(name, '\n'); i >= 0 {
				name = name[:i]
			}
			return strings.TrimSpace(name)
		}
	}
	return ""
}

func checksum(block []byte) byte {
	var sum byte
	for _, b := range block {
		sum += b
	}
	return sum
}
