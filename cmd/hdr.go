package cmd

import (
	"encoding/hex"
	"fmt"
	"math"

	"github.com/bnema/primelayer/internal/colorimetry"
	"github.com/bnema/primelayer/internal/config"
	"github.com/bnema/primelayer/internal/drm"
	"github.com/bnema/primelayer/internal/logger"
	"github.com/bnema/primelayer/internal/ui"
	"github.com/bnema/primelayer/internal/videobuf"
	"github.com/spf13/cobra"
)

var (
	hdrDevice  string
	hdrEOTF    string
	hdrMaxLum  int
	hdrMinLum  float64
	hdrMaxCLL  uint16
	hdrMaxFALL uint16
)

// configuredDevice stands for display.device when --device has no value.
const configuredDevice = "config"

var hdrCmd = &cobra.Command{
	Use:   "hdr",
	Short: "Encode an HDR output metadata blob",
	Long: `Encode HDR static metadata for BT.2020 content mastered on a P3 D65 display
in the layout of the kernel's hdr_output_metadata. With --device the blob is
created on the DRM device and destroyed again, which checks that the driver
accepts it. Pass the node as --device=PATH; a bare --device uses
display.device from the configuration.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		eotf, err := parseEOTF(hdrEOTF)
		if err != nil {
			return err
		}

		pic := hdrPicture()
		var md colorimetry.HDRMetadata
		md.Apply(&pic, eotf)
		data, err := md.MarshalBinary()
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintln(out, ui.FormatHeader("HDR output metadata"))
		fmt.Fprintln(out, ui.FormatKeyValue("eotf", colorimetry.EOTFName(md.EOTF)))
		fmt.Fprintln(out, ui.FormatKeyValue("primaries", fmt.Sprintf("%v", md.DisplayPrimaries)))
		fmt.Fprintln(out, ui.FormatKeyValue("white point", fmt.Sprintf("%v", md.WhitePoint)))
		fmt.Fprintln(out, ui.FormatKeyValue("max luminance", md.MaxLuminance))
		fmt.Fprintln(out, ui.FormatKeyValue("min luminance", md.MinLuminance))
		fmt.Fprintln(out, ui.FormatKeyValue("max cll", md.MaxCLL))
		fmt.Fprintln(out, ui.FormatKeyValue("max fall", md.MaxFALL))
		fmt.Fprintln(out, ui.Box(hex.Dump(data)))

		path := hdrDevice
		if path == "" {
			return nil
		}
		if path == configuredDevice {
			path = config.Get().Display.Device
		}

		dev, err := drm.Open(path)
		if err != nil {
			return err
		}
		defer func() {
			if err := dev.Close(); err != nil {
				logger.Error("close drm device", "err", err)
			}
		}()

		id, err := dev.CreatePropertyBlob(data)
		if err != nil {
			fmt.Fprintln(out, ui.FormatCheck(false, "create blob", err.Error()))
			return err
		}
		fmt.Fprintln(out, ui.FormatCheck(true, "create blob", fmt.Sprintf("id %d", id)))
		if err := dev.DestroyPropertyBlob(id); err != nil {
			fmt.Fprintln(out, ui.FormatCheck(false, "destroy blob", err.Error()))
			return err
		}
		fmt.Fprintln(out, ui.FormatCheck(true, "destroy blob", ""))
		return nil
	},
}

func parseEOTF(name string) (uint8, error) {
	switch name {
	case "pq":
		return colorimetry.EOTFSMPTEST2084, nil
	case "hlg":
		return colorimetry.EOTFHLG, nil
	case "sdr":
		return colorimetry.EOTFTraditionalSDR, nil
	case "hdr-gamma":
		return colorimetry.EOTFTraditionalHDR, nil
	}
	return 0, fmt.Errorf("unknown eotf %q: want pq, hlg, sdr or hdr-gamma", name)
}

func hdrPicture() videobuf.Picture {
	return videobuf.Picture{
		Primaries: videobuf.PrimariesBT2020,
		Space:     videobuf.SpaceBT2020NCL,
		Transfer:  videobuf.TransferSMPTE2084,
		Mastering: &videobuf.MasteringDisplay{
			Primaries: [3][2]videobuf.Rational{
				{{Num: 34000, Den: 50000}, {Num: 16000, Den: 50000}},
				{{Num: 13250, Den: 50000}, {Num: 34500, Den: 50000}},
				{{Num: 7500, Den: 50000}, {Num: 3000, Den: 50000}},
			},
			WhitePoint:   [2]videobuf.Rational{{Num: 15635, Den: 50000}, {Num: 16450, Den: 50000}},
			MaxLuminance: videobuf.Rational{Num: hdrMaxLum, Den: 1},
			MinLuminance: videobuf.Rational{Num: int(math.Round(hdrMinLum * 10000)), Den: 10000},
			HasPrimaries: true,
			HasLuminance: true,
		},
		ContentLight: &videobuf.ContentLight{MaxCLL: hdrMaxCLL, MaxFALL: hdrMaxFALL},
	}
}

func init() {
	hdrCmd.Flags().StringVar(&hdrDevice, "device", "", "DRM device to create the blob on (bare flag: display.device)")
	hdrCmd.Flags().Lookup("device").NoOptDefVal = configuredDevice
	hdrCmd.Flags().StringVar(&hdrEOTF, "eotf", "pq", "transfer function: pq, hlg, sdr or hdr-gamma")
	hdrCmd.Flags().IntVar(&hdrMaxLum, "max-lum", 1000, "mastering display max luminance in cd/m²")
	hdrCmd.Flags().Float64Var(&hdrMinLum, "min-lum", 0.005, "mastering display min luminance in cd/m²")
	hdrCmd.Flags().Uint16Var(&hdrMaxCLL, "max-cll", 1000, "maximum content light level in cd/m²")
	hdrCmd.Flags().Uint16Var(&hdrMaxFALL, "max-fall", 400, "maximum frame-average light level in cd/m²")

	rootCmd.AddCommand(hdrCmd)
}
