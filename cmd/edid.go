package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/bnema/primelayer/internal/colorimetry"
	"github.com/bnema/primelayer/internal/edid"
	"github.com/bnema/primelayer/internal/ui"
	"github.com/spf13/cobra"
)

var edidCmd = &cobra.Command{
	Use:   "edid <file>",
	Short: "Show colorimetry and HDR support from a raw EDID",
	Long: `Parse a raw EDID, for example /sys/class/drm/card0-HDMI-A-1/edid, and show
which connector colorimetry modes and transfer functions the sink advertises.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		raw, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("read edid: %w", err)
		}
		info, err := edid.Parse(raw)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintln(out, ui.FormatHeader("EDID"))
		fmt.Fprintln(out, ui.FormatKeyValue("manufacturer", info.Manufacturer))
		fmt.Fprintln(out, ui.FormatKeyValue("product", fmt.Sprintf("%#04x", info.ProductCode)))
		if info.Name != "" {
			fmt.Fprintln(out, ui.FormatKeyValue("name", info.Name))
		}
		fmt.Fprintln(out, ui.FormatKeyValue("extensions", info.Extensions))

		fmt.Fprintln(out, ui.FormatSection("colorimetry"))
		names := info.ColorimetryNames()
		if len(names) == 0 {
			fmt.Fprintln(out, ui.FormatKeyValue("advertised", "none"))
		} else {
			fmt.Fprintln(out, ui.FormatKeyValue("advertised", strings.Join(names, ", ")))
		}
		fmt.Fprintln(out, ui.FormatCheck(info.SupportsColorimetry(colorimetry.ColorimetryBT2020RGB), colorimetry.ColorimetryBT2020RGB, ""))

		fmt.Fprintln(out, ui.FormatSection("hdr static metadata"))
		if !info.HasHDRBlock {
			fmt.Fprintln(out, ui.FormatWarning("no HDR static metadata block"))
			return nil
		}
		for _, eotf := range []uint8{
			colorimetry.EOTFTraditionalSDR,
			colorimetry.EOTFTraditionalHDR,
			colorimetry.EOTFSMPTEST2084,
			colorimetry.EOTFHLG,
		} {
			fmt.Fprintln(out, ui.FormatCheck(info.SupportsEOTF(eotf), colorimetry.EOTFName(eotf), ""))
		}
		if info.MaxLuminance > 0 {
			fmt.Fprintln(out, ui.FormatKeyValue("max luminance", fmt.Sprintf("%.0f cd/m²", info.MaxLuminance)))
		}
		if info.MaxFrameAvgLuminance > 0 {
			fmt.Fprintln(out, ui.FormatKeyValue("max frame-average", fmt.Sprintf("%.0f cd/m²", info.MaxFrameAvgLuminance)))
		}
		if info.MinLuminance > 0 {
			fmt.Fprintln(out, ui.FormatKeyValue("min luminance", fmt.Sprintf("%.4f cd/m²", info.MinLuminance)))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(edidCmd)
}
