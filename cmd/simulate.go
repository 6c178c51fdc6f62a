package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/bnema/primelayer/internal/config"
	"github.com/bnema/primelayer/internal/logger"
	"github.com/bnema/primelayer/internal/metrics"
	"github.com/bnema/primelayer/internal/playback"
	"github.com/bnema/primelayer/internal/ui"
	"github.com/spf13/cobra"
)

var (
	simPath        string
	simFrames      int
	simHDR         bool
	simMetricsAddr string
	simFailEvery   int
	simHold        time.Duration
)

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Play synthetic frames through a presentation path",
	Long: `Drive synthetic decoder frames through the scanout bridge or the texture
renderer using in-memory kernel and GPU stand-ins, then report which
resources are still alive after teardown.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Get()

		path := simPath
		if path == "" {
			path = cfg.Display.Path
		}
		addr := simMetricsAddr
		if addr == "" {
			addr = cfg.Metrics.ListenAddress
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		m := metrics.New()
		if addr != "" {
			srv, err := serveMetrics(addr, m)
			if err != nil {
				return err
			}
			defer func() {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
				defer cancel()
				if err := srv.Shutdown(shutdownCtx); err != nil {
					logger.Error("metrics server shutdown", "err", err)
				}
			}()
		}

		report, err := playback.Run(ctx, playback.Options{
			Path:            path,
			Frames:          simFrames,
			HDR:             simHDR,
			Width:           cfg.Display.Width,
			Height:          cfg.Display.Height,
			LimitedRange:    cfg.Display.LimitedRange,
			Slots:           cfg.Renderer.Slots,
			FailImportEvery: simFailEvery,
			MetadataEvery:   30,
			Metrics:         m,
		})
		if report != nil {
			printReport(cmd.OutOrStdout(), report)
		}
		if err != nil {
			return err
		}

		if addr != "" && simHold > 0 {
			logger.Info("holding metrics endpoint", "addr", addr, "for", simHold)
			select {
			case <-ctx.Done():
			case <-time.After(simHold):
			}
		}

		if !report.Clean() {
			return errors.New("resources leaked after teardown")
		}
		return nil
	},
}

func serveMetrics(addr string, m *metrics.Metrics) (*http.Server, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen on %s: %w", addr, err)
	}
	srv := &http.Server{
		Handler:           m.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", "err", err)
		}
	}()
	logger.Info("serving metrics", "addr", ln.Addr().String())
	return srv, nil
}

func printReport(w io.Writer, r *playback.Report) {
	fmt.Fprintln(w, ui.FormatHeader("Simulation"))
	fmt.Fprintln(w, ui.FormatKeyValue("session", r.Session))
	fmt.Fprintln(w, ui.FormatKeyValue("path", r.Path))
	fmt.Fprintln(w, ui.FormatKeyValue("frames", r.Frames))
	fmt.Fprintln(w, ui.FormatKeyValue("scanout", r.Scanout))
	fmt.Fprintln(w, ui.FormatKeyValue("composited", r.Composited))
	if r.Fallbacks > 0 {
		fmt.Fprintln(w, ui.FormatWarning(fmt.Sprintf("%d frames fell back to compositing", r.Fallbacks)))
	}
	fmt.Fprintln(w, ui.FormatKeyValue("hdr blobs created", r.BlobCreates))
	fmt.Fprintln(w, ui.FormatCheck(r.PeakBlobs <= 1, "hdr blobs", fmt.Sprintf("peak %d live", r.PeakBlobs)))

	fmt.Fprintln(w, ui.FormatSection("teardown"))
	fmt.Fprintln(w, ui.FormatLeak("video buffers", r.BuffersInUse))
	fmt.Fprintln(w, ui.FormatLeak("gem handles", r.LiveHandles))
	fmt.Fprintln(w, ui.FormatLeak("framebuffers", r.LiveFramebuffers))
	fmt.Fprintln(w, ui.FormatLeak("property blobs", r.LiveBlobs))
	fmt.Fprintln(w, ui.FormatLeak("mapped textures", r.MappedTextures))
}

func init() {
	simulateCmd.Flags().StringVar(&simPath, "path", "", "presentation path: scanout or composite (default from config)")
	simulateCmd.Flags().IntVar(&simFrames, "frames", 120, "number of frames to play")
	simulateCmd.Flags().BoolVar(&simHDR, "hdr", false, "play HDR10 content to an HDR capable sink")
	simulateCmd.Flags().StringVar(&simMetricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address")
	simulateCmd.Flags().IntVar(&simFailEvery, "fail-every", 0, "fail the scanout import of every Nth frame")
	simulateCmd.Flags().DurationVar(&simHold, "hold", 0, "keep the metrics endpoint up this long after playback")

	rootCmd.AddCommand(simulateCmd)
}
