// Package playback runs synthetic decoder output through one of the two
// presentation paths against the in-memory kernel and GPU, and reports what
// was left alive afterwards.
package playback

import (
	"context"
	"errors"
	"fmt"

	"github.com/bnema/primelayer/internal/composite"
	"github.com/bnema/primelayer/internal/config"
	"github.com/bnema/primelayer/internal/drm"
	"github.com/bnema/primelayer/internal/geom"
	"github.com/bnema/primelayer/internal/logger"
	"github.com/bnema/primelayer/internal/metrics"
	"github.com/bnema/primelayer/internal/scanout"
	"github.com/bnema/primelayer/internal/sim"
	"github.com/bnema/primelayer/internal/videobuf"
	"github.com/charmbracelet/log"
	"github.com/google/uuid"
)

// Options configure a run.
type Options struct {
	Path         string
	Frames       int
	HDR          bool
	Width        int
	Height       int
	LimitedRange bool
	Slots        int
	FPS          float64
	Stream       sim.Stream

	// FailImportEvery fails the handle import of every Nth frame so the
	// scanout path has to fall back to compositing. Zero disables it.
	FailImportEvery int
	// MetadataEvery changes the mastering luminance every N frames of an
	// HDR run. Zero keeps it constant.
	MetadataEvery int

	Metrics *metrics.Metrics
}

// Report is the outcome of a run.
type Report struct {
	Session string
	Path    string

	Frames      int
	Scanout     int
	Composited  int
	Fallbacks   int
	BlobCreates int
	PeakBlobs   int

	BuffersInUse     int
	LiveHandles      int
	LiveFramebuffers int
	LiveBlobs        int
	MappedTextures   int
}

// Clean reports whether teardown released everything.
func (r *Report) Clean() bool {
	return r.BuffersInUse == 0 && r.LiveHandles == 0 && r.LiveFramebuffers == 0 &&
		r.LiveBlobs == 0 && r.MappedTextures == 0
}

var errInjected = errors.New("injected import failure")

// Run plays opts.Frames frames and tears everything down.
func Run(ctx context.Context, opts Options) (*Report, error) {
	if opts.Frames <= 0 {
		return nil, fmt.Errorf("frames must be positive, got %d", opts.Frames)
	}
	if opts.Path != config.PathScanout && opts.Path != config.PathComposite {
		return nil, fmt.Errorf("unknown presentation path %q", opts.Path)
	}
	if opts.FPS <= 0 {
		opts.FPS = 60
	}

	p, err := newPlayer(opts)
	if err != nil {
		return nil, err
	}
	p.log.Info("starting playback", "path", opts.Path, "frames", opts.Frames, "hdr", opts.HDR)

	runErr := p.run(ctx)
	p.close()

	report := p.report()
	p.log.Info("playback finished",
		"frames", report.Frames,
		"scanout", report.Scanout,
		"composited", report.Composited,
		"fallbacks", report.Fallbacks,
		"clean", report.Clean())
	return report, runErr
}

type player struct {
	opts    Options
	session string
	log     *log.Logger

	pool    *videobuf.Pool
	decoder *sim.Decoder
	kms     *sim.KMS
	gpu     *sim.GPU
	req     *drm.AtomicRequest

	bridge   *scanout.Bridge
	renderer *composite.Renderer

	configured bool
	frames     int
	scanout    int
	composited int
	fallbacks  int
}

func newPlayer(opts Options) (*player, error) {
	session := uuid.NewString()
	p := &player{
		opts:    opts,
		session: session,
		log:     logger.With("playback", "session", session),
		pool:    videobuf.NewPool(0),
		kms:     sim.NewKMS(),
		gpu:     sim.NewGPU(opts.Width, opts.Height),
		req:     drm.NewAtomicRequest(),
	}
	p.gpu.Limited = opts.LimitedRange

	stream := opts.Stream
	if stream.Picture.Width == 0 {
		if opts.HDR {
			stream.Picture = sim.HDR10Picture(3840, 2160, 1000)
			if stream.Format == videobuf.FormatNone {
				stream.Format = videobuf.FormatP010
			}
		} else {
			stream.Picture = sim.SDRPicture(1920, 1080)
		}
	}
	p.decoder = sim.NewDecoder(p.pool, stream)

	if n := opts.FailImportEvery; n > 0 {
		p.kms.ImportHook = func(int) error {
			if (p.frames+1)%n == 0 {
				return errInjected
			}
			return nil
		}
	}

	sink := sim.Sink{}
	if opts.HDR {
		sink = sim.HDRSink()
	}
	out := scanout.Output{
		VideoPlane: sim.VideoPlane(),
		GUIPlane:   sim.GUIPlane(),
		Connector:  sim.Connector(opts.HDR),
		CrtcID:     sim.CrtcID,
		Caps:       sink,
	}

	slots := opts.Slots
	if slots <= 0 {
		slots = composite.DefaultSlots
	}
	p.renderer = composite.New(&sim.Display{Ctx: p.gpu},
		composite.WithSlots(slots),
		composite.WithMetrics(opts.Metrics))

	if opts.Path == config.PathScanout {
		p.bridge = scanout.New(p.kms, p.req, out, scanout.WithMetrics(opts.Metrics))
	}
	return p, nil
}

func (p *player) run(ctx context.Context) error {
	for p.frames < p.opts.Frames {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := p.step(); err != nil {
			return err
		}
		p.frames++
	}
	return nil
}

func (p *player) step() error {
	if p.opts.HDR && p.opts.MetadataEvery > 0 && p.frames > 0 && p.frames%p.opts.MetadataEvery == 0 {
		pic := p.decoder.Picture()
		if pic.Mastering != nil {
			md := *pic.Mastering
			md.MaxLuminance.Num += 100
			pic.Mastering = &md
			p.decoder.SetPicture(pic)
		}
	}

	buf, err := p.decoder.Decode()
	if err != nil {
		return err
	}
	// the presentation path takes its own references
	defer buf.Release()

	if p.bridge != nil {
		if p.frames == 0 || p.metadataChanged() {
			p.bridge.ConfigureDisplay(buf)
		}
		dest := geom.Fit(geom.XYWH(0, 0, float64(p.opts.Width), float64(p.opts.Height)), aspect(buf.Picture()))
		if p.bridge.StagePlane(buf, dest) {
			p.req.Reset()
			p.scanout++
			return nil
		}
		p.fallbacks++
		p.log.Warn("scanout rejected frame, compositing", "frame", p.frames)
	}

	return p.composite(buf)
}

func (p *player) metadataChanged() bool {
	return p.opts.HDR && p.opts.MetadataEvery > 0 && p.frames%p.opts.MetadataEvery == 0
}

func (p *player) composite(buf videobuf.Buffer) error {
	if !p.configured || p.renderer.ConfigChanged(buf) {
		if !composite.CanRender(buf, p.gpu) {
			return fmt.Errorf("frame %d: buffer cannot be imported by the gpu", p.frames)
		}
		if err := p.renderer.Configure(buf, p.opts.FPS, 0); err != nil {
			return fmt.Errorf("configure renderer: %w", err)
		}
		p.configured = true
	}

	slot := p.frames % p.renderer.RenderInfo().MaxBufferSize
	if !p.renderer.NeedsSlot(slot) {
		// the simulated gpu finishes when asked
		p.gpu.SignalAll()
	}
	p.renderer.ReleaseSlot(slot)
	p.renderer.SubmitPicture(buf, slot)
	p.renderer.RenderSlot(slot, true, 0, 255)
	p.composited++
	return nil
}

func (p *player) close() {
	if p.bridge != nil {
		p.bridge.DisablePlane()
		p.bridge.Close()
	}
	p.renderer.Close()
}

func (p *player) report() *Report {
	return &Report{
		Session:          p.session,
		Path:             p.opts.Path,
		Frames:           p.frames,
		Scanout:          p.scanout,
		Composited:       p.composited,
		Fallbacks:        p.fallbacks,
		BlobCreates:      p.kms.BlobCreates,
		PeakBlobs:        p.kms.PeakBlobs(),
		BuffersInUse:     p.pool.InUse(),
		LiveHandles:      p.kms.LiveHandles(),
		LiveFramebuffers: p.kms.LiveFramebuffers(),
		LiveBlobs:        p.kms.LiveBlobs(),
		MappedTextures:   p.gpu.MappedTextures(),
	}
}

func aspect(pic *videobuf.Picture) float64 {
	if pic.DisplayWidth > 0 && pic.DisplayHeight > 0 {
		return float64(pic.DisplayWidth) / float64(pic.DisplayHeight)
	}
	if pic.Height == 0 {
		return 0
	}
	return float64(pic.Width) / float64(pic.Height)
}
