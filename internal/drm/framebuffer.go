package drm

import "fmt"

// FramebufferSpec is the argument set of a framebuffer creation.
type FramebufferSpec struct {
	Width     uint32
	Height    uint32
	Format    uint32
	Handles   [4]uint32
	Pitches   [4]uint32
	Offsets   [4]uint32
	Modifiers [4]uint64
	Flags     uint32
}

func (s FramebufferSpec) String() string {
	return fmt.Sprintf("%dx%d %s handles=%v pitches=%v offsets=%v flags=%#x",
		s.Width, s.Height, FormatName(s.Format), s.Handles, s.Pitches, s.Offsets, s.Flags)
}
