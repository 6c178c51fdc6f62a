//go:build linux

package drm

import (
	"fmt"
	"os"
	"runtime"
	"unsafe"

	"github.com/bnema/primelayer/internal/logger"
	"golang.org/x/sys/unix"
)

// ioctl request numbers, DRM_IOW/DRM_IOWR('d', nr, size).
const (
	ioctlGemClose            = 0x40086409
	ioctlPrimeFDToHandle     = 0xc00c642e
	ioctlModeRmFB            = 0xc00464af
	ioctlModeAddFB2          = 0xc06864b8
	ioctlModeCreatePropBlob  = 0xc01064bd
	ioctlModeDestroyPropBlob = 0xc00464be
)

type drmGemClose struct {
	Handle uint32
	Pad    uint32
}

type drmPrimeHandle struct {
	Handle uint32
	Flags  uint32
	FD     int32
}

type drmModeFbCmd2 struct {
	FbID        uint32
	Width       uint32
	Height      uint32
	PixelFormat uint32
	Flags       uint32
	Handles     [4]uint32
	Pitches     [4]uint32
	Offsets     [4]uint32
	_           uint32
	Modifier    [4]uint64
}

type drmModeCreateBlob struct {
	Data   uint64
	Length uint32
	BlobID uint32
}

type drmModeDestroyBlob struct {
	BlobID uint32
}

// Device is an open DRM card node.
type Device struct {
	file *os.File
}

// Open opens a card node such as /dev/dri/card0.
func Open(path string) (*Device, error) {
	f, err := os.OpenFile(path, os.O_RDWR|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	logger.Debug("Opened DRM device", "path", path)
	return &Device{file: f}, nil
}

func (d *Device) ioctl(req uintptr, arg unsafe.Pointer) error {
	for {
		_, _, errno := unix.Syscall(unix.SYS_IOCTL, d.file.Fd(), req, uintptr(arg))
		if errno == unix.EINTR || errno == unix.EAGAIN {
			continue
		}
		if errno != 0 {
			return errno
		}
		return nil
	}
}

// ImportHandle converts a dma-buf file descriptor to a GEM handle.
func (d *Device) ImportHandle(fd int) (uint32, error) {
	arg := drmPrimeHandle{FD: int32(fd)}
	if err := d.ioctl(ioctlPrimeFDToHandle, unsafe.Pointer(&arg)); err != nil {
		return 0, fmt.Errorf("PRIME_FD_TO_HANDLE fd=%d: %w", fd, err)
	}
	return arg.Handle, nil
}

// CloseHandle releases a GEM handle.
func (d *Device) CloseHandle(handle uint32) error {
	arg := drmGemClose{Handle: handle}
	if err := d.ioctl(ioctlGemClose, unsafe.Pointer(&arg)); err != nil {
		return fmt.Errorf("GEM_CLOSE handle=%d: %w", handle, err)
	}
	return nil
}

// CreateFramebuffer registers a framebuffer and returns its id.
func (d *Device) CreateFramebuffer(spec FramebufferSpec) (uint32, error) {
	arg := drmModeFbCmd2{
		Width:       spec.Width,
		Height:      spec.Height,
		PixelFormat: spec.Format,
		Flags:       spec.Flags,
		Handles:     spec.Handles,
		Pitches:     spec.Pitches,
		Offsets:     spec.Offsets,
	}
	if spec.Flags&FlagModifiers != 0 {
		arg.Modifier = spec.Modifiers
	}
	if err := d.ioctl(ioctlModeAddFB2, unsafe.Pointer(&arg)); err != nil {
		return 0, fmt.Errorf("ADDFB2 %s: %w", spec, err)
	}
	return arg.FbID, nil
}

// DestroyFramebuffer removes a framebuffer.
func (d *Device) DestroyFramebuffer(id uint32) error {
	arg := id
	if err := d.ioctl(ioctlModeRmFB, unsafe.Pointer(&arg)); err != nil {
		return fmt.Errorf("RMFB fb=%d: %w", id, err)
	}
	return nil
}

// CreatePropertyBlob uploads data as a property blob.
func (d *Device) CreatePropertyBlob(data []byte) (uint32, error) {
	if len(data) == 0 {
		return 0, fmt.Errorf("CREATEPROPBLOB: empty blob")
	}
	arg := drmModeCreateBlob{
		Data:   uint64(uintptr(unsafe.Pointer(&data[0]))),
		Length: uint32(len(data)),
	}
	err := d.ioctl(ioctlModeCreatePropBlob, unsafe.Pointer(&arg))
	runtime.KeepAlive(data)
	if err != nil {
		return 0, fmt.Errorf("CREATEPROPBLOB len=%d: %w", len(data), err)
	}
	return arg.BlobID, nil
}

// DestroyPropertyBlob frees a property blob.
func (d *Device) DestroyPropertyBlob(id uint32) error {
	arg := drmModeDestroyBlob{BlobID: id}
	if err := d.ioctl(ioctlModeDestroyPropBlob, unsafe.Pointer(&arg)); err != nil {
		return fmt.Errorf("DESTROYPROPBLOB blob=%d: %w", id, err)
	}
	return nil
}

// Close closes the card node.
func (d *Device) Close() error {
	return d.file.Close()
}
