//go:build !linux

package drm

import (
	"errors"
	"fmt"
)

var errUnsupported = errors.New("drm: kernel mode setting requires linux")

// Device is unavailable off Linux; every call fails.
type Device struct{}

func Open(path string) (*Device, error) { return nil, fmt.Errorf("open %s: %w", path, errUnsupported) }

func (d *Device) ImportHandle(fd int) (uint32, error)                    { return 0, errUnsupported }
func (d *Device) CloseHandle(handle uint32) error                        { return errUnsupported }
func (d *Device) CreateFramebuffer(spec FramebufferSpec) (uint32, error) { return 0, errUnsupported }
func (d *Device) DestroyFramebuffer(id uint32) error                     { return errUnsupported }
func (d *Device) CreatePropertyBlob(data []byte) (uint32, error)         { return 0, errUnsupported }
func (d *Device) DestroyPropertyBlob(id uint32) error                    { return errUnsupported }
func (d *Device) Close() error                                           { return nil }
