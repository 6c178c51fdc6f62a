// Package sim provides in-memory stand-ins for the kernel, the GPU and the
// decoder so both presentation paths can run without hardware.
package sim

import (
	"bytes"
	"fmt"
	"sync"

	"github.com/bnema/primelayer/internal/drm"
)

// KMS is an in-memory DRM device that tracks every handle, framebuffer and
// property blob it hands out.
type KMS struct {
	mu sync.Mutex

	nextHandle uint32
	nextFB     uint32
	nextBlob   uint32

	handles      map[uint32]int
	framebuffers map[uint32]drm.FramebufferSpec
	blobs        map[uint32][]byte

	// ImportHook, when set, may fail an ImportHandle call.
	ImportHook func(fd int) error
	// FramebufferHook, when set, may fail a CreateFramebuffer call.
	FramebufferHook func(spec drm.FramebufferSpec) error
	// BlobHook, when set, may fail a CreatePropertyBlob call.
	BlobHook func(data []byte) error

	FramebufferCreates int
	BlobCreates        int
	peakBlobs          int
}

// NewKMS returns an empty device.
func NewKMS() *KMS {
	return &KMS{
		handles:      make(map[uint32]int),
		framebuffers: make(map[uint32]drm.FramebufferSpec),
		blobs:        make(map[uint32][]byte),
	}
}

func (k *KMS) ImportHandle(fd int) (uint32, error) {
	k.mu.Lock()
	defer k.mu.Unlock()

	if fd < 0 {
		return 0, fmt.Errorf("prime fd to handle: bad fd %d", fd)
	}
	if k.ImportHook != nil {
		if err := k.ImportHook(fd); err != nil {
			return 0, err
		}
	}
	k.nextHandle++
	k.handles[k.nextHandle] = fd
	return k.nextHandle, nil
}

func (k *KMS) CloseHandle(handle uint32) error {
	k.mu.Lock()
	defer k.mu.Unlock()

	if _, ok := k.handles[handle]; !ok {
		return fmt.Errorf("gem close: unknown handle %d", handle)
	}
	delete(k.handles, handle)
	return nil
}

func (k *KMS) CreateFramebuffer(spec drm.FramebufferSpec) (uint32, error) {
	k.mu.Lock()
	defer k.mu.Unlock()

	k.FramebufferCreates++
	if k.FramebufferHook != nil {
		if err := k.FramebufferHook(spec); err != nil {
			return 0, err
		}
	}
	for i, h := range spec.Handles {
		if h == 0 {
			continue
		}
		if _, ok := k.handles[h]; !ok {
			return 0, fmt.Errorf("addfb2: plane %d references unknown handle %d", i, h)
		}
	}
	k.nextFB++
	k.framebuffers[k.nextFB] = spec
	return k.nextFB, nil
}

func (k *KMS) DestroyFramebuffer(id uint32) error {
	k.mu.Lock()
	defer k.mu.Unlock()

	if _, ok := k.framebuffers[id]; !ok {
		return fmt.Errorf("rmfb: unknown framebuffer %d", id)
	}
	delete(k.framebuffers, id)
	return nil
}

func (k *KMS) CreatePropertyBlob(data []byte) (uint32, error) {
	k.mu.Lock()
	defer k.mu.Unlock()

	k.BlobCreates++
	if k.BlobHook != nil {
		if err := k.BlobHook(data); err != nil {
			return 0, err
		}
	}
	k.nextBlob++
	k.blobs[k.nextBlob] = bytes.Clone(data)
	if n := len(k.blobs); n > k.peakBlobs {
		k.peakBlobs = n
	}
	return k.nextBlob, nil
}

func (k *KMS) DestroyPropertyBlob(id uint32) error {
	k.mu.Lock()
	defer k.mu.Unlock()

	if _, ok := k.blobs[id]; !ok {
		return fmt.Errorf("destroy blob: unknown blob %d", id)
	}
	delete(k.blobs, id)
	return nil
}

// LiveHandles is the number of open GEM handles.
func (k *KMS) LiveHandles() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.handles)
}

// LiveFramebuffers is the number of framebuffers not yet removed.
func (k *KMS) LiveFramebuffers() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.framebuffers)
}

// LiveBlobs is the number of property blobs not yet destroyed.
func (k *KMS) LiveBlobs() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.blobs)
}

// PeakBlobs is the largest number of blobs that were ever live together.
func (k *KMS) PeakBlobs() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.peakBlobs
}

// Framebuffer returns the creation arguments of a live framebuffer.
func (k *KMS) Framebuffer(id uint32) (drm.FramebufferSpec, bool) {
	k.mu.Lock()
	defer k.mu.Unlock()
	spec, ok := k.framebuffers[id]
	return spec, ok
}

// Blob returns the payload of a live blob.
func (k *KMS) Blob(id uint32) ([]byte, bool) {
	k.mu.Lock()
	defer k.mu.Unlock()
	b, ok := k.blobs[id]
	return b, ok
}
