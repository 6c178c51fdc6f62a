package videobuf

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func nv12Layout() Descriptor {
	return Descriptor{
		Objects: []Object{{FD: 7, Size: 1920 * 1080 * 3 / 2}},
		Layers: []Layer{
			{Format: 0x20203852, Planes: []Plane{{ObjectIndex: 0, Pitch: 1920}}},
			{Format: 0x38385247, Planes: []Plane{{ObjectIndex: 0, Offset: 1920 * 1080, Pitch: 1920}}},
		},
	}
}

func TestPoolRecyclesOnLastRelease(t *testing.T) {
	p := NewPool(0)
	b, err := p.Get(Picture{Width: 1920, Height: 1080}, FormatDRMPrime, nv12Layout())
	require.NoError(t, err)
	assert.Equal(t, 1, b.Refs())
	assert.Equal(t, 1, p.InUse())

	b.Acquire()
	b.Release()
	assert.Equal(t, 1, p.InUse(), "buffer still referenced by its owner")

	b.Release()
	assert.Equal(t, 0, p.InUse())

	again, err := p.Get(Picture{Width: 640, Height: 360}, FormatDRMPrime, nv12Layout())
	require.NoError(t, err)
	assert.Same(t, b, again, "idle buffer is reused")
	assert.Equal(t, 640, again.Width())
	assert.Equal(t, 1, again.Refs())
}

func TestPoolLimits(t *testing.T) {
	p := NewPool(1)
	b, err := p.Get(Picture{}, FormatDRMPrime, nv12Layout())
	require.NoError(t, err)

	_, err = p.Get(Picture{}, FormatDRMPrime, nv12Layout())
	assert.ErrorIs(t, err, ErrPoolExhausted)

	p.Close()
	_, err = p.Get(Picture{}, FormatDRMPrime, nv12Layout())
	assert.ErrorIs(t, err, ErrPoolClosed)

	b.Release()
	assert.Equal(t, 0, p.InUse())
}

func TestReleaseUnreferencedIsIgnored(t *testing.T) {
	p := NewPool(0)
	b, err := p.Get(Picture{}, FormatDRMPrime, nv12Layout())
	require.NoError(t, err)
	b.Release()
	b.Release()
	assert.Equal(t, 0, b.Refs())
	assert.Equal(t, 0, p.InUse())
}

func TestDescriptorRefs(t *testing.T) {
	p := NewPool(0)
	b, err := p.Get(Picture{}, FormatDRMPrime, nv12Layout())
	require.NoError(t, err)
	assert.Nil(t, b.Descriptor())

	require.NoError(t, b.AcquireDescriptor())
	require.NoError(t, b.AcquireDescriptor())
	require.NotNil(t, b.Descriptor())
	assert.Len(t, b.Descriptor().Layers, 2)
	assert.Equal(t, 2, b.DescriptorRefs())

	b.ReleaseDescriptor()
	assert.NotNil(t, b.Descriptor())
	b.ReleaseDescriptor()
	assert.Nil(t, b.Descriptor())
	b.ReleaseDescriptor()
	assert.Equal(t, 0, b.DescriptorRefs())
}

func TestDescriptorValidate(t *testing.T) {
	tests := []struct {
		name    string
		desc    Descriptor
		wantErr string
	}{
		{name: "nv12", desc: nv12Layout()},
		{name: "no objects", desc: Descriptor{Layers: nv12Layout().Layers}, wantErr: "0 objects"},
		{name: "no layers", desc: Descriptor{Objects: nv12Layout().Objects}, wantErr: "0 layers"},
		{
			name:    "empty layer",
			desc:    Descriptor{Objects: []Object{{FD: 3}}, Layers: []Layer{{Format: 1}}},
			wantErr: "0 planes",
		},
		{
			name: "dangling object index",
			desc: Descriptor{
				Objects: []Object{{FD: 3}},
				Layers:  []Layer{{Format: 1, Planes: []Plane{{ObjectIndex: 1}}}},
			},
			wantErr: "references object 1",
		},
		{
			name: "too many objects",
			desc: Descriptor{
				Objects: make([]Object, MaxObjects+1),
				Layers:  []Layer{{Format: 1, Planes: []Plane{{}}}},
			},
			wantErr: "5 objects",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.desc.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestAcquireDescriptorRejectsBadLayout(t *testing.T) {
	p := NewPool(0)
	b, err := p.Get(Picture{}, FormatDRMPrime, Descriptor{})
	require.NoError(t, err)

	err = b.AcquireDescriptor()
	assert.ErrorIs(t, err, ErrNoDescriptor)
	assert.Equal(t, 0, b.DescriptorRefs())
	assert.Nil(t, b.Descriptor())
}

func TestRationalFloat(t *testing.T) {
	assert.InDelta(t, 0.3127, Rational{Num: 15635, Den: 50000}.Float(), 1e-9)
	assert.Zero(t, Rational{Num: 1}.Float())
}
