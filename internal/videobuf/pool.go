package videobuf

import (
	"errors"
	"sync"
)

var (
	ErrPoolClosed    = errors.New("videobuf: pool is closed")
	ErrPoolExhausted = errors.New("videobuf: pool exhausted")
)

// Pool hands out PrimeBuffers and takes them back when their last reference
// is released. Buffers returned from Get carry one reference owned by the caller.
type Pool struct {
	mu       sync.Mutex
	idle     []*PrimeBuffer
	closed   bool
	inUse    int
	maxInUse int
}

// NewPool creates a pool. If maxInUse <= 0, the pool is unbounded.
func NewPool(maxInUse int) *Pool {
	return &Pool{maxInUse: maxInUse}
}

// Get returns a buffer describing one decoded frame.
func (p *Pool) Get(pic Picture, format PixelFormat, layout Descriptor) (*PrimeBuffer, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil, ErrPoolClosed
	}
	if p.maxInUse > 0 && p.inUse >= p.maxInUse {
		return nil, ErrPoolExhausted
	}

	var b *PrimeBuffer
	if n := len(p.idle); n > 0 {
		b = p.idle[n-1]
		p.idle = p.idle[:n-1]
	} else {
		b = &PrimeBuffer{pool: p}
	}

	b.refs = 1
	b.descRefs = 0
	b.desc = nil
	b.picture = pic
	b.format = format
	b.layout = layout
	p.inUse++
	return b, nil
}

// InUse reports how many buffers still hold references.
func (p *Pool) InUse() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.inUse
}

// Close drops idle buffers. Buffers still referenced are unaffected.
func (p *Pool) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	p.idle = nil
}

func (p *Pool) put(b *PrimeBuffer) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.inUse--
	if p.closed {
		return
	}
	p.idle = append(p.idle, b)
}
