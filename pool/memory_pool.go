package pool

import (
	"bytes"
	"sync"
)

// Buffers above this capacity are dropped instead of pooled so one large
// video does not pin memory.
const maxPooledBuffer = 16 << 20

// BufferPool provides a pool of reusable byte buffers
var BufferPool = sync.Pool{
	New: func() interface{} {
		return new(bytes.Buffer)
	},
}

// GetBuffer returns a buffer from the pool
func GetBuffer() *bytes.Buffer {
	return BufferPool.Get().(*bytes.Buffer)
}

// PutBuffer returns a buffer to the pool after resetting it
func PutBuffer(buf *bytes.Buffer) {
	if buf.Cap() > maxPooledBuffer {
		return
	}
	buf.Reset()
	BufferPool.Put(buf)
}

// FramePool recycles frame-sized byte slices between decoded video frames.
type FramePool struct {
	pool sync.Pool
	size int
}

// NewFramePool returns a pool of slices of exactly size bytes.
func NewFramePool(size int) *FramePool {
	p := &FramePool{size: size}
	p.pool.New = func() interface{} {
		b := make([]byte, size)
		return &b
	}
	return p
}

// Get returns a slice of the pool's size. Contents are unspecified.
func (p *FramePool) Get() []byte {
	return *p.pool.Get().(*[]byte)
}

// Put hands b back to the pool. Slices of another size are discarded.
func (p *FramePool) Put(b []byte) {
	if len(b) != p.size {
		return
	}
	p.pool.Put(&b)
}
