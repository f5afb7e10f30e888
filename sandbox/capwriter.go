package sandbox

import (
	"bytes"
	"sync"
)

// cappedBuffer stores at most max bytes and silently discards the rest,
// recording that truncation happened. Write never fails and always reports
// the full length consumed, so the draining io.Copy keeps reading until the
// child's stream closes. The child is never blocked on a full pipe just
// because it talks too much.
type cappedBuffer struct {
	mu        sync.Mutex
	max       int64
	buf       bytes.Buffer
	truncated bool
}

func newCappedBuffer(max int64) *cappedBuffer {
	return &cappedBuffer{max: max}
}

func (b *cappedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.max <= 0 {
		b.buf.Write(p)
		return len(p), nil
	}

	room := b.max - int64(b.buf.Len())
	switch {
	case room >= int64(len(p)):
		b.buf.Write(p)
	case room > 0:
		b.buf.Write(p[:room])
		b.truncated = true
	default:
		if len(p) > 0 {
			b.truncated = true
		}
	}
	return len(p), nil
}

func (b *cappedBuffer) Bytes() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]byte, b.buf.Len())
	copy(out, b.buf.Bytes())
	return out
}

func (b *cappedBuffer) Truncated() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.truncated
}
