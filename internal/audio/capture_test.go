package audio

import (
	"io"
	"sync/atomic"
	"testing"

	"github.com/smallnest/ringbuffer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecvHandlerDropsWhenRingFull(t *testing.T) {
	rb := ringbuffer.New(64)
	var dropped atomic.Int64
	onRecv := newRecvHandler(rb, &dropped)

	chunk := make([]byte, 16)
	for i := 0; i < 6; i++ {
		onRecv(nil, chunk, 0)
	}

	assert.Equal(t, int64(2), dropped.Load(), "four chunks fit, two dropped")
	assert.Equal(t, 64, rb.Length())
}

// The callback runs on the device driver's thread while the capture loop
// drains and reads the counter; every chunk must be either fully buffered
// or counted as dropped.
func TestRecvHandlerConcurrentWithDrain(t *testing.T) {
	const (
		chunkBytes = 16
		chunks     = 1000
	)
	rb := ringbuffer.New(chunkBytes * 8)
	var dropped atomic.Int64
	onRecv := newRecvHandler(rb, &dropped)

	done := make(chan struct{})
	go func() {
		defer close(done)
		chunk := make([]byte, chunkBytes)
		for i := 0; i < chunks; i++ {
			onRecv(nil, chunk, 0)
		}
	}()

	buf := make([]byte, chunkBytes)
	read := 0
	for {
		select {
		case <-done:
			for rb.Length() >= chunkBytes {
				_, err := io.ReadFull(rb, buf)
				require.NoError(t, err)
				read++
			}
			assert.Equal(t, int64(chunks), int64(read)+dropped.Load())
			return
		default:
			if rb.Length() >= chunkBytes {
				_, err := io.ReadFull(rb, buf)
				require.NoError(t, err)
				read++
			}
		}
	}
}
