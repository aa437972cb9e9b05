package transport

import (
	"sync"
)

// bufferPool holds reusable 9000-byte receive buffers, so Socket.Receive
// doesn't allocate on every datagram.
//
// RFC 6762 §17: mDNS messages can exceed the 512-byte DNS default
// (jumbo frames up to 9000 bytes), so the pool buffer is sized to the
// largest packet a responder may need to read in one call.
var bufferPool = sync.Pool{
	New: func() interface{} {
		buf := make([]byte, 9000)
		return &buf
	},
}

// GetBuffer returns a pointer to a 9000-byte buffer from the pool.
// Callers must return it via PutBuffer, typically with defer.
func GetBuffer() *[]byte {
	return bufferPool.Get().(*[]byte)
}

// PutBuffer zeroes and returns a buffer to the pool. The buffer must
// not be used again after this call.
func PutBuffer(bufPtr *[]byte) {
	buf := *bufPtr
	for i := range buf {
		buf[i] = 0
	}
	bufferPool.Put(bufPtr)
}
