package mbuf

import (
	"fmt"

	"github.com/yanet-platform/corepkt/xiter"
)

// AllocBulk acquires n buffers from pool in one batch call. On failure it
// frees any buffers already allocated in this call before returning the
// error.
func AllocBulk(pool Pool, n int) ([]*Buffer, error) {
	buffers := make([]*Buffer, 0, n)

	for i := range n {
		b, err := New(pool)
		if err != nil {
			for _, allocated := range buffers {
				allocated.Free()
			}
			return nil, fmt.Errorf("mbuf.AllocBulk: buffer %d/%d: %w", i, n, err)
		}
		buffers = append(buffers, b)
	}

	return buffers, nil
}

// FreeBulk releases every buffer in buffers back to its pool.
func FreeBulk(buffers []*Buffer) {
	for _, b := range buffers {
		b.Free()
	}
}

// Describe returns a short per-buffer debug summary, indexed in
// allocation order. Useful when a bulk operation partially fails and the
// caller wants to log which buffers are still live.
func Describe(buffers []*Buffer) []string {
	out := make([]string, 0, len(buffers))
	for idx, b := range xiter.Enumerate(func(yield func(*Buffer) bool) {
		for _, b := range buffers {
			if !yield(b) {
				return
			}
		}
	}) {
		out = append(out, fmt.Sprintf("buf[%d]: data_len=%d pkt_len=%d clone=%v", idx, b.DataLen(), b.PktLen(), b.IsClone()))
	}
	return out
}
