package studio

import (
	"fmt"
	"sync"
	"time"
)

// idClock hands out strictly increasing millisecond stamps so ids built from
// it never repeat even when two batches start in the same millisecond.
type idClock struct {
	mu   sync.Mutex
	last int64
	now  func() time.Time
}

func (c *idClock) next() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	ms := c.now().UnixMilli()
	if ms <= c.last {
		ms = c.last + 1
	}
	c.last = ms
	return ms
}

func videoID(stamp int64) string     { return fmt.Sprintf("video-%d", stamp) }
func thumbnailID(stamp int64) string { return fmt.Sprintf("thumb-%d", stamp) }
func imageID(stamp int64, idx int) string {
	return fmt.Sprintf("img-%d-%d", stamp, idx)
}
