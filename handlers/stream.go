package handlers

import (
	"github.com/gin-gonic/gin"
)

// streamSnapshots relays each value from ch as a server-sent event until the
// client disconnects or the channel closes.
func streamSnapshots[T any](c *gin.Context, event string, ch <-chan T) {
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	ctx := c.Request.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case snap, ok := <-ch:
			if !ok {
				return
			}
			c.SSEvent(event, snap)
			c.Writer.Flush()
		}
	}
}
