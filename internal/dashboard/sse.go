package dashboard

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/zulandar/campaignyard/internal/campaign"
)

// sseHeartbeat is how often an idle stream sends a heartbeat event.
var sseHeartbeat = 15 * time.Second

// changeEvent is the payload of a "change" SSE event.
type changeEvent struct {
	Stores   []campaign.Store `json:"stores"`
	Dirty    bool             `json:"dirty"`
	Revision uint64           `json:"revision"`
}

// handleSSE streams engine changes to the client until it disconnects.
// A slow client misses changes beyond the queued 16; the revision in the
// next event it does get tells it to refetch.
func handleSSE(e *campaign.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Content-Type", "text/event-stream")
		c.Header("Cache-Control", "no-cache")
		c.Header("Connection", "keep-alive")
		c.Header("X-Accel-Buffering", "no")

		changes := make(chan campaign.Change, 16)
		unsubscribe := e.Subscribe(func(ch campaign.Change) {
			select {
			case changes <- ch:
			default:
			}
		})
		defer unsubscribe()

		writeSSE(c.Writer, "connected", map[string]any{"type": "connected", "revision": e.Revision()})
		c.Writer.Flush()

		ctx := c.Request.Context()
		heartbeat := time.NewTicker(sseHeartbeat)
		defer heartbeat.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-heartbeat.C:
				writeSSE(c.Writer, "heartbeat", map[string]string{
					"timestamp": time.Now().UTC().Format(time.RFC3339),
				})
				c.Writer.Flush()
			case ch := <-changes:
				writeSSE(c.Writer, "change", changeEvent{
					Stores:   ch.Stores,
					Dirty:    ch.Dirty,
					Revision: e.Revision(),
				})
				c.Writer.Flush()
			}
		}
	}
}

// writeSSE writes a single SSE event to the writer.
func writeSSE(w io.Writer, event string, data any) {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return
	}
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, string(jsonData))
}
