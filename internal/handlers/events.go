package handlers

import (
	"io"

	"github.com/gin-gonic/gin"

	"github.com/okaimono/marketplace-backend/internal/realtime"
)

type EventsHandler struct {
	hub *realtime.Hub
}

func NewEventsHandler(hub *realtime.Hub) *EventsHandler {
	return &EventsHandler{hub: hub}
}

// Stream pushes the requester's realtime events over SSE until the client
// disconnects.
func (eh *EventsHandler) Stream(c *gin.Context) {
	userID, ok := requesterID(c)
	if !ok {
		return
	}

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")

	ch, unsubscribe := eh.hub.Subscribe(userID.String())
	defer unsubscribe()

	ctx := c.Request.Context()
	c.Stream(func(w io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case msg, open := <-ch:
			if !open {
				return false
			}
			c.SSEvent(msg.Event, msg.Data)
			return true
		}
	})
}
