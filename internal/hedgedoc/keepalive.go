package hedgedoc

import (
	"errors"
	"net"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// keepalive sends Engine.IO pings at the interval announced by the open packet.
// It stops when the connection closes or a ping can no longer be written.
func (c *Conn) keepalive(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	c.logger.Debug("keepalive started", zap.Duration("interval", interval))
	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			if !c.isOpen() {
				return
			}
			if err := c.send(PacketPing); err != nil {
				if !c.isOpen() || errors.Is(err, websocket.ErrCloseSent) || errors.Is(err, net.ErrClosed) {
					return
				}
				c.logger.Warn("keepalive ping failed", zap.Error(err))
				return
			}
		}
	}
}
