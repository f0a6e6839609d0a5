package events

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// the feed is read-only and carries no user data
	CheckOrigin: func(r *http.Request) bool { return true },
}

// WSHandler upgrades the request and subscribes the connection until the
// client goes away. ?run_id= and ?type= narrow the feed.
func WSHandler(hub *Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		filter := FilterFromQuery(c.Request.URL.Query())

		ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			hub.log.Debug("websocket upgrade failed", zap.Error(err))
			return
		}

		_ = ws.WriteMessage(websocket.TextMessage, hub.welcome(transportWS, filter))
		sub := hub.SubscribeWS(ws, filter)
		hub.log.Info("websocket subscriber connected",
			zap.String("remote", c.ClientIP()),
			zap.String("run_id", filter.RunID))

		for {
			if _, _, err := ws.ReadMessage(); err != nil {
				break
			}
		}

		sub.Close()
		hub.log.Info("websocket subscriber disconnected", zap.String("remote", c.ClientIP()))
	}
}
